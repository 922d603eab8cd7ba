package client

import "sync"

// Session keys under which the SDK stores its ids.
const (
	SessionKeyCartID     = "cart_id"
	SessionKeyCheckoutID = "checkout_id"
	SessionKeyOrderID    = "order_id"
)

// SessionStore persists the ids that tie a shopper's session to
// server-side resources. A web app backs it with its cookie or session
// layer; MemoryStore serves tests and single-process tools.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore is an in-process SessionStore.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key and whether it was present.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
