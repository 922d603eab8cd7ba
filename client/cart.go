package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// ErrNoCart is returned by cart mutations that need an existing cart
// when the session has none.
var ErrNoCart = errors.New("no cart in session")

// Cart is the client-side view of a server cart.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	Items     []CartItem `json:"items"`
	Currency  string     `json:"currency"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// CartItem is one line in the cart.
type CartItem struct {
	ID           string      `json:"id"`
	ProductID    string      `json:"product_id"`
	VariantID    string      `json:"variant_id"`
	Title        string      `json:"title"`
	VariantLabel string      `json:"variant_label,omitempty"`
	SKU          string      `json:"sku"`
	UnitPrice    money.Money `json:"unit_price"`
	Quantity     int         `json:"quantity"`
	ImageURL     string      `json:"image_url,omitempty"`
}

// TotalAmount returns the sum of all line totals.
func (c *Cart) TotalAmount() money.Money {
	total := money.Zero(c.Currency)
	for i := range c.Items {
		line := c.Items[i].UnitPrice.Times(c.Items[i].Quantity)
		if sum, err := total.Add(line); err == nil {
			total = sum
		}
	}
	return total
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	count := 0
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

// CartSession drives the cart flow for one shopper session. It keeps a
// local snapshot of the cart, replaced wholesale by every successful
// server response; when a call fails the previous snapshot stays.
//
// At most one mutation runs at a time per session; a second concurrent
// call fails fast with ErrOperationInFlight.
type CartSession struct {
	client  *Client
	session SessionStore

	inflight sync.Mutex

	mu   sync.RWMutex
	cart *Cart
}

// NewCartSession creates a CartSession on top of the given client and
// session store.
func NewCartSession(c *Client, store SessionStore) *CartSession {
	return &CartSession{client: c, session: store}
}

// Cart returns the local snapshot, or nil when the session has none.
func (s *CartSession) Cart() *Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

// CartID returns the cart id stored in the session.
func (s *CartSession) CartID() (string, bool) {
	return s.session.Get(SessionKeyCartID)
}

func (s *CartSession) replace(cart *Cart) {
	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// AddItem puts quantity units of a product variant in the cart. With no
// cart in the session it first creates one and persists the new id
// before adding; the id is kept even when the add itself fails, since
// an empty cart is valid.
func (s *CartSession) AddItem(ctx context.Context, productID, variantID string, quantity int) (*Cart, error) {
	if !s.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer s.inflight.Unlock()

	cartID, ok := s.session.Get(SessionKeyCartID)
	if !ok {
		var created Cart
		if err := s.client.do(ctx, http.MethodPost, "/api/v1/carts", nil, &created); err != nil {
			return nil, err
		}
		cartID = created.ID
		s.session.Set(SessionKeyCartID, cartID)
		s.replace(&created)
	}

	var cart Cart
	err := s.client.do(ctx, http.MethodPost, "/api/v1/carts/"+cartID+"/items", addItemRequest{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
	}, &cart)
	if err != nil {
		return nil, err
	}

	s.replace(&cart)
	return &cart, nil
}

// UpdateItemQuantity changes the quantity of one line.
func (s *CartSession) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	if !s.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer s.inflight.Unlock()

	cartID, ok := s.session.Get(SessionKeyCartID)
	if !ok {
		return nil, ErrNoCart
	}

	var cart Cart
	err := s.client.do(ctx, http.MethodPut, "/api/v1/carts/"+cartID+"/items/"+itemID, updateQuantityRequest{
		Quantity: quantity,
	}, &cart)
	if err != nil {
		return nil, err
	}

	s.replace(&cart)
	return &cart, nil
}

// RemoveItem removes one line. The server treats removing a line that
// is already gone as success, so retries are safe.
func (s *CartSession) RemoveItem(ctx context.Context, itemID string) (*Cart, error) {
	if !s.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer s.inflight.Unlock()

	cartID, ok := s.session.Get(SessionKeyCartID)
	if !ok {
		return nil, ErrNoCart
	}

	var cart Cart
	if err := s.client.do(ctx, http.MethodDelete, "/api/v1/carts/"+cartID+"/items/"+itemID, nil, &cart); err != nil {
		return nil, err
	}

	s.replace(&cart)
	return &cart, nil
}

// ClearCart drops the local snapshot and the stored cart id. No server
// call is made; the server cart is left to expire on its own.
func (s *CartSession) ClearCart() error {
	if !s.inflight.TryLock() {
		return ErrOperationInFlight
	}
	defer s.inflight.Unlock()

	s.session.Delete(SessionKeyCartID)
	s.replace(nil)
	return nil
}

// RefreshCart re-fetches the cart behind the stored id. Without an id
// it is a no-op. A cart the server no longer has clears the local state
// without failing; expiry is a normal outcome, not an error.
func (s *CartSession) RefreshCart(ctx context.Context) (*Cart, error) {
	if !s.inflight.TryLock() {
		return nil, ErrOperationInFlight
	}
	defer s.inflight.Unlock()

	cartID, ok := s.session.Get(SessionKeyCartID)
	if !ok {
		return nil, nil
	}

	var cart Cart
	err := s.client.do(ctx, http.MethodGet, "/api/v1/carts/"+cartID, nil, &cart)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrGone) {
			s.session.Delete(SessionKeyCartID)
			s.replace(nil)
			return nil, nil
		}
		return nil, err
	}

	s.replace(&cart)
	return &cart, nil
}
