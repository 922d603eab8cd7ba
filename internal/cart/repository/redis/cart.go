// Package redis implements cart persistence on Redis. Carts are stored
// as JSON under cart:{id} with a sliding TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/domain"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cart by id from Redis.
func (r *CartRepository) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	key := keyPrefix + cartID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", cartID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &cart, nil
}

// Save persists a cart to Redis with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	key := keyPrefix + cart.ID

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// SaveIfVersion persists the cart only when the stored version still
// equals expectedVersion, using WATCH for the check-and-set.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int64) error {
	key := keyPrefix + cart.ID

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	txn := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis get cart: %w", err)
		}

		if err == nil {
			var stored domain.Cart
			if err := json.Unmarshal(current, &stored); err != nil {
				return fmt.Errorf("unmarshal stored cart: %w", err)
			}
			if stored.Version != expectedVersion {
				return apperrors.Conflict("cart was modified concurrently, please retry")
			}
		} else if expectedVersion != 0 {
			return apperrors.NotFound("cart", cart.ID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}

	err = r.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		return apperrors.Conflict("cart was modified concurrently, please retry")
	}
	return err
}

// Delete removes a cart from Redis by id.
func (r *CartRepository) Delete(ctx context.Context, cartID string) error {
	key := keyPrefix + cartID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}

	return nil
}
