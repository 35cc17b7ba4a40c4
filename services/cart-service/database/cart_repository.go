package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"checkout-backend/services/cart-service/models"
)

// CartRepository stores carts and pending checkout markers in Redis as JSON
// values with TTLs.
type CartRepository struct {
	client     *redis.Client
	cartTTL    time.Duration
	pendingTTL time.Duration
}

func NewCartRepository(client *redis.Client, cartTTL, pendingTTL time.Duration) *CartRepository {
	return &CartRepository{
		client:     client,
		cartTTL:    cartTTL,
		pendingTTL: pendingTTL,
	}
}

func (r *CartRepository) cartKey(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

func (r *CartRepository) pendingKey(userID, transactionID string) string {
	return fmt.Sprintf("pending:checkout:%s:%s", userID, transactionID)
}

func (r *CartRepository) pendingPattern(userID string) string {
	return fmt.Sprintf("pending:checkout:%s:*", userID)
}

func (r *CartRepository) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.cartKey(userID)).Result()
	if err == redis.Nil {
		// No cart found
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.cartKey(cart.UserID), data, r.cartTTL).Err()
}

func (r *CartRepository) DeleteCart(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.cartKey(userID)).Err()
}

// RemoveItems deletes exactly the given product lines from the cart, leaving
// the rest untouched. Removing an already absent line is a no-op, which makes
// redelivered completion events safe.
func (r *CartRepository) RemoveItems(ctx context.Context, userID string, productIDs []string) error {
	cart, err := r.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}

	drop := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if _, gone := drop[item.ProductID]; !gone {
			kept = append(kept, item)
		}
	}
	cart.Items = kept

	if len(cart.Items) == 0 {
		return r.DeleteCart(ctx, userID)
	}
	return r.SaveCart(ctx, cart)
}

// GetPending returns the marker for one transaction, or nil. Markers are
// stored one key per transaction so concurrent checkouts over disjoint cart
// lines never overwrite each other.
func (r *CartRepository) GetPending(ctx context.Context, userID, transactionID string) (*models.PendingCheckout, error) {
	data, err := r.client.Get(ctx, r.pendingKey(userID, transactionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pending models.PendingCheckout
	if err := json.Unmarshal([]byte(data), &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

// ListPending returns every live marker for a user, across all in-flight
// transactions. A key expiring between the scan and the read is skipped.
func (r *CartRepository) ListPending(ctx context.Context, userID string) ([]*models.PendingCheckout, error) {
	keys, err := r.client.Keys(ctx, r.pendingPattern(userID)).Result()
	if err != nil {
		return nil, err
	}

	markers := make([]*models.PendingCheckout, 0, len(keys))
	for _, key := range keys {
		data, err := r.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var pending models.PendingCheckout
		if err := json.Unmarshal([]byte(data), &pending); err != nil {
			return nil, err
		}
		markers = append(markers, &pending)
	}
	return markers, nil
}

func (r *CartRepository) SetPending(ctx context.Context, pending *models.PendingCheckout) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.pendingKey(pending.UserID, pending.TransactionID), data, r.pendingTTL).Err()
}

// ClearPending removes one transaction's marker. The key embeds the
// transaction id, so a redelivered terminal event from an old saga can only
// ever touch its own marker, never a newer checkout's.
func (r *CartRepository) ClearPending(ctx context.Context, userID, transactionID string) error {
	return r.client.Del(ctx, r.pendingKey(userID, transactionID)).Err()
}
