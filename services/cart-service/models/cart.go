package models

import (
	"time"

	"github.com/shopspring/decimal"

	"checkout-backend/services/contracts"
)

// CartItem is one line of a stored cart. Price and display fields are the
// snapshot a checkout carries into the saga.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Find returns the cart line for a product, or nil.
func (c *Cart) Find(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// PendingCheckout marks cart lines as spoken for while a saga is in flight,
// so a second checkout cannot double-spend them before the first resolves.
type PendingCheckout struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	ProductIDs    []string  `json:"product_ids"`
	CreatedAt     time.Time `json:"created_at"`
}

// Covers reports whether the marker holds any of the given products.
func (p *PendingCheckout) Covers(productIDs []string) bool {
	held := make(map[string]struct{}, len(p.ProductIDs))
	for _, id := range p.ProductIDs {
		held[id] = struct{}{}
	}
	for _, id := range productIDs {
		if _, ok := held[id]; ok {
			return true
		}
	}
	return false
}

// CheckoutRequest is the POST /cart/checkout body. Selected items reference
// lines already present in the stored cart; prices are never taken from the
// request.
type CheckoutRequest struct {
	SelectedItems []SelectedItem          `json:"selected_items" binding:"required,min=1,dive"`
	ShippingAddr  string                  `json:"shipping_address" binding:"required"`
	PaymentMethod contracts.PaymentMethod `json:"payment_method" binding:"required"`
}

type SelectedItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}
