package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"checkout-backend/services/contracts"
)

// Order is the saga's durable aggregate, keyed by the transaction id that
// threads through every event of one checkout. Created on first receipt of a
// reservation success; never deleted, only transitioned.
type Order struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID   string                `gorm:"uniqueIndex;not null" json:"transaction_id"`
	UserID          string                `gorm:"index;not null" json:"user_id"`
	Status          contracts.OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount     decimal.Decimal       `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency        string                `gorm:"type:varchar(8);not null" json:"currency"`
	ShippingAddress string                `gorm:"not null" json:"shipping_address"`
	PaymentMethod   string                `gorm:"type:varchar(16);not null" json:"payment_method"`
	FailureReason   string                `json:"failure_reason,omitempty"`
	// SagaDeadline is when the deadline sweeper may compensate a still
	// non-terminal saga.
	SagaDeadline time.Time   `gorm:"index" json:"saga_deadline"`
	CanceledAt   *time.Time  `json:"canceled_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	Items        []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	ProductID string          `gorm:"not null" json:"product_id"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
}

// LineItems rebuilds the event line items from the persisted order rows.
func (o *Order) LineItems() []contracts.LineItem {
	items := make([]contracts.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, contracts.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Color:     it.Color,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return items
}
