package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"checkout-backend/services/contracts"
)

// Payment is the record of one charge attempt, keyed by the saga transaction
// id for idempotency. A record moves PENDING to SUCCESS or FAILED; once
// terminal it is never mutated again, and a redelivered request re-emits the
// recorded outcome instead of re-charging.
type Payment struct {
	ID            uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID string                  `gorm:"uniqueIndex;not null" json:"transaction_id"`
	OrderID       uuid.UUID               `gorm:"type:uuid;index;not null" json:"order_id"`
	UserID        string                  `gorm:"index;not null" json:"user_id"`
	Amount        decimal.Decimal         `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency      string                  `gorm:"type:varchar(8);not null" json:"currency"`
	PaymentMethod string                  `gorm:"type:varchar(16);not null" json:"payment_method"`
	Status        contracts.PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	// GatewayRef is the provider-side id of the charge, when one was made.
	GatewayRef    *string    `gorm:"uniqueIndex" json:"gateway_ref,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	SucceededAt   *time.Time `json:"succeeded_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
