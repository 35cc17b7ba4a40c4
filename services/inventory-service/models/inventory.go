package models

import (
	"time"

	"checkout-backend/services/contracts"
)

// Inventory is the stock record for one product. Available is what a new
// reservation can draw from; Reserved is held by in-flight sagas until they
// complete (deduct) or fail (release).
type Inventory struct {
	ProductID string    `json:"product_id"`
	Available int       `json:"available"`
	Reserved  int       `json:"reserved"`
	Threshold int       `json:"threshold"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReservationStatus tracks how far a per-transaction reservation got.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationReserved  ReservationStatus = "RESERVED"
	ReservationFailed    ReservationStatus = "FAILED"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
)

// Resolved reports whether the reservation outcome has been decided.
func (s ReservationStatus) Resolved() bool {
	return s != ReservationPending
}

// ReservedItem records a quantity actually decremented for one product.
type ReservedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Reservation is the idempotency record for one saga instance, keyed by
// transaction id. ReservedItems lists exactly the decrements applied so far,
// so a crash mid-reservation can be rolled back precisely and a redelivered
// event re-emits the recorded outcome instead of re-executing. Items keeps
// the priced line snapshot so the outcome event can be rebuilt verbatim.
type Reservation struct {
	TransactionID   string                  `json:"transaction_id"`
	OrderID         string                  `json:"order_id,omitempty"`
	UserID          string                  `json:"user_id"`
	Status          ReservationStatus       `json:"status"`
	Items           []contracts.LineItem    `json:"items"`
	ReservedItems   []ReservedItem          `json:"reserved_items"`
	ShippingAddress string                  `json:"shipping_address"`
	PaymentMethod   contracts.PaymentMethod `json:"payment_method"`
	Reason          string                  `json:"reason,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// SetStockRequest upserts stock for a product.
type SetStockRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Available int    `json:"available" binding:"min=0"`
	Threshold int    `json:"threshold" binding:"min=0"`
}

// StockCheckResult reports availability for one requested line.
type StockCheckResult struct {
	ProductID    string `json:"product_id"`
	Requested    int    `json:"requested"`
	Available    int    `json:"available"`
	IsSufficient bool   `json:"is_sufficient"`
}

// CheckStockRequest asks whether a set of lines could be reserved right now.
type CheckStockRequest struct {
	Items []CheckStockItem `json:"items" binding:"required,min=1,dive"`
}

type CheckStockItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}
