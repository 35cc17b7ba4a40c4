package models

import (
	"fmt"
	"time"

	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/contracts"
)

// transitions is the full order state machine. The saga path runs
// CREATED -> PAYMENT_PENDING -> PAYMENT_COMPLETED -> PROCESSING on success
// and detours through PAYMENT_FAILED -> CANCELLED on a declined charge.
// SHIPPED and DELIVERED are fulfillment states outside the saga.
var transitions = map[contracts.OrderStatus][]contracts.OrderStatus{
	contracts.OrderStatusCreated: {
		contracts.OrderStatusPaymentPending,
		contracts.OrderStatusCancelled,
		contracts.OrderStatusFailed,
	},
	contracts.OrderStatusReserving: {
		contracts.OrderStatusPaymentPending,
		contracts.OrderStatusCancelled,
		contracts.OrderStatusFailed,
	},
	contracts.OrderStatusPaymentPending: {
		contracts.OrderStatusPaymentCompleted,
		contracts.OrderStatusPaymentFailed,
		contracts.OrderStatusCancelled,
	},
	contracts.OrderStatusPaymentCompleted: {
		contracts.OrderStatusProcessing,
		contracts.OrderStatusCancelled,
	},
	contracts.OrderStatusPaymentFailed: {
		contracts.OrderStatusCancelled,
	},
	contracts.OrderStatusProcessing: {
		contracts.OrderStatusShipped,
		contracts.OrderStatusCancelled,
	},
	contracts.OrderStatusShipped: {
		contracts.OrderStatusDelivered,
	},
}

// CanTransition reports whether the move from one status to another is legal.
func CanTransition(from, to contracts.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the order to the target status, or returns
// ErrInvalidTransition if the state machine forbids it. Terminal timestamps
// are stamped here so every path records them consistently.
func (o *Order) Transition(to contracts.OrderStatus) error {
	if !CanTransition(o.Status, to) {
		return apperrors.ErrInvalidTransition.WithCause(
			fmt.Errorf("order %s: %s -> %s", o.ID, o.Status, to))
	}

	o.Status = to
	now := time.Now().UTC()
	switch to {
	case contracts.OrderStatusCancelled:
		o.CanceledAt = &now
	case contracts.OrderStatusDelivered:
		o.CompletedAt = &now
	}
	return nil
}
