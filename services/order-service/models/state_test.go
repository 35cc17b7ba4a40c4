package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/contracts"
)

func TestCanTransitionSagaPath(t *testing.T) {
	allowed := [][2]contracts.OrderStatus{
		{contracts.OrderStatusCreated, contracts.OrderStatusPaymentPending},
		{contracts.OrderStatusPaymentPending, contracts.OrderStatusPaymentCompleted},
		{contracts.OrderStatusPaymentPending, contracts.OrderStatusPaymentFailed},
		{contracts.OrderStatusPaymentCompleted, contracts.OrderStatusProcessing},
		{contracts.OrderStatusPaymentFailed, contracts.OrderStatusCancelled},
		{contracts.OrderStatusProcessing, contracts.OrderStatusShipped},
		{contracts.OrderStatusShipped, contracts.OrderStatusDelivered},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s should be allowed", pair[0], pair[1])
	}

	forbidden := [][2]contracts.OrderStatus{
		{contracts.OrderStatusCreated, contracts.OrderStatusPaymentCompleted},
		{contracts.OrderStatusPaymentCompleted, contracts.OrderStatusPaymentFailed},
		{contracts.OrderStatusShipped, contracts.OrderStatusCancelled},
		{contracts.OrderStatusDelivered, contracts.OrderStatusCancelled},
		{contracts.OrderStatusCancelled, contracts.OrderStatusPaymentPending},
		{contracts.OrderStatusFailed, contracts.OrderStatusCreated},
	}
	for _, pair := range forbidden {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s should be rejected", pair[0], pair[1])
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	order := &Order{Status: contracts.OrderStatusShipped}

	err := order.Transition(contracts.OrderStatusCancelled)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	assert.Equal(t, contracts.OrderStatusShipped, order.Status, "status must not change on rejection")
}

func TestTransitionStampsTerminalTimestamps(t *testing.T) {
	order := &Order{Status: contracts.OrderStatusPaymentFailed}
	assert.NoError(t, order.Transition(contracts.OrderStatusCancelled))
	assert.NotNil(t, order.CanceledAt)

	order = &Order{Status: contracts.OrderStatusShipped}
	assert.NoError(t, order.Transition(contracts.OrderStatusDelivered))
	assert.NotNil(t, order.CompletedAt)
}
