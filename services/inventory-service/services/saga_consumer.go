package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"checkout-backend/services/common/bus"
	"checkout-backend/services/contracts"
	"checkout-backend/services/inventory-service/models"
)

// SagaConsumer maps saga events onto reservation operations and emits the
// outcome events.
type SagaConsumer struct {
	reservations *ReservationService
	publisher    bus.EventPublisher
	logger       *zap.Logger
}

func NewSagaConsumer(reservations *ReservationService, publisher bus.EventPublisher, logger *zap.Logger) *SagaConsumer {
	return &SagaConsumer{reservations: reservations, publisher: publisher, logger: logger}
}

// Handle processes one inbound saga event.
func (c *SagaConsumer) Handle(ctx context.Context, e contracts.Event) error {
	switch evt := e.(type) {
	case *contracts.CheckoutInitiated:
		return c.handleCheckoutInitiated(ctx, evt)
	case *contracts.ReleaseInventory:
		return c.reservations.Release(ctx, evt.TransactionID)
	case *contracts.OrderCompleted:
		return c.reservations.Confirm(ctx, evt.TransactionID)
	default:
		c.logger.Warn("unexpected event type for inventory",
			zap.String("type", string(e.Type())),
			zap.String("transaction_id", contracts.Key(e)))
		return nil
	}
}

func (c *SagaConsumer) handleCheckoutInitiated(ctx context.Context, evt *contracts.CheckoutInitiated) error {
	res, err := c.reservations.Reserve(ctx, evt)
	if err != nil {
		return fmt.Errorf("reserve for %s: %w", evt.TransactionID, err)
	}

	switch res.Status {
	case models.ReservationReserved:
		out := &contracts.InventoryReserved{
			BaseEvent:       contracts.NewBase(contracts.EventInventoryReserved, evt.TransactionID, evt.UserID),
			OrderID:         res.OrderID,
			Items:           res.Items,
			ShippingAddress: res.ShippingAddress,
			PaymentMethod:   res.PaymentMethod,
		}
		return c.publisher.Publish(ctx, contracts.TopicInventoryEvents, out)
	case models.ReservationFailed:
		out := &contracts.InventoryReservationFailed{
			BaseEvent: contracts.NewBase(contracts.EventInventoryReservationFailed, evt.TransactionID, evt.UserID),
			Reason:    res.Reason,
		}
		return c.publisher.Publish(ctx, contracts.TopicInventoryEvents, out)
	case models.ReservationReleased, models.ReservationConfirmed:
		// The saga already moved past this step; the original outcome was
		// emitted before. Nothing to re-emit.
		c.logger.Info("duplicate checkout event for settled reservation",
			zap.String("transaction_id", evt.TransactionID),
			zap.String("status", string(res.Status)))
		return nil
	default:
		return fmt.Errorf("reservation %s resolved to unexpected status %q", evt.TransactionID, res.Status)
	}
}
