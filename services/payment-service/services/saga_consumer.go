package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"checkout-backend/services/common/bus"
	"checkout-backend/services/contracts"
	"checkout-backend/services/payment-service/models"
)

// SagaConsumer maps payment requests onto charge attempts and emits the
// outcome. Because Process returns the recorded outcome for duplicates, a
// redelivered request re-emits the same event rather than re-charging.
type SagaConsumer struct {
	payments  *PaymentService
	publisher bus.EventPublisher
	logger    *zap.Logger
}

func NewSagaConsumer(payments *PaymentService, publisher bus.EventPublisher, logger *zap.Logger) *SagaConsumer {
	return &SagaConsumer{payments: payments, publisher: publisher, logger: logger}
}

// Handle processes one inbound saga event.
func (c *SagaConsumer) Handle(ctx context.Context, e contracts.Event) error {
	req, ok := e.(*contracts.ProcessPaymentRequest)
	if !ok {
		c.logger.Warn("unexpected event type for payments",
			zap.String("type", string(e.Type())),
			zap.String("transaction_id", contracts.Key(e)))
		return nil
	}

	payment, err := c.payments.Process(ctx, req)
	if err != nil {
		return fmt.Errorf("process payment for %s: %w", req.TransactionID, err)
	}

	return c.emitOutcome(ctx, req, payment)
}

func (c *SagaConsumer) emitOutcome(ctx context.Context, req *contracts.ProcessPaymentRequest, payment *models.Payment) error {
	switch payment.Status {
	case contracts.PaymentStatusSuccess:
		out := &contracts.PaymentSucceeded{
			BaseEvent: contracts.NewBase(contracts.EventPaymentSucceeded, req.TransactionID, req.UserID),
			OrderID:   req.OrderID,
			PaymentID: payment.ID.String(),
			Amount:    payment.Amount,
		}
		return c.publisher.Publish(ctx, contracts.TopicPaymentEvents, out)
	case contracts.PaymentStatusFailed:
		out := &contracts.PaymentFailed{
			BaseEvent: contracts.NewBase(contracts.EventPaymentFailed, req.TransactionID, req.UserID),
			OrderID:   req.OrderID,
			PaymentID: payment.ID.String(),
			Amount:    payment.Amount,
			Reason:    payment.FailureReason,
		}
		return c.publisher.Publish(ctx, contracts.TopicPaymentEvents, out)
	default:
		return fmt.Errorf("payment %s settled in unexpected status %q", req.TransactionID, payment.Status)
	}
}
