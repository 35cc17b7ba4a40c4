package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	aws_pkg "checkout-backend/pkg/aws"
	"checkout-backend/services/common/bus"
	"checkout-backend/services/contracts"
	"checkout-backend/services/order-service/models"
	"checkout-backend/services/order-service/repository"
)

// Orchestrator is the saga's decision point. It owns the order aggregate,
// reacts to inventory and payment outcomes, issues the payment command, and
// decides commit versus compensate.
//
// Every handler is safe under redelivery: the order is looked up by
// transaction id before anything is created, and an event whose implied
// transition does not match the order's current state is skipped. Outbound
// events are re-emitted when the recorded state shows an earlier attempt
// crashed between persisting and publishing; every downstream consumer
// dedupes on transaction id, so re-emission is harmless.
type Orchestrator struct {
	orders    repository.OrderRepository
	publisher bus.EventPublisher

	currency    string
	checkoutTTL time.Duration

	// Terminal order events are additionally fanned out to SNS when a topic
	// is configured. Best effort: a failed SNS publish never fails the saga.
	sns         aws_pkg.SNSPublisher
	snsTopicARN string

	logger *zap.Logger
}

func NewOrchestrator(
	orders repository.OrderRepository,
	publisher bus.EventPublisher,
	currency string,
	checkoutTTL time.Duration,
	sns aws_pkg.SNSPublisher,
	snsTopicARN string,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		orders:      orders,
		publisher:   publisher,
		currency:    currency,
		checkoutTTL: checkoutTTL,
		sns:         sns,
		snsTopicARN: snsTopicARN,
		logger:      logger,
	}
}

// Handle processes one inbound saga event.
func (o *Orchestrator) Handle(ctx context.Context, e contracts.Event) error {
	switch evt := e.(type) {
	case *contracts.InventoryReserved:
		return o.handleInventoryReserved(ctx, evt)
	case *contracts.InventoryReservationFailed:
		return o.handleReservationFailed(ctx, evt)
	case *contracts.PaymentSucceeded:
		return o.handlePaymentSucceeded(ctx, evt)
	case *contracts.PaymentFailed:
		return o.handlePaymentFailed(ctx, evt)
	default:
		o.logger.Warn("unexpected event type for orchestrator",
			zap.String("type", string(e.Type())),
			zap.String("transaction_id", contracts.Key(e)))
		return nil
	}
}

// handleInventoryReserved creates the order and issues the payment command.
// A crash between creating the order and publishing the request is healed on
// redelivery: an order still in CREATED or PAYMENT_PENDING gets the request
// (re)published, which the payment handler dedupes.
func (o *Orchestrator) handleInventoryReserved(ctx context.Context, evt *contracts.InventoryReserved) error {
	order, err := o.orders.FindByTransactionID(ctx, evt.TransactionID)
	if err != nil {
		return fmt.Errorf("look up order for %s: %w", evt.TransactionID, err)
	}

	if order == nil {
		order, err = o.buildOrder(evt)
		if err != nil {
			return err
		}
		if err := o.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order for %s: %w", evt.TransactionID, err)
		}
		o.logger.Info("order created",
			zap.String("order_id", order.ID.String()),
			zap.String("transaction_id", evt.TransactionID))
	}

	switch order.Status {
	case contracts.OrderStatusCreated, contracts.OrderStatusPaymentPending:
		req := &contracts.ProcessPaymentRequest{
			BaseEvent:     contracts.NewBase(contracts.EventProcessPaymentRequest, evt.TransactionID, order.UserID),
			OrderID:       order.ID.String(),
			TotalAmount:   order.TotalAmount,
			Currency:      order.Currency,
			PaymentMethod: contracts.PaymentMethod(order.PaymentMethod),
		}
		if err := o.publisher.Publish(ctx, contracts.TopicPaymentRequests, req); err != nil {
			return fmt.Errorf("publish payment request for %s: %w", evt.TransactionID, err)
		}
		if order.Status == contracts.OrderStatusCreated {
			if err := order.Transition(contracts.OrderStatusPaymentPending); err != nil {
				return err
			}
			if err := o.orders.Update(ctx, order); err != nil {
				return fmt.Errorf("advance order %s: %w", order.ID, err)
			}
		}
		return nil
	default:
		o.logger.Info("duplicate reservation event for settled order",
			zap.String("transaction_id", evt.TransactionID),
			zap.String("status", string(order.Status)))
		return nil
	}
}

// handleReservationFailed terminates the saga without an order. Nothing was
// reserved, so the only obligation is telling the cart to release its pending
// marker.
func (o *Orchestrator) handleReservationFailed(ctx context.Context, evt *contracts.InventoryReservationFailed) error {
	failed := &contracts.CheckoutFailed{
		BaseEvent: contracts.NewBase(contracts.EventCheckoutFailed, evt.TransactionID, evt.UserID),
		Reason:    evt.Reason,
	}
	if err := o.publisher.Publish(ctx, contracts.TopicCheckoutFailed, failed); err != nil {
		return fmt.Errorf("publish checkout failure for %s: %w", evt.TransactionID, err)
	}
	o.notify(ctx, failed)
	o.logger.Info("checkout failed at reservation",
		zap.String("transaction_id", evt.TransactionID),
		zap.String("reason", evt.Reason))
	return nil
}

func (o *Orchestrator) handlePaymentSucceeded(ctx context.Context, evt *contracts.PaymentSucceeded) error {
	order, err := o.orders.FindByTransactionID(ctx, evt.TransactionID)
	if err != nil {
		return fmt.Errorf("look up order for %s: %w", evt.TransactionID, err)
	}
	if order == nil {
		// The causal-order guarantee makes this unreachable unless storage
		// lost the order row. Retry rather than drop the payment outcome.
		return fmt.Errorf("payment succeeded for %s but no order exists", evt.TransactionID)
	}

	switch order.Status {
	case contracts.OrderStatusPaymentPending:
		if err := order.Transition(contracts.OrderStatusPaymentCompleted); err != nil {
			return err
		}
		if err := o.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("record payment completion for %s: %w", order.ID, err)
		}
	case contracts.OrderStatusPaymentCompleted:
		// Crash after recording completion, before emitting. Fall through
		// to re-emit.
	default:
		o.logger.Info("duplicate payment success for settled order",
			zap.String("transaction_id", evt.TransactionID),
			zap.String("status", string(order.Status)))
		return nil
	}

	done := &contracts.OrderCompleted{
		BaseEvent:   contracts.NewBase(contracts.EventOrderCompleted, evt.TransactionID, order.UserID),
		OrderID:     order.ID.String(),
		Items:       order.LineItems(),
		TotalAmount: order.TotalAmount,
	}
	if err := o.publisher.Publish(ctx, contracts.TopicOrderCompleted, done); err != nil {
		return fmt.Errorf("publish order completion for %s: %w", evt.TransactionID, err)
	}
	o.notify(ctx, done)

	if err := order.Transition(contracts.OrderStatusProcessing); err != nil {
		return err
	}
	if err := o.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("advance order %s to processing: %w", order.ID, err)
	}

	o.logger.Info("checkout completed",
		zap.String("transaction_id", evt.TransactionID),
		zap.String("order_id", order.ID.String()))
	return nil
}

func (o *Orchestrator) handlePaymentFailed(ctx context.Context, evt *contracts.PaymentFailed) error {
	order, err := o.orders.FindByTransactionID(ctx, evt.TransactionID)
	if err != nil {
		return fmt.Errorf("look up order for %s: %w", evt.TransactionID, err)
	}
	if order == nil {
		return fmt.Errorf("payment failed for %s but no order exists", evt.TransactionID)
	}

	switch order.Status {
	case contracts.OrderStatusPaymentPending:
		order.FailureReason = evt.Reason
		if err := order.Transition(contracts.OrderStatusPaymentFailed); err != nil {
			return err
		}
		if err := o.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("record payment failure for %s: %w", order.ID, err)
		}
	case contracts.OrderStatusPaymentFailed:
		// Crash after recording the failure, before compensating.
	default:
		o.logger.Info("duplicate payment failure for settled order",
			zap.String("transaction_id", evt.TransactionID),
			zap.String("status", string(order.Status)))
		return nil
	}

	return o.Compensate(ctx, order, evt.Reason)
}

// Compensate emits the failure terminal event plus the inventory release
// command, then cancels the order. Also the entry point for the deadline
// sweeper and for user cancellation of an in-flight saga. Both emissions are
// idempotent downstream, so a crash partway through is healed by redelivery
// or the next sweep.
func (o *Orchestrator) Compensate(ctx context.Context, order *models.Order, reason string) error {
	failed := &contracts.CheckoutFailed{
		BaseEvent: contracts.NewBase(contracts.EventCheckoutFailed, order.TransactionID, order.UserID),
		OrderID:   order.ID.String(),
		Reason:    reason,
		Items:     order.LineItems(),
	}
	if err := o.publisher.Publish(ctx, contracts.TopicCheckoutFailed, failed); err != nil {
		return fmt.Errorf("publish checkout failure for %s: %w", order.TransactionID, err)
	}

	release := &contracts.ReleaseInventory{
		BaseEvent: contracts.NewBase(contracts.EventReleaseInventory, order.TransactionID, order.UserID),
		OrderID:   order.ID.String(),
		Reason:    reason,
	}
	if err := o.publisher.Publish(ctx, contracts.TopicInventoryRelease, release); err != nil {
		return fmt.Errorf("publish inventory release for %s: %w", order.TransactionID, err)
	}
	o.notify(ctx, failed)

	if order.FailureReason == "" {
		order.FailureReason = reason
	}
	if err := order.Transition(contracts.OrderStatusCancelled); err != nil {
		return err
	}
	if err := o.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("cancel order %s: %w", order.ID, err)
	}

	o.logger.Info("checkout compensated",
		zap.String("transaction_id", order.TransactionID),
		zap.String("order_id", order.ID.String()),
		zap.String("reason", reason))
	return nil
}

func (o *Orchestrator) buildOrder(evt *contracts.InventoryReserved) (*models.Order, error) {
	id, err := uuid.Parse(evt.OrderID)
	if err != nil {
		return nil, fmt.Errorf("reservation for %s carries malformed order id %q: %w",
			evt.TransactionID, evt.OrderID, err)
	}

	items := make([]models.OrderItem, 0, len(evt.Items))
	for _, it := range evt.Items {
		items = append(items, models.OrderItem{
			OrderID:   id,
			ProductID: it.ProductID,
			Name:      it.Name,
			Color:     it.Color,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return &models.Order{
		ID:              id,
		TransactionID:   evt.TransactionID,
		UserID:          evt.UserID,
		Status:          contracts.OrderStatusCreated,
		TotalAmount:     contracts.Total(evt.Items),
		Currency:        o.currency,
		ShippingAddress: evt.ShippingAddress,
		PaymentMethod:   string(evt.PaymentMethod),
		SagaDeadline:    time.Now().UTC().Add(o.checkoutTTL),
		Items:           items,
	}, nil
}

// notify fans a terminal event out to SNS when configured.
func (o *Orchestrator) notify(ctx context.Context, e contracts.Event) {
	if o.sns == nil || o.snsTopicARN == "" {
		return
	}
	payload, err := contracts.Marshal(e)
	if err != nil {
		o.logger.Warn("marshal terminal event for sns", zap.Error(err))
		return
	}
	if err := o.sns.Publish(ctx, o.snsTopicARN, payload); err != nil {
		o.logger.Warn("sns publish failed",
			zap.String("transaction_id", contracts.Key(e)),
			zap.Error(err))
	}
}
