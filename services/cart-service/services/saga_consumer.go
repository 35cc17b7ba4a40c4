package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"checkout-backend/services/cart-service/database"
	"checkout-backend/services/contracts"
)

// SagaConsumer reacts to the saga's terminal events. On success exactly the
// purchased lines leave the cart; on failure the pending marker is released
// and the cart is left untouched.
type SagaConsumer struct {
	repo   *database.CartRepository
	logger *zap.Logger
}

func NewSagaConsumer(repo *database.CartRepository, logger *zap.Logger) *SagaConsumer {
	return &SagaConsumer{repo: repo, logger: logger}
}

// Handle processes one terminal event. Safe under redelivery: completion is
// applied only while the transaction's marker is still live, and marker
// clearing no-ops the second time around.
func (c *SagaConsumer) Handle(ctx context.Context, e contracts.Event) error {
	switch evt := e.(type) {
	case *contracts.OrderCompleted:
		// The marker doubles as the handled flag. Once it is gone the lines
		// were already removed, and a redelivery must not touch products the
		// user has since re-added.
		pending, err := c.repo.GetPending(ctx, evt.UserID, evt.TransactionID)
		if err != nil {
			return fmt.Errorf("load pending marker: %w", err)
		}
		if pending == nil {
			c.logger.Info("completed order already applied to cart",
				zap.String("transaction_id", evt.TransactionID))
			return nil
		}

		productIDs := make([]string, 0, len(evt.Items))
		for _, item := range evt.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		if err := c.repo.RemoveItems(ctx, evt.UserID, productIDs); err != nil {
			return fmt.Errorf("remove purchased items: %w", err)
		}
		if err := c.repo.ClearPending(ctx, evt.UserID, evt.TransactionID); err != nil {
			return fmt.Errorf("clear pending marker: %w", err)
		}
		c.logger.Info("cart cleaned after completed order",
			zap.String("transaction_id", evt.TransactionID),
			zap.String("order_id", evt.OrderID),
			zap.Int("items_removed", len(productIDs)))
		return nil

	case *contracts.CheckoutFailed:
		// Price snapshot is discarded with the marker; the cart itself is
		// not resurrected or modified.
		if err := c.repo.ClearPending(ctx, evt.UserID, evt.TransactionID); err != nil {
			return fmt.Errorf("clear pending marker: %w", err)
		}
		c.logger.Info("pending checkout released after saga failure",
			zap.String("transaction_id", evt.TransactionID),
			zap.String("reason", evt.Reason))
		return nil

	default:
		c.logger.Warn("unexpected event on terminal topic",
			zap.String("type", string(e.Type())),
			zap.String("transaction_id", contracts.Key(e)))
		return nil
	}
}
