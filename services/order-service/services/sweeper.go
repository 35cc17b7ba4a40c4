package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"checkout-backend/services/order-service/repository"
)

const sweepBatchSize = 50

// DeadlineSweeper periodically compensates sagas that stalled past their
// deadline, for example when a payment request or its outcome was lost. A
// stalled saga is treated exactly like a payment failure: terminal failure
// event, inventory release, order cancelled.
type DeadlineSweeper struct {
	orders       repository.OrderRepository
	orchestrator *Orchestrator
	interval     time.Duration
	logger       *zap.Logger
}

func NewDeadlineSweeper(orders repository.OrderRepository, orchestrator *Orchestrator, interval time.Duration, logger *zap.Logger) *DeadlineSweeper {
	return &DeadlineSweeper{
		orders:       orders,
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logger,
	}
}

// Run sweeps until the context is cancelled.
func (s *DeadlineSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *DeadlineSweeper) sweep(ctx context.Context) {
	stalled, err := s.orders.FindStalled(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		s.logger.Error("list stalled orders", zap.Error(err))
		return
	}

	for _, order := range stalled {
		order := order
		s.logger.Warn("compensating stalled checkout",
			zap.String("order_id", order.ID.String()),
			zap.String("transaction_id", order.TransactionID),
			zap.String("status", string(order.Status)),
			zap.Time("deadline", order.SagaDeadline))

		if err := s.orchestrator.Compensate(ctx, &order, "checkout timed out"); err != nil {
			// Leave it for the next sweep; compensation is idempotent.
			s.logger.Error("compensate stalled checkout",
				zap.String("transaction_id", order.TransactionID),
				zap.Error(err))
		}
	}
}
