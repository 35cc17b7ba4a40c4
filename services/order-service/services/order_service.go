package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/contracts"
	"checkout-backend/services/order-service/models"
	"checkout-backend/services/order-service/repository"
)

type OrderListResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderService serves the synchronous read side of the order aggregate plus
// the administrative transitions outside the automatic saga path.
type OrderService struct {
	orders       repository.OrderRepository
	orchestrator *Orchestrator
	logger       *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, orchestrator *Orchestrator, logger *zap.Logger) *OrderService {
	return &OrderService{orders: orders, orchestrator: orchestrator, logger: logger}
}

// GetOrder returns one order by id.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperrors.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch order %s: %w", id, err)
	}
	return order, nil
}

// GetUserOrders returns a page of the user's orders, newest first.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string, page, limit int) (*OrderListResponse, error) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch orders for user %s: %w", userID, err)
	}

	return &OrderListResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  totalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}, nil
}

// CancelOrder cancels an order on user or operator request. Rejected once
// the order reaches SHIPPED or a terminal state. Cancelling a saga still in
// flight runs the full compensation path so reserved stock is returned and
// the cart's pending marker released.
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case contracts.OrderStatusCreated, contracts.OrderStatusPaymentPending:
		if err := s.orchestrator.Compensate(ctx, order, "cancelled by user"); err != nil {
			return nil, err
		}
		return order, nil
	case contracts.OrderStatusPaymentCompleted, contracts.OrderStatusProcessing:
		// Saga already settled; stock was confirmed and the cart cleared,
		// so there is nothing to compensate. Refunds are handled out of
		// band.
		order.FailureReason = "cancelled by user"
		if err := order.Transition(contracts.OrderStatusCancelled); err != nil {
			return nil, err
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return nil, fmt.Errorf("cancel order %s: %w", id, err)
		}
		s.logger.Info("order cancelled after completion",
			zap.String("order_id", id.String()))
		return order, nil
	default:
		return nil, apperrors.ErrInvalidTransition.WithCause(
			fmt.Errorf("cannot cancel order %s in status %s", id, order.Status))
	}
}

// ConfirmOrder moves a paid order into fulfillment. Requires the order to
// have completed payment; already-PROCESSING is a no-op so the call is
// idempotent.
func (s *OrderService) ConfirmOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case contracts.OrderStatusProcessing:
		return order, nil
	case contracts.OrderStatusPaymentCompleted:
		if err := order.Transition(contracts.OrderStatusProcessing); err != nil {
			return nil, err
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return nil, fmt.Errorf("confirm order %s: %w", id, err)
		}
		return order, nil
	default:
		return nil, apperrors.ErrInvalidTransition.WithCause(
			fmt.Errorf("cannot confirm order %s in status %s", id, order.Status))
	}
}

func totalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
