package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout-backend/services/contracts"
	"checkout-backend/services/payment-service/models"
	"checkout-backend/services/payment-service/repository"
)

// PaymentService executes payment requests idempotently. The transaction id,
// not the order id, is the idempotency key: a record is looked up by it
// first, and a terminal record short-circuits the charge entirely.
type PaymentService struct {
	payments repository.PaymentRepository
	gateway  PaymentGateway
	logger   *zap.Logger
}

func NewPaymentService(payments repository.PaymentRepository, gateway PaymentGateway, logger *zap.Logger) *PaymentService {
	return &PaymentService{payments: payments, gateway: gateway, logger: logger}
}

// Process runs one payment request to a terminal record. Redelivery returns
// the previously recorded outcome without touching the gateway; a PENDING
// record from a crashed attempt is re-driven, relying on the gateway-side
// idempotency key to prevent a double charge.
func (s *PaymentService) Process(ctx context.Context, req *contracts.ProcessPaymentRequest) (*models.Payment, error) {
	payment, err := s.payments.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("look up payment for %s: %w", req.TransactionID, err)
	}
	if payment != nil && payment.Status.Terminal() {
		s.logger.Info("duplicate payment request, returning recorded outcome",
			zap.String("transaction_id", req.TransactionID),
			zap.String("status", string(payment.Status)))
		return payment, nil
	}

	if payment == nil {
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, fmt.Errorf("payment request for %s carries malformed order id %q: %w",
				req.TransactionID, req.OrderID, err)
		}
		payment = &models.Payment{
			ID:            uuid.New(),
			TransactionID: req.TransactionID,
			OrderID:       orderID,
			UserID:        req.UserID,
			Amount:        req.TotalAmount,
			Currency:      req.Currency,
			PaymentMethod: string(req.PaymentMethod),
			Status:        contracts.PaymentStatusPending,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrPaymentExists) {
				// Lost a race with another delivery of the same request;
				// reload and let the terminal check above decide next time.
				return nil, fmt.Errorf("concurrent payment creation for %s: %w", req.TransactionID, err)
			}
			return nil, fmt.Errorf("create payment for %s: %w", req.TransactionID, err)
		}
	}

	result, err := s.charge(ctx, req)
	if err != nil {
		// Transport-level failure: leave the record PENDING so redelivery
		// retries the charge under the same idempotency key.
		return nil, fmt.Errorf("charge for %s: %w", req.TransactionID, err)
	}

	now := time.Now().UTC()
	if result.Declined {
		payment.Status = contracts.PaymentStatusFailed
		payment.FailureReason = result.Reason
		payment.FailedAt = &now
	} else {
		payment.Status = contracts.PaymentStatusSuccess
		payment.SucceededAt = &now
	}
	if result.ProviderRef != "" {
		payment.GatewayRef = &result.ProviderRef
	}

	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("record payment outcome for %s: %w", req.TransactionID, err)
	}

	s.logger.Info("payment settled",
		zap.String("transaction_id", req.TransactionID),
		zap.String("order_id", req.OrderID),
		zap.String("status", string(payment.Status)))
	return payment, nil
}

// GetByOrderID returns the payment for an order, or nil when none exists.
func (s *PaymentService) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return s.payments.GetByOrderID(ctx, orderID)
}

// GetByTransactionID returns the payment for a transaction, or nil.
func (s *PaymentService) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return s.payments.GetByTransactionID(ctx, transactionID)
}

func (s *PaymentService) charge(ctx context.Context, req *contracts.ProcessPaymentRequest) (ChargeResult, error) {
	// Cash on delivery settles at the door, not at checkout; no gateway
	// call is made and the saga proceeds as paid.
	if req.PaymentMethod == contracts.PaymentMethodCOD {
		return ChargeResult{}, nil
	}

	return s.gateway.Charge(ctx, ChargeRequest{
		TransactionID: req.TransactionID,
		OrderID:       req.OrderID,
		Amount:        req.TotalAmount,
		Currency:      req.Currency,
	})
}
