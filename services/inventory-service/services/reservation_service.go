package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout-backend/services/contracts"
	"checkout-backend/services/inventory-service/models"
	"checkout-backend/services/inventory-service/repository"
)

// ReservationService executes the saga's reservation step. The unit of
// reservation is the whole checkout: either every line item is decremented or
// none remain decremented when the outcome is recorded.
type ReservationService struct {
	inventory    repository.InventoryRepository
	reservations repository.ReservationRepository
	logger       *zap.Logger
}

func NewReservationService(inventory repository.InventoryRepository, reservations repository.ReservationRepository, logger *zap.Logger) *ReservationService {
	return &ReservationService{
		inventory:    inventory,
		reservations: reservations,
		logger:       logger,
	}
}

// Reserve attempts the all-or-nothing reservation for one transaction and
// returns the resolved record. A transaction id seen before returns the
// previously recorded outcome without touching stock, so redelivery never
// double-decrements.
func (s *ReservationService) Reserve(ctx context.Context, evt *contracts.CheckoutInitiated) (*models.Reservation, error) {
	transactionID, items := evt.TransactionID, evt.Items
	res := &models.Reservation{
		TransactionID:   transactionID,
		UserID:          evt.UserID,
		Status:          models.ReservationPending,
		Items:           items,
		ShippingAddress: evt.ShippingAddress,
		PaymentMethod:   evt.PaymentMethod,
		CreatedAt:       time.Now().UTC(),
	}

	err := s.reservations.Create(ctx, res)
	if errors.Is(err, repository.ErrReservationExists) {
		existing, getErr := s.reservations.Get(ctx, transactionID)
		if getErr != nil {
			return nil, fmt.Errorf("load existing reservation: %w", getErr)
		}
		if existing == nil {
			// The record vanished between the conditional create and the
			// read. Leave the message uncommitted and let redelivery retry.
			return nil, fmt.Errorf("reservation %s exists but could not be loaded", transactionID)
		}
		if existing.Status.Resolved() {
			s.logger.Info("reservation already resolved, returning recorded outcome",
				zap.String("transaction_id", transactionID),
				zap.String("status", string(existing.Status)))
			return existing, nil
		}
		// A previous attempt crashed mid-reservation. Its record lists
		// exactly what was decremented; undo that and start over.
		if rbErr := s.rollback(ctx, existing); rbErr != nil {
			return nil, fmt.Errorf("rollback stale reservation: %w", rbErr)
		}
		res = existing
		res.ReservedItems = nil
		res.Items = items
	} else if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	for _, item := range items {
		if err := s.inventory.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrNotFound) {
				if rbErr := s.rollback(ctx, res); rbErr != nil {
					return nil, fmt.Errorf("rollback after shortfall: %w", rbErr)
				}
				res.ReservedItems = nil
				res.Status = models.ReservationFailed
				res.Reason = fmt.Sprintf("insufficient stock for product %s", item.ProductID)
				if saveErr := s.reservations.Save(ctx, res); saveErr != nil {
					return nil, fmt.Errorf("record failed reservation: %w", saveErr)
				}
				return res, nil
			}
			return nil, fmt.Errorf("reserve product %s: %w", item.ProductID, err)
		}

		res.ReservedItems = append(res.ReservedItems, models.ReservedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
		// Persist progress so a crash here is recoverable decrement by
		// decrement.
		if err := s.reservations.Save(ctx, res); err != nil {
			return nil, fmt.Errorf("record reservation progress: %w", err)
		}
	}

	res.Status = models.ReservationReserved
	res.OrderID = uuid.NewString()
	if err := s.reservations.Save(ctx, res); err != nil {
		return nil, fmt.Errorf("record reserved outcome: %w", err)
	}

	s.logger.Info("stock reserved",
		zap.String("transaction_id", transactionID),
		zap.String("order_id", res.OrderID),
		zap.Int("items", len(res.ReservedItems)))
	return res, nil
}

// Release restores exactly the quantities reserved under the transaction.
// Unknown or already-released transactions are a no-op, which makes
// redelivered release commands safe.
func (s *ReservationService) Release(ctx context.Context, transactionID string) error {
	res, err := s.reservations.Get(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load reservation: %w", err)
	}
	if res == nil {
		s.logger.Warn("release for unknown transaction, nothing reserved",
			zap.String("transaction_id", transactionID))
		return nil
	}

	switch res.Status {
	case models.ReservationReserved, models.ReservationPending:
		if err := s.rollback(ctx, res); err != nil {
			return fmt.Errorf("release reserved stock: %w", err)
		}
		res.ReservedItems = nil
		res.Status = models.ReservationReleased
		if err := s.reservations.Save(ctx, res); err != nil {
			return fmt.Errorf("record release: %w", err)
		}
		s.logger.Info("reservation released", zap.String("transaction_id", transactionID))
		return nil
	case models.ReservationReleased, models.ReservationFailed:
		return nil
	case models.ReservationConfirmed:
		// Completed sagas are never compensated; a stray release after
		// completion would corrupt stock.
		s.logger.Warn("ignoring release for confirmed reservation",
			zap.String("transaction_id", transactionID))
		return nil
	default:
		return fmt.Errorf("reservation %s in unknown status %q", transactionID, res.Status)
	}
}

// Confirm permanently deducts the reserved quantities once the saga
// completes. Idempotent: only a RESERVED record moves.
func (s *ReservationService) Confirm(ctx context.Context, transactionID string) error {
	res, err := s.reservations.Get(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load reservation: %w", err)
	}
	if res == nil || res.Status != models.ReservationReserved {
		return nil
	}

	for _, item := range res.ReservedItems {
		if err := s.inventory.Confirm(ctx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("confirm product %s: %w", item.ProductID, err)
		}
	}

	res.Status = models.ReservationConfirmed
	if err := s.reservations.Save(ctx, res); err != nil {
		return fmt.Errorf("record confirmation: %w", err)
	}
	s.logger.Info("reservation confirmed", zap.String("transaction_id", transactionID))
	return nil
}

// rollback returns every decrement listed on the record to available stock.
func (s *ReservationService) rollback(ctx context.Context, res *models.Reservation) error {
	for _, item := range res.ReservedItems {
		if err := s.inventory.Release(ctx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("release product %s: %w", item.ProductID, err)
		}
	}
	return nil
}
