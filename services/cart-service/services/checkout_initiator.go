package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout-backend/services/cart-service/database"
	"checkout-backend/services/cart-service/models"
	"checkout-backend/services/common/bus"
	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/contracts"
)

// CheckoutInitiator validates a checkout request against the stored cart and
// starts a saga instance. Validation failures are rejected before anything is
// emitted, so there is never a partial saga to clean up.
type CheckoutInitiator struct {
	repo      *database.CartRepository
	publisher bus.EventPublisher
	logger    *zap.Logger
}

func NewCheckoutInitiator(repo *database.CartRepository, publisher bus.EventPublisher, logger *zap.Logger) *CheckoutInitiator {
	return &CheckoutInitiator{repo: repo, publisher: publisher, logger: logger}
}

// InitiateCheckout mints a transaction id, persists the pending checkout
// marker and emits CheckoutInitiated. The returned id is the caller's only
// handle on the saga; its outcome arrives asynchronously.
func (s *CheckoutInitiator) InitiateCheckout(ctx context.Context, userID string, req *models.CheckoutRequest) (string, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return "", apperrors.ErrInternalServer.WithCause(fmt.Errorf("load cart: %w", err))
	}
	if cart == nil || len(cart.Items) == 0 {
		return "", apperrors.ErrCartNotFound
	}

	if !req.PaymentMethod.Valid() {
		return "", apperrors.ErrValidation.WithCause(fmt.Errorf("unknown payment method %q", req.PaymentMethod))
	}

	items := make([]contracts.LineItem, 0, len(req.SelectedItems))
	productIDs := make([]string, 0, len(req.SelectedItems))
	for _, sel := range req.SelectedItems {
		line := cart.Find(sel.ProductID)
		if line == nil {
			return "", apperrors.ErrInvalidItem.WithCause(fmt.Errorf("product %s not in cart", sel.ProductID))
		}
		if sel.Quantity > line.Quantity {
			return "", apperrors.ErrInvalidItem.WithCause(
				fmt.Errorf("product %s: requested %d, cart holds %d", sel.ProductID, sel.Quantity, line.Quantity))
		}
		items = append(items, contracts.LineItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Color:     line.Color,
			Quantity:  sel.Quantity,
			UnitPrice: line.UnitPrice,
		})
		productIDs = append(productIDs, sel.ProductID)
	}

	// Every in-flight transaction holds its own marker; any of them claiming
	// one of the selected items blocks this checkout.
	markers, err := s.repo.ListPending(ctx, userID)
	if err != nil {
		return "", apperrors.ErrInternalServer.WithCause(fmt.Errorf("load pending markers: %w", err))
	}
	for _, pending := range markers {
		if pending.Covers(productIDs) {
			return "", apperrors.ErrCheckoutInFlight
		}
	}

	// A genuinely new checkout always gets a new transaction id; retries of
	// an in-flight one are blocked above instead of re-keyed.
	transactionID := uuid.NewString()

	marker := &models.PendingCheckout{
		TransactionID: transactionID,
		UserID:        userID,
		ProductIDs:    productIDs,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.SetPending(ctx, marker); err != nil {
		return "", apperrors.ErrInternalServer.WithCause(fmt.Errorf("persist pending marker: %w", err))
	}

	event := &contracts.CheckoutInitiated{
		BaseEvent:       contracts.NewBase(contracts.EventCheckoutInitiated, transactionID, userID),
		Items:           items,
		ShippingAddress: req.ShippingAddr,
		PaymentMethod:   req.PaymentMethod,
	}
	if err := s.publisher.Publish(ctx, contracts.TopicCheckoutInitiated, event); err != nil {
		// The saga never started; release the marker so the items stay
		// orderable.
		if clearErr := s.repo.ClearPending(ctx, userID, transactionID); clearErr != nil {
			s.logger.Warn("failed to clear pending marker after publish failure",
				zap.String("transaction_id", transactionID), zap.Error(clearErr))
		}
		return "", apperrors.ErrInternalServer.WithCause(fmt.Errorf("publish checkout event: %w", err))
	}

	s.logger.Info("checkout initiated",
		zap.String("transaction_id", transactionID),
		zap.String("user_id", userID),
		zap.Int("items", len(items)))
	return transactionID, nil
}
