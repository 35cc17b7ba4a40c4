package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"checkout-backend/services/cart-service/database"
	"checkout-backend/services/cart-service/models"
	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/contracts"
)

type capturingPublisher struct {
	events []contracts.Event
	topics []string
	fail   error
}

func (c *capturingPublisher) Publish(_ context.Context, topic string, e contracts.Event) error {
	if c.fail != nil {
		return c.fail
	}
	c.topics = append(c.topics, topic)
	c.events = append(c.events, e)
	return nil
}

func setupRepo(t *testing.T) *database.CartRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return database.NewCartRepository(client, time.Hour, time.Hour)
}

func storedCart(t *testing.T, repo *database.CartRepository, userID string) *models.Cart {
	t.Helper()
	cart := &models.Cart{
		UserID: userID,
		Items: []models.CartItem{
			{ProductID: "p1", Name: "Desk Lamp", Color: "black", Quantity: 2, UnitPrice: decimal.NewFromInt(1000)},
			{ProductID: "p2", Name: "Notebook", Quantity: 5, UnitPrice: decimal.NewFromFloat(49.50)},
		},
	}
	require.NoError(t, repo.SaveCart(context.Background(), cart))
	return cart
}

func checkoutReq(products ...models.SelectedItem) *models.CheckoutRequest {
	return &models.CheckoutRequest{
		SelectedItems: products,
		ShippingAddr:  "1 Main St",
		PaymentMethod: contracts.PaymentMethodCard,
	}
}

func TestInitiateCheckoutEmitsSnapshot(t *testing.T) {
	repo := setupRepo(t)
	storedCart(t, repo, "user-1")
	pub := &capturingPublisher{}
	initiator := NewCheckoutInitiator(repo, pub, zap.NewNop())

	txID, err := initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p1", Quantity: 2}))
	require.NoError(t, err)
	require.NotEmpty(t, txID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, contracts.TopicCheckoutInitiated, pub.topics[0])
	evt := pub.events[0].(*contracts.CheckoutInitiated)
	assert.Equal(t, txID, evt.TransactionID)
	assert.Equal(t, "1 Main St", evt.ShippingAddress)
	require.Len(t, evt.Items, 1)
	// Price comes from the stored cart snapshot, never from the request.
	assert.True(t, evt.Items[0].UnitPrice.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "Desk Lamp", evt.Items[0].Name)

	pending, err := repo.GetPending(context.Background(), "user-1", txID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, txID, pending.TransactionID)
	assert.Equal(t, []string{"p1"}, pending.ProductIDs)
}

func TestInitiateCheckoutRejectsMissingCart(t *testing.T) {
	repo := setupRepo(t)
	pub := &capturingPublisher{}
	initiator := NewCheckoutInitiator(repo, pub, zap.NewNop())

	_, err := initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p1", Quantity: 1}))
	assert.True(t, errors.Is(err, apperrors.ErrCartNotFound))
	assert.Empty(t, pub.events, "no event on validation failure")
}

func TestInitiateCheckoutRejectsUnknownItem(t *testing.T) {
	repo := setupRepo(t)
	storedCart(t, repo, "user-1")
	pub := &capturingPublisher{}
	initiator := NewCheckoutInitiator(repo, pub, zap.NewNop())

	_, err := initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p9", Quantity: 1}))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidItem))
	assert.Empty(t, pub.events)
}

func TestInitiateCheckoutRejectsExcessQuantity(t *testing.T) {
	repo := setupRepo(t)
	storedCart(t, repo, "user-1")
	pub := &capturingPublisher{}
	initiator := NewCheckoutInitiator(repo, pub, zap.NewNop())

	_, err := initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p1", Quantity: 99}))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidItem))
	assert.Empty(t, pub.events)
}

func TestInitiateCheckoutRejectsBadPaymentMethod(t *testing.T) {
	repo := setupRepo(t)
	storedCart(t, repo, "user-1")
	pub := &capturingPublisher{}
	initiator := NewCheckoutInitiator(repo, pub, zap.NewNop())

	req := checkoutReq(models.SelectedItem{ProductID: "p1", Quantity: 1})
	req.PaymentMethod = "BARTER"
	_, err := initiator.InitiateCheckout(context.Background(), "user-1", req)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Empty(t, pub.events)
}

func TestInitiateCheckoutBlocksDoubleSpend(t *testing.T) {
	repo := setupRepo(t)
	storedCart(t, repo, "user-1")
	pub := &capturingPublisher{}
	initiator := NewCheckoutInitiator(repo, pub, zap.NewNop())

	first, err := initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	// Same item again while the first saga is in flight.
	_, err = initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p1", Quantity: 1}))
	assert.True(t, errors.Is(err, apperrors.ErrCheckoutInFlight))
	assert.Len(t, pub.events, 1)

	// A disjoint item set is a fresh checkout, not a retry.
	second, err := initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p2", Quantity: 1}))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Both sagas are now in flight; each keeps its own marker, so the items
	// of the first stay blocked even after the second started.
	_, err = initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p1", Quantity: 1}))
	assert.True(t, errors.Is(err, apperrors.ErrCheckoutInFlight),
		"first saga's items still spoken for")
	_, err = initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p2", Quantity: 1}))
	assert.True(t, errors.Is(err, apperrors.ErrCheckoutInFlight))
	assert.Len(t, pub.events, 2, "only the two distinct checkouts emitted")

	markers, err := repo.ListPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, markers, 2)
}

func TestInitiateCheckoutClearsMarkerOnPublishFailure(t *testing.T) {
	repo := setupRepo(t)
	storedCart(t, repo, "user-1")
	pub := &capturingPublisher{fail: errors.New("broker down")}
	initiator := NewCheckoutInitiator(repo, pub, zap.NewNop())

	_, err := initiator.InitiateCheckout(context.Background(), "user-1",
		checkoutReq(models.SelectedItem{ProductID: "p1", Quantity: 1}))
	require.Error(t, err)

	markers, err := repo.ListPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, markers, "marker released when the saga never started")
}
