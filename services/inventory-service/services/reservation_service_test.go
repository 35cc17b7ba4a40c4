package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"checkout-backend/services/contracts"
	"checkout-backend/services/inventory-service/models"
	"checkout-backend/services/inventory-service/repository"
)

// ---- in-memory inventory ----

type fakeInventoryRepo struct {
	stock map[string]*models.Inventory
}

func newFakeInventoryRepo(available map[string]int) *fakeInventoryRepo {
	stock := make(map[string]*models.Inventory, len(available))
	for id, qty := range available {
		stock[id] = &models.Inventory{ProductID: id, Available: qty}
	}
	return &fakeInventoryRepo{stock: stock}
}

func (f *fakeInventoryRepo) Get(_ context.Context, productID string) (*models.Inventory, error) {
	inv, ok := f.stock[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInventoryRepo) Set(_ context.Context, inv *models.Inventory) error {
	cp := *inv
	f.stock[inv.ProductID] = &cp
	return nil
}

func (f *fakeInventoryRepo) Reserve(_ context.Context, productID string, quantity int) error {
	inv, ok := f.stock[productID]
	if !ok {
		return repository.ErrNotFound
	}
	if inv.Available < quantity {
		return repository.ErrInsufficientStock
	}
	inv.Available -= quantity
	inv.Reserved += quantity
	return nil
}

func (f *fakeInventoryRepo) Release(_ context.Context, productID string, quantity int) error {
	inv, ok := f.stock[productID]
	if !ok {
		return repository.ErrNotFound
	}
	if inv.Reserved < quantity {
		return repository.ErrNothingReserved
	}
	inv.Reserved -= quantity
	inv.Available += quantity
	return nil
}

func (f *fakeInventoryRepo) Confirm(_ context.Context, productID string, quantity int) error {
	inv, ok := f.stock[productID]
	if !ok {
		return repository.ErrNotFound
	}
	if inv.Reserved < quantity {
		return repository.ErrNothingReserved
	}
	inv.Reserved -= quantity
	return nil
}

func (f *fakeInventoryRepo) CheckStock(_ context.Context, productID string, quantity int) (*models.StockCheckResult, error) {
	inv, ok := f.stock[productID]
	if !ok {
		return &models.StockCheckResult{ProductID: productID, Requested: quantity}, nil
	}
	return &models.StockCheckResult{
		ProductID:    productID,
		Requested:    quantity,
		Available:    inv.Available,
		IsSufficient: inv.Available >= quantity,
	}, nil
}

// ---- in-memory reservations ----

type fakeReservationRepo struct {
	records map[string]*models.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{records: make(map[string]*models.Reservation)}
}

func (f *fakeReservationRepo) Create(_ context.Context, res *models.Reservation) error {
	if _, ok := f.records[res.TransactionID]; ok {
		return repository.ErrReservationExists
	}
	cp := *res
	f.records[res.TransactionID] = &cp
	return nil
}

func (f *fakeReservationRepo) Get(_ context.Context, transactionID string) (*models.Reservation, error) {
	res, ok := f.records[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *res
	cp.ReservedItems = append([]models.ReservedItem(nil), res.ReservedItems...)
	return &cp, nil
}

func (f *fakeReservationRepo) Save(_ context.Context, res *models.Reservation) error {
	cp := *res
	cp.ReservedItems = append([]models.ReservedItem(nil), res.ReservedItems...)
	f.records[res.TransactionID] = &cp
	return nil
}

// ---- helpers ----

func checkoutEvent(txID string, items ...contracts.LineItem) *contracts.CheckoutInitiated {
	return &contracts.CheckoutInitiated{
		BaseEvent:       contracts.NewBase(contracts.EventCheckoutInitiated, txID, "user-1"),
		Items:           items,
		ShippingAddress: "1 Main St",
		PaymentMethod:   contracts.PaymentMethodCard,
	}
}

func line(productID string, qty int) contracts.LineItem {
	return contracts.LineItem{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: decimal.NewFromInt(1000),
	}
}

func TestReserveDecrementsEveryLine(t *testing.T) {
	inventory := newFakeInventoryRepo(map[string]int{"p1": 5, "p2": 3})
	reservations := newFakeReservationRepo()
	svc := NewReservationService(inventory, reservations, zap.NewNop())

	res, err := svc.Reserve(context.Background(), checkoutEvent("tx-1", line("p1", 2), line("p2", 1)))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationReserved, res.Status)
	assert.NotEmpty(t, res.OrderID)
	assert.Equal(t, "1 Main St", res.ShippingAddress)

	assert.Equal(t, 3, inventory.stock["p1"].Available)
	assert.Equal(t, 2, inventory.stock["p1"].Reserved)
	assert.Equal(t, 2, inventory.stock["p2"].Available)
	assert.Equal(t, 1, inventory.stock["p2"].Reserved)
}

func TestReserveShortfallRollsBackWholeSet(t *testing.T) {
	// p2 cannot cover the request, so the p1 decrement must be undone.
	inventory := newFakeInventoryRepo(map[string]int{"p1": 5, "p2": 1})
	reservations := newFakeReservationRepo()
	svc := NewReservationService(inventory, reservations, zap.NewNop())

	res, err := svc.Reserve(context.Background(), checkoutEvent("tx-1", line("p1", 2), line("p2", 2)))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationFailed, res.Status)
	assert.Contains(t, res.Reason, "p2")

	assert.Equal(t, 5, inventory.stock["p1"].Available)
	assert.Equal(t, 0, inventory.stock["p1"].Reserved)
	assert.Equal(t, 1, inventory.stock["p2"].Available)
	assert.Equal(t, 0, inventory.stock["p2"].Reserved)
}

func TestReserveRedeliveryDoesNotDoubleDecrement(t *testing.T) {
	inventory := newFakeInventoryRepo(map[string]int{"p1": 5})
	reservations := newFakeReservationRepo()
	svc := NewReservationService(inventory, reservations, zap.NewNop())

	evt := checkoutEvent("tx-1", line("p1", 2))
	first, err := svc.Reserve(context.Background(), evt)
	require.NoError(t, err)
	second, err := svc.Reserve(context.Background(), evt)
	require.NoError(t, err)

	assert.Equal(t, models.ReservationReserved, second.Status)
	assert.Equal(t, first.OrderID, second.OrderID, "redelivery must return the recorded outcome")
	assert.Equal(t, 3, inventory.stock["p1"].Available, "stock decremented exactly once")
	assert.Equal(t, 2, inventory.stock["p1"].Reserved)
}

func TestReserveRecoversFromCrashedAttempt(t *testing.T) {
	inventory := newFakeInventoryRepo(map[string]int{"p1": 5, "p2": 3})
	reservations := newFakeReservationRepo()
	svc := NewReservationService(inventory, reservations, zap.NewNop())

	// Simulate a crash after the p1 decrement: a PENDING record listing it,
	// with the stock decrement applied.
	require.NoError(t, inventory.Reserve(context.Background(), "p1", 2))
	require.NoError(t, reservations.Create(context.Background(), &models.Reservation{
		TransactionID: "tx-1",
		UserID:        "user-1",
		Status:        models.ReservationPending,
		Items:         []contracts.LineItem{line("p1", 2), line("p2", 1)},
		ReservedItems: []models.ReservedItem{{ProductID: "p1", Quantity: 2}},
	}))

	res, err := svc.Reserve(context.Background(), checkoutEvent("tx-1", line("p1", 2), line("p2", 1)))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationReserved, res.Status)

	// The stale decrement was rolled back and reapplied exactly once.
	assert.Equal(t, 3, inventory.stock["p1"].Available)
	assert.Equal(t, 2, inventory.stock["p1"].Reserved)
	assert.Equal(t, 2, inventory.stock["p2"].Available)
}

func TestReleaseRestoresReservedStock(t *testing.T) {
	inventory := newFakeInventoryRepo(map[string]int{"p1": 5})
	reservations := newFakeReservationRepo()
	svc := NewReservationService(inventory, reservations, zap.NewNop())

	_, err := svc.Reserve(context.Background(), checkoutEvent("tx-1", line("p1", 2)))
	require.NoError(t, err)

	require.NoError(t, svc.Release(context.Background(), "tx-1"))
	assert.Equal(t, 5, inventory.stock["p1"].Available, "stock back at pre-reservation level")
	assert.Equal(t, 0, inventory.stock["p1"].Reserved)
	assert.Equal(t, models.ReservationReleased, reservations.records["tx-1"].Status)

	// Redelivered release is a no-op.
	require.NoError(t, svc.Release(context.Background(), "tx-1"))
	assert.Equal(t, 5, inventory.stock["p1"].Available)
}

func TestReleaseUnknownTransactionIsNoop(t *testing.T) {
	inventory := newFakeInventoryRepo(map[string]int{"p1": 5})
	reservations := newFakeReservationRepo()
	svc := NewReservationService(inventory, reservations, zap.NewNop())

	require.NoError(t, svc.Release(context.Background(), "tx-unknown"))
	assert.Equal(t, 5, inventory.stock["p1"].Available)
}

func TestConfirmDeductsPermanently(t *testing.T) {
	inventory := newFakeInventoryRepo(map[string]int{"p1": 5})
	reservations := newFakeReservationRepo()
	svc := NewReservationService(inventory, reservations, zap.NewNop())

	_, err := svc.Reserve(context.Background(), checkoutEvent("tx-1", line("p1", 2)))
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(context.Background(), "tx-1"))
	assert.Equal(t, 3, inventory.stock["p1"].Available)
	assert.Equal(t, 0, inventory.stock["p1"].Reserved)
	assert.Equal(t, models.ReservationConfirmed, reservations.records["tx-1"].Status)

	// A stray release after confirmation must not corrupt stock.
	require.NoError(t, svc.Release(context.Background(), "tx-1"))
	assert.Equal(t, 3, inventory.stock["p1"].Available)

	// Duplicate confirm is a no-op.
	require.NoError(t, svc.Confirm(context.Background(), "tx-1"))
	assert.Equal(t, 3, inventory.stock["p1"].Available)
}

// vanishingReservationRepo reports an existing record on create but cannot
// produce it on read, the shape a mid-flight TTL expiry would take.
type vanishingReservationRepo struct {
	*fakeReservationRepo
}

func (f *vanishingReservationRepo) Create(context.Context, *models.Reservation) error {
	return repository.ErrReservationExists
}

func (f *vanishingReservationRepo) Get(context.Context, string) (*models.Reservation, error) {
	return nil, nil
}

func TestReserveVanishedRecordErrorsForRetry(t *testing.T) {
	inventory := newFakeInventoryRepo(map[string]int{"p1": 5})
	reservations := &vanishingReservationRepo{fakeReservationRepo: newFakeReservationRepo()}
	svc := NewReservationService(inventory, reservations, zap.NewNop())

	_, err := svc.Reserve(context.Background(), checkoutEvent("tx-1", line("p1", 2)))
	require.Error(t, err, "redelivery must retry instead of guessing an outcome")
	assert.Equal(t, 5, inventory.stock["p1"].Available, "no decrement without a record")
}
