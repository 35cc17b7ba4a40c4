package contracts_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-backend/services/contracts"
)

func sampleItems() []contracts.LineItem {
	return []contracts.LineItem{
		{ProductID: "p1", Name: "Desk Lamp", Color: "black", Quantity: 2, UnitPrice: decimal.NewFromInt(1000)},
		{ProductID: "p2", Name: "Notebook", Color: "red", Quantity: 1, UnitPrice: decimal.NewFromFloat(49.50)},
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	evt := &contracts.CheckoutInitiated{
		BaseEvent:       contracts.NewBase(contracts.EventCheckoutInitiated, "tx-1", "user-1"),
		Items:           sampleItems(),
		ShippingAddress: "1 Main St",
		PaymentMethod:   contracts.PaymentMethodCard,
	}

	data, err := contracts.Marshal(evt)
	require.NoError(t, err)

	decoded, err := contracts.Decode(data)
	require.NoError(t, err)

	got, ok := decoded.(*contracts.CheckoutInitiated)
	require.True(t, ok, "decoded to %T", decoded)
	assert.Equal(t, "tx-1", got.TransactionID)
	assert.Equal(t, contracts.PaymentMethodCard, got.PaymentMethod)
	assert.Len(t, got.Items, 2)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(1000)))
}

func TestDecodeDispatchesEveryVariant(t *testing.T) {
	events := []contracts.Event{
		&contracts.CheckoutInitiated{BaseEvent: contracts.NewBase(contracts.EventCheckoutInitiated, "tx", "u")},
		&contracts.InventoryReserved{BaseEvent: contracts.NewBase(contracts.EventInventoryReserved, "tx", "u")},
		&contracts.InventoryReservationFailed{BaseEvent: contracts.NewBase(contracts.EventInventoryReservationFailed, "tx", "u")},
		&contracts.ProcessPaymentRequest{BaseEvent: contracts.NewBase(contracts.EventProcessPaymentRequest, "tx", "u")},
		&contracts.PaymentSucceeded{BaseEvent: contracts.NewBase(contracts.EventPaymentSucceeded, "tx", "u")},
		&contracts.PaymentFailed{BaseEvent: contracts.NewBase(contracts.EventPaymentFailed, "tx", "u")},
		&contracts.ReleaseInventory{BaseEvent: contracts.NewBase(contracts.EventReleaseInventory, "tx", "u")},
		&contracts.OrderCompleted{BaseEvent: contracts.NewBase(contracts.EventOrderCompleted, "tx", "u")},
		&contracts.CheckoutFailed{BaseEvent: contracts.NewBase(contracts.EventCheckoutFailed, "tx", "u")},
	}

	for _, evt := range events {
		data, err := contracts.Marshal(evt)
		require.NoError(t, err, "marshal %s", evt.Type())

		decoded, err := contracts.Decode(data)
		require.NoError(t, err, "decode %s", evt.Type())
		assert.Equal(t, evt.Type(), decoded.Type())
		assert.Equal(t, "tx", contracts.Key(decoded))
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := contracts.Decode([]byte(`{"type":"mystery_event","transaction_id":"tx"}`))
	assert.Error(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := contracts.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestMarshalRejectsMismatchedTag(t *testing.T) {
	evt := &contracts.OrderCompleted{
		BaseEvent: contracts.NewBase(contracts.EventCheckoutFailed, "tx", "u"),
	}
	_, err := contracts.Marshal(evt)
	assert.Error(t, err)
}

func TestLineItemTotals(t *testing.T) {
	items := sampleItems()
	assert.True(t, items[0].Subtotal().Equal(decimal.NewFromInt(2000)))
	assert.True(t, contracts.Total(items).Equal(decimal.NewFromFloat(2049.50)))
}

func TestNewBaseMintsUniqueEventIDs(t *testing.T) {
	a := contracts.NewBase(contracts.EventCheckoutInitiated, "tx", "u")
	b := contracts.NewBase(contracts.EventCheckoutInitiated, "tx", "u")
	assert.NotEqual(t, a.EventID, b.EventID)
	assert.Equal(t, a.TransactionID, b.TransactionID)
}
