package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType tags one variant of the closed saga event set.
type EventType string

const (
	EventCheckoutInitiated          EventType = "checkout_initiated"
	EventInventoryReserved          EventType = "inventory_reserved"
	EventInventoryReservationFailed EventType = "inventory_reservation_failed"
	EventProcessPaymentRequest      EventType = "process_payment_request"
	EventPaymentSucceeded           EventType = "payment_succeeded"
	EventPaymentFailed              EventType = "payment_failed"
	EventReleaseInventory           EventType = "release_inventory"
	EventOrderCompleted             EventType = "order_completed"
	EventCheckoutFailed             EventType = "checkout_failed"
)

// BaseEvent carries the fields every saga event shares. EventID is unique per
// emission and exists for tracing only; TransactionID is the idempotency and
// routing key: a redelivered event keeps its transaction id but may arrive
// under a fresh event id.
type BaseEvent struct {
	EventID       string    `json:"event_id"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
	EventType     EventType `json:"type"`
}

// Base returns the shared fields; it also lets concrete events satisfy Event
// by embedding.
func (b BaseEvent) Base() BaseEvent { return b }

// NewBase mints the shared fields for a fresh emission.
func NewBase(eventType EventType, transactionID, userID string) BaseEvent {
	return BaseEvent{
		EventID:       uuid.NewString(),
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
		EventType:     eventType,
	}
}

// Event is the closed set of saga event variants. New variants are a
// compile-time-checked addition: Decode and every consumer switch must be
// extended or the event cannot flow.
type Event interface {
	Type() EventType
	Base() BaseEvent
}

// Key returns the partition key for an event.
func Key(e Event) string { return e.Base().TransactionID }

// LineItem is a price-snapshotted cart line carried through the saga.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal returns quantity x unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Total sums the subtotals of a line item set.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// CheckoutInitiated starts a saga instance. Emitted once per user action by
// the cart service after validation; immutable thereafter.
type CheckoutInitiated struct {
	BaseEvent
	Items           []LineItem    `json:"items"`
	ShippingAddress string        `json:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
}

func (CheckoutInitiated) Type() EventType { return EventCheckoutInitiated }

// InventoryReserved reports an all-or-nothing reservation success. OrderID is
// minted by the inventory service and adopted by the order service. Shipping
// and payment details ride along from CheckoutInitiated so the order can be
// built without a second lookup.
type InventoryReserved struct {
	BaseEvent
	OrderID         string        `json:"order_id"`
	Items           []LineItem    `json:"items"`
	ShippingAddress string        `json:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
}

func (InventoryReserved) Type() EventType { return EventInventoryReserved }

// InventoryReservationFailed reports that at least one line item could not be
// reserved; any partial decrements were rolled back before emission.
type InventoryReservationFailed struct {
	BaseEvent
	Reason string `json:"reason"`
}

func (InventoryReservationFailed) Type() EventType { return EventInventoryReservationFailed }

// ProcessPaymentRequest commands the payment service to attempt a charge.
// Issued at most once per order; the payment service enforces idempotency on
// the transaction id.
type ProcessPaymentRequest struct {
	BaseEvent
	OrderID       string          `json:"order_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

func (ProcessPaymentRequest) Type() EventType { return EventProcessPaymentRequest }

// PaymentSucceeded reports a captured charge.
type PaymentSucceeded struct {
	BaseEvent
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (PaymentSucceeded) Type() EventType { return EventPaymentSucceeded }

// PaymentFailed reports a declined or errored charge. Reason is an opaque
// gateway string passed through to the terminal failure event.
type PaymentFailed struct {
	BaseEvent
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func (PaymentFailed) Type() EventType { return EventPaymentFailed }

// ReleaseInventory commands the inventory service to undo the reservation
// made under this transaction id. Safe to redeliver.
type ReleaseInventory struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

func (ReleaseInventory) Type() EventType { return EventReleaseInventory }

// OrderCompleted is the success terminal event. Items lists exactly the lines
// the cart service must remove.
type OrderCompleted struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	Items       []LineItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (OrderCompleted) Type() EventType { return EventOrderCompleted }

// CheckoutFailed is the failure terminal event. OrderID is empty when the
// saga failed before an order existed. Items lists the lines whose pending
// markers the cart service must release.
type CheckoutFailed struct {
	BaseEvent
	OrderID string     `json:"order_id,omitempty"`
	Reason  string     `json:"reason"`
	Items   []LineItem `json:"items,omitempty"`
}

func (CheckoutFailed) Type() EventType { return EventCheckoutFailed }

// Marshal encodes an event for the wire. The type tag inside BaseEvent must
// match the variant; NewBase guarantees that for events built through it.
func Marshal(e Event) ([]byte, error) {
	if e.Base().EventType != e.Type() {
		return nil, fmt.Errorf("event type tag %q does not match variant %q", e.Base().EventType, e.Type())
	}
	return json.Marshal(e)
}

// Decode turns a wire payload back into its concrete variant. Unknown type
// tags are an error, never silently skipped.
func Decode(data []byte) (Event, error) {
	var probe struct {
		EventType EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode event header: %w", err)
	}

	var e Event
	switch probe.EventType {
	case EventCheckoutInitiated:
		e = &CheckoutInitiated{}
	case EventInventoryReserved:
		e = &InventoryReserved{}
	case EventInventoryReservationFailed:
		e = &InventoryReservationFailed{}
	case EventProcessPaymentRequest:
		e = &ProcessPaymentRequest{}
	case EventPaymentSucceeded:
		e = &PaymentSucceeded{}
	case EventPaymentFailed:
		e = &PaymentFailed{}
	case EventReleaseInventory:
		e = &ReleaseInventory{}
	case EventOrderCompleted:
		e = &OrderCompleted{}
	case EventCheckoutFailed:
		e = &CheckoutFailed{}
	default:
		return nil, fmt.Errorf("unknown event type %q", probe.EventType)
	}

	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", probe.EventType, err)
	}
	return e, nil
}
