package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"checkout-backend/services/contracts"
	"checkout-backend/services/payment-service/models"
	"checkout-backend/services/payment-service/repository"
)

// ---- in-memory payment repo ----

type fakePaymentRepo struct {
	byTx map[string]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byTx: make(map[string]*models.Payment)}
}

func (f *fakePaymentRepo) Create(_ context.Context, payment *models.Payment) error {
	if _, ok := f.byTx[payment.TransactionID]; ok {
		return repository.ErrPaymentExists
	}
	cp := *payment
	f.byTx[payment.TransactionID] = &cp
	return nil
}

func (f *fakePaymentRepo) Update(_ context.Context, payment *models.Payment) error {
	cp := *payment
	f.byTx[payment.TransactionID] = &cp
	return nil
}

func (f *fakePaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	p, ok := f.byTx[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	for _, p := range f.byTx {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// ---- scripted gateway ----

type fakeGateway struct {
	calls   int
	decline bool
	reason  string
	err     error
}

func (f *fakeGateway) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	f.calls++
	if f.err != nil {
		return ChargeResult{}, f.err
	}
	if f.decline {
		return ChargeResult{Declined: true, Reason: f.reason}, nil
	}
	return ChargeResult{ProviderRef: "pi_" + req.TransactionID}, nil
}

func paymentRequest(txID string, method contracts.PaymentMethod) *contracts.ProcessPaymentRequest {
	return &contracts.ProcessPaymentRequest{
		BaseEvent:     contracts.NewBase(contracts.EventProcessPaymentRequest, txID, "user-1"),
		OrderID:       uuid.NewString(),
		TotalAmount:   decimal.NewFromInt(2000),
		Currency:      "usd",
		PaymentMethod: method,
	}
}

func TestProcessChargesOnceAndRecordsSuccess(t *testing.T) {
	repo := newFakePaymentRepo()
	gateway := &fakeGateway{}
	svc := NewPaymentService(repo, gateway, zap.NewNop())

	req := paymentRequest("tx-1", contracts.PaymentMethodCard)
	payment, err := svc.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, contracts.PaymentStatusSuccess, payment.Status)
	assert.NotNil(t, payment.SucceededAt)
	require.NotNil(t, payment.GatewayRef)
	assert.Equal(t, "pi_tx-1", *payment.GatewayRef)
	assert.Equal(t, 1, gateway.calls)
}

func TestProcessDuplicateReturnsRecordedOutcome(t *testing.T) {
	repo := newFakePaymentRepo()
	gateway := &fakeGateway{}
	svc := NewPaymentService(repo, gateway, zap.NewNop())

	req := paymentRequest("tx-1", contracts.PaymentMethodCard)
	first, err := svc.Process(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, 1, gateway.calls, "terminal record must short-circuit the gateway")
}

func TestProcessRecordsDecline(t *testing.T) {
	repo := newFakePaymentRepo()
	gateway := &fakeGateway{decline: true, reason: "card declined"}
	svc := NewPaymentService(repo, gateway, zap.NewNop())

	payment, err := svc.Process(context.Background(), paymentRequest("tx-1", contracts.PaymentMethodCard))
	require.NoError(t, err)

	assert.Equal(t, contracts.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "card declined", payment.FailureReason)
	assert.NotNil(t, payment.FailedAt)

	// A terminal FAILED record is immutable: a retried request re-reads it.
	gateway.decline = false
	again, err := svc.Process(context.Background(), paymentRequest("tx-1", contracts.PaymentMethodCard))
	require.NoError(t, err)
	assert.Equal(t, contracts.PaymentStatusFailed, again.Status)
	assert.Equal(t, 1, gateway.calls)
}

func TestProcessTransportErrorLeavesPending(t *testing.T) {
	repo := newFakePaymentRepo()
	gateway := &fakeGateway{err: errors.New("gateway unreachable")}
	svc := NewPaymentService(repo, gateway, zap.NewNop())

	req := paymentRequest("tx-1", contracts.PaymentMethodCard)
	_, err := svc.Process(context.Background(), req)
	require.Error(t, err, "transport failure must force redelivery")
	assert.Equal(t, contracts.PaymentStatusPending, repo.byTx["tx-1"].Status)

	// Redelivery after the outage succeeds against the same record.
	gateway.err = nil
	payment, err := svc.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, contracts.PaymentStatusSuccess, payment.Status)
	assert.Equal(t, 2, gateway.calls)
}

func TestProcessCashOnDeliverySkipsGateway(t *testing.T) {
	repo := newFakePaymentRepo()
	gateway := &fakeGateway{}
	svc := NewPaymentService(repo, gateway, zap.NewNop())

	payment, err := svc.Process(context.Background(), paymentRequest("tx-1", contracts.PaymentMethodCOD))
	require.NoError(t, err)

	assert.Equal(t, contracts.PaymentStatusSuccess, payment.Status)
	assert.Nil(t, payment.GatewayRef)
	assert.Equal(t, 0, gateway.calls)
}

func TestSagaConsumerEmitsRecordedOutcome(t *testing.T) {
	repo := newFakePaymentRepo()
	gateway := &fakeGateway{decline: true, reason: "card declined"}
	svc := NewPaymentService(repo, gateway, zap.NewNop())
	pub := &capturingPublisher{}
	consumer := NewSagaConsumer(svc, pub, zap.NewNop())

	req := paymentRequest("tx-1", contracts.PaymentMethodCard)
	require.NoError(t, consumer.Handle(context.Background(), req))

	require.Len(t, pub.events, 1)
	assert.Equal(t, contracts.TopicPaymentEvents, pub.topics[0])
	failed := pub.events[0].(*contracts.PaymentFailed)
	assert.Equal(t, "card declined", failed.Reason)
	assert.Equal(t, req.OrderID, failed.OrderID)

	// Redelivered request re-emits the same outcome without re-charging.
	require.NoError(t, consumer.Handle(context.Background(), req))
	assert.Len(t, pub.events, 2)
	assert.IsType(t, &contracts.PaymentFailed{}, pub.events[1])
	assert.Equal(t, 1, gateway.calls)
}

type capturingPublisher struct {
	topics []string
	events []contracts.Event
}

func (c *capturingPublisher) Publish(_ context.Context, topic string, e contracts.Event) error {
	c.topics = append(c.topics, topic)
	c.events = append(c.events, e)
	return nil
}
