package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

// ChargeRequest describes one charge attempt. TransactionID doubles as the
// provider-side idempotency key so a retried attempt can never charge twice.
type ChargeRequest struct {
	TransactionID string
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
}

// ChargeResult is the decided outcome of an attempt. Declined reports a
// terminal gateway refusal; transport problems surface as errors from Charge
// instead, so the caller can retry them.
type ChargeResult struct {
	ProviderRef string
	Declined    bool
	Reason      string
}

// PaymentGateway abstracts the charge provider.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// StripeGateway charges through Stripe payment intents.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount.Mul(decimal.NewFromInt(100)).IntPart()),
		Currency: stripe.String(req.Currency),
		Confirm:  stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
		Metadata: map[string]string{
			"transaction_id": req.TransactionID,
			"order_id":       req.OrderID,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.TransactionID)

	pi, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return ChargeResult{Declined: true, Reason: stripeErr.Msg}, nil
		}
		return ChargeResult{}, err
	}

	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		return ChargeResult{ProviderRef: pi.ID}, nil
	}
	return ChargeResult{
		ProviderRef: pi.ID,
		Declined:    true,
		Reason:      "payment not completed: " + string(pi.Status),
	}, nil
}
