// internal/domain/payment/stripe_gateway.go
package payment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/your-org/storefront-backend/internal/config"
)

// StripeGateway talks to Stripe's PaymentIntents API.
type StripeGateway struct {
	currency string
	logger   *logrus.Logger
}

// NewStripeGateway creates a Stripe-backed gateway. The secret key is set
// globally, matching how the stripe-go client is intended to be used.
func NewStripeGateway(cfg *config.StripeConfig, logger *logrus.Logger) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	stripe.Key = cfg.SecretKey

	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}

	return &StripeGateway{
		currency: currency,
		logger:   logger,
	}, nil
}

// CreateIntent creates a payment intent for the given amount in minor
// units (cents). Redirect-based payment methods are disabled so the
// intent can be confirmed server-side.
func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	if currency == "" {
		currency = g.currency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String(string(stripe.PaymentIntentAutomaticPaymentMethodsAllowRedirectsNever)),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"payment_intent_id": pi.ID,
		"amount":            amount,
		"currency":          currency,
	}).Info("Payment intent created")

	return fromStripe(pi), nil
}

// RetrieveIntent fetches the current state of a payment intent.
func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", id, err)
	}

	return fromStripe(pi), nil
}

// ConfirmIntent confirms a payment intent with the given payment method.
// Used by the test-only payment simulation endpoint.
func (g *StripeGateway) ConfirmIntent(ctx context.Context, id, paymentMethod string) (*Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethod),
	}
	params.Context = ctx

	pi, err := paymentintent.Confirm(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment intent %s: %w", id, err)
	}

	g.logger.WithFields(logrus.Fields{
		"payment_intent_id": pi.ID,
		"status":            pi.Status,
	}).Info("Payment intent confirmed")

	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}
}
