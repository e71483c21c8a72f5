package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeConfig struct {
	SecretKey string
	Currency  string
	Logger    *slog.Logger

	// Backends override is used by tests to point the client at a local server.
	Backends *stripe.Backends
}

// StripeRail implements Rail on Stripe: manual-capture PaymentIntents back the
// visit-fee holds, ordinary PaymentIntents back invoice payments, and Transfers
// move released funds to the provider's connected account.
type StripeRail struct {
	api      *client.API
	currency string
	logger   *slog.Logger
}

func NewStripeRail(cfg StripeConfig) (*StripeRail, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("stripe: secret key is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "kzt"
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, cfg.Backends)
	return &StripeRail{api: api, currency: currency, logger: logger}, nil
}

func (s *StripeRail) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	c, err := s.api.Customers.New(params)
	if err != nil {
		return "", s.wrap("create_customer", err)
	}
	return c.ID, nil
}

func (s *StripeRail) CreateHold(ctx context.Context, p CreateHoldParams) (Hold, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(minorUnits(p.Amount)),
		Currency:      stripe.String(s.currencyOr(p.Currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.CustomerRef != "" {
		params.Customer = stripe.String(p.CustomerRef)
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Hold{}, s.wrap("create_hold", err)
	}
	s.logger.Info("stripe hold created", "ref", pi.ID, "state", pi.Status)
	return holdFromIntent(pi), nil
}

func (s *StripeRail) RetrieveHold(ctx context.Context, ref string) (Hold, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(ref, params)
	if err != nil {
		return Hold{}, s.wrap("retrieve_hold", err)
	}
	return holdFromIntent(pi), nil
}

func (s *StripeRail) CaptureHold(ctx context.Context, ref string, idempotencyKey string) (Hold, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	pi, err := s.api.PaymentIntents.Capture(ref, params)
	if err != nil {
		return Hold{}, s.wrap("capture_hold", err)
	}
	s.logger.Info("stripe hold captured", "ref", pi.ID, "state", pi.Status)
	return holdFromIntent(pi), nil
}

func (s *StripeRail) CancelHold(ctx context.Context, ref string, idempotencyKey string) (Hold, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	pi, err := s.api.PaymentIntents.Cancel(ref, params)
	if err != nil {
		return Hold{}, s.wrap("cancel_hold", err)
	}
	s.logger.Info("stripe hold canceled", "ref", pi.ID, "state", pi.Status)
	return holdFromIntent(pi), nil
}

func (s *StripeRail) CreatePayment(ctx context.Context, p CreatePaymentParams) (Payment, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(p.Amount)),
		Currency: stripe.String(s.currencyOr(p.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.CustomerRef != "" {
		params.Customer = stripe.String(p.CustomerRef)
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Payment{}, s.wrap("create_payment", err)
	}
	return Payment{Ref: pi.ID, State: HoldState(pi.Status), ClientSecret: pi.ClientSecret}, nil
}

func (s *StripeRail) CreateTransfer(ctx context.Context, p CreateTransferParams) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(minorUnits(p.Amount)),
		Currency:    stripe.String(s.currencyOr(p.Currency)),
		Destination: stripe.String(p.DestinationRef),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	tr, err := s.api.Transfers.New(params)
	if err != nil {
		return "", s.wrap("create_transfer", err)
	}
	s.logger.Info("stripe transfer created", "ref", tr.ID, "destination", p.DestinationRef)
	return tr.ID, nil
}

func (s *StripeRail) wrap(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		re := &RailError{
			Op:         op,
			Code:       string(stripeErr.Code),
			HTTPStatus: stripeErr.HTTPStatusCode,
			Message:    stripeErr.Msg,
		}
		s.logger.Error("stripe call failed", "op", op, "code", re.Code, "status", re.HTTPStatus)
		return re
	}
	s.logger.Error("stripe call failed", "op", op, "err", err)
	return &RailError{Op: op, Code: "network", Message: err.Error()}
}

func (s *StripeRail) currencyOr(c string) string {
	if c != "" {
		return strings.ToLower(c)
	}
	return s.currency
}

func holdFromIntent(pi *stripe.PaymentIntent) Hold {
	return Hold{
		Ref:          pi.ID,
		State:        HoldState(pi.Status),
		ClientSecret: pi.ClientSecret,
		Amount:       float64(pi.Amount) / 100,
		Currency:     string(pi.Currency),
	}
}

func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
