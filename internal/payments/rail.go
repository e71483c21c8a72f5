package payments

import (
	"context"
	"fmt"
	"strings"
)

// HoldState mirrors the rail-side lifecycle of an authorized amount.
type HoldState string

const (
	HoldRequiresPaymentMethod HoldState = "requires_payment_method"
	HoldRequiresConfirmation  HoldState = "requires_confirmation"
	HoldRequiresCapture       HoldState = "requires_capture"
	HoldProcessing            HoldState = "processing"
	HoldSucceeded             HoldState = "succeeded"
	HoldCanceled              HoldState = "canceled"
)

// Uncaptured reports whether the hold is authorized (or still being set up)
// and has not been settled or released yet.
func (s HoldState) Uncaptured() bool {
	switch s {
	case HoldRequiresPaymentMethod, HoldRequiresConfirmation, HoldRequiresCapture, HoldProcessing:
		return true
	}
	return false
}

// Hold is an authorized-but-not-settled amount at the rail. ClientSecret is the
// continuation the payer's client needs to complete authorization; it is only
// populated on creation and retrieval, never stored locally.
type Hold struct {
	Ref          string
	State        HoldState
	ClientSecret string
	Amount       float64
	Currency     string
}

// Payment is an auto-capture charge, used for invoice payment.
type Payment struct {
	Ref          string
	State        HoldState
	ClientSecret string
}

type CreateHoldParams struct {
	Amount         float64
	Currency       string
	CustomerRef    string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type CreatePaymentParams struct {
	Amount         float64
	Currency       string
	CustomerRef    string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type CreateTransferParams struct {
	Amount         float64
	Currency       string
	DestinationRef string
	Metadata       map[string]string
	IdempotencyKey string
}

// Rail is the payment capability this system depends on: two-stage holds for
// the visit fee, auto-capture payments for invoices, and transfers to a
// payee's connected payout account. Implementations must honour the
// idempotency key on every create/capture/cancel call so a retried network
// request cannot duplicate an effect.
type Rail interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateHold(ctx context.Context, p CreateHoldParams) (Hold, error)
	RetrieveHold(ctx context.Context, ref string) (Hold, error)
	CaptureHold(ctx context.Context, ref string, idempotencyKey string) (Hold, error)
	CancelHold(ctx context.Context, ref string, idempotencyKey string) (Hold, error)
	CreatePayment(ctx context.Context, p CreatePaymentParams) (Payment, error)
	CreateTransfer(ctx context.Context, p CreateTransferParams) (string, error)
}

// RailError is a classified failure from the payment rail. Local state is never
// corrupted by one: callers either have written nothing yet, or fall back to a
// safe resting state.
type RailError struct {
	Op         string
	Code       string
	HTTPStatus int
	Message    string
}

func (e *RailError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("payment rail: %s failed (%s)", e.Op, e.Code)
	}
	return fmt.Sprintf("payment rail: %s failed (%s): %s", e.Op, e.Code, msg)
}
