package payments

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// PaymentEvent is the subset of a rail webhook this system reacts to.
type PaymentEvent struct {
	Type       string
	PaymentRef string
	InvoiceID  int
	JobID      int
}

// ParseWebhook verifies the rail's signature and extracts the payment
// reference plus the metadata written when the intent was created. Events this
// system does not care about come back with InvoiceID and JobID zero.
func ParseWebhook(payload []byte, sigHeader, secret string) (PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return PaymentEvent{}, fmt.Errorf("verify webhook: %w", err)
	}

	out := PaymentEvent{Type: string(event.Type)}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.canceled", "payment_intent.amount_capturable_updated":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return PaymentEvent{}, fmt.Errorf("decode webhook payment intent: %w", err)
		}
		out.PaymentRef = pi.ID
		if v, ok := pi.Metadata["invoice_id"]; ok {
			if id, err := strconv.Atoi(v); err == nil {
				out.InvoiceID = id
			}
		}
		if v, ok := pi.Metadata["job_id"]; ok {
			if id, err := strconv.Atoi(v); err == nil {
				out.JobID = id
			}
		}
	}
	return out, nil
}
