package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"qyzmetBack/internal/payments"
	"qyzmetBack/internal/services"
)

// PaymentWebhookHandler receives the rail's asynchronous payment outcomes.
// Invoice payment is only ever confirmed here. The rail retries on non-2xx, so
// processing failures return 500 and duplicates are absorbed downstream.
type PaymentWebhookHandler struct {
	Invoices      *services.InvoiceService
	WebhookSecret string
	Logger        *slog.Logger
}

func (h *PaymentWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, "Cannot read body", http.StatusBadRequest)
		return
	}
	event, err := payments.ParseWebhook(payload, r.Header.Get("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		if event.InvoiceID == 0 {
			// Visit-fee captures also succeed through here; they carry job
			// metadata only and need no action.
			break
		}
		if err := h.Invoices.ConfirmPaid(r.Context(), event.InvoiceID, event.PaymentRef); err != nil {
			h.logger().Error("failed to confirm invoice payment",
				"invoice_id", event.InvoiceID, "ref", event.PaymentRef, "err", err)
			http.Error(w, "Processing failed", http.StatusInternalServerError)
			return
		}
	default:
		// Acknowledged and ignored.
	}

	w.WriteHeader(http.StatusOK)
}

func (h *PaymentWebhookHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
