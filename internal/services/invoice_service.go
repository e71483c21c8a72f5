package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"qyzmetBack/internal/lifecycle"
	"qyzmetBack/internal/models"
	"qyzmetBack/internal/payments"
)

// InvoiceService handles the provider's quote and the client's payment of it.
// The money itself is an auto-capture charge at the rail; the invoice flips to
// paid only on the rail's webhook, never optimistically.
type InvoiceService struct {
	Jobs     JobStore
	Invoices InvoiceStore
	Billing  BillingStore
	Users    UserStore
	Outbox   OutboxStore
	Rail     payments.Rail
	Logger   *slog.Logger

	// CommissionRate is the platform's cut added on top of the provider's
	// subtotal, e.g. 0.10 for ten percent.
	CommissionRate float64
}

// Create issues an invoice for a job. The provider states what the customer
// pays in total; the provider subtotal is derived by stripping the commission.
func (s *InvoiceService) Create(ctx context.Context, actor Actor, req models.CreateInvoiceRequest) (models.Invoice, error) {
	if actor.ID == 0 {
		return models.Invoice{}, models.ErrNotAuthenticated
	}
	if req.TotalCustomerAmount <= 0 {
		return models.Invoice{}, fmt.Errorf("invoice amount must be positive")
	}
	job, err := s.Jobs.GetByID(ctx, req.JobID)
	if err != nil {
		return models.Invoice{}, err
	}
	if job.ProviderID == nil || *job.ProviderID != actor.ID {
		return models.Invoice{}, models.ErrNotOwner
	}
	if lifecycle.IsTerminal(job.Status) {
		return models.Invoice{}, models.ErrInvalidTransition
	}
	if _, err := s.Invoices.GetByJobAndStatuses(ctx, job.ID,
		models.InvoiceStatusPendingPayment,
		models.InvoiceStatusPaid,
		models.InvoiceStatusReadyToRelease,
		models.InvoiceStatusReleased,
	); err == nil {
		return models.Invoice{}, models.ErrInvoiceImmutable
	} else if err != models.ErrInvoiceNotFound {
		return models.Invoice{}, err
	}

	subtotal := req.TotalCustomerAmount / (1 + s.CommissionRate)
	inv := models.Invoice{
		JobID:               job.ID,
		ProviderID:          actor.ID,
		SubtotalProvider:    subtotal,
		TotalCustomerAmount: req.TotalCustomerAmount,
		Status:              models.InvoiceStatusPendingPayment,
	}
	return s.Invoices.Create(ctx, inv)
}

func (s *InvoiceService) Get(ctx context.Context, invoiceID int, actor Actor) (models.Invoice, error) {
	inv, err := s.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return models.Invoice{}, err
	}
	job, err := s.Jobs.GetByID(ctx, inv.JobID)
	if err != nil {
		return models.Invoice{}, err
	}
	if job.ClientID != actor.ID && inv.ProviderID != actor.ID && actor.Role != models.RoleAdmin {
		return models.Invoice{}, models.ErrNotOwner
	}
	return inv, nil
}

// Pay starts the client's payment of a pending invoice and returns the rail
// continuation. Safe to call again while the payment is in flight: the
// idempotency key pins the same rail object.
func (s *InvoiceService) Pay(ctx context.Context, invoiceID int, actor Actor) (payments.Payment, error) {
	if actor.ID == 0 {
		return payments.Payment{}, models.ErrNotAuthenticated
	}
	inv, err := s.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return payments.Payment{}, err
	}
	job, err := s.Jobs.GetByID(ctx, inv.JobID)
	if err != nil {
		return payments.Payment{}, err
	}
	if job.ClientID != actor.ID {
		return payments.Payment{}, models.ErrNotOwner
	}
	if inv.Status != models.InvoiceStatusPendingPayment {
		return payments.Payment{}, models.ErrInvoiceImmutable
	}

	customerRef, err := s.ensureCustomer(ctx, job.ClientID)
	if err != nil {
		return payments.Payment{}, err
	}
	return s.Rail.CreatePayment(ctx, payments.CreatePaymentParams{
		Amount:      inv.TotalCustomerAmount,
		CustomerRef: customerRef,
		Description: fmt.Sprintf("Invoice #%d for job #%d", inv.ID, job.ID),
		Metadata: map[string]string{
			"invoice_id": strconv.Itoa(inv.ID),
			"job_id":     strconv.Itoa(job.ID),
		},
		IdempotencyKey: fmt.Sprintf("invoice-payment-%d", inv.ID),
	})
}

// ConfirmPaid marks the invoice paid on the strength of a rail webhook. The
// guarded write makes duplicate webhook deliveries harmless.
func (s *InvoiceService) ConfirmPaid(ctx context.Context, invoiceID int, paymentRef string) error {
	marked, err := s.Invoices.MarkPaid(ctx, invoiceID, paymentRef)
	if err != nil {
		return err
	}
	if !marked {
		return nil
	}

	inv, err := s.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	job, err := s.Jobs.GetByID(ctx, inv.JobID)
	if err != nil {
		return err
	}
	if s.Outbox != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"invoice_id": inv.ID,
			"amount":     inv.TotalCustomerAmount,
		})
		ev := models.OutboxEvent{
			JobID:       job.ID,
			Kind:        models.OutboxInvoicePaid,
			RecipientID: inv.ProviderID,
			ActorID:     job.ClientID,
			Payload:     payload,
		}
		if err := s.Outbox.Insert(ctx, ev); err != nil {
			s.logger().Error("failed to record invoice paid event", "invoice_id", inv.ID, "err", err)
		}
	}
	return nil
}

func (s *InvoiceService) ensureCustomer(ctx context.Context, userID int) (string, error) {
	ref, err := s.Billing.GetCustomerRef(ctx, userID)
	if err != nil {
		return "", err
	}
	if ref != "" {
		return ref, nil
	}
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	ref, err = s.Rail.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return "", err
	}
	if err := s.Billing.SaveCustomerRef(ctx, userID, ref); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *InvoiceService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
