package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"qyzmetBack/internal/lifecycle"
	"qyzmetBack/internal/models"
)

func TestCreateInvoiceDerivesProviderSubtotal(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	provider := Actor{ID: 2, Role: models.RoleProvider}
	job := fx.seedJob(1, intPtr(2), lifecycle.StatusInProgress, 0)

	inv, err := fx.invoice.Create(ctx, provider, models.CreateInvoiceRequest{JobID: job.ID, TotalCustomerAmount: 1100})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if inv.Status != models.InvoiceStatusPendingPayment {
		t.Fatalf("status = %s, want pending_payment", inv.Status)
	}
	// 10% commission on top of the provider subtotal: 1000 * 1.1 = 1100.
	if math.Abs(inv.SubtotalProvider-1000) > 0.01 {
		t.Fatalf("subtotal = %v, want 1000", inv.SubtotalProvider)
	}
}

func TestCreateInvoiceOnlyByBoundProvider(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	job := fx.seedJob(1, intPtr(2), lifecycle.StatusInProgress, 0)

	req := models.CreateInvoiceRequest{JobID: job.ID, TotalCustomerAmount: 1100}
	if _, err := fx.invoice.Create(ctx, Actor{ID: 1, Role: models.RoleClient}, req); !errors.Is(err, models.ErrNotOwner) {
		t.Fatalf("client invoicing: err = %v, want ErrNotOwner", err)
	}
	if _, err := fx.invoice.Create(ctx, Actor{ID: 7, Role: models.RoleProvider}, req); !errors.Is(err, models.ErrNotOwner) {
		t.Fatalf("other provider invoicing: err = %v, want ErrNotOwner", err)
	}
}

func TestCreateInvoiceRejectsSecondOpenInvoice(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	provider := Actor{ID: 2, Role: models.RoleProvider}
	job := fx.seedJob(1, intPtr(2), lifecycle.StatusInProgress, 0)
	fx.seedInvoice(job.ID, 2, models.InvoiceStatusPendingPayment, 1000, 1100)

	if _, err := fx.invoice.Create(ctx, provider, models.CreateInvoiceRequest{JobID: job.ID, TotalCustomerAmount: 500}); !errors.Is(err, models.ErrInvoiceImmutable) {
		t.Fatalf("second invoice: err = %v, want ErrInvoiceImmutable", err)
	}
}

func TestPayInvoice(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	client := Actor{ID: 1, Role: models.RoleClient}
	fx.seedUser(1, models.RoleClient)
	job := fx.seedJob(1, intPtr(2), lifecycle.StatusInProgress, 0)
	inv := fx.seedInvoice(job.ID, 2, models.InvoiceStatusPendingPayment, 1000, 1100)

	payment, err := fx.invoice.Pay(ctx, inv.ID, client)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if payment.Ref == "" || payment.ClientSecret == "" {
		t.Fatalf("missing payment continuation: %+v", payment)
	}

	// Payment success arrives over the webhook, not on the pay call.
	if got := fx.invoiceByID(inv.ID).Status; got != models.InvoiceStatusPendingPayment {
		t.Fatalf("status after pay call = %s, want pending_payment", got)
	}

	if _, err := fx.invoice.Pay(ctx, inv.ID, Actor{ID: 2, Role: models.RoleProvider}); !errors.Is(err, models.ErrNotOwner) {
		t.Fatalf("provider paying: err = %v, want ErrNotOwner", err)
	}
}

func TestConfirmPaidIsIdempotent(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	job := fx.seedJob(1, intPtr(2), lifecycle.StatusInProgress, 0)
	inv := fx.seedInvoice(job.ID, 2, models.InvoiceStatusPendingPayment, 1000, 1100)

	if err := fx.invoice.ConfirmPaid(ctx, inv.ID, "pay_1"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if err := fx.invoice.ConfirmPaid(ctx, inv.ID, "pay_1"); err != nil {
		t.Fatalf("duplicate confirm: %v", err)
	}

	got := fx.invoiceByID(inv.ID)
	if got.Status != models.InvoiceStatusPaid || got.PaymentRef == nil {
		t.Fatalf("invoice = %+v, want paid with reference", got)
	}
	if events := fx.store.eventsOfKind(models.OutboxInvoicePaid); len(events) != 1 {
		t.Fatalf("invoice_paid events = %d, want 1", len(events))
	}
}

func TestPayReleasedInvoiceFails(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	client := Actor{ID: 1, Role: models.RoleClient}
	fx.seedUser(1, models.RoleClient)
	job := fx.seedJob(1, intPtr(2), lifecycle.StatusCompleted, 0)
	inv := fx.seedInvoice(job.ID, 2, models.InvoiceStatusReleased, 1000, 1100)

	if _, err := fx.invoice.Pay(ctx, inv.ID, client); !errors.Is(err, models.ErrInvoiceImmutable) {
		t.Fatalf("paying released invoice: err = %v, want ErrInvoiceImmutable", err)
	}
}
