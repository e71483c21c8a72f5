package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/payments"
)

// PayoutService releases escrowed invoice money to the provider once the job
// is confirmed complete. Every step is conditional so the saga can be re-run
// from any point: the unique payout-per-invoice key, the transfer idempotency
// key, and the guarded status writes each absorb a repeat.
type PayoutService struct {
	Jobs     JobStore
	Invoices InvoiceStore
	Payouts  PayoutStore
	Billing  BillingStore
	Outbox   OutboxStore
	Rail     payments.Rail
	Receipts ReceiptArchiver
	Logger   *slog.Logger
}

// Release moves the job's escrowed invoice to the provider. A job with no
// releasable invoice is a no-op, not an error, so callers can fire it
// unconditionally after confirmation.
func (s *PayoutService) Release(ctx context.Context, jobID int) error {
	inv, err := s.Invoices.GetByJobAndStatuses(ctx, jobID,
		models.InvoiceStatusPaid,
		models.InvoiceStatusReadyToRelease,
	)
	if err != nil {
		if err == models.ErrInvoiceNotFound {
			return nil
		}
		return err
	}
	return s.releaseInvoice(ctx, inv)
}

// ReleaseInvoice releases one specific invoice, for the admin retry endpoint.
func (s *PayoutService) ReleaseInvoice(ctx context.Context, invoiceID int) error {
	inv, err := s.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	switch inv.Status {
	case models.InvoiceStatusPaid, models.InvoiceStatusReadyToRelease:
		return s.releaseInvoice(ctx, inv)
	case models.InvoiceStatusReleased:
		return nil
	default:
		return models.ErrInvoiceNotPaid
	}
}

// RetryReady sweeps invoices parked in ready_to_release and re-runs the saga
// on each. Used by the background retrier; per-invoice failures are logged and
// do not stop the sweep.
func (s *PayoutService) RetryReady(ctx context.Context, limit int) (int, error) {
	invoices, err := s.Invoices.ListReadyToRelease(ctx, limit)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, inv := range invoices {
		if err := s.releaseInvoice(ctx, inv); err != nil {
			s.logger().Error("payout retry failed", "invoice_id", inv.ID, "err", err)
			continue
		}
		released++
	}
	return released, nil
}

func (s *PayoutService) releaseInvoice(ctx context.Context, inv models.Invoice) error {
	account, err := s.Billing.GetPayoutAccount(ctx, inv.ProviderID)
	if err != nil {
		return err
	}
	if account.AccountRef == "" || !account.PayoutsEnabled {
		// Provider cannot receive money yet. Park the invoice so the retrier
		// picks it up once onboarding finishes.
		if _, err := s.Invoices.TransitionStatus(ctx, inv.ID,
			models.InvoiceStatusPaid, models.InvoiceStatusReadyToRelease); err != nil {
			return err
		}
		s.logger().Info("payout deferred, provider not onboarded",
			"invoice_id", inv.ID, "provider_id", inv.ProviderID)
		return nil
	}

	payout, err := s.Payouts.FindOrCreatePending(ctx, inv.ID, inv.ProviderID, inv.SubtotalProvider)
	if err != nil {
		s.park(ctx, inv.ID)
		return err
	}
	if payout.Status == models.PayoutStatusPaid {
		// Transfer already went out; make sure the invoice caught up.
		return s.finishInvoice(ctx, inv.ID)
	}

	transferRef, err := s.Rail.CreateTransfer(ctx, payments.CreateTransferParams{
		Amount:         payout.Amount,
		DestinationRef: account.AccountRef,
		Metadata: map[string]string{
			"payout_id":  strconv.Itoa(payout.ID),
			"invoice_id": strconv.Itoa(inv.ID),
			"job_id":     strconv.Itoa(inv.JobID),
		},
		IdempotencyKey: fmt.Sprintf("payout-%d", payout.ID),
	})
	if err != nil {
		if markErr := s.Payouts.MarkFailed(ctx, payout.ID, err.Error()); markErr != nil {
			s.logger().Error("failed to record payout failure", "payout_id", payout.ID, "err", markErr)
		}
		s.park(ctx, inv.ID)
		return err
	}

	marked, err := s.Payouts.MarkPaid(ctx, payout.ID, transferRef)
	if err != nil {
		// The transfer may already have gone out. Park the invoice so the
		// retrier re-runs the saga; the idempotent transfer key makes the
		// re-run converge instead of paying twice.
		s.park(ctx, inv.ID)
		return err
	}
	if marked {
		if err := s.Payouts.AppendLedger(ctx, models.LedgerEntry{
			PayoutID:    payout.ID,
			InvoiceID:   inv.ID,
			ProviderID:  inv.ProviderID,
			Amount:      payout.Amount,
			TransferRef: transferRef,
		}); err != nil {
			s.logger().Error("failed to append payout ledger entry", "payout_id", payout.ID, "err", err)
		}
		s.archiveReceipt(inv, payout, transferRef)
		s.announce(ctx, inv, payout, transferRef)
	}

	return s.finishInvoice(ctx, inv.ID)
}

// park demotes a paid invoice to ready_to_release so the retrier revisits it.
// An invoice must never rest in paid after a failed release attempt; nothing
// automatic sweeps that status.
func (s *PayoutService) park(ctx context.Context, invoiceID int) {
	if _, err := s.Invoices.TransitionStatus(ctx, invoiceID,
		models.InvoiceStatusPaid, models.InvoiceStatusReadyToRelease); err != nil {
		s.logger().Error("failed to park invoice for retry", "invoice_id", invoiceID, "err", err)
	}
}

// finishInvoice promotes the invoice to released from either resting state.
func (s *PayoutService) finishInvoice(ctx context.Context, invoiceID int) error {
	if ok, err := s.Invoices.TransitionStatus(ctx, invoiceID,
		models.InvoiceStatusPaid, models.InvoiceStatusReleased); err != nil || ok {
		return err
	}
	_, err := s.Invoices.TransitionStatus(ctx, invoiceID,
		models.InvoiceStatusReadyToRelease, models.InvoiceStatusReleased)
	return err
}

// archiveReceipt writes a small JSON receipt to object storage. Best effort:
// the ledger row is the durable record, the receipt is for support tooling.
func (s *PayoutService) archiveReceipt(inv models.Invoice, payout models.Payout, transferRef string) {
	if s.Receipts == nil {
		return
	}
	receipt, err := json.Marshal(map[string]interface{}{
		"payout_id":          payout.ID,
		"invoice_id":         inv.ID,
		"job_id":             inv.JobID,
		"provider_id":        inv.ProviderID,
		"amount":             payout.Amount,
		"transfer_reference": transferRef,
		"released_at":        time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	name := fmt.Sprintf("receipts/payout-%d.json", payout.ID)
	if _, err := s.Receipts.UploadReceipt(receipt, name); err != nil {
		s.logger().Error("failed to archive payout receipt", "payout_id", payout.ID, "err", err)
	}
}

func (s *PayoutService) announce(ctx context.Context, inv models.Invoice, payout models.Payout, transferRef string) {
	if s.Outbox == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"payout_id":          payout.ID,
		"amount":             payout.Amount,
		"transfer_reference": transferRef,
	})
	ev := models.OutboxEvent{
		JobID:       inv.JobID,
		Kind:        models.OutboxPayoutReleased,
		RecipientID: inv.ProviderID,
		Payload:     payload,
	}
	if err := s.Outbox.Insert(ctx, ev); err != nil {
		s.logger().Error("failed to record payout event", "invoice_id", inv.ID, "err", err)
	}
}

// GetPayoutAccount returns the provider's onboarding state; providers see
// their own, admins see anyone's.
func (s *PayoutService) GetPayoutAccount(ctx context.Context, providerID int, actor Actor) (models.PayoutAccount, error) {
	if actor.ID == 0 {
		return models.PayoutAccount{}, models.ErrNotAuthenticated
	}
	if actor.ID != providerID && actor.Role != models.RoleAdmin {
		return models.PayoutAccount{}, models.ErrNotOwner
	}
	return s.Billing.GetPayoutAccount(ctx, providerID)
}

// UpsertPayoutAccount records the provider's payout destination, typically on
// a callback from the rail's onboarding flow.
func (s *PayoutService) UpsertPayoutAccount(ctx context.Context, acc models.PayoutAccount, actor Actor) error {
	if actor.ID == 0 {
		return models.ErrNotAuthenticated
	}
	if actor.ID != acc.ProviderID && actor.Role != models.RoleAdmin {
		return models.ErrNotOwner
	}
	return s.Billing.UpsertPayoutAccount(ctx, acc)
}

func (s *PayoutService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
