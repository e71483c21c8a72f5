package services

import (
	"context"
	"time"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/repositories"
)

// Actor is the authenticated caller as supplied by the JWT middleware.
// Ownership is still re-validated against the stored job on every call.
type Actor struct {
	ID   int
	Role string
}

// JobStore is the persistence surface the services need from the job table.
// *repositories.JobRepository satisfies it; tests use an in-memory fake.
type JobStore interface {
	Create(ctx context.Context, clientID int, req models.CreateJobRequest) (models.Job, error)
	GetByID(ctx context.Context, id int) (models.Job, error)
	ApplyTransition(ctx context.Context, u repositories.StatusUpdate) error
	Accept(ctx context.Context, jobID, providerID int, event *models.OutboxEvent) error
	ClaimHoldReference(ctx context.Context, jobID int, ref string) (bool, error)
	ClaimVisited(ctx context.Context, jobID int) (bool, error)
	RevertVisited(ctx context.Context, jobID int) error
	SetVisitFeePaid(ctx context.Context, jobID int) error
	MarkDone(ctx context.Context, jobID, actorID int, event *models.OutboxEvent) error
	ConfirmDone(ctx context.Context, jobID, actorID int, event *models.OutboxEvent) error
	ClaimPendingReschedule(ctx context.Context, jobID int, date time.Time, requestedBy int) (bool, error)
	ApplySchedule(ctx context.Context, jobID int, date time.Time) error
	ClearPendingReschedule(ctx context.Context, jobID int) error
}

type InvoiceStore interface {
	Create(ctx context.Context, inv models.Invoice) (models.Invoice, error)
	GetByID(ctx context.Context, id int) (models.Invoice, error)
	GetByJobAndStatuses(ctx context.Context, jobID int, statuses ...string) (models.Invoice, error)
	MarkPaid(ctx context.Context, invoiceID int, paymentRef string) (bool, error)
	TransitionStatus(ctx context.Context, invoiceID int, from, to string) (bool, error)
	ListReadyToRelease(ctx context.Context, limit int) ([]models.Invoice, error)
}

type PayoutStore interface {
	GetByInvoice(ctx context.Context, invoiceID int) (models.Payout, error)
	FindOrCreatePending(ctx context.Context, invoiceID, providerID int, amount float64) (models.Payout, error)
	MarkPaid(ctx context.Context, payoutID int, transferRef string) (bool, error)
	MarkFailed(ctx context.Context, payoutID int, cause string) error
	AppendLedger(ctx context.Context, entry models.LedgerEntry) error
}

type BillingStore interface {
	GetCustomerRef(ctx context.Context, userID int) (string, error)
	SaveCustomerRef(ctx context.Context, userID int, ref string) error
	GetPayoutAccount(ctx context.Context, providerID int) (models.PayoutAccount, error)
	UpsertPayoutAccount(ctx context.Context, acc models.PayoutAccount) error
}

type RescheduleStore interface {
	Create(ctx context.Context, req models.RescheduleRequest) (models.RescheduleRequest, error)
	GetByID(ctx context.Context, id int) (models.RescheduleRequest, error)
	Resolve(ctx context.Context, id int, status string, providerResponse *string, suggestedDate *time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type OutboxStore interface {
	Insert(ctx context.Context, ev models.OutboxEvent) error
	ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id int) error
	BumpAttempts(ctx context.Context, id int) error
}

type UserStore interface {
	GetByPhone(ctx context.Context, phone string) (models.User, error)
	GetByID(ctx context.Context, id int) (models.User, error)
	SaveSession(ctx context.Context, s models.Session) error
	GetSessionByToken(ctx context.Context, refreshToken string) (models.Session, error)
}

// ReceiptArchiver stores a payout receipt in object storage, best-effort.
type ReceiptArchiver interface {
	UploadReceipt(data []byte, name string) (string, error)
}
