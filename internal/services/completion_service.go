package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"qyzmetBack/internal/models"
)

// PayoutReleaser is the escrow side of completion. ConfirmDone kicks it off in
// the background; failures there surface through the payout tables, never
// through the confirm call.
type PayoutReleaser interface {
	Release(ctx context.Context, jobID int) error
}

// CompletionService runs the two-sided completion handshake: the provider marks
// the work done, the client confirms. Confirmation is the point of no return
// that closes the job and starts the escrow release.
type CompletionService struct {
	Jobs     JobStore
	Invoices InvoiceStore
	Payouts  PayoutReleaser
	Logger   *slog.Logger

	// ReleaseTimeout bounds the background payout attempt kicked off by
	// ConfirmDone. Zero means a minute.
	ReleaseTimeout time.Duration
}

// MarkDone records the provider's claim that the work is finished. It requires
// a paid invoice on the job: a provider cannot shortcut the flow by marking
// done before the client has paid.
func (s *CompletionService) MarkDone(ctx context.Context, jobID int, actor Actor) (models.Job, error) {
	if actor.ID == 0 {
		return models.Job{}, models.ErrNotAuthenticated
	}
	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return models.Job{}, err
	}
	if job.ProviderID == nil || *job.ProviderID != actor.ID {
		return models.Job{}, models.ErrNotOwner
	}

	if _, err := s.Invoices.GetByJobAndStatuses(ctx, jobID,
		models.InvoiceStatusPaid,
		models.InvoiceStatusReadyToRelease,
		models.InvoiceStatusReleased,
	); err != nil {
		if err == models.ErrInvoiceNotFound {
			return models.Job{}, models.ErrInvoiceNotPaid
		}
		return models.Job{}, err
	}

	event := &models.OutboxEvent{
		JobID:       job.ID,
		Kind:        models.OutboxMarkedDone,
		RecipientID: job.ClientID,
		ActorID:     actor.ID,
	}
	if err := s.Jobs.MarkDone(ctx, jobID, actor.ID, event); err != nil {
		return models.Job{}, err
	}
	return s.Jobs.GetByID(ctx, jobID)
}

// ConfirmDone is the client's acknowledgement. The store closes the completion
// sub-status and the coarse status in one write; only after that commits does
// the payout release start, detached from the request.
func (s *CompletionService) ConfirmDone(ctx context.Context, jobID int, actor Actor) (models.Job, error) {
	if actor.ID == 0 {
		return models.Job{}, models.ErrNotAuthenticated
	}
	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return models.Job{}, err
	}
	if job.ClientID != actor.ID {
		return models.Job{}, models.ErrNotOwner
	}

	recipient := 0
	if job.ProviderID != nil {
		recipient = *job.ProviderID
	}
	payload, _ := json.Marshal(map[string]string{"confirmed_by": "client"})
	event := &models.OutboxEvent{
		JobID:       job.ID,
		Kind:        models.OutboxCompleted,
		RecipientID: recipient,
		ActorID:     actor.ID,
		Payload:     payload,
	}
	if err := s.Jobs.ConfirmDone(ctx, jobID, actor.ID, event); err != nil {
		return models.Job{}, err
	}

	s.startRelease(jobID)

	return s.Jobs.GetByID(ctx, jobID)
}

// startRelease runs the escrow release off the request path. The saga is
// re-entrant, so a crash here only delays the payout until the retry loop
// picks the invoice up.
func (s *CompletionService) startRelease(jobID int) {
	if s.Payouts == nil {
		return
	}
	timeout := s.ReleaseTimeout
	if timeout == 0 {
		timeout = time.Minute
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger().Error("panic during payout release", "job_id", jobID, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Payouts.Release(ctx, jobID); err != nil {
			s.logger().Error("payout release failed, will retry", "job_id", jobID, "err", err)
		}
	}()
}

func (s *CompletionService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
