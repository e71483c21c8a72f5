package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"qyzmetBack/internal/lifecycle"
	"qyzmetBack/internal/models"
)

// RescheduleService runs the date renegotiation: one party proposes a new
// date, the counterparty accepts, counters, or cancels the job. At most one
// pending request per job; the response window is enforced both at respond
// time and by the background expirer.
type RescheduleService struct {
	Jobs        JobStore
	Reschedules RescheduleStore
	JobState    *JobStateService
	Outbox      OutboxStore
	Logger      *slog.Logger

	// ResponseWindow is how long the counterparty has to answer.
	// Zero means 24 hours.
	ResponseWindow time.Duration
}

func (s *RescheduleService) window() time.Duration {
	if s.ResponseWindow > 0 {
		return s.ResponseWindow
	}
	return 24 * time.Hour
}

// CreateRequest opens a negotiation. The job keeps a pending-reschedule marker
// so a second request cannot stack on top of an unresolved one.
func (s *RescheduleService) CreateRequest(ctx context.Context, actor Actor, req models.CreateRescheduleRequest) (models.RescheduleRequest, error) {
	if actor.ID == 0 {
		return models.RescheduleRequest{}, models.ErrNotAuthenticated
	}
	job, err := s.Jobs.GetByID(ctx, req.JobID)
	if err != nil {
		return models.RescheduleRequest{}, err
	}
	if !s.isParty(job, actor) {
		return models.RescheduleRequest{}, models.ErrNotOwner
	}
	if lifecycle.IsTerminal(job.Status) {
		return models.RescheduleRequest{}, models.ErrInvalidTransition
	}
	// The marker doubles as the claim: a conditional write, so two concurrent
	// requests cannot both open a negotiation on the job.
	claimed, err := s.Jobs.ClaimPendingReschedule(ctx, job.ID, req.RequestedDate, actor.ID)
	if err != nil {
		return models.RescheduleRequest{}, err
	}
	if !claimed {
		return models.RescheduleRequest{}, models.ErrRescheduleResolved
	}

	now := time.Now()
	request := models.RescheduleRequest{
		JobID:         job.ID,
		RequestedBy:   actor.ID,
		OriginalDate:  job.ScheduledAt,
		RequestedDate: req.RequestedDate,
		Status:        lifecycle.RescheduleStatusPending,
		RespondBy:     now.Add(s.window()),
	}
	request, err = s.Reschedules.Create(ctx, request)
	if err != nil {
		if clearErr := s.Jobs.ClearPendingReschedule(ctx, job.ID); clearErr != nil {
			s.logger().Error("failed to release reschedule claim", "job_id", job.ID, "err", clearErr)
		}
		return models.RescheduleRequest{}, err
	}

	s.announce(ctx, job, actor, "requested", map[string]interface{}{
		"request_id":     request.ID,
		"requested_date": req.RequestedDate,
		"respond_by":     request.RespondBy,
	})
	return request, nil
}

// Accept applies the requested date to the job and closes the negotiation.
func (s *RescheduleService) Accept(ctx context.Context, requestID int, actor Actor) (models.RescheduleRequest, error) {
	request, job, err := s.loadOpen(ctx, requestID, actor)
	if err != nil {
		return models.RescheduleRequest{}, err
	}

	response := lifecycle.RescheduleResponseAccept
	resolved, err := s.Reschedules.Resolve(ctx, request.ID, lifecycle.RescheduleStatusAccepted, &response, nil)
	if err != nil {
		return models.RescheduleRequest{}, err
	}
	if !resolved {
		return models.RescheduleRequest{}, models.ErrRescheduleResolved
	}
	if err := s.Jobs.ApplySchedule(ctx, job.ID, request.RequestedDate); err != nil {
		return models.RescheduleRequest{}, err
	}

	s.announceToRequester(ctx, job, request, actor, "accepted", map[string]interface{}{
		"request_id":    request.ID,
		"accepted_date": request.RequestedDate,
	})
	return s.Reschedules.GetByID(ctx, request.ID)
}

// SuggestAlternative declines the requested date but proposes another one.
// The job's schedule does not move; the requester is expected to open a fresh
// request if the alternative suits them.
func (s *RescheduleService) SuggestAlternative(ctx context.Context, requestID int, actor Actor, suggested time.Time) (models.RescheduleRequest, error) {
	request, job, err := s.loadOpen(ctx, requestID, actor)
	if err != nil {
		return models.RescheduleRequest{}, err
	}

	response := lifecycle.RescheduleResponseAlternative
	resolved, err := s.Reschedules.Resolve(ctx, request.ID, lifecycle.RescheduleStatusRejected, &response, &suggested)
	if err != nil {
		return models.RescheduleRequest{}, err
	}
	if !resolved {
		return models.RescheduleRequest{}, models.ErrRescheduleResolved
	}
	if err := s.Jobs.ClearPendingReschedule(ctx, job.ID); err != nil {
		return models.RescheduleRequest{}, err
	}

	s.announceToRequester(ctx, job, request, actor, "alternative_suggested", map[string]interface{}{
		"request_id":     request.ID,
		"suggested_date": suggested,
	})
	return s.Reschedules.GetByID(ctx, request.ID)
}

// CancelJob rejects the request and cancels the whole job. The provider
// binding is released as part of the cancellation so the job could be
// re-posted.
func (s *RescheduleService) CancelJob(ctx context.Context, requestID int, actor Actor) (models.RescheduleRequest, error) {
	request, job, err := s.loadOpen(ctx, requestID, actor)
	if err != nil {
		return models.RescheduleRequest{}, err
	}

	response := lifecycle.RescheduleResponseCancel
	resolved, err := s.Reschedules.Resolve(ctx, request.ID, lifecycle.RescheduleStatusRejected, &response, nil)
	if err != nil {
		return models.RescheduleRequest{}, err
	}
	if !resolved {
		return models.RescheduleRequest{}, models.ErrRescheduleResolved
	}
	if err := s.JobState.CancelFromReschedule(ctx, job.ID, actor); err != nil {
		return models.RescheduleRequest{}, err
	}

	s.announceToRequester(ctx, job, request, actor, "job_cancelled", map[string]interface{}{
		"request_id": request.ID,
	})
	return s.Reschedules.GetByID(ctx, request.ID)
}

// ExpireOverdue marks stale pending requests as expired. Run by the background
// sweeper.
func (s *RescheduleService) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.Reschedules.ExpireOverdue(ctx, time.Now())
}

// loadOpen fetches the request plus its job and checks that the actor is the
// counterparty and the response window is still open. An overdue request is
// expired on the spot rather than waiting for the sweeper.
func (s *RescheduleService) loadOpen(ctx context.Context, requestID int, actor Actor) (models.RescheduleRequest, models.Job, error) {
	if actor.ID == 0 {
		return models.RescheduleRequest{}, models.Job{}, models.ErrNotAuthenticated
	}
	request, err := s.Reschedules.GetByID(ctx, requestID)
	if err != nil {
		return models.RescheduleRequest{}, models.Job{}, err
	}
	if request.Status != lifecycle.RescheduleStatusPending {
		return models.RescheduleRequest{}, models.Job{}, models.ErrRescheduleResolved
	}
	job, err := s.Jobs.GetByID(ctx, request.JobID)
	if err != nil {
		return models.RescheduleRequest{}, models.Job{}, err
	}
	if !s.isParty(job, actor) || actor.ID == request.RequestedBy {
		return models.RescheduleRequest{}, models.Job{}, models.ErrNotOwner
	}
	if time.Now().After(request.RespondBy) {
		if _, err := s.Reschedules.Resolve(ctx, request.ID, lifecycle.RescheduleStatusExpired, nil, nil); err != nil {
			s.logger().Error("failed to expire overdue reschedule request", "request_id", request.ID, "err", err)
		}
		if err := s.Jobs.ClearPendingReschedule(ctx, job.ID); err != nil {
			s.logger().Error("failed to clear expired reschedule marker", "job_id", job.ID, "err", err)
		}
		return models.RescheduleRequest{}, models.Job{}, models.ErrRescheduleExpired
	}
	return request, job, nil
}

func (s *RescheduleService) isParty(job models.Job, actor Actor) bool {
	if job.ClientID == actor.ID {
		return true
	}
	return job.ProviderID != nil && *job.ProviderID == actor.ID
}

// announce notifies the counterparty of the actor.
func (s *RescheduleService) announce(ctx context.Context, job models.Job, actor Actor, action string, details map[string]interface{}) {
	recipient := job.ClientID
	if actor.ID == job.ClientID {
		if job.ProviderID == nil {
			return
		}
		recipient = *job.ProviderID
	}
	s.insertEvent(ctx, job.ID, recipient, actor.ID, action, details)
}

// announceToRequester notifies whoever opened the request about its outcome.
func (s *RescheduleService) announceToRequester(ctx context.Context, job models.Job, request models.RescheduleRequest, actor Actor, action string, details map[string]interface{}) {
	s.insertEvent(ctx, job.ID, request.RequestedBy, actor.ID, action, details)
}

func (s *RescheduleService) insertEvent(ctx context.Context, jobID, recipientID, actorID int, action string, details map[string]interface{}) {
	if s.Outbox == nil {
		return
	}
	details["action"] = action
	payload, _ := json.Marshal(details)
	ev := models.OutboxEvent{
		JobID:       jobID,
		Kind:        models.OutboxRescheduleEvent,
		RecipientID: recipientID,
		ActorID:     actorID,
		Payload:     payload,
	}
	if err := s.Outbox.Insert(ctx, ev); err != nil {
		s.logger().Error("failed to record reschedule event", "job_id", jobID, "err", err)
	}
}

func (s *RescheduleService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
