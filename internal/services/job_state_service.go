package services

import (
	"context"
	"encoding/json"
	"fmt"

	"qyzmetBack/internal/lifecycle"
	"qyzmetBack/internal/models"
	"qyzmetBack/internal/repositories"
)

// JobStateService is the single authority over the job status field. Every
// other component that needs the status changed goes through Transition; the
// store-level guards make the table check and the write one atomic step.
type JobStateService struct {
	Jobs JobStore
}

func (s *JobStateService) CreateJob(ctx context.Context, actor Actor, req models.CreateJobRequest) (models.Job, error) {
	if actor.ID == 0 {
		return models.Job{}, models.ErrNotAuthenticated
	}
	if req.VisitFeeAmount < 0 {
		return models.Job{}, fmt.Errorf("visit fee amount must not be negative")
	}
	return s.Jobs.Create(ctx, actor.ID, req)
}

func (s *JobStateService) GetJob(ctx context.Context, jobID int, actor Actor) (models.Job, error) {
	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return models.Job{}, err
	}
	if !s.isParty(job, actor) && actor.Role != models.RoleAdmin {
		return models.Job{}, models.ErrNotOwner
	}
	return job, nil
}

// Transition validates and applies one status change. Acceptance goes through
// the capacity-guarded accept write; everything else through the conditional
// status update keyed on the current persisted status.
func (s *JobStateService) Transition(ctx context.Context, jobID int, newStatus string, actor Actor) (models.Job, error) {
	if actor.ID == 0 {
		return models.Job{}, models.ErrNotAuthenticated
	}
	if !lifecycle.IsValidStatus(newStatus) {
		return models.Job{}, models.ErrInvalidTransition
	}

	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return models.Job{}, err
	}
	if !lifecycle.CanTransition(job.Status, newStatus) {
		return models.Job{}, models.ErrInvalidTransition
	}
	if err := s.authorize(job, newStatus, actor); err != nil {
		return models.Job{}, err
	}

	event := s.transitionEvent(job, newStatus, actor)

	if newStatus == lifecycle.StatusAccepted {
		if event != nil {
			event.RecipientID = job.ClientID
		}
		err = s.Jobs.Accept(ctx, jobID, actor.ID, event)
	} else {
		err = s.Jobs.ApplyTransition(ctx, repositories.StatusUpdate{
			JobID:   jobID,
			From:    job.Status,
			To:      newStatus,
			ActorID: actor.ID,
			Event:   event,
		})
	}
	if err != nil {
		return models.Job{}, err
	}
	return s.Jobs.GetByID(ctx, jobID)
}

// CancelFromReschedule terminates the job on behalf of the reschedule
// negotiation and releases the provider binding so the job can be re-offered.
func (s *JobStateService) CancelFromReschedule(ctx context.Context, jobID int, actor Actor) error {
	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if !lifecycle.CanTransition(job.Status, lifecycle.StatusCancelled) {
		return models.ErrInvalidTransition
	}
	event := s.transitionEvent(job, lifecycle.StatusCancelled, actor)
	return s.Jobs.ApplyTransition(ctx, repositories.StatusUpdate{
		JobID:         jobID,
		From:          job.Status,
		To:            lifecycle.StatusCancelled,
		ActorID:       actor.ID,
		ClearProvider: true,
		Event:         event,
	})
}

func (s *JobStateService) authorize(job models.Job, newStatus string, actor Actor) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	switch newStatus {
	case lifecycle.StatusAccepted:
		if actor.Role != models.RoleProvider {
			return models.ErrNotOwner
		}
		return nil
	case lifecycle.StatusCancelled:
		if s.isParty(job, actor) {
			return nil
		}
		return models.ErrNotOwner
	default:
		// progress transitions belong to the bound provider
		if job.ProviderID != nil && *job.ProviderID == actor.ID {
			return nil
		}
		return models.ErrNotOwner
	}
}

func (s *JobStateService) isParty(job models.Job, actor Actor) bool {
	if job.ClientID == actor.ID {
		return true
	}
	return job.ProviderID != nil && *job.ProviderID == actor.ID
}

// transitionEvent builds the counterparty notification; nil when there is no
// counterparty yet (e.g. a client cancelling an unclaimed job).
func (s *JobStateService) transitionEvent(job models.Job, newStatus string, actor Actor) *models.OutboxEvent {
	recipient := 0
	if actor.ID == job.ClientID {
		if job.ProviderID != nil {
			recipient = *job.ProviderID
		}
	} else {
		recipient = job.ClientID
	}
	if recipient == 0 {
		return nil
	}
	payload, _ := json.Marshal(map[string]string{"from": job.Status, "to": newStatus})
	return &models.OutboxEvent{
		JobID:       job.ID,
		Kind:        models.OutboxJobTransition,
		RecipientID: recipient,
		ActorID:     actor.ID,
		Payload:     payload,
	}
}
