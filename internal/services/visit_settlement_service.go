package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/payments"
)

// Settlement actions.
const (
	SettleCapture = "capture"
	SettleRelease = "release"
)

// Settlement outcomes.
const (
	OutcomeCaptured        = "captured"
	OutcomeReleased        = "released"
	OutcomeAlreadyCaptured = "already_captured"
	OutcomeAlreadyReleased = "already_released"
	OutcomeAlreadyDone     = "already_completed"
	OutcomeNoPaymentAction = "no_payment_action"
)

type SettlementResult struct {
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
}

// VisitSettlementService resolves the visit-fee hold exactly once when the
// first visit concludes. Two guards work together: the conditional flip of
// provider_visited is the local decision point, and the rail-side state
// inspection covers the case where a previous attempt touched the rail but
// died before the local write.
type VisitSettlementService struct {
	Jobs   JobStore
	Rail   payments.Rail
	Outbox OutboxStore
	Logger *slog.Logger
}

func (s *VisitSettlementService) SettleFirstVisit(ctx context.Context, jobID int, actor Actor, action string) (SettlementResult, error) {
	if actor.ID == 0 {
		return SettlementResult{}, models.ErrNotAuthenticated
	}
	if action != SettleCapture && action != SettleRelease {
		return SettlementResult{}, fmt.Errorf("unknown settlement action %q", action)
	}

	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return SettlementResult{}, err
	}
	if job.ProviderID == nil || *job.ProviderID != actor.ID {
		return SettlementResult{}, models.ErrNotOwner
	}

	if job.ProviderVisited {
		return SettlementResult{Action: action, Outcome: OutcomeAlreadyDone}, nil
	}

	// A job can legitimately carry no hold (free first visit): record the
	// visit and take no payment action.
	if job.PaymentHoldRef == nil {
		if _, err := s.Jobs.ClaimVisited(ctx, jobID); err != nil {
			return SettlementResult{}, err
		}
		return SettlementResult{Action: action, Outcome: OutcomeNoPaymentAction}, nil
	}

	hold, err := s.Rail.RetrieveHold(ctx, *job.PaymentHoldRef)
	if err != nil {
		return SettlementResult{}, err
	}

	var result SettlementResult
	switch action {
	case SettleCapture:
		result, err = s.capture(ctx, job, hold)
	case SettleRelease:
		result, err = s.release(ctx, job, hold)
	}
	if err != nil {
		return SettlementResult{}, err
	}

	s.announce(ctx, job, actor, result)
	return result, nil
}

func (s *VisitSettlementService) capture(ctx context.Context, job models.Job, hold payments.Hold) (SettlementResult, error) {
	switch {
	case hold.State == payments.HoldSucceeded:
		// Rail already settled (an earlier attempt died between the rail call
		// and the local write). Converge the local flags.
		if _, err := s.Jobs.ClaimVisited(ctx, job.ID); err != nil {
			return SettlementResult{}, err
		}
		if err := s.Jobs.SetVisitFeePaid(ctx, job.ID); err != nil {
			return SettlementResult{}, err
		}
		return SettlementResult{Action: SettleCapture, Outcome: OutcomeAlreadyCaptured}, nil

	case hold.State == payments.HoldRequiresCapture:
		claimed, err := s.Jobs.ClaimVisited(ctx, job.ID)
		if err != nil {
			return SettlementResult{}, err
		}
		if !claimed {
			return SettlementResult{Action: SettleCapture, Outcome: OutcomeAlreadyDone}, nil
		}
		if _, err := s.Rail.CaptureHold(ctx, hold.Ref, fmt.Sprintf("visit-capture-job-%d", job.ID)); err != nil {
			if revertErr := s.Jobs.RevertVisited(ctx, job.ID); revertErr != nil {
				s.logger().Error("failed to revert visit claim after capture failure",
					"job_id", job.ID, "ref", hold.Ref, "err", revertErr)
			}
			return SettlementResult{}, err
		}
		if err := s.Jobs.SetVisitFeePaid(ctx, job.ID); err != nil {
			return SettlementResult{}, err
		}
		return SettlementResult{Action: SettleCapture, Outcome: OutcomeCaptured}, nil

	default:
		// canceled, expired, or never authorized
		return SettlementResult{}, models.ErrInvalidHoldState
	}
}

func (s *VisitSettlementService) release(ctx context.Context, job models.Job, hold payments.Hold) (SettlementResult, error) {
	switch {
	case hold.State == payments.HoldCanceled:
		// Includes rail-side expiry: an expired hold reads as canceled.
		if _, err := s.Jobs.ClaimVisited(ctx, job.ID); err != nil {
			return SettlementResult{}, err
		}
		return SettlementResult{Action: SettleRelease, Outcome: OutcomeAlreadyReleased}, nil

	case hold.State.Uncaptured():
		claimed, err := s.Jobs.ClaimVisited(ctx, job.ID)
		if err != nil {
			return SettlementResult{}, err
		}
		if !claimed {
			return SettlementResult{Action: SettleRelease, Outcome: OutcomeAlreadyDone}, nil
		}
		if _, err := s.Rail.CancelHold(ctx, hold.Ref, fmt.Sprintf("visit-release-job-%d", job.ID)); err != nil {
			if revertErr := s.Jobs.RevertVisited(ctx, job.ID); revertErr != nil {
				s.logger().Error("failed to revert visit claim after release failure",
					"job_id", job.ID, "ref", hold.Ref, "err", revertErr)
			}
			return SettlementResult{}, err
		}
		return SettlementResult{Action: SettleRelease, Outcome: OutcomeReleased}, nil

	default:
		// succeeded: money already collected, releasing makes no sense
		return SettlementResult{}, models.ErrInvalidHoldState
	}
}

func (s *VisitSettlementService) announce(ctx context.Context, job models.Job, actor Actor, result SettlementResult) {
	if s.Outbox == nil {
		return
	}
	payload, _ := json.Marshal(result)
	ev := models.OutboxEvent{
		JobID:       job.ID,
		Kind:        models.OutboxVisitSettled,
		RecipientID: job.ClientID,
		ActorID:     actor.ID,
		Payload:     payload,
	}
	if err := s.Outbox.Insert(ctx, ev); err != nil {
		s.logger().Error("failed to record visit settlement event", "job_id", job.ID, "err", err)
	}
}

func (s *VisitSettlementService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
