package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/payments"
)

// VisitAuthorizationService guarantees exactly one payment hold per job for
// the visit fee. The existence check runs before any creation path, and the
// conditional claim on the hold reference plus its unique index close the
// duplicate-hold race for concurrent callers.
type VisitAuthorizationService struct {
	Jobs    JobStore
	Billing BillingStore
	Users   UserStore
	Rail    payments.Rail
	Logger  *slog.Logger
}

// AuthorizationResult is the client-facing continuation for completing the
// hold authorization.
type AuthorizationResult struct {
	HoldRef        string             `json:"hold_reference"`
	State          payments.HoldState `json:"state"`
	ClientSecret   string             `json:"client_secret,omitempty"`
	AlreadyExisted bool               `json:"already_existed"`
}

func (s *VisitAuthorizationService) EnsureAuthorization(ctx context.Context, jobID int, actor Actor) (AuthorizationResult, error) {
	if actor.ID == 0 {
		return AuthorizationResult{}, models.ErrNotAuthenticated
	}
	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return AuthorizationResult{}, err
	}
	if job.ClientID != actor.ID {
		return AuthorizationResult{}, models.ErrNotOwner
	}

	// Idempotency boundary: an existing reference is returned verbatim before
	// any creation path can run.
	if job.PaymentHoldRef != nil {
		hold, err := s.Rail.RetrieveHold(ctx, *job.PaymentHoldRef)
		if err != nil {
			return AuthorizationResult{}, err
		}
		return AuthorizationResult{
			HoldRef:        hold.Ref,
			State:          hold.State,
			ClientSecret:   hold.ClientSecret,
			AlreadyExisted: true,
		}, nil
	}
	if job.VisitFeePaid {
		return AuthorizationResult{}, models.ErrVisitFeePaid
	}
	if job.VisitFeeAmount <= 0 {
		return AuthorizationResult{}, models.ErrNoVisitFee
	}

	customerRef, err := s.ensureCustomer(ctx, job.ClientID)
	if err != nil {
		return AuthorizationResult{}, err
	}

	hold, err := s.Rail.CreateHold(ctx, payments.CreateHoldParams{
		Amount:      job.VisitFeeAmount,
		CustomerRef: customerRef,
		Description: fmt.Sprintf("Visit fee for job #%d", job.ID),
		Metadata: map[string]string{
			"job_id":    strconv.Itoa(job.ID),
			"client_id": strconv.Itoa(job.ClientID),
		},
		IdempotencyKey: fmt.Sprintf("visit-hold-job-%d", job.ID),
	})
	if err != nil {
		return AuthorizationResult{}, err
	}

	claimed, err := s.Jobs.ClaimHoldReference(ctx, job.ID, hold.Ref)
	if err != nil {
		return AuthorizationResult{}, err
	}
	if !claimed {
		// A concurrent call won the claim. Our hold is surplus: release it and
		// hand back the winner's.
		if _, cancelErr := s.Rail.CancelHold(ctx, hold.Ref, ""); cancelErr != nil {
			s.logger().Error("failed to cancel surplus visit hold", "job_id", job.ID, "ref", hold.Ref, "err", cancelErr)
		}
		fresh, err := s.Jobs.GetByID(ctx, job.ID)
		if err != nil {
			return AuthorizationResult{}, err
		}
		if fresh.PaymentHoldRef == nil {
			return AuthorizationResult{}, models.ErrJobConflict
		}
		winner, err := s.Rail.RetrieveHold(ctx, *fresh.PaymentHoldRef)
		if err != nil {
			return AuthorizationResult{}, err
		}
		return AuthorizationResult{
			HoldRef:        winner.Ref,
			State:          winner.State,
			ClientSecret:   winner.ClientSecret,
			AlreadyExisted: true,
		}, nil
	}

	return AuthorizationResult{
		HoldRef:      hold.Ref,
		State:        hold.State,
		ClientSecret: hold.ClientSecret,
	}, nil
}

// ensureCustomer resolves the client's billing identity at the rail, creating
// and caching it on first use.
func (s *VisitAuthorizationService) ensureCustomer(ctx context.Context, userID int) (string, error) {
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

func (s *VisitAuthorizationService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
