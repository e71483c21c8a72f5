package models

import (
	"time"
)

// Job is one unit of work between a client and, once accepted, a provider.
// Status is only ever written through the job state service; the narrower
// payment flags are written by the visit services with conditional updates.
type Job struct {
	ID               int        `json:"id"`
	ClientID         int        `json:"client_id"`
	ProviderID       *int       `json:"provider_id,omitempty"`
	Status           string     `json:"status"`
	CompletionStatus string     `json:"completion_status"`
	Description      string     `json:"description"`
	Address          string     `json:"address"`
	VisitFeeAmount   float64    `json:"visit_fee_amount"`
	VisitFeePaid     bool       `json:"visit_fee_paid"`
	PaymentHoldRef   *string    `json:"payment_hold_reference,omitempty"`
	ProviderVisited  bool       `json:"provider_visited"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
	RescheduleDate   *time.Time `json:"reschedule_date,omitempty"`
	RescheduleBy     *int       `json:"reschedule_requested_by,omitempty"`
	MarkedDoneAt     *time.Time `json:"marked_done_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// StatusHistoryEntry captures a lifecycle change for auditing.
type StatusHistoryEntry struct {
	JobID     int       `json:"job_id"`
	Status    string    `json:"status"`
	ActorID   int       `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateJobRequest struct {
	Description    string     `json:"description"`
	Address        string     `json:"address"`
	VisitFeeAmount float64    `json:"visit_fee_amount"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}
