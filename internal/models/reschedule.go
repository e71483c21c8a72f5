package models

import (
	"time"
)

// RescheduleRequest is a date renegotiation on a job. Created by either party,
// resolved by the counterparty; resolution either moves the job's schedule or
// cancels the job.
type RescheduleRequest struct {
	ID               int        `json:"id"`
	JobID            int        `json:"booking_id"`
	RequestedBy      int        `json:"requested_by"`
	OriginalDate     *time.Time `json:"original_date,omitempty"`
	RequestedDate    time.Time  `json:"requested_date"`
	SuggestedDate    *time.Time `json:"suggested_date,omitempty"`
	Status           string     `json:"status"`
	ProviderResponse *string    `json:"provider_response,omitempty"`
	RespondBy        time.Time  `json:"respond_by"`
	CreatedAt        time.Time  `json:"created_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

type CreateRescheduleRequest struct {
	JobID         int       `json:"job_id"`
	RequestedDate time.Time `json:"requested_date"`
}

type SuggestAlternativeRequest struct {
	SuggestedDate time.Time `json:"suggested_date"`
}
