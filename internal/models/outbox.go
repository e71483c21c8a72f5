package models

import (
	"encoding/json"
	"time"
)

// Outbox event kinds.
const (
	OutboxJobTransition    = "job_transition"
	OutboxVisitSettled     = "visit_settled"
	OutboxMarkedDone       = "marked_done"
	OutboxCompleted        = "completed"
	OutboxPayoutReleased   = "payout_released"
	OutboxRescheduleEvent  = "reschedule"
	OutboxInvoicePaid      = "invoice_paid"
)

// OutboxEvent is a pending side effect written in the same transaction as the
// state change it announces. The dispatcher delivers it later; delivery failure
// never affects the originating operation.
type OutboxEvent struct {
	ID          int             `json:"id"`
	JobID       int             `json:"job_id"`
	Kind        string          `json:"kind"`
	RecipientID int             `json:"recipient_id"`
	ActorID     int             `json:"actor_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Attempts    int             `json:"attempts"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
