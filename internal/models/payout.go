package models

import (
	"time"
)

// Payout statuses.
const (
	PayoutStatusPending = "pending"
	PayoutStatusPaid    = "paid"
	PayoutStatusFailed  = "failed"
)

// Payout is one disbursement attempt tied to exactly one invoice. At most one
// payout per invoice ever carries a transfer reference (unique invoice_id key).
type Payout struct {
	ID          int        `json:"id"`
	InvoiceID   int        `json:"invoice_id"`
	ProviderID  int        `json:"provider_id"`
	Amount      float64    `json:"amount"`
	Status      string     `json:"status"`
	TransferRef *string    `json:"transfer_reference,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// LedgerEntry is an immutable record of money leaving escrow.
type LedgerEntry struct {
	ID          int       `json:"id"`
	PayoutID    int       `json:"payout_id"`
	InvoiceID   int       `json:"invoice_id"`
	ProviderID  int       `json:"provider_id"`
	Amount      float64   `json:"amount"`
	TransferRef string    `json:"transfer_reference"`
	CreatedAt   time.Time `json:"created_at"`
}

// PayoutAccount mirrors the provider's payout onboarding state. The onboarding
// flow maintains it; the payout saga only reads it.
type PayoutAccount struct {
	ProviderID     int       `json:"provider_id"`
	AccountRef     string    `json:"account_reference"`
	PayoutsEnabled bool      `json:"payouts_enabled"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BillingIdentity maps a client to the payment rail's customer object.
type BillingIdentity struct {
	UserID      int       `json:"user_id"`
	CustomerRef string    `json:"customer_reference"`
	CreatedAt   time.Time `json:"created_at"`
}
