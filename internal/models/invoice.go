package models

import (
	"time"
)

// Invoice statuses.
const (
	InvoiceStatusDraft          = "draft"
	InvoiceStatusPendingPayment = "pending_payment"
	InvoiceStatusPaid           = "paid"
	InvoiceStatusReadyToRelease = "ready_to_release"
	InvoiceStatusReleased       = "released"
)

// Invoice is the provider's claim for payment on a job. It is never mutated
// after reaching released.
type Invoice struct {
	ID                  int        `json:"id"`
	JobID               int        `json:"job_id"`
	ProviderID          int        `json:"provider_id"`
	SubtotalProvider    float64    `json:"subtotal_provider"`
	TotalCustomerAmount float64    `json:"total_customer_amount"`
	Status              string     `json:"status"`
	PaymentRef          *string    `json:"payment_reference,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	PaidAt              *time.Time `json:"paid_at,omitempty"`
}

type CreateInvoiceRequest struct {
	JobID               int     `json:"job_id"`
	TotalCustomerAmount float64 `json:"total_customer_amount"`
}
