package models

import (
	"errors"
)

var (
	ErrJobNotFound        = errors.New("models: job not found")
	ErrInvalidTransition  = errors.New("models: invalid status transition")
	ErrProviderBusy       = errors.New("models: provider already has an active job")
	ErrJobConflict        = errors.New("models: job was changed by someone else")
	ErrNotOwner           = errors.New("models: acting user does not own this job")
	ErrNotAuthenticated   = errors.New("models: not authenticated")
	ErrVisitFeePaid       = errors.New("models: visit fee already paid")
	ErrNoVisitFee         = errors.New("models: job carries no visit fee")
	ErrInvalidHoldState   = errors.New("models: payment hold is in the wrong state for this action")
	ErrInvoiceNotFound    = errors.New("models: invoice not found")
	ErrInvoiceNotPaid     = errors.New("models: invoice is not paid")
	ErrInvoiceImmutable   = errors.New("models: released invoice cannot be changed")
	ErrCompletionState    = errors.New("models: completion status does not allow this action")
	ErrPayoutNotFound     = errors.New("models: payout not found")
	ErrRescheduleNotFound = errors.New("models: reschedule request not found")
	ErrRescheduleResolved = errors.New("models: reschedule request already resolved")
	ErrRescheduleExpired  = errors.New("models: reschedule request expired")
	ErrUserNotFound       = errors.New("models: user not found")
	ErrInvalidCredentials = errors.New("models: invalid credentials")
)
