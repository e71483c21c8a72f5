package lifecycle

// List of job lifecycle statuses.
const (
	StatusActive     = "active"
	StatusAccepted   = "accepted"
	StatusConfirmed  = "confirmed"
	StatusEnRoute    = "en_route"
	StatusOnSite     = "on_site"
	StatusQuoted     = "quoted"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Completion handshake sub-statuses carried on the job next to the coarse status.
const (
	CompletionInProgress = "in_progress"
	CompletionMarkedDone = "provider_marked_done"
	CompletionCompleted  = "completed"
)

// Reschedule request statuses and provider responses.
const (
	RescheduleStatusPending  = "pending"
	RescheduleStatusAccepted = "accepted"
	RescheduleStatusRejected = "rejected"
	RescheduleStatusExpired  = "expired"

	RescheduleResponseAccept     = "accept"
	RescheduleResponseAlternative = "suggest_alternative"
	RescheduleResponseCancel     = "cancel"
)

var transitions = map[string]map[string]struct{}{
	StatusActive: {
		StatusAccepted:  {},
		StatusCancelled: {},
	},
	StatusAccepted: {
		StatusConfirmed: {},
		StatusCancelled: {},
	},
	StatusConfirmed: {
		StatusEnRoute:   {},
		StatusCancelled: {},
	},
	StatusEnRoute: {
		StatusOnSite:    {},
		StatusCancelled: {},
	},
	StatusOnSite: {
		StatusQuoted:     {},
		StatusInProgress: {},
		StatusCancelled:  {},
	},
	StatusQuoted: {
		StatusInProgress: {},
		StatusCancelled:  {},
	},
	StatusInProgress: {
		StatusCompleted: {},
		StatusCancelled: {},
	},
}

// activeStatuses are the non-terminal statuses that bind a provider to a job.
// A provider may hold at most one job in any of these at a time.
var activeStatuses = []string{
	StatusAccepted,
	StatusConfirmed,
	StatusEnRoute,
	StatusOnSite,
	StatusQuoted,
	StatusInProgress,
}

// CanTransition returns true when the lifecycle allows moving from current to next status.
// Unknown current statuses have no outbound transitions.
func CanTransition(current, next string) bool {
	allowed, ok := transitions[current]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// IsValidStatus reports whether status is a member of the job lifecycle.
func IsValidStatus(status string) bool {
	if _, ok := transitions[status]; ok {
		return true
	}
	return IsTerminal(status)
}

// ProviderActiveStatuses returns the statuses counted against the
// one-active-job-per-provider limit.
func ProviderActiveStatuses() []string {
	out := make([]string, len(activeStatuses))
	copy(out, activeStatuses)
	return out
}

// CheckCompletionInvariant verifies the cross-field invariant between the coarse
// status and the completion sub-status: a completed handshake implies a completed job.
func CheckCompletionInvariant(status, completionStatus string) bool {
	if completionStatus == CompletionCompleted && status != StatusCompleted {
		return false
	}
	return true
}
