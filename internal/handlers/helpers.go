package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/payments"
	"qyzmetBack/internal/services"
)

// actorFromRequest reads the identity the JWT middleware stored on the
// request context.
func actorFromRequest(r *http.Request) services.Actor {
	actor := services.Actor{}
	if id, ok := r.Context().Value("user_id").(int); ok {
		actor.ID = id
	}
	if role, ok := r.Context().Value("role").(string); ok {
		actor.Role = role
	}
	return actor
}

func pathID(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.URL.Query().Get(":" + name))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps the service error taxonomy onto HTTP statuses. Anything
// unrecognised is a 500 with a generic body so internals never leak.
func respondError(w http.ResponseWriter, err error) {
	var railErr *payments.RailError
	if errors.As(err, &railErr) {
		http.Error(w, "Payment provider error: "+railErr.Code, http.StatusBadGateway)
		return
	}

	switch {
	case errors.Is(err, models.ErrNotAuthenticated),
		errors.Is(err, models.ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, models.ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, models.ErrJobNotFound),
		errors.Is(err, models.ErrInvoiceNotFound),
		errors.Is(err, models.ErrPayoutNotFound),
		errors.Is(err, models.ErrRescheduleNotFound),
		errors.Is(err, models.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrNoVisitFee):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrProviderBusy),
		errors.Is(err, models.ErrJobConflict),
		errors.Is(err, models.ErrVisitFeePaid),
		errors.Is(err, models.ErrInvalidHoldState),
		errors.Is(err, models.ErrInvoiceNotPaid),
		errors.Is(err, models.ErrInvoiceImmutable),
		errors.Is(err, models.ErrCompletionState),
		errors.Is(err, models.ErrRescheduleResolved),
		errors.Is(err, models.ErrRescheduleExpired):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
