package handlers

import (
	"encoding/json"
	"net/http"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/services"
)

type PayoutHandler struct {
	Payouts *services.PayoutService
}

// Release re-runs the escrow release for a job. Admin-only; used when a payout
// got stuck and support wants to push it through ahead of the retry loop.
func (h *PayoutHandler) Release(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "job_id")
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	if err := h.Payouts.Release(r.Context(), jobID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PayoutHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "provider_id")
	if err != nil {
		http.Error(w, "Invalid provider id", http.StatusBadRequest)
		return
	}
	acc, err := h.Payouts.GetPayoutAccount(r.Context(), providerID, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *PayoutHandler) UpsertAccount(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "provider_id")
	if err != nil {
		http.Error(w, "Invalid provider id", http.StatusBadRequest)
		return
	}
	var acc models.PayoutAccount
	if err := json.NewDecoder(r.Body).Decode(&acc); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	acc.ProviderID = providerID
	if err := h.Payouts.UpsertPayoutAccount(r.Context(), acc, actorFromRequest(r)); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}
