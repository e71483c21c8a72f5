package handlers

import (
	"encoding/json"
	"net/http"

	"qyzmetBack/internal/services"
)

type VisitHandler struct {
	Authorization *services.VisitAuthorizationService
	Settlement    *services.VisitSettlementService
}

func (h *VisitHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	result, err := h.Authorization.EnsureAuthorization(r.Context(), id, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *VisitHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Action != services.SettleCapture && req.Action != services.SettleRelease {
		http.Error(w, "Action must be capture or release", http.StatusBadRequest)
		return
	}
	result, err := h.Settlement.SettleFirstVisit(r.Context(), id, actorFromRequest(r), req.Action)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
