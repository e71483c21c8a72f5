package handlers

import (
	"encoding/json"
	"net/http"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/services"
)

type RescheduleHandler struct {
	Reschedules *services.RescheduleService
}

func (h *RescheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.RequestedDate.IsZero() {
		http.Error(w, "Missing requested_date", http.StatusBadRequest)
		return
	}
	request, err := h.Reschedules.CreateRequest(r.Context(), actorFromRequest(r), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (h *RescheduleHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid request id", http.StatusBadRequest)
		return
	}
	request, err := h.Reschedules.Accept(r.Context(), id, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (h *RescheduleHandler) SuggestAlternative(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid request id", http.StatusBadRequest)
		return
	}
	var req models.SuggestAlternativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.SuggestedDate.IsZero() {
		http.Error(w, "Missing suggested_date", http.StatusBadRequest)
		return
	}
	request, err := h.Reschedules.SuggestAlternative(r.Context(), id, actorFromRequest(r), req.SuggestedDate)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (h *RescheduleHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid request id", http.StatusBadRequest)
		return
	}
	request, err := h.Reschedules.CancelJob(r.Context(), id, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}
