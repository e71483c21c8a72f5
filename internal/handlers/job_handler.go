package handlers

import (
	"encoding/json"
	"net/http"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/services"
)

type JobHandler struct {
	JobState   *services.JobStateService
	Completion *services.CompletionService
}

func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req models.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	job, err := h.JobState.CreateJob(r.Context(), actorFromRequest(r), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	job, err := h.JobState.GetJob(r.Context(), id, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	var req models.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, "Missing status", http.StatusBadRequest)
		return
	}
	job, err := h.JobState.Transition(r.Context(), id, req.Status, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	job, err := h.Completion.MarkDone(r.Context(), id, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) ConfirmDone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	job, err := h.Completion.ConfirmDone(r.Context(), id, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
