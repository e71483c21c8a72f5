package handlers

import (
	"net/http"
	"strconv"

	"qyzmetBack/internal/repositories"
)

type NotificationHandler struct {
	Notifications *repositories.NotificationRepository
	Messages      *repositories.MessageRepository
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if actor.ID == 0 {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	limit, offset := pagination(r)
	out, err := h.Notifications.ListByUser(r.Context(), actor.ID, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NotificationHandler) ListJobMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	limit, offset := pagination(r)
	out, err := h.Messages.ListByJob(r.Context(), id, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
