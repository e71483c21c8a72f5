package handlers

import (
	"encoding/json"
	"net/http"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/services"
)

type InvoiceHandler struct {
	Invoices *services.InvoiceService
}

func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	inv, err := h.Invoices.Create(r.Context(), actorFromRequest(r), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice id", http.StatusBadRequest)
		return
	}
	inv, err := h.Invoices.Get(r.Context(), id, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice id", http.StatusBadRequest)
		return
	}
	payment, err := h.Invoices.Pay(r.Context(), id, actorFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}
