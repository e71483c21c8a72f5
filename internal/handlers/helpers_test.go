package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"qyzmetBack/internal/models"
	"qyzmetBack/internal/payments"
)

func TestActorFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/job/1", nil)
	ctx := context.WithValue(r.Context(), "user_id", 42)
	ctx = context.WithValue(ctx, "role", "provider")

	actor := actorFromRequest(r.WithContext(ctx))
	if actor.ID != 42 || actor.Role != "provider" {
		t.Fatalf("unexpected actor: %+v", actor)
	}

	anon := actorFromRequest(httptest.NewRequest(http.MethodGet, "/job/1", nil))
	if anon.ID != 0 || anon.Role != "" {
		t.Fatalf("expected zero actor, got %+v", anon)
	}
}

func TestPathID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/job/7?:id=7", nil)
	id, err := pathID(r, "id")
	if err != nil {
		t.Fatalf("pathID: %v", err)
	}
	if id != 7 {
		t.Fatalf("expected 7, got %d", id)
	}

	if _, err := pathID(httptest.NewRequest(http.MethodGet, "/job/x?:id=x", nil), "id"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not authenticated", models.ErrNotAuthenticated, http.StatusUnauthorized},
		{"bad credentials", models.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not owner", models.ErrNotOwner, http.StatusForbidden},
		{"job missing", models.ErrJobNotFound, http.StatusNotFound},
		{"no visit fee", models.ErrNoVisitFee, http.StatusBadRequest},
		{"invalid transition", models.ErrInvalidTransition, http.StatusConflict},
		{"provider busy", models.ErrProviderBusy, http.StatusConflict},
		{"invoice unpaid", models.ErrInvoiceNotPaid, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, tc.err)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRespondErrorRailFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, &payments.RailError{Op: "capture", Code: "card_declined", HTTPStatus: 402})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, errors.New("pq: relation jobs does not exist"))
	if rec.Body.String() == "pq: relation jobs does not exist\n" {
		t.Fatal("internal error leaked to the client")
	}
}
