package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stripe/stripe-go/v76"
)

func testRail(t *testing.T, handler http.Handler) (*StripeRail, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(ts.URL),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
		MaxNetworkRetries: stripe.Int64(0),
	})
	rail, err := NewStripeRail(StripeConfig{
		SecretKey: "sk_test_123",
		Currency:  "kzt",
		Backends:  &stripe.Backends{API: backend, Connect: backend, Uploads: backend},
	})
	if err != nil {
		t.Fatalf("failed to create rail: %v", err)
	}
	return rail, ts
}

func TestCreateHold_SendsManualCaptureAndIdempotencyKey(t *testing.T) {
	var gotKey, gotCapture string
	rail, _ := testRail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		_ = r.ParseForm()
		gotCapture = r.PostForm.Get("capture_method")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","status":"requires_payment_method","client_secret":"pi_123_secret","amount":35000,"currency":"kzt"}`))
	}))

	hold, err := rail.CreateHold(context.Background(), CreateHoldParams{
		Amount:         350,
		CustomerRef:    "cus_1",
		IdempotencyKey: "visit-hold-job-42",
		Metadata:       map[string]string{"job_id": "42"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "visit-hold-job-42" {
		t.Errorf("idempotency key not sent, got %q", gotKey)
	}
	if gotCapture != "manual" {
		t.Errorf("expected manual capture, got %q", gotCapture)
	}
	if hold.Ref != "pi_123" {
		t.Errorf("hold ref mismatch: %q", hold.Ref)
	}
	if hold.State != HoldRequiresPaymentMethod {
		t.Errorf("hold state mismatch: %q", hold.State)
	}
	if hold.ClientSecret != "pi_123_secret" {
		t.Errorf("client secret mismatch: %q", hold.ClientSecret)
	}
	if hold.Amount != 350 {
		t.Errorf("amount mismatch: %v", hold.Amount)
	}
}

func TestCaptureHold_MapsState(t *testing.T) {
	rail, _ := testRail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","status":"succeeded","amount":35000,"currency":"kzt"}`))
	}))

	hold, err := rail.CaptureHold(context.Background(), "pi_123", "visit-capture-job-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hold.State != HoldSucceeded {
		t.Errorf("expected succeeded, got %q", hold.State)
	}
}

func TestWrap_StripeErrorBecomesRailError(t *testing.T) {
	rail, _ := testRail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	}))

	_, err := rail.CaptureHold(context.Background(), "pi_123", "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	railErr, ok := err.(*RailError)
	if !ok {
		t.Fatalf("expected RailError, got %T", err)
	}
	if railErr.Op != "capture_hold" {
		t.Errorf("unexpected op: %q", railErr.Op)
	}
	if railErr.Code != "card_declined" {
		t.Errorf("unexpected code: %q", railErr.Code)
	}
}

func TestHoldStateUncaptured(t *testing.T) {
	for _, s := range []HoldState{HoldRequiresPaymentMethod, HoldRequiresConfirmation, HoldRequiresCapture, HoldProcessing} {
		if !s.Uncaptured() {
			t.Errorf("%s should be uncaptured", s)
		}
	}
	for _, s := range []HoldState{HoldSucceeded, HoldCanceled} {
		if s.Uncaptured() {
			t.Errorf("%s should not be uncaptured", s)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	if minorUnits(350) != 35000 {
		t.Errorf("350 -> %d", minorUnits(350))
	}
	if minorUnits(10.005) != 1001 {
		t.Errorf("10.005 -> %d", minorUnits(10.005))
	}
}
