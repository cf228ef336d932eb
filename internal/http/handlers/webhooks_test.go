package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rental-backend/internal/domain"
	"rental-backend/internal/payments"
	"rental-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type stubVerifier struct {
	evt services.WebhookEvent
	err error
}

func (s stubVerifier) Verify(_ []byte, _ string) (services.WebhookEvent, error) {
	return s.evt, s.err
}

type stubProcessor struct {
	calls int
	out   services.WebhookOutcome
	err   error
}

func (s *stubProcessor) Process(_ context.Context, _ string, evt services.WebhookEvent) (services.WebhookOutcome, error) {
	s.calls++
	s.out.EventID = evt.ID
	return s.out, s.err
}

func postWebhook(t *testing.T, hs *Handlers) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/webhooks/stripe", hs.StripeWebhook)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	proc := &stubProcessor{}
	hs := &Handlers{
		Verifier: stubVerifier{err: errors.Join(payments.ErrInvalidSignature, errors.New("no match"))},
		Webhooks: proc,
	}

	w := postWebhook(t, hs)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if proc.calls != 0 {
		t.Fatalf("unverified events must not be processed")
	}
}

func TestStripeWebhookAcknowledges(t *testing.T) {
	proc := &stubProcessor{out: services.WebhookOutcome{Duplicate: true}}
	hs := &Handlers{Verifier: stubVerifier{evt: services.WebhookEvent{ID: "evt_1"}}, Webhooks: proc}

	w := postWebhook(t, hs)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["received"] != true || body["duplicate"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestStripeWebhookStatusForFailures(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"datastore":        {err: domain.InternalError{Msg: "booking update failed"}, want: http.StatusInternalServerError},
		"provider":         {err: domain.ExternalError{Service: "identity", Code: "gateway_unavailable"}, want: http.StatusInternalServerError},
		"malformed object": {err: domain.ValidationError{Field: "data.object", Msg: "invalid"}, want: http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			hs := &Handlers{
				Verifier: stubVerifier{evt: services.WebhookEvent{ID: "evt_1"}},
				Webhooks: &stubProcessor{err: tc.err},
			}
			if w := postWebhook(t, hs); w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}
