package webhooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
)

type stubService struct {
	events []*stripe.Event
	err    error
}

func (s *stubService) HandleEvent(_ context.Context, event *stripe.Event) error {
	s.events = append(s.events, event)
	return s.err
}

type stubVerifier struct {
	event stripe.Event
	err   error
}

func (s *stubVerifier) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return s.event, s.err
}

func TestStripeWebhookMissingSignatureRejected(t *testing.T) {
	svc := &stubService{}
	handler := StripeWebhook(svc, &stubVerifier{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatalf("service ran for an unsigned delivery")
	}
}

func TestStripeWebhookBadSignatureNeverProcessed(t *testing.T) {
	svc := &stubService{}
	verifier := &stubVerifier{err: pkgerrors.New(pkgerrors.CodeSignatureInvalid, "webhook signature verification failed")}
	handler := StripeWebhook(svc, verifier, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatalf("service ran for a badly signed delivery")
	}
}

func TestStripeWebhookVerifiedEventHandled(t *testing.T) {
	svc := &stubService{}
	verifier := &stubVerifier{event: stripe.Event{ID: "evt_1", Type: stripe.EventTypeAccountUpdated}}
	handler := StripeWebhook(svc, verifier, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if len(svc.events) != 1 || svc.events[0].ID != "evt_1" {
		t.Fatalf("expected exactly one handled event")
	}
}

func TestStripeWebhookProcessingErrorSurfaces(t *testing.T) {
	svc := &stubService{err: errors.New("ledger write failed")}
	verifier := &stubVerifier{event: stripe.Event{ID: "evt_2"}}
	handler := StripeWebhook(svc, verifier, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
