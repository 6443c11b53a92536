package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fieldline/pkg/config"
	"fieldline/pkg/webhook"
)

type stubHandler struct{ err error }

func (h *stubHandler) HandleMessage(context.Context, webhook.Event) error { return h.err }

type stubChecker struct{ err error }

func (c *stubChecker) Ping(context.Context) error { return c.err }

func newTestService(t *testing.T, handler webhook.MessageHandler, checker HealthChecker) *Service {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	processor := webhook.NewProcessor("prod-1", "phone-1", handler, log)
	svc, err := NewService(config.Default(), processor, checker, log)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestIsReady(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubHandler{}, &stubChecker{})
	if svc.isReady() {
		t.Fatal("expected not ready before the first directory check")
	}

	svc.directoryLastOKAt = time.Now().UTC()
	if !svc.isReady() {
		t.Fatal("expected ready after a successful directory check")
	}

	svc.directoryLastErr = "database is locked"
	if svc.isReady() {
		t.Fatal("expected not ready while the directory check fails")
	}
}

func TestCheckDirectoryHealth(t *testing.T) {
	t.Parallel()

	checker := &stubChecker{err: errors.New("unreachable")}
	svc := newTestService(t, &stubHandler{}, checker)

	if err := svc.checkDirectoryHealth(context.Background()); err == nil {
		t.Fatal("expected error from failing checker")
	}
	if svc.isReady() {
		t.Fatal("expected not ready after failed check")
	}

	checker.err = nil
	if err := svc.checkDirectoryHealth(context.Background()); err != nil {
		t.Fatalf("checkDirectoryHealth: %v", err)
	}
	if !svc.isReady() {
		t.Fatal("expected ready after recovered check")
	}
}

func TestWebhookAlwaysRespondsOK(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		body      string
		wantToken webhook.Token
	}{
		{"invalid json", "{broken", webhook.TokenInvalidJSON},
		{"unauthorized", `{"type":"message","product_id":"spoof","phone_id":"phone-1"}`, webhook.TokenUnauthorized},
		{"status event", `{"type":"status","product_id":"prod-1","phone_id":"phone-1"}`, webhook.TokenStatusProcessed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestService(t, &stubHandler{}, &stubChecker{})
			router := svc.Router()

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tc.body))
			router.ServeHTTP(recorder, request)

			if recorder.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 on every webhook outcome", recorder.Code)
			}
			if !strings.Contains(recorder.Body.String(), string(tc.wantToken)) {
				t.Errorf("body = %q, want token %q", recorder.Body.String(), tc.wantToken)
			}
		})
	}
}

func TestWebhookHandlerErrorStillOK(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubHandler{err: errors.New("downstream failed")}, &stubChecker{})
	router := svc.Router()

	body := `{"type":"message","product_id":"prod-1","phone_id":"phone-1","message":{"id":"m1","type":"chat","text":"hi"},"user":{"phone":"8801711112222"}}`
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), string(webhook.TokenProcessingError)) {
		t.Errorf("body = %q, want processing error token", recorder.Body.String())
	}
}
