package webhook

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type captureHandler struct {
	events []Event
	err    error
	panics bool
}

func (h *captureHandler) HandleMessage(_ context.Context, event Event) error {
	if h.panics {
		panic("handler exploded")
	}
	h.events = append(h.events, event)
	return h.err
}

func newTestProcessor(t *testing.T, handler MessageHandler) *Processor {
	t.Helper()
	return NewProcessor("prod-1", "phone-1", handler, slog.New(slog.DiscardHandler),
		WithClock(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }),
		WithRequestIDs(func() string { return "req-1" }),
	)
}

func TestProcessInvalidJSON(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, &captureHandler{})
	if got := p.Process(context.Background(), []byte("{not json")); got != TokenInvalidJSON {
		t.Fatalf("token = %q, want %q", got, TokenInvalidJSON)
	}
}

func TestProcessSourceMismatch(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, &captureHandler{})
	raw := []byte(`{"type":"message","product_id":"other","phone_id":"phone-1","message":{"id":"m1","type":"chat","text":"hi"}}`)
	if got := p.Process(context.Background(), raw); got != TokenUnauthorized {
		t.Fatalf("token = %q, want %q", got, TokenUnauthorized)
	}
}

func TestProcessEventTypes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want Token
	}{
		{"status", `{"type":"status","product_id":"prod-1","phone_id":"phone-1","body":"delivered"}`, TokenStatusProcessed},
		{"ack", `{"type":"ack","product_id":"prod-1","phone_id":"phone-1"}`, TokenAckProcessed},
		{"error", `{"type":"error","product_id":"prod-1","phone_id":"phone-1","code":"470"}`, TokenErrorProcessed},
		{"unknown", `{"type":"presence","product_id":"prod-1","phone_id":"phone-1"}`, TokenUnhandledType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newTestProcessor(t, &captureHandler{})
			if got := p.Process(context.Background(), []byte(tc.raw)); got != tc.want {
				t.Fatalf("token = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestProcessMessageDeliversEvent(t *testing.T) {
	t.Parallel()

	handler := &captureHandler{}
	p := newTestProcessor(t, handler)
	raw := []byte(`{"type":"message","product_id":"prod-1","phone_id":"phone-1","message":{"id":"m1","type":"chat","text":" data "},"user":{"name":"Rina","phone":"+8801711112222"}}`)

	if got := p.Process(context.Background(), raw); got != TokenMessageProcessed {
		t.Fatalf("token = %q, want %q", got, TokenMessageProcessed)
	}
	if len(handler.events) != 1 {
		t.Fatalf("expected one event, got %d", len(handler.events))
	}

	event := handler.events[0]
	if event.RequestID != "req-1" {
		t.Errorf("request id = %q", event.RequestID)
	}
	if event.RawSender != "+8801711112222" {
		t.Errorf("sender = %q", event.RawSender)
	}
	if event.Text != "data" {
		t.Errorf("text = %q, want trimmed body", event.Text)
	}
	if event.Kind != KindText {
		t.Errorf("kind = %q", event.Kind)
	}
	if event.SenderName != "Rina" {
		t.Errorf("sender name = %q", event.SenderName)
	}
	if event.MessageID != "m1" {
		t.Errorf("message id = %q", event.MessageID)
	}
}

func TestProcessMessageTextFallbacks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		message  string
		wantText string
		wantKind MessageKind
	}{
		{"caption", `{"id":"m2","type":"image","caption":"report"}`, "report", KindCaption},
		{"button", `{"id":"m3","type":"button_reply","selectedButtonId":"2"}`, "2", KindButton},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler := &captureHandler{}
			p := newTestProcessor(t, handler)
			raw := []byte(`{"type":"message","product_id":"prod-1","phone_id":"phone-1","message":` + tc.message + `,"user":{"phone":"8801711112222"}}`)

			if got := p.Process(context.Background(), raw); got != TokenMessageProcessed {
				t.Fatalf("token = %q, want %q", got, TokenMessageProcessed)
			}
			if handler.events[0].Text != tc.wantText {
				t.Errorf("text = %q, want %q", handler.events[0].Text, tc.wantText)
			}
			if handler.events[0].Kind != tc.wantKind {
				t.Errorf("kind = %q, want %q", handler.events[0].Kind, tc.wantKind)
			}
		})
	}
}

func TestProcessMessageNoData(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"missing message", `{"type":"message","product_id":"prod-1","phone_id":"phone-1"}`},
		{"no text", `{"type":"message","product_id":"prod-1","phone_id":"phone-1","message":{"id":"m1","type":"image"},"user":{"phone":"8801711112222"}}`},
		{"no sender", `{"type":"message","product_id":"prod-1","phone_id":"phone-1","message":{"id":"m1","type":"chat","text":"hi"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler := &captureHandler{}
			p := newTestProcessor(t, handler)
			if got := p.Process(context.Background(), []byte(tc.raw)); got != TokenNoData {
				t.Fatalf("token = %q, want %q", got, TokenNoData)
			}
			if len(handler.events) != 0 {
				t.Fatalf("handler should not run, got %d events", len(handler.events))
			}
		})
	}
}

func TestProcessMessageSkipsOwnEcho(t *testing.T) {
	t.Parallel()

	handler := &captureHandler{}
	p := newTestProcessor(t, handler)
	raw := []byte(`{"type":"message","product_id":"prod-1","phone_id":"phone-1","message":{"id":"m1","type":"chat","text":"hi","fromMe":true},"user":{"phone":"8801711112222"}}`)

	if got := p.Process(context.Background(), raw); got != TokenMessageProcessed {
		t.Fatalf("token = %q, want %q", got, TokenMessageProcessed)
	}
	if len(handler.events) != 0 {
		t.Fatal("echoed message should not reach the handler")
	}
}

func TestProcessMessageSenderFromConversation(t *testing.T) {
	t.Parallel()

	handler := &captureHandler{}
	p := newTestProcessor(t, handler)
	raw := []byte(`{"type":"message","product_id":"prod-1","phone_id":"phone-1","message":{"id":"m1","type":"chat","text":"hi"},"conversation":"8801711112222@c.us"}`)

	if got := p.Process(context.Background(), raw); got != TokenMessageProcessed {
		t.Fatalf("token = %q, want %q", got, TokenMessageProcessed)
	}
	if handler.events[0].RawSender != "8801711112222" {
		t.Errorf("sender = %q, want suffix stripped", handler.events[0].RawSender)
	}
}

func TestProcessMessageHandlerError(t *testing.T) {
	t.Parallel()

	handler := &captureHandler{err: errors.New("downstream unavailable")}
	p := newTestProcessor(t, handler)
	raw := []byte(`{"type":"message","product_id":"prod-1","phone_id":"phone-1","message":{"id":"m1","type":"chat","text":"hi"},"user":{"phone":"8801711112222"}}`)

	if got := p.Process(context.Background(), raw); got != TokenProcessingError {
		t.Fatalf("token = %q, want %q", got, TokenProcessingError)
	}
}

func TestProcessRecoversFromPanic(t *testing.T) {
	t.Parallel()

	handler := &captureHandler{panics: true}
	p := newTestProcessor(t, handler)
	raw := []byte(`{"type":"message","product_id":"prod-1","phone_id":"phone-1","message":{"id":"m1","type":"chat","text":"hi"},"user":{"phone":"8801711112222"}}`)

	if got := p.Process(context.Background(), raw); got != TokenProcessingError {
		t.Fatalf("token = %q, want %q", got, TokenProcessingError)
	}
}
