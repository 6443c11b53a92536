package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fieldline/pkg/msisdn"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultBodyLimit = 16 * 1024
	apiKeyHeader     = "X-API-Key"
)

// ErrSendRejected is returned when the provider answered with a non-2xx
// status.
var ErrSendRejected = errors.New("provider rejected message")

// HTTPClient abstracts http.Client's Do method for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// sendPayload is the provider's wire format for text messages.
type sendPayload struct {
	ToNumber string `json:"to_number"`
	Message  string `json:"message"`
	Type     string `json:"type"`
}

// HTTPSender posts messages to the configured send endpoint. Each Send is
// one synchronous call: failures are logged and reported to the caller, and
// whether to give up or re-prompt is the caller's decision.
type HTTPSender struct {
	url          string
	apiKey       string
	client       HTTPClient
	maxBodyBytes int64
	log          *slog.Logger
}

// HTTPOption customizes an HTTPSender.
type HTTPOption func(*HTTPSender)

// WithHTTPClient overrides the HTTP client used to reach the provider.
func WithHTTPClient(client HTTPClient) HTTPOption {
	return func(s *HTTPSender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithBodyLimit adjusts how many bytes of an error response are retained for
// logging.
func WithBodyLimit(limit int64) HTTPOption {
	return func(s *HTTPSender) {
		if limit > 0 {
			s.maxBodyBytes = limit
		}
	}
}

// NewHTTPSender constructs a sender for the given endpoint and API key.
func NewHTTPSender(url, apiKey string, log *slog.Logger, opts ...HTTPOption) (*HTTPSender, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("provider send url is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("provider api key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &HTTPSender{
		url:          strings.TrimSpace(url),
		apiKey:       strings.TrimSpace(apiKey),
		client:       &http.Client{Timeout: defaultTimeout},
		maxBodyBytes: defaultBodyLimit,
		log:          log.With("component", "provider.http"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Send validates the target, posts the message, and treats any 2xx response
// as delivered to the provider. Everything else, transport errors included,
// comes back as an error after being logged.
func (s *HTTPSender) Send(ctx context.Context, to string, body string) error {
	target, err := msisdn.Normalize(to)
	if err != nil {
		s.log.Warn("refusing send to invalid target", "error", err)
		return fmt.Errorf("send target: %w", err)
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("message body is required")
	}

	payload, err := json.Marshal(sendPayload{ToNumber: target, Message: body, Type: "text"})
	if err != nil {
		return fmt.Errorf("encode send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("send transport failed", "to", target, "error", err)
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
		s.log.Error("send rejected", "to", target, "status", resp.StatusCode, "body", string(snippet))
		return fmt.Errorf("%w: status %d", ErrSendRejected, resp.StatusCode)
	}

	s.log.Info("message sent", "to", target)
	return nil
}
