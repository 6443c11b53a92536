// Package gateway hosts the webhook HTTP surface and the conversation
// orchestrator behind it.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fieldline/pkg/config"
	"fieldline/pkg/webhook"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = 8790

	// maxWebhookBody caps a single delivery; the provider sends small JSON
	// envelopes, anything beyond this is garbage.
	maxWebhookBody = 1 << 20

	directoryCheckInterval = 30 * time.Second
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Service runs the HTTP listener: the provider webhook plus liveness and
// readiness probes.
type Service struct {
	cfg       *config.Config
	log       *slog.Logger
	processor *webhook.Processor
	checker   HealthChecker

	mu                sync.RWMutex
	startedAt         time.Time
	directoryLastOKAt time.Time
	directoryLastErr  string
}

type statusResponse struct {
	Status            string `json:"status"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
	DirectoryLastOKAt string `json:"directory_last_ok_at,omitempty"`
	DirectoryLastErr  string `json:"directory_last_error,omitempty"`
}

// NewService wires the HTTP surface. The processor owns all webhook
// semantics; the service only moves bytes and status codes.
func NewService(cfg *config.Config, processor *webhook.Processor, checker HealthChecker, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if processor == nil {
		return nil, errors.New("webhook processor is required")
	}
	if checker == nil {
		return nil, errors.New("directory health checker is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:       cfg,
		log:       log.With("component", "gateway.service"),
		processor: processor,
		checker:   checker,
	}, nil
}

// Run serves HTTP until the context is cancelled or the listener fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.checkDirectoryHealth(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(directoryCheckInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.checkDirectoryHealth(ctx)
			}
		}
	}()

	serverErrors := make(chan error, 1)
	go s.runServer(ctx, serverErrors)

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	}
}

// Router builds the HTTP routing table. Exposed for in-process tests.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/webhook", s.handleWebhook)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	return r
}

func (s *Service) runServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultPort
	}

	addr := host + ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway listening", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start gateway server: %w", err)
	}
}

// handleWebhook always answers 200 with a textual token. Non-200 responses
// would trigger the provider's redelivery policy and duplicate messages.
func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		s.log.Warn("unreadable webhook body", "error", err)
		s.writeToken(w, webhook.TokenInvalidJSON)
		return
	}

	token := s.processor.Process(r.Context(), raw)
	s.writeToken(w, token)
}

func (s *Service) writeToken(w http.ResponseWriter, token webhook.Token) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": string(token)}); err != nil {
		s.log.Error("Failed to write webhook response", "error", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	lastOK := ""
	if !s.directoryLastOKAt.IsZero() {
		lastOK = s.directoryLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:            status,
		UptimeSeconds:     uptime,
		DirectoryLastOKAt: lastOK,
		DirectoryLastErr:  s.directoryLastErr,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.directoryLastOKAt.IsZero() {
		return false
	}

	return s.directoryLastErr == ""
}

func (s *Service) checkDirectoryHealth(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.checker.Ping(checkCtx); err != nil {
		s.mu.Lock()
		s.directoryLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("directory health check failed: %w", err)
	}

	s.mu.Lock()
	s.directoryLastErr = ""
	s.directoryLastOKAt = time.Now().UTC()
	s.mu.Unlock()

	return nil
}
