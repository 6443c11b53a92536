// Package ratelimit caps how many messages one sender may submit inside a
// fixed time window. Window records live in the expiring store under the
// sender's canonical id, so an idle sender's record disappears on its own.
package ratelimit

import (
	"encoding/json"
	"log/slog"
	"time"

	"fieldline/pkg/store"
)

const (
	// DefaultMaxMessages is the per-window message cap when config is silent.
	DefaultMaxMessages = 10
	// DefaultWindow is the window length when config is silent.
	DefaultWindow = 300 * time.Second

	keyPrefix = "rate:"
)

// window is the stored per-sender counter record.
type window struct {
	StartedAt time.Time `json:"started_at"`
	Count     int       `json:"count"`
}

// Result reports the outcome of one rate check.
type Result struct {
	// Allowed is false once the sender exceeded the cap for the current
	// window.
	Allowed bool
	// Count is the number of messages observed in the window including this
	// one. Denied messages still count, so the record shows how far past the
	// cap a sender pushed.
	Count int
}

// Limiter implements the fixed-window algorithm over an expiring store.
//
// The store offers no atomic increment, so two near-simultaneous messages
// from the same sender can read the same count and both pass. That is a
// documented limitation: the blast radius is one extra allowed message, and
// enforcement stays eventual rather than strict.
type Limiter struct {
	store  store.Store
	max    int
	length time.Duration
	now    func() time.Time
	log    *slog.Logger
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a Limiter. Non-positive max or window length fall back to
// the defaults.
func New(s store.Store, maxMessages int, windowLength time.Duration, log *slog.Logger, opts ...Option) *Limiter {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if windowLength <= 0 {
		windowLength = DefaultWindow
	}
	if log == nil {
		log = slog.Default()
	}

	l := &Limiter{
		store:  s,
		max:    maxMessages,
		length: windowLength,
		now:    time.Now,
		log:    log.With("component", "ratelimit"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Check records one inbound message for the sender and reports whether it is
// allowed. A fresh window opens when no record exists or the previous window
// has elapsed; otherwise the count increments and the message is allowed
// while the new count stays within the cap. A denial never resets or extends
// the window boundary.
func (l *Limiter) Check(senderID string) Result {
	key := keyPrefix + senderID
	now := l.now()

	current, ok := l.read(key)
	if !ok || now.Sub(current.StartedAt) >= l.length {
		opened := window{StartedAt: now, Count: 1}
		l.write(key, opened, l.length)
		return Result{Allowed: true, Count: 1}
	}

	current.Count++
	remaining := l.length - now.Sub(current.StartedAt)
	l.write(key, current, remaining)

	if current.Count > l.max {
		l.log.Warn("sender rate limited", "sender_id", senderID, "count", current.Count, "max", l.max)
		return Result{Allowed: false, Count: current.Count}
	}
	return Result{Allowed: true, Count: current.Count}
}

func (l *Limiter) read(key string) (window, bool) {
	raw, ok := l.store.Get(key)
	if !ok {
		return window{}, false
	}
	var w window
	if err := json.Unmarshal(raw, &w); err != nil {
		// A corrupt record is unrecoverable; drop it and start over.
		l.log.Warn("dropping unreadable rate window", "key", key, "error", err)
		l.store.Delete(key)
		return window{}, false
	}
	return w, true
}

func (l *Limiter) write(key string, w window, ttl time.Duration) {
	raw, err := json.Marshal(w)
	if err != nil {
		l.log.Error("encode rate window failed", "key", key, "error", err)
		return
	}
	l.store.Set(key, raw, ttl)
}
