// Package session tracks the short-lived dialogue state between showing a
// sender their sheet list and receiving their pick. Presence in the store is
// the state: a sender with no record is idle, a sender with a record is
// awaiting a selection. Records are only ever written whole or deleted, so
// readers never observe a half-updated session.
package session

import (
	"encoding/json"
	"log/slog"
	"time"

	"fieldline/pkg/directory"
	"fieldline/pkg/store"
)

// DefaultTTL bounds how long the gateway waits for a selection reply.
const DefaultTTL = 600 * time.Second

const keyPrefix = "session:"

// State is the dialogue phase recorded in a stored session.
type State string

// StateAwaitingSelection is the only stored state; idle senders simply have
// no session record.
const StateAwaitingSelection State = "awaiting_selection"

// Session is one sender's open dialogue, carrying the option snapshot taken
// when the list was shown. Selections always resolve against this snapshot,
// even if the underlying sheets change mid-dialogue.
type Session struct {
	SenderID  string             `json:"sender_id"`
	State     State              `json:"state"`
	Options   []directory.Option `json:"options"`
	CreatedAt time.Time          `json:"created_at"`
}

// Store persists sessions in the expiring key-value store.
type Store struct {
	backing store.Store
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// Option customizes a session Store.
type Option func(*Store)

// WithClock overrides the store's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore constructs a session store. A non-positive TTL falls back to
// DefaultTTL.
func NewStore(backing store.Store, ttl time.Duration, log *slog.Logger, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Store{
		backing: backing,
		ttl:     ttl,
		now:     time.Now,
		log:     log.With("component", "session"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open creates a session for the sender with a fresh TTL, snapshotting the
// given options. Any prior session for the sender is overwritten.
func (s *Store) Open(senderID string, options []directory.Option) Session {
	opened := Session{
		SenderID:  senderID,
		State:     StateAwaitingSelection,
		Options:   append([]directory.Option(nil), options...),
		CreatedAt: s.now(),
	}

	raw, err := json.Marshal(opened)
	if err != nil {
		s.log.Error("encode session failed", "sender_id", senderID, "error", err)
		return opened
	}
	s.backing.Set(keyPrefix+senderID, raw, s.ttl)
	return opened
}

// Get returns the sender's open session, or ok=false when none exists or the
// TTL has elapsed.
func (s *Store) Get(senderID string) (Session, bool) {
	raw, ok := s.backing.Get(keyPrefix + senderID)
	if !ok {
		return Session{}, false
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.log.Warn("dropping unreadable session", "sender_id", senderID, "error", err)
		s.backing.Delete(keyPrefix + senderID)
		return Session{}, false
	}
	return sess, true
}

// Close removes the sender's session, if any. Used on resolution,
// cancellation, and invalid-session recovery.
func (s *Store) Close(senderID string) {
	s.backing.Delete(keyPrefix + senderID)
}
