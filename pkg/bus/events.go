package bus

import "time"

// EventType tags one gateway lifecycle event.
type EventType string

const (
	EventMessageReceived EventType = "message_received"
	EventSenderUnknown   EventType = "sender_unknown"
	EventRateLimited     EventType = "rate_limited"
	EventSessionOpened   EventType = "session_opened"
	EventSessionClosed   EventType = "session_closed"
	EventSessionExpired  EventType = "session_expired"
	EventReplySent       EventType = "reply_sent"
	EventSendFailed      EventType = "send_failed"
)

// Event is one observed step in processing an inbound message.
type Event struct {
	Type      EventType `json:"type"`
	At        time.Time `json:"at"`
	RequestID string    `json:"request_id,omitempty"`
	SenderID  string    `json:"sender_id,omitempty"`
	Intent    string    `json:"intent,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Stamp fills the event timestamp when unset and returns the event.
func (e Event) Stamp() Event {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e
}
