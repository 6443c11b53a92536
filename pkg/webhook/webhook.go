// Package webhook parses and authenticates chat-provider callbacks and hands
// extracted message events to the conversation layer.
//
// Every handling path, failures included, resolves to a textual status token
// and an HTTP 200 at the transport: signaling an error status would only
// invite the provider's retry policy to re-deliver the same event.
package webhook

import (
	"context"
	"time"
)

// Token is the textual outcome of handling one webhook delivery.
type Token string

const (
	TokenMessageProcessed Token = "MESSAGE_PROCESSED"
	TokenStatusProcessed  Token = "STATUS_PROCESSED"
	TokenAckProcessed     Token = "ACK_PROCESSED"
	TokenErrorProcessed   Token = "ERROR_PROCESSED"
	TokenUnhandledType    Token = "UNHANDLED_TYPE"
	TokenNoData           Token = "NO_DATA"
	TokenInvalidJSON      Token = "INVALID_JSON"
	TokenUnauthorized     Token = "UNAUTHORIZED"
	TokenProcessingError  Token = "PROCESSING_ERROR"
)

// MessageKind records where an event's text came from.
type MessageKind string

const (
	KindText    MessageKind = "text"
	KindCaption MessageKind = "caption"
	KindButton  MessageKind = "button"
)

// Event is one extracted inbound message, the unit of work handed to the
// conversation layer. Events are built per delivery and discarded after
// processing; nothing here is persisted.
type Event struct {
	RequestID  string
	RawSender  string
	Text       string
	Kind       MessageKind
	MessageID  string
	ReceivedAt time.Time
	SenderName string
}

// MessageHandler processes one extracted message event. Implementations own
// user-facing error handling; a returned error means something unexpected
// that the caller should record as a processing failure.
type MessageHandler interface {
	HandleMessage(ctx context.Context, event Event) error
}

// payload is the provider's callback envelope.
type payload struct {
	Type         string   `json:"type"`
	ProductID    string   `json:"product_id"`
	PhoneID      string   `json:"phone_id"`
	Message      *message `json:"message,omitempty"`
	Conversation string   `json:"conversation,omitempty"`
	User         *user    `json:"user,omitempty"`
	Timestamp    int64    `json:"timestamp,omitempty"`
	Body         string   `json:"body,omitempty"`
	Code         string   `json:"code,omitempty"`
}

type message struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	Text             string `json:"text,omitempty"`
	Caption          string `json:"caption,omitempty"`
	FromMe           bool   `json:"fromMe"`
	SelectedButtonID string `json:"selectedButtonId,omitempty"`
}

type user struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}
