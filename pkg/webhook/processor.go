package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// conversationSuffixes are the provider-specific tails stripped when a
// sender id has to be derived from a conversation identifier because the
// structured user.phone field was absent.
var conversationSuffixes = []string{"@c.us", "@s.whatsapp.net", "@g.us"}

// Processor validates webhook deliveries and routes message events to the
// conversation layer.
type Processor struct {
	productID string
	phoneID   string
	handler   MessageHandler
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithClock overrides the processor's time source.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(newID func() string) ProcessorOption {
	return func(p *Processor) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// NewProcessor constructs a Processor bound to the expected source
// identifiers.
func NewProcessor(productID, phoneID string, handler MessageHandler, log *slog.Logger, opts ...ProcessorOption) *Processor {
	if log == nil {
		log = slog.Default()
	}

	p := &Processor{
		productID: strings.TrimSpace(productID),
		phoneID:   strings.TrimSpace(phoneID),
		handler:   handler,
		log:       log.With("component", "webhook"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Process handles one raw webhook delivery and always resolves to a token.
// Panics anywhere below are converted to TokenProcessingError; nothing
// escapes to the HTTP transport.
func (p *Processor) Process(ctx context.Context, raw []byte) (token Token) {
	requestID := p.newID()
	log := p.log.With("request_id", requestID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("webhook handling panicked", "panic", r)
			token = TokenProcessingError
		}
	}()

	var pl payload
	if err := json.Unmarshal(raw, &pl); err != nil {
		log.Warn("undecodable webhook payload", "error", err)
		return TokenInvalidJSON
	}

	if pl.ProductID != p.productID || pl.PhoneID != p.phoneID {
		log.Warn("webhook source mismatch", "product_id", pl.ProductID, "phone_id", pl.PhoneID)
		return TokenUnauthorized
	}

	switch pl.Type {
	case "message":
		return p.handleMessage(ctx, log, requestID, pl)
	case "status":
		log.Debug("delivery status received", "body", pl.Body)
		return TokenStatusProcessed
	case "ack":
		log.Debug("ack received")
		return TokenAckProcessed
	case "error":
		log.Warn("provider error event", "code", pl.Code, "body", pl.Body)
		return TokenErrorProcessed
	default:
		log.Warn("unhandled webhook type", "type", pl.Type)
		return TokenUnhandledType
	}
}

func (p *Processor) handleMessage(ctx context.Context, log *slog.Logger, requestID string, pl payload) Token {
	if pl.Message == nil {
		return TokenNoData
	}
	if pl.Message.FromMe {
		// Echo of our own outbound message; nothing to do.
		return TokenMessageProcessed
	}

	text, kind, ok := extractText(pl.Message)
	if !ok {
		log.Debug("message without usable text", "message_type", pl.Message.Type)
		return TokenNoData
	}

	sender, name, ok := extractSender(pl)
	if !ok {
		log.Warn("message without usable sender")
		return TokenNoData
	}

	event := Event{
		RequestID:  requestID,
		RawSender:  sender,
		Text:       text,
		Kind:       kind,
		MessageID:  pl.Message.ID,
		ReceivedAt: p.now(),
		SenderName: name,
	}

	if p.handler == nil {
		log.Error("no message handler configured")
		return TokenProcessingError
	}
	if err := p.handler.HandleMessage(ctx, event); err != nil {
		log.Error("message handling failed", "error", err)
		return TokenProcessingError
	}
	return TokenMessageProcessed
}

// extractText pulls the usable text out of a message with documented
// fallbacks: body text, then media caption, then a pressed button id.
func extractText(m *message) (string, MessageKind, bool) {
	if text := strings.TrimSpace(m.Text); text != "" {
		return text, KindText, true
	}
	if caption := strings.TrimSpace(m.Caption); caption != "" {
		return caption, KindCaption, true
	}
	if button := strings.TrimSpace(m.SelectedButtonID); button != "" {
		return button, KindButton, true
	}
	return "", "", false
}

// extractSender prefers the structured user.phone field and falls back to
// deriving a number from the conversation identifier.
func extractSender(pl payload) (sender string, name string, ok bool) {
	if pl.User != nil {
		name = strings.TrimSpace(pl.User.Name)
		if phone := strings.TrimSpace(pl.User.Phone); phone != "" {
			return phone, name, true
		}
	}

	conversation := strings.TrimSpace(pl.Conversation)
	if conversation == "" {
		return "", name, false
	}
	for _, suffix := range conversationSuffixes {
		conversation = strings.TrimSuffix(conversation, suffix)
	}
	if conversation == "" {
		return "", name, false
	}
	return conversation, name, true
}
