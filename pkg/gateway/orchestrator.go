package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"fieldline/pkg/bus"
	"fieldline/pkg/dialog"
	"fieldline/pkg/directory"
	"fieldline/pkg/msisdn"
	"fieldline/pkg/provider"
	"fieldline/pkg/ratelimit"
	"fieldline/pkg/session"
	"fieldline/pkg/webhook"
)

// Orchestrator drives one inbound message through the full conversation
// pipeline: sender normalization, identity resolution, rate limiting, intent
// classification and the session state machine, ending in at most one
// outbound reply.
//
// It satisfies webhook.MessageHandler. A returned error marks the delivery
// as a processing failure at the webhook layer; expected outcomes such as
// unknown senders or rate denials reply to the user and return nil.
type Orchestrator struct {
	resolver   directory.Resolver
	lister     directory.ItemLister
	limiter    *ratelimit.Limiter
	sessions   *session.Store
	classifier *dialog.Classifier
	matcher    *dialog.Matcher
	sender     provider.Sender
	events     *bus.EventBus
	log        *slog.Logger
}

// NewOrchestrator wires the conversation pipeline together.
func NewOrchestrator(
	resolver directory.Resolver,
	lister directory.ItemLister,
	limiter *ratelimit.Limiter,
	sessions *session.Store,
	classifier *dialog.Classifier,
	matcher *dialog.Matcher,
	sender provider.Sender,
	events *bus.EventBus,
	log *slog.Logger,
) (*Orchestrator, error) {
	switch {
	case resolver == nil:
		return nil, errors.New("identity resolver is required")
	case lister == nil:
		return nil, errors.New("item lister is required")
	case limiter == nil:
		return nil, errors.New("rate limiter is required")
	case sessions == nil:
		return nil, errors.New("session store is required")
	case sender == nil:
		return nil, errors.New("message sender is required")
	}
	if classifier == nil {
		classifier = dialog.NewClassifier(dialog.DefaultKeywords())
	}
	if matcher == nil {
		matcher = dialog.NewMatcher(dialog.DefaultKeywords().Aliases)
	}
	if events == nil {
		events = bus.NewEventBus()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{
		resolver:   resolver,
		lister:     lister,
		limiter:    limiter,
		sessions:   sessions,
		classifier: classifier,
		matcher:    matcher,
		sender:     sender,
		events:     events,
		log:        log.With("component", "orchestrator"),
	}, nil
}

// HandleMessage processes one extracted webhook event end to end.
func (o *Orchestrator) HandleMessage(ctx context.Context, event webhook.Event) (retErr error) {
	log := o.log.With("request_id", event.RequestID)

	senderID, err := msisdn.Normalize(event.RawSender)
	if err != nil {
		// No canonical number means no reply target either; drop it.
		log.Warn("unparseable sender identifier", "raw_sender", event.RawSender)
		return nil
	}
	log = log.With("sender_id", senderID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("conversation handling panicked", "panic", r)
			o.reply(ctx, log, event.RequestID, senderID, "", dialog.Apology())
			retErr = fmt.Errorf("conversation handling panicked: %v", r)
		}
	}()

	o.publish(bus.Event{
		Type:      bus.EventMessageReceived,
		RequestID: event.RequestID,
		SenderID:  senderID,
		Detail:    string(event.Kind),
	})

	identity, err := o.resolver.ResolveIdentity(ctx, senderID)
	if errors.Is(err, directory.ErrNotFound) {
		log.Info("message from unregistered sender")
		o.publish(bus.Event{Type: bus.EventSenderUnknown, RequestID: event.RequestID, SenderID: senderID})
		o.reply(ctx, log, event.RequestID, senderID, "", dialog.RegistrationRequired())
		return nil
	}
	if err != nil {
		o.reply(ctx, log, event.RequestID, senderID, "", dialog.Apology())
		return fmt.Errorf("resolve identity: %w", err)
	}

	if result := o.limiter.Check(senderID); !result.Allowed {
		log.Info("sender rate limited", "window_count", result.Count)
		o.publish(bus.Event{
			Type:      bus.EventRateLimited,
			RequestID: event.RequestID,
			SenderID:  senderID,
			Detail:    strconv.Itoa(result.Count),
		})
		o.reply(ctx, log, event.RequestID, senderID, "", dialog.RateLimited())
		return nil
	}

	sess, open := o.sessions.Get(senderID)
	intent := o.classifier.Classify(event.Text, open)
	log = log.With("intent", string(intent))

	switch intent {
	case dialog.IntentCancel:
		return o.handleCancel(ctx, log, event, senderID, open)
	case dialog.IntentHelp:
		o.reply(ctx, log, event.RequestID, senderID, string(intent), dialog.Help())
		return nil
	case dialog.IntentDataRequest:
		return o.handleDataRequest(ctx, log, event, senderID, identity, open)
	case dialog.IntentSelection:
		return o.handleSelection(ctx, log, event, senderID, sess)
	default:
		return o.handleUnrecognized(ctx, log, event, senderID)
	}
}

func (o *Orchestrator) handleCancel(ctx context.Context, log *slog.Logger, event webhook.Event, senderID string, open bool) error {
	// Cancel is acknowledged even without an open dialogue; replying
	// "nothing to cancel" would only confuse a user whose session quietly
	// expired.
	if open {
		o.sessions.Close(senderID)
		o.publish(bus.Event{Type: bus.EventSessionClosed, RequestID: event.RequestID, SenderID: senderID, Intent: string(dialog.IntentCancel)})
	}
	o.reply(ctx, log, event.RequestID, senderID, string(dialog.IntentCancel), dialog.Cancelled())
	return nil
}

func (o *Orchestrator) handleDataRequest(ctx context.Context, log *slog.Logger, event webhook.Event, senderID string, identity directory.Identity, open bool) error {
	options, err := o.lister.ListItemsFor(ctx, identity)
	if err != nil {
		o.reply(ctx, log, event.RequestID, senderID, string(dialog.IntentDataRequest), dialog.Apology())
		return fmt.Errorf("list items for %s: %w", identity.ID, err)
	}

	if len(options) == 0 {
		// A stale dialogue must not survive an empty refresh; its option
		// snapshot no longer reflects anything selectable.
		if open {
			o.sessions.Close(senderID)
			o.publish(bus.Event{Type: bus.EventSessionClosed, RequestID: event.RequestID, SenderID: senderID, Intent: string(dialog.IntentDataRequest)})
		}
		o.reply(ctx, log, event.RequestID, senderID, string(dialog.IntentDataRequest), dialog.NoSheets(identity.DisplayName))
		return nil
	}

	for i := range options {
		if options[i].Position == 0 {
			options[i].Position = i + 1
		}
	}

	o.sessions.Open(senderID, options)
	o.publish(bus.Event{
		Type:      bus.EventSessionOpened,
		RequestID: event.RequestID,
		SenderID:  senderID,
		Intent:    string(dialog.IntentDataRequest),
		Detail:    strconv.Itoa(len(options)),
	})
	o.reply(ctx, log, event.RequestID, senderID, string(dialog.IntentDataRequest), dialog.SheetList(identity.DisplayName, options))
	return nil
}

func (o *Orchestrator) handleSelection(ctx context.Context, log *slog.Logger, event webhook.Event, senderID string, sess session.Session) error {
	opt, ok := o.matcher.Match(event.Text, sess.Options)
	if !ok {
		// Miss keeps the dialogue open on its original clock; reprompting
		// does not buy the user more time.
		log.Debug("selection did not match any option")
		o.reply(ctx, log, event.RequestID, senderID, string(dialog.IntentSelection), dialog.Reprompt(sess.Options))
		return nil
	}

	o.sessions.Close(senderID)
	o.publish(bus.Event{
		Type:      bus.EventSessionClosed,
		RequestID: event.RequestID,
		SenderID:  senderID,
		Intent:    string(dialog.IntentSelection),
		Detail:    opt.Label,
	})
	o.reply(ctx, log, event.RequestID, senderID, string(dialog.IntentSelection), dialog.SelectionResult(opt))
	return nil
}

func (o *Orchestrator) handleUnrecognized(ctx context.Context, log *slog.Logger, event webhook.Event, senderID string) error {
	// A bare number with no open dialogue almost always means the session
	// expired between the list and the reply.
	if isNumeric(event.Text) {
		o.publish(bus.Event{Type: bus.EventSessionExpired, RequestID: event.RequestID, SenderID: senderID})
		o.reply(ctx, log, event.RequestID, senderID, string(dialog.IntentUnrecognized), dialog.SessionExpired())
		return nil
	}

	o.reply(ctx, log, event.RequestID, senderID, string(dialog.IntentUnrecognized), dialog.Unrecognized())
	return nil
}

// reply sends one outbound message. Send failures are logged and published
// but never propagated: the provider offers no retry contract and the
// webhook already answered the delivery.
func (o *Orchestrator) reply(ctx context.Context, log *slog.Logger, requestID, senderID, intent, body string) {
	if err := o.sender.Send(ctx, senderID, body); err != nil {
		log.Error("outbound send failed", "error", err)
		o.publish(bus.Event{
			Type:      bus.EventSendFailed,
			RequestID: requestID,
			SenderID:  senderID,
			Intent:    intent,
			Detail:    err.Error(),
		})
		return
	}

	o.publish(bus.Event{
		Type:      bus.EventReplySent,
		RequestID: requestID,
		SenderID:  senderID,
		Intent:    intent,
	})
}

func (o *Orchestrator) publish(event bus.Event) {
	o.events.Publish(event.Stamp())
}

func isNumeric(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	_, err := strconv.Atoi(trimmed)
	return err == nil
}
