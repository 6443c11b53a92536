// Package provider dispatches outbound replies through the chat provider's
// HTTP send API.
package provider

import "context"

// Sender delivers one text message to a canonical sender id. Implementations
// report an error when the message was not accepted; no retry happens at
// this layer.
type Sender interface {
	Send(ctx context.Context, to string, body string) error
}
