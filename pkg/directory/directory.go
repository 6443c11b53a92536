// Package directory defines the two capabilities the gateway consumes from
// the surrounding sales platform: resolving a sender to an employee identity
// and listing the report sheets available to that identity. The gateway never
// owns this data; it only reads it.
package directory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a canonical sender id has no identity in the
// directory.
var ErrNotFound = errors.New("identity not found")

// Identity is one employee known to the directory.
type Identity struct {
	ID            string
	DisplayName   string
	Role          string
	ContactHandle string // canonical sender id
}

// Option is one selectable report sheet, captured with enough context to
// render a list entry and to hand out an access link on selection.
type Option struct {
	Label       string
	RecordCount int
	UpdatedAt   time.Time
	AccessURL   string
	Position    int // 1-based position in the list shown to the user
}

// Resolver looks up identities by canonical sender id.
type Resolver interface {
	ResolveIdentity(ctx context.Context, senderID string) (Identity, error)
}

// ItemLister returns the ordered report sheets available to an identity.
type ItemLister interface {
	ListItemsFor(ctx context.Context, identity Identity) ([]Option, error)
}

// NopLister is the default ItemLister for deployments that wire a resolver
// but no sheet catalog. It always reports an empty list, which the gateway
// surfaces as "no sheets yet".
type NopLister struct{}

func (NopLister) ListItemsFor(context.Context, Identity) ([]Option, error) {
	return nil, nil
}
