// Package store provides the expiring key-value store backing rate windows
// and conversation sessions. Entries carry a TTL enforced lazily: an expired
// entry is detected (and dropped) on the next read, never by a sweeper.
package store

import "time"

// Store is a minimal expiring key-value contract. Values are opaque bytes;
// callers own their own encoding.
type Store interface {
	// Set writes a value under key with the given TTL, replacing any
	// previous entry. A non-positive TTL stores the entry without expiry.
	Set(key string, value []byte, ttl time.Duration)

	// Get returns the value for key, or ok=false when the key is absent or
	// its TTL has elapsed.
	Get(key string) (value []byte, ok bool)

	// Delete removes the entry for key, if any.
	Delete(key string)
}
