// Package service defines domain-level interfaces implemented by infra.
package service

import (
	"context"
	"time"
)

// KVCache is the ephemeral key/value cache and pub/sub bus. All operations
// are atomic at the single-key level; nothing in the domain relies on
// multi-key transactions.
type KVCache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetTTL stores value under key. A non-positive ttl stores without
	// expiry.
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores value under key only if the key is absent, returning
	// whether the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Publish sends payload to every subscriber of channel.
	Publish(ctx context.Context, channel, payload string) error

	// Subscribe opens a subscription on channel. The subscription stays
	// valid until closed; Receive honours context cancellation.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Close releases the underlying connection.
	Close() error
}

// Subscription is a live pub/sub channel subscription.
type Subscription interface {
	// Receive blocks until a message arrives or ctx is done.
	Receive(ctx context.Context) (string, error)

	// Close tears the subscription down.
	Close() error
}
