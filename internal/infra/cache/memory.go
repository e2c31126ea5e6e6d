package cache

import (
	"context"
	"sync"
	"time"

	"aspen/internal/domain/service"
)

// MemoryCache is an in-process service.KVCache with the same single-key
// atomicity and pub/sub semantics as the redis implementation. It backs
// tests and single-node deployments without a redis.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	channels map[string][]chan string
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
	hasExpiry bool
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]memoryEntry),
		channels: make(map[string][]chan string),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if entry.hasExpiry && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)

		return "", false, nil
	}

	return entry.value, true, nil
}

func (c *MemoryCache) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = newMemoryEntry(value, ttl)

	return nil
}

func (c *MemoryCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		if !entry.hasExpiry || time.Now().Before(entry.expiresAt) {
			return false, nil
		}
	}
	c.entries[key] = newMemoryEntry(value, ttl)

	return true, nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

func (c *MemoryCache) Publish(ctx context.Context, channel, payload string) error {
	c.mu.Lock()
	subscribers := make([]chan string, len(c.channels[channel]))
	copy(subscribers, c.channels[channel])
	c.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- payload:
		default:
			// Slow subscriber; pub/sub delivery is best-effort.
		}
	}

	return nil
}

func (c *MemoryCache) Subscribe(ctx context.Context, channel string) (service.Subscription, error) {
	ch := make(chan string, 16)

	c.mu.Lock()
	c.channels[channel] = append(c.channels[channel], ch)
	c.mu.Unlock()

	return &memorySubscription{cache: c, channel: channel, ch: ch}, nil
}

func (c *MemoryCache) Close() error {
	return nil
}

func newMemoryEntry(value string, ttl time.Duration) memoryEntry {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.hasExpiry = true
		entry.expiresAt = time.Now().Add(ttl)
	}

	return entry
}

type memorySubscription struct {
	cache   *MemoryCache
	channel string
	ch      chan string
}

func (s *memorySubscription) Receive(ctx context.Context) (string, error) {
	select {
	case payload := <-s.ch:
		return payload, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *memorySubscription) Close() error {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	subscribers := s.cache.channels[s.channel]
	for i, ch := range subscribers {
		if ch == s.ch {
			s.cache.channels[s.channel] = append(subscribers[:i], subscribers[i+1:]...)

			break
		}
	}

	return nil
}

var _ service.KVCache = (*MemoryCache)(nil)
