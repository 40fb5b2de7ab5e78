package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memoryEntry struct {
	expiry time.Time
	entry  Entry
}

// Memory is a thread-safe in-process cache with per-entry expiry.
type Memory struct {
	entries   map[string]memoryEntry
	stopCh    chan struct{}
	closeOnce sync.Once
	ttl       time.Duration
	mu        sync.RWMutex
}

// NewMemory creates a memory cache and starts its cleanup goroutine. Close stops it.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go c.cleanup(min(ttl, 5*time.Minute))

	return c
}

// Get returns a copy of the entry stored under key if it has not expired.
func (c *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiry) {
		return Entry{}, false, nil
	}

	return copyEntry(e.entry), true, nil
}

// Set stores a copy of entry under key.
func (c *Memory) Set(_ context.Context, key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		entry:  copyEntry(entry),
		expiry: time.Now().Add(c.ttl),
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *Memory) Close() error {
	c.closeOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *Memory) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, e := range c.entries {
				if now.After(e.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func copyEntry(e Entry) Entry {
	return Entry{Records: slices.Clone(e.Records), Warnings: slices.Clone(e.Warnings)}
}
