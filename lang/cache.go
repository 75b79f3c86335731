package lang

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"github.com/ardnew/tagtmpl/log"
)

// DefaultCacheCapacity is the number of parsed templates a [Cache] holds
// unless configured otherwise.
const DefaultCacheCapacity = 200

// Cache memoizes parsed templates keyed by their raw text.
//
// The cache holds at most its capacity of entries. When full, the entry
// inserted first is evicted before a new one is stored; lookups never
// reorder entries. Concurrent misses for the same text parse it once.
// Failed parses are not stored.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]Template
	order    []string // insertion order, oldest first
	group    singleflight.Group
	logger   log.Logger
	metrics  *Metrics
}

// NewCache returns an empty cache holding at most capacity templates.
// A capacity less than 1 is replaced by [DefaultCacheCapacity].
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}

	return &Cache{
		capacity: capacity,
		entries:  make(map[string]Template, capacity),
		order:    make([]string, 0, capacity),
	}
}

// GetOrParse returns the parsed form of text, parsing and storing it on a
// miss. The result is identical to [Parse] whether or not text was cached.
func (c *Cache) GetOrParse(ctx context.Context, text string) (Template, error) {
	if t, ok := c.lookup(text); ok {
		c.metrics.hit()
		c.logger.TraceContext(ctx, "cache hit", slog.String("key", keyHash(text)))

		return t, nil
	}

	c.metrics.miss()

	v, err, shared := c.group.Do(text, func() (any, error) {
		// Another caller may have stored it between lookup and Do.
		if t, ok := c.lookup(text); ok {
			return t, nil
		}

		c.logger.TraceContext(
			ctx,
			"parse start",
			slog.String("key", keyHash(text)),
			slog.Int("source_length", len(text)),
		)

		t, err := Parse(text)
		if err != nil {
			return nil, err
		}

		c.store(ctx, text, t)

		c.logger.TraceContext(
			ctx,
			"parse complete",
			slog.String("key", keyHash(text)),
			slog.Int("segments", len(t)),
		)

		return t, nil
	})

	c.logger.TraceContext(
		ctx,
		"cache miss",
		slog.String("key", keyHash(text)),
		slog.Bool("shared", shared),
	)

	if err != nil {
		return nil, err
	}

	t, _ := v.(Template)

	return t, nil
}

// Contains reports whether text is currently cached.
func (c *Cache) Contains(text string) bool {
	_, ok := c.lookup(text)

	return ok
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Cap returns the maximum number of cached templates.
func (c *Cache) Cap() int { return c.capacity }

// Keys returns the cached template texts, oldest first.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.order)
}

// Clear removes every cached template.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.order = c.order[:0]
	c.metrics.entries(0)
}

func (c *Cache) lookup(text string) (Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.entries[text]

	return t, ok
}

func (c *Cache) store(ctx context.Context, text string, t Template) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[text]; ok {
		return
	}

	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = slices.Delete(c.order, 0, 1)
		delete(c.entries, oldest)

		c.metrics.evict()
		c.logger.TraceContext(ctx, "cache evict", slog.String("key", keyHash(oldest)))
	}

	c.entries[text] = t
	c.order = append(c.order, text)
	c.metrics.entries(len(c.entries))
}

// keyHash abbreviates template text for log records.
func keyHash(text string) string {
	return strconv.FormatUint(xxh3.HashString(text), 36)
}
