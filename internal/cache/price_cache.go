package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCapacity bounds the in-memory tier. EOD closes never change once a
// trading day ends, so eviction is pure FIFO on insertion order.
const DefaultCapacity = 10000

// PriceCache answers hot (symbol, date) close-price lookups. Set is
// first-write-wins: writing an already-present key is a no-op, so concurrent
// writers racing on the same key are benign. Implementations must be safe
// for concurrent use, and a cache is an optimization only: a failed read is
// a miss, never an error.
type PriceCache interface {
	Get(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, bool)
	Set(ctx context.Context, symbol string, date time.Time, price decimal.Decimal)
}

// Key builds the composite cache key for a (symbol, date) pair.
func Key(symbol string, date time.Time) string {
	return fmt.Sprintf("eod//%s//%s", symbol, date.Format("2006-01-02"))
}

// MemoryPriceCache is the in-process tier: a capacity-bounded map with FIFO
// eviction of the earliest-inserted entry.
type MemoryPriceCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]decimal.Decimal
	order    []string
}

// NewMemoryPriceCache creates an in-memory price cache. A capacity of 0 or
// less falls back to DefaultCapacity.
func NewMemoryPriceCache(capacity int) *MemoryPriceCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryPriceCache{
		capacity: capacity,
		entries:  make(map[string]decimal.Decimal, capacity),
	}
}

func (c *MemoryPriceCache) Get(_ context.Context, symbol string, date time.Time) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	price, ok := c.entries[Key(symbol, date)]
	return price, ok
}

func (c *MemoryPriceCache) Set(_ context.Context, symbol string, date time.Time, price decimal.Decimal) {
	key := Key(symbol, date)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}
	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = price
	c.order = append(c.order, key)
}

// Len reports the current number of cached entries.
func (c *MemoryPriceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
