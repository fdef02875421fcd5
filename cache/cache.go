// Package cache stores solved plans keyed by their planning request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
)

// Cache stores plans. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (*route.Result, bool, error)
	Put(ctx context.Context, key string, res *route.Result) error
}

// Key returns the cache key of a request: the SHA-256 of its JSON encoding.
// Requests differing only in obstacles get different keys.
func Key(req route.PlanningRequest) string {
	data, err := json.Marshal(req)
	if err != nil {
		panic(err) // only plain numbers and slices
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Memory is a bounded in-process cache. When full, the oldest entry is evicted.
type Memory struct {
	mu      sync.Mutex
	max     int
	entries map[string]*route.Result
	order   []string
}

// NewMemory returns a cache holding at most max plans (at least one).
func NewMemory(max int) *Memory {
	if max < 1 {
		max = 1
	}
	return &Memory{max: max, entries: map[string]*route.Result{}}
}

// Get implements the Cache interface.
func (m *Memory) Get(_ context.Context, key string) (*route.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.entries[key]
	return res, ok, nil
}

// Put implements the Cache interface.
func (m *Memory) Put(_ context.Context, key string, res *route.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		if len(m.order) == m.max {
			delete(m.entries, m.order[0])
			m.order = m.order[1:]
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = res
	return nil
}

// Len returns the number of cached plans.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
