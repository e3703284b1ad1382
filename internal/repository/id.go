package repository

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// IDGenerator produces `prefix_timestamp_counter` identifiers. Counters are
// primed from existing IDs via Observe so generated values never collide
// with what a store already holds, even across process restarts.
type IDGenerator struct {
	mu       sync.Mutex
	counters map[IDKind]int64
}

// NewIDGenerator returns a generator with all counters at zero.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{counters: make(map[IDKind]int64)}
}

// Observe records an existing ID so future counters stay above it.
// Malformed or legacy IDs are skipped.
func (g *IDGenerator) Observe(kind IDKind, id string) {
	ord, ok := ParseIDOrdinal(id)
	if !ok {
		return
	}
	g.mu.Lock()
	if ord > g.counters[kind] {
		g.counters[kind] = ord
	}
	g.mu.Unlock()
}

// Next returns a fresh identifier in the kind's namespace.
func (g *IDGenerator) Next(kind IDKind) string {
	g.mu.Lock()
	g.counters[kind]++
	n := g.counters[kind]
	g.mu.Unlock()
	return fmt.Sprintf("%s_%d_%d", kind.Prefix(), time.Now().Unix(), n)
}

// ParseIDOrdinal extracts the trailing counter from a generated ID. The
// boolean result distinguishes a malformed or legacy ID from a genuine
// ordinal, instead of silently swallowing parse failures.
func ParseIDOrdinal(id string) (int64, bool) {
	parts := strings.Split(id, "_")
	if len(parts) < 2 {
		return 0, false
	}
	n, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
