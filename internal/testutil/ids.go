package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same plan ID every time.
//
// Golden plan snapshots embed the plan ID, so tests inject this generator
// to get byte-identical output across runs.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed plan ID generator. An empty id yields
// "test-plan".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-plan"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialKeyGenerator hands out "key-1", "key-2", ... for stable keys the
// store assigns to new entities.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialKeyGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialKeyGenerator creates a generator whose first key is "key-1".
func NewSequentialKeyGenerator() *SequentialKeyGenerator {
	return &SequentialKeyGenerator{}
}

// Generate returns the next key.
func (g *SequentialKeyGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("key-%d", g.seq)
}

// Reset restarts the sequence at "key-1".
func (g *SequentialKeyGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
