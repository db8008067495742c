package planner

import (
	"fmt"
	"sync"

	"github.com/roach88/tmerge/internal/compiler"
	"github.com/roach88/tmerge/internal/ir"
)

// Cache maps configuration fingerprints to compiled pipelines. A cache is
// owned by its caller and may be shared by planners and goroutines.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Pipeline
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Pipeline)}
}

// Get returns the pipeline for cfg, compiling and storing it on a miss.
// Invalid configurations are never cached.
func (c *Cache) Get(cfg *ir.Config) (*Pipeline, error) {
	fp, err := ir.ConfigFingerprint(cfg)
	if err != nil {
		return nil, fmt.Errorf("fingerprint config: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if pl, ok := c.entries[fp]; ok {
		getMetrics().cacheTotal.WithLabelValues("hit").Inc()
		return pl, nil
	}
	getMetrics().cacheTotal.WithLabelValues("miss").Inc()

	pl, err := compile(cfg, fp)
	if err != nil {
		return nil, err
	}
	c.entries[fp] = pl
	return pl, nil
}

// Len returns the number of cached pipelines.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Compile validates cfg and builds its pipeline without caching.
func Compile(cfg *ir.Config) (*Pipeline, error) {
	fp, err := ir.ConfigFingerprint(cfg)
	if err != nil {
		return nil, fmt.Errorf("fingerprint config: %w", err)
	}
	return compile(cfg, fp)
}

func compile(cfg *ir.Config, fingerprint string) (*Pipeline, error) {
	if errs := compiler.Validate(cfg); len(errs) > 0 {
		return nil, &ConfigError{Errors: errs}
	}
	return newPipeline(cfg, fingerprint), nil
}
