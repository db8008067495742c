package store

import (
	"context"

	"github.com/roach88/tmerge/internal/ir"
)

// Executor applies a plan to target storage inside one transaction.
type Executor interface {
	Apply(ctx context.Context, plan *ir.Plan) (*ApplyResult, error)
}

// Table is one logical target table, bound to the merge configuration its
// plans are computed with.
type Table struct {
	s    *Store
	name string
	cfg  *ir.Config
}

// Table returns the logical table name of s.
func (s *Store) Table(name string, cfg *ir.Config) *Table {
	return &Table{s: s, name: name, cfg: cfg}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

var _ Executor = (*Table)(nil)
