package identity

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tmerge/internal/interval"
	"github.com/roach88/tmerge/internal/ir"
)

// entity is one existing target entity and its timeline.
type entity struct {
	key      string
	identity ir.Keys
	rows     []ir.TargetRow
}

// targetIndex indexes the target timeline by stable key and by every
// natural key set.
type targetIndex struct {
	entities map[string]*entity
	// natural[i] maps a rendered value of key set i to entity keys.
	natural []map[string][]string
}

func buildTargetIndex(cfg *ir.Config, targets []ir.TargetRow) (*targetIndex, error) {
	idx := &targetIndex{
		entities: make(map[string]*entity),
		natural:  make([]map[string][]string, len(cfg.NaturalKeys)),
	}
	for i := range idx.natural {
		idx.natural[i] = make(map[string][]string)
	}

	for i, t := range targets {
		if !t.Identity.Complete(cfg.IdentityColumns) {
			return nil, fmt.Errorf("target row %d has an incomplete stable key %v", i, cfg.IdentityColumns)
		}
		key := t.Identity.Render(cfg.IdentityColumns)
		e, ok := idx.entities[key]
		if !ok {
			e = &entity{key: key, identity: t.Identity.Project(cfg.IdentityColumns)}
			idx.entities[key] = e
		}
		e.rows = append(e.rows, t)

		for k, cols := range cfg.NaturalKeys {
			nk, ok := renderNaturalKey(t.Identity, t.Data, cols)
			if !ok {
				continue
			}
			if !slices.Contains(idx.natural[k][nk], key) {
				idx.natural[k][nk] = append(idx.natural[k][nk], key)
			}
		}
	}

	for _, e := range idx.entities {
		slices.SortStableFunc(e.rows, func(a, b ir.TargetRow) int {
			return interval.Compare(a.Period, b.Period)
		})
	}
	return idx, nil
}

// renderNaturalKey renders the values of cols, or reports false when any of
// them is null.
func renderNaturalKey(keys ir.Keys, data ir.Payload, cols []string) (string, bool) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		v := ir.Lookup(keys, data, c)
		if ir.IsNull(v) {
			return "", false
		}
		parts[i] = ir.Keys{c: v}.Render([]string{c})
	}
	return strings.Join(parts, "__"), true
}
