package identity

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tmerge/internal/interval"
	"github.com/roach88/tmerge/internal/ir"
)

// Partition is the unit of independent planning: one entity's source rows
// and its existing timeline.
type Partition struct {
	Key   string
	IsNew bool
	// Identity is the entity's stable key: the existing key, or the
	// explicit key of a new entity. Nil for new entities without one.
	Identity   ir.Keys
	FoundingID string
	// Sources are ordered by row id.
	Sources []ir.SourceRow
	// Targets are ordered by period.
	Targets []ir.TargetRow
}

// Result is the outcome of identity resolution for a batch.
type Result struct {
	// Partitions are ordered by key.
	Partitions []Partition
	// Rejected holds one ERROR action per row that could not be placed in a
	// partition, ordered by row id.
	Rejected []ir.PlannedAction
}

type matchKind uint8

const (
	matchNone matchKind = iota
	matchExisting
	matchExplicit
	matchNatural
	matchError
)

type rowMatch struct {
	kind      matchKind
	entityKey string   // existing or explicit stable key
	nkTokens  []string // rendered natural keys, one per complete key set
	// candidates are the existing entities an ambiguous row matched.
	candidates []string
	message    string
}

// Resolve assigns every source row to a partition or rejects it. The
// inputs are not modified.
func Resolve(cfg *ir.Config, sources []ir.SourceRow, targets []ir.TargetRow) (*Result, error) {
	idx, err := buildTargetIndex(cfg, targets)
	if err != nil {
		return nil, err
	}
	strategy := cfg.EffectiveStrategy()

	matches := make([]rowMatch, len(sources))
	for i := range sources {
		matches[i] = match(cfg, strategy, idx, &sources[i])
	}

	tu := newTokenUnion(len(sources))
	for i, s := range sources {
		m := matches[i]
		if m.kind == matchError {
			continue
		}
		if s.FoundingID != "" {
			tu.add(i, "found:"+s.FoundingID)
		}
		switch m.kind {
		case matchExisting:
			tu.add(i, "existing:"+m.entityKey)
		case matchExplicit:
			tu.add(i, "key:"+m.entityKey)
		case matchNatural:
			for _, tok := range m.nkTokens {
				tu.add(i, "nk:"+tok)
			}
		}
	}

	components := make(map[int][]int)
	var roots []int
	for i := range sources {
		if matches[i].kind == matchError {
			continue
		}
		r := tu.uf.find(i)
		if _, ok := components[r]; !ok {
			roots = append(roots, r)
		}
		components[r] = append(components[r], i)
	}

	// Entities named by a rejected row are never treated as missing.
	protected := make(map[string]bool)
	res := &Result{}
	for i, m := range matches {
		if m.kind == matchError {
			res.Rejected = append(res.Rejected, reject(sources[i], m.message))
			for _, key := range m.candidates {
				protected[key] = true
			}
		}
	}

	byKey := make(map[string]*Partition)
	for _, r := range roots {
		rows := components[r]
		p, rejected := groupPartition(cfg, idx, sources, matches, rows)
		res.Rejected = append(res.Rejected, rejected...)
		if p == nil {
			for _, i := range rows {
				if matches[i].kind == matchExisting {
					protected[matches[i].entityKey] = true
				}
			}
			continue
		}
		if existing, ok := byKey[p.Key]; ok {
			existing.Sources = append(existing.Sources, p.Sources...)
			continue
		}
		byKey[p.Key] = p
	}

	if cfg.EffectiveDeleteMode().DeletesEntities() {
		for key, e := range idx.entities {
			pk := "existing:" + key
			if _, ok := byKey[pk]; !ok && !protected[key] {
				byKey[pk] = &Partition{Key: pk, Identity: e.identity, Targets: e.rows}
			}
		}
	}

	for _, p := range byKey {
		slices.SortFunc(p.Sources, func(a, b ir.SourceRow) int { return cmp.Compare(a.RowID, b.RowID) })
		res.Partitions = append(res.Partitions, *p)
	}
	slices.SortFunc(res.Partitions, func(a, b Partition) int { return strings.Compare(a.Key, b.Key) })
	slices.SortStableFunc(res.Rejected, func(a, b ir.PlannedAction) int {
		return cmp.Compare(a.RowIDs[0], b.RowIDs[0])
	})
	return res, nil
}

// match resolves one row against the target index, without grouping.
func match(cfg *ir.Config, strategy ir.IdentityStrategy, idx *targetIndex, row *ir.SourceRow) rowMatch {
	var m rowMatch

	if strategy.UsesNaturalKeys() {
		for _, cols := range cfg.NaturalKeys {
			if tok, ok := renderNaturalKey(row.Identity, row.Data, cols); ok {
				m.nkTokens = append(m.nkTokens, strings.Join(cols, ",")+"="+tok)
			} else {
				m.nkTokens = append(m.nkTokens, "")
			}
		}
	}

	if strategy.UsesStableKey() && row.Identity.Complete(cfg.IdentityColumns) {
		key := row.Identity.Render(cfg.IdentityColumns)
		m.entityKey = key
		if _, ok := idx.entities[key]; ok {
			m.kind = matchExisting
		} else {
			m.kind = matchExplicit
		}
		return m
	}

	var found []string
	complete := false
	for k, tok := range m.nkTokens {
		if tok == "" {
			continue
		}
		complete = true
		nk, _ := renderNaturalKey(row.Identity, row.Data, cfg.NaturalKeys[k])
		for _, key := range idx.natural[k][nk] {
			if !slices.Contains(found, key) {
				found = append(found, key)
			}
		}
	}
	m.nkTokens = slices.DeleteFunc(m.nkTokens, func(tok string) bool { return tok == "" })

	switch {
	case len(found) > 1:
		slices.Sort(found)
		m.kind = matchError
		m.candidates = found
		m.message = fmt.Sprintf("Source row is ambiguous. It matches multiple distinct target entities: %v", found)
	case len(found) == 1:
		m.kind = matchExisting
		m.entityKey = found[0]
	case complete:
		m.kind = matchNatural
	default:
		m.kind = matchNone
	}
	return m
}

// groupPartition turns one connected group of rows into a partition.
func groupPartition(cfg *ir.Config, idx *targetIndex, sources []ir.SourceRow, matches []rowMatch, rows []int) (*Partition, []ir.PlannedAction) {
	var (
		existing  []string
		explicit  []string
		nkTokens  []string
		founding  string
		keyedRows bool
	)
	for _, i := range rows {
		m := matches[i]
		switch m.kind {
		case matchExisting:
			if !slices.Contains(existing, m.entityKey) {
				existing = append(existing, m.entityKey)
			}
			keyedRows = true
		case matchExplicit:
			if !slices.Contains(explicit, m.entityKey) {
				explicit = append(explicit, m.entityKey)
			}
			keyedRows = true
		case matchNatural:
			nkTokens = append(nkTokens, m.nkTokens...)
			keyedRows = true
		}
		if founding == "" {
			founding = sources[i].FoundingID
		}
	}

	if n := len(existing) + len(explicit); n > 1 {
		all := append(slices.Clone(existing), explicit...)
		slices.Sort(all)
		msg := fmt.Sprintf("Source row belongs to founding group %q which resolves to multiple distinct entities: %v", founding, all)
		return nil, rejectAll(sources, rows, msg)
	}

	p := &Partition{FoundingID: founding}
	for _, i := range rows {
		p.Sources = append(p.Sources, sources[i])
	}

	switch {
	case len(existing) == 1:
		e := idx.entities[existing[0]]
		p.Key = "existing:" + e.key
		p.Identity = e.identity
		p.Targets = e.rows
	case len(explicit) == 1:
		p.Key = "new:key/" + explicit[0]
		p.IsNew = true
		for _, i := range rows {
			if matches[i].kind == matchExplicit {
				p.Identity = sources[i].Identity.Project(cfg.IdentityColumns)
				break
			}
		}
	case len(nkTokens) > 0:
		slices.Sort(nkTokens)
		p.Key = "new:nk/" + nkTokens[0]
		p.IsNew = true
	case !keyedRows && founding != "" && cfg.FoundingMode:
		p.Key = "new:found/" + founding
		p.IsNew = true
	default:
		return nil, rejectAll(sources, rows, unidentifiableMessage(cfg))
	}
	return p, nil
}

func unidentifiableMessage(cfg *ir.Config) string {
	return fmt.Sprintf("Source row is unidentifiable. It has NULL for all stable identity columns %v and all natural keys %v",
		cfg.IdentityColumns, cfg.NaturalKeys)
}

func reject(row ir.SourceRow, msg string) ir.PlannedAction {
	p := row.Period
	return ir.PlannedAction{
		Kind:       ir.ActionError,
		FoundingID: row.FoundingID,
		New:        &p,
		RowIDs:     []int64{row.RowID},
		Message:    msg,
	}
}

func rejectAll(sources []ir.SourceRow, rows []int, msg string) []ir.PlannedAction {
	out := make([]ir.PlannedAction, 0, len(rows))
	for _, i := range rows {
		out = append(out, reject(sources[i], msg))
	}
	return out
}

// Coverage reports the union of a partition's source periods.
func (p *Partition) Coverage() *interval.Set[ir.Point] {
	s := &interval.Set[ir.Point]{}
	for _, row := range p.Sources {
		s.Add(row.Period)
	}
	return s
}
