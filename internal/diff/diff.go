package diff

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/tmerge/internal/coalesce"
	"github.com/roach88/tmerge/internal/identity"
	"github.com/roach88/tmerge/internal/interval"
	"github.com/roach88/tmerge/internal/ir"
)

// MsgFiltered is the message attached to rows skipped by the mode's rules.
const MsgFiltered = "Source row was correctly filtered by the mode's logic and did not result in a DML operation."

// Classifier turns coalesced runs into planned actions.
type Classifier struct {
	cfg       *ir.Config
	ephemeral map[string]bool
}

// NewClassifier creates a classifier for cfg.
func NewClassifier(cfg *ir.Config) *Classifier {
	return &Classifier{cfg: cfg, ephemeral: cfg.EphemeralSet()}
}

// Classify compares runs with p's target rows. Runs must be ordered; hits
// lists, per target row, the source rows intersecting it (see
// sweep.TargetRows) and may be nil when p has no source rows.
func (c *Classifier) Classify(p *identity.Partition, runs []coalesce.Run, hits [][]int64) []ir.PlannedAction {
	if len(p.Sources) == 0 {
		return c.deleteAll(p)
	}

	byTarget := make(map[int][]int)
	for i, r := range runs {
		if r.Ancestor >= 0 {
			byTarget[r.Ancestor] = append(byTarget[r.Ancestor], i)
		}
	}

	// primary[i] is true when run i reuses its ancestor row.
	primary := make([]bool, len(runs))
	for t, candidates := range byTarget {
		target := p.Targets[t]
		slices.SortStableFunc(candidates, func(a, b int) int {
			return c.rank(target, runs[a], runs[b])
		})
		primary[candidates[0]] = true
	}

	var actions []ir.PlannedAction
	for i, r := range runs {
		if r.Ancestor < 0 || !primary[i] {
			actions = append(actions, c.insert(p, r))
			continue
		}
		target := p.Targets[r.Ancestor]
		if r.Period.Equals(target.Period) && c.sameData(r.Data, target.Data) {
			if r.HasSource {
				actions = append(actions, c.identical(p, r, target))
			}
			continue
		}
		actions = append(actions, c.update(p, r, target))
	}

	for t, target := range p.Targets {
		if _, claimed := byTarget[t]; !claimed {
			actions = append(actions, c.delete(p, target, hitsOf(hits, t)))
		}
	}

	return append(actions, c.unplanned(p, actions)...)
}

// rank orders candidate runs for reuse of target: start-aligned first, then
// payload-equal, then by bounds.
func (c *Classifier) rank(target ir.TargetRow, a, b coalesce.Run) int {
	aStart := a.Period.From == target.Period.From
	bStart := b.Period.From == target.Period.From
	if aStart != bStart {
		if aStart {
			return -1
		}
		return 1
	}
	aSame := c.sameData(a.Data, target.Data)
	bSame := c.sameData(b.Data, target.Data)
	if aSame != bSame {
		if aSame {
			return -1
		}
		return 1
	}
	return interval.Compare(a.Period, b.Period)
}

func (c *Classifier) sameData(data, targetData ir.Payload) bool {
	return ir.EqualIgnoringNulls(data, targetData.Without(c.ephemeral))
}

func (c *Classifier) base(p *identity.Partition, kind ir.ActionKind) ir.PlannedAction {
	return ir.PlannedAction{
		Kind:         kind,
		PartitionKey: p.Key,
		IsNewEntity:  p.IsNew,
		Identity:     p.Identity,
		FoundingID:   p.FoundingID,
	}
}

func (c *Classifier) insert(p *identity.Partition, r coalesce.Run) ir.PlannedAction {
	a := c.base(p, ir.ActionInsert)
	a.New = periodPtr(r.Period)
	a.Data = c.withValidTo(r, r.Period)
	a.RowIDs = rowIDs(r.RowIDs)
	if r.Ancestor >= 0 && r.Newest >= 0 {
		a.SourceRelation = interval.Relate(p.Sources[r.Newest].Period, p.Targets[r.Ancestor].Period)
	}
	return a
}

func (c *Classifier) update(p *identity.Partition, r coalesce.Run, target ir.TargetRow) ir.PlannedAction {
	a := c.base(p, ir.ActionUpdate)
	a.Effect = ir.EffectOf(target.Period, r.Period)
	a.Old = periodPtr(target.Period)
	a.New = periodPtr(r.Period)
	a.Data = c.withValidTo(r, r.Period)
	a.RowIDs = rowIDs(r.RowIDs)
	a.TargetRelation = interval.Relate(r.Period, target.Period)
	if r.Newest >= 0 {
		a.SourceRelation = interval.Relate(p.Sources[r.Newest].Period, target.Period)
	}
	return a
}

func (c *Classifier) identical(p *identity.Partition, r coalesce.Run, target ir.TargetRow) ir.PlannedAction {
	a := c.base(p, ir.ActionSkipIdentical)
	a.Old = periodPtr(target.Period)
	a.New = periodPtr(r.Period)
	a.RowIDs = rowIDs(r.RowIDs)
	a.TargetRelation = interval.RelEquals
	if r.Newest >= 0 {
		a.SourceRelation = interval.Relate(p.Sources[r.Newest].Period, target.Period)
	}
	a.Message = MsgFiltered
	return a
}

func (c *Classifier) delete(p *identity.Partition, target ir.TargetRow, rows []int64) ir.PlannedAction {
	a := c.base(p, ir.ActionDelete)
	a.Old = periodPtr(target.Period)
	a.RowIDs = rowIDs(rows)
	return a
}

func (c *Classifier) deleteAll(p *identity.Partition) []ir.PlannedAction {
	actions := make([]ir.PlannedAction, 0, len(p.Targets))
	for _, t := range p.Targets {
		actions = append(actions, c.delete(p, t, nil))
	}
	return actions
}

func hitsOf(hits [][]int64, t int) []int64 {
	if t < len(hits) {
		return hits[t]
	}
	return nil
}

// unplanned reports active source rows that no action refers to. In a
// for-portion-of mode such a row only covered time with no target; in any
// other mode it is a planner inconsistency.
func (c *Classifier) unplanned(p *identity.Partition, actions []ir.PlannedAction) []ir.PlannedAction {
	seen := make(map[int64]bool)
	for _, a := range actions {
		for _, id := range a.RowIDs {
			seen[id] = true
		}
	}

	var out []ir.PlannedAction
	for _, s := range p.Sources {
		if seen[s.RowID] {
			continue
		}
		kind, msg := ir.ActionSkipNoTarget, MsgFiltered
		if !c.cfg.Mode.IsForPortionOf() {
			kind = ir.ActionError
			msg = (&ir.PartitionError{
				Code:      ir.ErrCodeUnplannedRow,
				Partition: p.Key,
				Message:   fmt.Sprintf("source row %d produced no action", s.RowID),
				Bounds:    []string{c.cfg.Era.Domain.FormatPeriod(s.Period)},
			}).Error()
		}
		a := c.base(p, kind)
		a.New = periodPtr(s.Period)
		a.RowIDs = []int64{s.RowID}
		a.Message = msg
		out = append(out, a)
	}
	return out
}

func (c *Classifier) withValidTo(r coalesce.Run, per ir.Period) ir.Payload {
	data := r.Data.Clone()
	if data == nil {
		data = ir.Payload{}
	}
	data.Overlay(r.Ephemeral)
	if col := c.cfg.Era.ValidTo; col != "" {
		data[col] = ValidTo(c.cfg.Era.Domain, per.Until)
	}
	return data
}

// ValidTo returns the inclusive end value for a period ending at until.
func ValidTo(d ir.Domain, until ir.Point) ir.Value {
	last := ir.Prev(until)
	if d == ir.DomainInteger && last != ir.PosInfinity {
		return ir.Int(last)
	}
	return ir.String(d.Format(last))
}

func periodPtr(p ir.Period) *ir.Period {
	return &p
}

func rowIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	out := slices.Clone(ids)
	if !slices.IsSorted(out) {
		slices.SortFunc(out, cmp.Compare[int64])
	}
	return out
}
