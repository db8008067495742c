package sweep

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/btree"

	"github.com/roach88/tmerge/internal/ir"
)

// Source is the part of a source row the sweep needs.
type Source struct {
	RowID  int64
	Period ir.Period
}

// Segment is one atomic segment of a partition.
type Segment struct {
	Period ir.Period
	// Sources indexes the covering source rows, ordered by row id.
	Sources []int
	// Target indexes the covering target row, or -1.
	Target int
}

// HasSource reports whether any source row covers the segment.
func (s Segment) HasSource() bool {
	return len(s.Sources) > 0
}

// HasTarget reports whether a target row covers the segment.
func (s Segment) HasTarget() bool {
	return s.Target >= 0
}

// OverlapError reports two target rows of one partition that share a point.
type OverlapError struct {
	First, Second ir.Period
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("target rows overlap: %s and %s", e.First, e.Second)
}

type eventKind uint8

const (
	// Ends sort before starts at the same point: periods are half-open.
	eventEnd eventKind = iota
	eventStart
)

type event struct {
	at     ir.Point
	kind   eventKind
	target bool
	idx    int
}

// activeRow orders active rows by row id, then input index.
type activeRow struct {
	rowID int64
	idx   int
}

func (a activeRow) Less(than btree.Item) bool {
	b := than.(activeRow)
	if a.rowID != b.rowID {
		return a.rowID < b.rowID
	}
	return a.idx < b.idx
}

const btreeDegree = 8

// Segments computes the atomic segments of sources and targets. Points not
// covered by any row produce no segment. Invalid periods are rejected.
func Segments(sources []Source, targets []ir.Period) ([]Segment, error) {
	events := make([]event, 0, 2*(len(sources)+len(targets)))
	for i, s := range sources {
		if !s.Period.Valid() {
			return nil, fmt.Errorf("source row %d: invalid period %s", s.RowID, s.Period)
		}
		events = append(events,
			event{at: s.Period.From, kind: eventStart, idx: i},
			event{at: s.Period.Until, kind: eventEnd, idx: i})
	}
	for i, t := range targets {
		if !t.Valid() {
			return nil, fmt.Errorf("target row %d: invalid period %s", i, t)
		}
		events = append(events,
			event{at: t.From, kind: eventStart, target: true, idx: i},
			event{at: t.Until, kind: eventEnd, target: true, idx: i})
	}
	slices.SortFunc(events, func(a, b event) int {
		if c := cmp.Compare(a.at, b.at); c != 0 {
			return c
		}
		return cmp.Compare(a.kind, b.kind)
	})

	activeSources := btree.New(btreeDegree)
	activeTargets := btree.New(btreeDegree)

	var segments []Segment
	for i := 0; i < len(events); {
		at := events[i].at
		for ; i < len(events) && events[i].at == at; i++ {
			ev := events[i]
			tree, item := activeSources, btree.Item(activeRow{idx: ev.idx})
			if ev.target {
				tree = activeTargets
			} else {
				item = activeRow{rowID: sources[ev.idx].RowID, idx: ev.idx}
			}
			if ev.kind == eventStart {
				tree.ReplaceOrInsert(item)
			} else {
				tree.Delete(item)
			}
		}

		if activeTargets.Len() > 1 {
			first := activeTargets.Min().(activeRow).idx
			var second int
			activeTargets.Ascend(func(it btree.Item) bool {
				if idx := it.(activeRow).idx; idx != first {
					second = idx
					return false
				}
				return true
			})
			return nil, &OverlapError{First: targets[first], Second: targets[second]}
		}

		if i == len(events) || (activeSources.Len() == 0 && activeTargets.Len() == 0) {
			continue
		}

		seg := Segment{
			Period:  ir.Period{From: at, Until: events[i].at},
			Sources: make([]int, 0, activeSources.Len()),
			Target:  -1,
		}
		activeSources.Ascend(func(it btree.Item) bool {
			seg.Sources = append(seg.Sources, it.(activeRow).idx)
			return true
		})
		if activeTargets.Len() == 1 {
			seg.Target = activeTargets.Min().(activeRow).idx
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// TargetRows returns, per target index, the ascending row ids of the source
// rows sharing at least one point with that target. rowIDs[i] is the row id
// of source i. Two intersecting rows always share a segment, so one pass
// over segs suffices. A target's segments are contiguous because targets
// never overlap, which lets seen hold just the last target per source.
func TargetRows(segs []Segment, rowIDs []int64, targets int) [][]int64 {
	out := make([][]int64, targets)
	seen := make([]int, len(rowIDs))
	for i := range seen {
		seen[i] = -1
	}
	for _, seg := range segs {
		t := seg.Target
		if t < 0 {
			continue
		}
		for _, s := range seg.Sources {
			if seen[s] != t {
				seen[s] = t
				out[t] = append(out[t], rowIDs[s])
			}
		}
	}
	for _, rows := range out {
		slices.Sort(rows)
	}
	return out
}

// Boundaries returns the sorted, de-duplicated boundary points of periods.
func Boundaries(periods ...ir.Period) []ir.Point {
	points := make([]ir.Point, 0, 2*len(periods))
	for _, p := range periods {
		points = append(points, p.From, p.Until)
	}
	slices.Sort(points)
	return slices.Compact(points)
}

// Check verifies that segments are ordered and pairwise disjoint.
func Check(segments []Segment) error {
	for i := 1; i < len(segments); i++ {
		prev, cur := segments[i-1].Period, segments[i].Period
		if !cur.Valid() || cur.From < prev.Until {
			return fmt.Errorf("segment %d %s does not follow %s", i, cur, prev)
		}
	}
	return nil
}
