// Package coalesce merges runs of adjacent resolved segments that carry the
// same non-ephemeral payload and the same action class into single
// segments, so the plan touches as few rows as possible.
package coalesce

import (
	"slices"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/payload"
)

// Run is a maximal group of merged segments.
type Run struct {
	Period ir.Period
	// Ancestor indexes the target row the run descends from: the first
	// covering target of its segments, or -1.
	Ancestor int
	// Data and Ephemeral come from the last merged segment.
	Data      ir.Payload
	Ephemeral ir.Payload
	RowIDs    []int64
	HasSource bool
	// Newest indexes the newest source row of the last source-covered
	// segment, or -1.
	Newest int
	// Merged counts the segments folded into the run.
	Merged int

	hash uint64
}

// Coalesce merges segs, which must be ordered and disjoint. Two segments
// merge when they are adjacent, their non-ephemeral payloads are equal and
// they do not descend from two different target rows.
func Coalesce(segs []payload.Segment) []Run {
	runs := make([]Run, 0, len(segs))
	for _, seg := range segs {
		h := ir.DataHash(seg.Data)
		if n := len(runs); n > 0 && canMerge(&runs[n-1], seg, h) {
			extend(&runs[n-1], seg)
			continue
		}
		runs = append(runs, Run{
			Period:    seg.Period,
			Ancestor:  seg.Target,
			Data:      seg.Data,
			Ephemeral: seg.Ephemeral,
			RowIDs:    slices.Clone(seg.RowIDs),
			HasSource: seg.HasSource,
			Newest:    seg.Newest,
			Merged:    1,
			hash:      h,
		})
	}
	for i := range runs {
		if runs[i].Merged > 1 {
			slices.Sort(runs[i].RowIDs)
			runs[i].RowIDs = slices.Compact(runs[i].RowIDs)
		}
	}
	return runs
}

func canMerge(run *Run, seg payload.Segment, h uint64) bool {
	if run.Period.Until != seg.Period.From {
		return false
	}
	if seg.Target >= 0 && run.Ancestor >= 0 && seg.Target != run.Ancestor {
		return false
	}
	return run.hash == h && ir.EqualIgnoringNulls(run.Data, seg.Data)
}

func extend(run *Run, seg payload.Segment) {
	run.Period.Until = seg.Period.Until
	if run.Ancestor < 0 {
		run.Ancestor = seg.Target
	}
	run.Data = seg.Data
	run.Ephemeral = seg.Ephemeral
	// Sorted and de-duplicated once the run is complete.
	run.RowIDs = append(run.RowIDs, seg.RowIDs...)
	run.HasSource = run.HasSource || seg.HasSource
	if seg.Newest >= 0 {
		run.Newest = seg.Newest
	}
	run.Merged++
}
