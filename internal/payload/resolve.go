package payload

import (
	"slices"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/sweep"
)

// Segment is an atomic segment with its resolved payload.
type Segment struct {
	Period ir.Period
	// Target indexes the covering target row, or -1.
	Target int
	// Data holds the non-ephemeral columns.
	Data ir.Payload
	// Ephemeral holds columns excluded from equality checks.
	Ephemeral ir.Payload
	// RowIDs are the source rows the segment is attributed to, ascending.
	RowIDs []int64
	// HasSource reports whether a source row covers the segment.
	HasSource bool
	// Newest indexes the last covering source row, or -1.
	Newest int
}

// Resolver resolves segment payloads under one configuration.
type Resolver struct {
	mode           ir.MergeMode
	deleteTimeline bool
	ephemeral      map[string]bool
}

// NewResolver creates a resolver for cfg.
func NewResolver(cfg *ir.Config) *Resolver {
	return &Resolver{
		mode:           cfg.Mode,
		deleteTimeline: cfg.EffectiveDeleteMode().DeletesTimeline(),
		ephemeral:      cfg.EphemeralSet(),
	}
}

// Resolve computes payloads for segs, which must come from sweeping
// sources and targets. hits is sweep.TargetRows of segs. Segments that leave no row behind are dropped:
//   - source-covered segments with no target in a for-portion-of mode
//   - source-covered segments in DELETE_FOR_PORTION_OF
//   - target-only segments when missing timeline is deleted and the
//     partition has source rows
func (r *Resolver) Resolve(sources []ir.SourceRow, targets []ir.TargetRow, segs []sweep.Segment, hits [][]int64) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, seg := range segs {
		if !seg.HasSource() {
			if r.deleteTimeline && len(sources) > 0 {
				continue
			}
			out = append(out, r.targetOnly(targets, seg, hits))
			continue
		}
		if r.mode.IsForPortionOf() && !seg.HasTarget() {
			continue
		}
		if r.mode == ir.ModeDeleteForPortionOf {
			continue
		}
		out = append(out, r.merged(sources, targets, seg))
	}
	return out
}

func (r *Resolver) targetOnly(targets []ir.TargetRow, seg sweep.Segment, hits [][]int64) Segment {
	data, eph := targets[seg.Target].Data.Split(r.ephemeral)

	// A residual piece of a target row is attributed to the source rows
	// that split that row.
	var rows []int64
	if seg.Target < len(hits) {
		rows = hits[seg.Target]
	}
	return Segment{
		Period:    seg.Period,
		Target:    seg.Target,
		Data:      data,
		Ephemeral: eph,
		RowIDs:    rows,
		Newest:    -1,
	}
}

func (r *Resolver) merged(sources []ir.SourceRow, targets []ir.TargetRow, seg sweep.Segment) Segment {
	newest := seg.Sources[len(seg.Sources)-1]

	var (
		full ir.Payload
		rows []int64
	)
	if r.mode.IsLastWriterWins() {
		full = sources[newest].Data.Clone()
		if full == nil {
			full = ir.Payload{}
		}
		rows = []int64{sources[newest].RowID}
	} else {
		full = ir.Payload{}
		if seg.HasTarget() {
			full = targets[seg.Target].Data.Clone()
		}
		rows = make([]int64, 0, len(seg.Sources))
		for _, i := range seg.Sources {
			src := sources[i].Data
			if r.mode.IsPatch() {
				src = src.StripNulls()
			}
			full.Overlay(src)
			rows = append(rows, sources[i].RowID)
		}
	}
	slices.Sort(rows)

	data, eph := full.Split(r.ephemeral)
	return Segment{
		Period:    seg.Period,
		Target:    seg.Target,
		Data:      data,
		Ephemeral: eph,
		RowIDs:    rows,
		HasSource: true,
		Newest:    newest,
	}
}

// Full returns the segment's complete payload, ephemeral columns included.
func (s Segment) Full() ir.Payload {
	out := s.Data.Clone()
	if out == nil {
		out = ir.Payload{}
	}
	out.Overlay(s.Ephemeral)
	return out
}
