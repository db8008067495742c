// Package feedback folds a plan's actions into one outcome per source row.
package feedback

import (
	"cmp"
	"slices"

	"github.com/roach88/tmerge/internal/ir"
)

// precedence ranks outcomes; a row reports its highest-ranked outcome.
var precedence = map[ir.FeedbackStatus]int{
	ir.StatusSkippedIdentical: 1,
	ir.StatusSkippedEclipsed:  2,
	ir.StatusSkippedFiltered:  3,
	ir.StatusSkippedNoTarget:  4,
	ir.StatusApplied:          5,
	ir.StatusError:            6,
}

// StatusOf maps an action kind to the row outcome it implies.
func StatusOf(kind ir.ActionKind) ir.FeedbackStatus {
	switch kind {
	case ir.ActionInsert, ir.ActionUpdate, ir.ActionDelete:
		return ir.StatusApplied
	case ir.ActionSkipIdentical:
		return ir.StatusSkippedIdentical
	case ir.ActionSkipNoTarget:
		return ir.StatusSkippedNoTarget
	case ir.ActionSkipFiltered:
		return ir.StatusSkippedFiltered
	case ir.ActionSkipEclipsed:
		return ir.StatusSkippedEclipsed
	default:
		return ir.StatusError
	}
}

// MsgUnplanned is reported for a row no action refers to.
const MsgUnplanned = "Source row produced no planned action."

// Aggregate returns one feedback entry per source row, ordered by row id.
// When backfill is set, rows that resolved to an entity with a stable key
// report that key.
func Aggregate(sources []ir.SourceRow, actions []ir.PlannedAction, backfill bool) []ir.Feedback {
	byRow := make(map[int64]*ir.Feedback, len(sources))
	for _, s := range sources {
		byRow[s.RowID] = nil
	}

	for i := range actions {
		a := &actions[i]
		status := StatusOf(a.Kind)
		for _, id := range a.RowIDs {
			if _, known := byRow[id]; !known {
				continue
			}
			fb := byRow[id]
			if fb == nil {
				fb = &ir.Feedback{RowID: id}
				byRow[id] = fb
			}
			if precedence[status] > precedence[fb.Status] {
				fb.Status = status
				fb.Message = ""
				if status != ir.StatusApplied {
					fb.Message = a.Message
				}
			}
			if backfill && fb.Identity == nil && len(a.Identity) > 0 {
				fb.Identity = a.Identity
			}
		}
	}

	out := make([]ir.Feedback, 0, len(byRow))
	for id, fb := range byRow {
		if fb == nil {
			fb = &ir.Feedback{RowID: id, Status: ir.StatusError, Message: MsgUnplanned}
		}
		out = append(out, *fb)
	}
	slices.SortFunc(out, func(a, b ir.Feedback) int { return cmp.Compare(a.RowID, b.RowID) })
	return out
}
