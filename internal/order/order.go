// Package order puts a plan's actions into execution order and numbers
// them.
//
// Inserts run first, then updates that grow a row, then updates that keep
// or move its bounds, then updates that shrink it, then deletes. Within a
// category the input order is kept. Skip and error rows trail the DML.
package order

import (
	"slices"

	"github.com/roach88/tmerge/internal/ir"
)

// Category is the execution rank of an action.
type Category int

const (
	CategoryInsert Category = iota
	CategoryGrow
	CategoryKeep
	CategoryShrink
	CategoryDelete
	CategoryFeedback
)

// CategoryOf returns the execution rank of a.
func CategoryOf(a *ir.PlannedAction) Category {
	switch a.Kind {
	case ir.ActionInsert:
		return CategoryInsert
	case ir.ActionUpdate:
		switch a.Effect {
		case ir.EffectGrow:
			return CategoryGrow
		case ir.EffectShrink:
			return CategoryShrink
		default:
			return CategoryKeep
		}
	case ir.ActionDelete:
		return CategoryDelete
	default:
		return CategoryFeedback
	}
}

// Sort orders actions in place, stable within each category, and assigns
// Seq (1..n) and StatementSeq.
//
// StatementSeq groups actions that can be executed as one batched
// statement: one per category, except that every MOVE update gets its own
// statement because moved rows may collide with each other mid-batch.
func Sort(actions []ir.PlannedAction) {
	slices.SortStableFunc(actions, func(a, b ir.PlannedAction) int {
		return int(CategoryOf(&a) - CategoryOf(&b))
	})

	stmt := 0
	prev := Category(-1)
	for i := range actions {
		a := &actions[i]
		a.Seq = i + 1
		c := CategoryOf(a)
		if c != prev || a.Effect == ir.EffectMove {
			stmt++
		}
		a.StatementSeq = stmt
		prev = c
	}
}

// Valid reports whether actions satisfy the execution order: categories
// never decrease.
func Valid(actions []ir.PlannedAction) bool {
	for i := 1; i < len(actions); i++ {
		if CategoryOf(&actions[i]) < CategoryOf(&actions[i-1]) {
			return false
		}
	}
	return true
}
