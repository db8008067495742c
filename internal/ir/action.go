package ir

import "github.com/roach88/tmerge/internal/interval"

// ActionKind is the operation a planned action stands for.
type ActionKind string

const (
	ActionInsert        ActionKind = "INSERT"
	ActionUpdate        ActionKind = "UPDATE"
	ActionDelete        ActionKind = "DELETE"
	ActionSkipIdentical ActionKind = "SKIP_IDENTICAL"
	ActionSkipNoTarget  ActionKind = "SKIP_NO_TARGET"
	ActionSkipFiltered  ActionKind = "SKIP_FILTERED"
	ActionSkipEclipsed  ActionKind = "SKIP_ECLIPSED"
	ActionError         ActionKind = "ERROR"
)

// IsDML reports whether the action modifies the target.
func (k ActionKind) IsDML() bool {
	return k == ActionInsert || k == ActionUpdate || k == ActionDelete
}

// UpdateEffect describes how an UPDATE changes the period of its row.
type UpdateEffect string

const (
	EffectNone   UpdateEffect = "NONE"
	EffectGrow   UpdateEffect = "GROW"
	EffectShrink UpdateEffect = "SHRINK"
	EffectMove   UpdateEffect = "MOVE"
)

// EffectOf classifies the change from old to next.
func EffectOf(old, next Period) UpdateEffect {
	switch {
	case old.Equals(next):
		return EffectNone
	case old.Contains(next):
		return EffectShrink
	case next.Contains(old):
		return EffectGrow
	default:
		return EffectMove
	}
}

// PlannedAction is one entry of a plan.
type PlannedAction struct {
	Seq          int          `json:"seq"`
	StatementSeq int          `json:"statement_seq"`
	Kind         ActionKind   `json:"kind"`
	Effect       UpdateEffect `json:"effect,omitempty"`
	PartitionKey string       `json:"partition_key"`
	IsNewEntity  bool         `json:"is_new_entity"`
	Identity     Keys         `json:"identity,omitempty"`
	FoundingID   string       `json:"founding_id,omitempty"`
	// Old is the target row being modified or removed.
	Old *Period `json:"old,omitempty"`
	// New is the period written by INSERT or UPDATE.
	New    *Period `json:"new,omitempty"`
	Data   Payload `json:"data,omitempty"`
	RowIDs []int64 `json:"row_ids"`
	// SourceRelation relates the newest contributing source row to Old.
	SourceRelation interval.Relation `json:"source_relation,omitempty"`
	// TargetRelation relates New to Old.
	TargetRelation interval.Relation `json:"target_relation,omitempty"`
	Message        string            `json:"message,omitempty"`
}

// FeedbackStatus is the outcome reported per source row.
type FeedbackStatus string

const (
	StatusApplied          FeedbackStatus = "APPLIED"
	StatusSkippedIdentical FeedbackStatus = "SKIPPED_IDENTICAL"
	StatusSkippedFiltered  FeedbackStatus = "SKIPPED_FILTERED"
	StatusSkippedNoTarget  FeedbackStatus = "SKIPPED_NO_TARGET"
	StatusSkippedEclipsed  FeedbackStatus = "SKIPPED_ECLIPSED"
	StatusError            FeedbackStatus = "ERROR"
)

// Feedback reports the outcome for one source row.
type Feedback struct {
	RowID   int64          `json:"row_id"`
	Status  FeedbackStatus `json:"status"`
	Message string         `json:"message,omitempty"`
	// Identity is the discovered stable key, set when key back-writing is on.
	Identity Keys `json:"identity,omitempty"`
}

// Plan is the ordered output of one planning run.
type Plan struct {
	ID          string          `json:"id"`
	Fingerprint string          `json:"fingerprint"`
	Domain      Domain          `json:"domain"`
	Actions     []PlannedAction `json:"actions"`
	Feedback    []Feedback      `json:"feedback"`
}

// Count returns the number of actions of kind k.
func (p *Plan) Count(k ActionKind) int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind == k {
			n++
		}
	}
	return n
}

// FeedbackFor returns the feedback entry of rowID.
func (p *Plan) FeedbackFor(rowID int64) (Feedback, bool) {
	for _, f := range p.Feedback {
		if f.RowID == rowID {
			return f, true
		}
	}
	return Feedback{}, false
}
