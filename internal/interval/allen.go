package interval

import "cmp"

// Relation is one of Allen's thirteen interval relations, named from the
// point of view of the left operand.
type Relation string

const (
	RelPrecedes     Relation = "precedes"
	RelMeets        Relation = "meets"
	RelOverlaps     Relation = "overlaps"
	RelStarts       Relation = "starts"
	RelDuring       Relation = "during"
	RelFinishes     Relation = "finishes"
	RelEquals       Relation = "equals"
	RelPrecededBy   Relation = "preceded_by"
	RelMetBy        Relation = "met_by"
	RelOverlappedBy Relation = "overlapped_by"
	RelStartedBy    Relation = "started_by"
	RelContains     Relation = "contains"
	RelFinishedBy   Relation = "finished_by"
)

// Inverse returns the relation seen from the right operand.
func (r Relation) Inverse() Relation {
	switch r {
	case RelPrecedes:
		return RelPrecededBy
	case RelMeets:
		return RelMetBy
	case RelOverlaps:
		return RelOverlappedBy
	case RelStarts:
		return RelStartedBy
	case RelDuring:
		return RelContains
	case RelFinishes:
		return RelFinishedBy
	case RelPrecededBy:
		return RelPrecedes
	case RelMetBy:
		return RelMeets
	case RelOverlappedBy:
		return RelOverlaps
	case RelStartedBy:
		return RelStarts
	case RelContains:
		return RelDuring
	case RelFinishedBy:
		return RelFinishes
	default:
		return r
	}
}

// Precedes: a ends strictly before b starts.
func (a Interval[T]) Precedes(b Interval[T]) bool {
	return cmp.Less(a.Until, b.From)
}

// Meets: a ends exactly where b starts.
func (a Interval[T]) Meets(b Interval[T]) bool {
	return a.Until == b.From
}

// Overlaps: a starts first and ends inside b.
func (a Interval[T]) Overlaps(b Interval[T]) bool {
	return cmp.Less(a.From, b.From) && cmp.Less(b.From, a.Until) && cmp.Less(a.Until, b.Until)
}

// Starts: same start, a ends first.
func (a Interval[T]) Starts(b Interval[T]) bool {
	return a.From == b.From && cmp.Less(a.Until, b.Until)
}

// During: a lies strictly inside b.
func (a Interval[T]) During(b Interval[T]) bool {
	return cmp.Less(b.From, a.From) && cmp.Less(a.Until, b.Until)
}

// Finishes: same end, a starts later.
func (a Interval[T]) Finishes(b Interval[T]) bool {
	return a.Until == b.Until && cmp.Less(b.From, a.From)
}

// Equals: identical bounds.
func (a Interval[T]) Equals(b Interval[T]) bool {
	return a.From == b.From && a.Until == b.Until
}

func (a Interval[T]) PrecededBy(b Interval[T]) bool   { return b.Precedes(a) }
func (a Interval[T]) MetBy(b Interval[T]) bool        { return b.Meets(a) }
func (a Interval[T]) OverlappedBy(b Interval[T]) bool { return b.Overlaps(a) }
func (a Interval[T]) StartedBy(b Interval[T]) bool    { return b.Starts(a) }
func (a Interval[T]) FinishedBy(b Interval[T]) bool   { return b.Finishes(a) }

// ContainsStrictly is the Allen "contains" relation: b lies strictly inside a.
// See Contains for the non-strict form.
func (a Interval[T]) ContainsStrictly(b Interval[T]) bool { return b.During(a) }

// Relate returns the unique Allen relation holding between a and b.
func Relate[T cmp.Ordered](a, b Interval[T]) Relation {
	switch {
	case a.Equals(b):
		return RelEquals
	case a.Precedes(b):
		return RelPrecedes
	case a.Meets(b):
		return RelMeets
	case a.Overlaps(b):
		return RelOverlaps
	case a.Starts(b):
		return RelStarts
	case a.During(b):
		return RelDuring
	case a.Finishes(b):
		return RelFinishes
	case a.PrecededBy(b):
		return RelPrecededBy
	case a.MetBy(b):
		return RelMetBy
	case a.OverlappedBy(b):
		return RelOverlappedBy
	case a.StartedBy(b):
		return RelStartedBy
	case a.FinishedBy(b):
		return RelFinishedBy
	default:
		return RelContains
	}
}
