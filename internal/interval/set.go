package interval

import (
	"cmp"
	"slices"
)

// Set is a normalised multirange: sorted, non-overlapping, non-adjacent
// intervals. The zero value is the empty set.
type Set[T cmp.Ordered] struct {
	ranges []Interval[T]
}

// NewSet builds a Set from arbitrary intervals.
func NewSet[T cmp.Ordered](ivs ...Interval[T]) *Set[T] {
	s := &Set[T]{}
	for _, iv := range ivs {
		s.Add(iv)
	}
	return s
}

// Add inserts iv, merging it with every interval it overlaps or touches.
func (s *Set[T]) Add(iv Interval[T]) {
	if !iv.Valid() {
		return
	}
	// First range whose Until >= iv.From may merge with iv.
	i, _ := slices.BinarySearchFunc(s.ranges, iv.From, func(r Interval[T], p T) int {
		return cmp.Compare(r.Until, p)
	})
	j := i
	merged := iv
	for j < len(s.ranges) && cmp.Compare(s.ranges[j].From, merged.Until) <= 0 {
		merged = merged.Hull(s.ranges[j])
		j++
	}
	s.ranges = slices.Replace(s.ranges, i, j, merged)
}

// Covers reports whether iv lies entirely within a single range of s.
func (s *Set[T]) Covers(iv Interval[T]) bool {
	i, found := slices.BinarySearchFunc(s.ranges, iv.From, func(r Interval[T], p T) int {
		if cmp.Compare(r.Until, p) <= 0 {
			return -1
		}
		if cmp.Less(p, r.From) {
			return 1
		}
		return 0
	})
	return found && s.ranges[i].Contains(iv)
}

// Ranges returns a copy of the normalised intervals.
func (s *Set[T]) Ranges() []Interval[T] {
	return slices.Clone(s.ranges)
}

// Len returns the number of disjoint ranges.
func (s *Set[T]) Len() int {
	return len(s.ranges)
}

// CoversWithoutGaps reports whether the union of ranges covers target with no
// hole. Inputs need not be sorted or disjoint.
func CoversWithoutGaps[T cmp.Ordered](target Interval[T], ranges []Interval[T]) bool {
	return NewSet(ranges...).Covers(target)
}

// Gaps returns the parts of target not covered by ranges, in order.
func Gaps[T cmp.Ordered](target Interval[T], ranges []Interval[T]) []Interval[T] {
	var gaps []Interval[T]
	cursor := target.From
	for _, r := range NewSet(ranges...).ranges {
		if cmp.Compare(r.Until, cursor) <= 0 {
			continue
		}
		if cmp.Compare(r.From, target.Until) >= 0 {
			break
		}
		if cmp.Less(cursor, r.From) {
			gaps = append(gaps, Interval[T]{From: cursor, Until: r.From})
		}
		cursor = r.Until
	}
	if cmp.Less(cursor, target.Until) {
		gaps = append(gaps, Interval[T]{From: cursor, Until: target.Until})
	}
	return gaps
}
