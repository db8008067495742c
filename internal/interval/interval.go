package interval

import (
	"cmp"
	"errors"
	"fmt"
)

// ErrEmpty is returned when an interval would have From >= Until.
var ErrEmpty = errors.New("interval: from must be strictly less than until")

// Interval is the half-open range [From, Until).
type Interval[T cmp.Ordered] struct {
	From  T `json:"from" yaml:"from"`
	Until T `json:"until" yaml:"until"`
}

// New returns [from, until) or ErrEmpty.
func New[T cmp.Ordered](from, until T) (Interval[T], error) {
	if cmp.Compare(from, until) >= 0 {
		return Interval[T]{}, fmt.Errorf("%w: [%v,%v)", ErrEmpty, from, until)
	}
	return Interval[T]{From: from, Until: until}, nil
}

// Must is like New but panics on an empty interval.
// Use only in tests or for constant bounds.
func Must[T cmp.Ordered](from, until T) Interval[T] {
	iv, err := New(from, until)
	if err != nil {
		panic(err)
	}
	return iv
}

// Valid reports whether From < Until.
func (a Interval[T]) Valid() bool {
	return cmp.Less(a.From, a.Until)
}

// Bounds returns the two boundary points of a.
func (a Interval[T]) Bounds() (T, T) {
	return a.From, a.Until
}

// String renders the interval as "[from,until)".
func (a Interval[T]) String() string {
	return fmt.Sprintf("[%v,%v)", a.From, a.Until)
}

// ContainsPoint reports whether From <= p < Until.
func (a Interval[T]) ContainsPoint(p T) bool {
	return cmp.Compare(a.From, p) <= 0 && cmp.Less(p, a.Until)
}

// Contains reports whether b lies entirely within a (non-strict).
func (a Interval[T]) Contains(b Interval[T]) bool {
	return cmp.Compare(a.From, b.From) <= 0 && cmp.Compare(b.Until, a.Until) <= 0
}

// Intersects reports whether a and b share at least one point.
func (a Interval[T]) Intersects(b Interval[T]) bool {
	return cmp.Less(a.From, b.Until) && cmp.Less(b.From, a.Until)
}

// Adjacent reports whether a and b touch without sharing a point.
func (a Interval[T]) Adjacent(b Interval[T]) bool {
	return a.Until == b.From || b.Until == a.From
}

// Intersection returns the common part of a and b. ok is false when they
// do not intersect.
func (a Interval[T]) Intersection(b Interval[T]) (Interval[T], bool) {
	if !a.Intersects(b) {
		return Interval[T]{}, false
	}
	return Interval[T]{From: max(a.From, b.From), Until: min(a.Until, b.Until)}, true
}

// Hull returns the smallest interval covering both a and b.
func (a Interval[T]) Hull(b Interval[T]) Interval[T] {
	return Interval[T]{From: min(a.From, b.From), Until: max(a.Until, b.Until)}
}

// Compare orders intervals by From, then Until.
func Compare[T cmp.Ordered](a, b Interval[T]) int {
	if c := cmp.Compare(a.From, b.From); c != 0 {
		return c
	}
	return cmp.Compare(a.Until, b.Until)
}
