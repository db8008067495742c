// Package interval implements the half-open interval algebra used by the
// planner: point/interval predicates, Allen's thirteen relations and a small
// multirange type for union and coverage checks.
//
// Intervals are generic over cmp.Ordered so the same code serves integer
// eras, ordinal date points and string-valued test fixtures. This package
// imports nothing internal.
package interval
