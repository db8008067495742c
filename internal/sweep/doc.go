// Package sweep splits one partition's source and target periods into
// atomic segments: maximal sub-intervals over which the set of covering
// rows does not change.
//
// The sweep sorts boundary events once and maintains the active rows in a
// B-tree ordered by row id, so a partition with n rows is processed in
// O(n log n) plus the size of the output.
package sweep
