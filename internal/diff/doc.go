// Package diff compares the coalesced runs of a partition with the
// partition's existing timeline and classifies every difference as an
// INSERT, UPDATE, DELETE or SKIP action.
//
// Each run descends from at most one target row. Among the runs that
// descend from the same target row exactly one may reuse it through an
// UPDATE; the others become INSERTs. The preferred run starts where the
// target row starts, then carries the target's payload, then comes first.
package diff
