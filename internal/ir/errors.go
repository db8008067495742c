package ir

import (
	"errors"
	"fmt"
)

// PartitionErrorCode categorizes invariant violations inside one partition.
type PartitionErrorCode string

const (
	// ErrCodeTargetOverlap indicates two target rows of one entity overlap.
	ErrCodeTargetOverlap PartitionErrorCode = "TARGET_OVERLAP"

	// ErrCodeSegmentCorrupt indicates the segment sequence is not ordered
	// and disjoint.
	ErrCodeSegmentCorrupt PartitionErrorCode = "SEGMENT_CORRUPT"

	// ErrCodeUnplannedRow indicates an active source row produced no action.
	ErrCodeUnplannedRow PartitionErrorCode = "UNPLANNED_ROW"
)

// PartitionError is a planner invariant violation scoped to one partition.
// It never aborts the run; the planner turns it into ERROR feedback for
// every source row of the partition.
type PartitionError struct {
	Code      PartitionErrorCode
	Partition string
	Message   string
	// Bounds are the periods involved, already formatted.
	Bounds []string
}

// Error implements the error interface.
func (e *PartitionError) Error() string {
	if len(e.Bounds) > 0 {
		return fmt.Sprintf("%s: %s (partition=%s, bounds=%v)", e.Code, e.Message, e.Partition, e.Bounds)
	}
	return fmt.Sprintf("%s: %s (partition=%s)", e.Code, e.Message, e.Partition)
}

// IsOverlapError returns true if err is a target-overlap partition error.
func IsOverlapError(err error) bool {
	var pe *PartitionError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeTargetOverlap
	}
	return false
}
