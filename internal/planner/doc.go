// Package planner turns a batch of source rows and the current target
// timeline into an ordered plan of temporal DML actions.
//
// Planning runs in phases:
//
//  1. Input checks: configuration validation, duplicate row ids, empty
//     periods.
//  2. Identity resolution partitions rows by entity (internal/identity).
//  3. Per partition, on a bounded worker pool: mode filtering, eclipse
//     detection, atomic segmentation (internal/sweep), payload resolution
//     (internal/payload), coalescing (internal/coalesce) and
//     classification (internal/diff).
//  4. The concatenated actions are ordered once, globally (internal/order),
//     and folded into per-row feedback (internal/feedback).
//
// Partitions share no mutable state, so results do not depend on worker
// count or scheduling. The planner never performs I/O and never mutates its
// input.
package planner
