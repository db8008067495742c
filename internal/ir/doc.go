// Package ir provides the core data model shared by every planner stage:
// payload values, time points and periods, source and target rows, the
// merge configuration and the planned actions that make up a plan.
//
// All other internal packages import ir; ir imports only the interval
// algebra. Key constraints:
//   - NO float types in payload values; fractional numbers are exact decimals
//   - payloads are tri-state per column (absent, null, value)
//   - all JSON tags use snake_case
//   - hashes are computed over RFC 8785 canonical JSON only
package ir
