// Package harness runs merge scenarios as executable contract tests.
//
// A scenario names a merge configuration, a target timeline and a source
// batch, plans the batch and checks the plan against assertions. Scenarios
// that ask for it also apply the plan to a scratch SQLite store and plan
// the same batch again to prove that a second run changes nothing.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: patch_ignores_nulls
//	description: "Explicit nulls in a PATCH source keep the target value"
//	config:
//	  mode: MERGE_ENTITY_PATCH
//	  era: { domain: date, valid_from: valid_from, valid_until: valid_until }
//	  identity_columns: [id]
//	target:
//	  - identity: { id: 1 }
//	    from: "2024-01-01"
//	    until: "2024-03-01"
//	    data: { A: 1, B: 2 }
//	source:
//	  - row_id: 1
//	    identity: { id: 1 }
//	    from: "2024-02-01"
//	    until: "2024-04-01"
//	    data: { B: 99, C: null }
//	idempotent: true
//	assertions:
//	  - type: action
//	    kind: UPDATE
//	    effect: SHRINK
//	    new: "[2024-01-01,2024-02-01)"
//	  - type: feedback
//	    row_id: 1
//	    status: APPLIED
//
// Boundaries are written in the era's domain; "infinity" and "-infinity"
// are accepted everywhere.
//
// # Assertion Types
//
//   - action: some action matches kind and the optional effect, periods,
//     row ids and data subset
//   - action_count: exactly count actions of kind
//   - kinds: the full sequence of action kinds in plan order
//   - feedback: the row's feedback status, optionally a message substring
//   - final_state: the entity's stored periods after the plan is applied
//
// Every run also checks that each source row has exactly one feedback entry
// and that the plan is in execution order.
//
// # Deterministic Testing
//
// Plans use a fixed plan ID (scenario.plan_id, default "test-plan") and
// generated stable keys are "key-1", "key-2", ... so that rendered plans
// are byte-identical across runs for golden file comparison.
package harness
