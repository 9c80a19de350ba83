// Package harness runs scripted scenarios against a durable state and
// records what reaches storage.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	state: settings
//	policy: every:2
//	initial: { theme: dark }
//	steps:
//	  - op: set
//	    path: $.window.width
//	    value: 800
//	  - op: append
//	    path: $.recent
//	    value: a.txt
//	  - op: remove_index
//	    path: $.recent
//	    index: 0
//	  - op: delete
//	    path: $.theme
//	  - op: snapshot
//	  - op: reopen
//	  - op: set
//	    path: $.missing.key
//	    value: 1
//	    error: container does not exist
//	assertions:
//	  - type: final_value
//	    path: $.window
//	    expect: { width: 800 }
//	  - type: snapshot_ids
//	    change_ids: [2, 4]
//	  - type: change_count
//	    count: 5
//	  - type: verify
//
// # Assertion Types
//
//   - final_value: the value at path (default: the root) after the last step
//   - snapshot_ids: the change ids of the stored snapshots, oldest first
//   - change_count: the number of logged changes of the state
//   - verify: every snapshot agrees with the log and a fresh resume equals
//     the final value
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite database, a
// testutil.DeterministicClock for snapshot times and
// testutil.SequentialBatchIDs named after the state for batch ids, so a
// scenario's trace is byte-identical across runs and can be compared with
// a golden file.
package harness
