// Package harness runs scripted experiment scenarios end to end.
//
// A scenario declares specification sources, the block lists of both tasks,
// the participant and one scripted response per trial. The harness drives
// the real scheduler and runner with a scripted presenter and a manual
// stopwatch, stores rows in an in-memory database, reads them back and
// renders the CSV response log.
//
// # Scenario Format
//
//	name: stroop_first_basic
//	description: "What this scenario validates"
//	participant: { id: p01, type: main }
//	stroop_first: true
//	shuffle: false
//	seed: 7
//	settle: 500ms
//	sources:
//	  - id: ft_b1.csv
//	    rows: [[left, congruent], [right, incongruent]]
//	  - id: st_b1.csv
//	    path: specs/st_b1.csv
//	flanker: [ft_b1.csv]
//	stroop: [st_b1.csv]
//	responses:
//	  - { keys: [b], rt: 450ms }
//	load_errors: 0
//	assertions:
//	  - { type: row_count, count: 4 }
//	  - { type: label_count, label: correct, count: 2 }
//	  - { type: block_order, blocks: [st_b1.csv, ft_b1.csv] }
//	  - { type: row, index: 0, expect: { response: b } }
//
// Row assertions name columns as the CSV header does and compare rendered
// field values.
//
// # Deterministic Testing
//
// Response times come from the scripted RT values, session ids from a
// sequential generator and shuffles from the scenario seed (1 when unset),
// so the CSV is identical across runs and can be compared against
// testdata/golden/{name}.golden with RunWithGolden.
package harness
