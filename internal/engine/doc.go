// Package engine runs flanker and Stroop experiments.
//
// A run is built bottom-up:
//
//	Scheduler.Plan
//	  BuildBlocks     one Block per specification source
//	  RandomizeEach   within-block trial shuffle
//	  Interleave      round-robin merge of the Stroop and flanker lists
//	Runner.Execute
//	  Block.Run       instruction, then every Trial in order
//	  Trial.Run       present, reset stopwatch, await keys, score
//	Run.ExportRows    one row per executed trial, global index from 0
//
// Execution is single-threaded. The only suspension point is
// Presenter.AwaitKeys, which blocks until the participant responds or the
// context is cancelled.
//
// All collaborators reach the trials through an explicit *Session handle.
// Presentation, key input and the stopwatch are interfaces so tests can
// script a session deterministically; see package present and testutil.
//
// Scoring is strict: exactly one key is compared against the expected key.
// No key, or two and more keys pressed together, is always "invalid", even
// when one of them is the correct key.
package engine
