// Package harness provides a conformance testing framework for the pantry
// engine.
//
// A scenario is a YAML file naming the run header, the raw input records
// and what the run must produce:
//
//	name: bread_single_visit
//	description: one order shipped on the first courier visit
//	period: 5
//	capacity: 100
//	commands:
//	  - add_recipe bread flour 10
//	  - order bread 3
//	expect:
//	  - added
//	  - accepted
//	final:
//	  waiting: 1
//
// Run decodes the records with the scenario's dialect, drives them through
// engine.Loop and journals the run into a fresh in-memory store. After the
// expect, final and assertion checks, the journal is replayed with Verify;
// any divergence fails the scenario.
//
// RunWithGolden additionally compares the printed transcript against
// testdata/golden/<name>.golden using goldie.
package harness
