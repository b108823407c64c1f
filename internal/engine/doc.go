// Package engine implements the pantry order-fulfillment engine.
//
// The engine receives decoded commands one at a time, mutates the recipe
// registry and the ingredient ledger, admits or defers orders, and hands
// fulfilled orders to a capacity-bounded courier at fixed tick intervals.
//
// ARCHITECTURE:
//
// Single-Writer Tick Loop:
// Every command is processed to completion before the next one starts, and
// the logical tick advances by exactly one per command. This ensures:
//   - the feasibility memo stays valid for the whole of one tick
//   - dispatch happens at the same point of the stream on every run
//   - replaying a journal reproduces every acknowledgement
//
// Command Processing Flow:
//  1. Engine.Apply() checks whether a dispatch is due at the current tick
//  2. a due dispatch drains the order queue under the capacity bound
//  3. the command runs against the registry, ledger, queue or waiting list
//  4. the tick advances
//
// Engine.Finish() runs the trailing dispatch once the stream is exhausted.
//
// Components:
//   - Checker: decides whether N units of a recipe can be produced now
//   - Fulfiller: consumes ingredients and queues the resulting Order
//   - OrderQueue: fulfilled orders ascending by creation tick
//   - WaitingList: FIFO of orders that failed feasibility on admission
//   - Courier: greedy capacity-bounded loader with its two-key report order
//
// Loop wraps an Engine for concurrent producers: commands are enqueued from
// any goroutine and applied by the single goroutine that calls Run.
//
// There is no randomness, no wall-clock time and no concurrency inside
// the engine itself.
package engine
