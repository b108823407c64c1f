// Package ir provides the typed command, acknowledgement and dispatch records
// that flow between the wire decoder, the engine and the journal.
//
// This package contains type definitions and their canonical encoding only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - quantities, weights and ticks are int64
//   - Commands are a sealed set; only types in this package implement Command
//   - All JSON tags use snake_case
//   - Logical ticks only, never wall-clock timestamps
package ir
