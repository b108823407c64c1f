package store

import (
	"errors"

	"github.com/roach88/pantry/internal/ir"
)

// ErrRunNotFound is returned when a run id has no journal entry.
var ErrRunNotFound = errors.New("run not found")

// Run is the header row of one journaled stream.
type Run struct {
	ID             string `json:"id"`
	Period         int64  `json:"period"`
	Capacity       int64  `json:"capacity"`
	Dialect        string `json:"dialect"`
	MaxIngredients int    `json:"max_ingredients"`
	EngineVersion  string `json:"engine_version"`
	IRVersion      string `json:"ir_version"`

	// CreatedSeq orders runs within one journal. Assigned by CreateRun.
	CreatedSeq int64 `json:"created_seq"`

	// FinalTick is the tick after the last command, set by FinishRun.
	// Nil for a run that was interrupted.
	FinalTick *int64 `json:"final_tick,omitempty"`
}

// CommandRecord is one journaled command and its acknowledgement.
type CommandRecord struct {
	ID      string     `json:"id"`
	RunID   string     `json:"run_id"`
	Tick    int64      `json:"tick"`
	Command ir.Command `json:"-"`
	Ack     ir.Ack     `json:"ack"`
	Token   string     `json:"token,omitempty"`
}

// DispatchRecord is one journaled courier report.
type DispatchRecord struct {
	ID       string       `json:"id"`
	RunID    string       `json:"run_id"`
	Tick     int64        `json:"tick"`
	Dispatch *ir.Dispatch `json:"dispatch"`
}
