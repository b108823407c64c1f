package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/pantry/internal/catalog"
)

// CommandError is a recovered, non-fatal failure of a single command.
//
// Command errors include:
//   - Already exists: a recipe with the same name is registered
//   - Not found: removal of, or an order against, an unknown recipe
//   - In use: removal refused while queued or waiting orders reference it
//   - Unrecognized: the input record matched no command
//
// None of them stop the command stream; the engine records the error on the
// Outcome and moves on to the next tick.
type CommandError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Recipe names the recipe involved, if any.
	Recipe string

	// Tick is the tick the command ran at.
	Tick int64

	err error
}

// ErrorCode categorizes command errors.
type ErrorCode string

const (
	// ErrCodeAlreadyExists indicates a duplicate recipe creation.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrCodeNotFound indicates an unknown recipe.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInUse indicates removal refused because orders reference the recipe.
	ErrCodeInUse ErrorCode = "IN_USE"

	// ErrCodeUnrecognized indicates an unknown command token.
	ErrCodeUnrecognized ErrorCode = "UNRECOGNIZED"
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Recipe != "" {
		return fmt.Sprintf("%s: %s (recipe=%s, tick=%d)", e.Code, e.Message, e.Recipe, e.Tick)
	}
	return fmt.Sprintf("%s: %s (tick=%d)", e.Code, e.Message, e.Tick)
}

// Unwrap returns the underlying catalog error, if any.
func (e *CommandError) Unwrap() error {
	return e.err
}

// IsAlreadyExists returns true if err is a duplicate-recipe error.
// Uses errors.As to handle wrapped errors.
func IsAlreadyExists(err error) bool {
	return hasCode(err, ErrCodeAlreadyExists)
}

// IsNotFound returns true if err is an unknown-recipe error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsInUse returns true if err is a removal-refused error.
func IsInUse(err error) bool {
	return hasCode(err, ErrCodeInUse)
}

// IsUnrecognized returns true if err is an unknown-command error.
func IsUnrecognized(err error) bool {
	return hasCode(err, ErrCodeUnrecognized)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// newCatalogError maps a catalog sentinel to a CommandError.
func newCatalogError(err error, recipe string, tick int64) *CommandError {
	ce := &CommandError{Message: err.Error(), Recipe: recipe, Tick: tick, err: err}
	switch {
	case errors.Is(err, catalog.ErrAlreadyExists):
		ce.Code = ErrCodeAlreadyExists
	case errors.Is(err, catalog.ErrInUse):
		ce.Code = ErrCodeInUse
	default:
		ce.Code = ErrCodeNotFound
	}
	return ce
}

// newUnrecognizedError creates a CommandError for an unknown command token.
func newUnrecognizedError(token string, tick int64) *CommandError {
	return &CommandError{
		Code:    ErrCodeUnrecognized,
		Message: fmt.Sprintf("unknown command %q", token),
		Tick:    tick,
	}
}
