// Package config loads pantry.cue run configuration.
//
// A configuration file is plain CUE holding any subset of the fields of the
// embedded #Config schema. The file is unified with the schema, validated to
// be concrete, and decoded into Config; omitted fields take the schema's
// defaults and unknown fields are rejected.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// DefaultFile is the file name looked up when no --config flag is given.
const DefaultFile = "pantry.cue"

// Config holds the run settings not carried by the input header.
type Config struct {
	Dialect        string `json:"dialect"`
	MaxIngredients int    `json:"max_ingredients"`
	LogLevel       string `json:"log_level"`
	Journal        string `json:"journal"`
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Parse("defaults", nil)
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, src)
}

// Parse validates src against the schema. filename is only used in error
// positions.
func Parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()
	def, err := schemaDef(ctx)
	if err != nil {
		return Config{}, err
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	iter, err := user.Fields()
	if err != nil {
		return Config{}, formatCUEError(err)
	}
	for iter.Next() {
		if !def.LookupPath(cue.MakePath(iter.Selector())).Exists() {
			return Config{}, &Error{Message: fmt.Sprintf("unknown field %q", iter.Selector()), Pos: iter.Value().Pos()}
		}
	}

	v := def.Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	return cfg, nil
}

// Validate checks c against the schema, e.g. after command-line overrides.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	def, err := schemaDef(ctx)
	if err != nil {
		return err
	}

	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

func schemaDef(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return schema.LookupPath(cue.ParsePath("#Config")), nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to Info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error is a configuration error with its CUE source position, if known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// formatCUEError keeps the first error of a CUE error list along with its
// position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	format, args := first.Msg()
	e := &Error{Message: fmt.Sprintf(format, args...)}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
