package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/pantry/internal/config"
)

// LoadError represents an error that occurred while resolving configuration.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ConfigFlags are the flags that override pantry.cue values.
type ConfigFlags struct {
	Path           string
	Dialect        string
	MaxIngredients int
	LogLevel       string
	Journal        string
}

// addConfigFlags registers the override flags on cmd.
func addConfigFlags(cmd *cobra.Command, f *ConfigFlags) {
	cmd.Flags().StringVar(&f.Path, "config", "", "path to a pantry.cue file (default ./"+config.DefaultFile+" if present)")
	cmd.Flags().StringVar(&f.Dialect, "dialect", "", "record vocabulary (en|it)")
	cmd.Flags().IntVar(&f.MaxIngredients, "max-ingredients", 0, "ingredient slots per recipe")
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&f.Journal, "db", "", "path to SQLite journal")
}

// LoadConfig resolves the effective configuration: the --config file, else
// ./pantry.cue if present, else schema defaults; then flags that were set on
// cmd. The result is validated against the schema.
func LoadConfig(cmd *cobra.Command, f *ConfigFlags) (config.Config, error) {
	cfg, err := loadConfigFile(f.Path)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("dialect") {
		cfg.Dialect = f.Dialect
	}
	if flags.Changed("max-ingredients") {
		cfg.MaxIngredients = f.MaxIngredients
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.LogLevel
	}
	if flags.Changed("db") {
		cfg.Journal = f.Journal
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, asLoadError(err)
	}
	return cfg, nil
}

func loadConfigFile(path string) (config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err != nil {
			return config.Default(), nil
		}
		path = config.DefaultFile
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Config{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, asLoadError(err)
	}
	return cfg, nil
}

func asLoadError(err error) *LoadError {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return &LoadError{Code: ErrCodeConfig, Message: cfgErr.Message, Pos: cfgErr.Pos}
	}
	return &LoadError{Code: ErrCodeConfig, Message: err.Error()}
}

// newLogger builds the stderr text logger. --verbose forces debug.
func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
