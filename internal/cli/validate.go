package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/pantry/internal/wire"
)

// ValidationError is one problem found in a validated file.
type ValidationError struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Dialect string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate config files and record streams without running them",
		Long: `Validate pantry.cue configuration files and record streams.

A .cue file is checked against the configuration schema. Any other file is
decoded as a record stream: the header and every command record must be
well formed. Every malformed record is reported, not only the first.

Exit codes:
  0 - All files valid
  1 - Validation failed
  2 - Command error (file not found, etc.)

Examples:
  pantry validate pantry.cue
  pantry validate orders.txt
  pantry validate --dialect it ordini.txt`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", string(wire.English), "record vocabulary of streams (en|it)")

	return cmd
}

func runValidate(opts *ValidateOptions, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	dialect, err := wire.ParseDialect(opts.Dialect)
	if err != nil {
		return outputValidateError(formatter, ErrCodeConfig, err.Error(), nil)
	}

	for _, f := range files {
		if !fileExists(f) {
			return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("file not found: %s", f), nil)
		}
	}

	var validationErrors []ValidationError
	for _, f := range files {
		if filepath.Ext(f) == ".cue" {
			formatter.VerboseLog("Validating config: %s", f)
			validationErrors = append(validationErrors, validateConfigFile(f)...)
			continue
		}

		formatter.VerboseLog("Validating stream: %s (dialect %s)", f, dialect)
		errs, err := validateStreamFile(f, dialect)
		if err != nil {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
		}
		validationErrors = append(validationErrors, errs...)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, len(files))
}

// validateConfigFile checks a pantry.cue file against the schema.
func validateConfigFile(path string) []ValidationError {
	if _, err := loadConfigFile(path); err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return []ValidationError{{
				File:    path,
				Line:    getLineFromLoadError(loadErr),
				Code:    loadErr.Code,
				Message: loadErr.Message,
			}}
		}
		return []ValidationError{{File: path, Code: ErrCodeConfig, Message: err.Error()}}
	}
	return nil
}

// validateStreamFile decodes every record of a stream and collects the
// malformed ones. The error return is for read failures only.
func validateStreamFile(path string, dialect wire.Dialect) ([]ValidationError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var errs []ValidationError
	collect := func(err error) error {
		var decErr *wire.DecodeError
		if errors.As(err, &decErr) {
			errs = append(errs, ValidationError{
				File:    path,
				Line:    decErr.Line,
				Code:    ErrCodeDecode,
				Message: decErr.Reason,
			})
			return nil
		}
		return err
	}

	dec := wire.NewDecoder(f, dialect)
	if _, err := dec.Header(); err != nil {
		if errors.Is(err, wire.ErrMissingHeader) {
			return []ValidationError{{File: path, Code: ErrCodeDecode, Message: err.Error()}}, nil
		}
		if err := collect(err); err != nil {
			return nil, err
		}
	}

	for {
		_, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return errs, nil
		}
		if err != nil {
			if err := collect(err); err != nil {
				return nil, err
			}
		}
	}
}

// getLineFromLoadError extracts the line number of a config error.
func getLineFromLoadError(err *LoadError) int {
	if err.Pos.IsValid() {
		return err.Pos.Line()
	}
	return 0
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, files int) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true, Files: files}
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d file(s) valid\n", files)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
