// Package config assembles fuzzpatch settings from built-in defaults, a .env file, FUZZPATCH_*
// environment variables, an optional JSON config file and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/asynkron/fuzzpatch/pkg/patch"
)

// Output formats understood by the report package.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the fully resolved set of knobs for one fuzzpatch run.
type Config struct {
	Dialect          string `json:"dialect"`
	Fuzz             int    `json:"fuzz"`
	SearchRadius     int    `json:"searchRadius"`
	IgnoreWhitespace bool   `json:"ignoreWhitespace"`
	Strip            int    `json:"strip"`
	Reverse          bool   `json:"reverse"`
	Forward          bool   `json:"forward"`
	DryRun           bool   `json:"dryRun"`
	WorkingDir       string `json:"workingDir"`
	AllowUnsafePaths bool   `json:"allowUnsafePaths"`
	Format           string `json:"format"`
	Color            string `json:"color"`
	LogLevel         string `json:"logLevel"`

	// The remaining fields only come from the command line or the environment.
	ConfigFile string `json:"-"`
	PatchFile  string `json:"-"`
	OutputFile string `json:"-"`
	RejectFile string `json:"-"`
	Target     string `json:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Dialect:      "auto",
		Fuzz:         patch.DefaultFuzz,
		SearchRadius: patch.DefaultSearchRadius,
		Format:       FormatText,
		Color:        ColorAuto,
		LogLevel:     string(patch.LogLevelWarn),
	}
}

// LoadDotEnv reads .env style files into the process environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return nil
}

// Validate checks values that every source can get wrong.
func (c Config) Validate() error {
	if _, err := patch.ParseDialect(c.Dialect); err != nil {
		return err
	}
	if c.Fuzz < 0 {
		return fmt.Errorf("fuzz must not be negative, got %d", c.Fuzz)
	}
	if c.Strip < 0 {
		return fmt.Errorf("strip count must not be negative, got %d", c.Strip)
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatMarkdown:
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("unknown color mode %q", c.Color)
	}
	return nil
}

// PatchOptions converts the config into engine options.
func (c Config) PatchOptions(logger patch.Logger, metrics patch.Metrics) (patch.Options, error) {
	dialect, err := patch.ParseDialect(c.Dialect)
	if err != nil {
		return patch.Options{}, err
	}
	return patch.Options{
		Dialect:          dialect,
		Fuzz:             c.Fuzz,
		SearchRadius:     c.SearchRadius,
		IgnoreWhitespace: c.IgnoreWhitespace,
		Logger:           logger,
		Metrics:          metrics,
	}, nil
}

// FilesystemOptions converts the config into options for patching files in place.
func (c Config) FilesystemOptions(logger patch.Logger, metrics patch.Metrics) (patch.FilesystemOptions, error) {
	opts, err := c.PatchOptions(logger, metrics)
	if err != nil {
		return patch.FilesystemOptions{}, err
	}
	return patch.FilesystemOptions{
		Options:          opts,
		WorkingDir:       strings.TrimSpace(c.WorkingDir),
		Target:           c.Target,
		Strip:            c.Strip,
		Reverse:          c.Reverse,
		Forward:          c.Forward,
		DryRun:           c.DryRun,
		RejectFile:       strings.TrimSpace(c.RejectFile),
		AllowUnsafePaths: c.AllowUnsafePaths,
	}, nil
}
