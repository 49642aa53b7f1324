package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment variable fuzzpatch reads.
const EnvPrefix = "FUZZPATCH_"

// Load resolves the configuration for one invocation. Defaults are overlaid by environment
// variables, then by the JSON file named with -config (or FUZZPATCH_CONFIG), then by the flags in
// args. Positional arguments are returned untouched. A nil lookup reads the process environment.
func Load(args []string, lookup func(string) (string, bool), stderr io.Writer) (Config, []string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if stderr == nil {
		stderr = io.Discard
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, nil, err
	}

	flagged := cfg
	flagSet := flag.NewFlagSet("fuzzpatch", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		fmt.Fprintln(stderr, "usage: fuzzpatch [flags] [originalfile [patchfile]]")
		flagSet.PrintDefaults()
	}
	flagged.bindFlags(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return Config{}, nil, err
	}

	if flagged.ConfigFile == "" {
		cfg = flagged
	} else {
		cfg.ConfigFile = flagged.ConfigFile
		if err := cfg.ApplyFile(cfg.ConfigFile); err != nil {
			return Config{}, nil, err
		}
		// Flags given explicitly still win over the file.
		flagSet.Visit(func(f *flag.Flag) {
			copyFlag(f.Name, &cfg, &flagged)
		})
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, flagSet.Args(), nil
}

func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.PatchFile, "i", c.PatchFile, "read the patch from `file` instead of stdin")
	fs.StringVar(&c.OutputFile, "o", c.OutputFile, "write the merged result to `file` (\"-\" for stdout) instead of patching in place")
	fs.IntVar(&c.Fuzz, "F", c.Fuzz, "maximum edits tolerated when relocating a hunk")
	fs.IntVar(&c.SearchRadius, "radius", c.SearchRadius, "how many lines around the declared position to search (negative disables relocation)")
	fs.IntVar(&c.Strip, "p", c.Strip, "strip `num` leading path components from file names")
	fs.BoolVar(&c.Reverse, "R", c.Reverse, "apply the patch in reverse")
	fs.BoolVar(&c.Forward, "N", c.Forward, "skip files whose patch looks already applied")
	fs.StringVar(&c.RejectFile, "r", c.RejectFile, "save hunks that fail to apply to `file`")
	fs.BoolVar(&c.DryRun, "dry-run", c.DryRun, "report verdicts without writing any file")
	fs.BoolVar(&c.IgnoreWhitespace, "l", c.IgnoreWhitespace, "ignore whitespace differences when matching")
	fs.StringVar(&c.Dialect, "dialect", c.Dialect, "diff dialect: auto, unified, context or normal")
	fs.StringVar(&c.WorkingDir, "d", c.WorkingDir, "change to `dir` before resolving file names")
	fs.BoolVar(&c.AllowUnsafePaths, "unsafe-paths", c.AllowUnsafePaths, "allow absolute paths and \"..\" components in file names")
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "read settings from a JSON `file`")
	fs.StringVar(&c.Format, "format", c.Format, "report format: text, json or markdown")
	fs.StringVar(&c.Color, "color", c.Color, "colorize the report: auto, always or never")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level written to stderr: debug, info, warn or error")
}

func copyFlag(name string, dst, src *Config) {
	switch name {
	case "i":
		dst.PatchFile = src.PatchFile
	case "o":
		dst.OutputFile = src.OutputFile
	case "F":
		dst.Fuzz = src.Fuzz
	case "radius":
		dst.SearchRadius = src.SearchRadius
	case "p":
		dst.Strip = src.Strip
	case "R":
		dst.Reverse = src.Reverse
	case "N":
		dst.Forward = src.Forward
	case "r":
		dst.RejectFile = src.RejectFile
	case "dry-run":
		dst.DryRun = src.DryRun
	case "l":
		dst.IgnoreWhitespace = src.IgnoreWhitespace
	case "dialect":
		dst.Dialect = src.Dialect
	case "d":
		dst.WorkingDir = src.WorkingDir
	case "unsafe-paths":
		dst.AllowUnsafePaths = src.AllowUnsafePaths
	case "format":
		dst.Format = src.Format
	case "color":
		dst.Color = src.Color
	case "log-level":
		dst.LogLevel = src.LogLevel
	}
}

// ApplyEnv overlays FUZZPATCH_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if value, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	integer := func(name string, dst *int) error {
		value, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(value) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	boolean := func(name string, dst *bool) error {
		value, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(value) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("DIALECT", &c.Dialect)
	str("DIR", &c.WorkingDir)
	str("FORMAT", &c.Format)
	str("COLOR", &c.Color)
	str("LOG_LEVEL", &c.LogLevel)
	str("CONFIG", &c.ConfigFile)
	str("REJECT_FILE", &c.RejectFile)
	for name, dst := range map[string]*int{"FUZZ": &c.Fuzz, "RADIUS": &c.SearchRadius, "STRIP": &c.Strip} {
		if err := integer(name, dst); err != nil {
			return err
		}
	}
	for name, dst := range map[string]*bool{
		"IGNORE_WHITESPACE": &c.IgnoreWhitespace,
		"REVERSE":           &c.Reverse,
		"FORWARD":           &c.Forward,
		"DRY_RUN":           &c.DryRun,
		"UNSAFE_PATHS":      &c.AllowUnsafePaths,
	} {
		if err := boolean(name, dst); err != nil {
			return err
		}
	}
	return nil
}

// ApplyFile overlays the settings in a JSON config file.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return c.ApplyJSON(raw)
}

// ApplyJSON validates raw against the config schema and overlays the keys it sets. Keys that are
// absent leave the current values alone.
func (c *Config) ApplyJSON(raw []byte) error {
	if err := validateAgainstSchema(raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	return nil
}
