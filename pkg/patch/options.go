package patch

import (
	"errors"
	"io"
	"strings"
	"unicode"
)

const (
	// DefaultFuzz is the edit budget the command line uses when relocating a hunk.
	DefaultFuzz = 2
	// DefaultSearchRadius bounds how far from its declared line a hunk is searched for.
	DefaultSearchRadius = 100
)

// Options configure parsing and merging. Every knob is passed explicitly; the package keeps no
// global state.
type Options struct {
	// Dialect forces a dialect. DialectUnknown lets the parser detect it.
	Dialect Dialect
	// Fuzz is the maximum number of single-line insertions or deletions tolerated when a hunk is
	// relocated. A replaced line costs two. Zero still relocates, but only onto exact matches.
	Fuzz int
	// SearchRadius bounds the relocation search around the declared position. Zero selects
	// DefaultSearchRadius; a negative radius disables relocation.
	SearchRadius int
	// IgnoreWhitespace compares lines with all whitespace removed.
	IgnoreWhitespace bool

	Logger  Logger
	Metrics Metrics
}

// FilesystemOptions augments Options with the knobs needed when patching files on disk.
type FilesystemOptions struct {
	Options
	// WorkingDir resolves relative target paths. Defaults to the process working directory.
	WorkingDir string
	// Target overrides the file named by the patch headers. It comes from the caller, so it is not
	// subject to the unsafe path checks.
	Target string
	// Strip removes this many leading path components from header file names.
	Strip int
	// Reverse applies the patch from the new side to the old side.
	Reverse bool
	// DryRun runs the merge and reports verdicts without writing anything.
	DryRun bool
	// AllowUnsafePaths permits absolute paths and ".." components in targets.
	AllowUnsafePaths bool
	// Forward skips a change set as a whole when any of its hunks is already applied. The target
	// is left untouched and the FileResult is marked Skipped.
	Forward bool
	// RejectFile, when set, collects the conflicting hunks of every file as a unified diff. It is
	// resolved against WorkingDir and, like Target, trusted. Nothing is written when no hunk
	// conflicts or during a dry run.
	RejectFile string
	// Output, when set, receives the merged document instead of the target file.
	Output io.Writer
}

// setDefaults fills zero values.
func (o *Options) setDefaults() {
	if o.SearchRadius == 0 {
		o.SearchRadius = DefaultSearchRadius
	}
	if o.Logger == nil {
		o.Logger = &NoOpLogger{}
	}
	if o.Metrics == nil {
		o.Metrics = &NoOpMetrics{}
	}
}

// validate performs lightweight validation of user supplied options.
func (o *Options) validate() error {
	if o.Fuzz < 0 {
		return &Error{Code: CodeInvalidOptions, Err: errors.New("fuzz must not be negative")}
	}
	return nil
}

func (o Options) prepared() (Options, error) {
	o.setDefaults()
	if err := o.validate(); err != nil {
		return o, err
	}
	return o, nil
}

// equal returns the line comparison selected by the options.
func (o Options) equal() func(a, b string) bool {
	if o.IgnoreWhitespace {
		return func(a, b string) bool {
			return normalizeLine(a) == normalizeLine(b)
		}
	}
	return func(a, b string) bool { return a == b }
}

// normalizeLine drops every whitespace rune so that reindented lines compare equal.
func normalizeLine(line string) string {
	if line == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(line))
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
