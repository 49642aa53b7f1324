// Package report renders the verdicts of a fuzzpatch run as plain or styled text, JSON, or
// markdown.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/asynkron/fuzzpatch/pkg/patch"
)

// File is the outcome for one patched file together with the hunks that produced it. Skipped
// files were left alone because their patch looked already applied.
type File struct {
	Path    string        `json:"path"`
	Status  string        `json:"status"`
	DryRun  bool          `json:"dryRun,omitempty"`
	Skipped bool          `json:"skipped,omitempty"`
	Result  *patch.Result `json:"result"`
	// Hunks line up with Result.Outcomes and feed conflict details.
	Hunks []patch.Hunk `json:"-"`
}

// Options select the rendering.
type Options struct {
	// Format is "text", "json" or "markdown".
	Format string
	// Color is "auto", "always" or "never". Auto honours the terminal and NO_COLOR.
	Color string
	// Width wraps rendered markdown. Zero selects 80 columns.
	Width int
	// RejectFile names the file that received the failed hunks, if any.
	RejectFile string
}

// Totals counts hunks per verdict across files.
type Totals struct {
	Files          int `json:"files"`
	Clean          int `json:"clean"`
	AlreadyApplied int `json:"alreadyApplied"`
	Conflicts      int `json:"conflicts"`
	Ignored        int `json:"ignored"`
}

// Hunks returns the total number of hunks.
func (t Totals) Hunks() int { return t.Clean + t.AlreadyApplied + t.Conflicts + t.Ignored }

// Summarize tallies verdicts over files. Every hunk of a skipped file counts as ignored.
func Summarize(files []File) Totals {
	totals := Totals{Files: len(files)}
	for _, file := range files {
		if file.Skipped {
			if file.Result != nil {
				totals.Ignored += len(file.Result.Outcomes)
			}
			continue
		}
		counts := file.Result.Counts()
		totals.Clean += counts[patch.VerdictClean]
		totals.AlreadyApplied += counts[patch.VerdictAlreadyApplied]
		totals.Conflicts += counts[patch.VerdictConflict]
	}
	return totals
}

// Write renders files to w.
func Write(w io.Writer, files []File, opts Options) error {
	profile := ColorProfile(w, opts.Color)
	switch opts.Format {
	case "", "text":
		_, err := io.WriteString(w, Text(files, profile, opts.RejectFile))
		return err
	case "json":
		return JSON(w, files)
	case "markdown":
		rendered, err := Markdown(files, profile, opts.Width)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, rendered)
		return err
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// ColorProfile resolves a color mode for w. Only "auto" inspects the terminal.
func ColorProfile(w io.Writer, mode string) termenv.Profile {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return termenv.ANSI256
	case "never":
		return termenv.Ascii
	default:
		return termenv.NewOutput(w).EnvColorProfile()
	}
}

// MetricsLine condenses a metrics snapshot into one line for verbose runs.
func MetricsLine(s patch.MetricsSnapshot) string {
	return fmt.Sprintf("metrics: parses=%d hunks=%d clean=%d already_applied=%d conflicts=%d relocated=%d fuzzy=%d applies=%d failed=%d apply_time=%s",
		s.Parses,
		s.HunksParsed,
		s.Verdicts[patch.VerdictClean.String()],
		s.Verdicts[patch.VerdictAlreadyApplied.String()],
		s.Verdicts[patch.VerdictConflict.String()],
		s.Relocated,
		s.FuzzyMatches,
		s.Applies.Total,
		s.Applies.Failed,
		s.Applies.TotalTime,
	)
}

func fileVerb(file File) string {
	if file.DryRun {
		return "checking file"
	}
	switch file.Status {
	case patch.StatusAdded:
		return "creating file"
	case patch.StatusDeleted:
		return "removing file"
	}
	return "patching file"
}

func failureLine(totals Totals, rejectFile string) string {
	if totals.Conflicts == 0 {
		return ""
	}
	line := fmt.Sprintf("%d out of %d %s FAILED", totals.Conflicts, totals.Hunks(), hunkNoun(totals.Hunks()))
	if rejectFile != "" {
		line += " -- saving rejects to file " + rejectFile
	}
	return line
}

func hunkNoun(n int) string {
	if n == 1 {
		return "hunk"
	}
	return "hunks"
}
