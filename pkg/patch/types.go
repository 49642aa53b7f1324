package patch

import (
	"fmt"
	"io/fs"
	"strings"
)

// Dialect identifies the textual convention a ChangeSet was written in.
type Dialect int

const (
	// DialectUnknown means no dialect has been detected or requested.
	DialectUnknown Dialect = iota
	// DialectUnified is the "@@ -a,b +c,d @@" format.
	DialectUnified
	// DialectContext is the "***************" format with separate old and new blocks.
	DialectContext
	// DialectNormal is the ed-style "2,4c2,3" format.
	DialectNormal
)

func (d Dialect) String() string {
	switch d {
	case DialectUnified:
		return "unified"
	case DialectContext:
		return "context"
	case DialectNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// ParseDialect maps a user supplied dialect name to a Dialect. The empty string and "auto" map to
// DialectUnknown, which lets the parser detect the dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return DialectUnknown, nil
	case "unified", "u":
		return DialectUnified, nil
	case "context", "c":
		return DialectContext, nil
	case "normal", "n":
		return DialectNormal, nil
	default:
		return DialectUnknown, fmt.Errorf("unknown diff dialect %q", name)
	}
}

// LineKind classifies a line inside a hunk.
type LineKind int

const (
	// LineContext must match the document unchanged.
	LineContext LineKind = iota
	// LineAdd introduces a line that is absent from the original.
	LineAdd
	// LineRemove deletes a line present in the original.
	LineRemove
)

func (k LineKind) String() string {
	switch k {
	case LineContext:
		return "context"
	case LineAdd:
		return "add"
	case LineRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// HunkLine is one body line of a hunk.
type HunkLine struct {
	Kind LineKind
	Text string
}

// Hunk is one contiguous block of changes.
//
// OrigStart and NewStart are 1-based. When a side has a count of zero its start names the line
// after which the change happens, so "@@ -3,0 +4,2 @@" inserts after line 3.
type Hunk struct {
	OrigStart int
	OrigCount int
	NewStart  int
	NewCount  int
	Lines     []HunkLine
	// Label is the enclosing-context text that follows a unified hunk header, usually a function.
	Label string
	// OrigNoNewline and NewNoNewline record "\ No newline at end of file" markers for the last
	// line of the respective side.
	OrigNoNewline bool
	NewNoNewline  bool
	// Position is the 1-based line of the hunk header within the patch stream.
	Position int
	// RawLines is the hunk's text as it appeared in the patch, kept for reports.
	RawLines []string
}

// OrigLines returns the text the hunk expects to find in the document: its context and remove lines.
func (h Hunk) OrigLines() []string {
	out := make([]string, 0, h.OrigCount)
	for _, line := range h.Lines {
		if line.Kind != LineAdd {
			out = append(out, line.Text)
		}
	}
	return out
}

// NewLines returns the text the hunk produces: its context and add lines.
func (h Hunk) NewLines() []string {
	out := make([]string, 0, h.NewCount)
	for _, line := range h.Lines {
		if line.Kind != LineRemove {
			out = append(out, line.Text)
		}
	}
	return out
}

// Validate checks that the declared counts agree with the body.
func (h Hunk) Validate() error {
	var context, added, removed int
	for _, line := range h.Lines {
		switch line.Kind {
		case LineContext:
			context++
		case LineAdd:
			added++
		case LineRemove:
			removed++
		}
	}
	if h.OrigCount != context+removed {
		return fmt.Errorf("hunk at line %d declares %d original lines but has %d", h.Position, h.OrigCount, context+removed)
	}
	if h.NewCount != context+added {
		return fmt.Errorf("hunk at line %d declares %d new lines but has %d", h.Position, h.NewCount, context+added)
	}
	return nil
}

// origIndex is the 0-based document index at which the hunk's original side begins.
func (h Hunk) origIndex() int {
	if h.OrigCount == 0 {
		return h.OrigStart
	}
	if h.OrigStart <= 0 {
		return 0
	}
	return h.OrigStart - 1
}

// Header carries the file metadata found before the first hunk of a file.
type Header struct {
	OldName   string
	NewName   string
	OldTime   string
	NewTime   string
	IndexName string
	OldMode   fs.FileMode
	NewMode   fs.FileMode
	// Git is set when the header came from a "diff --git" extended header.
	Git bool
}

// ChangeSet is the parsed form of the changes for one file.
type ChangeSet struct {
	Dialect Dialect
	Header  Header
	Hunks   []Hunk
}

// Verdict classifies the outcome of applying one hunk.
type Verdict int

const (
	// VerdictClean means every context and remove line matched.
	VerdictClean Verdict = iota
	// VerdictConflict means at least one context or remove line did not match the document.
	VerdictConflict
	// VerdictAlreadyApplied means the document already holds the hunk's new side.
	VerdictAlreadyApplied
)

func (v Verdict) String() string {
	switch v {
	case VerdictClean:
		return "clean"
	case VerdictConflict:
		return "conflict"
	case VerdictAlreadyApplied:
		return "already-applied"
	default:
		return "unknown"
	}
}

// MarshalText renders the verdict for JSON reports.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a verdict produced by MarshalText.
func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "clean":
		*v = VerdictClean
	case "conflict":
		*v = VerdictConflict
	case "already-applied":
		*v = VerdictAlreadyApplied
	default:
		return fmt.Errorf("unknown verdict %q", text)
	}
	return nil
}

// Mismatch records a context or remove line that did not match the document.
type Mismatch struct {
	// HunkLine is the 0-based index into Hunk.Lines.
	HunkLine int `json:"hunkLine"`
	// DocLine is the 1-based document line that was compared, or 0 past the end of the document.
	DocLine  int    `json:"docLine"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Outcome is the verdict for one hunk.
type Outcome struct {
	Number  int     `json:"number"`
	Verdict Verdict `json:"verdict"`
	// Declared is the 1-based line the hunk named; Applied is where it was applied.
	Declared int `json:"declared"`
	Applied  int `json:"applied"`
	// Offset is Applied minus Declared.
	Offset int `json:"offset"`
	// Edits is the edit count reported by the relocation search for the chosen position.
	Edits      int        `json:"edits"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Result is what Merge produces for one document.
type Result struct {
	Lines               []string  `json:"-"`
	Outcomes            []Outcome `json:"outcomes"`
	MissingFinalNewline bool      `json:"missingFinalNewline,omitempty"`
}

// HasConflicts reports whether any hunk ended as a conflict.
func (r *Result) HasConflicts() bool {
	if r == nil {
		return false
	}
	for _, outcome := range r.Outcomes {
		if outcome.Verdict == VerdictConflict {
			return true
		}
	}
	return false
}

// Counts tallies outcomes per verdict.
func (r *Result) Counts() map[Verdict]int {
	counts := make(map[Verdict]int, 3)
	if r == nil {
		return counts
	}
	for _, outcome := range r.Outcomes {
		counts[outcome.Verdict]++
	}
	return counts
}
