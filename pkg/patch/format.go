package patch

import (
	"errors"
	"fmt"
	"strings"
)

// FormatError renders err into a message suitable for end users.
func FormatError(err error) string {
	if err == nil {
		return "Unknown error occurred."
	}
	var pe *Error
	if !errors.As(err, &pe) {
		return err.Error()
	}
	switch pe.Code {
	case CodeParse:
		return "malformed patch: " + pe.Error()
	case CodeUnsafePath:
		return "refusing to touch an unsafe path: " + pe.Error()
	case CodeCanceled:
		return "patching canceled: " + pe.Error()
	}
	return pe.Error()
}

// DescribeOutcomes summarises per-hunk verdicts the way patch reports them, one line per hunk.
func DescribeOutcomes(outcomes []Outcome) string {
	lines := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		lines = append(lines, describeOutcome(outcome))
	}
	return strings.Join(lines, "\n")
}

func describeOutcome(o Outcome) string {
	switch o.Verdict {
	case VerdictConflict:
		return fmt.Sprintf("Hunk #%d FAILED at %d.", o.Number, o.Applied)
	case VerdictAlreadyApplied:
		return fmt.Sprintf("Hunk #%d already applied at %d.", o.Number, o.Applied)
	}
	var notes []string
	if o.Edits > 0 {
		notes = append(notes, fmt.Sprintf("with fuzz %d", o.Edits))
	}
	if o.Offset != 0 {
		unit := "lines"
		if o.Offset == 1 || o.Offset == -1 {
			unit = "line"
		}
		notes = append(notes, fmt.Sprintf("(offset %d %s)", o.Offset, unit))
	}
	if len(notes) == 0 {
		return fmt.Sprintf("Hunk #%d succeeded at %d.", o.Number, o.Applied)
	}
	return fmt.Sprintf("Hunk #%d succeeded at %d %s.", o.Number, o.Applied, strings.Join(notes, " "))
}
