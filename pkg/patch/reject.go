package patch

import (
	"fmt"
	"strings"
)

const noNewlineMarker = `\ No newline at end of file`

// FormatRejects renders the conflicting hunks of cs as a unified diff against path, in the
// orientation they were applied in. It returns "" when no hunk conflicted.
func FormatRejects(path string, cs *ChangeSet, outcomes []Outcome) string {
	if cs == nil {
		return ""
	}
	var b strings.Builder
	for _, outcome := range outcomes {
		if outcome.Verdict != VerdictConflict || outcome.Number < 1 || outcome.Number > len(cs.Hunks) {
			continue
		}
		if b.Len() == 0 {
			fmt.Fprintf(&b, "--- %s\n+++ %s\n", path, path)
		}
		writeUnifiedHunk(&b, cs.Hunks[outcome.Number-1])
	}
	return b.String()
}

func writeUnifiedHunk(b *strings.Builder, h Hunk) {
	fmt.Fprintf(b, "@@ -%s +%s @@", unifiedRange(h.OrigStart, h.OrigCount), unifiedRange(h.NewStart, h.NewCount))
	if h.Label != "" {
		b.WriteString(" " + h.Label)
	}
	b.WriteByte('\n')

	lastOrig, lastNew := -1, -1
	for i, line := range h.Lines {
		if line.Kind != LineAdd {
			lastOrig = i
		}
		if line.Kind != LineRemove {
			lastNew = i
		}
	}
	for i, line := range h.Lines {
		switch line.Kind {
		case LineAdd:
			b.WriteByte('+')
		case LineRemove:
			b.WriteByte('-')
		default:
			b.WriteByte(' ')
		}
		b.WriteString(line.Text)
		b.WriteByte('\n')
		if (h.OrigNoNewline && i == lastOrig) || (h.NewNoNewline && i == lastNew) {
			b.WriteString(noNewlineMarker + "\n")
		}
	}
}

func unifiedRange(start, count int) string {
	if count == 1 {
		return fmt.Sprint(start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
