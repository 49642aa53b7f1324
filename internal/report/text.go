package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/asynkron/fuzzpatch/pkg/patch"
)

type styles struct {
	file     lipgloss.Style
	clean    lipgloss.Style
	applied  lipgloss.Style
	conflict lipgloss.Style
	detail   lipgloss.Style
	removed  lipgloss.Style
	added    lipgloss.Style
}

// newStyles builds the palette on a private renderer so the global lipgloss profile is left alone.
// An Ascii profile renders every style as plain text.
func newStyles(profile termenv.Profile) styles {
	renderer := lipgloss.NewRenderer(io.Discard)
	renderer.SetColorProfile(profile)
	renderer.SetHasDarkBackground(true)
	return styles{
		file:     renderer.NewStyle().Bold(true),
		clean:    renderer.NewStyle().Foreground(lipgloss.Color("42")),
		applied:  renderer.NewStyle().Foreground(lipgloss.Color("39")),
		conflict: renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		detail:   renderer.NewStyle().Foreground(lipgloss.Color("245")),
		removed:  renderer.NewStyle().Foreground(lipgloss.Color("196")).Strikethrough(true).TabWidth(lipgloss.NoTabConversion),
		added:    renderer.NewStyle().Foreground(lipgloss.Color("42")).Underline(true).TabWidth(lipgloss.NoTabConversion),
	}
}

// Text renders the report in patch's wording, one line per hunk, followed by the mismatches of
// every failed hunk. A non-empty rejectFile is named in the closing failure line.
func Text(files []File, profile termenv.Profile, rejectFile string) string {
	st := newStyles(profile)
	var b strings.Builder
	for _, file := range files {
		fmt.Fprintf(&b, "%s %s\n", fileVerb(file), st.file.Render(file.Path))
		if file.Result == nil {
			continue
		}
		if file.Skipped {
			n := len(file.Result.Outcomes)
			b.WriteString(st.applied.Render("Reversed (or previously applied) patch detected!  Skipping patch."))
			b.WriteByte('\n')
			b.WriteString(st.applied.Render(fmt.Sprintf("%d out of %d %s ignored", n, n, hunkNoun(n))))
			b.WriteByte('\n')
			continue
		}
		for _, outcome := range file.Result.Outcomes {
			line := patch.DescribeOutcomes([]patch.Outcome{outcome})
			switch outcome.Verdict {
			case patch.VerdictConflict:
				b.WriteString(st.conflict.Render(line))
			case patch.VerdictAlreadyApplied:
				b.WriteString(st.applied.Render(line))
			default:
				b.WriteString(st.clean.Render(line))
			}
			b.WriteByte('\n')
			if outcome.Verdict == patch.VerdictConflict {
				writeMismatches(&b, outcome, st)
			}
		}
	}
	if line := failureLine(Summarize(files), rejectFile); line != "" {
		b.WriteString(st.conflict.Render(line))
		b.WriteByte('\n')
	}
	return b.String()
}

func writeMismatches(b *strings.Builder, outcome patch.Outcome, st styles) {
	for _, m := range outcome.Mismatches {
		if m.DocLine == 0 {
			b.WriteString(st.detail.Render(fmt.Sprintf("  expected %q past the end of the document", m.Expected)))
			b.WriteByte('\n')
			continue
		}
		b.WriteString(st.detail.Render(fmt.Sprintf("  line %d: ", m.DocLine)))
		b.WriteString(mismatchDiff(m.Expected, m.Actual, st))
		b.WriteByte('\n')
	}
}
