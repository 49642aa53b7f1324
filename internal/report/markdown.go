package report

import (
	"fmt"
	"strings"

	glam "github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/asynkron/fuzzpatch/pkg/patch"
)

// MarkdownSource builds the markdown document behind the markdown format.
func MarkdownSource(files []File) string {
	var b strings.Builder
	totals := Summarize(files)
	b.WriteString("# Patch report\n\n")
	fmt.Fprintf(&b, "%d file(s), %d hunk(s): %d clean, %d already applied, %d failed",
		totals.Files, totals.Hunks(), totals.Clean, totals.AlreadyApplied, totals.Conflicts)
	if totals.Ignored > 0 {
		fmt.Fprintf(&b, ", %d ignored", totals.Ignored)
	}
	b.WriteString(".\n")

	for _, file := range files {
		fmt.Fprintf(&b, "\n## `%s`\n\n", file.Path)
		fmt.Fprintf(&b, "%s.\n", capitalize(fileVerb(file)))
		if file.Result == nil || len(file.Result.Outcomes) == 0 {
			continue
		}
		if file.Skipped {
			b.WriteString("\nSkipped: the patch looks already applied.\n")
			continue
		}
		b.WriteString("\n| Hunk | Verdict | Declared | Applied | Offset | Fuzz |\n")
		b.WriteString("| ---: | --- | ---: | ---: | ---: | ---: |\n")
		for _, o := range file.Result.Outcomes {
			fmt.Fprintf(&b, "| %d | %s | %d | %d | %+d | %d |\n", o.Number, o.Verdict, o.Declared, o.Applied, o.Offset, o.Edits)
		}
		for i, o := range file.Result.Outcomes {
			if o.Verdict != patch.VerdictConflict || i >= len(file.Hunks) {
				continue
			}
			fmt.Fprintf(&b, "\n### Hunk #%d\n\n", o.Number)
			for _, m := range o.Mismatches {
				if m.DocLine == 0 {
					fmt.Fprintf(&b, "- expected `%s` past the end of the document\n", m.Expected)
					continue
				}
				fmt.Fprintf(&b, "- line %d: expected `%s`, found `%s`\n", m.DocLine, m.Expected, m.Actual)
			}
			if raw := file.Hunks[i].RawLines; len(raw) > 0 {
				b.WriteString("\n```diff\n")
				b.WriteString(strings.Join(raw, "\n"))
				b.WriteString("\n```\n")
			}
		}
	}
	return b.String()
}

// Markdown renders the markdown report for a terminal. Without color the markdown source is
// returned as is.
func Markdown(files []File, profile termenv.Profile, width int) (string, error) {
	source := MarkdownSource(files)
	if profile == termenv.Ascii {
		return source, nil
	}
	if width < 20 {
		width = 80
	}
	renderer, err := glam.NewTermRenderer(
		glam.WithStylePath("dark"), // fixed style to avoid OSC queries
		glam.WithColorProfile(profile),
		glam.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(source)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return rendered, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
