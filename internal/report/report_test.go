package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/asynkron/fuzzpatch/pkg/patch"
)

var readmeMismatches = []patch.Mismatch{
	{HunkLine: 0, DocLine: 7, Expected: "hello world", Actual: "hello there world"},
	{HunkLine: 1, Expected: "tail"},
}

func sampleFiles() []File {
	return []File{
		{
			Path:   "src/app.go",
			Status: patch.StatusModified,
			Result: &patch.Result{Outcomes: []patch.Outcome{
				{Number: 1, Verdict: patch.VerdictClean, Declared: 3, Applied: 3},
				{Number: 2, Verdict: patch.VerdictClean, Declared: 10, Applied: 12, Offset: 2, Edits: 1},
			}},
			Hunks: []patch.Hunk{{}, {}},
		},
		{
			Path:   "README",
			Status: patch.StatusModified,
			Result: &patch.Result{Outcomes: []patch.Outcome{
				{Number: 1, Verdict: patch.VerdictAlreadyApplied, Declared: 1, Applied: 1},
				{Number: 2, Verdict: patch.VerdictConflict, Declared: 7, Applied: 7, Mismatches: readmeMismatches},
			}},
			Hunks: []patch.Hunk{{}, {RawLines: []string{"@@ -7,2 +7,2 @@", " hello world", "-tail", "+end"}}},
		},
	}
}

func TestTextPlain(t *testing.T) {
	t.Parallel()

	got := Text(sampleFiles(), termenv.Ascii, "")
	want := strings.Join([]string{
		"patching file src/app.go",
		"Hunk #1 succeeded at 3.",
		"Hunk #2 succeeded at 12 with fuzz 1 (offset 2 lines).",
		"patching file README",
		"Hunk #1 already applied at 1.",
		"Hunk #2 FAILED at 7.",
		"  line 7: hello {+there +}world",
		`  expected "tail" past the end of the document`,
		"1 out of 4 hunks FAILED",
		"",
	}, "\n")
	require.Equal(t, want, got)
}

func TestTextColored(t *testing.T) {
	t.Parallel()

	got := Text(sampleFiles(), termenv.ANSI256, "")
	require.Contains(t, got, "\x1b[")
	require.Contains(t, got, "FAILED")
}

func TestFileVerbs(t *testing.T) {
	t.Parallel()

	files := []File{
		{Path: "a", Status: patch.StatusAdded, Result: &patch.Result{}},
		{Path: "b", Status: patch.StatusDeleted, Result: &patch.Result{}},
		{Path: "c", Status: patch.StatusModified, DryRun: true, Result: &patch.Result{}},
	}
	got := Text(files, termenv.Ascii, "")
	require.Equal(t, "creating file a\nremoving file b\nchecking file c\n", got)
}

func TestTextSkippedFileAndRejects(t *testing.T) {
	t.Parallel()

	files := append(sampleFiles(), File{
		Path:    "done.txt",
		Status:  patch.StatusModified,
		Skipped: true,
		Result: &patch.Result{Outcomes: []patch.Outcome{
			{Number: 1, Verdict: patch.VerdictAlreadyApplied, Declared: 2, Applied: 2},
			{Number: 2, Verdict: patch.VerdictClean, Declared: 9, Applied: 9},
		}},
	})
	got := Text(files, termenv.Ascii, "all.rej")
	require.Contains(t, got, "patching file done.txt\n"+
		"Reversed (or previously applied) patch detected!  Skipping patch.\n"+
		"2 out of 2 hunks ignored\n")
	require.True(t, strings.HasSuffix(got, "1 out of 6 hunks FAILED -- saving rejects to file all.rej\n"), got)

	totals := Summarize(files)
	require.Equal(t, Totals{Files: 3, Clean: 2, AlreadyApplied: 1, Conflicts: 1, Ignored: 2}, totals)
	require.Contains(t, MarkdownSource(files), ", 2 ignored.")
	require.Contains(t, MarkdownSource(files), "Skipped: the patch looks already applied.")
}

func TestJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleFiles(), Options{Format: "json", Color: "never"}))

	var decoded struct {
		Files []struct {
			Path   string `json:"path"`
			Result struct {
				Outcomes []struct {
					Verdict patch.Verdict `json:"verdict"`
					Offset  int           `json:"offset"`
				} `json:"outcomes"`
			} `json:"result"`
		} `json:"files"`
		Totals Totals `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Files, 2)
	require.Equal(t, "README", decoded.Files[1].Path)
	require.Equal(t, patch.VerdictConflict, decoded.Files[1].Result.Outcomes[1].Verdict)
	require.Equal(t, 2, decoded.Files[0].Result.Outcomes[1].Offset)
	require.Equal(t, Totals{Files: 2, Clean: 2, AlreadyApplied: 1, Conflicts: 1}, decoded.Totals)
	require.Contains(t, buf.String(), `"verdict": "already-applied"`)
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	source := MarkdownSource(sampleFiles())
	require.Contains(t, source, "2 file(s), 4 hunk(s): 2 clean, 1 already applied, 1 failed.")
	require.Contains(t, source, "| 2 | clean | 10 | 12 | +2 | 1 |")
	require.Contains(t, source, "### Hunk #2")
	require.Contains(t, source, "```diff\n@@ -7,2 +7,2 @@\n hello world\n-tail\n+end\n```")

	plain, err := Markdown(sampleFiles(), termenv.Ascii, 0)
	require.NoError(t, err)
	require.Equal(t, source, plain)

	rendered, err := Markdown(sampleFiles(), termenv.ANSI256, 100)
	require.NoError(t, err)
	require.Contains(t, rendered, "Patch")
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	require.Error(t, Write(&bytes.Buffer{}, nil, Options{Format: "xml"}))
}

func TestColorProfile(t *testing.T) {
	t.Parallel()

	require.Equal(t, termenv.Ascii, ColorProfile(&bytes.Buffer{}, "never"))
	require.Equal(t, termenv.ANSI256, ColorProfile(&bytes.Buffer{}, "always"))
	// A buffer is not a terminal.
	require.Equal(t, termenv.Ascii, ColorProfile(&bytes.Buffer{}, "auto"))
}

func TestMetricsLine(t *testing.T) {
	t.Parallel()

	metrics := patch.NewInMemoryMetrics()
	metrics.RecordParse(patch.DialectUnified, 2, 0)
	metrics.RecordHunk(patch.VerdictClean, 3, 1)
	metrics.RecordHunk(patch.VerdictConflict, 0, 0)
	metrics.RecordApply(0, true)

	line := MetricsLine(metrics.Snapshot())
	require.Contains(t, line, "parses=1 hunks=2 clean=1 already_applied=0 conflicts=1 relocated=1 fuzzy=1 applies=1 failed=0")
}
