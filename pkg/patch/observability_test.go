package patch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStdLoggerFiltersAndFormats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewStdLogger(LogLevelInfo, &buf)
	logger.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	ctx := WithTraceID(context.Background(), "trace-1")
	logger.Debug(ctx, "hidden")
	logger.WithFields(Field("file", "a.txt")).Error(ctx, "merge failed", errors.New("boom"), Field("hunk", 2))

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Fatalf("debug entry should be filtered, got %q", got)
	}
	want := `[2024-01-02T03:04:05Z] [ERROR] [error="boom"] merge failed fields=[file=a.txt hunk=2 trace_id=trace-1]` + "\n"
	if got != want {
		t.Fatalf("unexpected log line:\n got %q\nwant %q", got, want)
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		" INFO ":  LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"verbose": LogLevelWarn,
		"":        LogLevelWarn,
	}
	for input, want := range tests {
		if got := ParseLogLevel(input); got != want {
			t.Fatalf("ParseLogLevel(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestInMemoryMetrics(t *testing.T) {
	t.Parallel()

	metrics := NewInMemoryMetrics()
	metrics.RecordParse(DialectContext, 3, time.Millisecond)
	metrics.RecordHunk(VerdictClean, 0, 0)
	metrics.RecordHunk(VerdictClean, -2, 1)
	metrics.RecordHunk(VerdictAlreadyApplied, 0, 0)
	metrics.RecordApply(5*time.Millisecond, true)
	metrics.RecordApply(2*time.Millisecond, false)

	snap := metrics.Snapshot()
	if snap.Parses != 1 || snap.HunksParsed != 3 || snap.Dialects["context"] != 1 {
		t.Fatalf("unexpected parse counters: %+v", snap)
	}
	if snap.Verdicts["clean"] != 2 || snap.Verdicts["already-applied"] != 1 {
		t.Fatalf("unexpected verdict counters: %v", snap.Verdicts)
	}
	if snap.Relocated != 1 || snap.FuzzyMatches != 1 {
		t.Fatalf("expected one relocated fuzzy hunk, got relocated=%d fuzzy=%d", snap.Relocated, snap.FuzzyMatches)
	}
	if snap.Applies.Total != 2 || snap.Applies.Success != 1 || snap.Applies.Failed != 1 {
		t.Fatalf("unexpected apply counters: %+v", snap.Applies)
	}
	if snap.Applies.MinTime != 2*time.Millisecond || snap.Applies.MaxTime != 5*time.Millisecond {
		t.Fatalf("unexpected apply timings: min=%s max=%s", snap.Applies.MinTime, snap.Applies.MaxTime)
	}

	metrics.Reset()
	if snap := metrics.Snapshot(); snap.Parses != 0 || snap.Applies.Total != 0 || len(snap.Verdicts) != 0 {
		t.Fatalf("reset left data behind: %+v", snap)
	}
}

func TestEngineLogsCarryTraceID(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	opts := Options{Fuzz: 1, Logger: NewStdLogger(LogLevelDebug, &logs)}
	ctx := WithTraceID(context.Background(), "trace-7")

	patchBody := join("--- a.txt", "+++ a.txt", "@@ -2 +2 @@", "-b", "+x")
	sets, err := ParseAllReader(ctx, strings.NewReader(patchBody), opts)
	if err != nil {
		t.Fatalf("ParseAllReader returned error: %v", err)
	}
	doc := NewDocument([]string{"a", "inserted", "b", "c"}, false)
	if _, err := Merge(ctx, doc, sets[0], nil, opts); err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}

	var relocated, parsed string
	for _, line := range strings.Split(logs.String(), "\n") {
		switch {
		case strings.Contains(line, "relocated hunk"):
			relocated = line
		case strings.Contains(line, "parsed change set"):
			parsed = line
		}
	}
	if !strings.Contains(relocated, "hunk=1") || !strings.Contains(relocated, "trace_id=trace-7") {
		t.Fatalf("relocation entry lacks hunk or trace id: %q", relocated)
	}
	if !strings.Contains(parsed, "trace_id=trace-7") {
		t.Fatalf("parse entry lacks trace id: %q", parsed)
	}
}
