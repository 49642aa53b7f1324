package patch

import (
	"context"
	"errors"
	"time"
)

// Merge applies cs to doc in one sequential pass and writes the merged document into out. A nil out
// keeps the merged lines in memory only; they are returned in Result.Lines either way.
//
// Hunks are applied in order and independently: a hunk whose context or remove lines do not match
// the document is recorded as a conflict, its add lines are still emitted, and the next hunk is
// processed normally. Only I/O failures on out and cancellation of ctx, which is checked between
// hunks, abort the pass.
func Merge(ctx context.Context, doc Document, cs *ChangeSet, out *Output, opts Options) (*Result, error) {
	if cs == nil {
		return nil, &Error{Code: CodeInvalidOptions, Err: errors.New("nil change set")}
	}
	opts, err := opts.prepared()
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = NewOutput(nil)
	}
	var lines []string
	var missingFinalNewline bool
	if doc != nil {
		lines = documentLines(doc)
		missingFinalNewline = documentMissingFinalNewline(doc)
	}

	started := time.Now()
	e := &engine{
		opts:                opts,
		equal:               opts.equal(),
		doc:                 lines,
		missingFinalNewline: missingFinalNewline,
		out:                 out,
		emittedBefore:       len(out.Lines()),
	}
	result, err := e.run(ctx, cs)
	opts.Metrics.RecordApply(time.Since(started), err == nil && !result.HasConflicts())
	if err != nil {
		opts.Logger.Error(ctx, "merge aborted", err, Field("hunks_done", len(e.outcomes)))
		return nil, err
	}
	return result, nil
}

// emission is one line queued for the sink.
type emission struct {
	text       string
	terminated bool
}

type engine struct {
	opts                Options
	equal               func(a, b string) bool
	doc                 []string
	missingFinalNewline bool
	out                 *Output
	emittedBefore       int

	// cursor is the 0-based index of the next unconsumed document line.
	cursor int
	// drift is the offset of the previous hunk, applied to the next hunk's first guess.
	drift    int
	outcomes []Outcome
}

func (e *engine) run(ctx context.Context, cs *ChangeSet) (*Result, error) {
	for i, h := range cs.Hunks {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Code: CodeCanceled, Message: "merge canceled", Err: err}
		}
		outcome, err := e.applyHunk(ctx, i+1, h)
		if err != nil {
			return nil, err
		}
		e.outcomes = append(e.outcomes, outcome)
		e.opts.Metrics.RecordHunk(outcome.Verdict, outcome.Offset, outcome.Edits)
	}
	if err := e.flushTo(len(e.doc)); err != nil {
		return nil, err
	}
	if err := e.out.Flush(); err != nil {
		return nil, err
	}

	return &Result{
		Lines:               append([]string(nil), e.out.Lines()[e.emittedBefore:]...),
		Outcomes:            e.outcomes,
		MissingFinalNewline: e.out.MissingFinalNewline(),
	}, nil
}

func (e *engine) applyHunk(ctx context.Context, number int, h Hunk) (Outcome, error) {
	logger := e.opts.Logger.WithFields(Field("hunk", number))
	declared := h.origIndex()
	start, edits := e.locate(ctx, logger, h, declared+e.drift)

	if err := e.flushTo(start); err != nil {
		return Outcome{}, err
	}

	emitted, mismatches := e.walk(h, start)
	verdict := VerdictClean
	consumed := h.OrigCount
	if len(mismatches) > 0 {
		verdict = VerdictConflict
		if e.appliedAt(h, start) {
			verdict = VerdictAlreadyApplied
			consumed = h.NewCount
			emitted = e.docEmissions(start, start+h.NewCount)
		}
	}

	for _, line := range emitted {
		if err := e.out.WriteLine(line.text, line.terminated); err != nil {
			return Outcome{}, err
		}
	}
	e.cursor = min(start+consumed, len(e.doc))
	e.drift = start + consumed - (declared + h.OrigCount)

	offset := start - declared
	outcome := Outcome{
		Number:   number,
		Verdict:  verdict,
		Declared: h.OrigStart,
		Applied:  h.OrigStart + offset,
		Offset:   offset,
		Edits:    edits,
	}
	switch verdict {
	case VerdictConflict:
		outcome.Mismatches = mismatches
		logger.Warn(ctx, "hunk does not match the document",
			Field("at", outcome.Applied), Field("mismatches", len(mismatches)))
	case VerdictAlreadyApplied:
		logger.Info(ctx, "hunk already applied", Field("at", outcome.Applied))
	default:
		logger.Debug(ctx, "hunk applied", Field("at", outcome.Applied), Field("offset", offset))
	}
	return outcome, nil
}

// locate picks the 0-based start for h. guess is tried first; when the original side does not
// match there verbatim, candidates within the search radius are scored with BestMatch, nearest
// first, and the best one is taken only if it needs fewer edits than guess.
func (e *engine) locate(ctx context.Context, logger Logger, h Hunk, guess int) (int, int) {
	guess = max(min(guess, len(e.doc)), e.cursor)
	pattern := h.OrigLines()
	if len(pattern) == 0 || e.matchesAt(pattern, guess) {
		return guess, 0
	}
	guessEdits := e.editsAt(pattern, guess)
	if e.opts.SearchRadius < 0 || e.appliedAt(h, guess) {
		return guess, guessEdits
	}

	best, bestEdits := guess, guessEdits
	for distance := 1; distance <= e.opts.SearchRadius && bestEdits > 0; distance++ {
		before, after := guess-distance, guess+distance
		if before < e.cursor && after > len(e.doc) {
			break
		}
		for _, candidate := range [2]int{before, after} {
			if candidate < e.cursor || candidate > len(e.doc) {
				continue
			}
			if edits := e.editsAt(pattern, candidate); edits < bestEdits {
				best, bestEdits = candidate, edits
			}
		}
	}
	if best != guess {
		logger.Debug(ctx, "relocated hunk",
			Field("declared", h.OrigStart), Field("offset", best-guess), Field("edits", bestEdits))
	}
	return best, bestEdits
}

func (e *engine) matchesAt(pattern []string, start int) bool {
	if start+len(pattern) > len(e.doc) {
		return false
	}
	for i, text := range pattern {
		if !e.equal(e.doc[start+i], text) {
			return false
		}
	}
	return true
}

// editsAt scores pattern against the document window that starts at start. The window is as long
// as the pattern plus the fuzz budget, so up to Fuzz inserted document lines can be absorbed.
func (e *engine) editsAt(pattern []string, start int) int {
	fuzz := e.opts.Fuzz
	end := min(start+len(pattern)+fuzz, len(e.doc))
	window := e.doc[start:end]
	edits, _ := BestMatch(pattern, window, e.equal, minCoverage(len(pattern), fuzz), fuzz)
	return edits
}

// minCoverage is the number of pattern lines that must pair with document lines for a candidate
// to count: all but fuzz of them, and never fewer than half.
func minCoverage(n, fuzz int) int {
	return max(n-fuzz, (n+1)/2)
}

// appliedAt reports whether the new side of h is already present verbatim at start.
func (e *engine) appliedAt(h Hunk, start int) bool {
	if h.NewCount == 0 {
		return false
	}
	return e.matchesAt(h.NewLines(), start)
}

// walk applies h at start without touching the sink. Context lines yield the document's text; add
// lines yield the patch's. Lines that do not match are reported, never fatal.
func (e *engine) walk(h Hunk, start int) ([]emission, []Mismatch) {
	lastNew := -1
	for i, line := range h.Lines {
		if line.Kind != LineRemove {
			lastNew = i
		}
	}

	var emitted []emission
	var mismatches []Mismatch
	pos := start
	for i, line := range h.Lines {
		switch line.Kind {
		case LineAdd:
			terminated := !(i == lastNew && h.NewNoNewline)
			emitted = append(emitted, emission{text: line.Text, terminated: terminated})
		case LineContext, LineRemove:
			if pos >= len(e.doc) {
				mismatches = append(mismatches, Mismatch{HunkLine: i, Expected: line.Text})
				if line.Kind == LineContext {
					emitted = append(emitted, emission{text: line.Text, terminated: true})
				}
				continue
			}
			actual := e.doc[pos]
			if !e.equal(actual, line.Text) {
				mismatches = append(mismatches, Mismatch{HunkLine: i, DocLine: pos + 1, Expected: line.Text, Actual: actual})
			}
			if line.Kind == LineContext {
				emitted = append(emitted, e.docEmission(pos))
			}
			pos++
		}
	}
	return emitted, mismatches
}

func (e *engine) docEmission(i int) emission {
	return emission{text: e.doc[i], terminated: !(i == len(e.doc)-1 && e.missingFinalNewline)}
}

func (e *engine) docEmissions(from, to int) []emission {
	to = min(to, len(e.doc))
	out := make([]emission, 0, max(to-from, 0))
	for i := from; i < to; i++ {
		out = append(out, e.docEmission(i))
	}
	return out
}

// flushTo copies unconsumed document lines up to index end into the sink.
func (e *engine) flushTo(end int) error {
	for ; e.cursor < end && e.cursor < len(e.doc); e.cursor++ {
		line := e.docEmission(e.cursor)
		if err := e.out.WriteLine(line.text, line.terminated); err != nil {
			return err
		}
	}
	return nil
}
