package patch

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Document is a read-only, 1-indexed sequence of text lines. Merge never mutates it, so one
// Document may back several concurrent merges.
type Document interface {
	// Len returns the number of lines.
	Len() int
	// Line returns line n, where 1 <= n <= Len().
	Line(n int) string
}

// Lines is the in-memory Document implementation.
type Lines struct {
	lines               []string
	missingFinalNewline bool
}

var _ Document = (*Lines)(nil)

// NewDocument wraps lines, which must not contain line terminators.
func NewDocument(lines []string, missingFinalNewline bool) *Lines {
	return &Lines{lines: lines, missingFinalNewline: missingFinalNewline && len(lines) > 0}
}

// LoadDocument reads r to the end and splits it into lines. "\n" and "\r\n" terminators are
// removed; a final line without a terminator is kept and remembered.
func LoadDocument(r io.Reader) (*Lines, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ioError("", "failed to read document", err)
	}
	return ParseDocument(string(data)), nil
}

// ParseDocument splits content into a Document.
func ParseDocument(content string) *Lines {
	doc := &Lines{}
	if content == "" {
		return doc
	}
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	scanner.Split(scanLinesKeepCR)
	for scanner.Scan() {
		doc.lines = append(doc.lines, scanner.Text())
	}
	doc.missingFinalNewline = !strings.HasSuffix(content, "\n")
	return doc
}

// scanLinesKeepCR splits on "\n" and drops one trailing "\r"; unlike bufio.ScanLines it treats a
// lone "\r" as content rather than a terminator.
func scanLinesKeepCR(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimSuffix(data[:i], []byte("\r")), nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Len returns the number of lines.
func (l *Lines) Len() int { return len(l.lines) }

// Line returns line n (1-based). Out of range lookups return the empty string.
func (l *Lines) Line(n int) string {
	if n < 1 || n > len(l.lines) {
		return ""
	}
	return l.lines[n-1]
}

// MissingFinalNewline reports whether the last line had no terminator.
func (l *Lines) MissingFinalNewline() bool { return l.missingFinalNewline }

// Slice returns a copy of the lines.
func (l *Lines) Slice() []string {
	return append([]string(nil), l.lines...)
}

// finalNewlineReporter is implemented by documents that remember a missing final terminator.
type finalNewlineReporter interface {
	MissingFinalNewline() bool
}

func documentLines(doc Document) []string {
	if l, ok := doc.(*Lines); ok {
		return l.lines
	}
	out := make([]string, doc.Len())
	for i := range out {
		out[i] = doc.Line(i + 1)
	}
	return out
}

func documentMissingFinalNewline(doc Document) bool {
	if r, ok := doc.(finalNewlineReporter); ok {
		return r.MissingFinalNewline()
	}
	return false
}
