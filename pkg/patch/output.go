package patch

import (
	"bufio"
	"io"
	"strings"
)

// Output is the line sink Merge writes into. Every line gets exactly one "\n" terminator, except
// that the final line may be left unterminated to reproduce a document that did not end with a
// newline. Lines are kept in memory and, when a writer is attached, streamed to it as well.
type Output struct {
	w             *bufio.Writer
	lines         []string
	emitted       bool
	afterNewline  bool
	err           error
	missingAtTail bool
}

// NewOutput creates a sink. A nil writer keeps the output in memory only.
func NewOutput(w io.Writer) *Output {
	out := &Output{afterNewline: true}
	if w != nil {
		out.w = bufio.NewWriter(w)
	}
	return out
}

// WriteLine appends one line. terminated=false marks a line that had no terminator in its source;
// it only stays unterminated if nothing follows it.
func (o *Output) WriteLine(text string, terminated bool) error {
	if o.err != nil {
		return o.err
	}
	text = strings.TrimRight(text, "\r\n")
	if o.w != nil {
		if !o.afterNewline {
			o.write("\n")
		}
		o.write(text)
		if terminated {
			o.write("\n")
		}
	}
	o.lines = append(o.lines, text)
	o.emitted = true
	o.afterNewline = terminated
	o.missingAtTail = !terminated
	return o.err
}

func (o *Output) write(s string) {
	if o.err != nil {
		return
	}
	if _, err := o.w.WriteString(s); err != nil {
		o.err = ioError("", "failed to write output", err)
	}
}

// Emitted reports whether any line was written.
func (o *Output) Emitted() bool { return o.emitted }

// MissingFinalNewline reports whether the last line written was left unterminated.
func (o *Output) MissingFinalNewline() bool { return o.missingAtTail }

// Lines returns the lines written so far.
func (o *Output) Lines() []string { return o.lines }

// String renders the buffered lines exactly as they were streamed.
func (o *Output) String() string {
	if len(o.lines) == 0 {
		return ""
	}
	s := strings.Join(o.lines, "\n")
	if !o.missingAtTail {
		s += "\n"
	}
	return s
}

// Flush pushes buffered bytes to the attached writer.
func (o *Output) Flush() error {
	if o.err != nil {
		return o.err
	}
	if o.w == nil {
		return nil
	}
	if err := o.w.Flush(); err != nil {
		o.err = ioError("", "failed to flush output", err)
	}
	return o.err
}
