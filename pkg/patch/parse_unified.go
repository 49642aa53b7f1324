package patch

import (
	"regexp"
	"strings"
)

// unifiedHeader matches "@@ -a[,b] +c[,d] @@ label". The range fields are captured loosely so that
// malformed numbers can fall back to defaults instead of failing the parse.
var unifiedHeader = regexp.MustCompile(`^@@ -(\S*) \+(\S*) @@ ?(.*)$`)

// parseUnifiedHunk parses the hunk whose header is lines[start]. It returns the hunk and the number
// of lines consumed, header included. The body is read until both declared counts are satisfied.
func parseUnifiedHunk(lines []string, start int) (Hunk, int, error) {
	header := lines[start]
	m := unifiedHeader.FindStringSubmatch(header)
	if m == nil {
		// Tolerate a missing closing "@@" by reading the two fields that follow.
		fields := strings.Fields(strings.TrimPrefix(header, "@@"))
		m = []string{header, "", "", ""}
		if len(fields) > 0 {
			m[1] = strings.TrimPrefix(fields[0], "-")
		}
		if len(fields) > 1 {
			m[2] = strings.TrimPrefix(fields[1], "+")
		}
	}

	h := Hunk{Position: start + 1, Label: strings.TrimSpace(m[3])}
	h.OrigStart, h.OrigCount = parseUnifiedRange(m[1])
	h.NewStart, h.NewCount = parseUnifiedRange(m[2])

	origLeft, newLeft := h.OrigCount, h.NewCount
	j := start + 1
	for origLeft > 0 || newLeft > 0 {
		if j >= len(lines) {
			return Hunk{}, 0, parseErrorf(h.Position,
				"hunk truncated: %d original and %d new lines missing at end of input", origLeft, newLeft)
		}
		line := lines[j]
		kind, text, ok := classifyUnifiedLine(line)
		switch {
		case ok && kind == LineContext && origLeft > 0 && newLeft > 0:
			origLeft--
			newLeft--
		case ok && kind == LineRemove && origLeft > 0:
			origLeft--
		case ok && kind == LineAdd && newLeft > 0:
			newLeft--
		case isNoNewlineMarker(line) && len(h.Lines) > 0:
			markNoNewline(&h, h.Lines[len(h.Lines)-1].Kind)
			j++
			continue
		default:
			return Hunk{}, 0, parseErrorf(j+1,
				"malformed hunk body: %d original and %d new lines still expected", origLeft, newLeft)
		}
		h.Lines = append(h.Lines, HunkLine{Kind: kind, Text: text})
		j++
	}
	for j < len(lines) && isNoNewlineMarker(lines[j]) && len(h.Lines) > 0 {
		markNoNewline(&h, h.Lines[len(h.Lines)-1].Kind)
		j++
	}

	h.RawLines = append([]string(nil), lines[start:j]...)
	return h, j - start, nil
}

// parseUnifiedRange reads "start[,count]". An omitted count is 1.
func parseUnifiedRange(field string) (int, int) {
	startField, countField, hasCount := strings.Cut(field, ",")
	start := parseNumber(startField, 1)
	count := 1
	if hasCount {
		count = parseNumber(countField, 1)
	}
	return start, count
}

func classifyUnifiedLine(line string) (LineKind, string, bool) {
	if line == "" {
		// Editors and mailers strip the lone space of an empty context line.
		return LineContext, "", true
	}
	switch line[0] {
	case ' ':
		return LineContext, line[1:], true
	case '-':
		return LineRemove, line[1:], true
	case '+':
		return LineAdd, line[1:], true
	}
	return 0, "", false
}

func markNoNewline(h *Hunk, kind LineKind) {
	switch kind {
	case LineRemove:
		h.OrigNoNewline = true
	case LineAdd:
		h.NewNoNewline = true
	default:
		h.OrigNoNewline = true
		h.NewNoNewline = true
	}
}
