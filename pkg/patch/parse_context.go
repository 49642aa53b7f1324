package patch

import (
	"regexp"
	"strings"
)

const contextSeparator = "***************"

// contextOldRange tells an old-block header apart from a "*** file" header line.
var contextOldRange = regexp.MustCompile(`^\*\*\* [0-9]+(?:,[0-9]+)? \*\*\*\*\s*$`)

// rangeField extracts the range between a block header's prefix and its optional trailing marker.
func rangeField(line, prefix, suffix string) string {
	field := strings.TrimPrefix(line, prefix)
	field = strings.TrimSpace(field)
	return strings.TrimSpace(strings.TrimSuffix(field, suffix))
}

// contextLine is one marked line of an old or new block.
type contextLine struct {
	marker byte // ' ', '!', '-' or '+'
	text   string
	line   int // 1-based position in the patch
}

// contextRange is a parsed "start,end" or "start" block header.
type contextRange struct {
	start int
	count int
	// exact is set for "start,end" ranges; a bare number may describe zero or one line.
	exact bool
}

func parseContextRange(field string) contextRange {
	startField, endField, hasEnd := strings.Cut(field, ",")
	r := contextRange{start: parseNumber(startField, 1), count: 1}
	if hasEnd {
		end := parseNumber(endField, r.start)
		if end >= r.start {
			r.count = end - r.start + 1
			r.exact = true
		}
	}
	return r
}

// parseContextHunk parses the hunk whose separator line is lines[start]: the "*** a,b ****" old
// block followed by the "--- c,d ----" new block. Either block body may be omitted when it would
// only repeat context lines.
func parseContextHunk(lines []string, start int) (Hunk, int, error) {
	h := Hunk{Position: start + 1}
	h.Label = strings.TrimSpace(strings.TrimLeft(lines[start], "*"))

	j := start + 1
	if j >= len(lines) {
		return Hunk{}, 0, parseErrorf(h.Position, "hunk truncated: missing original block")
	}
	if !strings.HasPrefix(lines[j], "*** ") {
		return Hunk{}, 0, parseErrorf(j+1, "expected \"*** start,end ****\", got %q", lines[j])
	}
	oldRange := parseContextRange(rangeField(lines[j], "***", "****"))
	j++

	var oldBlock, newBlock []contextLine
	for {
		if j >= len(lines) || strings.HasPrefix(lines[j], contextSeparator) {
			return Hunk{}, 0, parseErrorf(h.Position, "hunk truncated: missing \"--- start,end ----\" line")
		}
		if strings.HasPrefix(lines[j], "--- ") {
			break
		}
		if isNoNewlineMarker(lines[j]) {
			h.OrigNoNewline = true
			j++
			continue
		}
		cl, ok := parseContextLine(lines[j], j+1)
		if !ok || cl.marker == '+' {
			return Hunk{}, 0, parseErrorf(j+1, "malformed line in original block: %q", lines[j])
		}
		oldBlock = append(oldBlock, cl)
		j++
	}
	if oldRange.exact && len(oldBlock) > 0 && len(oldBlock) != oldRange.count {
		return Hunk{}, 0, parseErrorf(h.Position,
			"original block has %d lines but its header declares %d", len(oldBlock), oldRange.count)
	}

	newRange := parseContextRange(rangeField(lines[j], "---", "----"))
	j++
	for j < len(lines) {
		if isNoNewlineMarker(lines[j]) && len(newBlock) > 0 {
			h.NewNoNewline = true
			j++
			continue
		}
		// A blank line only counts as an empty context line while the block is still short.
		if lines[j] == "" && (len(newBlock) == 0 || !newRange.exact || len(newBlock) >= newRange.count) {
			break
		}
		cl, ok := parseContextLine(lines[j], j+1)
		if !ok || cl.marker == '-' {
			break
		}
		if newRange.exact && len(newBlock) >= newRange.count {
			break
		}
		newBlock = append(newBlock, cl)
		j++
	}
	if newRange.exact && len(newBlock) > 0 && len(newBlock) != newRange.count {
		return Hunk{}, 0, parseErrorf(h.Position,
			"hunk truncated: new block has %d lines but its header declares %d", len(newBlock), newRange.count)
	}
	if len(oldBlock) == 0 && len(newBlock) == 0 && (oldRange.exact || newRange.exact) {
		return Hunk{}, 0, parseErrorf(h.Position, "hunk has no body")
	}

	body, err := reconcileContextBlocks(oldBlock, newBlock)
	if err != nil {
		return Hunk{}, 0, err
	}
	h.Lines = body
	for _, line := range body {
		switch line.Kind {
		case LineContext:
			h.OrigCount++
			h.NewCount++
		case LineRemove:
			h.OrigCount++
		case LineAdd:
			h.NewCount++
		}
	}
	// An empty side is printed as the line it follows, which is also what a zero count means here.
	h.OrigStart = oldRange.start
	h.NewStart = newRange.start

	h.RawLines = append([]string(nil), lines[start:j]...)
	return h, j - start, nil
}

// parseContextLine splits a two-character marker from its text.
func parseContextLine(line string, pos int) (contextLine, bool) {
	if line == "" {
		return contextLine{marker: ' ', line: pos}, true
	}
	if len(line) == 1 {
		// A context line whose trailing space was stripped.
		if strings.ContainsRune(" !-+", rune(line[0])) {
			return contextLine{marker: line[0], line: pos}, true
		}
		return contextLine{}, false
	}
	if line[1] != ' ' && line[1] != '\t' {
		return contextLine{}, false
	}
	switch line[0] {
	case ' ', '!', '-', '+':
		return contextLine{marker: line[0], text: line[2:], line: pos}, true
	}
	return contextLine{}, false
}

// reconcileContextBlocks merges the old and new blocks into one ordered body. Both blocks are walked
// with independent indices: shared context advances both, '-' advances the old block, '+' the new
// block, and runs of '!' become removals from the old block followed by additions from the new.
func reconcileContextBlocks(oldBlock, newBlock []contextLine) ([]HunkLine, error) {
	if len(oldBlock) == 0 {
		oldBlock = contextOnly(newBlock)
	}
	if len(newBlock) == 0 {
		newBlock = contextOnly(oldBlock)
	}

	body := make([]HunkLine, 0, len(oldBlock)+len(newBlock))
	i, j := 0, 0
	for i < len(oldBlock) || j < len(newBlock) {
		switch {
		case i < len(oldBlock) && oldBlock[i].marker == '-':
			body = append(body, HunkLine{Kind: LineRemove, Text: oldBlock[i].text})
			i++
		case j < len(newBlock) && newBlock[j].marker == '+':
			body = append(body, HunkLine{Kind: LineAdd, Text: newBlock[j].text})
			j++
		case i < len(oldBlock) && oldBlock[i].marker == '!':
			for i < len(oldBlock) && oldBlock[i].marker == '!' {
				body = append(body, HunkLine{Kind: LineRemove, Text: oldBlock[i].text})
				i++
			}
			for j < len(newBlock) && newBlock[j].marker == '!' {
				body = append(body, HunkLine{Kind: LineAdd, Text: newBlock[j].text})
				j++
			}
		case j < len(newBlock) && newBlock[j].marker == '!':
			for j < len(newBlock) && newBlock[j].marker == '!' {
				body = append(body, HunkLine{Kind: LineAdd, Text: newBlock[j].text})
				j++
			}
		case i < len(oldBlock) && j < len(newBlock):
			// Both sides are context; the old block's text is authoritative.
			body = append(body, HunkLine{Kind: LineContext, Text: oldBlock[i].text})
			i++
			j++
		case i < len(oldBlock):
			return nil, parseErrorf(oldBlock[i].line, "context line has no counterpart in the new block")
		default:
			return nil, parseErrorf(newBlock[j].line, "context line has no counterpart in the original block")
		}
	}
	return body, nil
}

func contextOnly(block []contextLine) []contextLine {
	var out []contextLine
	for _, cl := range block {
		if cl.marker == ' ' {
			out = append(out, cl)
		}
	}
	return out
}
