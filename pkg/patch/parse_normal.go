package patch

import (
	"regexp"
	"strings"
)

// normalCommand matches "l1[,l2]{a,c,d}r1[,r2]".
var normalCommand = regexp.MustCompile(`^([0-9]+)(?:,([0-9]+))?([acd])([0-9]+)(?:,([0-9]+))?\s*$`)

// normalRange maps "start,end" to (start, end-start+1) and a bare number to (number, 1). A range
// whose end precedes its start is malformed and counts as one line.
func normalRange(startField, endField string) (int, int) {
	start := parseNumber(startField, 1)
	if endField == "" {
		return start, 1
	}
	end := parseNumber(endField, start)
	if end < start {
		return start, 1
	}
	return start, end - start + 1
}

// parseNormalHunk parses the command at lines[start] and its "< " / "---" / "> " body.
//
// For "a" the left side names the line the text is appended after and consumes nothing, and for
// "d" the right side names the line of the new file the deletion follows; both of those sides get a
// count of zero so that the hunk's counts always agree with its body.
func parseNormalHunk(lines []string, start int) (Hunk, int, error) {
	m := normalCommand.FindStringSubmatch(lines[start])
	h := Hunk{Position: start + 1}
	h.OrigStart, h.OrigCount = normalRange(m[1], m[2])
	h.NewStart, h.NewCount = normalRange(m[4], m[5])
	switch m[3] {
	case "a":
		h.OrigCount = 0
	case "d":
		h.NewCount = 0
	}

	j := start + 1
	var err error
	j, err = readNormalBlock(lines, j, &h, "<", LineRemove, h.OrigCount)
	if err != nil {
		return Hunk{}, 0, err
	}
	if m[3] == "c" {
		if j >= len(lines) || lines[j] != "---" {
			return Hunk{}, 0, parseErrorf(min(j+1, len(lines)), "expected \"---\" separator in change command")
		}
		j++
	}
	j, err = readNormalBlock(lines, j, &h, ">", LineAdd, h.NewCount)
	if err != nil {
		return Hunk{}, 0, err
	}

	h.RawLines = append([]string(nil), lines[start:j]...)
	return h, j - start, nil
}

// readNormalBlock reads exactly count lines carrying marker, plus any no-newline markers.
func readNormalBlock(lines []string, j int, h *Hunk, marker string, kind LineKind, count int) (int, error) {
	for read := 0; read < count; read++ {
		if j >= len(lines) {
			return j, parseErrorf(h.Position, "hunk truncated: expected %d %q lines, found %d", count, marker, read)
		}
		line := lines[j]
		text, ok := strings.CutPrefix(line, marker+" ")
		if !ok {
			if line != marker {
				return j, parseErrorf(j+1, "expected %q line, got %q", marker+" ", line)
			}
			text = ""
		}
		h.Lines = append(h.Lines, HunkLine{Kind: kind, Text: text})
		j++
	}
	for count > 0 && j < len(lines) && isNoNewlineMarker(lines[j]) {
		markNoNewline(h, kind)
		j++
	}
	return j, nil
}
