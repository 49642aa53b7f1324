package patch

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"
)

// Parse converts a patch describing a single file into a ChangeSet. The dialect is detected from
// the stream unless opts.Dialect forces one. A stream that touches several files is rejected; use
// ParseAll for those.
func Parse(input string, opts Options) (*ChangeSet, error) {
	sets, err := ParseAll(input, opts)
	if err != nil {
		return nil, err
	}
	return single(sets)
}

func single(sets []*ChangeSet) (*ChangeSet, error) {
	if len(sets) > 1 {
		return nil, parseErrorf(sets[1].Hunks[0].Position, "patch touches %d files; expected one", len(sets))
	}
	return sets[0], nil
}

// ParseReader reads r to the end and parses it like Parse.
func ParseReader(r io.Reader, opts Options) (*ChangeSet, error) {
	sets, err := ParseAllReader(context.Background(), r, opts)
	if err != nil {
		return nil, err
	}
	return single(sets)
}

// ParseAll parses a patch stream into one ChangeSet per file. A new ChangeSet starts at every file
// header that follows at least one hunk. Lines that are neither headers nor hunks are skipped, so
// mail headers and commit messages in front of a diff are harmless.
func ParseAll(input string, opts Options) ([]*ChangeSet, error) {
	return parseAll(context.Background(), input, opts)
}

// ParseAllReader reads r to the end and parses it like ParseAll. ctx only carries logging
// correlation; reading is not interruptible.
func ParseAllReader(ctx context.Context, r io.Reader, opts Options) ([]*ChangeSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ioError("", "failed to read patch", err)
	}
	return parseAll(ctx, string(data), opts)
}

func parseAll(ctx context.Context, input string, opts Options) ([]*ChangeSet, error) {
	opts, err := opts.prepared()
	if err != nil {
		return nil, err
	}
	started := time.Now()

	p := &parser{
		lines:   splitLines(input),
		dialect: opts.Dialect,
		current: &ChangeSet{},
	}
	if err := p.run(); err != nil {
		opts.Logger.Error(ctx, "patch parse failed", err)
		return nil, err
	}

	elapsed := time.Since(started)
	for _, cs := range p.sets {
		opts.Metrics.RecordParse(cs.Dialect, len(cs.Hunks), elapsed)
		opts.Logger.Debug(ctx, "parsed change set",
			Field("dialect", cs.Dialect),
			Field("file", cs.Header.NewName),
			Field("hunks", len(cs.Hunks)))
	}
	return p.sets, nil
}

type parser struct {
	lines   []string
	dialect Dialect
	sets    []*ChangeSet
	current *ChangeSet
}

func (p *parser) allows(d Dialect) bool {
	return p.dialect == DialectUnknown || p.dialect == d
}

func (p *parser) run() error {
	i := 0
	for i < len(p.lines) {
		line := p.lines[i]
		next := ""
		if i+1 < len(p.lines) {
			next = p.lines[i+1]
		}

		var (
			hunk     Hunk
			consumed int
			dialect  Dialect
			err      error
		)
		switch {
		case strings.HasPrefix(line, "diff --git "):
			p.startFile()
			p.current.Header.Git = true
			parseGitNames(&p.current.Header, strings.TrimPrefix(line, "diff --git "))
			i++
			continue
		case p.current.Header.Git && len(p.current.Hunks) == 0 && parseGitExtended(&p.current.Header, line):
			i++
			continue
		case strings.HasPrefix(line, "Index: "):
			p.startFile()
			p.current.Header.IndexName = strings.TrimSpace(strings.TrimPrefix(line, "Index: "))
			i++
			continue
		case p.allows(DialectUnified) && strings.HasPrefix(line, "--- ") && strings.HasPrefix(next, "+++ "):
			p.startFile()
			h := &p.current.Header
			h.OldName, h.OldTime = parseHeaderName(strings.TrimPrefix(line, "--- "))
			h.NewName, h.NewTime = parseHeaderName(strings.TrimPrefix(next, "+++ "))
			i += 2
			continue
		case p.allows(DialectContext) && strings.HasPrefix(line, "*** ") && strings.HasPrefix(next, "--- ") &&
			!contextOldRange.MatchString(line):
			p.startFile()
			h := &p.current.Header
			h.OldName, h.OldTime = parseHeaderName(strings.TrimPrefix(line, "*** "))
			h.NewName, h.NewTime = parseHeaderName(strings.TrimPrefix(next, "--- "))
			i += 2
			continue
		case p.allows(DialectUnified) && strings.HasPrefix(line, "@@ -"):
			dialect = DialectUnified
			hunk, consumed, err = parseUnifiedHunk(p.lines, i)
		case p.allows(DialectContext) && strings.HasPrefix(line, contextSeparator):
			dialect = DialectContext
			hunk, consumed, err = parseContextHunk(p.lines, i)
		case p.allows(DialectNormal) && normalCommand.MatchString(line):
			dialect = DialectNormal
			hunk, consumed, err = parseNormalHunk(p.lines, i)
		default:
			i++
			continue
		}
		if err != nil {
			return err
		}
		if err := hunk.Validate(); err != nil {
			return parseErrorf(hunk.Position, "%v", err)
		}
		if p.current.Dialect == DialectUnknown {
			p.current.Dialect = dialect
		}
		p.current.Hunks = append(p.current.Hunks, hunk)
		i += consumed
	}
	p.startFile()

	if len(p.sets) == 0 {
		return &Error{Code: CodeParse, Message: "only garbage was found in the patch input"}
	}
	return nil
}

// startFile closes the current ChangeSet if it already holds hunks.
func (p *parser) startFile() {
	if len(p.current.Hunks) == 0 {
		return
	}
	p.sets = append(p.sets, p.current)
	p.current = &ChangeSet{}
}

// parseHeaderName splits "name<TAB>timestamp" and unquotes C-style quoted names.
func parseHeaderName(field string) (string, string) {
	name, stamp, _ := strings.Cut(field, "\t")
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, `"`) {
		if unquoted, err := strconv.Unquote(name); err == nil {
			name = unquoted
		}
	}
	return name, strings.TrimSpace(stamp)
}

func parseGitNames(h *Header, field string) {
	// "a/old b/new"; names with spaces are ambiguous here and are overwritten by ---/+++ lines.
	if idx := strings.Index(field, " b/"); idx >= 0 {
		h.OldName = field[:idx]
		h.NewName = field[idx+1:]
	}
}

func parseGitExtended(h *Header, line string) bool {
	for _, prefix := range []string{"old mode ", "deleted file mode "} {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			h.OldMode = parseMode(rest)
			return true
		}
	}
	for _, prefix := range []string{"new mode ", "new file mode "} {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			h.NewMode = parseMode(rest)
			return true
		}
	}
	if rest, ok := strings.CutPrefix(line, "index "); ok {
		// "index abc..def 100644" carries the mode of an unchanged-mode file.
		fields := strings.Fields(rest)
		if len(fields) == 2 {
			mode := parseMode(fields[1])
			h.OldMode, h.NewMode = mode, mode
		}
		return true
	}
	for _, prefix := range []string{"similarity index ", "rename from ", "rename to ", "copy from ", "copy to "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// parseNumber reads a non-negative decimal, falling back to def for malformed input.
func parseNumber(field string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// splitLines normalises line endings and drops the empty element after a final newline.
func splitLines(input string) []string {
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	if normalized == "" {
		return nil
	}
	lines := strings.Split(normalized, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// isNoNewlineMarker matches "\ No newline at end of file" and its translations.
func isNoNewlineMarker(line string) bool {
	return strings.HasPrefix(line, `\`)
}
