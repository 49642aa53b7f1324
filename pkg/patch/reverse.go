package patch

// Reverse returns a ChangeSet that undoes cs: add and remove lines trade places, as do the two
// sides' ranges, names, timestamps, modes and no-newline markers. cs is not modified.
func (cs *ChangeSet) Reverse() *ChangeSet {
	if cs == nil {
		return nil
	}
	out := &ChangeSet{
		Dialect: cs.Dialect,
		Header: Header{
			OldName:   cs.Header.NewName,
			NewName:   cs.Header.OldName,
			OldTime:   cs.Header.NewTime,
			NewTime:   cs.Header.OldTime,
			IndexName: cs.Header.IndexName,
			OldMode:   cs.Header.NewMode,
			NewMode:   cs.Header.OldMode,
			Git:       cs.Header.Git,
		},
		Hunks: make([]Hunk, len(cs.Hunks)),
	}
	for i, h := range cs.Hunks {
		out.Hunks[i] = h.reverse()
	}
	return out
}

func (h Hunk) reverse() Hunk {
	r := Hunk{
		OrigStart:     h.NewStart,
		OrigCount:     h.NewCount,
		NewStart:      h.OrigStart,
		NewCount:      h.OrigCount,
		Label:         h.Label,
		OrigNoNewline: h.NewNoNewline,
		NewNoNewline:  h.OrigNoNewline,
		Position:      h.Position,
		RawLines:      h.RawLines,
		Lines:         make([]HunkLine, 0, len(h.Lines)),
	}
	// Within a run of changes the removals must still precede the additions.
	var added []HunkLine
	for _, line := range h.Lines {
		switch line.Kind {
		case LineAdd:
			r.Lines = append(r.Lines, HunkLine{Kind: LineRemove, Text: line.Text})
		case LineRemove:
			added = append(added, HunkLine{Kind: LineAdd, Text: line.Text})
		default:
			r.Lines = append(r.Lines, added...)
			added = added[:0]
			r.Lines = append(r.Lines, line)
		}
	}
	r.Lines = append(r.Lines, added...)
	return r
}
