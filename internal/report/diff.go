package report

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// mismatchDiff shows how the document line differs from the line the hunk expected, word-diff
// style: text only the hunk has is wrapped in [-...-] and text only the document has in {+...+}.
func mismatchDiff(expected, actual string, st styles) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(diff.Text)
		case diffmatchpatch.DiffDelete:
			b.WriteString(st.removed.Render("[-" + diff.Text + "-]"))
		case diffmatchpatch.DiffInsert:
			b.WriteString(st.added.Render("{+" + diff.Text + "+}"))
		}
	}
	return b.String()
}
