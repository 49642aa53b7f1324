package patch

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
)

const devNull = "/dev/null"

// parseMode reads a git octal mode such as "100755". Only permission bits are kept.
func parseMode(field string) fs.FileMode {
	n, err := strconv.ParseUint(strings.TrimSpace(field), 8, 32)
	if err != nil {
		return 0
	}
	return fs.FileMode(n) & fs.ModePerm
}

// Target picks the file a ChangeSet applies to: the new name unless it is missing or /dev/null,
// with strip leading path components removed.
func (h Header) Target(strip int) (string, error) {
	candidates := []string{h.NewName, h.OldName, h.IndexName}
	for _, name := range candidates {
		if name == "" || name == devNull {
			continue
		}
		stripped, ok := StripPath(name, strip)
		if ok {
			return stripped, nil
		}
	}
	return "", errors.New("patch does not name a target file")
}

// IsCreation reports whether the patch creates its file.
func (h Header) IsCreation() bool { return h.OldName == devNull }

// IsDeletion reports whether the patch deletes its file.
func (h Header) IsDeletion() bool { return h.NewName == devNull }

// StripPath removes n leading slash-separated components from name, like patch -pN. ok is false
// when n is negative or name has fewer than n+1 components.
func StripPath(name string, n int) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || n < 0 {
		return "", false
	}
	rest := name
	for i := 0; i < n; i++ {
		// Runs of slashes count as one separator.
		idx := strings.IndexByte(rest, '/')
		if idx < 0 {
			return "", false
		}
		rest = strings.TrimLeft(rest[idx+1:], "/")
		if rest == "" {
			return "", false
		}
	}
	return rest, true
}
