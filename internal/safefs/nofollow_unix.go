//go:build unix

package safefs

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

var errSymlink = errors.New("symbolic link")

// openFile opens path with O_NOFOLLOW unless follow is set, so a symbolic link in the final
// component fails instead of being traversed.
func openFile(path string, flag int, perm fs.FileMode, follow bool) (*os.File, error) {
	if !follow {
		flag |= unix.O_NOFOLLOW
	}
	file, err := os.OpenFile(path, flag, perm)
	if err != nil && !follow && errors.Is(err, unix.ELOOP) {
		return nil, errSymlink
	}
	return file, err
}
