//go:build !unix

package safefs

import (
	"errors"
	"io/fs"
	"os"
)

var errSymlink = errors.New("symbolic link")

func openFile(path string, flag int, perm fs.FileMode, follow bool) (*os.File, error) {
	if !follow {
		if info, err := os.Lstat(path); err == nil && info.Mode()&fs.ModeSymlink != 0 {
			return nil, errSymlink
		}
	}
	return os.OpenFile(path, flag, perm)
}
