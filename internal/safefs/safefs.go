// Package safefs provides file operations confined to a root directory. Absolute paths, ".."
// components and symbolic links in the final path component are rejected unless a call passes
// Unsafe().
package safefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is wrapped by every rejection.
var ErrUnsafePath = errors.New("unsafe path")

// PathError records the operation and path that was rejected or failed.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Option adjusts a single call.
type Option func(*callOptions)

type callOptions struct {
	unsafe bool
}

// Unsafe lets one call use absolute paths, ".." components and symbolic links.
func Unsafe() Option {
	return func(o *callOptions) { o.unsafe = true }
}

// UnsafeIf returns Unsafe() when allow is set and a no-op option otherwise.
func UnsafeIf(allow bool) Option {
	return func(o *callOptions) { o.unsafe = o.unsafe || allow }
}

func collect(opts []Option) callOptions {
	var o callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// FS resolves names against a root directory.
type FS struct {
	root     string
	dirPerm  fs.FileMode
	filePerm fs.FileMode
}

// New roots an FS at dir. An empty dir selects the process working directory.
func New(dir string) (*FS, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return &FS{root: abs, dirPerm: 0o755, filePerm: 0o644}, nil
}

// Resolve maps name to an absolute path under the root.
func (f *FS) Resolve(name string, opts ...Option) (string, error) {
	return f.resolve("resolve", name, collect(opts))
}

func (f *FS) resolve(op, name string, o callOptions) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &PathError{Op: op, Path: name, Err: errors.New("empty path")}
	}
	if !o.unsafe {
		if reason := unsafeReason(trimmed); reason != "" {
			return "", &PathError{Op: op, Path: name, Err: fmt.Errorf("%w: %s", ErrUnsafePath, reason)}
		}
	}
	cleaned := filepath.Clean(filepath.FromSlash(trimmed))
	if filepath.IsAbs(cleaned) {
		return cleaned, nil
	}
	return filepath.Join(f.root, cleaned), nil
}

// unsafeReason explains why name may escape the root, or returns "".
func unsafeReason(name string) string {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return "absolute path"
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == filepath.Separator }) {
		if part == ".." {
			return "parent directory component"
		}
	}
	return ""
}

// Stat describes name without following a final symbolic link.
func (f *FS) Stat(name string, opts ...Option) (fs.FileInfo, error) {
	o := collect(opts)
	path, err := f.resolve("stat", name, o)
	if err != nil {
		return nil, err
	}
	if o.unsafe {
		return os.Stat(path)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, &PathError{Op: "stat", Path: name, Err: fmt.Errorf("%w: symbolic link", ErrUnsafePath)}
	}
	return info, nil
}

// Open opens name for reading.
func (f *FS) Open(name string, opts ...Option) (*os.File, error) {
	o := collect(opts)
	path, err := f.resolve("open", name, o)
	if err != nil {
		return nil, err
	}
	file, err := openFile(path, os.O_RDONLY, 0, o.unsafe)
	if errors.Is(err, errSymlink) {
		return nil, &PathError{Op: "open", Path: name, Err: fmt.Errorf("%w: symbolic link", ErrUnsafePath)}
	}
	return file, err
}

// MkdirAll creates name and any missing parents.
func (f *FS) MkdirAll(name string, opts ...Option) error {
	path, err := f.resolve("mkdir", name, collect(opts))
	if err != nil {
		return err
	}
	return os.MkdirAll(path, f.dirPerm)
}

// Remove deletes the file name.
func (f *FS) Remove(name string, opts ...Option) error {
	o := collect(opts)
	path, err := f.resolve("remove", name, o)
	if err != nil {
		return err
	}
	if info, statErr := os.Lstat(path); statErr == nil && info.IsDir() {
		return &PathError{Op: "remove", Path: name, Err: errors.New("is a directory")}
	}
	return os.Remove(path)
}

// WriteFile replaces name with data atomically: the bytes go to a temporary file in the same
// directory, which is synced and then renamed over name. A zero perm keeps the mode of an existing
// file or falls back to 0644.
func (f *FS) WriteFile(ctx context.Context, name string, data []byte, perm fs.FileMode, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o := collect(opts)
	path, err := f.resolve("write", name, o)
	if err != nil {
		return err
	}
	if !o.unsafe {
		if info, statErr := os.Lstat(path); statErr == nil && info.Mode()&fs.ModeSymlink != 0 {
			return &PathError{Op: "write", Path: name, Err: fmt.Errorf("%w: symbolic link", ErrUnsafePath)}
		}
	}
	if perm == 0 {
		perm = f.filePerm
		if info, statErr := os.Stat(path); statErr == nil {
			perm = info.Mode().Perm()
		}
	}

	if err := f.MkdirAll(filepath.Dir(name), opts...); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fuzzpatch-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// Best effort: persist the rename on platforms that allow syncing directories.
	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
