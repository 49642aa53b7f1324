package patch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/asynkron/fuzzpatch/internal/safefs"
)

// File statuses reported in FileResult.Status.
const (
	StatusModified = "M"
	StatusAdded    = "A"
	StatusDeleted  = "D"
)

// FileResult describes what happened to one target file.
type FileResult struct {
	Path    string  `json:"path"`
	Status  string  `json:"status"`
	DryRun  bool    `json:"dryRun,omitempty"`
	Skipped bool    `json:"skipped,omitempty"`
	Result  *Result `json:"result"`
}

// ApplyFilesystem merges each ChangeSet into the file it names and writes the result back
// atomically. Conflicting hunks do not stop the write: their add lines are kept in the output and
// their verdicts are reported. File names taken from the patch that are absolute or contain ".."
// are rejected unless opts.AllowUnsafePaths is set. With opts.RejectFile set, the conflicting
// hunks of all files are saved there once every file has been processed.
func ApplyFilesystem(ctx context.Context, sets []*ChangeSet, opts FilesystemOptions) ([]FileResult, error) {
	base, err := opts.Options.prepared()
	if err != nil {
		return nil, err
	}
	opts.Options = base
	if opts.Target != "" && len(sets) > 1 {
		return nil, &Error{Code: CodeInvalidOptions, Message: "an explicit target needs a single-file patch"}
	}
	if opts.Strip < 0 {
		return nil, &Error{Code: CodeInvalidOptions, Message: "strip count must not be negative"}
	}
	fsys, err := safefs.New(opts.WorkingDir)
	if err != nil {
		return nil, ioError(opts.WorkingDir, "failed to open working directory", err)
	}

	ws := &filesystemWorkspace{fsys: fsys, opts: opts, unsafe: safefs.UnsafeIf(opts.AllowUnsafePaths)}
	results := make([]FileResult, 0, len(sets))
	var rejects strings.Builder
	for _, cs := range sets {
		if err := ctx.Err(); err != nil {
			return results, &Error{Code: CodeCanceled, Message: "patching canceled", Err: err}
		}
		result, applied, err := ws.apply(ctx, cs)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		if !result.Skipped {
			rejects.WriteString(FormatRejects(result.Path, applied, result.Result.Outcomes))
		}
	}
	if err := ws.saveRejects(ctx, rejects.String()); err != nil {
		return results, err
	}
	return results, nil
}

// ApplyFilesystemPatch parses patchBody and applies every file it touches.
func ApplyFilesystemPatch(ctx context.Context, patchBody string, opts FilesystemOptions) ([]FileResult, error) {
	sets, err := parseAll(ctx, patchBody, opts.Options)
	if err != nil {
		return nil, err
	}
	return ApplyFilesystem(ctx, sets, opts)
}

type filesystemWorkspace struct {
	fsys   *safefs.FS
	opts   FilesystemOptions
	unsafe safefs.Option
}

// apply merges cs into its target. It also returns the change set as applied, which differs from
// cs under Reverse.
func (ws *filesystemWorkspace) apply(ctx context.Context, cs *ChangeSet) (FileResult, *ChangeSet, error) {
	if cs == nil {
		return FileResult{}, nil, &Error{Code: CodeInvalidOptions, Err: errors.New("nil change set")}
	}
	if ws.opts.Reverse {
		cs = cs.Reverse()
	}
	// A target named by the caller is trusted; only names taken from the patch are checked.
	target, unsafe := ws.opts.Target, safefs.Unsafe()
	if target == "" {
		unsafe = ws.unsafe
		var err error
		target, err = cs.Header.Target(ws.opts.Strip)
		if err != nil {
			line := 0
			if len(cs.Hunks) > 0 {
				line = cs.Hunks[0].Position
			}
			return FileResult{}, nil, &Error{Code: CodeParse, Line: line, Message: err.Error()}
		}
	}
	logger := ws.opts.Logger.WithFields(Field("file", target))

	started := time.Now()
	doc, mode, exists, err := ws.load(target, cs, unsafe)
	if err != nil {
		return FileResult{}, nil, err
	}

	// The merged document streams to Output unless it may still be discarded.
	sink := ws.opts.Output
	if ws.opts.DryRun || ws.opts.Forward {
		sink = nil
	}
	out := NewOutput(sink)
	result, err := Merge(ctx, doc, cs, out, ws.opts.Options)
	if err != nil {
		return FileResult{}, nil, withPath(err, target)
	}

	status := StatusModified
	switch {
	case !exists:
		status = StatusAdded
	case cs.Header.IsDeletion() && !out.Emitted() && !result.HasConflicts():
		status = StatusDeleted
	}
	fileResult := FileResult{Path: target, Status: status, DryRun: ws.opts.DryRun, Result: result}

	if ws.opts.Forward && result.Counts()[VerdictAlreadyApplied] > 0 {
		fileResult.Skipped = true
		logger.Info(ctx, "skipping previously applied patch")
		return fileResult, cs, nil
	}
	if sink == nil && ws.opts.Output != nil && !ws.opts.DryRun {
		if _, err := io.WriteString(ws.opts.Output, out.String()); err != nil {
			return FileResult{}, nil, ioError(target, "failed to write output", err)
		}
	}
	if ws.opts.DryRun || ws.opts.Output != nil {
		logger.Info(ctx, "merged without writing", Field("status", status), Field("dry_run", ws.opts.DryRun))
		return fileResult, cs, nil
	}
	if status == StatusDeleted {
		if err := ws.fsys.Remove(target, unsafe); err != nil {
			return FileResult{}, nil, ws.pathError(target, "failed to delete file", err)
		}
		logger.Info(ctx, "deleted file")
		return fileResult, cs, nil
	}
	if cs.Header.NewMode != 0 {
		mode = cs.Header.NewMode
	}
	if err := ws.fsys.WriteFile(ctx, target, []byte(out.String()), mode, unsafe); err != nil {
		return FileResult{}, nil, ws.pathError(target, "failed to write file", err)
	}
	logger.Info(ctx, "patched file",
		Field("status", status),
		Field("conflicts", result.Counts()[VerdictConflict]),
		Field("elapsed", time.Since(started)))
	return fileResult, cs, nil
}

// load reads target. A missing file is only acceptable when the patch creates it.
func (ws *filesystemWorkspace) load(target string, cs *ChangeSet, unsafe safefs.Option) (*Lines, fs.FileMode, bool, error) {
	info, err := ws.fsys.Stat(target, unsafe)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !createsFile(cs) {
			return nil, 0, false, ws.pathError(target, "file does not exist", err)
		}
		return NewDocument(nil, false), 0, false, nil
	case err != nil:
		return nil, 0, false, ws.pathError(target, "failed to stat file", err)
	case info.IsDir():
		return nil, 0, false, ioError(target, "cannot patch a directory", nil)
	}

	file, err := ws.fsys.Open(target, unsafe)
	if err != nil {
		return nil, 0, false, ws.pathError(target, "failed to read file", err)
	}
	defer file.Close()
	doc, err := LoadDocument(file)
	if err != nil {
		return nil, 0, false, withPath(err, target)
	}
	return doc, info.Mode().Perm(), true, nil
}

// saveRejects writes the collected reject hunks. The reject file is named by the caller, so it
// skips the unsafe path checks.
func (ws *filesystemWorkspace) saveRejects(ctx context.Context, rejects string) error {
	if ws.opts.RejectFile == "" || rejects == "" || ws.opts.DryRun {
		return nil
	}
	if err := ws.fsys.WriteFile(ctx, ws.opts.RejectFile, []byte(rejects), 0, safefs.Unsafe()); err != nil {
		return ws.pathError(ws.opts.RejectFile, "failed to write reject file", err)
	}
	ws.opts.Logger.Info(ctx, "saved rejects", Field("file", ws.opts.RejectFile))
	return nil
}

func (ws *filesystemWorkspace) pathError(target, message string, err error) *Error {
	if errors.Is(err, safefs.ErrUnsafePath) {
		return &Error{Code: CodeUnsafePath, Path: target, Message: "refusing unsafe path", Err: err}
	}
	return ioError(target, message, err)
}

// createsFile reports whether cs describes a new file: a /dev/null original or a single hunk that
// consumes nothing from an empty original.
func createsFile(cs *ChangeSet) bool {
	if cs.Header.IsCreation() {
		return true
	}
	return len(cs.Hunks) == 1 && cs.Hunks[0].OrigCount == 0 && cs.Hunks[0].OrigStart == 0
}

func withPath(err error, path string) error {
	var pe *Error
	if errors.As(err, &pe) && pe.Path == "" {
		pe.Path = path
	}
	return err
}
