package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/asynkron/fuzzpatch/internal/config"
	"github.com/asynkron/fuzzpatch/internal/report"
	"github.com/asynkron/fuzzpatch/pkg/patch"
)

// Exit codes follow patch: conflicts are a soft failure, everything else that stops the run is a
// hard one.
const (
	ExitOK       = 0
	ExitConflict = 1
	ExitTrouble  = 2
)

// Run executes fuzzpatch using the provided CLI arguments. Patch text is read from stdin unless a
// patch file is named. It returns a POSIX-style exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if stdin == nil {
		stdin = eofReader{}
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "fuzzpatch: %v\n", err)
		return ExitTrouble
	}
	cfg, rest, err := config.Load(args, nil, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintf(stderr, "fuzzpatch: %v\n", err)
		return ExitTrouble
	}
	if err := bindPositional(&cfg, rest); err != nil {
		fmt.Fprintf(stderr, "fuzzpatch: %v\n", err)
		return ExitTrouble
	}

	level := patch.ParseLogLevel(cfg.LogLevel)
	logger := patch.NewStdLogger(level, stderr)
	metrics := patch.NewInMemoryMetrics()
	ctx = patch.WithTraceID(ctx, patch.NewTraceID())

	opts, err := cfg.FilesystemOptions(logger, metrics)
	if err != nil {
		fmt.Fprintf(stderr, "fuzzpatch: %v\n", err)
		return ExitTrouble
	}

	sets, err := readPatch(ctx, cfg.PatchFile, stdin, opts.Options)
	if err != nil {
		fmt.Fprintf(stderr, "fuzzpatch: %s\n", patch.FormatError(err))
		return ExitTrouble
	}

	// The report moves to stderr when stdout carries the merged document. A dry run produces no
	// merged document at all.
	reportOut := stdout
	closeOutput := func() error { return nil }
	switch {
	case cfg.DryRun:
	case cfg.OutputFile == "-":
		opts.Output = stdout
		reportOut = stderr
	case cfg.OutputFile != "":
		file, err := os.Create(cfg.OutputFile)
		if err != nil {
			fmt.Fprintf(stderr, "fuzzpatch: failed to create output file: %v\n", err)
			return ExitTrouble
		}
		opts.Output = file
		closeOutput = file.Close
	}

	results, applyErr := patch.ApplyFilesystem(ctx, sets, opts)
	if err := closeOutput(); err != nil && applyErr == nil {
		applyErr = &patch.Error{Code: patch.CodeIO, Path: cfg.OutputFile, Message: "failed to close output file", Err: err}
	}

	files := make([]report.File, 0, len(results))
	for i, result := range results {
		files = append(files, report.File{
			Path:    result.Path,
			Status:  result.Status,
			DryRun:  result.DryRun,
			Skipped: result.Skipped,
			Result:  result.Result,
			Hunks:   sets[i].Hunks,
		})
	}
	reportOpts := report.Options{Format: cfg.Format, Color: cfg.Color}
	if !cfg.DryRun {
		reportOpts.RejectFile = opts.RejectFile
	}
	if err := report.Write(reportOut, files, reportOpts); err != nil {
		fmt.Fprintf(stderr, "fuzzpatch: failed to write report: %v\n", err)
		return ExitTrouble
	}
	if level == patch.LogLevelDebug {
		fmt.Fprintln(stderr, report.MetricsLine(metrics.Snapshot()))
	}

	if applyErr != nil {
		fmt.Fprintf(stderr, "fuzzpatch: %s\n", patch.FormatError(applyErr))
		return ExitTrouble
	}
	if report.Summarize(files).Conflicts > 0 {
		return ExitConflict
	}
	return ExitOK
}

// bindPositional accepts patch's "[originalfile [patchfile]]" operands.
func bindPositional(cfg *config.Config, rest []string) error {
	switch len(rest) {
	case 0:
		return nil
	case 1:
		cfg.Target = rest[0]
		return nil
	case 2:
		if cfg.PatchFile != "" {
			return errors.New("the patch file was given both with -i and as an operand")
		}
		cfg.Target, cfg.PatchFile = rest[0], rest[1]
		return nil
	default:
		return fmt.Errorf("too many operands: %q", rest[2:])
	}
}

// readPatch parses the patch named by path, or stdin when path is empty or "-".
func readPatch(ctx context.Context, path string, stdin io.Reader, opts patch.Options) ([]*patch.ChangeSet, error) {
	if path == "" || path == "-" {
		return patch.ParseAllReader(ctx, stdin, opts)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &patch.Error{Code: patch.CodeIO, Path: path, Message: "failed to open patch file", Err: err}
	}
	defer file.Close()
	sets, err := patch.ParseAllReader(ctx, file, opts)
	var pe *patch.Error
	if errors.As(err, &pe) && pe.Code == patch.CodeIO && pe.Path == "" {
		pe.Path = path
	}
	return sets, err
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
