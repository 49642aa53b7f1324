package patch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeFixture(t *testing.T, dir, name, content string, perm os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func readFixture(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestApplyFilesystemUpdatesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, "src/foo.txt", "one\ntwo\nthree\n", 0o644)

	patchBody := join(
		"--- a/src/foo.txt",
		"+++ b/src/foo.txt",
		"@@ -1,3 +1,3 @@",
		" one",
		"-two",
		"+2",
		" three",
	)
	results, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, Strip: 1})
	if err != nil {
		t.Fatalf("ApplyFilesystemPatch returned error: %v", err)
	}
	if len(results) != 1 || results[0].Status != StatusModified || results[0].Path != "src/foo.txt" {
		t.Fatalf("unexpected results: %#v", results)
	}
	if got := readFixture(t, dir, "src/foo.txt"); got != "one\n2\nthree\n" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestApplyFilesystemWritesConflictsOptimistically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, "foo.txt", "one\nTWO\nthree\n", 0o644)

	patchBody := join("--- foo.txt", "+++ foo.txt", "@@ -2 +2 @@", "-two", "+2")
	results, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir})
	if err != nil {
		t.Fatalf("ApplyFilesystemPatch returned error: %v", err)
	}
	if !results[0].Result.HasConflicts() {
		t.Fatalf("expected a conflict: %+v", results[0].Result.Outcomes)
	}
	if got := readFixture(t, dir, "foo.txt"); got != "one\n2\nthree\n" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestApplyFilesystemCreatesAndDeletesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, "old.txt", "bye\n", 0o644)

	patchBody := join(
		"diff --git a/new.txt b/new.txt",
		"new file mode 100755",
		"--- /dev/null",
		"+++ b/new.txt",
		"@@ -0,0 +1,2 @@",
		"+hello",
		"+world",
		"diff --git a/old.txt b/old.txt",
		"deleted file mode 100644",
		"--- a/old.txt",
		"+++ /dev/null",
		"@@ -1 +0,0 @@",
		"-bye",
	)
	results, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, Strip: 1})
	if err != nil {
		t.Fatalf("ApplyFilesystemPatch returned error: %v", err)
	}
	if len(results) != 2 || results[0].Status != StatusAdded || results[1].Status != StatusDeleted {
		t.Fatalf("unexpected results: %#v", results)
	}
	if got := readFixture(t, dir, "new.txt"); got != "hello\nworld\n" {
		t.Fatalf("unexpected content: %q", got)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "new.txt"))
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Mode().Perm() != 0o755 {
			t.Fatalf("mode = %o, want 755", info.Mode().Perm())
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "old.txt")); !os.IsNotExist(err) {
		t.Fatalf("old.txt should be deleted, stat err = %v", err)
	}
}

func TestApplyFilesystemPreservesMode(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not preserved on windows")
	}

	dir := t.TempDir()
	writeFixture(t, dir, "run.sh", "echo hi\n", 0o750)
	if err := os.Chmod(filepath.Join(dir, "run.sh"), 0o750); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}

	patchBody := join("--- run.sh", "+++ run.sh", "@@ -1 +1 @@", "-echo hi", "+echo hello")
	if _, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir}); err != nil {
		t.Fatalf("ApplyFilesystemPatch returned error: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "run.sh"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o750 {
		t.Fatalf("mode = %o, want 750", info.Mode().Perm())
	}
}

func TestApplyFilesystemDryRunAndOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, "foo.txt", "one\n", 0o644)
	patchBody := join("--- foo.txt", "+++ foo.txt", "@@ -1 +1 @@", "-one", "+two")

	results, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("dry run returned error: %v", err)
	}
	if !results[0].DryRun || results[0].Result.Outcomes[0].Verdict != VerdictClean {
		t.Fatalf("unexpected dry-run result: %+v", results[0])
	}
	if got := readFixture(t, dir, "foo.txt"); got != "one\n" {
		t.Fatalf("dry run modified the file: %q", got)
	}

	var out bytes.Buffer
	if _, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, Output: &out}); err != nil {
		t.Fatalf("output run returned error: %v", err)
	}
	if out.String() != "two\n" {
		t.Fatalf("unexpected streamed output: %q", out.String())
	}
	if got := readFixture(t, dir, "foo.txt"); got != "one\n" {
		t.Fatalf("redirected output modified the file: %q", got)
	}

	out.Reset()
	if _, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, DryRun: true, Output: &out}); err != nil {
		t.Fatalf("dry run with output returned error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("dry run streamed output: %q", out.String())
	}
}

func TestApplyFilesystemReverse(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, "foo.txt", "one\ntwo\n", 0o644)
	patchBody := join("--- a/foo.txt", "+++ b/foo.txt", "@@ -1,2 +1,2 @@", "-uno", "+one", " two")

	if _, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, Strip: 1, Reverse: true}); err != nil {
		t.Fatalf("reverse apply returned error: %v", err)
	}
	if got := readFixture(t, dir, "foo.txt"); got != "uno\ntwo\n" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestApplyFilesystemRejectsUnsafePaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "work")
	writeFixture(t, root, "outside.txt", "one\n", 0o644)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	patchBody := join("--- ../outside.txt", "+++ ../outside.txt", "@@ -1 +1 @@", "-one", "+two")

	_, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir})
	if !IsUnsafePath(err) {
		t.Fatalf("expected unsafe path error, got %v", err)
	}
	if got := readFixture(t, root, "outside.txt"); got != "one\n" {
		t.Fatalf("unsafe target was modified: %q", got)
	}

	_, err = ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, AllowUnsafePaths: true})
	if err != nil {
		t.Fatalf("override should allow the path: %v", err)
	}
	if got := readFixture(t, root, "outside.txt"); got != "two\n" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestApplyFilesystemMissingFile(t *testing.T) {
	t.Parallel()

	patchBody := join("--- foo.txt", "+++ foo.txt", "@@ -1 +1 @@", "-one", "+two")
	_, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: t.TempDir()})
	if !IsIOError(err) {
		t.Fatalf("expected I/O error, got %v", err)
	}
}

func TestApplyFilesystemExplicitTarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, "actual.txt", "one\n", 0o644)
	// A normal diff has no header, so the target must be named.
	patchBody := join("1c1", "< one", "---", "> two")
	results, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, Target: "actual.txt"})
	if err != nil {
		t.Fatalf("ApplyFilesystemPatch returned error: %v", err)
	}
	if results[0].Path != "actual.txt" {
		t.Fatalf("unexpected path: %q", results[0].Path)
	}
	if got := readFixture(t, dir, "actual.txt"); got != "two\n" {
		t.Fatalf("unexpected content: %q", got)
	}

	if _, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir}); !IsParseError(err) {
		t.Fatalf("a headerless patch without a target should fail, got %v", err)
	}
}

func TestApplyFilesystemForwardSkipsAppliedPatches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, "foo.txt", "one\n2\nthree\nfour\n", 0o644)
	patchBody := join(
		"--- foo.txt",
		"+++ foo.txt",
		"@@ -1,3 +1,3 @@",
		" one",
		"-two",
		"+2",
		" three",
		"@@ -4 +4 @@",
		"-four",
		"+4",
	)

	var out bytes.Buffer
	results, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, Forward: true, Output: &out})
	if err != nil {
		t.Fatalf("forward run returned error: %v", err)
	}
	if !results[0].Skipped || results[0].Result.Outcomes[0].Verdict != VerdictAlreadyApplied {
		t.Fatalf("unexpected forward result: %+v", results[0])
	}
	if out.Len() != 0 {
		t.Fatalf("a skipped file must not reach the output: %q", out.String())
	}

	if _, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, Forward: true}); err != nil {
		t.Fatalf("forward run returned error: %v", err)
	}
	if got := readFixture(t, dir, "foo.txt"); got != "one\n2\nthree\nfour\n" {
		t.Fatalf("a skipped file was modified: %q", got)
	}

	results, err = ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir})
	if err != nil {
		t.Fatalf("default run returned error: %v", err)
	}
	if results[0].Skipped {
		t.Fatalf("only forward mode skips files")
	}
	if got := readFixture(t, dir, "foo.txt"); got != "one\n2\nthree\n4\n" {
		t.Fatalf("unexpected merge: %q", got)
	}
}

func TestApplyFilesystemSavesRejects(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixture(t, dir, "a.txt", "alpha\nbeta\n", 0o644)
	writeFixture(t, dir, "b.txt", "gamma\n", 0o644)
	patchBody := join(
		"--- a.txt",
		"+++ a.txt",
		"@@ -1,2 +1,2 @@",
		" alpha",
		"-beta",
		"+BETA",
		"--- b.txt",
		"+++ b.txt",
		"@@ -1 +1 @@",
		"-delta",
		"+DELTA",
	)

	dryRun := FilesystemOptions{WorkingDir: dir, RejectFile: "out.rej", DryRun: true}
	if _, err := ApplyFilesystemPatch(context.Background(), patchBody, dryRun); err != nil {
		t.Fatalf("dry run returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.rej")); !os.IsNotExist(err) {
		t.Fatalf("a dry run must not write rejects, stat err = %v", err)
	}

	results, err := ApplyFilesystemPatch(context.Background(), patchBody, FilesystemOptions{WorkingDir: dir, RejectFile: "out.rej"})
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if !results[1].Result.HasConflicts() {
		t.Fatalf("expected b.txt to conflict: %+v", results[1])
	}
	want := join("--- b.txt", "+++ b.txt", "@@ -1 +1 @@", "-delta", "+DELTA")
	if got := readFixture(t, dir, "out.rej"); got != want {
		t.Fatalf("rejects:\n%s\nwant:\n%s", got, want)
	}
	if got := readFixture(t, dir, "a.txt"); got != "alpha\nBETA\n" {
		t.Fatalf("clean file not patched: %q", got)
	}
}
