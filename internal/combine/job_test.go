package combine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// TestJob_StrictMerge verifies the whole pipeline on two agreeing files:
// sorted file order, one header, and a source column naming each row's
// origin file.
func TestJob_StrictMerge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name\n1,ann\n")
	writeInput(t, dir, "b.csv", "id,name\n2,bo\n3,cy\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	job := &Job{
		Directory:    dir,
		Policy:       PolicyStrict,
		AddSource:    true,
		SourceColumn: "source_file",
		SourceMode:   SourceName,
		OutPath:      out,
		OutDelim:     ',',
		Header:       true,
	}
	sum, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Rows != 3 {
		t.Fatalf("expected 3 rows, got %d", sum.Rows)
	}

	want := "source_file,id,name\n" +
		"a.csv,1,ann\n" +
		"b.csv,2,bo\n" +
		"b.csv,3,cy\n"
	if got := readOutput(t, out); got != want {
		t.Fatalf("output mismatch:\n got %q\nwant %q", got, want)
	}
}

// TestJob_Idempotent verifies running the same job twice yields byte
// identical output.
func TestJob_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id\n1\n2\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	job := &Job{
		Directory: dir,
		Policy:    PolicyStrict,
		OutPath:   out,
		OutDelim:  ',',
		Header:    true,
	}
	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := readOutput(t, out)
	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second := readOutput(t, out); second != first {
		t.Fatalf("reruns diverged:\nfirst  %q\nsecond %q", first, second)
	}
}

// TestJob_UnionFillsMissing verifies union schema with empty cells where a
// file lacks a column.
func TestJob_UnionFillsMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name\n1,ann\n")
	writeInput(t, dir, "b.csv", "id,email\n2,bo@x\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	job := &Job{
		Directory: dir,
		Policy:    PolicyUnion,
		OutPath:   out,
		OutDelim:  ',',
		Header:    true,
	}
	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "id,name,email\n1,ann,\n2,,bo@x\n"
	if got := readOutput(t, out); got != want {
		t.Fatalf("output mismatch:\n got %q\nwant %q", got, want)
	}
}

// TestJob_RequestedColumnsFillNA verifies requested-column order drives the
// output and fillna synthesizes empty cells.
func TestJob_RequestedColumnsFillNA(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name,age\n1,ann,30\n")
	writeInput(t, dir, "b.csv", "id,name\n2,bo\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	job := &Job{
		Directory: dir,
		Columns:   []string{"name", "age"},
		Missing:   MissingFillNA,
		OutPath:   out,
		OutDelim:  ',',
		Header:    true,
	}
	sum, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.ColumnsMode {
		t.Fatal("expected columns mode")
	}

	want := "name,age\nann,30\nbo,\n"
	if got := readOutput(t, out); got != want {
		t.Fatalf("output mismatch:\n got %q\nwant %q", got, want)
	}
}

// TestJob_MixedDelimitersFatalWithoutNormalize verifies the conflict error
// when inputs disagree and no target delimiter was given.
func TestJob_MixedDelimitersFatalWithoutNormalize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name\n1,ann\n2,bo\n")
	writeInput(t, dir, "b.csv", "id\tname\n3\tcy\n4\tdee\n")

	job := &Job{
		Directory: dir,
		Policy:    PolicyStrict,
		OutPath:   filepath.Join(t.TempDir(), "out.csv"),
		OutDelim:  ',',
		Header:    true,
	}
	_, err := job.Run(context.Background())
	var dc *DelimiterConflictError
	if !errors.As(err, &dc) {
		t.Fatalf("expected DelimiterConflictError, got %v", err)
	}
	if len(dc.Delims) != 2 {
		t.Fatalf("unexpected delims: %q", dc.Delims)
	}
}

// TestJob_NormalizeMixedDelimiters verifies mixed inputs merge cleanly after
// rewriting, and that the scratch workspace is gone afterwards. TMPDIR is
// redirected so leftover scratch dirs are observable.
func TestJob_NormalizeMixedDelimiters(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name\n1,ann\n2,bo\n")
	writeInput(t, dir, "b.csv", "id\tname\n3\tcy\n4\tdee\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	job := &Job{
		Directory:   dir,
		NormalizeTo: ',',
		Workers:     2,
		Policy:      PolicyStrict,
		OutPath:     out,
		OutDelim:    ',',
		Header:      true,
	}
	sum, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Normalized || sum.Rows != 4 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	want := "id,name\n1,ann\n2,bo\n3,cy\n4,dee\n"
	if got := readOutput(t, out); got != want {
		t.Fatalf("output mismatch:\n got %q\nwant %q", got, want)
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "concat_norm_") {
			t.Fatalf("scratch workspace left behind: %s", e.Name())
		}
	}
}

// TestJob_DryRunWritesNothing verifies a dry run summarizes without creating
// the output file.
func TestJob_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name\n1,ann\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	job := &Job{
		Directory: dir,
		Policy:    PolicyStrict,
		OutPath:   out,
		OutDelim:  ',',
		Header:    true,
		DryRun:    true,
	}
	sum, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sum.Schema) != 2 || len(sum.Files) != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("dry run created output: %v", err)
	}
}

// TestJob_ExtensionFilter verifies a foreign-extension file is excluded
// before sniffing.
func TestJob_ExtensionFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name\n1,ann\n")
	writeInput(t, dir, "b.tsv", "id\tname\n2\tbo\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	job := &Job{
		Directory:    dir,
		Extension:    "csv",
		Policy:       PolicyStrict,
		AddSource:    true,
		SourceColumn: "source_file",
		SourceMode:   SourceName,
		OutPath:      out,
		OutDelim:     ',',
		Header:       true,
	}
	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "source_file,id,name\na.csv,1,ann\n"
	if got := readOutput(t, out); got != want {
		t.Fatalf("output mismatch:\n got %q\nwant %q", got, want)
	}
}

// TestJob_NoHeaderOutput verifies the header row is suppressed on request.
func TestJob_NoHeaderOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name\n1,ann\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	job := &Job{
		Directory: dir,
		Policy:    PolicyStrict,
		OutPath:   out,
		OutDelim:  ',',
		Header:    false,
	}
	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readOutput(t, out); got != "1,ann\n" {
		t.Fatalf("output mismatch: %q", got)
	}
}

// TestJob_HeaderOnlyInputs verifies the combined header is still written when
// no file carries data rows.
func TestJob_HeaderOnlyInputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	job := &Job{
		Directory: dir,
		Policy:    PolicyStrict,
		OutPath:   out,
		OutDelim:  ',',
		Header:    true,
	}
	sum, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Rows != 0 {
		t.Fatalf("expected 0 rows, got %d", sum.Rows)
	}
	if got := readOutput(t, out); got != "id,name\n" {
		t.Fatalf("output mismatch: %q", got)
	}
}

// TestJob_ValidateInputSources verifies exactly one input source is required
// and an output target is mandatory outside dry runs.
func TestJob_ValidateInputSources(t *testing.T) {
	t.Parallel()

	job := &Job{OutPath: "out.csv", OutDelim: ','}
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error with no input source")
	}

	job = &Job{Directory: "x", Inputs: []string{"a.csv"}, OutPath: "out.csv", OutDelim: ','}
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error with two input sources")
	}

	job = &Job{Directory: "x"}
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error with no output path")
	}
}

// TestJob_Canceled verifies a canceled context surfaces as context.Canceled
// before any row is merged.
func TestJob_Canceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id\n1\n2\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &Job{
		Directory: dir,
		Policy:    PolicyStrict,
		OutPath:   out,
		OutDelim:  ',',
		Header:    true,
	}
	_, err := job.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// TestJob_EmptyHeaderFileFatal verifies a blank input aborts the run with
// the aggregated header error.
func TestJob_EmptyHeaderFileFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "a.csv", "id,name\n1,ann\n")
	writeInput(t, dir, "blank.csv", "")

	job := &Job{
		Directory: dir,
		Policy:    PolicyStrict,
		OutPath:   filepath.Join(t.TempDir(), "out.csv"),
		OutDelim:  ',',
		Header:    true,
	}
	_, err := job.Run(context.Background())
	var he *HeaderError
	if !errors.As(err, &he) {
		t.Fatalf("expected HeaderError, got %v", err)
	}
	if len(he.Files) != 1 || !strings.HasSuffix(he.Files[0], "blank.csv") {
		t.Fatalf("unexpected files: %v", he.Files)
	}
}
