package cmds

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"dicomcat/internal/models"
	"dicomcat/internal/testutil"
	"dicomcat/pkg/config"
	"dicomcat/pkg/dicomio"
)

var series = models.ImageAttributes{
	PatientName:   "Doe^Jane",
	Width:         2,
	Height:        1,
	BitsAllocated: 16,
	Signedness:    models.Signed,
}

// noEnv keeps a developer's .env out of the tests
func noEnv(t *testing.T) []string {
	return []string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCat(t *testing.T, opener dicomio.Opener, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Main(NewCatCommand(opener, &stdout, &stderr), append(noEnv(t), args...), &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func runDump(t *testing.T, opener dicomio.Opener, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Main(NewDumpCommand(opener, &stdout, &stderr), args, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func runTree(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Main(NewTreeCommand(dicomio.FileOpener{}, &stdout, &stderr), append(noEnv(t), args...), &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestExitCode(t *testing.T) {
	require.Equal(t, ExitOK, ExitCode(nil))
	require.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	require.Equal(t, ExitUsage, ExitCode(errors.Wrap(&UsageError{ExitCode: ExitUsage, Message: DumpUsage}, "dump")))
}

func TestCatStdout(t *testing.T) {
	opener := testutil.NewFakeOpener().
		Add("s1", series, []byte{1, 2, 3, 4}).
		Add("s2", series, []byte{5, 6, 7, 8})

	res := runCat(t, opener, "s1", "s2")
	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Equal(t, string([]byte{1, 2, 3, 4, 5, 6, 7, 8}), res.stdout)
	require.Equal(t, "[ 50.00%] Processing 's1'...\n[100.00%] Processing 's2'...\n", res.stderr)
}

func TestCatMismatch(t *testing.T) {
	other := series
	other.Width = 4
	opener := testutil.NewFakeOpener().
		Add("s1", series, []byte{1, 2, 3, 4}).
		Add("s2", other, []byte{5, 6, 7, 8, 9, 10, 11, 12})

	res := runCat(t, opener, "s1", "s2")
	require.Equal(t, ExitFailure, res.code)
	require.Contains(t, res.stderr, "s2: Width must agree over all files")
}

func TestCatEmpty(t *testing.T) {
	res := runCat(t, testutil.NewFakeOpener())
	require.Equal(t, ExitFailure, res.code)
	require.Contains(t, res.stderr, "list of filenames must not be empty")
}

func TestCatCheckFromConfig(t *testing.T) {
	other := series
	other.PatientName = "Roe^Rich"
	opener := testutil.NewFakeOpener().
		Add("s1", series, []byte{1, 2, 3, 4}).
		Add("s2", other, []byte{5, 6, 7, 8}).
		Add("s3", series, []byte{9, 10, 11, 12})

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "dicomcat.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("concat:\n  check: true\n  outputDir: "+dir+"\n"), 0644))

	res := runCat(t, opener, "--config", cfgPath, "--prefix", "SER01", "s1", "s2", "s3")
	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Empty(t, res.stdout)

	data, err := os.ReadFile(filepath.Join(dir, "SER01_2x1x3_16s"))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 9, 10, 11, 12}, data)
}

func TestCatFlagsOverrideConfig(t *testing.T) {
	opener := testutil.NewFakeOpener().Add("s1", series, []byte{1, 2, 3, 4})

	cfgDir, outDir := t.TempDir(), t.TempDir()
	cfgPath := filepath.Join(cfgDir, "dicomcat.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("concat:\n  outputDir: "+cfgDir+"\n"), 0644))

	res := runCat(t, opener, "--config", cfgPath, "--output-dir", outDir, "--prefix", "P", "--digest", "s1")
	require.Equal(t, ExitOK, res.code, res.stderr)
	require.FileExists(t, filepath.Join(outDir, "P_2x1x1_16s"))
	require.NoFileExists(t, filepath.Join(cfgDir, "P_2x1x1_16s"))
	require.Contains(t, res.stderr, "xxh3 ")
}

func TestCatInvalidLogLevel(t *testing.T) {
	opener := testutil.NewFakeOpener().Add("s1", series, []byte{1, 2, 3, 4})
	res := runCat(t, opener, "--log-level", "loud", "s1")
	require.Equal(t, ExitFailure, res.code)
	require.Contains(t, res.stderr, "invalid log level")
}

func TestDumpUsage(t *testing.T) {
	for _, args := range [][]string{{}, {"a", "b"}} {
		res := runDump(t, testutil.NewFakeOpener(), args...)
		require.Equal(t, ExitUsage, res.code)
		require.Equal(t, DumpUsage+"\n", res.stderr)
		require.Empty(t, res.stdout)
	}
}

func TestDump(t *testing.T) {
	opener := testutil.NewFakeOpener().Add("s1", series, []byte{1, 2, 3, 4})
	res := runDump(t, opener, "s1")
	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Equal(t, string([]byte{1, 2, 3, 4}), res.stdout)
	require.Contains(t, res.stderr, "Width:                      2\n")
	require.Contains(t, res.stderr, "Unsigned:                   0\n")
}

func TestDumpOpenError(t *testing.T) {
	opener := testutil.NewFakeOpener().Fail("bad", errors.New("dicom: unexpected EOF"))
	res := runDump(t, opener, "bad")
	require.Equal(t, ExitFailure, res.code)
	require.Contains(t, res.stderr, "unexpected EOF")
}

func TestTreeUsage(t *testing.T) {
	res := runTree(t)
	require.Equal(t, ExitFailure, res.code)
	require.True(t, strings.HasPrefix(res.stderr, "Usage: dicomtree ROOT"))
}

func TestTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "STUD01")
	out := t.TempDir()
	testutil.WriteDICOM(t, filepath.Join(root, "SER01", "IM0001"), testutil.NewSlice(series, []byte{1, 2, 3, 4}))
	testutil.WriteDICOM(t, filepath.Join(root, "SER01", "IM0002"), testutil.NewSlice(series, []byte{5, 6, 7, 8}))
	testutil.WriteDICOM(t, filepath.Join(root, "SER01", "SER02", "IM0001"), testutil.NewSlice(series, []byte{9, 9, 9, 9}))

	res := runTree(t, "--output-dir", out, root)
	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "2 directories, 0 failed, 3 files")

	data, err := os.ReadFile(filepath.Join(out, "SER01_2x1x2_16s"))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, data)
	require.FileExists(t, filepath.Join(out, "SER02_2x1x1_16s"))
}

func TestTreeFailureExitsNonZero(t *testing.T) {
	root := filepath.Join(t.TempDir(), "STUD01")
	out := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "A", "notes.txt"), []byte("not DICOM"))
	testutil.WriteDICOM(t, filepath.Join(root, "A", "C", "IM0001"), testutil.NewSlice(series, []byte{1, 2, 3, 4}))

	res := runTree(t, "--output-dir", out, root)
	require.Equal(t, ExitFailure, res.code)
	require.Contains(t, res.stdout, "FAIL  "+filepath.Join(root, "A"))
	require.Contains(t, res.stderr, "1 of 2 directories failed")
	require.FileExists(t, filepath.Join(out, "C_2x1x1_16s"))
}

func TestCatWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "dicomcat.yaml")
	res := runCat(t, testutil.NewFakeOpener(), "--check", "--output-dir", "/volumes", "--write-config", path)
	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Contains(t, res.stderr, "wrote configuration to "+path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.True(t, cfg.Concat.Check)
	require.Equal(t, "/volumes", cfg.Concat.OutputDir)
}

func TestTreeWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dicomcat.yaml")
	res := runTree(t, "--skip-hidden", "--exec", "/usr/local/bin/dicomcat", "--write-config", path)
	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Empty(t, res.stdout)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.True(t, cfg.Batch.SkipHidden)
	require.Equal(t, "/usr/local/bin/dicomcat", cfg.Batch.Executable)
}

func TestTreeHiddenFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "STUD01")
	testutil.WriteDICOM(t, filepath.Join(root, "SER01", ".IM0001"), testutil.NewSlice(series, []byte{1, 2, 3, 4}))
	testutil.WriteDICOM(t, filepath.Join(root, "SER01", ".IM0002"), testutil.NewSlice(series, []byte{5, 6, 7, 8}))

	out := t.TempDir()
	res := runTree(t, "--output-dir", out, root)
	require.Equal(t, ExitOK, res.code, res.stderr)
	require.FileExists(t, filepath.Join(out, "SER01_2x1x2_16s"))

	out = t.TempDir()
	res = runTree(t, "--skip-hidden", "--output-dir", out, root)
	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "0 directories")
	require.NoFileExists(t, filepath.Join(out, "SER01_2x1x2_16s"))
}
