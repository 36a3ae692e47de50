package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanrat/linesort"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestGenerateSortVerify(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	sorted := filepath.Join(dir, "sorted.txt")
	again := filepath.Join(dir, "again.txt")

	code, _, stderr := runCLI(t, "generate", input, "--size-mb", "1", "--dup-rate", "5", "--seed", "42")
	require.Equal(t, exitOK, code, stderr)

	code, _, stderr = runCLI(t, "sort", input, sorted, "--segment-capacity", "2000", "--fan-in", "3", "--temp-dir", dir)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "merge rounds")

	code, stdout, _ := runCLI(t, "verify", sorted)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "records sorted")

	code, _, stderr = runCLI(t, "sort", sorted, again, "--compress", "--temp-dir", dir)
	require.Equal(t, exitOK, code, stderr)
	code, stdout, _ = runCLI(t, "verify", sorted, "--against", again)
	assert.Equal(t, exitOK, code, stdout)

	code, stdout, _ = runCLI(t, "verify", input)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout, "sorts before")
}

func TestSortToStdout(t *testing.T) {
	input := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(input, []byte("5. banana\n1. apple\n5. apple\n"), 0o644))

	code, stdout, stderr := runCLI(t, "sort", input, "-")
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "1. apple\n5. apple\n5. banana\n", stdout)
}

func TestVerifyDiff(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("1. a\n2. b\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("1. a\n3. c\n"), 0o644))

	code, stdout, _ := runCLI(t, "verify", a, "--against", b)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout, "< 2. b\n> 3. c\n")
}

func TestExitCodes(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("1. a\nnope\n"), 0o644))

	code, _, _ := runCLI(t, "sort", filepath.Join(dir, "missing.txt"), filepath.Join(dir, "out.txt"))
	assert.Equal(t, exitNotFound, code)

	code, _, stderr := runCLI(t, "sort", bad, filepath.Join(dir, "out.txt"))
	assert.Equal(t, exitMalformed, code)
	assert.Contains(t, stderr, "malformed record")
	assert.NoFileExists(t, filepath.Join(dir, "out.txt"))

	code, _, _ = runCLI(t, "sort", bad, filepath.Join(dir, "out.txt"), "--fan-in", "1")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "sort")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "sort", bad, "--no-such-flag")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "--log-format", "xml", "verify", bad)
	assert.Equal(t, exitUsage, code)
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("LINESORT_FAN_IN", "1")
	input := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(input, []byte("1. a\n"), 0o644))

	// the environment sets an invalid fan-in, the flag fixes it
	code, _, _ := runCLI(t, "sort", input, "-")
	assert.Equal(t, exitUsage, code)
	code, _, _ = runCLI(t, "sort", input, "-", "--fan-in", "4")
	assert.Equal(t, exitOK, code)

	t.Setenv("LINESORT_FAN_IN", "many")
	code, _, stderr := runCLI(t, "sort", input, "-")
	assert.Equal(t, exitUsage, code)
	assert.True(t, strings.HasPrefix(stderr, "linesort: "))
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(errors.New("x")))
	assert.Equal(t, exitCancelled, exitCode(context.Canceled))
	assert.Equal(t, exitTempStorage, exitCode(&linesort.SortError{Kind: linesort.KindTempStorage}))
	assert.Equal(t, exitDestination, exitCode(&linesort.SortError{Kind: linesort.KindDestinationWrite}))
	assert.Equal(t, exitSourceRead, exitCode(&linesort.SortError{Kind: linesort.KindSourceRead}))
}
