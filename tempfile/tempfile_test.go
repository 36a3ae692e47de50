package tempfile_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanrat/linesort/tempfile"
)

// dirs returns every Dir implementation so behaviour can be checked on all of them
func dirs(t *testing.T) map[string]tempfile.Dir {
	t.Helper()
	plain, err := tempfile.NewDir(t.TempDir(), tempfile.Options{})
	require.NoError(t, err)
	compressed, err := tempfile.NewDir(t.TempDir(), tempfile.Options{Compress: true, BufferSize: 4096})
	require.NoError(t, err)
	out := map[string]tempfile.Dir{
		"disk":      plain,
		"zstd":      compressed,
		"in-memory": tempfile.Mock(),
	}
	t.Cleanup(func() {
		for _, d := range out {
			_ = d.Close()
		}
	})
	return out
}

func readAll(t *testing.T, d tempfile.Dir, name string) string {
	t.Helper()
	r, err := d.Open(name)
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()
	data, err := io.ReadAll(r.Reader())
	require.NoError(t, err)
	return string(data)
}

func TestSegmentRoundTrip(t *testing.T) {
	line := "1. The quick brown fox jumps over the lazy dog\n"
	for kind, d := range dirs(t) {
		t.Run(kind, func(t *testing.T) {
			name := tempfile.SegmentName(1, tempfile.Unsorted)
			w, err := d.Create(name)
			require.NoError(t, err)
			for i := 0; i < 100; i++ {
				n, err := w.WriteString(line)
				require.NoError(t, err)
				require.Equal(t, len(line), n)
			}
			assert.EqualValues(t, 100*len(line), w.Written())

			// invisible until committed
			_, err = d.Open(name)
			require.Error(t, err)
			names, err := d.List(tempfile.Unsorted)
			require.NoError(t, err)
			assert.Empty(t, names)

			require.NoError(t, w.Commit())
			require.NoError(t, w.Abort(), "abort after commit is a no-op")

			assert.Equal(t, strings.Repeat(line, 100), readAll(t, d, name))

			require.NoError(t, d.Remove(name))
			_, err = d.Open(name)
			assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
		})
	}
}

func TestAbortDiscards(t *testing.T) {
	for kind, d := range dirs(t) {
		t.Run(kind, func(t *testing.T) {
			name := tempfile.SegmentName(3, tempfile.Sorted)
			w, err := d.Create(name)
			require.NoError(t, err)
			_, err = w.Write([]byte("7. partial\n"))
			require.NoError(t, err)
			require.NoError(t, w.Abort())

			_, err = d.Open(name)
			assert.Error(t, err)
			names, err := d.List(tempfile.Sorted)
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestRenameAndList(t *testing.T) {
	for kind, d := range dirs(t) {
		t.Run(kind, func(t *testing.T) {
			for _, id := range []int{10, 2, 33, 1} {
				w, err := d.Create(tempfile.SegmentName(id, tempfile.Sorted))
				require.NoError(t, err)
				_, err = w.WriteString("1. x\n")
				require.NoError(t, err)
				require.NoError(t, w.Commit())
			}
			w, err := d.Create(tempfile.SegmentName(5, tempfile.Unsorted))
			require.NoError(t, err)
			require.NoError(t, w.Commit())

			names, err := d.List(tempfile.Sorted)
			require.NoError(t, err)
			assert.Equal(t, []string{"00000001.sorted", "00000002.sorted", "00000010.sorted", "00000033.sorted"}, names)

			require.NoError(t, d.Rename("00000002.sorted", "00000040.sorted"))
			names, err = d.List(tempfile.Sorted)
			require.NoError(t, err)
			assert.Equal(t, []string{"00000001.sorted", "00000010.sorted", "00000033.sorted", "00000040.sorted"}, names)
			assert.Equal(t, "1. x\n", readAll(t, d, "00000040.sorted"))

			names, err = d.List(tempfile.Unsorted)
			require.NoError(t, err)
			assert.Equal(t, []string{"00000005.unsorted"}, names)
		})
	}
}

func TestDiskDirClose(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "root")
	d, err := tempfile.NewDir(root, tempfile.Options{})
	require.NoError(t, err)
	assert.Equal(t, root, filepath.Dir(d.Path()))

	w, err := d.Create(tempfile.SegmentName(1, tempfile.Unsorted))
	require.NoError(t, err)
	_, err = w.WriteString("1. left behind\n")
	require.NoError(t, err)
	// an open writer must not keep the directory alive

	require.NoError(t, d.Close())
	_, err = os.Stat(d.Path())
	assert.True(t, os.IsNotExist(err), "working directory still exists: %v", err)
	require.NoError(t, d.Close(), "second close")
	require.NoError(t, w.Abort())

	_, err = d.Create(tempfile.SegmentName(2, tempfile.Unsorted))
	assert.Error(t, err)
}

func TestCompressedSegmentIsFramed(t *testing.T) {
	root := t.TempDir()
	d, err := tempfile.NewDir(root, tempfile.Options{Compress: true})
	require.NoError(t, err)
	defer d.Close()

	name := tempfile.SegmentName(1, tempfile.Sorted)
	w, err := d.Create(name)
	require.NoError(t, err)
	payload := strings.Repeat("12. compressible text\n", 1000)
	_, err = w.WriteString(payload)
	require.NoError(t, err)
	require.NoError(t, w.Commit())

	raw, err := os.ReadFile(filepath.Join(d.Path(), name))
	require.NoError(t, err)
	assert.Less(t, len(raw), len(payload))
	assert.Equal(t, payload, readAll(t, d, name))
}

func TestMockFault(t *testing.T) {
	boom := errors.New("disk full")
	d := tempfile.Mock()
	d.Fault = func(op, name string) error {
		if op == "write" && strings.HasSuffix(name, tempfile.Sorted) {
			return boom
		}
		return nil
	}
	w, err := d.Create(tempfile.SegmentName(1, tempfile.Sorted))
	require.NoError(t, err)
	_, err = w.WriteString("1. x\n")
	assert.ErrorIs(t, err, boom)
	require.NoError(t, w.Abort())
	assert.Zero(t, d.Len())

	require.NoError(t, d.Close())
	assert.True(t, d.Closed())
	_, err = d.Create(tempfile.SegmentName(2, tempfile.Sorted))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestIDsMonotonic(t *testing.T) {
	var ids tempfile.IDs
	var mu sync.Mutex
	seen := make(map[int]bool)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := ids.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
	assert.Equal(t, 801, ids.Next())
}

func TestParseSegmentName(t *testing.T) {
	id, state, ok := tempfile.ParseSegmentName(tempfile.SegmentName(42, tempfile.Sorted))
	require.True(t, ok)
	assert.Equal(t, 42, id)
	assert.Equal(t, tempfile.Sorted, state)

	for _, bad := range []string{"", "sorted", "x.sorted", "12.", "-1.sorted"} {
		_, _, ok := tempfile.ParseSegmentName(bad)
		assert.False(t, ok, bad)
	}
}
