package tempfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
)

var (
	// default file IO buffer size for each segment
	fileBufferSize = 1 << 20 // 1MB
	// working directory name pattern, the pid helps to spot leftovers
	dirPattern = fmt.Sprintf("linesort_%d_*", os.Getpid())
)

// Options tune a disk backed Dir.
type Options struct {
	// BufferSize is the bufio size used for every segment reader and writer.
	BufferSize int
	// Compress frames every segment with zstd.
	Compress bool
	// PreferDiskBacked picks a disk backed root when none is given.
	PreferDiskBacked bool
}

// DiskDir is a Dir backed by a private directory on the filesystem.
type DiskDir struct {
	path   string
	opts   Options
	closed atomic.Bool
}

// NewDir creates a fresh working directory below root. A missing root is
// created first, an empty one is resolved with GetTempDir.
func NewDir(root string, opts Options) (*DiskDir, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = fileBufferSize
	}
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, err
		}
	}
	root = GetTempDir(root, opts.PreferDiskBacked)
	path, err := os.MkdirTemp(root, dirPattern)
	if err != nil {
		return nil, err
	}
	return &DiskDir{path: path, opts: opts}, nil
}

// Path returns the directory location
func (d *DiskDir) Path() string {
	return d.path
}

func (d *DiskDir) file(name string) string {
	return filepath.Join(d.path, name)
}

// Close removes the directory with all remaining segments
func (d *DiskDir) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return os.RemoveAll(d.path)
}

// Create opens "<name>_" for writing; Commit renames it to name.
func (d *DiskDir) Create(name string) (SegmentWriter, error) {
	if d.closed.Load() {
		return nil, &os.PathError{Op: "create", Path: d.file(name), Err: os.ErrClosed}
	}
	partial := d.file(name + partialSuffix)
	f, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}
	w := &diskWriter{
		name:    name,
		partial: partial,
		final:   d.file(name),
		file:    f,
		buf:     bufio.NewWriterSize(f, d.opts.BufferSize),
	}
	w.out = w.buf
	if d.opts.Compress {
		w.enc, err = zstd.NewWriter(w.buf, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, multierr.Append(err, w.Abort())
		}
		w.out = w.enc
	}
	return w, nil
}

// Open opens a committed segment for reading
func (d *DiskDir) Open(name string) (SegmentReader, error) {
	f, err := os.Open(d.file(name))
	if err != nil {
		return nil, err
	}
	r := &diskReader{name: name, file: f}
	if d.opts.Compress {
		r.dec, err = zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, multierr.Append(err, f.Close())
		}
		r.buf = bufio.NewReaderSize(r.dec, d.opts.BufferSize)
	} else {
		r.buf = bufio.NewReaderSize(f, d.opts.BufferSize)
	}
	return r, nil
}

// Rename moves a committed segment
func (d *DiskDir) Rename(oldName, newName string) error {
	return os.Rename(d.file(oldName), d.file(newName))
}

// Remove deletes a committed segment
func (d *DiskDir) Remove(name string) error {
	return os.Remove(d.file(name))
}

// List returns committed segments in state suffix, by identifier
func (d *DiskDir) List(suffix string) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return sortSegmentNames(names, suffix), nil
}

type diskWriter struct {
	name    string
	partial string
	final   string
	file    *os.File
	buf     *bufio.Writer
	enc     *zstd.Encoder
	out     io.Writer
	written int64
	done    bool
}

func (w *diskWriter) Name() string {
	return w.name
}

func (w *diskWriter) Written() int64 {
	return w.written
}

func (w *diskWriter) Write(p []byte) (int, error) {
	n, err := w.out.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *diskWriter) WriteString(s string) (int, error) {
	n, err := io.WriteString(w.out, s)
	w.written += int64(n)
	return n, err
}

// Commit flushes, syncs and publishes the segment. Any failure discards it.
func (w *diskWriter) Commit() error {
	if w.done {
		return fmt.Errorf("tempfile: segment %s already finished", w.name)
	}
	err := w.finish()
	if err == nil {
		err = os.Rename(w.partial, w.final)
	}
	if err != nil {
		return multierr.Append(err, w.Abort())
	}
	w.file = nil
	return nil
}

// finish flushes every layer and closes the file
func (w *diskWriter) finish() error {
	w.done = true
	var err error
	if w.enc != nil {
		err = w.enc.Close()
	}
	if err == nil {
		err = w.buf.Flush()
	}
	if err == nil {
		err = w.file.Sync()
	}
	return multierr.Append(err, w.file.Close())
}

func (w *diskWriter) Abort() error {
	if w.file == nil {
		return nil
	}
	if !w.done {
		w.done = true
		if w.enc != nil {
			_ = w.enc.Close()
		}
		_ = w.file.Close()
	}
	w.file = nil
	err := os.Remove(w.partial)
	if os.IsNotExist(err) {
		// already renamed or never flushed
		return nil
	}
	return err
}

type diskReader struct {
	name string
	file *os.File
	dec  *zstd.Decoder
	buf  *bufio.Reader
}

func (r *diskReader) Name() string {
	return r.name
}

func (r *diskReader) Reader() *bufio.Reader {
	return r.buf
}

func (r *diskReader) Close() error {
	if r.dec != nil {
		r.dec.Close()
	}
	r.buf = nil
	return r.file.Close()
}
