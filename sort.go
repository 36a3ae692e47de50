// Package linesort sorts text files of "<tag>.<text>" records that are too
// large to fit in memory.
//
// The input is cut into segments of at most Config.SegmentCapacity records,
// every segment is sorted in memory and written to a private working
// directory, and the sorted segments are merged back together at most
// Config.MergeFanIn at a time, over as many rounds as needed, until the
// destination holds every record in order. Records are ordered by text
// (byte-wise) and then by tag, see package record.
package linesort

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lanrat/linesort/tempfile"
)

// Sorter runs external sorts with a fixed Config.
// A Sorter may be used for several sorts, also concurrently; every sort gets
// its own working directory.
type Sorter struct {
	config Config
	log    *zap.Logger
	newDir func(Config) (tempfile.Dir, error)
}

// Stats summarizes a finished sort.
type Stats struct {
	Records    int64         // records read and written
	BytesIn    int64         // bytes read from the input
	BytesOut   int64         // bytes written to the output
	Segments   int           // segments produced by the splitter
	Rounds     int           // merge rounds, 0 when the input fit in one segment
	Merges     int           // k-way merges performed, including the final one
	Promotions int           // singleton groups carried to the next round
	Elapsed    time.Duration // wall time of the sort
}

// run holds the state of one sort call. It is never shared between calls.
type run struct {
	dir        tempfile.Dir
	ids        tempfile.IDs
	records    atomic.Int64
	bytesIn    atomic.Int64
	bytesOut   atomic.Int64
	merges     atomic.Int64
	promotions atomic.Int64
	segments   int
	rounds     int
}

func (r *run) stats(start time.Time) Stats {
	return Stats{
		Records:    r.records.Load(),
		BytesIn:    r.bytesIn.Load(),
		BytesOut:   r.bytesOut.Load(),
		Segments:   r.segments,
		Rounds:     r.rounds,
		Merges:     int(r.merges.Load()),
		Promotions: int(r.promotions.Load()),
		Elapsed:    time.Since(start),
	}
}

// New returns a Sorter that keeps its segments on disk.
// config can be nil to use the defaults, or only set the non-default values desired.
func New(config *Config) *Sorter {
	c := mergeConfig(config)
	return &Sorter{
		config: *c,
		log:    c.logger(),
		newDir: newDiskDir,
	}
}

// NewMock returns a Sorter that keeps its segments in memory instead of disk files.
// This is primarily useful for testing and benchmarking without filesystem I/O overhead.
// Source and destination are still regular files.
func NewMock(config *Config) *Sorter {
	s := New(config)
	s.newDir = func(Config) (tempfile.Dir, error) {
		return tempfile.Mock(), nil
	}
	return s
}

func newDiskDir(c Config) (tempfile.Dir, error) {
	return tempfile.NewDir(c.TempDir, tempfile.Options{
		BufferSize:       c.FileBufferSize,
		Compress:         c.CompressSegments,
		PreferDiskBacked: true,
	})
}

// Sort sorts the records of the file at sourcePath into destinationPath using
// the default configuration with config applied on top. See Sorter.Sort.
func Sort(ctx context.Context, sourcePath, destinationPath string, config *Config) (string, error) {
	return New(config).Sort(ctx, sourcePath, destinationPath)
}

// Sort sorts the records of the file at sourcePath into destinationPath and
// returns destinationPath.
//
// The destination is replaced atomically: on any error, including
// cancellation through ctx, a pre-existing destination is left untouched and
// no partial output remains. The working directory is removed on every
// return path. Errors are *SortError values, classify them with KindOf or
// errors.Is against the Err* sentinels. An invalid Config is reported as a
// KindConfig SortError wrapping the *ConfigError.
func (s *Sorter) Sort(ctx context.Context, sourcePath, destinationPath string) (string, error) {
	if _, err := s.Run(ctx, sourcePath, destinationPath); err != nil {
		return "", err
	}
	return destinationPath, nil
}

// Run is Sort returning statistics about the sort.
func (s *Sorter) Run(ctx context.Context, sourcePath, destinationPath string) (Stats, error) {
	if err := s.checkConfig(); err != nil {
		return Stats{}, err
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stats{}, newError(KindSourceNotFound, "open", sourcePath, err)
		}
		return Stats{}, newError(KindSourceRead, "open", sourcePath, err)
	}
	defer src.Close()
	if info, err := src.Stat(); err == nil && info.IsDir() {
		return Stats{}, newError(KindSourceRead, "open", sourcePath, errors.New("is a directory"))
	}

	dst, err := createDestination(destinationPath)
	if err != nil {
		return Stats{}, destError("create", destinationPath, err)
	}

	stats, err := s.sortStream(ctx, src, dst.file)
	if err == nil {
		err = dst.commit()
		if err != nil {
			err = destError("commit", destinationPath, err)
		}
	}
	if err != nil {
		if aErr := dst.abort(); aErr != nil {
			s.log.Warn("could not remove partial destination", zap.String("path", dst.file.Name()), zap.Error(aErr))
			err = multierr.Append(err, destError("abort", dst.file.Name(), aErr))
		}
		return stats, err
	}

	s.log.Info("sort finished",
		zap.String("source", sourcePath),
		zap.String("destination", destinationPath),
		zap.Int64("records", stats.Records),
		zap.Int("segments", stats.Segments),
		zap.Int("rounds", stats.Rounds),
		zap.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// SortStream sorts the records read from r and writes them to w.
// Unlike Sort, nothing protects w from partial output on failure.
func (s *Sorter) SortStream(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	if err := s.checkConfig(); err != nil {
		return Stats{}, err
	}
	return s.sortStream(ctx, r, w)
}

func (s *Sorter) checkConfig() error {
	if err := s.config.validate(); err != nil {
		return newError(KindConfig, "config", "", err)
	}
	return nil
}

// sortStream runs the split and merge phases on an already validated config
func (s *Sorter) sortStream(ctx context.Context, r io.Reader, w io.Writer) (stats Stats, err error) {
	start := time.Now()
	dir, err := s.newDir(s.config)
	if err != nil {
		return Stats{}, tempError("create", s.config.TempDir, err)
	}
	rn := &run{dir: dir}
	log := s.log.With(zap.String("workdir", dir.Path()))
	log.Debug("working directory created")

	defer func() {
		if cErr := dir.Close(); cErr != nil {
			log.Warn("could not remove working directory", zap.Error(cErr))
			err = multierr.Append(err, tempError("cleanup", dir.Path(), cErr))
		}
		stats = rn.stats(start)
	}()
	defer func() {
		// once the caller cancelled, whatever broke first is reported as a cancellation
		if err != nil && ctx.Err() != nil && !errors.Is(err, ErrCancelled) {
			err = cancelledError("sort", ctx.Err())
		}
	}()

	out := bufio.NewWriterSize(&countingWriter{w: w, n: &rn.bytesOut}, s.config.FileBufferSize)
	final := &sink{w: out, kind: KindDestinationWrite}
	counted := &countingReader{r: r, n: &rn.bytesIn}
	lines := newLineReader(bufio.NewReaderSize(counted, s.config.FileBufferSize))

	segments, pending, err := s.splitAndSort(ctx, rn, lines, log)
	if err != nil {
		return stats, err
	}

	var written int64
	if len(segments) == 0 {
		// the whole input fit in one segment, it never touched the disk
		written, err = s.sortInMemory(ctx, rn, pending, final)
		if err != nil {
			return stats, err
		}
	} else {
		written, err = s.mergeRounds(ctx, rn, segments, final, log)
		if err != nil {
			return stats, err
		}
	}

	if err := out.Flush(); err != nil {
		return stats, destError("flush", "", err)
	}
	if total := rn.records.Load(); written != total {
		return stats, tempError("verify", dir.Path(), errRecordCount(total, written))
	}
	return stats, nil
}

// countingReader counts the bytes read through it
type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// countingWriter counts the bytes written through it
type countingWriter struct {
	w io.Writer
	n *atomic.Int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	return n, err
}

// destination is a temporary file next to the final path, renamed over it on commit
type destination struct {
	path string
	file *os.File
}

func createDestination(path string) (*destination, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.partial")
	if err != nil {
		return nil, err
	}
	return &destination{path: path, file: f}, nil
}

func (d *destination) commit() error {
	err := d.file.Sync()
	if err == nil {
		err = d.file.Chmod(0o644)
	}
	err = multierr.Append(err, d.file.Close())
	if err != nil {
		return err
	}
	return os.Rename(d.file.Name(), d.path)
}

// abort removes the partial output. It is safe after a failed commit.
func (d *destination) abort() error {
	_ = d.file.Close()
	err := os.Remove(d.file.Name())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
