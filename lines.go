package linesort

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/lanrat/linesort/record"
)

// lineReader returns the lines of a buffered reader without their terminator.
type lineReader struct {
	r      *bufio.Reader
	long   []byte // reused for lines longer than the bufio buffer
	n      int64  // lines returned so far
	lfOnly bool   // only "\n" terminates, a "\r" before it is text
}

// newLineReader reads input lines ending in "\n" or "\r\n".
func newLineReader(r *bufio.Reader) *lineReader {
	return &lineReader{r: r}
}

// newSegmentReader reads segment lines, which always end in a bare "\n".
func newSegmentReader(r *bufio.Reader) *lineReader {
	return &lineReader{r: r, lfOnly: true}
}

// next returns the next line, valid until the following call, or io.EOF.
// A final line without terminator is still returned.
func (l *lineReader) next() ([]byte, error) {
	line, err := l.r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		l.long = append(l.long[:0], line...)
		for err == bufio.ErrBufferFull {
			line, err = l.r.ReadSlice('\n')
			l.long = append(l.long, line...)
		}
		line = l.long
	}
	if err == io.EOF {
		if len(line) == 0 {
			return nil, io.EOF
		}
		err = nil
	}
	if err != nil {
		return nil, err
	}
	l.n++
	if l.lfOnly {
		return bytes.TrimSuffix(line, []byte{'\n'}), nil
	}
	return record.TrimEOL(line), nil
}

// sink writes records in line format and tags write failures with a Kind
type sink struct {
	w    io.Writer
	kind Kind
	path string
	buf  []byte
}

func (s *sink) write(r record.Record) error {
	s.buf = r.Append(s.buf[:0])
	s.buf = append(s.buf, '\n')
	if _, err := s.w.Write(s.buf); err != nil {
		return newError(s.kind, "write", s.path, err)
	}
	return nil
}

// canceled returns the context error once ctx is done, without blocking
func canceled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// forEach runs fn for 0..n-1 with at most limit calls in flight and returns
// every failure combined. Unlike a plain errgroup it does not stop at the
// first error, so every file still gets its chance to be closed or removed.
func forEach(n, limit int, fn func(i int) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			if err := fn(i); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func errRecordCount(want, got int64) error {
	return fmt.Errorf("record count mismatch: read %d, wrote %d", want, got)
}
