// Package verify checks sorted record files: that a file is in order, and
// which records differ between two sorted files.
// Both work in a single streaming pass, so they handle files of any size.
package verify

import (
	"bufio"
	"fmt"
	"io"

	"github.com/lanrat/linesort/record"
)

const readBufferSize = 1 << 20

// Stream reads records from a reader one line at a time.
//
//	s := verify.NewStream(r)
//	for s.Next() {
//		use(s.Record())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	r    *bufio.Reader
	rec  record.Record
	line int64
	err  error
}

// NewStream returns a Stream reading from r.
func NewStream(r io.Reader) *Stream {
	return &Stream{r: bufio.NewReaderSize(r, readBufferSize)}
}

// Next advances to the next record. It returns false at the end of the input
// or on the first error, see Err.
func (s *Stream) Next() bool {
	if s.err != nil {
		return false
	}
	line, err := s.r.ReadBytes('\n')
	if len(line) == 0 {
		if err != io.EOF {
			s.err = err
		}
		return false
	}
	if err != nil && err != io.EOF {
		s.err = err
		return false
	}
	s.line++
	s.rec, err = record.ParseBytes(record.TrimEOL(line))
	if err != nil {
		s.err = fmt.Errorf("line %d: %w", s.line, err)
		return false
	}
	return true
}

// Record returns the current record
func (s *Stream) Record() record.Record {
	return s.rec
}

// Line returns the 1 based line number of the current record
func (s *Stream) Line() int64 {
	return s.line
}

// Err returns the first read or parse error
func (s *Stream) Err() error {
	return s.err
}
