package tempfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
)

// Segment states, used as file name extensions inside a Dir.
const (
	Unsorted = "unsorted"
	Sorted   = "sorted"

	// partialSuffix marks a segment that is still being written
	partialSuffix = "_"
)

// Dir is a scoped working directory holding the segment files of one sort.
// Names passed to a Dir are base names; a Dir never exposes partially written
// segments to Open or List.
type Dir interface {
	// Close removes the directory and everything left in it.
	// It is safe to call more than once.
	io.Closer

	// Path returns where the directory lives, for logging.
	Path() string

	// Create starts a new segment. The segment becomes visible under name
	// only after SegmentWriter.Commit succeeds.
	Create(name string) (SegmentWriter, error)

	// Open returns a reader positioned at the start of a committed segment.
	Open(name string) (SegmentReader, error)

	// Rename moves a committed segment to a new name, replacing any segment
	// already there.
	Rename(oldName, newName string) error

	// Remove deletes a committed segment.
	Remove(name string) error

	// List returns the committed segments whose state is suffix, ordered by
	// segment identifier.
	List(suffix string) ([]string, error)
}

// SegmentWriter writes one segment sequentially.
type SegmentWriter interface {
	io.Writer
	io.StringWriter

	// Name returns the name the segment is committed under.
	Name() string

	// Written returns the number of uncompressed bytes written so far.
	Written() int64

	// Commit flushes the segment and atomically publishes it under Name.
	// The writer cannot be used afterwards.
	Commit() error

	// Abort discards the segment. It is a no-op after Commit.
	Abort() error
}

// SegmentReader reads one committed segment.
type SegmentReader interface {
	io.Closer

	// Name returns the segment name.
	Name() string

	// Reader returns the buffered reader over the segment's decoded bytes.
	Reader() *bufio.Reader
}

// SegmentName returns the file name of segment id in the given state.
// Identifiers are zero padded so lexical order matches creation order.
func SegmentName(id int, state string) string {
	return fmt.Sprintf("%08d.%s", id, state)
}

// ParseSegmentName is the inverse of SegmentName.
func ParseSegmentName(name string) (id int, state string, ok bool) {
	base, state, found := strings.Cut(name, ".")
	if !found || state == "" {
		return 0, "", false
	}
	id, err := strconv.Atoi(base)
	if err != nil || id < 0 {
		return 0, "", false
	}
	return id, state, true
}

// IDs hands out monotonically increasing segment identifiers, starting at 1.
// It is safe for concurrent use. Each sort owns its own IDs.
type IDs struct {
	last atomic.Int64
}

// Next returns the next identifier.
func (a *IDs) Next() int {
	return int(a.last.Add(1))
}

// sortSegmentNames orders names by segment identifier and drops names that do
// not belong to state.
func sortSegmentNames(names []string, state string) []string {
	type entry struct {
		id   int
		name string
	}
	entries := make([]entry, 0, len(names))
	for _, name := range names {
		id, st, ok := ParseSegmentName(name)
		if !ok || st != state {
			continue
		}
		entries = append(entries, entry{id, name})
	}
	slices.SortFunc(entries, func(a, b entry) int { return a.id - b.id })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}

// notExist builds the error returned when a segment is missing.
func notExist(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
}
