package linesort

import (
	"context"
	"io"

	"go.uber.org/multierr"

	"github.com/lanrat/linesort/queue"
	"github.com/lanrat/linesort/record"
	"github.com/lanrat/linesort/tempfile"
)

// cursor represents one sorted segment being merged and its next record
type cursor struct {
	seg   segment
	src   tempfile.SegmentReader
	lines *lineReader
	head  record.Record
}

// advance loads the next record into head. It returns false at the end of the segment.
func (c *cursor) advance() (bool, error) {
	line, err := c.lines.next()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, tempError("read", c.seg.name, err)
	}
	c.head, err = record.Parse(string(line))
	if err != nil {
		// sorted segments are written by us, a bad line means corruption
		return false, tempError("read", c.seg.name, err)
	}
	return true, nil
}

// kwayMerge writes the records of all cursors to dst in order.
// The cursor with the smallest head is picked through a priority queue, so
// each record costs O(log k) comparisons for k cursors. Equal heads are
// identical records, which keeps the output independent of cursor order.
func kwayMerge(ctx context.Context, cursors []*cursor, dst *sink) (int64, error) {
	pq := queue.NewPriorityQueueSize(func(a, b *cursor) int {
		return record.Compare(a.head, b.head)
	}, len(cursors))

	// start the merge by preloading the heads
	for _, c := range cursors {
		ok, err := c.advance()
		if err != nil {
			return 0, err
		}
		if ok {
			pq.Push(c)
		}
	}

	var written int64
	for pq.Len() > 0 {
		if err := canceled(ctx); err != nil {
			return written, err
		}
		c := pq.Peek()
		if err := dst.write(c.head); err != nil {
			return written, err
		}
		written++

		more, err := c.advance()
		if err != nil {
			return written, err
		}
		if more {
			pq.PeekUpdate()
		} else {
			pq.Pop()
		}
	}
	return written, nil
}

// openCursors opens every segment of a merge group. On failure the cursors
// opened so far are closed again.
func openCursors(dir tempfile.Dir, segs []segment) ([]*cursor, error) {
	cursors := make([]*cursor, 0, len(segs))
	for _, seg := range segs {
		src, err := dir.Open(seg.name)
		if err != nil {
			err = tempError("open", seg.name, err)
			return nil, multiClose(err, cursors)
		}
		cursors = append(cursors, &cursor{seg: seg, src: src, lines: newSegmentReader(src.Reader())})
	}
	return cursors, nil
}

// closeCursors closes all cursors in parallel
func closeCursors(cursors []*cursor) error {
	return forEach(len(cursors), len(cursors), func(i int) error {
		if err := cursors[i].src.Close(); err != nil {
			return tempError("close", cursors[i].seg.name, err)
		}
		return nil
	})
}

// removeSegments deletes consumed segment files in parallel
func removeSegments(dir tempfile.Dir, segs []segment) error {
	return forEach(len(segs), len(segs), func(i int) error {
		if err := dir.Remove(segs[i].name); err != nil {
			return tempError("remove", segs[i].name, err)
		}
		return nil
	})
}

func multiClose(err error, cursors []*cursor) error {
	return multierr.Append(err, closeCursors(cursors))
}
