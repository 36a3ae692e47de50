package linesort

import (
	"context"
	"io"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lanrat/linesort/tempfile"
)

// segment is the metadata of one segment file in the working directory
type segment struct {
	id        int
	name      string
	records   int64
	bytes     int64
	firstLine int64 // input line number of the first record, 0 once merged
}

// splitAndSort streams the input into unsorted segments and sorts them as
// they appear, NumWorkers at a time.
// When the input fits in a single segment nothing is written and the lines are
// returned instead, for sortInMemory.
func (s *Sorter) splitAndSort(ctx context.Context, rn *run, lines *lineReader, log *zap.Logger) ([]segment, []string, error) {
	var (
		pending []string
		sorted  []segment
		mu      sync.Mutex
	)
	group, gctx := errgroup.WithContext(ctx)
	unsorted := make(chan segment, s.config.NumWorkers)

	// start creating segments
	group.Go(func() error {
		defer close(unsorted) // if this is not called on error, causes a deadlock
		var err error
		pending, err = s.split(gctx, rn, lines, unsorted)
		return err
	})

	// sort segments
	for i := 0; i < s.config.NumWorkers; i++ {
		group.Go(func() error {
			for seg := range unsorted {
				out, err := s.sortSegment(gctx, rn, seg)
				if err != nil {
					return err
				}
				log.Debug("segment sorted", zap.String("segment", out.name), zap.Int64("records", out.records))
				mu.Lock()
				sorted = append(sorted, out)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	// workers finish in any order, the scheduler needs creation order
	slices.SortFunc(sorted, func(a, b segment) int { return a.id - b.id })
	rn.segments = len(sorted)
	if len(sorted) == 0 && len(pending) > 0 {
		rn.segments = 1
	}
	log.Info("split finished",
		zap.Int64("records", rn.records.Load()),
		zap.Int("segments", rn.segments),
		zap.Bool("in_memory", len(sorted) == 0))
	return sorted, pending, nil
}

// split reads lines into a staging buffer of up to SegmentCapacity lines.
// A full buffer is only flushed to an unsorted segment once another line
// shows up, so an input of exactly one segment stays in memory and is
// returned. Flushed segments are sent to out in creation order.
func (s *Sorter) split(ctx context.Context, rn *run, lines *lineReader, out chan<- segment) ([]string, error) {
	capacity := s.config.SegmentCapacity
	staging := make([]string, 0, min(capacity, 1<<16))
	var flushed int
	var firstLine int64 = 1

	for {
		if err := canceled(ctx); err != nil {
			return nil, err
		}
		line, err := lines.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newError(KindSourceRead, "read", "", err)
		}

		if len(staging) == capacity {
			seg, err := s.writeUnsorted(ctx, rn, staging, firstLine)
			if err != nil {
				return nil, err
			}
			select {
			case out <- seg:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			flushed++
			firstLine += int64(len(staging))
			clear(staging)
			staging = staging[:0]
		}
		staging = append(staging, string(line))
	}

	if flushed == 0 {
		return staging, nil
	}
	if len(staging) > 0 {
		seg, err := s.writeUnsorted(ctx, rn, staging, firstLine)
		if err != nil {
			return nil, err
		}
		select {
		case out <- seg:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

// writeUnsorted flushes the staging buffer to a new unsorted segment
func (s *Sorter) writeUnsorted(ctx context.Context, rn *run, staging []string, firstLine int64) (segment, error) {
	seg := segment{id: rn.ids.Next(), firstLine: firstLine}
	seg.name = tempfile.SegmentName(seg.id, tempfile.Unsorted)

	w, err := rn.dir.Create(seg.name)
	if err != nil {
		return seg, tempError("create", seg.name, err)
	}
	for _, line := range staging {
		if err := canceled(ctx); err != nil {
			return seg, multiAbort(err, w)
		}
		if _, err := w.WriteString(line); err != nil {
			return seg, multiAbort(tempError("write", seg.name, err), w)
		}
		if _, err := w.Write(newline); err != nil {
			return seg, multiAbort(tempError("write", seg.name, err), w)
		}
	}
	seg.bytes = w.Written()
	if err := w.Commit(); err != nil {
		return seg, tempError("commit", seg.name, err)
	}
	seg.records = int64(len(staging))
	rn.records.Add(seg.records)
	return seg, nil
}

var newline = []byte{'\n'}
