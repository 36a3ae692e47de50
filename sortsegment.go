package linesort

import (
	"context"
	"io"
	"slices"

	"go.uber.org/multierr"

	"github.com/lanrat/linesort/record"
	"github.com/lanrat/linesort/tempfile"
)

// sortSegment loads an unsorted segment, sorts it and writes it back as the
// sorted segment with the same id. The unsorted file is removed only after the
// sorted one is committed, so a failure never leaves a half written segment.
func (s *Sorter) sortSegment(ctx context.Context, rn *run, in segment) (segment, error) {
	r, err := rn.dir.Open(in.name)
	if err != nil {
		return in, tempError("open", in.name, err)
	}
	recs, err := readRecords(ctx, newSegmentReader(r.Reader()), in.firstLine, int(in.records))
	if cErr := r.Close(); cErr != nil && err == nil {
		err = tempError("close", in.name, cErr)
	}
	if err != nil {
		return in, asSortError(err, KindTempStorage, "read", in.name)
	}
	if int64(len(recs)) != in.records {
		return in, tempError("read", in.name, errRecordCount(in.records, int64(len(recs))))
	}

	slices.SortFunc(recs, record.Compare)

	out := segment{id: in.id, name: tempfile.SegmentName(in.id, tempfile.Sorted), records: in.records}
	w, err := rn.dir.Create(out.name)
	if err != nil {
		return in, tempError("create", out.name, err)
	}
	snk := &sink{w: w, kind: KindTempStorage, path: out.name}
	if _, err := writeRecords(ctx, snk, recs); err != nil {
		return in, multiAbort(err, w)
	}
	out.bytes = w.Written()
	if err := w.Commit(); err != nil {
		return in, tempError("commit", out.name, err)
	}
	if err := rn.dir.Remove(in.name); err != nil {
		return out, tempError("remove", in.name, err)
	}
	return out, nil
}

// sortInMemory sorts the lines of an input that fit in a single segment and
// writes them straight to the destination.
func (s *Sorter) sortInMemory(ctx context.Context, rn *run, lines []string, dst *sink) (int64, error) {
	recs := make([]record.Record, 0, len(lines))
	for i, line := range lines {
		if err := canceled(ctx); err != nil {
			return 0, err
		}
		r, err := record.Parse(line)
		if err != nil {
			return 0, malformedError(int64(i)+1, err)
		}
		recs = append(recs, r)
	}
	rn.records.Add(int64(len(recs)))
	slices.SortFunc(recs, record.Compare)
	return writeRecords(ctx, dst, recs)
}

// readRecords parses every line of a segment. firstLine is the input line
// number of the segment's first line, used in error messages.
func readRecords(ctx context.Context, lines *lineReader, firstLine int64, sizeHint int) ([]record.Record, error) {
	recs := make([]record.Record, 0, sizeHint)
	for {
		if err := canceled(ctx); err != nil {
			return nil, err
		}
		line, err := lines.next()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		r, err := record.Parse(string(line))
		if err != nil {
			return nil, malformedError(firstLine+lines.n-1, err)
		}
		recs = append(recs, r)
	}
}

func writeRecords(ctx context.Context, dst *sink, recs []record.Record) (int64, error) {
	for i, r := range recs {
		if err := canceled(ctx); err != nil {
			return int64(i), err
		}
		if err := dst.write(r); err != nil {
			return int64(i), err
		}
	}
	return int64(len(recs)), nil
}

// multiAbort discards w and keeps err first
func multiAbort(err error, w tempfile.SegmentWriter) error {
	return multierr.Append(err, w.Abort())
}
