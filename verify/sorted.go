package verify

import (
	"context"
	"fmt"
	"io"

	"github.com/lanrat/linesort/record"
)

// Summary describes a sorted stream.
type Summary struct {
	Records int64
	First   record.Record
	Last    record.Record
}

// OrderError reports the first adjacent pair of records out of order.
type OrderError struct {
	// Line is the line number of Next
	Line int64
	Prev record.Record
	Next record.Record
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("line %d: %q sorts before the previous line %q", e.Line, e.Next.String(), e.Prev.String())
}

// Sorted reads r to the end and checks that every record is not less than
// the one before it. It returns an *OrderError at the first violation.
func Sorted(ctx context.Context, r io.Reader) (Summary, error) {
	var sum Summary
	s := NewStream(r)
	for s.Next() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rec := s.Record()
		if sum.Records > 0 && record.Less(rec, sum.Last) {
			return sum, &OrderError{Line: s.Line(), Prev: sum.Last, Next: rec}
		}
		if sum.Records == 0 {
			sum.First = rec
		}
		sum.Last = rec
		sum.Records++
	}
	return sum, s.Err()
}
