package verify

import (
	"context"
	"fmt"
	"io"

	"github.com/lanrat/linesort/record"
)

// Delta represents the type of difference found when comparing two sorted streams.
// It indicates whether a record is unique to the first stream (OLD) or second stream (NEW).
type Delta int

const (
	// NEW indicates a record that exists only in the second stream (B).
	NEW Delta = iota // +

	// OLD indicates a record that exists only in the first stream (A).
	OLD // -
)

func (d Delta) String() string {
	switch d {
	case NEW:
		return ">"
	case OLD:
		return "<"
	default:
		return "?"
	}
}

// ResultFunc is called once for each record that appears in only one of the
// two streams. If it returns an error, the diff stops with that error.
type ResultFunc func(Delta, record.Record) error

// Result contains counts of the records unique to each stream and common to both.
// Duplicates are matched one to one, so "1. a" twice in A and once in B is one
// common record and one extra in A.
type Result struct {
	ExtraA uint64
	ExtraB uint64
	TotalA uint64
	TotalB uint64
	Common uint64
}

func (r *Result) String() string {
	return fmt.Sprintf("A: %d/%d\tB: %d/%d\tC: %d", r.ExtraA, r.TotalA, r.ExtraB, r.TotalB, r.Common)
}

// Equal reports whether both streams held the same multiset of records
func (r *Result) Equal() bool {
	return r.ExtraA == 0 && r.ExtraB == 0
}

// side is one sorted input of a diff, checked for order while it is read
type side struct {
	s    *Stream
	cur  record.Record
	ok   bool
	name string
}

func (d *side) advance() error {
	prev, had := d.cur, d.ok
	d.ok = d.s.Next()
	if !d.ok {
		if err := d.s.Err(); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		return nil
	}
	d.cur = d.s.Record()
	if had && record.Less(d.cur, prev) {
		return fmt.Errorf("%s: %w", d.name, &OrderError{Line: d.s.Line(), Prev: prev, Next: d.cur})
	}
	return nil
}

// Diff walks two sorted record streams and calls fn for every record found
// in only one of them. Both inputs must be sorted, an *OrderError is
// returned otherwise.
func Diff(ctx context.Context, a, b io.Reader, fn ResultFunc) (r Result, err error) {
	if a == nil || b == nil || fn == nil {
		return Result{}, fmt.Errorf("arguments must not be nil")
	}
	sa := &side{s: NewStream(a), name: "A"}
	sb := &side{s: NewStream(b), name: "B"}
	if err = sa.advance(); err != nil {
		return
	}
	if err = sb.advance(); err != nil {
		return
	}

	for sa.ok || sb.ok {
		if err = ctx.Err(); err != nil {
			return
		}
		c := 0
		switch {
		case !sa.ok:
			c = 1
		case !sb.ok:
			c = -1
		default:
			c = record.Compare(sa.cur, sb.cur)
		}

		switch {
		case c > 0:
			r.TotalB++
			r.ExtraB++
			if err = fn(NEW, sb.cur); err != nil {
				return
			}
			err = sb.advance()
		case c < 0:
			r.TotalA++
			r.ExtraA++
			if err = fn(OLD, sa.cur); err != nil {
				return
			}
			err = sa.advance()
		default:
			r.Common++
			r.TotalA++
			r.TotalB++
			if err = sa.advance(); err == nil {
				err = sb.advance()
			}
		}
		if err != nil {
			return
		}
	}
	return
}

// PrintDiff returns a ResultFunc writing each difference to w, prefixed with
// the Delta symbol (< for OLD, > for NEW).
func PrintDiff(w io.Writer) ResultFunc {
	return func(d Delta, rec record.Record) error {
		_, err := fmt.Fprintf(w, "%s %s\n", d, rec)
		return err
	}
}
