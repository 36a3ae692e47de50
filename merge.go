package linesort

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/lanrat/linesort/tempfile"
)

// partition splits n segments into ceil(n/fanIn) consecutive groups whose
// sizes differ by at most one, larger groups first. It returns the group sizes.
func partition(n, fanIn int) []int {
	if n <= 0 {
		return nil
	}
	g := (n + fanIn - 1) / fanIn
	sizes := make([]int, g)
	for i := range sizes {
		sizes[i] = n / g
		if i < n%g {
			sizes[i]++
		}
	}
	return sizes
}

// mergeRounds reduces the sorted segments to one, at most MergeFanIn at a
// time. The last round merges straight into dst and returns the number of
// records written there.
func (s *Sorter) mergeRounds(ctx context.Context, rn *run, segs []segment, dst *sink, log *zap.Logger) (int64, error) {
	fanIn := s.config.MergeFanIn
	for {
		if err := canceled(ctx); err != nil {
			return 0, err
		}
		rn.rounds++
		sizes := partition(len(segs), fanIn)
		final := len(segs) <= fanIn
		if s.config.OnRound != nil {
			s.config.OnRound(RoundInfo{Round: rn.rounds, Segments: len(segs), Groups: len(sizes), Final: final})
		}
		// the callback may have cancelled
		if err := canceled(ctx); err != nil {
			return 0, err
		}

		if final {
			log.Debug("final merge", zap.Int("round", rn.rounds), zap.Int("segments", len(segs)))
			return s.mergeInto(ctx, rn, segs, dst)
		}

		next, err := s.mergeRound(ctx, rn, segs, sizes)
		if err != nil {
			return 0, err
		}
		if err := checkListing(rn.dir, next); err != nil {
			return 0, err
		}
		promoted := 0
		for _, size := range sizes {
			if size == 1 {
				promoted++
			}
		}
		log.Info("merge round finished",
			zap.Int("round", rn.rounds),
			zap.Int("segments", len(segs)),
			zap.Int("groups", len(sizes)),
			zap.Int("promoted", promoted))
		segs = next
	}
}

// mergeRound merges every group of one round concurrently. Output ids are
// handed out in group order before any merge starts, so the next round keeps
// the relative order of this one.
func (s *Sorter) mergeRound(ctx context.Context, rn *run, segs []segment, sizes []int) ([]segment, error) {
	groups := make([][]segment, len(sizes))
	next := make([]segment, len(sizes))
	start := 0
	for i, size := range sizes {
		groups[i] = segs[start : start+size]
		start += size

		id := rn.ids.Next()
		next[i] = segment{id: id, name: tempfile.SegmentName(id, tempfile.Sorted)}
	}

	err := forEach(len(groups), s.config.NumWorkers, func(i int) error {
		if err := canceled(ctx); err != nil {
			return err
		}
		group := groups[i]
		if len(group) == 1 {
			if err := rn.dir.Rename(group[0].name, next[i].name); err != nil {
				return tempError("rename", group[0].name, err)
			}
			next[i].records = group[0].records
			next[i].bytes = group[0].bytes
			rn.promotions.Add(1)
			return nil
		}
		return s.mergeGroup(ctx, rn, group, &next[i])
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// mergeGroup k-way merges group into the new sorted segment out and removes
// the inputs once out is committed.
func (s *Sorter) mergeGroup(ctx context.Context, rn *run, group []segment, out *segment) error {
	var want int64
	for _, seg := range group {
		want += seg.records
	}

	w, err := rn.dir.Create(out.name)
	if err != nil {
		return tempError("create", out.name, err)
	}
	cursors, err := openCursors(rn.dir, group)
	if err != nil {
		return multiAbort(err, w)
	}
	written, err := kwayMerge(ctx, cursors, &sink{w: w, kind: KindTempStorage, path: out.name})
	err = multiClose(err, cursors)
	if err == nil && written != want {
		err = tempError("merge", out.name, errRecordCount(want, written))
	}
	if err != nil {
		return multiAbort(err, w)
	}
	out.records = written
	out.bytes = w.Written()
	if err := w.Commit(); err != nil {
		return tempError("commit", out.name, err)
	}
	rn.merges.Add(1)
	return removeSegments(rn.dir, group)
}

// mergeInto merges the last segments into the destination
func (s *Sorter) mergeInto(ctx context.Context, rn *run, segs []segment, dst *sink) (int64, error) {
	cursors, err := openCursors(rn.dir, segs)
	if err != nil {
		return 0, err
	}
	written, err := kwayMerge(ctx, cursors, dst)
	if err = multiClose(err, cursors); err != nil {
		return written, err
	}
	rn.merges.Add(1)
	return written, removeSegments(rn.dir, segs)
}

// checkListing compares the sorted segments in the working directory with
// the ones the next round expects
func checkListing(dir tempfile.Dir, want []segment) error {
	names, err := dir.List(tempfile.Sorted)
	if err != nil {
		return tempError("list", dir.Path(), err)
	}
	if !slices.EqualFunc(names, want, func(name string, seg segment) bool { return name == seg.name }) {
		return tempError("list", dir.Path(), fmt.Errorf("found %d sorted segments, expected %d", len(names), len(want)))
	}
	return nil
}
