package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/lanrat/linesort"
)

const defaultDestination = "sorted.txt"

func (a *app) sortCmd() *cobra.Command {
	cfg := linesort.Config{}
	cmd := &cobra.Command{
		Use:   "sort SRC [DST]",
		Short: "Sort SRC into DST (default " + defaultDestination + ", - for stdout)",
		Args:  usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := defaultDestination
			if len(args) == 2 {
				dst = args[1]
			}
			cfg.Logger = a.log
			return a.sort(cmd, &cfg, args[0], dst)
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.SegmentCapacity, "segment-capacity", a.env.SegmentCapacity, "max records per in-memory segment")
	f.IntVar(&cfg.MergeFanIn, "fan-in", a.env.FanIn, "max segments merged at once")
	f.StringVar(&cfg.TempDir, "temp-dir", a.env.TempDir, "root for temporary segments (default: discovered)")
	f.IntVar(&cfg.NumWorkers, "workers", a.env.Workers, "parallel segment sorts and merges (default: number of CPUs)")
	f.BoolVar(&cfg.CompressSegments, "compress", a.env.Compress, "zstd compress temporary segments")
	return cmd
}

func (a *app) sort(cmd *cobra.Command, cfg *linesort.Config, src, dst string) error {
	sorter := linesort.New(cfg)
	var (
		stats linesort.Stats
		err   error
	)
	if dst == "-" {
		stats, err = a.sortToStdout(cmd, sorter, src)
	} else {
		stats, err = sorter.Run(cmd.Context(), src, dst)
	}
	if err != nil {
		return err
	}
	report(cmd.ErrOrStderr(), dst, stats)
	return nil
}

func (a *app) sortToStdout(cmd *cobra.Command, sorter *linesort.Sorter, src string) (linesort.Stats, error) {
	var in io.Reader = cmd.InOrStdin()
	if src != "-" {
		f, err := os.Open(src)
		if err != nil {
			kind := linesort.KindSourceRead
			if os.IsNotExist(err) {
				kind = linesort.KindSourceNotFound
			}
			return linesort.Stats{}, &linesort.SortError{Kind: kind, Op: "open", Path: src, Err: err}
		}
		defer f.Close()
		in = f
	}
	out := bufio.NewWriter(cmd.OutOrStdout())
	stats, err := sorter.SortStream(cmd.Context(), in, out)
	if err != nil {
		return stats, err
	}
	if err := out.Flush(); err != nil {
		return stats, &linesort.SortError{Kind: linesort.KindDestinationWrite, Op: "flush", Path: "-", Err: err}
	}
	return stats, nil
}

// report prints where the output went, how long it took and the memory used
func report(w io.Writer, dst string, stats linesort.Stats) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Fprintf(w, "%s: %d records, %d segments, %d merge rounds in %s, memory %d MB\n",
		dst, stats.Records, stats.Segments, stats.Rounds,
		stats.Elapsed.Round(time.Millisecond), m.Sys>>20)
}
