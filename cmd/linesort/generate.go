package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lanrat/linesort/generate"
)

func (a *app) generateCmd() *cobra.Command {
	var (
		sizeMB    int64
		dupRate   float64
		wordsPath string
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "generate OUT",
		Short: "Write a random record file of about --size-mb megabytes",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if sizeMB < 0 || dupRate < 0 || dupRate > 100 {
				return usageError{fmt.Errorf("--size-mb must be >= 0 and --dup-rate within [0, 100]")}
			}
			var words []string
			if wordsPath != "" {
				if words, err = loadWords(wordsPath); err != nil {
					return err
				}
			}
			g := generate.New(words, seed)
			g.DuplicateRate = dupRate / 100

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer func() {
				err = multierr.Append(err, f.Close())
			}()
			start := time.Now()
			st, err := g.WriteSize(cmd.Context(), f, sizeMB<<20)
			if err != nil {
				return err
			}
			a.log.Info("file generated",
				zap.String("path", args[0]),
				zap.Int64("bytes", st.Bytes),
				zap.Int64("lines", st.Lines),
				zap.Int64("duplicates", st.Duplicates),
				zap.Duration("elapsed", time.Since(start)))
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d MB, %d lines, %d duplicates\n", args[0], st.Bytes>>20, st.Lines, st.Duplicates)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&sizeMB, "size-mb", 1, "target file size in megabytes")
	f.Float64Var(&dupRate, "dup-rate", generate.DefaultDuplicateRate*100, "percent of lines reusing a pooled text")
	f.StringVar(&wordsPath, "words", "", "word corpus, one word per line (default: built-in list)")
	f.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	return cmd
}

func loadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return generate.LoadWords(f)
}
