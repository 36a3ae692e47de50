package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/lanrat/linesort/verify"
)

func (a *app) verifyCmd() *cobra.Command {
	var against string
	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Check that FILE is sorted, or compare it to another sorted file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, file.Close()) }()

			out := cmd.OutOrStdout()
			if against == "" {
				sum, err := verify.Sorted(cmd.Context(), file)
				if err != nil {
					fmt.Fprintf(out, "%s: %s\n", args[0], err)
					return errCheckFailed
				}
				fmt.Fprintf(out, "%s: %d records sorted\n", args[0], sum.Records)
				return nil
			}

			other, err := os.Open(against)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, other.Close()) }()
			r, err := verify.Diff(cmd.Context(), file, other, verify.PrintDiff(out))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, r.String())
			if !r.Equal() {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&against, "against", "", "sorted file expected to hold the same records")
	return cmd
}
