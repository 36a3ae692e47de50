// Command linesort sorts, generates and checks "<tag>.<text>" record files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lanrat/linesort"
)

// exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitNotFound    = 3
	exitSourceRead  = 4
	exitMalformed   = 5
	exitTempStorage = 6
	exitDestination = 7
	exitCancelled   = 130
)

// errCheckFailed is returned by verify when the file is unsorted or differs
var errCheckFailed = errors.New("check failed")

type app struct {
	env       envConfig
	logLevel  string
	logFormat string
	log       *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	if err := a.env.read(); err != nil {
		fmt.Fprintf(stderr, "linesort: %s\n", err)
		return exitUsage
	}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if a.log != nil {
		_ = a.log.Sync()
	}
	if err != nil && !errors.Is(err, errCheckFailed) {
		fmt.Fprintf(stderr, "linesort: %s\n", err)
	}
	return exitCode(err)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "linesort",
		Short:         "External sort for large files of <tag>.<text> records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(a.logLevel, a.logFormat)
			if err != nil {
				return usageError{err}
			}
			a.log = log
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", a.env.LogLevel, "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", a.env.LogFormat, "log format: console or json")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(a.sortCmd(), a.generateCmd(), a.verifyCmd())
	return root
}

// usageError marks bad flags or arguments
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// usageArgs marks argument count errors as usage errors
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var uErr usageError
	if errors.As(err, &uErr) {
		return exitUsage
	}
	switch linesort.KindOf(err) {
	case linesort.KindConfig:
		return exitUsage
	case linesort.KindSourceNotFound:
		return exitNotFound
	case linesort.KindSourceRead:
		return exitSourceRead
	case linesort.KindMalformedRecord:
		return exitMalformed
	case linesort.KindTempStorage:
		return exitTempStorage
	case linesort.KindDestinationWrite:
		return exitDestination
	case linesort.KindCancelled:
		return exitCancelled
	}
	return exitFailure
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
