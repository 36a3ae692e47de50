package linesort

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why a sort failed.
type Kind int

const (
	// KindUnknown is reported for errors that did not come from the engine
	KindUnknown Kind = iota
	// KindSourceNotFound means the input path does not exist
	KindSourceNotFound
	// KindSourceRead means the input exists but could not be opened or read
	KindSourceRead
	// KindMalformedRecord means an input line is not "<tag>.<text>"
	KindMalformedRecord
	// KindTempStorage means a temporary segment or the working directory
	// could not be created, written, read or removed
	KindTempStorage
	// KindDestinationWrite means the output could not be created or written
	KindDestinationWrite
	// KindCancelled means the context was cancelled mid-run
	KindCancelled
	// KindConfig means the Config is invalid
	KindConfig
)

// Sentinel errors matching each Kind with errors.Is.
var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrSourceRead       = errors.New("source read failed")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrTempStorage      = errors.New("temporary storage failure")
	ErrDestinationWrite = errors.New("destination write failed")
	ErrCancelled        = errors.New("sort cancelled")
	ErrConfig           = errors.New("invalid config")
)

var kindSentinels = map[Kind]error{
	KindSourceNotFound:   ErrSourceNotFound,
	KindSourceRead:       ErrSourceRead,
	KindMalformedRecord:  ErrMalformedRecord,
	KindTempStorage:      ErrTempStorage,
	KindDestinationWrite: ErrDestinationWrite,
	KindCancelled:        ErrCancelled,
	KindConfig:           ErrConfig,
}

func (k Kind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return "unknown"
}

// SortError is the error returned by every failed sort.
type SortError struct {
	// Kind classifies the failure
	Kind Kind
	// Op is the operation that failed, e.g. "split", "merge", "commit"
	Op string
	// Path is the file involved, if any
	Path string
	// Err is the underlying error
	Err error
}

func (e *SortError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Path != "" {
		msg += " on " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SortError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTempStorage) and friends match by Kind.
func (e *SortError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf returns the Kind of the first SortError or ConfigError in err's chain.
// Context errors not yet wrapped by the engine count as KindCancelled.
func KindOf(err error) Kind {
	var sErr *SortError
	if errors.As(err, &sErr) {
		return sErr.Kind
	}
	var cErr *ConfigError
	if errors.As(err, &cErr) {
		return KindConfig
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindUnknown
}

// ConfigError represents an error in configuration parameters
type ConfigError struct {
	// Field is the name of the configuration field that's invalid
	Field string
	// Value is the invalid value provided
	Value interface{}
	// Reason explains why the value is invalid
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is(err, ErrConfig) match.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func newError(kind Kind, op, path string, err error) error {
	return &SortError{Kind: kind, Op: op, Path: path, Err: err}
}

// tempError wraps a failure on a segment or the working directory
func tempError(op, path string, err error) error {
	return newError(KindTempStorage, op, path, err)
}

// destError wraps a failure on the output
func destError(op, path string, err error) error {
	return newError(KindDestinationWrite, op, path, err)
}

// cancelledError wraps the context error, keeping it reachable for errors.Is
func cancelledError(op string, err error) error {
	return newError(KindCancelled, op, "", err)
}

// malformedError adds input position context to a record.MalformedRecordError
func malformedError(line int64, err error) error {
	return newError(KindMalformedRecord, "parse", "", fmt.Errorf("line %d: %w", line, err))
}

// asSortError passes SortErrors through and classifies anything else.
// Context errors become KindCancelled, everything else fallback.
func asSortError(err error, fallback Kind, op, path string) error {
	if err == nil {
		return nil
	}
	var sErr *SortError
	if errors.As(err, &sErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelledError(op, err)
	}
	return newError(fallback, op, path, err)
}
