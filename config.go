package linesort

import (
	"runtime"

	"go.uber.org/zap"
)

// Config holds configuration settings for linesort
type Config struct {
	SegmentCapacity  int         // max records held in memory and written per segment
	MergeFanIn       int         // max segments merged at once, at least 2
	TempDir          string      // root for the working directory, empty to discover one (prefers /var/tmp)
	NumWorkers       int         // segments sorted / groups merged concurrently
	FileBufferSize   int         // file IO buffer size for each file
	CompressSegments bool        // zstd compress temporary segments
	Logger           *zap.Logger // nil disables logging
	OnRound          func(RoundInfo)
}

// RoundInfo describes a merge round as it starts.
type RoundInfo struct {
	Round    int  // 1 based
	Segments int  // sorted segments entering the round
	Groups   int  // groups formed, 1 for the final round
	Final    bool // this round writes the destination
}

// DefaultConfig returns the default configuration options used if none provided.
// Peak memory is roughly (NumWorkers+1) * SegmentCapacity records.
func DefaultConfig() *Config {
	return &Config{
		SegmentCapacity: 2 * 1024 * 1024,
		MergeFanIn:      10,
		NumWorkers:      runtime.GOMAXPROCS(0),
		FileBufferSize:  1 << 20, // 1MB
		TempDir:         "",
	}
}

// mergeConfig copies c and replaces any values not set with the defaults
func mergeConfig(c *Config) *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	merged := *c
	if merged.SegmentCapacity <= 0 {
		merged.SegmentCapacity = d.SegmentCapacity
	}
	if merged.MergeFanIn == 0 {
		merged.MergeFanIn = d.MergeFanIn
	}
	if merged.NumWorkers <= 0 {
		merged.NumWorkers = d.NumWorkers
	}
	if merged.FileBufferSize <= 0 {
		merged.FileBufferSize = d.FileBufferSize
	}
	// skipping TempDir as the empty string means discover one
	return &merged
}

// validate reports settings that cannot be defaulted away
func (c *Config) validate() error {
	if c.MergeFanIn < 2 {
		return &ConfigError{Field: "MergeFanIn", Value: c.MergeFanIn, Reason: "must merge at least 2 segments at once"}
	}
	if c.FileBufferSize < 16 {
		return &ConfigError{Field: "FileBufferSize", Value: c.FileBufferSize, Reason: "must be at least 16 bytes"}
	}
	return nil
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
