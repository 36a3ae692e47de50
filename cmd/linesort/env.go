package main

import (
	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig holds the defaults taken from the environment. Flags override them.
type envConfig struct {
	SegmentCapacity int    `env:"LINESORT_SEGMENT_CAPACITY" env-default:"2097152"`
	FanIn           int    `env:"LINESORT_FAN_IN"           env-default:"10"`
	TempDir         string `env:"LINESORT_TEMP_DIR"`
	Workers         int    `env:"LINESORT_WORKERS"          env-default:"0"`
	Compress        bool   `env:"LINESORT_COMPRESS"         env-default:"false"`
	LogLevel        string `env:"LINESORT_LOG_LEVEL"        env-default:"warn"`
	LogFormat       string `env:"LINESORT_LOG_FORMAT"       env-default:"console"`
}

func (c *envConfig) read() error {
	return cleanenv.ReadEnv(c)
}
