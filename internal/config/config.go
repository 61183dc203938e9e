// Package config holds the immutable run configuration: frame range,
// directory roots, parallelism, and the scientific protocol parameters
// handed to the external tools.
package config

import (
	"fmt"
	"runtime"

	"dynophore/internal/frames"
)

// ConfigurationError reports invalid CLI arguments or environment. It is
// fatal at startup, before any frame is processed.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Msg, e.Err)
	}
	return "configuration: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Errorf builds a ConfigurationError wrapping err (err may be nil).
func Errorf(err error, format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// Config is the run configuration. It is built once in the command layer
// and passed by value into every component; nothing mutates it afterwards.
type Config struct {
	Frames   frames.Range
	InputDir string // directory of <index>.mae input files
	WorkDir  string // root under which DYNOPHORE_ANALYSIS is created

	Workers   int // concurrently active frame pipelines
	BatchSize int // frames dispatched per batch
	Retries   int // extra attempts per failed frame

	Protocol Protocol
}

// Validate checks the parts not already validated at construction.
func (c Config) Validate() error {
	if c.InputDir == "" {
		return Errorf(nil, "input directory is required")
	}
	if c.WorkDir == "" {
		return Errorf(nil, "working directory is required")
	}
	if c.Workers < 1 {
		return Errorf(nil, "workers must be >= 1, got %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return Errorf(nil, "batch size must be >= 1, got %d", c.BatchSize)
	}
	if c.Retries < 0 {
		return Errorf(nil, "retries must be >= 0, got %d", c.Retries)
	}
	return c.Protocol.Validate()
}

// DefaultCores returns 75% of the machine's logical CPUs, minimum 1. The
// suite's own jobs are threaded, so saturating the host starves them.
func DefaultCores() int {
	n := runtime.NumCPU() * 3 / 4
	if n < 1 {
		n = 1
	}
	return n
}

// PoolSize derives the pipeline worker count from a core budget: each
// frame keeps roughly two cores busy between the tool and its job server.
func PoolSize(cores int) int {
	n := cores / 2
	if n < 1 {
		n = 1
	}
	return n
}
