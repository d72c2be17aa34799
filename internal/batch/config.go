package batch

import (
	"fmt"
	"runtime"
)

// DiscoveryOptions controls how command line arguments expand into files.
type DiscoveryOptions struct {
	// Recursive descends into subdirectories.
	Recursive bool
	// Include keeps only base names matching one of these globs. Empty
	// keeps everything.
	Include []string
	// Exclude drops base names matching one of these globs.
	Exclude []string
}

// Config controls a batch run.
type Config struct {
	// Workers bounds the files processed concurrently. Zero means
	// runtime.NumCPU().
	Workers int
	// ContinueOnError keeps going after a failed file instead of
	// returning its error.
	ContinueOnError bool
	// Progress receives progress updates. Nil disables reporting.
	Progress Progress
}

// DefaultConfig returns a config that uses every CPU and stops at the first
// failure.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

// Validate reports settings Run cannot honor.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

func (c Config) workers(items int) int {
	n := c.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(1, min(n, items))
}
