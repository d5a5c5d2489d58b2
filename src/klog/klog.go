// Package klog builds the kernel's structured loggers.
package klog

import "io"
import "os"

import "github.com/hashicorp/go-hclog"

/// New returns a logger named name writing to w at the given level
/// ("trace", "debug", "info", "warn", "error"). An unknown level means
/// info. A nil w means stderr.
func New(name, level string, w io.Writer) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	if w == nil {
		w = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  lvl,
		Output: w,
	})
}
