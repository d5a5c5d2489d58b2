// Package config loads the simulator's JSON configuration.
package config

import "encoding/json"
import "os"

import "github.com/go-errors/errors"

import "ukern/src/accnt"
import "ukern/src/limits"

/// Config_t is the on-disk configuration. Absent fields keep the values
/// of Default.
type Config_t struct {
	Log_level        string `json:"log_level"`
	Phys_pages       int    `json:"phys_pages"`
	Max_tasks        int    `json:"max_tasks"`
	Heap_pages       int    `json:"heap_pages"`
	User_stack_pages int    `json:"user_stack_pages"`
	// "host" or "manual"
	Clock string `json:"clock"`
	// microseconds a manual clock advances per reading
	Clock_step_us int `json:"clock_step_us"`
}

/// Default returns the configuration matching limits.MkSysLimit.
func Default() Config_t {
	l := limits.MkSysLimit()
	return Config_t{
		Log_level:        "info",
		Phys_pages:       l.Physpages,
		Max_tasks:        int(l.Tasks),
		Heap_pages:       l.Heappages,
		User_stack_pages: l.Stackpages,
		Clock:            "host",
	}
}

/// Parse decodes data over base and validates the result.
func Parse(data []byte, base Config_t) (Config_t, error) {
	c := base
	if err := json.Unmarshal(data, &c); err != nil {
		return base, errors.Wrap(err, 0)
	}
	if err := c.Validate(); err != nil {
		return base, err
	}
	return c, nil
}

/// Load reads the file at path over the defaults.
func Load(path string) (Config_t, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config_t{}, errors.Wrap(err, 0)
	}
	c, err := Parse(data, Default())
	if err != nil {
		return Config_t{}, errors.WrapPrefix(err, path, 0)
	}
	return c, nil
}

/// Validate checks that every limit is usable.
func (c *Config_t) Validate() error {
	switch {
	case c.Phys_pages <= 0:
		return errors.Errorf("phys_pages must be positive, got %d", c.Phys_pages)
	case c.Max_tasks <= 0:
		return errors.Errorf("max_tasks must be positive, got %d", c.Max_tasks)
	case c.Heap_pages < 0:
		return errors.Errorf("heap_pages must not be negative, got %d", c.Heap_pages)
	case c.User_stack_pages <= 0:
		return errors.Errorf("user_stack_pages must be positive, got %d", c.User_stack_pages)
	case c.Clock_step_us < 0:
		return errors.Errorf("clock_step_us must not be negative, got %d", c.Clock_step_us)
	}
	switch c.Clock {
	case "host", "manual":
	default:
		return errors.Errorf("unknown clock %q", c.Clock)
	}
	return nil
}

/// Limits returns the system limits the configuration describes.
func (c *Config_t) Limits() *limits.Syslimit_t {
	l := limits.MkSysLimit()
	l.Physpages = c.Phys_pages
	l.Tasks = limits.Sysatomic_t(c.Max_tasks)
	l.Heappages = c.Heap_pages
	l.Stackpages = c.User_stack_pages
	return l
}

/// Mkclock returns the configured clock.
func (c *Config_t) Mkclock() accnt.Clock_i {
	if c.Clock == "manual" {
		return &accnt.Manualclock_t{Step: int64(c.Clock_step_us)}
	}
	return accnt.Mkhostclock()
}
