package config

import (
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSnapshot(); err != nil {
		return err
	}
	if c.Watch.IntervalSeconds < 1 {
		return fmt.Errorf("watch.interval_seconds must be at least 1, got %d", c.Watch.IntervalSeconds)
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return fmt.Errorf("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	if !slices.Contains(Algorithms, c.Snapshot.Algorithm) {
		return fmt.Errorf("snapshot.algorithm: unsupported value %q (expected one of %s)",
			c.Snapshot.Algorithm, strings.Join(Algorithms, ", "))
	}
	switch c.Snapshot.OnError {
	case OnErrorAbort, OnErrorSkip:
	default:
		return fmt.Errorf("snapshot.on_error: unsupported value %q (expected %s or %s)",
			c.Snapshot.OnError, OnErrorAbort, OnErrorSkip)
	}
	if c.Snapshot.MaxDepth < 1 || c.Snapshot.MaxDepth > maxAllowedDepth {
		return fmt.Errorf("snapshot.max_depth must be between 1 and %d, got %d", maxAllowedDepth, c.Snapshot.MaxDepth)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
