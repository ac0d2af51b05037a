package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSnapshot()
	c.normalizeLogging()
	if c.Watch.IntervalSeconds == 0 {
		c.Watch.IntervalSeconds = defaultWatchIntervalSeconds
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	// An empty log_dir is allowed and means stderr only.
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSnapshot() {
	if value, ok := os.LookupEnv("CPSNAP_ALGORITHM"); ok && strings.TrimSpace(value) != "" {
		c.Snapshot.Algorithm = value
	}
	c.Snapshot.Algorithm = strings.ToLower(strings.TrimSpace(c.Snapshot.Algorithm))
	if c.Snapshot.Algorithm == "" {
		c.Snapshot.Algorithm = defaultAlgorithm
	}
	c.Snapshot.OnError = strings.ToLower(strings.TrimSpace(c.Snapshot.OnError))
	if c.Snapshot.OnError == "" {
		c.Snapshot.OnError = defaultOnError
	}
	if c.Snapshot.MaxDepth == 0 {
		c.Snapshot.MaxDepth = defaultMaxDepth
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
