package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cpsnap/internal/baseline"
	"cpsnap/internal/config"
	"cpsnap/internal/logging"
	"cpsnap/internal/snapshot"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// runContext tags the command context with a fresh correlation id so every
// log line from one invocation can be grouped.
func (c *commandContext) runContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithCorrelationID(ctx, uuid.NewString())
}

// snapshotOverrides carries per-invocation flag values that take precedence
// over the [snapshot] config section.
type snapshotOverrides struct {
	algorithm string
	onError   string
}

func (o *snapshotOverrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.algorithm, "algorithm", "", "Per-file hash algorithm (sha256, xxh3, blake3)")
	cmd.Flags().StringVar(&o.onError, "on-error", "", "Failure policy for unreadable entries (abort, skip)")
}

func (o snapshotOverrides) apply(cfg config.Config) config.Config {
	if v := strings.TrimSpace(o.algorithm); v != "" {
		cfg.Snapshot.Algorithm = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.onError); v != "" {
		cfg.Snapshot.OnError = strings.ToLower(v)
	}
	return cfg
}

// snapshotter builds a Snapshotter from config plus overrides and returns
// the effective [snapshot] settings it was built with.
func (c *commandContext) snapshotter(overrides snapshotOverrides) (*snapshot.Snapshotter, config.Snapshot, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, config.Snapshot{}, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, config.Snapshot{}, err
	}
	effective := overrides.apply(*cfg)
	s, err := snapshot.NewFromConfig(&effective, nil, logger)
	if err != nil {
		return nil, config.Snapshot{}, err
	}
	return s, effective.Snapshot, nil
}

func (c *commandContext) withStore(fn func(*baseline.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := baseline.OpenFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("open baseline store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

var errNoRoots = errors.New("no classpath roots given (pass paths as arguments or use --classpath)")
