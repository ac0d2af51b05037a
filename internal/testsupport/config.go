// Package testsupport holds fixtures shared by package tests: temp-dir
// configurations and small on-disk classpath trees.
package testsupport

import (
	"path/filepath"
	"testing"

	"cpsnap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config with state and log directories under a fresh
// temp directory, then applies opts.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := CanonicalTempDir(t)
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithAlgorithm sets snapshot.algorithm.
func WithAlgorithm(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Snapshot.Algorithm = name
	}
}

// WithOnError sets snapshot.on_error.
func WithOnError(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Snapshot.OnError = policy
	}
}

// WithoutLogFile leaves paths.log_dir empty so loggers only write to stderr.
func WithoutLogFile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.LogDir = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
