package testsupport

import (
	"path/filepath"
	"testing"

	"rawpick/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Logging.LogDir = ""
	cfg.Workers.Count = 2
	cfg.Cache.MemoryBudgetMiB = 64

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMemoryBudget overrides the cache budget in MiB.
func WithMemoryBudget(mib int) ConfigOption {
	return func(c *config.Config) { c.Cache.MemoryBudgetMiB = mib }
}

// WithExportFolders overrides the export folder names.
func WithExportFolders(raw, jpeg string) ConfigOption {
	return func(c *config.Config) {
		c.Export.RawFolderName = raw
		c.Export.JPEGFolderName = jpeg
	}
}
