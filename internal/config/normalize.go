package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCache()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() {
	if c.Cache.MemoryBudgetMiB <= 0 {
		c.Cache.MemoryBudgetMiB = defaultMemoryBudgetMiB
	}
	if c.Cache.PrefetchAhead < 0 {
		c.Cache.PrefetchAhead = 0
	}
	if c.Cache.PrefetchBehind < 0 {
		c.Cache.PrefetchBehind = 0
	}
}

func (c *Config) normalizeExport() {
	if strings.TrimSpace(c.Export.RawFolderName) == "" {
		c.Export.RawFolderName = defaultRawFolderName
	}
	if strings.TrimSpace(c.Export.JPEGFolderName) == "" {
		c.Export.JPEGFolderName = defaultJPEGFolderName
	}
	if c.Export.Concurrency <= 0 {
		c.Export.Concurrency = 2
	}
	if c.Export.MinFreeSpaceMiB < 0 {
		c.Export.MinFreeSpaceMiB = 0
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
	if strings.TrimSpace(c.Logging.LogDir) != "" {
		if expanded, err := expandPath(c.Logging.LogDir); err == nil {
			c.Logging.LogDir = expanded
		}
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = defaultWorkerCount()
	}
}
