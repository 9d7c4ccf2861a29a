package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Cache contains configuration for the decoded image and overlay cache.
type Cache struct {
	// MemoryBudgetMiB bounds the total estimated bytes of cached pixel data.
	MemoryBudgetMiB int `toml:"memory_budget_mib"`
	// PrefetchAhead and PrefetchBehind control how many neighbors of the
	// current photo are warmed at low priority.
	PrefetchAhead  int `toml:"prefetch_ahead"`
	PrefetchBehind int `toml:"prefetch_behind"`
}

// Overlay contains tunables for the exposure-analysis overlays.
type Overlay struct {
	// ZebraHighlight and ZebraShadow are 8-bit luminance clip thresholds.
	ZebraHighlight int `toml:"zebra_highlight"`
	ZebraShadow    int `toml:"zebra_shadow"`
	HistogramBins  int `toml:"histogram_bins"`
	// HDRGamma shapes the faux-HDR sigmoid; HDRLocalContrast in [0,1] mixes
	// in blur-based local contrast compression.
	HDRGamma         float64 `toml:"hdr_gamma"`
	HDRLocalContrast float64 `toml:"hdr_local_contrast"`
}

// Export contains configuration for materializing picked photos.
type Export struct {
	RawFolderName  string `toml:"raw_folder_name"`
	JPEGFolderName string `toml:"jpeg_folder_name"`
	// Prune removes destination files whose stem is no longer picked so the
	// export folders mirror the current picks exactly.
	Prune bool `toml:"prune"`
	// Concurrency bounds parallel per-item copies.
	Concurrency int `toml:"concurrency"`
	// MinFreeSpaceMiB fails the export preflight when the destination volume
	// has less headroom than this.
	MinFreeSpaceMiB int `toml:"min_free_space_mib"`
}

// Workers contains configuration for the background worker pool.
type Workers struct {
	Count int `toml:"count"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	LogDir string `toml:"log_dir"`
}

// Paths contains directory configuration.
type Paths struct {
	// StateDir holds the session database and folder locks.
	StateDir string `toml:"state_dir"`
}

// Config encapsulates all configuration values for rawpick.
//
// Configuration sections by subsystem:
//   - Paths: state directory for the session database
//   - Cache: decoded image cache budget and prefetch distances
//   - Overlay: zebra thresholds, histogram bins, faux-HDR parameters
//   - Export: output folder names, prune, concurrency, free-space floor
//   - Workers: background worker pool sizing
//   - Logging: log format, level, and directory
type Config struct {
	Paths   Paths   `toml:"paths"`
	Cache   Cache   `toml:"cache"`
	Overlay Overlay `toml:"overlay"`
	Export  Export  `toml:"export"`
	Workers Workers `toml:"workers"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rawpick/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath resolves ~ and relative segments in a user-supplied path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// CreateSample writes the sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file is not
// an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the application writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir}
	if c.Logging.LogDir != "" {
		dirs = append(dirs, c.Logging.LogDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// MemoryBudgetBytes converts the configured MiB budget for the image cache.
func (c *Config) MemoryBudgetBytes() int64 {
	return int64(c.Cache.MemoryBudgetMiB) * 1024 * 1024
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
