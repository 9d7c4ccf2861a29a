package config

import "runtime"

const (
	defaultStateDir         = "~/.local/share/rawpick"
	defaultMemoryBudgetMiB  = 512
	defaultPrefetchAhead    = 5
	defaultPrefetchBehind   = 2
	defaultZebraHighlight   = 248
	defaultZebraShadow      = 8
	defaultHistogramBins    = 256
	defaultHDRGamma         = 0.6
	defaultHDRLocalContrast = 0.35
	defaultRawFolderName    = "_selected_raw"
	defaultJPEGFolderName   = "_selected_jpeg"
	defaultExportMinFreeMiB = 256
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Cache: Cache{
			MemoryBudgetMiB: defaultMemoryBudgetMiB,
			PrefetchAhead:   defaultPrefetchAhead,
			PrefetchBehind:  defaultPrefetchBehind,
		},
		Overlay: Overlay{
			ZebraHighlight:   defaultZebraHighlight,
			ZebraShadow:      defaultZebraShadow,
			HistogramBins:    defaultHistogramBins,
			HDRGamma:         defaultHDRGamma,
			HDRLocalContrast: defaultHDRLocalContrast,
		},
		Export: Export{
			RawFolderName:   defaultRawFolderName,
			JPEGFolderName:  defaultJPEGFolderName,
			Concurrency:     2,
			MinFreeSpaceMiB: defaultExportMinFreeMiB,
		},
		Workers: Workers{
			Count: defaultWorkerCount(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultWorkerCount() int {
	n := runtime.NumCPU() - 1
	if n < 2 {
		n = 2
	}
	if n > 8 {
		n = 8
	}
	return n
}
