package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOverlay(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOverlay() error {
	if c.Overlay.ZebraHighlight < 0 || c.Overlay.ZebraHighlight > 255 {
		return errors.New("overlay.zebra_highlight must be between 0 and 255")
	}
	if c.Overlay.ZebraShadow < 0 || c.Overlay.ZebraShadow > 255 {
		return errors.New("overlay.zebra_shadow must be between 0 and 255")
	}
	if c.Overlay.ZebraShadow >= c.Overlay.ZebraHighlight {
		return errors.New("overlay.zebra_shadow must be below overlay.zebra_highlight")
	}
	if c.Overlay.HistogramBins < 2 || c.Overlay.HistogramBins > 65536 {
		return errors.New("overlay.histogram_bins must be between 2 and 65536")
	}
	if c.Overlay.HDRGamma <= 0 || c.Overlay.HDRGamma > 1 {
		return errors.New("overlay.hdr_gamma must be in (0, 1]")
	}
	if c.Overlay.HDRLocalContrast < 0 || c.Overlay.HDRLocalContrast > 1 {
		return errors.New("overlay.hdr_local_contrast must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.RawFolderName == c.Export.JPEGFolderName {
		return fmt.Errorf("export.raw_folder_name and export.jpeg_folder_name must differ (both %q)", c.Export.RawFolderName)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}
