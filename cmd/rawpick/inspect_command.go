package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rawpick/internal/config"
	"rawpick/internal/overlay"
	"rawpick/internal/rawdecode"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var half bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode one photo and report exposure statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("open photo %s: %w", path, err)
			}

			var decoded *rawdecode.DecodedImage
			if half {
				decoded, err = rawdecode.DecodeHalf(path)
			} else {
				decoded, err = rawdecode.Decode(path)
			}
			if err != nil {
				return err
			}

			mask := overlay.ZebraMask(decoded.Pixels, overlay.ZebraThresholds{
				Highlight: uint8(cfg.Overlay.ZebraHighlight),
				Shadow:    uint8(cfg.Overlay.ZebraShadow),
			})
			hist := overlay.Histogram(decoded.Pixels, cfg.Overlay.HistogramBins)

			highlights, shadows := 0, 0
			for i := range mask.Highlight {
				if mask.Highlight[i] {
					highlights++
				}
				if mask.Shadow[i] {
					shadows++
				}
			}
			total := float64(mask.Width * mask.Height)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:        %s\n", path)
			fmt.Fprintf(out, "Dimensions:  %dx%d\n", decoded.Width, decoded.Height)
			fmt.Fprintf(out, "Bit depth:   %d (%s)\n", decoded.BitDepth, decoded.ColorSpace)
			fmt.Fprintf(out, "Orientation: %d\n", rawdecode.Orientation(path))
			fmt.Fprintf(out, "Clipped highlights: %.2f%%\n", 100*float64(highlights)/total)
			fmt.Fprintf(out, "Crushed shadows:    %.2f%%\n", 100*float64(shadows)/total)
			fmt.Fprintf(out, "Mean luma:          %.1f\n", meanLuma(hist))
			return nil
		},
	}

	cmd.Flags().BoolVar(&half, "half", false, "Decode at half resolution")
	return cmd
}

func meanLuma(hist *overlay.HistogramData) float64 {
	if hist.Pixels == 0 {
		return 0
	}
	binWidth := 256.0 / float64(hist.Bins)
	var sum float64
	for i, count := range hist.Luma {
		center := (float64(i) + 0.5) * binWidth
		sum += center * float64(count)
	}
	return sum / float64(hist.Pixels)
}
