package overlay

import (
	"image"
	"image/color"
)

// ZebraThresholds are 8-bit clip thresholds applied to gamma-corrected
// luminance. Defaults match the shipped configuration: highlight 248,
// shadow 8.
type ZebraThresholds struct {
	Highlight uint8
	Shadow    uint8
}

// DefaultZebraThresholds returns the product defaults.
func DefaultZebraThresholds() ZebraThresholds {
	return ZebraThresholds{Highlight: 248, Shadow: 8}
}

// Mask flags clipped pixels of one preview buffer. Dimensions always equal
// the buffer the mask was computed from.
type Mask struct {
	Width  int
	Height int
	// Highlight and Shadow are row-major, Width*Height long.
	Highlight []bool
	Shadow    []bool
}

// ZebraMask computes the exposure-clip mask for img. Read-only over the
// input.
func ZebraMask(img *image.NRGBA, th ZebraThresholds) *Mask {
	luma := lumaPlane(img)
	bounds := img.Bounds()
	mask := &Mask{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Highlight: make([]bool, len(luma)),
		Shadow:    make([]bool, len(luma)),
	}
	for i, v := range luma {
		if v >= th.Highlight {
			mask.Highlight[i] = true
		}
		if v <= th.Shadow {
			mask.Shadow[i] = true
		}
	}
	return mask
}

// Stripe geometry for the animated zebra pattern.
const (
	stripePeriod = 16
	stripeDuty   = 8
)

var (
	highlightColor = color.NRGBA{R: 130, A: 255}
	shadowColor    = color.NRGBA{B: 130, A: 255}
	bothColor      = color.NRGBA{R: 255, B: 255, A: 180}
)

// Render rasterizes the mask into a transparent overlay with diagonal
// stripes. phase shifts the stripes so the UI can animate them; the output is
// deterministic for a given (mask, phase) pair.
func (m *Mask) Render(phase int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	phase %= stripePeriod
	if phase < 0 {
		phase += stripePeriod
	}
	for y := 0; y < m.Height; y++ {
		rowBase := y * m.Width
		for x := 0; x < m.Width; x++ {
			if (x+y+phase)%stripePeriod >= stripeDuty {
				continue
			}
			idx := rowBase + x
			hi, lo := m.Highlight[idx], m.Shadow[idx]
			switch {
			case hi && lo:
				out.SetNRGBA(x, y, bothColor)
			case hi:
				out.SetNRGBA(x, y, highlightColor)
			case lo:
				out.SetNRGBA(x, y, shadowColor)
			}
		}
	}
	return out
}
