package overlay

import (
	"image"
	"math"
	"sync"
)

// sRGB transfer tables. Luminance is computed gamma-correctly: decode to
// linear light, combine with Rec. 709 weights, re-encode.
var (
	lutOnce      sync.Once
	srgbToLinear [256]float64
)

func initLUTs() {
	for i := 0; i < 256; i++ {
		v := float64(i) / 255.0
		if v <= 0.04045 {
			srgbToLinear[i] = v / 12.92
		} else {
			srgbToLinear[i] = math.Pow((v+0.055)/1.055, 2.4)
		}
	}
}

func linearToSRGB(v float64) float64 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math.Pow(v, 1.0/2.4) - 0.055
}

// lumaPlane returns the 8-bit gamma-corrected luminance of every pixel in
// row-major order.
func lumaPlane(img *image.NRGBA) []uint8 {
	lutOnce.Do(initLUTs)

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]uint8, w*h)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			linear := 0.2126*srgbToLinear[p[0]] + 0.7152*srgbToLinear[p[1]] + 0.0722*srgbToLinear[p[2]]
			encoded := linearToSRGB(linear)
			out[idx] = uint8(math.Round(encoded * 255.0))
			idx++
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
