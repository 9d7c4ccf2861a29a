package overlay

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ToneMapParams shape the faux-HDR preview. Gamma controls the sigmoid that
// lifts shadows and compresses highlights; LocalContrast in [0,1] mixes in
// blur-based local contrast so flattened regions keep detail.
type ToneMapParams struct {
	Gamma         float64
	LocalContrast float64
}

// DefaultToneMapParams returns the product defaults.
func DefaultToneMapParams() ToneMapParams {
	return ToneMapParams{Gamma: 0.6, LocalContrast: 0.35}
}

// sigmoidLUT builds the S-curve: both halves of the range are pulled toward
// the midpoint with the given gamma, compressing dynamic range symmetrically.
func sigmoidLUT(gamma float64) [256]uint8 {
	var lut [256]uint8
	for i := 0; i < 256; i++ {
		x := float64(i) / 255.0
		var y float64
		if x <= 0.5 {
			y = 0.5 * math.Pow(x/0.5, gamma)
		} else {
			y = 1.0 - 0.5*math.Pow((1.0-x)/0.5, gamma)
		}
		lut[i] = clamp8(y * 255.0)
	}
	return lut
}

// ToneMap produces the faux-HDR display buffer for img. Deterministic for
// identical input and parameters; never mutates the input.
func ToneMap(img *image.NRGBA, params ToneMapParams) *image.NRGBA {
	if params.Gamma <= 0 || params.Gamma > 1 {
		params.Gamma = 0.6
	}
	if params.LocalContrast < 0 {
		params.LocalContrast = 0
	}
	if params.LocalContrast > 1 {
		params.LocalContrast = 1
	}

	lut := sigmoidLUT(params.Gamma)
	luma := lumaPlane(img)

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mapped := make([]uint8, len(luma))
	for i, v := range luma {
		mapped[i] = lut[v]
	}

	if params.LocalContrast > 0 && w > 2 && h > 2 {
		blurred := blurPlane(mapped, w, h)
		strength := params.LocalContrast
		for i := range mapped {
			detail := float64(mapped[i]) - float64(blurred[i])
			mapped[i] = clamp8(float64(mapped[i]) + strength*detail)
		}
	}

	// Scale chroma by the luma ratio so colors survive the remap.
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		srcRow := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		dstRow := out.Pix[(y-bounds.Min.Y)*out.Stride:]
		for x := 0; x < w; x++ {
			src := srcRow[x*4 : x*4+4]
			dst := dstRow[x*4 : x*4+4]
			ratio := (float64(mapped[idx]) + 1) / (float64(luma[idx]) + 1)
			dst[0] = clamp8(float64(src[0]) * ratio)
			dst[1] = clamp8(float64(src[1]) * ratio)
			dst[2] = clamp8(float64(src[2]) * ratio)
			dst[3] = src[3]
			idx++
		}
	}
	return out
}

// blurPlane runs a gaussian blur over a grayscale plane using the imaging
// package, keeping the tone map deterministic and dependency-light.
func blurPlane(plane []uint8, w, h int) []uint8 {
	gray := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, v := range plane {
		gray.Pix[i*4+0] = v
		gray.Pix[i*4+1] = v
		gray.Pix[i*4+2] = v
		gray.Pix[i*4+3] = 255
	}
	sigma := float64(w) / 64.0
	if sigma < 2 {
		sigma = 2
	}
	blurred := imaging.Blur(gray, sigma)
	out := make([]uint8, len(plane))
	for i := range out {
		out[i] = blurred.Pix[i*4]
	}
	return out
}
