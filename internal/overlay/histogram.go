package overlay

import "image"

// HistogramData holds per-channel bin counts over a full decoded buffer. The
// counts reflect the decoded tonal range, not any tone-mapped derivative;
// each channel sums to exactly the pixel count of the source.
type HistogramData struct {
	Bins   int
	Pixels int64
	R      []uint64
	G      []uint64
	B      []uint64
	Luma   []uint64
}

// Histogram computes per-channel bin counts. bins defaults to 256 when zero
// or negative.
func Histogram(img *image.NRGBA, bins int) *HistogramData {
	if bins <= 0 {
		bins = 256
	}
	h := &HistogramData{
		Bins: bins,
		R:    make([]uint64, bins),
		G:    make([]uint64, bins),
		B:    make([]uint64, bins),
		Luma: make([]uint64, bins),
	}

	bounds := img.Bounds()
	w := bounds.Dx()
	luma := lumaPlane(img)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			h.R[int(p[0])*bins/256]++
			h.G[int(p[1])*bins/256]++
			h.B[int(p[2])*bins/256]++
			h.Luma[int(luma[idx])*bins/256]++
			idx++
		}
	}
	h.Pixels = int64(idx)
	return h
}
