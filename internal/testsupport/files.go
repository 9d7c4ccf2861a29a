package testsupport

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// PhotoFolder creates a temp folder holding one placeholder file per name.
// The files carry no image data; scanner and cullstate tests only need the
// names to exist.
func PhotoFolder(t testing.TB, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte("fixture"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

// GradientImage renders a deterministic horizontal luminance ramp, giving
// overlay tests known highlight and shadow regions.
func GradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(0)
			if width > 1 {
				v = uint8(x * 255 / (width - 1))
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// EncodeJPEG returns img encoded as a JPEG stream.
func EncodeJPEG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// WriteJPEG writes a deterministic gradient JPEG of the given size.
func WriteJPEG(t testing.TB, path string, width, height int) {
	t.Helper()
	if err := os.WriteFile(path, EncodeJPEG(t, GradientImage(width, height)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteTIFFRaw writes a minimal TIFF-container RAW fixture: IFD0 carrying an
// orientation tag and a large embedded JPEG preview, plus a SubIFD carrying a
// small thumbnail preview. The layout matches what the rawdecode IFD walker
// expects from real CR2/NEF/ARW files.
func WriteTIFFRaw(t testing.TB, path string, width, height, orientation int) {
	t.Helper()

	large := EncodeJPEG(t, GradientImage(width, height))
	small := EncodeJPEG(t, GradientImage(width/4+1, height/4+1))

	const (
		headerLen = 8
		ifd0Len   = 2 + 4*12 + 4
		subIFDLen = 2 + 2*12 + 4
	)
	ifd0Offset := uint32(headerLen)
	subIFDOffset := ifd0Offset + ifd0Len
	largeOffset := subIFDOffset + subIFDLen
	smallOffset := largeOffset + uint32(len(large))

	var buf bytes.Buffer
	le := binary.LittleEndian
	put16 := func(v uint16) { _ = binary.Write(&buf, le, v) }
	put32 := func(v uint32) { _ = binary.Write(&buf, le, v) }

	// Header.
	buf.WriteString("II")
	put16(42)
	put32(ifd0Offset)

	// IFD0: orientation, preview offset/length, SubIFD pointer.
	put16(4)
	put16(0x0112) // Orientation
	put16(3)      // SHORT
	put32(1)
	put16(uint16(orientation))
	put16(0)
	put16(0x014a) // SubIFD
	put16(4)      // LONG
	put32(1)
	put32(subIFDOffset)
	put16(0x0201) // JPEGInterchangeFormat
	put16(4)
	put32(1)
	put32(largeOffset)
	put16(0x0202) // JPEGInterchangeFormatLength
	put16(4)
	put32(1)
	put32(uint32(len(large)))
	put32(0) // next IFD

	// SubIFD: thumbnail preview.
	put16(2)
	put16(0x0201)
	put16(4)
	put32(1)
	put32(smallOffset)
	put16(0x0202)
	put16(4)
	put32(1)
	put32(uint32(len(small)))
	put32(0)

	buf.Write(large)
	buf.Write(small)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
