package rawdecode

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"rawpick/internal/rawerr"
)

// DecodedImage is the result of decoding one RAW (or paired JPEG) file.
type DecodedImage struct {
	Pixels *image.NRGBA
	Width  int
	Height int
	// BitDepth is the per-channel depth of the decoded buffer. Embedded
	// previews decode to 8.
	BitDepth int
	// ColorSpace tags the buffer; embedded previews are sRGB.
	ColorSpace string
	// Thumb is the smallest embedded preview, usable as an instant
	// placeholder while larger variants decode.
	Thumb     image.Image
	DecodedAt time.Time
}

// SizeBytes estimates the memory footprint of the decoded buffer, the cost
// the image cache charges against its budget.
func (d *DecodedImage) SizeBytes() int64 {
	if d == nil || d.Pixels == nil {
		return 0
	}
	return int64(len(d.Pixels.Pix))
}

// Decoder turns one RAW container format into a DecodedImage. Implementations
// must be stateless: Decode is called concurrently for distinct paths.
type Decoder interface {
	Name() string
	// Probe inspects the leading bytes and the lowercase extension and
	// reports whether this decoder can handle the file.
	Probe(header []byte, ext string) bool
	Decode(path string) (*DecodedImage, error)
	ExtractThumb(path string) (image.Image, error)
}

var (
	registryMu sync.RWMutex
	registry   []Decoder
)

// Register appends a decoder to the capability registry. Later registrations
// are probed first so callers can override the built-ins.
func Register(d Decoder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append([]Decoder{d}, registry...)
}

func init() {
	registry = []Decoder{&jpegDecoder{}, &scanDecoder{}, &tiffDecoder{}}
}

const headerProbeLen = 16

func decoderFor(path string) (Decoder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrIOFailure, "rawdecode", "open", path, err)
	}
	defer file.Close()

	header := make([]byte, headerProbeLen)
	n, err := io.ReadFull(file, header)
	if err != nil && n == 0 {
		return nil, rawerr.Wrap(rawerr.ErrCorruptFile, "rawdecode", "probe", "empty file", err)
	}
	header = header[:n]
	ext := strings.ToLower(filepath.Ext(path))

	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, d := range registry {
		if d.Probe(header, ext) {
			return d, nil
		}
	}
	return nil, rawerr.Wrap(rawerr.ErrUnsupportedFormat, "rawdecode", "probe", fmt.Sprintf("no decoder for %s", filepath.Base(path)), nil)
}

// Decode produces the full-resolution decoded buffer for path, with camera
// orientation already applied.
func Decode(path string) (*DecodedImage, error) {
	decoder, err := decoderFor(path)
	if err != nil {
		return nil, err
	}
	return decoder.Decode(path)
}

// DecodeHalf produces a half-resolution buffer for fast navigation previews.
func DecodeHalf(path string) (*DecodedImage, error) {
	full, err := Decode(path)
	if err != nil {
		return nil, err
	}
	if full.Width <= 1 {
		return full, nil
	}
	half := imaging.Resize(full.Pixels, full.Width/2, 0, imaging.Linear)
	return &DecodedImage{
		Pixels:     half,
		Width:      half.Bounds().Dx(),
		Height:     half.Bounds().Dy(),
		BitDepth:   full.BitDepth,
		ColorSpace: full.ColorSpace,
		Thumb:      full.Thumb,
		DecodedAt:  time.Now(),
	}, nil
}

// ExtractThumb returns the embedded thumbnail for an instant low-resolution
// placeholder while the full decode proceeds.
func ExtractThumb(path string) (image.Image, error) {
	decoder, err := decoderFor(path)
	if err != nil {
		return nil, err
	}
	return decoder.ExtractThumb(path)
}

// FromImage wraps an already-decoded image in a DecodedImage. Used for
// thumbnail placeholders and paired JPEGs that bypass the RAW decoders.
func FromImage(img image.Image) *DecodedImage {
	return newDecoded(toNRGBA(img), nil)
}

func newDecoded(pixels *image.NRGBA, thumb image.Image) *DecodedImage {
	bounds := pixels.Bounds()
	return &DecodedImage{
		Pixels:     pixels,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		BitDepth:   8,
		ColorSpace: "sRGB",
		Thumb:      thumb,
		DecodedAt:  time.Now(),
	}
}
