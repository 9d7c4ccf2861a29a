package rawdecode

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"

	"rawpick/internal/rawerr"
)

// jpegDecoder handles the paired JPEG side of an asset and plain JPEG input.
type jpegDecoder struct{}

func (jpegDecoder) Name() string { return "jpeg" }

func (jpegDecoder) Probe(header []byte, ext string) bool {
	return len(header) >= 2 && header[0] == 0xFF && header[1] == 0xD8
}

func (d jpegDecoder) Decode(path string) (*DecodedImage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrIOFailure, "rawdecode", "open", path, err)
	}
	defer file.Close()

	img, err := jpeg.Decode(file)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrCorruptFile, "rawdecode", "decode jpeg", path, err)
	}
	oriented := applyOrientation(toNRGBA(img), Orientation(path))
	return newDecoded(oriented, nil), nil
}

func (d jpegDecoder) ExtractThumb(path string) (image.Image, error) {
	decoded, err := d.Decode(path)
	if err != nil {
		return nil, err
	}
	return decoded.Pixels, nil
}

// scanDecoder is the fallback for RAW containers that are not TIFF shaped
// (CR3 is ISO-BMFF, RAF has a vendor header). It brute-scans the file for
// JPEG streams and decodes the largest one found. Slower than an IFD walk
// but keeps unsupported-container cameras culling-capable.
type scanDecoder struct{}

func (scanDecoder) Name() string { return "jpeg-scan" }

var scanExts = map[string]struct{}{".cr3": {}, ".raf": {}}

func (scanDecoder) Probe(header []byte, ext string) bool {
	if _, ok := scanExts[ext]; ok {
		return true
	}
	// RAF files announce themselves in the header.
	return bytes.HasPrefix(header, []byte("FUJIFILM"))
}

func (d scanDecoder) Decode(path string) (*DecodedImage, error) {
	streams, err := scanJPEGStreams(path)
	if err != nil {
		return nil, err
	}
	largest := streams[len(streams)-1]
	img, err := decodeJPEGBytes(largest)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrCorruptFile, "rawdecode", "decode scanned preview", path, err)
	}

	var thumb image.Image
	if len(streams) > 1 {
		if small, err := decodeJPEGBytes(streams[0]); err == nil {
			thumb = small
		}
	}
	return newDecoded(applyOrientation(img, Orientation(path)), thumb), nil
}

func (d scanDecoder) ExtractThumb(path string) (image.Image, error) {
	streams, err := scanJPEGStreams(path)
	if err != nil {
		return nil, err
	}
	img, err := decodeJPEGBytes(streams[0])
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrCorruptFile, "rawdecode", "decode scanned thumb", path, err)
	}
	return img, nil
}

// scanJPEGStreams returns the embedded JPEG byte ranges of the file sorted by
// ascending length. Fails with ErrUnsupportedFormat when none decode.
func scanJPEGStreams(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrIOFailure, "rawdecode", "read", path, err)
	}

	var streams [][]byte
	for start := 0; start < len(data)-4; {
		idx := bytes.Index(data[start:], []byte{0xFF, 0xD8, 0xFF})
		if idx < 0 {
			break
		}
		begin := start + idx
		end := bytes.Index(data[begin:], []byte{0xFF, 0xD9})
		if end < 0 {
			break
		}
		stream := data[begin : begin+end+2]
		// Validate cheaply before keeping: the config decode rejects
		// non-JPEG noise that happens to carry the markers.
		if _, _, err := image.DecodeConfig(bytes.NewReader(stream)); err == nil {
			streams = append(streams, stream)
		}
		start = begin + end + 2
	}
	if len(streams) == 0 {
		return nil, rawerr.Wrap(rawerr.ErrUnsupportedFormat, "rawdecode", "scan", "no embedded JPEG stream found", nil)
	}

	for i := 1; i < len(streams); i++ {
		for j := i; j > 0 && len(streams[j]) < len(streams[j-1]); j-- {
			streams[j], streams[j-1] = streams[j-1], streams[j]
		}
	}
	return streams, nil
}
