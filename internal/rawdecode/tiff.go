package rawdecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"sort"

	"rawpick/internal/rawerr"
)

// Most RAW containers (CR2, NEF, ARW, DNG, PEF, SRW, ORF, RW2) are TIFF
// structures carrying one or more embedded JPEG previews. tiffDecoder walks
// the IFD chain, collects every preview candidate, and decodes the one that
// fits the request. The sensor data itself is not demosaiced; the largest
// embedded preview is the decode target, which is what fast culling needs.
type tiffDecoder struct{}

func (tiffDecoder) Name() string { return "tiff-container" }

func (tiffDecoder) Probe(header []byte, ext string) bool {
	if len(header) < 4 {
		return false
	}
	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return false
	}
	magic := order.Uint16(header[2:4])
	switch magic {
	case 42: // classic TIFF (CR2, NEF, ARW, DNG, PEF)
		return true
	case 85: // Panasonic RW2
		return true
	case 0x4f52, 0x5352: // Olympus ORF variants
		return true
	default:
		return false
	}
}

func (d tiffDecoder) Decode(path string) (*DecodedImage, error) {
	previews, orientation, err := d.collectPreviews(path)
	if err != nil {
		return nil, err
	}
	if len(previews) == 0 {
		return nil, rawerr.Wrap(rawerr.ErrUnsupportedFormat, "rawdecode", "decode", fmt.Sprintf("no embedded preview in %s", path), nil)
	}

	// Largest candidate is the decode target; smallest becomes the thumb.
	largest := previews[len(previews)-1]
	img, err := decodeJPEGBytes(largest.data)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrCorruptFile, "rawdecode", "decode preview", path, err)
	}

	var thumb image.Image
	if len(previews) > 1 {
		if small, err := decodeJPEGBytes(previews[0].data); err == nil {
			thumb = applyOrientation(small, orientation)
		}
	}

	oriented := applyOrientation(img, orientation)
	return newDecoded(oriented, thumb), nil
}

func (d tiffDecoder) ExtractThumb(path string) (image.Image, error) {
	previews, orientation, err := d.collectPreviews(path)
	if err != nil {
		return nil, err
	}
	if len(previews) == 0 {
		return nil, rawerr.Wrap(rawerr.ErrUnsupportedFormat, "rawdecode", "extract thumb", fmt.Sprintf("no embedded preview in %s", path), nil)
	}
	img, err := decodeJPEGBytes(previews[0].data)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrCorruptFile, "rawdecode", "decode thumb", path, err)
	}
	return applyOrientation(img, orientation), nil
}

type previewCandidate struct {
	offset uint32
	length uint32
	data   []byte
}

// TIFF tags of interest.
const (
	tagStripOffsets    = 0x0111
	tagOrientation     = 0x0112
	tagStripByteCounts = 0x0117
	tagSubIFD          = 0x014a
	tagJPEGOffset      = 0x0201
	tagJPEGLength      = 0x0202
	tagExifIFD         = 0x8769
)

// collectPreviews walks IFD0, chained IFDs, and SubIFDs gathering embedded
// JPEG streams, sorted by ascending size. Offsets are validated against the
// file and streams against the JPEG SOI marker, so a lying container degrades
// to "no preview" rather than a bogus decode.
func (tiffDecoder) collectPreviews(path string) ([]previewCandidate, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, rawerr.Wrap(rawerr.ErrIOFailure, "rawdecode", "read", path, err)
	}
	if len(data) < 8 {
		return nil, 0, rawerr.Wrap(rawerr.ErrCorruptFile, "rawdecode", "parse header", "file shorter than TIFF header", nil)
	}

	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, 0, rawerr.Wrap(rawerr.ErrCorruptFile, "rawdecode", "parse header", "bad byte-order mark", nil)
	}

	walker := &ifdWalker{data: data, order: order, visited: map[uint32]bool{}}
	walker.walk(order.Uint32(data[4:8]), 0)

	candidates := walker.candidates
	for i := range candidates {
		end := int64(candidates[i].offset) + int64(candidates[i].length)
		if end > int64(len(data)) || candidates[i].length < 4 {
			candidates[i].data = nil
			continue
		}
		stream := data[candidates[i].offset:end]
		if !bytes.HasPrefix(stream, []byte{0xFF, 0xD8}) {
			candidates[i].data = nil
			continue
		}
		candidates[i].data = stream
	}

	valid := candidates[:0]
	for _, c := range candidates {
		if c.data != nil {
			valid = append(valid, c)
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].length < valid[j].length })
	return valid, walker.orientation, nil
}

type ifdWalker struct {
	data        []byte
	order       binary.ByteOrder
	visited     map[uint32]bool
	candidates  []previewCandidate
	orientation int
}

const maxIFDDepth = 8

func (w *ifdWalker) walk(offset uint32, depth int) {
	if depth > maxIFDDepth || offset == 0 || w.visited[offset] {
		return
	}
	w.visited[offset] = true

	if int64(offset)+2 > int64(len(w.data)) {
		return
	}
	count := int(w.order.Uint16(w.data[offset : offset+2]))
	entriesEnd := int64(offset) + 2 + int64(count)*12
	if entriesEnd+4 > int64(len(w.data)) {
		return
	}

	var jpegOffset, jpegLength uint32
	var stripOffset, stripLength uint32
	for i := 0; i < count; i++ {
		entry := w.data[int64(offset)+2+int64(i)*12:]
		tag := w.order.Uint16(entry[0:2])
		value := w.entryValue(entry)
		switch tag {
		case tagJPEGOffset:
			jpegOffset = value
		case tagJPEGLength:
			jpegLength = value
		case tagStripOffsets:
			stripOffset = value
		case tagStripByteCounts:
			stripLength = value
		case tagOrientation:
			if w.orientation == 0 && value >= 1 && value <= 8 {
				w.orientation = int(value)
			}
		case tagSubIFD:
			for _, sub := range w.entryValues(entry) {
				w.walk(sub, depth+1)
			}
		case tagExifIFD:
			w.walk(value, depth+1)
		}
	}

	if jpegOffset > 0 && jpegLength > 0 {
		w.candidates = append(w.candidates, previewCandidate{offset: jpegOffset, length: jpegLength})
	}
	// CR2 stores its full-size preview as a single JPEG strip in IFD0.
	if stripOffset > 0 && stripLength > 0 {
		w.candidates = append(w.candidates, previewCandidate{offset: stripOffset, length: stripLength})
	}

	next := w.order.Uint32(w.data[entriesEnd : entriesEnd+4])
	w.walk(next, depth+1)
}

// entryValue reads the first value of an IFD entry as uint32, handling SHORT
// and LONG field types.
func (w *ifdWalker) entryValue(entry []byte) uint32 {
	if len(entry) < 12 {
		return 0
	}
	fieldType := w.order.Uint16(entry[2:4])
	switch fieldType {
	case 3: // SHORT
		return uint32(w.order.Uint16(entry[8:10]))
	case 4: // LONG
		return w.order.Uint32(entry[8:12])
	default:
		return 0
	}
}

// entryValues reads every LONG value of an entry, following the offset
// indirection when the values do not fit inline.
func (w *ifdWalker) entryValues(entry []byte) []uint32 {
	if len(entry) < 12 {
		return nil
	}
	fieldType := w.order.Uint16(entry[2:4])
	if fieldType != 4 {
		return nil
	}
	count := w.order.Uint32(entry[4:8])
	if count == 0 || count > 64 {
		return nil
	}
	if count == 1 {
		return []uint32{w.order.Uint32(entry[8:12])}
	}
	start := w.order.Uint32(entry[8:12])
	end := int64(start) + int64(count)*4
	if end > int64(len(w.data)) {
		return nil
	}
	out := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		out = append(out, w.order.Uint32(w.data[start+i*4:start+i*4+4]))
	}
	return out
}

func decodeJPEGBytes(data []byte) (*image.NRGBA, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return toNRGBA(img), nil
}
