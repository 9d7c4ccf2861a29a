package rawdecode_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rawpick/internal/rawdecode"
	"rawpick/internal/rawerr"
	"rawpick/internal/testsupport"
)

func TestDecodeTIFFContainerUsesLargestPreview(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.cr2")
	testsupport.WriteTIFFRaw(t, path, 320, 240, 1)

	decoded, err := rawdecode.Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Width != 320 || decoded.Height != 240 {
		t.Fatalf("expected largest preview 320x240, got %dx%d", decoded.Width, decoded.Height)
	}
	if decoded.BitDepth != 8 || decoded.ColorSpace != "sRGB" {
		t.Fatalf("unexpected buffer tags: depth=%d space=%s", decoded.BitDepth, decoded.ColorSpace)
	}
	if decoded.Thumb == nil {
		t.Fatal("expected the small preview surfaced as thumb")
	}
	if decoded.SizeBytes() != int64(320*240*4) {
		t.Fatalf("unexpected size estimate %d", decoded.SizeBytes())
	}
}

func TestDecodeAppliesOrientation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotated.nef")
	// Orientation 6: stored landscape, displays portrait.
	testsupport.WriteTIFFRaw(t, path, 320, 240, 6)

	decoded, err := rawdecode.Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Width != 240 || decoded.Height != 320 {
		t.Fatalf("orientation 6 should swap dimensions, got %dx%d", decoded.Width, decoded.Height)
	}
}

func TestDecodeHalfHalvesDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.arw")
	testsupport.WriteTIFFRaw(t, path, 320, 240, 1)

	half, err := rawdecode.DecodeHalf(path)
	if err != nil {
		t.Fatalf("DecodeHalf failed: %v", err)
	}
	if half.Width != 160 || half.Height != 120 {
		t.Fatalf("expected 160x120, got %dx%d", half.Width, half.Height)
	}
}

func TestExtractThumbReturnsSmallestPreview(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.dng")
	testsupport.WriteTIFFRaw(t, path, 320, 240, 1)

	thumb, err := rawdecode.ExtractThumb(path)
	if err != nil {
		t.Fatalf("ExtractThumb failed: %v", err)
	}
	bounds := thumb.Bounds()
	if bounds.Dx() >= 320 {
		t.Fatalf("thumb should be the small preview, got width %d", bounds.Dx())
	}
}

func TestDecodePlainJPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paired.jpg")
	testsupport.WriteJPEG(t, path, 120, 80)

	decoded, err := rawdecode.Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Width != 120 || decoded.Height != 80 {
		t.Fatalf("unexpected dimensions %dx%d", decoded.Width, decoded.Height)
	}
}

func TestDecodeScansNonTIFFContainers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modern.cr3")
	// A CR3 is not TIFF shaped; embed a JPEG mid-file behind opaque bytes.
	jpegData := testsupport.EncodeJPEG(t, testsupport.GradientImage(64, 48))
	blob := append(append(make([]byte, 0, len(jpegData)+32), []byte("ftypcrx markerftypcrx padding abc")...), jpegData...)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatal(err)
	}

	decoded, err := rawdecode.Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Width != 64 || decoded.Height != 48 {
		t.Fatalf("unexpected dimensions %dx%d", decoded.Width, decoded.Height)
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("not an image at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := rawdecode.Decode(path)
	if !errors.Is(err, rawerr.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeCorruptContainer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.cr2")
	// Valid TIFF header, truncated immediately after.
	if err := os.WriteFile(path, []byte{'I', 'I', 42, 0, 8, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := rawdecode.Decode(path)
	if err == nil {
		t.Fatal("expected error for truncated container")
	}
	if !errors.Is(err, rawerr.ErrUnsupportedFormat) && !errors.Is(err, rawerr.ErrCorruptFile) {
		t.Fatalf("expected decode taxonomy error, got %v", err)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	_, err := rawdecode.Decode(filepath.Join(t.TempDir(), "gone.cr2"))
	if !errors.Is(err, rawerr.ErrIOFailure) {
		t.Fatalf("expected ErrIOFailure, got %v", err)
	}
}

func TestOrientationUnknownForPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.jpg")
	testsupport.WriteJPEG(t, path, 16, 16)
	if got := rawdecode.Orientation(path); got != 0 {
		t.Fatalf("expected 0 for EXIF-less jpeg, got %d", got)
	}
}
