package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"rawpick/internal/rawerr"
)

// PhotoAsset identifies one RAW file in the session folder. The absolute RAW
// path is the identity used as the key everywhere downstream. Immutable once
// the scan completes.
type PhotoAsset struct {
	Path        string
	Size        int64
	ModTime     time.Time
	JPEGPath    string // same-stem pairing, empty when absent
	Orientation int    // EXIF orientation 1-8, 0 when unknown
}

// Stem returns the filename without directory or extension, the key used for
// pairing and sidecar lookup.
func (a PhotoAsset) Stem() string {
	base := filepath.Base(a.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SidecarPath returns the XMP sidecar path for this asset.
func (a PhotoAsset) SidecarPath() string {
	return strings.TrimSuffix(a.Path, filepath.Ext(a.Path)) + ".xmp"
}

// HasPairing reports whether a same-stem JPEG was found next to the RAW.
func (a PhotoAsset) HasPairing() bool {
	return a.JPEGPath != ""
}

// Catalog is the ordered result of scanning one folder.
type Catalog struct {
	Root   string
	Assets []PhotoAsset

	byPath map[string]int
}

// Lookup returns the asset for the given RAW path.
func (c *Catalog) Lookup(path string) (PhotoAsset, bool) {
	idx, ok := c.byPath[path]
	if !ok {
		return PhotoAsset{}, false
	}
	return c.Assets[idx], true
}

// Index returns the scan-order position of the given RAW path.
func (c *Catalog) Index(path string) (int, bool) {
	idx, ok := c.byPath[path]
	return idx, ok
}

// Len returns the number of photos in the catalog.
func (c *Catalog) Len() int {
	return len(c.Assets)
}

// OrientationReader extracts the camera orientation for a file. The decoder
// provides one; the scanner only records the value.
type OrientationReader func(path string) int

// Scanner enumerates RAW files directly under a folder and pairs each with a
// same-stem JPEG when present. Subfolders are ignored.
type Scanner struct {
	readOrientation OrientationReader
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithOrientationReader supplies the EXIF orientation probe.
func WithOrientationReader(fn OrientationReader) Option {
	return func(s *Scanner) { s.readOrientation = fn }
}

// New constructs a Scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan builds the catalog for folder. Ordering is filename lexicographic and
// stable across repeated scans of an unchanged folder. A RAW without a JPEG
// pairing is normal, not an error.
func (s *Scanner) Scan(folder string) (*Catalog, error) {
	root, err := filepath.Abs(folder)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrIOFailure, "scanner", "resolve folder", folder, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ErrIOFailure, "scanner", "read folder", root, err)
	}

	jpegByStem := make(map[string]string)
	var rawNames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case IsRawExt(ext):
			rawNames = append(rawNames, name)
		case IsJPEGExt(ext):
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			// First pairing wins so repeated scans stay deterministic even
			// when both .jpg and .jpeg exist for one stem.
			if _, ok := jpegByStem[stem]; !ok {
				jpegByStem[stem] = filepath.Join(root, name)
			}
		}
	}
	sort.Strings(rawNames)

	catalog := &Catalog{
		Root:   root,
		Assets: make([]PhotoAsset, 0, len(rawNames)),
		byPath: make(map[string]int, len(rawNames)),
	}
	for _, name := range rawNames {
		path := filepath.Join(root, name)
		info, err := os.Stat(path)
		if err != nil {
			// File vanished between ReadDir and Stat; skip rather than fail
			// the whole scan.
			continue
		}
		asset := PhotoAsset{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		stem := asset.Stem()
		if jpeg, ok := jpegByStem[stem]; ok {
			asset.JPEGPath = jpeg
		}
		if s.readOrientation != nil {
			asset.Orientation = s.readOrientation(path)
		}
		catalog.byPath[path] = len(catalog.Assets)
		catalog.Assets = append(catalog.Assets, asset)
	}

	if catalog.Len() == 0 {
		return catalog, nil
	}
	return catalog, nil
}

// JPEGsByStem lists same-stem JPEG files directly under folder, used by the
// export prune pass.
func JPEGsByStem(folder string) (map[string]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	out := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !IsJPEGExt(strings.ToLower(filepath.Ext(name))) {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if _, ok := out[stem]; !ok {
			out[stem] = filepath.Join(folder, name)
		}
	}
	return out, nil
}
