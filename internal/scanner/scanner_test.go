package scanner_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"rawpick/internal/scanner"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanOrdersLexicographically(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.nef", "a.cr2", "b.arw")

	catalog, err := scanner.New().Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	var names []string
	for _, asset := range catalog.Assets {
		names = append(names, filepath.Base(asset.Path))
	}
	want := []string{"a.cr2", "b.arw", "c.nef"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
}

func TestScanStableAcrossRescans(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "z.dng", "m.raf", "a.orf", "a.jpg")

	first, err := scanner.New().Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	second, err := scanner.New().Scan(dir)
	if err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if !reflect.DeepEqual(first.Assets, second.Assets) {
		t.Fatal("rescan of unchanged folder produced a different sequence")
	}
}

func TestScanIgnoresSubfoldersSilently(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "top.cr2", filepath.Join("nested", "hidden.cr2"))

	catalog, err := scanner.New().Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if catalog.Len() != 1 {
		t.Fatalf("expected 1 asset, got %d", catalog.Len())
	}
	if filepath.Base(catalog.Assets[0].Path) != "top.cr2" {
		t.Fatalf("unexpected asset %s", catalog.Assets[0].Path)
	}
}

func TestScanPairsSameStemJPEG(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.cr2", "a.jpg", "b.nef", "c.arw", "c.jpeg", "unrelated.jpg")

	catalog, err := scanner.New().Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	byStem := map[string]scanner.PhotoAsset{}
	for _, asset := range catalog.Assets {
		byStem[asset.Stem()] = asset
	}

	if !byStem["a"].HasPairing() || filepath.Base(byStem["a"].JPEGPath) != "a.jpg" {
		t.Fatalf("a.cr2 should pair with a.jpg, got %q", byStem["a"].JPEGPath)
	}
	if byStem["b"].HasPairing() {
		t.Fatal("b.nef has no pairing and must not report one")
	}
	if !byStem["c"].HasPairing() || filepath.Base(byStem["c"].JPEGPath) != "c.jpeg" {
		t.Fatalf("c.arw should pair with c.jpeg, got %q", byStem["c"].JPEGPath)
	}
}

func TestScanSkipsUnrecognizedExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.cr2", "notes.txt", "b.tiff", "c.jpg")

	catalog, err := scanner.New().Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if catalog.Len() != 1 {
		t.Fatalf("expected only a.cr2, got %d assets", catalog.Len())
	}
}

func TestSidecarPath(t *testing.T) {
	asset := scanner.PhotoAsset{Path: "/photos/IMG_0001.CR2"}
	if got := asset.SidecarPath(); got != "/photos/IMG_0001.xmp" {
		t.Fatalf("unexpected sidecar path %q", got)
	}
}

func TestLookupAndIndex(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.cr2", "b.cr2")

	catalog, err := scanner.New().Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	path := catalog.Assets[1].Path
	if idx, ok := catalog.Index(path); !ok || idx != 1 {
		t.Fatalf("Index(%q) = %d,%v", path, idx, ok)
	}
	if _, ok := catalog.Lookup(filepath.Join(dir, "missing.cr2")); ok {
		t.Fatal("Lookup of unknown path should fail")
	}
}
