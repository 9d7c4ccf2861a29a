package fileutil_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rawpick/internal/fileutil"
)

func TestCopyFileAtomicPreservesMtime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cr2")
	dst := filepath.Join(dir, "out", "a.cr2")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("raw bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	if err := fileutil.CopyFileAtomic(src, dst); err != nil {
		t.Fatalf("CopyFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "raw bytes" {
		t.Fatalf("unexpected contents %q", data)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Fatalf("mtime not preserved: %v", info.ModTime())
	}

	same, err := fileutil.SameContents(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Fatal("expected SameContents after copy")
	}
}

func TestCopyFileAtomicLeavesNoTempOnFailure(t *testing.T) {
	dir := t.TempDir()
	if err := fileutil.CopyFileAtomic(filepath.Join(dir, "missing.nef"), filepath.Join(dir, "out.nef")); err == nil {
		t.Fatal("expected error for missing source")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".rawpick-") {
			t.Fatalf("temp file leaked: %s", e.Name())
		}
	}
}

func TestSameContentsDetectsDifference(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.xmp")
	dst := filepath.Join(dir, "b.xmp")
	if err := os.WriteFile(src, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("other"), 0o644); err != nil {
		t.Fatal(err)
	}
	same, err := fileutil.SameContents(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if same {
		t.Fatal("different files reported as same")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.xmp")
	if err := fileutil.WriteFileAtomic(path, []byte("<xmp/>"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<xmp/>" {
		t.Fatalf("unexpected contents %q", data)
	}
}
