package export_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rawpick/internal/cullstate"
	"rawpick/internal/export"
	"rawpick/internal/rawerr"
	"rawpick/internal/scanner"
	"rawpick/internal/testsupport"
	"rawpick/internal/xmpsync"
)

func newSession(t *testing.T, names ...string) (*cullstate.Store, *xmpsync.Syncer, string) {
	t.Helper()
	dir := testsupport.PhotoFolder(t, names...)
	catalog, err := scanner.New().Scan(dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	store := cullstate.NewStore(catalog)
	return store, xmpsync.NewSyncer(store, nil), dir
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func assertNames(t *testing.T, dir string, want ...string) {
	t.Helper()
	got := listNames(t, dir)
	if len(got) != len(want) {
		t.Fatalf("%s holds %v, want %v", dir, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s holds %v, want %v", dir, got, want)
		}
	}
}

func TestExportPickedAssets(t *testing.T) {
	store, syncer, root := newSession(t, "a.nef", "a.jpg", "b.nef", "b.jpg", "c.nef")

	pathA := filepath.Join(root, "a.nef")
	pathC := filepath.Join(root, "c.nef")
	if err := store.SetPicked(pathA, true); err != nil {
		t.Fatalf("pick a: %v", err)
	}
	if err := store.SetRating(pathA, 4); err != nil {
		t.Fatalf("rate a: %v", err)
	}
	if err := store.SetPicked(pathC, true); err != nil {
		t.Fatalf("pick c: %v", err)
	}

	engine := export.NewEngine(store, syncer, nil)
	manifest, err := engine.Export(context.Background(), export.Options{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if manifest.RunID == "" {
		t.Fatal("manifest missing run id")
	}
	if len(manifest.Items) != 2 {
		t.Fatalf("%d items, want picked a and c only", len(manifest.Items))
	}

	assertNames(t, manifest.RawDir, "a.nef", "a.xmp", "c.nef", "c.xmp")
	assertNames(t, manifest.JPEGDir, "a.jpg")

	itemC := manifest.Items[1]
	if itemC.Asset.Path != pathC {
		t.Fatalf("items out of scan order: %+v", manifest.Items)
	}
	if itemC.JPEG.Outcome != export.OutcomeNoPairing {
		t.Fatalf("c jpeg outcome %q, want no-pairing skip", itemC.JPEG.Outcome)
	}
	if itemC.Failed() {
		t.Fatal("missing pairing must not count as failure")
	}

	// The exported sidecar carries the decisions.
	record, err := xmpsync.ReadSidecar(filepath.Join(manifest.RawDir, "a.xmp"))
	if err != nil {
		t.Fatalf("read exported sidecar: %v", err)
	}
	if record.Rating == nil || *record.Rating != 4 {
		t.Fatal("exported sidecar lost the rating")
	}
	if record.Picked == nil || !*record.Picked {
		t.Fatal("exported sidecar lost the pick")
	}
}

func TestExportNothingPicked(t *testing.T) {
	store, syncer, _ := newSession(t, "a.nef")
	engine := export.NewEngine(store, syncer, nil)
	manifest, err := engine.Export(context.Background(), export.Options{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(manifest.Items) != 0 {
		t.Fatalf("%d items for an empty selection", len(manifest.Items))
	}
	assertNames(t, manifest.RawDir)
}

func TestExportSkipsIdenticalDestinations(t *testing.T) {
	store, syncer, root := newSession(t, "a.nef")
	pathA := filepath.Join(root, "a.nef")
	if err := store.SetPicked(pathA, true); err != nil {
		t.Fatalf("pick: %v", err)
	}

	engine := export.NewEngine(store, syncer, nil)
	if _, err := engine.Export(context.Background(), export.Options{}); err != nil {
		t.Fatalf("first export: %v", err)
	}
	manifest, err := engine.Export(context.Background(), export.Options{})
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if got := manifest.Items[0].Raw.Outcome; got != export.OutcomeUpToDate {
		t.Fatalf("re-export outcome %q, want up-to-date", got)
	}
}

func TestExportRefreshesStaleDestination(t *testing.T) {
	store, syncer, root := newSession(t, "a.nef")
	pathA := filepath.Join(root, "a.nef")
	if err := store.SetPicked(pathA, true); err != nil {
		t.Fatalf("pick: %v", err)
	}

	rawDir := filepath.Join(root, "_selected_raw")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(rawDir, "a.nef"), []byte("stale from an earlier run"), 0o644); err != nil {
		t.Fatalf("seed stale: %v", err)
	}

	engine := export.NewEngine(store, syncer, nil)
	manifest, err := engine.Export(context.Background(), export.Options{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if got := manifest.Items[0].Raw.Outcome; got != export.OutcomeCopied {
		t.Fatalf("stale refresh outcome %q, want copied", got)
	}
	data, err := os.ReadFile(filepath.Join(rawDir, "a.nef"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "fixture" {
		t.Fatalf("destination not refreshed: %q", data)
	}
}

func TestExportMissingSourceIsPerItemFailure(t *testing.T) {
	store, syncer, root := newSession(t, "a.nef", "b.nef")
	pathA := filepath.Join(root, "a.nef")
	pathB := filepath.Join(root, "b.nef")
	for _, path := range []string{pathA, pathB} {
		if err := store.SetPicked(path, true); err != nil {
			t.Fatalf("pick: %v", err)
		}
	}
	if err := os.Remove(pathA); err != nil {
		t.Fatalf("remove source: %v", err)
	}

	engine := export.NewEngine(store, syncer, nil)
	manifest, err := engine.Export(context.Background(), export.Options{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if manifest.Failures() != 1 {
		t.Fatalf("failures=%d, want the vanished source only", manifest.Failures())
	}
	if !errors.Is(manifest.Items[0].Raw.Err, rawerr.ErrIOFailure) {
		t.Fatalf("raw err=%v", manifest.Items[0].Raw.Err)
	}
	// b still landed.
	if manifest.Items[1].Raw.Outcome != export.OutcomeCopied {
		t.Fatalf("surviving item outcome %q", manifest.Items[1].Raw.Outcome)
	}
}

func TestExportCancelStopsBeforeNextItem(t *testing.T) {
	store, syncer, root := newSession(t, "a.nef", "b.nef", "c.nef")
	for _, name := range []string{"a.nef", "b.nef", "c.nef"} {
		if err := store.SetPicked(filepath.Join(root, name), true); err != nil {
			t.Fatalf("pick: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	engine := export.NewEngine(store, syncer, nil)
	manifest, err := engine.Export(ctx, export.Options{
		Concurrency: 1,
		OnItem:      func(export.Item) { cancel() },
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if len(manifest.Items) != 1 {
		t.Fatalf("%d items ran after cancel, want 1", len(manifest.Items))
	}
	assertNames(t, manifest.RawDir, "a.nef", "a.xmp")
	// No partial files: everything present is complete, nothing temp-named.
	for _, name := range listNames(t, manifest.RawDir) {
		if strings.Contains(name, "rawpick-copy") {
			t.Fatalf("partial temp file left behind: %s", name)
		}
	}
}

func TestExportPruneRemovesUnpickedLeftovers(t *testing.T) {
	store, syncer, root := newSession(t, "a.nef", "b.nef", "b.jpg")
	pathA := filepath.Join(root, "a.nef")
	pathB := filepath.Join(root, "b.nef")

	for _, path := range []string{pathA, pathB} {
		if err := store.SetPicked(path, true); err != nil {
			t.Fatalf("pick: %v", err)
		}
	}
	engine := export.NewEngine(store, syncer, nil)
	if _, err := engine.Export(context.Background(), export.Options{}); err != nil {
		t.Fatalf("first export: %v", err)
	}

	// b falls out of the selection; prune mirrors the folders.
	if err := store.SetPicked(pathB, false); err != nil {
		t.Fatalf("unpick: %v", err)
	}
	manifest, err := engine.Export(context.Background(), export.Options{Prune: true})
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	assertNames(t, manifest.RawDir, "a.nef", "a.xmp")
	assertNames(t, manifest.JPEGDir)
	if len(manifest.Pruned) != 3 {
		t.Fatalf("pruned %v, want b.nef, b.xmp and b.jpg", manifest.Pruned)
	}
}

func TestExportFreeSpacePreflight(t *testing.T) {
	store, syncer, root := newSession(t, "a.nef")
	if err := store.SetPicked(filepath.Join(root, "a.nef"), true); err != nil {
		t.Fatalf("pick: %v", err)
	}

	engine := export.NewEngine(store, syncer, nil)
	engine.SetStatfs(func(string) (uint64, error) { return 3, nil })
	_, err := engine.Export(context.Background(), export.Options{})
	if !errors.Is(err, rawerr.ErrIOFailure) {
		t.Fatalf("err=%v, want preflight failure", err)
	}
	assertNames(t, filepath.Join(root, "_selected_raw"))
}

func TestExportCustomFolderNames(t *testing.T) {
	store, syncer, root := newSession(t, "a.nef")
	if err := store.SetPicked(filepath.Join(root, "a.nef"), true); err != nil {
		t.Fatalf("pick: %v", err)
	}
	engine := export.NewEngine(store, syncer, nil)
	manifest, err := engine.Export(context.Background(), export.Options{
		RawFolderName:  "keepers",
		JPEGFolderName: "keepers_jpeg",
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if manifest.RawDir != filepath.Join(root, "keepers") {
		t.Fatalf("raw dir %s", manifest.RawDir)
	}
	assertNames(t, manifest.RawDir, "a.nef", "a.xmp")
}
