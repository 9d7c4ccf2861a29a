package cullstate_test

import (
	"errors"
	"testing"

	"rawpick/internal/cullstate"
	"rawpick/internal/rawerr"
	"rawpick/internal/scanner"
	"rawpick/internal/testsupport"
)

func newStore(t *testing.T, names ...string) (*cullstate.Store, *scanner.Catalog) {
	t.Helper()
	dir := testsupport.PhotoFolder(t, names...)
	catalog, err := scanner.New().Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return cullstate.NewStore(catalog), catalog
}

func TestDefaultsSeeded(t *testing.T) {
	store, catalog := newStore(t, "a.cr2", "b.nef")
	for _, asset := range catalog.Assets {
		state, err := store.Get(asset.Path)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if state.Picked || state.Rating != 0 || state.Label != cullstate.LabelNone || state.Dirty {
			t.Fatalf("unexpected default state %+v", state)
		}
	}
}

func TestTogglePickTwiceRestoresPrior(t *testing.T) {
	store, catalog := newStore(t, "a.cr2")
	path := catalog.Assets[0].Path

	first, err := store.TogglePick(path)
	if err != nil || !first {
		t.Fatalf("first toggle: %v %v", first, err)
	}
	second, err := store.TogglePick(path)
	if err != nil || second {
		t.Fatalf("second toggle: %v %v", second, err)
	}
	state, _ := store.Get(path)
	if state.Picked {
		t.Fatal("pick state should be restored after double toggle")
	}
	if !state.Dirty {
		t.Fatal("mutations must set the dirty flag even when the value round-trips")
	}
}

func TestToggleRatingSameValueResetsToZero(t *testing.T) {
	store, catalog := newStore(t, "a.cr2")
	path := catalog.Assets[0].Path

	if got, err := store.ToggleRating(path, 4); err != nil || got != 4 {
		t.Fatalf("ToggleRating = %d, %v", got, err)
	}
	if got, err := store.ToggleRating(path, 4); err != nil || got != 0 {
		t.Fatalf("repeat ToggleRating = %d, %v; want 0", got, err)
	}
}

func TestRatingAndLabelIndependent(t *testing.T) {
	store, catalog := newStore(t, "a.cr2")
	path := catalog.Assets[0].Path

	if err := store.SetRating(path, 3); err != nil {
		t.Fatal(err)
	}
	if err := store.SetLabel(path, cullstate.LabelBlue); err != nil {
		t.Fatal(err)
	}
	if err := store.SetRating(path, 5); err != nil {
		t.Fatal(err)
	}
	state, _ := store.Get(path)
	if state.Label != cullstate.LabelBlue {
		t.Fatalf("changing rating clobbered label: %+v", state)
	}
}

func TestInvalidValuesRejected(t *testing.T) {
	store, catalog := newStore(t, "a.cr2")
	path := catalog.Assets[0].Path

	if err := store.SetRating(path, 6); !errors.Is(err, rawerr.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for rating 6, got %v", err)
	}
	if err := store.SetRating(path, -1); !errors.Is(err, rawerr.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for rating -1, got %v", err)
	}
	if err := store.SetLabel(path, cullstate.Label("magenta")); !errors.Is(err, rawerr.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for unknown label, got %v", err)
	}
	if _, err := store.Get("/nowhere/x.cr2"); !errors.Is(err, rawerr.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for unknown asset, got %v", err)
	}

	// Rejected mutations must not dirty the state.
	state, _ := store.Get(path)
	if state.Dirty {
		t.Fatal("invalid mutation dirtied the state")
	}
}

func TestFilterPickedKeepsScanOrder(t *testing.T) {
	store, catalog := newStore(t, "a.cr2", "b.cr2", "c.cr2")
	if _, err := store.TogglePick(catalog.Assets[2].Path); err != nil {
		t.Fatal(err)
	}
	if _, err := store.TogglePick(catalog.Assets[0].Path); err != nil {
		t.Fatal(err)
	}

	picked := store.FilterPicked()
	if len(picked) != 2 {
		t.Fatalf("expected 2 picked, got %d", len(picked))
	}
	if picked[0].Path != catalog.Assets[0].Path || picked[1].Path != catalog.Assets[2].Path {
		t.Fatal("picked assets not in scan order")
	}
}

func TestApplySidecarWinsWithoutDirty(t *testing.T) {
	store, catalog := newStore(t, "a.cr2")
	path := catalog.Assets[0].Path

	picked := true
	rating := 4
	label := cullstate.LabelGreen
	if err := store.ApplySidecar(path, &picked, &rating, &label); err != nil {
		t.Fatal(err)
	}
	state, _ := store.Get(path)
	if !state.Picked || state.Rating != 4 || state.Label != cullstate.LabelGreen {
		t.Fatalf("sidecar values not applied: %+v", state)
	}
	if state.Dirty {
		t.Fatal("sidecar merge must not dirty the state")
	}
}

func TestApplySidecarIfCleanSkipsDirtyState(t *testing.T) {
	store, catalog := newStore(t, "a.cr2")
	path := catalog.Assets[0].Path

	if err := store.SetRating(path, 3); err != nil {
		t.Fatal(err)
	}

	rating := 5
	applied, err := store.ApplySidecarIfClean(path, nil, &rating, nil)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Fatal("external merge applied over an unflushed local edit")
	}
	state, _ := store.Get(path)
	if state.Rating != 3 || !state.Dirty {
		t.Fatalf("local decision lost: %+v", state)
	}

	store.MarkFlushed(path, state.Revision)
	applied, err = store.ApplySidecarIfClean(path, nil, &rating, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Fatal("external merge skipped on a clean state")
	}
	state, _ = store.Get(path)
	if state.Rating != 5 || state.Dirty {
		t.Fatalf("merge outcome wrong: %+v", state)
	}

	// Identical values report no change.
	applied, err = store.ApplySidecarIfClean(path, nil, &rating, nil)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Fatal("no-op merge reported a change")
	}
}

func TestMarkFlushedRespectsRevision(t *testing.T) {
	store, catalog := newStore(t, "a.cr2")
	path := catalog.Assets[0].Path

	if err := store.SetRating(path, 2); err != nil {
		t.Fatal(err)
	}
	snap, _ := store.Get(path)

	// A newer edit lands while the flush is in flight.
	if err := store.SetRating(path, 3); err != nil {
		t.Fatal(err)
	}
	store.MarkFlushed(path, snap.Revision)
	state, _ := store.Get(path)
	if !state.Dirty {
		t.Fatal("stale flush must not clear dirty")
	}

	current, _ := store.Get(path)
	store.MarkFlushed(path, current.Revision)
	state, _ = store.Get(path)
	if state.Dirty {
		t.Fatal("up-to-date flush should clear dirty")
	}
}

func TestSnapshotIsPointInTime(t *testing.T) {
	store, catalog := newStore(t, "a.cr2", "b.cr2")
	snap := store.Snapshot()
	if _, err := store.TogglePick(catalog.Assets[0].Path); err != nil {
		t.Fatal(err)
	}
	if snap[0].State.Picked {
		t.Fatal("snapshot observed a later mutation")
	}
}
