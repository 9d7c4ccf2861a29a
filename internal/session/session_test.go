package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rawpick/internal/cullstate"
	"rawpick/internal/session"
	"rawpick/internal/sessionstore"
	"rawpick/internal/testsupport"
	"rawpick/internal/xmpsync"
)

func openSession(t *testing.T, names ...string) *session.Session {
	t.Helper()
	root := testsupport.PhotoFolder(t, names...)
	cfg := testsupport.NewConfig(t)
	sess, err := session.Open(context.Background(), cfg, root, session.Options{})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { sess.Close(context.Background()) })
	return sess
}

func waitEvent(t *testing.T, sess *session.Session, kind session.EventKind) session.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-sess.Events():
			if !ok {
				t.Fatal("event channel closed while waiting")
			}
			if event.Kind == kind {
				return event
			}
		case <-deadline:
			t.Fatalf("no event of kind %d arrived", kind)
		}
	}
}

func TestOpenLocksFolderAgainstSecondSession(t *testing.T) {
	root := testsupport.PhotoFolder(t, "a.nef")
	cfg := testsupport.NewConfig(t)

	first, err := session.Open(context.Background(), cfg, root, session.Options{})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := session.Open(context.Background(), cfg, root, session.Options{}); err == nil {
		t.Fatal("second session opened a locked folder")
	}

	if err := first.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := session.Open(context.Background(), cfg, root, session.Options{})
	if err != nil {
		t.Fatalf("open after close: %v", err)
	}
	second.Close(context.Background())
}

func TestNavigationClampsAtEdges(t *testing.T) {
	sess := openSession(t, "a.nef", "b.nef", "c.nef")
	ctx := context.Background()

	view, err := sess.Apply(ctx, session.NavigatePrev())
	if err != nil {
		t.Fatalf("prev at start: %v", err)
	}
	if view.Index != 0 {
		t.Fatalf("index %d, want clamp at 0", view.Index)
	}

	for i := 0; i < 10; i++ {
		view, err = sess.Apply(ctx, session.NavigateNext())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	if view.Index != 2 {
		t.Fatalf("index %d, want clamp at last photo", view.Index)
	}
	if view.Total != 3 {
		t.Fatalf("total %d", view.Total)
	}
}

func TestIntentsMutateCurrentPhoto(t *testing.T) {
	sess := openSession(t, "a.nef", "b.nef")
	ctx := context.Background()

	view, err := sess.Apply(ctx, session.TogglePick())
	if err != nil {
		t.Fatalf("toggle pick: %v", err)
	}
	if !view.State.Picked || view.Picked != 1 {
		t.Fatalf("pick not applied: %+v", view)
	}

	view, err = sess.Apply(ctx, session.ToggleRating(3))
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if view.State.Rating != 3 {
		t.Fatalf("rating %d", view.State.Rating)
	}
	view, err = sess.Apply(ctx, session.ToggleRating(3))
	if err != nil {
		t.Fatalf("re-rate: %v", err)
	}
	if view.State.Rating != 0 {
		t.Fatal("same-rating toggle did not reset to 0")
	}

	view, err = sess.Apply(ctx, session.ToggleLabel(cullstate.LabelRed))
	if err != nil {
		t.Fatalf("label: %v", err)
	}
	if view.State.Label != cullstate.LabelRed {
		t.Fatalf("label %q", view.State.Label)
	}
	view, err = sess.Apply(ctx, session.ToggleLabel(cullstate.LabelRed))
	if err != nil {
		t.Fatalf("re-label: %v", err)
	}
	if view.State.Label != cullstate.LabelNone {
		t.Fatal("same-label toggle did not clear")
	}

	if _, err := sess.Apply(ctx, session.SetRating(9)); err == nil {
		t.Fatal("out-of-range rating accepted")
	}
}

func TestNavigatingAwayFlushesDirtyPhoto(t *testing.T) {
	sess := openSession(t, "a.nef", "b.nef")
	ctx := context.Background()

	if _, err := sess.Apply(ctx, session.SetRating(4)); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if _, err := sess.Apply(ctx, session.NavigateNext()); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	event := waitEvent(t, sess, session.EventFlushed)
	record, err := xmpsync.ReadSidecar(filepath.Join(filepath.Dir(event.Path), "a.xmp"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if record.Rating == nil || *record.Rating != 4 {
		t.Fatal("navigation flush did not land the rating")
	}
}

func TestSaveIntentFlushesAllDirty(t *testing.T) {
	sess := openSession(t, "a.nef", "b.nef")
	ctx := context.Background()

	if _, err := sess.Apply(ctx, session.TogglePick()); err != nil {
		t.Fatalf("pick a: %v", err)
	}
	if _, err := sess.Apply(ctx, session.NavigateNext()); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if _, err := sess.Apply(ctx, session.SetRating(2)); err != nil {
		t.Fatalf("rate b: %v", err)
	}
	if _, err := sess.Apply(ctx, session.Save()); err != nil {
		t.Fatalf("save: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(sess.Store().Dirty()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%d entries still dirty after save", len(sess.Store().Dirty()))
}

func TestCloseFlushesOutstandingDecisions(t *testing.T) {
	root := testsupport.PhotoFolder(t, "a.nef")
	cfg := testsupport.NewConfig(t)
	sess, err := session.Open(context.Background(), cfg, root, session.Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := sess.Apply(context.Background(), session.SetRating(5)); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if err := sess.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	record, err := xmpsync.ReadSidecar(filepath.Join(root, "a.xmp"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if record.Rating == nil || *record.Rating != 5 {
		t.Fatal("close lost the unflushed rating")
	}
}

func TestOpenMergesExistingSidecars(t *testing.T) {
	root := testsupport.PhotoFolder(t, "a.nef")
	if err := xmpsync.WriteSidecar(filepath.Join(root, "a.xmp"), cullstate.State{Picked: true, Rating: 3}); err != nil {
		t.Fatalf("seed sidecar: %v", err)
	}

	cfg := testsupport.NewConfig(t)
	sess, err := session.Open(context.Background(), cfg, root, session.Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sess.Close(context.Background())

	view := sess.View()
	if !view.State.Picked || view.State.Rating != 3 {
		t.Fatalf("sidecar decisions not loaded: %+v", view.State)
	}
	if view.State.Dirty {
		t.Fatal("loaded decisions must not be dirty")
	}
}

func TestExternalSidecarEditMerges(t *testing.T) {
	sess := openSession(t, "a.nef", "b.nef")

	// Simulate another tool rating the clean photo b.
	pathB := sess.Catalog().Assets[1].Path
	sidecarB := filepath.Join(filepath.Dir(pathB), "b.xmp")
	if err := xmpsync.WriteSidecar(sidecarB, cullstate.State{Rating: 5}); err != nil {
		t.Fatalf("external write: %v", err)
	}

	event := waitEvent(t, sess, session.EventSidecarChanged)
	if event.Path != pathB {
		t.Fatalf("merged %s, want %s", event.Path, pathB)
	}
	state, err := sess.Store().Get(pathB)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state.Rating != 5 {
		t.Fatalf("external rating not merged: %+v", state)
	}
}

func TestExternalSidecarEditSkipsDirtyPhoto(t *testing.T) {
	sess := openSession(t, "a.nef")
	pathA := sess.Catalog().Assets[0].Path

	if _, err := sess.Apply(context.Background(), session.SetRating(3)); err != nil {
		t.Fatalf("rate: %v", err)
	}

	// Another tool rewrites the sidecar while the local edit is unflushed.
	sidecarA := filepath.Join(filepath.Dir(pathA), "a.xmp")
	if err := xmpsync.WriteSidecar(sidecarA, cullstate.State{Rating: 5}); err != nil {
		t.Fatalf("external write: %v", err)
	}

	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case event := <-sess.Events():
			if event.Kind == session.EventSidecarChanged && event.Path == pathA {
				t.Fatal("external edit merged over an unflushed local decision")
			}
		case <-deadline:
			state, err := sess.Store().Get(pathA)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if state.Rating != 3 || !state.Dirty {
				t.Fatalf("local decision lost: %+v", state)
			}
			return
		}
	}
}

func TestJournalRecoversUnflushedDecisions(t *testing.T) {
	root := testsupport.PhotoFolder(t, "a.nef")
	cfg := testsupport.NewConfig(t)
	journal, err := sessionstore.Open(cfg.Paths.StateDir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	// A crashed session journaled a decision that never reached a sidecar.
	crashed := cullstate.State{Picked: true, Rating: 4, Label: cullstate.LabelBlue}
	if err := journal.RecordDecision(context.Background(), "dead-session", root, filepath.Join(root, "a.nef"), crashed); err != nil {
		t.Fatalf("record: %v", err)
	}

	sess, err := session.Open(context.Background(), cfg, root, session.Options{Journal: journal})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sess.Close(context.Background())

	state, err := sess.Store().Get(filepath.Join(root, "a.nef"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !state.Picked || state.Rating != 4 || state.Label != cullstate.LabelBlue {
		t.Fatalf("journal not recovered: %+v", state)
	}
	if !state.Dirty {
		t.Fatal("recovered decisions must be dirty so the next flush persists them")
	}
}

func TestApplyOnEmptyFolderFails(t *testing.T) {
	root := testsupport.PhotoFolder(t)
	cfg := testsupport.NewConfig(t)
	sess, err := session.Open(context.Background(), cfg, root, session.Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sess.Close(context.Background())

	if _, err := sess.Apply(context.Background(), session.NavigateNext()); err == nil {
		t.Fatal("apply on an empty folder succeeded")
	}
}
