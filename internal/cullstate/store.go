package cullstate

import (
	"fmt"
	"sync"

	"rawpick/internal/rawerr"
	"rawpick/internal/scanner"
)

// Entry pairs an asset with a copy of its cull state.
type Entry struct {
	Asset scanner.PhotoAsset
	State State
}

// Store holds the cull decision for every photo of the session, ordered by
// scan order. It is the single source of truth while the session runs.
//
// Thread model: one interaction goroutine performs all mutations; background
// readers (sidecar flusher, export) call Snapshot and work on the returned
// copy, never on live state. The internal mutex makes the snapshot consistent
// rather than enabling concurrent writers.
type Store struct {
	mu      sync.RWMutex
	catalog *scanner.Catalog
	states  map[string]*State
}

// NewStore seeds one default state (unpicked, rating 0, no label) per catalog
// asset.
func NewStore(catalog *scanner.Catalog) *Store {
	states := make(map[string]*State, catalog.Len())
	for _, asset := range catalog.Assets {
		states[asset.Path] = &State{}
	}
	return &Store{catalog: catalog, states: states}
}

// Catalog returns the immutable catalog backing the store.
func (s *Store) Catalog() *scanner.Catalog {
	return s.catalog
}

// Get returns a copy of the cull state for the given asset.
func (s *Store) Get(path string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[path]
	if !ok {
		return State{}, rawerr.Wrap(rawerr.ErrInvalidValue, "cullstate", "get", fmt.Sprintf("unknown asset %s", path), nil)
	}
	return *state, nil
}

// SetPicked sets the pick flag. Setting the current value is a no-op that
// does not dirty the state.
func (s *Store) SetPicked(path string, picked bool) error {
	return s.mutate(path, func(state *State) bool {
		if state.Picked == picked {
			return false
		}
		state.Picked = picked
		return true
	})
}

// TogglePick flips the pick flag and returns the new value. Toggling twice
// restores the prior state exactly.
func (s *Store) TogglePick(path string) (bool, error) {
	var picked bool
	err := s.mutate(path, func(state *State) bool {
		state.Picked = !state.Picked
		picked = state.Picked
		return true
	})
	return picked, err
}

// SetRating sets the rating, validating the [0,5] range.
func (s *Store) SetRating(path string, rating int) error {
	if rating < MinRating || rating > MaxRating {
		return rawerr.Wrap(rawerr.ErrInvalidValue, "cullstate", "set rating", fmt.Sprintf("rating %d outside [%d,%d]", rating, MinRating, MaxRating), nil)
	}
	return s.mutate(path, func(state *State) bool {
		if state.Rating == rating {
			return false
		}
		state.Rating = rating
		return true
	})
}

// ToggleRating applies single-key rating semantics: setting the current
// rating again resets it to 0. Returns the resulting rating.
func (s *Store) ToggleRating(path string, rating int) (int, error) {
	if rating < MinRating || rating > MaxRating {
		return 0, rawerr.Wrap(rawerr.ErrInvalidValue, "cullstate", "toggle rating", fmt.Sprintf("rating %d outside [%d,%d]", rating, MinRating, MaxRating), nil)
	}
	var result int
	err := s.mutate(path, func(state *State) bool {
		if state.Rating == rating {
			state.Rating = 0
		} else {
			state.Rating = rating
		}
		result = state.Rating
		return true
	})
	return result, err
}

// SetLabel sets the color label, validating the closed vocabulary.
func (s *Store) SetLabel(path string, label Label) error {
	if !ValidLabel(label) {
		return rawerr.Wrap(rawerr.ErrInvalidValue, "cullstate", "set label", fmt.Sprintf("label %q not in vocabulary", label), nil)
	}
	return s.mutate(path, func(state *State) bool {
		if state.Label == label {
			return false
		}
		state.Label = label
		return true
	})
}

// ApplySidecar merges values loaded from an existing sidecar. Sidecar values
// win over in-memory defaults and do not dirty the state: they are already
// persisted.
func (s *Store) ApplySidecar(path string, picked *bool, rating *int, label *Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[path]
	if !ok {
		return rawerr.Wrap(rawerr.ErrInvalidValue, "cullstate", "apply sidecar", fmt.Sprintf("unknown asset %s", path), nil)
	}
	if picked != nil {
		state.Picked = *picked
	}
	if rating != nil && *rating >= MinRating && *rating <= MaxRating {
		state.Rating = *rating
	}
	if label != nil && ValidLabel(*label) {
		state.Label = *label
	}
	return nil
}

// ApplySidecarIfClean merges like ApplySidecar, but only when the state has
// no unflushed local edits. The dirty check and the merge happen under the
// same lock hold, so an intent landing concurrently can never be overwritten
// by an external sidecar edit. Reports whether any value changed.
func (s *Store) ApplySidecarIfClean(path string, picked *bool, rating *int, label *Label) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[path]
	if !ok {
		return false, rawerr.Wrap(rawerr.ErrInvalidValue, "cullstate", "apply sidecar", fmt.Sprintf("unknown asset %s", path), nil)
	}
	if state.Dirty {
		// Unflushed local edits outrank external ones.
		return false, nil
	}
	changed := false
	if picked != nil && *picked != state.Picked {
		state.Picked = *picked
		changed = true
	}
	if rating != nil && *rating >= MinRating && *rating <= MaxRating && *rating != state.Rating {
		state.Rating = *rating
		changed = true
	}
	if label != nil && ValidLabel(*label) && *label != state.Label {
		state.Label = *label
		changed = true
	}
	return changed, nil
}

// MarkFlushed clears the dirty flag iff no mutation happened since the flush
// snapshot was taken at the given revision.
func (s *Store) MarkFlushed(path string, revision uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[path]
	if !ok {
		return
	}
	if state.Revision == revision {
		state.Dirty = false
	}
}

// Snapshot returns a consistent point-in-time copy of every entry in scan
// order for background readers.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, s.catalog.Len())
	for _, asset := range s.catalog.Assets {
		out = append(out, Entry{Asset: asset, State: *s.states[asset.Path]})
	}
	return out
}

// FilterPicked returns the picked assets in scan order.
func (s *Store) FilterPicked() []scanner.PhotoAsset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scanner.PhotoAsset
	for _, asset := range s.catalog.Assets {
		if s.states[asset.Path].Picked {
			out = append(out, asset)
		}
	}
	return out
}

// Dirty returns entries whose state has not been flushed, in scan order.
func (s *Store) Dirty() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, asset := range s.catalog.Assets {
		if state := s.states[asset.Path]; state.Dirty {
			out = append(out, Entry{Asset: asset, State: *state})
		}
	}
	return out
}

func (s *Store) mutate(path string, fn func(*State) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[path]
	if !ok {
		return rawerr.Wrap(rawerr.ErrInvalidValue, "cullstate", "mutate", fmt.Sprintf("unknown asset %s", path), nil)
	}
	if fn(state) {
		state.Dirty = true
		state.Revision++
	}
	return nil
}
