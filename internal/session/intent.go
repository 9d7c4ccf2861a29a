package session

import "rawpick/internal/cullstate"

// IntentKind identifies one user action already resolved by the UI layer.
// The session never parses raw key or pointer events.
type IntentKind int

const (
	IntentNavigateNext IntentKind = iota
	IntentNavigatePrev
	IntentNavigateTo
	IntentTogglePick
	IntentSetPicked
	IntentSetRating
	IntentToggleRating
	IntentSetLabel
	IntentToggleLabel
	IntentSave
)

// Intent is one action against the current session.
type Intent struct {
	Kind   IntentKind
	Index  int // NavigateTo
	Picked bool
	Rating int
	Label  cullstate.Label
}

// NavigateNext advances the cursor.
func NavigateNext() Intent { return Intent{Kind: IntentNavigateNext} }

// NavigatePrev moves the cursor back.
func NavigatePrev() Intent { return Intent{Kind: IntentNavigatePrev} }

// NavigateTo jumps to an absolute catalog index.
func NavigateTo(index int) Intent { return Intent{Kind: IntentNavigateTo, Index: index} }

// TogglePick flips the pick flag of the current photo.
func TogglePick() Intent { return Intent{Kind: IntentTogglePick} }

// SetPicked sets the pick flag of the current photo.
func SetPicked(picked bool) Intent { return Intent{Kind: IntentSetPicked, Picked: picked} }

// SetRating rates the current photo.
func SetRating(rating int) Intent { return Intent{Kind: IntentSetRating, Rating: rating} }

// ToggleRating applies single-key rating semantics to the current photo.
func ToggleRating(rating int) Intent { return Intent{Kind: IntentToggleRating, Rating: rating} }

// SetLabel sets the color label of the current photo.
func SetLabel(label cullstate.Label) Intent { return Intent{Kind: IntentSetLabel, Label: label} }

// ToggleLabel sets the label, or clears it when already set to the same
// value.
func ToggleLabel(label cullstate.Label) Intent { return Intent{Kind: IntentToggleLabel, Label: label} }

// Save flushes every dirty decision.
func Save() Intent { return Intent{Kind: IntentSave} }

// EventKind identifies one background completion.
type EventKind int

const (
	// EventFlushed reports a sidecar write that landed.
	EventFlushed EventKind = iota
	// EventFlushFailed reports a sidecar write that failed; the decision
	// stays dirty for retry.
	EventFlushFailed
	// EventSidecarChanged reports an external sidecar edit merged into the
	// store.
	EventSidecarChanged
)

// Event is one background completion, delivered over Events().
type Event struct {
	Kind EventKind
	Path string
	Err  error
}
