package cullstate

// Label is the color label axis of a cull decision.
type Label string

const (
	LabelNone   Label = ""
	LabelRed    Label = "red"
	LabelYellow Label = "yellow"
	LabelGreen  Label = "green"
	LabelBlue   Label = "blue"
	LabelPurple Label = "purple"
)

var allLabels = []Label{LabelNone, LabelRed, LabelYellow, LabelGreen, LabelBlue, LabelPurple}

// ValidLabel reports whether l belongs to the closed label vocabulary.
func ValidLabel(l Label) bool {
	for _, candidate := range allLabels {
		if l == candidate {
			return true
		}
	}
	return false
}

// Labels returns the closed label vocabulary including LabelNone.
func Labels() []Label {
	out := make([]Label, len(allLabels))
	copy(out, allLabels)
	return out
}

const (
	// MinRating and MaxRating bound the rating axis.
	MinRating = 0
	MaxRating = 5
)

// State is the cull decision for one photo. Rating and label are independent
// axes; Dirty is set by any mutation and cleared only by a successful sidecar
// flush.
type State struct {
	Picked bool
	Rating int
	Label  Label

	Dirty bool
	// Revision increments on every mutation so a flush that raced a newer
	// edit can tell it must not clear Dirty.
	Revision uint64
}
