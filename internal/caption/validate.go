package caption

import (
	"fmt"
	"sort"
)

// CheckInvariants verifies the document-level invariants: every entity has a
// positive range inside [0, duration], speech captions are sortable without
// overlap, and at most MaxTextElements overlays are live. Stale word-style
// keys are deliberately not an invariant violation; they are skipped at
// render time instead.
func CheckInvariants(entities []Entity, duration float64) error {
	textCount := 0
	var speech []Entity

	for i := range entities {
		e := &entities[i]
		if e.StartTime >= e.EndTime {
			return fmt.Errorf("entity %s: start %.3f not before end %.3f", e.ID, e.StartTime, e.EndTime)
		}
		if e.StartTime < 0 || (duration > 0 && e.EndTime > duration+1e-9) {
			return fmt.Errorf("entity %s: range [%.3f, %.3f] outside [0, %.3f]", e.ID, e.StartTime, e.EndTime, duration)
		}
		if e.IsTextElement {
			textCount++
		} else {
			speech = append(speech, *e)
		}
	}

	if textCount > MaxTextElements {
		return fmt.Errorf("%d text elements exceed the limit of %d", textCount, MaxTextElements)
	}

	sort.Slice(speech, func(i, j int) bool { return speech[i].StartTime < speech[j].StartTime })
	for i := 1; i < len(speech); i++ {
		if speech[i-1].EndTime > speech[i].StartTime+1e-9 {
			return fmt.Errorf("speech captions %s and %s overlap", speech[i-1].ID, speech[i].ID)
		}
	}
	return nil
}

// SpeechSorted reports whether the speech captions appear in ascending start
// order within the slice.
func SpeechSorted(entities []Entity) bool {
	last := -1.0
	for i := range entities {
		if entities[i].IsTextElement {
			continue
		}
		if entities[i].StartTime < last {
			return false
		}
		last = entities[i].StartTime
	}
	return true
}
