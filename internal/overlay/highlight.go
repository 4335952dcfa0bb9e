// Package overlay implements the caption overlay: karaoke word
// highlighting, word and box drag gestures on the video surface, and
// per-frame render state.
package overlay

import (
	"math"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

// WordsToShow picks how many words highlight together, adapting to the
// speech rate of the caption. Slow, emphatic delivery highlights one
// word at a time; fast speech groups words so the highlight does not
// strobe. Short fast phrases (five words or fewer) light up whole.
func WordsToShow(wordCount int, duration float64) int {
	if wordCount == 0 {
		return 0
	}
	if duration <= 0 {
		return wordCount
	}
	wps := float64(wordCount) / duration
	switch {
	case wps < 2:
		return 1
	case wps < 3:
		return minInt(2, wordCount)
	case wps < 4.5:
		return minInt(2, wordCount)
	default:
		if wordCount <= 5 {
			return wordCount
		}
		return minInt(3, wordCount)
	}
}

// HighlightRange returns the inclusive word index range highlighted at
// playback time now. The caption's words are divided into equal-duration
// groups of WordsToShow words; the group containing now is highlighted.
func HighlightRange(e caption.Entity, now float64) (start, end int) {
	words := e.Words()
	if len(words) == 0 {
		return 0, 0
	}

	duration := e.Duration()
	show := WordsToShow(len(words), duration)
	if show <= 0 || show >= len(words) {
		return 0, len(words) - 1
	}

	groups := int(math.Ceil(float64(len(words)) / float64(show)))
	groupDuration := duration / float64(groups)

	group := 0
	if groupDuration > 0 {
		timeIn := now - e.StartTime
		if timeIn < 0 {
			timeIn = 0
		}
		group = int(math.Floor(timeIn / groupDuration))
		if group > groups-1 {
			group = groups - 1
		}
	}

	start = group * show
	end = minInt(start+show-1, len(words)-1)
	return start, end
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
