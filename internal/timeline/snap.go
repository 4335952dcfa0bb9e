package timeline

import (
	"math"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

const (
	// SnapThreshold is how close (in seconds) a dragged edge must get to
	// a generic snap point before it sticks.
	SnapThreshold = 0.25

	// WaveformSnapThreshold is the tighter window used for waveform
	// peaks. Peaks inside this window win over any generic point.
	WaveformSnapThreshold = 0.15
)

// SnapType identifies what kind of target a drag snapped to.
type SnapType string

const (
	SnapNone     SnapType = ""
	SnapBoundary SnapType = "boundary"
	SnapElement  SnapType = "element"
	SnapWaveform SnapType = "waveform"
)

// SnapResult reports where a candidate time landed after snapping.
type SnapResult struct {
	Time    float64  `json:"time"`
	Snapped bool     `json:"snapped"`
	Type    SnapType `json:"type,omitempty"`
}

// Snap pulls target toward the nearest snap point. Candidates are the
// clip boundaries (0 and duration), every other entity's start and end,
// and detected waveform peaks. A waveform peak within
// WaveformSnapThreshold beats any generic point regardless of distance;
// otherwise the closest generic point within SnapThreshold wins.
func Snap(target float64, excludeID string, entities []caption.Entity, peaks []Peak, duration float64) SnapResult {
	result := SnapResult{Time: target}
	minDiff := SnapThreshold

	consider := func(t float64, typ SnapType) {
		diff := math.Abs(t - target)
		if typ == SnapWaveform {
			if diff >= WaveformSnapThreshold {
				return
			}
			if !result.Snapped || result.Type != SnapWaveform || diff < minDiff {
				minDiff = diff
				result.Time = t
				result.Snapped = true
				result.Type = SnapWaveform
			}
			return
		}
		if result.Type == SnapWaveform {
			return
		}
		if diff < minDiff {
			minDiff = diff
			result.Time = t
			result.Snapped = true
			result.Type = typ
		}
	}

	consider(0, SnapBoundary)
	consider(duration, SnapBoundary)
	for i := range entities {
		if entities[i].ID == excludeID {
			continue
		}
		consider(entities[i].StartTime, SnapElement)
		consider(entities[i].EndTime, SnapElement)
	}
	for _, p := range peaks {
		consider(p.Time, SnapWaveform)
	}

	return result
}
