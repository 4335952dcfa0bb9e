// Package timeline implements the interactive timeline: magnetic
// snapping, collision clamping and the drag gesture state machine that
// turns pixel movement into caption time edits.
package timeline

const (
	// PeakThreshold is the minimum normalized amplitude for a waveform
	// sample to count as a snap target.
	PeakThreshold = 0.4

	// PeakMinDistance is the minimum number of samples between two
	// detected peaks. Keeps dense audio from flooding the snap grid.
	PeakMinDistance = 5
)

// Peak is a prominent point in the audio waveform. Peaks act as
// high-priority snap targets during drags.
type Peak struct {
	Index     int
	Time      float64
	Amplitude float64
}

// DetectPeaks scans normalized waveform samples (0..1) for local maxima
// above PeakThreshold, keeping at least PeakMinDistance samples between
// consecutive peaks. Sample index maps linearly onto the clip duration.
func DetectPeaks(samples []float64, duration float64) []Peak {
	if len(samples) == 0 || duration <= 0 {
		return nil
	}

	var peaks []Peak
	for i := 1; i < len(samples)-1; i++ {
		curr := samples[i]
		if curr <= samples[i-1] || curr <= samples[i+1] || curr <= PeakThreshold {
			continue
		}
		if len(peaks) > 0 && i-peaks[len(peaks)-1].Index < PeakMinDistance {
			continue
		}
		peaks = append(peaks, Peak{
			Index:     i,
			Time:      float64(i) / float64(len(samples)) * duration,
			Amplitude: curr,
		})
	}
	return peaks
}
