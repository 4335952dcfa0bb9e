package overlay

import (
	"testing"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

func TestWordsToShow_Buckets(t *testing.T) {
	tests := []struct {
		name     string
		words    int
		duration float64
		want     int
	}{
		{"slow speech highlights single words", 3, 2.0, 1},           // 1.5 wps
		{"exactly 2 wps moves to pairs", 6, 3.0, 2},                  // 2.0 wps
		{"exactly 3 wps stays at pairs", 6, 2.0, 2},                  // 3.0 wps
		{"exactly 4.5 wps is fast speech", 9, 2.0, 3},                // 4.5 wps
		{"fast long phrase groups by three", 6, 1.0, 3},              // 6.0 wps
		{"fast short phrase lights up whole", 5, 1.0, 5},             // 5.0 wps
		{"pair bucket clamped by word count", 1, 0.4, 1},             // 2.5 wps
		{"zero duration shows everything", 4, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordsToShow(tt.words, tt.duration); got != tt.want {
				t.Errorf("WordsToShow(%d, %v) = %d, want %d", tt.words, tt.duration, got, tt.want)
			}
		})
	}
}

func TestHighlightRange_WalksGroups(t *testing.T) {
	// 6 words over 3s: 2 wps, pairs, three groups of 1s each.
	e := caption.Entity{
		ID: "c1", Text: "one two three four five six",
		StartTime: 10, EndTime: 13,
	}

	tests := []struct {
		now        float64
		start, end int
	}{
		{10.0, 0, 1},
		{10.5, 0, 1},
		{11.0, 2, 3},
		{12.0, 4, 5},
		{12.99, 4, 5},
		{13.5, 4, 5}, // past the end, pinned to the last group
		{9.0, 0, 1},  // before the start, pinned to the first group
	}
	for _, tt := range tests {
		start, end := HighlightRange(e, tt.now)
		if start != tt.start || end != tt.end {
			t.Errorf("HighlightRange(now=%v) = [%d, %d], want [%d, %d]", tt.now, start, end, tt.start, tt.end)
		}
	}
}

func TestHighlightRange_FastShortPhrase(t *testing.T) {
	// 5 words in 1s: the whole phrase highlights at once.
	e := caption.Entity{ID: "c1", Text: "quick brown fox jumps over", StartTime: 0, EndTime: 1}
	start, end := HighlightRange(e, 0.5)
	if start != 0 || end != 4 {
		t.Errorf("HighlightRange = [%d, %d], want [0, 4]", start, end)
	}
}

func TestHighlightRange_Empty(t *testing.T) {
	e := caption.Entity{ID: "c1", Text: "   ", StartTime: 0, EndTime: 2}
	start, end := HighlightRange(e, 1)
	if start != 0 || end != 0 {
		t.Errorf("HighlightRange on empty text = [%d, %d], want [0, 0]", start, end)
	}
}
