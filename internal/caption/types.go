// Package caption holds the caption document: timed caption entities, the
// global caption style, and per-word style overrides. It is the single owned
// store that the timeline, the overlay editor, and the style panel all read
// from and write through.
package caption

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxTextElements caps concurrently live free-floating text overlays.
	MaxTextElements = 6

	// TextElementRows is the number of timeline rows text overlays cycle through.
	TextElementRows = 6

	// MinDuration is the smallest time range an entity may be resized to.
	MinDuration = 0.1
)

// Entity is a single timed element: a speech caption bound to the shared
// caption track, or a free-floating text overlay with its own screen position.
type Entity struct {
	ID            string               `json:"id"`
	Text          string               `json:"text"`
	StartTime     float64              `json:"start_time"`
	EndTime       float64              `json:"end_time"`
	IsTextElement bool                 `json:"is_text_element,omitempty"`
	Animation     string               `json:"animation,omitempty"`
	WordStyles    map[string]WordStyle `json:"word_styles,omitempty"`
	CustomStyle   *OverlayStyle        `json:"custom_style,omitempty"`

	// NeedsReorder marks a speech caption moved during an active drag.
	// It is stripped when ordering is restored at gesture end.
	NeedsReorder bool `json:"-"`
}

// WordStyle is a per-word override record. Zero values mean "inherit from the
// global style". X and Y are pixel offsets from the word's natural position.
type WordStyle struct {
	Color      string  `json:"color,omitempty"`
	Gradient   string  `json:"gradient,omitempty"`
	FontFamily string  `json:"font_family,omitempty"`
	FontSize   int     `json:"font_size,omitempty"`
	FontWeight string  `json:"font_weight,omitempty"`
	Background string  `json:"background,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Animation  string  `json:"animation,omitempty"`
}

// OverlayStyle is the independent styling of a text overlay. Top and Left are
// percentages of the video frame, Width is in pixels.
type OverlayStyle struct {
	Top               float64 `json:"top"`
	Left              float64 `json:"left"`
	Width             float64 `json:"width"`
	FontSize          int     `json:"font_size"`
	FontFamily        string  `json:"font_family,omitempty"`
	FontWeight        string  `json:"font_weight,omitempty"`
	FontStyle         string  `json:"font_style,omitempty"`
	Color             string  `json:"color"`
	BackgroundColor   string  `json:"background_color"`
	BackgroundOpacity float64 `json:"background_opacity"`
	BorderRadius      int     `json:"border_radius"`
	Padding           int     `json:"padding"`
	TextAlign         string  `json:"text_align"`
	ZIndex            int     `json:"z_index"`
}

// Style is the global caption style shared by all speech captions.
// Anchor only controls text growth direction; it never feeds back into
// PositionY.
type Style struct {
	FontFamily        string  `json:"font_family"`
	FontSize          int     `json:"font_size"`
	FontWeight        string  `json:"font_weight"`
	FontStyle         string  `json:"font_style"`
	LineSpacing       float64 `json:"line_spacing"`
	LetterSpacing     float64 `json:"letter_spacing"`
	WordSpacing       float64 `json:"word_spacing"`
	TextColor         string  `json:"text_color"`
	TextGradient      string  `json:"text_gradient,omitempty"`
	TextOpacity       float64 `json:"text_opacity"`
	HighlightColor    string  `json:"highlight_color,omitempty"`
	HighlightGradient string  `json:"highlight_gradient,omitempty"`
	HasBackground     bool    `json:"has_background"`
	BackgroundOpacity float64 `json:"background_opacity"`
	BackgroundPadding int     `json:"background_padding"`
	HasStroke         bool    `json:"has_stroke"`
	HasShadow         bool    `json:"has_shadow"`
	TextCase          string  `json:"text_case"`
	TextAlign         string  `json:"text_align"`
	Anchor            string  `json:"anchor"`
	PositionX         float64 `json:"position_x"`
	PositionY         float64 `json:"position_y"`
	Scale             float64 `json:"scale"`
	TargetLanguage    string  `json:"target_language,omitempty"`
}

// DefaultStyle returns the style applied to a fresh project.
func DefaultStyle() Style {
	return Style{
		FontFamily:        "Inter",
		FontSize:          18,
		FontWeight:        "500",
		FontStyle:         "normal",
		LineSpacing:       1.4,
		WordSpacing:       1,
		TextColor:         "#ffffff",
		TextOpacity:       1,
		HasBackground:     true,
		BackgroundOpacity: 0.7,
		BackgroundPadding: 8,
		TextCase:          "none",
		TextAlign:         "center",
		Anchor:            "bottom",
		PositionX:         50,
		PositionY:         75,
		Scale:             1,
	}
}

// Words splits the entity text into words on whitespace. Word indices used by
// WordStyles refer to positions in this slice, computed at read time.
func (e *Entity) Words() []string {
	return strings.Fields(e.Text)
}

// Duration returns the entity's time span in seconds.
func (e *Entity) Duration() float64 {
	return e.EndTime - e.StartTime
}

// ActiveAt reports whether the playback time falls inside the entity's range.
func (e *Entity) ActiveAt(now float64) bool {
	return now >= e.StartTime && now <= e.EndTime
}

// WordStyleAt returns the override for the given word index, if any. Stale
// records pointing past the current word count are reported as absent rather
// than errors.
func (e *Entity) WordStyleAt(index int) (WordStyle, bool) {
	if index < 0 || index >= len(e.Words()) {
		return WordStyle{}, false
	}
	ws, ok := e.WordStyles[WordKey(e.ID, index)]
	return ws, ok
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() Entity {
	out := *e
	if e.WordStyles != nil {
		out.WordStyles = make(map[string]WordStyle, len(e.WordStyles))
		for k, v := range e.WordStyles {
			out.WordStyles[k] = v
		}
	}
	if e.CustomStyle != nil {
		cs := *e.CustomStyle
		out.CustomStyle = &cs
	}
	return out
}

// CloneEntities deep-copies a slice of entities.
func CloneEntities(entities []Entity) []Entity {
	out := make([]Entity, len(entities))
	for i := range entities {
		out[i] = entities[i].Clone()
	}
	return out
}

// WordKey builds the WordStyles map key for an (entity, word index) pair.
func WordKey(entityID string, wordIndex int) string {
	return entityID + "-" + strconv.Itoa(wordIndex)
}

// NewID generates a random identifier, stable across mutations.
func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
