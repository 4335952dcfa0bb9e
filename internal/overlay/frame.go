package overlay

import (
	"strings"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

// DefaultElementStyle is the box style a fresh text element gets before
// the user moves or restyles it. Centered, above the speech captions.
func DefaultElementStyle() caption.OverlayStyle {
	return caption.OverlayStyle{
		Top:               50,
		Left:              50,
		Width:             DefaultBoxWidth,
		FontSize:          18,
		FontWeight:        "normal",
		Color:             "#ffffff",
		BackgroundColor:   "#000000",
		BackgroundOpacity: 0.6,
		BorderRadius:      12,
		Padding:           8,
		TextAlign:         "center",
		ZIndex:            50,
	}
}

// Word is one rendered word of a caption, with any per-word override
// resolved.
type Word struct {
	Text        string            `json:"text"`
	Index       int               `json:"index"`
	Highlighted bool              `json:"highlighted"`
	Style       caption.WordStyle `json:"style,omitempty"`
	Styled      bool              `json:"styled"`
}

// Block is one caption or text element positioned on the video surface
// at a single playback instant.
type Block struct {
	ID            string               `json:"id"`
	IsTextElement bool                 `json:"is_text_element"`
	Words         []Word               `json:"words"`
	BoxStyle      caption.OverlayStyle `json:"box_style"`
}

// Frame is everything visible on the overlay at one playback time.
// Speech captions share the global style; text elements carry their
// own box styles.
type Frame struct {
	Time   float64       `json:"time"`
	Style  caption.Style `json:"style"`
	Blocks []Block       `json:"blocks"`
}

// Render computes the overlay frame at playback time now. Entities
// whose text is empty render nothing. Word style overrides keyed past
// the end of the current text are skipped silently; a shortened caption
// must not error out the renderer.
func Render(entities []caption.Entity, style caption.Style, now float64) Frame {
	f := Frame{Time: now, Style: style}

	for i := range entities {
		e := &entities[i]
		if !e.ActiveAt(now) {
			continue
		}
		words := e.Words()
		if len(words) == 0 {
			continue
		}

		var hiStart, hiEnd = -1, -1
		if !e.IsTextElement {
			hiStart, hiEnd = HighlightRange(*e, now)
		}

		b := Block{ID: e.ID, IsTextElement: e.IsTextElement}
		if e.CustomStyle != nil {
			b.BoxStyle = *e.CustomStyle
		} else if e.IsTextElement {
			b.BoxStyle = DefaultElementStyle()
		}

		for idx, w := range words {
			rw := Word{
				Text:        applyTextCase(w, style.TextCase, e.IsTextElement),
				Index:       idx,
				Highlighted: !e.IsTextElement && idx >= hiStart && idx <= hiEnd,
			}
			if ws, ok := e.WordStyleAt(idx); ok {
				rw.Style = ws
				rw.Styled = true
			}
			b.Words = append(b.Words, rw)
		}
		f.Blocks = append(f.Blocks, b)
	}
	return f
}

func applyTextCase(w, textCase string, isElement bool) string {
	if isElement {
		return w
	}
	switch textCase {
	case "uppercase":
		return strings.ToUpper(w)
	case "lowercase":
		return strings.ToLower(w)
	default:
		return w
	}
}
