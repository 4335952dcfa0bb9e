// Package template ships the built-in caption style templates and text
// element presets. Definitions live in an embedded YAML file so design
// tweaks never touch Go code.
package template

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
	"github.com/captionstudio/captionstudio-agent/internal/overlay"
)

//go:embed presets.yaml
var presetsYAML []byte

// StyleSpec is the YAML shape of a template's style. Only fields that
// differ from the base style need to appear in the file; zero values
// fall back to the current style's values where that makes sense.
type StyleSpec struct {
	FontFamily        string  `yaml:"font_family"`
	FontSize          int     `yaml:"font_size"`
	LineSpacing       float64 `yaml:"line_spacing"`
	Bold              bool    `yaml:"bold"`
	Caps              bool    `yaml:"caps"`
	TextColor         string  `yaml:"text_color"`
	TextGradient      string  `yaml:"text_gradient"`
	HighlightColor    string  `yaml:"highlight_color"`
	HasBackground     bool    `yaml:"has_background"`
	BackgroundOpacity float64 `yaml:"background_opacity"`
	HasShadow         bool    `yaml:"has_shadow"`
	HasStroke         bool    `yaml:"has_stroke"`
	PositionY         float64 `yaml:"position_y"`
}

// Template is one named caption look.
type Template struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Preview     string    `yaml:"preview" json:"preview"`
	Style       StyleSpec `yaml:"style" json:"style"`
}

// TextPreset is one ready-made text element look.
type TextPreset struct {
	ID         string `yaml:"id" json:"id"`
	Text       string `yaml:"text" json:"text"`
	FontFamily string `yaml:"font_family" json:"font_family"`
	FontSize   int    `yaml:"font_size" json:"font_size"`
	Color      string `yaml:"color" json:"color"`
	FontWeight string `yaml:"font_weight" json:"font_weight"`
	FontStyle  string `yaml:"font_style" json:"font_style"`
}

type catalog struct {
	Templates   []Template   `yaml:"templates"`
	TextPresets []TextPreset `yaml:"text_presets"`
}

var (
	loadOnce sync.Once
	loaded   catalog
	loadErr  error
)

func load() (catalog, error) {
	loadOnce.Do(func() {
		loadErr = yaml.Unmarshal(presetsYAML, &loaded)
	})
	return loaded, loadErr
}

// All returns every built-in style template.
func All() ([]Template, error) {
	c, err := load()
	if err != nil {
		return nil, fmt.Errorf("template: parse presets: %w", err)
	}
	return c.Templates, nil
}

// Find returns the template with the given ID.
func Find(id string) (Template, error) {
	templates, err := All()
	if err != nil {
		return Template{}, err
	}
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("template: unknown template %q", id)
}

// TextPresets returns the built-in text element presets.
func TextPresets() ([]TextPreset, error) {
	c, err := load()
	if err != nil {
		return nil, fmt.Errorf("template: parse presets: %w", err)
	}
	return c.TextPresets, nil
}

// Apply layers the template onto a base style. Positioning on the
// horizontal axis, scale and language always carry over from the base;
// everything the template specifies wins.
func (t Template) Apply(base caption.Style) caption.Style {
	out := base
	s := t.Style

	if s.FontFamily != "" {
		out.FontFamily = s.FontFamily
	}
	if s.FontSize > 0 {
		out.FontSize = s.FontSize
	}
	if s.LineSpacing > 0 {
		out.LineSpacing = s.LineSpacing
	}
	if s.Bold {
		out.FontWeight = "700"
	} else {
		out.FontWeight = "500"
	}
	if s.Caps {
		out.TextCase = "uppercase"
	} else {
		out.TextCase = "none"
	}
	if s.TextColor != "" {
		out.TextColor = s.TextColor
	}
	out.TextGradient = s.TextGradient
	out.HighlightColor = s.HighlightColor
	out.HasBackground = s.HasBackground
	if s.BackgroundOpacity > 0 {
		out.BackgroundOpacity = s.BackgroundOpacity
	}
	out.HasShadow = s.HasShadow
	out.HasStroke = s.HasStroke
	if s.PositionY > 0 {
		out.PositionY = s.PositionY
	}
	return out
}

// ElementKind selects the default sizing for a new text element.
type ElementKind string

const (
	ElementHeading    ElementKind = "heading"
	ElementSubheading ElementKind = "subheading"
	ElementBody       ElementKind = "body"
	ElementDefault    ElementKind = "default"
)

// NewTextElement builds a text element entity for the given kind,
// placed at the playhead.
func NewTextElement(kind ElementKind, text string, start, end float64) caption.Entity {
	cs := overlay.DefaultElementStyle()
	switch kind {
	case ElementHeading:
		cs.FontSize = 32
		cs.FontWeight = "bold"
	case ElementSubheading:
		cs.FontSize = 24
	case ElementBody:
		cs.FontSize = 14
	}
	return caption.Entity{
		Text:          text,
		StartTime:     start,
		EndTime:       end,
		IsTextElement: true,
		CustomStyle:   &cs,
	}
}

// NewPresetElement builds a text element from one of the built-in text
// presets.
func NewPresetElement(p TextPreset, start, end float64) caption.Entity {
	cs := overlay.DefaultElementStyle()
	if p.FontSize > 0 {
		cs.FontSize = p.FontSize
	}
	if p.Color != "" {
		cs.Color = p.Color
	}
	cs.FontFamily = p.FontFamily
	if p.FontWeight != "" {
		cs.FontWeight = p.FontWeight
	}
	cs.FontStyle = p.FontStyle
	return caption.Entity{
		Text:          p.Text,
		StartTime:     start,
		EndTime:       end,
		IsTextElement: true,
		CustomStyle:   &cs,
	}
}
