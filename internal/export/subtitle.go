// Package export produces the local caption export formats: SubRip,
// WebVTT and a plain-text dump. Rendered video export goes through the
// cloud render service instead.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

// Format identifies a local export format.
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatText Format = "txt"
)

// Generate renders the speech captions in the given format. Text
// elements are overlay decorations and never appear in subtitle files.
func Generate(entities []caption.Entity, format Format) (string, error) {
	switch format {
	case FormatSRT:
		return GenerateSRT(entities), nil
	case FormatVTT:
		return GenerateVTT(entities), nil
	case FormatText:
		return GenerateText(entities), nil
	default:
		return "", fmt.Errorf("export: unknown format %q", format)
	}
}

// GenerateSRT renders SubRip: numbered cues with comma millisecond
// separators.
func GenerateSRT(entities []caption.Entity) string {
	var b strings.Builder
	n := 0
	for i := range entities {
		e := &entities[i]
		if e.IsTextElement {
			continue
		}
		n++
		if n > 1 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n",
			n, srtTimestamp(e.StartTime), srtTimestamp(e.EndTime), e.Text)
	}
	return b.String()
}

// GenerateVTT renders WebVTT: a header, then cues with dot millisecond
// separators.
func GenerateVTT(entities []caption.Entity) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for i := range entities {
		e := &entities[i]
		if e.IsTextElement {
			continue
		}
		fmt.Fprintf(&b, "\n%s --> %s\n%s\n",
			vttTimestamp(e.StartTime), vttTimestamp(e.EndTime), e.Text)
	}
	return b.String()
}

// GenerateText renders one caption per line with no timing.
func GenerateText(entities []caption.Entity) string {
	var lines []string
	for i := range entities {
		if !entities[i].IsTextElement {
			lines = append(lines, entities[i].Text)
		}
	}
	return strings.Join(lines, "\n")
}

// FileName builds the download name for an export, reusing the
// project's display name with unsafe characters stripped.
func FileName(projectName string, format Format) string {
	base := SanitizeName(projectName, 64)
	if base == "" {
		base = "captions"
	}
	return base + "." + string(format)
}

func srtTimestamp(seconds float64) string {
	h, m, s, ms := splitTime(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func vttTimestamp(seconds float64) string {
	h, m, s, ms := splitTime(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitTime(seconds float64) (h, m, s, ms int) {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int(math.Round(seconds * 1000))
	ms = totalMs % 1000
	totalSec := totalMs / 1000
	s = totalSec % 60
	totalMin := totalSec / 60
	m = totalMin % 60
	h = totalMin / 60
	return h, m, s, ms
}
