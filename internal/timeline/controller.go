package timeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

// Vertical layout of the timeline strip, in pixels. The content is
// taller than the viewport, so the strip scrolls.
const (
	TextRowHeight  = 22
	TextRows       = 6
	SpeechHeight   = 30
	WaveformHeight = 34

	ContentHeight = TextRows*TextRowHeight + SpeechHeight + WaveformHeight + 16
	VisibleHeight = 150
)

// Zoom limits for the horizontal axis.
const (
	MinZoom = 1.0
	MaxZoom = 10.0
)

var ErrNoDrag = fmt.Errorf("timeline: no drag in progress")

type dragState struct {
	id     string
	kind   DragType
	startX float64 // pointer x at gesture start, px
	width  float64 // full track width at gesture start, px
	anchor float64 // dragged edge's time at gesture start
	isText bool
}

// Controller owns the timeline view state (zoom, scroll, playhead) and
// runs drag gestures against the caption store. Pixel coordinates come
// in, clamped time edits go out.
type Controller struct {
	mu    sync.Mutex
	store *caption.Store
	log   *slog.Logger

	peaks     []Peak
	zoom      float64
	scrollPos float64
	playhead  float64

	drag     *dragState
	lastSnap SnapResult

	// onGestureStart fires once per drag, before the first mutation.
	onGestureStart func()
	onGestureEnd   func()
}

// NewController wires a controller to a store. The strip starts
// scrolled to the bottom so the speech row and waveform are visible.
func NewController(store *caption.Store, logger *slog.Logger) *Controller {
	return &Controller{
		store:     store,
		log:       logger.With("component", "timeline"),
		zoom:      MinZoom,
		scrollPos: maxScroll(),
	}
}

// OnGestureStart registers a hook invoked once at the start of every
// drag, before the entity is mutated. History snapshots hang off this.
func (c *Controller) OnGestureStart(fn func()) {
	c.mu.Lock()
	c.onGestureStart = fn
	c.mu.Unlock()
}

// OnGestureEnd registers a hook invoked after a drag finishes.
func (c *Controller) OnGestureEnd(fn func()) {
	c.mu.Lock()
	c.onGestureEnd = fn
	c.mu.Unlock()
}

// SetWaveform replaces the snap peaks with ones detected from the given
// normalized samples.
func (c *Controller) SetWaveform(samples []float64) {
	peaks := DetectPeaks(samples, c.store.Duration())
	c.mu.Lock()
	c.peaks = peaks
	c.mu.Unlock()
	c.log.Debug("waveform peaks updated", "count", len(peaks))
}

// Peaks returns the current snap peaks.
func (c *Controller) Peaks() []Peak {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Peak, len(c.peaks))
	copy(out, c.peaks)
	return out
}

// BeginDrag starts a gesture on one entity. x is the pointer position
// and width the full track width, both in pixels at the current zoom.
func (c *Controller) BeginDrag(id string, kind DragType, x, width float64) error {
	if width <= 0 {
		return fmt.Errorf("timeline: track width must be positive, got %v", width)
	}
	e, err := c.store.Get(id)
	if err != nil {
		return err
	}

	anchor := e.StartTime
	if kind == DragResizeRight {
		anchor = e.EndTime
	}

	c.mu.Lock()
	if c.drag != nil {
		c.mu.Unlock()
		return fmt.Errorf("timeline: drag already in progress for %s", c.drag.id)
	}
	c.drag = &dragState{id: id, kind: kind, startX: x, width: width, anchor: anchor, isText: e.IsTextElement}
	c.lastSnap = SnapResult{}
	start := c.onGestureStart
	c.mu.Unlock()

	if start != nil {
		start()
	}
	c.log.Debug("drag started", "caption_id", id, "kind", string(kind))
	return nil
}

// DragTo advances the active gesture to pointer position x. The raw
// time is snapped first, then clamped against neighbors and the clip
// range. Moves preserve the entity's duration exactly.
func (c *Controller) DragTo(x float64) error {
	c.mu.Lock()
	d := c.drag
	peaks := c.peaks
	c.mu.Unlock()
	if d == nil {
		return ErrNoDrag
	}

	e, err := c.store.Get(d.id)
	if err != nil {
		return err
	}
	all := c.store.List()
	duration := c.store.Duration()

	deltaTime := (x - d.startX) / d.width * duration
	raw := d.anchor + deltaTime

	snap := Snap(raw, d.id, all, peaks, duration)
	t := snap.Time

	bounds := CollisionBounds(e, all, d.kind, duration)
	length := e.EndTime - e.StartTime

	var newStart, newEnd float64
	switch d.kind {
	case DragMove:
		newStart = t
		if newStart < bounds.MinStart {
			newStart = bounds.MinStart
		}
		if newStart > bounds.MaxEnd-length {
			newStart = bounds.MaxEnd - length
		}
		if newStart > duration-length {
			newStart = duration - length
		}
		if newStart < 0 {
			newStart = 0
		}
		newEnd = newStart + length
	case DragResizeLeft:
		newStart = t
		if newStart < bounds.MinStart {
			newStart = bounds.MinStart
		}
		if newStart > e.EndTime-caption.MinDuration {
			newStart = e.EndTime - caption.MinDuration
		}
		if newStart < 0 {
			newStart = 0
		}
		newEnd = e.EndTime
	case DragResizeRight:
		newStart = e.StartTime
		newEnd = t
		if newEnd > bounds.MaxEnd {
			newEnd = bounds.MaxEnd
		}
		if newEnd > duration {
			newEnd = duration
		}
		if newEnd < e.StartTime+caption.MinDuration {
			newEnd = e.StartTime + caption.MinDuration
		}
	default:
		return fmt.Errorf("timeline: unknown drag type %q", d.kind)
	}

	c.mu.Lock()
	if snap.Snapped {
		c.lastSnap = snap
	} else {
		c.lastSnap = SnapResult{}
	}
	c.mu.Unlock()

	return c.store.SetTimes(d.id, newStart, newEnd, d.kind == DragMove && !d.isText)
}

// EndDrag finishes the active gesture. Speech captions dragged out of
// order are re-sorted so downstream consumers always see ascending
// start times.
func (c *Controller) EndDrag() error {
	c.mu.Lock()
	d := c.drag
	c.drag = nil
	c.lastSnap = SnapResult{}
	end := c.onGestureEnd
	c.mu.Unlock()
	if d == nil {
		return ErrNoDrag
	}

	if !d.isText {
		c.store.SortSpeech()
	}
	if end != nil {
		end()
	}
	c.log.Debug("drag finished", "caption_id", d.id, "kind", string(d.kind))
	return nil
}

// Dragging reports whether a gesture is in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag != nil
}

// SnapIndicator returns the last snap hit, for rendering the snap
// guide. Zero value means no active snap.
func (c *Controller) SnapIndicator() SnapResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSnap
}

// Seek converts a pointer position on the track into a playhead time,
// clamped to the clip. Clicks during a drag are ignored.
func (c *Controller) Seek(x, width float64) float64 {
	duration := c.store.Duration()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag != nil {
		return c.playhead
	}
	if width <= 0 || duration <= 0 {
		return c.playhead
	}
	frac := x / width
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	c.playhead = frac * duration
	return c.playhead
}

// SeekTime moves the playhead to an absolute time, clamped to the clip.
func (c *Controller) SeekTime(t float64) float64 {
	duration := c.store.Duration()
	if t < 0 {
		t = 0
	}
	if t > duration {
		t = duration
	}
	c.mu.Lock()
	c.playhead = t
	c.mu.Unlock()
	return t
}

// Playhead returns the current playhead position in seconds.
func (c *Controller) Playhead() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playhead
}

// SetZoom clamps and applies a horizontal zoom factor.
func (c *Controller) SetZoom(z float64) float64 {
	if z < MinZoom {
		z = MinZoom
	}
	if z > MaxZoom {
		z = MaxZoom
	}
	c.mu.Lock()
	c.zoom = z
	c.mu.Unlock()
	return z
}

// Zoom returns the current zoom factor.
func (c *Controller) Zoom() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

// Scroll shifts the strip vertically by half the wheel delta, clamped
// so the viewport never leaves the content.
func (c *Controller) Scroll(deltaY float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scrollPos += deltaY * 0.5
	if c.scrollPos < 0 {
		c.scrollPos = 0
	}
	if m := maxScroll(); c.scrollPos > m {
		c.scrollPos = m
	}
	return c.scrollPos
}

// ScrollPos returns the current vertical scroll offset in pixels.
func (c *Controller) ScrollPos() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrollPos
}

// TextElementRow maps the nth text element to its row, filling from the
// bottom row (closest to the speech track) upward.
func TextElementRow(index int) int {
	return TextRows - 1 - (index % TextRows)
}

func maxScroll() float64 {
	m := float64(ContentHeight - VisibleHeight)
	if m < 0 {
		return 0
	}
	return m
}
