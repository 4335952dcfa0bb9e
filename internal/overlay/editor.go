package overlay

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

// Geometry limits for overlay gestures. Positions are percentages of
// the video surface, widths and font sizes are pixels.
const (
	MinPosition = 5.0
	MaxPosition = 95.0

	MinBoxWidth = 150.0
	MaxBoxWidth = 600.0

	MinFontSize = 12
	MaxFontSize = 60

	// DefaultBoxWidth is the caption box width before any resize.
	DefaultBoxWidth = 300.0

	// wordDragDeadZone suppresses jitter: word drags under this many
	// pixels on both axes are ignored.
	wordDragDeadZone = 2.0
)

var ErrNoGesture = fmt.Errorf("overlay: no gesture in progress")

// StyleAccess lets the editor read and write the shared global caption
// style without owning it.
type StyleAccess interface {
	Style() caption.Style
	SetStyle(caption.Style)
}

// WordPopupKind distinguishes which surface a word popup targets.
type WordPopupKind string

const (
	WordPopupCaption WordPopupKind = "caption"
	WordPopupElement WordPopupKind = "element"
)

// WordPopup scopes per-word style edits to one word of one entity.
type WordPopup struct {
	CaptionID string        `json:"caption_id"`
	WordIndex int           `json:"word_index"`
	Kind      WordPopupKind `json:"kind"`
}

type captionDrag struct {
	startY     float64
	height     float64
	initialPos float64
}

type captionResize struct {
	startX      float64
	initialW    float64
	initialFont int
}

type elementDrag struct {
	id             string
	startX, startY float64
	width, height  float64
	initTop        float64
	initLeft       float64
}

type elementResize struct {
	id          string
	startX      float64
	initialW    float64
	initialFont int
}

type wordDrag struct {
	id             string
	wordIndex      int
	startX, startY float64
	initX, initY   float64
}

// Editor runs the drag gestures that live on the video surface: moving
// the caption block vertically, resizing it, moving and resizing text
// elements, and nudging individual words. One gesture runs at a time.
type Editor struct {
	mu    sync.Mutex
	store *caption.Store
	style StyleAccess
	log   *slog.Logger

	boxWidth float64

	capDrag   *captionDrag
	capResize *captionResize
	elDrag    *elementDrag
	elResize  *elementResize
	wdDrag    *wordDrag
	popup     *WordPopup

	onGestureStart func()
	onGestureEnd   func()
}

func NewEditor(store *caption.Store, style StyleAccess, logger *slog.Logger) *Editor {
	return &Editor{
		store:    store,
		style:    style,
		log:      logger.With("component", "overlay"),
		boxWidth: DefaultBoxWidth,
	}
}

// OnGestureStart registers a hook fired once when any gesture begins,
// before the first mutation.
func (ed *Editor) OnGestureStart(fn func()) {
	ed.mu.Lock()
	ed.onGestureStart = fn
	ed.mu.Unlock()
}

// OnGestureEnd registers a hook fired when a gesture completes.
func (ed *Editor) OnGestureEnd(fn func()) {
	ed.mu.Lock()
	ed.onGestureEnd = fn
	ed.mu.Unlock()
}

func (ed *Editor) gestureActive() bool {
	return ed.capDrag != nil || ed.capResize != nil || ed.elDrag != nil ||
		ed.elResize != nil || ed.wdDrag != nil
}

func (ed *Editor) begin(set func()) error {
	ed.mu.Lock()
	if ed.gestureActive() {
		ed.mu.Unlock()
		return fmt.Errorf("overlay: gesture already in progress")
	}
	set()
	start := ed.onGestureStart
	ed.mu.Unlock()
	if start != nil {
		start()
	}
	return nil
}

// EndGesture finishes whichever gesture is active.
func (ed *Editor) EndGesture() error {
	ed.mu.Lock()
	active := ed.gestureActive()
	ed.capDrag = nil
	ed.capResize = nil
	ed.elDrag = nil
	ed.elResize = nil
	ed.wdDrag = nil
	end := ed.onGestureEnd
	ed.mu.Unlock()
	if !active {
		return ErrNoGesture
	}
	if end != nil {
		end()
	}
	return nil
}

// BeginCaptionDrag starts vertically repositioning the caption block.
// y is the pointer position and height the video surface height, px.
func (ed *Editor) BeginCaptionDrag(y, height float64) error {
	if height <= 0 {
		return fmt.Errorf("overlay: surface height must be positive, got %v", height)
	}
	pos := ed.style.Style().PositionY
	return ed.begin(func() {
		ed.capDrag = &captionDrag{startY: y, height: height, initialPos: pos}
	})
}

// DragCaptionTo moves the caption block to follow pointer y. The
// position is a percentage of surface height, clamped and rounded.
func (ed *Editor) DragCaptionTo(y float64) error {
	ed.mu.Lock()
	d := ed.capDrag
	ed.mu.Unlock()
	if d == nil {
		return ErrNoGesture
	}

	deltaPercent := (y - d.startY) / d.height * 100
	pos := clamp(d.initialPos+deltaPercent, MinPosition, MaxPosition)

	st := ed.style.Style()
	st.PositionY = math.Round(pos)
	ed.style.SetStyle(st)
	return nil
}

// BeginCaptionResize starts resizing the caption box. Font size scales
// proportionally with width, so the text grows with the box.
func (ed *Editor) BeginCaptionResize(x float64) error {
	font := ed.style.Style().FontSize
	ed.mu.Lock()
	w := ed.boxWidth
	ed.mu.Unlock()
	return ed.begin(func() {
		ed.capResize = &captionResize{startX: x, initialW: w, initialFont: font}
	})
}

// ResizeCaptionTo adjusts box width to follow pointer x. Width is
// clamped to [MinBoxWidth, MaxBoxWidth] and the font scales with the
// width ratio, clamped to [MinFontSize, MaxFontSize].
func (ed *Editor) ResizeCaptionTo(x float64) error {
	ed.mu.Lock()
	r := ed.capResize
	ed.mu.Unlock()
	if r == nil {
		return ErrNoGesture
	}

	w := clamp(r.initialW+(x-r.startX), MinBoxWidth, MaxBoxWidth)
	font := scaleFont(r.initialFont, w/r.initialW)

	ed.mu.Lock()
	ed.boxWidth = w
	ed.mu.Unlock()

	st := ed.style.Style()
	st.FontSize = font
	ed.style.SetStyle(st)
	return nil
}

// BoxWidth returns the current caption box width in pixels.
func (ed *Editor) BoxWidth() float64 {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.boxWidth
}

// BeginElementDrag starts moving a text element across the surface.
func (ed *Editor) BeginElementDrag(id string, x, y, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("overlay: surface size must be positive, got %vx%v", width, height)
	}
	e, err := ed.store.Get(id)
	if err != nil {
		return err
	}
	if !e.IsTextElement {
		return fmt.Errorf("overlay: %s is not a text element", id)
	}
	top, left := 50.0, 50.0
	if e.CustomStyle != nil {
		top, left = e.CustomStyle.Top, e.CustomStyle.Left
	}
	return ed.begin(func() {
		ed.elDrag = &elementDrag{id: id, startX: x, startY: y, width: width, height: height, initTop: top, initLeft: left}
	})
}

// DragElementTo moves the active text element to follow the pointer.
// Both axes are percentages of the surface, clamped to [5, 95].
func (ed *Editor) DragElementTo(x, y float64) error {
	ed.mu.Lock()
	d := ed.elDrag
	ed.mu.Unlock()
	if d == nil {
		return ErrNoGesture
	}

	left := clamp(d.initLeft+(x-d.startX)/d.width*100, MinPosition, MaxPosition)
	top := clamp(d.initTop+(y-d.startY)/d.height*100, MinPosition, MaxPosition)

	return ed.patchCustomStyle(d.id, func(cs *caption.OverlayStyle) {
		cs.Left = left
		cs.Top = top
	})
}

// BeginElementResize starts resizing a text element from its corner
// handle.
func (ed *Editor) BeginElementResize(id string, x float64) error {
	e, err := ed.store.Get(id)
	if err != nil {
		return err
	}
	if !e.IsTextElement {
		return fmt.Errorf("overlay: %s is not a text element", id)
	}
	w, font := DefaultBoxWidth, 18
	if e.CustomStyle != nil {
		if e.CustomStyle.Width > 0 {
			w = e.CustomStyle.Width
		}
		if e.CustomStyle.FontSize > 0 {
			font = e.CustomStyle.FontSize
		}
	}
	return ed.begin(func() {
		ed.elResize = &elementResize{id: id, startX: x, initialW: w, initialFont: font}
	})
}

// ResizeElementTo adjusts the active element's width and scales its
// font proportionally, with the same clamps as the caption box.
func (ed *Editor) ResizeElementTo(x float64) error {
	ed.mu.Lock()
	r := ed.elResize
	ed.mu.Unlock()
	if r == nil {
		return ErrNoGesture
	}

	w := clamp(r.initialW+(x-r.startX), MinBoxWidth, MaxBoxWidth)
	font := scaleFont(r.initialFont, w/r.initialW)

	return ed.patchCustomStyle(r.id, func(cs *caption.OverlayStyle) {
		cs.Width = w
		cs.FontSize = font
	})
}

// BeginWordDrag starts nudging one word away from its layout position.
func (ed *Editor) BeginWordDrag(id string, wordIndex int, x, y float64) error {
	e, err := ed.store.Get(id)
	if err != nil {
		return err
	}
	var initX, initY float64
	if ws, ok := e.WordStyleAt(wordIndex); ok {
		initX, initY = ws.X, ws.Y
	}
	return ed.begin(func() {
		ed.wdDrag = &wordDrag{id: id, wordIndex: wordIndex, startX: x, startY: y, initX: initX, initY: initY}
	})
}

// DragWordTo moves the active word's pixel offset with the pointer.
// Tiny movements inside the dead zone are ignored so a sloppy click
// does not shift the word.
func (ed *Editor) DragWordTo(x, y float64) error {
	ed.mu.Lock()
	d := ed.wdDrag
	ed.mu.Unlock()
	if d == nil {
		return ErrNoGesture
	}

	dx, dy := x-d.startX, y-d.startY
	if math.Abs(dx) < wordDragDeadZone && math.Abs(dy) < wordDragDeadZone {
		return nil
	}

	nx, ny := d.initX+dx, d.initY+dy
	return ed.store.UpdateWordStyle(d.id, d.wordIndex, caption.WordStylePatch{X: &nx, Y: &ny})
}

// OpenWordPopup scopes subsequent ApplyWordStyle calls to one word.
func (ed *Editor) OpenWordPopup(id string, wordIndex int, kind WordPopupKind) error {
	e, err := ed.store.Get(id)
	if err != nil {
		return err
	}
	if wordIndex < 0 || wordIndex >= len(e.Words()) {
		return caption.ErrInvalidEdit
	}
	ed.mu.Lock()
	ed.popup = &WordPopup{CaptionID: id, WordIndex: wordIndex, Kind: kind}
	ed.mu.Unlock()
	return nil
}

// CloseWordPopup clears the popup scope.
func (ed *Editor) CloseWordPopup() {
	ed.mu.Lock()
	ed.popup = nil
	ed.mu.Unlock()
}

// Popup returns the current popup scope, if any.
func (ed *Editor) Popup() (WordPopup, bool) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if ed.popup == nil {
		return WordPopup{}, false
	}
	return *ed.popup, true
}

// ApplyWordStyle merges a style patch into the popup's target word.
func (ed *Editor) ApplyWordStyle(p caption.WordStylePatch) error {
	ed.mu.Lock()
	popup := ed.popup
	ed.mu.Unlock()
	if popup == nil {
		return fmt.Errorf("overlay: no word popup open")
	}
	return ed.store.UpdateWordStyle(popup.CaptionID, popup.WordIndex, p)
}

func (ed *Editor) patchCustomStyle(id string, mutate func(*caption.OverlayStyle)) error {
	e, err := ed.store.Get(id)
	if err != nil {
		return err
	}
	cs := DefaultElementStyle()
	if e.CustomStyle != nil {
		cs = *e.CustomStyle
	}
	mutate(&cs)
	_, err = ed.store.Update(id, caption.Patch{CustomStyle: &cs})
	return err
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func scaleFont(initial int, ratio float64) int {
	font := int(math.Round(float64(initial) * ratio))
	if font < MinFontSize {
		return MinFontSize
	}
	if font > MaxFontSize {
		return MaxFontSize
	}
	return font
}
