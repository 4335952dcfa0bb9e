package overlay

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

type styleHolder struct {
	mu sync.Mutex
	st caption.Style
}

func (h *styleHolder) Style() caption.Style {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.st
}

func (h *styleHolder) SetStyle(st caption.Style) {
	h.mu.Lock()
	h.st = st
	h.mu.Unlock()
}

func newTestEditor(t *testing.T) (*Editor, *caption.Store, *styleHolder) {
	t.Helper()
	s := caption.NewStore(30)
	holder := &styleHolder{st: caption.DefaultStyle()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEditor(s, holder, logger), s, holder
}

func TestEditor_CaptionDrag_ClampsAndRounds(t *testing.T) {
	ed, _, holder := newTestEditor(t)

	// Surface is 400px tall; style starts at PositionY 75.
	if err := ed.BeginCaptionDrag(200, 400); err != nil {
		t.Fatalf("BeginCaptionDrag() error = %v", err)
	}

	// 41px down = 10.25%, rounded to 85.
	if err := ed.DragCaptionTo(241); err != nil {
		t.Fatalf("DragCaptionTo() error = %v", err)
	}
	if got := holder.Style().PositionY; got != 85 {
		t.Errorf("PositionY = %v, want 85", got)
	}

	// Dragging far past the bottom pins at 95.
	if err := ed.DragCaptionTo(1200); err != nil {
		t.Fatalf("DragCaptionTo() error = %v", err)
	}
	if got := holder.Style().PositionY; got != MaxPosition {
		t.Errorf("PositionY = %v, want %v", got, MaxPosition)
	}

	// And far past the top pins at 5.
	if err := ed.DragCaptionTo(-1200); err != nil {
		t.Fatalf("DragCaptionTo() error = %v", err)
	}
	if got := holder.Style().PositionY; got != MinPosition {
		t.Errorf("PositionY = %v, want %v", got, MinPosition)
	}

	if err := ed.EndGesture(); err != nil {
		t.Fatalf("EndGesture() error = %v", err)
	}
}

func TestEditor_CaptionResize_ScalesFont(t *testing.T) {
	ed, _, holder := newTestEditor(t)

	// Default box is 300px wide with an 18px font.
	if err := ed.BeginCaptionResize(0); err != nil {
		t.Fatalf("BeginCaptionResize() error = %v", err)
	}

	// +150px gives a 450/300 = 1.5 ratio, so the font goes 18 -> 27.
	if err := ed.ResizeCaptionTo(150); err != nil {
		t.Fatalf("ResizeCaptionTo() error = %v", err)
	}
	if got := ed.BoxWidth(); got != 450 {
		t.Errorf("BoxWidth = %v, want 450", got)
	}
	if got := holder.Style().FontSize; got != 27 {
		t.Errorf("FontSize = %d, want 27", got)
	}

	// Far right clamps width at 600 and the font at its scaled value.
	if err := ed.ResizeCaptionTo(5000); err != nil {
		t.Fatalf("ResizeCaptionTo() error = %v", err)
	}
	if got := ed.BoxWidth(); got != MaxBoxWidth {
		t.Errorf("BoxWidth = %v, want %v", got, MaxBoxWidth)
	}
	if got := holder.Style().FontSize; got != 36 {
		t.Errorf("FontSize = %d, want 36 (600/300 ratio)", got)
	}

	// Far left clamps width at 150 and the font floor at 12.
	if err := ed.ResizeCaptionTo(-5000); err != nil {
		t.Fatalf("ResizeCaptionTo() error = %v", err)
	}
	if got := ed.BoxWidth(); got != MinBoxWidth {
		t.Errorf("BoxWidth = %v, want %v", got, MinBoxWidth)
	}
	if got := holder.Style().FontSize; got != MinFontSize {
		t.Errorf("FontSize = %d, want %d", got, MinFontSize)
	}
	ed.EndGesture()
}

func TestEditor_ElementDrag_ClampsPosition(t *testing.T) {
	ed, s, _ := newTestEditor(t)
	el, err := s.AddTextElement(caption.Entity{Text: "Title", StartTime: 0, EndTime: 5})
	if err != nil {
		t.Fatalf("AddTextElement() error = %v", err)
	}

	if err := ed.BeginElementDrag(el.ID, 100, 100, 800, 400); err != nil {
		t.Fatalf("BeginElementDrag() error = %v", err)
	}
	// +80px right on an 800px surface = +10%; +100px down on 400px = +25%.
	if err := ed.DragElementTo(180, 200); err != nil {
		t.Fatalf("DragElementTo() error = %v", err)
	}

	got, _ := s.Get(el.ID)
	if got.CustomStyle == nil {
		t.Fatal("element has no custom style after drag")
	}
	if math.Abs(got.CustomStyle.Left-60) > 1e-9 || math.Abs(got.CustomStyle.Top-75) > 1e-9 {
		t.Errorf("position = (%v, %v), want (60, 75)", got.CustomStyle.Left, got.CustomStyle.Top)
	}

	// Way off the surface clamps to the 5..95 box.
	if err := ed.DragElementTo(-4000, 4000); err != nil {
		t.Fatalf("DragElementTo() error = %v", err)
	}
	got, _ = s.Get(el.ID)
	if got.CustomStyle.Left != MinPosition || got.CustomStyle.Top != MaxPosition {
		t.Errorf("clamped position = (%v, %v), want (%v, %v)",
			got.CustomStyle.Left, got.CustomStyle.Top, MinPosition, MaxPosition)
	}
	ed.EndGesture()
}

func TestEditor_ElementDrag_RejectsSpeechCaption(t *testing.T) {
	ed, s, _ := newTestEditor(t)
	e, _ := s.Add(caption.Entity{Text: "speech", StartTime: 0, EndTime: 2})

	if err := ed.BeginElementDrag(e.ID, 0, 0, 800, 400); err == nil {
		t.Error("BeginElementDrag on a speech caption should fail")
	}
}

func TestEditor_WordDrag_DeadZone(t *testing.T) {
	ed, s, _ := newTestEditor(t)
	e, _ := s.Add(caption.Entity{Text: "Hello world", StartTime: 0, EndTime: 2})

	if err := ed.BeginWordDrag(e.ID, 1, 100, 100); err != nil {
		t.Fatalf("BeginWordDrag() error = %v", err)
	}

	// Inside the dead zone: no offset written.
	if err := ed.DragWordTo(101, 101); err != nil {
		t.Fatalf("DragWordTo() error = %v", err)
	}
	got, _ := s.Get(e.ID)
	if _, ok := got.WordStyleAt(1); ok {
		t.Error("dead-zone drag wrote a word style")
	}

	// Outside: offsets land relative to the gesture origin.
	if err := ed.DragWordTo(112, 96); err != nil {
		t.Fatalf("DragWordTo() error = %v", err)
	}
	got, _ = s.Get(e.ID)
	ws, ok := got.WordStyleAt(1)
	if !ok {
		t.Fatal("word style missing after drag")
	}
	if ws.X != 12 || ws.Y != -4 {
		t.Errorf("word offset = (%v, %v), want (12, -4)", ws.X, ws.Y)
	}
	ed.EndGesture()
}

func TestEditor_WordPopup(t *testing.T) {
	ed, s, _ := newTestEditor(t)
	e, _ := s.Add(caption.Entity{Text: "Hello world", StartTime: 0, EndTime: 2})

	if err := ed.OpenWordPopup(e.ID, 5, WordPopupCaption); !errors.Is(err, caption.ErrInvalidEdit) {
		t.Errorf("OpenWordPopup out of range: error = %v, want ErrInvalidEdit", err)
	}

	if err := ed.OpenWordPopup(e.ID, 0, WordPopupCaption); err != nil {
		t.Fatalf("OpenWordPopup() error = %v", err)
	}
	color := "#ff00ff"
	if err := ed.ApplyWordStyle(caption.WordStylePatch{Color: &color}); err != nil {
		t.Fatalf("ApplyWordStyle() error = %v", err)
	}

	got, _ := s.Get(e.ID)
	if ws, ok := got.WordStyleAt(0); !ok || ws.Color != color {
		t.Errorf("word style = (%+v, %v), want color %s", ws, ok, color)
	}

	ed.CloseWordPopup()
	if err := ed.ApplyWordStyle(caption.WordStylePatch{Color: &color}); err == nil {
		t.Error("ApplyWordStyle with no popup open should fail")
	}
}

func TestEditor_SingleGestureAtATime(t *testing.T) {
	ed, s, _ := newTestEditor(t)
	el, _ := s.AddTextElement(caption.Entity{Text: "Title", StartTime: 0, EndTime: 5})

	if err := ed.BeginCaptionDrag(0, 400); err != nil {
		t.Fatalf("BeginCaptionDrag() error = %v", err)
	}
	if err := ed.BeginElementDrag(el.ID, 0, 0, 800, 400); err == nil {
		t.Error("second gesture while one is active should fail")
	}
	if err := ed.EndGesture(); err != nil {
		t.Fatalf("EndGesture() error = %v", err)
	}
	if err := ed.EndGesture(); !errors.Is(err, ErrNoGesture) {
		t.Errorf("EndGesture with nothing active: error = %v, want ErrNoGesture", err)
	}
}

func TestEditor_GestureHooks(t *testing.T) {
	ed, s, _ := newTestEditor(t)
	e, _ := s.Add(caption.Entity{Text: "Hello world", StartTime: 0, EndTime: 2})

	starts, ends := 0, 0
	ed.OnGestureStart(func() { starts++ })
	ed.OnGestureEnd(func() { ends++ })

	ed.BeginWordDrag(e.ID, 0, 0, 0)
	ed.DragWordTo(10, 10)
	ed.DragWordTo(20, 20)
	ed.EndGesture()

	if starts != 1 || ends != 1 {
		t.Errorf("hooks fired start=%d end=%d, want 1 and 1", starts, ends)
	}
}
