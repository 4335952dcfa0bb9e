package history

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

func state(n int) Snapshot {
	style := caption.DefaultStyle()
	style.FontSize = 24 + n
	return NewSnapshot([]caption.Entity{
		{ID: "c1", Text: fmt.Sprintf("edit %d", n), StartTime: float64(n), EndTime: float64(n) + 2},
	}, style)
}

func TestHistory_UndoRedoRoundTrip(t *testing.T) {
	const edits = 4

	h := New()
	h.Seed(state(0))
	for n := 1; n <= edits; n++ {
		h.Push(state(n))
	}

	// N undos land on the initial state.
	var last Snapshot
	for n := 0; n < edits; n++ {
		s, ok := h.Undo()
		if !ok {
			t.Fatalf("undo %d reported empty stack", n+1)
		}
		last = s
	}
	if !reflect.DeepEqual(last, state(0)) {
		t.Errorf("after %d undos: %+v, want initial state", edits, last)
	}
	if h.CanUndo() {
		t.Error("CanUndo() = true at the bottom of the stack")
	}

	// N redos land back on the final edit.
	for n := 0; n < edits; n++ {
		s, ok := h.Redo()
		if !ok {
			t.Fatalf("redo %d reported empty stack", n+1)
		}
		last = s
	}
	if !reflect.DeepEqual(last, state(edits)) {
		t.Errorf("after %d redos: %+v, want final state", edits, last)
	}
	if h.CanRedo() {
		t.Error("CanRedo() = true at the top of the stack")
	}
}

func TestHistory_BoundaryNoOps(t *testing.T) {
	h := New()
	if _, ok := h.Undo(); ok {
		t.Error("Undo() on empty history succeeded")
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo() on empty history succeeded")
	}

	h.Seed(state(0))
	if _, ok := h.Undo(); ok {
		t.Error("Undo() past the seed succeeded")
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo() with no forward checkpoints succeeded")
	}
}

func TestHistory_PushTruncatesRedoTail(t *testing.T) {
	h := New()
	h.Seed(state(0))
	h.Push(state(1))
	h.Push(state(2))

	h.Undo() // back to state 1
	h.Push(state(3))

	if h.CanRedo() {
		t.Error("redo tail survived a new edit")
	}
	if got := h.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3 (seed, edit 1, edit 3)", got)
	}

	s, ok := h.Undo()
	if !ok {
		t.Fatal("undo after truncation failed")
	}
	if !reflect.DeepEqual(s, state(1)) {
		t.Errorf("undo restored %+v, want state 1", s)
	}
}

func TestHistory_SnapshotsAreDeepCopies(t *testing.T) {
	live := []caption.Entity{{
		ID: "c1", Text: "Hello world", StartTime: 0, EndTime: 2,
		WordStyles: map[string]caption.WordStyle{caption.WordKey("c1", 0): {Color: "#fff"}},
	}}
	h := New()
	h.Seed(NewSnapshot(live, caption.DefaultStyle()))

	// Mutating live state must not reach the stored checkpoint.
	live[0].Text = "mutated"
	live[0].WordStyles[caption.WordKey("c1", 0)] = caption.WordStyle{Color: "#000"}

	h.Push(NewSnapshot(live, caption.DefaultStyle()))
	s, ok := h.Undo()
	if !ok {
		t.Fatal("undo failed")
	}
	if s.Captions[0].Text != "Hello world" {
		t.Errorf("checkpoint text = %q, want %q", s.Captions[0].Text, "Hello world")
	}
	if got := s.Captions[0].WordStyles[caption.WordKey("c1", 0)].Color; got != "#fff" {
		t.Errorf("checkpoint word style = %q, want %q", got, "#fff")
	}

	// And mutating a returned snapshot must not corrupt the stack.
	s.Captions[0].Text = "scribbled"
	s2, _ := h.Redo()
	if _, ok := h.Undo(); !ok {
		t.Fatal("second undo failed")
	}
	if s2.Captions[0].Text != "mutated" {
		t.Errorf("redo state = %q, want %q", s2.Captions[0].Text, "mutated")
	}
}
