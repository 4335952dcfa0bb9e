// Package history implements the undo/redo stack for the editor. Every
// discrete edit pushes a checkpoint of the full caption and style
// state; undo and redo walk the checkpoint list.
package history

import (
	"sync"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

// Snapshot is one checkpoint: the complete entity list plus the global
// caption style at a point in time. Snapshots are deep copies and never
// alias live editor state.
type Snapshot struct {
	Captions []caption.Entity `json:"captions"`
	Style    caption.Style    `json:"captionStyle"`
}

// NewSnapshot deep-copies the given state into a Snapshot.
func NewSnapshot(captions []caption.Entity, style caption.Style) Snapshot {
	return Snapshot{Captions: caption.CloneEntities(captions), Style: style}
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{Captions: caption.CloneEntities(s.Captions), Style: s.Style}
}

// History is a linear undo stack with a cursor. The checkpoint at the
// cursor always mirrors the current editor state, so undo steps the
// cursor back and redo steps it forward; pushing a new checkpoint
// truncates any redo tail. Continuous gestures push one checkpoint at
// gesture end, not one per pointer frame.
type History struct {
	mu    sync.Mutex
	snaps []Snapshot
	index int
}

func New() *History {
	return &History{index: -1}
}

// Reset drops all checkpoints, e.g. when a different project loads.
func (h *History) Reset() {
	h.mu.Lock()
	h.snaps = nil
	h.index = -1
	h.mu.Unlock()
}

// Seed clears the stack and installs the initial state as the sole
// checkpoint. Called after a project load or a generation pipeline run.
func (h *History) Seed(s Snapshot) {
	h.mu.Lock()
	h.snaps = []Snapshot{s.clone()}
	h.index = 0
	h.mu.Unlock()
}

// Push records the state after a discrete edit. Any checkpoints beyond
// the cursor (the redo tail) are discarded first.
func (h *History) Push(s Snapshot) {
	h.mu.Lock()
	h.snaps = append(h.snaps[:h.index+1], s.clone())
	h.index = len(h.snaps) - 1
	h.mu.Unlock()
}

// Undo steps back one checkpoint and returns it. At the bottom of the
// stack it reports false and returns nothing.
func (h *History) Undo() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index <= 0 {
		return Snapshot{}, false
	}
	h.index--
	return h.snaps[h.index].clone(), true
}

// Redo steps forward one checkpoint and returns it. At the top of the
// stack it reports false and returns nothing.
func (h *History) Redo() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.snaps)-1 {
		return Snapshot{}, false
	}
	h.index++
	return h.snaps[h.index].clone(), true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index < len(h.snaps)-1
}

// Len returns the number of checkpoints on the stack.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snaps)
}
