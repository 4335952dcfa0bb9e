package timeline

import "github.com/captionstudio/captionstudio-agent/internal/caption"

// DragType distinguishes the three drag gestures a block supports.
type DragType string

const (
	DragMove        DragType = "move"
	DragResizeLeft  DragType = "resize-left"
	DragResizeRight DragType = "resize-right"
)

// Bounds is the legal window a drag may place an entity in.
type Bounds struct {
	MinStart float64
	MaxEnd   float64
}

// CollisionBounds computes how far an entity may travel before hitting
// a neighbor. Text elements live on their own rows and never collide;
// speech captions are fenced in by the adjacent captions on the speech
// track. Only neighbors on the relevant side of the gesture constrain
// it.
func CollisionBounds(el caption.Entity, all []caption.Entity, kind DragType, duration float64) Bounds {
	b := Bounds{MinStart: 0, MaxEnd: duration}
	if el.IsTextElement {
		return b
	}

	for i := range all {
		other := &all[i]
		if other.ID == el.ID || other.IsTextElement {
			continue
		}
		if kind == DragMove || kind == DragResizeLeft {
			if other.EndTime <= el.StartTime && other.EndTime > b.MinStart {
				b.MinStart = other.EndTime
			}
		}
		if kind == DragMove || kind == DragResizeRight {
			if other.StartTime >= el.EndTime && other.StartTime < b.MaxEnd {
				b.MaxEnd = other.StartTime
			}
		}
	}
	return b
}
