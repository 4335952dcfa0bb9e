package caption

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound         = errors.New("caption: entity not found")
	ErrInvalidEdit      = errors.New("caption: invalid edit operation")
	ErrTextElementLimit = fmt.Errorf("caption: at most %d text elements allowed", MaxTextElements)
)

// Patch is a partial entity update. Nil fields are left untouched.
type Patch struct {
	Text        *string
	StartTime   *float64
	EndTime     *float64
	Animation   *string
	CustomStyle *OverlayStyle
}

// WordStylePatch is a partial per-word override update. Nil fields are left
// untouched.
type WordStylePatch struct {
	Color      *string
	Gradient   *string
	FontFamily *string
	FontSize   *int
	FontWeight *string
	Background *string
	X          *float64
	Y          *float64
	Animation  *string
}

// Store owns the ordered entity collection. All mutations happen behind one
// mutex; readers get deep copies. Subscribers are notified after every
// committed mutation so the timeline, the overlay renderer, and persistence
// all observe the same store.
type Store struct {
	mu       sync.RWMutex
	entities []Entity
	duration float64

	subMu sync.Mutex
	subs  map[int]func()
	nextS int
}

// NewStore returns an empty store for a video of the given duration.
func NewStore(duration float64) *Store {
	return &Store{duration: duration, subs: make(map[int]func())}
}

// Subscribe registers a change callback and returns an unsubscribe func.
// Callbacks run synchronously after the mutation commits, outside the lock.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextS
	s.nextS++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SetDuration updates the video duration used for range validation.
func (s *Store) SetDuration(d float64) {
	s.mu.Lock()
	s.duration = d
	s.mu.Unlock()
}

// Duration returns the video duration.
func (s *Store) Duration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration
}

// Add appends a speech caption. The ID is generated when empty.
func (s *Store) Add(e Entity) (Entity, error) {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.StartTime >= e.EndTime {
		return Entity{}, fmt.Errorf("%w: start %.3f must precede end %.3f", ErrInvalidEdit, e.StartTime, e.EndTime)
	}

	s.mu.Lock()
	s.entities = append(s.entities, e)
	s.mu.Unlock()

	s.notify()
	return e, nil
}

// AddAfterLast appends a new 2-second speech caption half a second after the
// last one, the default "add caption" affordance. The range is clamped to
// the clip so a caption ending near the video's end still yields a legal
// entity.
func (s *Store) AddAfterLast(text string) (Entity, error) {
	s.mu.Lock()
	start, lastEnd := 0.0, 0.0
	for i := len(s.entities) - 1; i >= 0; i-- {
		if !s.entities[i].IsTextElement {
			lastEnd = s.entities[i].EndTime
			start = lastEnd + 0.5
			break
		}
	}
	end := start + 2
	if s.duration > 0 {
		if end > s.duration {
			end = s.duration
		}
		if start >= end {
			start = end - 2
			if start < lastEnd {
				start = lastEnd
			}
		}
	}
	if start >= end {
		s.mu.Unlock()
		return Entity{}, fmt.Errorf("%w: no room for a new caption", ErrInvalidEdit)
	}
	e := Entity{ID: NewID(), Text: text, StartTime: start, EndTime: end}
	s.entities = append(s.entities, e)
	s.mu.Unlock()

	s.notify()
	return e, nil
}

// AddTextElement appends a free-floating text overlay. It fails once
// MaxTextElements overlays exist.
func (s *Store) AddTextElement(e Entity) (Entity, error) {
	if e.ID == "" {
		e.ID = NewID()
	}
	e.IsTextElement = true

	s.mu.Lock()
	count := 0
	for i := range s.entities {
		if s.entities[i].IsTextElement {
			count++
		}
	}
	if count >= MaxTextElements {
		s.mu.Unlock()
		return Entity{}, ErrTextElementLimit
	}
	s.entities = append(s.entities, e)
	s.mu.Unlock()

	s.notify()
	return e, nil
}

// Update applies a partial update to one entity. Time patches are validated
// before anything is written: an inverted range, or a speech-caption range
// overlapping another speech caption, is rejected with ErrInvalidEdit and
// the store is left untouched.
func (s *Store) Update(id string, p Patch) (Entity, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Entity{}, ErrNotFound
	}
	e := &s.entities[idx]

	if p.StartTime != nil || p.EndTime != nil {
		start, end := e.StartTime, e.EndTime
		if p.StartTime != nil {
			start = *p.StartTime
		}
		if p.EndTime != nil {
			end = *p.EndTime
		}
		if start >= end {
			s.mu.Unlock()
			return Entity{}, fmt.Errorf("%w: start %.3f must precede end %.3f", ErrInvalidEdit, start, end)
		}
		if !e.IsTextElement {
			for i := range s.entities {
				o := &s.entities[i]
				if i == idx || o.IsTextElement {
					continue
				}
				if start < o.EndTime && o.StartTime < end {
					s.mu.Unlock()
					return Entity{}, fmt.Errorf("%w: range [%.3f, %.3f] overlaps caption %s", ErrInvalidEdit, start, end, o.ID)
				}
			}
		}
		e.StartTime = start
		e.EndTime = end
	}

	if p.Text != nil {
		e.Text = *p.Text
	}
	if p.Animation != nil {
		e.Animation = *p.Animation
	}
	if p.CustomStyle != nil {
		cs := *p.CustomStyle
		e.CustomStyle = &cs
	}
	out := e.Clone()
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// UpdateWordStyle merges a partial override into the record for one word.
func (s *Store) UpdateWordStyle(id string, wordIndex int, p WordStylePatch) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	e := &s.entities[idx]
	if e.WordStyles == nil {
		e.WordStyles = make(map[string]WordStyle)
	}
	key := WordKey(e.ID, wordIndex)
	ws := e.WordStyles[key]
	if p.Color != nil {
		ws.Color = *p.Color
	}
	if p.Gradient != nil {
		ws.Gradient = *p.Gradient
	}
	if p.FontFamily != nil {
		ws.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		ws.FontSize = *p.FontSize
	}
	if p.FontWeight != nil {
		ws.FontWeight = *p.FontWeight
	}
	if p.Background != nil {
		ws.Background = *p.Background
	}
	if p.X != nil {
		ws.X = *p.X
	}
	if p.Y != nil {
		ws.Y = *p.Y
	}
	if p.Animation != nil {
		ws.Animation = *p.Animation
	}
	e.WordStyles[key] = ws
	s.mu.Unlock()

	s.notify()
	return nil
}

// SetTimes moves an entity's range without further validation beyond the
// identity check. Drag gestures clamp before calling, so the range is
// already legal. Speech captions moved out of order are marked for
// reordering at gesture end.
func (s *Store) SetTimes(id string, start, end float64, needsReorder bool) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.entities[i].StartTime = start
	s.entities[i].EndTime = end
	if !s.entities[i].IsTextElement {
		s.entities[i].NeedsReorder = needsReorder
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// Remove deletes an entity by ID.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.entities = append(s.entities[:idx], s.entities[idx+1:]...)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Split divides a speech caption in two. Text splits at the rune offset,
// time at the midpoint of the range. An offset producing an empty half is
// rejected with ErrInvalidEdit and leaves the store untouched.
func (s *Store) Split(id string, atTextOffset int) (first, second Entity, err error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Entity{}, Entity{}, ErrNotFound
	}
	e := s.entities[idx]

	runes := []rune(e.Text)
	if atTextOffset < 0 || atTextOffset > len(runes) {
		atTextOffset = len(runes) / 2
	}
	firstText := strings.TrimSpace(string(runes[:atTextOffset]))
	secondText := strings.TrimSpace(string(runes[atTextOffset:]))
	if firstText == "" || secondText == "" {
		s.mu.Unlock()
		return Entity{}, Entity{}, fmt.Errorf("%w: split would produce an empty half", ErrInvalidEdit)
	}

	mid := (e.StartTime + e.EndTime) / 2

	s.entities[idx].Text = firstText
	s.entities[idx].EndTime = mid
	newEntity := Entity{
		ID:        NewID(),
		Text:      secondText,
		StartTime: mid,
		EndTime:   e.EndTime,
	}
	s.entities = append(s.entities[:idx+1], append([]Entity{newEntity}, s.entities[idx+1:]...)...)

	first = s.entities[idx].Clone()
	second = newEntity.Clone()
	s.mu.Unlock()

	s.notify()
	return first, second, nil
}

// Merge joins a speech caption with the next speech caption in start order:
// texts concatenate with a space, the range covers both. Word styles of the
// second entity are dropped since its word indices no longer hold.
func (s *Store) Merge(id string) (Entity, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Entity{}, ErrNotFound
	}
	e := &s.entities[idx]
	if e.IsTextElement {
		s.mu.Unlock()
		return Entity{}, fmt.Errorf("%w: text elements cannot be merged", ErrInvalidEdit)
	}

	nextIdx := -1
	for i := range s.entities {
		o := &s.entities[i]
		if i == idx || o.IsTextElement {
			continue
		}
		if o.StartTime >= e.EndTime && (nextIdx < 0 || o.StartTime < s.entities[nextIdx].StartTime) {
			nextIdx = i
		}
	}
	if nextIdx < 0 {
		s.mu.Unlock()
		return Entity{}, fmt.Errorf("%w: no following caption to merge with", ErrInvalidEdit)
	}

	next := s.entities[nextIdx]
	e.Text = strings.TrimSpace(e.Text + " " + next.Text)
	e.EndTime = next.EndTime
	out := e.Clone()
	s.entities = append(s.entities[:nextIdx], s.entities[nextIdx+1:]...)
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// ReplaceAll swaps the whole collection, used by generation and undo/redo.
func (s *Store) ReplaceAll(entities []Entity) {
	s.mu.Lock()
	s.entities = CloneEntities(entities)
	s.mu.Unlock()
	s.notify()
}

// SortSpeech restores speech-caption ordering after a move gesture: text
// elements keep their relative order ahead of speech captions, speech
// captions sort by start time, and transient reorder markers are stripped.
func (s *Store) SortSpeech() {
	s.mu.Lock()
	var texts, speech []Entity
	for i := range s.entities {
		if s.entities[i].IsTextElement {
			texts = append(texts, s.entities[i])
		} else {
			e := s.entities[i]
			e.NeedsReorder = false
			speech = append(speech, e)
		}
	}
	sort.SliceStable(speech, func(i, j int) bool {
		return speech[i].StartTime < speech[j].StartTime
	})
	s.entities = append(texts, speech...)
	s.mu.Unlock()
	s.notify()
}

// List returns a deep copy of all entities in store order.
func (s *Store) List() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneEntities(s.entities)
}

// Speech returns the speech captions in store order.
func (s *Store) Speech() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entity
	for i := range s.entities {
		if !s.entities[i].IsTextElement {
			out = append(out, s.entities[i].Clone())
		}
	}
	return out
}

// TextElements returns the text overlays in store order.
func (s *Store) TextElements() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entity
	for i := range s.entities {
		if s.entities[i].IsTextElement {
			out = append(out, s.entities[i].Clone())
		}
	}
	return out
}

// Get returns one entity by ID.
func (s *Store) Get(id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Entity{}, ErrNotFound
	}
	return s.entities[idx].Clone(), nil
}

// ActiveAt returns the entities whose range contains the playback time.
func (s *Store) ActiveAt(now float64) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entity
	for i := range s.entities {
		if s.entities[i].ActiveAt(now) {
			out = append(out, s.entities[i].Clone())
		}
	}
	return out
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(id string) int {
	for i := range s.entities {
		if s.entities[i].ID == id {
			return i
		}
	}
	return -1
}
