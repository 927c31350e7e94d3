package layers

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when adding a layer whose id is present.
	ErrDuplicateID = errors.New("duplicate layer id")
	// ErrNotFound is returned for an unknown layer id.
	ErrNotFound = errors.New("layer not found")
	// ErrIndexRange is returned when a stack index is out of range.
	ErrIndexRange = errors.New("layer index out of range")
	// ErrInvalidLayer is returned for layers without a surface or with a
	// non-positive logical size.
	ErrInvalidLayer = errors.New("invalid layer")
)

// Store is the ordered layer stack. Index 0 is the back, the last layer is
// drawn on top. The store only mutates; it never records history.
type Store struct {
	layers   []*Layer
	selected ID
	nextID   ID
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// NewID returns an id that has never been handed out by this store.
func (s *Store) NewID() ID {
	if s.nextID == 0 {
		s.nextID = 1
	}
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) reserve(id ID) {
	if id >= s.nextID {
		s.nextID = id + 1
	}
}

// Len returns the number of layers.
func (s *Store) Len() int { return len(s.layers) }

// Layers returns the stack in compositing order. The slice is a copy; the
// layers are shared.
func (s *Store) Layers() []*Layer {
	out := make([]*Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// At returns the layer at index i.
func (s *Store) At(i int) (*Layer, error) {
	if i < 0 || i >= len(s.layers) {
		return nil, fmt.Errorf("%w: %d", ErrIndexRange, i)
	}
	return s.layers[i], nil
}

// Index returns the stack position of id or -1.
func (s *Store) Index(id ID) int {
	for i, l := range s.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the layer with the given id.
func (s *Store) Get(id ID) (*Layer, bool) {
	i := s.Index(id)
	if i < 0 {
		return nil, false
	}
	return s.layers[i], true
}

// Add inserts l at index. An index outside [0, Len] appends. A zero id is
// replaced with a fresh one.
func (s *Store) Add(l *Layer, index int) error {
	if l == nil || l.Surface == nil || !(l.Width > 0 && l.Height > 0) {
		return ErrInvalidLayer
	}
	if l.ID == 0 {
		l.ID = s.NewID()
	}
	if s.Index(l.ID) >= 0 {
		return fmt.Errorf("%w: %d", ErrDuplicateID, l.ID)
	}
	s.reserve(l.ID)
	if index < 0 || index > len(s.layers) {
		index = len(s.layers)
	}
	s.layers = append(s.layers, nil)
	copy(s.layers[index+1:], s.layers[index:])
	s.layers[index] = l
	return nil
}

// Remove deletes the layer with id. When it was selected the selection moves
// to the layer that takes its index, else the one below, else none.
func (s *Store) Remove(id ID) error {
	i := s.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	if s.selected != id {
		return nil
	}
	switch {
	case i < len(s.layers):
		s.selected = s.layers[i].ID
	case i > 0:
		s.selected = s.layers[i-1].ID
	default:
		s.selected = 0
	}
	return nil
}

// Reorder moves the layer at from so that it ends up at index to.
func (s *Store) Reorder(from, to int) error {
	n := len(s.layers)
	if from < 0 || from >= n {
		return fmt.Errorf("%w: %d", ErrIndexRange, from)
	}
	if to < 0 || to >= n {
		return fmt.Errorf("%w: %d", ErrIndexRange, to)
	}
	if from == to {
		return nil
	}
	l := s.layers[from]
	s.layers = append(s.layers[:from], s.layers[from+1:]...)
	s.layers = append(s.layers, nil)
	copy(s.layers[to+1:], s.layers[to:])
	s.layers[to] = l
	return nil
}

// SetVisible toggles the visibility of id.
func (s *Store) SetVisible(id ID, visible bool) error {
	l, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	l.Visible = visible
	return nil
}

// Replace swaps the layer with id for nl in the same stack position. The
// replacement keeps the id.
func (s *Store) Replace(id ID, nl *Layer) error {
	i := s.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if nl == nil || nl.Surface == nil || !(nl.Width > 0 && nl.Height > 0) {
		return ErrInvalidLayer
	}
	nl.ID = id
	s.layers[i] = nl
	return nil
}

// Select makes id the selected layer. Unknown ids clear the selection.
func (s *Store) Select(id ID) {
	if _, ok := s.Get(id); !ok {
		s.selected = 0
		return
	}
	s.selected = id
}

// SelectedID returns the selected id or zero.
func (s *Store) SelectedID() ID { return s.selected }

// Selected returns the selected layer, if any.
func (s *Store) Selected() (*Layer, bool) {
	if s.selected == 0 {
		return nil, false
	}
	return s.Get(s.selected)
}

// Reset replaces the whole stack, used when restoring history. The id
// counter never moves backwards.
func (s *Store) Reset(layers []*Layer, selected ID) {
	s.layers = make([]*Layer, len(layers))
	copy(s.layers, layers)
	for _, l := range s.layers {
		s.reserve(l.ID)
	}
	s.Select(selected)
}
