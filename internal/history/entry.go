// Package history records whole-document snapshots for undo and redo.
package history

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/example/layerpaint/internal/geom"
	"github.com/example/layerpaint/internal/layers"
	"github.com/example/layerpaint/internal/raster"
)

// ErrCorrupt is returned when a snapshot payload cannot be decoded back into
// the pixels it was taken from.
var ErrCorrupt = errors.New("corrupt history entry")

// LayerState is the frozen form of one layer.
type LayerState struct {
	ID      layers.ID
	Name    string
	X, Y    float64
	Width   float64
	Height  float64
	Visible bool

	PixelWidth  int
	PixelHeight int
	Payload     []byte
	Digest      [sha256.Size]byte
}

// Entry is an immutable snapshot of the canvas size and every layer.
type Entry struct {
	Canvas   geom.Size
	Layers   []LayerState
	Selected layers.ID
}

// Capture deep-copies the store into a new entry.
func Capture(store *layers.Store, canvas geom.Size) *Entry {
	ls := store.Layers()
	e := &Entry{Canvas: canvas, Selected: store.SelectedID(), Layers: make([]LayerState, 0, len(ls))}
	for _, l := range ls {
		pix := l.Surface.Pix()
		e.Layers = append(e.Layers, LayerState{
			ID:          l.ID,
			Name:        l.Name,
			X:           l.X,
			Y:           l.Y,
			Width:       l.Width,
			Height:      l.Height,
			Visible:     l.Visible,
			PixelWidth:  l.Surface.Width(),
			PixelHeight: l.Surface.Height(),
			Payload:     compress(pix),
			Digest:      sha256.Sum256(pix),
		})
	}
	return e
}

// Restore decodes every layer of the entry. Either all layers decode and are
// returned, or an error is returned and nothing should be applied.
func (e *Entry) Restore() ([]*layers.Layer, error) {
	out := make([]*layers.Layer, 0, len(e.Layers))
	for _, st := range e.Layers {
		size := st.PixelWidth * st.PixelHeight * 4
		pix, err := decompress(st.Payload, size)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrCorrupt, st.ID, err)
		}
		if sha256.Sum256(pix) != st.Digest {
			return nil, fmt.Errorf("%w: layer %d: digest mismatch", ErrCorrupt, st.ID)
		}
		surf, err := raster.FromPixels(st.PixelWidth, st.PixelHeight, pix)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrCorrupt, st.ID, err)
		}
		out = append(out, &layers.Layer{
			ID:      st.ID,
			Name:    st.Name,
			Surface: surf,
			X:       st.X,
			Y:       st.Y,
			Width:   st.Width,
			Height:  st.Height,
			Visible: st.Visible,
		})
	}
	return out, nil
}

// Equal reports whether both entries describe the same document. Selection
// is not part of the comparison.
func (e *Entry) Equal(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Canvas != o.Canvas || len(e.Layers) != len(o.Layers) {
		return false
	}
	for i := range e.Layers {
		a, b := &e.Layers[i], &o.Layers[i]
		if a.ID != b.ID || a.Name != b.Name || a.Visible != b.Visible ||
			a.X != b.X || a.Y != b.Y || a.Width != b.Width || a.Height != b.Height ||
			a.PixelWidth != b.PixelWidth || a.PixelHeight != b.PixelHeight ||
			a.Digest != b.Digest {
			return false
		}
	}
	return true
}

// Size returns the number of compressed payload bytes held by the entry.
func (e *Entry) Size() int {
	n := 0
	for _, l := range e.Layers {
		n += len(l.Payload)
	}
	return n
}
