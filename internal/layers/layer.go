// Package layers holds the ordered layer stack of an editing session.
package layers

import (
	"github.com/example/layerpaint/internal/geom"
	"github.com/example/layerpaint/internal/raster"
	"gonum.org/v1/gonum/spatial/r2"
)

// ID identifies a layer for its whole lifetime. Zero means no layer.
type ID uint64

// Layer is a positioned, named pixel surface. X, Y, Width and Height are in
// canvas-logical units and may differ from the surface's pixel size when the
// layer has been scaled.
type Layer struct {
	ID      ID
	Name    string
	Surface *raster.Surface
	X, Y    float64
	Width   float64
	Height  float64
	Visible bool
}

// Bounds returns the logical rectangle covered by the layer.
func (l *Layer) Bounds() geom.Rect {
	return geom.Rect{X: l.X, Y: l.Y, W: l.Width, H: l.Height}
}

// SetBounds moves and resizes the layer without touching its pixels.
func (l *Layer) SetBounds(r geom.Rect) {
	l.X, l.Y, l.Width, l.Height = r.X, r.Y, r.W, r.H
}

// Scale returns the pixel-per-logical-unit ratio on each axis.
func (l *Layer) Scale() (sx, sy float64) {
	sx, sy = 1, 1
	if l.Width > 0 {
		sx = float64(l.Surface.Width()) / l.Width
	}
	if l.Height > 0 {
		sy = float64(l.Surface.Height()) / l.Height
	}
	return sx, sy
}

// ToPixel converts a canvas-logical point into the surface's pixel space.
func (l *Layer) ToPixel(p r2.Vec) r2.Vec {
	sx, sy := l.Scale()
	return r2.Vec{X: (p.X - l.X) * sx, Y: (p.Y - l.Y) * sy}
}

// Contains reports whether the canvas point p is inside the layer bounds.
func (l *Layer) Contains(p r2.Vec) bool {
	return l.Bounds().Contains(p)
}

// Clone returns a copy of the layer owning a separate surface.
func (l *Layer) Clone() *Layer {
	c := *l
	if l.Surface != nil {
		c.Surface = l.Surface.Clone()
	}
	return &c
}
