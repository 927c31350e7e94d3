// Package geom holds the floating point rectangles used for canvas-logical
// coordinates. Points are gonum r2 vectors.
package geom

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Size is a logical width and height.
type Size struct {
	W, H float64
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return !(s.W > 0 && s.H > 0)
}

// Rect is an axis aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// RectFromPoints returns the rectangle spanning a and b in any order.
func RectFromPoints(a, b r2.Vec) Rect {
	return Rect{X: a.X, Y: a.Y, W: b.X - a.X, H: b.Y - a.Y}.Canon()
}

// Min returns the top-left corner.
func (r Rect) Min() r2.Vec { return r2.Vec{X: r.X, Y: r.Y} }

// Max returns the bottom-right corner.
func (r Rect) Max() r2.Vec { return r2.Vec{X: r.X + r.W, Y: r.Y + r.H} }

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Size returns the rectangle dimensions.
func (r Rect) Size() Size { return Size{W: r.W, H: r.H} }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return !(r.W > 0 && r.H > 0) }

// Canon flips negative widths and heights so the rectangle keeps its area
// with a top-left origin.
func (r Rect) Canon() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// Contains reports whether p lies inside r. The right and bottom edges are
// inclusive so a pointer on the border still hits.
func (r Rect) Contains(p r2.Vec) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	x0 := math.Min(r.X, o.X)
	y0 := math.Min(r.Y, o.Y)
	x1 := math.Max(r.Right(), o.Right())
	y1 := math.Max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Inflate grows r by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// Translate moves r by v.
func (r Rect) Translate(v r2.Vec) Rect {
	r.X += v.X
	r.Y += v.Y
	return r
}

// Center returns the midpoint of r.
func (r Rect) Center() r2.Vec {
	return r2.Vec{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Image returns the integer rectangle enclosing r.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.Right())),
		int(math.Ceil(r.Bottom())),
	)
}

// Expansion is the amount each side of a rectangle must move outward.
type Expansion struct {
	Left, Top, Right, Bottom float64
}

// Zero reports whether no side needs to move.
func (e Expansion) Zero() bool {
	return e.Left == 0 && e.Top == 0 && e.Right == 0 && e.Bottom == 0
}

// ExpansionFor returns the non-negative per-side growth r needs to contain o.
func (r Rect) ExpansionFor(o Rect) Expansion {
	return Expansion{
		Left:   math.Max(0, r.X-o.X),
		Top:    math.Max(0, r.Y-o.Y),
		Right:  math.Max(0, o.Right()-r.Right()),
		Bottom: math.Max(0, o.Bottom()-r.Bottom()),
	}
}

// Expand applies e to r.
func (r Rect) Expand(e Expansion) Rect {
	return Rect{
		X: r.X - e.Left,
		Y: r.Y - e.Top,
		W: r.W + e.Left + e.Right,
		H: r.H + e.Top + e.Bottom,
	}
}

// Dist returns the euclidean distance between a and b.
func Dist(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Mid returns the midpoint of a and b.
func Mid(a, b r2.Vec) r2.Vec {
	return r2.Scale(0.5, r2.Add(a, b))
}
