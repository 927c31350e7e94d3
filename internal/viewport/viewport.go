// Package viewport maps between screen and canvas-logical coordinates.
//
// A point on the canvas appears on screen at canvas*Zoom + Offset.
package viewport

import (
	"math"

	"github.com/example/layerpaint/internal/geom"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// MinZoom and MaxZoom bound every zoom change.
	MinZoom = 0.02
	MaxZoom = 64.0
	// FitMargin leaves a border around the canvas when fitting.
	FitMargin = 0.95
	// WheelStep is the zoom factor applied per wheel notch.
	WheelStep = 1.1
)

// Metrics is supplied by the host window. It reports the container size in
// pixels and converts client coordinates into container-local ones.
type Metrics interface {
	ContainerSize() geom.Size
	ClientToContainer(p r2.Vec) r2.Vec
}

// FixedMetrics is a Metrics with a constant container and no client offset.
type FixedMetrics geom.Size

// ContainerSize implements Metrics.
func (m FixedMetrics) ContainerSize() geom.Size { return geom.Size(m) }

// ClientToContainer implements Metrics.
func (m FixedMetrics) ClientToContainer(p r2.Vec) r2.Vec { return p }

// Viewport is the zoom and offset of the canvas inside its container.
type Viewport struct {
	Zoom   float64
	Offset r2.Vec

	pinch *pinchState
}

type pinchState struct {
	dist   float64
	zoom   float64
	anchor r2.Vec // canvas point under the initial midpoint
}

// New returns an identity viewport.
func New() *Viewport {
	return &Viewport{Zoom: 1}
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) || z <= 0 {
		return MinZoom
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// ScreenToCanvas converts a container point into canvas coordinates.
func (v *Viewport) ScreenToCanvas(p r2.Vec) r2.Vec {
	return r2.Scale(1/v.Zoom, r2.Sub(p, v.Offset))
}

// CanvasToScreen converts a canvas point into container coordinates.
func (v *Viewport) CanvasToScreen(p r2.Vec) r2.Vec {
	return r2.Add(r2.Scale(v.Zoom, p), v.Offset)
}

// CanvasRectToScreen converts a canvas rectangle into container space.
func (v *Viewport) CanvasRectToScreen(r geom.Rect) geom.Rect {
	min := v.CanvasToScreen(r.Min())
	return geom.Rect{X: min.X, Y: min.Y, W: r.W * v.Zoom, H: r.H * v.Zoom}
}

// FitToView scales the canvas to fit the container with a small margin and
// centres it.
func (v *Viewport) FitToView(container, canvas geom.Size) {
	if container.Empty() || canvas.Empty() {
		return
	}
	z := math.Min(container.W/canvas.W, container.H/canvas.H) * FitMargin
	v.Zoom = clampZoom(z)
	v.center(container, canvas)
}

// ZoomTo100 shows the canvas at its natural size, centred.
func (v *Viewport) ZoomTo100(container, canvas geom.Size) {
	v.Zoom = 1
	v.center(container, canvas)
}

func (v *Viewport) center(container, canvas geom.Size) {
	v.Offset = r2.Vec{
		X: (container.W - canvas.W*v.Zoom) / 2,
		Y: (container.H - canvas.H*v.Zoom) / 2,
	}
}

// ZoomAt changes the zoom while keeping the canvas point under anchor fixed
// on screen.
func (v *Viewport) ZoomAt(anchor r2.Vec, zoom float64) {
	c := v.ScreenToCanvas(anchor)
	v.Zoom = clampZoom(zoom)
	v.Offset = r2.Sub(anchor, r2.Scale(v.Zoom, c))
}

// Wheel zooms about anchor by WheelStep per notch. Negative notches zoom in.
func (v *Viewport) Wheel(anchor r2.Vec, notches float64) {
	v.ZoomAt(anchor, v.Zoom*math.Pow(WheelStep, -notches))
}

// Pan moves the canvas by a screen-space delta.
func (v *Viewport) Pan(delta r2.Vec) {
	v.Offset = r2.Add(v.Offset, delta)
}

// BeginPinch records the initial finger positions.
func (v *Viewport) BeginPinch(a, b r2.Vec) {
	v.pinch = &pinchState{
		dist:   geom.Dist(a, b),
		zoom:   v.Zoom,
		anchor: v.ScreenToCanvas(geom.Mid(a, b)),
	}
}

// UpdatePinch rescales zoom by the ratio of finger distances and keeps the
// canvas point that was under the initial midpoint under the current one.
func (v *Viewport) UpdatePinch(a, b r2.Vec) {
	p := v.pinch
	if p == nil {
		return
	}
	if p.dist > 0 {
		v.Zoom = clampZoom(p.zoom * geom.Dist(a, b) / p.dist)
	}
	v.Offset = r2.Sub(geom.Mid(a, b), r2.Scale(v.Zoom, p.anchor))
}

// EndPinch drops the pinch state.
func (v *Viewport) EndPinch() { v.pinch = nil }

// Pinching reports whether a pinch is in progress.
func (v *Viewport) Pinching() bool { return v.pinch != nil }
