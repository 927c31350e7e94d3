package viewport

import (
	"math"
	"testing"

	"github.com/example/layerpaint/internal/geom"
	"gonum.org/v1/gonum/spatial/r2"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func nearVec(a, b r2.Vec) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func TestRoundTrip(t *testing.T) {
	v := &Viewport{Zoom: 2.5, Offset: r2.Vec{X: 13, Y: -7}}
	p := r2.Vec{X: 42, Y: 17}
	if got := v.ScreenToCanvas(v.CanvasToScreen(p)); !nearVec(got, p) {
		t.Fatalf("round trip = %v, want %v", got, p)
	}
}

func TestFitToView(t *testing.T) {
	v := New()
	v.FitToView(geom.Size{W: 800, H: 600}, geom.Size{W: 400, H: 400})
	if !near(v.Zoom, 1.5*FitMargin) {
		t.Fatalf("Zoom = %v", v.Zoom)
	}
	c := v.CanvasToScreen(r2.Vec{X: 200, Y: 200})
	if !nearVec(c, r2.Vec{X: 400, Y: 300}) {
		t.Fatalf("canvas centre at %v, want container centre", c)
	}
}

func TestFitIgnoresEmptySizes(t *testing.T) {
	v := New()
	v.FitToView(geom.Size{}, geom.Size{W: 10, H: 10})
	if v.Zoom != 1 {
		t.Fatalf("zoom changed for empty container")
	}
}

func TestZoomTo100Centres(t *testing.T) {
	v := &Viewport{Zoom: 3}
	v.ZoomTo100(geom.Size{W: 100, H: 100}, geom.Size{W: 50, H: 20})
	if v.Zoom != 1 || !nearVec(v.Offset, r2.Vec{X: 25, Y: 40}) {
		t.Fatalf("viewport = %+v", v)
	}
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	v := &Viewport{Zoom: 1, Offset: r2.Vec{X: 10, Y: 10}}
	anchor := r2.Vec{X: 110, Y: 60}
	before := v.ScreenToCanvas(anchor)
	v.ZoomAt(anchor, 4)
	if after := v.ScreenToCanvas(anchor); !nearVec(before, after) {
		t.Fatalf("anchor moved from %v to %v", before, after)
	}
	v.ZoomAt(anchor, 1e9)
	if v.Zoom != MaxZoom {
		t.Fatalf("zoom not clamped: %v", v.Zoom)
	}
}

func TestWheelDirection(t *testing.T) {
	v := New()
	v.Wheel(r2.Vec{}, -1)
	if !near(v.Zoom, WheelStep) {
		t.Fatalf("zoom in = %v", v.Zoom)
	}
	v.Wheel(r2.Vec{}, 1)
	if !near(v.Zoom, 1) {
		t.Fatalf("zoom out = %v", v.Zoom)
	}
}

func TestPinchKeepsMidpoint(t *testing.T) {
	v := &Viewport{Zoom: 1, Offset: r2.Vec{X: 5, Y: 5}}
	a0, b0 := r2.Vec{X: 100, Y: 100}, r2.Vec{X: 200, Y: 100}
	anchor := v.ScreenToCanvas(geom.Mid(a0, b0))
	v.BeginPinch(a0, b0)

	a1, b1 := r2.Vec{X: 50, Y: 150}, r2.Vec{X: 250, Y: 150}
	v.UpdatePinch(a1, b1)
	if !near(v.Zoom, 2) {
		t.Fatalf("pinch zoom = %v", v.Zoom)
	}
	if got := v.ScreenToCanvas(geom.Mid(a1, b1)); !nearVec(got, anchor) {
		t.Fatalf("midpoint maps to %v, want %v", got, anchor)
	}
	v.EndPinch()
	if v.Pinching() {
		t.Fatalf("pinch still active")
	}
}

func TestPan(t *testing.T) {
	v := New()
	v.Pan(r2.Vec{X: 3, Y: -4})
	if v.Offset != (r2.Vec{X: 3, Y: -4}) {
		t.Fatalf("Offset = %v", v.Offset)
	}
}
