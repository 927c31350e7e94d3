package geom

import (
	"image"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func pt(x, y float64) r2.Vec { return r2.Vec{X: x, Y: y} }

func TestCanonFlipsNegativeSize(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: -5, H: -8}.Canon()
	want := Rect{X: 5, Y: 12, W: 5, H: 8}
	if r != want {
		t.Fatalf("Canon = %+v, want %+v", r, want)
	}
}

func TestExpansionFor(t *testing.T) {
	layer := Rect{X: 0, Y: 0, W: 100, H: 100}
	stroke := Rect{X: -25, Y: 45, W: 150, H: 10}
	e := layer.ExpansionFor(stroke)
	if e.Left != 25 || e.Right != 25 || e.Top != 0 || e.Bottom != 0 {
		t.Fatalf("unexpected expansion %+v", e)
	}
	grown := layer.Expand(e)
	if grown != (Rect{X: -25, Y: 0, W: 150, H: 100}) {
		t.Fatalf("unexpected grown rect %+v", grown)
	}
	if !layer.ExpansionFor(Rect{X: 10, Y: 10, W: 5, H: 5}).Zero() {
		t.Fatalf("contained rect should need no expansion")
	}
}

func TestUnionAndContains(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: -5, W: 10, H: 10}
	u := a.Union(b)
	if u != (Rect{X: 0, Y: -5, W: 15, H: 15}) {
		t.Fatalf("Union = %+v", u)
	}
	if !u.ExpansionFor(a).Zero() || !u.ExpansionFor(b).Zero() {
		t.Fatalf("union must contain both inputs")
	}
	if !a.Contains(pt(10, 10)) {
		t.Fatalf("bottom-right corner should be contained")
	}
	if a.Contains(pt(10.5, 3)) {
		t.Fatalf("point outside reported as contained")
	}
}

func TestImageRoundsOutward(t *testing.T) {
	r := Rect{X: 0.5, Y: -0.5, W: 2, H: 2}
	if got, want := r.Image(), image.Rect(0, -1, 3, 2); got != want {
		t.Fatalf("Image = %v, want %v", got, want)
	}
}

func TestMidAndDist(t *testing.T) {
	if d := Dist(pt(0, 0), pt(3, 4)); d != 5 {
		t.Fatalf("Dist = %v", d)
	}
	if m := Mid(pt(0, 0), pt(4, 2)); m != pt(2, 1) {
		t.Fatalf("Mid = %v", m)
	}
}
