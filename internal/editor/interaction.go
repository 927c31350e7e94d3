package editor

import (
	"github.com/example/layerpaint/internal/geom"
	"github.com/example/layerpaint/internal/layers"
	"github.com/example/layerpaint/internal/raster"
	"gonum.org/v1/gonum/spatial/r2"
)

// Kind identifies the gesture in progress.
type Kind int

const (
	KindDraw Kind = iota + 1
	KindDrawRect
	KindMove
	KindTransform
	KindCrop
	KindPan
	KindPinch
)

func (k Kind) String() string {
	switch k {
	case KindDraw:
		return "draw"
	case KindDrawRect:
		return "draw-rect"
	case KindMove:
		return "move"
	case KindTransform:
		return "transform"
	case KindCrop:
		return "crop"
	case KindPan:
		return "pan"
	case KindPinch:
		return "pinch"
	}
	return "idle"
}

// Interaction is the gesture currently owning the pointer. A nil
// Interaction means the editor is idle.
type Interaction interface {
	Kind() Kind
}

// drawGesture is a brush or eraser stroke. bbox accumulates every stamped
// point inflated by half the diameter, in canvas coordinates.
type drawGesture struct {
	layer    layers.ID
	erase    bool
	diameter float64
	last     r2.Vec
	pre      geom.Rect
	bbox     geom.Rect
}

func (*drawGesture) Kind() Kind { return KindDraw }

// rectGesture previews a rectangle by restoring snapshot before each redraw.
type rectGesture struct {
	layer    layers.ID
	start    r2.Vec
	pre      geom.Rect
	bbox     geom.Rect
	drawn    bool
	snapshot *raster.Surface
}

func (*rectGesture) Kind() Kind { return KindDrawRect }

type moveGesture struct {
	layer layers.ID
	start r2.Vec
	pre   geom.Rect
}

func (*moveGesture) Kind() Kind { return KindMove }

type transformGesture struct {
	layer  layers.ID
	handle Handle
	start  r2.Vec
	pre    geom.Rect
}

func (*transformGesture) Kind() Kind { return KindTransform }

type cropGesture struct {
	handle Handle
	start  r2.Vec
	pre    geom.Rect
}

func (*cropGesture) Kind() Kind { return KindCrop }

// panGesture tracks the last screen position.
type panGesture struct {
	last r2.Vec
}

func (*panGesture) Kind() Kind { return KindPan }

type pinchGesture struct{}

func (*pinchGesture) Kind() Kind { return KindPinch }

// TextPlacement is an open text prompt anchored at a canvas point.
type TextPlacement struct {
	Pos  r2.Vec
	Text string
}
