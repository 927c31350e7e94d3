package editor

import (
	"math"

	"github.com/example/layerpaint/internal/geom"
	"gonum.org/v1/gonum/spatial/r2"
)

// Handle names a grip on a layer or crop rectangle.
type Handle int

const (
	HandleNone Handle = iota
	HandleBody
	HandleTopLeft
	HandleTop
	HandleTopRight
	HandleRight
	HandleBottomRight
	HandleBottom
	HandleBottomLeft
	HandleLeft
)

var handleNames = map[Handle]string{
	HandleNone:        "none",
	HandleBody:        "body",
	HandleTopLeft:     "tl",
	HandleTop:         "t",
	HandleTopRight:    "tr",
	HandleRight:       "r",
	HandleBottomRight: "br",
	HandleBottom:      "b",
	HandleBottomLeft:  "bl",
	HandleLeft:        "l",
}

func (h Handle) String() string { return handleNames[h] }

// ParseHandle returns the handle with the given short name.
func ParseHandle(s string) (Handle, bool) {
	for h, n := range handleNames {
		if n == s {
			return h, true
		}
	}
	return HandleNone, false
}

func (h Handle) movesLeft() bool {
	return h == HandleTopLeft || h == HandleLeft || h == HandleBottomLeft
}

func (h Handle) movesRight() bool {
	return h == HandleTopRight || h == HandleRight || h == HandleBottomRight
}

func (h Handle) movesTop() bool {
	return h == HandleTopLeft || h == HandleTop || h == HandleTopRight
}

func (h Handle) movesBottom() bool {
	return h == HandleBottomLeft || h == HandleBottom || h == HandleBottomRight
}

// HandleRect is the square drawn for a handle.
type HandleRect struct {
	Handle Handle
	Rect   geom.Rect
}

// HandleRects returns the eight resize handles of r, each size wide and
// centred on a corner or edge midpoint, in clockwise order from top-left.
func HandleRects(r geom.Rect, size float64) []HandleRect {
	hs := size / 2
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	at := func(h Handle, x, y float64) HandleRect {
		return HandleRect{Handle: h, Rect: geom.Rect{X: x - hs, Y: y - hs, W: size, H: size}}
	}
	return []HandleRect{
		at(HandleTopLeft, r.X, r.Y),
		at(HandleTop, cx, r.Y),
		at(HandleTopRight, r.Right(), r.Y),
		at(HandleRight, r.Right(), cy),
		at(HandleBottomRight, r.Right(), r.Bottom()),
		at(HandleBottom, cx, r.Bottom()),
		at(HandleBottomLeft, r.X, r.Bottom()),
		at(HandleLeft, r.X, cy),
	}
}

// hitHandle returns the resize handle of r under p, or HandleBody when p is
// inside r and body is allowed.
func hitHandle(r geom.Rect, p r2.Vec, size float64, body bool) Handle {
	for _, hr := range HandleRects(r, size) {
		if hr.Rect.Contains(p) {
			return hr.Handle
		}
	}
	if body && r.Contains(p) {
		return HandleBody
	}
	return HandleNone
}

// resizeFree drags the edges named by h by d. An edge dragged across its
// opposite flips the rectangle; each axis keeps at least MinLayerSize with
// the opposite edge fixed.
func resizeFree(pre geom.Rect, h Handle, d r2.Vec) geom.Rect {
	x0, x1 := pre.X, pre.Right()
	y0, y1 := pre.Y, pre.Bottom()
	switch {
	case h.movesLeft():
		x0, x1 = dragEdge(x1, x0+d.X)
	case h.movesRight():
		x0, x1 = dragEdge(x0, x1+d.X)
	}
	switch {
	case h.movesTop():
		y0, y1 = dragEdge(y1, y0+d.Y)
	case h.movesBottom():
		y0, y1 = dragEdge(y0, y1+d.Y)
	}
	return geom.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// dragEdge returns the ordered span between a fixed anchor and a moved edge,
// at least MinLayerSize long, keeping the side of the anchor the edge is on.
func dragEdge(anchor, edge float64) (lo, hi float64) {
	span := edge - anchor
	if math.Abs(span) < MinLayerSize {
		if span < 0 {
			span = -MinLayerSize
		} else {
			span = MinLayerSize
		}
	}
	edge = anchor + span
	if edge < anchor {
		return edge, anchor
	}
	return anchor, edge
}

// resizeLocked scales pre uniformly about the opposite corner, or about the
// midpoint of the opposite edge for edge handles. The axis with the larger
// proportional change drives the scale.
func resizeLocked(pre geom.Rect, h Handle, d r2.Vec) geom.Rect {
	if pre.Empty() {
		return pre
	}
	sx, sy := 0.0, 0.0
	switch {
	case h.movesLeft():
		sx = -1
	case h.movesRight():
		sx = 1
	}
	switch {
	case h.movesTop():
		sy = -1
	case h.movesBottom():
		sy = 1
	}
	fx := (pre.W + sx*d.X) / pre.W
	fy := (pre.H + sy*d.Y) / pre.H
	f := fx
	switch {
	case sx == 0:
		f = fy
	case sy == 0:
		f = fx
	case math.Abs(fy-1) > math.Abs(fx-1):
		f = fy
	}
	minF := math.Max(MinLayerSize/pre.W, MinLayerSize/pre.H)
	if f < minF {
		f = minF
	}
	w, h2 := pre.W*f, pre.H*f

	out := geom.Rect{W: w, H: h2}
	switch {
	case sx > 0:
		out.X = pre.X
	case sx < 0:
		out.X = pre.Right() - w
	default:
		out.X = pre.X + (pre.W-w)/2
	}
	switch {
	case sy > 0:
		out.Y = pre.Y
	case sy < 0:
		out.Y = pre.Bottom() - h2
	default:
		out.Y = pre.Y + (pre.H-h2)/2
	}
	return out
}

// resizeCrop adjusts a crop box. Edges never cross; the body translates.
func resizeCrop(pre geom.Rect, h Handle, d r2.Vec) geom.Rect {
	if h == HandleBody {
		return pre.Translate(d)
	}
	x0, x1 := pre.X, pre.Right()
	y0, y1 := pre.Y, pre.Bottom()
	if h.movesLeft() {
		x0 = math.Min(x0+d.X, x1-MinLayerSize)
	}
	if h.movesRight() {
		x1 = math.Max(x1+d.X, x0+MinLayerSize)
	}
	if h.movesTop() {
		y0 = math.Min(y0+d.Y, y1-MinLayerSize)
	}
	if h.movesBottom() {
		y1 = math.Max(y1+d.Y, y0+MinLayerSize)
	}
	return geom.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
