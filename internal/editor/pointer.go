package editor

import (
	"image"
	"math"

	"github.com/example/layerpaint/internal/geom"
	"github.com/example/layerpaint/internal/layers"
	"github.com/example/layerpaint/internal/raster"
	"golang.org/x/mobile/event/mouse"
	"gonum.org/v1/gonum/spatial/r2"
)

// container converts a client point into container space.
func (s *Session) container(p r2.Vec) r2.Vec {
	if s.metrics == nil {
		return p
	}
	return s.metrics.ClientToContainer(p)
}

// canvasPoint maps a client point onto the canvas.
func (s *Session) canvasPoint(p r2.Vec) r2.Vec {
	return s.view.ScreenToCanvas(s.container(p))
}

// editable returns the selected layer when it can be drawn on.
func (s *Session) editable() (*layers.Layer, bool) {
	l, ok := s.store.Selected()
	if !ok || !l.Visible {
		return nil, false
	}
	return l, true
}

// PointerDown starts a gesture for the active tool. It is ignored while
// another gesture is in progress.
func (s *Session) PointerDown(p r2.Vec, b mouse.Button) {
	if s.active != nil {
		return
	}
	if b == mouse.ButtonMiddle || (b == mouse.ButtonLeft && s.spaceHeld) {
		s.active = &panGesture{last: s.container(p)}
		return
	}
	if b != mouse.ButtonLeft {
		return
	}
	c := s.canvasPoint(p)
	switch s.tool {
	case ToolBrush, ToolEraser:
		s.beginDraw(c)
	case ToolRectangle:
		s.beginRect(c)
	case ToolMove:
		s.beginMove(c)
	case ToolText:
		s.BeginText(c)
	case ToolCrop:
		if h := s.CropHandleAt(p); h != HandleNone {
			s.CropHandleDown(h, p)
		}
	}
}

// PointerMove advances the gesture in progress.
func (s *Session) PointerMove(p r2.Vec) {
	switch g := s.active.(type) {
	case *panGesture:
		cur := s.container(p)
		s.view.Pan(r2.Sub(cur, g.last))
		g.last = cur
		s.changed()
	case *drawGesture:
		s.continueDraw(g, s.canvasPoint(p))
	case *rectGesture:
		s.continueRect(g, s.canvasPoint(p))
	case *moveGesture:
		l, ok := s.store.Get(g.layer)
		if !ok {
			return
		}
		d := r2.Sub(s.canvasPoint(p), g.start)
		l.X, l.Y = g.pre.X+d.X, g.pre.Y+d.Y
		s.changed()
	case *transformGesture:
		l, ok := s.store.Get(g.layer)
		if !ok {
			return
		}
		d := r2.Sub(s.canvasPoint(p), g.start)
		if s.settings.AspectLock {
			l.SetBounds(resizeLocked(g.pre, g.handle, d))
		} else {
			l.SetBounds(resizeFree(g.pre, g.handle, d))
		}
		s.changed()
	case *cropGesture:
		d := r2.Sub(s.canvasPoint(p), g.start)
		s.crop = resizeCrop(g.pre, g.handle, d)
		s.changed()
	}
}

// PointerUp ends the gesture in progress. Every gesture except pan and
// pinch records a history entry.
func (s *Session) PointerUp(p r2.Vec) {
	g := s.active
	if g == nil {
		return
	}
	s.PointerMove(p)
	s.finish(g)
}

func (s *Session) finish(g Interaction) {
	s.active = nil
	switch g := g.(type) {
	case *panGesture, *pinchGesture:
		return
	case *drawGesture:
		s.endDraw(g)
	case *rectGesture:
		s.endRect(g)
	}
	s.commit()
}

func (s *Session) beginDraw(c r2.Vec) {
	l, ok := s.editable()
	if !ok {
		return
	}
	g := &drawGesture{
		layer: l.ID,
		erase: s.tool == ToolEraser,
		last:  c,
		pre:   l.Bounds(),
	}
	g.diameter = s.settings.BrushSize
	if g.erase {
		g.diameter = s.settings.EraserSize
	}
	g.bbox = geom.Rect{X: c.X, Y: c.Y}.Inflate(g.diameter / 2)
	s.active = g
	l = s.growLayer(l, g.bbox, nil)
	s.stroke(l, g, c, c)
}

func (s *Session) continueDraw(g *drawGesture, c r2.Vec) {
	l, ok := s.store.Get(g.layer)
	if !ok || c == g.last {
		return
	}
	g.bbox = g.bbox.Union(geom.Rect{X: c.X, Y: c.Y}.Inflate(g.diameter / 2))
	l = s.growLayer(l, g.bbox, nil)
	s.stroke(l, g, g.last, c)
	g.last = c
}

// stroke draws one segment in the layer's pixel space.
func (s *Session) stroke(l *layers.Layer, g *drawGesture, from, to r2.Vec) {
	sx, sy := l.Scale()
	mode := raster.ModePaint
	if g.erase {
		mode = raster.ModeErase
	}
	l.Surface.StrokeSegment(l.ToPixel(from), l.ToPixel(to), g.diameter*(sx+sy)/2, s.settings.Color, mode)
	s.changed()
}

func (s *Session) endDraw(g *drawGesture) {
	l, ok := s.store.Get(g.layer)
	if !ok {
		return
	}
	if g.erase {
		s.trimLayer(l)
		return
	}
	s.growLayer(l, g.bbox.Union(g.pre), nil)
}

// trimLayer shrinks l to the tight box around its opaque pixels, keeping
// them where they are on the canvas. A fully transparent layer is removed.
func (s *Session) trimLayer(l *layers.Layer) {
	r, ok := l.Surface.OpaqueBounds()
	if !ok {
		_ = s.store.Remove(l.ID)
		s.changed()
		return
	}
	if r == l.Surface.Bounds() {
		return
	}
	sx, sy := l.Scale()
	nl := &layers.Layer{
		Name:    l.Name,
		Surface: l.Surface.Extract(r, r.Dx(), r.Dy()),
		X:       l.X + float64(r.Min.X)/sx,
		Y:       l.Y + float64(r.Min.Y)/sy,
		Width:   float64(r.Dx()) / sx,
		Height:  float64(r.Dy()) / sy,
		Visible: l.Visible,
	}
	_ = s.store.Replace(l.ID, nl)
	s.changed()
}

// growLayer enlarges l so its logical bounds contain need. The surface grows
// by whole pixels on each side and the logical bounds follow from those
// pixel counts, so the pixel scale is unchanged and existing pixels keep
// their canvas position. A rectangle preview snapshot grows identically.
// It returns the layer now stored under l's id.
func (s *Session) growLayer(l *layers.Layer, need geom.Rect, rg *rectGesture) *layers.Layer {
	e := l.Bounds().ExpansionFor(need)
	if e.Zero() {
		return l
	}
	sx, sy := l.Scale()
	left, right := growPixels(e.Left, sx), growPixels(e.Right, sx)
	top, bottom := growPixels(e.Top, sy), growPixels(e.Bottom, sy)
	if left+right+top+bottom == 0 {
		return l
	}
	offset := image.Pt(left, top)
	newW := l.Surface.Width() + left + right
	newH := l.Surface.Height() + top + bottom

	nl := &layers.Layer{
		Name:    l.Name,
		Surface: l.Surface.Grow(newW, newH, offset),
		X:       l.X - float64(left)/sx,
		Y:       l.Y - float64(top)/sy,
		Width:   float64(newW) / sx,
		Height:  float64(newH) / sy,
		Visible: l.Visible,
	}
	if err := s.store.Replace(l.ID, nl); err != nil {
		return l
	}
	if rg != nil && rg.snapshot != nil {
		rg.snapshot = rg.snapshot.Grow(newW, newH, offset)
	}
	return nl
}

// growPixels is the whole number of pixels covering d logical units at
// scale. Float noise just above an integer does not add a pixel.
func growPixels(d, scale float64) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d*scale - 1e-9))
}

func (s *Session) beginRect(c r2.Vec) {
	l, ok := s.editable()
	if !ok {
		return
	}
	s.active = &rectGesture{
		layer:    l.ID,
		start:    c,
		pre:      l.Bounds(),
		snapshot: l.Surface.Clone(),
	}
}

// rectExtent is the area a rectangle from start to c touches. Outlines are
// centred on the edges so they reach half the stroke beyond the shape.
func (s *Session) rectExtent(start, c r2.Vec) (shape, extent geom.Rect) {
	shape = geom.RectFromPoints(start, c)
	if s.settings.Fill {
		return shape, shape
	}
	return shape, shape.Inflate(s.settings.RectStroke / 2)
}

func (s *Session) continueRect(g *rectGesture, c r2.Vec) {
	l, ok := s.store.Get(g.layer)
	if !ok {
		return
	}
	shape, extent := s.rectExtent(g.start, c)
	if shape.Empty() {
		l.Surface.CopyFrom(g.snapshot)
		g.drawn = false
		return
	}
	g.bbox = extent
	l = s.growLayer(l, extent, g)
	l.Surface.CopyFrom(g.snapshot)

	p0 := l.ToPixel(shape.Min())
	p1 := l.ToPixel(shape.Max())
	pr := image.Rect(
		int(math.Round(p0.X)), int(math.Round(p0.Y)),
		int(math.Round(p1.X)), int(math.Round(p1.Y)),
	)
	if s.settings.Fill {
		l.Surface.FillRect(pr, s.settings.Color)
	} else {
		sx, sy := l.Scale()
		w := int(math.Round(s.settings.RectStroke * (sx + sy) / 2))
		if w < 1 {
			w = 1
		}
		l.Surface.StrokeRect(pr, w, s.settings.Color)
	}
	g.drawn = true
	s.changed()
}

func (s *Session) endRect(g *rectGesture) {
	l, ok := s.store.Get(g.layer)
	if !ok || !g.drawn {
		return
	}
	s.growLayer(l, g.bbox.Union(g.pre), nil)
}

// beginMove hit-tests from the top of the stack, or only the selected layer
// when auto-select is off, and starts translating the hit layer.
func (s *Session) beginMove(c r2.Vec) {
	var hit *layers.Layer
	if s.settings.AutoSelect {
		ls := s.store.Layers()
		for i := len(ls) - 1; i >= 0; i-- {
			if ls[i].Visible && ls[i].Contains(c) {
				hit = ls[i]
				break
			}
		}
	} else if l, ok := s.editable(); ok && l.Contains(c) {
		hit = l
	}
	if hit == nil {
		return
	}
	if hit.ID != s.store.SelectedID() {
		s.store.Select(hit.ID)
		s.changed()
	}
	s.active = &moveGesture{layer: hit.ID, start: c, pre: hit.Bounds()}
}

// TransformHandleAt returns the resize handle of the selected layer under
// the client point p, if any.
func (s *Session) TransformHandleAt(p r2.Vec) Handle {
	l, ok := s.editable()
	if !ok {
		return HandleNone
	}
	r := s.view.CanvasRectToScreen(l.Bounds())
	return hitHandle(r, s.container(p), HandleSize, false)
}

// TransformHandleDown starts resizing the selected layer from handle h.
func (s *Session) TransformHandleDown(h Handle, p r2.Vec) bool {
	if s.active != nil || h == HandleNone || h == HandleBody {
		return false
	}
	l, ok := s.editable()
	if !ok {
		return false
	}
	s.active = &transformGesture{layer: l.ID, handle: h, start: s.canvasPoint(p), pre: l.Bounds()}
	return true
}

// CropHandleAt returns the crop handle under the client point p. Inside the
// box it returns HandleBody.
func (s *Session) CropHandleAt(p r2.Vec) Handle {
	if s.tool != ToolCrop {
		return HandleNone
	}
	r := s.view.CanvasRectToScreen(s.crop)
	return hitHandle(r, s.container(p), HandleSize, true)
}

// CropHandleDown starts adjusting the crop box from handle h.
func (s *Session) CropHandleDown(h Handle, p r2.Vec) bool {
	if s.active != nil || s.tool != ToolCrop || h == HandleNone {
		return false
	}
	s.active = &cropGesture{handle: h, start: s.canvasPoint(p), pre: s.crop}
	return true
}
