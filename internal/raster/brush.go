package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

// Mode selects how a brush shape is applied to the surface.
type Mode int

const (
	// ModePaint composites the colour over the existing pixels.
	ModePaint Mode = iota
	// ModeErase removes coverage from the existing pixels.
	ModeErase
)

// StampPoint draws a round dab of the given diameter centred at c.
func (s *Surface) StampPoint(c r2.Vec, diameter float64, col color.Color, mode Mode) {
	s.StrokeSegment(c, c, diameter, col, mode)
}

// StrokeSegment draws a round-capped segment from p0 to p1.
func (s *Surface) StrokeSegment(p0, p1 r2.Vec, diameter float64, col color.Color, mode Mode) {
	if s.Empty() || diameter <= 0 {
		return
	}
	poly := capsule(p0, p1, diameter/2)
	s.applyPolygon(poly, col, mode)
}

// FillRect fills r, given in pixel space, with col.
func (s *Surface) FillRect(r image.Rectangle, col color.Color) {
	r = r.Canon().Intersect(s.img.Rect)
	if r.Empty() {
		return
	}
	draw.Draw(s.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

// StrokeRect outlines r with bands of the given width centred on its edges.
// The four bands never overlap so translucent colours stay even.
func (s *Surface) StrokeRect(r image.Rectangle, width int, col color.Color) {
	if width <= 0 {
		return
	}
	r = r.Canon()
	outer := r.Inset(-width / 2)
	if width%2 == 1 {
		outer.Max = outer.Max.Add(image.Pt(1, 1))
	}
	inner := outer.Inset(width)
	if inner.Empty() {
		s.FillRect(outer, col)
		return
	}
	s.FillRect(image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y), col)
	s.FillRect(image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y), col)
	s.FillRect(image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y), col)
	s.FillRect(image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y), col)
}

// applyPolygon rasterises the convex polygon into a coverage mask over its
// bounding box and applies it in the requested mode.
func (s *Surface) applyPolygon(poly []r2.Vec, col color.Color, mode Mode) {
	if len(poly) < 3 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	area := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(s.img.Rect)
	if area.Empty() {
		return
	}

	z := vector.NewRasterizer(area.Dx(), area.Dy())
	z.DrawOp = draw.Src
	ox, oy := float64(area.Min.X), float64(area.Min.Y)
	z.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
	for _, p := range poly[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()
	mask := image.NewAlpha(image.Rect(0, 0, area.Dx(), area.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	switch mode {
	case ModeErase:
		s.eraseMask(area, mask)
	default:
		draw.DrawMask(s.img, area, image.NewUniform(col), image.Point{}, mask, image.Point{}, draw.Over)
	}
}

// eraseMask applies destination-out: every channel of the premultiplied
// pixel is scaled by the inverse of the mask coverage.
func (s *Surface) eraseMask(area image.Rectangle, mask *image.Alpha) {
	for y := 0; y < area.Dy(); y++ {
		for x := 0; x < area.Dx(); x++ {
			m := uint32(mask.Pix[y*mask.Stride+x])
			if m == 0 {
				continue
			}
			i := s.img.PixOffset(area.Min.X+x, area.Min.Y+y)
			keep := 255 - m
			for c := 0; c < 4; c++ {
				s.img.Pix[i+c] = uint8((uint32(s.img.Pix[i+c])*keep + 127) / 255)
			}
		}
	}
}

// capsule returns a convex polygon approximating the stadium shape swept by
// a circle of radius r moving from p0 to p1.
func capsule(p0, p1 r2.Vec, r float64) []r2.Vec {
	steps := int(math.Ceil(r * 2))
	if steps < 8 {
		steps = 8
	}
	if steps > 64 {
		steps = 64
	}
	d := r2.Sub(p1, p0)
	theta := 0.0
	if r2.Norm(d) > 0 {
		theta = math.Atan2(d.Y, d.X)
	}
	poly := make([]r2.Vec, 0, 2*steps+2)
	arc := func(c r2.Vec, from float64) {
		for i := 0; i <= steps; i++ {
			a := from + math.Pi*float64(i)/float64(steps)
			poly = append(poly, r2.Vec{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)})
		}
	}
	arc(p1, theta-math.Pi/2)
	arc(p0, theta+math.Pi/2)
	return poly
}
