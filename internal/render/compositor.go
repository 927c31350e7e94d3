// Package render composites the layer stack into display and export images.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/example/layerpaint/internal/geom"
	"github.com/example/layerpaint/internal/layers"
	xdraw "golang.org/x/image/draw"
)

// DefaultCheckerSize is the checkerboard square size in canvas units.
const DefaultCheckerSize = 8

// Compositor draws the visible layers over a checkerboard that marks
// transparent areas. The checkerboard is cached per canvas size.
type Compositor struct {
	Light, Dark color.Color
	CheckerSize int

	backdrop *image.RGBA
}

// NewCompositor returns a compositor using the given checkerboard colours.
func NewCompositor(light, dark color.Color) *Compositor {
	return &Compositor{Light: light, Dark: dark, CheckerSize: DefaultCheckerSize}
}

// Compose clears dst to the checkerboard and draws every visible layer in
// stack order. dst is in canvas coordinates with its origin at (0,0).
func (c *Compositor) Compose(dst *image.RGBA, stack []*layers.Layer) {
	c.drawBackdrop(dst)
	drawLayers(dst, stack)
}

// Invalidate drops the cached checkerboard, used after a theme change.
func (c *Compositor) Invalidate() { c.backdrop = nil }

func (c *Compositor) drawBackdrop(dst *image.RGBA) {
	b := dst.Bounds()
	if c.backdrop == nil || c.backdrop.Bounds() != b {
		c.backdrop = image.NewRGBA(b)
		size := c.CheckerSize
		if size <= 0 {
			size = DefaultCheckerSize
		}
		Checkerboard(c.backdrop, b, size, c.Light, c.Dark)
	}
	draw.Draw(dst, b, c.backdrop, b.Min, draw.Src)
}

// Checkerboard fills rect of dst with alternating squares of light and dark.
func Checkerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.Color) {
	l := image.NewUniform(light)
	d := image.NewUniform(dark)
	for y := rect.Min.Y; y < rect.Max.Y; y += size {
		for x := rect.Min.X; x < rect.Max.X; x += size {
			src := l
			if ((x/size)+(y/size))%2 != 0 {
				src = d
			}
			cell := image.Rect(x, y, x+size, y+size).Intersect(rect)
			draw.Draw(dst, cell, src, image.Point{}, draw.Src)
		}
	}
}

// Flatten draws the visible layers onto a transparent image of the canvas
// size. Nothing marks transparency, so it stays transparent.
func Flatten(stack []*layers.Layer, canvas geom.Size) *image.RGBA {
	w := int(math.Round(canvas.W))
	h := int(math.Round(canvas.H))
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	drawLayers(dst, stack)
	return dst
}

func drawLayers(dst *image.RGBA, stack []*layers.Layer) {
	for _, l := range stack {
		if !l.Visible || l.Surface == nil || l.Surface.Empty() {
			continue
		}
		DrawLayer(dst, l)
	}
}

// LayerRect returns the integer destination rectangle of l in canvas space.
func LayerRect(l *layers.Layer) image.Rectangle {
	return image.Rect(
		int(math.Round(l.X)),
		int(math.Round(l.Y)),
		int(math.Round(l.X+l.Width)),
		int(math.Round(l.Y+l.Height)),
	)
}

// DrawLayer composites a single layer over dst at its logical rectangle,
// rescaling when the logical size differs from the pixel size.
func DrawLayer(dst *image.RGBA, l *layers.Layer) {
	dr := LayerRect(l)
	if dr.Empty() || dr.Intersect(dst.Bounds()).Empty() {
		return
	}
	src := l.Surface.Image()
	if dr.Dx() == src.Rect.Dx() && dr.Dy() == src.Rect.Dy() {
		draw.Draw(dst, dr, src, image.Point{}, draw.Over)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dr, src, src.Rect, draw.Over, nil)
}
