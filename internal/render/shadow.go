package render

import (
	"image"
	"image/color"
	"image/draw"
)

// ShadowOptions configures the drop shadow added around an exported image.
type ShadowOptions struct {
	Radius  int
	Offset  image.Point
	Opacity float64
	Color   color.RGBA
}

// ShadowResult is the padded image and where the canvas origin ended up in it.
type ShadowResult struct {
	Image  *image.RGBA
	Origin image.Point
}

// DefaultShadowOptions returns a soft black shadow offset down and right.
func DefaultShadowOptions() ShadowOptions {
	return ShadowOptions{
		Radius:  24,
		Offset:  image.Pt(16, 16),
		Opacity: 0.55,
	}
}

// ApplyShadow pads img so a blurred copy of its alpha fits behind it and
// composites img over that shadow. Images without area and zero opacity are
// returned untouched.
func ApplyShadow(img *image.RGBA, opts ShadowOptions) ShadowResult {
	if img == nil {
		return ShadowResult{}
	}
	src := img.Bounds()
	if src.Empty() || opts.Opacity <= 0 {
		return ShadowResult{Image: img}
	}
	opacity := opts.Opacity
	if opacity > 1 {
		opacity = 1
	}
	radius := opts.Radius
	if radius < 0 {
		radius = 0
	}

	padded := src.Inset(-radius)
	shadow := padded.Add(opts.Offset)
	total := src.Union(shadow)
	origin := src.Min.Sub(total.Min)

	alpha := image.NewAlpha(padded.Sub(padded.Min))
	for y := src.Min.Y; y < src.Max.Y; y++ {
		for x := src.Min.X; x < src.Max.X; x++ {
			alpha.Pix[(y-padded.Min.Y)*alpha.Stride+(x-padded.Min.X)] = img.Pix[img.PixOffset(x, y)+3]
		}
	}
	boxBlur(alpha, radius)

	dst := image.NewRGBA(total.Sub(total.Min))
	tint := opts.Color
	tint.A = uint8(opacity*255 + 0.5)
	if tint.A > 0 {
		draw.DrawMask(dst, alpha.Bounds().Add(shadow.Min.Sub(total.Min)), image.NewUniform(tint), image.Point{}, alpha, image.Point{}, draw.Over)
	}
	draw.Draw(dst, src.Sub(total.Min), img, src.Min, draw.Over)
	return ShadowResult{Image: dst, Origin: origin}
}

// boxBlur blurs m in place with a separable box filter of the given radius.
func boxBlur(m *image.Alpha, radius int) {
	if radius <= 0 {
		return
	}
	w, h := m.Rect.Dx(), m.Rect.Dy()
	n := w
	if h > n {
		n = h
	}
	prefix := make([]int, n+1)
	line := make([]uint8, n)

	blur := func(get func(i int) uint8, set func(i int, v uint8), length int) {
		for i := 0; i < length; i++ {
			prefix[i+1] = prefix[i] + int(get(i))
		}
		for i := 0; i < length; i++ {
			lo, hi := i-radius, i+radius
			if lo < 0 {
				lo = 0
			}
			if hi >= length {
				hi = length - 1
			}
			line[i] = uint8((prefix[hi+1] - prefix[lo]) / (hi - lo + 1))
		}
		for i := 0; i < length; i++ {
			set(i, line[i])
		}
	}

	for y := 0; y < h; y++ {
		row := m.Pix[y*m.Stride:]
		blur(func(i int) uint8 { return row[i] }, func(i int, v uint8) { row[i] = v }, w)
	}
	for x := 0; x < w; x++ {
		blur(
			func(i int) uint8 { return m.Pix[i*m.Stride+x] },
			func(i int, v uint8) { m.Pix[i*m.Stride+x] = v },
			h,
		)
	}
}
