// Package raster implements the pixel buffers owned by layers.
//
// A Surface always has its origin at (0,0) and all coordinates given to its
// methods are in the surface's own pixel space.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Surface is an exclusively owned RGBA pixel buffer.
type Surface struct {
	img *image.RGBA
}

// New returns a transparent surface of the given pixel size. Negative sizes
// are treated as zero; drawing on a zero-area surface does nothing.
func New(w, h int) *Surface {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// FromImage copies img into a new surface with its origin moved to (0,0).
func FromImage(img image.Image) *Surface {
	b := img.Bounds()
	s := New(b.Dx(), b.Dy())
	draw.Draw(s.img, s.img.Bounds(), img, b.Min, draw.Src)
	return s
}

// FromPixels builds a surface from raw premultiplied RGBA bytes laid out with
// a stride of 4*w.
func FromPixels(w, h int, pix []byte) (*Surface, error) {
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", w, h)
	}
	if len(pix) != w*h*4 {
		return nil, fmt.Errorf("pixel payload is %d bytes, want %d", len(pix), w*h*4)
	}
	s := New(w, h)
	copy(s.img.Pix, pix)
	return s, nil
}

// Width returns the pixel width.
func (s *Surface) Width() int { return s.img.Rect.Dx() }

// Height returns the pixel height.
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Bounds returns the pixel bounds, always anchored at (0,0).
func (s *Surface) Bounds() image.Rectangle { return s.img.Rect }

// Empty reports whether the surface has no pixels.
func (s *Surface) Empty() bool { return s.img.Rect.Empty() }

// Image exposes the underlying buffer. Callers must not retain it past the
// next mutation of the owning layer.
func (s *Surface) Image() *image.RGBA { return s.img }

// Pix returns the raw pixel bytes backing the surface.
func (s *Surface) Pix() []byte { return s.img.Pix }

// Clone returns a deep copy.
func (s *Surface) Clone() *Surface {
	c := New(s.Width(), s.Height())
	copy(c.img.Pix, s.img.Pix)
	return c
}

// Equal reports whether both surfaces have the same size and pixels.
func (s *Surface) Equal(o *Surface) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.img.Rect == o.img.Rect && bytes.Equal(s.img.Pix, o.img.Pix)
}

// CopyFrom overwrites the surface with src. Sizes must match; a mismatched
// source is ignored.
func (s *Surface) CopyFrom(src *Surface) {
	if src == nil || src.img.Rect != s.img.Rect {
		return
	}
	copy(s.img.Pix, src.img.Pix)
}

// Grow returns a new transparent surface of newW x newH with the current
// pixels placed at offset. Nothing is rescaled.
func (s *Surface) Grow(newW, newH int, offset image.Point) *Surface {
	out := New(newW, newH)
	if out.Empty() || s.Empty() {
		return out
	}
	draw.Draw(out.img, s.img.Rect.Add(offset), s.img, image.Point{}, draw.Src)
	return out
}

// Extract copies rect into a new surface. Parts of rect outside the surface
// stay transparent. When dstW x dstH differs from the rect size the copy is
// rescaled to fit.
func (s *Surface) Extract(rect image.Rectangle, dstW, dstH int) *Surface {
	rect = rect.Canon()
	crop := New(rect.Dx(), rect.Dy())
	src := rect.Intersect(s.img.Rect)
	if !src.Empty() {
		draw.Draw(crop.img, src.Sub(rect.Min), s.img, src.Min, draw.Src)
	}
	if dstW == crop.Width() && dstH == crop.Height() {
		return crop
	}
	out := New(dstW, dstH)
	if out.Empty() || crop.Empty() {
		return out
	}
	xdraw.CatmullRom.Scale(out.img, out.img.Rect, crop.img, crop.img.Rect, draw.Src, nil)
	return out
}

// OpaqueBounds returns the tight rectangle containing every pixel with
// non-zero alpha. The boolean is false when no such pixel exists.
func (s *Surface) OpaqueBounds() (image.Rectangle, bool) {
	w, h := s.Width(), s.Height()
	minX, minY, maxX, maxY := w, h, -1, -1
	pix := s.img.Pix
	stride := s.img.Stride
	for y := 0; y < h; y++ {
		row := pix[y*stride : y*stride+w*4]
		for x := 0; x < w; x++ {
			if row[x*4+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			maxY = y
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
