package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrEmptyText is returned when text rasterises to no pixels.
var ErrEmptyText = errors.New("text has no visible width")

var (
	fontOnce sync.Once
	textFont *opentype.Font
	fontErr  error
	faces    sync.Map // map[float64]font.Face
)

func goRegular() (*opentype.Font, error) {
	fontOnce.Do(func() {
		textFont, fontErr = opentype.Parse(goregular.TTF)
	})
	return textFont, fontErr
}

// FaceForSize returns a cached Go Regular face at the given point size.
func FaceForSize(size float64) (font.Face, error) {
	if size <= 0 {
		size = 12
	}
	if face, ok := faces.Load(size); ok {
		return face.(font.Face), nil
	}
	f, err := goRegular()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	actual, _ := faces.LoadOrStore(size, face)
	return actual.(font.Face), nil
}

// MeasureText returns the pixel box text occupies at size. baseline is the
// distance from the top of the box to the text baseline.
func MeasureText(text string, size float64) (width, height, baseline int, err error) {
	face, err := FaceForSize(size)
	if err != nil {
		return 0, 0, 0, err
	}
	drawer := &font.Drawer{Face: face}
	width = drawer.MeasureString(text).Ceil()
	metrics := face.Metrics()
	baseline = metrics.Ascent.Ceil()
	height = baseline + metrics.Descent.Ceil()
	return width, height, baseline, nil
}

// RasterizeText renders text onto a new transparent surface sized from the
// glyph metrics.
func RasterizeText(text string, size float64, col color.Color) (*Surface, error) {
	w, h, baseline, err := MeasureText(text, size)
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyText
	}
	face, err := FaceForSize(size)
	if err != nil {
		return nil, err
	}
	s := New(w, h)
	drawer := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, baseline),
	}
	drawer.DrawString(text)
	return s, nil
}
