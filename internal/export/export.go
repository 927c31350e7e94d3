// Package export encodes a flattened image under a byte budget, falling back
// from lossless to progressively lower lossy quality.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
)

// DefaultMaxBytes is the default output budget.
const DefaultMaxBytes = 10 << 20

// Format names an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ErrNoEncoding is returned when every encoding attempt failed.
var ErrNoEncoding = errors.New("no encoding succeeded")

// Codec produces the lossless and lossy encodings. Quality is 1..100.
type Codec interface {
	Lossless(img image.Image) ([]byte, error)
	Lossy(img image.Image, quality int) ([]byte, error)
}

// Options bounds the encoder.
type Options struct {
	MaxBytes     int
	StartQuality int
	QualityStep  int
	MinQuality   int
	// Matte is painted under the image before lossy encoding, which has no
	// alpha channel.
	Matte color.Color
	Codec Codec
}

// DefaultOptions returns the 10 MiB budget stepping JPEG quality from 90
// down to 10.
func DefaultOptions() Options {
	return Options{
		MaxBytes:     DefaultMaxBytes,
		StartQuality: 90,
		QualityStep:  10,
		MinQuality:   10,
		Matte:        color.White,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxBytes <= 0 {
		o.MaxBytes = d.MaxBytes
	}
	if o.StartQuality <= 0 || o.StartQuality > 100 {
		o.StartQuality = d.StartQuality
	}
	if o.QualityStep <= 0 {
		o.QualityStep = d.QualityStep
	}
	if o.MinQuality <= 0 {
		o.MinQuality = d.MinQuality
	}
	if o.MinQuality > o.StartQuality {
		o.MinQuality = o.StartQuality
	}
	if o.Matte == nil {
		o.Matte = d.Matte
	}
	if o.Codec == nil {
		o.Codec = StdCodec{}
	}
	return o
}

// Result is the chosen encoding.
type Result struct {
	Data    []byte
	Format  Format
	Quality int
}

// Encode tries the lossless encoding first and returns it when it fits the
// budget. Otherwise it walks lossy quality downward and keeps the first
// attempt within budget, or the smallest attempt when none fits. The
// lossless result still wins if it is no larger than that choice.
func Encode(ctx context.Context, img image.Image, opts Options) (Result, error) {
	opts = opts.withDefaults()
	var errs []error

	var lossless *Result
	data, err := opts.Codec.Lossless(img)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", FormatPNG, err))
	} else {
		lossless = &Result{Data: data, Format: FormatPNG}
		if len(data) <= opts.MaxBytes {
			return *lossless, nil
		}
	}

	matted := matte(img, opts.Matte)
	var best *Result
	for q := opts.StartQuality; q >= opts.MinQuality; q -= opts.QualityStep {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		data, err := opts.Codec.Lossy(matted, q)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s q=%d: %w", FormatJPEG, q, err))
			continue
		}
		if best == nil || len(data) < len(best.Data) {
			best = &Result{Data: data, Format: FormatJPEG, Quality: q}
		}
		if len(data) <= opts.MaxBytes {
			best = &Result{Data: data, Format: FormatJPEG, Quality: q}
			break
		}
	}

	switch {
	case best == nil && lossless == nil:
		return Result{}, fmt.Errorf("%w: %w", ErrNoEncoding, errors.Join(errs...))
	case best == nil:
		return *lossless, nil
	case lossless != nil && len(lossless.Data) <= len(best.Data):
		return *lossless, nil
	}
	return *best, nil
}

// matte flattens img onto an opaque background colour.
func matte(img image.Image, bg color.Color) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// StdCodec encodes PNG and baseline JPEG.
type StdCodec struct{}

// Lossless implements Codec.
func (StdCodec) Lossless(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Lossy implements Codec.
func (StdCodec) Lossy(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
