package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/example/layerpaint/internal/clipboard"
	"github.com/example/layerpaint/internal/config"
	"github.com/example/layerpaint/internal/export"
	"github.com/example/layerpaint/internal/render"
	"github.com/example/layerpaint/internal/theme"
	"golang.org/x/image/draw"
)

// exportCmd re-encodes an image under the byte budget, optionally adding a
// drop shadow first.
type exportCmd struct {
	*root
	fs *flag.FlagSet

	file          string
	output        string
	fromClipboard bool
	toClipboard   bool
	opts          export.Options
	matte         string

	shadow        bool
	shadowRadius  int
	shadowOffsetX int
	shadowOffsetY int
	shadowOpacity float64
	shadowColor   string

	stderr io.Writer
}

func (x *exportCmd) FlagSet() *flag.FlagSet {
	return x.fs
}

func parseExportCmd(args []string, r *root) (*exportCmd, error) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	x := &exportCmd{root: r, fs: fs, stderr: os.Stderr}
	fs.Usage = usageFunc(x)

	cfg := config.New()
	if r != nil && r.config != nil {
		cfg = r.config
	}
	def, err := cfg.ExportOptions()
	if err != nil {
		def = export.DefaultOptions()
	}
	sh := render.DefaultShadowOptions()

	fs.StringVar(&x.file, "file", "", "input image (path, URL, s3://, data: or -)")
	fs.StringVar(&x.output, "output", "-", "output location")
	fs.BoolVar(&x.fromClipboard, "from-clipboard", false, "read the input image from the clipboard")
	fs.BoolVar(&x.toClipboard, "to-clipboard", false, "also copy the result to the clipboard")
	fs.IntVar(&x.opts.MaxBytes, "max-bytes", def.MaxBytes, "largest acceptable encoding in bytes")
	fs.IntVar(&x.opts.StartQuality, "start-quality", def.StartQuality, "first lossy quality tried")
	fs.IntVar(&x.opts.MinQuality, "min-quality", def.MinQuality, "last lossy quality tried")
	fs.IntVar(&x.opts.QualityStep, "quality-step", def.QualityStep, "quality decrement between lossy attempts")
	fs.StringVar(&x.matte, "matte", cfg.Export.Matte, "background under transparent pixels for lossy output")
	fs.BoolVar(&x.shadow, "shadow", false, "add a drop shadow before encoding")
	fs.IntVar(&x.shadowRadius, "shadow-radius", sh.Radius, "shadow blur radius")
	fs.IntVar(&x.shadowOffsetX, "shadow-x", sh.Offset.X, "shadow horizontal offset")
	fs.IntVar(&x.shadowOffsetY, "shadow-y", sh.Offset.Y, "shadow vertical offset")
	fs.Float64Var(&x.shadowOpacity, "shadow-opacity", sh.Opacity, "shadow opacity between 0 and 1")
	fs.StringVar(&x.shadowColor, "shadow-color", "black", "shadow colour")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if x.file == "" && fs.NArg() > 0 {
		x.file = fs.Arg(0)
	}
	if x.fromClipboard {
		if x.file != "" {
			return nil, errors.New("-from-clipboard cannot be combined with an input file")
		}
		x.file = "clipboard:"
	}
	if x.file == "" {
		return nil, &UsageError{of: x}
	}

	x.opts.Matte = def.Matte
	if x.matte != "" {
		m, err := theme.ParseColor(x.matte)
		if err != nil {
			return nil, fmt.Errorf("matte: %w", err)
		}
		x.opts.Matte = m
	}
	switch {
	case x.opts.MaxBytes <= 0:
		return nil, errors.New("-max-bytes must be positive")
	case x.opts.QualityStep <= 0:
		return nil, errors.New("-quality-step must be positive")
	case x.opts.MinQuality < 1 || x.opts.StartQuality > 100 || x.opts.MinQuality > x.opts.StartQuality:
		return nil, errors.New("qualities must satisfy 1 <= min-quality <= start-quality <= 100")
	case x.shadowOpacity < 0 || x.shadowOpacity > 1:
		return nil, errors.New("-shadow-opacity must be between 0 and 1")
	}
	return x, nil
}

func (x *exportCmd) shadowOptions() (render.ShadowOptions, error) {
	c, err := theme.ParseColor(x.shadowColor)
	if err != nil {
		return render.ShadowOptions{}, fmt.Errorf("shadow colour: %w", err)
	}
	return render.ShadowOptions{
		Radius:  x.shadowRadius,
		Offset:  image.Pt(x.shadowOffsetX, x.shadowOffsetY),
		Opacity: x.shadowOpacity,
		Color:   c,
	}, nil
}

func (x *exportCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	src, err := x.imageStore().Open(ctx, x.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", x.file, err)
	}
	img := toRGBA(src)
	if x.shadow {
		so, err := x.shadowOptions()
		if err != nil {
			return err
		}
		img = render.ApplyShadow(img, so).Image
	}

	res, err := export.Encode(ctx, img, x.opts)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := x.imageStore().Write(ctx, x.output, res.Data); err != nil {
		return fmt.Errorf("write %s: %w", x.output, err)
	}
	detail := fmt.Sprintf("%s, %d bytes", res.Format, len(res.Data))
	if res.Format == export.FormatJPEG {
		detail += fmt.Sprintf(", quality %d", res.Quality)
	}
	fmt.Fprintf(x.stderr, "wrote %s (%s)\n", x.output, detail)
	if x.output != "-" {
		x.notifySave(x.output, img)
	}
	if x.toClipboard {
		if err := clipboard.WriteImage(img); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		x.notifyCopy("image", img)
	}
	return nil
}

// toRGBA returns img as an RGBA image with its origin at (0,0).
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
