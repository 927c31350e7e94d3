package appstate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"sync"

	"github.com/example/layerpaint/internal/editor"
	"github.com/example/layerpaint/internal/geom"
	"github.com/example/layerpaint/internal/raster"
	"github.com/example/layerpaint/internal/theme"
	"golang.org/x/exp/shiny/screen"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	messageOnce sync.Once
	messageFace font.Face = basicfont.Face7x13
)

// loadMessageFace returns the face used for flash messages. It is only
// used by the paint goroutine.
func loadMessageFace() font.Face {
	messageOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			log.Printf("parse font: %v", err)
			return
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: 24, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			log.Printf("new face: %v", err)
			return
		}
		messageFace = face
	})
	return messageFace
}

// paintState is everything the painter needs. None of it is mutated after
// it leaves the event goroutine.
type paintState struct {
	width, height int
	theme         *theme.Theme

	area       image.Rectangle
	canvas     *image.RGBA
	canvasRect image.Rectangle
	smooth     bool

	selection   image.Rectangle
	handles     []image.Rectangle
	showCrop    bool
	crop        image.Rectangle
	cropHandles []image.Rectangle

	text   *image.RGBA
	textAt image.Point
	caret  image.Rectangle

	controls []controlView
	status   string
	message  string
}

// snapshot composites the document when it changed and captures the
// overlays in window coordinates.
func (h *host) snapshot() paintState {
	s := h.session
	c := s.Canvas()
	if h.dirty || h.display == nil {
		img := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(c.W)), int(math.Ceil(c.H))))
		h.comp.Compose(img, s.Layers())
		h.display = img
		h.dirty = false
	}
	v := s.Viewport()
	origin := h.metrics.origin()
	toWindow := func(r geom.Rect) image.Rectangle { return r.Translate(origin).Image() }

	st := paintState{
		width:      h.metrics.width,
		height:     h.metrics.height,
		theme:      h.app.Theme,
		area:       h.metrics.canvasArea(),
		canvas:     h.display,
		canvasRect: toWindow(v.CanvasRectToScreen(geom.Rect{W: c.W, H: c.H})),
		smooth:     v.Zoom < 1,
	}

	tool := s.Tool()
	if l, ok := s.Store().Selected(); ok && l.Visible && tool != editor.ToolCrop {
		r := v.CanvasRectToScreen(l.Bounds())
		st.selection = toWindow(r)
		if tool == editor.ToolMove {
			for _, hr := range editor.HandleRects(r, editor.HandleSize) {
				st.handles = append(st.handles, toWindow(hr.Rect))
			}
		}
	}
	if tool == editor.ToolCrop {
		r := s.ScreenCropBox()
		st.showCrop = true
		st.crop = toWindow(r)
		for _, hr := range editor.HandleRects(r, editor.HandleSize) {
			st.cropHandles = append(st.cropHandles, toWindow(hr.Rect))
		}
	}
	if tp, ok := s.TextPlacement(); ok {
		size := s.Settings().TextSize * v.Zoom
		at := r2.Add(origin, v.CanvasToScreen(tp.Pos))
		st.textAt = image.Pt(int(math.Round(at.X)), int(math.Round(at.Y)))
		width := 0
		if tp.Text != "" {
			if surf, err := raster.RasterizeText(tp.Text, size, s.Settings().Color); err == nil {
				st.text = surf.Image()
				width = surf.Width()
			}
		}
		ch := max(1, int(math.Round(size)))
		st.caret = image.Rect(st.textAt.X+width, st.textAt.Y, st.textAt.X+width+1, st.textAt.Y+ch)
	}

	st.controls = make([]controlView, 0, len(h.controls))
	for i := range h.controls {
		st.controls = append(st.controls, h.controls[i].view(i == h.hover))
	}
	st.status = fmt.Sprintf("%s  size %.0f  %.0f%%", tool, s.Settings().ActiveSize(tool), v.Zoom*100)
	if h.message != "" && h.now().Before(h.messageUntil) {
		st.message = h.message
	}
	return st
}

func drawFrame(ctx context.Context, s screen.Screen, w screen.Window, st paintState) {
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()

	if !renderFrame(ctx, b.RGBA(), st) {
		return
	}
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}

// renderFrame paints st into dst. It returns false when ctx was cancelled
// part way through.
func renderFrame(ctx context.Context, dst *image.RGBA, st paintState) bool {
	th := st.theme
	draw.Draw(dst, dst.Bounds(), image.NewUniform(th.Background), image.Point{}, draw.Src)

	area, ok := dst.SubImage(st.area).(*image.RGBA)
	if ok && st.canvas != nil && !st.canvasRect.Empty() {
		scaler := xdraw.Interpolator(xdraw.NearestNeighbor)
		if st.smooth {
			scaler = xdraw.ApproxBiLinear
		}
		scaler.Scale(area, st.canvasRect, st.canvas, st.canvas.Bounds(), draw.Src, nil)
	}
	if ctx.Err() != nil {
		return false
	}

	if ok {
		drawOverlays(area, st)
	}
	if ctx.Err() != nil {
		return false
	}

	drawBars(dst, st)
	for _, v := range st.controls {
		drawControl(dst, th, v)
	}
	if ctx.Err() != nil {
		return false
	}

	if st.message != "" {
		drawMessage(dst, th, st.message)
	}
	return ctx.Err() == nil
}

func drawOverlays(dst *image.RGBA, st paintState) {
	th := st.theme
	if !st.selection.Empty() {
		drawRect(dst, st.selection, th.SelectionOutline, 1)
	}
	for _, r := range st.handles {
		drawHandle(dst, r, th)
	}
	if st.showCrop {
		shade := image.NewUniform(th.CropShade)
		for _, r := range outside(st.canvasRect, st.crop) {
			draw.Draw(dst, r, shade, image.Point{}, draw.Over)
		}
		drawDashedRect(dst, st.crop, 4, th.CropOutline, th.HandleFill)
		for _, r := range st.cropHandles {
			drawHandle(dst, r, th)
		}
	}
	if st.text != nil {
		r := st.text.Bounds().Sub(st.text.Bounds().Min).Add(st.textAt)
		draw.Draw(dst, r, st.text, st.text.Bounds().Min, draw.Over)
	}
	if !st.caret.Empty() {
		draw.Draw(dst, st.caret, image.NewUniform(th.SelectionOutline), image.Point{}, draw.Src)
	}
}

func drawBars(dst *image.RGBA, st paintState) {
	th := st.theme
	bg := image.NewUniform(th.ToolbarBackground)
	draw.Draw(dst, image.Rect(0, 0, st.width, headerHeight), bg, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(0, headerHeight, toolbarWidth, st.height-bottomHeight), bg, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(0, st.height-bottomHeight, st.width, st.height), bg, image.Point{}, draw.Src)

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(th.Foreground), Face: basicfont.Face7x13,
		Dot: fixed.P(4, 16)}
	d.DrawString("layerpaint")

	w := d.MeasureString(st.status).Ceil()
	d.Dot = fixed.P(st.width-w-6, st.height-bottomHeight+16)
	d.DrawString(st.status)
}

func drawControl(dst *image.RGBA, th *theme.Theme, v controlView) {
	if v.hasSwatch {
		draw.Draw(dst, v.rect, image.NewUniform(v.swatch), image.Point{}, draw.Src)
		switch v.state {
		case StatePressed:
			drawRect(dst, v.rect, th.SelectionOutline, 2)
		case StateHover:
			drawRect(dst, v.rect, th.ButtonActive, 2)
		default:
			drawRect(dst, v.rect, th.ButtonBorder, 1)
		}
		return
	}
	bg := th.ButtonBackground
	switch v.state {
	case StateHover:
		bg = mix(th.ButtonBackground, th.ButtonActive)
	case StatePressed:
		bg = th.ButtonActive
	}
	draw.Draw(dst, v.rect, image.NewUniform(bg), image.Point{}, draw.Src)
	drawRect(dst, v.rect, th.ButtonBorder, 1)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(th.ButtonText), Face: basicfont.Face7x13,
		Dot: fixed.P(v.rect.Min.X+4, v.rect.Min.Y+(v.rect.Dy()+10)/2)}
	d.DrawString(v.label)
}

func drawMessage(dst *image.RGBA, th *theme.Theme, msg string) {
	face := loadMessageFace()
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(th.Foreground), Face: face}
	w := d.MeasureString(msg).Ceil()
	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	b := dst.Bounds()
	px := b.Min.X + (b.Dx()-w)/2
	py := b.Min.Y + (b.Dy()-ascent-descent)/2 + ascent
	box := image.Rect(px-8, py-ascent-8, px+w+8, py+descent+8)
	bg := th.Background
	bg.A = 230
	draw.Draw(dst, box, image.NewUniform(bg), image.Point{}, draw.Over)
	drawRect(dst, box, th.ButtonBorder, 2)
	d.Dot = fixed.P(px, py)
	d.DrawString(msg)
}

func drawHandle(dst *image.RGBA, r image.Rectangle, th *theme.Theme) {
	draw.Draw(dst, r, image.NewUniform(th.HandleFill), image.Point{}, draw.Src)
	drawRect(dst, r, th.SelectionOutline, 1)
}

// drawRect outlines r with lines thick pixels wide, inside r.
func drawRect(dst *image.RGBA, r image.Rectangle, c color.Color, thick int) {
	u := image.NewUniform(c)
	t := min(thick, r.Dx(), r.Dy())
	if t <= 0 {
		return
	}
	for _, e := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(dst, e, u, image.Point{}, draw.Src)
	}
}

// drawDashedRect outlines r with dashes alternating between c1 and c2. The
// dash phase follows the pixel position so edges clipped by dst keep their
// pattern.
func drawDashedRect(dst *image.RGBA, r image.Rectangle, dash int, c1, c2 color.Color) {
	if r.Empty() || dash <= 0 {
		return
	}
	b := dst.Bounds()
	plot := func(x, y int) {
		c := c1
		if ((x+y)/dash)%2 != 0 {
			c = c2
		}
		dst.Set(x, y, c)
	}
	x0, x1 := max(r.Min.X, b.Min.X), min(r.Max.X, b.Max.X)
	y0, y1 := max(r.Min.Y, b.Min.Y), min(r.Max.Y, b.Max.Y)
	for x := x0; x < x1; x++ {
		plot(x, r.Min.Y)
		plot(x, r.Max.Y-1)
	}
	for y := y0; y < y1; y++ {
		plot(r.Min.X, y)
		plot(r.Max.X-1, y)
	}
}

// outside returns the parts of outer not covered by inner.
func outside(outer, inner image.Rectangle) []image.Rectangle {
	inner = inner.Intersect(outer)
	if inner.Empty() {
		return []image.Rectangle{outer}
	}
	var out []image.Rectangle
	add := func(r image.Rectangle) {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	add(image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y))
	add(image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y))
	add(image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y))
	add(image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y))
	return out
}

func mix(a, b color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((int(a.R) + int(b.R)) / 2),
		G: uint8((int(a.G) + int(b.G)) / 2),
		B: uint8((int(a.B) + int(b.B)) / 2),
		A: uint8((int(a.A) + int(b.A)) / 2),
	}
}
