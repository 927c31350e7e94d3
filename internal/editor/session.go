// Package editor implements a layer-based raster editing session: the tool
// state machine, the layer stack, undo history, viewport and export.
//
// A Session is owned by a single goroutine. Pointer coordinates passed to
// it are client coordinates; the configured viewport.Metrics converts them
// into container space before the viewport maps them onto the canvas.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"

	"github.com/example/layerpaint/internal/export"
	"github.com/example/layerpaint/internal/geom"
	"github.com/example/layerpaint/internal/history"
	"github.com/example/layerpaint/internal/layers"
	"github.com/example/layerpaint/internal/raster"
	"github.com/example/layerpaint/internal/render"
	"github.com/example/layerpaint/internal/viewport"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrNoImage is returned when a session is opened without a usable image.
var ErrNoImage = errors.New("no source image")

// BaseLayerName is the name of the layer created from the source image.
const BaseLayerName = "Base Image"

// Session is one open editing document.
type Session struct {
	id       string
	store    *layers.Store
	history  *history.Manager
	view     *viewport.Viewport
	metrics  viewport.Metrics
	canvas   geom.Size
	crop     geom.Rect
	tool     Tool
	settings Settings

	active    Interaction
	text      *TextPlacement
	spaceHeld bool
	touches   []r2.Vec

	exportOpts   export.Options
	historyLimit int
	onSave       func([]byte)
	onCancel     func()
	onChange     func()
}

// Option configures a Session.
type Option func(*Session)

// WithMetrics supplies the host container geometry.
func WithMetrics(m viewport.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithOnSave sets the callback that receives the exported bytes.
func WithOnSave(fn func([]byte)) Option {
	return func(s *Session) { s.onSave = fn }
}

// WithOnCancel sets the callback invoked when the session is discarded.
func WithOnCancel(fn func()) Option {
	return func(s *Session) { s.onCancel = fn }
}

// WithOnChange sets the callback invoked after anything visible changes.
func WithOnChange(fn func()) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithSettings replaces the default tool settings.
func WithSettings(st Settings) Option {
	return func(s *Session) { s.settings = st }
}

// WithExportOptions sets the encoder budget and codec used by Save.
func WithExportOptions(o export.Options) Option {
	return func(s *Session) { s.exportOpts = o }
}

// WithHistoryLimit bounds the number of undo entries. Zero keeps all.
func WithHistoryLimit(n int) Option {
	return func(s *Session) { s.historyLimit = n }
}

// WithCodec overrides the export codec.
func WithCodec(c export.Codec) Option {
	return func(s *Session) { s.exportOpts.Codec = c }
}

// Open starts a session whose only layer holds img. The canvas takes the
// image size and the initial state becomes the first history entry.
func Open(img image.Image, opts ...Option) (*Session, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoImage
	}
	s := &Session{
		id:         uuid.NewString(),
		store:      layers.NewStore(),
		view:       viewport.New(),
		tool:       ToolBrush,
		settings:   DefaultSettings(),
		exportOpts: export.DefaultOptions(),
	}
	for _, o := range opts {
		o(s)
	}
	s.history = history.NewManager(s.historyLimit)

	b := img.Bounds()
	s.canvas = geom.Size{W: float64(b.Dx()), H: float64(b.Dy())}
	s.crop = s.fullCanvas()
	base := &layers.Layer{
		Name:    BaseLayerName,
		Surface: raster.FromImage(img),
		Width:   s.canvas.W,
		Height:  s.canvas.H,
		Visible: true,
	}
	if err := s.store.Add(base, -1); err != nil {
		return nil, err
	}
	s.store.Select(base.ID)
	s.history.Push(history.Capture(s.store, s.canvas))
	s.FitToView()
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Store returns the layer stack.
func (s *Session) Store() *layers.Store { return s.store }

// Layers returns the layers in compositing order.
func (s *Session) Layers() []*layers.Layer { return s.store.Layers() }

// History returns the undo manager.
func (s *Session) History() *history.Manager { return s.history }

// Viewport returns the view transform.
func (s *Session) Viewport() *viewport.Viewport { return s.view }

// Canvas returns the logical canvas size.
func (s *Session) Canvas() geom.Size { return s.canvas }

// CropBox returns the crop rectangle in canvas coordinates.
func (s *Session) CropBox() geom.Rect { return s.crop }

// Tool returns the active tool.
func (s *Session) Tool() Tool { return s.tool }

// Settings returns the current tool settings.
func (s *Session) Settings() Settings { return s.settings }

// Interaction returns the gesture in progress or nil.
func (s *Session) Interaction() Interaction { return s.active }

// TextPlacement returns the open text prompt, if any.
func (s *Session) TextPlacement() (TextPlacement, bool) {
	if s.text == nil {
		return TextPlacement{}, false
	}
	return *s.text, true
}

// SpaceHeld reports whether temporary pan mode is on.
func (s *Session) SpaceHeld() bool { return s.spaceHeld }

// SetMetrics replaces the container geometry provider.
func (s *Session) SetMetrics(m viewport.Metrics) { s.metrics = m }

// SetOnChange replaces the change callback, for hosts attached after Open.
func (s *Session) SetOnChange(fn func()) { s.onChange = fn }

// Metrics returns the host container geometry, nil when headless.
func (s *Session) Metrics() viewport.Metrics { return s.metrics }

func (s *Session) fullCanvas() geom.Rect {
	return geom.Rect{W: s.canvas.W, H: s.canvas.H}
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// commit records the current state as a history entry. It does nothing
// while a restore is being applied.
func (s *Session) commit() {
	if s.history.Restoring() {
		return
	}
	s.history.Push(history.Capture(s.store, s.canvas))
	s.changed()
}

// FitToView scales the viewport so the whole canvas is visible.
func (s *Session) FitToView() {
	if s.metrics == nil {
		return
	}
	s.view.FitToView(s.metrics.ContainerSize(), s.canvas)
	s.changed()
}

// ZoomTo100 shows the canvas at natural size.
func (s *Session) ZoomTo100() {
	if s.metrics == nil {
		s.view.Zoom = 1
		s.view.Offset = r2.Vec{}
		return
	}
	s.view.ZoomTo100(s.metrics.ContainerSize(), s.canvas)
	s.changed()
}

// SetTool switches tools. Entering crop resets the crop box to the canvas;
// leaving text closes any open prompt.
func (s *Session) SetTool(t Tool) {
	if t == s.tool {
		return
	}
	if s.tool == ToolText {
		s.text = nil
	}
	s.tool = t
	if t == ToolCrop {
		s.crop = s.fullCanvas()
	}
	s.changed()
}

// SetSettings replaces every tool setting.
func (s *Session) SetSettings(st Settings) { s.settings = st }

// SetColor sets the paint colour.
func (s *Session) SetColor(c color.RGBA) { s.settings.Color = c }

// SetBrushSize sets the brush diameter.
func (s *Session) SetBrushSize(v float64) { s.settings.BrushSize = clampSize(v) }

// SetEraserSize sets the eraser diameter.
func (s *Session) SetEraserSize(v float64) { s.settings.EraserSize = clampSize(v) }

// SetRectStroke sets the rectangle outline width.
func (s *Session) SetRectStroke(v float64) { s.settings.RectStroke = clampSize(v) }

// SetTextSize sets the text point size.
func (s *Session) SetTextSize(v float64) { s.settings.TextSize = clampSize(v) }

// SetFill toggles filled rectangles.
func (s *Session) SetFill(on bool) { s.settings.Fill = on }

// SetAspectLock toggles proportional transforms.
func (s *Session) SetAspectLock(on bool) { s.settings.AspectLock = on }

// SetAutoSelect toggles hit-testing every layer with the move tool.
func (s *Session) SetAutoSelect(on bool) { s.settings.AutoSelect = on }

// StepSize changes the active tool's size parameter by dir steps.
func (s *Session) StepSize(dir int) {
	step := s.settings.SizeStep
	if step <= 0 {
		step = DefaultSettings().SizeStep
	}
	p := s.settings.sizeFor(s.tool)
	*p = clampSize(*p + float64(dir)*step)
	s.changed()
}

// Undo restores the previous history entry.
func (s *Session) Undo() error { return s.restore(s.history.Undo) }

// Redo restores the next history entry.
func (s *Session) Redo() error { return s.restore(s.history.Redo) }

func (s *Session) restore(step func() (*history.Entry, bool)) error {
	if s.active != nil {
		return nil
	}
	prev := s.history.Index()
	e, ok := step()
	if !ok {
		return nil
	}
	s.history.BeginRestore()
	defer s.history.EndRestore()

	restored, err := e.Restore()
	if err != nil {
		s.history.Seek(prev)
		log.Printf("session %s: restore aborted: %v", s.id, err)
		return fmt.Errorf("restore history: %w", err)
	}
	resized := e.Canvas != s.canvas
	s.store.Reset(restored, e.Selected)
	s.canvas = e.Canvas
	s.crop = s.fullCanvas()
	s.text = nil
	if resized {
		s.FitToView()
	}
	s.changed()
	return nil
}

// SelectLayer selects id. Unknown ids clear the selection.
func (s *Session) SelectLayer(id layers.ID) {
	s.store.Select(id)
	s.changed()
}

// AddImageLayer adds img as a new top layer, scaled down to fit the canvas
// and centred. The pixels keep their native resolution.
func (s *Session) AddImageLayer(img image.Image, name string) (*layers.Layer, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoImage
	}
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	scale := math.Min(1, math.Min(s.canvas.W/iw, s.canvas.H/ih))
	w, h := iw*scale, ih*scale
	if name == "" {
		name = fmt.Sprintf("Layer %d", s.store.Len()+1)
	}
	l := &layers.Layer{
		Name:    name,
		Surface: raster.FromImage(img),
		X:       (s.canvas.W - w) / 2,
		Y:       (s.canvas.H - h) / 2,
		Width:   w,
		Height:  h,
		Visible: true,
	}
	return l, s.appendLayer(l)
}

// AddColorLayer adds a canvas-sized layer filled with c.
func (s *Session) AddColorLayer(c color.Color, name string) (*layers.Layer, error) {
	w := int(math.Round(s.canvas.W))
	h := int(math.Round(s.canvas.H))
	surf := raster.New(w, h)
	surf.FillRect(surf.Bounds(), c)
	if name == "" {
		name = "Color Layer"
	}
	l := &layers.Layer{Name: name, Surface: surf, Width: s.canvas.W, Height: s.canvas.H, Visible: true}
	return l, s.appendLayer(l)
}

// AddTextLayer rasterises text at the configured size and colour with its
// top-left corner at pos, then switches to the move tool.
func (s *Session) AddTextLayer(text string, pos r2.Vec) (*layers.Layer, error) {
	surf, err := raster.RasterizeText(text, s.settings.TextSize, s.settings.Color)
	if err != nil {
		return nil, err
	}
	name := text
	if r := []rune(name); len(r) > 24 {
		name = string(r[:24])
	}
	l := &layers.Layer{
		Name:    "Text: " + name,
		Surface: surf,
		X:       pos.X,
		Y:       pos.Y,
		Width:   float64(surf.Width()),
		Height:  float64(surf.Height()),
		Visible: true,
	}
	if err := s.appendLayer(l); err != nil {
		return nil, err
	}
	s.SetTool(ToolMove)
	return l, nil
}

func (s *Session) appendLayer(l *layers.Layer) error {
	if err := s.store.Add(l, -1); err != nil {
		return err
	}
	s.store.Select(l.ID)
	s.commit()
	return nil
}

// DeleteLayer removes id.
func (s *Session) DeleteLayer(id layers.ID) error {
	if err := s.store.Remove(id); err != nil {
		return err
	}
	s.commit()
	return nil
}

// DeleteSelected removes the selected layer. Without a selection it does
// nothing.
func (s *Session) DeleteSelected() {
	id := s.store.SelectedID()
	if id == 0 {
		return
	}
	_ = s.DeleteLayer(id)
}

// MoveLayer changes the stacking position of the layer at from.
func (s *Session) MoveLayer(from, to int) error {
	if err := s.store.Reorder(from, to); err != nil {
		return err
	}
	s.commit()
	return nil
}

// SetLayerVisible shows or hides id.
func (s *Session) SetLayerVisible(id layers.ID, visible bool) error {
	if err := s.store.SetVisible(id, visible); err != nil {
		return err
	}
	s.commit()
	return nil
}

// RenameLayer changes the display name of id.
func (s *Session) RenameLayer(id layers.ID, name string) error {
	l, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", layers.ErrNotFound, id)
	}
	l.Name = name
	s.commit()
	return nil
}

// ResizeCanvas changes the canvas size and recentres every layer by half
// the size difference. Non-positive sizes are ignored.
func (s *Session) ResizeCanvas(w, h float64) {
	if !(w > 0 && h > 0) {
		return
	}
	dx := (w - s.canvas.W) / 2
	dy := (h - s.canvas.H) / 2
	for _, l := range s.store.Layers() {
		l.X += dx
		l.Y += dy
	}
	s.canvas = geom.Size{W: w, H: h}
	s.crop = s.fullCanvas()
	s.commit()
	s.FitToView()
}

// SetCropBox replaces the crop rectangle while the crop tool is active.
// Boxes smaller than the minimum on either axis are ignored.
func (s *Session) SetCropBox(r geom.Rect) {
	r = r.Canon()
	if s.tool != ToolCrop || r.W < MinLayerSize || r.H < MinLayerSize {
		return
	}
	s.crop = r
	s.changed()
}

// ConfirmCrop makes the crop box the new canvas. Layers are offset by the
// box origin so they keep their place relative to the kept area.
func (s *Session) ConfirmCrop() {
	if s.tool != ToolCrop {
		return
	}
	box := geom.Rect{
		X: math.Round(s.crop.X),
		Y: math.Round(s.crop.Y),
		W: math.Round(s.crop.W),
		H: math.Round(s.crop.H),
	}
	if box.Empty() {
		return
	}
	for _, l := range s.store.Layers() {
		l.X -= box.X
		l.Y -= box.Y
	}
	s.canvas = box.Size()
	s.crop = s.fullCanvas()
	s.tool = ToolMove
	s.commit()
	s.FitToView()
}

// CancelCrop resets the crop box and returns to the move tool.
func (s *Session) CancelCrop() {
	s.crop = s.fullCanvas()
	s.tool = ToolMove
	s.changed()
}

// Flatten renders the visible layers onto a transparent canvas-sized image.
func (s *Session) Flatten() *image.RGBA {
	return render.Flatten(s.store.Layers(), s.canvas)
}

// Save flattens and encodes the document and hands the bytes to the save
// callback. The session stays usable when encoding fails.
func (s *Session) Save(ctx context.Context) (export.Result, error) {
	res, err := export.Encode(ctx, s.Flatten(), s.exportOpts)
	if err != nil {
		return export.Result{}, fmt.Errorf("export: %w", err)
	}
	log.Printf("session %s: exported %d bytes as %s", s.id, len(res.Data), res.Format)
	if s.onSave != nil {
		s.onSave(res.Data)
	}
	return res, nil
}

// Cancel discards the session.
func (s *Session) Cancel() {
	s.active = nil
	s.text = nil
	if s.onCancel != nil {
		s.onCancel()
	}
}
