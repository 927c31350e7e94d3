package appstate

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/example/layerpaint/internal/editor"
	"github.com/example/layerpaint/internal/geom"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/mobile/event/key"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	headerHeight = 24
	bottomHeight = 24
	rowHeight    = 22
	swatchSize   = 18
	tabWidth     = 96
)

// frameDropThreshold bounds how many in-flight frames a new paint request
// may cancel before one is allowed to finish.
const frameDropThreshold = 10

// toolbarWidth fits the widest toolbar label.
var toolbarWidth = func() int {
	d := &font.Drawer{Face: basicfont.Face7x13}
	w := d.MeasureString("layerpaint").Ceil() + 8
	for _, t := range editor.Tools() {
		if lw := d.MeasureString(toolLabel(t)).Ceil() + 8; lw > w {
			w = lw
		}
	}
	return w
}()

func toolLabel(t editor.Tool) string {
	name := t.String()
	return editor.ToolShortcut(t) + ":" + strings.ToUpper(name[:1]) + name[1:]
}

// PaletteColor is a named swatch offered in the toolbar.
type PaletteColor struct {
	Name  string
	Color color.RGBA
}

var palette = []PaletteColor{
	{"Black", colornames.Black},
	{"White", colornames.White},
	{"Red", colornames.Red},
	{"Orange", colornames.Orange},
	{"Yellow", colornames.Yellow},
	{"Lime", colornames.Lime},
	{"Green", colornames.Green},
	{"Cyan", colornames.Cyan},
	{"Blue", colornames.Blue},
	{"Navy", colornames.Navy},
	{"Purple", colornames.Purple},
	{"Magenta", colornames.Magenta},
	{"Pink", colornames.Pink},
	{"Brown", colornames.Brown},
	{"Gray", colornames.Gray},
	{"Silver", colornames.Silver},
}

// Palette returns the toolbar swatches.
func Palette() []PaletteColor {
	out := make([]PaletteColor, len(palette))
	copy(out, palette)
	return out
}

// windowMetrics maps window pixels onto the canvas area between the bars.
type windowMetrics struct {
	width, height int
}

func (m *windowMetrics) ContainerSize() geom.Size {
	return geom.Size{
		W: float64(max(0, m.width-toolbarWidth)),
		H: float64(max(0, m.height-headerHeight-bottomHeight)),
	}
}

func (m *windowMetrics) ClientToContainer(p r2.Vec) r2.Vec {
	return r2.Sub(p, m.origin())
}

func (m *windowMetrics) origin() r2.Vec {
	return r2.Vec{X: float64(toolbarWidth), Y: headerHeight}
}

// canvasArea is the window rectangle the canvas is shown in.
func (m *windowMetrics) canvasArea() image.Rectangle {
	return image.Rect(toolbarWidth, headerHeight, m.width, m.height-bottomHeight)
}

// ButtonState describes the visual state of a control.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
)

// control is a clickable element of the header, toolbar or status bar.
// It is built and activated on the event goroutine only.
type control struct {
	label    string
	rect     image.Rectangle
	swatch   *color.RGBA
	active   func() bool
	activate func(mods key.Modifiers)
}

// view is the immutable snapshot of a control handed to the painter.
func (c *control) view(hover bool) controlView {
	state := StateDefault
	switch {
	case c.active != nil && c.active():
		state = StatePressed
	case hover:
		state = StateHover
	}
	v := controlView{label: c.label, rect: c.rect, state: state}
	if c.swatch != nil {
		v.swatch, v.hasSwatch = *c.swatch, true
	}
	return v
}

type controlView struct {
	label     string
	rect      image.Rectangle
	state     ButtonState
	swatch    color.RGBA
	hasSwatch bool
}

// layout rebuilds every control for the current window size and session
// state.
func (h *host) layout() {
	h.controls = h.controls[:0]
	h.layoutHeader()
	h.layoutToolbar()
	h.layoutShortcuts()
}

func (h *host) add(c control) { h.controls = append(h.controls, c) }

// layoutHeader places one tab per layer in stack order. A click selects the
// layer and a shift-click toggles its visibility.
func (h *host) layoutHeader() {
	x := toolbarWidth
	for i, l := range h.session.Layers() {
		id := l.ID
		label := fmt.Sprintf("%d %s", i+1, l.Name)
		if !l.Visible {
			label = "(" + label + ")"
		}
		if r := []rune(label); len(r) > 12 {
			label = string(r[:12])
		}
		h.add(control{
			label:  label,
			rect:   image.Rect(x, 0, x+tabWidth, headerHeight),
			active: func() bool { return h.session.Store().SelectedID() == id },
			activate: func(mods key.Modifiers) {
				if mods&key.ModShift != 0 {
					if l, ok := h.session.Store().Get(id); ok {
						_ = h.session.SetLayerVisible(id, !l.Visible)
					}
					return
				}
				h.session.SelectLayer(id)
			},
		})
		x += tabWidth
	}
	h.add(control{
		label:    "+Layer",
		rect:     image.Rect(x, 0, x+tabWidth/2+8, headerHeight),
		activate: func(key.Modifiers) { h.newLayer() },
	})
}

func (h *host) layoutToolbar() {
	y := headerHeight
	row := func() image.Rectangle {
		r := image.Rect(0, y, toolbarWidth, y+rowHeight)
		y += rowHeight + 2
		return r
	}
	for _, t := range editor.Tools() {
		t := t
		h.add(control{
			label:    toolLabel(t),
			rect:     row(),
			active:   func() bool { return h.session.Tool() == t },
			activate: func(key.Modifiers) { h.session.SetTool(t) },
		})
	}
	y += 6
	toggles := []struct {
		label string
		get   func(editor.Settings) bool
		set   func(bool)
	}{
		{"Fill", func(s editor.Settings) bool { return s.Fill }, h.session.SetFill},
		{"Lock", func(s editor.Settings) bool { return s.AspectLock }, h.session.SetAspectLock},
		{"Auto", func(s editor.Settings) bool { return s.AutoSelect }, h.session.SetAutoSelect},
	}
	for _, tg := range toggles {
		tg := tg
		h.add(control{
			label:    tg.label,
			rect:     row(),
			active:   func() bool { return tg.get(h.session.Settings()) },
			activate: func(key.Modifiers) { tg.set(!tg.get(h.session.Settings())) },
		})
	}
	y += 6
	half := toolbarWidth / 2
	h.add(control{
		label:    "-",
		rect:     image.Rect(0, y, half-1, y+rowHeight),
		activate: func(key.Modifiers) { h.session.StepSize(-1) },
	})
	h.add(control{
		label:    "+",
		rect:     image.Rect(half+1, y, toolbarWidth, y+rowHeight),
		activate: func(key.Modifiers) { h.session.StepSize(1) },
	})
	y += rowHeight + 8

	cols := max(1, toolbarWidth/(swatchSize+2))
	for i := range palette {
		pc := &palette[i]
		x := (i % cols) * (swatchSize + 2)
		sy := y + (i/cols)*(swatchSize+2)
		h.add(control{
			label:    pc.Name,
			rect:     image.Rect(x+1, sy, x+1+swatchSize, sy+swatchSize),
			swatch:   &pc.Color,
			active:   func() bool { return h.session.Settings().Color == pc.Color },
			activate: func(key.Modifiers) { h.session.SetColor(pc.Color) },
		})
	}
}

// layoutShortcuts fills the status bar with clickable shortcut hints. Text
// entry and crop mode show their own confirm and cancel keys.
func (h *host) layoutShortcuts() {
	type hint struct {
		label string
		fn    func()
	}
	var hints []hint
	_, typing := h.session.TextPlacement()
	switch {
	case typing:
		hints = []hint{
			{"Enter:place", func() { h.session.KeyDown(key.Event{Code: key.CodeReturnEnter}) }},
			{"Esc:cancel", func() { h.session.CancelText() }},
		}
	case h.session.Tool() == editor.ToolCrop:
		hints = []hint{
			{"Enter:crop", func() { h.session.ConfirmCrop() }},
			{"Esc:cancel", func() { h.session.CancelCrop() }},
		}
	default:
		hints = []hint{
			{"^S:save", h.save},
			{"^C:copy", h.copy},
			{"^V:paste", h.paste},
			{"^Z:undo", func() { h.logErr("undo", h.session.Undo()) }},
			{"^Y:redo", func() { h.logErr("redo", h.session.Redo()) }},
			{"Del:layer", h.session.DeleteSelected},
			{"0:fit", h.session.FitToView},
			{"Q:quit", h.quit},
		}
	}
	meas := &font.Drawer{Face: basicfont.Face7x13}
	x := toolbarWidth + 4
	top := h.metrics.height - bottomHeight
	for _, hn := range hints {
		fn := hn.fn
		w := meas.MeasureString(hn.label).Ceil()
		h.add(control{
			label:    hn.label,
			rect:     image.Rect(x-2, top+2, x+w+2, top+bottomHeight-2),
			activate: func(key.Modifiers) { fn() },
		})
		x += w + 12
	}
}

// controlAt returns the index of the control under p, or -1.
func (h *host) controlAt(p image.Point) int {
	for i := range h.controls {
		if p.In(h.controls[i].rect) {
			return i
		}
	}
	return -1
}
