package appstate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"github.com/example/layerpaint/internal/editor"
	"github.com/example/layerpaint/internal/render"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/touch"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	messageDuration = 2 * time.Second
	saveTimeout     = 30 * time.Second
)

// KeyShortcut identifies a key chord handled by the window rather than the
// editor.
type KeyShortcut struct {
	Code      key.Code
	Modifiers key.Modifiers
}

// host translates window events into session calls. Every method runs on
// the window's event goroutine.
type host struct {
	app     *AppState
	session *editor.Session
	metrics *windowMetrics
	comp    *render.Compositor

	controls []control
	hover    int

	message      string
	messageUntil time.Time

	touches    map[touch.Sequence]r2.Vec
	touchOrder []touch.Sequence

	// dirty marks the composited canvas stale.
	dirty   bool
	display *image.RGBA
	closing bool
	fitted  bool

	shortcuts map[KeyShortcut]func()
	now       func() time.Time
}

func newHost(a *AppState) *host {
	h := &host{
		app:     a,
		session: a.Session,
		metrics: &windowMetrics{width: a.width, height: a.height},
		comp:    render.NewCompositor(a.Theme.CheckerLight, a.Theme.CheckerDark),
		hover:   -1,
		touches: map[touch.Sequence]r2.Vec{},
		dirty:   true,
		now:     time.Now,
	}
	h.shortcuts = map[KeyShortcut]func(){
		{key.CodeS, key.ModControl}:       h.save,
		{key.CodeC, key.ModControl}:       h.copy,
		{key.CodeV, key.ModControl}:       h.paste,
		{key.CodeN, key.ModControl}:       h.newLayer,
		{key.CodeQ, 0}:                    h.quit,
		{key.CodeEqualSign, 0}:            func() { h.zoomStep(-1) },
		{key.CodeEqualSign, key.ModShift}: func() { h.zoomStep(-1) },
		{key.CodeHyphenMinus, 0}:          func() { h.zoomStep(1) },
	}
	h.session.SetMetrics(h.metrics)
	h.layout()
	return h
}

// resize tracks the window size. The first non-empty size fits the canvas
// to the view.
func (h *host) resize(w, ht int) {
	h.metrics.width, h.metrics.height = w, ht
	if !h.fitted && !h.metrics.ContainerSize().Empty() {
		h.fitted = true
		h.session.FitToView()
	}
	h.layout()
}

func (h *host) flash(format string, args ...any) {
	h.message = fmt.Sprintf(format, args...)
	h.messageUntil = h.now().Add(messageDuration)
	log.Print(h.message)
}

func (h *host) logErr(op string, err error) {
	if err != nil {
		h.flash("%s failed: %v", op, err)
	}
}

// mouse routes a pointer event and reports whether a repaint is needed.
func (h *host) mouse(e mouse.Event) bool {
	p := r2.Vec{X: float64(e.X), Y: float64(e.Y)}
	pt := image.Pt(int(e.X), int(e.Y))

	if e.Direction == mouse.DirStep {
		var d r2.Vec
		switch e.Button {
		case mouse.ButtonWheelUp:
			d.Y = -1
		case mouse.ButtonWheelDown:
			d.Y = 1
		case mouse.ButtonWheelLeft:
			d.X = -1
		case mouse.ButtonWheelRight:
			d.X = 1
		}
		h.session.Wheel(p, d, e.Modifiers)
		return true
	}

	// A gesture in progress keeps the pointer even outside the canvas.
	if h.session.Interaction() != nil {
		switch e.Direction {
		case mouse.DirNone:
			h.session.PointerMove(p)
		case mouse.DirRelease:
			h.session.PointerUp(p)
			h.layout()
		}
		return true
	}

	if e.Direction == mouse.DirPress {
		h.message = ""
	}

	if !pt.In(h.metrics.canvasArea()) {
		idx := h.controlAt(pt)
		repaint := idx != h.hover
		h.hover = idx
		if e.Direction == mouse.DirPress && e.Button == mouse.ButtonLeft && idx >= 0 {
			if fn := h.controls[idx].activate; fn != nil {
				fn(e.Modifiers)
			}
			h.layout()
			return true
		}
		return repaint
	}
	if h.hover != -1 {
		h.hover = -1
	}

	switch e.Direction {
	case mouse.DirPress:
		if e.Button == mouse.ButtonLeft && h.session.Tool() == editor.ToolMove && !h.session.SpaceHeld() {
			if hd := h.session.TransformHandleAt(p); hd != editor.HandleNone {
				h.session.TransformHandleDown(hd, p)
				return true
			}
		}
		h.session.PointerDown(p, e.Button)
		h.layout()
		return true
	case mouse.DirRelease:
		h.session.PointerUp(p)
		return true
	}
	return false
}

// key routes a key event. Host shortcuts win unless a text prompt is open.
func (h *host) key(e key.Event) bool {
	if e.Direction == key.DirRelease {
		return h.session.KeyUp(e)
	}
	if _, typing := h.session.TextPlacement(); !typing {
		if fn, ok := h.shortcuts[KeyShortcut{Code: e.Code, Modifiers: e.Modifiers}]; ok {
			fn()
			h.layout()
			return true
		}
	}
	ok := h.session.KeyDown(e)
	h.layout()
	return ok
}

// touch keeps the ordered set of fingers down and reports it to the session.
func (h *host) touch(e touch.Event) bool {
	p := r2.Vec{X: float64(e.X), Y: float64(e.Y)}
	switch e.Type {
	case touch.TypeBegin:
		if _, ok := h.touches[e.Sequence]; !ok {
			h.touchOrder = append(h.touchOrder, e.Sequence)
		}
		h.touches[e.Sequence] = p
		h.session.TouchStart(h.touchPoints())
	case touch.TypeMove:
		h.touches[e.Sequence] = p
		h.session.TouchMove(h.touchPoints())
	case touch.TypeEnd:
		delete(h.touches, e.Sequence)
		for i, s := range h.touchOrder {
			if s == e.Sequence {
				h.touchOrder = append(h.touchOrder[:i], h.touchOrder[i+1:]...)
				break
			}
		}
		h.session.TouchEnd(h.touchPoints())
		h.layout()
	}
	return true
}

func (h *host) touchPoints() []r2.Vec {
	out := make([]r2.Vec, 0, len(h.touchOrder))
	for _, s := range h.touchOrder {
		out = append(out, h.touches[s])
	}
	return out
}

func (h *host) zoomStep(notches float64) {
	c := h.metrics.ContainerSize()
	centre := r2.Add(h.metrics.origin(), r2.Vec{X: c.W / 2, Y: c.H / 2})
	h.session.Wheel(centre, r2.Vec{Y: notches}, key.ModControl)
}

// save exports the document and writes it to the configured output.
func (h *host) save() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	res, err := h.session.Save(ctx)
	if err != nil {
		h.flash("save failed: %v", err)
		return
	}
	if h.app.Output == "" {
		h.flash("exported %d bytes as %s; no output set", len(res.Data), res.Format)
		return
	}
	if err := h.app.Store.Write(ctx, h.app.Output, res.Data); err != nil {
		h.flash("save failed: %v", err)
		return
	}
	if h.app.Notifier != nil {
		h.app.Notifier.Save(h.app.Output, h.session.Flatten())
	}
	h.flash("saved %s (%s, %d KiB)", h.app.Output, res.Format, (len(res.Data)+1023)/1024)
}

// copy places the flattened document on the clipboard.
func (h *host) copy() {
	img := h.session.Flatten()
	if err := h.app.writeClipboard(img); err != nil {
		h.flash("copy failed: %v", err)
		return
	}
	if h.app.Notifier != nil {
		h.app.Notifier.Copy("image", img)
	}
	h.flash("image copied to clipboard")
}

// paste adds the clipboard image as a new layer.
func (h *host) paste() {
	img, err := h.app.readClipboard()
	if err != nil {
		h.flash("paste failed: %v", err)
		return
	}
	if _, err := h.session.AddImageLayer(img, "Pasted"); err != nil {
		h.flash("paste failed: %v", err)
		return
	}
	h.flash("pasted %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
}

func (h *host) newLayer() {
	name := fmt.Sprintf("Layer %d", h.session.Store().Len()+1)
	h.logErr("new layer", func() error {
		_, err := h.session.AddColorLayer(color.Transparent, name)
		return err
	}())
}

// quit discards the session and closes the window.
func (h *host) quit() {
	h.session.Cancel()
	h.closing = true
}
