// Package appstate hosts an editing session in a shiny window: it paints the
// composited layers with their overlays and forwards input to the session.
package appstate

import (
	"context"
	"image"
	"log"
	"sync"

	"github.com/example/layerpaint/internal/clipboard"
	"github.com/example/layerpaint/internal/editor"
	"github.com/example/layerpaint/internal/notify"
	"github.com/example/layerpaint/internal/storage"
	"github.com/example/layerpaint/internal/theme"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/event/touch"
)

// AppState holds the window configuration and the session it edits.
type AppState struct {
	Session  *editor.Session
	Output   string
	Store    *storage.Store
	Theme    *theme.Theme
	Notifier *notify.Notifier

	width, height  int
	readClipboard  func() (image.Image, error)
	writeClipboard func(image.Image) error

	updateCh chan struct{}

	mu          sync.Mutex
	sendControl func(controlEvent)
	closed      chan struct{}

	onClose   func()
	closeOnce sync.Once
}

// Option modifies an AppState during creation.
type Option func(*AppState)

// WithSession sets the session shown in the window.
func WithSession(s *editor.Session) Option { return func(a *AppState) { a.Session = s } }

// WithOutput sets the reference saves are written to.
func WithOutput(out string) Option { return func(a *AppState) { a.Output = out } }

// WithStorage sets the store used to write saves.
func WithStorage(s *storage.Store) Option { return func(a *AppState) { a.Store = s } }

// WithTheme sets the window colours. A nil theme keeps the default.
func WithTheme(t *theme.Theme) Option {
	return func(a *AppState) {
		if t != nil {
			a.Theme = t
		}
	}
}

// WithNotifier enables desktop notifications for saves and copies.
func WithNotifier(n *notify.Notifier) Option { return func(a *AppState) { a.Notifier = n } }

// WithWindowSize sets the initial window size in pixels.
func WithWindowSize(w, h int) Option {
	return func(a *AppState) {
		if w > 0 && h > 0 {
			a.width, a.height = w, h
		}
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(read func() (image.Image, error), write func(image.Image) error) Option {
	return func(a *AppState) { a.readClipboard, a.writeClipboard = read, write }
}

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(a *AppState) { a.onClose = fn } }

// New creates an AppState with the provided options.
func New(opts ...Option) *AppState {
	a := &AppState{
		Theme:          theme.Default(),
		width:          1024,
		height:         768,
		readClipboard:  clipboard.ReadImage,
		writeClipboard: clipboard.WriteImage,
		updateCh:       make(chan struct{}, 1),
		closed:         make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	if a.Store == nil {
		a.Store = storage.New()
	}
	return a
}

// controlEvent carries work from another goroutine onto the event loop.
type controlEvent struct {
	fn    func(*editor.Session)
	done  chan struct{}
	close bool
}

// NotifyImageChanged requests a repaint of the window.
func (a *AppState) NotifyImageChanged() {
	if a.updateCh == nil {
		return
	}
	select {
	case a.updateCh <- struct{}{}:
	default:
	}
}

// Do runs fn against the session on the window's event goroutine and waits
// for it to finish. Without an open window fn runs on the caller's
// goroutine. It returns false when the window closed before fn ran.
func (a *AppState) Do(fn func(*editor.Session)) bool {
	a.mu.Lock()
	send := a.sendControl
	a.mu.Unlock()
	if send == nil {
		select {
		case <-a.closed:
			return false
		default:
		}
		fn(a.Session)
		return true
	}
	done := make(chan struct{})
	send(controlEvent{fn: fn, done: done})
	select {
	case <-done:
		return true
	case <-a.closed:
		return false
	}
}

// Close asks an open window to go away. It is a no-op without a window.
func (a *AppState) Close() {
	a.mu.Lock()
	send := a.sendControl
	a.mu.Unlock()
	if send != nil {
		send(controlEvent{close: true})
	}
}

func (a *AppState) setControlSender(fn func(controlEvent)) {
	a.mu.Lock()
	a.sendControl = fn
	a.mu.Unlock()
}

func (a *AppState) notifyClose() {
	a.closeOnce.Do(func() {
		a.setControlSender(nil)
		close(a.closed)
		if a.onClose != nil {
			a.onClose()
		}
	})
}

// Closed is closed once the window has gone away.
func (a *AppState) Closed() <-chan struct{} { return a.closed }

// Run executes the UI loop using shiny's driver.
func (a *AppState) Run() { driver.Main(a.Main) }

// Main runs the window until it is closed or the session is discarded.
func (a *AppState) Main(s screen.Screen) {
	defer a.notifyClose()
	if a.Session == nil {
		log.Print("appstate: no session to show")
		return
	}
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: a.width, Height: a.height, Title: "layerpaint"})
	if err != nil {
		log.Printf("new window: %v", err)
		return
	}
	defer w.Release()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-a.updateCh:
				w.Send(paint.Event{})
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	a.setControlSender(func(ev controlEvent) { w.Send(ev) })
	h := newHost(a)

	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	var dropCount int
	paintCh := make(chan paintState, 1)
	defer close(paintCh)
	go func() {
		for st := range paintCh {
			ctx, cancel := context.WithCancel(context.Background())
			paintMu.Lock()
			paintCancel = cancel
			paintMu.Unlock()
			drawFrame(ctx, s, w, st)
			paintMu.Lock()
			paintCancel = nil
			if ctx.Err() == nil {
				dropCount = 0
			}
			paintMu.Unlock()
			cancel()
		}
	}()
	stopPainting := func() {
		paintMu.Lock()
		if paintCancel != nil {
			paintCancel()
		}
		paintMu.Unlock()
	}

	for {
		repaint := false
		switch e := w.NextEvent().(type) {
		case controlEvent:
			if e.close {
				h.closing = true
				break
			}
			e.fn(h.session)
			close(e.done)
			h.layout()
			repaint = true
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				stopPainting()
				return
			}
		case size.Event:
			h.resize(e.WidthPx, e.HeightPx)
			repaint = true
		case paint.Event:
			paintMu.Lock()
			if paintCancel != nil && dropCount < frameDropThreshold {
				paintCancel()
				dropCount++
			}
			paintMu.Unlock()
			st := h.snapshot()
			select {
			case paintCh <- st:
			default:
				select {
				case <-paintCh:
				default:
				}
				paintCh <- st
			}
		case mouse.Event:
			repaint = h.mouse(e)
		case key.Event:
			repaint = h.key(e)
		case touch.Event:
			repaint = h.touch(e)
		case error:
			log.Printf("window: %v", e)
		}
		if h.closing {
			stopPainting()
			return
		}
		if repaint {
			h.dirty = true
			w.Send(paint.Event{})
		}
	}
}
