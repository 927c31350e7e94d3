// Package notify tells the desktop when an edited image was saved or
// copied.
package notify

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/layerpaint/internal/platform"
	"golang.org/x/image/draw"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventSave fires when an export is written to its destination.
	EventSave Event = "save"
	// EventCopy fires when an export is placed on the clipboard.
	EventCopy Event = "copy"
)

// previewSize bounds the longer side of the notification icon.
const previewSize = 128

// send is swapped in tests.
var send = platform.Notify

// Preferences describes notification behaviour.
type Preferences struct {
	Title     string
	Timeout   time.Duration
	Templates map[Event]string
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title:   "layerpaint",
		Timeout: 5 * time.Second,
		Templates: map[Event]string{
			EventSave: "Saved %s",
			EventCopy: "Copied %s to clipboard",
		},
	}
}

// LoadPreferences applies LAYERPAINT_NOTIFY_* environment overrides to the
// defaults.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(os.Getenv("LAYERPAINT_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	for event, key := range map[Event]string{
		EventSave: "LAYERPAINT_NOTIFY_SAVE_TEXT",
		EventCopy: "LAYERPAINT_NOTIFY_COPY_TEXT",
	} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			prefs.Templates[event] = v
		}
	}
	return prefs
}

// Notifier sends OS-level notifications for enabled events. A nil
// Notifier does nothing.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
}

// New creates a Notifier with every event disabled.
func New(prefs Preferences) *Notifier {
	tmpl := make(map[Event]string, len(prefs.Templates))
	for k, v := range prefs.Templates {
		tmpl[k] = v
	}
	prefs.Templates = tmpl
	return &Notifier{prefs: prefs, enabled: make(map[Event]bool)}
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	n.enabled[event] = enabled
}

// Save reports a written export. Local files are shown with their absolute
// path; img, when given, becomes the notification icon.
func (n *Notifier) Save(dest string, img image.Image) {
	if !n.enabledFor(EventSave) {
		return
	}
	detail := strings.TrimSpace(dest)
	if abs, err := filepath.Abs(detail); err == nil && !strings.Contains(detail, ":") {
		detail = abs
	}
	n.dispatch(EventSave, detail, img)
}

// Copy reports an export placed on the clipboard.
func (n *Notifier) Copy(detail string, img image.Image) {
	if !n.enabledFor(EventCopy) {
		return
	}
	if strings.TrimSpace(detail) == "" {
		detail = "image"
	}
	n.dispatch(EventCopy, detail, img)
}

func (n *Notifier) enabledFor(event Event) bool {
	return n != nil && n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, img image.Image) {
	tmpl := strings.TrimSpace(n.prefs.Templates[event])
	if tmpl == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(tmpl, detail))
	if body == "" {
		return
	}
	opts := platform.Options{Timeout: n.prefs.Timeout}
	if img != nil {
		path, cleanup, err := createPreview(img)
		if err != nil {
			log.Printf("notification preview: %v", err)
		} else {
			defer cleanup()
			opts.IconPath = path
		}
	}
	if err := send(n.prefs.Title, body, opts); err != nil {
		log.Printf("notification %s: %v", event, err)
	}
}

// createPreview writes a thumbnail of img to a temporary PNG.
func createPreview(img image.Image) (string, func(), error) {
	b := img.Bounds()
	if b.Empty() {
		return "", nil, fmt.Errorf("empty preview image")
	}
	scale := float64(previewSize) / float64(max(b.Dx(), b.Dy()))
	if scale < 1 {
		w := max(1, int(float64(b.Dx())*scale))
		h := max(1, int(float64(b.Dy())*scale))
		thumb := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, b, draw.Src, nil)
		img = thumb
	}

	f, err := os.CreateTemp("", "layerpaint-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove preview: %v", err)
		}
	}
	return path, cleanup, nil
}
