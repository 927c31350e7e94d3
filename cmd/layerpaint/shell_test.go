package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/layerpaint/internal/config"
	"github.com/example/layerpaint/internal/geom"
	"github.com/example/layerpaint/internal/layers"
	"github.com/example/layerpaint/internal/storage"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

func testRoot(t *testing.T) *root {
	t.Helper()
	return &root{program: "layerpaint", config: config.New(), store: storage.New()}
}

func newTestShell(t *testing.T) (*interactiveCmd, *bytes.Buffer) {
	t.Helper()
	sh := newInteractiveCmd(testRoot(t))
	var out bytes.Buffer
	sh.withIO(strings.NewReader(""), &out, &bytes.Buffer{})
	return sh, &out
}

func run(t *testing.T, sh *interactiveCmd, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if _, err := sh.executeLine(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fillImage(img, c)
	return img
}

func TestCommandsNeedSession(t *testing.T) {
	sh, _ := newTestShell(t)
	for _, line := range []string{"layers", "line 0 0 1 1", "undo", "save out.png", "copy"} {
		if _, err := sh.executeLine(line); !errors.Is(err, errNoSession) {
			t.Fatalf("%s: got %v", line, err)
		}
	}
}

func TestExitAndComments(t *testing.T) {
	sh, _ := newTestShell(t)
	for _, line := range []string{"", "   ", "# note"} {
		done, err := sh.executeLine(line)
		if done || err != nil {
			t.Fatalf("%q: done=%v err=%v", line, done, err)
		}
	}
	if done, err := sh.executeLine("exit"); !done || err != nil {
		t.Fatalf("exit: done=%v err=%v", done, err)
	}
}

func TestBrushLineOnBlankCanvas(t *testing.T) {
	sh, _ := newTestShell(t)
	run(t, sh, "new 100 80 white", "color #0000ff", "size 6", "line 10 40 90 40")
	img := sh.session.Flatten()
	if got := img.RGBAAt(50, 40); got != blue {
		t.Fatalf("stroke pixel = %v", got)
	}
	if got := img.RGBAAt(50, 10); got != white {
		t.Fatalf("background pixel = %v", got)
	}
	if n := sh.session.History().Len(); n != 2 {
		t.Fatalf("history length = %d", n)
	}
}

func TestLayerCommands(t *testing.T) {
	sh, out := newTestShell(t)
	run(t, sh, "new 40 30 white", "solid red Top", "hide 2", "rename 2 Overlay", "layers")
	got := out.String()
	if !strings.Contains(got, "Overlay") || !strings.Contains(got, "hidden") {
		t.Fatalf("layers output:\n%s", got)
	}
	if !strings.HasPrefix(strings.Split(got, "\n")[1], "*") {
		t.Fatalf("new layer not marked selected:\n%s", got)
	}
	if c := sh.session.Flatten().RGBAAt(5, 5); c != white {
		t.Fatalf("hidden layer composited: %v", c)
	}

	run(t, sh, "show 2", "order 2 1")
	if name := sh.session.Layers()[0].Name; name != "Overlay" {
		t.Fatalf("bottom layer = %q", name)
	}
	if c := sh.session.Flatten().RGBAAt(5, 5); c != white {
		t.Fatalf("base should cover the moved layer: %v", c)
	}

	run(t, sh, "select 2", "delete")
	if n := sh.session.Store().Len(); n != 1 {
		t.Fatalf("layers left = %d", n)
	}
	if _, err := sh.executeLine("select 9"); !errors.Is(err, layers.ErrIndexRange) {
		t.Fatalf("select 9: %v", err)
	}
}

func TestTextAndImageLayers(t *testing.T) {
	sh, _ := newTestShell(t)
	path := filepath.Join(t.TempDir(), "logo.png")
	writePNG(t, path, solidImage(8, 8, blue))
	run(t, sh, "new 50 50 white", "text 5 5 Hello there", "image "+path+" Logo")
	ls := sh.session.Layers()
	if len(ls) != 3 {
		t.Fatalf("layers = %d", len(ls))
	}
	if ls[2].Name != "Logo" || ls[2].Width != 8 {
		t.Fatalf("image layer = %q %gx%g", ls[2].Name, ls[2].Width, ls[2].Height)
	}
	if _, err := sh.executeLine("image " + filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("expected error for a missing image")
	}
}

func TestHandleDrags(t *testing.T) {
	sh, _ := newTestShell(t)
	run(t, sh, "new 100 100 white", "lock off", "handle br 100 100 150 120")
	l := sh.session.Layers()[0]
	if l.Width != 150 || l.Height != 120 {
		t.Fatalf("resized to %gx%g", l.Width, l.Height)
	}
	run(t, sh, "handle body 10 10 30 25")
	if l.X != 20 || l.Y != 15 {
		t.Fatalf("moved to %g,%g", l.X, l.Y)
	}
	if _, err := sh.executeLine("handle corner 0 0 1 1"); err == nil {
		t.Fatalf("expected unknown handle error")
	}
	if _, err := sh.executeLine("handle body 500 500 510 510"); err == nil {
		t.Fatalf("expected nothing to grab")
	}
}

func TestCropResizeUndo(t *testing.T) {
	sh, out := newTestShell(t)
	run(t, sh, "new 100 80 white", "crop 10 10 50 40")
	if c := sh.session.Canvas(); c != (geom.Size{W: 50, H: 40}) {
		t.Fatalf("canvas after crop = %v", c)
	}
	if x := sh.session.Layers()[0].X; x != -10 {
		t.Fatalf("layer x after crop = %g", x)
	}
	if _, err := sh.executeLine("crop 0 0 5 5"); err == nil || !strings.Contains(err.Error(), "at least") {
		t.Fatalf("tiny crop: %v", err)
	}

	run(t, sh, "resize 60 50", "undo", "status")
	if !strings.Contains(out.String(), "canvas 50x40") {
		t.Fatalf("status after undo:\n%s", out.String())
	}
	run(t, sh, "redo")
	if c := sh.session.Canvas(); c != (geom.Size{W: 60, H: 50}) {
		t.Fatalf("canvas after redo = %v", c)
	}
}

func TestSaveWritesEncodedImage(t *testing.T) {
	sh, _ := newTestShell(t)
	dest := filepath.Join(t.TempDir(), "out", "result.png")
	run(t, sh, "new 30 20 white", "save "+dest)
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	img, format, err := storage.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || img.Bounds().Dx() != 30 {
		t.Fatalf("saved %s %v", format, img.Bounds())
	}
	// A bare save reuses the last destination.
	run(t, sh, "solid blue", "save")
	data, _ = os.ReadFile(dest)
	img, _, _ = storage.Decode(data)
	if r, _, b, _ := img.At(5, 5).RGBA(); r != 0 || b == 0 {
		t.Fatalf("second save not written")
	}
}

func TestOpenUsesFileAsOutput(t *testing.T) {
	sh, out := newTestShell(t)
	path := filepath.Join(t.TempDir(), "in.png")
	writePNG(t, path, solidImage(12, 9, white))
	run(t, sh, "open "+path)
	if sh.output != path {
		t.Fatalf("output = %q", sh.output)
	}
	if !strings.Contains(out.String(), "12x9") {
		t.Fatalf("open output: %q", out.String())
	}
}

func TestBadArguments(t *testing.T) {
	sh, _ := newTestShell(t)
	run(t, sh, "new 10 10")
	tests := []struct {
		line string
		want string
	}{
		{"frobnicate", "unknown command"},
		{"tool spray", "unknown tool"},
		{"color nope", "nope"},
		{"size big", "invalid number"},
		{"fill maybe", "on or off"},
		{"line 1 2 3", "x y pairs"},
		{"rect 1 2 3", "rect requires"},
		{"text 1 2", "content"},
		{"order 1", "2 integer"},
		{"resize 0 10", "positive"},
		{"zoom 300", "unknown zoom"},
		{"new -1 5", "positive"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := sh.executeLine(tt.line)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestHelpListsCommands(t *testing.T) {
	sh, out := newTestShell(t)
	run(t, sh, "help")
	for _, c := range shellCommands {
		if !strings.Contains(out.String(), c.Usage) {
			t.Fatalf("help misses %q", c.Usage)
		}
	}
}
