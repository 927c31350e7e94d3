package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/layerpaint/internal/appstate"
	"github.com/example/layerpaint/internal/clipboard"
	"github.com/example/layerpaint/internal/editor"
	"github.com/example/layerpaint/internal/export"
	"github.com/example/layerpaint/internal/geom"
	"github.com/example/layerpaint/internal/layers"
	"github.com/example/layerpaint/internal/storage"
	"github.com/example/layerpaint/internal/theme"
	"golang.org/x/image/draw"
	"golang.org/x/mobile/event/mouse"
	"gonum.org/v1/gonum/spatial/r2"
)

const commandTimeout = time.Minute

var errNoSession = errors.New("no image open; use open or new first")

// shellHelp describes one interactive command.
type shellHelp struct {
	Usage   string
	Summary string
}

var shellCommands = []shellHelp{
	{"open REF", "load an image from a file, URL, s3://, data: or clipboard:"},
	{"new W H [COLOR]", "start a blank canvas"},
	{"tool NAME", "select brush, eraser, text, rectangle, move or crop"},
	{"color SPEC", "set the drawing colour (name or #rrggbb[aa])"},
	{"size N", "set the size of the active tool"},
	{"fill|lock|auto on|off", "toggle rectangle fill, aspect lock or auto-select"},
	{"drag X Y X Y [X Y...]", "drag the active tool through canvas points"},
	{"line X Y X Y [X Y...]", "brush stroke through canvas points"},
	{"erase X Y X Y [X Y...]", "eraser stroke through canvas points"},
	{"rect X0 Y0 X1 Y1", "draw a rectangle"},
	{"handle NAME X0 Y0 X1 Y1", "drag a handle (tl t tr r br b bl l body) of the selected layer"},
	{"text X Y WORDS...", "add a text layer"},
	{"image REF [NAME]", "add an image layer"},
	{"solid COLOR [NAME]", "add a canvas-sized colour layer"},
	{"layers", "list layers back to front"},
	{"select|show|hide N", "select, show or hide layer N"},
	{"delete [N]", "delete layer N or the selected layer"},
	{"order FROM TO", "move a layer in the stack"},
	{"rename N NAME...", "rename layer N"},
	{"crop X Y W H", "crop the canvas"},
	{"resize W H", "resize the canvas keeping layers centred"},
	{"undo | redo", "step through history"},
	{"zoom fit|100", "fit the canvas or show it at natural size"},
	{"status", "show tool, settings, canvas and history position"},
	{"save [REF]", "export and write to REF or the current output"},
	{"copy | paste", "exchange images with the clipboard"},
	{"help", "show this list"},
	{"exit", "leave the session"},
}

// interactiveCmd executes editing commands against one session. Commands
// use canvas coordinates whatever the window's zoom.
type interactiveCmd struct {
	r      *root
	output string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	session *editor.Session
	// app is set while a window shows the session; every session call is
	// then made on the window's event goroutine.
	app *appstate.AppState
}

func newInteractiveCmd(r *root) *interactiveCmd {
	return &interactiveCmd{
		r:      r,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// withIO swaps the command streams and returns a function restoring them.
func (i *interactiveCmd) withIO(in io.Reader, out, errW io.Writer) func() {
	prevIn, prevOut, prevErr := i.stdin, i.stdout, i.stderr
	if in != nil {
		i.stdin = in
	}
	if out != nil {
		i.stdout = out
	}
	if errW != nil {
		i.stderr = errW
	}
	return func() {
		i.stdin, i.stdout, i.stderr = prevIn, prevOut, prevErr
	}
}

// do runs fn with the session on the goroutine that owns it.
func (i *interactiveCmd) do(fn func(*editor.Session) error) error {
	if i.session == nil {
		return errNoSession
	}
	if i.app == nil {
		return fn(i.session)
	}
	var err error
	if !i.app.Do(func(s *editor.Session) { err = fn(s) }) {
		return errors.New("window closed")
	}
	return err
}

// executeLine runs one command. done reports that the session should end.
func (i *interactiveCmd) executeLine(line string) (done bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return false, nil
	}
	name, rest := strings.ToLower(args[0]), args[1:]
	switch name {
	case "exit", "quit":
		return true, nil
	case "help", "?":
		for _, c := range shellCommands {
			fmt.Fprintf(i.stdout, "  %-26s %s\n", c.Usage, c.Summary)
		}
		return false, nil
	case "open":
		return false, i.open(rest)
	case "new":
		return false, i.blank(rest)
	case "image":
		return false, i.addImage(rest)
	case "save":
		return false, i.save(rest)
	case "copy":
		return false, i.copy()
	case "paste":
		return false, i.paste()
	}
	return false, i.do(func(s *editor.Session) error { return i.edit(s, name, rest) })
}

// edit runs the commands that only touch the session.
func (i *interactiveCmd) edit(s *editor.Session, name string, args []string) error {
	switch name {
	case "tool":
		if len(args) != 1 {
			return errors.New("tool requires a name")
		}
		t, err := editor.ParseTool(args[0])
		if err != nil {
			return err
		}
		s.SetTool(t)
	case "color", "colour":
		if len(args) != 1 {
			return errors.New("color requires a value")
		}
		c, err := theme.ParseColor(args[0])
		if err != nil {
			return err
		}
		s.SetColor(c)
	case "size":
		v, err := expectFloats(args, 1, name)
		if err != nil {
			return err
		}
		setToolSize(s, v[0])
	case "fill", "lock", "auto":
		on, err := parseSwitch(args, name)
		if err != nil {
			return err
		}
		switch name {
		case "fill":
			s.SetFill(on)
		case "lock":
			s.SetAspectLock(on)
		default:
			s.SetAutoSelect(on)
		}
	case "drag":
		return drag(s, args, name)
	case "line", "erase":
		t := editor.ToolBrush
		if name == "erase" {
			t = editor.ToolEraser
		}
		s.SetTool(t)
		return drag(s, args, name)
	case "rect":
		if len(args) != 4 {
			return errors.New("rect requires x0 y0 x1 y1")
		}
		s.SetTool(editor.ToolRectangle)
		return drag(s, args, name)
	case "handle":
		return dragHandle(s, args)
	case "text":
		if len(args) < 3 {
			return errors.New("text requires x y and content")
		}
		pos, err := expectFloats(args[:2], 2, name)
		if err != nil {
			return err
		}
		_, err = s.AddTextLayer(strings.Join(args[2:], " "), r2.Vec{X: pos[0], Y: pos[1]})
		return err
	case "solid":
		if len(args) < 1 {
			return errors.New("solid requires a colour")
		}
		c, err := theme.ParseColor(args[0])
		if err != nil {
			return err
		}
		_, err = s.AddColorLayer(c, layerName(args[1:], fmt.Sprintf("Layer %d", s.Store().Len()+1)))
		return err
	case "layers":
		printLayers(i.stdout, s)
	case "select", "show", "hide":
		l, err := layerArg(s, args, name)
		if err != nil {
			return err
		}
		switch name {
		case "select":
			s.SelectLayer(l.ID)
		case "show":
			return s.SetLayerVisible(l.ID, true)
		default:
			return s.SetLayerVisible(l.ID, false)
		}
	case "delete":
		if len(args) == 0 {
			if _, ok := s.Store().Selected(); !ok {
				return errors.New("no layer selected")
			}
			s.DeleteSelected()
			return nil
		}
		l, err := layerArg(s, args, name)
		if err != nil {
			return err
		}
		return s.DeleteLayer(l.ID)
	case "order":
		v, err := expectInts(args, 2, name)
		if err != nil {
			return err
		}
		return s.MoveLayer(v[0]-1, v[1]-1)
	case "rename":
		if len(args) < 2 {
			return errors.New("rename requires a layer and a name")
		}
		l, err := layerArg(s, args[:1], name)
		if err != nil {
			return err
		}
		return s.RenameLayer(l.ID, strings.Join(args[1:], " "))
	case "crop":
		v, err := expectFloats(args, 4, name)
		if err != nil {
			return err
		}
		box := geom.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}.Canon()
		if box.W < editor.MinLayerSize || box.H < editor.MinLayerSize {
			return fmt.Errorf("crop box must be at least %dx%d", editor.MinLayerSize, editor.MinLayerSize)
		}
		s.SetTool(editor.ToolCrop)
		s.SetCropBox(box)
		s.ConfirmCrop()
	case "resize":
		v, err := expectFloats(args, 2, name)
		if err != nil {
			return err
		}
		if v[0] <= 0 || v[1] <= 0 {
			return errors.New("resize requires a positive size")
		}
		s.ResizeCanvas(v[0], v[1])
	case "undo":
		return s.Undo()
	case "redo":
		return s.Redo()
	case "zoom":
		if len(args) != 1 {
			return errors.New("zoom requires fit or 100")
		}
		switch args[0] {
		case "fit":
			s.FitToView()
		case "100", "100%":
			s.ZoomTo100()
		default:
			return fmt.Errorf("unknown zoom %q", args[0])
		}
	case "status":
		printStatus(i.stdout, s)
	default:
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	return nil
}

func (i *interactiveCmd) open(args []string) error {
	if len(args) != 1 {
		return errors.New("open requires an image reference")
	}
	if i.app != nil {
		return errors.New("open is not available while a window is showing")
	}
	img, err := i.load(args[0])
	if err != nil {
		return err
	}
	s, err := i.r.openSession(img)
	if err != nil {
		return err
	}
	i.session = s
	i.output = localFile(args[0])
	b := img.Bounds()
	fmt.Fprintf(i.stdout, "opened %s (%dx%d)\n", args[0], b.Dx(), b.Dy())
	return nil
}

func (i *interactiveCmd) blank(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("new requires width height [colour]")
	}
	if i.app != nil {
		return errors.New("new is not available while a window is showing")
	}
	v, err := expectInts(args[:2], 2, "new")
	if err != nil {
		return err
	}
	if v[0] <= 0 || v[1] <= 0 {
		return errors.New("new requires a positive size")
	}
	img := image.NewRGBA(image.Rect(0, 0, v[0], v[1]))
	if len(args) == 3 {
		c, err := theme.ParseColor(args[2])
		if err != nil {
			return err
		}
		fillImage(img, c)
	}
	s, err := i.r.openSession(img)
	if err != nil {
		return err
	}
	i.session = s
	i.output = ""
	return nil
}

func (i *interactiveCmd) load(ref string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	img, err := i.r.imageStore().Open(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	return img, nil
}

func (i *interactiveCmd) addImage(args []string) error {
	if len(args) < 1 {
		return errors.New("image requires a reference")
	}
	img, err := i.load(args[0])
	if err != nil {
		return err
	}
	name := layerName(args[1:], filepath.Base(args[0]))
	return i.do(func(s *editor.Session) error {
		_, err := s.AddImageLayer(img, name)
		return err
	})
}

func (i *interactiveCmd) save(args []string) error {
	if len(args) > 1 {
		return errors.New("save takes at most one destination")
	}
	dest := i.output
	if len(args) == 1 {
		dest = args[0]
	}
	if dest == "" {
		return errors.New("save requires a destination")
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	var (
		res  export.Result
		flat *image.RGBA
	)
	err := i.do(func(s *editor.Session) error {
		var err error
		res, err = s.Save(ctx)
		flat = s.Flatten()
		return err
	})
	if err != nil {
		return err
	}
	if err := i.r.imageStore().Write(ctx, dest, res.Data); err != nil {
		return fmt.Errorf("save %s: %w", dest, err)
	}
	i.output = dest
	if dest != "-" {
		fmt.Fprintf(i.stderr, "saved %s (%s, %d bytes)\n", dest, res.Format, len(res.Data))
	}
	i.r.notifySave(dest, flat)
	return nil
}

func (i *interactiveCmd) copy() error {
	var flat *image.RGBA
	if err := i.do(func(s *editor.Session) error {
		flat = s.Flatten()
		return nil
	}); err != nil {
		return err
	}
	if err := clipboard.WriteImage(flat); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	fmt.Fprintln(i.stderr, "copied image to clipboard")
	i.r.notifyCopy("image", flat)
	return nil
}

func (i *interactiveCmd) paste() error {
	img, err := clipboard.ReadImage()
	if err != nil {
		return fmt.Errorf("read clipboard image: %w", err)
	}
	return i.do(func(s *editor.Session) error {
		_, err := s.AddImageLayer(img, "Pasted")
		return err
	})
}

// onCanvas runs fn with client coordinates equal to canvas coordinates and
// puts the view back afterwards.
func onCanvas(s *editor.Session, fn func()) {
	m := s.Metrics()
	v := s.Viewport()
	saved := *v
	before := s.Canvas()
	s.SetMetrics(nil)
	v.Zoom, v.Offset = 1, r2.Vec{}
	fn()
	*v = saved
	s.SetMetrics(m)
	if s.Canvas() != before {
		s.FitToView()
	}
}

func drag(s *editor.Session, args []string, name string) error {
	if len(args) < 2 || len(args)%2 != 0 {
		return fmt.Errorf("%s requires x y pairs", name)
	}
	v, err := expectFloats(args, len(args), name)
	if err != nil {
		return err
	}
	pts := make([]r2.Vec, 0, len(v)/2)
	for k := 0; k < len(v); k += 2 {
		pts = append(pts, r2.Vec{X: v[k], Y: v[k+1]})
	}
	onCanvas(s, func() {
		s.PointerDown(pts[0], mouse.ButtonLeft)
		for _, p := range pts[1:] {
			s.PointerMove(p)
		}
		s.PointerUp(pts[len(pts)-1])
	})
	return nil
}

func dragHandle(s *editor.Session, args []string) error {
	if len(args) != 5 {
		return errors.New("handle requires a name and x0 y0 x1 y1")
	}
	h, ok := editor.ParseHandle(args[0])
	if !ok {
		return fmt.Errorf("unknown handle %q", args[0])
	}
	v, err := expectFloats(args[1:], 4, "handle")
	if err != nil {
		return err
	}
	from, to := r2.Vec{X: v[0], Y: v[1]}, r2.Vec{X: v[2], Y: v[3]}
	s.SetTool(editor.ToolMove)
	var grabbed bool
	onCanvas(s, func() {
		if h == editor.HandleBody {
			s.PointerDown(from, mouse.ButtonLeft)
			grabbed = s.Interaction() != nil
		} else {
			grabbed = s.TransformHandleDown(h, from)
		}
		if grabbed {
			s.PointerMove(to)
			s.PointerUp(to)
		}
	})
	if !grabbed {
		return fmt.Errorf("no editable layer to grab at %g,%g", from.X, from.Y)
	}
	return nil
}

func setToolSize(s *editor.Session, v float64) {
	switch s.Tool() {
	case editor.ToolEraser:
		s.SetEraserSize(v)
	case editor.ToolRectangle:
		s.SetRectStroke(v)
	case editor.ToolText:
		s.SetTextSize(v)
	default:
		s.SetBrushSize(v)
	}
}

func toolSize(s *editor.Session) float64 {
	st := s.Settings()
	switch s.Tool() {
	case editor.ToolEraser:
		return st.EraserSize
	case editor.ToolRectangle:
		return st.RectStroke
	case editor.ToolText:
		return st.TextSize
	default:
		return st.BrushSize
	}
}

// layerArg resolves a 1-based stack position as printed by layers.
func layerArg(s *editor.Session, args []string, name string) (*layers.Layer, error) {
	v, err := expectInts(args, 1, name)
	if err != nil {
		return nil, err
	}
	l, err := s.Store().At(v[0] - 1)
	if err != nil {
		return nil, fmt.Errorf("layer %d: %w", v[0], err)
	}
	return l, nil
}

func layerName(args []string, fallback string) string {
	if name := strings.TrimSpace(strings.Join(args, " ")); name != "" {
		return name
	}
	return fallback
}

func printLayers(w io.Writer, s *editor.Session) {
	sel := s.Store().SelectedID()
	for n, l := range s.Layers() {
		mark := " "
		if l.ID == sel {
			mark = "*"
		}
		vis := ""
		if !l.Visible {
			vis = " hidden"
		}
		fmt.Fprintf(w, "%s%2d %-20s %gx%g at %g,%g%s\n", mark, n+1, l.Name, l.Width, l.Height, l.X, l.Y, vis)
	}
}

func printStatus(w io.Writer, s *editor.Session) {
	c := s.Canvas()
	h := s.History()
	fmt.Fprintf(w, "tool %s size %g colour %s\n", s.Tool(), toolSize(s), theme.Hex(s.Settings().Color))
	fmt.Fprintf(w, "canvas %gx%g, %d layers, history %d/%d\n", c.W, c.H, s.Store().Len(), h.Index()+1, h.Len())
}

func parseSwitch(args []string, name string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("%s requires on or off", name)
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("%s requires on or off, got %q", name, args[0])
}

func expectInts(args []string, n int, name string) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d integer arguments", name, n)
	}
	vals := make([]int, n)
	for k, raw := range args {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		vals[k] = v
	}
	return vals, nil
}

func expectFloats(args []string, n int, name string) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d numeric arguments", name, n)
	}
	vals := make([]float64, n)
	for k, raw := range args {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		vals[k] = v
	}
	return vals, nil
}

func fillImage(img *image.RGBA, c color.RGBA) {
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// localFile returns the path ref names when it is a local file, otherwise
// the empty string.
func localFile(ref string) string {
	r, err := storage.ParseRef(ref)
	if err != nil || r.Kind != storage.KindFile {
		return ""
	}
	return r.Path
}
