package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"strings"

	"github.com/example/layerpaint/internal/editor"
	"github.com/example/layerpaint/internal/theme"
)

// drawCmd applies editing commands to an image without a window and saves
// the result. Strokes past a layer's edge grow it as they do in the window.
type drawCmd struct {
	*root
	fs *flag.FlagSet

	file          string
	output        string
	fromClipboard bool
	toClipboard   bool
	colorSpec     string
	color         color.RGBA
	size          float64
	textSize      float64
	fill          bool
	execs         commandList
	command       string
}

func (d *drawCmd) FlagSet() *flag.FlagSet {
	return d.fs
}

func parseDrawCmd(args []string, r *root) (*drawCmd, error) {
	fs := flag.NewFlagSet("draw", flag.ExitOnError)
	d := &drawCmd{root: r, fs: fs}
	fs.Usage = usageFunc(d)
	fs.StringVar(&d.file, "file", "", "input image (path, URL, s3://, data: or -)")
	fs.StringVar(&d.output, "output", "", "output location (defaults to the input file)")
	fs.BoolVar(&d.fromClipboard, "from-clipboard", false, "read the input image from the clipboard")
	fs.BoolVar(&d.fromClipboard, "from-clip", false, "read the input image from the clipboard (alias)")
	fs.BoolVar(&d.toClipboard, "to-clipboard", false, "copy the result to the clipboard")
	fs.BoolVar(&d.toClipboard, "to-clip", false, "copy the result to the clipboard (alias)")
	fs.StringVar(&d.colorSpec, "color", "", "drawing colour name or hex value (defaults to the configured colour)")
	fs.Float64Var(&d.size, "size", 0, "brush, eraser and rectangle stroke size")
	fs.Float64Var(&d.textSize, "text-size", 0, "text size")
	fs.BoolVar(&d.fill, "fill", false, "fill rectangles instead of stroking them")
	fs.Var(&d.execs, "e", "additional command to run after the main one (may be repeated)")

	flagArgs, positionals, err := splitDrawArgs(args)
	if err != nil {
		return nil, err
	}
	if err := fs.Parse(flagArgs); err != nil {
		return nil, err
	}
	d.command = strings.Join(positionals, " ")
	if d.command == "" && len(d.execs) == 0 {
		return nil, &UsageError{of: d}
	}
	if d.colorSpec != "" {
		if d.color, err = theme.ParseColor(d.colorSpec); err != nil {
			return nil, err
		}
	}
	if d.fromClipboard {
		if d.file != "" {
			return nil, errors.New("-from-clipboard cannot be combined with -file")
		}
		if d.output == "" && !d.toClipboard {
			return nil, errors.New("output file is required when reading from the clipboard")
		}
		d.file = "clipboard:"
	} else {
		if d.file == "" {
			return nil, errors.New("input file is required")
		}
		if d.output == "" {
			d.output = d.file
		}
	}
	return d, nil
}

func (d *drawCmd) Run() error {
	sh := newInteractiveCmd(d.root)
	img, err := sh.load(d.file)
	if err != nil {
		return err
	}
	s, err := d.openSession(img)
	if err != nil {
		return err
	}
	sh.session = s
	d.apply(s)

	lines := make([]string, 0, len(d.execs)+1)
	if d.command != "" {
		lines = append(lines, d.command)
	}
	lines = append(lines, d.execs...)
	for _, line := range lines {
		done, err := sh.executeLine(line)
		if err != nil {
			return fmt.Errorf("%s: %w", line, err)
		}
		if done {
			break
		}
	}

	if d.output != "" {
		if err := sh.save([]string{d.output}); err != nil {
			return err
		}
	}
	if d.toClipboard {
		return sh.copy()
	}
	return nil
}

// apply copies the flag settings onto the session.
func (d *drawCmd) apply(s *editor.Session) {
	if d.colorSpec != "" {
		s.SetColor(d.color)
	}
	if d.size > 0 {
		s.SetBrushSize(d.size)
		s.SetEraserSize(d.size)
		s.SetRectStroke(d.size)
	}
	if d.textSize > 0 {
		s.SetTextSize(d.textSize)
	}
	if d.fill {
		s.SetFill(true)
	}
}

var drawFlagNames = map[string]struct{}{
	"file":           {},
	"output":         {},
	"from-clipboard": {},
	"from-clip":      {},
	"to-clipboard":   {},
	"to-clip":        {},
	"color":          {},
	"size":           {},
	"text-size":      {},
	"fill":           {},
	"e":              {},
}

var drawBoolFlags = map[string]struct{}{
	"from-clipboard": {},
	"from-clip":      {},
	"to-clipboard":   {},
	"to-clip":        {},
	"fill":           {},
}

// splitDrawArgs separates known flags from the command words so flags may
// follow the command. Negative numbers stay with the command.
func splitDrawArgs(args []string) ([]string, []string, error) {
	var flags []string
	var positionals []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positionals = append(positionals, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		parts := strings.SplitN(name, "=", 2)
		base := strings.ToLower(parts[0])
		if _, ok := drawFlagNames[base]; !ok {
			positionals = append(positionals, arg)
			continue
		}
		norm := "-" + base
		if len(parts) == 2 {
			flags = append(flags, norm+"="+parts[1])
			continue
		}
		if _, ok := drawBoolFlags[base]; ok {
			flags = append(flags, norm)
			continue
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("flag %s requires a value", arg)
		}
		flags = append(flags, norm, args[i+1])
		i++
	}
	return flags, positionals, nil
}
