package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/layerpaint/internal/appstate"
	"github.com/example/layerpaint/internal/editor"
)

// editCmd opens an image in the editor window.
type editCmd struct {
	*root
	fs *flag.FlagSet

	file          string
	output        string
	fromClipboard bool
	width         int
	height        int
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	e := &editCmd{root: r, fs: fs}
	fs.Usage = usageFunc(e)
	fs.StringVar(&e.file, "file", "", "image to edit (path, URL, s3://, data: or -)")
	fs.StringVar(&e.output, "output", "", "where saves are written (defaults to the input file)")
	fs.BoolVar(&e.fromClipboard, "from-clipboard", false, "edit the image on the clipboard")
	fs.BoolVar(&e.fromClipboard, "from-clip", false, "edit the image on the clipboard (alias)")
	width, height := 0, 0
	if r != nil && r.config != nil {
		width, height = r.config.WindowWidth, r.config.WindowHeight
	}
	fs.IntVar(&e.width, "width", width, "initial window width")
	fs.IntVar(&e.height, "height", height, "initial window height")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if e.file == "" && fs.NArg() > 0 {
		e.file = fs.Arg(0)
	}
	if e.fromClipboard {
		if e.file != "" {
			return nil, errors.New("-from-clipboard cannot be combined with an input file")
		}
		e.file = "clipboard:"
	}
	if e.file == "" {
		return nil, &UsageError{of: e}
	}
	if e.output == "" {
		e.output = e.defaultOutput(time.Now())
	}
	return e, nil
}

func (e *editCmd) FlagSet() *flag.FlagSet {
	return e.fs
}

// defaultOutput writes local files back in place and everything else into
// the configured save directory.
func (e *editCmd) defaultOutput(now time.Time) string {
	if path := localFile(e.file); path != "" {
		return path
	}
	if e.root == nil || e.config == nil || e.config.SaveDir == "" {
		return ""
	}
	name := "layerpaint-" + now.Format("20060102-150405") + ".png"
	return filepath.Join(expandHome(e.config.SaveDir), name)
}

func (e *editCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	img, err := e.imageStore().Open(ctx, e.file)
	cancel()
	if err != nil {
		return fmt.Errorf("open %s: %w", e.file, err)
	}

	app := appstate.New(
		appstate.WithOutput(e.output),
		appstate.WithStorage(e.imageStore()),
		appstate.WithTheme(e.activeTheme),
		appstate.WithNotifier(e.notifier),
		appstate.WithWindowSize(e.width, e.height),
	)
	s, err := e.openSession(img, editor.WithOnChange(app.NotifyImageChanged))
	if err != nil {
		return err
	}
	app.Session = s
	app.Run()
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := userHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
