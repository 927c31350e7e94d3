package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/example/layerpaint/internal/config"
	"github.com/example/layerpaint/internal/editor"
	"github.com/example/layerpaint/internal/notify"
	"github.com/example/layerpaint/internal/storage"
	"github.com/example/layerpaint/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs          *flag.FlagSet
	program     string
	notifier    *notify.Notifier
	config      *config.Config
	store       *storage.Store
	saveAlerts  bool
	copyAlerts  bool
	themeName   string
	activeTheme *theme.Theme
}

func (r *root) Program() string {
	return r.program
}

func (r *root) subcommand(name string) *root {
	program := strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
	return &root{
		program:     program,
		notifier:    r.notifier,
		config:      r.config,
		store:       r.store,
		saveAlerts:  r.saveAlerts,
		copyAlerts:  r.copyAlerts,
		themeName:   r.themeName,
		activeTheme: r.activeTheme,
	}
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}

	r := &root{
		fs:       flag.NewFlagSet("layerpaint", flag.ExitOnError),
		program:  "layerpaint",
		notifier: notify.New(notify.LoadPreferences()),
		config:   cfg,
		store:    storage.New(),
	}
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after saving an image")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")

	// Precedence: CLI > Env > Config > Default
	r.fs.StringVar(&r.themeName, "theme", "", "colour theme: light, dark, a config [theme.NAME] section or a .theme file")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	if r.notifier != nil {
		r.notifier.Enable(notify.EventSave, r.saveAlerts)
		r.notifier.Enable(notify.EventCopy, r.copyAlerts)
	}

	loader := theme.NewLoader()
	loader.Inline = r.config.Themes
	t, err := loader.Resolve(r.themeName, r.config.Theme)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v. using default.\n", err)
		t = theme.Default()
	}
	r.activeTheme = t

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var cmd runnable
	switch cmdName {
	case "edit":
		cmd, err = parseEditCmd(subArgs, r.subcommand("edit"))
	case "draw":
		cmd, err = parseDrawCmd(subArgs, r.subcommand("draw"))
	case "export":
		cmd, err = parseExportCmd(subArgs, r.subcommand("export"))
	case "interactive":
		cmd, err = parseInteractiveCmd(subArgs, r.subcommand("interactive"))
	case "background":
		cmd, err = parseBackgroundCmd(subArgs, r.subcommand("background"))
	case "config":
		cmd, err = parseConfigCmd(subArgs, r.subcommand("config"))
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openSession starts an editing session on img with the configured tool
// settings, export budget and history limit.
func (r *root) openSession(img image.Image, opts ...editor.Option) (*editor.Session, error) {
	cfg := r.config
	if cfg == nil {
		cfg = config.New()
	}
	st, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	eo, err := cfg.ExportOptions()
	if err != nil {
		return nil, err
	}
	base := []editor.Option{
		editor.WithSettings(st),
		editor.WithExportOptions(eo),
		editor.WithHistoryLimit(cfg.Editor.HistoryLimit),
	}
	return editor.Open(img, append(base, opts...)...)
}

func (r *root) imageStore() *storage.Store {
	if r == nil || r.store == nil {
		return storage.New()
	}
	return r.store
}

func (r *root) notifySave(dest string, img image.Image) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Save(dest, img)
}

func (r *root) notifyCopy(detail string, img image.Image) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Copy(detail, img)
}
