package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `
theme = my_custom_theme
save_dir = /tmp/edits
window_width = 800

[editor]
brush_size = 12.5
color = "cornflowerblue"
aspect_lock = true
history_limit = 40

[export]
max_bytes = 2048
matte = #000000

[notify]
save = true
copy = false

[theme.my_custom_theme]
Background = #111111
CheckerDark: #222222
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Theme != "my_custom_theme" {
		t.Errorf("Expected theme 'my_custom_theme', got '%s'", cfg.Theme)
	}
	if cfg.SaveDir != "/tmp/edits" {
		t.Errorf("Expected save_dir '/tmp/edits', got '%s'", cfg.SaveDir)
	}
	if cfg.WindowWidth != 800 || cfg.WindowHeight != 768 {
		t.Errorf("window size %dx%d", cfg.WindowWidth, cfg.WindowHeight)
	}
	if !cfg.Notify.Save || cfg.Notify.Copy {
		t.Errorf("notify = %+v", cfg.Notify)
	}

	st, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if st.BrushSize != 12.5 || !st.AspectLock || st.Color != (color.RGBA{100, 149, 237, 255}) {
		t.Errorf("settings = %+v", st)
	}
	if st.EraserSize != 20 {
		t.Errorf("unset key should keep default, got %v", st.EraserSize)
	}
	if cfg.Editor.HistoryLimit != 40 {
		t.Errorf("history_limit = %d", cfg.Editor.HistoryLimit)
	}

	eo, err := cfg.ExportOptions()
	if err != nil {
		t.Fatalf("ExportOptions: %v", err)
	}
	if eo.MaxBytes != 2048 || eo.Matte != (color.RGBA{0, 0, 0, 255}) || eo.StartQuality != 90 {
		t.Errorf("export options = %+v", eo)
	}

	th, ok := cfg.Themes["my_custom_theme"]
	if !ok {
		t.Fatal("Expected theme 'my_custom_theme' to be loaded")
	}
	if th.Background != (color.RGBA{0x11, 0x11, 0x11, 0xFF}) || th.CheckerDark != (color.RGBA{0x22, 0x22, 0x22, 0xFF}) {
		t.Errorf("Unexpected theme colours: %+v", th)
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"[notify]\nsave = maybe\n",
		"[editor]\nbrush_size = big\n",
		"[editor]\ncolor = nope\n",
		"window_width = wide\n",
		"[theme.x]\nBackground: #12\n",
	} {
		if _, err := Parse(strings.NewReader(input)); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestCircular(t *testing.T) {
	input := `theme = dark
save_dir = /home/user/edits

[editor]
eraser_size = 33
fill = true

[export]
quality_step = 5

[notify]
save = true
copy = false

[theme.custom]
Name = custom
Background = #000000
Foreground = #FFFFFF
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Initial parse failed: %v", err)
	}

	cfg2, err := Parse(strings.NewReader(cfg.String()))
	if err != nil {
		t.Fatalf("Circular parse failed: %v", err)
	}

	if cfg.Theme != cfg2.Theme || cfg.SaveDir != cfg2.SaveDir {
		t.Errorf("root mismatch: %+v vs %+v", cfg, cfg2)
	}
	if cfg.Editor != cfg2.Editor {
		t.Errorf("Editor mismatch: %+v vs %+v", cfg.Editor, cfg2.Editor)
	}
	if cfg.Export != cfg2.Export {
		t.Errorf("Export mismatch: %+v vs %+v", cfg.Export, cfg2.Export)
	}
	if cfg.Notify != cfg2.Notify {
		t.Errorf("Notify mismatch: %+v vs %+v", cfg.Notify, cfg2.Notify)
	}

	t1 := cfg.Themes["custom"]
	t2 := cfg2.Themes["custom"]
	if t1 == nil || t2 == nil {
		t.Fatalf("Custom theme missing in one config")
	}
	if *t1 != *t2 {
		t.Errorf("Theme mismatch: %+v vs %+v", t1, t2)
	}
}

func TestParseTOML(t *testing.T) {
	input := `
theme = "custom"
window_height = 600

[editor]
brush_size = 7
auto_select = false

[export]
max_bytes = 1048576

[notify]
copy = true

[theme.custom]
CheckerLight = "#FFFFFF"
`
	cfg, err := ParseTOML(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTOML: %v", err)
	}
	if cfg.Theme != "custom" || cfg.WindowHeight != 600 {
		t.Errorf("root = %+v", cfg)
	}
	if cfg.Editor.BrushSize != 7 || cfg.Editor.AutoSelect {
		t.Errorf("editor = %+v", cfg.Editor)
	}
	if cfg.Export.MaxBytes != 1<<20 || !cfg.Notify.Copy {
		t.Errorf("export/notify = %+v %+v", cfg.Export, cfg.Notify)
	}
	if th := cfg.Themes["custom"]; th == nil || th.CheckerLight != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("theme = %+v", th)
	}

	if _, err := ParseTOML(strings.NewReader("[editor\n")); err == nil {
		t.Errorf("expected decode error")
	}
}

func TestLoaderPrefersOverride(t *testing.T) {
	dir := t.TempDir()
	rc := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(rc, []byte("save_dir = \"/srv\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", t.TempDir())
	cfg, err := NewLoader("1.0", rc).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SaveDir != "/srv" {
		t.Errorf("save_dir = %q", cfg.SaveDir)
	}

	cfg, err = NewLoader("1.0", filepath.Join(dir, "missing.rc")).Load()
	if err != nil || cfg.SaveDir != "" {
		t.Fatalf("missing file should give defaults: %+v %v", cfg, err)
	}
}
