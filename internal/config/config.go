// Package config loads layerpaint settings from an rc or TOML file.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/layerpaint/internal/editor"
	"github.com/example/layerpaint/internal/export"
	"github.com/example/layerpaint/internal/theme"
)

// Notify holds notification settings.
type Notify struct {
	Save bool
	Copy bool
}

// Editor holds the default tool settings for new sessions.
type Editor struct {
	BrushSize    float64
	EraserSize   float64
	RectStroke   float64
	TextSize     float64
	SizeStep     float64
	Color        string
	Fill         bool
	AspectLock   bool
	AutoSelect   bool
	HistoryLimit int
}

// Export holds the encoder budget.
type Export struct {
	MaxBytes     int
	StartQuality int
	MinQuality   int
	QualityStep  int
	Matte        string
}

// Config holds the application configuration.
type Config struct {
	Theme        string
	SaveDir      string
	WindowWidth  int
	WindowHeight int
	Editor       Editor
	Export       Export
	Notify       Notify
	Themes       map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	st := editor.DefaultSettings()
	eo := export.DefaultOptions()
	return &Config{
		WindowWidth:  1024,
		WindowHeight: 768,
		Editor: Editor{
			BrushSize:  st.BrushSize,
			EraserSize: st.EraserSize,
			RectStroke: st.RectStroke,
			TextSize:   st.TextSize,
			SizeStep:   st.SizeStep,
			Color:      theme.Hex(st.Color),
			Fill:       st.Fill,
			AspectLock: st.AspectLock,
			AutoSelect: st.AutoSelect,
		},
		Export: Export{
			MaxBytes:     eo.MaxBytes,
			StartQuality: eo.StartQuality,
			MinQuality:   eo.MinQuality,
			QualityStep:  eo.QualityStep,
			Matte:        "white",
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// Settings converts the [editor] section into session tool settings.
func (c *Config) Settings() (editor.Settings, error) {
	col, err := theme.ParseColor(c.Editor.Color)
	if err != nil {
		return editor.Settings{}, fmt.Errorf("editor color: %w", err)
	}
	return editor.Settings{
		Color:      col,
		BrushSize:  c.Editor.BrushSize,
		EraserSize: c.Editor.EraserSize,
		RectStroke: c.Editor.RectStroke,
		TextSize:   c.Editor.TextSize,
		SizeStep:   c.Editor.SizeStep,
		Fill:       c.Editor.Fill,
		AspectLock: c.Editor.AspectLock,
		AutoSelect: c.Editor.AutoSelect,
	}, nil
}

// ExportOptions converts the [export] section into encoder options.
func (c *Config) ExportOptions() (export.Options, error) {
	o := export.DefaultOptions()
	o.MaxBytes = c.Export.MaxBytes
	o.StartQuality = c.Export.StartQuality
	o.MinQuality = c.Export.MinQuality
	o.QualityStep = c.Export.QualityStep
	if c.Export.Matte != "" {
		m, err := theme.ParseColor(c.Export.Matte)
		if err != nil {
			return export.Options{}, fmt.Errorf("export matte: %w", err)
		}
		o.Matte = m
	}
	return o, nil
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
	}
	fmt.Fprintf(&sb, "window_width = %d\n", c.WindowWidth)
	fmt.Fprintf(&sb, "window_height = %d\n", c.WindowHeight)
	sb.WriteString("\n")

	e := c.Editor
	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "brush_size = %g\n", e.BrushSize)
	fmt.Fprintf(&sb, "eraser_size = %g\n", e.EraserSize)
	fmt.Fprintf(&sb, "rect_stroke = %g\n", e.RectStroke)
	fmt.Fprintf(&sb, "text_size = %g\n", e.TextSize)
	fmt.Fprintf(&sb, "size_step = %g\n", e.SizeStep)
	fmt.Fprintf(&sb, "color = %s\n", e.Color)
	fmt.Fprintf(&sb, "fill = %v\n", e.Fill)
	fmt.Fprintf(&sb, "aspect_lock = %v\n", e.AspectLock)
	fmt.Fprintf(&sb, "auto_select = %v\n", e.AutoSelect)
	fmt.Fprintf(&sb, "history_limit = %d\n", e.HistoryLimit)
	sb.WriteString("\n")

	x := c.Export
	sb.WriteString("[export]\n")
	fmt.Fprintf(&sb, "max_bytes = %d\n", x.MaxBytes)
	fmt.Fprintf(&sb, "start_quality = %d\n", x.StartQuality)
	fmt.Fprintf(&sb, "min_quality = %d\n", x.MinQuality)
	fmt.Fprintf(&sb, "quality_step = %d\n", x.QualityStep)
	if x.Matte != "" {
		fmt.Fprintf(&sb, "matte = %s\n", x.Matte)
	}
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	sb.WriteString("\n")

	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, f := range t.Fields() {
			fmt.Fprintf(&sb, "%s: %s\n", f.Name, theme.Hex(f.Color))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
