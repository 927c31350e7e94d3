package config

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/example/layerpaint/internal/theme"
)

// Parse reads configuration in rc format from an io.Reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var section string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			if name, ok := strings.CutPrefix(section, "theme."); ok {
				cfg.theme(name)
			}
			continue
		}

		// Key = Value or Key: Value
		var key, value string
		var ok bool
		if key, value, ok = strings.Cut(line, "="); !ok {
			if key, value, ok = strings.Cut(line, ":"); !ok {
				continue
			}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") && len(value) >= 2 {
			value = value[1 : len(value)-1]
		}
		if err := cfg.set(section, key, value); err != nil {
			return nil, err
		}
	}

	return cfg, scanner.Err()
}

// ParseTOML reads the same settings from a TOML document. Tables map onto
// rc sections; [theme.<name>] tables define themes.
func ParseTOML(r io.Reader) (*Config, error) {
	var raw map[string]interface{}
	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	cfg := New()
	for _, key := range sortedKeys(raw) {
		switch v := raw[key].(type) {
		case map[string]interface{}:
			if key == "theme" {
				for _, name := range sortedKeys(v) {
					table, ok := v[name].(map[string]interface{})
					if !ok {
						return nil, fmt.Errorf("theme %s: expected a table", name)
					}
					cfg.theme(name)
					if err := cfg.setTable("theme."+name, table); err != nil {
						return nil, err
					}
				}
				continue
			}
			if err := cfg.setTable(key, v); err != nil {
				return nil, err
			}
		default:
			if err := cfg.set("", key, fmt.Sprint(v)); err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

func (c *Config) setTable(section string, table map[string]interface{}) error {
	for _, k := range sortedKeys(table) {
		if err := c.set(section, k, fmt.Sprint(table[k])); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// theme starts a theme section from the defaults so missing keys are fine.
func (c *Config) theme(name string) *theme.Theme {
	t := theme.Default()
	t.Name = name
	c.Themes[name] = t
	return t
}

func (c *Config) set(section, key, value string) error {
	var err error
	switch {
	case section == "":
		err = setRootField(c, key, value)
	case section == "editor":
		err = setEditorField(&c.Editor, key, value)
	case section == "export":
		err = setExportField(&c.Export, key, value)
	case section == "notify":
		err = setNotifyField(&c.Notify, key, value)
	case strings.HasPrefix(section, "theme."):
		t := c.Themes[strings.TrimPrefix(section, "theme.")]
		err = t.Set(key, value)
	default:
		return nil
	}
	if err != nil {
		if section == "" {
			return fmt.Errorf("error in root section: %w", err)
		}
		return fmt.Errorf("error in section [%s]: %w", section, err)
	}
	return nil
}

func setRootField(cfg *Config, key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "theme":
		cfg.Theme = value
	case "save_dir":
		cfg.SaveDir = value
	case "window_width":
		cfg.WindowWidth, err = parseInt(key, value)
	case "window_height":
		cfg.WindowHeight, err = parseInt(key, value)
	}
	return err
}

func setEditorField(e *Editor, key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "brush_size":
		e.BrushSize, err = parseFloat(key, value)
	case "eraser_size":
		e.EraserSize, err = parseFloat(key, value)
	case "rect_stroke":
		e.RectStroke, err = parseFloat(key, value)
	case "text_size":
		e.TextSize, err = parseFloat(key, value)
	case "size_step":
		e.SizeStep, err = parseFloat(key, value)
	case "color":
		if _, err = theme.ParseColor(value); err == nil {
			e.Color = value
		}
	case "fill":
		e.Fill, err = parseBool(key, value)
	case "aspect_lock":
		e.AspectLock, err = parseBool(key, value)
	case "auto_select":
		e.AutoSelect, err = parseBool(key, value)
	case "history_limit":
		e.HistoryLimit, err = parseInt(key, value)
	}
	return err
}

func setExportField(x *Export, key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "max_bytes":
		x.MaxBytes, err = parseInt(key, value)
	case "start_quality":
		x.StartQuality, err = parseInt(key, value)
	case "min_quality":
		x.MinQuality, err = parseInt(key, value)
	case "quality_step":
		x.QualityStep, err = parseInt(key, value)
	case "matte":
		if _, err = theme.ParseColor(value); err == nil {
			x.Matte = value
		}
	}
	return err
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := parseBool(key, value)
	if err != nil {
		return err
	}
	switch strings.ToLower(key) {
	case "save":
		n.Save = b
	case "copy":
		n.Copy = b
	}
	return nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	return b, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for key %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number for key %s: %w", key, err)
	}
	return f, nil
}
