package editor

import (
	"fmt"
	"image/color"
	"strings"
)

// Tool is the active editing tool.
type Tool int

const (
	ToolBrush Tool = iota
	ToolEraser
	ToolText
	ToolRectangle
	ToolMove
	ToolCrop
)

var toolNames = []string{"brush", "eraser", "text", "rectangle", "move", "crop"}

func (t Tool) String() string {
	if int(t) < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// Tools returns every tool in shortcut order.
func Tools() []Tool {
	return []Tool{ToolBrush, ToolEraser, ToolText, ToolRectangle, ToolMove, ToolCrop}
}

// ParseTool accepts a tool name or its common short forms.
func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brush", "b", "draw", "pen":
		return ToolBrush, nil
	case "eraser", "e", "erase":
		return ToolEraser, nil
	case "text", "t":
		return ToolText, nil
	case "rectangle", "rect", "r":
		return ToolRectangle, nil
	case "move", "v":
		return ToolMove, nil
	case "crop", "c":
		return ToolCrop, nil
	}
	return 0, fmt.Errorf("unknown tool %q", s)
}

const (
	// MinToolSize and MaxToolSize bound every size parameter.
	MinToolSize = 1
	MaxToolSize = 500
	// MinLayerSize is the smallest logical size a transform or crop may
	// produce on either axis.
	MinLayerSize = 10
	// HandleSize is the on-screen size of transform and crop handles.
	HandleSize = 8
)

// Settings are the user-adjustable tool parameters.
type Settings struct {
	Color      color.RGBA
	BrushSize  float64
	EraserSize float64
	RectStroke float64
	TextSize   float64
	SizeStep   float64
	Fill       bool
	AspectLock bool
	AutoSelect bool
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		Color:      color.RGBA{0, 0, 0, 255},
		BrushSize:  10,
		EraserSize: 20,
		RectStroke: 4,
		TextSize:   32,
		SizeStep:   2,
		AutoSelect: true,
	}
}

func clampSize(v float64) float64 {
	if v < MinToolSize {
		return MinToolSize
	}
	if v > MaxToolSize {
		return MaxToolSize
	}
	return v
}

// sizeFor returns a pointer to the size parameter driven by t.
func (st *Settings) sizeFor(t Tool) *float64 {
	switch t {
	case ToolEraser:
		return &st.EraserSize
	case ToolRectangle:
		return &st.RectStroke
	case ToolText:
		return &st.TextSize
	default:
		return &st.BrushSize
	}
}

// ActiveSize returns the size parameter the given tool uses.
func (st Settings) ActiveSize(t Tool) float64 {
	return *st.sizeFor(t)
}
