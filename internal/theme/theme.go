// Package theme holds the colours used by the editor window and the
// checkerboard drawn behind transparent pixels.
package theme

import (
	"image/color"
)

// Theme defines the colour palette for the editor window.
type Theme struct {
	Name string

	// General
	Background color.RGBA // behind the canvas
	Foreground color.RGBA // status text

	// Toolbar
	ToolbarBackground color.RGBA
	ButtonBackground  color.RGBA
	ButtonActive      color.RGBA
	ButtonText        color.RGBA
	ButtonBorder      color.RGBA

	// Overlays
	SelectionOutline color.RGBA
	HandleFill       color.RGBA
	CropOutline      color.RGBA
	CropShade        color.RGBA

	// Canvas
	CheckerLight color.RGBA
	CheckerDark  color.RGBA
}

// Default returns the built-in light theme.
func Default() *Theme {
	return &Theme{
		Name:              "Default",
		Background:        color.RGBA{200, 200, 200, 255},
		Foreground:        color.RGBA{0, 0, 0, 255},
		ToolbarBackground: color.RGBA{220, 220, 220, 255},
		ButtonBackground:  color.RGBA{200, 200, 200, 255},
		ButtonActive:      color.RGBA{150, 150, 150, 255},
		ButtonText:        color.RGBA{0, 0, 0, 255},
		ButtonBorder:      color.RGBA{0, 0, 0, 255},
		SelectionOutline:  color.RGBA{0, 120, 215, 255},
		HandleFill:        color.RGBA{255, 255, 255, 255},
		CropOutline:       color.RGBA{255, 255, 255, 255},
		CropShade:         color.RGBA{0, 0, 0, 128},
		CheckerLight:      color.RGBA{220, 220, 220, 255},
		CheckerDark:       color.RGBA{192, 192, 192, 255},
	}
}
