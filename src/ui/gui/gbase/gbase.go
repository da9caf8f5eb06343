package gbase

import (
	"errors"
	"image/color"
)

// ---- Exit Call ----

var ErrExit = errors.New("exit request")

// --- UI constants ---

const (
	Padding    = 12
	ButtonH    = 28
	ButtonGap  = 8
	LineH      = 22
	ProgressH  = 6
	MinWindowW = 480
	MinWindowH = 720
)

// ---- Styles (palettes) ----

type Palette struct {
	Bg           color.RGBA
	ButtonFill   color.RGBA
	ButtonStroke color.RGBA
	ButtonText   color.RGBA
	MenuText     color.RGBA
	DimText      color.RGBA
	Accent       color.RGBA
	Placeholder  color.RGBA
	Good         color.RGBA
	Bad          color.RGBA
}

func (p Palette) String() string {
	switch p {
	case LightPalette:
		return "light"
	case DarkPalette:
		return "dark"
	default:
	}
	return ""
}

func PaletteFromString(p string) Palette {
	switch p {
	case "dark":
		return DarkPalette
	default:
	}
	return LightPalette
}

var LightPalette = Palette{
	Bg:           color.RGBA{0xf7, 0xf7, 0xf7, 0xff},
	ButtonFill:   color.RGBA{0xff, 0xff, 0xff, 0xff},
	ButtonStroke: color.RGBA{0x88, 0x88, 0x88, 0xff},
	ButtonText:   color.RGBA{0x22, 0x22, 0x22, 0xff},
	MenuText:     color.RGBA{0x22, 0x22, 0x22, 0xff},
	DimText:      color.RGBA{0x99, 0x99, 0x99, 0xff},
	Accent:       color.RGBA{0x22, 0x88, 0xcc, 0xff},
	Placeholder:  color.RGBA{0xe2, 0xe2, 0xe2, 0xff},
	Good:         color.RGBA{0x2e, 0x8b, 0x57, 0xff},
	Bad:          color.RGBA{0xc0, 0x39, 0x2b, 0xff},
}

var DarkPalette = Palette{
	Bg:           color.RGBA{0x12, 0x12, 0x12, 0xff},
	ButtonFill:   color.RGBA{0x20, 0x20, 0x20, 0xff},
	ButtonStroke: color.RGBA{0xdd, 0xdd, 0xdd, 0xff},
	ButtonText:   color.RGBA{0xee, 0xee, 0xee, 0xff},
	MenuText:     color.RGBA{0xee, 0xee, 0xee, 0xff},
	DimText:      color.RGBA{0x77, 0x77, 0x77, 0xff},
	Accent:       color.RGBA{0x2a, 0xa1, 0xd1, 0xff},
	Placeholder:  color.RGBA{0x2c, 0x2c, 0x2c, 0xff},
	Good:         color.RGBA{0x5c, 0xc9, 0x8a, 0xff},
	Bad:          color.RGBA{0xe5, 0x6b, 0x5d, 0xff},
}
