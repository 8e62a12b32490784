// theme/theme.go

// Package theme holds the application look: a dark palette with a red accent
// applied regardless of the system variant.
package theme

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	accent     = color.NRGBA{R: 0xc2, G: 0x14, B: 0x3d, A: 0xff} // #C2143D
	background = color.NRGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}
	surface    = color.NRGBA{R: 0x21, G: 0x21, B: 0x21, A: 0xff}
	white      = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

var palette = map[fyne.ThemeColorName]color.Color{
	theme.ColorNameBackground:          background,
	theme.ColorNameButton:              background,
	theme.ColorNameDisabled:            color.NRGBA{R: 0x96, G: 0x96, B: 0x96, A: 0xff},
	theme.ColorNameError:               accent,
	theme.ColorNameFocus:               accent,
	theme.ColorNameForeground:          white,
	theme.ColorNameForegroundOnError:   white,
	theme.ColorNameForegroundOnPrimary: white,
	theme.ColorNameHeaderBackground:    color.NRGBA{R: 0x3a, G: 0x3a, B: 0x3a, A: 0xff},
	theme.ColorNameHover:               color.NRGBA{R: 0x47, G: 0x47, B: 0x47, A: 0xff},
	theme.ColorNameInputBackground:     color.NRGBA{A: 0xff},
	theme.ColorNameInputBorder:         surface,
	theme.ColorNameMenuBackground:      color.NRGBA{R: 0x29, G: 0x29, B: 0x2e, A: 0xff},
	theme.ColorNameOverlayBackground:   surface,
	theme.ColorNamePlaceHolder:         color.NRGBA{R: 0xb3, G: 0xb3, B: 0xb3, A: 0xff},
	theme.ColorNamePressed:             surface,
	theme.ColorNamePrimary:             accent,
	theme.ColorNameScrollBar:           color.NRGBA{R: 0x42, G: 0x42, B: 0x42, A: 0xff},
	theme.ColorNameSelection:           accent,
	theme.ColorNameSeparator:           color.NRGBA{A: 0xff},
	theme.ColorNameShadow:              color.NRGBA{A: 0x42},
	theme.ColorNameSuccess:             color.NRGBA{R: 0x43, G: 0xf4, B: 0x36, A: 0xff},
	theme.ColorNameWarning:             color.NRGBA{R: 0xff, G: 0x98, B: 0x00, A: 0xff},
}

var sizes = map[fyne.ThemeSizeName]float32{
	theme.SizeNameInlineIcon:      20,
	theme.SizeNameInnerPadding:    8,
	theme.SizeNameLineSpacing:     6,
	theme.SizeNamePadding:         2,
	theme.SizeNameScrollBar:       12,
	theme.SizeNameScrollBarSmall:  12,
	theme.SizeNameText:            15,
	theme.SizeNameHeadingText:     24,
	theme.SizeNameSubHeadingText:  18,
	theme.SizeNameCaptionText:     11,
	theme.SizeNameInputRadius:     8,
	theme.SizeNameSelectionRadius: 8,
}

type customTheme struct {
	base fyne.Theme
}

// NewCustomTheme returns the dark application theme
func NewCustomTheme() fyne.Theme {
	return &customTheme{base: theme.DefaultTheme()}
}

func (t *customTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	if c, ok := palette[name]; ok {
		return c
	}
	return t.base.Color(name, theme.VariantDark)
}

func (t *customTheme) Size(name fyne.ThemeSizeName) float32 {
	if s, ok := sizes[name]; ok {
		return s
	}
	return t.base.Size(name)
}

func (t *customTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *customTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}
