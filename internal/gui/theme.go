package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	gooboxGreen = color.NRGBA{R: 0x2E, G: 0x9E, B: 0x6B, A: 0xFF}
	gooboxRed   = color.NRGBA{R: 0xD9, G: 0x3F, B: 0x3F, A: 0xFF}
	gooboxAmber = color.NRGBA{R: 0xF2, G: 0xA2, B: 0x2C, A: 0xFF}
)

// gooboxTheme is the default theme with the Goobox palette.
type gooboxTheme struct{}

func (t *gooboxTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameSuccess:
		return gooboxGreen
	case theme.ColorNameError:
		return gooboxRed
	case theme.ColorNameWarning:
		return gooboxAmber
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *gooboxTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *gooboxTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *gooboxTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameHeadingText {
		return 20
	}
	return theme.DefaultTheme().Size(name)
}
