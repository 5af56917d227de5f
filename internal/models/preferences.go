// Package models defines the domain types shared by mdpad components.
package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Font size bounds in pixels, as offered by the settings menu.
const (
	MinFontSize     = 12
	MaxFontSize     = 24
	DefaultFontSize = 14
)

// Preferences are the UI settings persisted next to the buffer.
type Preferences struct {
	Theme    string `json:"theme"`
	FontSize int    `json:"font_size"`
}

// DefaultPreferences returns the first-run preferences.
func DefaultPreferences() Preferences {
	return Preferences{Theme: ThemeLight, FontSize: DefaultFontSize}
}

var (
	themeRules    = []validation.Rule{validation.Required, validation.In(ThemeLight, ThemeDark)}
	fontSizeRules = []validation.Rule{validation.Required, validation.Min(MinFontSize), validation.Max(MaxFontSize)}
)

// Validate checks theme and font size ranges.
func (p Preferences) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Theme, themeRules...),
		validation.Field(&p.FontSize, fontSizeRules...),
	)
}

// Repair replaces each invalid field with its default and keeps the rest.
func (p Preferences) Repair() Preferences {
	def := DefaultPreferences()
	if validation.Validate(p.Theme, themeRules...) != nil {
		p.Theme = def.Theme
	}
	if validation.Validate(p.FontSize, fontSizeRules...) != nil {
		p.FontSize = def.FontSize
	}
	return p
}

// GutterFontSize is the line-number font size derived from the editor font
// size (two pixels smaller, never below 10).
func (p Preferences) GutterFontSize() int {
	return max(p.FontSize-2, 10)
}
