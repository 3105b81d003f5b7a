// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logview

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/logrelay/lib/logrecord"
)

// Theme is the palette for rendered records. All colors use lipgloss
// ANSI color codes or hex values.
type Theme struct {
	// Message colors per level.
	Debug lipgloss.Color
	Info  lipgloss.Color
	Warn  lipgloss.Color
	Error lipgloss.Color

	// Text attributes per level.
	DebugEmphasis Emphasis
	InfoEmphasis  Emphasis
	WarnEmphasis  Emphasis
	ErrorEmphasis Emphasis

	// Metadata: timestamps, pids, and the stderr marker.
	FaintText     lipgloss.Color
	FaintEmphasis Emphasis

	// Project names.
	Project lipgloss.Color

	// Status lines printed by the agent about itself.
	Success         lipgloss.Color
	SuccessEmphasis Emphasis
	Failure         lipgloss.Color
	FailureEmphasis Emphasis
	Notice          lipgloss.Color

	// Background behind every styled span. Empty leaves the terminal
	// background.
	Background lipgloss.Color
}

// Emphasis holds the text attributes layered over a color.
type Emphasis struct {
	Bold      bool
	Underline bool
	Italic    bool
	Faint     bool
}

// Apply returns style with the attributes set.
func (e Emphasis) Apply(style lipgloss.Style) lipgloss.Style {
	if e.Bold {
		style = style.Bold(true)
	}
	if e.Underline {
		style = style.Underline(true)
	}
	if e.Italic {
		style = style.Italic(true)
	}
	if e.Faint {
		style = style.Faint(true)
	}
	return style
}

// DefaultTheme is the built-in scheme for dark 256-color terminals.
var DefaultTheme = Theme{
	Debug: lipgloss.Color("245"), // gray
	Info:  lipgloss.Color("252"), // near white
	Warn:  lipgloss.Color("220"), // amber
	Error: lipgloss.Color("196"), // bright red

	ErrorEmphasis: Emphasis{Bold: true},

	FaintText: lipgloss.Color("241"),
	Project:   lipgloss.Color("75"), // blue

	Success:         lipgloss.Color("114"), // green
	Failure:         lipgloss.Color("196"),
	FailureEmphasis: Emphasis{Bold: true},
	Notice:          lipgloss.Color("81"), // cyan
}

// ANSI 16-color indexes used by the named schemes.
const (
	ansiBlack        = lipgloss.Color("0")
	ansiRed          = lipgloss.Color("1")
	ansiGreen        = lipgloss.Color("2")
	ansiYellow       = lipgloss.Color("3")
	ansiCyan         = lipgloss.Color("6")
	ansiWhite        = lipgloss.Color("7")
	ansiBrightBlack  = lipgloss.Color("8")
	ansiBrightRed    = lipgloss.Color("9")
	ansiBrightGreen  = lipgloss.Color("10")
	ansiBrightYellow = lipgloss.Color("11")
	ansiBrightBlue   = lipgloss.Color("12")
	ansiBrightCyan   = lipgloss.Color("14")
	ansiBrightWhite  = lipgloss.Color("15")
)

const defaultSchemeName = "default"

// Scheme is a named, selectable theme.
type Scheme struct {
	Name        string
	Description string
	Theme       Theme
}

var schemes = map[string]Scheme{
	defaultSchemeName: {
		Name:        defaultSchemeName,
		Description: "Default colors (red errors, yellow warnings)",
		Theme:       DefaultTheme,
	},
	"solarized_dark": {
		Name:        "solarized_dark",
		Description: "Solarized Dark theme",
		Theme: Theme{
			Debug:         ansiCyan,
			Info:          ansiBrightWhite,
			Warn:          ansiBrightYellow,
			Error:         ansiBrightRed,
			ErrorEmphasis: Emphasis{Bold: true},

			FaintText:     ansiBrightBlack,
			FaintEmphasis: Emphasis{Italic: true},
			Project:       ansiBrightCyan,

			Success:         ansiGreen,
			Failure:         ansiBrightRed,
			FailureEmphasis: Emphasis{Bold: true},
			Notice:          ansiBrightCyan,
		},
	},
	"high_contrast": {
		Name:        "high_contrast",
		Description: "High contrast for accessibility",
		Theme: Theme{
			Debug:         ansiCyan,
			Info:          ansiWhite,
			Warn:          ansiYellow,
			WarnEmphasis:  Emphasis{Bold: true},
			Error:         ansiRed,
			ErrorEmphasis: Emphasis{Bold: true, Underline: true},

			FaintText: ansiBrightBlack,
			Project:   ansiCyan,

			Success:         ansiGreen,
			SuccessEmphasis: Emphasis{Bold: true},
			Failure:         ansiRed,
			FailureEmphasis: Emphasis{Bold: true},
			Notice:          ansiCyan,

			Background: ansiBlack,
		},
	},
	"minimal": {
		Name:        "minimal",
		Description: "Minimal colors, no bold",
		Theme: Theme{
			Debug: ansiBrightBlue,
			Info:  ansiWhite,
			Warn:  ansiBrightYellow,
			Error: ansiBrightRed,

			FaintText: ansiBrightBlack,
			Project:   ansiBrightCyan,

			Success: ansiBrightGreen,
			Failure: ansiBrightRed,
			Notice:  ansiBrightCyan,
		},
	},
	"monochrome": {
		Name:        "monochrome",
		Description: "Shades of gray only",
		Theme: Theme{
			Debug:         ansiBrightBlack,
			Info:          ansiWhite,
			Warn:          ansiBrightWhite,
			WarnEmphasis:  Emphasis{Bold: true},
			Error:         ansiWhite,
			ErrorEmphasis: Emphasis{Bold: true, Underline: true},

			FaintText:     ansiBrightBlack,
			FaintEmphasis: Emphasis{Faint: true},
			Project:       ansiWhite,

			Success:         ansiBrightWhite,
			SuccessEmphasis: Emphasis{Bold: true},
			Failure:         ansiWhite,
			FailureEmphasis: Emphasis{Bold: true, Underline: true},
			Notice:          ansiWhite,
		},
	},
}

// LookupScheme returns the scheme called name. Names are matched
// case-insensitively, and "-" and "_" are interchangeable.
func LookupScheme(name string) (Scheme, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if normalized == "" {
		normalized = defaultSchemeName
	}
	scheme, ok := schemes[normalized]
	return scheme, ok
}

// Schemes lists the named schemes, the default first and the rest by
// name.
func Schemes() []Scheme {
	list := make([]Scheme, 0, len(schemes))
	for _, scheme := range schemes {
		list = append(list, scheme)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name == defaultSchemeName || list[j].Name == defaultSchemeName {
			return list[i].Name == defaultSchemeName
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// SchemeNames returns the names Schemes lists, in the same order.
func SchemeNames() []string {
	list := Schemes()
	names := make([]string, len(list))
	for index, scheme := range list {
		names[index] = scheme.Name
	}
	return names
}

// LevelColor returns the message color for level. Unknown levels use
// Info.
func (theme Theme) LevelColor(level logrecord.Level) lipgloss.Color {
	switch level {
	case logrecord.LevelDebug:
		return theme.Debug
	case logrecord.LevelWarn:
		return theme.Warn
	case logrecord.LevelError:
		return theme.Error
	default:
		return theme.Info
	}
}

// LevelEmphasis returns the text attributes for level. Unknown levels
// use InfoEmphasis.
func (theme Theme) LevelEmphasis(level logrecord.Level) Emphasis {
	switch level {
	case logrecord.LevelDebug:
		return theme.DebugEmphasis
	case logrecord.LevelWarn:
		return theme.WarnEmphasis
	case logrecord.LevelError:
		return theme.ErrorEmphasis
	default:
		return theme.InfoEmphasis
	}
}

// LevelStyle builds the message style for level on styles.
func (theme Theme) LevelStyle(styles *lipgloss.Renderer, level logrecord.Level) lipgloss.Style {
	return theme.base(styles, theme.LevelColor(level), theme.LevelEmphasis(level))
}

// SuccessStyle, FailureStyle, NoticeStyle, and FaintStyle build the
// styles for status lines and metadata on styles.
func (theme Theme) SuccessStyle(styles *lipgloss.Renderer) lipgloss.Style {
	return theme.base(styles, theme.Success, theme.SuccessEmphasis)
}

func (theme Theme) FailureStyle(styles *lipgloss.Renderer) lipgloss.Style {
	return theme.base(styles, theme.Failure, theme.FailureEmphasis)
}

func (theme Theme) NoticeStyle(styles *lipgloss.Renderer) lipgloss.Style {
	return theme.base(styles, theme.Notice, Emphasis{})
}

func (theme Theme) FaintStyle(styles *lipgloss.Renderer) lipgloss.Style {
	return theme.base(styles, theme.FaintText, theme.FaintEmphasis)
}

func (theme Theme) base(styles *lipgloss.Renderer, color lipgloss.Color, emphasis Emphasis) lipgloss.Style {
	style := styles.NewStyle().Foreground(color)
	if theme.Background != "" {
		style = style.Background(theme.Background)
	}
	return emphasis.Apply(style)
}

// WithLevelColors returns a copy of theme with the level colors named
// in overrides replaced. Keys are level names; unknown keys are
// ignored.
func (theme Theme) WithLevelColors(overrides map[string]string) Theme {
	for name, color := range overrides {
		switch logrecord.Level(name) {
		case logrecord.LevelDebug:
			theme.Debug = lipgloss.Color(color)
		case logrecord.LevelInfo:
			theme.Info = lipgloss.Color(color)
		case logrecord.LevelWarn:
			theme.Warn = lipgloss.Color(color)
		case logrecord.LevelError:
			theme.Error = lipgloss.Color(color)
		}
	}
	return theme
}
