// Package ui provides the visual styling for the StoryAI terminal: the retro
// green-on-black palette, its light counterpart and per-line-kind styles.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"storyai/internal/terminal"
)

// Palette
var (
	// Dark mode (the phosphor terminal)
	DarkBackground = lipgloss.Color("#0a0a0a")
	DarkForeground = lipgloss.Color("#3af23a")
	DarkMuted      = lipgloss.Color("#1f8a1f") // foreground at half strength
	DarkBorder     = lipgloss.Color("#1a1a1a")

	// Light mode
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#1b6e1b")
	LightMuted      = lipgloss.Color("#7a9a7a")
	LightBorder     = lipgloss.Color("#dce0e5")

	// Semantic colors
	DarkError     = lipgloss.Color("#ef4444")
	DarkSuccess   = lipgloss.Color("#4ade80")
	DarkWarning   = lipgloss.Color("#facc15")
	DarkInfo      = lipgloss.Color("#60a5fa")
	DarkCommand   = lipgloss.Color("#22d3ee")
	DarkHighlight = lipgloss.Color("#c084fc")

	LightError     = lipgloss.Color("#c62828")
	LightSuccess   = lipgloss.Color("#2e7d32")
	LightWarning   = lipgloss.Color("#b7791f")
	LightInfo      = lipgloss.Color("#1565c0")
	LightCommand   = lipgloss.Color("#00838f")
	LightHighlight = lipgloss.Color("#7b1fa2")
)

// Theme holds the current color scheme
type Theme struct {
	Name       string
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Error      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Info       lipgloss.Color
	Command    lipgloss.Color
	Highlight  lipgloss.Color
	IsDark     bool
}

// DarkTheme returns the green phosphor theme
func DarkTheme() Theme {
	return Theme{
		Name:       "dark",
		Background: DarkBackground,
		Foreground: DarkForeground,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Error:      DarkError,
		Success:    DarkSuccess,
		Warning:    DarkWarning,
		Info:       DarkInfo,
		Command:    DarkCommand,
		Highlight:  DarkHighlight,
		IsDark:     true,
	}
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Name:       "light",
		Background: LightBackground,
		Foreground: LightForeground,
		Muted:      LightMuted,
		Border:     LightBorder,
		Error:      LightError,
		Success:    LightSuccess,
		Warning:    LightWarning,
		Info:       LightInfo,
		Command:    LightCommand,
		Highlight:  LightHighlight,
		IsDark:     false,
	}
}

// ThemeByName returns the named theme, dark for anything unknown.
func ThemeByName(name string) Theme {
	if strings.EqualFold(strings.TrimSpace(name), "light") {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	App    lipgloss.Style
	Header lipgloss.Style
	Footer lipgloss.Style

	// Input
	Prompt      lipgloss.Style
	Input       lipgloss.Style
	Placeholder lipgloss.Style

	// Footer indicators
	Connected    lipgloss.Style
	Disconnected lipgloss.Style

	Muted   lipgloss.Style
	Divider lipgloss.Style
	Spinner lipgloss.Style

	kinds map[terminal.Kind]lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	s := Styles{
		Theme: theme,

		App: lipgloss.NewStyle().
			Background(theme.Background).
			Foreground(theme.Foreground),

		Header: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Input: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Placeholder: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Connected: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Disconnected: lipgloss.NewStyle().
			Foreground(theme.Error),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Foreground),
	}

	s.kinds = map[terminal.Kind]lipgloss.Style{
		terminal.KindInput:   lipgloss.NewStyle().Foreground(theme.Command),
		terminal.KindOutput:  lipgloss.NewStyle().Foreground(theme.Foreground),
		terminal.KindError:   lipgloss.NewStyle().Foreground(theme.Error),
		terminal.KindSuccess: lipgloss.NewStyle().Foreground(theme.Success),
		terminal.KindWarning: lipgloss.NewStyle().Foreground(theme.Warning),
		terminal.KindInfo:    lipgloss.NewStyle().Foreground(theme.Info),
	}
	return s
}

// DefaultStyles returns the dark styles.
func DefaultStyles() Styles {
	return NewStyles(DarkTheme())
}

// Kind returns the style for a line kind, falling back to output.
func (s Styles) Kind(k terminal.Kind) lipgloss.Style {
	if st, ok := s.kinds[k]; ok {
		return st
	}
	return s.kinds[terminal.KindOutput]
}

// RenderLine styles one scrollback line, wrapping at width when positive.
func (s Styles) RenderLine(l terminal.Line, width int) string {
	st := s.Kind(l.Kind)
	if l.Animated {
		st = st.Bold(true)
	}
	if width > 0 {
		st = st.Width(width)
	}
	return st.Render(l.Content)
}

// RenderLines styles a whole scrollback.
func (s Styles) RenderLines(lines []terminal.Line, width int) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = s.RenderLine(l, width)
	}
	return strings.Join(out, "\n")
}

// RenderDivider renders a horizontal rule.
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 40
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
