package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"storyai/internal/terminal"
)

func TestThemeByName(t *testing.T) {
	assert.True(t, ThemeByName("dark").IsDark)
	assert.False(t, ThemeByName(" LIGHT ").IsDark)
	assert.Equal(t, "dark", ThemeByName("sepia").Name)
}

func TestStyles_KindFallsBackToOutput(t *testing.T) {
	s := DefaultStyles()
	assert.Equal(t,
		s.Kind(terminal.KindOutput).GetForeground(),
		s.Kind(terminal.Kind("bogus")).GetForeground())
	assert.Equal(t, DarkError, s.Kind(terminal.KindError).GetForeground())
	assert.Equal(t, DarkCommand, s.Kind(terminal.KindInput).GetForeground())

	light := NewStyles(LightTheme())
	assert.Equal(t, LightSuccess, light.Kind(terminal.KindSuccess).GetForeground())
}

func TestRenderLines_KeepsContent(t *testing.T) {
	s := DefaultStyles()
	out := s.RenderLines([]terminal.Line{
		{Content: "> help", Kind: terminal.KindInput},
		{Content: "Theme switched to light mode", Kind: terminal.KindSuccess, Animated: true},
	}, 0)
	assert.Contains(t, out, "> help")
	assert.Contains(t, out, "Theme switched to light mode")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestRenderDivider(t *testing.T) {
	s := DefaultStyles()
	assert.Contains(t, s.RenderDivider(5), strings.Repeat("─", 5))
	assert.Contains(t, s.RenderDivider(0), strings.Repeat("─", 40))
}
