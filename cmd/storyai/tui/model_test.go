package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storyai/internal/commands"
	"storyai/internal/config"
	"storyai/internal/terminal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testSession(t *testing.T, boot terminal.Schedule) *terminal.Session {
	t.Helper()
	reg, err := terminal.NewRegistry(
		terminal.Command{Name: "help", Handler: func(context.Context, *terminal.Session, string) (terminal.Response, error) {
			return terminal.Response{Lines: []string{"h1"}, Kind: terminal.KindOutput}, nil
		}},
		terminal.Command{Name: "view story", Handler: func(context.Context, *terminal.Session, string) (terminal.Response, error) {
			return terminal.Response{Lines: []string{"story"}, Kind: terminal.KindOutput}, nil
		}},
	)
	require.NoError(t, err)
	s, err := terminal.NewSession(terminal.Options{Registry: reg, Boot: boot})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func newModel(t *testing.T, opts Options) *Model {
	t.Helper()
	m := New(context.Background(), opts)
	t.Cleanup(func() { m.quit() })
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func key(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func contents(lines []terminal.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Content
	}
	return out
}

func TestModel_EnterRunsCommand(t *testing.T) {
	sess := testSession(t, nil)
	m := newModel(t, Options{Session: sess})

	typeText(m, "help")
	assert.Equal(t, "help", m.input.Value())
	assert.Equal(t, "help", sess.Buffer())

	cmd := key(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	done, ok := msg.(commandDoneMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)
	m.Update(msg)

	assert.Equal(t, []string{"> help", "h1"}, contents(sess.Lines()))
	assert.Contains(t, m.viewport.View(), "h1")
}

func TestModel_TabAndHistory(t *testing.T) {
	sess := testSession(t, nil)
	m := newModel(t, Options{Session: sess})

	typeText(m, "vi")
	key(m, tea.KeyTab)
	assert.Equal(t, "view story", m.input.Value())

	m.Update(key(m, tea.KeyEnter)())
	typeText(m, "help")
	m.Update(key(m, tea.KeyEnter)())

	key(m, tea.KeyUp)
	assert.Equal(t, "help", m.input.Value())
	key(m, tea.KeyUp)
	assert.Equal(t, "view story", m.input.Value())
	key(m, tea.KeyDown)
	assert.Equal(t, "help", m.input.Value())
	key(m, tea.KeyDown)
	assert.Empty(t, m.input.Value())
}

func TestModel_InputHiddenWhileBooting(t *testing.T) {
	sess := testSession(t, terminal.Schedule{{Message: "BIOS", Delay: time.Hour}})
	m := newModel(t, Options{Session: sess})

	typeText(m, "help")
	assert.Empty(t, m.input.Value())
	assert.Nil(t, key(m, tea.KeyEnter))
	assert.Contains(t, m.View(), "Booting...")
}

func TestModel_ThemeChangeRestyles(t *testing.T) {
	prefs := commands.NewPreferences(commands.ThemeDark)
	m := newModel(t, Options{Session: testSession(t, nil), Prefs: prefs})
	assert.Equal(t, "dark", m.styles.Theme.Name)

	require.NoError(t, prefs.SetTheme(commands.ThemeLight))
	msg := m.waitForTheme()()
	assert.Equal(t, themeMsg("light"), msg)
	m.Update(msg)
	assert.Equal(t, "light", m.styles.Theme.Name)
	assert.Contains(t, m.footer(), "theme: light")
}

func TestModel_ConfigReloadAppliesTheme(t *testing.T) {
	prefs := commands.NewPreferences(commands.ThemeDark)
	configs := make(chan *config.Config, 1)
	m := newModel(t, Options{Session: testSession(t, nil), Prefs: prefs, ConfigUpdates: configs})

	cfg := config.DefaultConfig()
	cfg.Terminal.Theme = "light"
	cfg.Terminal.Prompt = "$ "
	configs <- cfg

	msg := m.waitForConfig()()
	m.Update(msg)
	assert.Equal(t, commands.ThemeLight, prefs.Theme())
	assert.Equal(t, "$ ", m.input.Prompt)

	close(configs)
	assert.Nil(t, m.waitForConfig()())
}

func TestModel_FooterShowsWallet(t *testing.T) {
	connected := false
	m := newModel(t, Options{Session: testSession(t, nil), Connected: func() bool { return connected }})
	assert.Contains(t, m.footer(), "Wallet not connected")
	connected = true
	assert.Contains(t, m.footer(), "Connected")
}

func TestModel_QuitAndSessionClose(t *testing.T) {
	sess := testSession(t, nil)
	m := newModel(t, Options{Session: sess})

	cmd := key(m, tea.KeyEsc)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())

	sess2 := testSession(t, nil)
	m2 := newModel(t, Options{Session: sess2})
	sess2.Close()
	var msg tea.Msg
	for {
		msg = m2.waitForSession()()
		if _, changed := msg.(sessionChangedMsg); !changed {
			break
		}
	}
	assert.Equal(t, sessionClosedMsg{}, msg)
}
