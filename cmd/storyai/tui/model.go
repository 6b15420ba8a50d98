// Package tui runs a terminal session inside a Bubble Tea program.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"storyai/cmd/storyai/ui"
	"storyai/internal/commands"
	"storyai/internal/config"
	"storyai/internal/logging"
	"storyai/internal/terminal"
)

// chromeHeight is the number of rows outside the viewport: header,
// divider, input and footer.
const chromeHeight = 4

// Options configures a Model.
type Options struct {
	Session *terminal.Session
	Prefs   *commands.Preferences

	// Connected reports the wallet state shown in the footer.
	Connected func() bool

	// ConfigUpdates delivers reloaded configuration. May be nil.
	ConfigUpdates <-chan *config.Config

	Title  string
	Prompt string
}

// Messages
type (
	sessionChangedMsg struct{}
	sessionClosedMsg  struct{}
	themeMsg          string
	configMsg         *config.Config
	commandDoneMsg    struct{ err error }
)

// Model is the Bubble Tea model wrapping one session.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	sess      *terminal.Session
	prefs     *commands.Preferences
	connected func() bool
	title     string

	updates     <-chan struct{}
	unsubscribe func()
	themes      chan string
	configs     <-chan *config.Config

	styles   ui.Styles
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width, height int
	ready         bool
	quitting      bool
}

// New builds a model over an unstarted session. The session is started by
// Init.
func New(ctx context.Context, opts Options) *Model {
	if opts.Prefs == nil {
		opts.Prefs = commands.NewPreferences(commands.ThemeDark)
	}
	if opts.Connected == nil {
		opts.Connected = func() bool { return false }
	}
	if opts.Title == "" {
		opts.Title = "StoryAI Terminal"
	}
	if opts.Prompt == "" {
		opts.Prompt = terminal.PromptPrefix
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &Model{
		ctx:       ctx,
		cancel:    cancel,
		sess:      opts.Session,
		prefs:     opts.Prefs,
		connected: opts.Connected,
		title:     opts.Title,
		themes:    make(chan string, 1),
		configs:   opts.ConfigUpdates,
	}
	m.updates, m.unsubscribe = m.sess.Subscribe()

	m.prefs.OnThemeChange(func(theme string) {
		// Latest theme wins; a pending older one is replaced.
		select {
		case <-m.themes:
		default:
		}
		select {
		case m.themes <- theme:
		default:
		}
	})

	m.input = textinput.New()
	m.input.Prompt = opts.Prompt
	m.input.Placeholder = "Type a command..."
	m.input.Focus()

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.viewport = viewport.New(80, 20)

	m.applyTheme(m.prefs.Theme())
	return m
}

func (m *Model) applyTheme(theme string) {
	m.styles = ui.NewStyles(ui.ThemeByName(theme))
	m.input.PromptStyle = m.styles.Prompt
	m.input.TextStyle = m.styles.Input
	m.input.PlaceholderStyle = m.styles.Placeholder
	m.spinner.Style = m.styles.Spinner
}

// Init starts the session and the listeners.
func (m *Model) Init() tea.Cmd {
	m.sess.Start(m.ctx)
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, m.waitForSession(), m.waitForTheme()}
	if m.configs != nil {
		cmds = append(cmds, m.waitForConfig())
	}
	return tea.Batch(cmds...)
}

func (m *Model) waitForSession() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-m.updates; !ok {
			return sessionClosedMsg{}
		}
		return sessionChangedMsg{}
	}
}

func (m *Model) waitForTheme() tea.Cmd {
	return func() tea.Msg {
		select {
		case t := <-m.themes:
			return themeMsg(t)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForConfig() tea.Cmd {
	return func() tea.Msg {
		select {
		case cfg, ok := <-m.configs:
			if !ok {
				return nil
			}
			return configMsg(cfg)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) run(inv *terminal.Invocation) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg{err: inv.Run(m.ctx)}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-chromeHeight)
		m.input.Width = max(1, msg.Width-lipgloss.Width(m.input.Prompt)-1)
		m.ready = true
		m.refresh()
		return m, nil

	case sessionChangedMsg:
		m.refresh()
		return m, m.waitForSession()

	case sessionClosedMsg:
		return m, m.quit()

	case themeMsg:
		m.applyTheme(string(msg))
		m.refresh()
		return m, m.waitForTheme()

	case configMsg:
		if msg != nil {
			if err := m.prefs.SetTheme(msg.Terminal.Theme); err != nil {
				logging.ConfigWarn("ignoring reloaded theme %q: %v", msg.Terminal.Theme, err)
			}
			if msg.Terminal.Prompt != "" {
				m.input.Prompt = msg.Terminal.Prompt
			}
		}
		return m, m.waitForConfig()

	case commandDoneMsg:
		m.input.SetValue(m.sess.Buffer())
		m.input.CursorEnd()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, m.quit()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// Input is hidden while booting and disabled while a command runs.
	if !m.sess.Interactive() || m.sess.Processing() {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		inv, err := m.sess.Begin(m.input.Value())
		if err != nil {
			return m, nil
		}
		m.input.SetValue("")
		return m, m.run(inv)
	case tea.KeyUp:
		m.setInput(m.sess.HistoryUp())
		return m, nil
	case tea.KeyDown:
		m.setInput(m.sess.HistoryDown())
		return m, nil
	case tea.KeyTab:
		m.sess.SetBuffer(m.input.Value())
		m.setInput(m.sess.Complete())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.sess.SetBuffer(m.input.Value())
	return m, cmd
}

func (m *Model) setInput(v string) {
	m.input.SetValue(v)
	m.input.CursorEnd()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.styles.RenderLines(m.sess.Lines(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m *Model) quit() tea.Cmd {
	if !m.quitting {
		m.quitting = true
		m.cancel()
		m.unsubscribe()
	}
	return tea.Quit
}

// =============================================================================
// VIEW
// =============================================================================

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	var prompt string
	switch {
	case !m.sess.Interactive():
		prompt = m.spinner.View() + " " + m.styles.Muted.Render("Booting...")
	case m.sess.Processing():
		prompt = m.spinner.View() + " " + m.styles.Muted.Render("Processing...")
	default:
		prompt = m.input.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(m.title),
		m.viewport.View(),
		m.styles.RenderDivider(m.width),
		prompt,
		m.footer(),
	)
}

func (m *Model) footer() string {
	status := m.styles.Disconnected.Render("●") + " Wallet not connected"
	if m.connected() {
		status = m.styles.Connected.Render("●") + " Connected"
	}
	right := fmt.Sprintf("theme: %s", m.prefs.Theme())
	gap := max(1, m.width-lipgloss.Width(status)-lipgloss.Width(right)-2)
	return m.styles.Footer.Render(status + strings.Repeat(" ", gap) + right)
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	m.quit()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
