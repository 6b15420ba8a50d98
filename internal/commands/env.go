package commands

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storyai/internal/ai"
	"storyai/internal/story"
	"storyai/internal/wallet"
)

// Build describes the running binary.
type Build struct {
	Version   string
	BuildDate string
}

// Env holds the collaborators a session's commands talk to. Story, Balances
// and Generator may be shared between sessions; Wallet and Prefs belong to a
// single session.
type Env struct {
	Story     story.Store
	Wallet    *wallet.Wallet
	Balances  wallet.BalanceOracle
	Generator ai.LineGenerator // nil disables "suggest line"
	Prefs     *Preferences

	Network   string // shown by "status"
	ExportDir string // "export story" writes here
	HelpStyle string // glamour style for detailed help: notty, dark, light
	Build     Build
	Now       func() time.Time
}

func (e *Env) validate() error {
	var errs []error
	if e.Story == nil {
		errs = append(errs, errors.New("story store is required"))
	}
	if e.Wallet == nil {
		errs = append(errs, errors.New("wallet is required"))
	}
	if e.Balances == nil {
		errs = append(errs, errors.New("balance oracle is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("commands: %w", err)
	}
	if e.Prefs == nil {
		e.Prefs = NewPreferences(ThemeDark)
	}
	if e.Network == "" {
		e.Network = "mainnet-beta"
	}
	if e.ExportDir == "" {
		e.ExportDir = "."
	}
	if e.HelpStyle == "" {
		e.HelpStyle = "notty"
	}
	if e.Build.Version == "" {
		e.Build.Version = "1.0.0"
	}
	if e.Build.BuildDate == "" {
		e.Build.BuildDate = "2024.03.14"
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	return nil
}

// =============================================================================
// PREFERENCES
// =============================================================================

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// ErrInvalidTheme is returned by SetTheme for anything but light or dark.
var ErrInvalidTheme = errors.New(`Invalid theme. Use "light" or "dark"`)

// Preferences is per-session presentation state that commands can change
// and presentation layers observe.
type Preferences struct {
	mu        sync.RWMutex
	theme     string
	listeners []func(theme string)
}

// NewPreferences returns preferences starting on theme (dark if invalid).
func NewPreferences(theme string) *Preferences {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeLight {
		theme = ThemeDark
	}
	return &Preferences{theme: theme}
}

// Theme returns the current theme.
func (p *Preferences) Theme() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.theme
}

// SetTheme switches theme and notifies listeners.
func (p *Preferences) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeDark && theme != ThemeLight {
		return ErrInvalidTheme
	}
	p.mu.Lock()
	p.theme = theme
	listeners := append([]func(string){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(theme)
	}
	return nil
}

// OnThemeChange registers fn to run after every SetTheme.
func (p *Preferences) OnThemeChange(fn func(theme string)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}
