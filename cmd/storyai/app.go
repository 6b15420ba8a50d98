package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"storyai/internal/ai"
	"storyai/internal/commands"
	"storyai/internal/config"
	"storyai/internal/logging"
	"storyai/internal/story"
	"storyai/internal/terminal"
	"storyai/internal/wallet"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig reads the config file, applies flag overrides, validates it and
// initializes file logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if themeFlag != "" {
		cfg.Terminal.Theme = themeFlag
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Initialize(logging.Config{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		JSONFormat: cfg.Logging.Format == "json",
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.ConfigInfo("configuration loaded from %s", configPath)
	return cfg, nil
}

// app holds the collaborators shared by every session.
type app struct {
	cfg       *config.Config
	store     story.Store
	oracle    wallet.BalanceOracle // uncached source behind balances
	balances  wallet.BalanceOracle
	generator ai.LineGenerator
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	switch cfg.Wallet.Oracle {
	case "rpc":
		endpoints := cfg.RPCEndpoints()
		if len(endpoints) == 0 {
			return nil, errors.New("wallet.rpc_endpoint required for rpc oracle")
		}
		a.oracle = wallet.NewRPCOracle(endpoints[0], cfg.Wallet.TokenAddress, endpoints[1:]...)
		logging.Wallet("balance oracle: rpc via %d endpoints", len(endpoints))
	default:
		a.oracle = wallet.StaticOracle{Default: cfg.Wallet.DefaultBalance}
	}
	a.balances = wallet.NewCachingOracle(a.oracle, cfg.GetBalanceCacheTTL())

	policy := story.Policy{
		MinTokenBalance: cfg.Story.MinTokenBalance,
		Cooldown:        cfg.GetCooldown(),
		Balances:        a.balances,
	}
	switch cfg.Story.Backend {
	case "sqlite":
		if dir := filepath.Dir(cfg.Story.DatabasePath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		s, err := story.NewSQLiteStore(cfg.Story.DatabasePath, policy)
		if err != nil {
			return nil, err
		}
		a.store = s
	default:
		a.store = story.NewMemoryStore(policy)
	}

	if cfg.IsAIEnabled() {
		g, err := ai.NewGenAIGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.GetAITimeout())
		switch {
		case err == nil:
			a.generator = g
		case errors.Is(err, ai.ErrNotConfigured):
		default:
			logging.AIError("line suggestions disabled: %v", err)
		}
	}
	return a, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if c, ok := a.oracle.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

// sessionContext is one terminal session and its private state.
type sessionContext struct {
	session *terminal.Session
	wallet  *wallet.Wallet
	prefs   *commands.Preferences
}

func (a *app) newSession(boot bool) (*sessionContext, error) {
	sc := &sessionContext{
		wallet: wallet.New(),
		prefs:  commands.NewPreferences(a.cfg.Terminal.Theme),
	}
	reg, err := commands.NewRegistry(&commands.Env{
		Story:     a.store,
		Wallet:    sc.wallet,
		Balances:  a.balances,
		Generator: a.generator,
		Prefs:     sc.prefs,
		Network:   a.cfg.Wallet.Network,
		ExportDir: a.cfg.Story.ExportDir,
		HelpStyle: helpStyle(a.cfg.Terminal.Theme),
		Build:     commands.Build{Version: buildVersion, BuildDate: buildDate},
	})
	if err != nil {
		return nil, err
	}

	opts := terminal.Options{
		Registry:        reg,
		ProcessingDelay: a.cfg.GetProcessingDelay(),
		HistoryLimit:    a.cfg.Terminal.HistoryLimit,
	}
	if boot {
		opts.Boot = terminal.DefaultSchedule()
	}
	sc.session, err = terminal.NewSession(opts)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func helpStyle(theme string) string {
	if theme == commands.ThemeLight {
		return "light"
	}
	return "dark"
}
