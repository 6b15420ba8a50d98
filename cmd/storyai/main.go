package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"storyai/cmd/storyai/tui"
	"storyai/internal/config"
	"storyai/internal/logging"
)

// Set by the linker.
var (
	buildVersion = "1.0.0"
	buildDate    = "2024.03.14"
)

var (
	// Global flags
	verbose    bool
	configPath string
	noBoot     bool
	themeFlag  string

	// Logger for the non-interactive commands
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storyai",
	Short: "StoryAI Terminal - collaborative storytelling from a retro terminal",
	Long: `StoryAI Terminal boots a retro computer terminal in which everyone extends
one shared story, a line at a time.

Connect a Solana wallet holding enough $STORY tokens to submit lines. Each
wallet may contribute once per cooldown period.

Run without arguments to start the interactive terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive terminal owns the screen; it logs to file only.
		if cmd == cmd.Root() {
			return nil
		}
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
		logging.CloseAll()
	},
	RunE: runInteractive,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "StoryAI Terminal v%s (build %s)\n", buildVersion, buildDate)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists", configPath)
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "storyai.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVar(&noBoot, "no-boot", false, "Skip the boot sequence")
	rootCmd.PersistentFlags().StringVar(&themeFlag, "theme", "", "Terminal theme: dark or light")

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configInitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runInteractive starts the full-screen terminal.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sc, err := a.newSession(!noBoot && cfg.Terminal.BootEnabled)
	if err != nil {
		return err
	}
	defer sc.session.Close()

	opts := tui.Options{
		Session:   sc.session,
		Prefs:     sc.prefs,
		Connected: sc.wallet.Connected,
		Title:     cfg.Name,
		Prompt:    cfg.Terminal.Prompt,
	}

	// Live config reloads are best effort.
	w, err := config.NewWatcher(configPath)
	if err == nil {
		defer w.Stop()
		err = w.Start(ctx)
	}
	if err != nil {
		logging.ConfigWarn("config watcher disabled: %v", err)
	} else {
		opts.ConfigUpdates = w.Updates()
	}

	return tui.Run(ctx, opts)
}
