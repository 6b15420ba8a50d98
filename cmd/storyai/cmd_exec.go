package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storyai/cmd/storyai/ui"
	"storyai/internal/config"
	"storyai/internal/terminal"
)

var (
	execWallet string
	execStyled bool
)

// execCmd runs commands without the interactive screen
var execCmd = &cobra.Command{
	Use:   "exec [command]...",
	Short: "Run terminal commands and print their output",
	Long: `Runs each argument as one terminal command in a fresh session and prints the
resulting scrollback. The boot sequence and processing delay are skipped.

Example:
  storyai exec "view story" "search realm"
  storyai exec --wallet <address> "submit line The lights flickered."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Terminal.ProcessingDelay = "0s"
		return runExec(ctx, cfg, cmd.OutOrStdout(), args)
	},
}

func init() {
	execCmd.Flags().StringVar(&execWallet, "wallet", "", "Connect this wallet before running the commands")
	execCmd.Flags().BoolVar(&execStyled, "styled", false, "Colorize output by line kind")
}

// errCommandsFailed is returned when at least one command rendered an error.
var errCommandsFailed = errors.New("one or more commands failed")

func runExec(ctx context.Context, cfg *config.Config, out io.Writer, commands []string) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sc, err := a.newSession(false)
	if err != nil {
		return err
	}
	defer sc.session.Close()
	sc.session.Start(ctx)

	if execWallet != "" {
		commands = append([]string{"connect " + execWallet}, commands...)
	}

	failed := 0
	for _, c := range commands {
		err := sc.session.Submit(ctx, c)
		switch {
		case err == nil:
		case errors.Is(err, terminal.ErrEmptyInput):
		case errors.Is(err, terminal.ErrSessionClosed), errors.Is(err, terminal.ErrBusy), errors.Is(err, terminal.ErrBooting):
			return fmt.Errorf("%q: %w", c, err)
		default:
			logger.Warn("command failed", zap.String("command", c), zap.NamedError("kind", terminal.Classify(err)))
			failed++
		}
	}

	styles := ui.DefaultStyles()
	lines, _ := sc.session.Since(0)
	for _, l := range lines {
		if execStyled {
			fmt.Fprintln(out, styles.RenderLine(l, 0))
		} else {
			fmt.Fprintln(out, l.Content)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w (%d of %d)", errCommandsFailed, failed, len(commands))
	}
	return nil
}
