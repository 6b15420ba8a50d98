package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storyai/internal/config"
	"storyai/internal/terminal"
	"storyai/internal/webterm"
)

var serveAddr string

// serveCmd exposes terminal sessions over websockets
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve terminal sessions over websockets",
	Long: `Starts an HTTP server. Each websocket connection to /ws gets its own terminal
session with its own wallet, theme and history; the story is shared.

GET /healthz reports the number of open sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		return runServe(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	boot := !noBoot && cfg.Terminal.BootEnabled
	srv := webterm.NewServer(a.sessionFactory(boot))

	logger.Info("terminal server starting", zap.String("addr", cfg.Server.Addr), zap.Bool("boot", boot))
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		return err
	}
	logger.Info("terminal server stopped")
	return nil
}

// sessionFactory builds one isolated session per connection.
func (a *app) sessionFactory(boot bool) webterm.SessionFactory {
	return func() (*terminal.Session, func(), error) {
		sc, err := a.newSession(boot)
		if err != nil {
			return nil, nil, err
		}
		return sc.session, sc.session.Close, nil
	}
}
