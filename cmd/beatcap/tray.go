package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petems/beatcap/internal/metrics"
	"github.com/petems/beatcap/internal/permissions"
	"github.com/petems/beatcap/internal/tray"
)

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Run the system tray front-end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		// macOS requires explicit microphone approval before capture works
		if err := permissions.EnsureMicrophone(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var m *metrics.Capture
		if cfg.Metrics.Enabled {
			m = metrics.New()
			shutdown := serveMetrics(cfg.Metrics.Addr, m, log)
			defer shutdown()
		}

		// Create tray UI first (we'll pass it to app)
		trayUI := tray.New(nil, cfg, Version, Commit, log)

		application, err := newApp(cfg, log, m, trayUI)
		if err != nil {
			return err
		}
		defer func() {
			if err := application.Close(); err != nil {
				log.Error().Err(err).Msg("Shutdown error")
			}
		}()

		// Set app reference in tray
		trayUI.SetApp(application)

		log.Info().Str("version", Version).Msg("beatcap tray starting...")

		// Start tray UI - MUST run on main thread
		return trayUI.Run(ctx)
	},
}
