package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/petems/beatcap/internal/app"
	"github.com/petems/beatcap/internal/audio"
	"github.com/petems/beatcap/internal/config"
	"github.com/petems/beatcap/internal/metrics"
	"github.com/petems/beatcap/internal/permissions"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture from an input device until interrupted",
	Long: `Opens the selected input device and drains captured blocks every poll
interval, logging block counts and input levels. Stops on SIGINT/SIGTERM or
after --duration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyCaptureFlags(cmd.Flags(), cfg); err != nil {
			return err
		}
		duration, _ := cmd.Flags().GetDuration("duration")
		return runCapture(cmd.Context(), cfg, log, duration)
	},
}

func init() {
	f := captureCmd.Flags()
	f.StringP("device", "d", "", "Input device name or case-insensitive substring (default device when empty)")
	f.Int("block-size", 0, "Samples per delivered block")
	f.Int("sample-rate", 0, "Requested sample rate in Hz")
	f.Int("channels", 0, "Requested input channel count")
	f.String("metrics", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	f.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
}

// applyCaptureFlags overrides config values with the flags the user set.
func applyCaptureFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("device") {
		cfg.Audio.Device, _ = fs.GetString("device")
	}
	if fs.Changed("block-size") {
		cfg.Audio.BlockSize, _ = fs.GetInt("block-size")
	}
	if fs.Changed("sample-rate") {
		cfg.Audio.SampleRate, _ = fs.GetInt("sample-rate")
	}
	if fs.Changed("channels") {
		cfg.Audio.Channels, _ = fs.GetInt("channels")
	}
	if fs.Changed("metrics") {
		cfg.Metrics.Addr, _ = fs.GetString("metrics")
		cfg.Metrics.Enabled = cfg.Metrics.Addr != ""
	}
	return cfg.Validate()
}

func runCapture(ctx context.Context, cfg *config.Config, log zerolog.Logger, duration time.Duration) error {
	if err := permissions.EnsureMicrophone(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	var m *metrics.Capture
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := serveMetrics(cfg.Metrics.Addr, m, log)
		defer shutdown()
	}

	application, err := newApp(cfg, log, m, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
	}()

	if _, err := application.Start(cfg.Audio.Device); err != nil {
		return err
	}

	total := pollBlocks(ctx, application, cfg.PollInterval(), log)

	st := application.Status()
	application.Stop()
	log.Info().
		Int("blocks", total).
		Uint64("dropped", st.Dropped).
		Uint64("faults", st.Faults).
		Msg("Capture finished")
	return nil
}

// pollBlocks drains the queue every interval until ctx is done and returns
// the number of blocks consumed.
func pollBlocks(ctx context.Context, application *app.App, interval time.Duration, log zerolog.Logger) int {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		total   int
		dropped uint64
	)
	for {
		select {
		case <-ctx.Done():
			return total + len(application.DrainAvailableBlocks())
		case <-ticker.C:
		}

		blocks := application.DrainAvailableBlocks()
		total += len(blocks)
		if len(blocks) > 0 {
			levels := audio.Measure(blocks...)
			log.Debug().
				Int("blocks", len(blocks)).
				Float64("rms_db", levels.RMSdB).
				Float64("peak_db", levels.PeakdB).
				Int("clipped", levels.Clipped).
				Msg("Drained blocks")
		}

		if st := application.Status(); st.Dropped > dropped {
			log.Warn().Uint64("dropped", st.Dropped-dropped).Msg("Consumer fell behind, blocks dropped")
			dropped = st.Dropped
		}
	}
}

// serveMetrics starts the Prometheus endpoint in the background and returns a
// function that shuts it down.
func serveMetrics(addr string, m *metrics.Capture, log zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
