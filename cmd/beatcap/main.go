package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/beatcap/internal/app"
	"github.com/petems/beatcap/internal/audio"
	"github.com/petems/beatcap/internal/config"
	"github.com/petems/beatcap/internal/logging"
	"github.com/petems/beatcap/internal/metrics"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "beatcap",
	Short:         "Live audio capture",
	Long:          `beatcap captures mono float32 blocks from a system input device and hands them to a non-realtime consumer.`,
	Version:       fmt.Sprintf("%s (%s)", Version, Commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, .json or .yaml (default is the platform config path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config file)")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(trayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config named by --config, or the platform default,
// and applies --log-level on top.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, logging.New(), fmt.Errorf("loading config: %w", err)
	}

	if err := applyLogLevel(cfg, logLevel); err != nil {
		return nil, logging.New(), err
	}
	return cfg, logging.NewWithLevel(cfg.LogLevel), nil
}

// applyLogLevel overrides the configured level with the --log-level flag.
func applyLogLevel(cfg *config.Config, level string) error {
	if level == "" {
		return nil
	}
	cfg.LogLevel = level
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return nil
}

// newApp opens the PortAudio host and builds a capture controller around it.
// The caller owns the returned App and must Close it.
func newApp(cfg *config.Config, log zerolog.Logger, m *metrics.Capture, status app.StatusUpdater) (*app.App, error) {
	host, err := audio.NewPortAudioHost()
	if err != nil {
		return nil, err
	}

	return app.New(app.Config{
		Backend:       host,
		Audio:         cfg.AudioConfig(),
		QueueCapacity: cfg.Audio.QueueCapacity,
		Logger:        log,
		Metrics:       m,
		StatusUpdater: status,
	}), nil
}
