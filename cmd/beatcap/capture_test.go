package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/petems/beatcap/internal/app"
	"github.com/petems/beatcap/internal/audio"
	"github.com/petems/beatcap/internal/audio/audiotest"
	"github.com/petems/beatcap/internal/config"
)

func newCaptureFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("capture", pflag.ContinueOnError)
	fs.StringP("device", "d", "", "")
	fs.Int("block-size", 0, "")
	fs.Int("sample-rate", 0, "")
	fs.Int("channels", 0, "")
	fs.String("metrics", "", "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	return fs
}

func TestApplyCaptureFlagsOverridesOnlySetFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Device = "Built-in"

	fs := newCaptureFlags(t, "--block-size", "512", "--metrics", "127.0.0.1:9999")
	if err := applyCaptureFlags(fs, cfg); err != nil {
		t.Fatalf("applying flags: %v", err)
	}

	if cfg.Audio.BlockSize != 512 {
		t.Errorf("expected block size 512, got %d", cfg.Audio.BlockSize)
	}
	if cfg.Audio.Device != "Built-in" {
		t.Errorf("unset --device must keep the config value, got %q", cfg.Audio.Device)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.Channels != 1 {
		t.Errorf("unset flags changed the config: %+v", cfg.Audio)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "127.0.0.1:9999" {
		t.Errorf("expected metrics enabled on 127.0.0.1:9999, got %+v", cfg.Metrics)
	}
}

func TestApplyCaptureFlagsRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "zero block size", args: []string{"--block-size", "0"}},
		{name: "zero channels", args: []string{"--channels", "0"}},
		{name: "sample rate too low", args: []string{"--sample-rate", "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := applyCaptureFlags(newCaptureFlags(t, tt.args...), config.Default()); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestPollBlocksDrainsAndLogsLevels(t *testing.T) {
	backend := audiotest.NewBackend(audio.Device{Name: "Mic A", MaxInputChannels: 1, Default: true})
	application := app.New(app.Config{
		Backend: backend,
		Audio:   audio.Config{SampleRate: 44100, Channels: 1, BlockSize: 4},
		Logger:  zerolog.Nop(),
	})
	defer application.Close()

	if _, err := application.Start(""); err != nil {
		t.Fatalf("starting capture: %v", err)
	}
	backend.LastStream().Feed([]float32{1, 0.5, -0.5, 0, 0.25, 0.25, 0.25, 0.25})

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if total := pollBlocks(ctx, application, time.Millisecond, log); total != 2 {
		t.Fatalf("expected 2 blocks drained, got %d", total)
	}

	out := buf.String()
	if !strings.Contains(out, `"blocks":2`) || !strings.Contains(out, `"clipped":1`) {
		t.Errorf("expected a drain entry with block count and clipped samples, got: %s", out)
	}
}
