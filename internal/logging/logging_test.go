package logging

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn")

	log.Info().Msg("hidden")
	log.Warn().Str("device", "Mic A").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, `"device":"Mic A"`) {
		t.Errorf("expected warn message with fields, got: %s", out)
	}
}

func TestLogPathUsesXDGStateHome(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG paths only apply on linux")
	}
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	if got := LogPath(); got != "/tmp/state/beatcap/beatcap.log" {
		t.Errorf("unexpected log path %q", got)
	}
}
