package tray

import (
	"testing"

	"github.com/petems/beatcap/internal/audio"
)

func TestEmojiForStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{status: "capturing", want: "🔴"},
		{status: "idle", want: "🟢"},
		{status: "error", want: "⚪️"},
		{status: "unknown", want: "🟢"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := emojiForStatus(tt.status); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSelectedDevice(t *testing.T) {
	devices := []audio.Device{
		{Name: "Built-in Microphone", Default: true},
		{Name: "Karsect UPC USB Audio"},
	}

	tests := []struct {
		name   string
		filter string
		want   string
	}{
		{name: "empty filter selects default", filter: "", want: "Built-in Microphone"},
		{name: "substring match", filter: "karsect", want: "Karsect UPC USB Audio"},
		{name: "unmatched filter falls back to default", filter: "missing", want: "Built-in Microphone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectedDevice(devices, tt.filter); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSignalLine(t *testing.T) {
	got := signalLine(3, audio.Levels{RMSdB: -20, PeakdB: -6.02})
	want := "Signal OK: 3 blocks, -20.0 dBFS RMS, -6.0 dBFS peak"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

type fakeItem struct {
	checked bool
}

func (f *fakeItem) Check()   { f.checked = true }
func (f *fakeItem) Uncheck() { f.checked = false }

func TestCheckOnly(t *testing.T) {
	items := map[string]*fakeItem{
		"Built-in Microphone":   {checked: true},
		"Karsect UPC USB Audio": {},
		"Loopback":              {},
	}

	checkOnly(items, "Karsect UPC USB Audio")

	for name, item := range items {
		if want := name == "Karsect UPC USB Audio"; item.checked != want {
			t.Errorf("%s: expected checked=%v, got %v", name, want, item.checked)
		}
	}
}
