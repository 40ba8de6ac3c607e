package audio

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

func TestCallbackSignatureAcceptedByPortAudio(t *testing.T) {
	cb := reflect.TypeOf(newCallback(func([]float32) {}, func(Fault) {}))

	// Input buffer, then time info, then flags: only trailing parameters may be omitted.
	want := []reflect.Type{
		reflect.TypeOf([]float32(nil)),
		reflect.TypeOf(portaudio.StreamCallbackTimeInfo{}),
		reflect.TypeOf(portaudio.StreamCallbackFlags(0)),
	}
	if cb.NumIn() != len(want) || cb.NumOut() != 0 {
		t.Fatalf("unexpected callback signature %v", cb)
	}
	for i, typ := range want {
		if cb.In(i) != typ {
			t.Errorf("parameter %d: expected %v, got %v", i, typ, cb.In(i))
		}
	}
}

func TestCallbackMapsFlagsToFaults(t *testing.T) {
	tests := []struct {
		name  string
		flags portaudio.StreamCallbackFlags
		want  []Fault
	}{
		{name: "no flags", flags: 0, want: nil},
		{name: "overflow", flags: portaudio.InputOverflow, want: []Fault{FaultInputOverflow}},
		{name: "underflow", flags: portaudio.InputUnderflow, want: []Fault{FaultInputUnderflow}},
		{name: "both", flags: portaudio.InputOverflow | portaudio.InputUnderflow, want: []Fault{FaultInputOverflow, FaultInputUnderflow}},
		{name: "output flags ignored", flags: portaudio.OutputOverflow | portaudio.PrimingOutput, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				faults []Fault
				got    []float32
			)
			cb := newCallback(
				func(in []float32) { got = append(got, in...) },
				func(f Fault) { faults = append(faults, f) },
			)

			cb([]float32{0.25, -0.5}, portaudio.StreamCallbackTimeInfo{}, tt.flags)

			if !reflect.DeepEqual(faults, tt.want) {
				t.Errorf("expected faults %v, got %v", tt.want, faults)
			}
			if !reflect.DeepEqual(got, []float32{0.25, -0.5}) {
				t.Errorf("samples not passed through, got %v", got)
			}
		})
	}
}

func TestStreamParameters(t *testing.T) {
	info := &portaudio.DeviceInfo{Name: "Mic A", MaxInputChannels: 2, DefaultLowInputLatency: 5 * time.Millisecond}

	tests := []struct {
		name            string
		framesPerBuffer int
		want            int
	}{
		{name: "driver chooses", framesPerBuffer: 0, want: portaudio.FramesPerBufferUnspecified},
		{name: "explicit hint", framesPerBuffer: 256, want: 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{SampleRate: 48000, Channels: 2, BlockSize: 1024, FramesPerBuffer: tt.framesPerBuffer}
			p := streamParameters(info, cfg)

			if p.FramesPerBuffer != tt.want {
				t.Errorf("expected frames per buffer %d, got %d", tt.want, p.FramesPerBuffer)
			}
			if p.Input.Device != info || p.Input.Channels != 2 || p.Input.Latency != 5*time.Millisecond {
				t.Errorf("unexpected input parameters: %+v", p.Input)
			}
			if p.SampleRate != 48000 {
				t.Errorf("expected 48000 Hz, got %v", p.SampleRate)
			}
			if p.Output.Device != nil || p.Output.Channels != 0 {
				t.Errorf("expected input-only stream, got output %+v", p.Output)
			}
		})
	}
}

func TestIsConfigError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: portaudio.InvalidChannelCount, want: true},
		{err: portaudio.InvalidSampleRate, want: true},
		{err: portaudio.SampleFormatNotSupported, want: true},
		{err: portaudio.BadIODeviceCombination, want: true},
		{err: fmt.Errorf("opening: %w", portaudio.InvalidSampleRate), want: true},
		{err: portaudio.DeviceUnavailable, want: false},
		{err: errors.New("device busy"), want: false},
	}

	for _, tt := range tests {
		if got := isConfigError(tt.err); got != tt.want {
			t.Errorf("isConfigError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
