package audio

import (
	"math"
	"testing"
)

func TestMeasure(t *testing.T) {
	tests := []struct {
		name       string
		blocks     []Block
		wantRMSdB  float64
		wantPeakdB float64
		wantClips  int
	}{
		{
			name:       "no samples",
			wantRMSdB:  MinDB,
			wantPeakdB: MinDB,
		},
		{
			name:       "silence",
			blocks:     []Block{{0, 0, 0, 0}},
			wantRMSdB:  MinDB,
			wantPeakdB: MinDB,
		},
		{
			name:       "full scale square wave",
			blocks:     []Block{{1, -1}, {1, -1}},
			wantRMSdB:  0,
			wantPeakdB: 0,
			wantClips:  4,
		},
		{
			name:       "half scale",
			blocks:     []Block{{0.5, -0.5, 0.5, -0.5}},
			wantRMSdB:  20 * math.Log10(0.5),
			wantPeakdB: 20 * math.Log10(0.5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Measure(tt.blocks...)
			if math.Abs(got.RMSdB-tt.wantRMSdB) > 1e-9 {
				t.Errorf("expected RMS %.3f dB, got %.3f", tt.wantRMSdB, got.RMSdB)
			}
			if math.Abs(got.PeakdB-tt.wantPeakdB) > 1e-9 {
				t.Errorf("expected peak %.3f dB, got %.3f", tt.wantPeakdB, got.PeakdB)
			}
			if got.Clipped != tt.wantClips {
				t.Errorf("expected %d clipped samples, got %d", tt.wantClips, got.Clipped)
			}
		})
	}
}
