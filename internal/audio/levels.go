package audio

import "math"

// MinDB is the level reported for digital silence.
const MinDB = -96.0

// Levels holds signal level measurements of one or more blocks.
type Levels struct {
	RMS     float64
	Peak    float64
	RMSdB   float64
	PeakdB  float64
	Clipped int
	Samples int
}

// Measure computes RMS and peak levels across blocks. Levels in dB are relative
// to full scale (1.0) and floored at MinDB.
func Measure(blocks ...Block) Levels {
	var sumSquares, peak float64
	var clipped, n int
	for _, b := range blocks {
		for _, s := range b {
			v := float64(s)
			sumSquares += v * v
			if a := math.Abs(v); a > peak {
				peak = a
			}
			if s >= 1 || s <= -1 {
				clipped++
			}
		}
		n += len(b)
	}

	if n == 0 {
		return Levels{RMSdB: MinDB, PeakdB: MinDB}
	}

	rms := math.Sqrt(sumSquares / float64(n))
	return Levels{
		RMS:     rms,
		Peak:    peak,
		RMSdB:   toDB(rms),
		PeakdB:  toDB(peak),
		Clipped: clipped,
		Samples: n,
	}
}

func toDB(v float64) float64 {
	if v <= 0 {
		return MinDB
	}
	return max(20*math.Log10(v), MinDB)
}
