package estimators

import (
	"fmt"

	"github.com/goccmack/godsp"
	"github.com/goccmack/godsp/dwt"
	"github.com/goccmack/godsp/peaks"
)

// WaveletEstimator estimates tempo from a Daubechies-4 discrete wavelet
// transform: the per-scale coefficient envelopes are summed into one
// downsampled envelope whose peak spacing tracks the beat.
type WaveletEstimator struct {
	level int
}

const waveletMinPeakSep = 0.25 // seconds between envelope peaks

// NewWaveletEstimator creates a new DWT tempo estimator
func NewWaveletEstimator() *WaveletEstimator {
	return &WaveletEstimator{level: 4}
}

func (we *WaveletEstimator) Name() string {
	return "wavelet"
}

// Estimate transforms the signal at 4 DWT scales and reads tempo off the
// summed envelope's peak intervals. Peak positions become raw beat ticks.
func (we *WaveletEstimator) Estimate(signal []float64, sampleRate int) (*TempoEstimate, error) {
	if len(signal) == 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("empty signal")
	}

	scale := 1 << we.level
	if len(signal) < scale*scale {
		return nil, fmt.Errorf("signal too short for %d-level DWT", we.level)
	}

	// Samples per second at the highest DWT scale
	fss := float64(sampleRate) / float64(scale)

	// Truncate to a multiple of the scale so every level divides evenly
	usable := (len(signal) / scale) * scale

	db4 := dwt.Daubechies4(signal[:usable], we.level)
	coefs := db4.GetCoefficients()
	absX := godsp.AbsAll(coefs)
	dsX := godsp.DownSampleAll(absX)
	sumX := godsp.SumVectors(dsX)

	avg := godsp.Average(sumX)
	if avg <= 0 {
		return nil, fmt.Errorf("silent signal")
	}
	sumX = godsp.DivS(sumX, avg)

	sep := int(waveletMinPeakSep * fss)
	if sep < 1 {
		sep = 1
	}

	peakIdx := peaks.Get(sumX, sep)
	if len(peakIdx) < 3 {
		return nil, fmt.Errorf("too few envelope peaks: %d", len(peakIdx))
	}

	ticks := make([]float64, len(peakIdx))
	for i, p := range peakIdx {
		ticks[i] = float64(p) / fss
	}
	sortFloats(ticks)

	intervals := make([]float64, 0, len(ticks)-1)
	for i := 1; i < len(ticks); i++ {
		iv := ticks[i] - ticks[i-1]
		if iv > 0.2 && iv < 2.0 {
			intervals = append(intervals, iv)
		}
	}
	if len(intervals) < 2 {
		return nil, fmt.Errorf("envelope peaks too irregular")
	}

	period := trimmedMeanInterval(intervals)
	if period <= 0 {
		return nil, fmt.Errorf("degenerate peak spacing")
	}

	return &TempoEstimate{
		Algorithm:  we.Name(),
		BPM:        60.0 / period,
		Confidence: intervalConsistency(intervals),
		Beats:      ticks,
	}, nil
}

func sortFloats(x []float64) {
	for i := 1; i < len(x); i++ {
		for j := i; j > 0 && x[j] < x[j-1]; j-- {
			x[j], x[j-1] = x[j-1], x[j]
		}
	}
}
