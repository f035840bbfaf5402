package estimators

import (
	"fmt"

	"github.com/RyanBlaney/ritmo/algorithms/common"
	"github.com/RyanBlaney/ritmo/algorithms/temporal"
)

// AutocorrEstimator estimates tempo from the autocorrelation of the RMS
// energy envelope. It is the baseline estimator the pipeline falls back to
// when the ensemble produces nothing.
type AutocorrEstimator struct {
	envelopeExtractor *temporal.Envelope
}

// NewAutocorrEstimator creates a new autocorrelation tempo estimator
func NewAutocorrEstimator() *AutocorrEstimator {
	return &AutocorrEstimator{
		envelopeExtractor: temporal.NewEnvelope(),
	}
}

func (ae *AutocorrEstimator) Name() string {
	return "autocorr"
}

// Estimate computes the energy envelope, autocorrelates it, and picks the
// strongest periodicity in the 50-200 BPM range. Envelope peaks become raw
// beat ticks.
func (ae *AutocorrEstimator) Estimate(signal []float64, sampleRate int) (*TempoEstimate, error) {
	if len(signal) == 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("empty signal")
	}

	frameSize := sampleRate / 10 // 100ms frames for beat analysis
	hopSize := frameSize / 4     // 25% hop
	if frameSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("sample rate too low: %d", sampleRate)
	}

	envelope := ae.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)
	if len(envelope) < 10 {
		return nil, fmt.Errorf("signal too short for autocorrelation")
	}
	envelope = common.MovingAverage(envelope, 3)

	maxLag := len(envelope) / 2
	autocorr := ae.autocorrelate(envelope, maxLag)

	timePerFrame := float64(hopSize) / float64(sampleRate)

	// Beat periods for 50-200 BPM
	minLag := int(60.0 / 200.0 / timePerFrame)
	maxSearchLag := int(60.0 / 50.0 / timePerFrame)

	if minLag < 1 {
		minLag = 1
	}
	if maxSearchLag >= len(autocorr) {
		maxSearchLag = len(autocorr) - 1
	}
	if maxSearchLag <= minLag {
		return nil, fmt.Errorf("signal too short to cover the tempo search range")
	}

	bestLag := 0
	bestVal := 0.0
	for lag := minLag; lag <= maxSearchLag; lag++ {
		if lag > 0 && lag < len(autocorr)-1 {
			if autocorr[lag] > autocorr[lag-1] &&
				autocorr[lag] > autocorr[lag+1] &&
				autocorr[lag] > bestVal {
				bestVal = autocorr[lag]
				bestLag = lag
			}
		}
	}

	if bestLag == 0 {
		return nil, fmt.Errorf("no periodicity found in tempo range")
	}

	period := float64(bestLag) * timePerFrame
	bpm := 60.0 / period

	// Envelope peaks are beat tick candidates; suppress within half a period
	mean := common.Mean(envelope)
	std := common.StandardDeviation(envelope)
	minDistance := 0.5 * period / timePerFrame
	peakIdx := common.FindPeaks(envelope, mean+0.5*std, minDistance)

	ticks := make([]float64, len(peakIdx))
	for i, idx := range peakIdx {
		ticks[i] = float64(idx) * timePerFrame
	}

	return &TempoEstimate{
		Algorithm:  ae.Name(),
		BPM:        bpm,
		Confidence: common.Clamp(bestVal, 0, 1),
		Beats:      ticks,
	}, nil
}

// autocorrelate computes the normalized autocorrelation up to maxLag
func (ae *AutocorrEstimator) autocorrelate(signal []float64, maxLag int) []float64 {
	if maxLag > len(signal) {
		maxLag = len(signal)
	}

	autocorr := make([]float64, maxLag)

	for lag := 0; lag < maxLag; lag++ {
		sum := 0.0
		count := 0

		for i := 0; i < len(signal)-lag; i++ {
			sum += signal[i] * signal[i+lag]
			count++
		}

		if count > 0 {
			autocorr[lag] = sum / float64(count)
		}
	}

	if len(autocorr) > 0 && autocorr[0] > 0 {
		for i := range autocorr {
			autocorr[i] /= autocorr[0]
		}
	}

	return autocorr
}
