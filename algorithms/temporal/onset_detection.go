package temporal

import (
	"sort"

	"github.com/RyanBlaney/ritmo/algorithms/common"
	"github.com/RyanBlaney/ritmo/algorithms/spectral"
	"github.com/RyanBlaney/ritmo/algorithms/windowing"
)

// OnsetParams are the tuning knobs for onset detection. Different consumers
// (tempo estimation, fermata detection, beat snapping, verification) trade
// recall against precision through these.
type OnsetParams struct {
	WindowSize int     // STFT window size in samples
	HopSize    int     // STFT hop size in samples
	Threshold  float64 // Peak threshold on the normalized novelty curve, 0..1
	MinSpacing float64 // Minimum spacing between onsets in seconds
}

// OnsetDetection detects note/event onsets in audio signals by combining
// spectral flux with an energy-derivative novelty measure
type OnsetDetection struct {
	spectralFlux      *spectral.SpectralFlux
	envelopeExtractor *Envelope
	stft              *spectral.STFT
}

// NewOnsetDetection creates a new onset detector
func NewOnsetDetection() *OnsetDetection {
	return &OnsetDetection{
		spectralFlux:      spectral.NewSpectralFlux(),
		envelopeExtractor: NewEnvelope(),
		stft:              spectral.NewSTFT(),
	}
}

// Detect returns onset timestamps in seconds, sorted, deduplicated within
// params.MinSpacing. Degenerate or silent input yields an empty set, not an
// error.
func (od *OnsetDetection) Detect(signal []float64, sampleRate int, params OnsetParams) ([]float64, error) {
	if len(signal) == 0 || sampleRate <= 0 {
		return []float64{}, nil
	}
	if params.WindowSize <= 0 || params.HopSize <= 0 {
		return []float64{}, nil
	}
	if len(signal) < params.WindowSize {
		return []float64{}, nil
	}

	fluxOnsets, err := od.detectFlux(signal, sampleRate, params)
	if err != nil {
		return nil, err
	}

	energyOnsets := od.detectEnergy(signal, sampleRate, params)

	return od.combineOnsets(fluxOnsets, energyOnsets, params.MinSpacing), nil
}

// detectFlux finds onsets as peaks of the normalized spectral flux
func (od *OnsetDetection) detectFlux(signal []float64, sampleRate int, params OnsetParams) ([]float64, error) {
	window := windowing.NewHann(params.WindowSize, false)

	stftResult, err := od.stft.ComputeWithWindow(signal, params.WindowSize, params.HopSize, sampleRate, window)
	if err != nil {
		return nil, err
	}

	flux := od.spectralFlux.Compute(stftResult.Magnitude)
	if len(flux) == 0 {
		return []float64{}, nil
	}

	norm := common.MinMaxNormalize(flux)
	minSpacingFrames := params.MinSpacing * float64(sampleRate) / float64(params.HopSize)

	peaks := common.FindPeaks(norm, params.Threshold, minSpacingFrames)

	onsets := make([]float64, len(peaks))
	for i, frameIdx := range peaks {
		// flux[t] compares frame t+1 against frame t; the attack lands on t+1
		onsets[i] = float64((frameIdx+1)*params.HopSize) / float64(sampleRate)
	}

	return onsets, nil
}

// detectEnergy finds onsets as peaks of the positive energy derivative
func (od *OnsetDetection) detectEnergy(signal []float64, sampleRate int, params OnsetParams) []float64 {
	frameSize := params.WindowSize / 2
	hopSize := params.HopSize / 2
	if frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	envelope := od.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)
	if len(envelope) < 2 {
		return []float64{}
	}

	energyDiff := make([]float64, len(envelope)-1)
	for i := range energyDiff {
		diff := envelope[i+1] - envelope[i]
		if diff > 0 {
			energyDiff[i] = diff
		}
	}

	norm := common.MinMaxNormalize(energyDiff)
	minSpacingFrames := params.MinSpacing * float64(sampleRate) / float64(hopSize)

	peaks := common.FindPeaks(norm, params.Threshold, minSpacingFrames)

	onsets := make([]float64, len(peaks))
	for i, frameIdx := range peaks {
		onsets[i] = float64((frameIdx+1)*hopSize) / float64(sampleRate)
	}

	return onsets
}

// combineOnsets merges onset lists and removes duplicates within tolerance,
// keeping the earlier timestamp of a duplicate pair
func (od *OnsetDetection) combineOnsets(onsets1, onsets2 []float64, tolerance float64) []float64 {
	allOnsets := make([]float64, 0, len(onsets1)+len(onsets2))
	allOnsets = append(allOnsets, onsets1...)
	allOnsets = append(allOnsets, onsets2...)

	if len(allOnsets) == 0 {
		return []float64{}
	}

	sort.Float64s(allOnsets)

	unique := allOnsets[:1]
	for _, onset := range allOnsets[1:] {
		if onset-unique[len(unique)-1] > tolerance {
			unique = append(unique, onset)
		}
	}

	return unique
}

// Density calculates the onset rate in onsets per second over [start, end)
func Density(onsets []float64, start, end float64) float64 {
	if end <= start {
		return 0.0
	}
	return float64(CountInRange(onsets, start, end)) / (end - start)
}

// CountInRange counts onsets with timestamps in [start, end)
func CountInRange(onsets []float64, start, end float64) int {
	count := 0
	for _, t := range onsets {
		if t >= start && t < end {
			count++
		}
	}
	return count
}
