// Package estimators provides independent tempo estimation algorithms and
// the ensemble that merges their votes into a consensus BPM.
package estimators

import (
	"math"
)

// TempoEstimate is one estimator's opinion about a signal's tempo.
type TempoEstimate struct {
	Algorithm  string    `json:"algorithm"`
	BPM        float64   `json:"bpm"`
	Confidence float64   `json:"confidence"` // 0..1
	Beats      []float64 `json:"beats,omitempty"`
}

// TempoEstimator is the capability interface every ensemble member
// implements. Estimate returns an error when the algorithm cannot produce a
// usable estimate; the ensemble drops that member and continues.
type TempoEstimator interface {
	Name() string
	Estimate(signal []float64, sampleRate int) (*TempoEstimate, error)
}

// DefaultEstimators returns the fixed estimator set the ensemble runs.
func DefaultEstimators() []TempoEstimator {
	return []TempoEstimator{
		NewAutocorrEstimator(),
		NewIntervalEstimator(),
		NewAutodiffEstimator(),
		NewWaveletEstimator(),
	}
}

// NormalizeToBand folds a BPM into [low, high) by repeated doubling and
// halving, neutralizing octave ambiguity. Non-positive input returns zero.
func NormalizeToBand(bpm, low, high float64) float64 {
	if bpm <= 0 || low <= 0 || high <= low {
		return 0
	}
	for bpm < low {
		bpm *= 2
	}
	for bpm >= high {
		bpm /= 2
	}
	return bpm
}

// trimmedMeanInterval returns the mean of intervals within 15% of the
// median, which averages out frame quantization without letting outliers in.
func trimmedMeanInterval(intervals []float64) float64 {
	if len(intervals) == 0 {
		return 0
	}

	sorted := make([]float64, len(intervals))
	copy(sorted, intervals)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	median := sorted[len(sorted)/2]

	sum := 0.0
	count := 0
	for _, iv := range intervals {
		if math.Abs(iv-median) <= 0.15*median {
			sum += iv
			count++
		}
	}
	if count == 0 {
		return median
	}
	return sum / float64(count)
}

// intervalConsistency scores how regular a set of intervals is: 1 for
// perfectly even spacing, falling toward 0 as the spread grows.
func intervalConsistency(intervals []float64) float64 {
	if len(intervals) < 2 {
		return 0
	}

	mean := 0.0
	for _, iv := range intervals {
		mean += iv
	}
	mean /= float64(len(intervals))
	if mean <= 0 {
		return 0
	}

	variance := 0.0
	for _, iv := range intervals {
		diff := iv - mean
		variance += diff * diff
	}
	variance /= float64(len(intervals))

	cv := math.Sqrt(variance) / mean
	score := 1.0 - 2.0*cv
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
