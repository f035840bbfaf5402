package estimators

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/ritmo/algorithms/temporal"
	"github.com/RyanBlaney/ritmo/beat/config"
)

// IntervalEstimator estimates tempo from the distribution of inter-onset
// intervals.
type IntervalEstimator struct {
	onsetDetector *temporal.OnsetDetection
	onsetParams   temporal.OnsetParams
}

// NewIntervalEstimator creates a new inter-onset-interval tempo estimator
func NewIntervalEstimator() *IntervalEstimator {
	p := config.DefaultOnsetPresets()[config.PresetTempo]
	return &IntervalEstimator{
		onsetDetector: temporal.NewOnsetDetection(),
		onsetParams: temporal.OnsetParams{
			WindowSize: p.WindowSize,
			HopSize:    p.HopSize,
			Threshold:  p.Threshold,
			MinSpacing: p.MinSpacing,
		},
	}
}

func (ie *IntervalEstimator) Name() string {
	return "interval"
}

// Estimate detects onsets, votes each plausible inter-onset interval into a
// BPM histogram, and refines the winning bin with a trimmed mean so frame
// quantization averages out. Onsets double as raw beat ticks.
func (ie *IntervalEstimator) Estimate(signal []float64, sampleRate int) (*TempoEstimate, error) {
	onsets, err := ie.onsetDetector.Detect(signal, sampleRate, ie.onsetParams)
	if err != nil {
		return nil, err
	}
	if len(onsets) < 3 {
		return nil, fmt.Errorf("too few onsets for interval analysis: %d", len(onsets))
	}

	intervals := make([]float64, 0, len(onsets)-1)
	for i := 1; i < len(onsets); i++ {
		iv := onsets[i] - onsets[i-1]
		// Valid beat interval range (30-300 BPM)
		if iv > 0.2 && iv < 2.0 {
			intervals = append(intervals, iv)
		}
	}
	if len(intervals) < 2 {
		return nil, fmt.Errorf("too few usable inter-onset intervals")
	}

	// Vote intervals into integer BPM bins with one bin of smear each side
	votes := make(map[int]int)
	for _, iv := range intervals {
		bin := int(math.Round(60.0 / iv))
		votes[bin] += 2
		votes[bin-1]++
		votes[bin+1]++
	}

	bestBin := 0
	bestVotes := 0
	for bin, v := range votes {
		if v > bestVotes {
			bestVotes = v
			bestBin = bin
		}
	}
	if bestBin <= 0 {
		return nil, fmt.Errorf("no dominant interval found")
	}

	// Refine: mean of the intervals that voted for the winning bin
	target := 60.0 / float64(bestBin)
	supporting := make([]float64, 0, len(intervals))
	for _, iv := range intervals {
		if math.Abs(iv-target)/target < 0.1 {
			supporting = append(supporting, iv)
		}
	}
	if len(supporting) == 0 {
		return nil, fmt.Errorf("no supporting intervals for dominant bin")
	}

	refined := trimmedMeanInterval(supporting)
	bpm := 60.0 / refined

	support := float64(len(supporting)) / float64(len(intervals))
	confidence := support * intervalConsistency(supporting)

	return &TempoEstimate{
		Algorithm:  ie.Name(),
		BPM:        bpm,
		Confidence: confidence,
		Beats:      onsets,
	}, nil
}
