package beat

import (
	"fmt"

	"github.com/RyanBlaney/ritmo/algorithms/common"
	"github.com/RyanBlaney/ritmo/algorithms/temporal"
)

// Characteristics holds the global energy and dynamics profile of a signal.
// Difficult audio gets its analysis confidence capped downstream.
type Characteristics struct {
	RMS            float64  `json:"rms"`
	PeakLevel      float64  `json:"peak_level"`
	CrestFactor    float64  `json:"crest_factor"`
	DynamicRangeDB float64  `json:"dynamic_range_db"`
	EnergyVariance float64  `json:"energy_variance"`
	SilenceRatio   float64  `json:"silence_ratio"`
	Difficult      bool     `json:"difficult"`
	Reasons        []string `json:"reasons,omitempty"`
}

// CharacteristicsAnalyzer computes coarse signal statistics that bound how
// much the rest of the pipeline should trust itself.
type CharacteristicsAnalyzer struct {
	dynamicRange *temporal.DynamicRange
	silence      *temporal.SilenceDetection
	envelope     *temporal.Envelope
}

// NewCharacteristicsAnalyzer creates a new characteristics analyzer
func NewCharacteristicsAnalyzer() *CharacteristicsAnalyzer {
	return &CharacteristicsAnalyzer{
		dynamicRange: temporal.NewDynamicRange(),
		silence:      temporal.NewSilenceDetection(),
		envelope:     temporal.NewEnvelope(),
	}
}

// Analyze profiles the signal. Empty input returns a zero profile flagged
// difficult.
func (ca *CharacteristicsAnalyzer) Analyze(signal []float64, sampleRate int) *Characteristics {
	c := &Characteristics{}
	if len(signal) == 0 || sampleRate <= 0 {
		c.Difficult = true
		c.Reasons = append(c.Reasons, "empty signal")
		return c
	}

	c.RMS = common.RMS(signal)
	c.CrestFactor = ca.dynamicRange.ComputeCrestFactor(signal)
	c.DynamicRangeDB = ca.dynamicRange.ComputeRange(signal, 0.10, 0.95)

	frameSize := int(0.05 * float64(sampleRate))
	hopSize := frameSize / 2
	energy := temporal.NewEnergy(frameSize, hopSize, sampleRate)
	c.EnergyVariance = energy.ComputeEnergyVariance(energy.ComputeShortTimeEnergy(signal))

	peaks := ca.envelope.ComputePeak(signal, frameSize, hopSize)
	clipped := 0
	for _, p := range peaks {
		if p > c.PeakLevel {
			c.PeakLevel = p
		}
		if p >= 0.999 {
			clipped++
		}
	}

	threshold := ca.silence.AdaptiveThreshold(signal, sampleRate)
	c.SilenceRatio = ca.silence.ComputeSilenceRatio(signal, sampleRate, threshold)

	if c.RMS < 0.01 {
		c.Difficult = true
		c.Reasons = append(c.Reasons, fmt.Sprintf("very low level (rms %.4f)", c.RMS))
	}
	if c.SilenceRatio > 0.6 {
		c.Difficult = true
		c.Reasons = append(c.Reasons, fmt.Sprintf("mostly silent (%.0f%%)", c.SilenceRatio*100))
	}
	if c.DynamicRangeDB < 3.0 {
		c.Difficult = true
		c.Reasons = append(c.Reasons, "flat dynamics")
	}
	if c.CrestFactor > 40.0 {
		c.Difficult = true
		c.Reasons = append(c.Reasons, "extreme transients over a quiet floor")
	}
	if c.RMS >= 0.01 && c.EnergyVariance < 1e-6 {
		c.Difficult = true
		c.Reasons = append(c.Reasons, "static level")
	}
	if len(peaks) > 0 && float64(clipped)/float64(len(peaks)) > 0.01 {
		c.Difficult = true
		c.Reasons = append(c.Reasons, fmt.Sprintf("clipping in %d frames", clipped))
	}

	return c
}
