package temporal

import (
	"math"
)

// Energy computes short-time energy features over overlapping frames
type Energy struct {
	frameSize  int
	hopSize    int
	sampleRate int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize, sampleRate int) *Energy {
	return &Energy{
		frameSize:  frameSize,
		hopSize:    hopSize,
		sampleRate: sampleRate,
	}
}

// ComputeShortTimeEnergy calculates short-time RMS energy for overlapping frames
func (e *Energy) ComputeShortTimeEnergy(signal []float64) []float64 {
	if len(signal) < e.frameSize || e.hopSize <= 0 || e.frameSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-e.frameSize)/e.hopSize + 1
	energies := make([]float64, numFrames)

	for i := 0; i < numFrames; i++ {
		startIdx := i * e.hopSize
		endIdx := startIdx + e.frameSize

		if endIdx > len(signal) {
			break
		}

		sumSquares := 0.0
		for j := startIdx; j < endIdx; j++ {
			sumSquares += signal[j] * signal[j]
		}
		energies[i] = math.Sqrt(sumSquares / float64(e.frameSize))
	}

	return energies
}

// RMSInRange calculates RMS over the sample range corresponding to
// [startSec, endSec). Out-of-bounds ranges are clipped; empty ranges
// return zero.
func RMSInRange(signal []float64, sampleRate int, startSec, endSec float64) float64 {
	if len(signal) == 0 || sampleRate <= 0 || endSec <= startSec {
		return 0.0
	}

	start := int(startSec * float64(sampleRate))
	end := int(endSec * float64(sampleRate))

	if start < 0 {
		start = 0
	}
	if end > len(signal) {
		end = len(signal)
	}
	if end <= start {
		return 0.0
	}

	sumSquares := 0.0
	for i := start; i < end; i++ {
		sumSquares += signal[i] * signal[i]
	}

	return math.Sqrt(sumSquares / float64(end-start))
}

// ComputeEnergyVariance calculates energy variance
// High variance indicates dynamic content, low variance indicates steady content
func (e *Energy) ComputeEnergyVariance(energies []float64) float64 {
	if len(energies) < 2 {
		return 0.0
	}

	mean := 0.0
	for _, energy := range energies {
		mean += energy
	}
	mean /= float64(len(energies))

	variance := 0.0
	for _, energy := range energies {
		diff := energy - mean
		variance += diff * diff
	}
	variance /= float64(len(energies) - 1)

	return variance
}
