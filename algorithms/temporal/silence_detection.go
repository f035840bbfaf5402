package temporal

import (
	"math"
)

// SilenceDetection provides silence analysis and active-span detection
type SilenceDetection struct {
	envelopeExtractor *Envelope
}

// NewSilenceDetection creates a new silence detector
func NewSilenceDetection() *SilenceDetection {
	return &SilenceDetection{
		envelopeExtractor: NewEnvelope(),
	}
}

// ActiveSpan returns the start and end times in seconds of the region where
// the signal is above the energy threshold, trimming leading and trailing
// silence. A fully silent signal returns (0, 0).
func (sd *SilenceDetection) ActiveSpan(signal []float64, sampleRate int, energyThreshold float64) (float64, float64) {
	if len(signal) == 0 || sampleRate <= 0 {
		return 0.0, 0.0
	}

	frameSize := int(0.025 * float64(sampleRate)) // 25ms frames
	hopSize := frameSize / 2                      // 50% overlap
	if frameSize <= 0 || hopSize <= 0 {
		return 0.0, 0.0
	}

	energies := sd.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)
	if len(energies) == 0 {
		return 0.0, 0.0
	}

	firstActive := -1
	lastActive := -1
	for i, energy := range energies {
		if energy > energyThreshold {
			if firstActive == -1 {
				firstActive = i
			}
			lastActive = i
		}
	}

	if firstActive == -1 {
		return 0.0, 0.0
	}

	start := float64(firstActive*hopSize) / float64(sampleRate)
	end := float64(lastActive*hopSize+frameSize) / float64(sampleRate)

	maxEnd := float64(len(signal)) / float64(sampleRate)
	if end > maxEnd {
		end = maxEnd
	}

	return start, end
}

// ComputeSilenceRatio calculates the ratio of silent frames
func (sd *SilenceDetection) ComputeSilenceRatio(signal []float64, sampleRate int, energyThreshold float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	frameSize := int(0.025 * float64(sampleRate))
	hopSize := frameSize / 2

	energies := sd.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)
	if len(energies) == 0 {
		return 0.0
	}

	// A frame is silent exactly when ActiveSpan would not count it active
	silentFrames := 0
	for _, energy := range energies {
		if energy <= energyThreshold {
			silentFrames++
		}
	}

	return float64(silentFrames) / float64(len(energies))
}

// AdaptiveThreshold calculates adaptive energy threshold based on signal statistics
func (sd *SilenceDetection) AdaptiveThreshold(signal []float64, sampleRate int) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	frameSize := int(0.025 * float64(sampleRate))
	hopSize := frameSize / 2

	energies := sd.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)
	if len(energies) == 0 {
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
	variance /= float64(len(energies))
	stdDev := math.Sqrt(variance)

	threshold := mean - 2.0*stdDev
	if threshold <= 0 {
		threshold = mean * 0.1 // Fallback to 10% of mean
	}
	if threshold <= 0 {
		// All-silent input: the threshold must stay positive so that
		// zero-energy frames never count as active.
		threshold = 1e-10
	}

	return threshold
}
