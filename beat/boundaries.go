package beat

import (
	"github.com/RyanBlaney/ritmo/algorithms/temporal"
)

// Boundaries marks where the musical content of a signal starts and ends.
type Boundaries struct {
	MusicStart float64 `json:"music_start"`
	MusicEnd   float64 `json:"music_end"`
}

// Duration returns the length of the musical span.
func (b Boundaries) Duration() float64 {
	d := b.MusicEnd - b.MusicStart
	if d < 0 {
		return 0
	}
	return d
}

// BoundaryDetector trims leading and trailing silence using an adaptive
// energy threshold.
type BoundaryDetector struct {
	silence *temporal.SilenceDetection
}

// NewBoundaryDetector creates a new music boundary detector
func NewBoundaryDetector() *BoundaryDetector {
	return &BoundaryDetector{silence: temporal.NewSilenceDetection()}
}

// Detect returns the active music span. A fully silent signal yields a
// zero-length span at time zero.
func (bd *BoundaryDetector) Detect(signal []float64, sampleRate int) Boundaries {
	if len(signal) == 0 || sampleRate <= 0 {
		return Boundaries{}
	}

	threshold := bd.silence.AdaptiveThreshold(signal, sampleRate)
	start, end := bd.silence.ActiveSpan(signal, sampleRate, threshold)

	return Boundaries{MusicStart: start, MusicEnd: end}
}
