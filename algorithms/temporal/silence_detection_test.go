package temporal

import (
	"math"
	"testing"
)

func TestAdaptiveThresholdSilence(t *testing.T) {
	sd := NewSilenceDetection()

	threshold := sd.AdaptiveThreshold(make([]float64, testSampleRate), testSampleRate)
	if threshold <= 0 {
		t.Errorf("threshold on silence = %g, want > 0", threshold)
	}

	start, end := sd.ActiveSpan(make([]float64, testSampleRate), testSampleRate, threshold)
	if start != 0 || end != 0 {
		t.Errorf("silent span = [%f, %f], want [0, 0]", start, end)
	}
}

func TestActiveSpanZeroThreshold(t *testing.T) {
	sd := NewSilenceDetection()

	// Even a zero threshold must not turn zero-energy frames active
	start, end := sd.ActiveSpan(make([]float64, testSampleRate), testSampleRate, 0)
	if start != 0 || end != 0 {
		t.Errorf("silent span at zero threshold = [%f, %f], want [0, 0]", start, end)
	}
}

func TestComputeSilenceRatio(t *testing.T) {
	sd := NewSilenceDetection()

	sig := make([]float64, testSampleRate)
	threshold := sd.AdaptiveThreshold(sig, testSampleRate)
	if ratio := sd.ComputeSilenceRatio(sig, testSampleRate, threshold); ratio != 1.0 {
		t.Errorf("silence ratio of silence = %f, want 1.0", ratio)
	}

	for i := range sig {
		sig[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/testSampleRate)
	}
	threshold = sd.AdaptiveThreshold(sig, testSampleRate)
	if ratio := sd.ComputeSilenceRatio(sig, testSampleRate, threshold); ratio > 0.1 {
		t.Errorf("silence ratio of steady tone = %f, want near 0", ratio)
	}
}
