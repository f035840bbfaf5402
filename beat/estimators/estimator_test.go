package estimators

import (
	"math"
	"testing"
)

const testSampleRate = 44100

// clickSignal places short decaying 1 kHz bursts on a beat grid.
func clickSignal(sampleRate int, duration, bpm, start float64) []float64 {
	sig := make([]float64, int(duration*float64(sampleRate)))
	burstLen := int(0.03 * float64(sampleRate))
	tau := 0.005 * float64(sampleRate)
	interval := 60.0 / bpm

	for t := start; t < duration; t += interval {
		s := int(t * float64(sampleRate))
		for i := 0; i < burstLen; i++ {
			idx := s + i
			if idx >= len(sig) {
				break
			}
			sig[idx] += 0.8 * math.Exp(-float64(i)/tau) * math.Sin(2*math.Pi*1000*float64(i)/float64(sampleRate))
		}
	}
	return sig
}

func TestEstimatorsOnClickTrack(t *testing.T) {
	sig := clickSignal(testSampleRate, 10.0, 120, 0)

	for _, est := range DefaultEstimators() {
		t.Run(est.Name(), func(t *testing.T) {
			te, err := est.Estimate(sig, testSampleRate)
			if err != nil {
				t.Fatalf("Estimate: %v", err)
			}

			// fold octave aliases before comparing
			bpm := NormalizeToBand(te.BPM, 85, 170)
			if math.Abs(bpm-120.0) > 3.0 {
				t.Errorf("BPM = %f (normalized %f), want ~120", te.BPM, bpm)
			}
			if te.Confidence < 0 || te.Confidence > 1 {
				t.Errorf("confidence out of bounds: %f", te.Confidence)
			}
		})
	}
}

func TestEstimatorsRejectSilence(t *testing.T) {
	sig := make([]float64, 5*testSampleRate)

	for _, est := range DefaultEstimators() {
		t.Run(est.Name(), func(t *testing.T) {
			if _, err := est.Estimate(sig, testSampleRate); err == nil {
				t.Errorf("silence should not produce an estimate")
			}
		})
	}
}

func TestEstimatorsRejectEmptyInput(t *testing.T) {
	for _, est := range DefaultEstimators() {
		if _, err := est.Estimate(nil, testSampleRate); err == nil {
			t.Errorf("%s accepted nil signal", est.Name())
		}
		if _, err := est.Estimate([]float64{0.1, 0.2}, 0); err == nil {
			t.Errorf("%s accepted zero sample rate", est.Name())
		}
	}
}

func TestTrimmedMeanInterval(t *testing.T) {
	intervals := []float64{0.5, 0.5, 0.51, 0.49, 0.5, 1.7}

	got := trimmedMeanInterval(intervals)
	if math.Abs(got-0.5) > 0.01 {
		t.Errorf("trimmedMeanInterval = %f, want ~0.5 with the outlier dropped", got)
	}

	if got := trimmedMeanInterval(nil); got != 0 {
		t.Errorf("empty input = %f, want 0", got)
	}
}

func TestIntervalConsistency(t *testing.T) {
	even := []float64{0.5, 0.5, 0.5, 0.5}
	if got := intervalConsistency(even); got != 1.0 {
		t.Errorf("even intervals = %f, want 1", got)
	}

	ragged := []float64{0.2, 0.9, 0.4, 1.5}
	if got := intervalConsistency(ragged); got > 0.3 {
		t.Errorf("ragged intervals = %f, want near 0", got)
	}

	if got := intervalConsistency([]float64{0.5}); got != 0 {
		t.Errorf("single interval = %f, want 0", got)
	}
}
