package beat

import (
	"math"
	"strings"
	"testing"
)

func TestCharacteristicsSilence(t *testing.T) {
	ca := NewCharacteristicsAnalyzer()

	c := ca.Analyze(make([]float64, 2*testSampleRate), testSampleRate)
	if !c.Difficult {
		t.Errorf("silence should be flagged difficult")
	}

	c = ca.Analyze(nil, testSampleRate)
	if !c.Difficult {
		t.Errorf("empty signal should be flagged difficult")
	}
}

func TestCharacteristicsDenseSignal(t *testing.T) {
	sig := make([]float64, 5*testSampleRate)
	for i := range sig {
		// slowly swelling tone: always present, never flat
		x := float64(i) / testSampleRate
		am := 0.7 + 0.3*math.Sin(2*math.Pi*0.5*x)
		sig[i] = am * (0.3*math.Sin(2*math.Pi*220*x) + 0.2*math.Sin(2*math.Pi*331*x))
	}

	ca := NewCharacteristicsAnalyzer()
	c := ca.Analyze(sig, testSampleRate)

	if c.Difficult {
		t.Errorf("sustained signal flagged difficult: %v", c.Reasons)
	}
	if c.RMS < 0.1 {
		t.Errorf("RMS = %f, want > 0.1", c.RMS)
	}
	if c.SilenceRatio > 0.2 {
		t.Errorf("silence ratio = %f, want near 0", c.SilenceRatio)
	}
	if c.EnergyVariance <= 1e-6 {
		t.Errorf("energy variance = %g, want > 1e-6 for a swelling tone", c.EnergyVariance)
	}
	if c.PeakLevel < 0.25 || c.PeakLevel > 0.55 {
		t.Errorf("peak level = %f, want ~0.5", c.PeakLevel)
	}
}

func TestCharacteristicsStaticTone(t *testing.T) {
	sig := make([]float64, 3*testSampleRate)
	for i := range sig {
		sig[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/testSampleRate)
	}

	c := NewCharacteristicsAnalyzer().Analyze(sig, testSampleRate)
	if !c.Difficult {
		t.Fatalf("constant-level tone not flagged difficult")
	}
	if !hasReason(c, "static level") {
		t.Errorf("reasons = %v, want static level", c.Reasons)
	}
}

func TestCharacteristicsClipping(t *testing.T) {
	sig := make([]float64, 2*testSampleRate)
	for i := range sig {
		// saturated square wave
		if math.Sin(2*math.Pi*100*float64(i)/testSampleRate) >= 0 {
			sig[i] = 1.0
		} else {
			sig[i] = -1.0
		}
	}

	c := NewCharacteristicsAnalyzer().Analyze(sig, testSampleRate)
	if !c.Difficult {
		t.Fatalf("clipped signal not flagged difficult")
	}
	if !hasReason(c, "clipping") {
		t.Errorf("reasons = %v, want clipping", c.Reasons)
	}
	if c.PeakLevel < 0.999 {
		t.Errorf("peak level = %f, want 1.0", c.PeakLevel)
	}
}

func hasReason(c *Characteristics, substr string) bool {
	for _, r := range c.Reasons {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}

func TestBoundariesTrimSilence(t *testing.T) {
	times := clickTimes(120, 2.0, 6.1)
	sig := renderClicks(testSampleRate, 10.0, times)

	bd := NewBoundaryDetector()
	b := bd.Detect(sig, testSampleRate)

	if math.Abs(b.MusicStart-2.0) > 0.2 {
		t.Errorf("music start = %f, want ~2.0", b.MusicStart)
	}
	if math.Abs(b.MusicEnd-6.03) > 0.2 {
		t.Errorf("music end = %f, want ~6.0", b.MusicEnd)
	}
	if b.Duration() <= 0 {
		t.Errorf("non-positive duration")
	}
}

func TestBoundariesSilence(t *testing.T) {
	bd := NewBoundaryDetector()
	b := bd.Detect(make([]float64, testSampleRate), testSampleRate)

	if b.MusicStart != 0 || b.MusicEnd != 0 {
		t.Errorf("silent boundaries = %+v, want zero span", b)
	}
	if b.Duration() != 0 {
		t.Errorf("silent duration = %f", b.Duration())
	}
}
