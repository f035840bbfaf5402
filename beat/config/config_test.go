package config

import (
	"testing"
)

func TestBandForBPM(t *testing.T) {
	tests := []struct {
		bpm  float64
		want TempoBand
	}{
		{60, BandSlow},
		{89.9, BandSlow},
		{90, BandModerate},
		{119.9, BandModerate},
		{120, BandFast},
		{180, BandFast},
	}

	for _, tt := range tests {
		if got := BandForBPM(tt.bpm); got != tt.want {
			t.Errorf("BandForBPM(%v) = %v, want %v", tt.bpm, got, tt.want)
		}
	}
}

func TestGapPolicyCombinator(t *testing.T) {
	policies := DefaultGapPolicies()

	// Fast tempo requires both conditions; slower bands accept either
	if !policies[BandFast].RequireBoth {
		t.Error("fast band should require both gap conditions")
	}
	if policies[BandModerate].RequireBoth {
		t.Error("moderate band should accept either gap condition")
	}
	if policies[BandSlow].RequireBoth {
		t.Error("slow band should accept either gap condition")
	}
}

func TestGapPolicyBounds(t *testing.T) {
	for band, p := range DefaultGapPolicies() {
		if p.MinGapBeats <= 0 || p.MinGapSeconds <= 0 {
			t.Errorf("%v: gap thresholds must be positive", band)
		}
		if p.MinFermataSeconds >= p.MaxFermataSeconds {
			t.Errorf("%v: fermata duration window inverted", band)
		}
		if p.ContextQuietRatio <= 0 || p.ContextQuietRatio >= 1 {
			t.Errorf("%v: quiet ratio out of range: %v", band, p.ContextQuietRatio)
		}
	}
}

func TestSanitizeRepairsInconsistentConfig(t *testing.T) {
	c := &Config{
		BeatsPerMeasure:     -1,
		CanonicalBandLow:    140,
		CanonicalBandHigh:   70,
		ClusterRelTolerance: 2.0,
		GapFillFactor:       0.5,
	}
	c.Sanitize()

	d := Default()
	if c.BeatsPerMeasure != d.BeatsPerMeasure {
		t.Errorf("BeatsPerMeasure = %d, want default %d", c.BeatsPerMeasure, d.BeatsPerMeasure)
	}
	if c.CanonicalBandLow != d.CanonicalBandLow || c.CanonicalBandHigh != d.CanonicalBandHigh {
		t.Error("canonical band not repaired")
	}
	if c.ClusterRelTolerance != d.ClusterRelTolerance {
		t.Error("cluster tolerance not repaired")
	}
	if c.GapFillFactor != d.GapFillFactor {
		t.Error("gap fill factor not repaired")
	}
	if len(c.OnsetPresets) == 0 || len(c.GapPolicies) == 0 {
		t.Error("tables not defaulted")
	}
}

func TestPresetFallback(t *testing.T) {
	c := Default()
	got := c.Preset(OnsetPreset("nonsense"))
	want := DefaultOnsetPresets()[PresetTempo]
	if got != want {
		t.Errorf("unknown preset = %+v, want tempo preset %+v", got, want)
	}
}
