package estimators

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

type stubEstimator struct {
	name   string
	est    *TempoEstimate
	err    error
	panics bool
}

func (s *stubEstimator) Name() string { return s.name }

func (s *stubEstimator) Estimate(signal []float64, sampleRate int) (*TempoEstimate, error) {
	if s.panics {
		panic("stub blew up")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.est, nil
}

func stub(name string, bpm, conf float64, beats ...float64) *stubEstimator {
	return &stubEstimator{
		name: name,
		est:  &TempoEstimate{Algorithm: name, BPM: bpm, Confidence: conf, Beats: beats},
	}
}

func TestEnsembleConsensus(t *testing.T) {
	ens := NewEnsembleWith([]TempoEstimator{
		stub("a", 119.8, 0.9),
		stub("b", 120.1, 0.8),
		stub("c", 120.4, 0.7),
		stub("d", 119.9, 0.85),
	})

	res := ens.Estimate(nil, 44100)

	if math.Abs(res.ConsensusBPM-120.0) > 1.0 {
		t.Errorf("consensus BPM = %f, want ~120", res.ConsensusBPM)
	}
	if res.Agreement != AgreementStrong {
		t.Errorf("agreement = %s, want strong", res.Agreement)
	}
	if res.Confidence < 0.7 {
		t.Errorf("confidence = %f, want >= 0.7", res.Confidence)
	}
}

func TestEnsembleOctaveVotesCluster(t *testing.T) {
	// 60 and 240 are octave aliases of 120 and should all land in one cluster
	ens := NewEnsembleWith([]TempoEstimator{
		stub("a", 120.0, 0.8),
		stub("b", 60.0, 0.7),
		stub("c", 240.0, 0.6),
	})

	res := ens.Estimate(nil, 44100)

	if math.Abs(res.ConsensusBPM-120.0) > 1.0 {
		t.Errorf("consensus BPM = %f, want ~120", res.ConsensusBPM)
	}
	if res.Agreement != AgreementStrong {
		t.Errorf("agreement = %s, want strong", res.Agreement)
	}
}

func TestEnsembleModerateAgreement(t *testing.T) {
	ens := NewEnsembleWith([]TempoEstimator{
		stub("a", 120.0, 0.8),
		stub("b", 120.5, 0.7),
		stub("c", 93.0, 0.6),
		stub("d", 101.0, 0.5),
	})

	res := ens.Estimate(nil, 44100)

	if res.Agreement != AgreementModerate {
		t.Errorf("agreement = %s, want moderate", res.Agreement)
	}
	if math.Abs(res.ConsensusBPM-120.0) > 1.5 {
		t.Errorf("consensus BPM = %f, want ~120", res.ConsensusBPM)
	}
}

func TestEnsembleAllFailFallback(t *testing.T) {
	ens := NewEnsembleWith([]TempoEstimator{
		&stubEstimator{name: "a", err: fmt.Errorf("no onsets")},
		&stubEstimator{name: "b", err: fmt.Errorf("too short")},
	})

	res := ens.Estimate(nil, 44100)

	if res.ConsensusBPM != 120.0 {
		t.Errorf("fallback BPM = %f, want 120", res.ConsensusBPM)
	}
	if res.Confidence != 0 {
		t.Errorf("fallback confidence = %f, want 0", res.Confidence)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "all tempo estimators failed") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected all-failed warning, got %v", res.Warnings)
	}
}

func TestEnsemblePanicIsolation(t *testing.T) {
	ens := NewEnsembleWith([]TempoEstimator{
		&stubEstimator{name: "bad", panics: true},
		stub("good", 100.0, 0.9),
	})

	res := ens.Estimate(nil, 44100)

	if math.Abs(res.ConsensusBPM-100.0) > 0.5 {
		t.Errorf("consensus BPM = %f, want ~100", res.ConsensusBPM)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "panicked") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected panic warning, got %v", res.Warnings)
	}
}

func TestEnsembleDisplayBandNudge(t *testing.T) {
	// 70 BPM consensus sits below the display band and doubles to 140
	ens := NewEnsembleWith([]TempoEstimator{
		stub("a", 70.0, 0.8),
		stub("b", 70.2, 0.7),
	})

	res := ens.Estimate(nil, 44100)

	if math.Abs(res.ConsensusBPM-140.0) > 1.0 {
		t.Errorf("display BPM = %f, want ~140", res.ConsensusBPM)
	}
}

func TestEnsembleBestBeats(t *testing.T) {
	ens := NewEnsembleWith([]TempoEstimator{
		stub("low", 120.0, 0.5, 0.0, 0.5, 1.0),
		stub("high", 120.2, 0.9, 0.01, 0.51, 1.01),
		stub("noticks", 120.1, 0.95),
	})

	res := ens.Estimate(nil, 44100)

	if len(res.BestBeats) != 3 {
		t.Fatalf("BestBeats len = %d, want 3", len(res.BestBeats))
	}
	if res.BestBeats[0] != 0.01 {
		t.Errorf("BestBeats should come from the most confident member with ticks")
	}
}

func TestNormalizeToBand(t *testing.T) {
	tests := []struct {
		bpm  float64
		want float64
	}{
		{120, 120},
		{60, 120},
		{240, 120},
		{35, 70},
		{140, 70},
		{0, 0},
		{-5, 0},
	}

	for _, tt := range tests {
		got := NormalizeToBand(tt.bpm, 70, 140)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeToBand(%f) = %f, want %f", tt.bpm, got, tt.want)
		}
	}
}
