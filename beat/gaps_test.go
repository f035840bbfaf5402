package beat

import (
	"math"
	"testing"

	"github.com/RyanBlaney/ritmo/beat/config"
)

func TestGapTriggerCombinator(t *testing.T) {
	gd := NewGapDetector(nil)
	interval := 0.5 // 120 BPM

	tests := []struct {
		name    string
		gapSec  float64
		policy  config.GapPolicy
		trigger bool
	}{
		{"fast both met", 2.0, config.GapPolicy{MinGapBeats: 2.5, MinGapSeconds: 1.5, RequireBoth: true}, true},
		{"fast seconds only", 1.6, config.GapPolicy{MinGapBeats: 4.0, MinGapSeconds: 1.5, RequireBoth: true}, false},
		{"slow either", 1.1, config.GapPolicy{MinGapBeats: 2.0, MinGapSeconds: 2.0, RequireBoth: false}, true},
		{"slow neither", 0.6, config.GapPolicy{MinGapBeats: 2.0, MinGapSeconds: 2.0, RequireBoth: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := GapCandidate{GapStart: 1.0, GapEnd: 1.0 + tt.gapSec}
			if got := gd.triggers(c, interval, tt.policy); got != tt.trigger {
				t.Errorf("triggers(%.1fs) = %v, want %v", tt.gapSec, got, tt.trigger)
			}
		})
	}
}

func TestDetectGapInClickTrack(t *testing.T) {
	sig := gappedClickTrack()
	onsets := clickTimes(120, 0, 3.6)
	onsets = append(onsets, clickTimes(120, 7.0, 13.0)...)

	gd := NewGapDetector(nil)
	gaps, _ := gd.Detect(sig, testSampleRate, onsets, 120, Boundaries{MusicStart: 0, MusicEnd: 12.6})

	if len(gaps) != 1 {
		t.Fatalf("gaps = %d, want 1 (%+v)", len(gaps), gaps)
	}
	if math.Abs(gaps[0].GapStart-3.5) > 0.1 {
		t.Errorf("gap start = %f, want ~3.5", gaps[0].GapStart)
	}
	if math.Abs(gaps[0].GapEnd-7.0) > 0.1 {
		t.Errorf("gap end = %f, want ~7.0", gaps[0].GapEnd)
	}
	if gaps[0].Confidence <= 0 || gaps[0].Confidence > 1 {
		t.Errorf("gap confidence out of bounds: %f", gaps[0].Confidence)
	}
}

func TestGapRejectedWhenLoud(t *testing.T) {
	// same onset gap, but the "pause" is filled with a sustained tone
	onsets := clickTimes(120, 0, 3.6)
	onsets = append(onsets, clickTimes(120, 7.0, 13.0)...)
	sig := renderClicks(testSampleRate, 13.0, onsets)

	for i := int(4.0 * testSampleRate); i < int(6.9*testSampleRate); i++ {
		sig[i] += 0.5 * math.Sin(2*math.Pi*440*float64(i)/testSampleRate)
	}

	gd := NewGapDetector(nil)
	gaps, _ := gd.Detect(sig, testSampleRate, onsets, 120, Boundaries{MusicStart: 0, MusicEnd: 12.6})

	if len(gaps) != 0 {
		t.Errorf("loud gap should be rejected, got %+v", gaps)
	}
}

func TestGapAtMusicEndRejected(t *testing.T) {
	onsets := clickTimes(120, 0, 8.1)
	onsets = append(onsets, 11.0)
	sig := renderClicks(testSampleRate, 12.0, onsets)

	gd := NewGapDetector(nil)
	gaps, _ := gd.Detect(sig, testSampleRate, onsets, 120, Boundaries{MusicStart: 0, MusicEnd: 8.05})

	if len(gaps) != 0 {
		t.Errorf("trailing-silence gap should be rejected, got %+v", gaps)
	}
}

func TestGapDurationBounds(t *testing.T) {
	// 12s gap exceeds the fast band's max fermata duration
	onsets := clickTimes(120, 0, 3.6)
	onsets = append(onsets, clickTimes(120, 15.5, 20.0)...)
	sig := renderClicks(testSampleRate, 20.0, onsets)

	gd := NewGapDetector(nil)
	gaps, _ := gd.Detect(sig, testSampleRate, onsets, 120, Boundaries{MusicStart: 0, MusicEnd: 19.6})

	if len(gaps) != 0 {
		t.Errorf("overlong gap should be rejected, got %+v", gaps)
	}
}

func TestGapConfidenceFormula(t *testing.T) {
	tests := []struct {
		gapBeats float64
		minBeats float64
		want     float64
	}{
		{2.5, 2.5, 0.5},
		{5.0, 2.5, 0.75},
		{8.0, 2.5, 1.0}, // clamped
		{12.0, 2.5, 1.0},
	}

	for _, tt := range tests {
		got := gapConfidence(tt.gapBeats, tt.minBeats)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("gapConfidence(%f, %f) = %f, want %f", tt.gapBeats, tt.minBeats, got, tt.want)
		}
	}
}

func TestGapMerge(t *testing.T) {
	gd := NewGapDetector(nil)
	interval := 0.5
	policy := config.GapPolicy{MergeBeats: 2.0}

	gaps := []ValidatedGap{
		{GapCandidate: GapCandidate{GapStart: 2.0, GapEnd: 4.0}, DurationSec: 2.0, GapBeats: 4},
		{GapCandidate: GapCandidate{GapStart: 4.5, GapEnd: 6.5}, DurationSec: 2.0, GapBeats: 4},
		{GapCandidate: GapCandidate{GapStart: 10.0, GapEnd: 12.0}, DurationSec: 2.0, GapBeats: 4},
	}

	out := gd.merge(gaps, interval, policy)

	if len(out) != 2 {
		t.Fatalf("merged gaps = %d, want 2", len(out))
	}
	if out[0].GapStart != 2.0 || out[0].GapEnd != 6.5 {
		t.Errorf("merged gap = [%f, %f], want [2.0, 6.5]", out[0].GapStart, out[0].GapEnd)
	}
	if out[1].GapStart != 10.0 {
		t.Errorf("distant gap should not merge")
	}
}
