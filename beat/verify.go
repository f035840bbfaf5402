package beat

import (
	"sort"

	"github.com/RyanBlaney/ritmo/algorithms/temporal"
	"github.com/RyanBlaney/ritmo/beat/config"
)

// CandidateScore is one BPM hypothesis and how well its grid lines up with
// detected onsets.
type CandidateScore struct {
	BPM   float64 `json:"bpm"`
	Score float64 `json:"score"`
}

// VerificationReport says whether a neighboring or octave BPM would explain
// the onsets better than the analyzed one.
type VerificationReport struct {
	OriginalBPM   float64          `json:"original_bpm"`
	OriginalScore float64          `json:"original_score"`
	BestBPM       float64          `json:"best_bpm"`
	BestScore     float64          `json:"best_score"`
	BetterFit     bool             `json:"better_fit"`
	Candidates    []CandidateScore `json:"candidates"`
}

const (
	verifyHitWindow = 0.05
	verifyMargin    = 0.1 // a candidate must beat the original by this much
)

// VerifyAccuracy rescores the analyzed BPM against nearby candidates (±2%,
// ±4%) and octave multiples using precision-leaning onsets. Diagnostic only;
// the pipeline never calls it.
func VerifyAccuracy(signal []float64, sampleRate int, result *Result) *VerificationReport {
	report := &VerificationReport{}
	if result == nil || result.BPM <= 0 || len(signal) == 0 || sampleRate <= 0 {
		return report
	}
	report.OriginalBPM = result.BPM

	cfg := config.Default()
	p := cfg.Preset(config.PresetVerify)
	onsets, err := temporal.NewOnsetDetection().Detect(signal, sampleRate, temporal.OnsetParams{
		WindowSize: p.WindowSize,
		HopSize:    p.HopSize,
		Threshold:  p.Threshold,
		MinSpacing: p.MinSpacing,
	})
	if err != nil || len(onsets) < 4 {
		return report
	}

	factors := []float64{0.96, 0.98, 1.0, 1.02, 1.04, 0.5, 2.0}

	for _, f := range factors {
		bpm := result.BPM * f
		if bpm < 30 || bpm > 300 {
			continue
		}
		score := gridAlignmentScore(onsets, bpm, result.Offset, result.MusicEndTime)
		report.Candidates = append(report.Candidates, CandidateScore{BPM: bpm, Score: score})

		if f == 1.0 {
			report.OriginalScore = score
		}
		if score > report.BestScore {
			report.BestScore = score
			report.BestBPM = bpm
		}
	}

	sort.Slice(report.Candidates, func(i, j int) bool {
		return report.Candidates[i].Score > report.Candidates[j].Score
	})

	report.BetterFit = report.BestBPM != result.BPM &&
		report.BestScore > report.OriginalScore+verifyMargin

	return report
}

// gridAlignmentScore combines how many projected beats have an onset nearby
// with how many onsets the grid explains, so a half-tempo grid that matches
// every second onset still scores below the true tempo.
func gridAlignmentScore(onsets []float64, bpm, offset, end float64) float64 {
	beats := RegenerateGrid(bpm, offset, end)
	if len(beats) == 0 || len(onsets) == 0 {
		return 0
	}

	hits := 0
	for _, b := range beats {
		if nearestDistance(onsets, b) <= verifyHitWindow {
			hits++
		}
	}
	hitRatio := float64(hits) / float64(len(beats))

	covered := 0
	for _, o := range onsets {
		if nearestDistance(beats, o) <= verifyHitWindow {
			covered++
		}
	}
	coverage := float64(covered) / float64(len(onsets))

	return hitRatio * coverage
}
