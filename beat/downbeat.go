package beat

import (
	"math"

	"github.com/RyanBlaney/ritmo/algorithms/temporal"
	"github.com/RyanBlaney/ritmo/beat/config"
)

// DownbeatResult is the outcome of downbeat alignment. When Accepted is
// false the caller keeps its original grid start.
type DownbeatResult struct {
	Offset     float64 `json:"offset"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
	Accepted   bool    `json:"accepted"`
	HasPickup  bool    `json:"has_pickup"`
}

// DownbeatAligner finds where beat one actually falls near the start of the
// music by scoring onset candidates against a projected lookahead grid.
type DownbeatAligner struct {
	cfg    *config.Config
	onsets *temporal.OnsetDetection
}

const (
	downbeatLookahead = 16   // beats projected past each candidate
	downbeatHitWindow = 0.05 // seconds
	downbeatWeight    = 1.5  // extra weight for predicted downbeats
)

// NewDownbeatAligner creates a downbeat aligner using the given config.
func NewDownbeatAligner(cfg *config.Config) *DownbeatAligner {
	if cfg == nil {
		cfg = config.Default()
	}
	return &DownbeatAligner{
		cfg:    cfg,
		onsets: temporal.NewOnsetDetection(),
	}
}

// Align searches a two-measure window after approxStart for the onset that
// best explains the following beats as hypothetical beat one.
func (da *DownbeatAligner) Align(signal []float64, sampleRate int, bpm, approxStart float64) DownbeatResult {
	rejected := DownbeatResult{Offset: approxStart}
	if len(signal) == 0 || sampleRate <= 0 || bpm <= 0 {
		return rejected
	}

	interval := 60.0 / bpm
	windowLen := 2.0 * float64(da.cfg.BeatsPerMeasure) * interval
	windowEnd := approxStart + windowLen

	preset := da.cfg.Preset(config.PresetSnap)
	params := temporal.OnsetParams{
		WindowSize: preset.WindowSize,
		HopSize:    preset.HopSize,
		Threshold:  preset.Threshold,
		MinSpacing: preset.MinSpacing,
	}
	onsets, err := da.onsets.Detect(signal, sampleRate, params)
	if err != nil || len(onsets) == 0 {
		return rejected
	}

	var candidates []float64
	for _, t := range onsets {
		if t >= approxStart-downbeatHitWindow && t <= windowEnd {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return rejected
	}

	energies := make([]float64, len(candidates))
	maxEnergy := 0.0
	for i, c := range candidates {
		energies[i] = temporal.RMSInRange(signal, sampleRate, c, c+downbeatHitWindow)
		if energies[i] > maxEnergy {
			maxEnergy = energies[i]
		}
	}

	best := rejected
	bestBiased := -1.0

	for i, c := range candidates {
		hitRatio := da.lookaheadHitRatio(onsets, c, interval)

		energyBonus := 0.0
		if maxEnergy > 0 {
			energyBonus = energies[i] / maxEnergy
		}

		score := 0.7*hitRatio + 0.3*energyBonus

		// Prefer earlier candidates when scores are close
		pos := (c - approxStart) / windowLen
		biased := score + 0.05*(1.0-pos)

		if biased > bestBiased {
			bestBiased = biased
			best = DownbeatResult{
				Offset:     c,
				Confidence: hitRatio,
				Score:      score,
			}
		}
	}

	if best.Confidence >= da.cfg.DownbeatMinConfidence && best.Score >= da.cfg.DownbeatMinScore {
		best.Accepted = true
		best.HasPickup = best.Offset > candidates[0]+0.5*interval
		return best
	}

	rejected.Confidence = best.Confidence
	rejected.Score = best.Score
	return rejected
}

// lookaheadHitRatio projects a grid from the candidate and measures how many
// predicted beats have an onset nearby, weighting predicted downbeats.
func (da *DownbeatAligner) lookaheadHitRatio(onsets []float64, candidate, interval float64) float64 {
	var hits, total float64

	for i := 0; i < downbeatLookahead; i++ {
		predicted := candidate + float64(i)*interval

		w := 1.0
		if i%da.cfg.BeatsPerMeasure == 0 {
			w = downbeatWeight
		}
		total += w

		if nearestDistance(onsets, predicted) <= downbeatHitWindow {
			hits += w
		}
	}

	if total == 0 {
		return 0
	}
	return hits / total
}

func nearestDistance(sorted []float64, t float64) float64 {
	if len(sorted) == 0 {
		return math.Inf(1)
	}

	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid] < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	best := math.Inf(1)
	if lo < len(sorted) {
		best = sorted[lo] - t
	}
	if lo > 0 {
		if d := t - sorted[lo-1]; d < best {
			best = d
		}
	}
	return best
}
