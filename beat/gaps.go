package beat

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/ritmo/algorithms/temporal"
	"github.com/RyanBlaney/ritmo/beat/config"
	"github.com/RyanBlaney/ritmo/logging"
)

// ValidatedGap is a gap candidate that survived validation, with its derived
// measures attached.
type ValidatedGap struct {
	GapCandidate
	DurationSec float64 `json:"duration_sec"`
	GapBeats    float64 `json:"gap_beats"`
	Confidence  float64 `json:"confidence"`
}

// GapDetector finds pauses and held notes (fermatas) by looking for
// stretches where expected onsets never arrive, then validating each stretch
// against the energy of the signal.
type GapDetector struct {
	cfg    *config.Config
	logger logging.Logger
}

const (
	gapContextWindowSec = 2.0 // context RMS measured this far on each side
	gapEdgeGuardSec     = 0.05
	slowDenseWindowSec  = 3.0 // onset density context for slow mid-song gaps
	slowDenseMaxDensity = 1.5 // onsets per second
	slowDenseMinScore   = 1.0
	slowIntroRatioBoost = 1.5
)

// NewGapDetector creates a gap detector using the given config.
func NewGapDetector(cfg *config.Config) *GapDetector {
	if cfg == nil {
		cfg = config.Default()
	}
	return &GapDetector{
		cfg:    cfg,
		logger: logging.WithFields(logging.Fields{"component": "gap_detector"}),
	}
}

// Detect flags onset gaps per the tempo-band policy, validates them against
// signal energy, optionally runs a relaxed intro retry for slow tracks, and
// merges near-adjacent survivors.
func (gd *GapDetector) Detect(signal []float64, sampleRate int, onsets []float64, bpm float64, bounds Boundaries) ([]ValidatedGap, []string) {
	if bpm <= 0 || len(onsets) < 2 {
		return nil, nil
	}

	band := config.BandForBPM(bpm)
	policy := gd.cfg.PolicyForBPM(bpm)
	interval := 60.0 / bpm

	var warnings []string
	var validated []ValidatedGap

	for i := 1; i < len(onsets); i++ {
		cand := GapCandidate{GapStart: onsets[i-1], GapEnd: onsets[i]}
		if !gd.triggers(cand, interval, policy) {
			continue
		}

		vg, reason := gd.validate(signal, sampleRate, onsets, cand, interval, policy, band, bounds, false)
		if vg == nil {
			gd.logger.Debug("gap candidate rejected", logging.Fields{
				"gap_start": cand.GapStart,
				"gap_end":   cand.GapEnd,
				"reason":    reason,
			})
			continue
		}
		validated = append(validated, *vg)
	}

	// Slow pieces often open with a held chord too soft for the strict
	// thresholds. One relaxed retry, intro only.
	if band == config.BandSlow && !gd.hasIntroGap(validated) {
		if vg := gd.introRecovery(signal, sampleRate, onsets, interval, policy, bounds); vg != nil {
			validated = append(validated, *vg)
			warnings = append(warnings,
				fmt.Sprintf("intro fermata at %.2fs accepted with relaxed thresholds", vg.GapStart))
		}
	}

	sort.Slice(validated, func(i, j int) bool {
		return validated[i].GapStart < validated[j].GapStart
	})
	validated = gd.merge(validated, interval, policy)

	for i := range validated {
		validated[i].Confidence = gapConfidence(validated[i].GapBeats, policy.MinGapBeats)
	}

	return validated, warnings
}

// triggers applies the tempo-band combinator: fast tempos demand both the
// beat and second thresholds, slower ones either.
func (gd *GapDetector) triggers(c GapCandidate, interval float64, policy config.GapPolicy) bool {
	gapSec := c.GapEnd - c.GapStart
	gapBeats := gapSec / interval

	byBeats := gapBeats >= policy.MinGapBeats
	bySeconds := gapSec >= policy.MinGapSeconds

	if policy.RequireBoth {
		return byBeats && bySeconds
	}
	return byBeats || bySeconds
}

func (gd *GapDetector) validate(signal []float64, sampleRate int, onsets []float64, c GapCandidate, interval float64, policy config.GapPolicy, band config.TempoBand, bounds Boundaries, relaxed bool) (*ValidatedGap, string) {
	gapSec := c.GapEnd - c.GapStart
	gapBeats := gapSec / interval

	if bounds.MusicEnd > 0 && c.GapStart >= bounds.MusicEnd-gapEdgeGuardSec {
		return nil, "at or after music end"
	}
	if bounds.MusicEnd > 0 && c.GapEnd > bounds.MusicEnd+gapEdgeGuardSec {
		return nil, "runs past music end"
	}

	minDur, maxDur := policy.MinFermataSeconds, policy.MaxFermataSeconds
	if relaxed {
		minDur *= gd.cfg.IntroRecoveryRelax
	}
	if gapSec < minDur || gapSec > maxDur {
		return nil, "duration outside fermata range"
	}

	// The held note nominally lasts one beat past its onset; energy is
	// judged on the remainder of the gap.
	quietStart := c.GapStart + interval
	quietEnd := c.GapEnd - gapEdgeGuardSec
	if quietEnd <= quietStart {
		return nil, "no interior to measure"
	}
	gapRMS := temporal.RMSInRange(signal, sampleRate, quietStart, quietEnd)

	maxRMS := policy.MaxGapRMS
	if relaxed {
		maxRMS /= gd.cfg.IntroRecoveryRelax
	}
	if gapRMS > maxRMS {
		return nil, "gap too loud"
	}

	contextRMS := gd.contextRMS(signal, sampleRate, c)
	ratio := policy.ContextQuietRatio
	if band == config.BandSlow && c.GapStart < gd.cfg.IntroRecoveryWindowSec {
		ratio *= slowIntroRatioBoost
	}
	if relaxed {
		ratio *= slowIntroRatioBoost
	}
	if contextRMS > 0 && gapRMS > ratio*contextRMS {
		return nil, "not quiet enough vs context"
	}

	if band == config.BandSlow && c.GapStart >= gd.cfg.IntroRecoveryWindowSec {
		if reason := slowDenseReject(onsets, c, gapRMS, contextRMS, ratio); reason != "" {
			return nil, reason
		}
	}

	return &ValidatedGap{
		GapCandidate: c,
		DurationSec:  gapSec,
		GapBeats:     gapBeats,
		Confidence:   gapConfidence(gapBeats, policy.MinGapBeats),
	}, ""
}

// slowDenseReject drops slow-track mid-song candidates sitting in busy
// passages: ordinary long note values, not pauses.
func slowDenseReject(onsets []float64, c GapCandidate, gapRMS, contextRMS, ratio float64) string {
	before := temporal.Density(onsets, c.GapStart-slowDenseWindowSec, c.GapStart)
	after := temporal.Density(onsets, c.GapEnd, c.GapEnd+slowDenseWindowSec)
	density := (before + after) / 2.0
	if density <= slowDenseMaxDensity {
		return ""
	}

	quietness := 1.0
	if contextRMS > 0 && ratio > 0 {
		quietness = 1.0 - gapRMS/(ratio*contextRMS)
		if quietness < 0 {
			quietness = 0
		}
	}

	score := (c.GapEnd - c.GapStart) * quietness
	if score < slowDenseMinScore {
		return "dense context, weak duration/quietness score"
	}
	return ""
}

// contextRMS averages signal energy over windows on both sides of the gap.
func (gd *GapDetector) contextRMS(signal []float64, sampleRate int, c GapCandidate) float64 {
	beforeStart := c.GapStart - gapContextWindowSec
	if beforeStart < 0 {
		beforeStart = 0
	}
	before := temporal.RMSInRange(signal, sampleRate, beforeStart, c.GapStart)
	after := temporal.RMSInRange(signal, sampleRate, c.GapEnd, c.GapEnd+gapContextWindowSec)

	n := 0
	sum := 0.0
	if before > 0 {
		sum += before
		n++
	}
	if after > 0 {
		sum += after
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (gd *GapDetector) hasIntroGap(gaps []ValidatedGap) bool {
	for _, g := range gaps {
		if g.GapStart < gd.cfg.IntroRecoveryWindowSec {
			return true
		}
	}
	return false
}

// introRecovery retries intro candidates with relaxed thresholds and keeps
// at most the first survivor.
func (gd *GapDetector) introRecovery(signal []float64, sampleRate int, onsets []float64, interval float64, policy config.GapPolicy, bounds Boundaries) *ValidatedGap {
	relax := gd.cfg.IntroRecoveryRelax
	relaxedPolicy := policy
	relaxedPolicy.MinGapBeats *= relax
	relaxedPolicy.MinGapSeconds *= relax

	for i := 1; i < len(onsets); i++ {
		if onsets[i-1] >= gd.cfg.IntroRecoveryWindowSec {
			break
		}
		cand := GapCandidate{GapStart: onsets[i-1], GapEnd: onsets[i]}
		if !gd.triggers(cand, interval, relaxedPolicy) {
			continue
		}
		vg, _ := gd.validate(signal, sampleRate, onsets, cand, interval, relaxedPolicy, config.BandSlow, bounds, true)
		if vg != nil {
			return vg
		}
	}
	return nil
}

// merge folds candidates separated by less than the policy's merge distance
// into one longer gap.
func (gd *GapDetector) merge(gaps []ValidatedGap, interval float64, policy config.GapPolicy) []ValidatedGap {
	if len(gaps) < 2 {
		return gaps
	}
	mergeDist := policy.MergeBeats * interval

	out := gaps[:1]
	for _, g := range gaps[1:] {
		last := &out[len(out)-1]
		if g.GapStart-last.GapEnd < mergeDist {
			if g.GapEnd > last.GapEnd {
				last.GapEnd = g.GapEnd
				last.DurationSec = last.GapEnd - last.GapStart
				last.GapBeats = last.DurationSec / interval
			}
			continue
		}
		out = append(out, g)
	}
	return out
}

func gapConfidence(gapBeats, minGapBeats float64) float64 {
	return math.Min(1.0, 0.5+(gapBeats-minGapBeats)*0.1)
}
