package beat

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/ritmo/algorithms/temporal"
	"github.com/RyanBlaney/ritmo/beat/config"
	"github.com/RyanBlaney/ritmo/beat/estimators"
	"github.com/RyanBlaney/ritmo/logging"
)

// ProgressFunc receives pipeline checkpoints. percent is 0-100.
type ProgressFunc func(stage string, percent int)

// Analyzer runs the full beat analysis pipeline over a mono signal.
type Analyzer struct {
	cfg *config.Config

	characteristics *CharacteristicsAnalyzer
	boundaries      *BoundaryDetector
	ensemble        *estimators.Ensemble
	grid            *GridBuilder
	downbeat        *DownbeatAligner
	gaps            *GapDetector
	onsets          *temporal.OnsetDetection

	progress ProgressFunc
	logger   logging.Logger
}

// NewAnalyzer creates an analyzer with the given config; nil means defaults.
func NewAnalyzer(cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Sanitize()

	ens := estimators.NewEnsemble()
	ens.SetBands(cfg.CanonicalBandLow, cfg.CanonicalBandHigh,
		cfg.DisplayBandLow, cfg.DisplayBandHigh)
	ens.SetClusterTolerance(cfg.ClusterRelTolerance)

	return &Analyzer{
		cfg:             cfg,
		characteristics: NewCharacteristicsAnalyzer(),
		boundaries:      NewBoundaryDetector(),
		ensemble:        ens,
		grid:            NewGridBuilder(cfg),
		downbeat:        NewDownbeatAligner(cfg),
		gaps:            NewGapDetector(cfg),
		onsets:          temporal.NewOnsetDetection(),
		logger:          logging.WithFields(logging.Fields{"component": "beat_analyzer"}),
	}
}

// SetProgress installs an optional checkpoint callback.
func (a *Analyzer) SetProgress(fn ProgressFunc) {
	a.progress = fn
}

// Analyze runs the pipeline. It returns an error only for invalid input or
// context cancellation; every analysis failure degrades to a fallback and a
// warning instead.
func (a *Analyzer) Analyze(ctx context.Context, signal []float64, sampleRate int) (*Result, error) {
	if signal == nil {
		return nil, fmt.Errorf("nil signal")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	result := &Result{}

	a.report("characteristics", 5)
	chars := a.characteristics.Analyze(signal, sampleRate)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.report("boundaries", 15)
	bounds := a.boundaries.Detect(signal, sampleRate)
	result.MusicStartTime = bounds.MusicStart
	result.MusicEndTime = bounds.MusicEnd
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.report("tempo", 25)
	ens := a.estimateTempo(signal, sampleRate, result)
	bpm := ens.ConsensusBPM
	result.BPM = bpm
	result.Confidence = ens.Confidence
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.report("grid", 50)
	beats := a.grid.Build(ens.Estimates, bpm, bounds)
	if ens.Agreement != estimators.AgreementWeak {
		beats = a.grid.Snap(beats, a.detectOnsets(signal, sampleRate, config.PresetSnap))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.report("downbeat", 65)
	offset := bounds.MusicStart
	if len(beats) > 0 {
		offset = beats[0]
	}
	db := a.downbeat.Align(signal, sampleRate, bpm, bounds.MusicStart)
	if db.Accepted {
		if math.Abs(db.Offset-offset) > 0.1 {
			beats = RegenerateCoveringGrid(bpm, db.Offset, bounds.MusicStart, bounds.MusicEnd)
		}
		offset = db.Offset
		if db.HasPickup {
			result.Warnings = append(result.Warnings, "pickup notes before the first downbeat")
		}
	}
	result.Offset = offset
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.report("gaps", 80)
	gapOnsets := a.detectOnsets(signal, sampleRate, config.PresetFermata)
	gaps, gapWarnings := a.gaps.Detect(signal, sampleRate, gapOnsets, bpm, bounds)
	result.Warnings = append(result.Warnings, gapWarnings...)
	if len(gaps) > 0 {
		// Resync works on the even grid so shifts are exact and never
		// applied twice to onset-derived beats.
		beats = RegenerateCoveringGrid(bpm, offset, bounds.MusicStart, bounds.MusicEnd)
		beats = ApplyGapShifts(beats, candidatesOf(gaps), a.cfg.ResyncMinShift)
		result.DetectedGaps = candidatesOf(gaps)
	}
	result.Beats = beats
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.report("regions", 92)
	result.TempoRegions = BuildRegions(bounds, bpm, ens.Confidence, gaps)
	result.HasTempoVariance = len(gaps) > 0

	a.finalizeConfidence(result, chars, ens.Agreement, gaps, bounds)

	a.report("done", 100)
	a.logger.Info("beat analysis complete", logging.Fields{
		"bpm":        result.BPM,
		"confidence": result.Confidence,
		"level":      result.ConfidenceLevel,
		"beats":      len(result.Beats),
		"fermatas":   len(gaps),
	})

	return result, nil
}

// estimateTempo runs the fallback chain: ensemble, then the baseline
// autocorrelation estimator alone, then a hard 120 BPM default.
func (a *Analyzer) estimateTempo(signal []float64, sampleRate int, result *Result) *estimators.EnsembleResult {
	ens := a.ensemble.Estimate(signal, sampleRate)
	result.Warnings = append(result.Warnings, ens.Warnings...)
	if len(ens.Estimates) > 0 {
		return ens
	}

	baseline := estimators.NewAutocorrEstimator()
	if te, err := baseline.Estimate(signal, sampleRate); err == nil && te.BPM > 0 {
		result.Warnings = append(result.Warnings,
			"tempo from baseline autocorrelation only")
		return &estimators.EnsembleResult{
			ConsensusBPM: te.BPM,
			Confidence:   te.Confidence * 0.5,
			Agreement:    estimators.AgreementWeak,
			Estimates:    []*estimators.TempoEstimate{te},
			BestBeats:    te.Beats,
		}
	}

	// ens already carries the 120 BPM fallback and its warning
	return ens
}

func (a *Analyzer) detectOnsets(signal []float64, sampleRate int, preset config.OnsetPreset) []float64 {
	p := a.cfg.Preset(preset)
	onsets, err := a.onsets.Detect(signal, sampleRate, temporal.OnsetParams{
		WindowSize: p.WindowSize,
		HopSize:    p.HopSize,
		Threshold:  p.Threshold,
		MinSpacing: p.MinSpacing,
	})
	if err != nil {
		a.logger.Debug("onset detection failed", logging.Fields{
			"preset": string(preset),
			"error":  err.Error(),
		})
		return nil
	}
	return onsets
}

func (a *Analyzer) finalizeConfidence(result *Result, chars *Characteristics, agreement estimators.Agreement, gaps []ValidatedGap, bounds Boundaries) {
	if chars.Difficult && result.Confidence > a.cfg.DifficultConfidenceCap {
		result.Confidence = a.cfg.DifficultConfidenceCap
		for _, r := range chars.Reasons {
			result.Warnings = append(result.Warnings, "difficult audio: "+r)
		}
	}

	switch {
	case result.Confidence >= 0.7 && agreement == estimators.AgreementStrong:
		result.ConfidenceLevel = ConfidenceHigh
	case result.Confidence >= 0.4 || agreement == estimators.AgreementModerate:
		result.ConfidenceLevel = ConfidenceMedium
	default:
		result.ConfidenceLevel = ConfidenceLow
	}

	// Heavy fermata use means the single-BPM model explains less of the
	// track; force the label down.
	minutes := bounds.Duration() / 60.0
	perMinute := 0.0
	if minutes > 0 {
		perMinute = float64(len(gaps)) / minutes
	}
	if len(gaps) >= 3 || perMinute > 2.0 {
		result.ConfidenceLevel = ConfidenceLow
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("frequent tempo interruptions (%d fermatas)", len(gaps)))
	}
}

// ApplyManualBPM produces a new result for a user-supplied BPM: an even grid
// at the new tempo from the same offset, with the previously detected gap
// shifts reapplied. Fermata regions are tempo-independent and carry over
// unchanged; steady regions get the new BPM.
func (a *Analyzer) ApplyManualBPM(prior *Result, bpm float64) (*Result, error) {
	if prior == nil {
		return nil, fmt.Errorf("nil prior result")
	}
	if bpm <= 0 {
		return nil, fmt.Errorf("invalid bpm: %f", bpm)
	}

	out := *prior
	out.BPM = bpm

	beats := RegenerateCoveringGrid(bpm, prior.Offset, prior.MusicStartTime, prior.MusicEndTime)
	beats = ApplyGapShifts(beats, prior.DetectedGaps, a.cfg.ResyncMinShift)
	out.Beats = beats

	out.TempoRegions = UpdateSteadyBPM(prior.TempoRegions, bpm)

	out.Warnings = append(append([]string{}, prior.Warnings...),
		fmt.Sprintf("manual BPM override: %.1f", bpm))

	return &out, nil
}

func candidatesOf(gaps []ValidatedGap) []GapCandidate {
	out := make([]GapCandidate, len(gaps))
	for i, g := range gaps {
		out[i] = g.GapCandidate
	}
	return out
}

func (a *Analyzer) report(stage string, percent int) {
	if a.progress != nil {
		a.progress(stage, percent)
	}
}
