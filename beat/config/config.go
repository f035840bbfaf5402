// Package config holds the declarative tuning tables for beat analysis:
// onset detection presets per consumer and gap/fermata thresholds per tempo
// band. Keeping these as data makes them testable independently of the
// detection logic.
package config

// OnsetPreset names an onset detection tuning.
type OnsetPreset string

const (
	PresetTempo   OnsetPreset = "tempo"   // recall-leaning, for tempo estimation and gap detection
	PresetFermata OnsetPreset = "fermata" // longer window, steadier novelty for held-note boundaries
	PresetSnap    OnsetPreset = "snap"    // fine hop for beat snapping
	PresetVerify  OnsetPreset = "verify"  // precision-leaning, for accuracy verification
)

// OnsetSettings are the concrete knobs behind a preset.
type OnsetSettings struct {
	WindowSize int     `json:"window_size"`
	HopSize    int     `json:"hop_size"`
	Threshold  float64 `json:"threshold"`
	MinSpacing float64 `json:"min_spacing"` // seconds
}

// DefaultOnsetPresets returns the preset table.
func DefaultOnsetPresets() map[OnsetPreset]OnsetSettings {
	return map[OnsetPreset]OnsetSettings{
		PresetTempo:   {WindowSize: 1024, HopSize: 512, Threshold: 0.30, MinSpacing: 0.08},
		PresetFermata: {WindowSize: 2048, HopSize: 512, Threshold: 0.25, MinSpacing: 0.08},
		PresetSnap:    {WindowSize: 1024, HopSize: 256, Threshold: 0.35, MinSpacing: 0.08},
		PresetVerify:  {WindowSize: 1024, HopSize: 512, Threshold: 0.40, MinSpacing: 0.08},
	}
}

// TempoBand buckets a BPM for threshold selection.
type TempoBand string

const (
	BandSlow     TempoBand = "slow"     // < 90 BPM
	BandModerate TempoBand = "moderate" // 90–120 BPM
	BandFast     TempoBand = "fast"     // >= 120 BPM
)

// BandForBPM returns the tempo band for a BPM value.
func BandForBPM(bpm float64) TempoBand {
	switch {
	case bpm < 90:
		return BandSlow
	case bpm < 120:
		return BandModerate
	default:
		return BandFast
	}
}

// GapPolicy holds the gap/fermata thresholds for one tempo band.
//
// RequireBoth selects the threshold combinator: when true a candidate gap
// must exceed MinGapBeats AND MinGapSeconds; when false either condition
// flags it. Fast tempos use the stricter AND so that ordinary long note
// values (two bars of a held chord at 160 BPM) don't flag as pauses.
type GapPolicy struct {
	MinGapBeats       float64 `json:"min_gap_beats"`
	MinGapSeconds     float64 `json:"min_gap_seconds"`
	RequireBoth       bool    `json:"require_both"`
	MinFermataSeconds float64 `json:"min_fermata_seconds"`
	MaxFermataSeconds float64 `json:"max_fermata_seconds"`
	MaxGapRMS         float64 `json:"max_gap_rms"`
	ContextQuietRatio float64 `json:"context_quiet_ratio"` // gap RMS must be below ratio x surrounding RMS
	MergeBeats        float64 `json:"merge_beats"`         // candidates closer than this many beats merge
}

// DefaultGapPolicies returns the per-band gap policy table.
func DefaultGapPolicies() map[TempoBand]GapPolicy {
	return map[TempoBand]GapPolicy{
		BandSlow: {
			MinGapBeats:       2.0,
			MinGapSeconds:     2.0,
			RequireBoth:       false,
			MinFermataSeconds: 1.0,
			MaxFermataSeconds: 10.0,
			MaxGapRMS:         0.02,
			ContextQuietRatio: 0.5,
			MergeBeats:        2.0,
		},
		BandModerate: {
			MinGapBeats:       2.5,
			MinGapSeconds:     1.6,
			RequireBoth:       false,
			MinFermataSeconds: 0.9,
			MaxFermataSeconds: 8.0,
			MaxGapRMS:         0.02,
			ContextQuietRatio: 0.4,
			MergeBeats:        2.0,
		},
		BandFast: {
			MinGapBeats:       2.5,
			MinGapSeconds:     1.5,
			RequireBoth:       true,
			MinFermataSeconds: 0.8,
			MaxFermataSeconds: 8.0,
			MaxGapRMS:         0.02,
			ContextQuietRatio: 0.4,
			MergeBeats:        2.0,
		},
	}
}

// Config is the top-level analysis configuration.
type Config struct {
	BeatsPerMeasure int `json:"beats_per_measure"`

	// Octave handling
	CanonicalBandLow  float64 `json:"canonical_band_low"`  // normalization band floor
	CanonicalBandHigh float64 `json:"canonical_band_high"` // normalization band ceiling (exclusive)
	DisplayBandLow    float64 `json:"display_band_low"`    // below this the consensus doubles
	DisplayBandHigh   float64 `json:"display_band_high"`   // above this the consensus halves

	// Ensemble clustering
	ClusterRelTolerance float64 `json:"cluster_rel_tolerance"`

	// Beat grid
	TickClusterFrac    float64 `json:"tick_cluster_frac"`    // cluster width as fraction of beat interval
	ClusterSupportFrac float64 `json:"cluster_support_frac"` // min estimator support to keep a cluster
	ClusterConfSupport float64 `json:"cluster_conf_support"` // or min total confidence
	GapFillFactor      float64 `json:"gap_fill_factor"`      // fill grid gaps wider than this many intervals
	SnapWindowSec      float64 `json:"snap_window_sec"`

	// Resync
	ResyncMinShift float64 `json:"resync_min_shift"` // seconds

	// Downbeat alignment
	DownbeatMinConfidence float64 `json:"downbeat_min_confidence"`
	DownbeatMinScore      float64 `json:"downbeat_min_score"`

	// Characteristics
	DifficultConfidenceCap float64 `json:"difficult_confidence_cap"`

	// Intro fermata recovery (slow band only)
	IntroRecoveryWindowSec float64 `json:"intro_recovery_window_sec"`
	IntroRecoveryRelax     float64 `json:"intro_recovery_relax"`

	OnsetPresets map[OnsetPreset]OnsetSettings `json:"onset_presets"`
	GapPolicies  map[TempoBand]GapPolicy       `json:"gap_policies"`
}

// Default returns the default analysis configuration.
func Default() *Config {
	return &Config{
		BeatsPerMeasure:        4,
		CanonicalBandLow:       70,
		CanonicalBandHigh:      140,
		DisplayBandLow:         80,
		DisplayBandHigh:        200,
		ClusterRelTolerance:    0.05,
		TickClusterFrac:        0.12,
		ClusterSupportFrac:     0.40,
		ClusterConfSupport:     0.8,
		GapFillFactor:          1.5,
		SnapWindowSec:          0.05,
		ResyncMinShift:         0.1,
		DownbeatMinConfidence:  0.4,
		DownbeatMinScore:       0.3,
		DifficultConfidenceCap: 0.6,
		IntroRecoveryWindowSec: 25.0,
		IntroRecoveryRelax:     0.6,
		OnsetPresets:           DefaultOnsetPresets(),
		GapPolicies:            DefaultGapPolicies(),
	}
}

// Sanitize defensively defaults inconsistent values in place. Inconsistent
// configuration should not occur, so nothing is reported beyond the repair.
func (c *Config) Sanitize() {
	d := Default()

	if c.BeatsPerMeasure <= 0 {
		c.BeatsPerMeasure = d.BeatsPerMeasure
	}
	if c.CanonicalBandLow <= 0 || c.CanonicalBandHigh <= c.CanonicalBandLow {
		c.CanonicalBandLow = d.CanonicalBandLow
		c.CanonicalBandHigh = d.CanonicalBandHigh
	}
	if c.DisplayBandLow <= 0 || c.DisplayBandHigh <= c.DisplayBandLow {
		c.DisplayBandLow = d.DisplayBandLow
		c.DisplayBandHigh = d.DisplayBandHigh
	}
	if c.ClusterRelTolerance <= 0 || c.ClusterRelTolerance >= 1 {
		c.ClusterRelTolerance = d.ClusterRelTolerance
	}
	if c.TickClusterFrac <= 0 || c.TickClusterFrac >= 1 {
		c.TickClusterFrac = d.TickClusterFrac
	}
	if c.ClusterSupportFrac <= 0 || c.ClusterSupportFrac > 1 {
		c.ClusterSupportFrac = d.ClusterSupportFrac
	}
	if c.GapFillFactor <= 1 {
		c.GapFillFactor = d.GapFillFactor
	}
	if c.SnapWindowSec <= 0 {
		c.SnapWindowSec = d.SnapWindowSec
	}
	if c.ResyncMinShift <= 0 {
		c.ResyncMinShift = d.ResyncMinShift
	}
	if c.DifficultConfidenceCap <= 0 || c.DifficultConfidenceCap > 1 {
		c.DifficultConfidenceCap = d.DifficultConfidenceCap
	}
	if len(c.OnsetPresets) == 0 {
		c.OnsetPresets = d.OnsetPresets
	}
	if len(c.GapPolicies) == 0 {
		c.GapPolicies = d.GapPolicies
	}
}

// Preset returns the settings for a preset, defaulting to the tempo preset
// when the name is unknown.
func (c *Config) Preset(name OnsetPreset) OnsetSettings {
	if s, ok := c.OnsetPresets[name]; ok {
		return s
	}
	return DefaultOnsetPresets()[PresetTempo]
}

// PolicyForBPM returns the gap policy for the tempo band containing bpm.
func (c *Config) PolicyForBPM(bpm float64) GapPolicy {
	band := BandForBPM(bpm)
	if p, ok := c.GapPolicies[band]; ok {
		return p
	}
	return DefaultGapPolicies()[band]
}
