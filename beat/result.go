// Package beat analyzes a mono audio signal for tempo, beat grid, musical
// boundaries, and tempo structure such as fermatas.
package beat

// ConfidenceLevel is the coarse reliability label attached to a result.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// RegionType classifies a tempo region.
type RegionType string

const (
	RegionSteady  RegionType = "steady"
	RegionFermata RegionType = "fermata"
	RegionRubato  RegionType = "rubato"
)

// TempoRegion is a time span with a distinct tempo character. BPM is nil for
// regions where no pulse applies, such as a fermata hold.
type TempoRegion struct {
	ID          int        `json:"id"`
	StartTime   float64    `json:"start_time"`
	EndTime     float64    `json:"end_time"`
	Type        RegionType `json:"type"`
	BPM         *float64   `json:"bpm,omitempty"`
	Confidence  float64    `json:"confidence"`
	Description string     `json:"description,omitempty"`
}

// GapCandidate is a stretch of the beat grid where expected beats are
// missing, before gap validation has accepted or rejected it.
type GapCandidate struct {
	GapStart float64 `json:"gap_start"` // last beat before the gap
	GapEnd   float64 `json:"gap_end"`   // first beat after the gap
}

// Result is the full outcome of a beat analysis.
type Result struct {
	BPM             float64         `json:"bpm"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Beats           []float64       `json:"beats"`
	MusicStartTime  float64         `json:"music_start_time"`
	MusicEndTime    float64         `json:"music_end_time"`
	Offset          float64         `json:"offset"` // first downbeat
	Warnings        []string        `json:"warnings,omitempty"`

	TempoRegions     []TempoRegion  `json:"tempo_regions,omitempty"`
	HasTempoVariance bool           `json:"has_tempo_variance"`
	DetectedGaps     []GapCandidate `json:"detected_gaps,omitempty"`
}

// BeatInterval returns the nominal seconds between beats, or zero when the
// result carries no tempo.
func (r *Result) BeatInterval() float64 {
	if r.BPM <= 0 {
		return 0
	}
	return 60.0 / r.BPM
}
