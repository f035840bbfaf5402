package beat

import (
	"fmt"
)

// BuildRegions lays out contiguous tempo regions over the musical span:
// steady stretches at the consensus BPM, interrupted by fermata holds for
// each validated gap. The held note's nominal duration ends one beat after
// its onset, so a fermata region starts one beat interval into the gap.
func BuildRegions(bounds Boundaries, bpm, bpmConfidence float64, gaps []ValidatedGap) []TempoRegion {
	if bounds.MusicEnd <= bounds.MusicStart {
		return nil
	}

	interval := 0.0
	if bpm > 0 {
		interval = 60.0 / bpm
	}

	var regions []TempoRegion
	cursor := bounds.MusicStart

	addSteady := func(start, end float64) {
		if end-start <= 1e-9 {
			return
		}
		b := bpm
		regions = append(regions, TempoRegion{
			StartTime:   start,
			EndTime:     end,
			Type:        RegionSteady,
			BPM:         &b,
			Confidence:  bpmConfidence,
			Description: fmt.Sprintf("steady %.1f BPM", bpm),
		})
	}

	for _, g := range gaps {
		fermStart := g.GapStart + interval
		fermEnd := g.GapEnd

		if fermStart < cursor {
			fermStart = cursor
		}
		if fermEnd > bounds.MusicEnd {
			fermEnd = bounds.MusicEnd
		}
		if fermEnd-fermStart <= 1e-9 {
			continue
		}

		addSteady(cursor, fermStart)
		regions = append(regions, TempoRegion{
			StartTime:   fermStart,
			EndTime:     fermEnd,
			Type:        RegionFermata,
			Confidence:  g.Confidence,
			Description: fmt.Sprintf("fermata hold, %.1fs", fermEnd-fermStart),
		})
		cursor = fermEnd
	}

	addSteady(cursor, bounds.MusicEnd)

	for i := range regions {
		regions[i].ID = i + 1
	}
	return regions
}

// UpdateSteadyBPM returns a copy of the regions with every steady region's
// BPM replaced. Fermata and rubato regions pass through untouched.
func UpdateSteadyBPM(regions []TempoRegion, bpm float64) []TempoRegion {
	out := make([]TempoRegion, len(regions))
	copy(out, regions)
	for i := range out {
		if out[i].Type == RegionSteady {
			b := bpm
			out[i].BPM = &b
			out[i].Description = fmt.Sprintf("steady %.1f BPM", bpm)
		}
	}
	return out
}
