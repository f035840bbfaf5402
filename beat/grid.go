package beat

import (
	"math"
	"sort"

	"github.com/RyanBlaney/ritmo/beat/config"
	"github.com/RyanBlaney/ritmo/beat/estimators"
)

// GridBuilder turns the estimators' raw beat ticks plus the consensus BPM
// into one strictly increasing beat grid covering the musical span.
type GridBuilder struct {
	cfg *config.Config
}

// NewGridBuilder creates a grid builder using the given analysis config.
func NewGridBuilder(cfg *config.Config) *GridBuilder {
	if cfg == nil {
		cfg = config.Default()
	}
	return &GridBuilder{cfg: cfg}
}

type pooledTick struct {
	time   float64
	weight float64
	source int
}

type tickCluster struct {
	center  float64
	weight  float64
	sources map[int]struct{}
}

// Build pools every raw tick from every estimate, clusters agreeing ticks,
// fills holes with synthetic beats, and extends the grid across the whole
// span. With no ticks at all it falls back to a regular grid.
func (gb *GridBuilder) Build(estimates []*estimators.TempoEstimate, bpm float64, bounds Boundaries) []float64 {
	if bpm <= 0 {
		return nil
	}
	interval := 60.0 / bpm

	ticks := gb.poolTicks(estimates, bounds)
	if len(ticks) == 0 {
		return RegenerateGrid(bpm, bounds.MusicStart, bounds.MusicEnd)
	}

	clusters := gb.clusterTicks(ticks, interval)
	kept := gb.filterClusters(clusters, countTickSources(estimates))
	if len(kept) == 0 {
		return RegenerateGrid(bpm, bounds.MusicStart, bounds.MusicEnd)
	}

	beats := make([]float64, len(kept))
	for i, c := range kept {
		beats[i] = c.center
	}
	sort.Float64s(beats)

	beats = gb.fillGaps(beats, interval)
	beats = gb.extend(beats, interval, bounds)

	return enforceMonotonic(beats, 0.25*interval)
}

// Snap replaces each beat with the nearest onset inside the window. Beats
// with no nearby onset are left alone.
func (gb *GridBuilder) Snap(beats, onsets []float64) []float64 {
	if len(beats) == 0 || len(onsets) == 0 {
		return beats
	}
	window := gb.cfg.SnapWindowSec

	snapped := make([]float64, len(beats))
	for i, b := range beats {
		// onsets are sorted; find the insertion point
		j := sort.SearchFloat64s(onsets, b)
		best := b
		bestDist := window
		for _, k := range []int{j - 1, j} {
			if k < 0 || k >= len(onsets) {
				continue
			}
			if d := math.Abs(onsets[k] - b); d <= bestDist {
				bestDist = d
				best = onsets[k]
			}
		}
		snapped[i] = best
	}

	interval := math.Inf(1)
	if len(beats) > 1 {
		interval = (beats[len(beats)-1] - beats[0]) / float64(len(beats)-1)
	}
	return enforceMonotonic(snapped, 0.25*interval)
}

func (gb *GridBuilder) poolTicks(estimates []*estimators.TempoEstimate, bounds Boundaries) []pooledTick {
	var ticks []pooledTick
	for src, est := range estimates {
		if est == nil || len(est.Beats) == 0 {
			continue
		}
		w := est.Confidence
		if w <= 0 {
			w = 0.05
		}
		for _, t := range est.Beats {
			if t < bounds.MusicStart-0.1 || (bounds.MusicEnd > 0 && t > bounds.MusicEnd+0.1) {
				continue
			}
			ticks = append(ticks, pooledTick{time: t, weight: w, source: src})
		}
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].time < ticks[j].time })
	return ticks
}

// clusterTicks merges ticks whose distance to the running cluster center is
// within the configured fraction of a beat interval.
func (gb *GridBuilder) clusterTicks(ticks []pooledTick, interval float64) []*tickCluster {
	tol := gb.cfg.TickClusterFrac * interval

	var clusters []*tickCluster
	var cur *tickCluster

	for _, t := range ticks {
		if cur != nil && math.Abs(t.time-cur.center) <= tol {
			cur.center = (cur.center*cur.weight + t.time*t.weight) / (cur.weight + t.weight)
			cur.weight += t.weight
			cur.sources[t.source] = struct{}{}
			continue
		}
		cur = &tickCluster{
			center:  t.time,
			weight:  t.weight,
			sources: map[int]struct{}{t.source: {}},
		}
		clusters = append(clusters, cur)
	}

	return clusters
}

func (gb *GridBuilder) filterClusters(clusters []*tickCluster, tickSources int) []*tickCluster {
	if tickSources == 0 {
		return nil
	}

	kept := make([]*tickCluster, 0, len(clusters))
	for _, c := range clusters {
		support := float64(len(c.sources)) / float64(tickSources)
		if support >= gb.cfg.ClusterSupportFrac || c.weight > gb.cfg.ClusterConfSupport {
			kept = append(kept, c)
		}
	}
	return kept
}

// fillGaps inserts evenly spaced synthetic beats into any hole wider than
// the configured number of intervals.
func (gb *GridBuilder) fillGaps(beats []float64, interval float64) []float64 {
	if len(beats) < 2 {
		return beats
	}

	filled := make([]float64, 0, len(beats))
	filled = append(filled, beats[0])

	for i := 1; i < len(beats); i++ {
		gap := beats[i] - beats[i-1]
		if gap > gb.cfg.GapFillFactor*interval {
			n := int(math.Round(gap/interval)) - 1
			if n > 0 {
				step := gap / float64(n+1)
				for k := 1; k <= n; k++ {
					filled = append(filled, beats[i-1]+float64(k)*step)
				}
			}
		}
		filled = append(filled, beats[i])
	}

	return filled
}

// extend pads the grid with regular beats back to the music start and
// forward to the music end.
func (gb *GridBuilder) extend(beats []float64, interval float64, bounds Boundaries) []float64 {
	if len(beats) == 0 || interval <= 0 {
		return beats
	}

	var head []float64
	for t := beats[0] - interval; t >= bounds.MusicStart-0.25*interval; t -= interval {
		head = append(head, t)
	}
	// head was built walking backward
	for i, j := 0, len(head)-1; i < j; i, j = i+1, j-1 {
		head[i], head[j] = head[j], head[i]
	}

	out := append(head, beats...)

	if bounds.MusicEnd > 0 {
		for t := out[len(out)-1] + interval; t <= bounds.MusicEnd+0.25*interval; t += interval {
			out = append(out, t)
		}
	}

	for len(out) > 0 && out[0] < bounds.MusicStart-0.25*interval {
		out = out[1:]
	}
	for i := range out {
		if out[i] < 0 {
			out[i] = 0
		}
	}

	return out
}

// RegenerateGrid produces a perfectly even grid from (bpm, offset) to end.
// It is deterministic: the same inputs always give the same beats.
func RegenerateGrid(bpm, offset, end float64) []float64 {
	if bpm <= 0 || end <= offset {
		return nil
	}
	interval := 60.0 / bpm

	n := int((end-offset)/interval) + 1
	beats := make([]float64, 0, n)
	for i := 0; ; i++ {
		t := offset + float64(i)*interval
		if t > end+1e-9 {
			break
		}
		beats = append(beats, t)
	}
	return beats
}

// RegenerateCoveringGrid produces an even grid anchored at offset but
// extended backward so the whole musical span stays covered when the
// anchor sits after the music start.
func RegenerateCoveringGrid(bpm, offset, musicStart, musicEnd float64) []float64 {
	beats := RegenerateGrid(bpm, offset, musicEnd)
	if bpm <= 0 || len(beats) == 0 {
		return beats
	}
	interval := 60.0 / bpm

	var head []float64
	for t := offset - interval; t >= musicStart-0.25*interval; t -= interval {
		head = append(head, t)
	}
	for i, j := 0, len(head)-1; i < j; i, j = i+1, j-1 {
		head[i], head[j] = head[j], head[i]
	}
	for i := range head {
		if head[i] < 0 {
			head[i] = 0
		}
	}

	return append(head, beats...)
}

// ApplyGapShifts realigns an even grid across validated gaps: for each gap
// in order, every beat from the first one after the gap start is shifted so
// that beat lands on the gap end. Shifts below minShift are ignored;
// accepted shifts accumulate.
func ApplyGapShifts(beats []float64, gaps []GapCandidate, minShift float64) []float64 {
	if len(beats) == 0 || len(gaps) == 0 {
		return beats
	}

	out := make([]float64, len(beats))
	copy(out, beats)

	for _, g := range gaps {
		idx := -1
		for i, b := range out {
			if b > g.GapStart+1e-9 {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}

		shift := g.GapEnd - out[idx]
		if math.Abs(shift) < minShift {
			continue
		}
		for i := idx; i < len(out); i++ {
			out[i] += shift
		}
	}

	return out
}

func countTickSources(estimates []*estimators.TempoEstimate) int {
	n := 0
	for _, est := range estimates {
		if est != nil && len(est.Beats) > 0 {
			n++
		}
	}
	return n
}

// enforceMonotonic drops beats that crowd or precede their predecessor.
func enforceMonotonic(beats []float64, minSpacing float64) []float64 {
	if len(beats) < 2 {
		return beats
	}

	out := beats[:1]
	for _, b := range beats[1:] {
		if b-out[len(out)-1] >= minSpacing {
			out = append(out, b)
		}
	}
	return out
}
