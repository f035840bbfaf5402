package estimators

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/RyanBlaney/ritmo/algorithms/common"
)

// AutodiffEstimator estimates tempo with the bpm-tools autodifference scan:
// decimate the signal into an attack/decay energy envelope, then probe
// candidate beat intervals and keep the one where energy at beat multiples
// matches best and at off-beat fractions matches worst.
type AutodiffEstimator struct {
	seed int64
}

const (
	autodiffDecimate = 128  // samples per envelope point
	autodiffSteps    = 1024 // candidate intervals scanned
	autodiffProbes   = 1024 // random probes per candidate
	autodiffAttack   = 8.0  // envelope attack divisor
	autodiffDecay    = 512.0
	autodiffMinBPM   = 50.0
	autodiffMaxBPM   = 200.0
)

var (
	autodiffBeats   = [...]float64{-32, -16, -8, -4, -2, -1, 1, 2, 4, 8, 16, 32}
	autodiffNobeats = [...]float64{-0.5, -0.25, 0.25, 0.5}
)

// NewAutodiffEstimator creates a new autodifference tempo estimator with a
// fixed probe seed so results are reproducible.
func NewAutodiffEstimator() *AutodiffEstimator {
	return &AutodiffEstimator{seed: 42}
}

func (de *AutodiffEstimator) Name() string {
	return "autodiff"
}

// Estimate runs the interval scan. It produces a BPM but no beat ticks;
// autodifference only finds the period, not the phase.
func (de *AutodiffEstimator) Estimate(signal []float64, sampleRate int) (*TempoEstimate, error) {
	if len(signal) == 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("empty signal")
	}

	nrg := de.envelope(signal)
	if len(nrg) < autodiffDecimate {
		return nil, fmt.Errorf("signal too short for autodifference scan")
	}

	peak := 0.0
	for _, v := range nrg {
		if v > peak {
			peak = v
		}
	}
	if peak < 1e-9 {
		return nil, fmt.Errorf("silent signal")
	}

	rng := rand.New(rand.NewSource(de.seed))

	imin := de.bpmToInterval(autodiffMinBPM, sampleRate)
	imax := de.bpmToInterval(autodiffMaxBPM, sampleRate)
	step := (imin - imax) / float64(autodiffSteps)

	scores := make([]float64, 0, autodiffSteps+1)
	trough := math.NaN()
	best := math.Inf(1)

	for interval := imax; interval <= imin; interval += step {
		var t float64
		for p := 0; p < autodiffProbes; p++ {
			t += de.autodifference(nrg, rng, interval)
		}

		scores = append(scores, t)
		if t < best {
			best = t
			trough = interval
		}
	}

	if math.IsNaN(trough) {
		return nil, fmt.Errorf("autodifference scan found no trough")
	}

	median := common.Median(scores)
	spread := median - best
	confidence := 0.0
	if math.Abs(median) > 1e-12 {
		confidence = common.Clamp(spread/math.Abs(median), 0, 1)
	}

	return &TempoEstimate{
		Algorithm:  de.Name(),
		BPM:        de.intervalToBPM(trough, sampleRate),
		Confidence: confidence,
	}, nil
}

// envelope decimates the signal with a fast-attack, slow-decay follower
func (de *AutodiffEstimator) envelope(signal []float64) []float64 {
	res := make([]float64, 0, len(signal)/autodiffDecimate+1)

	var v float64
	n := 0

	for _, s := range signal {
		z := math.Abs(s)
		if z > v {
			v += (z - v) / autodiffAttack
		} else {
			v -= (v - z) / autodiffDecay
		}

		n++
		if n == autodiffDecimate {
			n = 0
			res = append(res, v)
		}
	}

	return res
}

func (de *AutodiffEstimator) autodifference(nrg []float64, rng *rand.Rand, interval float64) float64 {
	mid := rng.Float64() * float64(len(nrg))
	v := de.sample(nrg, mid)

	var diff, total float64

	for _, b := range autodiffBeats {
		y := de.sample(nrg, mid+b*interval)
		w := 1.0 / math.Abs(b)
		diff += w * math.Abs(y-v)
		total += w
	}

	for _, b := range autodiffNobeats {
		y := de.sample(nrg, mid+b*interval)
		w := math.Abs(b)
		diff -= w * math.Abs(y-v)
		total += w
	}

	return diff / total
}

func (de *AutodiffEstimator) sample(nrg []float64, offset float64) float64 {
	n := math.Floor(offset)
	if n >= 0.0 && n < float64(len(nrg)) {
		return nrg[int(n)]
	}
	return 0.0
}

func (de *AutodiffEstimator) bpmToInterval(bpm float64, sampleRate int) float64 {
	beatsPerSecond := bpm / 60
	samplesPerBeat := float64(sampleRate) / beatsPerSecond
	return samplesPerBeat / autodiffDecimate
}

func (de *AutodiffEstimator) intervalToBPM(interval float64, sampleRate int) float64 {
	samplesPerBeat := interval * autodiffDecimate
	beatsPerSecond := float64(sampleRate) / samplesPerBeat
	return beatsPerSecond * 60
}
