package estimators

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/ritmo/algorithms/common"
	"github.com/RyanBlaney/ritmo/logging"
)

// Agreement classifies how strongly the ensemble members back the consensus.
type Agreement string

const (
	AgreementStrong   Agreement = "strong"
	AgreementModerate Agreement = "moderate"
	AgreementWeak     Agreement = "weak"
)

// EnsembleResult is the merged tempo verdict of all estimators.
type EnsembleResult struct {
	ConsensusBPM float64          `json:"consensus_bpm"`
	Confidence   float64          `json:"confidence"`
	Agreement    Agreement        `json:"agreement"`
	Estimates    []*TempoEstimate `json:"estimates"`
	BestBeats    []float64        `json:"-"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// Ensemble runs several tempo estimators and merges their votes. Members
// that fail or panic are dropped; the rest vote in a common octave band so
// half- and double-tempo answers still count toward the same cluster.
type Ensemble struct {
	estimators []TempoEstimator

	canonicalLow  float64
	canonicalHigh float64
	displayLow    float64
	displayHigh   float64
	clusterTol    float64

	logger logging.Logger
}

// NewEnsemble creates an ensemble over the default estimator set.
func NewEnsemble() *Ensemble {
	return NewEnsembleWith(DefaultEstimators())
}

// NewEnsembleWith creates an ensemble over an explicit estimator set.
func NewEnsembleWith(members []TempoEstimator) *Ensemble {
	return &Ensemble{
		estimators:    members,
		canonicalLow:  70.0,
		canonicalHigh: 140.0,
		displayLow:    80.0,
		displayHigh:   200.0,
		clusterTol:    0.05,
		logger:        logging.WithFields(logging.Fields{"component": "tempo_ensemble"}),
	}
}

// SetBands overrides the canonical voting band and the display band.
func (e *Ensemble) SetBands(canonLow, canonHigh, dispLow, dispHigh float64) {
	if canonHigh > canonLow && canonLow > 0 {
		e.canonicalLow = canonLow
		e.canonicalHigh = canonHigh
	}
	if dispHigh > dispLow && dispLow > 0 {
		e.displayLow = dispLow
		e.displayHigh = dispHigh
	}
}

// SetClusterTolerance overrides the relative BPM distance that keeps two
// estimates in the same cluster.
func (e *Ensemble) SetClusterTolerance(tol float64) {
	if tol > 0 && tol < 1 {
		e.clusterTol = tol
	}
}

type clusterMember struct {
	estimate   *TempoEstimate
	normalized float64
	weight     float64
}

type cluster struct {
	members []clusterMember
	center  float64 // confidence-weighted mean of normalized BPMs
	weight  float64
}

// recenter recomputes the confidence-weighted mean of the members' normalized BPMs
func (c *cluster) recenter() {
	norms := make([]float64, len(c.members))
	weights := make([]float64, len(c.members))
	for i, m := range c.members {
		norms[i] = m.normalized
		weights[i] = m.weight
	}
	c.center = common.WeightedMean(norms, weights)
}

// Estimate runs every member and merges the survivors into a consensus. When
// every member fails it returns the 120 BPM fallback with zero confidence
// and a warning rather than an error.
func (e *Ensemble) Estimate(signal []float64, sampleRate int) *EnsembleResult {
	result := &EnsembleResult{}

	for _, est := range e.estimators {
		te := e.runMember(est, signal, sampleRate, result)
		if te == nil {
			continue
		}
		if te.BPM <= 0 || math.IsNaN(te.BPM) || math.IsInf(te.BPM, 0) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("estimator %s returned unusable BPM", est.Name()))
			continue
		}
		result.Estimates = append(result.Estimates, te)
	}

	if len(result.Estimates) == 0 {
		result.ConsensusBPM = 120.0
		result.Confidence = 0.0
		result.Agreement = AgreementWeak
		result.Warnings = append(result.Warnings,
			"all tempo estimators failed; assuming 120 BPM")
		return result
	}

	clusters := e.clusterEstimates(result.Estimates)
	winner := e.pickWinner(clusters)

	result.Agreement = e.classifyAgreement(winner, len(result.Estimates))
	result.ConsensusBPM = e.nudgeToDisplayBand(winner.center)
	result.Confidence = e.clusterConfidence(winner, len(result.Estimates))
	result.BestBeats = e.bestBeats(winner)

	e.logger.Debug("tempo consensus", logging.Fields{
		"bpm":        result.ConsensusBPM,
		"confidence": result.Confidence,
		"agreement":  result.Agreement,
		"estimates":  len(result.Estimates),
	})

	return result
}

// runMember isolates one estimator so a panic cannot take down the ensemble
func (e *Ensemble) runMember(est TempoEstimator, signal []float64, sampleRate int, result *EnsembleResult) (te *TempoEstimate) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("tempo estimator panicked", logging.Fields{
				"estimator": est.Name(),
				"panic":     fmt.Sprint(r),
			})
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("estimator %s panicked", est.Name()))
			te = nil
		}
	}()

	te, err := est.Estimate(signal, sampleRate)
	if err != nil {
		e.logger.Debug("tempo estimator failed", logging.Fields{
			"estimator": est.Name(),
			"error":     err.Error(),
		})
		return nil
	}
	return te
}

// clusterEstimates greedily groups octave-normalized BPMs whose relative
// distance to a cluster center stays within the tolerance.
func (e *Ensemble) clusterEstimates(estimates []*TempoEstimate) []*cluster {
	var clusters []*cluster

	for _, te := range estimates {
		norm := NormalizeToBand(te.BPM, e.canonicalLow, e.canonicalHigh)
		if norm <= 0 {
			continue
		}

		var home *cluster
		for _, c := range clusters {
			if math.Abs(norm-c.center)/c.center <= e.clusterTol {
				home = c
				break
			}
		}

		w := te.Confidence
		if w <= 0 {
			w = 0.05 // zero-confidence votes still count a little
		}

		if home == nil {
			clusters = append(clusters, &cluster{
				members: []clusterMember{{estimate: te, normalized: norm, weight: w}},
				center:  norm,
				weight:  w,
			})
			continue
		}

		home.members = append(home.members, clusterMember{estimate: te, normalized: norm, weight: w})
		home.weight += w
		home.recenter()
	}

	return clusters
}

// pickWinner selects the cluster with the highest confidence-weighted support
func (e *Ensemble) pickWinner(clusters []*cluster) *cluster {
	var winner *cluster
	for _, c := range clusters {
		if winner == nil || c.weight > winner.weight {
			winner = c
		}
	}
	return winner
}

func (e *Ensemble) classifyAgreement(winner *cluster, total int) Agreement {
	if winner == nil || total == 0 {
		return AgreementWeak
	}

	n := len(winner.members)
	frac := float64(n) / float64(total)

	switch {
	case frac >= 0.75 && n >= 3:
		return AgreementStrong
	case frac >= 0.5 || n >= 2:
		return AgreementModerate
	default:
		return AgreementWeak
	}
}

// nudgeToDisplayBand moves a canonical-band BPM by octaves until it sits in
// the range people expect to read.
func (e *Ensemble) nudgeToDisplayBand(bpm float64) float64 {
	for bpm > 0 && bpm < e.displayLow {
		bpm *= 2
	}
	for bpm > e.displayHigh {
		bpm /= 2
	}
	return bpm
}

func (e *Ensemble) clusterConfidence(winner *cluster, total int) float64 {
	if winner == nil || total == 0 {
		return 0
	}

	var sum, weight float64
	for _, m := range winner.members {
		sum += m.estimate.Confidence * m.estimate.Confidence
		weight += m.estimate.Confidence
	}

	mean := 0.0
	if weight > 0 {
		mean = sum / weight
	}

	frac := float64(len(winner.members)) / float64(total)
	conf := mean * frac
	if conf > 1 {
		conf = 1
	}
	return conf
}

// bestBeats returns the tick list of the most confident winning member that
// produced one.
func (e *Ensemble) bestBeats(winner *cluster) []float64 {
	if winner == nil {
		return nil
	}

	var best *TempoEstimate
	for _, m := range winner.members {
		if len(m.estimate.Beats) == 0 {
			continue
		}
		if best == nil || m.estimate.Confidence > best.Confidence {
			best = m.estimate
		}
	}
	if best == nil {
		return nil
	}
	return best.Beats
}
