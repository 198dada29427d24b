package anchor

import (
	"math"

	"github.com/grailbio/base/log"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// admissionCloseProbability is the probability, under the minimal
	// abundance of a testable anchor, of having already seen such an anchor,
	// above which admission of new anchors closes.
	admissionCloseProbability = 0.99
	// keepThreshold is the minimum predicted probability of reaching the
	// minimum sample size for an anchor to survive a prune.
	keepThreshold = 0.5
)

// Decide reports whether an anchor observed x times in the first n reads is
// predicted to be observed more than minSampleSize times over total reads
// with probability >= threshold. The per-read rate is estimated as x/n and
// clamped to [0,1]. With exact set, the binomial tail is computed exactly;
// otherwise it uses a normal approximation. n == 0 always keeps.
func Decide(x, n, total, minSampleSize int, threshold float64, exact bool) bool {
	if n <= 0 {
		return true
	}
	p := math.Min(math.Max(float64(x)/float64(n), 0), 1)
	var prob float64
	if exact {
		prob = 1 - distuv.Binomial{N: float64(total), P: p}.CDF(float64(minSampleSize))
	} else {
		mean := float64(total) * p
		z := (float64(minSampleSize) - mean) / math.Sqrt(0.01+mean*(1-p))
		prob = 1 - distuv.UnitNormal.CDF(z)
	}
	return prob >= threshold
}

// Oracle bounds the registry size during the streaming pass. It closes
// admission once any anchor abundant enough to be tested has almost surely
// been seen, then periodically discards anchors unlikely to reach the
// minimum sample size.
type Oracle struct {
	opts  Opts
	reg   *Registry
	ext   *Extractor
	total int
	minP  float64

	// ClosedAt is the read count at which admission closed, or 0.
	ClosedAt int
	// Prunes counts prune passes.
	Prunes int
	// Removed counts anchors discarded over all prune passes.
	Removed int
}

// NewOracle creates an oracle for a stream of total reads.
func NewOracle(reg *Registry, ext *Extractor, total int, opts Opts) *Oracle {
	minP := 1.0
	if total > 0 {
		minP = math.Min(float64(opts.MinSampleSize)/float64(total), 1)
	}
	return &Oracle{opts: opts, reg: reg, ext: ext, total: total, minP: minP}
}

// Checkpoint must be called after each read, nSoFar being the number of
// reads processed. It returns the number of anchors removed.
func (o *Oracle) Checkpoint(nSoFar int) int {
	if !o.ext.AdmissionClosed() {
		if nSoFar%o.opts.AdmissionCheckInterval != 0 {
			return 0
		}
		if 1-math.Pow(1-o.minP, float64(nSoFar)) <= admissionCloseProbability {
			return 0
		}
		o.ext.CloseAdmission()
		o.ClosedAt = nSoFar
		log.Printf("oracle: admission closed after %d reads with %d anchors", nSoFar, o.reg.Len())
		return o.Prune(nSoFar)
	}
	if nSoFar%o.opts.PruneInterval == 0 {
		return o.Prune(nSoFar)
	}
	return 0
}

// Prune discards the anchors whose larger flank count does not predict
// reaching the minimum sample size. It returns the number removed.
func (o *Oracle) Prune(nSoFar int) int {
	removed := o.reg.Retain(func(a *Anchor) bool {
		return Decide(a.MaxCount(), nSoFar, o.total, o.opts.MinSampleSize, keepThreshold, o.opts.ExactOracle)
	})
	o.Prunes++
	o.Removed += removed
	log.Printf("oracle: discarded %d anchors at read %d, %d kept", removed, nSoFar, o.reg.Len())
	return removed
}
