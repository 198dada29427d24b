package anchor

import (
	"math"
	"math/rand"
	"sort"

	"github.com/grailbio/base/log"
	"gonum.org/v1/gonum/floats"
)

// Outcome is the result of the testing stage.
type Outcome int

const (
	// Significant means at least one anchor passed both filters.
	Significant Outcome = iota
	// NoAnchors means the registry was empty.
	NoAnchors
	// NoTests means no direction had enough observations to be tested.
	NoTests
	// NoSignificantPValues means no anchor passed the p-value filter.
	NoSignificantPValues
	// NoSignificantQValues means no anchor passed the q-value filter.
	NoSignificantQValues
)

var outcomeNames = []string{
	Significant:          "significant",
	NoAnchors:            "no anchors",
	NoTests:              "no tests",
	NoSignificantPValues: "no significant p-values",
	NoSignificantQValues: "no significant q-values",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// TestSummary describes one testing stage.
type TestSummary struct {
	// Null[j] is the probability of diversity growth at observation j.
	Null []float64
	// Tests is the number of directions scored.
	Tests int
	// PSignificant and QSignificant are the numbers of anchors that passed
	// the p-value and q-value filters.
	PSignificant, QSignificant int
}

// Tester fits the null model and tests the anchors of a registry.
type Tester struct {
	opts Opts
	rng  *rand.Rand
}

// NewTester creates a tester. rng draws the null sample.
func NewTester(opts Opts, rng *rand.Rand) *Tester {
	return &Tester{opts: opts, rng: rng}
}

// FitNull estimates the probability of diversity growth at each observation
// index. It draws NullBatchSize anchors uniformly with replacement; each
// distinct drawn anchor contributes once. Position j of the returned vector
// is the fraction of sampled flanks that grew at observation j, with a
// pseudo-count of one in the denominator so positions no flank reached are 0.
func (t *Tester) FitNull(reg *Registry) []float64 {
	growth := make([]float64, t.opts.MaxSampleSize)
	totals := make([]float64, t.opts.MaxSampleSize)
	for i := range totals {
		totals[i] = 1
	}
	if reg.Len() == 0 {
		return growth
	}
	drawn := make(map[int]bool)
	for i := 0; i < t.opts.NullBatchSize; i++ {
		drawn[t.rng.Intn(reg.Len())] = true
	}
	idx := make([]int, 0, len(drawn))
	for i := range drawn {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		a := reg.At(i)
		for _, d := range directions {
			f := &a.Flanks[d]
			if f.Count == 0 {
				continue
			}
			for j, g := range f.Growth {
				if j >= len(totals) {
					break
				}
				totals[j]++
				if g {
					growth[j]++
				}
			}
		}
	}
	floats.Div(growth, totals)
	return growth
}

// Score tests every direction with more than MinSampleSize observations
// against the null vector and returns the number of directions tested. The
// log-fold-change compares the observed number of growth events with the
// sum of null probabilities over the same positions; the p-value is the
// Poisson-Binomial upper tail. Both are floored at machine epsilon.
func (t *Tester) Score(reg *Registry, null []float64) (int, error) {
	dists := map[int]*PoiBin{}
	tests := 0
	for _, a := range reg.anchors {
		for _, d := range directions {
			f := &a.Flanks[d]
			f.Test = nil
			if f.Count <= t.opts.MinSampleSize {
				continue
			}
			k := len(f.Growth)
			if k > len(null) {
				k = len(null)
			}
			pb, ok := dists[k]
			if !ok {
				var err error
				if pb, err = NewPoiBin(null[:k]); err != nil {
					return 0, err
				}
				dists[k] = pb
			}
			observed := 0
			for _, g := range f.Growth[:k] {
				if g {
					observed++
				}
			}
			expected := floats.Sum(null[:k])
			f.Test = &TestResult{
				Observed:      observed,
				Trials:        k,
				LogFoldChange: math.Log2(math.Max(float64(observed), eps)) - math.Log2(math.Max(expected, eps)),
				PValue:        math.Max(pb.PValue(observed), eps),
			}
			tests++
		}
	}
	return tests, nil
}

type pooledTest struct {
	anchor int
	dir    Direction
	p      float64
}

// Correct assigns q-values to every tested direction of the registry. All
// p-values are pooled and sorted ascending (ties keep registry order, up
// before down); the value of rank r (0-based) becomes
// min(1, p*tests/(r+1)).
func (t *Tester) Correct(reg *Registry, tests int) {
	var pool []pooledTest
	for i, a := range reg.anchors {
		for _, d := range directions {
			if test := a.Flanks[d].Test; test != nil {
				pool = append(pool, pooledTest{i, d, test.PValue})
			}
		}
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].p < pool[j].p })
	for rank, pt := range pool {
		test := reg.anchors[pt.anchor].Flanks[pt.dir].Test
		test.QValue = math.Min(1, pt.p*float64(tests)/float64(rank+1))
		test.Corrected = true
	}
}

// FilterByPValue keeps the anchors whose better direction has a p-value
// <= threshold and returns how many were kept.
func FilterByPValue(reg *Registry, threshold float64) int {
	reg.Retain(func(a *Anchor) bool {
		p, ok := a.BestPValue()
		return ok && p <= threshold
	})
	return reg.Len()
}

// FilterByQValue keeps the anchors whose better direction has a q-value
// <= threshold and returns how many were kept.
func FilterByQValue(reg *Registry, threshold float64) int {
	reg.Retain(func(a *Anchor) bool {
		q, ok := a.BestQValue()
		return ok && q <= threshold
	})
	return reg.Len()
}

// Run fits the null model, scores, filters by p-value, corrects and filters
// by q-value. Anchors that fail a filter are removed from reg.
func (t *Tester) Run(reg *Registry) (Outcome, TestSummary, error) {
	var s TestSummary
	if reg.Len() == 0 {
		return NoAnchors, s, nil
	}
	s.Null = t.FitNull(reg)
	tests, err := t.Score(reg, s.Null)
	if err != nil {
		return NoTests, s, err
	}
	s.Tests = tests
	log.Printf("tester: %d directions tested over %d anchors", tests, reg.Len())
	if tests == 0 {
		return NoTests, s, nil
	}
	s.PSignificant = FilterByPValue(reg, t.opts.QThreshold)
	log.Printf("tester: %d anchors with p-value <= %v", s.PSignificant, t.opts.QThreshold)
	if s.PSignificant == 0 {
		return NoSignificantPValues, s, nil
	}
	t.Correct(reg, tests)
	s.QSignificant = FilterByQValue(reg, t.opts.QThreshold)
	log.Printf("tester: %d anchors with q-value <= %v", s.QSignificant, t.opts.QThreshold)
	if s.QSignificant == 0 {
		return NoSignificantQValues, s, nil
	}
	return Significant, s, nil
}
