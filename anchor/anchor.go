// Package anchor detects anchors: fixed-length substrings of sequencing reads
// whose adjacent sequence (the upstream or downstream flank) is unusually
// diverse. Reads are streamed once; each anchor keeps a bounded record of the
// distinct flanks observed after it, and the rate at which new flanks keep
// appearing is tested against a Poisson-Binomial null model fitted on the
// anchors themselves. Significant anchors are clustered by edit distance and
// each cluster is assembled into a consensus sequence.
package anchor

import "math"

// Direction selects one of the two flanks of an anchor.
type Direction int

const (
	// Up is the flank that precedes the anchor in the read.
	Up Direction = iota
	// Down is the flank that follows the anchor in the read.
	Down
)

var directions = [2]Direction{Up, Down}

// String returns "u" or "d", as used in the target dump.
func (d Direction) String() string {
	if d == Up {
		return "u"
	}
	return "d"
}

// TestResult is the outcome of testing one anchor direction.
type TestResult struct {
	// Observed is the number of growth events among the first Trials
	// observations.
	Observed int
	Trials   int
	// LogFoldChange is log2(observed/expected).
	LogFoldChange float64
	PValue        float64
	// QValue is set iff Corrected.
	QValue    float64
	Corrected bool
}

// Flank accumulates the observations of one anchor direction.
type Flank struct {
	// Done is set once Count reaches the maximum sample size.
	Done bool
	// Lookahead is the distance between the anchor and this flank.
	Lookahead int
	// Count is the number of flank observations.
	Count     int
	Diversity Diversity
	// Growth[j] is true iff observation j introduced a new representative.
	// len(Growth) == Count.
	Growth []bool
	// Test is nil until the direction is scored.
	Test *TestResult
}

// Growths returns the number of growth events.
func (f *Flank) Growths() int {
	n := 0
	for _, g := range f.Growth {
		if g {
			n++
		}
	}
	return n
}

// Anchor is a registry entry.
type Anchor struct {
	Seq    string
	Flanks [2]Flank
}

// Flank returns the flank for the given direction.
func (a *Anchor) Flank(d Direction) *Flank { return &a.Flanks[d] }

// MaxCount returns the larger of the two flank counts.
func (a *Anchor) MaxCount() int {
	if a.Flanks[Up].Count > a.Flanks[Down].Count {
		return a.Flanks[Up].Count
	}
	return a.Flanks[Down].Count
}

// BestPValue returns the smaller p-value over the tested directions. ok is
// false if neither direction was tested.
func (a *Anchor) BestPValue() (p float64, ok bool) {
	return a.best(func(t *TestResult) (float64, bool) { return t.PValue, true })
}

// BestQValue returns the smaller q-value over the corrected directions.
func (a *Anchor) BestQValue() (q float64, ok bool) {
	return a.best(func(t *TestResult) (float64, bool) { return t.QValue, t.Corrected })
}

func (a *Anchor) best(value func(*TestResult) (float64, bool)) (float64, bool) {
	best, ok := math.Inf(1), false
	for _, d := range directions {
		t := a.Flanks[d].Test
		if t == nil {
			continue
		}
		if v, valid := value(t); valid && v < best {
			best, ok = v, true
		}
	}
	return best, ok
}
