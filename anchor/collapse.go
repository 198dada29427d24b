package anchor

import (
	"math/rand"
	"strings"
)

type diversityEntry struct {
	key   string
	count int
}

// Diversity maps representative flanks to the number of observations
// collapsed into them. Iteration follows insertion order. Its size is bounded
// by the maximum sample size, so lookups are linear scans.
type Diversity struct {
	entries []diversityEntry
}

// Len returns the number of representatives.
func (d *Diversity) Len() int { return len(d.entries) }

func (d *Diversity) find(key string) int {
	for i := range d.entries {
		if d.entries[i].key == key {
			return i
		}
	}
	return -1
}

// Count returns the count of the given representative, or 0.
func (d *Diversity) Count(key string) int {
	if i := d.find(key); i >= 0 {
		return d.entries[i].count
	}
	return 0
}

// Keys returns the representatives in insertion order.
func (d *Diversity) Keys() []string {
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
	}
	return keys
}

// Each calls fn for every representative in insertion order.
func (d *Diversity) Each(fn func(key string, count int)) {
	for _, e := range d.entries {
		fn(e.key, e.count)
	}
}

// Total returns the sum of the counts.
func (d *Diversity) Total() int {
	n := 0
	for _, e := range d.entries {
		n += e.count
	}
	return n
}

// Collapser merges flanks into existing representatives when their l-mer
// similarity is at or above a threshold.
type Collapser struct {
	lmerLength int
	threshold  float64
	sketchSize int
	sketchSeed uint64
	rng        *rand.Rand
}

// NewCollapser creates a Collapser. rng drives key migration.
func NewCollapser(opts Opts, rng *rand.Rand) *Collapser {
	return &Collapser{
		lmerLength: opts.LmerLength,
		threshold:  opts.JaccardThreshold,
		sketchSize: opts.SketchSize,
		sketchSeed: uint64(opts.Seed),
		rng:        rng,
	}
}

// flankProfile caches the l-mer representation of a candidate while it is
// compared against every representative.
type flankProfile struct {
	lmers  []string
	sketch []uint64
}

func (c *Collapser) profile(seq string) flankProfile {
	if c.sketchSize > 0 {
		return flankProfile{sketch: Sketch(seq, c.lmerLength, c.sketchSize, c.sketchSeed)}
	}
	return flankProfile{lmers: lmerSet(seq, c.lmerLength)}
}

func (c *Collapser) similarity(a, b flankProfile) float64 {
	if c.sketchSize > 0 {
		return SketchJaccard(a.sketch, b.sketch)
	}
	return jaccardSets(a.lmers, b.lmers)
}

// Add records one observation of candidate in d. It returns true iff
// candidate became a new representative, i.e. the flank diversity grew.
//
// An exact key match increments its count. Otherwise the first representative
// (in insertion order) with similarity >= threshold absorbs the observation,
// and with probability 1/2 the candidate replaces it as the representative,
// moving to the end of the insertion order with the accumulated count. If no
// representative is similar enough, candidate is inserted with count 1.
func (c *Collapser) Add(d *Diversity, candidate string) bool {
	if i := d.find(candidate); i >= 0 {
		d.entries[i].count++
		return false
	}
	cand := c.profile(candidate)
	for i := range d.entries {
		if c.similarity(cand, c.profile(d.entries[i].key)) < c.threshold {
			continue
		}
		d.entries[i].count++
		if c.rng.Float64() >= 0.5 {
			count := d.entries[i].count
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			d.entries = append(d.entries, diversityEntry{key: strings.Clone(candidate), count: count})
		}
		return false
	}
	d.entries = append(d.entries, diversityEntry{key: strings.Clone(candidate), count: 1})
	return true
}

// Jaccard computes the exact Jaccard similarity of the l-mer sets of a and b.
// It returns 0 when both sets are empty.
func Jaccard(a, b string, l int) float64 {
	return jaccardSets(lmerSet(a, l), lmerSet(b, l))
}

// jaccardSets computes |a∩b|/|a∪b| for sorted, deduplicated slices.
func jaccardSets(a, b []string) float64 {
	inter := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
