package anchor

import (
	"math/rand"
	"strings"
)

// Extractor registers the anchors of each read and records their flanks.
type Extractor struct {
	opts      Opts
	reg       *Registry
	collapser *Collapser
	rng       *rand.Rand
	closed    bool
	ambig     ambiguityIndex
}

// NewExtractor creates an extractor that adds anchors to reg. rng is shared
// with the collapser and must not be used concurrently.
func NewExtractor(reg *Registry, opts Opts, rng *rand.Rand) *Extractor {
	return &Extractor{
		opts:      opts,
		reg:       reg,
		collapser: NewCollapser(opts, rng),
		rng:       rng,
	}
}

// CloseAdmission stops registration of new anchors. Existing anchors keep
// being updated.
func (e *Extractor) CloseAdmission() { e.closed = true }

// AdmissionClosed reports whether CloseAdmission was called.
func (e *Extractor) AdmissionClosed() bool { return e.closed }

func (e *Extractor) lookahead() int {
	if e.opts.RandomLookahead {
		return e.rng.Intn(e.opts.AnchorLength-1) + 1
	}
	return e.opts.Lookahead
}

// ProcessRead scans every anchor-length window of seq left to right and
// updates the registry. Windows containing an ambiguous base are skipped. It
// returns the number of windows whose anchor was not yet registered; these
// are counted even after admission is closed.
func (e *Extractor) ProcessRead(seq string) (newEntries int) {
	k := e.opts.AnchorLength
	if len(seq) < k {
		return 0
	}
	e.ambig.reset(seq)
	for i := 0; i+k <= len(seq); i++ {
		if !e.ambig.clean(i, i+k) {
			continue
		}
		a := e.reg.Get(seq[i : i+k])
		if a == nil {
			newEntries++
			if e.closed {
				continue
			}
			a = &Anchor{Seq: strings.Clone(seq[i : i+k])}
			for _, d := range directions {
				a.Flanks[d].Lookahead = e.lookahead()
			}
			e.reg.add(a)
		}
		up := &a.Flanks[Up]
		if start := i - (up.Lookahead + k - 1); !up.Done && start >= 0 {
			e.observe(up, seq, start, start+k)
		}
		down := &a.Flanks[Down]
		if end := i + 2*k + down.Lookahead - 1; !down.Done && end <= len(seq) {
			e.observe(down, seq, end-k, end)
		}
	}
	return newEntries
}

func (e *Extractor) observe(f *Flank, seq string, start, end int) {
	if e.ambig.clean(start, end) {
		f.Count++
		f.Growth = append(f.Growth, e.collapser.Add(&f.Diversity, seq[start:end]))
	}
	f.Done = f.Count >= e.opts.MaxSampleSize
}
