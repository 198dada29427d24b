package anchor

import (
	"math"

	"github.com/grailbio/base/log"
)

// MaxAnchor is the member of a cluster with the largest log-fold-change in
// one direction.
type MaxAnchor struct {
	// Seq is "N" when no member was tested in this direction.
	Seq string
	// Growths is the number of growth events over all observations of the
	// direction, and Observations the number of observations.
	Growths, Observations int
	LogFoldChange         float64
	QValue                float64
}

// ClusterRecord summarizes one cluster of significant anchors.
type ClusterRecord struct {
	Consensus string
	Outcome   AssemblyOutcome
	Max       [2]MaxAnchor
	// Composition holds the percentages of A, C, G and T in Consensus,
	// rounded to two decimals.
	Composition [4]float64
	Members     []string
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func composition(seq string) [4]float64 {
	var pct [4]float64
	if len(seq) == 0 {
		return pct
	}
	for i, n := range countACGT(seq) {
		pct[i] = round2(100 * float64(n) / float64(len(seq)))
	}
	return pct
}

func maxAnchors(members []*Anchor) [2]MaxAnchor {
	var best [2]MaxAnchor
	for _, d := range directions {
		m := MaxAnchor{Seq: "N", LogFoldChange: math.Inf(-1), QValue: 1}
		for _, a := range members {
			f := &a.Flanks[d]
			t := f.Test
			if t == nil || !(t.LogFoldChange > m.LogFoldChange) {
				continue
			}
			m = MaxAnchor{
				Seq:           a.Seq,
				Growths:       f.Growths(),
				Observations:  len(f.Growth),
				LogFoldChange: t.LogFoldChange,
				QValue:        1,
			}
			if t.Corrected {
				m.QValue = t.QValue
			}
		}
		best[d] = m
	}
	return best
}

// Consolidate clusters the anchors of reg, assembles a consensus for each
// cluster and removes every consumed anchor from reg.
func Consolidate(reg *Registry, parallelism int, dist DistanceFunc) []ClusterRecord {
	seqs := reg.Seqs()
	clusters := Cluster(seqs, parallelism, dist)
	records := make([]ClusterRecord, 0, len(clusters))
	consumed := make(map[string]bool, len(seqs))
	for ci, c := range clusters {
		members := make([]*Anchor, len(c))
		memberSeqs := make([]string, len(c))
		for i, idx := range c {
			members[i] = reg.At(idx)
			memberSeqs[i] = seqs[idx]
			consumed[seqs[idx]] = true
		}
		consensus, outcome := Assemble(memberSeqs)
		log.Debug.Printf("cluster %d: %d anchors, %s, %s", ci+1, len(c), outcome, consensus)
		records = append(records, ClusterRecord{
			Consensus:   consensus,
			Outcome:     outcome,
			Max:         maxAnchors(members),
			Composition: composition(consensus),
			Members:     memberSeqs,
		})
	}
	reg.Retain(func(a *Anchor) bool { return !consumed[a.Seq] })
	return records
}
