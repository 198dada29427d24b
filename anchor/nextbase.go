package anchor

import (
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/anchors/encoding/fasta"
	"github.com/grailbio/base/tsv"
)

// Suffixes of the next-base consensus outputs.
const (
	NextBaseFASTASuffix = "_nextbase.fasta"
	NextBaseTableSuffix = "_nextbase.tsv"
)

// maxNextSeqs bounds the sequences collected per anchor.
const maxNextSeqs = 100

// NextBaseConsensus is the base-by-base majority of the sequences that follow
// an anchor in the reads.
type NextBaseConsensus struct {
	Anchor string
	// Bases[j] is the most frequent base at offset j after the anchor, or 'N'
	// when no A, C, G or T was seen there. Ties go to the first of A, C, G, T.
	Bases string
	// Fractions[j] is the share of Bases[j] among the A, C, G, T bases at j.
	Fractions []float64
	// Depths[j] is the number of A, C, G, T bases at j.
	Depths []int
}

// NextBaseCollector gathers, for each anchor of a set, the sequences
// following its first occurrence in each read.
type NextBaseCollector struct {
	m          *anchorMatcher
	lookLength int
	next       [][]string
}

// NewNextBaseCollector creates a collector recording up to lookLength bases
// after each anchor.
func NewNextBaseCollector(anchors []string, lookLength int) *NextBaseCollector {
	m := newAnchorMatcher(anchors)
	return &NextBaseCollector{m: m, lookLength: lookLength, next: make([][]string, len(m.anchors))}
}

// Observe records the sequences following the anchors found in seq. Each
// anchor keeps at most 100 sequences; they may be shorter than the look
// length near the end of a read.
func (c *NextBaseCollector) Observe(seq string) {
	for _, am := range c.m.match(seq) {
		if len(c.next[am.id]) >= maxNextSeqs {
			continue
		}
		start := am.pos + len(c.m.anchors[am.id])
		end := start + c.lookLength
		if end > len(seq) {
			end = len(seq)
		}
		if start < end {
			c.next[am.id] = append(c.next[am.id], strings.Clone(seq[start:end]))
		}
	}
}

// Consensus returns the consensus of every anchor seen at least once, in the
// order the anchors were given.
func (c *NextBaseCollector) Consensus() []NextBaseConsensus {
	var result []NextBaseConsensus
	for id, seqs := range c.next {
		if len(seqs) == 0 {
			continue
		}
		result = append(result, buildNextBaseConsensus(c.m.anchors[id], seqs))
	}
	return result
}

func buildNextBaseConsensus(anchor string, seqs []string) NextBaseConsensus {
	cons := NextBaseConsensus{Anchor: anchor}
	var bases []byte
	for j := 0; ; j++ {
		var (
			counts  [4]int
			reached bool
		)
		for _, s := range seqs {
			if j < len(s) {
				reached = true
				if b := acgtIndex[s[j]]; b < 4 {
					counts[b]++
				}
			}
		}
		if !reached {
			break
		}
		best, depth := 0, 0
		for b, n := range counts {
			depth += n
			if n > counts[best] {
				best = b
			}
		}
		if depth == 0 {
			bases = append(bases, 'N')
			cons.Fractions = append(cons.Fractions, 0)
		} else {
			bases = append(bases, "ACGT"[best])
			cons.Fractions = append(cons.Fractions, float64(counts[best])/float64(depth))
		}
		cons.Depths = append(cons.Depths, depth)
	}
	cons.Bases = string(bases)
	return cons
}

// WriteNextBaseFASTA writes one record per consensus, named by its anchor.
func WriteNextBaseFASTA(w io.Writer, cons []NextBaseConsensus) error {
	fw := fasta.NewWriter(w)
	for _, c := range cons {
		if err := fw.Write(c.Anchor, c.Bases); err != nil {
			return err
		}
	}
	return fw.Flush()
}

// WriteNextBaseTable writes one row per consensus and offset with the
// columns anchor, offset (0-based), base, fraction, depth.
func WriteNextBaseTable(w io.Writer, cons []NextBaseConsensus) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("anchor\toffset\tbase\tfraction\tdepth")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, c := range cons {
		for j := range c.Bases {
			tw.WriteString(c.Anchor)
			tw.WriteInt64(int64(j))
			tw.WriteString(c.Bases[j : j+1])
			tw.WriteString(strconv.FormatFloat(round2(c.Fractions[j]), 'f', -1, 64))
			tw.WriteInt64(int64(c.Depths[j]))
			if err := tw.EndLine(); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}
