package anchor

// This file implements the second pass over a sample's reads: for every
// significant anchor, count the kmers found at a fixed distance after it, and
// merge those counts across samples.

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// Suffixes of the adjacent-kmer outputs.
const (
	AdjacentCountsSuffix = "_adj_kmer_counts.tsv"
	AdjacentReadsSuffix  = "_adj_reads.fasta"
	MergedCountsSuffix   = "_merged_adj_kmer_counts.tsv"
)

// homopolymerLength is the run length of a single base that excludes an
// anchor from adjacent-kmer counting.
const homopolymerLength = 10

// AdjacentOpts configures the adjacent-kmer pass.
type AdjacentOpts struct {
	// Distance is the gap between the end of an anchor and its adjacent kmer.
	// A negative value derives it from the length of the first read as
	// (readLength - 2*AnchorLength) / 2.
	Distance int
	// Length is the length of adjacent kmers. 0 uses the anchor length.
	Length int
	// SampleID names the count column of the output.
	SampleID string
}

// DefaultAdjacentOpts sets the default values to AdjacentOpts.
var DefaultAdjacentOpts = AdjacentOpts{
	Distance: -1,
	Length:   0,
	SampleID: "sample",
}

// Validate checks the options for consistency.
func (o AdjacentOpts) Validate() error {
	switch {
	case o.Length < 0:
		return errors.E(errors.Invalid, "adjacent kmer length must be >= 0, got", strconv.Itoa(o.Length))
	case o.SampleID == "" || strings.ContainsAny(o.SampleID, "\t\n"):
		return errors.E(errors.Invalid, "sample ID must be non-empty and contain no tabs or newlines")
	}
	return nil
}

// resolve fills the derived distance and length.
func (o AdjacentOpts) resolve(anchorLength, readLength int) AdjacentOpts {
	if o.Distance < 0 {
		o.Distance = (readLength - 2*anchorLength) / 2
		if o.Distance < 0 {
			o.Distance = 0
		}
	}
	if o.Length == 0 {
		o.Length = anchorLength
	}
	return o
}

type anchorMatch struct {
	id  int // index into anchorMatcher.anchors
	pos int // first occurrence in the read
}

// anchorMatcher finds which of a fixed set of anchors occur in a read.
type anchorMatcher struct {
	anchors []string
	index   map[string]int
	lengths []int // distinct anchor lengths, ascending
	first   []int // scratch: first occurrence per anchor, -1 if none
	matches []anchorMatch
}

// newAnchorMatcher indexes anchors. Duplicates and empty strings are dropped.
func newAnchorMatcher(anchors []string) *anchorMatcher {
	m := &anchorMatcher{index: map[string]int{}}
	lengths := map[int]bool{}
	for _, a := range anchors {
		if _, ok := m.index[a]; ok || a == "" {
			continue
		}
		m.index[a] = len(m.anchors)
		m.anchors = append(m.anchors, a)
		lengths[len(a)] = true
	}
	for l := range lengths {
		m.lengths = append(m.lengths, l)
	}
	sort.Ints(m.lengths)
	m.first = make([]int, len(m.anchors))
	for i := range m.first {
		m.first[i] = -1
	}
	return m
}

// match returns the anchors occurring in seq with the position of their first
// occurrence, ordered as the anchors were given. The result is reused by the
// next call.
func (m *anchorMatcher) match(seq string) []anchorMatch {
	m.matches = m.matches[:0]
	for i := range seq {
		for _, l := range m.lengths {
			if i+l > len(seq) {
				break
			}
			if id, ok := m.index[seq[i:i+l]]; ok && m.first[id] < 0 {
				m.first[id] = i
				m.matches = append(m.matches, anchorMatch{id: id, pos: i})
			}
		}
	}
	sort.Slice(m.matches, func(i, j int) bool { return m.matches[i].id < m.matches[j].id })
	for _, am := range m.matches {
		m.first[am.id] = -1
	}
	return m.matches
}

// hasHomopolymer reports whether seq contains a run of n identical A, C, G
// or T bases.
func hasHomopolymer(seq string, n int) bool {
	run := 0
	for i := 0; i < len(seq); i++ {
		if i > 0 && seq[i] == seq[i-1] {
			run++
		} else {
			run = 1
		}
		if run >= n && !isAmbiguous(seq[i]) {
			return true
		}
	}
	return false
}

// AdjacentCount is the number of reads in which Adjacent follows Anchor at
// the configured distance.
type AdjacentCount struct {
	Anchor   string
	Adjacent string
	Count    int
}

type adjacentKey struct{ anchor, adjacent string }

// AdjacentCounter counts the kmers found at a fixed distance after each
// anchor of a set. Anchors containing a homopolymer run of 10 bases are not
// counted.
type AdjacentCounter struct {
	m        *anchorMatcher
	distance int
	length   int
	counts   map[adjacentKey]int
	found    []string
}

// NewAdjacentCounter creates a counter for anchors. The adjacent kmer of an
// anchor occurring at position i of a read is
// read[i+len(anchor)+distance : i+len(anchor)+distance+length].
func NewAdjacentCounter(anchors []string, distance, length int) *AdjacentCounter {
	var kept []string
	for _, a := range anchors {
		if !hasHomopolymer(a, homopolymerLength) {
			kept = append(kept, a)
		}
	}
	return &AdjacentCounter{
		m:        newAnchorMatcher(kept),
		distance: distance,
		length:   length,
		counts:   map[adjacentKey]int{},
	}
}

// Observe counts the adjacent kmers of the anchors occurring in seq, using
// the first occurrence of each anchor. Occurrences whose adjacent kmer runs
// past the end of seq are not counted. Observe returns the anchors found in
// seq; the slice is reused by the next call.
func (c *AdjacentCounter) Observe(seq string) []string {
	c.found = c.found[:0]
	for _, am := range c.m.match(seq) {
		a := c.m.anchors[am.id]
		c.found = append(c.found, a)
		start := am.pos + len(a) + c.distance
		end := start + c.length
		if start < 0 || end > len(seq) {
			continue
		}
		c.counts[adjacentKey{a, strings.Clone(seq[start:end])}]++
	}
	return c.found
}

// Counts returns the counts sorted by anchor, then adjacent kmer.
func (c *AdjacentCounter) Counts() []AdjacentCount {
	counts := make([]AdjacentCount, 0, len(c.counts))
	for k, n := range c.counts {
		counts = append(counts, AdjacentCount{Anchor: k.anchor, Adjacent: k.adjacent, Count: n})
	}
	sortAdjacent(counts)
	return counts
}

func sortAdjacent(counts []AdjacentCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Anchor != counts[j].Anchor {
			return counts[i].Anchor < counts[j].Anchor
		}
		return counts[i].Adjacent < counts[j].Adjacent
	})
}

// WriteAdjacentCounts writes counts under the header
// "anchor adj_kmer <sampleID>".
func WriteAdjacentCounts(w io.Writer, sampleID string, counts []AdjacentCount) error {
	return WriteMergedAdjacentCounts(w, []string{sampleID}, [][]AdjacentCount{counts})
}

// ReadAdjacentCounts reads a table written by WriteAdjacentCounts and returns
// its sample ID and counts.
func ReadAdjacentCounts(in io.Reader) (sampleID string, counts []AdjacentCount, err error) {
	br := bufio.NewReader(in)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", nil, errors.E(err, "read adjacent counts")
	}
	cols := strings.Split(strings.TrimRight(header, "\r\n"), "\t")
	if len(cols) != 3 || cols[0] != "anchor" || cols[1] != "adj_kmer" || cols[2] == "" {
		return "", nil, errors.E(errors.Invalid, "adjacent counts header", strconv.Quote(header))
	}
	r := tsv.NewReader(br)
	for {
		var row AdjacentCount
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return "", nil, errors.E(err, "read adjacent counts")
		}
		counts = append(counts, row)
	}
	return cols[2], counts, nil
}

// WriteMergedAdjacentCounts joins the count tables of several samples on
// (anchor, adjacent kmer) and writes one count column per sample, in the
// order of sampleIDs. Pairs missing from a sample get count 0.
func WriteMergedAdjacentCounts(w io.Writer, sampleIDs []string, tables [][]AdjacentCount) error {
	if len(sampleIDs) != len(tables) {
		return errors.E(errors.Invalid, "one sample ID per table is required")
	}
	merged := map[adjacentKey][]int{}
	var keys []AdjacentCount
	for i, table := range tables {
		for _, c := range table {
			k := adjacentKey{c.Anchor, c.Adjacent}
			row, ok := merged[k]
			if !ok {
				row = make([]int, len(tables))
				merged[k] = row
				keys = append(keys, AdjacentCount{Anchor: c.Anchor, Adjacent: c.Adjacent})
			}
			row[i] += c.Count
		}
	}
	sortAdjacent(keys)

	tw := tsv.NewWriter(w)
	tw.WriteString("anchor")
	tw.WriteString("adj_kmer")
	for _, id := range sampleIDs {
		tw.WriteString(id)
	}
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, k := range keys {
		tw.WriteString(k.Anchor)
		tw.WriteString(k.Adjacent)
		for _, n := range merged[adjacentKey{k.Anchor, k.Adjacent}] {
			tw.WriteInt64(int64(n))
		}
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}
