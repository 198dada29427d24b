package anchor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/testutil/h"
)

func TestAnchorMatcher(t *testing.T) {
	m := newAnchorMatcher([]string{"ACGT", "GGG", "ACGT", ""})
	expect.That(t, m.anchors, h.ElementsAre("ACGT", "GGG"))
	expect.EQ(t, m.match("TTGGGACGTACGT"), []anchorMatch{{id: 0, pos: 5}, {id: 1, pos: 2}})
	expect.EQ(t, len(m.match("TTTT")), 0)
	// The scratch state is reset between reads.
	expect.EQ(t, m.match("ACGTT"), []anchorMatch{{id: 0, pos: 0}})
}

func TestHasHomopolymer(t *testing.T) {
	expect.True(t, hasHomopolymer("AC"+strings.Repeat("A", 10)+"G", 10))
	expect.False(t, hasHomopolymer("AC"+strings.Repeat("A", 9)+"G", 10))
	expect.False(t, hasHomopolymer(strings.Repeat("N", 12), 10))
}

func TestAdjacentOptsResolve(t *testing.T) {
	o := DefaultAdjacentOpts.resolve(12, 60)
	expect.EQ(t, o.Distance, 18)
	expect.EQ(t, o.Length, 12)
	expect.EQ(t, DefaultAdjacentOpts.resolve(12, 20).Distance, 0)
	o = AdjacentOpts{Distance: 3, Length: 5, SampleID: "s"}.resolve(12, 60)
	expect.EQ(t, o, AdjacentOpts{Distance: 3, Length: 5, SampleID: "s"})

	expect.NoError(t, DefaultAdjacentOpts.Validate())
	expect.True(t, errors.Is(errors.Invalid, AdjacentOpts{Length: -1, SampleID: "s"}.Validate()))
	expect.True(t, errors.Is(errors.Invalid, AdjacentOpts{SampleID: ""}.Validate()))
	expect.True(t, errors.Is(errors.Invalid, AdjacentOpts{SampleID: "a\tb"}.Validate()))
}

func TestAdjacentCounter(t *testing.T) {
	c := NewAdjacentCounter([]string{"ACGT", strings.Repeat("A", 10) + "C"}, 1, 3)
	expect.That(t, c.Observe("ACGTTCCCGG"), h.ElementsAre("ACGT"))
	expect.That(t, c.Observe("GACGTACCCA"), h.ElementsAre("ACGT"))
	expect.That(t, c.Observe("ACGTAGGG"), h.ElementsAre("ACGT"))
	// Found, but the adjacent kmer runs past the end of the read.
	expect.That(t, c.Observe("TTACGTAG"), h.ElementsAre("ACGT"))
	// Only the first occurrence counts.
	expect.That(t, c.Observe("ACGTACCCTACGTAGGG"), h.ElementsAre("ACGT"))
	// The homopolymer anchor is never matched.
	expect.EQ(t, len(c.Observe(strings.Repeat("A", 10)+"CTTTTTT")), 0)

	expect.EQ(t, c.Counts(), []AdjacentCount{
		{Anchor: "ACGT", Adjacent: "CCC", Count: 3},
		{Anchor: "ACGT", Adjacent: "GGG", Count: 1},
	})
}

func TestAdjacentCountsTables(t *testing.T) {
	a := []AdjacentCount{{"ACGT", "CCC", 2}, {"ACGT", "GGG", 1}}
	b := []AdjacentCount{{"TTTT", "AAA", 1}, {"ACGT", "CCC", 5}}

	var buf bytes.Buffer
	assert.NoError(t, WriteAdjacentCounts(&buf, "s1", a))
	expect.EQ(t, buf.String(), "anchor\tadj_kmer\ts1\nACGT\tCCC\t2\nACGT\tGGG\t1\n")
	id, counts, err := ReadAdjacentCounts(&buf)
	assert.NoError(t, err)
	expect.EQ(t, id, "s1")
	expect.EQ(t, counts, a)

	buf.Reset()
	assert.NoError(t, WriteMergedAdjacentCounts(&buf, []string{"s1", "s2"}, [][]AdjacentCount{a, b}))
	expect.EQ(t, buf.String(),
		"anchor\tadj_kmer\ts1\ts2\n"+
			"ACGT\tCCC\t2\t5\n"+
			"ACGT\tGGG\t1\t0\n"+
			"TTTT\tAAA\t0\t1\n")

	expect.True(t, errors.Is(errors.Invalid, WriteMergedAdjacentCounts(&buf, []string{"s1"}, nil)))
	_, _, err = ReadAdjacentCounts(strings.NewReader("anchor\tkmer\ts1\n"))
	expect.True(t, errors.Is(errors.Invalid, err), "err: %v", err)
}
