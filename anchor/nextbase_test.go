package anchor

import (
	"bytes"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestNextBaseConsensus(t *testing.T) {
	c := NewNextBaseCollector([]string{"ACGT", "TTTTT"}, 3)
	for _, read := range []string{
		"ACGTAAC",
		"ACGTACG",
		"TACGTCA", // two bases after the anchor
		"ACGTA",
		"ACGTNGT",
		"ACGT", // nothing after the anchor
	} {
		c.Observe(read)
	}
	cons := c.Consensus()
	expect.EQ(t, len(cons), 1)
	expect.EQ(t, cons[0].Anchor, "ACGT")
	// Offset 2 is a C/G/T tie.
	expect.EQ(t, cons[0].Bases, "AAC")
	expect.EQ(t, cons[0].Fractions, []float64{0.75, 0.5, 1.0 / 3})
	expect.EQ(t, cons[0].Depths, []int{4, 4, 3})

	var buf bytes.Buffer
	assert.NoError(t, WriteNextBaseTable(&buf, cons))
	expect.EQ(t, buf.String(), "anchor\toffset\tbase\tfraction\tdepth\n"+
		"ACGT\t0\tA\t0.75\t4\n"+
		"ACGT\t1\tA\t0.5\t4\n"+
		"ACGT\t2\tC\t0.33\t3\n")
	buf.Reset()
	assert.NoError(t, WriteNextBaseFASTA(&buf, cons))
	expect.EQ(t, buf.String(), ">ACGT\nAAC\n")
}

func TestNextBaseConsensusAmbiguous(t *testing.T) {
	c := NewNextBaseCollector([]string{"GGGG"}, 2)
	c.Observe("GGGGNA")
	cons := c.Consensus()
	expect.EQ(t, len(cons), 1)
	expect.EQ(t, cons[0].Bases, "NA")
	expect.EQ(t, cons[0].Fractions, []float64{0, 1})
	expect.EQ(t, cons[0].Depths, []int{0, 1})
}

func TestNextBaseCap(t *testing.T) {
	c := NewNextBaseCollector([]string{"ACGT"}, 1)
	for i := 0; i < 3*maxNextSeqs; i++ {
		c.Observe("ACGTC")
	}
	cons := c.Consensus()
	expect.EQ(t, cons[0].Depths, []int{maxNextSeqs})
	expect.EQ(t, cons[0].Fractions, []float64{1})
}
