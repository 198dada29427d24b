package anchor

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestRegistryRetain(t *testing.T) {
	reg := testRegistry(
		testAnchor("AAAA", "1", ""),
		testAnchor("CCCC", "11", ""),
		testAnchor("GGGG", "111", ""),
		testAnchor("TTTT", "1111", ""),
	)
	expect.EQ(t, reg.Len(), 4)
	removed := reg.Retain(func(a *Anchor) bool { return a.MaxCount()%2 == 0 })
	expect.EQ(t, removed, 2)
	expect.EQ(t, reg.Seqs(), []string{"CCCC", "TTTT"})
	expect.True(t, reg.Get("AAAA") == nil)
	expect.EQ(t, reg.Get("TTTT"), reg.At(1))

	reg.add(&Anchor{Seq: "AAAA"})
	expect.EQ(t, reg.Seqs(), []string{"CCCC", "TTTT", "AAAA"})
	expect.EQ(t, reg.Get("AAAA"), reg.At(2))

	expect.EQ(t, reg.Retain(func(*Anchor) bool { return false }), 3)
	expect.EQ(t, reg.Len(), 0)
}

func TestAnchorBest(t *testing.T) {
	a := testAnchor("AAAA", "", "")
	_, ok := a.BestPValue()
	expect.False(t, ok)
	a.Flanks[Up].Test = &TestResult{PValue: 0.2}
	a.Flanks[Down].Test = &TestResult{PValue: 0.1, QValue: 0.3, Corrected: true}
	p, ok := a.BestPValue()
	expect.True(t, ok)
	expect.EQ(t, p, 0.1)
	q, ok := a.BestQValue()
	expect.True(t, ok)
	expect.EQ(t, q, 0.3)
	expect.EQ(t, Up.String(), "u")
	expect.EQ(t, Down.String(), "d")
}
