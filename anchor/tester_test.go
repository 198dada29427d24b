package anchor

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

// growth parses a string of 0s and 1s.
func growth(pattern string) []bool {
	g := make([]bool, len(pattern))
	for i := range pattern {
		g[i] = pattern[i] == '1'
	}
	return g
}

func testAnchor(seq, up, down string) *Anchor {
	a := &Anchor{Seq: seq}
	for d, pattern := range []string{up, down} {
		a.Flanks[d].Growth = growth(pattern)
		a.Flanks[d].Count = len(pattern)
	}
	return a
}

func testRegistry(anchors ...*Anchor) *Registry {
	reg := NewRegistry()
	for _, a := range anchors {
		reg.add(a)
	}
	return reg
}

func testTester(opts Opts) *Tester {
	return NewTester(opts, rand.New(rand.NewSource(opts.Seed)))
}

func TestFitNull(t *testing.T) {
	opts := testOpts(4)
	opts.MaxSampleSize = 4
	reg := testRegistry(
		testAnchor("AAAA", "1100", ""),
		testAnchor("CCCC", "10", "1111"),
	)
	null := testTester(opts).FitNull(reg)
	expect.EQ(t, null, []float64{0.75, 0.5, 1.0 / 3, 1.0 / 3})

	expect.EQ(t, testTester(opts).FitNull(NewRegistry()), []float64{0, 0, 0, 0})
}

func TestScore(t *testing.T) {
	opts := testOpts(4)
	opts.MinSampleSize = 2
	reg := testRegistry(
		testAnchor("AAAA", "1111", ""),
		testAnchor("CCCC", "11", "000"),
	)
	tests, err := testTester(opts).Score(reg, []float64{0.5, 0.5, 0.5, 0.5})
	assert.NoError(t, err)
	expect.EQ(t, tests, 2)

	up := reg.Get("AAAA").Flank(Up).Test
	require.NotNil(t, up)
	expect.EQ(t, up.Observed, 4)
	expect.EQ(t, up.Trials, 4)
	expect.True(t, math.Abs(up.LogFoldChange-1) < 1e-12)
	expect.True(t, math.Abs(up.PValue-1.0/16) < 1e-12)
	expect.True(t, reg.Get("AAAA").Flank(Down).Test == nil)
	expect.True(t, reg.Get("CCCC").Flank(Up).Test == nil)

	down := reg.Get("CCCC").Flank(Down).Test
	require.NotNil(t, down)
	expect.EQ(t, down.PValue, 1.0)
	expect.EQ(t, down.LogFoldChange, math.Log2(eps)-math.Log2(1.5))
}

func TestScoreLongGrowth(t *testing.T) {
	opts := testOpts(4)
	opts.MinSampleSize = 1
	reg := testRegistry(testAnchor("AAAA", "111111", ""))
	// Positions past the null vector are ignored.
	tests, err := testTester(opts).Score(reg, []float64{0.5, 0.5})
	assert.NoError(t, err)
	expect.EQ(t, tests, 1)
	expect.EQ(t, reg.Get("AAAA").Flank(Up).Test.Trials, 2)
}

func TestCorrect(t *testing.T) {
	reg := testRegistry(
		testAnchor("AAAA", "", ""),
		testAnchor("CCCC", "", ""),
	)
	reg.Get("AAAA").Flanks[Up].Test = &TestResult{PValue: 0.04}
	reg.Get("AAAA").Flanks[Down].Test = &TestResult{PValue: 0.01}
	reg.Get("CCCC").Flanks[Down].Test = &TestResult{PValue: 0.03}
	testTester(testOpts(4)).Correct(reg, 3)

	for _, c := range []struct {
		seq  string
		dir  Direction
		want float64
	}{
		{"AAAA", Down, 0.03},
		{"CCCC", Down, 0.045},
		{"AAAA", Up, 0.04},
	} {
		test := reg.Get(c.seq).Flank(c.dir).Test
		expect.True(t, test.Corrected)
		expect.True(t, math.Abs(test.QValue-c.want) < 1e-12, "%s/%v: %v", c.seq, c.dir, test.QValue)
	}
	expect.True(t, reg.Get("CCCC").Flank(Up).Test == nil)
}

func TestCorrectBounds(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	var anchors []*Anchor
	for i := 0; i < 100; i++ {
		a := testAnchor(fmt.Sprint(i), "", "")
		a.Flanks[Up].Test = &TestResult{PValue: r.Float64()}
		if i%3 == 0 {
			a.Flanks[Down].Test = &TestResult{PValue: r.Float64() * 1e-3}
		}
		anchors = append(anchors, a)
	}
	reg := testRegistry(anchors...)
	testTester(testOpts(4)).Correct(reg, 200)
	reg.Each(func(_ int, a *Anchor) {
		for _, d := range directions {
			if test := a.Flank(d).Test; test != nil {
				expect.True(t, test.PValue <= test.QValue && test.QValue <= 1, "%+v", test)
			}
		}
	})
}

func TestFilters(t *testing.T) {
	reg := testRegistry(
		testAnchor("AAAA", "", ""),
		testAnchor("CCCC", "", ""),
		testAnchor("GGGG", "", ""),
	)
	reg.Get("AAAA").Flanks[Up].Test = &TestResult{PValue: 0.5, QValue: 0.5, Corrected: true}
	reg.Get("AAAA").Flanks[Down].Test = &TestResult{PValue: 0.05, QValue: 0.2, Corrected: true}
	reg.Get("CCCC").Flanks[Up].Test = &TestResult{PValue: 0.01, QValue: 0.02, Corrected: true}
	expect.EQ(t, FilterByPValue(reg, 0.1), 2)
	expect.EQ(t, reg.Seqs(), []string{"AAAA", "CCCC"})
	expect.EQ(t, FilterByQValue(reg, 0.1), 1)
	expect.EQ(t, reg.Seqs(), []string{"CCCC"})
}

func TestTesterRun(t *testing.T) {
	opts := testOpts(4)
	opts.MinSampleSize = 5
	opts.MaxSampleSize = 10

	outcome, _, err := testTester(opts).Run(NewRegistry())
	assert.NoError(t, err)
	expect.EQ(t, outcome, NoAnchors)

	outcome, _, err = testTester(opts).Run(testRegistry(testAnchor("AAAA", "11", "1")))
	assert.NoError(t, err)
	expect.EQ(t, outcome, NoTests)

	background := func() []*Anchor {
		var anchors []*Anchor
		for i := 0; i < 50; i++ {
			anchors = append(anchors, testAnchor(fmt.Sprintf("B%d", i), "1000000000", ""))
		}
		return anchors
	}
	reg := testRegistry(background()...)
	outcome, summary, err := testTester(opts).Run(reg)
	assert.NoError(t, err)
	expect.EQ(t, outcome, NoSignificantPValues)
	expect.EQ(t, summary.Tests, 50)
	expect.EQ(t, reg.Len(), 0)

	reg = testRegistry(append(background(), testAnchor("DIVERSE", "1111111111", ""))...)
	outcome, summary, err = testTester(opts).Run(reg)
	assert.NoError(t, err)
	expect.EQ(t, outcome, Significant)
	expect.EQ(t, summary.Tests, 51)
	expect.EQ(t, summary.QSignificant, 1)
	expect.EQ(t, reg.Seqs(), []string{"DIVERSE"})
	test := reg.Get("DIVERSE").Flank(Up).Test
	expect.True(t, test.Corrected)
	expect.True(t, test.QValue < 1e-6, "%+v", test)
	expect.True(t, test.LogFoldChange > 2, "%+v", test)
	expect.EQ(t, Significant.String(), "significant")
}
