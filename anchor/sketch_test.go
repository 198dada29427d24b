package anchor

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestReverseComplement(t *testing.T) {
	expect.EQ(t, reverseComplement("AACGTN"), "NACGTT")
	expect.EQ(t, canonical("TTT"), "AAA")
	expect.EQ(t, canonical("AAA"), "AAA")
}

func TestSketch(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	seq := randomSeq(r, 200)
	s := Sketch(seq, 7, 50, 1)
	expect.EQ(t, len(s), 50)
	expect.True(t, sort.SliceIsSorted(s, func(i, j int) bool { return s[i] < s[j] }))
	for i := 1; i < len(s); i++ {
		expect.True(t, s[i-1] != s[i])
	}
	// Fewer distinct l-mers than the sketch size.
	expect.EQ(t, len(Sketch("AAAAAAAAAA", 7, 50, 1)), 1)
	expect.EQ(t, SketchJaccard(s, s), 1.0)
	expect.EQ(t, SketchJaccard(s, Sketch(reverseComplement(seq), 7, 50, 1)), 1.0)
	expect.EQ(t, SketchJaccard(nil, nil), 0.0)
}

func TestSketchJaccardEstimate(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	const l = 11
	a := randomSeq(r, 2000)
	b := a[:1000] + randomSeq(r, 1000)
	exact := Jaccard(a, b, l)
	est := SketchJaccard(Sketch(a, l, 500, 7), Sketch(b, l, 500, 7))
	expect.True(t, math.Abs(exact-est) < 0.1, "exact %v, estimate %v", exact, est)

	c := randomSeq(r, 2000)
	expect.True(t, SketchJaccard(Sketch(a, l, 500, 7), Sketch(c, l, 500, 7)) < 0.05)
}
