package anchor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"gonum.org/v1/gonum/stat/distuv"
)

// convolve computes the Poisson-Binomial mass function by dynamic
// programming.
func convolve(probs []float64) []float64 {
	pmf := []float64{1}
	for _, p := range probs {
		next := make([]float64, len(pmf)+1)
		for k, m := range pmf {
			next[k] += m * (1 - p)
			next[k+1] += m * p
		}
		pmf = next
	}
	return pmf
}

func TestPoiBinFair(t *testing.T) {
	pb, err := NewPoiBin([]float64{0.5, 0.5, 0.5})
	assert.NoError(t, err)
	expect.EQ(t, pb.N(), 3)
	for k, want := range []float64{0.125, 0.375, 0.375, 0.125} {
		expect.True(t, math.Abs(pb.PMF(k)-want) < 1e-12, "pmf(%d)=%v", k, pb.PMF(k))
	}
	expect.EQ(t, pb.PMF(-1), 0.0)
	expect.EQ(t, pb.PMF(4), 0.0)
	expect.EQ(t, pb.PValue(0), 1.0)
	expect.True(t, math.Abs(pb.PValue(3)-0.125) < 1e-12)
	expect.EQ(t, pb.PValue(4), 0.0)
}

func TestPoiBinEmpty(t *testing.T) {
	pb, err := NewPoiBin(nil)
	assert.NoError(t, err)
	expect.EQ(t, pb.N(), 0)
	expect.True(t, math.Abs(pb.PMF(0)-1) < 1e-12)
	expect.EQ(t, pb.PValue(0), 1.0)
	expect.EQ(t, pb.PValue(1), 0.0)
}

func TestPoiBinInvalid(t *testing.T) {
	_, err := NewPoiBin([]float64{0.5, 1.5})
	expect.True(t, err != nil)
	_, err = NewPoiBin([]float64{math.NaN()})
	expect.True(t, err != nil)
}

func TestPoiBinRandom(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for _, n := range []int{1, 2, 3, 10, 49, 50, 51, 128, 200} {
		probs := make([]float64, n)
		for i := range probs {
			probs[i] = r.Float64()
		}
		pb, err := NewPoiBin(probs)
		assert.NoError(t, err)
		want := convolve(probs)
		sum := 0.0
		for k := 0; k <= n; k++ {
			sum += pb.PMF(k)
			expect.True(t, math.Abs(pb.PMF(k)-want[k]) < 1e-9, "n=%d k=%d: %v vs %v", n, k, pb.PMF(k), want[k])
		}
		expect.True(t, math.Abs(sum-1) < 1e-9, "n=%d: sum %v", n, sum)
		expect.EQ(t, pb.PValue(0), 1.0)
		for k := 1; k <= n+1; k++ {
			expect.True(t, pb.PValue(k) <= pb.PValue(k-1)+1e-12, "n=%d k=%d", n, k)
		}
	}
}

func TestPoiBinBinomial(t *testing.T) {
	const n, p = 40, 0.3
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = p
	}
	pb, err := NewPoiBin(probs)
	assert.NoError(t, err)
	b := distuv.Binomial{N: n, P: p}
	for k := 0; k <= n; k++ {
		expect.True(t, math.Abs(pb.PMF(k)-b.Prob(float64(k))) < 1e-9, "k=%d", k)
		expect.True(t, math.Abs(pb.CDF(k)-b.CDF(float64(k))) < 1e-9, "k=%d", k)
	}
}

func TestPoiBinDegenerate(t *testing.T) {
	// Zero probabilities put all the mass on 0.
	pb, err := NewPoiBin([]float64{0, 0, 0, 0})
	assert.NoError(t, err)
	expect.True(t, math.Abs(pb.PMF(0)-1) < 1e-12)
	expect.True(t, pb.PValue(1) < 1e-12)
}
