package anchor

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/grailbio/base/errors"
	"gonum.org/v1/gonum/dsp/fourier"
)

// eps is the float64 machine epsilon.
var eps = math.Nextafter(1, 2) - 1

// PoiBin is the Poisson-Binomial distribution: the law of the number of
// successes among independent Bernoulli trials with distinct success
// probabilities.
type PoiBin struct {
	pmf []float64
	cdf []float64
}

// NewPoiBin creates the distribution for the given success probabilities.
//
// The mass function is obtained by a discrete Fourier transform of the
// characteristic function sampled at n+1 points. The characteristic function
// is evaluated through the sums of log-moduli and arguments of its factors,
// and only the first half of the points is computed directly; the rest follow
// by conjugate symmetry. Every mass is offset by machine epsilon.
func NewPoiBin(probs []float64) (*PoiBin, error) {
	for _, p := range probs {
		if !(p >= 0 && p <= 1) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("success probability %v out of [0,1]", p))
		}
	}
	n := len(probs)
	size := n + 1
	omega := 2 * math.Pi / float64(size)
	chi := make([]complex128, size)
	chi[0] = 1
	half := n/2 + n%2
	for l := 1; l <= half; l++ {
		rot := cmplx.Rect(1, omega*float64(l))
		var logMod, arg float64
		for _, p := range probs {
			z := complex(1-p, 0) + complex(p, 0)*rot
			logMod += math.Log(cmplx.Abs(z))
			arg += cmplx.Phase(z)
		}
		chi[l] = cmplx.Rect(math.Exp(logMod), arg)
	}
	for l := half + 1; l <= n; l++ {
		chi[l] = cmplx.Conj(chi[size-l])
	}
	for l := range chi {
		chi[l] /= complex(float64(size), 0)
	}
	coeffs := chi
	if size > 1 {
		coeffs = fourier.NewCmplxFFT(size).Coefficients(nil, chi)
	}
	pb := &PoiBin{pmf: make([]float64, size), cdf: make([]float64, size)}
	sum := 0.0
	for k, c := range coeffs {
		pb.pmf[k] = real(c) + eps
		sum += pb.pmf[k]
		pb.cdf[k] = sum
	}
	return pb, nil
}

// N returns the number of trials.
func (pb *PoiBin) N() int { return len(pb.pmf) - 1 }

// PMF returns P(X = k).
func (pb *PoiBin) PMF(k int) float64 {
	if k < 0 || k >= len(pb.pmf) {
		return 0
	}
	return pb.pmf[k]
}

// CDF returns P(X <= k).
func (pb *PoiBin) CDF(k int) float64 {
	switch {
	case k < 0:
		return 0
	case k >= len(pb.cdf):
		return 1
	}
	return pb.cdf[k]
}

// PValue returns P(X >= k).
func (pb *PoiBin) PValue(k int) float64 {
	switch {
	case k <= 0:
		return 1
	case k > pb.N():
		return 0
	}
	return 1 - pb.cdf[k-1]
}
