package anchor

import (
	"sort"

	farm "github.com/dgryski/go-farm"
)

// Sketch computes the bottom-s sketch of seq: the s smallest distinct seeded
// hashes of its canonical l-mers, sorted ascending. A canonical l-mer is the
// smaller of the l-mer and its reverse complement.
func Sketch(seq string, l, s int, seed uint64) []uint64 {
	lmers := Lmers(seq, l)
	hashes := make([]uint64, 0, len(lmers))
	for _, lmer := range lmers {
		hashes = append(hashes, farm.Hash64WithSeed([]byte(canonical(lmer)), seed))
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	n := 0
	for i, h := range hashes {
		if i == 0 || h != hashes[n-1] {
			hashes[n] = h
			n++
		}
	}
	if n > s {
		n = s
	}
	return hashes[:n]
}

// SketchJaccard estimates the Jaccard similarity of two sequences from their
// sketches. It takes the s smallest hashes of the union, s being the larger
// sketch size, and returns the fraction of them present in both sketches.
func SketchJaccard(a, b []uint64) float64 {
	s := len(a)
	if len(b) > s {
		s = len(b)
	}
	if s == 0 {
		return 0
	}
	taken, shared := 0, 0
	i, j := 0, 0
	for taken < s && (i < len(a) || j < len(b)) {
		switch {
		case j >= len(b) || (i < len(a) && a[i] < b[j]):
			i++
		case i >= len(a) || b[j] < a[i]:
			j++
		default:
			shared++
			i++
			j++
		}
		taken++
	}
	return float64(shared) / float64(taken)
}
