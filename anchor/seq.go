package anchor

import "sort"

// acgtIndex maps A, C, G, T (either case) to {0,1,2,3}. It maps other letters
// to 4.
var acgtIndex [256]uint8

var complement [256]byte

func init() {
	for i := range acgtIndex {
		acgtIndex[i] = 4
		complement[i] = byte(i)
	}
	for i, ch := range []byte("ACGT") {
		acgtIndex[ch] = uint8(i)
		acgtIndex[ch+'a'-'A'] = uint8(i)
	}
	for _, p := range []string{"AT", "CG", "at", "cg"} {
		complement[p[0]], complement[p[1]] = p[1], p[0]
	}
}

// isAmbiguous reports whether ch is anything but an A, C, G or T.
func isAmbiguous(ch byte) bool { return acgtIndex[ch] == 4 }

// hasAmbiguous reports whether seq contains a base other than ACGT.
func hasAmbiguous(seq string) bool {
	for i := 0; i < len(seq); i++ {
		if isAmbiguous(seq[i]) {
			return true
		}
	}
	return false
}

// ambiguityIndex answers "does seq[start:end] contain an ambiguous base" in
// constant time after a linear setup.
type ambiguityIndex struct {
	cum []int32 // cum[i] = # of ambiguous bases in seq[:i]
}

func (x *ambiguityIndex) reset(seq string) {
	if cap(x.cum) < len(seq)+1 {
		x.cum = make([]int32, len(seq)+1)
	}
	x.cum = x.cum[:len(seq)+1]
	x.cum[0] = 0
	for i := 0; i < len(seq); i++ {
		x.cum[i+1] = x.cum[i]
		if isAmbiguous(seq[i]) {
			x.cum[i+1]++
		}
	}
}

func (x *ambiguityIndex) clean(start, end int) bool {
	return x.cum[end] == x.cum[start]
}

// reverseComplement computes a reverse complement of the given DNA string.
// Non-ACGT bytes are kept as is.
func reverseComplement(seq string) string {
	buf := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		buf[len(seq)-1-i] = complement[seq[i]]
	}
	return string(buf)
}

// canonical returns the lexicographically smaller of seq and its reverse
// complement.
func canonical(seq string) string {
	if rc := reverseComplement(seq); rc < seq {
		return rc
	}
	return seq
}

// Lmers returns the overlapping substrings of length l of seq, in order.
func Lmers(seq string, l int) []string {
	if l <= 0 || l > len(seq) {
		return nil
	}
	lmers := make([]string, 0, len(seq)-l+1)
	for i := 0; i+l <= len(seq); i++ {
		lmers = append(lmers, seq[i:i+l])
	}
	return lmers
}

// lmerSet returns the sorted, deduplicated l-mers of seq.
func lmerSet(seq string, l int) []string {
	set := Lmers(seq, l)
	sort.Strings(set)
	n := 0
	for i, s := range set {
		if i == 0 || s != set[n-1] {
			set[n] = s
			n++
		}
	}
	return set[:n]
}

// countACGT counts each of A, C, G, T in seq.
func countACGT(seq string) [4]int {
	var counts [4]int
	for i := 0; i < len(seq); i++ {
		if b := acgtIndex[seq[i]]; b < 4 {
			counts[b]++
		}
	}
	return counts
}
