package anchor

// Registry stores anchors in insertion order, keyed by sequence. It is owned
// by one goroutine at a time.
type Registry struct {
	anchors []*Anchor
	index   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Len returns the number of anchors.
func (r *Registry) Len() int { return len(r.anchors) }

// At returns the i'th anchor in insertion order.
func (r *Registry) At(i int) *Anchor { return r.anchors[i] }

// Get finds the anchor with the given sequence, or returns nil.
func (r *Registry) Get(seq string) *Anchor {
	if i, ok := r.index[seq]; ok {
		return r.anchors[i]
	}
	return nil
}

func (r *Registry) add(a *Anchor) {
	if _, ok := r.index[a.Seq]; ok {
		panic(a.Seq)
	}
	r.index[a.Seq] = len(r.anchors)
	r.anchors = append(r.anchors, a)
}

// Each calls fn for every anchor in insertion order.
func (r *Registry) Each(fn func(i int, a *Anchor)) {
	for i, a := range r.anchors {
		fn(i, a)
	}
}

// Retain keeps the anchors for which keep returns true, preserving their
// relative order. It returns the number of anchors removed.
func (r *Registry) Retain(keep func(*Anchor) bool) int {
	n := 0
	for _, a := range r.anchors {
		if keep(a) {
			r.index[a.Seq] = n
			r.anchors[n] = a
			n++
		} else {
			delete(r.index, a.Seq)
		}
	}
	removed := len(r.anchors) - n
	for i := n; i < len(r.anchors); i++ {
		r.anchors[i] = nil
	}
	r.anchors = r.anchors[:n]
	return removed
}

// Seqs returns the anchor sequences in insertion order.
func (r *Registry) Seqs() []string {
	seqs := make([]string, len(r.anchors))
	for i, a := range r.anchors {
		seqs[i] = a.Seq
	}
	return seqs
}
