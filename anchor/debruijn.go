package anchor

// assemblyKmerLength is the length of the k-mers whose overlaps form the de
// Bruijn graph; nodes are (assemblyKmerLength-1)-mers.
const assemblyKmerLength = 9

// AssemblyOutcome tells how a cluster consensus was obtained.
type AssemblyOutcome int

const (
	// Assembled means an Eulerian trail covered every edge.
	Assembled AssemblyOutcome = iota
	// AssembledPartial means the trail search stopped with edges left; the
	// partial trail is used.
	AssembledPartial
	// FallbackNoSource means the graph did not have exactly one source node;
	// the first member is used.
	FallbackNoSource
	// FallbackTooShort means the assembly was not longer than the shortest
	// member; the first member is used.
	FallbackTooShort
	numAssemblyOutcomes
)

var assemblyOutcomeNames = []string{
	Assembled:        "assembled",
	AssembledPartial: "assembled (partial)",
	FallbackNoSource: "fallback (no unique source)",
	FallbackTooShort: "fallback (too short)",
}

func (o AssemblyOutcome) String() string {
	if o < 0 || o >= numAssemblyOutcomes {
		return "unknown"
	}
	return assemblyOutcomeNames[o]
}

// debruijnGraph is a de Bruijn graph over the k-mers of a set of sequences.
// Parallel edges are collapsed.
type debruijnGraph struct {
	nodes    []string // insertion order
	edges    map[string][]string
	indegree map[string]int
}

func newDebruijnGraph(seqs []string, k int) *debruijnGraph {
	g := &debruijnGraph{edges: map[string][]string{}, indegree: map[string]int{}}
	seen := map[string]bool{}
	addNode := func(n string) {
		if !seen[n] {
			seen[n] = true
			g.nodes = append(g.nodes, n)
		}
	}
	for _, seq := range seqs {
		for _, kmer := range Lmers(seq, k) {
			from, to := kmer[:k-1], kmer[1:]
			addNode(from)
			addNode(to)
			dup := false
			for _, n := range g.edges[from] {
				if n == to {
					dup = true
					break
				}
			}
			if !dup {
				g.edges[from] = append(g.edges[from], to)
				g.indegree[to]++
			}
		}
	}
	return g
}

// sources returns the nodes with outgoing but no incoming edges.
func (g *debruijnGraph) sources() []string {
	var srcs []string
	for _, n := range g.nodes {
		if len(g.edges[n]) > 0 && g.indegree[n] == 0 {
			srcs = append(srcs, n)
		}
	}
	return srcs
}

// eulerianTrail walks the graph from start by repeatedly splicing closed
// sub-walks into the trail (Hierholzer). Successors are consumed from the end
// of each node's list. complete is false when edges remain but no node of the
// trail has any left.
func (g *debruijnGraph) eulerianTrail(start string) (trail []string, complete bool) {
	adj := make(map[string][]string, len(g.edges))
	nEdges := 0
	for n, succ := range g.edges {
		adj[n] = append([]string(nil), succ...)
		nEdges += len(succ)
	}
	pop := func(n string) (string, bool) {
		succ := adj[n]
		if len(succ) == 0 {
			return "", false
		}
		next := succ[len(succ)-1]
		adj[n] = succ[:len(succ)-1]
		nEdges--
		return next, true
	}
	trail = []string{start}
	for {
		var sub []string
		prev := start
		for {
			next, ok := pop(prev)
			if !ok {
				break
			}
			sub = append(sub, next)
			if next == start {
				break
			}
			prev = next
		}
		at := 0
		for i, n := range trail {
			if n == start {
				at = i
				break
			}
		}
		spliced := make([]string, 0, len(trail)+len(sub))
		spliced = append(spliced, trail[:at+1]...)
		spliced = append(spliced, sub...)
		spliced = append(spliced, trail[at+1:]...)
		trail = spliced
		if nEdges == 0 {
			return trail, true
		}
		found := false
		for _, n := range trail {
			if len(adj[n]) > 0 {
				start, found = n, true
				break
			}
		}
		if !found {
			return trail, false
		}
	}
}

// spell concatenates a trail of overlapping nodes: the first node followed by
// the last base of each subsequent node.
func spell(trail []string) string {
	if len(trail) == 0 {
		return ""
	}
	buf := []byte(trail[0])
	for _, n := range trail[1:] {
		buf = append(buf, n[len(n)-1])
	}
	return string(buf)
}

// Assemble builds a consensus of seqs from the de Bruijn graph of their
// 9-mers. It falls back to seqs[0] when the graph has no unique source or when
// the assembly is not longer than the shortest input.
func Assemble(seqs []string) (string, AssemblyOutcome) {
	if len(seqs) == 0 {
		return "", FallbackNoSource
	}
	g := newDebruijnGraph(seqs, assemblyKmerLength)
	srcs := g.sources()
	if len(srcs) != 1 {
		return seqs[0], FallbackNoSource
	}
	trail, complete := g.eulerianTrail(srcs[0])
	asm := spell(trail)
	shortest := len(seqs[0])
	for _, s := range seqs[1:] {
		if len(s) < shortest {
			shortest = len(s)
		}
	}
	if len(asm) <= shortest {
		return seqs[0], FallbackTooShort
	}
	if !complete {
		return asm, AssembledPartial
	}
	return asm, Assembled
}
