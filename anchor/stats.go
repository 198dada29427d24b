package anchor

import "fmt"

// Stats represents high-level statistics of a run.
type Stats struct {
	// Reads is the # of reads processed.
	Reads int
	// NewAnchors is the # of anchor windows whose anchor was not registered
	// when seen, including those rejected after admission closed.
	NewAnchors int
	// AdmissionClosedAt is the read count at which admission closed, or 0.
	AdmissionClosedAt int
	// Prunes is the # of oracle prune passes, and Pruned the # of anchors
	// they discarded.
	Prunes, Pruned int
	// Anchors is the # of anchors registered at the end of the pass.
	Anchors int
	// Tests is the # of anchor directions tested.
	Tests int
	// PSignificant and QSignificant are the # of anchors that passed the
	// p-value and q-value filters.
	PSignificant, QSignificant int
	// Clusters is the # of clusters of significant anchors.
	Clusters int
	// Assemblies[o] counts the clusters whose consensus has outcome o.
	Assemblies [numAssemblyOutcomes]int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Reads += o.Reads
	s.NewAnchors += o.NewAnchors
	s.AdmissionClosedAt += o.AdmissionClosedAt
	s.Prunes += o.Prunes
	s.Pruned += o.Pruned
	s.Anchors += o.Anchors
	s.Tests += o.Tests
	s.PSignificant += o.PSignificant
	s.QSignificant += o.QSignificant
	s.Clusters += o.Clusters
	for i, n := range o.Assemblies {
		s.Assemblies[i] += n
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("reads=%d new-anchors=%d admission-closed-at=%d prunes=%d pruned=%d anchors=%d tests=%d p-significant=%d q-significant=%d clusters=%d assemblies=%v",
		s.Reads, s.NewAnchors, s.AdmissionClosedAt, s.Prunes, s.Pruned, s.Anchors, s.Tests,
		s.PSignificant, s.QSignificant, s.Clusters, s.Assemblies)
}
