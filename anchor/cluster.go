package anchor

import (
	"fmt"
	"sort"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// clusterRadius is the maximum edit distance between neighbouring anchors.
const clusterRadius = 2

// DistanceFunc computes the edit distance between two sequences.
type DistanceFunc func(a, b string) int

// Levenshtein is the default DistanceFunc.
func Levenshtein(a, b string) int { return matchr.Levenshtein(a, b) }

// Cluster groups seqs into the connected components of the graph linking
// sequences within edit distance clusterRadius. Clusters are ordered by their
// smallest member; members are ascending indexes into seqs.
//
// Distances are computed by a pool of parallelism workers. If any worker
// fails, the distances are recomputed sequentially.
func Cluster(seqs []string, parallelism int, dist DistanceFunc) [][]int {
	if dist == nil {
		dist = Levenshtein
	}
	adj, err := neighborsParallel(seqs, parallelism, dist)
	if err != nil {
		log.Error.Printf("cluster: parallel distance computation failed, retrying sequentially: %v", err)
		adj = neighbors(seqs, dist)
	}
	return components(adj)
}

func withinRadius(a, b string, dist DistanceFunc) bool {
	if d := len(a) - len(b); d > clusterRadius || d < -clusterRadius {
		return false
	}
	return dist(a, b) <= clusterRadius
}

// neighbors returns, for every i, the indexes j > i within clusterRadius.
func neighbors(seqs []string, dist DistanceFunc) [][]int {
	adj := make([][]int, len(seqs))
	for i := range seqs {
		for j := i + 1; j < len(seqs); j++ {
			if withinRadius(seqs[i], seqs[j], dist) {
				adj[i] = append(adj[i], j)
			}
		}
	}
	return adj
}

func neighborsParallel(seqs []string, parallelism int, dist DistanceFunc) ([][]int, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	adj := make([][]int, len(seqs))
	err := traverse.Each(parallelism, func(job int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("distance worker %d: %v", job, r)
			}
		}()
		for i := job; i < len(seqs); i += parallelism {
			for j := i + 1; j < len(seqs); j++ {
				if withinRadius(seqs[i], seqs[j], dist) {
					adj[i] = append(adj[i], j)
				}
			}
		}
		return nil
	})
	return adj, err
}

// components labels the connected components of the undirected graph whose
// edges are given by adj (i -> j for j > i).
func components(adj [][]int) [][]int {
	n := len(adj)
	undirected := make([][]int, n)
	for i, js := range adj {
		for _, j := range js {
			undirected[i] = append(undirected[i], j)
			undirected[j] = append(undirected[j], i)
		}
	}
	label := make([]int, n)
	for i := range label {
		label[i] = -1
	}
	var clusters [][]int
	for i := 0; i < n; i++ {
		if label[i] >= 0 {
			continue
		}
		c := len(clusters)
		label[i] = c
		members := []int{i}
		for q := 0; q < len(members); q++ {
			for _, j := range undirected[members[q]] {
				if label[j] < 0 {
					label[j] = c
					members = append(members, j)
				}
			}
		}
		sort.Ints(members)
		clusters = append(clusters, members)
	}
	return clusters
}
