package consensus

import (
	"fmt"
	"math"
	"sort"
)

// Linkage selects the agglomeration rule for CutDissimilarity.
type Linkage string

const (
	// LinkageSingle merges on the minimum inter-cluster distance,
	// computed as a minimum-spanning-tree cut.
	LinkageSingle Linkage = "single"
	// LinkageAverage merges on the size-weighted mean inter-cluster
	// distance (Lance-Williams update).
	LinkageAverage Linkage = "average"
	// LinkageComplete merges on the maximum inter-cluster distance.
	LinkageComplete Linkage = "complete"
)

// CutDissimilarity agglomerates n items into exactly k groups from a
// flat row-major n-by-n dissimilarity matrix, returning labels in
// [1, k] numbered by first occurrence. NaN entries are treated as
// infinitely dissimilar, so never-compared items separate first. Merge
// ties resolve to the lowest item index, keeping the cut deterministic.
func CutDissimilarity(d []float64, n, k int, linkage Linkage) ([]int, error) {
	if n < 1 {
		return nil, ConfigError{Field: "samples", Reason: "need at least one sample"}
	}
	if len(d) != n*n {
		return nil, ShapeError{Op: "CutDissimilarity", Want: n * n, Got: len(d), Detail: "dissimilarity matrix size"}
	}
	if k < 1 || k > n {
		return nil, ConfigError{Field: "k", Reason: fmt.Sprintf("cluster count %d outside [1, %d]", k, n)}
	}
	switch linkage {
	case LinkageSingle, LinkageAverage, LinkageComplete:
	default:
		return nil, ConfigError{Field: "linkage", Reason: fmt.Sprintf("unknown linkage %q", linkage)}
	}
	if k == n {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}
	work := sanitizeDissimilarity(d, n)
	if linkage == LinkageSingle {
		return cutSingle(work, n, k), nil
	}
	return cutLanceWilliams(work, n, k, linkage), nil
}

// sanitizeDissimilarity copies d with NaN mapped to +Inf so the merge
// loops only ever compare ordered values.
func sanitizeDissimilarity(d []float64, n int) []float64 {
	out := make([]float64, n*n)
	for i, v := range d {
		if math.IsNaN(v) {
			out[i] = math.Inf(1)
		} else {
			out[i] = v
		}
	}
	return out
}

type mstEdge struct {
	a, b   int
	weight float64
}

// cutSingle runs single linkage as a spanning-tree cut: grow the
// minimum spanning tree with Prim's algorithm, then keep only the n-k
// lightest edges so the remaining forest has exactly k components.
// Rows with +Inf distance to every tree node are attached last, which
// leaves disconnected groups in separate clusters whenever k allows.
func cutSingle(d []float64, n, k int) []int {
	inTree := make([]bool, n)
	current := make([]float64, n)
	closest := make([]int, n)
	inTree[0] = true
	current[0] = math.Inf(1)
	for j := 1; j < n; j++ {
		current[j] = d[j]
	}

	edges := make([]mstEdge, 0, n-1)
	for len(edges) < n-1 {
		minDist := math.Inf(1)
		minNode := -1
		for j := 0; j < n; j++ {
			if !inTree[j] && current[j] < minDist {
				minDist = current[j]
				minNode = j
			}
		}
		// Only +Inf candidates remain (disconnected component): take
		// the first node not yet in the tree.
		if minNode == -1 {
			for j := 0; j < n; j++ {
				if !inTree[j] {
					minNode = j
					minDist = current[j]
					break
				}
			}
		}

		edges = append(edges, mstEdge{a: closest[minNode], b: minNode, weight: minDist})
		inTree[minNode] = true
		for j := 0; j < n; j++ {
			if !inTree[j] && d[minNode*n+j] < current[j] {
				current[j] = d[minNode*n+j]
				closest[j] = minNode
			}
		}
	}

	// Equal weights resolve in tree-growth order.
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].weight < edges[j].weight })

	uf := newUnionFind(n)
	for _, e := range edges[:n-k] {
		uf.union(e.a, e.b)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = uf.find(i) + 1
	}
	return canonicalizeLabels(out)
}

// cutLanceWilliams agglomerates with the average or complete update
// rule until k clusters remain. Distances involving a +Inf entry stay
// +Inf, so never-compared groups only merge once nothing finite is
// left to merge.
func cutLanceWilliams(d []float64, n, k int, linkage Linkage) []int {
	active := make([]bool, n)
	size := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}
	uf := newUnionFind(n)

	for remaining := n; remaining > k; remaining-- {
		ba, bb := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && d[i*n+j] < best {
					best = d[i*n+j]
					ba, bb = i, j
				}
			}
		}
		if ba == -1 {
			// Every remaining pair is +Inf apart; merge the lowest
			// index pair so the loop still terminates at k groups.
		search:
			for i := 0; i < n; i++ {
				if !active[i] {
					continue
				}
				for j := i + 1; j < n; j++ {
					if active[j] {
						ba, bb = i, j
						break search
					}
				}
			}
		}

		// Merge bb into ba and refresh ba's distances in place.
		for t := 0; t < n; t++ {
			if !active[t] || t == ba || t == bb {
				continue
			}
			da, db := d[ba*n+t], d[bb*n+t]
			var nd float64
			if linkage == LinkageComplete {
				nd = math.Max(da, db)
			} else {
				nd = (float64(size[ba])*da + float64(size[bb])*db) / float64(size[ba]+size[bb])
			}
			d[ba*n+t] = nd
			d[t*n+ba] = nd
		}
		size[ba] += size[bb]
		active[bb] = false
		uf.union(ba, bb)
	}

	out := make([]int, n)
	for i := range out {
		out[i] = uf.find(i) + 1
	}
	return canonicalizeLabels(out)
}

// unionFind is a disjoint-set over n items with path compression and
// union by size, used to read the clusters back out of a merge
// sequence.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	size := make([]int, n)
	for i := range parent {
		parent[i] = i
		size[i] = 1
	}
	return &unionFind{parent: parent, size: size}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(x, y int) {
	rx, ry := u.find(x), u.find(y)
	if rx == ry {
		return
	}
	if u.size[rx] < u.size[ry] {
		rx, ry = ry, rx
	}
	u.parent[ry] = rx
	u.size[rx] += u.size[ry]
}
