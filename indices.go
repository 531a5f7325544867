package consensus

import (
	"math"
	"sort"
)

// Index names one internal validity index.
type Index string

const (
	IndexCalinskiHarabasz Index = "calinski_harabasz"
	IndexDaviesBouldin    Index = "davies_bouldin"
	IndexDunn             Index = "dunn"
	IndexSilhouette       Index = "silhouette"
	IndexCIndex           Index = "c_index"
	IndexPBM              Index = "pbm"
	IndexConnectivity     Index = "connectivity"
	IndexCompactness      Index = "compactness"
)

// AllIndices lists the internal battery in evaluation order.
func AllIndices() []Index {
	return []Index{
		IndexCalinskiHarabasz,
		IndexDaviesBouldin,
		IndexDunn,
		IndexSilhouette,
		IndexCIndex,
		IndexPBM,
		IndexConnectivity,
		IndexCompactness,
	}
}

// HigherIsBetter reports the direction of an index: true when larger
// values indicate a better partition.
func HigherIsBetter(idx Index) bool {
	switch idx {
	case IndexCalinskiHarabasz, IndexDunn, IndexSilhouette, IndexPBM:
		return true
	default:
		// Davies-Bouldin, C-index, Connectivity, Compactness improve
		// downward.
		return false
	}
}

// clusterView groups sample indices by label and caches centroids plus
// the pairwise Euclidean distance matrix. All internal indices share
// it, so the O(n^2) distances are computed once per view rather than
// once per index.
type clusterView struct {
	flat      []float64
	dist      []float64 // flat n*n pairwise Euclidean distances
	n, dims   int
	labels    []int
	groups    [][]int   // cluster -> member sample indices
	centroids []float64 // cluster -> flat centroid
	grand     []float64 // overall centroid
}

// newClusterView validates (data, labels) and indexes the clusters.
// Labels must be complete; the distinct labels become clusters in
// ascending order.
func newClusterView(data [][]float64, labels []int) (*clusterView, error) {
	flat, n, dims, err := flattenData(data)
	if err != nil {
		return nil, err
	}
	dist := ComputePairwiseDistances(flat, n, dims, EuclideanMetric{})
	return newSharedClusterView(flat, dist, n, dims, labels)
}

// newSharedClusterView builds a view over pre-flattened data and a
// precomputed pairwise distance matrix, so several views over the same
// data (one per evaluated member) can share both.
func newSharedClusterView(flat, dist []float64, n, dims int, labels []int) (*clusterView, error) {
	if len(labels) != n {
		return nil, ShapeError{Op: "clusterView", Want: n, Got: len(labels), Detail: "label vector length"}
	}
	if err := checkComplete("validity index", labels); err != nil {
		return nil, err
	}
	dl := distinctLabels(labels)
	pos := make(map[int]int, len(dl))
	for g, l := range dl {
		pos[l] = g
	}
	v := &clusterView{
		flat:      flat,
		dist:      dist,
		n:         n,
		dims:      dims,
		labels:    labels,
		groups:    make([][]int, len(dl)),
		centroids: make([]float64, len(dl)*dims),
		grand:     make([]float64, dims),
	}
	for i, l := range labels {
		g := pos[l]
		v.groups[g] = append(v.groups[g], i)
		for d := 0; d < dims; d++ {
			v.centroids[g*dims+d] += flat[i*dims+d]
			v.grand[d] += flat[i*dims+d]
		}
	}
	for g, members := range v.groups {
		for d := 0; d < dims; d++ {
			v.centroids[g*dims+d] /= float64(len(members))
		}
	}
	for d := 0; d < dims; d++ {
		v.grand[d] /= float64(n)
	}
	return v, nil
}

func (v *clusterView) row(i int) []float64       { return v.flat[i*v.dims : (i+1)*v.dims] }
func (v *clusterView) centroid(g int) []float64  { return v.centroids[g*v.dims : (g+1)*v.dims] }
func (v *clusterView) pairDist(i, j int) float64 { return v.dist[i*v.n+j] }

// InternalIndex computes one internal validity index for a complete
// partition of the data. Indices that are undefined for the partition,
// such as any needing at least two clusters when only one is present,
// return NaN rather than an error so index tables stay rectangular.
func InternalIndex(idx Index, data [][]float64, labels []int) (float64, error) {
	v, err := newClusterView(data, labels)
	if err != nil {
		return 0, err
	}
	return v.index(idx)
}

// index dispatches one internal index over the view.
func (v *clusterView) index(idx Index) (float64, error) {
	switch idx {
	case IndexCalinskiHarabasz:
		return v.calinskiHarabasz(), nil
	case IndexDaviesBouldin:
		return v.daviesBouldin(), nil
	case IndexDunn:
		return v.dunn(), nil
	case IndexSilhouette:
		return v.silhouette(), nil
	case IndexCIndex:
		return v.cIndex(), nil
	case IndexPBM:
		return v.pbm(), nil
	case IndexConnectivity:
		return v.connectivity(10), nil
	case IndexCompactness:
		return v.compactness(), nil
	default:
		return 0, ConfigError{Field: "index", Reason: "unknown internal index " + string(idx)}
	}
}

// calinskiHarabasz is the between/within dispersion ratio scaled by the
// degrees of freedom. Undefined for a single cluster or k = n.
func (v *clusterView) calinskiHarabasz() float64 {
	k := len(v.groups)
	if k < 2 || k >= v.n {
		return math.NaN()
	}
	between, within := 0.0, 0.0
	for g, members := range v.groups {
		between += float64(len(members)) * sumSquares(v.centroid(g), v.grand)
		for _, i := range members {
			within += sumSquares(v.row(i), v.centroid(g))
		}
	}
	if within == 0 {
		return math.NaN()
	}
	return (between / float64(k-1)) / (within / float64(v.n-k))
}

// daviesBouldin averages, over clusters, the worst ratio of summed
// scatters to centroid separation. Undefined for a single cluster.
func (v *clusterView) daviesBouldin() float64 {
	k := len(v.groups)
	if k < 2 {
		return math.NaN()
	}
	scatter := make([]float64, k)
	for g, members := range v.groups {
		s := 0.0
		for _, i := range members {
			s += math.Sqrt(sumSquares(v.row(i), v.centroid(g)))
		}
		scatter[g] = s / float64(len(members))
	}
	total := 0.0
	for g := 0; g < k; g++ {
		worst := 0.0
		for h := 0; h < k; h++ {
			if h == g {
				continue
			}
			sep := math.Sqrt(sumSquares(v.centroid(g), v.centroid(h)))
			if sep == 0 {
				return math.NaN()
			}
			if r := (scatter[g] + scatter[h]) / sep; r > worst {
				worst = r
			}
		}
		total += worst
	}
	return total / float64(k)
}

// dunn is the minimum inter-cluster distance over the maximum cluster
// diameter. Undefined for a single cluster or zero diameters throughout.
func (v *clusterView) dunn() float64 {
	k := len(v.groups)
	if k < 2 {
		return math.NaN()
	}
	minSep := math.Inf(1)
	maxDiam := 0.0
	for i := 0; i < v.n; i++ {
		for j := i + 1; j < v.n; j++ {
			d := v.pairDist(i, j)
			if v.labels[i] == v.labels[j] {
				if d > maxDiam {
					maxDiam = d
				}
			} else if d < minSep {
				minSep = d
			}
		}
	}
	if maxDiam == 0 {
		return math.NaN()
	}
	return minSep / maxDiam
}

// silhouette is the mean of (b-a)/max(a,b) over samples, where a is the
// mean intra-cluster distance and b the best mean distance to another
// cluster. Singleton clusters contribute zero, matching the usual
// convention. Undefined for a single cluster.
func (v *clusterView) silhouette() float64 {
	k := len(v.groups)
	if k < 2 {
		return math.NaN()
	}
	pos := make(map[int]int, k)
	for g, members := range v.groups {
		pos[v.labels[members[0]]] = g
	}
	total := 0.0
	sums := make([]float64, k)
	for i := 0; i < v.n; i++ {
		gi := pos[v.labels[i]]
		if len(v.groups[gi]) == 1 {
			continue
		}
		for g := range sums {
			sums[g] = 0
		}
		for j := 0; j < v.n; j++ {
			if j == i {
				continue
			}
			sums[pos[v.labels[j]]] += v.pairDist(i, j)
		}
		a := sums[gi] / float64(len(v.groups[gi])-1)
		b := math.Inf(1)
		for g := 0; g < k; g++ {
			if g == gi {
				continue
			}
			if m := sums[g] / float64(len(v.groups[g])); m < b {
				b = m
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(v.n)
}

// cIndex compares the sum of within-cluster pairwise distances to the
// best and worst possible sums over the same number of pairs:
// (S - Smin) / (Smax - Smin). Undefined when no within pair exists or
// every pairwise distance is equal.
func (v *clusterView) cIndex() float64 {
	var all []float64
	s, within := 0.0, 0
	for i := 0; i < v.n; i++ {
		for j := i + 1; j < v.n; j++ {
			d := v.pairDist(i, j)
			all = append(all, d)
			if v.labels[i] == v.labels[j] {
				s += d
				within++
			}
		}
	}
	if within == 0 || within == len(all) {
		return math.NaN()
	}
	sort.Float64s(all)
	smin, smax := 0.0, 0.0
	for p := 0; p < within; p++ {
		smin += all[p]
		smax += all[len(all)-1-p]
	}
	if smax == smin {
		return math.NaN()
	}
	return (s - smin) / (smax - smin)
}

// pbm is ((E1/(k*Ew)) * Dmax)^2 where E1 is total distance to the grand
// centroid, Ew the total distance to cluster centroids and Dmax the
// largest centroid separation. Undefined for a single cluster.
func (v *clusterView) pbm() float64 {
	k := len(v.groups)
	if k < 2 {
		return math.NaN()
	}
	e1, ew := 0.0, 0.0
	for g, members := range v.groups {
		for _, i := range members {
			e1 += math.Sqrt(sumSquares(v.row(i), v.grand))
			ew += math.Sqrt(sumSquares(v.row(i), v.centroid(g)))
		}
	}
	dmax := 0.0
	for g := 0; g < k; g++ {
		for h := g + 1; h < k; h++ {
			if d := math.Sqrt(sumSquares(v.centroid(g), v.centroid(h))); d > dmax {
				dmax = d
			}
		}
	}
	if ew == 0 {
		return math.NaN()
	}
	r := e1 / (float64(k) * ew) * dmax
	return r * r
}

// connectivity sums, over each sample's L nearest neighbours, 1/rank
// for every neighbour landing in a different cluster. Zero means every
// sample's neighbourhood is pure.
func (v *clusterView) connectivity(l int) float64 {
	if l > v.n-1 {
		l = v.n - 1
	}
	if l < 1 {
		return math.NaN()
	}
	type nb struct {
		idx  int
		dist float64
	}
	order := make([]nb, 0, v.n-1)
	total := 0.0
	for i := 0; i < v.n; i++ {
		order = order[:0]
		for j := 0; j < v.n; j++ {
			if j == i {
				continue
			}
			order = append(order, nb{idx: j, dist: v.pairDist(i, j)})
		}
		sort.SliceStable(order, func(a, b int) bool { return order[a].dist < order[b].dist })
		for r := 0; r < l; r++ {
			if v.labels[order[r].idx] != v.labels[i] {
				total += 1 / float64(r+1)
			}
		}
	}
	return total
}

// compactness is the mean distance of samples to their cluster centroid.
func (v *clusterView) compactness() float64 {
	total := 0.0
	pos := make(map[int]int, len(v.groups))
	for g, members := range v.groups {
		pos[v.labels[members[0]]] = g
	}
	for i := 0; i < v.n; i++ {
		total += math.Sqrt(sumSquares(v.row(i), v.centroid(pos[v.labels[i]])))
	}
	return total / float64(v.n)
}
