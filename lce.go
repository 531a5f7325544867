package consensus

import (
	"fmt"
	"math"
)

// LCEVariant selects how LCE derives pairwise similarity from shared
// cluster membership.
type LCEVariant string

const (
	// VariantCTS scores a sample pair by connected triples in the
	// cluster graph: co-members count in full, samples in different
	// clusters inherit the decayed strength of the clusters' shared
	// neighbourhood.
	VariantCTS LCEVariant = "cts"
	// VariantSRS runs a SimRank-style recursion in which samples are
	// as similar as the clusters containing them, and clusters as
	// similar as their members.
	VariantSRS LCEVariant = "srs"
	// VariantASRS approximates the SimRank recursion in one pass using
	// the symmetric containment of cluster member sets.
	VariantASRS LCEVariant = "asrs"
)

// LCEConfig controls LCE.
type LCEConfig struct {
	// Variant picks the similarity construction. Default: VariantCTS.
	Variant LCEVariant

	// DC is the decay constant damping similarity carried through
	// neighbouring clusters, in (0, 1]. Default: 0.8.
	DC float64

	// Iterations is the recursion depth of VariantSRS. Default: 5.
	Iterations int

	// Linkage is the agglomeration rule cutting the derived similarity
	// into k groups. Default: LinkageAverage.
	Linkage Linkage
}

// DefaultLCEConfig returns an LCEConfig with reasonable defaults.
func DefaultLCEConfig() LCEConfig {
	return LCEConfig{
		Variant:    VariantCTS,
		DC:         0.8,
		Iterations: 5,
		Linkage:    LinkageAverage,
	}
}

func applyLCEDefaults(cfg *LCEConfig) {
	if cfg.Variant == "" {
		cfg.Variant = VariantCTS
	}
	if cfg.DC == 0 {
		cfg.DC = 0.8
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = 5
	}
	if cfg.Linkage == "" {
		cfg.Linkage = LinkageAverage
	}
}

func validateLCEConfig(cfg *LCEConfig) error {
	switch cfg.Variant {
	case VariantCTS, VariantSRS, VariantASRS:
	default:
		return ConfigError{Field: "Variant", Reason: fmt.Sprintf("unknown LCE variant %q", cfg.Variant)}
	}
	if cfg.DC <= 0 || cfg.DC > 1 {
		return ConfigError{Field: "DC", Reason: fmt.Sprintf("decay constant %v outside (0, 1]", cfg.DC)}
	}
	if cfg.Iterations < 1 {
		return ConfigError{Field: "Iterations", Reason: "must be at least 1"}
	}
	return nil
}

// LCE is the local cluster ensemble: it refines the ensemble's raw
// co-membership into a smoother similarity matrix using one of three
// variants, then agglomerates 1-similarity into k groups. All three
// variants produce a symmetric matrix with entries in [0, 1] and a unit
// diagonal; samples sharing no observed column get similarity zero.
// Labels are numbered by first occurrence.
func LCE(e *Matrix, k int, cfg LCEConfig) ([]int, error) {
	applyLCEDefaults(&cfg)
	if err := validateLCEConfig(&cfg); err != nil {
		return nil, err
	}
	if err := validateEnsemble(MethodLCE, e, k); err != nil {
		return nil, err
	}
	if i := e.missingRow(); i >= 0 {
		return nil, ConfigError{Field: "partitions", Reason: fmt.Sprintf("sample %d has no assignment in any partition", i)}
	}

	g := buildClusterGraph(e)
	var sim []float64
	switch cfg.Variant {
	case VariantSRS:
		sim = srsSimilarity(g, cfg.DC, cfg.Iterations)
	case VariantASRS:
		sim = asrsSimilarity(g, cfg.DC)
	default:
		sim = ctsSimilarity(g, cfg.DC)
	}

	n := e.rows
	dis := make([]float64, n*n)
	for i, v := range sim {
		dis[i] = 1 - v
	}
	return CutDissimilarity(dis, n, k, cfg.Linkage)
}

// clusterGraph indexes every cluster appearing in any column of the
// ensemble: its member samples, and for each sample the clusters
// containing it. Cluster ids are assigned in column order, then first
// appearance within the column, so the graph is deterministic.
type clusterGraph struct {
	n       int
	m       int
	members [][]int // cluster -> ascending member samples
	of      []int   // of[c*n+i] = cluster of sample i in column c, -1 when Missing
	belongs [][]int // sample -> clusters containing it
}

func buildClusterGraph(e *Matrix) *clusterGraph {
	n, m := e.rows, e.cols
	g := &clusterGraph{
		n:       n,
		m:       m,
		of:      make([]int, n*m),
		belongs: make([][]int, n),
	}
	for c := 0; c < m; c++ {
		idx := make(map[int]int, 8)
		for i := 0; i < n; i++ {
			l := e.At(i, c)
			if l == Missing {
				g.of[c*n+i] = -1
				continue
			}
			q, ok := idx[l]
			if !ok {
				q = len(g.members)
				idx[l] = q
				g.members = append(g.members, nil)
			}
			g.members[q] = append(g.members[q], i)
			g.of[c*n+i] = q
			g.belongs[i] = append(g.belongs[i], q)
		}
	}
	return g
}

// ctsSimilarity implements the connected-triple variant. Cluster pairs
// are weighted by the Jaccard overlap of their members; the
// connected-triple strength of a pair is the summed minimum weight of
// shared neighbours, normalized by the largest such sum. A sample pair
// then averages, over the columns observing both, 1 for co-membership
// and the decayed triple strength between their clusters otherwise.
func ctsSimilarity(g *clusterGraph, dc float64) []float64 {
	nc := len(g.members)
	wcl := make([]float64, nc*nc)
	for p := 0; p < nc; p++ {
		wcl[p*nc+p] = 1
		for q := p + 1; q < nc; q++ {
			w := jaccardSets(g.members[p], g.members[q])
			wcl[p*nc+q] = w
			wcl[q*nc+p] = w
		}
	}

	wct := make([]float64, nc*nc)
	maxW := 0.0
	for p := 0; p < nc; p++ {
		for q := p + 1; q < nc; q++ {
			s := 0.0
			for t := 0; t < nc; t++ {
				if t == p || t == q {
					continue
				}
				s += math.Min(wcl[p*nc+t], wcl[q*nc+t])
			}
			wct[p*nc+q] = s
			wct[q*nc+p] = s
			if s > maxW {
				maxW = s
			}
		}
	}
	if maxW > 0 {
		for i := range wct {
			wct[i] /= maxW
		}
	}

	n := g.n
	sim := make([]float64, n*n)
	for i := 0; i < n; i++ {
		sim[i*n+i] = 1
		for j := i + 1; j < n; j++ {
			total, seen := 0.0, 0
			for c := 0; c < g.m; c++ {
				p, q := g.of[c*n+i], g.of[c*n+j]
				if p < 0 || q < 0 {
					continue
				}
				seen++
				if p == q {
					total++
				} else {
					total += dc * wct[p*nc+q]
				}
			}
			v := 0.0
			if seen > 0 {
				v = total / float64(seen)
			}
			sim[i*n+j] = v
			sim[j*n+i] = v
		}
	}
	return sim
}

// srsSimilarity implements the SimRank variant: starting from identity
// matrices, clusters take on the decayed mean similarity of their
// member pairs, and samples the decayed mean similarity of the
// clusters containing them, for the configured number of rounds.
func srsSimilarity(g *clusterGraph, dc float64, iterations int) []float64 {
	n, nc := g.n, len(g.members)
	sim := make([]float64, n*n)
	csim := make([]float64, nc*nc)
	for i := 0; i < n; i++ {
		sim[i*n+i] = 1
	}
	for p := 0; p < nc; p++ {
		csim[p*nc+p] = 1
	}

	for t := 0; t < iterations; t++ {
		for p := 0; p < nc; p++ {
			for q := p + 1; q < nc; q++ {
				s := 0.0
				for _, i := range g.members[p] {
					for _, j := range g.members[q] {
						s += sim[i*n+j]
					}
				}
				v := dc * s / float64(len(g.members[p])*len(g.members[q]))
				csim[p*nc+q] = v
				csim[q*nc+p] = v
			}
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				bi, bj := g.belongs[i], g.belongs[j]
				if len(bi) == 0 || len(bj) == 0 {
					continue
				}
				s := 0.0
				for _, p := range bi {
					for _, q := range bj {
						s += csim[p*nc+q]
					}
				}
				v := dc * s / float64(len(bi)*len(bj))
				sim[i*n+j] = v
				sim[j*n+i] = v
			}
		}
	}
	return sim
}

// asrsSimilarity approximates the SimRank recursion in one pass:
// cluster pairs are weighted by symmetric containment (shared members
// over the geometric mean size), and a sample pair averages the decayed
// weight across every pairing of their clusters, with identical
// clusters counting in full.
func asrsSimilarity(g *clusterGraph, dc float64) []float64 {
	nc := len(g.members)
	w := make([]float64, nc*nc)
	for p := 0; p < nc; p++ {
		w[p*nc+p] = 1
		for q := p + 1; q < nc; q++ {
			inter := intersectSize(g.members[p], g.members[q])
			v := float64(inter) / math.Sqrt(float64(len(g.members[p]))*float64(len(g.members[q])))
			w[p*nc+q] = v
			w[q*nc+p] = v
		}
	}

	n := g.n
	sim := make([]float64, n*n)
	for i := 0; i < n; i++ {
		sim[i*n+i] = 1
		for j := i + 1; j < n; j++ {
			bi, bj := g.belongs[i], g.belongs[j]
			if len(bi) == 0 || len(bj) == 0 {
				continue
			}
			s := 0.0
			for _, p := range bi {
				for _, q := range bj {
					if p == q {
						s++
					} else {
						s += dc * w[p*nc+q]
					}
				}
			}
			v := s / float64(len(bi)*len(bj))
			sim[i*n+j] = v
			sim[j*n+i] = v
		}
	}
	return sim
}

// intersectSize counts the shared values of two ascending slices.
func intersectSize(a, b []int) int {
	inter, ia, ib := 0, 0, 0
	for ia < len(a) && ib < len(b) {
		switch {
		case a[ia] == b[ib]:
			inter++
			ia++
			ib++
		case a[ia] < b[ib]:
			ia++
		default:
			ib++
		}
	}
	return inter
}

// jaccardSets is intersection over union for two ascending slices.
func jaccardSets(a, b []int) float64 {
	inter := intersectSize(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
