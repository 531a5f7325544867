package consensus

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CSPAConfig controls CSPA.
type CSPAConfig struct {
	// MaxIterations bounds the Lloyd iteration that clusters the
	// spectral embedding. Default: 100.
	MaxIterations int
}

// DefaultCSPAConfig returns a CSPAConfig with reasonable defaults.
func DefaultCSPAConfig() CSPAConfig {
	return CSPAConfig{MaxIterations: 100}
}

func applyCSPADefaults(cfg *CSPAConfig) {
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 100
	}
}

// CSPA treats the co-association matrix as a similarity graph and cuts
// it into k groups spectrally: the k eigenvectors of the normalized
// graph Laplacian with the smallest eigenvalues embed the samples in
// R^k, the embedding rows are normalized to unit length, and a
// deterministic Lloyd iteration (farthest-first seeding from the
// max-norm row, every tie to the lowest index) groups them. Pairs the
// ensemble never observed together contribute zero similarity.
//
// The result uses exactly k labels, numbered by first occurrence; a
// co-association structure that cannot support k groups (for example
// duplicate embedding rows under a larger k) is a ConsensusError.
func CSPA(co *Coassociation, k int, cfg CSPAConfig) ([]int, error) {
	applyCSPADefaults(&cfg)
	if cfg.MaxIterations < 1 {
		return nil, ConfigError{Field: "MaxIterations", Reason: "must be at least 1"}
	}
	if co == nil || co.n == 0 {
		return nil, ConfigError{Field: "coassociation", Reason: "empty co-association matrix"}
	}
	n := co.n
	if k < 1 || k > n {
		return nil, ConfigError{Field: "k", Reason: fmt.Sprintf("cluster count %d outside [1, %d]", k, n)}
	}
	if k == 1 {
		out := make([]int, n)
		for i := range out {
			out[i] = 1
		}
		return out, nil
	}

	// Normalized Laplacian L = I - D^-1/2 W D^-1/2. The unit diagonal
	// of the co-association matrix keeps every degree >= 1.
	w := co.Sym()
	deg := make([]float64, n)
	for i := 0; i < n; i++ {
		s := 0.0
		for j := 0; j < n; j++ {
			s += w.At(i, j)
		}
		deg[i] = s
	}
	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := -w.At(i, j) / math.Sqrt(deg[i]*deg[j])
			if i == j {
				v = 1 + v
			}
			lap.SetSym(i, j, v)
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(lap, true) {
		return nil, ConsensusError{Method: MethodCSPA, Sample: -1, Reason: "eigendecomposition of the graph Laplacian failed"}
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Eigenvalues come back ascending, so the first k columns span the
	// flattest directions of the graph. Row-normalize the embedding.
	emb := make([]float64, n*k)
	for i := 0; i < n; i++ {
		row := emb[i*k : (i+1)*k]
		for j := 0; j < k; j++ {
			row[j] = vecs.At(i, j)
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}

	assign := lloydRows(emb, n, k, cfg.MaxIterations)
	out := make([]int, n)
	for i, g := range assign {
		out[i] = g + 1
	}
	canonicalizeLabels(out)
	if got := len(distinctLabels(out)); got != k {
		return nil, ConsensusError{
			Method: MethodCSPA,
			Sample: -1,
			Reason: fmt.Sprintf("similarity structure yields %d groups, want %d", got, k),
		}
	}
	return out, nil
}

// lloydRows clusters the rows of a flat n-by-d matrix into k groups
// with a deterministic Lloyd iteration: the max-norm row seeds the
// first center, the remaining centers are picked farthest-first, and
// assignment, seeding and empty-cluster repair all break ties on the
// lowest index.
func lloydRows(rows []float64, n, k, maxIter int) []int {
	d := len(rows) / n
	centers := make([]float64, k*d)

	seed, seedNorm := 0, -1.0
	for i := 0; i < n; i++ {
		if norm := floats.Norm(rows[i*d:(i+1)*d], 2); norm > seedNorm {
			seed, seedNorm = i, norm
		}
	}
	copy(centers[:d], rows[seed*d:(seed+1)*d])
	minDist := make([]float64, n)
	for i := 0; i < n; i++ {
		minDist[i] = sumSquares(rows[i*d:(i+1)*d], centers[:d])
	}
	for c := 1; c < k; c++ {
		far, farDist := 0, -1.0
		for i := 0; i < n; i++ {
			if minDist[i] > farDist {
				far, farDist = i, minDist[i]
			}
		}
		copy(centers[c*d:(c+1)*d], rows[far*d:(far+1)*d])
		for i := 0; i < n; i++ {
			if dd := sumSquares(rows[i*d:(i+1)*d], centers[c*d:(c+1)*d]); dd < minDist[i] {
				minDist[i] = dd
			}
		}
	}

	assign := make([]int, n)
	prev := make([]int, n)
	counts := make([]int, k)
	for iter := 0; iter < maxIter; iter++ {
		copy(prev, assign)

		for i := 0; i < n; i++ {
			best, bestDist := 0, math.Inf(1)
			for c := 0; c < k; c++ {
				if dd := sumSquares(rows[i*d:(i+1)*d], centers[c*d:(c+1)*d]); dd < bestDist {
					best, bestDist = c, dd
				}
			}
			assign[i] = best
		}

		// An empty cluster steals the row farthest from its center.
		for c := range counts {
			counts[c] = 0
		}
		for _, c := range assign {
			counts[c]++
		}
		moved := false
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				continue
			}
			far, farDist := -1, -1.0
			for i := 0; i < n; i++ {
				if counts[assign[i]] <= 1 {
					continue
				}
				if dd := sumSquares(rows[i*d:(i+1)*d], centers[assign[i]*d:(assign[i]+1)*d]); dd > farDist {
					far, farDist = i, dd
				}
			}
			if far < 0 {
				continue
			}
			counts[assign[far]]--
			assign[far] = c
			counts[c] = 1
			moved = true
		}

		for i := range centers {
			centers[i] = 0
		}
		for i := 0; i < n; i++ {
			c := assign[i]
			floats.Add(centers[c*d:(c+1)*d], rows[i*d:(i+1)*d])
		}
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), centers[c*d:(c+1)*d])
			}
		}

		if iter > 0 && !moved && sameInts(assign, prev) {
			break
		}
	}
	return assign
}
