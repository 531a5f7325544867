package consensus

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Coassociation is the n-by-n matrix of pairwise co-clustering rates
// built from a partition matrix. Entry (i, j) is the fraction of
// partitions observing both samples that assigned them to the same
// cluster. Pairs never observed together are NaN, and the diagonal is
// always 1.
type Coassociation struct {
	n      int
	values []float64
}

// Coassoc accumulates the co-association matrix of E in one pass over
// its partitions. Missing entries reduce the per-pair denominator
// instead of counting as disagreement.
func Coassoc(e *Matrix) *Coassociation {
	n := e.Rows()
	same := make([]int, n*n)
	both := make([]int, n*n)
	coassocRange(e, same, both, 0, n)
	return assembleCoassociation(n, same, both)
}

// coassocRange accumulates the same/both pair counters for rows
// [start, end). Writes touch only rows in the given range, so disjoint
// ranges can run concurrently over shared counter slices.
func coassocRange(e *Matrix, same, both []int, start, end int) {
	n := e.Rows()
	for c := 0; c < e.Cols(); c++ {
		col := e.Column(c)
		for i := start; i < end; i++ {
			li := col[i]
			if li == Missing {
				continue
			}
			row := i * n
			for j := i + 1; j < n; j++ {
				lj := col[j]
				if lj == Missing {
					continue
				}
				both[row+j]++
				if li == lj {
					same[row+j]++
				}
			}
		}
	}
}

func assembleCoassociation(n int, same, both []int) *Coassociation {
	values := make([]float64, n*n)
	for i := 0; i < n; i++ {
		values[i*n+i] = 1
		for j := i + 1; j < n; j++ {
			var v float64
			if b := both[i*n+j]; b == 0 {
				v = math.NaN()
			} else {
				v = float64(same[i*n+j]) / float64(b)
			}
			values[i*n+j] = v
			values[j*n+i] = v
		}
	}
	return &Coassociation{n: n, values: values}
}

// CoassocByAlgorithm builds one co-association matrix per base
// algorithm from the array's slice at cluster count k, accumulating
// each matrix across workers goroutines. workers <= 1 runs
// sequentially.
func CoassocByAlgorithm(arr *Array, k, workers int) (map[string]*Coassociation, error) {
	out := make(map[string]*Coassociation, len(arr.Algorithms()))
	for _, alg := range arr.Algorithms() {
		e, err := arr.AlgorithmPartitions(k, alg)
		if err != nil {
			return nil, err
		}
		out[alg] = CoassocParallel(e, workers)
	}
	return out, nil
}

// N returns the number of samples.
func (c *Coassociation) N() int { return c.n }

// At returns the co-association rate of samples i and j.
func (c *Coassociation) At(i, j int) float64 { return c.values[i*c.n+j] }

// Values returns the matrix as a flat row-major slice sharing the
// receiver's storage.
func (c *Coassociation) Values() []float64 { return c.values }

// Sym exports the matrix as a gonum symmetric matrix, with pairs never
// observed together exported as zero similarity.
func (c *Coassociation) Sym() *mat.SymDense {
	vals := make([]float64, len(c.values))
	for i, v := range c.values {
		if math.IsNaN(v) {
			continue
		}
		vals[i] = v
	}
	return mat.NewSymDense(c.n, vals)
}

// Dissimilarity returns one minus the co-association rates as a flat
// row-major matrix, with pairs never observed together mapped to full
// dissimilarity. The result feeds CutDissimilarity when a consensus is
// drawn from the co-association matrix directly.
func (c *Coassociation) Dissimilarity() []float64 {
	out := make([]float64, len(c.values))
	for i, v := range c.values {
		if math.IsNaN(v) {
			out[i] = 1
		} else {
			out[i] = 1 - v
		}
	}
	return out
}

// PAC is the proportion of ambiguous clustering: the fraction of
// observed off-diagonal pairs whose co-association rate falls strictly
// inside (lower, upper). Lower PAC means a more stable ensemble. NaN
// entries are excluded from both numerator and denominator, and the
// result is NaN when no pair was observed at all or when the bounds do
// not satisfy 0 <= lower < upper <= 1.
func (c *Coassociation) PAC(lower, upper float64) float64 {
	if lower < 0 || upper > 1 || lower >= upper {
		return math.NaN()
	}
	num, den := 0, 0
	for i := 0; i < c.n; i++ {
		for j := i + 1; j < c.n; j++ {
			v := c.values[i*c.n+j]
			if math.IsNaN(v) {
				continue
			}
			den++
			if v > lower && v < upper {
				num++
			}
		}
	}
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}
