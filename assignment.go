package consensus

import "fmt"

// Array is the four-axis store of base clustering results: one label
// per (sample, replicate, algorithm, cluster count). Entries start as
// Missing and are filled by Generate or SetPartition. Labels for the
// slice at cluster count k lie in [1, k].
//
// Storage is a single flat slice ordered so that one (replicate,
// algorithm, k) partition is a contiguous block of n labels.
type Array struct {
	n          int
	reps       int
	algorithms []string
	ks         []int
	algIndex   map[string]int
	kIndex     map[int]int
	data       []int
}

// NewArray returns an empty assignment array for n samples, reps
// replicates per algorithm, the given base algorithms and the given
// candidate cluster counts. Algorithms and cluster counts must be
// non-empty and free of duplicates.
func NewArray(n, reps int, algorithms []string, ks []int) (*Array, error) {
	if n < 1 {
		return nil, ConfigError{Field: "samples", Reason: "need at least one sample"}
	}
	if reps < 1 {
		return nil, ConfigError{Field: "replicates", Reason: "need at least one replicate"}
	}
	if len(algorithms) == 0 {
		return nil, ConfigError{Field: "algorithms", Reason: "no base algorithms given"}
	}
	if len(ks) == 0 {
		return nil, ConfigError{Field: "ks", Reason: "no cluster counts given"}
	}
	algIndex := make(map[string]int, len(algorithms))
	for i, a := range algorithms {
		if a == "" {
			return nil, ConfigError{Field: "algorithms", Reason: "empty algorithm name"}
		}
		if _, dup := algIndex[a]; dup {
			return nil, ConfigError{Field: "algorithms", Reason: fmt.Sprintf("duplicate algorithm %q", a)}
		}
		algIndex[a] = i
	}
	kIndex := make(map[int]int, len(ks))
	for i, k := range ks {
		if k < 1 || k > n {
			return nil, ConfigError{Field: "ks", Reason: fmt.Sprintf("cluster count %d outside [1, %d]", k, n)}
		}
		if _, dup := kIndex[k]; dup {
			return nil, ConfigError{Field: "ks", Reason: fmt.Sprintf("duplicate cluster count %d", k)}
		}
		kIndex[k] = i
	}
	return &Array{
		n:          n,
		reps:       reps,
		algorithms: append([]string(nil), algorithms...),
		ks:         append([]int(nil), ks...),
		algIndex:   algIndex,
		kIndex:     kIndex,
		data:       make([]int, n*reps*len(algorithms)*len(ks)),
	}, nil
}

// FromPartitions builds a single-algorithm, single-k array directly
// from complete or partial label vectors, one replicate per vector.
func FromPartitions(algorithm string, k int, partitions ...[]int) (*Array, error) {
	if len(partitions) == 0 {
		return nil, ConfigError{Field: "partitions", Reason: "no partitions given"}
	}
	n := len(partitions[0])
	arr, err := NewArray(n, len(partitions), []string{algorithm}, []int{k})
	if err != nil {
		return nil, err
	}
	for r, p := range partitions {
		if err := arr.SetPartition(r, 0, 0, p); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// N returns the number of samples.
func (a *Array) N() int { return a.n }

// Reps returns the number of replicates per algorithm.
func (a *Array) Reps() int { return a.reps }

// Algorithms returns the base algorithm names in axis order.
func (a *Array) Algorithms() []string { return append([]string(nil), a.algorithms...) }

// Ks returns the candidate cluster counts in axis order.
func (a *Array) Ks() []int { return append([]int(nil), a.ks...) }

// HasK reports whether the array carries a slice for cluster count k.
func (a *Array) HasK(k int) bool {
	_, ok := a.kIndex[k]
	return ok
}

func (a *Array) block(rep, alg, kPos int) []int {
	off := ((kPos*len(a.algorithms)+alg)*a.reps + rep) * a.n
	return a.data[off : off+a.n]
}

// At returns the label of the given sample for replicate rep of
// algorithm position alg at cluster-count position kPos. Positions are
// indices into Algorithms() and Ks().
func (a *Array) At(sample, rep, alg, kPos int) int {
	return a.block(rep, alg, kPos)[sample]
}

// Set assigns one label. See At for the axis convention.
func (a *Array) Set(sample, rep, alg, kPos, label int) {
	a.block(rep, alg, kPos)[sample] = label
}

// SetPartition stores a whole length-n label vector for one
// (replicate, algorithm, k) slice. The vector is copied, and its
// labels are checked against the slice's cluster count.
func (a *Array) SetPartition(rep, alg, kPos int, labels []int) error {
	if len(labels) != a.n {
		return ShapeError{Op: "SetPartition", Want: a.n, Got: len(labels), Detail: "partition length"}
	}
	if err := checkLabels("SetPartition", labels, a.ks[kPos]); err != nil {
		return err
	}
	copy(a.block(rep, alg, kPos), labels)
	return nil
}

// Partition returns a copy of the label vector for one (replicate,
// algorithm, k) slice.
func (a *Array) Partition(rep, alg, kPos int) []int {
	return append([]int(nil), a.block(rep, alg, kPos)...)
}

// Partitions flattens the slice at cluster count k into a partition
// matrix with one column per (algorithm, replicate) pair, algorithms
// in axis order and replicates in run order within each algorithm.
func (a *Array) Partitions(k int) (*Matrix, error) {
	kPos, ok := a.kIndex[k]
	if !ok {
		return nil, ConfigError{Field: "k", Reason: fmt.Sprintf("array has no slice for k=%d", k)}
	}
	m := NewMatrix(a.n, len(a.algorithms)*a.reps)
	col := 0
	for alg := range a.algorithms {
		for rep := 0; rep < a.reps; rep++ {
			copy(m.labels[col*a.n:(col+1)*a.n], a.block(rep, alg, kPos))
			col++
		}
	}
	return m, nil
}

// AlgorithmPartitions is Partitions restricted to one base algorithm.
func (a *Array) AlgorithmPartitions(k int, algorithm string) (*Matrix, error) {
	kPos, ok := a.kIndex[k]
	if !ok {
		return nil, ConfigError{Field: "k", Reason: fmt.Sprintf("array has no slice for k=%d", k)}
	}
	alg, ok := a.algIndex[algorithm]
	if !ok {
		return nil, ConfigError{Field: "algorithm", Reason: fmt.Sprintf("array has no algorithm %q", algorithm)}
	}
	m := NewMatrix(a.n, a.reps)
	for rep := 0; rep < a.reps; rep++ {
		copy(m.labels[rep*a.n:(rep+1)*a.n], a.block(rep, alg, kPos))
	}
	return m, nil
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	out, _ := NewArray(a.n, a.reps, a.algorithms, a.ks)
	copy(out.data, a.data)
	return out
}

// MissingCount returns the number of Missing entries across the array.
func (a *Array) MissingCount() int {
	count := 0
	for _, l := range a.data {
		if l == Missing {
			count++
		}
	}
	return count
}

// Merge combines arrays over the same samples into one array covering
// the union of their algorithms. All inputs must agree on sample count,
// replicate count and cluster counts; algorithm names must not repeat
// across inputs.
func Merge(arrays ...*Array) (*Array, error) {
	if len(arrays) == 0 {
		return nil, ConfigError{Field: "arrays", Reason: "no arrays given"}
	}
	first := arrays[0]
	var algorithms []string
	for _, arr := range arrays {
		if arr.n != first.n {
			return nil, ShapeError{Op: "Merge", Want: first.n, Got: arr.n, Detail: "sample count"}
		}
		if arr.reps != first.reps {
			return nil, ShapeError{Op: "Merge", Want: first.reps, Got: arr.reps, Detail: "replicate count"}
		}
		if len(arr.ks) != len(first.ks) || !sameInts(arr.ks, first.ks) {
			return nil, ConfigError{Field: "ks", Reason: "arrays disagree on cluster counts"}
		}
		algorithms = append(algorithms, arr.algorithms...)
	}
	out, err := NewArray(first.n, first.reps, algorithms, first.ks)
	if err != nil {
		return nil, err
	}
	for _, arr := range arrays {
		for kPos := range arr.ks {
			for alg, name := range arr.algorithms {
				dst := out.algIndex[name]
				for rep := 0; rep < arr.reps; rep++ {
					copy(out.block(rep, dst, kPos), arr.block(rep, alg, kPos))
				}
			}
		}
	}
	return out, nil
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
