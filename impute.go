package consensus

import (
	"fmt"
	"sort"
)

// ImputeConfig controls ImputeKNN and ImputeMissing.
type ImputeConfig struct {
	// Neighbours is the number of nearest labelled samples consulted
	// for each missing entry. Default: 5.
	Neighbours int

	// Threshold is the minimum fraction of neighbour votes the winning
	// label needs before a missing entry is filled. Entries whose
	// neighbourhood is more divided stay Missing for the majority-vote
	// stage. In [0, 1]. Default: 0.5.
	Threshold float64

	// Metric ranks neighbours by ReducedDistance. Default: EuclideanMetric.
	Metric DistanceMetric
}

// DefaultImputeConfig returns an ImputeConfig with reasonable defaults.
func DefaultImputeConfig() ImputeConfig {
	return ImputeConfig{Neighbours: 5, Threshold: 0.5, Metric: EuclideanMetric{}}
}

func applyImputeDefaults(cfg *ImputeConfig) {
	if cfg.Neighbours == 0 {
		cfg.Neighbours = 5
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.5
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
}

func validateImputeConfig(cfg *ImputeConfig) error {
	if cfg.Neighbours < 1 {
		return ConfigError{Field: "Neighbours", Reason: "must be at least 1"}
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return ConfigError{Field: "Threshold", Reason: fmt.Sprintf("threshold %v outside [0, 1]", cfg.Threshold)}
	}
	return nil
}

// ImputeKNN fills the Missing entries of one partition from the feature
// data: each unlabelled sample consults its Neighbours nearest labelled
// samples (brute-force by the metric's reduced distance, ties to the
// lowest index) and takes their majority label, but only when that
// label's share of the neighbourhood reaches Threshold. Entries below
// the threshold, and partitions with no labelled sample at all, are
// left Missing rather than guessed.
//
// The input partition is not modified.
func ImputeKNN(part []int, data [][]float64, cfg ImputeConfig) ([]int, error) {
	applyImputeDefaults(&cfg)
	if err := validateImputeConfig(&cfg); err != nil {
		return nil, err
	}
	flat, n, dims, err := flattenData(data)
	if err != nil {
		return nil, err
	}
	if len(part) != n {
		return nil, ShapeError{Op: "ImputeKNN", Want: n, Got: len(part), Detail: "partition length"}
	}

	labelled := make([]int, 0, n)
	maxLabel := 0
	for i, l := range part {
		if l != Missing {
			labelled = append(labelled, i)
			if l > maxLabel {
				maxLabel = l
			}
		}
	}
	out := append([]int(nil), part...)
	if len(labelled) == 0 {
		return out, nil
	}

	type neighbour struct {
		idx  int
		dist float64
	}
	cand := make([]neighbour, 0, len(labelled))
	votes := make([]int, maxLabel+1)
	for i, l := range part {
		if l != Missing {
			continue
		}
		cand = cand[:0]
		row := flat[i*dims : (i+1)*dims]
		for _, j := range labelled {
			cand = append(cand, neighbour{
				idx:  j,
				dist: cfg.Metric.ReducedDistance(row, flat[j*dims:(j+1)*dims]),
			})
		}
		sort.SliceStable(cand, func(a, b int) bool { return cand[a].dist < cand[b].dist })
		kk := cfg.Neighbours
		if kk > len(cand) {
			kk = len(cand)
		}
		for l := range votes {
			votes[l] = 0
		}
		for _, nb := range cand[:kk] {
			votes[part[nb.idx]]++
		}
		best, bestVotes := Missing, 0
		for l := 1; l <= maxLabel; l++ {
			if votes[l] > bestVotes {
				best, bestVotes = l, votes[l]
			}
		}
		if float64(bestVotes) >= cfg.Threshold*float64(kk) {
			out[i] = best
		}
	}
	return out, nil
}

// ImputeMissing completes the array's slice at cluster count k: every
// partition first goes through a KNN pass against the feature data,
// then any entry still Missing takes the majority label across the
// sample's other partitions at that k (ties to the lowest label). The
// result is a fresh array; the input is untouched.
//
// On success every sample assigned in at least one partition of the
// slice is assigned in all of them. A sample no partition ever assigns
// cannot be resolved and is a ConsensusError carrying its index.
func ImputeMissing(arr *Array, data [][]float64, k int, cfg ImputeConfig) (*Array, error) {
	applyImputeDefaults(&cfg)
	if err := validateImputeConfig(&cfg); err != nil {
		return nil, err
	}
	kPos, ok := arr.kIndex[k]
	if !ok {
		return nil, ConfigError{Field: "k", Reason: fmt.Sprintf("array has no slice for k=%d", k)}
	}
	if data != nil && len(data) != arr.n {
		return nil, ShapeError{Op: "ImputeMissing", Want: arr.n, Got: len(data), Detail: "data row count"}
	}

	out := arr.Clone()
	for alg := range out.algorithms {
		for rep := 0; rep < out.reps; rep++ {
			block := out.block(rep, alg, kPos)
			if data == nil {
				continue
			}
			filled, err := ImputeKNN(block, data, cfg)
			if err != nil {
				return nil, err
			}
			copy(block, filled)
		}
	}

	// Second stage: majority vote across the slice's other columns.
	e, err := out.Partitions(k)
	if err != nil {
		return nil, err
	}
	e, err = RelabelMatrix(e, 0)
	if err != nil {
		return nil, err
	}
	counts := make([]int, k+1)
	for i := 0; i < out.n; i++ {
		label, votes := voteRow(e, i, k, counts)
		if votes == 0 {
			if rowAllMissing(out, i, kPos) {
				return nil, ConsensusError{Method: "impute", Sample: i, Reason: "no partition assigns this sample"}
			}
			continue
		}
		col := 0
		for alg := range out.algorithms {
			for rep := 0; rep < out.reps; rep++ {
				if out.block(rep, alg, kPos)[i] == Missing {
					// The vote ran on relabelled columns; write the
					// winning label in the column's own labelling.
					out.block(rep, alg, kPos)[i] = unrelabel(e.Column(col), out.block(rep, alg, kPos), label)
				}
				col++
			}
		}
	}
	return out, nil
}

// rowAllMissing reports whether sample i is Missing in every partition
// of the slice at kPos.
func rowAllMissing(arr *Array, i, kPos int) bool {
	for alg := range arr.algorithms {
		for rep := 0; rep < arr.reps; rep++ {
			if arr.block(rep, alg, kPos)[i] != Missing {
				return false
			}
		}
	}
	return true
}

// unrelabel maps a label expressed in the relabelled column back to the
// original column's labelling by looking for a sample carrying it in
// both. Falls back to the relabelled value when no witness exists,
// which keeps labels in range because relabelling never leaves [1, k].
func unrelabel(relabelled, original []int, label int) int {
	for i, l := range relabelled {
		if l == label && original[i] != Missing {
			return original[i]
		}
	}
	return label
}
