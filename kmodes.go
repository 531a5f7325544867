package consensus

import "fmt"

// KModesConfig controls KModes.
type KModesConfig struct {
	// MaxIterations bounds the relocation loop. Default: 100.
	MaxIterations int
}

// DefaultKModesConfig returns a KModesConfig with reasonable defaults.
func DefaultKModesConfig() KModesConfig {
	return KModesConfig{MaxIterations: 100}
}

func applyKModesDefaults(cfg *KModesConfig) {
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 100
	}
}

// KModes clusters the samples of e by treating each sample's row of
// cluster assignments as a categorical feature vector: k mode rows are
// seeded farthest-first, samples relocate to the mode with the lowest
// Hamming distance, and modes are refreshed as the per-column majority
// of their members until assignments stop moving. Positions where
// either side is Missing are excluded from the distance. Ties resolve
// to the lowest index throughout, so the result is deterministic.
//
// When every column of e is the same partition there is no ensemble to
// reconcile and that column is returned unchanged. Labels are otherwise
// renumbered by first occurrence.
func KModes(e *Matrix, k int, cfg KModesConfig) ([]int, error) {
	applyKModesDefaults(&cfg)
	if cfg.MaxIterations < 1 {
		return nil, ConfigError{Field: "MaxIterations", Reason: "must be at least 1"}
	}
	if err := validateEnsemble(MethodKModes, e, k); err != nil {
		return nil, err
	}
	if i := e.missingRow(); i >= 0 {
		return nil, ConfigError{Field: "partitions", Reason: fmt.Sprintf("sample %d has no assignment in any partition", i)}
	}
	if singleDistinctColumn(e) {
		return append([]int(nil), e.Column(0)...), nil
	}

	n, m := e.rows, e.cols
	profiles := distinctRowCount(e)
	if profiles < k {
		return nil, ConsensusError{
			Method: MethodKModes,
			Sample: -1,
			Reason: fmt.Sprintf("only %d distinct assignment profiles for %d clusters", profiles, k),
		}
	}

	modes := seedModes(e, k)
	assign := make([]int, n)
	prev := make([]int, n)
	counts := make([]int, k)

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		copy(prev, assign)

		for i := 0; i < n; i++ {
			best, bestDist := 0, m+1
			for g := 0; g < k; g++ {
				if d := hammingToMode(e, i, modes[g]); d < bestDist {
					best, bestDist = g, d
				}
			}
			assign[i] = best
		}

		reseeded := repairEmptyClusters(e, assign, modes, counts)
		for g := 0; g < k; g++ {
			updateMode(e, assign, g, k, modes[g])
		}

		if iter > 0 && !reseeded && sameInts(assign, prev) {
			break
		}
	}

	out := make([]int, n)
	for i, g := range assign {
		out[i] = g + 1
	}
	return canonicalizeLabels(out), nil
}

// seedModes picks k starting modes farthest-first: sample 0 first, then
// repeatedly the sample with the largest Hamming distance to its
// nearest chosen mode, ties to the lowest index.
func seedModes(e *Matrix, k int) [][]int {
	n := e.rows
	modes := make([][]int, k)
	modes[0] = rowProfile(e, 0)
	nearest := make([]int, n)
	for i := 0; i < n; i++ {
		nearest[i] = hammingToMode(e, i, modes[0])
	}
	for g := 1; g < k; g++ {
		far, farDist := 0, -1
		for i := 0; i < n; i++ {
			if nearest[i] > farDist {
				far, farDist = i, nearest[i]
			}
		}
		modes[g] = rowProfile(e, far)
		for i := 0; i < n; i++ {
			if d := hammingToMode(e, i, modes[g]); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return modes
}

// repairEmptyClusters reseeds each empty cluster with the sample
// farthest from its current mode, skipping samples whose departure
// would empty another cluster. Reports whether anything moved.
func repairEmptyClusters(e *Matrix, assign []int, modes [][]int, counts []int) bool {
	k := len(modes)
	for g := range counts {
		counts[g] = 0
	}
	for _, g := range assign {
		counts[g]++
	}
	moved := false
	for g := 0; g < k; g++ {
		if counts[g] > 0 {
			continue
		}
		far, farDist := -1, -1
		for i := range assign {
			if counts[assign[i]] <= 1 {
				continue
			}
			if d := hammingToMode(e, i, modes[assign[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			continue
		}
		counts[assign[far]]--
		assign[far] = g
		counts[g] = 1
		moved = true
	}
	return moved
}

// updateMode refreshes mode as the per-column majority label of cluster
// g's members, ties to the lowest label, Missing where no member has an
// assignment in that column.
func updateMode(e *Matrix, assign []int, g, k int, mode []int) {
	votes := make([]int, k+1)
	for c := 0; c < e.cols; c++ {
		for l := 1; l <= k; l++ {
			votes[l] = 0
		}
		for i, gi := range assign {
			if gi != g {
				continue
			}
			if l := e.At(i, c); l != Missing {
				votes[l]++
			}
		}
		best, bestVotes := Missing, 0
		for l := 1; l <= k; l++ {
			if votes[l] > bestVotes {
				best, bestVotes = l, votes[l]
			}
		}
		mode[c] = best
	}
}

// hammingToMode counts the columns where sample i disagrees with mode,
// skipping columns where either side is Missing. Rows with no
// comparable column rank after every real distance.
func hammingToMode(e *Matrix, i int, mode []int) int {
	mismatch, counted := 0, 0
	for c := 0; c < e.cols; c++ {
		li := e.At(i, c)
		if li == Missing || mode[c] == Missing {
			continue
		}
		counted++
		if li != mode[c] {
			mismatch++
		}
	}
	if counted == 0 {
		return e.cols + 1
	}
	return mismatch
}

// rowProfile copies sample i's assignments across all columns.
func rowProfile(e *Matrix, i int) []int {
	out := make([]int, e.cols)
	for c := range out {
		out[c] = e.At(i, c)
	}
	return out
}

// singleDistinctColumn reports whether every column of e is identical.
func singleDistinctColumn(e *Matrix) bool {
	first := e.Column(0)
	for c := 1; c < e.cols; c++ {
		if !sameInts(e.Column(c), first) {
			return false
		}
	}
	return true
}

// distinctRowCount counts the distinct assignment profiles among the
// samples, treating the Missing pattern as part of the profile.
func distinctRowCount(e *Matrix) int {
	seen := make(map[string]struct{}, e.rows)
	buf := make([]byte, 0, e.cols*3)
	for i := 0; i < e.rows; i++ {
		buf = buf[:0]
		for c := 0; c < e.cols; c++ {
			buf = appendInt(buf, e.At(i, c))
			buf = append(buf, ',')
		}
		seen[string(buf)] = struct{}{}
	}
	return len(seen)
}

func appendInt(buf []byte, v int) []byte {
	if v == 0 {
		return append(buf, '0')
	}
	var tmp [20]byte
	pos := len(tmp)
	for v > 0 {
		pos--
		tmp[pos] = byte('0' + v%10)
		v /= 10
	}
	return append(buf, tmp[pos:]...)
}
