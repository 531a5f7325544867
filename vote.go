package consensus

// VoteConfig controls MajorityVote.
type VoteConfig struct {
	// Relabelled marks the input matrix as already label-aligned
	// across columns. When false, MajorityVote relabels every column
	// against column 0 before counting votes.
	Relabelled bool
}

// MajorityVote merges the partitions of e into one by picking, for
// each sample, the most frequent label across columns. Missing entries
// do not vote and ties go to the lowest label value. A sample that is
// Missing in every column yields a ConsensusError carrying the sample
// index.
func MajorityVote(e *Matrix, k int, cfg VoteConfig) ([]int, error) {
	if err := validateEnsemble(MethodMajorityVote, e, k); err != nil {
		return nil, err
	}
	if !cfg.Relabelled {
		var err error
		e, err = RelabelMatrix(e, 0)
		if err != nil {
			return nil, err
		}
	}
	out := make([]int, e.rows)
	counts := make([]int, k+1)
	for i := range out {
		label, votes := voteRow(e, i, k, counts)
		if votes == 0 {
			return nil, ConsensusError{Method: MethodMajorityVote, Sample: i, Reason: "no partition assigns this sample"}
		}
		out[i] = label
	}
	return out, nil
}

// voteRow returns the most frequent non-Missing label of sample i
// across the columns of e, with ties going to the lowest label, and
// the number of votes it received (Missing and 0 when every column is
// Missing). counts is caller scratch of length at least k+1.
func voteRow(e *Matrix, i, k int, counts []int) (label, votes int) {
	for l := 1; l <= k; l++ {
		counts[l] = 0
	}
	for c := 0; c < e.cols; c++ {
		if l := e.At(i, c); l != Missing {
			counts[l]++
		}
	}
	label = Missing
	for l := 1; l <= k; l++ {
		if counts[l] > votes {
			label, votes = l, counts[l]
		}
	}
	return label, votes
}
