package consensus

import "fmt"

// Method names one consensus function.
type Method string

const (
	MethodMajorityVote Method = "majority_vote"
	MethodCSPA         Method = "cspa"
	MethodKModes       Method = "kmodes"
	MethodLCE          Method = "lce"
	MethodLCA          Method = "lca"
)

// CombineConfig selects and parameterizes the consensus function
// applied by Combine. Only the sub-config matching Method is read.
type CombineConfig struct {
	// Method picks the consensus function. Default: MethodMajorityVote.
	Method Method

	Vote   VoteConfig
	CSPA   CSPAConfig
	KModes KModesConfig
	LCE    LCEConfig
	LCA    LCAConfig
}

// Combine merges an ensemble into a single complete partition with the
// configured consensus function. Partition-based methods read e;
// MethodCSPA reads co, building it from e when co is nil. Either input
// may be nil as long as the chosen method's input is present.
func Combine(e *Matrix, co *Coassociation, k int, cfg CombineConfig) ([]int, error) {
	if cfg.Method == "" {
		cfg.Method = MethodMajorityVote
	}
	switch cfg.Method {
	case MethodMajorityVote:
		return MajorityVote(e, k, cfg.Vote)
	case MethodCSPA:
		if co == nil {
			if e == nil {
				return nil, ConfigError{Field: "input", Reason: "cspa needs a co-association matrix or a partition matrix"}
			}
			co = Coassoc(e)
		}
		return CSPA(co, k, cfg.CSPA)
	case MethodKModes:
		return KModes(e, k, cfg.KModes)
	case MethodLCE:
		return LCE(e, k, cfg.LCE)
	case MethodLCA:
		return LCA(e, k, cfg.LCA)
	default:
		return nil, ConfigError{Field: "method", Reason: fmt.Sprintf("unknown consensus method %q", cfg.Method)}
	}
}

// validateEnsemble checks the preconditions shared by every
// partition-based consensus function: a non-empty matrix, a cluster
// count within [1, n], and column labels within [1, k].
func validateEnsemble(method Method, e *Matrix, k int) error {
	if e == nil || e.rows == 0 || e.cols == 0 {
		return ConfigError{Field: "partitions", Reason: "empty partition matrix"}
	}
	if k < 1 || k > e.rows {
		return ConfigError{Field: "k", Reason: fmt.Sprintf("cluster count %d outside [1, %d]", k, e.rows)}
	}
	for c := 0; c < e.cols; c++ {
		if err := checkLabels(string(method), e.Column(c), k); err != nil {
			return err
		}
	}
	return nil
}
