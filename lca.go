package consensus

import (
	"fmt"
	"math"
)

// LCAConfig controls LCA.
type LCAConfig struct {
	// MaxIterations bounds the EM loop. Default: 100.
	MaxIterations int

	// Tolerance stops EM when the log-likelihood improves by less than
	// this amount between rounds. Default: 1e-6.
	Tolerance float64
}

// DefaultLCAConfig returns an LCAConfig with reasonable defaults.
func DefaultLCAConfig() LCAConfig {
	return LCAConfig{MaxIterations: 100, Tolerance: 1e-6}
}

func applyLCADefaults(cfg *LCAConfig) {
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 100
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = 1e-6
	}
}

// LCA fits a latent-class model over the ensemble's categorical columns
// and assigns each sample to its most probable of k latent classes. The
// model assumes column labels are independent given the class; EM
// alternates a log-space E-step with a Laplace-smoothed M-step until
// the log-likelihood converges. Initialization is deterministic, seeded
// from the relabelled majority vote, so repeated calls agree.
//
// The input matrix must be complete. Impute first when the ensemble
// carries Missing entries.
func LCA(e *Matrix, k int, cfg LCAConfig) ([]int, error) {
	applyLCADefaults(&cfg)
	if cfg.MaxIterations < 1 {
		return nil, ConfigError{Field: "MaxIterations", Reason: "must be at least 1"}
	}
	if cfg.Tolerance < 0 {
		return nil, ConfigError{Field: "Tolerance", Reason: "must be non-negative"}
	}
	if err := validateEnsemble(MethodLCA, e, k); err != nil {
		return nil, err
	}
	for c := 0; c < e.cols; c++ {
		if err := checkComplete("LCA", e.Column(c)); err != nil {
			return nil, err
		}
	}

	seed, err := MajorityVote(e, k, VoteConfig{})
	if err != nil {
		return nil, err
	}
	if got := len(distinctLabels(seed)); got < k {
		return nil, ConsensusError{
			Method: MethodLCA,
			Sample: -1,
			Reason: fmt.Sprintf("majority seed spans %d classes, want %d", got, k),
		}
	}

	n, m := e.rows, e.cols
	// resp[i*k+g] is the posterior responsibility of class g for sample i.
	resp := make([]float64, n*k)
	for i, l := range seed {
		resp[i*k+(l-1)] = 1
	}

	prior := make([]float64, k)
	// cond[(c*k+g)*(k+1)+l] is P(label l in column c | class g).
	cond := make([]float64, m*k*(k+1))
	logPost := make([]float64, k)

	prevLL := math.Inf(-1)
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		// M-step: class priors and per-column label profiles from the
		// current responsibilities, Laplace-smoothed so every label
		// keeps positive mass and the E-step logs stay finite.
		for g := 0; g < k; g++ {
			s := 0.0
			for i := 0; i < n; i++ {
				s += resp[i*k+g]
			}
			prior[g] = (s + 1) / (float64(n) + float64(k))
		}
		for c := 0; c < m; c++ {
			col := e.Column(c)
			for g := 0; g < k; g++ {
				base := (c*k + g) * (k + 1)
				for l := 1; l <= k; l++ {
					cond[base+l] = 1
				}
				total := float64(k)
				for i := 0; i < n; i++ {
					cond[base+col[i]] += resp[i*k+g]
					total += resp[i*k+g]
				}
				for l := 1; l <= k; l++ {
					cond[base+l] /= total
				}
			}
		}

		// E-step in log space, normalized with log-sum-exp.
		ll := 0.0
		for i := 0; i < n; i++ {
			for g := 0; g < k; g++ {
				lp := math.Log(prior[g])
				for c := 0; c < m; c++ {
					lp += math.Log(cond[(c*k+g)*(k+1)+e.At(i, c)])
				}
				logPost[g] = lp
			}
			max := logPost[0]
			for g := 1; g < k; g++ {
				if logPost[g] > max {
					max = logPost[g]
				}
			}
			sum := 0.0
			for g := 0; g < k; g++ {
				sum += math.Exp(logPost[g] - max)
			}
			ll += max + math.Log(sum)
			for g := 0; g < k; g++ {
				resp[i*k+g] = math.Exp(logPost[g]-max) / sum
			}
		}

		if ll-prevLL < cfg.Tolerance && iter > 0 {
			break
		}
		prevLL = ll
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		best, bestP := 0, resp[i*k]
		for g := 1; g < k; g++ {
			if resp[i*k+g] > bestP {
				best, bestP = g, resp[i*k+g]
			}
		}
		out[i] = best + 1
	}
	return canonicalizeLabels(out), nil
}
