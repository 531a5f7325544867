// Package consensus implements consensus clustering: it aggregates the
// partitions produced by many base clustering runs (different
// algorithms, subsampled replicates, candidate cluster counts) into a
// single merged partition per cluster count, and scores the candidates
// with validity indices so a caller can pick the best one.
//
// Basic usage:
//
//	cfg := consensus.DefaultGenerateConfig()
//	cfg.Runner = myRunner // wraps the base clustering algorithms
//	cfg.Algorithms = []string{"kmeans", "hclust"}
//	cfg.Ks = []int{2, 3, 4}
//	arr, err := consensus.Generate(ctx, data, cfg)
//
//	ev, err := consensus.Evaluate(data, arr, consensus.DefaultEvalConfig())
//	// ev.K is the PAC-selected cluster count
//	// ev.Partitions[alg] is each algorithm's merged partition
//	// ev.Trim.Kept / ev.Trim.Removed is the ranked, trimmed ensemble
//
// # Consensus functions
//
// Five interchangeable strategies merge a partition matrix into one
// complete labelling: majority voting, CSPA (spectral cut of the
// co-association graph), k-modes over assignment profiles, the local
// cluster ensemble (cts, srs and asrs similarity variants) and a
// latent-class EM. Combine dispatches on CombineConfig.Method:
//
//	e, _ := arr.Partitions(k)
//	labels, err := consensus.Combine(e, nil, k, consensus.CombineConfig{
//		Method: consensus.MethodKModes,
//	})
//
// Cluster labels are arbitrary per run, so partitions are aligned with
// Relabel/RelabelMatrix before any label-wise comparison; partial
// partitions from subsampling are completed with ImputeKNN and
// ImputeMissing. Labels run 1..k, with 0 reserved for Missing.
package consensus
