package consensus

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// IndexTable is a members-by-indices table of validity scores. NaN
// marks an index undefined for a member's partition.
type IndexTable struct {
	Members []string
	Columns []string
	values  []float64
}

func newIndexTable(members, columns []string) *IndexTable {
	return &IndexTable{
		Members: members,
		Columns: columns,
		values:  make([]float64, len(members)*len(columns)),
	}
}

// At returns the score of member row i under index column j.
func (t *IndexTable) At(i, j int) float64 { return t.values[i*len(t.Columns)+j] }

func (t *IndexTable) set(i, j int, v float64) { t.values[i*len(t.Columns)+j] = v }

// Lookup returns the score for a member and index by name.
func (t *IndexTable) Lookup(member, column string) (float64, bool) {
	i := indexOf(t.Members, member)
	j := indexOf(t.Columns, column)
	if i < 0 || j < 0 {
		return 0, false
	}
	return t.At(i, j), true
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

// TrimResult is the outcome of ranking an ensemble's members: who
// stays, who goes, the rank sums behind the decision, and the replica
// counts when reweighing was requested.
type TrimResult struct {
	// Kept lists the surviving members in their evaluation order.
	Kept []string

	// Removed lists the trimmed members.
	Removed []string

	// RankSums maps every member to its summed direction-aware rank
	// across the usable index columns. Higher is better.
	RankSums map[string]float64

	// Replicas maps each kept member to its copy count when reweighing
	// ran, nil otherwise. Counts are at least 1 each and total exactly
	// the configured maximum.
	Replicas map[string]int
}

// EvalConfig controls Evaluate.
type EvalConfig struct {
	// Indices is the internal battery. Default: AllIndices().
	Indices []Index

	// External is the external battery, used only when Reference is
	// given. Default: AllExternalIndices().
	External []ExternalIndex

	// Reference is an optional ground-truth labelling. When given, the
	// evaluation runs at the reference's distinct-label count instead
	// of the PAC-selected k, and an external index table is produced.
	Reference []int

	// Consensus holds caller-supplied named partitions, typically the
	// outputs of Combine, evaluated alongside the per-algorithm members.
	Consensus map[string][]int

	// PACLower and PACUpper bound the ambiguity window. Defaults: 0, 1.
	PACLower float64
	PACUpper float64

	// TrimQuantile is the rank-sum quantile a member must reach to
	// survive trimming, in (0, 1). Default: 0.75.
	TrimQuantile float64

	// Reweigh assigns replica counts to the kept members.
	Reweigh bool

	// MaxReplicas caps the total replica count. Default: 100.
	MaxReplicas int

	// Impute configures the KNN stage completing each algorithm's
	// partitions before voting.
	Impute ImputeConfig

	// Workers bounds the goroutines scoring members concurrently.
	// 0 means runtime.NumCPU().
	Workers int
}

// DefaultEvalConfig returns an EvalConfig with reasonable defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		Indices:      AllIndices(),
		External:     AllExternalIndices(),
		PACUpper:     1,
		TrimQuantile: 0.75,
		MaxReplicas:  100,
		Impute:       DefaultImputeConfig(),
	}
}

func applyEvalDefaults(cfg *EvalConfig) {
	if len(cfg.Indices) == 0 {
		cfg.Indices = AllIndices()
	}
	if len(cfg.External) == 0 {
		cfg.External = AllExternalIndices()
	}
	if cfg.PACUpper == 0 {
		cfg.PACUpper = 1
	}
	if cfg.TrimQuantile == 0 {
		cfg.TrimQuantile = 0.75
	}
	if cfg.MaxReplicas == 0 {
		cfg.MaxReplicas = 100
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	applyImputeDefaults(&cfg.Impute)
}

func validateEvalConfig(cfg *EvalConfig) error {
	if cfg.PACLower < 0 || cfg.PACUpper > 1 || cfg.PACLower >= cfg.PACUpper {
		return ConfigError{Field: "PAC bounds", Reason: fmt.Sprintf("need 0 <= lower < upper <= 1, got (%v, %v)", cfg.PACLower, cfg.PACUpper)}
	}
	if cfg.TrimQuantile <= 0 || cfg.TrimQuantile >= 1 {
		return ConfigError{Field: "TrimQuantile", Reason: fmt.Sprintf("quantile %v outside (0, 1)", cfg.TrimQuantile)}
	}
	if cfg.MaxReplicas < 1 {
		return ConfigError{Field: "MaxReplicas", Reason: "must be at least 1"}
	}
	return validateImputeConfig(&cfg.Impute)
}

// Evaluation is the output of Evaluate.
type Evaluation struct {
	// K is the evaluated cluster count: the reference's distinct-label
	// count when a reference was supplied, otherwise the k minimizing
	// mean PAC.
	K int

	// PAC maps algorithm -> k -> PAC score across the array's k-axis.
	PAC map[string]map[int]float64

	// MeanPAC maps each k to its PAC averaged over algorithms.
	MeanPAC map[int]float64

	// Members lists the evaluated members: one per base algorithm, then
	// the caller-supplied consensus partitions in name order.
	Members []string

	// Partitions holds each member's complete evaluated partition.
	Partitions map[string][]int

	// Internal is the members-by-internal-indices score table.
	Internal *IndexTable

	// External is the members-by-external-indices table, nil without a
	// reference.
	External *IndexTable

	// Trim is the ranking outcome over the internal table.
	Trim *TrimResult
}

// Evaluate scores an assignment array end to end: it selects the
// working cluster count by PAC stability (or from the reference),
// completes and merges each algorithm's partitions into one member
// partition, scores every member on the internal battery (and the
// external one when a reference is given), then ranks, trims and
// optionally reweighs the members.
func Evaluate(data [][]float64, arr *Array, cfg EvalConfig) (*Evaluation, error) {
	applyEvalDefaults(&cfg)
	if err := validateEvalConfig(&cfg); err != nil {
		return nil, err
	}
	if arr == nil {
		return nil, ConfigError{Field: "array", Reason: "nil assignment array"}
	}
	if len(data) != arr.N() {
		return nil, ShapeError{Op: "Evaluate", Want: arr.N(), Got: len(data), Detail: "data row count"}
	}
	if cfg.Reference != nil && len(cfg.Reference) != arr.N() {
		return nil, ShapeError{Op: "Evaluate", Want: arr.N(), Got: len(cfg.Reference), Detail: "reference length"}
	}

	ev := &Evaluation{
		PAC:     make(map[string]map[int]float64, len(arr.Algorithms())),
		MeanPAC: make(map[int]float64, len(arr.Ks())),
	}
	for _, alg := range arr.Algorithms() {
		ev.PAC[alg] = make(map[int]float64, len(arr.Ks()))
	}
	for _, k := range arr.Ks() {
		byAlg, err := CoassocByAlgorithm(arr, k, cfg.Workers)
		if err != nil {
			return nil, err
		}
		sum, count := 0.0, 0
		for alg, co := range byAlg {
			p := co.PAC(cfg.PACLower, cfg.PACUpper)
			ev.PAC[alg][k] = p
			if !math.IsNaN(p) {
				sum += p
				count++
			}
		}
		if count > 0 {
			ev.MeanPAC[k] = sum / float64(count)
		} else {
			ev.MeanPAC[k] = math.NaN()
		}
	}

	if cfg.Reference != nil {
		ev.K = len(distinctLabels(cfg.Reference))
		if !arr.HasK(ev.K) {
			return nil, ConfigError{Field: "reference", Reason: fmt.Sprintf("reference implies k=%d, not on the array's k-axis", ev.K)}
		}
	} else {
		// Ascending k with a strict improvement test, so a mean-PAC tie
		// resolves to the lowest k regardless of the array's axis order.
		ks := append([]int(nil), arr.Ks()...)
		sort.Ints(ks)
		best := math.Inf(1)
		for _, k := range ks {
			if p := ev.MeanPAC[k]; !math.IsNaN(p) && p < best {
				best = p
				ev.K = k
			}
		}
		if ev.K == 0 {
			return nil, ConsensusError{Method: "evaluate", Sample: -1, Reason: "PAC undefined for every cluster count"}
		}
	}

	members, partitions, err := memberPartitions(data, arr, ev.K, cfg)
	if err != nil {
		return nil, err
	}
	ev.Members = members
	ev.Partitions = partitions

	ev.Internal, err = internalTable(data, members, partitions, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Reference != nil {
		ev.External, err = externalTable(members, partitions, cfg)
		if err != nil {
			return nil, err
		}
	}

	ev.Trim, err = TrimAndReweigh(ev.Internal, cfg.TrimQuantile, cfg.Reweigh, cfg.MaxReplicas)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// memberPartitions builds one complete partition per base algorithm
// (KNN-imputed, relabelled, majority-voted) plus the caller-supplied
// consensus partitions.
func memberPartitions(data [][]float64, arr *Array, k int, cfg EvalConfig) ([]string, map[string][]int, error) {
	completed, err := ImputeMissing(arr, data, k, cfg.Impute)
	if err != nil {
		return nil, nil, err
	}
	members := arr.Algorithms()
	partitions := make(map[string][]int, len(members)+len(cfg.Consensus))
	for _, alg := range members {
		e, err := completed.AlgorithmPartitions(k, alg)
		if err != nil {
			return nil, nil, err
		}
		merged, err := MajorityVote(e, k, VoteConfig{})
		if err != nil {
			return nil, nil, err
		}
		partitions[alg] = merged
	}

	names := make([]string, 0, len(cfg.Consensus))
	for name := range cfg.Consensus {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := cfg.Consensus[name]
		if len(p) != arr.N() {
			return nil, nil, ShapeError{Op: "Evaluate", Want: arr.N(), Got: len(p), Detail: fmt.Sprintf("consensus partition %q", name)}
		}
		if err := checkComplete("Evaluate", p); err != nil {
			return nil, nil, err
		}
		if indexOf(members, name) >= 0 {
			return nil, nil, ConfigError{Field: "Consensus", Reason: fmt.Sprintf("member name %q collides with a base algorithm", name)}
		}
		members = append(members, name)
		partitions[name] = p
	}
	return members, partitions, nil
}

// internalTable scores every member on the internal battery, members in
// parallel. The pairwise distance matrix is computed once, across
// cfg.Workers goroutines, and shared by every member's view.
func internalTable(data [][]float64, members []string, partitions map[string][]int, cfg EvalConfig) (*IndexTable, error) {
	columns := make([]string, len(cfg.Indices))
	for j, idx := range cfg.Indices {
		columns[j] = string(idx)
	}
	table := newIndexTable(members, columns)

	flat, n, dims, err := flattenData(data)
	if err != nil {
		return nil, err
	}
	dist := ComputePairwiseDistancesParallel(flat, n, dims, EuclideanMetric{}, cfg.Workers)

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i, member := range members {
		i, labels := i, partitions[member]
		g.Go(func() error {
			view, err := newSharedClusterView(flat, dist, n, dims, labels)
			if err != nil {
				return err
			}
			for j, idx := range cfg.Indices {
				v, err := view.index(idx)
				if err != nil {
					return err
				}
				table.set(i, j, v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table, nil
}

// externalTable scores every member against the reference labelling.
func externalTable(members []string, partitions map[string][]int, cfg EvalConfig) (*IndexTable, error) {
	columns := make([]string, len(cfg.External))
	for j, idx := range cfg.External {
		columns[j] = string(idx)
	}
	table := newIndexTable(members, columns)
	for i, member := range members {
		for j, idx := range cfg.External {
			v, err := External(idx, partitions[member], cfg.Reference)
			if err != nil {
				return nil, err
			}
			table.set(i, j, v)
		}
	}
	return table, nil
}

// TrimAndReweigh ranks the table's members and trims the ones whose
// rank sum falls short of the quantile threshold. Ranks run 1..m per
// index column, 1 for the worst value under the index's direction, with
// equal values sharing the lower rank; columns containing any NaN are
// skipped so the ranking stays deterministic. When every column is
// skipped no member is trimmed. With reweigh set the kept members
// receive replica counts proportional to their rank sums by
// largest-remainder rounding, each at least 1, totalling exactly
// maxReplicas.
func TrimAndReweigh(table *IndexTable, quantile float64, reweigh bool, maxReplicas int) (*TrimResult, error) {
	m := len(table.Members)
	if m == 0 {
		return nil, ConfigError{Field: "table", Reason: "no members to rank"}
	}

	sums := make([]float64, m)
	for j, col := range table.Columns {
		usable := true
		for i := 0; i < m; i++ {
			if math.IsNaN(table.At(i, j)) {
				usable = false
				break
			}
		}
		if !usable {
			continue
		}
		addColumnRanks(sums, table, j, HigherIsBetter(Index(col)))
	}

	result := &TrimResult{RankSums: make(map[string]float64, m)}
	for i, member := range table.Members {
		result.RankSums[member] = sums[i]
	}

	sorted := append([]float64(nil), sums...)
	sort.Float64s(sorted)
	threshold := stat.Quantile(quantile, stat.Empirical, sorted, nil)
	keptIdx := make([]int, 0, m)
	for i, member := range table.Members {
		if sums[i] >= threshold {
			result.Kept = append(result.Kept, member)
			keptIdx = append(keptIdx, i)
		} else {
			result.Removed = append(result.Removed, member)
		}
	}

	if !reweigh {
		return result, nil
	}
	if len(result.Kept) > maxReplicas {
		return nil, ConfigError{Field: "MaxReplicas", Reason: fmt.Sprintf("%d kept members exceed the replica cap %d", len(result.Kept), maxReplicas)}
	}
	weights := make([]float64, len(keptIdx))
	for p, i := range keptIdx {
		weights[p] = sums[i]
	}
	counts := apportion(weights, maxReplicas)
	result.Replicas = make(map[string]int, len(result.Kept))
	for p, member := range result.Kept {
		result.Replicas[member] = counts[p]
	}
	return result, nil
}

// addColumnRanks adds column j's direction-aware ranks into sums. The
// worst member gets rank 1; equal values share the lower rank.
func addColumnRanks(sums []float64, table *IndexTable, j int, higherBetter bool) {
	m := len(table.Members)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := table.At(order[a], j), table.At(order[b], j)
		if higherBetter {
			return va < vb
		}
		return va > vb
	})
	rank := 0
	for p, i := range order {
		if p == 0 || table.At(i, j) != table.At(order[p-1], j) {
			rank = p + 1
		}
		sums[i] += float64(rank)
	}
}

// apportion splits total into integer shares proportional to the
// weights: everyone starts at 1, the remainder is divided by quota with
// largest-remainder rounding, ties to the lowest index. Zero or
// uniform weights degrade to an even split.
func apportion(weights []float64, total int) []int {
	m := len(weights)
	counts := make([]int, m)
	for i := range counts {
		counts[i] = 1
	}
	spare := total - m
	if spare <= 0 {
		return counts
	}
	wsum := 0.0
	for _, w := range weights {
		wsum += w
	}
	quotas := make([]float64, m)
	if wsum > 0 {
		for i, w := range weights {
			quotas[i] = w / wsum * float64(spare)
		}
	} else {
		for i := range quotas {
			quotas[i] = float64(spare) / float64(m)
		}
	}
	assigned := 0
	for i, q := range quotas {
		f := int(math.Floor(q))
		counts[i] += f
		assigned += f
	}
	// Hand out the remainder in decreasing fractional-part order.
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		fa := quotas[order[a]] - math.Floor(quotas[order[a]])
		fb := quotas[order[b]] - math.Floor(quotas[order[b]])
		return fa > fb
	})
	for p := 0; p < spare-assigned; p++ {
		counts[order[p%m]]++
	}
	return counts
}

// ReplicateColumns expands a partition matrix by repeating column c
// copies[c] times, in column order. The result feeds a second-level
// consensus over a reweighed ensemble. Copy counts must be non-negative
// and sum to at least one column.
func ReplicateColumns(e *Matrix, copies []int) (*Matrix, error) {
	if e == nil || e.cols == 0 {
		return nil, ConfigError{Field: "partitions", Reason: "empty partition matrix"}
	}
	if len(copies) != e.cols {
		return nil, ShapeError{Op: "ReplicateColumns", Want: e.cols, Got: len(copies), Detail: "copy counts"}
	}
	total := 0
	for c, v := range copies {
		if v < 0 {
			return nil, ConfigError{Field: "copies", Reason: fmt.Sprintf("negative copy count for column %d", c)}
		}
		total += v
	}
	if total == 0 {
		return nil, ConfigError{Field: "copies", Reason: "all copy counts are zero"}
	}
	out := NewMatrix(e.rows, total)
	col := 0
	for c := 0; c < e.cols; c++ {
		for v := 0; v < copies[c]; v++ {
			copy(out.labels[col*e.rows:(col+1)*e.rows], e.Column(c))
			col++
		}
	}
	return out, nil
}
