package consensus

import "math"

// ExternalIndex names one external validity index.
type ExternalIndex string

const (
	ExternalRand         ExternalIndex = "rand"
	ExternalAdjustedRand ExternalIndex = "adjusted_rand"
	ExternalJaccard      ExternalIndex = "jaccard"
	ExternalNMI          ExternalIndex = "nmi"
	ExternalAccuracy     ExternalIndex = "accuracy"
)

// AllExternalIndices lists the external battery in evaluation order.
func AllExternalIndices() []ExternalIndex {
	return []ExternalIndex{
		ExternalRand,
		ExternalAdjustedRand,
		ExternalJaccard,
		ExternalNMI,
		ExternalAccuracy,
	}
}

// External computes one external validity index between a partition and
// the reference labelling. Every index is permutation-invariant except
// accuracy, which relabels the partition against the reference first.
// Pairs where either vector is Missing are skipped. NaN when the index
// is undefined, for example a degenerate contingency table.
func External(idx ExternalIndex, labels, reference []int) (float64, error) {
	if len(labels) != len(reference) {
		return 0, ShapeError{Op: "External", Want: len(reference), Got: len(labels), Detail: "label vector length"}
	}
	switch idx {
	case ExternalRand:
		a, b, c, d := pairCounts(labels, reference)
		total := a + b + c + d
		if total == 0 {
			return math.NaN(), nil
		}
		return float64(a+d) / float64(total), nil
	case ExternalAdjustedRand:
		return adjustedRand(labels, reference), nil
	case ExternalJaccard:
		a, b, c, _ := pairCounts(labels, reference)
		if a+b+c == 0 {
			return math.NaN(), nil
		}
		return float64(a) / float64(a+b+c), nil
	case ExternalNMI:
		return nmi(labels, reference), nil
	case ExternalAccuracy:
		return accuracy(labels, reference)
	default:
		return 0, ConfigError{Field: "index", Reason: "unknown external index " + string(idx)}
	}
}

// pairCounts tallies sample pairs into the four co-clustering cells:
// together in both labellings (a), together only in the first (b), only
// in the second (c), in neither (d).
func pairCounts(labels, reference []int) (a, b, c, d int) {
	n := len(labels)
	for i := 0; i < n; i++ {
		if labels[i] == Missing || reference[i] == Missing {
			continue
		}
		for j := i + 1; j < n; j++ {
			if labels[j] == Missing || reference[j] == Missing {
				continue
			}
			sameL := labels[i] == labels[j]
			sameR := reference[i] == reference[j]
			switch {
			case sameL && sameR:
				a++
			case sameL:
				b++
			case sameR:
				c++
			default:
				d++
			}
		}
	}
	return a, b, c, d
}

// contingency builds the joint count table of two labellings over the
// samples assigned in both, plus the marginal totals.
func contingency(labels, reference []int) (table [][]int, rowSum, colSum []int, total int) {
	ll := distinctLabels(labels)
	rl := distinctLabels(reference)
	lPos := make(map[int]int, len(ll))
	for i, l := range ll {
		lPos[l] = i
	}
	rPos := make(map[int]int, len(rl))
	for j, l := range rl {
		rPos[l] = j
	}
	table = make([][]int, len(ll))
	for i := range table {
		table[i] = make([]int, len(rl))
	}
	rowSum = make([]int, len(ll))
	colSum = make([]int, len(rl))
	for i := range labels {
		if labels[i] == Missing || reference[i] == Missing {
			continue
		}
		r, c := lPos[labels[i]], rPos[reference[i]]
		table[r][c]++
		rowSum[r]++
		colSum[c]++
		total++
	}
	return table, rowSum, colSum, total
}

func choose2(v int) float64 { return float64(v) * float64(v-1) / 2 }

// adjustedRand is the Rand index corrected for chance agreement.
func adjustedRand(labels, reference []int) float64 {
	table, rowSum, colSum, total := contingency(labels, reference)
	if total < 2 {
		return math.NaN()
	}
	sumCells, sumRows, sumCols := 0.0, 0.0, 0.0
	for i := range table {
		sumRows += choose2(rowSum[i])
		for j := range table[i] {
			sumCells += choose2(table[i][j])
		}
	}
	for j := range colSum {
		sumCols += choose2(colSum[j])
	}
	expected := sumRows * sumCols / choose2(total)
	maxIdx := (sumRows + sumCols) / 2
	if maxIdx == expected {
		return math.NaN()
	}
	return (sumCells - expected) / (maxIdx - expected)
}

// nmi is mutual information normalized by the mean entropy of the two
// labellings, 2I/(H1+H2). One when both labellings agree exactly, NaN
// when both are single clusters (zero entropy).
func nmi(labels, reference []int) float64 {
	table, rowSum, colSum, total := contingency(labels, reference)
	if total == 0 {
		return math.NaN()
	}
	tf := float64(total)
	mi, h1, h2 := 0.0, 0.0, 0.0
	for i := range table {
		if rowSum[i] > 0 {
			p := float64(rowSum[i]) / tf
			h1 -= p * math.Log(p)
		}
		for j := range table[i] {
			if table[i][j] == 0 {
				continue
			}
			p := float64(table[i][j]) / tf
			mi += p * math.Log(p*tf*tf/float64(rowSum[i])/float64(colSum[j]))
		}
	}
	for j := range colSum {
		if colSum[j] > 0 {
			p := float64(colSum[j]) / tf
			h2 -= p * math.Log(p)
		}
	}
	if h1+h2 == 0 {
		return math.NaN()
	}
	return 2 * mi / (h1 + h2)
}

// accuracy relabels the partition against the reference and reports the
// fraction of agreeing samples among those assigned in both.
func accuracy(labels, reference []int) (float64, error) {
	aligned, err := Relabel(labels, reference)
	if err != nil {
		return 0, err
	}
	agree, seen := 0, 0
	for i := range aligned {
		if aligned[i] == Missing || reference[i] == Missing {
			continue
		}
		seen++
		if aligned[i] == reference[i] {
			agree++
		}
	}
	if seen == 0 {
		return math.NaN(), nil
	}
	return float64(agree) / float64(seen), nil
}
