package consensus

import (
	"fmt"
	"sort"
)

// Missing is the reserved label for a sample with no assignment in a
// partition, for example because the sample was left out of the
// subsample that produced it. Real cluster labels are always >= 1.
const Missing = 0

// Matrix holds m partitions of the same n samples, one partition per
// column. Labels are stored column-major so that a single partition is
// a contiguous block.
type Matrix struct {
	rows   int
	cols   int
	labels []int
}

// NewMatrix returns an n-by-m partition matrix with every entry Missing.
func NewMatrix(n, m int) *Matrix {
	return &Matrix{rows: n, cols: m, labels: make([]int, n*m)}
}

// MatrixFromColumns builds a partition matrix from one or more label
// vectors of equal length. The vectors are copied.
func MatrixFromColumns(columns ...[]int) (*Matrix, error) {
	if len(columns) == 0 {
		return nil, ConfigError{Field: "partitions", Reason: "no partitions given"}
	}
	n := len(columns[0])
	if n == 0 {
		return nil, ConfigError{Field: "partitions", Reason: "empty partitions"}
	}
	m := NewMatrix(n, len(columns))
	for c, col := range columns {
		if len(col) != n {
			return nil, ShapeError{Op: "MatrixFromColumns", Want: n, Got: len(col), Detail: "ragged partition lengths"}
		}
		copy(m.labels[c*n:(c+1)*n], col)
	}
	return m, nil
}

// Rows returns the number of samples.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of partitions.
func (m *Matrix) Cols() int { return m.cols }

// At returns the label of sample i in partition c.
func (m *Matrix) At(i, c int) int { return m.labels[c*m.rows+i] }

// Set assigns the label of sample i in partition c.
func (m *Matrix) Set(i, c, label int) { m.labels[c*m.rows+i] = label }

// Column returns partition c as a slice sharing the matrix's storage.
// Callers that need to mutate the result should copy it first.
func (m *Matrix) Column(c int) []int {
	return m.labels[c*m.rows : (c+1)*m.rows]
}

// Clone returns a deep copy of the matrix.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.rows, m.cols)
	copy(out.labels, m.labels)
	return out
}

// missingRow returns the index of the first sample that is Missing in
// every partition, or -1 when no such sample exists.
func (m *Matrix) missingRow() int {
	for i := 0; i < m.rows; i++ {
		empty := true
		for c := 0; c < m.cols; c++ {
			if m.At(i, c) != Missing {
				empty = false
				break
			}
		}
		if empty {
			return i
		}
	}
	return -1
}

// distinctLabels returns the sorted set of non-Missing labels in v.
func distinctLabels(v []int) []int {
	seen := make(map[int]struct{}, 8)
	for _, l := range v {
		if l == Missing {
			continue
		}
		seen[l] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// canonicalizeLabels renames the labels of v, in place, to 1..k in
// order of first appearance. Missing entries are preserved.
func canonicalizeLabels(v []int) []int {
	next := 1
	rename := make(map[int]int, 8)
	for i, l := range v {
		if l == Missing {
			continue
		}
		nl, ok := rename[l]
		if !ok {
			nl = next
			rename[l] = nl
			next++
		}
		v[i] = nl
	}
	return v
}

// checkLabels verifies that every entry of v is Missing or in [1, max].
func checkLabels(op string, v []int, max int) error {
	for i, l := range v {
		if l == Missing {
			continue
		}
		if l < 1 || l > max {
			return ConfigError{
				Field:  "labels",
				Reason: fmt.Sprintf("%s: sample %d has label %d outside [1, %d]", op, i, l, max),
			}
		}
	}
	return nil
}

// checkComplete verifies that v has no Missing entries.
func checkComplete(op string, v []int) error {
	for i, l := range v {
		if l == Missing {
			return ConfigError{
				Field:  "labels",
				Reason: fmt.Sprintf("%s: sample %d has no assignment", op, i),
			}
		}
	}
	return nil
}
