package consensus

import (
	"math"
	"testing"
)

// labelsEquivalent reports whether two complete label vectors describe
// the same grouping under label permutation.
func labelsEquivalent(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	mapping := make(map[int]int)
	reverse := make(map[int]int)
	for i := range a {
		if m, ok := mapping[a[i]]; ok {
			if m != b[i] {
				return false
			}
		} else {
			mapping[a[i]] = b[i]
		}
		if r, ok := reverse[b[i]]; ok {
			if r != a[i] {
				return false
			}
		} else {
			reverse[b[i]] = a[i]
		}
	}
	return true
}

// assertLabels fails unless got matches want exactly.
func assertLabels(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("label length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("labels = %v, want %v", got, want)
		}
	}
}

// assertFloat fails unless got is within tol of want.
func assertFloat(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(want) {
		if !math.IsNaN(got) {
			t.Fatalf("%s = %g, want NaN", name, got)
		}
		return
	}
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %g, want %g (tol %g)", name, got, want, tol)
	}
}

// twoBlockEnsemble builds m identical clean partitions splitting six
// samples into two groups of three.
func twoBlockEnsemble(t *testing.T, m int) *Matrix {
	t.Helper()
	cols := make([][]int, m)
	for c := range cols {
		cols[c] = []int{1, 1, 1, 2, 2, 2}
	}
	e, err := MatrixFromColumns(cols...)
	if err != nil {
		t.Fatalf("MatrixFromColumns: %v", err)
	}
	return e
}

// twoBlobData places six points in two well-separated 2D blobs matching
// twoBlockEnsemble's grouping.
func twoBlobData() [][]float64 {
	return [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
}

func TestCombine_DispatchesEveryMethod(t *testing.T) {
	e := twoBlockEnsemble(t, 4)
	for _, method := range []Method{MethodMajorityVote, MethodCSPA, MethodKModes, MethodLCE, MethodLCA} {
		t.Run(string(method), func(t *testing.T) {
			got, err := Combine(e, nil, 2, CombineConfig{Method: method})
			if err != nil {
				t.Fatalf("Combine(%s): %v", method, err)
			}
			if !labelsEquivalent(got, []int{1, 1, 1, 2, 2, 2}) {
				t.Errorf("Combine(%s) = %v, want two clean blocks", method, got)
			}
		})
	}
}

func TestCombine_DefaultsToMajorityVote(t *testing.T) {
	e := twoBlockEnsemble(t, 3)
	got, err := Combine(e, nil, 2, CombineConfig{})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	assertLabels(t, got, []int{1, 1, 1, 2, 2, 2})
}

func TestCombine_UnknownMethod(t *testing.T) {
	e := twoBlockEnsemble(t, 2)
	if _, err := Combine(e, nil, 2, CombineConfig{Method: "nope"}); !IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCombine_CSPAFromCoassociation(t *testing.T) {
	e := twoBlockEnsemble(t, 3)
	co := Coassoc(e)
	got, err := Combine(nil, co, 2, CombineConfig{Method: MethodCSPA})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if !labelsEquivalent(got, []int{1, 1, 1, 2, 2, 2}) {
		t.Errorf("CSPA from matrix = %v, want two clean blocks", got)
	}
}

func TestCombine_CSPANeedsSomeInput(t *testing.T) {
	if _, err := Combine(nil, nil, 2, CombineConfig{Method: MethodCSPA}); !IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestValidateEnsemble(t *testing.T) {
	e := twoBlockEnsemble(t, 2)
	tests := []struct {
		name string
		e    *Matrix
		k    int
	}{
		{"nil matrix", nil, 2},
		{"k too small", e, 0},
		{"k exceeds n", e, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateEnsemble(MethodMajorityVote, tt.e, tt.k); !IsConfigError(err) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestValidateEnsemble_LabelOutOfRange(t *testing.T) {
	e, err := MatrixFromColumns([]int{1, 2, 3, 1})
	if err != nil {
		t.Fatalf("MatrixFromColumns: %v", err)
	}
	if err := validateEnsemble(MethodMajorityVote, e, 2); !IsConfigError(err) {
		t.Fatalf("expected ConfigError for label 3 at k=2, got %v", err)
	}
}
