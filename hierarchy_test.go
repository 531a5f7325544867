package consensus

import (
	"math"
	"testing"
)

// blockDissimilarity builds an n-by-n matrix with low distance inside
// the given groups and high distance across them.
func blockDissimilarity(groups [][]int, n int, within, across float64) []float64 {
	d := make([]float64, n*n)
	for i := range d {
		d[i] = across
	}
	for i := 0; i < n; i++ {
		d[i*n+i] = 0
	}
	for _, g := range groups {
		for _, i := range g {
			for _, j := range g {
				if i != j {
					d[i*n+j] = within
				}
			}
		}
	}
	return d
}

func TestCutDissimilarity_TwoBlocks(t *testing.T) {
	d := blockDissimilarity([][]int{{0, 1, 2}, {3, 4, 5}}, 6, 0.1, 0.9)
	for _, linkage := range []Linkage{LinkageSingle, LinkageAverage, LinkageComplete} {
		t.Run(string(linkage), func(t *testing.T) {
			got, err := CutDissimilarity(d, 6, 2, linkage)
			if err != nil {
				t.Fatalf("CutDissimilarity: %v", err)
			}
			if !labelsEquivalent(got, []int{1, 1, 1, 2, 2, 2}) {
				t.Errorf("cut = %v, want two blocks", got)
			}
			if got[0] != 1 {
				t.Errorf("labels not canonical: %v", got)
			}
		})
	}
}

func TestCutDissimilarity_KEqualsN(t *testing.T) {
	d := blockDissimilarity([][]int{{0, 1}}, 3, 0.1, 0.9)
	got, err := CutDissimilarity(d, 3, 3, LinkageAverage)
	if err != nil {
		t.Fatalf("CutDissimilarity: %v", err)
	}
	assertLabels(t, got, []int{1, 2, 3})
}

func TestCutDissimilarity_KEqualsOne(t *testing.T) {
	d := blockDissimilarity([][]int{{0, 1, 2}, {3, 4}}, 5, 0.1, 0.9)
	got, err := CutDissimilarity(d, 5, 1, LinkageComplete)
	if err != nil {
		t.Fatalf("CutDissimilarity: %v", err)
	}
	assertLabels(t, got, []int{1, 1, 1, 1, 1})
}

func TestCutDissimilarity_NaNSeparatesFirst(t *testing.T) {
	// Samples 0-2 are mutually close; sample 3 was never compared to
	// anyone. With k=2 it must end up alone.
	nan := math.NaN()
	d := []float64{
		0, 0.1, 0.1, nan,
		0.1, 0, 0.1, nan,
		0.1, 0.1, 0, nan,
		nan, nan, nan, 0,
	}
	for _, linkage := range []Linkage{LinkageSingle, LinkageAverage, LinkageComplete} {
		got, err := CutDissimilarity(d, 4, 2, linkage)
		if err != nil {
			t.Fatalf("CutDissimilarity(%s): %v", linkage, err)
		}
		if !labelsEquivalent(got, []int{1, 1, 1, 2}) {
			t.Errorf("cut(%s) = %v, want the isolated sample alone", linkage, got)
		}
	}
}

func TestCutDissimilarity_Errors(t *testing.T) {
	d := blockDissimilarity([][]int{{0, 1}}, 3, 0.1, 0.9)
	if _, err := CutDissimilarity(d, 3, 0, LinkageSingle); !IsConfigError(err) {
		t.Errorf("k=0: expected ConfigError, got %v", err)
	}
	if _, err := CutDissimilarity(d, 3, 4, LinkageSingle); !IsConfigError(err) {
		t.Errorf("k>n: expected ConfigError, got %v", err)
	}
	if _, err := CutDissimilarity(d[:4], 3, 2, LinkageSingle); !IsShapeError(err) {
		t.Errorf("short matrix: expected ShapeError, got %v", err)
	}
	if _, err := CutDissimilarity(d, 3, 2, "median"); !IsConfigError(err) {
		t.Errorf("unknown linkage: expected ConfigError, got %v", err)
	}
	if _, err := CutDissimilarity(nil, 0, 1, LinkageSingle); !IsConfigError(err) {
		t.Errorf("n=0: expected ConfigError, got %v", err)
	}
}

func TestCutDissimilarity_UnevenBlocks(t *testing.T) {
	d := blockDissimilarity([][]int{{0, 1, 2, 3}, {4, 5}, {6}}, 7, 0.1, 0.9)
	got, err := CutDissimilarity(d, 7, 3, LinkageAverage)
	if err != nil {
		t.Fatalf("CutDissimilarity: %v", err)
	}
	if !labelsEquivalent(got, []int{1, 1, 1, 1, 2, 2, 3}) {
		t.Errorf("cut = %v, want blocks of 4, 2 and 1", got)
	}
}
