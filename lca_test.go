package consensus

import "testing"

func TestLCA_RecoversCleanBlocks(t *testing.T) {
	got, err := LCA(twoBlockEnsemble(t, 4), 2, LCAConfig{})
	if err != nil {
		t.Fatalf("LCA: %v", err)
	}
	if !labelsEquivalent(got, []int{1, 1, 1, 2, 2, 2}) {
		t.Errorf("LCA = %v, want two clean blocks", got)
	}
}

func TestLCA_LabelSwitchedColumns(t *testing.T) {
	// Columns describe the same grouping under swapped labels; the
	// latent classes recover it regardless.
	e, err := MatrixFromColumns(
		[]int{1, 1, 1, 2, 2, 2},
		[]int{2, 2, 2, 1, 1, 1},
		[]int{1, 1, 1, 2, 2, 2},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, err := LCA(e, 2, LCAConfig{})
	if err != nil {
		t.Fatalf("LCA: %v", err)
	}
	if !labelsEquivalent(got, []int{1, 1, 1, 2, 2, 2}) {
		t.Errorf("LCA = %v, want two clean blocks", got)
	}
}

func TestLCA_NoisyEnsemble(t *testing.T) {
	e, err := MatrixFromColumns(
		[]int{1, 1, 1, 2, 2, 2},
		[]int{1, 1, 2, 2, 2, 2},
		[]int{1, 1, 1, 1, 2, 2},
		[]int{1, 1, 1, 2, 2, 2},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, err := LCA(e, 2, LCAConfig{})
	if err != nil {
		t.Fatalf("LCA: %v", err)
	}
	if !labelsEquivalent(got, []int{1, 1, 1, 2, 2, 2}) {
		t.Errorf("LCA = %v, want the majority grouping", got)
	}
}

func TestLCA_RequiresCompleteMatrix(t *testing.T) {
	e, _ := MatrixFromColumns([]int{1, Missing, 2}, []int{1, 2, 2})
	if _, err := LCA(e, 2, LCAConfig{}); !IsConfigError(err) {
		t.Fatalf("expected ConfigError for missing entries, got %v", err)
	}
}

func TestLCA_Deterministic(t *testing.T) {
	e := randomEnsemble(t, 14, 6, 2, 0, 13)
	first, err := LCA(e, 2, LCAConfig{})
	if err != nil {
		t.Fatalf("LCA: %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := LCA(e, 2, LCAConfig{})
		if err != nil {
			t.Fatalf("LCA: %v", err)
		}
		assertLabels(t, again, first)
	}
}

func TestLCA_ConfigErrors(t *testing.T) {
	e := twoBlockEnsemble(t, 2)
	if _, err := LCA(e, 2, LCAConfig{MaxIterations: -1}); !IsConfigError(err) {
		t.Errorf("bad MaxIterations: expected ConfigError, got %v", err)
	}
	if _, err := LCA(e, 2, LCAConfig{Tolerance: -1}); !IsConfigError(err) {
		t.Errorf("negative Tolerance: expected ConfigError, got %v", err)
	}
}
