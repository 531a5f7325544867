package consensus

import "testing"

func TestKModes_SingleDistinctColumnShortCircuits(t *testing.T) {
	// One unique assignment vector replicated m times comes back as-is.
	col := []int{1, 2, 1, 2, 2}
	e, err := MatrixFromColumns(col, col, col, col)
	if err != nil {
		t.Fatal(err)
	}
	got, err := KModes(e, 2, KModesConfig{})
	if err != nil {
		t.Fatalf("KModes: %v", err)
	}
	assertLabels(t, got, col)
}

func TestKModes_CleanEnsemble(t *testing.T) {
	got, err := KModes(twoBlockEnsemble(t, 5), 2, KModesConfig{})
	if err != nil {
		t.Fatalf("KModes: %v", err)
	}
	assertLabels(t, got, []int{1, 1, 1, 2, 2, 2})
}

func TestKModes_OutvotesNoisyColumn(t *testing.T) {
	e, err := MatrixFromColumns(
		[]int{1, 1, 1, 2, 2, 2},
		[]int{1, 1, 1, 2, 2, 2},
		[]int{1, 2, 1, 2, 1, 2},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, err := KModes(e, 2, KModesConfig{})
	if err != nil {
		t.Fatalf("KModes: %v", err)
	}
	if !labelsEquivalent(got, []int{1, 1, 1, 2, 2, 2}) {
		t.Errorf("KModes = %v, want the two-column majority grouping", got)
	}
}

func TestKModes_MissingExcludedFromDistance(t *testing.T) {
	e, err := MatrixFromColumns(
		[]int{1, 1, 1, 2, 2, 2},
		[]int{1, Missing, 1, 2, Missing, 2},
		[]int{Missing, 1, 1, Missing, 2, 2},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, err := KModes(e, 2, KModesConfig{})
	if err != nil {
		t.Fatalf("KModes: %v", err)
	}
	if !labelsEquivalent(got, []int{1, 1, 1, 2, 2, 2}) {
		t.Errorf("KModes = %v, want two clean blocks", got)
	}
}

func TestKModes_Deterministic(t *testing.T) {
	e := randomEnsemble(t, 18, 6, 3, 0.15, 7)
	first, err := KModes(e, 3, KModesConfig{})
	if err != nil {
		t.Fatalf("KModes: %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := KModes(e, 3, KModesConfig{})
		if err != nil {
			t.Fatalf("KModes: %v", err)
		}
		assertLabels(t, again, first)
	}
}

func TestKModes_Errors(t *testing.T) {
	t.Run("all-missing row", func(t *testing.T) {
		e, _ := MatrixFromColumns([]int{1, Missing, 2}, []int{1, Missing, 2})
		if _, err := KModes(e, 2, KModesConfig{}); !IsConfigError(err) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
	})
	t.Run("more clusters than profiles", func(t *testing.T) {
		e, _ := MatrixFromColumns([]int{1, 1, 2, 2}, []int{2, 2, 1, 1})
		if _, err := KModes(e, 3, KModesConfig{}); !IsConsensusError(err) {
			t.Fatalf("expected ConsensusError, got %v", err)
		}
	})
	t.Run("bad MaxIterations", func(t *testing.T) {
		e, _ := MatrixFromColumns([]int{1, 2}, []int{2, 1})
		if _, err := KModes(e, 2, KModesConfig{MaxIterations: -1}); !IsConfigError(err) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
	})
}
