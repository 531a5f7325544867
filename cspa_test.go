package consensus

import "testing"

func TestCSPA_RecoversCleanBlocks(t *testing.T) {
	co := Coassoc(twoBlockEnsemble(t, 3))
	got, err := CSPA(co, 2, CSPAConfig{})
	if err != nil {
		t.Fatalf("CSPA: %v", err)
	}
	if !labelsEquivalent(got, []int{1, 1, 1, 2, 2, 2}) {
		t.Errorf("CSPA = %v, want two clean blocks", got)
	}
}

func TestCSPA_ExactlyKLabels(t *testing.T) {
	e, err := MatrixFromColumns(
		[]int{1, 1, 2, 2, 3, 3},
		[]int{1, 1, 2, 2, 3, 3},
		[]int{1, 2, 2, 3, 3, 1},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, err := CSPA(Coassoc(e), 3, CSPAConfig{})
	if err != nil {
		t.Fatalf("CSPA: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("length = %d, want 6", len(got))
	}
	if distinct := len(distinctLabels(got)); distinct != 3 {
		t.Errorf("CSPA used %d labels, want exactly 3: %v", distinct, got)
	}
}

func TestCSPA_LabelsCanonical(t *testing.T) {
	co := Coassoc(twoBlockEnsemble(t, 2))
	got, err := CSPA(co, 2, CSPAConfig{})
	if err != nil {
		t.Fatalf("CSPA: %v", err)
	}
	if got[0] != 1 {
		t.Errorf("first sample's label = %d, want 1 (first-occurrence numbering)", got[0])
	}
}

func TestCSPA_KEqualsOne(t *testing.T) {
	co := Coassoc(twoBlockEnsemble(t, 2))
	got, err := CSPA(co, 1, CSPAConfig{})
	if err != nil {
		t.Fatalf("CSPA: %v", err)
	}
	assertLabels(t, got, []int{1, 1, 1, 1, 1, 1})
}

func TestCSPA_Deterministic(t *testing.T) {
	co := Coassoc(randomEnsemble(t, 16, 5, 2, 0.2, 5))
	first, err := CSPA(co, 2, CSPAConfig{})
	if err != nil {
		t.Fatalf("CSPA: %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := CSPA(co, 2, CSPAConfig{})
		if err != nil {
			t.Fatalf("CSPA: %v", err)
		}
		assertLabels(t, again, first)
	}
}

func TestCSPA_Errors(t *testing.T) {
	co := Coassoc(twoBlockEnsemble(t, 2))
	if _, err := CSPA(nil, 2, CSPAConfig{}); !IsConfigError(err) {
		t.Errorf("nil matrix: expected ConfigError, got %v", err)
	}
	if _, err := CSPA(co, 0, CSPAConfig{}); !IsConfigError(err) {
		t.Errorf("k=0: expected ConfigError, got %v", err)
	}
	if _, err := CSPA(co, 7, CSPAConfig{}); !IsConfigError(err) {
		t.Errorf("k>n: expected ConfigError, got %v", err)
	}
	if _, err := CSPA(co, 2, CSPAConfig{MaxIterations: -1}); !IsConfigError(err) {
		t.Errorf("bad MaxIterations: expected ConfigError, got %v", err)
	}
}
