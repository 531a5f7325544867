package consensus

import (
	"errors"
	"testing"
)

func TestImputeKNN_FillsFromNeighbours(t *testing.T) {
	data := twoBlobData()
	part := []int{1, Missing, 1, 2, 2, Missing}
	got, err := ImputeKNN(part, data, ImputeConfig{Neighbours: 2})
	if err != nil {
		t.Fatalf("ImputeKNN: %v", err)
	}
	assertLabels(t, got, []int{1, 1, 1, 2, 2, 2})
	// The input stays untouched.
	if part[1] != Missing {
		t.Error("ImputeKNN modified its input")
	}
}

func TestImputeKNN_ThresholdLeavesDividedEntriesMissing(t *testing.T) {
	// Sample 2 sits exactly between one sample of each label, so its
	// two-neighbour vote splits 1-1 and cannot reach a 0.9 threshold.
	data := [][]float64{{0}, {2}, {1}}
	part := []int{1, 2, Missing}
	got, err := ImputeKNN(part, data, ImputeConfig{Neighbours: 2, Threshold: 0.9})
	if err != nil {
		t.Fatalf("ImputeKNN: %v", err)
	}
	if got[2] != Missing {
		t.Errorf("divided entry filled with %d, want Missing", got[2])
	}
}

func TestImputeKNN_NoLabelledSamples(t *testing.T) {
	data := [][]float64{{0}, {1}}
	got, err := ImputeKNN([]int{Missing, Missing}, data, ImputeConfig{})
	if err != nil {
		t.Fatalf("ImputeKNN: %v", err)
	}
	assertLabels(t, got, []int{Missing, Missing})
}

func TestImputeKNN_Errors(t *testing.T) {
	data := [][]float64{{0}, {1}}
	if _, err := ImputeKNN([]int{1}, data, ImputeConfig{}); !IsShapeError(err) {
		t.Errorf("length mismatch: expected ShapeError, got %v", err)
	}
	if _, err := ImputeKNN([]int{1, 2}, data, ImputeConfig{Neighbours: -1}); !IsConfigError(err) {
		t.Errorf("bad Neighbours: expected ConfigError, got %v", err)
	}
	if _, err := ImputeKNN([]int{1, 2}, data, ImputeConfig{Threshold: 1.5}); !IsConfigError(err) {
		t.Errorf("bad Threshold: expected ConfigError, got %v", err)
	}
	if _, err := ImputeKNN([]int{1, 2}, nil, ImputeConfig{}); !IsConfigError(err) {
		t.Errorf("no data: expected ConfigError, got %v", err)
	}
}

func TestImputeMissing_ZeroMissingGuarantee(t *testing.T) {
	arr, err := NewArray(6, 3, []string{"a", "b"}, []int{2})
	if err != nil {
		t.Fatal(err)
	}
	// Roughly a third of the entries missing, every sample assigned in
	// at least one partition.
	partitions := [][3][]int{
		{
			{1, 1, 1, 2, 2, 2},
			{1, Missing, 1, 2, 2, Missing},
			{Missing, 1, 1, Missing, 2, 2},
		},
		{
			{1, 1, Missing, 2, Missing, 2},
			{Missing, Missing, 1, 2, 2, 2},
			{1, 1, 1, Missing, 2, Missing},
		},
	}
	for alg := range partitions {
		for rep, p := range partitions[alg] {
			if err := arr.SetPartition(rep, alg, 0, p); err != nil {
				t.Fatal(err)
			}
		}
	}

	got, err := ImputeMissing(arr, twoBlobData(), 2, ImputeConfig{Neighbours: 2})
	if err != nil {
		t.Fatalf("ImputeMissing: %v", err)
	}
	if missing := got.MissingCount(); missing != 0 {
		t.Errorf("MissingCount = %d, want 0", missing)
	}
	// The input array keeps its gaps.
	if arr.MissingCount() == 0 {
		t.Error("ImputeMissing modified its input")
	}
	// Imputed labels agree with the blob structure.
	e, err := got.Partitions(2)
	if err != nil {
		t.Fatal(err)
	}
	merged, err := MajorityVote(e, 2, VoteConfig{})
	if err != nil {
		t.Fatalf("MajorityVote after imputation: %v", err)
	}
	if !labelsEquivalent(merged, []int{1, 1, 1, 2, 2, 2}) {
		t.Errorf("consensus after imputation = %v, want two blocks", merged)
	}
}

func TestImputeMissing_VoteOnlyWithoutData(t *testing.T) {
	arr, err := FromPartitions("a", 2,
		[]int{1, 1, 2, 2},
		[]int{1, Missing, 2, 2},
		[]int{Missing, 1, Missing, 2},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ImputeMissing(arr, nil, 2, ImputeConfig{})
	if err != nil {
		t.Fatalf("ImputeMissing: %v", err)
	}
	if missing := got.MissingCount(); missing != 0 {
		t.Errorf("MissingCount = %d, want 0", missing)
	}
	assertLabels(t, got.Partition(1, 0, 0), []int{1, 1, 2, 2})
}

func TestImputeMissing_UnassignedSampleFails(t *testing.T) {
	arr, err := FromPartitions("a", 2,
		[]int{1, Missing, 2},
		[]int{1, Missing, 2},
	)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ImputeMissing(arr, nil, 2, ImputeConfig{})
	if !IsConsensusError(err) {
		t.Fatalf("expected ConsensusError, got %v", err)
	}
	var ce ConsensusError
	if errors.As(err, &ce) && ce.Sample != 1 {
		t.Errorf("offending sample = %d, want 1", ce.Sample)
	}
}

func TestImputeMissing_UnknownK(t *testing.T) {
	arr, _ := FromPartitions("a", 2, []int{1, 2, 1})
	if _, err := ImputeMissing(arr, nil, 3, ImputeConfig{}); !IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
