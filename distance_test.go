package consensus

import (
	"math"
	"testing"
)

func TestMetrics(t *testing.T) {
	a := []float64{0, 0}
	b := []float64{3, 4}
	tests := []struct {
		name   string
		metric DistanceMetric
		want   float64
	}{
		{"euclidean", EuclideanMetric{}, 5},
		{"manhattan", ManhattanMetric{}, 7},
		{"chebyshev", ChebyshevMetric{}, 4},
		{"minkowski p=2", MinkowskiMetric{P: 2}, 5},
		{"minkowski p=1", MinkowskiMetric{P: 1}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFloat(t, "Distance", tt.metric.Distance(a, b), tt.want, 1e-12)
		})
	}
}

func TestEuclideanReducedDistance(t *testing.T) {
	a := []float64{0, 0}
	b := []float64{3, 4}
	assertFloat(t, "ReducedDistance", EuclideanMetric{}.ReducedDistance(a, b), 25, 1e-12)
}

func TestCosineMetric(t *testing.T) {
	assertFloat(t, "parallel", CosineMetric{}.Distance([]float64{1, 0}, []float64{2, 0}), 0, 1e-12)
	assertFloat(t, "orthogonal", CosineMetric{}.Distance([]float64{1, 0}, []float64{0, 1}), 1, 1e-12)
	if !math.IsNaN(CosineMetric{}.Distance([]float64{0, 0}, []float64{0, 0})) {
		t.Error("cosine distance of zero vectors should be NaN")
	}
}

func TestDistanceFunc(t *testing.T) {
	m := DistanceFunc(func(a, b []float64) float64 { return 42 })
	if m.Distance(nil, nil) != 42 || m.ReducedDistance(nil, nil) != 42 {
		t.Error("DistanceFunc does not delegate")
	}
}

func TestMinkowskiPanicsBelowOne(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for P < 1")
		}
	}()
	MinkowskiMetric{P: 0.5}.Distance([]float64{1}, []float64{2})
}

func TestFlattenData(t *testing.T) {
	flat, n, dims, err := flattenData([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("flattenData: %v", err)
	}
	if n != 2 || dims != 2 {
		t.Fatalf("n=%d dims=%d, want 2 and 2", n, dims)
	}
	if flat[3] != 4 {
		t.Errorf("flat = %v", flat)
	}
	if _, _, _, err := flattenData([][]float64{{1, 2}, {3}}); !IsShapeError(err) {
		t.Errorf("ragged rows: expected ShapeError, got %v", err)
	}
	if _, _, _, err := flattenData(nil); !IsConfigError(err) {
		t.Errorf("no data: expected ConfigError, got %v", err)
	}
}

func TestComputePairwiseDistances(t *testing.T) {
	flat, n, dims, err := flattenData([][]float64{{0, 0}, {3, 4}, {0, 8}})
	if err != nil {
		t.Fatal(err)
	}
	d := ComputePairwiseDistances(flat, n, dims, EuclideanMetric{})
	assertFloat(t, "d(0,1)", d[0*n+1], 5, 1e-12)
	assertFloat(t, "d(1,2)", d[1*n+2], 5, 1e-12)
	assertFloat(t, "d(0,0)", d[0], 0, 0)
	if d[0*n+2] != d[2*n+0] {
		t.Error("distance matrix is not symmetric")
	}
}
