package common

import (
	"math"
	"testing"
)

func TestWeightedMean(t *testing.T) {
	tests := []struct {
		name    string
		data    []float64
		weights []float64
		want    float64
	}{
		{
			name:    "equal weights match mean",
			data:    []float64{2, 4, 6},
			weights: []float64{1, 1, 1},
			want:    4,
		},
		{
			name:    "dominant weight pulls result",
			data:    []float64{100, 120},
			weights: []float64{0, 1},
			want:    120,
		},
		{
			name:    "zero weights fall back to mean",
			data:    []float64{100, 120},
			weights: []float64{0, 0},
			want:    110,
		},
		{
			name:    "empty",
			data:    nil,
			weights: nil,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeightedMean(tt.data, tt.weights); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("WeightedMean = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	data := []float64{10, 1, 5, 3, 8, 2, 9, 4, 7, 6}

	if got := Percentile(data, 0.5); got != 5 {
		t.Errorf("50th percentile = %v, want 5", got)
	}
	if got := Percentile(data, 1.0); got != 10 {
		t.Errorf("100th percentile = %v, want 10", got)
	}
	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("empty percentile = %v, want 0", got)
	}
	if got := Percentile(data, 1.5); got != 0 {
		t.Errorf("out-of-range p = %v, want 0", got)
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd median = %v, want 2", got)
	}
	if got := Median([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("even median = %v, want 2.5", got)
	}
}

func TestMinMaxNormalize(t *testing.T) {
	norm := MinMaxNormalize([]float64{2, 4, 6})
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(norm[i]-want[i]) > 1e-9 {
			t.Errorf("norm[%d] = %v, want %v", i, norm[i], want[i])
		}
	}

	constant := MinMaxNormalize([]float64{5, 5, 5})
	for i, v := range constant {
		if v != 0 {
			t.Errorf("constant norm[%d] = %v, want 0", i, v)
		}
	}
}

func TestFindPeaks(t *testing.T) {
	data := []float64{0, 1, 0, 0, 2, 0, 0.1, 0.5, 0.1}
	peaks := FindPeaks(data, 0.4, 2)

	want := []int{1, 4, 7}
	if len(peaks) != len(want) {
		t.Fatalf("peaks = %v, want %v", peaks, want)
	}
	for i := range want {
		if peaks[i] != want[i] {
			t.Errorf("peaks[%d] = %d, want %d", i, peaks[i], want[i])
		}
	}
}

func TestFindPeaksSuppression(t *testing.T) {
	// Two close peaks: the higher one wins
	data := []float64{0, 1, 0, 2, 0}
	peaks := FindPeaks(data, 0.5, 4)
	if len(peaks) != 1 || peaks[0] != 3 {
		t.Errorf("peaks = %v, want [3]", peaks)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(1.5, 0, 1) != 1 {
		t.Error("Clamp above max")
	}
	if Clamp(-1, 0, 1) != 0 {
		t.Error("Clamp below min")
	}
	if Clamp(0.5, 0, 1) != 0.5 {
		t.Error("Clamp in range")
	}
}
