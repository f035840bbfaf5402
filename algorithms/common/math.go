package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// WeightedMean calculates the weighted mean of a slice using gonum.
// Falls back to the unweighted mean when the weights sum to zero.
func WeightedMean(data, weights []float64) float64 {
	if len(data) == 0 || len(data) != len(weights) {
		return 0.0
	}
	if floats.Sum(weights) <= 0 {
		return Mean(data)
	}
	return stat.Mean(data, weights)
}

// Variance calculates the sample variance of a slice using gonum
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return math.Sqrt(Variance(data))
}

// Median calculates the median of a slice
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}

// Percentile calculates the p-th percentile (p between 0 and 1)
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 || p < 0 || p > 1 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, val := range data {
		sumSquares += val * val
	}

	return math.Sqrt(sumSquares / float64(len(data)))
}

// MinMaxNormalize normalizes data to [0, 1] range
func MinMaxNormalize(data []float64) []float64 {
	if len(data) == 0 {
		return data
	}

	min := floats.Min(data)
	max := floats.Max(data)

	if math.Abs(max-min) < 1e-10 {
		// Constant data normalizes to zeros
		return make([]float64, len(data))
	}

	normalized := make([]float64, len(data))
	for i, val := range data {
		normalized[i] = (val - min) / (max - min)
	}

	return normalized
}

// MovingAverage calculates simple moving average with given window size
func MovingAverage(data []float64, windowSize int) []float64 {
	if len(data) == 0 || windowSize <= 0 || windowSize > len(data) {
		return data
	}

	result := make([]float64, len(data))

	for i := 0; i < windowSize; i++ {
		sum := 0.0
		for j := 0; j <= i; j++ {
			sum += data[j]
		}
		result[i] = sum / float64(i+1)
	}

	for i := windowSize; i < len(data); i++ {
		sum := 0.0
		for j := i - windowSize + 1; j <= i; j++ {
			sum += data[j]
		}
		result[i] = sum / float64(windowSize)
	}

	return result
}

// FindPeaks finds local maxima in data above minHeight separated by at
// least minDistance indices. A higher peak inside the suppression window
// replaces an earlier lower one.
func FindPeaks(data []float64, minHeight, minDistance float64) []int {
	if len(data) < 3 {
		return []int{}
	}

	var peaks []int

	for i := 1; i < len(data)-1; i++ {
		if data[i] > data[i-1] && data[i] > data[i+1] && data[i] >= minHeight {
			validPeak := true
			for _, existingPeak := range peaks {
				if math.Abs(float64(i-existingPeak)) < minDistance {
					if data[i] > data[existingPeak] {
						for j, peak := range peaks {
							if peak == existingPeak {
								peaks = append(peaks[:j], peaks[j+1:]...)
								break
							}
						}
					} else {
						validPeak = false
					}
					break
				}
			}

			if validPeak {
				peaks = append(peaks, i)
			}
		}
	}

	return peaks
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
