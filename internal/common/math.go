package common

import "math"

// Max returns the largest value of a non-empty slice, or -Inf for an empty one
func Max(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

// Mean returns the arithmetic mean, or 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MeanSquaredError returns the mean of the squared element-wise differences.
// Both slices must have the same length.
func MeanSquaredError(estimate, actual []float64) float64 {
	if len(estimate) == 0 {
		return 0
	}
	sum := 0.0
	for i := range estimate {
		d := estimate[i] - actual[i]
		sum += d * d
	}
	return sum / float64(len(estimate))
}
