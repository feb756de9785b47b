package common

// IsProbability checks that v lies in [0, 1]
func IsProbability(v float64) bool {
	return v >= 0 && v <= 1
}

// IsValidIndex checks that i addresses an element of a collection of the given size
func IsValidIndex(i, size int) bool {
	return i >= 0 && i < size
}
