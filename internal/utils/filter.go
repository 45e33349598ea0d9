package utils

// Filter returns the elements of slice for which keep returns true.
// The result is never nil so it encodes as an empty JSON array.
func Filter[T any](slice []T, keep func(T) bool) []T {
	result := make([]T, 0, len(slice))
	for _, item := range slice {
		if keep(item) {
			result = append(result, item)
		}
	}
	return result
}

// Count returns how many elements of slice satisfy match
func Count[T any](slice []T, match func(T) bool) int {
	n := 0
	for _, item := range slice {
		if match(item) {
			n++
		}
	}
	return n
}

// Unique returns the distinct keys of slice in first-seen order
func Unique[T any, K comparable](slice []T, key func(T) K) []K {
	seen := make(map[K]struct{}, len(slice))
	result := make([]K, 0, len(slice))
	for _, item := range slice {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	return result
}
