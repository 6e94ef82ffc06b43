package utils

func Ptr[T any](v T) *T {
	return &v
}

// Coalesce returns incoming when it is non-zero, otherwise prev.
func Coalesce[T comparable](prev, incoming T) T {
	var zero T
	if incoming == zero {
		return prev
	}
	return incoming
}
