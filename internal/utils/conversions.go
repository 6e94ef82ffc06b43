package utils

// ToStringSlice keeps the string elements of a decoded JSON array, such as a
// token's roles claim, and drops everything else. The result is never nil.
func ToStringSlice(claim []any) []string {
	out := make([]string, 0, len(claim))
	for _, v := range claim {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// FirstOr returns the element at index i, or def when the slice is too short or the element is empty.
func FirstOr(slice []string, i int, def string) string {
	if i < 0 || i >= len(slice) || slice[i] == "" {
		return def
	}
	return slice[i]
}
