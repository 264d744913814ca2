package common

// Coalesce returns the first value that is not the zero value of T, or the zero value when every
// value is zero. It picks the first set option among nil-able loggers, durations and the like.
//
// Parameters:
//   - values: the candidates in order of preference
//
// Returns:
//   - T: the first non-zero candidate
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
