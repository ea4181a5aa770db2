// Package strings holds tiny slice and string helpers shared across the platform
package strings

// IfEmpty returns fallback when v is empty
func IfEmpty[T any](v, fallback []T) []T {
	if len(v) == 0 {
		return fallback
	}
	return v
}
