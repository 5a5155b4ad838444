package utils

// Truncate caps s at maxLen bytes and marks the cut with an ellipsis. A
// non-positive maxLen disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
