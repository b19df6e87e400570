package utils

// Truncate shortens s to at most maxLen runes, appending "..." when it cuts.
// Multi-byte characters are never split.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
