package session

import "strings"

// Redact obfuscates token-like strings for log output:
// - length <= 4  → all asterisks of the same length
// - 5..12        → first 2 characters, the rest asterisks
// - > 12         → first 8 characters, "...", last 4 characters
func Redact(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	if len(s) <= 12 {
		return s[:2] + strings.Repeat("*", len(s)-2)
	}
	return s[:8] + "..." + s[len(s)-4:]
}
