package country

import "strings"

var adultTokens = []string{"adult", "xxx", "porn", "18+", "+18", "erotik", "sex"}

// IsAdult reports whether a group name looks like adult content.
func IsAdult(group string) bool {
	lower := strings.ToLower(group)
	for _, tok := range adultTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
