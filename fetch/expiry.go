package fetch

import (
	"regexp"
	"strings"
)

const maxExpiryCandidates = 200

var (
	ddmmyyyyRe = regexp.MustCompile(`\b(\d{2})(\d{2})(\d{4})\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})[-./](\d{2})[-./](\d{2})\b`)
)

var expiryHints = []string{"exp", "expire", "end", "valid"}

// ExtractEndDate scans playlist lines for an inline expiry date and
// returns it as ddMMyyyy, or "" when none is found. Only lines
// mentioning expiry-ish words are considered, capped to keep the scan
// cheap on huge playlists.
func ExtractEndDate(lines []string) string {
	candidates := 0
	for _, line := range lines {
		if !hasExpiryHint(line) {
			continue
		}
		candidates++
		if candidates > maxExpiryCandidates {
			return ""
		}

		if m := ddmmyyyyRe.FindStringSubmatch(line); m != nil {
			return m[1] + m[2] + m[3]
		}
		if m := isoDateRe.FindStringSubmatch(line); m != nil {
			return m[3] + m[2] + m[1]
		}
	}
	return ""
}

func hasExpiryHint(line string) bool {
	lower := strings.ToLower(line)
	for _, hint := range expiryHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
