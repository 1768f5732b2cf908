// Package extract pulls IPTV playlist URLs out of arbitrary pasted text.
package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	urlRe    = regexp.MustCompile(`(?i)https?://[^\s"']+`)
	schemeRe = regexp.MustCompile(`(?i)https?://`)
)

// URLs finds every playlist URL in the given free text. Concatenated URLs
// without a separator are split apart, only URLs containing "m3u" survive,
// and URLs reaching the same Xtream account (same server, username and
// password) are collapsed to one, preferring the m3u8 variant. URLs without
// extractable credentials are always kept.
func URLs(text string) []string {
	var all []string
	seen := make(map[string]struct{})
	for _, match := range urlRe.FindAllString(text, -1) {
		for _, part := range splitConcatenated(match) {
			u := strings.TrimRight(strings.TrimSpace(part), ",;")
			if !strings.Contains(strings.ToLower(u), "m3u") {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			all = append(all, u)
		}
	}

	// m3u8 candidates first so they win the credential dedup below.
	sort.SliceStable(all, func(i, j int) bool {
		return hasM3U8(all[i]) && !hasM3U8(all[j])
	})

	credSeen := make(map[string]struct{})
	result := make([]string, 0, len(all))
	for _, u := range all {
		server, user, pass, ok := Credentials(u)
		if !ok {
			result = append(result, u)
			continue
		}
		key := server + ":" + user + ":" + pass
		if _, dup := credSeen[key]; dup {
			continue
		}
		credSeen[key] = struct{}{}
		result = append(result, u)
	}
	return result
}

// Credentials extracts the server and account from an Xtream-style URL
// carrying username/password (or user/pass) query parameters. It never
// fails outward: unparseable URLs simply report ok=false.
func Credentials(rawURL string) (server, username, password string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", "", "", false
	}

	port := u.Port()
	if port == "" {
		port = "80"
	}
	server = u.Hostname() + ":" + port

	q := u.Query()
	username, uok := firstParam(q, "username", "user")
	password, pok := firstParam(q, "password", "pass")
	if !uok || !pok {
		return "", "", "", false
	}
	return server, username, password, true
}

func firstParam(q url.Values, keys ...string) (string, bool) {
	for _, k := range keys {
		if q.Has(k) {
			return q.Get(k), true
		}
	}
	return "", false
}

// splitConcatenated splits a matched run at every interior http(s):// whose
// preceding character cannot belong to a query-string continuation. A second
// scheme glued directly onto a prior URL is a new URL start; one following
// "=", "&", "?" or "#" is a parameter value and stays attached.
func splitConcatenated(raw string) []string {
	locs := schemeRe.FindAllStringIndex(raw, -1)
	if len(locs) <= 1 {
		return []string{raw}
	}

	cuts := []int{0}
	for _, loc := range locs[1:] {
		pos := loc[0]
		if pos <= 0 {
			continue
		}
		prev := rune(raw[pos-1])
		if unicode.IsSpace(prev) || prev == '=' || prev == '&' || prev == '?' || prev == '#' {
			continue
		}
		cuts = append(cuts, pos)
	}
	if len(cuts) == 1 {
		return []string{raw}
	}

	out := make([]string, 0, len(cuts))
	for i, start := range cuts {
		end := len(raw)
		if i+1 < len(cuts) {
			end = cuts[i+1]
		}
		out = append(out, raw[start:end])
	}
	return out
}

func hasM3U8(u string) bool {
	return strings.Contains(strings.ToLower(u), "m3u8")
}
