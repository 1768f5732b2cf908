// Package country classifies playlist group names by country.
package country

import (
	"regexp"
	"strings"
	"sync"

	"github.com/mozillazg/go-unidecode"
)

// prefixRe matches a leading two-letter country code, optionally
// bracketed, followed by a separator or nothing: "TR Sports",
// "[DE] Kino", "uk|news".
var prefixRe = regexp.MustCompile(`^\[?([A-Za-z]{2})\]?([\s\-_|].*)?$`)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// aliases maps ISO 3166-1 alpha-2 codes to the name variants that
// show up in group titles in the wild.
var aliases = map[string][]string{
	"TR": {"tr", "turkiye", "turkey", "turk", "turkish"},
	"DE": {"de", "deutschland", "germany", "german", "deutsch"},
	"FR": {"fr", "france", "french", "francais"},
	"UK": {"uk", "united kingdom", "england", "english", "british"},
	"GB": {"gb", "great britain", "united kingdom"},
	"US": {"us", "usa", "united states", "america", "american"},
	"IT": {"it", "italia", "italy", "italian", "italiano"},
	"ES": {"es", "espana", "spain", "spanish", "espanol"},
	"NL": {"nl", "nederland", "netherlands", "holland", "dutch"},
	"PT": {"pt", "portugal", "portuguese", "portugues"},
	"GR": {"gr", "greece", "greek", "ellada"},
	"RU": {"ru", "russia", "russian", "rossiya"},
	"PL": {"pl", "polska", "poland", "polish"},
	"RO": {"ro", "romania", "romanian"},
	"AZ": {"az", "azerbaijan", "azerbaycan"},
	"AL": {"al", "albania", "albanian", "shqip"},
	"BG": {"bg", "bulgaria", "bulgarian"},
	"SE": {"se", "sweden", "swedish", "sverige"},
	"NO": {"no", "norway", "norwegian", "norge"},
	"DK": {"dk", "denmark", "danish", "danmark"},
	"BE": {"be", "belgium", "belgian", "belgie"},
	"CH": {"ch", "switzerland", "swiss", "schweiz"},
	"AT": {"at", "austria", "austrian", "osterreich"},
	"AR": {"ar", "arabic", "arab", "arabia"},
	"IN": {"in", "india", "indian", "hindi"},
	"BR": {"br", "brazil", "brasil", "brazilian"},
}

const (
	normCacheMax  = 2000
	matchCacheMax = 4000
)

var (
	normMu    sync.RWMutex
	normCache = make(map[string]string, 256)

	matchMu    sync.RWMutex
	matchCache = make(map[string]bool, 256)
)

// GroupCode returns the uppercased two-letter country prefix of a
// group name, or "" when the name has no such prefix.
func GroupCode(group string) string {
	m := prefixRe.FindStringSubmatch(strings.TrimSpace(group))
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// normalize lowercases, strips diacritics and collapses everything
// that is not a letter or digit into single spaces.
func normalize(s string) string {
	normMu.RLock()
	v, ok := normCache[s]
	normMu.RUnlock()
	if ok {
		return v
	}

	n := strings.ToLower(unidecode.Unidecode(s))
	n = strings.TrimSpace(nonAlnumRe.ReplaceAllString(n, " "))

	normMu.Lock()
	if len(normCache) >= normCacheMax {
		normCache = make(map[string]string, 256)
	}
	normCache[s] = n
	normMu.Unlock()
	return n
}

// Matches reports whether the group name belongs to the given country
// code. A matching two-letter prefix decides immediately; otherwise
// the normalized name is scanned for the code's known aliases.
func Matches(group, code string) bool {
	code = strings.ToUpper(code)
	key := code + "\x00" + group

	matchMu.RLock()
	v, ok := matchCache[key]
	matchMu.RUnlock()
	if ok {
		return v
	}

	res := matches(group, code)

	matchMu.Lock()
	if len(matchCache) >= matchCacheMax {
		matchCache = make(map[string]bool, 256)
	}
	matchCache[key] = res
	matchMu.Unlock()
	return res
}

func matches(group, code string) bool {
	if GroupCode(group) == code {
		return true
	}

	norm := normalize(group)
	if norm == "" {
		return false
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(norm) {
		tokens[tok] = struct{}{}
	}
	padded := " " + norm + " "

	for _, alias := range aliases[code] {
		if strings.ContainsRune(alias, ' ') {
			if strings.Contains(padded, " "+alias+" ") {
				return true
			}
			continue
		}
		if _, ok := tokens[alias]; ok {
			return true
		}
	}
	return false
}

// MatchesAny reports whether the group matches at least one of the
// given country codes.
func MatchesAny(group string, codes []string) bool {
	for _, code := range codes {
		if Matches(group, code) {
			return true
		}
	}
	return false
}
