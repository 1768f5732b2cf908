package m3u

import (
	"regexp"
	"strings"
)

var (
	groupTitleRe = regexp.MustCompile(`(?i)group-title="([^"]*)"`)
	tvgLogoRe    = regexp.MustCompile(`(?i)tvg-logo="([^"]*)"`)
	tvgIDRe      = regexp.MustCompile(`(?i)tvg-id="([^"]*)"`)
	tvgNameRe    = regexp.MustCompile(`(?i)tvg-name="([^"]*)"`)
)

// Parse builds a Playlist from raw playlist lines in a single forward pass.
// It is total: malformed metadata degrades to empty attributes and a default
// name rather than failing. Comment lines other than #EXTINF are ignored.
func Parse(lines []string, endDate string) Playlist {
	channels := make([]Channel, 0, len(lines)/2)

	pending := ""
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if len(line) >= 7 && strings.EqualFold(line[:7], "#EXTINF") {
			pending = line
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		channels = append(channels, channelFrom(pending, line))
		pending = ""
	}

	return Playlist{Channels: channels, EndDate: endDate}
}

func channelFrom(meta, url string) Channel {
	name := meta
	if i := strings.LastIndex(meta, ","); i >= 0 {
		name = meta[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Unknown"
	}

	return Channel{
		Name:    name,
		URL:     url,
		Group:   attr(groupTitleRe, meta),
		Logo:    attr(tvgLogoRe, meta),
		TvgID:   attr(tvgIDRe, meta),
		TvgName: attr(tvgNameRe, meta),
	}
}

func attr(re *regexp.Regexp, meta string) string {
	m := re.FindStringSubmatch(meta)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// StartsWithHeader reports whether the first non-blank line is the #EXTM3U
// directive. A missing header is a health warning, not a parse failure.
func StartsWithHeader(lines []string) bool {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		return len(line) >= 7 && strings.EqualFold(line[:7], "#EXTM3U")
	}
	return false
}

// CountExtInf counts #EXTINF directive lines, a cheap signal of how many
// entries the playlist claims to carry.
func CountExtInf(lines []string) int {
	count := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if len(line) >= 7 && strings.EqualFold(line[:7], "#EXTINF") {
			count++
		}
	}
	return count
}
