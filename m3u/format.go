package m3u

// OutputFormat selects how much metadata the formatter emits. The constants
// are ordered by richness so MaxFormat can compare them directly.
type OutputFormat int

const (
	// FormatM3U emits bare "#EXTINF:-1,name" lines without attributes.
	FormatM3U OutputFormat = iota
	// FormatM3U8 adds tvg-logo and group-title attributes.
	FormatM3U8
	// FormatM3U8Plus additionally carries the tvg-id/tvg-name EPG identifiers.
	FormatM3U8Plus
)

func (f OutputFormat) String() string {
	switch f {
	case FormatM3U8:
		return "M3U8"
	case FormatM3U8Plus:
		return "M3U8PLUS"
	default:
		return "M3U"
	}
}

// Ext returns the file extension conventionally used for the format.
func (f OutputFormat) Ext() string {
	switch f {
	case FormatM3U8:
		return "m3u8"
	case FormatM3U8Plus:
		return "m3u8plus"
	default:
		return "m3u"
	}
}

// ParseFormat maps a config string to an OutputFormat. Unknown values map
// to FormatM3U.
func ParseFormat(s string) OutputFormat {
	switch s {
	case "m3u8":
		return FormatM3U8
	case "m3u8plus", "m3u8+":
		return FormatM3U8Plus
	default:
		return FormatM3U
	}
}

// DetectFormat picks the weakest output format that preserves all metadata
// present in the playlist: EPG identifiers demand M3U8PLUS, logos or groups
// demand M3U8, bare channels fit plain M3U.
func DetectFormat(p Playlist) OutputFormat {
	hasAttrs := false
	for _, c := range p.Channels {
		if c.TvgID != "" || c.TvgName != "" {
			return FormatM3U8Plus
		}
		if c.Logo != "" || c.Group != "" {
			hasAttrs = true
		}
	}
	if hasAttrs {
		return FormatM3U8
	}
	return FormatM3U
}

// MaxFormat returns the richer of two formats, used when merging sources
// that individually warrant different formats.
func MaxFormat(a, b OutputFormat) OutputFormat {
	if a >= b {
		return a
	}
	return b
}
