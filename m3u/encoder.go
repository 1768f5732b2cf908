package m3u

import (
	"sort"
	"strings"
)

// Format serializes the playlist channels whose group is in selectedGroups
// back to playlist text. A nil selection keeps every group. Groups are
// sorted case-insensitively by name, and channels within a group
// case-insensitively by channel name.
func Format(p Playlist, selectedGroups map[string]struct{}, format OutputFormat) string {
	grouped := make(map[string][]Channel)
	for _, c := range p.Channels {
		g := c.GroupOrDefault()
		if selectedGroups != nil {
			if _, ok := selectedGroups[g]; !ok {
				continue
			}
		}
		grouped[g] = append(grouped[g], c)
	}

	names := make([]string, 0, len(grouped))
	total := 0
	for g, items := range grouped {
		names = append(names, g)
		total += len(items)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	var sb strings.Builder
	sb.Grow(64*total + 16)
	sb.WriteString("#EXTM3U\n")

	for _, g := range names {
		items := grouped[g]
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		})
		for _, c := range items {
			writeExtInf(&sb, c, format)
			sb.WriteByte('\n')
			sb.WriteString(c.URL)
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

func writeExtInf(sb *strings.Builder, c Channel, format OutputFormat) {
	sb.WriteString("#EXTINF:-1")

	switch format {
	case FormatM3U8:
		writeAttr(sb, "tvg-logo", c.Logo)
		writeAttr(sb, "group-title", c.Group)
	case FormatM3U8Plus:
		writeAttr(sb, "tvg-id", c.TvgID)
		writeAttr(sb, "tvg-name", c.TvgName)
		writeAttr(sb, "tvg-logo", c.Logo)
		writeAttr(sb, "group-title", c.Group)
	}

	sb.WriteByte(',')
	sb.WriteString(c.Name)
}

func writeAttr(sb *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteString(`="`)
	sb.WriteString(strings.ReplaceAll(value, `"`, `\"`))
	sb.WriteByte('"')
}
