package m3u

import "strings"

// DefaultGroup is the group assigned to channels without a group-title.
const DefaultGroup = "Ungrouped"

// Channel is a single playable playlist entry. Channels are values: they are
// created by the parser and copied, never mutated, by downstream stages.
type Channel struct {
	Name    string
	URL     string
	Group   string
	Logo    string
	TvgID   string
	TvgName string
}

// GroupOrDefault returns the channel's group, normalizing a blank group to
// DefaultGroup.
func (c Channel) GroupOrDefault() string {
	g := strings.TrimSpace(c.Group)
	if g == "" {
		return DefaultGroup
	}
	return g
}

// Playlist is an ordered channel list plus the subscription expiry date in
// ddMMyyyy form when one was discovered, or "" otherwise.
type Playlist struct {
	Channels []Channel
	EndDate  string
}

// Groups returns the set of group names present in the playlist.
func (p Playlist) Groups() map[string]struct{} {
	groups := make(map[string]struct{})
	for _, c := range p.Channels {
		groups[c.GroupOrDefault()] = struct{}{}
	}
	return groups
}
