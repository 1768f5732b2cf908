// Package merge combines playlists from several sources while keeping
// reused group names apart.
package merge

import (
	"fmt"

	"github.com/alorle/iptv-checker/m3u"
)

// maxRenameLog caps how many rename decisions are kept for reporting.
const maxRenameLog = 25

// Resolver merges playlists one batch at a time. A group name that
// already appeared in an earlier batch gets a numbered backup suffix.
type Resolver struct {
	used    map[string]int
	renames []string
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{used: make(map[string]int)}
}

// Merge appends one source's channels to dst, renaming any group that
// an earlier batch already used. All channels of the same group in
// one batch share the same renamed group.
func (r *Resolver) Merge(dst *m3u.Playlist, src m3u.Playlist) {
	mapping := make(map[string]string)
	for _, ch := range src.Channels {
		group := ch.GroupOrDefault()
		renamed, ok := mapping[group]
		if !ok {
			renamed = r.resolve(group)
			mapping[group] = renamed
		}
		if renamed != ch.Group {
			ch.Group = renamed
		}
		dst.Channels = append(dst.Channels, ch)
	}
	for group := range mapping {
		r.used[group]++
	}
	if dst.EndDate == "" {
		dst.EndDate = src.EndDate
	}
}

func (r *Resolver) resolve(group string) string {
	k := r.used[group]
	if k == 0 {
		return group
	}
	renamed := fmt.Sprintf("%s Yedek %d", group, k)
	if len(r.renames) < maxRenameLog {
		r.renames = append(r.renames, fmt.Sprintf("%s -> %s", group, renamed))
	}
	return renamed
}

// Renames reports the rename decisions made so far, capped.
func (r *Resolver) Renames() []string {
	return r.renames
}
