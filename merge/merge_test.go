package merge

import (
	"fmt"
	"testing"

	"github.com/alorle/iptv-checker/m3u"
)

func source(group string, urls ...string) m3u.Playlist {
	var p m3u.Playlist
	for _, u := range urls {
		p.Channels = append(p.Channels, m3u.Channel{Name: u, Group: group, URL: u})
	}
	return p
}

func TestMergeRenamesReusedGroups(t *testing.T) {
	r := NewResolver()
	var merged m3u.Playlist

	r.Merge(&merged, source("Sports", "http://a/1.ts"))
	r.Merge(&merged, source("Sports", "http://b/1.ts"))
	r.Merge(&merged, source("Sports", "http://c/1.ts"))

	want := []string{"Sports", "Sports Yedek 1", "Sports Yedek 2"}
	if len(merged.Channels) != 3 {
		t.Fatalf("channels = %d, want 3", len(merged.Channels))
	}
	for i, ch := range merged.Channels {
		if ch.Group != want[i] {
			t.Errorf("channel %d group = %q, want %q", i, ch.Group, want[i])
		}
	}
}

func TestMergeKeepsBatchTogether(t *testing.T) {
	r := NewResolver()
	var merged m3u.Playlist

	r.Merge(&merged, source("Sports", "http://a/1.ts"))
	r.Merge(&merged, source("Sports", "http://b/1.ts", "http://b/2.ts"))

	if merged.Channels[1].Group != merged.Channels[2].Group {
		t.Errorf("second batch split into groups %q and %q",
			merged.Channels[1].Group, merged.Channels[2].Group)
	}
}

func TestMergeDistinctGroupsUntouched(t *testing.T) {
	r := NewResolver()
	var merged m3u.Playlist

	r.Merge(&merged, source("Sports", "http://a/1.ts"))
	r.Merge(&merged, source("News", "http://b/1.ts"))

	if merged.Channels[0].Group != "Sports" || merged.Channels[1].Group != "News" {
		t.Errorf("distinct groups were renamed: %+v", merged.Channels)
	}
}

func TestMergeEndDateFirstWins(t *testing.T) {
	r := NewResolver()
	var merged m3u.Playlist

	first := source("A", "http://a/1.ts")
	first.EndDate = "31122026"
	second := source("B", "http://b/1.ts")
	second.EndDate = "01011999"

	r.Merge(&merged, first)
	r.Merge(&merged, second)

	if merged.EndDate != "31122026" {
		t.Errorf("EndDate = %q, want the first source's date", merged.EndDate)
	}
}

func TestMergeEndDateFillsFromLaterSource(t *testing.T) {
	r := NewResolver()
	var merged m3u.Playlist

	r.Merge(&merged, source("A", "http://a/1.ts"))
	second := source("B", "http://b/1.ts")
	second.EndDate = "31122026"
	r.Merge(&merged, second)

	if merged.EndDate != "31122026" {
		t.Errorf("EndDate = %q, want the later source's date", merged.EndDate)
	}
}

func TestRenamesLogged(t *testing.T) {
	r := NewResolver()
	var merged m3u.Playlist

	r.Merge(&merged, source("Sports", "http://a/1.ts"))
	r.Merge(&merged, source("Sports", "http://b/1.ts"))

	renames := r.Renames()
	if len(renames) != 1 || renames[0] != "Sports -> Sports Yedek 1" {
		t.Errorf("Renames = %v, want one logged rename", renames)
	}
}

func TestRenameLogCapped(t *testing.T) {
	r := NewResolver()
	var merged m3u.Playlist

	for i := 0; i < maxRenameLog+10; i++ {
		r.Merge(&merged, source(fmt.Sprintf("G%d", i), "http://a/1.ts"))
		r.Merge(&merged, source(fmt.Sprintf("G%d", i), "http://b/1.ts"))
	}
	if got := len(r.Renames()); got != maxRenameLog {
		t.Errorf("rename log = %d entries, want cap of %d", got, maxRenameLog)
	}
}

func TestMergeNormalizesBlankGroups(t *testing.T) {
	r := NewResolver()
	var merged m3u.Playlist

	r.Merge(&merged, source("", "http://a/1.ts"))
	r.Merge(&merged, source("", "http://b/1.ts"))

	if got := merged.Channels[0].Group; got != m3u.DefaultGroup {
		t.Errorf("first blank group = %q, want %q", got, m3u.DefaultGroup)
	}
	if got, want := merged.Channels[1].Group, m3u.DefaultGroup+" Yedek 1"; got != want {
		t.Errorf("second blank group = %q, want %q", got, want)
	}
}
