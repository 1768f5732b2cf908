// Package output writes merged playlists to disk under versioned,
// dated filenames.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alorle/iptv-checker/m3u"
)

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Saved describes a playlist written to disk.
type Saved struct {
	Name string
	Path string
}

// Saver writes playlists into a directory.
type Saver struct {
	dir string
	now func() time.Time
}

// NewSaver creates the output directory if needed.
func NewSaver(dir string) (*Saver, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Saver{dir: dir, now: time.Now}, nil
}

// Save writes content under a name built from today's date, the
// source host, the next free version number and an optional end date:
// <ddMMyyyy>_<source>_v<N>[_<endDate>].<ext>
func (s *Saver) Save(sourceURL string, format m3u.OutputFormat, content, endDate string) (Saved, error) {
	date := s.now().Format("02012006")
	source := sourceName(sourceURL)
	ext := format.Ext()

	prefix := fmt.Sprintf("%s_%s_v", date, source)
	version, err := s.nextVersion(prefix)
	if err != nil {
		return Saved{}, err
	}

	name := fmt.Sprintf("%s%d", prefix, version)
	if endDate != "" {
		name += "_" + endDate
	}
	name += "." + ext

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return Saved{}, fmt.Errorf("failed to write playlist: %w", err)
	}
	return Saved{Name: name, Path: path}, nil
}

// nextVersion scans the output directory for files sharing the prefix
// and returns one past the highest version found.
func (s *Saver) nextVersion(prefix string) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan output directory: %w", err)
	}

	next := 1
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end == 0 {
			continue
		}
		if v, err := strconv.Atoi(rest[:end]); err == nil && v >= next {
			next = v + 1
		}
	}
	return next, nil
}

// sourceName derives a filename-safe label from a source URL's host.
func sourceName(sourceURL string) string {
	name := "playlist"
	if u, err := url.Parse(sourceURL); err == nil && u.Hostname() != "" {
		name = u.Hostname()
	} else if sourceURL != "" {
		name = sourceURL
	}
	name = unsafeNameRe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "playlist"
	}
	return name
}
