// Package fetch downloads playlist sources and turns them into parsed
// playlists, with retry, cache fallback and expiry discovery.
package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/alorle/iptv-checker/cache"
	"github.com/alorle/iptv-checker/m3u"
	"github.com/alorle/iptv-checker/metrics"
)

const (
	// maxPlaylistLines bounds how much of a source we are willing to
	// read. Panels occasionally return endless garbage instead of a
	// playlist.
	maxPlaylistLines = 100_000

	initialBufSize = 64 * 1024
	maxLineSize    = 1024 * 1024
)

var (
	ErrTooLarge  = errors.New("playlist exceeds line limit")
	ErrEmptyBody = errors.New("playlist body is empty")
)

// Fetcher downloads playlist sources over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	store     *cache.Store
	attempts  uint
	logger    *slog.Logger
}

// NewFetcher returns a fetcher. store may be nil to disable the cache
// fallback, attempts must be at least 1.
func NewFetcher(client *http.Client, userAgent string, store *cache.Store, attempts uint, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if attempts == 0 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		store:     store,
		attempts:  attempts,
		logger:    logger,
	}
}

// Fetch downloads a playlist URL and parses it. On download failure
// the last cached copy, of any age, is used instead. The playlist's
// end date comes from inline expiry lines first and the source's
// Xtream panel second.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (m3u.Playlist, error) {
	var lines []string

	err := retry.Do(
		func() error {
			var ferr error
			lines, ferr = f.fetchLines(ctx, rawURL)
			return ferr
		},
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Warn("playlist fetch retry", "url", rawURL, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if f.store != nil {
			if body, ok := f.store.Get(rawURL); ok {
				f.logger.Warn("serving playlist from cache after fetch failure", "url", rawURL, "error", err)
				metrics.RecordSourceFetch("cache")
				lines = splitLines(string(body))
				return f.parse(ctx, rawURL, lines), nil
			}
		}
		metrics.RecordSourceFetch("error")
		return m3u.Playlist{}, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	metrics.RecordSourceFetch("ok")
	if f.store != nil {
		if cerr := f.store.Set(rawURL, []byte(strings.Join(lines, "\n"))); cerr != nil {
			f.logger.Warn("failed to cache playlist", "url", rawURL, "error", cerr)
		}
	}
	return f.parse(ctx, rawURL, lines), nil
}

func (f *Fetcher) parse(ctx context.Context, rawURL string, lines []string) m3u.Playlist {
	if !m3u.StartsWithHeader(lines) {
		f.logger.Warn("playlist body has no #EXTM3U header", "url", rawURL)
	}
	f.logger.Debug("playlist downloaded",
		"url", rawURL, "lines", len(lines), "extinf", m3u.CountExtInf(lines))

	endDate := ExtractEndDate(lines)
	if endDate == "" {
		if info, err := XtreamLookup(ctx, f.client, f.userAgent, rawURL); err == nil {
			endDate = info.EndDate()
		}
	}
	return m3u.Parse(lines, endDate)
}

func (f *Fetcher) fetchLines(ctx context.Context, rawURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, initialBufSize), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > maxPlaylistLines {
			return nil, ErrTooLarge
		}
		if len(lines)%10_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyBody
	}
	return lines, nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
