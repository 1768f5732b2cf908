// Package pipeline runs the whole check: extract source URLs from
// free text, fetch each playlist, test streams, filter, merge and
// save the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/alorle/iptv-checker/analyze"
	"github.com/alorle/iptv-checker/circuitbreaker"
	"github.com/alorle/iptv-checker/country"
	"github.com/alorle/iptv-checker/extract"
	"github.com/alorle/iptv-checker/m3u"
	"github.com/alorle/iptv-checker/merge"
	"github.com/alorle/iptv-checker/output"
)

// ErrNoURLs means the input text contained no usable playlist URLs.
var ErrNoURLs = errors.New("no playlist urls found in input")

// Fetcher downloads and parses one playlist source.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (m3u.Playlist, error)
}

// Tester runs the bulk stream test over a playlist.
type Tester interface {
	TestPlaylist(ctx context.Context, p m3u.Playlist, opts analyze.Options, progress func(analyze.Progress)) (analyze.TestResult, error)
}

// Saver writes the merged playlist to disk.
type Saver interface {
	Save(sourceURL string, format m3u.OutputFormat, content, endDate string) (output.Saved, error)
}

// Progress is one step report emitted while a run advances.
type Progress struct {
	RunID   uuid.UUID
	Step    string
	Percent int
	Detail  string
	Done    bool
}

// SourceStatus is the per-source outcome of a run.
type SourceStatus struct {
	URL      string
	Working  bool
	Channels int
	Tested   int
	Playable int
	Err      string
}

// Report is the final outcome of a run.
type Report struct {
	RunID    uuid.UUID
	Working  int
	Failing  int
	Statuses []SourceStatus
	Saved    output.Saved
	Renames  []string
	EndDate  string
	Channels int
}

// Options controls one pipeline run.
type Options struct {
	// Countries keeps only matching groups; empty keeps everything
	// except adult groups when filtering is active.
	Countries []string
	// Test configures the bulk stream test.
	Test analyze.Options
	// Format forces the output format; FormatM3U means auto-detect.
	ForceFormat bool
	Format      m3u.OutputFormat
	// BreakerFailureThreshold and BreakerTimeout configure per-host
	// circuit breakers. Zero values use the breaker's defaults.
	BreakerFailureThreshold int
	BreakerTimeout          time.Duration
}

// Runner executes pipeline runs.
type Runner struct {
	fetcher  Fetcher
	tester   Tester
	saver    Saver
	logger   *slog.Logger
	breakers map[string]circuitbreaker.CircuitBreaker
}

// NewRunner wires a runner from its parts.
func NewRunner(fetcher Fetcher, tester Tester, saver Saver, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		fetcher:  fetcher,
		tester:   tester,
		saver:    saver,
		logger:   logger,
		breakers: make(map[string]circuitbreaker.CircuitBreaker),
	}
}

// Run extracts playlist URLs from text and pushes every source
// through fetch, test, filter and merge, saving the merged playlist.
// progress may be nil.
func (r *Runner) Run(ctx context.Context, text string, opts Options, progress func(Progress)) (Report, error) {
	runID := uuid.New()
	report := Report{RunID: runID}
	emit := func(step string, percent int, detail string, done bool) {
		if progress != nil {
			progress(Progress{RunID: runID, Step: step, Percent: percent, Detail: detail, Done: done})
		}
	}

	urls := extract.URLs(text)
	if len(urls) == 0 {
		return report, ErrNoURLs
	}
	emit("extract", 5, fmt.Sprintf("%d source urls", len(urls)), false)

	resolver := merge.NewResolver()
	var merged m3u.Playlist
	format := m3u.FormatM3U

	for i, sourceURL := range urls {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		percent := 10 + 80*i/len(urls)
		emit("source", percent, sourceURL, false)

		status := SourceStatus{URL: sourceURL}
		playlist, err := r.fetchWithBreaker(ctx, sourceURL, opts)
		if err != nil {
			status.Err = err.Error()
			report.Statuses = append(report.Statuses, status)
			report.Failing++
			r.logger.Warn("source failed", "url", sourceURL, "error", err)
			continue
		}

		if len(opts.Countries) > 0 {
			playlist = filterByCountries(playlist, opts.Countries)
		}
		status.Channels = len(playlist.Channels)
		if status.Channels == 0 {
			status.Err = "no channels after filtering"
			report.Statuses = append(report.Statuses, status)
			report.Failing++
			continue
		}

		res, err := r.tester.TestPlaylist(ctx, playlist, opts.Test, nil)
		if err != nil {
			return report, err
		}
		status.Tested = res.Tested
		status.Playable = res.Playable
		status.Working = res.Passed

		report.Statuses = append(report.Statuses, status)
		if !res.Passed {
			report.Failing++
			r.logger.Info("source has no playable streams", "url", sourceURL, "tested", res.Tested)
			continue
		}
		report.Working++

		resolver.Merge(&merged, playlist)
		format = m3u.MaxFormat(format, m3u.DetectFormat(playlist))
	}

	if report.Working == 0 {
		emit("done", 100, "no working sources", true)
		return report, nil
	}

	if opts.ForceFormat {
		format = opts.Format
	}

	emit("save", 95, "", false)
	content := m3u.Format(merged, nil, format)
	saved, err := r.saver.Save("merged", format, content, merged.EndDate)
	if err != nil {
		return report, fmt.Errorf("failed to save merged playlist: %w", err)
	}

	report.Saved = saved
	report.Renames = resolver.Renames()
	report.EndDate = merged.EndDate
	report.Channels = len(merged.Channels)

	emit("done", 100, saved.Name, true)
	return report, nil
}

// fetchWithBreaker routes the fetch through the source host's circuit
// breaker so a repeatedly failing panel stops being hammered.
func (r *Runner) fetchWithBreaker(ctx context.Context, sourceURL string, opts Options) (m3u.Playlist, error) {
	host := hostOf(sourceURL)
	br, ok := r.breakers[host]
	if !ok {
		br = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: opts.BreakerFailureThreshold,
			Timeout:          opts.BreakerTimeout,
			Logger:           r.logger,
			Host:             host,
		})
		r.breakers[host] = br
	}

	var playlist m3u.Playlist
	err := br.Execute(func() error {
		var ferr error
		playlist, ferr = r.fetcher.Fetch(ctx, sourceURL)
		return ferr
	})
	return playlist, err
}

// filterByCountries keeps channels whose group matches one of the
// wanted countries. Adult groups are always dropped.
func filterByCountries(p m3u.Playlist, countries []string) m3u.Playlist {
	out := m3u.Playlist{EndDate: p.EndDate}
	for _, ch := range p.Channels {
		group := ch.GroupOrDefault()
		if country.IsAdult(group) {
			continue
		}
		if country.MatchesAny(group, countries) {
			out.Channels = append(out.Channels, ch)
		}
	}
	return out
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}
