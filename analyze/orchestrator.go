package analyze

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/alorle/iptv-checker/country"
	"github.com/alorle/iptv-checker/m3u"
	"github.com/alorle/iptv-checker/probe"
)

// StreamTester is what the orchestrator needs from a prober.
type StreamTester interface {
	IsPlayable(ctx context.Context, url string) bool
	Check(ctx context.Context, url string) probe.Result
}

// Progress reports the sequential test's position before each probe.
type Progress struct {
	Current int
	Total   int
	URL     string
}

// TestResult is the outcome of the sequential early-exit test.
type TestResult struct {
	Tested   int
	Playable int
	Passed   bool
	Results  []probe.Result
}

// Orchestrator runs bulk stream tests against a playlist.
type Orchestrator struct {
	tester StreamTester
	logger *slog.Logger
	rand   *rand.Rand
}

// NewOrchestrator returns an orchestrator. seed fixes the shuffle
// order for tests; pass 0 for time-based seeding.
func NewOrchestrator(tester StreamTester, logger *slog.Logger, seed int64) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Orchestrator{
		tester: tester,
		logger: logger,
		rand:   rand.New(rand.NewSource(seed)),
	}
}

// TestPlaylist samples a playlist and probes streams one by one,
// stopping as soon as enough of them are playable. progress may be
// nil; when set it is called before each probe.
func (o *Orchestrator) TestPlaylist(ctx context.Context, p m3u.Playlist, opts Options, progress func(Progress)) (TestResult, error) {
	opts = opts.normalized()

	urls := o.sampleURLs(p, opts)
	res := TestResult{}

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if progress != nil {
			progress(Progress{Current: i + 1, Total: len(urls), URL: url})
		}

		pctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		start := time.Now()
		ok := o.tester.IsPlayable(pctx, url)
		cancel()
		r := probe.Result{URL: url, OK: ok, Elapsed: time.Since(start)}

		res.Tested++
		res.Results = append(res.Results, r)
		if r.OK {
			res.Playable++
			if res.Playable >= opts.MinPlayableToPass {
				res.Passed = true
				o.logger.Debug("sequential test passed early", "tested", res.Tested, "playable", res.Playable)
				return res, nil
			}
		}

		if opts.Delay > 0 && i < len(urls)-1 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	res.Passed = res.Playable >= opts.MinPlayableToPass
	return res, nil
}

// sampleURLs picks the distinct stream URLs the sequential test will
// probe, honoring the adult filter, the shuffle flag and the sample
// cap.
func (o *Orchestrator) sampleURLs(p m3u.Playlist, opts Options) []string {
	seen := make(map[string]struct{}, len(p.Channels))
	var urls []string
	for _, ch := range p.Channels {
		if ch.URL == "" {
			continue
		}
		if opts.SkipAdultGroups && country.IsAdult(ch.GroupOrDefault()) {
			continue
		}
		if _, dup := seen[ch.URL]; dup {
			continue
		}
		seen[ch.URL] = struct{}{}
		urls = append(urls, ch.URL)
	}

	if opts.Shuffle {
		o.rand.Shuffle(len(urls), func(i, j int) {
			urls[i], urls[j] = urls[j], urls[i]
		})
	}
	if len(urls) > opts.SampleSize {
		urls = urls[:opts.SampleSize]
	}
	return urls
}
