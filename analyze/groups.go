package analyze

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/alorle/iptv-checker/country"
	"github.com/alorle/iptv-checker/m3u"
	"github.com/alorle/iptv-checker/metrics"
	"github.com/alorle/iptv-checker/probe"
)

// GroupResult is the outcome of testing one group's stream sample.
type GroupResult struct {
	Group    string
	Tested   int
	Playable int
	Quality  Quality
	Results  []probe.Result
}

// GroupReport is the outcome of the concurrent grouped test.
type GroupReport struct {
	Groups        []GroupResult
	Overall       Quality
	GroupsSkipped int
}

// TestGroups probes a sample of streams inside each eligible group
// concurrently. Adult groups and groups with a single distinct stream
// are skipped. One shared semaphore bounds in-flight probes across
// all groups.
func (o *Orchestrator) TestGroups(ctx context.Context, p m3u.Playlist, opts Options) (GroupReport, error) {
	opts = opts.normalized()

	byGroup := make(map[string][]string)
	order := make([]string, 0)
	seen := make(map[string]map[string]struct{})
	for _, ch := range p.Channels {
		if ch.URL == "" {
			continue
		}
		group := ch.GroupOrDefault()
		if seen[group] == nil {
			seen[group] = make(map[string]struct{})
			order = append(order, group)
		}
		if _, dup := seen[group][ch.URL]; dup {
			continue
		}
		seen[group][ch.URL] = struct{}{}
		byGroup[group] = append(byGroup[group], ch.URL)
	}

	var eligible []string
	skipped := 0
	for _, group := range order {
		if country.IsAdult(group) || len(byGroup[group]) < 2 {
			skipped++
			continue
		}
		eligible = append(eligible, group)
	}

	if len(eligible) == 0 {
		return GroupReport{Overall: QualityInvalid, GroupsSkipped: skipped}, nil
	}

	o.rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if len(eligible) > opts.MaxGroupsToTest {
		skipped += len(eligible) - opts.MaxGroupsToTest
		eligible = eligible[:opts.MaxGroupsToTest]
	}

	// Samples are drawn here so the goroutines below never touch the
	// orchestrator's rand.
	samples := make([][]string, len(eligible))
	for gi, group := range eligible {
		urls := byGroup[group]
		o.rand.Shuffle(len(urls), func(i, j int) {
			urls[i], urls[j] = urls[j], urls[i]
		})
		if len(urls) > opts.StreamsPerGroup {
			urls = urls[:opts.StreamsPerGroup]
		}
		samples[gi] = urls
	}

	sem := semaphore.NewWeighted(int64(opts.MaxConcurrent))
	results := make([]GroupResult, len(eligible))

	g, gctx := errgroup.WithContext(ctx)
	for gi, group := range eligible {
		gi, group := gi, group
		g.Go(func() error {
			urls := samples[gi]

			gr := GroupResult{Group: group, Results: make([]probe.Result, len(urls))}
			var wg sync.WaitGroup
			for ui, url := range urls {
				ui, url := ui, url
				if err := sem.Acquire(gctx, 1); err != nil {
					gr.Results[ui] = probe.Result{URL: url, Reason: "cancelled"}
					continue
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer sem.Release(1)

					metrics.ProbesInFlight.Inc()
					defer metrics.ProbesInFlight.Dec()

					pctx, cancel := context.WithTimeout(gctx, opts.Timeout)
					defer cancel()
					gr.Results[ui] = o.tester.Check(pctx, url)
				}()
			}
			wg.Wait()

			for _, r := range gr.Results {
				gr.Tested++
				if r.OK {
					gr.Playable++
				}
			}
			gr.Quality = qualityFor(gr.Playable)
			results[gi] = gr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GroupReport{}, err
	}

	report := GroupReport{Groups: results, Overall: QualityDead, GroupsSkipped: skipped}
	for _, gr := range results {
		if gr.Quality > report.Overall {
			report.Overall = gr.Quality
		}
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].Group < report.Groups[j].Group
	})
	return report, nil
}

// GroupStat summarizes one group without probing anything.
type GroupStat struct {
	Group    string
	Channels int
	Distinct int
	Adult    bool
}

// GroupAnalysis is a static census of a playlist's groups.
type GroupAnalysis struct {
	Stats       []GroupStat
	TotalGroups int
	AdultGroups int
}

// AnalyzeGroups counts channels and distinct streams per group,
// sorted by group name.
func AnalyzeGroups(p m3u.Playlist) GroupAnalysis {
	counts := make(map[string]int)
	distinct := make(map[string]map[string]struct{})
	for _, ch := range p.Channels {
		group := ch.GroupOrDefault()
		counts[group]++
		if distinct[group] == nil {
			distinct[group] = make(map[string]struct{})
		}
		if ch.URL != "" {
			distinct[group][ch.URL] = struct{}{}
		}
	}

	analysis := GroupAnalysis{TotalGroups: len(counts)}
	for group, n := range counts {
		stat := GroupStat{
			Group:    group,
			Channels: n,
			Distinct: len(distinct[group]),
			Adult:    country.IsAdult(group),
		}
		if stat.Adult {
			analysis.AdultGroups++
		}
		analysis.Stats = append(analysis.Stats, stat)
	}
	sort.Slice(analysis.Stats, func(i, j int) bool {
		return analysis.Stats[i].Group < analysis.Stats[j].Group
	})
	return analysis
}

// ShortReport renders the report as a compact quality summary.
func (r GroupReport) ShortReport() string {
	active, weak, dead := 0, 0, 0
	for _, gr := range r.Groups {
		switch gr.Quality {
		case QualityActive:
			active++
		case QualityWeak:
			weak++
		default:
			dead++
		}
	}
	return fmt.Sprintf("overall=%s active=%d weak=%d dead=%d skipped=%d",
		r.Overall, active, weak, dead, r.GroupsSkipped)
}
