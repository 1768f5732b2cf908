package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alorle/iptv-checker/analyze"
	"github.com/alorle/iptv-checker/m3u"
	"github.com/alorle/iptv-checker/output"
)

type fakeFetcher struct {
	playlists map[string]m3u.Playlist
	errs      map[string]error
	calls     int
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (m3u.Playlist, error) {
	f.calls++
	if err := f.errs[rawURL]; err != nil {
		return m3u.Playlist{}, err
	}
	return f.playlists[rawURL], nil
}

type fakeTester struct {
	passFor func(p m3u.Playlist) bool
}

func (f *fakeTester) TestPlaylist(ctx context.Context, p m3u.Playlist, opts analyze.Options, progress func(analyze.Progress)) (analyze.TestResult, error) {
	passed := f.passFor == nil || f.passFor(p)
	res := analyze.TestResult{Tested: 1, Passed: passed}
	if passed {
		res.Playable = 1
	}
	return res, nil
}

type fakeSaver struct {
	sourceURL string
	format    m3u.OutputFormat
	content   string
	endDate   string
	err       error
}

func (f *fakeSaver) Save(sourceURL string, format m3u.OutputFormat, content, endDate string) (output.Saved, error) {
	if f.err != nil {
		return output.Saved{}, f.err
	}
	f.sourceURL = sourceURL
	f.format = format
	f.content = content
	f.endDate = endDate
	return output.Saved{Name: "merged.m3u", Path: "/out/merged.m3u"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pl(endDate string, channels ...m3u.Channel) m3u.Playlist {
	return m3u.Playlist{Channels: channels, EndDate: endDate}
}

func ch(group, url string) m3u.Channel {
	return m3u.Channel{Name: url, Group: group, URL: url}
}

func TestRunMergesWorkingSources(t *testing.T) {
	fetcher := &fakeFetcher{playlists: map[string]m3u.Playlist{
		"http://a.com/list.m3u8": pl("31122026", ch("Sports", "http://a.com/1.ts")),
		"http://b.com/list.m3u8": pl("01011999", ch("Sports", "http://b.com/1.ts")),
	}}
	saver := &fakeSaver{}
	r := NewRunner(fetcher, &fakeTester{}, saver, testLogger())

	report, err := r.Run(context.Background(),
		"http://a.com/list.m3u8 http://b.com/list.m3u8", Options{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Working != 2 || report.Failing != 0 {
		t.Errorf("working/failing = %d/%d, want 2/0", report.Working, report.Failing)
	}
	if report.Channels != 2 {
		t.Errorf("Channels = %d, want 2", report.Channels)
	}
	if report.EndDate != "31122026" {
		t.Errorf("EndDate = %q, want the first source's date", report.EndDate)
	}
	if len(report.Renames) != 1 {
		t.Errorf("Renames = %v, want the second Sports renamed", report.Renames)
	}
	if !strings.Contains(saver.content, "Sports Yedek 1") {
		t.Errorf("saved content missing backup group:\n%s", saver.content)
	}
	if saver.sourceURL != "merged" {
		t.Errorf("saver source = %q, want merged", saver.sourceURL)
	}
}

func TestRunNoURLs(t *testing.T) {
	r := NewRunner(&fakeFetcher{}, &fakeTester{}, &fakeSaver{}, testLogger())
	if _, err := r.Run(context.Background(), "no links here", Options{}, nil); !errors.Is(err, ErrNoURLs) {
		t.Errorf("Run = %v, want ErrNoURLs", err)
	}
}

func TestRunFailedSourceReported(t *testing.T) {
	fetcher := &fakeFetcher{
		playlists: map[string]m3u.Playlist{
			"http://good.com/list.m3u8": pl("", ch("News", "http://good.com/1.ts")),
		},
		errs: map[string]error{
			"http://bad.com/list.m3u8": errors.New("connection refused"),
		},
	}
	r := NewRunner(fetcher, &fakeTester{}, &fakeSaver{}, testLogger())

	report, err := r.Run(context.Background(),
		"http://bad.com/list.m3u8 http://good.com/list.m3u8", Options{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Working != 1 || report.Failing != 1 {
		t.Errorf("working/failing = %d/%d, want 1/1", report.Working, report.Failing)
	}
	var badStatus *SourceStatus
	for i := range report.Statuses {
		if report.Statuses[i].URL == "http://bad.com/list.m3u8" {
			badStatus = &report.Statuses[i]
		}
	}
	if badStatus == nil || badStatus.Err == "" {
		t.Errorf("failed source status = %+v, want its error recorded", badStatus)
	}
}

func TestRunNoWorkingSources(t *testing.T) {
	fetcher := &fakeFetcher{playlists: map[string]m3u.Playlist{
		"http://a.com/list.m3u8": pl("", ch("Sports", "http://a.com/1.ts")),
	}}
	saver := &fakeSaver{}
	tester := &fakeTester{passFor: func(m3u.Playlist) bool { return false }}
	r := NewRunner(fetcher, tester, saver, testLogger())

	report, err := r.Run(context.Background(), "http://a.com/list.m3u8", Options{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Working != 0 || report.Failing != 1 {
		t.Errorf("working/failing = %d/%d, want 0/1", report.Working, report.Failing)
	}
	if saver.content != "" {
		t.Error("nothing should be saved without working sources")
	}
}

func TestRunCountryFilter(t *testing.T) {
	fetcher := &fakeFetcher{playlists: map[string]m3u.Playlist{
		"http://a.com/list.m3u8": pl("",
			ch("TR Spor", "http://a.com/1.ts"),
			ch("DE Kino", "http://a.com/2.ts"),
			ch("Adult TR", "http://a.com/3.ts"),
		),
	}}
	saver := &fakeSaver{}
	r := NewRunner(fetcher, &fakeTester{}, saver, testLogger())

	report, err := r.Run(context.Background(), "http://a.com/list.m3u8",
		Options{Countries: []string{"TR"}}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Channels != 1 {
		t.Errorf("Channels = %d, want only the TR group", report.Channels)
	}
	if strings.Contains(saver.content, "DE Kino") || strings.Contains(saver.content, "Adult") {
		t.Errorf("filtered groups leaked into output:\n%s", saver.content)
	}
}

func TestRunBreakerStopsRepeatedFailures(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"http://bad.com/a.m3u8": errors.New("refused"),
		"http://bad.com/b.m3u8": errors.New("refused"),
		"http://bad.com/c.m3u8": errors.New("refused"),
	}}
	r := NewRunner(fetcher, &fakeTester{}, &fakeSaver{}, testLogger())

	opts := Options{BreakerFailureThreshold: 2}
	report, err := r.Run(context.Background(),
		"http://bad.com/a.m3u8 http://bad.com/b.m3u8 http://bad.com/c.m3u8", opts, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Failing != 3 {
		t.Errorf("Failing = %d, want 3", report.Failing)
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want the breaker to stop the third", fetcher.calls)
	}
}

func TestRunProgressEvents(t *testing.T) {
	fetcher := &fakeFetcher{playlists: map[string]m3u.Playlist{
		"http://a.com/list.m3u8": pl("", ch("Sports", "http://a.com/1.ts")),
	}}
	r := NewRunner(fetcher, &fakeTester{}, &fakeSaver{}, testLogger())

	var events []Progress
	if _, err := r.Run(context.Background(), "http://a.com/list.m3u8", Options{},
		func(p Progress) { events = append(events, p) }); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(events) < 3 {
		t.Fatalf("events = %d, want extract, source and done at least", len(events))
	}
	last := events[len(events)-1]
	if !last.Done || last.Percent != 100 {
		t.Errorf("last event = %+v, want done at 100", last)
	}
	for _, e := range events[:len(events)-1] {
		if e.Done {
			t.Errorf("intermediate event flagged done: %+v", e)
		}
	}
	if events[0].RunID != last.RunID {
		t.Error("run id changed between events")
	}
}

func TestRunForcedFormat(t *testing.T) {
	fetcher := &fakeFetcher{playlists: map[string]m3u.Playlist{
		"http://a.com/list.m3u8": pl("", m3u.Channel{
			Name: "One", Group: "Sports", URL: "http://a.com/1.ts",
			Logo: "http://a.com/logo.png", TvgID: "one",
		}),
	}}
	saver := &fakeSaver{}
	r := NewRunner(fetcher, &fakeTester{}, saver, testLogger())

	opts := Options{ForceFormat: true, Format: m3u.FormatM3U}
	if _, err := r.Run(context.Background(), "http://a.com/list.m3u8", opts, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if saver.format != m3u.FormatM3U {
		t.Errorf("format = %v, want forced m3u", saver.format)
	}
	if strings.Contains(saver.content, "tvg-id") {
		t.Errorf("forced m3u output still carries tvg attributes:\n%s", saver.content)
	}
}
