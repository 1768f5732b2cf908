// Package probe answers one question about a stream URL: does it
// serve playable media right now.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alorle/iptv-checker/metrics"
)

// mediaTypes are the Content-Type fragments accepted as playable.
var mediaTypes = []string{
	"video/",
	"audio/",
	"mpegurl",
	"application/x-mpegurl",
	"application/octet-stream",
}

// Result describes one deep probe of a stream URL.
type Result struct {
	URL      string
	OK       bool
	HTTPCode int
	MIME     string
	Elapsed  time.Duration
	Reason   string
}

// Decoder verifies that a stream actually decodes to a first frame.
// Implementations wrap an external media engine.
type Decoder interface {
	FirstFrame(ctx context.Context, url string) error
}

// Prober tests stream URLs over HTTP.
type Prober struct {
	client        *http.Client
	userAgent     string
	decoder       Decoder
	decodeTimeout time.Duration
	partialBytes  int64
}

// New returns a prober. decoder may be nil to skip frame decoding.
func New(client *http.Client, userAgent string, decoder Decoder, decodeTimeout time.Duration, partialBytes int64) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	if partialBytes < 1024 {
		partialBytes = 1024
	}
	return &Prober{
		client:        client,
		userAgent:     userAgent,
		decoder:       decoder,
		decodeTimeout: decodeTimeout,
		partialBytes:  partialBytes,
	}
}

// IsPlayable is the fast liveness check. A HEAD request decides when
// the server answers it with a media Content-Type; anything else falls
// through to a small ranged GET.
func (p *Prober) IsPlayable(ctx context.Context, url string) bool {
	start := time.Now()
	ok := p.isPlayable(ctx, url)
	metrics.RecordProbe(ok, time.Since(start))
	return ok
}

func (p *Prober) isPlayable(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", p.userAgent)

	if resp, err := p.client.Do(req); err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if successStatus(resp.StatusCode) && looksLikeMedia(resp.Header.Get("Content-Type"), url) {
			return true
		}
	}

	code, _, n, err := p.rangeRequest(ctx, url, 1024)
	if err != nil {
		return false
	}
	return (successStatus(code) || code == http.StatusPartialContent) && n > 0
}

// Check is the deep probe. It pulls a partial body, classifies the
// MIME type and, when a decoder is configured, demands a first frame.
func (p *Prober) Check(ctx context.Context, url string) Result {
	start := time.Now()
	res := p.check(ctx, url)
	res.URL = url
	res.Elapsed = time.Since(start)
	metrics.RecordProbe(res.OK, res.Elapsed)
	return res
}

func (p *Prober) check(ctx context.Context, url string) Result {
	code, mime, n, err := p.rangeRequest(ctx, url, p.partialBytes-1)
	if err != nil {
		return Result{Reason: fmt.Sprintf("request: %v", err)}
	}

	res := Result{HTTPCode: code, MIME: mime}
	if !successStatus(code) && code != http.StatusPartialContent {
		res.Reason = fmt.Sprintf("status %d", code)
		return res
	}
	if n == 0 {
		res.Reason = "empty body"
		return res
	}
	if !looksLikeMedia(mime, url) {
		res.Reason = fmt.Sprintf("content type %q", mime)
		return res
	}

	if p.decoder != nil {
		dctx := ctx
		if p.decodeTimeout > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(ctx, p.decodeTimeout)
			defer cancel()
		}
		if err := p.decoder.FirstFrame(dctx, url); err != nil {
			res.Reason = fmt.Sprintf("decode: %v", err)
			return res
		}
	}

	res.OK = true
	return res
}

func (p *Prober) rangeRequest(ctx context.Context, url string, lastByte int64) (code int, mime string, n int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", 0, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", lastByte))

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, "", 0, err
	}
	defer resp.Body.Close()

	n, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, lastByte+1))
	return resp.StatusCode, normalizeMIME(resp.Header.Get("Content-Type")), n, nil
}

func successStatus(code int) bool {
	return code >= 200 && code < 400
}

func normalizeMIME(ct string) string {
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// looksLikeMedia accepts media Content-Types and, for servers that
// mislabel HLS playlists, an .m3u8 URL suffix.
func looksLikeMedia(mime, url string) bool {
	for _, t := range mediaTypes {
		if strings.Contains(mime, t) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(url), ".m3u8")
}
