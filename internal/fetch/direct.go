package fetch

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/cratehq/enrich-cli/internal/resilience"
)

// defaultMaxBodyBytes caps how much of a page we read. Profile pages and
// contact pages are small; anything past this is assets or noise.
const defaultMaxBodyBytes = 512 * 1024

// DirectOptions configures the direct HTTP fetcher. HostRPS and HostBurst
// rate-limit hosts that have no dedicated adaptive limiter.
type DirectOptions struct {
	UserAgent        string
	Timeout          time.Duration
	MinContentLength int
	MaxBodyBytes     int64
	HostRPS          float64
	HostBurst        int
}

// Direct fetches pages via plain net/http. Free, no API calls. Blocked or
// thin pages fail so the waterfall can escalate.
type Direct struct {
	client   *http.Client
	opts     DirectOptions
	adaptive map[string]*AdaptiveLimiter
	fallback *rate.Limiter
}

// NewDirect creates a Direct fetcher with per-host adaptive rate limiting.
func NewDirect(opts DirectOptions) *Direct {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if opts.MinContentLength == 0 {
		opts.MinContentLength = 100
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.HostRPS == 0 {
		opts.HostRPS = 10
	}
	if opts.HostBurst == 0 {
		opts.HostBurst = 10
	}
	return &Direct{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		adaptive: DefaultAdaptiveLimiters(),
		fallback: rate.NewLimiter(rate.Limit(opts.HostRPS), opts.HostBurst),
	}
}

// Fetch GETs a URL and returns the decoded page. It makes exactly one
// attempt: the caller escalates on failure rather than retrying here.
func (d *Direct) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := d.wait(ctx, rawURL); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: get")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		d.onRateLimit(rawURL)
		return nil, &resilience.TransientError{
			Err:        eris.Errorf("fetch: http 429 from %s", rawURL),
			StatusCode: resp.StatusCode,
		}
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		zap.L().Debug("fetch: page blocked",
			zap.String("url", rawURL),
			zap.String("block_type", string(blockType)),
		)
		return nil, &BlockedError{Type: blockType, URL: rawURL}
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("fetch: status %d from %s", resp.StatusCode, rawURL)
	}

	content := decodeBody(body, resp.Header.Get("Content-Type"))
	if len(content) < d.opts.MinContentLength {
		return nil, eris.Errorf("fetch: thin page (%d bytes) from %s", len(content), rawURL)
	}

	d.onSuccess(rawURL)

	return &Page{
		URL:        rawURL,
		Title:      extractTitle(body),
		Content:    content,
		StatusCode: resp.StatusCode,
		Source:     SourceDirect,
	}, nil
}

func (d *Direct) wait(ctx context.Context, rawURL string) error {
	if lim := d.limiterFor(rawURL); lim != nil {
		return lim.Wait(ctx)
	}
	return d.fallback.Wait(ctx)
}

func (d *Direct) limiterFor(rawURL string) *AdaptiveLimiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return d.adaptive[u.Host]
}

func (d *Direct) onSuccess(rawURL string) {
	if lim := d.limiterFor(rawURL); lim != nil {
		lim.OnSuccess()
	}
}

func (d *Direct) onRateLimit(rawURL string) {
	if lim := d.limiterFor(rawURL); lim != nil {
		lim.OnRateLimit()
	}
}

var titleRe = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)

// extractTitle pulls the <title> from HTML.
func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if len(m) > 1 {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

// decodeBody converts the body to UTF-8 using the charset declared in the
// Content-Type header. Unknown or missing charsets pass through as-is.
func decodeBody(body []byte, contentType string) string {
	cs := charsetOf(contentType)
	if cs == "" || strings.EqualFold(cs, "utf-8") {
		return string(body)
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
