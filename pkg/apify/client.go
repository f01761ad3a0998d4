package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the Apify v2 API.
const defaultBaseURL = "https://api.apify.com/v2"

// Default actor used for page scraping when none is configured.
const defaultActor = "apify~website-content-crawler"

// Run statuses reported by the Apify platform.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimedOut  = "TIMED-OUT"
	StatusAborted   = "ABORTED"
)

// Client defines the Apify actor-run operations.
type Client interface {
	StartRun(ctx context.Context, req RunRequest) (*RunResponse, error)
	GetRun(ctx context.Context, id string) (*RunResponse, error)
	DatasetItems(ctx context.Context, runID string) ([]Item, error)
	Scrape(ctx context.Context, pageURL string) ([]Item, error)
}

// RunRequest is the actor input for POST /acts/{actor}/runs.
type RunRequest struct {
	StartURLs     []StartURL `json:"startUrls"`
	MaxCrawlDepth int        `json:"maxCrawlDepth"`
	MaxCrawlPages int        `json:"maxCrawlPages,omitempty"`
}

// StartURL is a single entry in the actor's startUrls input.
type StartURL struct {
	URL string `json:"url"`
}

// RunResponse is the envelope returned by run endpoints.
type RunResponse struct {
	Data RunData `json:"data"`
}

// RunData describes a single actor run.
type RunData struct {
	ID               string `json:"id"`
	ActorID          string `json:"actId"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Finished reports whether the run reached a terminal status.
func (d RunData) Finished() bool {
	switch d.Status {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusAborted:
		return true
	}
	return false
}

// Item is a single dataset record produced by a scraping actor. Absent URLs
// are normal: actors silently drop pages they could not render.
type Item struct {
	URL      string `json:"url"`
	Text     string `json:"text"`
	Markdown string `json:"markdown"`
	Title    string `json:"title"`
}

// Content returns the best available text for the page, preferring markdown.
func (i Item) Content() string {
	if i.Markdown != "" {
		return i.Markdown
	}
	return i.Text
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithActor overrides the default scraping actor.
func WithActor(actor string) Option {
	return func(c *httpClient) {
		c.actor = actor
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	token   string
	baseURL string
	actor   string
	http    *http.Client
}

// NewClient creates a new Apify client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		actor:   defaultActor,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartRun(ctx context.Context, req RunRequest) (*RunResponse, error) {
	var resp RunResponse
	path := fmt.Sprintf("/acts/%s/runs", url.PathEscape(c.actor))
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, eris.Wrap(err, "apify: start run")
	}
	return &resp, nil
}

func (c *httpClient) GetRun(ctx context.Context, id string) (*RunResponse, error) {
	var resp RunResponse
	if err := c.get(ctx, fmt.Sprintf("/actor-runs/%s", id), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: get run %s", id))
	}
	return &resp, nil
}

func (c *httpClient) DatasetItems(ctx context.Context, runID string) ([]Item, error) {
	var items []Item
	if err := c.get(ctx, fmt.Sprintf("/actor-runs/%s/dataset/items", runID), &items); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: dataset items for run %s", runID))
	}
	return items, nil
}

func (c *httpClient) Scrape(ctx context.Context, pageURL string) ([]Item, error) {
	var items []Item
	path := fmt.Sprintf("/acts/%s/run-sync-get-dataset-items", url.PathEscape(c.actor))
	req := RunRequest{
		StartURLs:     []StartURL{{URL: pageURL}},
		MaxCrawlDepth: 0,
		MaxCrawlPages: 1,
	}
	if err := c.post(ctx, path, req, &items); err != nil {
		return nil, eris.Wrap(err, "apify: scrape")
	}
	return items, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
