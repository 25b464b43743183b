// Package apify is a minimal client for running Apify actors and reading
// their datasets.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roster-enrich/internal/resilience"
)

// Default base URL for the Apify v2 API.
const defaultBaseURL = "https://api.apify.com/v2"

// Run statuses reported by the Apify API.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimingOut = "TIMING-OUT"
	StatusTimedOut  = "TIMED-OUT"
	StatusAborting  = "ABORTING"
	StatusAborted   = "ABORTED"
)

// Client defines the Apify API operations used for actor runs.
type Client interface {
	RunActor(ctx context.Context, actorID string, input any) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListItems(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error)
}

// Run describes one actor run.
type Run struct {
	ID               string     `json:"id"`
	ActID            string     `json:"actId"`
	Status           string     `json:"status"`
	StatusMessage    string     `json:"statusMessage,omitempty"`
	DefaultDatasetID string     `json:"defaultDatasetId"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
}

// Terminal reports whether the run has stopped.
func (r *Run) Terminal() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusAborted:
		return true
	}
	return false
}

// ItemPage is one page of dataset items.
type ItemPage struct {
	Items  []json.RawMessage
	Offset int
	Limit  int
	Total  int // -1 when the server did not report it
}

// envelope wraps single-object responses: {"data": {...}}.
type envelope[T any] struct {
	Data T `json:"data"`
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

// WithBaseURL overrides the default base URL. An empty url is ignored.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry sets the retry policy for status and dataset reads.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a new Apify client authenticated with token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("apify", "read")
	}
	return c
}

// ActorPath converts "user/name" actor ids to the "user~name" form used in
// API paths.
func ActorPath(actorID string) string {
	return strings.ReplaceAll(actorID, "/", "~")
}

// RunActor starts an actor run. The submission itself is never retried so a
// run is started at most once per call.
func (c *httpClient) RunActor(ctx context.Context, actorID string, input any) (*Run, error) {
	if actorID == "" {
		return nil, eris.New("apify: actor id is required")
	}
	var resp envelope[Run]
	path := "/acts/" + url.PathEscape(ActorPath(actorID)) + "/runs"
	if err := c.post(ctx, path, input, &resp); err != nil {
		return nil, eris.Wrapf(err, "apify: run actor %s", actorID)
	}
	return &resp.Data, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	run, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Run, error) {
		var resp envelope[Run]
		if _, err := c.get(ctx, "/actor-runs/"+url.PathEscape(runID), nil, &resp); err != nil {
			return nil, err
		}
		return &resp.Data, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "apify: get run %s", runID)
	}
	return run, nil
}

func (c *httpClient) ListItems(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("clean", "true")
	q.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	page, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*ItemPage, error) {
		var items []json.RawMessage
		header, err := c.get(ctx, "/datasets/"+url.PathEscape(datasetID)+"/items", q, &items)
		if err != nil {
			return nil, err
		}
		total := -1
		if v := header.Get("X-Apify-Pagination-Total"); v != "" {
			if n, perr := strconv.Atoi(v); perr == nil {
				total = n
			}
		}
		return &ItemPage{Items: items, Offset: offset, Limit: limit, Total: total}, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "apify: list items %s", datasetID)
	}
	return page, nil
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

	_, err = c.do(req, out)
	return err
}

func (c *httpClient) get(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) (http.Header, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		return nil, resilience.ForStatus(apiErr, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return nil, eris.Wrap(err, "decode response")
	}

	return resp.Header, nil
}
