// Package serpapi is a client for the SerpApi search endpoint.
package serpapi

import (
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

const (
	defaultBaseURL = "https://serpapi.com"
	defaultEngine  = "google"
)

// MaxNum is the largest page size the search endpoint accepts.
const MaxNum = 10

// Client performs searches. The API key is passed per call so a caller can
// rotate through several keys.
type Client interface {
	Search(ctx context.Context, apiKey string, q Query) (*Response, error)
}

// Query holds the parameters for GET /search.json.
type Query struct {
	Q        string
	Engine   string // defaults to "google"
	Location string
	GL       string
	Num      int
	Start    int
}

// Values encodes q as query parameters, without the API key.
func (q Query) Values() url.Values {
	v := url.Values{}
	engine := q.Engine
	if engine == "" {
		engine = defaultEngine
	}
	v.Set("engine", engine)
	v.Set("q", q.Q)
	if q.Location != "" {
		v.Set("location", q.Location)
	}
	if q.GL != "" {
		v.Set("gl", q.GL)
	}
	if q.Num > 0 {
		v.Set("num", strconv.Itoa(q.Num))
	}
	v.Set("start", strconv.Itoa(q.Start))
	return v
}

// Response is the subset of the search response used here.
type Response struct {
	Organic    []OrganicResult `json:"organic_results"`
	Pagination Pagination      `json:"serpapi_pagination"`
	Error      string          `json:"error,omitempty"`
}

// HasNext reports whether SerpApi advertises another page.
func (r *Response) HasNext() bool {
	return r.Pagination.Next != ""
}

// Pagination links to neighbouring result pages.
type Pagination struct {
	Current int    `json:"current"`
	Next    string `json:"next,omitempty"`
}

// OrganicResult is one organic search hit.
type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// APIError is returned for a non-2xx status or an error body.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serpapi: HTTP %d: %s", e.StatusCode, e.Body)
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

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new SerpApi client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, apiKey string, q Query) (*Response, error) {
	if q.Num < 0 || q.Num > MaxNum {
		return nil, eris.Errorf("serpapi: num must be between 1 and %d, got %d", MaxNum, q.Num)
	}

	params := q.Values()
	params.Set("api_key", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		return nil, resilience.ForStatus(apiErr, resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "serpapi: decode response")
	}
	// "Google hasn't returned any results" comes back as 200 with an error
	// field; it is an empty page, not a failure.
	if out.Error != "" && !strings.Contains(strings.ToLower(out.Error), "hasn't returned any results") {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: out.Error}
	}
	return &out, nil
}
