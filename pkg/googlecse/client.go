// Package googlecse is a client for the Google Custom Search JSON API.
package googlecse

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

const defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// The API serves at most 100 results per query: pages of up to MaxNum
// starting no later than MaxStart (1-based).
const (
	MaxNum     = 10
	MaxStart   = 91
	MaxResults = 100
)

// ErrOutOfRange is returned before any request when num or start fall
// outside what the API accepts.
var ErrOutOfRange = eris.New("googlecse: parameter out of range")

// Client performs searches against one programmable search engine. The API
// key is passed per call.
type Client interface {
	Search(ctx context.Context, apiKey string, q Query) (*Response, error)
}

// Query holds the request parameters.
type Query struct {
	Q     string
	Num   int    // 1..MaxNum
	Start int    // 1-based, 1..MaxStart
	CR    string // country restrict, e.g. "countryMA"
	GL    string
}

// Response is the subset of the search response used here.
type Response struct {
	Items   []Item  `json:"items"`
	Queries Queries `json:"queries"`
}

// HasNext reports whether the API advertises another page.
func (r *Response) HasNext() bool {
	return len(r.Queries.NextPage) > 0
}

// Queries carries the request descriptors for neighbouring pages.
type Queries struct {
	NextPage []PageRef `json:"nextPage,omitempty"`
}

// PageRef describes one page request.
type PageRef struct {
	StartIndex int `json:"startIndex"`
	Count      int `json:"count"`
}

// Item is one search hit.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("googlecse: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default endpoint. An empty url is ignored.
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
	baseURL  string
	engineID string
	http     *http.Client
}

// NewClient creates a client for the search engine engineID (the cx
// parameter).
func NewClient(engineID string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  defaultBaseURL,
		engineID: engineID,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, apiKey string, q Query) (*Response, error) {
	if q.Num < 1 || q.Num > MaxNum {
		return nil, eris.Wrapf(ErrOutOfRange, "googlecse: num must be between 1 and %d, got %d", MaxNum, q.Num)
	}
	if q.Start < 1 || q.Start > MaxStart {
		return nil, eris.Wrapf(ErrOutOfRange, "googlecse: start must be between 1 and %d, got %d", MaxStart, q.Start)
	}

	params := url.Values{}
	params.Set("key", apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", q.Q)
	params.Set("num", strconv.Itoa(q.Num))
	params.Set("start", strconv.Itoa(q.Start))
	params.Set("format", "json")
	if q.CR != "" {
		params.Set("cr", q.CR)
	}
	if q.GL != "" {
		params.Set("gl", q.GL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "googlecse: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "googlecse: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "googlecse: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		return nil, resilience.ForStatus(apiErr, resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "googlecse: decode response")
	}
	return &out, nil
}
