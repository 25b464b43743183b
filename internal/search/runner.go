// Package search pages through web search results for LinkedIn profiles,
// spending one pooled API credential per page. The backend is a Provider:
// Serper, SerpApi or Google Custom Search.
package search

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/roster-enrich/internal/credential"
	"github.com/sells-group/roster-enrich/internal/resilience"
)

// Defaults for Options.
const (
	DefaultSite     = "ma.linkedin.com/in/"
	DefaultLocation = "Morocco"
	DefaultCountry  = "ma"
	DefaultPerPage  = 10
	DefaultMaxPages = 10
	DefaultDelay    = time.Second
)

// StopReason records why pagination ended for a query.
type StopReason string

const (
	StopMaxPages     StopReason = "max_pages"
	StopNoResults    StopReason = "no_results"
	StopLastPage     StopReason = "last_page"
	StopNoCredential StopReason = "no_credential"
	StopError        StopReason = "error"
)

// Item is one search hit as written to the results file.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Result summarizes one query.
type Result struct {
	Query string
	Items []Item
	Pages int
	Stop  StopReason
	Err   error
}

// Options configures a Runner.
type Options struct {
	Site     string // appended to every query as "site:<Site>"
	Location string // used when a call passes no location
	Country  string // gl parameter
	Delay    time.Duration
	Retry    resilience.RetryConfig
}

func (o Options) withDefaults(provider string) Options {
	if o.Site == "" {
		o.Site = DefaultSite
	}
	if o.Location == "" {
		o.Location = DefaultLocation
	}
	if o.Country == "" {
		o.Country = DefaultCountry
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.Retry.OnRetry == nil {
		o.Retry.OnRetry = resilience.RetryLogger(provider, "search")
	}
	return o
}

// Runner executes paginated searches.
type Runner struct {
	provider Provider
	pool     *credential.Pool
	opts     Options
	limiter  *rate.Limiter
}

// NewRunner returns a Runner that spends credentials from pool. Pages are
// spaced at least opts.Delay apart across all queries.
func NewRunner(provider Provider, pool *credential.Pool, opts Options) *Runner {
	opts = opts.withDefaults(provider.Name())
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Runner{
		provider: provider,
		pool:     pool,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// FetchAll requests pages of results for query until a page comes back
// empty or is the provider's last, maxPages pages were read, the provider's
// offset limit is reached, a request fails, or the pool runs out of
// credentials. Running out of credentials ends pagination normally; the
// returned error is non-nil only when ctx is done.
func (r *Runner) FetchAll(ctx context.Context, query, location string, perPage, maxPages int) (*Result, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	limits := r.provider.Limits()
	if limits.MaxPerPage > 0 && perPage > limits.MaxPerPage {
		perPage = limits.MaxPerPage
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if location == "" {
		location = r.opts.Location
	}

	log := zap.L().With(zap.String("query", query), zap.String("provider", r.provider.Name()))
	res := &Result{Query: query, Items: []Item{}}

	for page := 0; ; page++ {
		start := page * perPage
		if limits.MaxStart > 0 && start > limits.MaxStart {
			log.Info("search: provider result limit reached", zap.Int("pages", res.Pages))
			res.Stop = StopMaxPages
			return res, nil
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return res, eris.Wrap(err, "search: wait for rate limiter")
		}

		cred, err := r.pool.Acquire()
		if err != nil {
			log.Warn("search: no api credentials remaining", zap.Int("pages", res.Pages))
			res.Stop = StopNoCredential
			return res, nil
		}

		req := Request{
			Query:    query + " site:" + r.opts.Site,
			Location: location,
			Country:  r.opts.Country,
			Num:      perPage,
			Start:    start,
		}
		resp, err := resilience.DoVal(ctx, r.opts.Retry, func(ctx context.Context) (*Page, error) {
			return r.provider.Search(ctx, cred.Token, req)
		})
		if err != nil {
			if ctx.Err() != nil {
				return res, eris.Wrap(ctx.Err(), "search: cancelled")
			}
			log.Warn("search: request failed", zap.Int("page", page+1), zap.Error(err))
			res.Stop = StopError
			res.Err = err
			return res, nil
		}
		r.pool.Consume(cred.Token)

		if len(resp.Items) == 0 {
			log.Info("search: no more results", zap.Int("pages", res.Pages))
			res.Stop = StopNoResults
			return res, nil
		}

		res.Items = append(res.Items, resp.Items...)
		res.Pages++
		log.Info("search: page fetched",
			zap.Int("page", page+1),
			zap.Int("max_pages", maxPages),
			zap.Int("results", len(resp.Items)),
			zap.Int("total", len(res.Items)),
		)

		if res.Pages >= maxPages {
			res.Stop = StopMaxPages
			return res, nil
		}
		if !resp.More {
			res.Stop = StopLastPage
			return res, nil
		}
	}
}

// FetchQueries runs FetchAll for every query in order and concatenates the
// items. Once credentials are exhausted the remaining queries are skipped.
func (r *Runner) FetchQueries(ctx context.Context, queries []string, location string, perPage, maxPages int) ([]Item, []*Result, error) {
	items := []Item{}
	results := make([]*Result, 0, len(queries))
	for _, q := range queries {
		res, err := r.FetchAll(ctx, q, location, perPage, maxPages)
		if res != nil {
			items = append(items, res.Items...)
			results = append(results, res)
		}
		if err != nil {
			return items, results, err
		}
		if res.Stop == StopNoCredential {
			break
		}
	}
	return items, results, nil
}

// CSVHeader is the header row written by CSVRows callers.
var CSVHeader = []string{"Search Query", "Title", "Snippet", "Link"}

// CSVRows flattens results to one row per item, tagged with its query.
func CSVRows(results []*Result) [][]string {
	var rows [][]string
	for _, res := range results {
		for _, it := range res.Items {
			rows = append(rows, []string{res.Query, it.Title, it.Snippet, it.Link})
		}
	}
	return rows
}
