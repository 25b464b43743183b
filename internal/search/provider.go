package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roster-enrich/pkg/googlecse"
	"github.com/sells-group/roster-enrich/pkg/serpapi"
	"github.com/sells-group/roster-enrich/pkg/serper"
)

// Provider names, as used by the search.provider setting.
const (
	ProviderSerper    = "serper"
	ProviderSerpAPI   = "serpapi"
	ProviderGoogleCSE = "google_cse"
)

// Request is one page of a search. Start is the 0-based offset of the first
// result.
type Request struct {
	Query    string
	Location string
	Country  string
	Num      int
	Start    int
}

// Page is one page of hits. More is false when the backend says this was the
// last page.
type Page struct {
	Items []Item
	More  bool
}

// Limits bounds the pages a provider can serve. Zero means unbounded.
type Limits struct {
	MaxPerPage int
	MaxStart   int // largest 0-based offset accepted
}

// Provider fetches one page of results, paid for with token.
type Provider interface {
	Name() string
	Limits() Limits
	Search(ctx context.Context, token string, req Request) (*Page, error)
}

type serperProvider struct {
	client serper.Client
}

// NewSerperProvider adapts a Serper client.
func NewSerperProvider(c serper.Client) Provider {
	return serperProvider{client: c}
}

func (serperProvider) Name() string   { return ProviderSerper }
func (serperProvider) Limits() Limits { return Limits{MaxPerPage: 100} }

func (p serperProvider) Search(ctx context.Context, token string, req Request) (*Page, error) {
	resp, err := p.client.Search(ctx, token, serper.Query{
		Q:        req.Query,
		Num:      req.Num,
		Start:    req.Start,
		Location: req.Location,
		GL:       req.Country,
	})
	if err != nil {
		return nil, err
	}
	page := &Page{Items: make([]Item, 0, len(resp.Organic)), More: true}
	for _, o := range resp.Organic {
		page.Items = append(page.Items, Item{Title: o.Title, Link: o.Link, Snippet: o.Snippet})
	}
	return page, nil
}

type serpAPIProvider struct {
	client serpapi.Client
	engine string
}

// NewSerpAPIProvider adapts a SerpApi client using the given engine
// ("google" when empty).
func NewSerpAPIProvider(c serpapi.Client, engine string) Provider {
	return serpAPIProvider{client: c, engine: engine}
}

func (serpAPIProvider) Name() string   { return ProviderSerpAPI }
func (serpAPIProvider) Limits() Limits { return Limits{MaxPerPage: serpapi.MaxNum} }

func (p serpAPIProvider) Search(ctx context.Context, token string, req Request) (*Page, error) {
	resp, err := p.client.Search(ctx, token, serpapi.Query{
		Q:        req.Query,
		Engine:   p.engine,
		Location: req.Location,
		GL:       req.Country,
		Num:      req.Num,
		Start:    req.Start,
	})
	if err != nil {
		return nil, err
	}
	page := &Page{Items: make([]Item, 0, len(resp.Organic)), More: resp.HasNext()}
	for _, o := range resp.Organic {
		page.Items = append(page.Items, Item{Title: o.Title, Link: o.Link, Snippet: o.Snippet})
	}
	return page, nil
}

type googleCSEProvider struct {
	client googlecse.Client
}

// NewGoogleCSEProvider adapts a Google Custom Search client. Location is not
// a CSE parameter; results are restricted by country instead.
func NewGoogleCSEProvider(c googlecse.Client) Provider {
	return googleCSEProvider{client: c}
}

func (googleCSEProvider) Name() string { return ProviderGoogleCSE }

func (googleCSEProvider) Limits() Limits {
	return Limits{MaxPerPage: googlecse.MaxNum, MaxStart: googlecse.MaxStart - 1}
}

func (p googleCSEProvider) Search(ctx context.Context, token string, req Request) (*Page, error) {
	q := googlecse.Query{
		Q:     req.Query,
		Num:   req.Num,
		Start: req.Start + 1,
		GL:    req.Country,
	}
	if req.Country != "" {
		q.CR = "country" + strings.ToUpper(req.Country)
	}
	resp, err := p.client.Search(ctx, token, q)
	if err != nil {
		return nil, err
	}
	page := &Page{Items: make([]Item, 0, len(resp.Items)), More: resp.HasNext()}
	for _, it := range resp.Items {
		page.Items = append(page.Items, Item{Title: it.Title, Link: it.Link, Snippet: it.Snippet})
	}
	return page, nil
}

// ValidProvider reports an error for an unknown provider name.
func ValidProvider(name string) error {
	switch name {
	case ProviderSerper, ProviderSerpAPI, ProviderGoogleCSE:
		return nil
	}
	return eris.Errorf("search: unknown provider %q (want %s, %s or %s)", name, ProviderSerper, ProviderSerpAPI, ProviderGoogleCSE)
}
