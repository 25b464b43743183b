package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roster-enrich/internal/config"
	"github.com/sells-group/roster-enrich/internal/credential"
	"github.com/sells-group/roster-enrich/internal/model"
	"github.com/sells-group/roster-enrich/internal/output"
	"github.com/sells-group/roster-enrich/internal/search"
	"github.com/sells-group/roster-enrich/pkg/googlecse"
	"github.com/sells-group/roster-enrich/pkg/serpapi"
	"github.com/sells-group/roster-enrich/pkg/serper"
)

var (
	searchQueries  []string
	searchLocation string
	searchMaxPages int
	searchOut      string
	searchCSV      string
	searchProvider string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for LinkedIn profiles",
	Long:  "Runs each --query as a site-restricted web search through the configured provider (serper, serpapi or google_cse), one pooled credential per page, and appends title/link/snippet results to --out. Running out of credentials ends the search early without an error.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		name := searchProvider
		if name == "" {
			name = cfg.Search.Provider
		}
		provider, pool, err := newSearchBackend(cfg, name)
		if err != nil {
			return err
		}
		zap.L().Info("search credentials loaded",
			zap.String("provider", provider.Name()),
			zap.Int("tokens", pool.Len()),
			zap.Int("uses", pool.Total()),
		)

		runner := search.NewRunner(provider, pool, search.Options{
			Site:     cfg.Search.Site,
			Location: cfg.Search.Location,
			Country:  cfg.Search.Country,
			Delay:    cfg.Search.Delay(),
			Retry:    cfg.Retry.Policy(),
		})

		maxPages := searchMaxPages
		if maxPages <= 0 {
			maxPages = cfg.Search.MaxPages
		}

		lg := openLedger(ctx, model.RunKindSearch)
		stats, err := runSearch(ctx, lg, runner, searchQueries, searchLocation, cfg.Search.PerPage, maxPages, searchOut, searchCSV)
		lg.finish(stats, err)
		return err
	},
}

// newSearchBackend builds the named provider and the credential pool that
// pays for it.
func newSearchBackend(c *config.Config, name string) (search.Provider, *credential.Pool, error) {
	if err := search.ValidProvider(name); err != nil {
		return nil, nil, err
	}

	switch name {
	case search.ProviderSerpAPI:
		pool, err := c.SerpAPIPool()
		if err != nil {
			return nil, nil, err
		}
		client := serpapi.NewClient(serpapi.WithBaseURL(c.SerpAPI.BaseURL))
		return search.NewSerpAPIProvider(client, c.SerpAPI.Engine), pool, nil
	case search.ProviderGoogleCSE:
		if c.GoogleCSE.EngineID == "" {
			return nil, nil, eris.New("google custom search engine id is required (GOOGLE_SEARCH_ENGINE_ID)")
		}
		client := googlecse.NewClient(c.GoogleCSE.EngineID, googlecse.WithBaseURL(c.GoogleCSE.BaseURL))
		return search.NewGoogleCSEProvider(client), c.GoogleCSEPool(), nil
	default:
		pool, err := c.SerperPool()
		if err != nil {
			return nil, nil, err
		}
		client := serper.NewClient(serper.WithBaseURL(c.Serper.BaseURL))
		return search.NewSerperProvider(client), pool, nil
	}
}

func runSearch(ctx context.Context, lg *ledger, r *search.Runner, queries []string, location string, perPage, maxPages int, out, csvOut string) (*model.RunStats, error) {
	if len(queries) == 0 {
		return nil, eris.New("search: at least one --query is required")
	}

	items, results, err := r.FetchQueries(ctx, queries, location, perPage, maxPages)
	stats := &model.RunStats{Processed: len(results)}
	for _, res := range results {
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
			stats.Failed++
		} else {
			stats.Succeeded++
		}
		lg.record(ctx, res.Query, string(res.Stop), detail, len(res.Items))
	}
	if err != nil {
		return stats, eris.Wrap(err, "search")
	}

	total, err := output.AppendJSON(out, items)
	if err != nil {
		return stats, eris.Wrap(err, "search: append results")
	}
	stats.Written = len(items)

	if csvOut != "" {
		if err := output.WriteCSV(csvOut, search.CSVHeader, search.CSVRows(results)); err != nil {
			return stats, eris.Wrap(err, "search: write csv")
		}
	}

	zap.L().Info("search complete",
		zap.Int("queries", len(queries)),
		zap.Int("completed", len(results)),
		zap.Int("results", len(items)),
		zap.Int("file_total", total),
	)
	return stats, nil
}

func init() {
	searchCmd.Flags().StringArrayVar(&searchQueries, "query", nil, "search query (repeatable, required)")
	searchCmd.Flags().StringVar(&searchLocation, "location", "", "search location (default search.location)")
	searchCmd.Flags().IntVar(&searchMaxPages, "max-pages", 0, "max pages per query (0 = search.max_pages)")
	searchCmd.Flags().StringVar(&searchOut, "out", "search_results.json", "results output path (appended)")
	searchCmd.Flags().StringVar(&searchCSV, "csv", "", "also write this run's results as CSV (query, title, snippet, link)")
	searchCmd.Flags().StringVar(&searchProvider, "provider", "", "serper, serpapi or google_cse (default search.provider)")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}
