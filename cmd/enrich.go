package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roster-enrich/internal/enrich"
	"github.com/sells-group/roster-enrich/internal/model"
	"github.com/sells-group/roster-enrich/internal/output"
	"github.com/sells-group/roster-enrich/pkg/apify"
)

var (
	enrichIn  string
	enrichOut string
	enrichMax int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich LinkedIn profile URLs through the scraping actor",
	Long:  "Reads LinkedIn profile URLs from a search results file, submits the first --max of them as one actor run paid for with one pooled credential, and appends the profile documents to --out.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Apify.ActorID == "" {
			return eris.New("apify actor id is required (APIFY_ACTOR_ID)")
		}
		pool, err := cfg.ApifyPool()
		if err != nil {
			return err
		}
		zap.L().Info("apify credentials loaded", zap.Int("tokens", pool.Len()), zap.Int("uses", pool.Total()))

		svc := enrich.NewService(pool, cfg.Apify.ActorID,
			func(token string) apify.Client {
				return apify.NewClient(token,
					apify.WithBaseURL(cfg.Apify.BaseURL),
					apify.WithRetry(cfg.Retry.Policy()),
				)
			},
			enrich.WithPageSize(cfg.Apify.PageSize),
			enrich.WithPollOptions(apify.WithPollTimeout(time.Duration(cfg.Apify.PollTimeoutSecs)*time.Second)),
		)

		batchSize := enrichMax
		if batchSize <= 0 {
			batchSize = cfg.Apify.MaxBatch
		}

		lg := openLedger(ctx, model.RunKindEnrich)
		stats, err := runEnrich(ctx, svc, enrichIn, enrichOut, batchSize)
		lg.finish(stats, err)
		return err
	},
}

func runEnrich(ctx context.Context, svc *enrich.Service, in, out string, batchSize int) (*model.RunStats, error) {
	urls, err := enrich.LoadProfileURLs(in)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: load profile urls")
	}
	batch := enrich.Truncate(urls, batchSize)
	stats := &model.RunStats{Processed: len(batch)}

	items, runErr := svc.Enrich(ctx, urls, batchSize)
	stats.Succeeded = len(items)
	stats.Failed = len(batch) - len(items)
	if stats.Failed < 0 {
		stats.Failed = 0
	}
	if len(items) == 0 && runErr != nil {
		stats.Failed = len(batch)
		return stats, runErr
	}

	total, err := output.AppendJSON(out, items)
	if err != nil {
		return stats, eris.Wrap(err, "enrich: append results")
	}
	stats.Written = len(items)

	fields := []zap.Field{
		zap.Int("urls", len(urls)),
		zap.Int("submitted", len(batch)),
		zap.Int("profiles", len(items)),
		zap.Int("file_total", total),
	}
	if runErr != nil {
		zap.L().Warn("enrich finished with partial results", append(fields, zap.Error(runErr))...)
		return stats, runErr
	}
	zap.L().Info("enrich complete", fields...)
	return stats, nil
}

func init() {
	enrichCmd.Flags().StringVar(&enrichIn, "in", "search_results.json", "search results file with link fields")
	enrichCmd.Flags().StringVar(&enrichOut, "out", "linkedin_profiles.json", "profile output path (appended)")
	enrichCmd.Flags().IntVar(&enrichMax, "max", 0, "max URLs per run (0 = apify.max_batch)")
	rootCmd.AddCommand(enrichCmd)
}
