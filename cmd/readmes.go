package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roster-enrich/internal/model"
	"github.com/sells-group/roster-enrich/internal/readme"
	"github.com/sells-group/roster-enrich/internal/roster"
)

var (
	readmesIn    string
	readmesOut   string
	readmesLimit int
)

var readmesCmd = &cobra.Command{
	Use:   "readmes",
	Short: "Fetch profile READMEs for every user in a roster",
	Long:  "Reads a roster (JSON or XLSX), fetches each user's profile README with a fixed delay before every request, and writes the roster back with the README content or the failure detail on each user.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f := readme.NewFetcher(readme.Options{
			URLTemplate: cfg.Readme.URLTemplate,
			Delay:       cfg.Readme.Delay(),
			MaxAttempts: cfg.Readme.MaxAttempts,
			Timeout:     time.Duration(cfg.Readme.TimeoutSecs) * time.Second,
			UserAgent:   cfg.Readme.UserAgent,
		})

		lg := openLedger(ctx, model.RunKindReadmes)
		stats, err := runReadmes(ctx, lg, f, readmesIn, readmesOut, readmesLimit)
		lg.finish(stats, err)
		return err
	},
}

func runReadmes(ctx context.Context, lg *ledger, d readme.Doer, in, out string, limit int) (*model.RunStats, error) {
	users, err := roster.Load(in)
	if err != nil {
		return nil, eris.Wrap(err, "readmes: load roster")
	}
	users = roster.Limit(users, limit)

	if n := roster.FillUsernames(users); n > 0 {
		zap.L().Info("derived usernames from names", zap.Int("count", n))
	}

	summary, err := readme.EnrichUsers(ctx, d, users, func(id string, o readme.Outcome) {
		lg.record(ctx, id, o.Status(), o.Detail(), len(o.Content))
	})
	stats := &model.RunStats{
		Processed: summary.Processed,
		Succeeded: summary.Fetched,
		NotFound:  summary.NotFound,
		Failed:    summary.Failed + summary.Skipped,
	}
	if err != nil {
		return stats, eris.Wrap(err, "readmes: fetch")
	}

	if err := roster.Save(out, users); err != nil {
		return stats, eris.Wrap(err, "readmes: save roster")
	}
	stats.Written = len(users)

	zap.L().Info("readmes complete",
		zap.Int("processed", summary.Processed),
		zap.Int("fetched", summary.Fetched),
		zap.Int("not_found", summary.NotFound),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.String("out", out),
	)
	return stats, nil
}

func init() {
	readmesCmd.Flags().StringVar(&readmesIn, "in", "", "roster file, .json or .xlsx (required)")
	readmesCmd.Flags().StringVar(&readmesOut, "out", "users_with_readmes.json", "output roster path")
	readmesCmd.Flags().IntVar(&readmesLimit, "limit", 0, "process only the first N users (0 = all)")
	_ = readmesCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(readmesCmd)
}
