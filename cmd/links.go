package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roster-enrich/internal/links"
	"github.com/sells-group/roster-enrich/internal/model"
	"github.com/sells-group/roster-enrich/internal/output"
	"github.com/sells-group/roster-enrich/internal/roster"
)

var (
	linksIn          string
	linksTwitterOut  string
	linksLinkedInOut string
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Extract Twitter and LinkedIn links from a roster",
	Long:  "Derives one Twitter link per user from the Twitter Username field or the README text, and every LinkedIn profile link found in the README text.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lg := openLedger(cmd.Context(), model.RunKindLinks)
		stats, err := runLinks(cmd.OutOrStdout(), linksIn, linksTwitterOut, linksLinkedInOut)
		lg.finish(stats, err)
		return err
	},
}

func runLinks(w io.Writer, in, twitterOut, linkedinOut string) (*model.RunStats, error) {
	users, err := roster.Load(in)
	if err != nil {
		return nil, eris.Wrap(err, "links: load roster")
	}

	twitter, linkedin := links.NewExtractor().Collect(users)

	if err := output.WriteJSON(twitterOut, twitter); err != nil {
		return nil, eris.Wrap(err, "links: write twitter links")
	}
	if err := output.WriteJSON(linkedinOut, linkedin); err != nil {
		return nil, eris.Wrap(err, "links: write linkedin links")
	}

	zap.L().Info("links extracted",
		zap.Int("users", len(users)),
		zap.Int("twitter", len(twitter)),
		zap.Int("linkedin", len(linkedin)),
	)
	_, _ = fmt.Fprintf(w, "Twitter links:  %d -> %s\n", len(twitter), twitterOut)
	_, _ = fmt.Fprintf(w, "LinkedIn links: %d -> %s\n", len(linkedin), linkedinOut)

	return &model.RunStats{
		Processed: len(users),
		Succeeded: len(twitter),
		Written:   len(twitter) + len(linkedin),
	}, nil
}

func init() {
	linksCmd.Flags().StringVar(&linksIn, "in", "users_with_readmes.json", "roster with README content")
	linksCmd.Flags().StringVar(&linksTwitterOut, "twitter-out", "twitter_links.json", "Twitter links output path")
	linksCmd.Flags().StringVar(&linksLinkedInOut, "linkedin-out", "linkedin_links.json", "LinkedIn links output path")
	rootCmd.AddCommand(linksCmd)
}
