// Package enrich submits batches of LinkedIn profile URLs to a bulk scraping
// actor and collects the resulting profile documents.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/roster-enrich/internal/credential"
	"github.com/sells-group/roster-enrich/pkg/apify"
)

// DefaultMaxBatch caps the number of URLs sent in one actor run.
const DefaultMaxBatch = 100

// ClientFactory builds an actor client authenticated with token.
type ClientFactory func(token string) apify.Client

// Input is the actor input document.
type Input struct {
	ProfileURLs []string `json:"profileUrls"`
}

// Service runs one actor submission per batch, paying for it with one use of
// a pooled credential.
type Service struct {
	pool      *credential.Pool
	actorID   string
	newClient ClientFactory
	pollOpts  []apify.PollOption
	pageSize  int
}

// Option configures a Service.
type Option func(*Service)

// WithPollOptions sets the options used while waiting for a run.
func WithPollOptions(opts ...apify.PollOption) Option {
	return func(s *Service) {
		s.pollOpts = append(s.pollOpts, opts...)
	}
}

// WithPageSize sets how many dataset items are requested per page.
func WithPageSize(n int) Option {
	return func(s *Service) {
		s.pageSize = n
	}
}

// NewService returns a Service that runs actorID with clients from newClient.
func NewService(pool *credential.Pool, actorID string, newClient ClientFactory, opts ...Option) *Service {
	s := &Service{
		pool:      pool,
		actorID:   actorID,
		newClient: newClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Truncate returns the first maxBatch urls. maxBatch <= 0 means
// DefaultMaxBatch.
func Truncate(urls []string, maxBatch int) []string {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	if len(urls) > maxBatch {
		return urls[:maxBatch]
	}
	return urls
}

// Enrich sends the first maxBatch urls to the actor in a single run and
// returns the run's dataset items in order. It fails with
// credential.ErrNoCredentialAvailable before any remote call when the pool is
// empty. The credential is consumed once the run has been accepted, however
// many items the run produces. A run that ends FAILED, TIMED-OUT or ABORTED
// still has its dataset read: the items come back together with an error
// wrapping *apify.RunStatusError.
func (s *Service) Enrich(ctx context.Context, urls []string, maxBatch int) ([]json.RawMessage, error) {
	batch := Truncate(urls, maxBatch)
	if len(batch) == 0 {
		zap.L().Info("enrich: no profile urls to submit")
		return []json.RawMessage{}, nil
	}

	cred, err := s.pool.Acquire()
	if err != nil {
		return nil, eris.Wrap(err, "enrich: acquire credential")
	}

	log := zap.L().With(
		zap.String("actor", s.actorID),
		zap.Int("batch_size", len(batch)),
		zap.Int("dropped", len(urls)-len(batch)),
	)

	client := s.newClient(cred.Token)
	start := time.Now()
	run, err := client.RunActor(ctx, s.actorID, Input{ProfileURLs: batch})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: submit batch")
	}
	s.pool.Consume(cred.Token)
	log.Info("enrich: batch submitted",
		zap.String("run_id", run.ID),
		zap.Int("credential_remaining", s.pool.Remaining(cred.Token)),
	)

	var runErr error
	if !run.Terminal() {
		run, err = apify.WaitForRun(ctx, client, run.ID, s.pollOpts...)
		var statusErr *apify.RunStatusError
		if err != nil && (run == nil || !errors.As(err, &statusErr)) {
			return nil, eris.Wrap(err, "enrich: wait for run")
		}
		runErr = err
	} else {
		runErr = apify.CheckRun(run)
	}
	if runErr != nil {
		log.Warn("enrich: run did not succeed, collecting partial results",
			zap.String("run_id", run.ID),
			zap.String("status", run.Status),
		)
	}

	items, err := apify.Collect(ctx, apify.NewDatasetIterator(client, run.DefaultDatasetID, s.pageSize))
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read results")
	}

	if runErr != nil {
		return items, eris.Wrapf(runErr, "enrich: %d partial results", len(items))
	}

	log.Info("enrich: batch complete",
		zap.String("run_id", run.ID),
		zap.Int("items", len(items)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return items, nil
}
