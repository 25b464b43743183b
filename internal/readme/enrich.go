package readme

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/roster-enrich/internal/model"
)

// MissingUsernameDetail is recorded for users without a usable identifier.
const MissingUsernameDetail = "Invalid or missing username"

// Doer fetches one document. *Fetcher satisfies it.
type Doer interface {
	Fetch(ctx context.Context, identifier string) Outcome
}

// Summary counts the outcomes of one roster pass.
type Summary struct {
	Processed int
	Fetched   int
	NotFound  int
	Failed    int
	Skipped   int
}

// ObserveFunc is called once per user after its outcome is recorded.
type ObserveFunc func(identifier string, o Outcome)

// EnrichUsers fetches a README for every user in input order and records
// the content or failure detail on the user. Per-user failures never stop
// the pass; only context cancellation does.
func EnrichUsers(ctx context.Context, d Doer, users []model.User, observe ObserveFunc) (Summary, error) {
	var s Summary
	for i, u := range users {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		s.Processed++

		id := u.GitHubUsername()
		if id == "" {
			u.SetReadmeError(MissingUsernameDetail)
			s.Skipped++
			zap.L().Warn("skipping user without username", zap.Int("index", i))
			continue
		}

		o := d.Fetch(ctx, id)
		switch {
		case o.OK():
			u.SetReadme(o.Content)
			s.Fetched++
		case o.NotFound():
			u.SetReadmeError(o.Detail())
			s.NotFound++
		default:
			u.SetReadmeError(o.Detail())
			s.Failed++
		}
		if observe != nil {
			observe(id, o)
		}
	}
	return s, nil
}
