package readme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roster-enrich/internal/model"
)

type stubDoer struct {
	outcomes map[string]Outcome
	calls    []string
}

func (s *stubDoer) Fetch(_ context.Context, identifier string) Outcome {
	s.calls = append(s.calls, identifier)
	return s.outcomes[identifier]
}

func TestEnrichUsers(t *testing.T) {
	d := &stubDoer{outcomes: map[string]Outcome{
		"alice": Success("# alice"),
		"ghost": Fail(FailureNotFound, NotFoundDetail),
		"flaky": Fail(FailureTransient, "HTTP 502"),
	}}
	users := []model.User{
		{model.FieldGitHubUsername: "alice"},
		{model.FieldGitHubUsername: "ghost"},
		{model.FieldName: "No Handle"},
		{model.FieldGitHubUsername: "flaky"},
	}

	var observed []string
	s, err := EnrichUsers(context.Background(), d, users, func(id string, o Outcome) {
		observed = append(observed, id+":"+o.Status())
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{Processed: 4, Fetched: 1, NotFound: 1, Failed: 1, Skipped: 1}, s)
	assert.Equal(t, []string{"alice", "ghost", "flaky"}, d.calls, "input order, users without names skipped")
	assert.Equal(t, []string{"alice:ok", "ghost:not_found", "flaky:transient"}, observed)

	assert.Equal(t, "# alice", users[0].Readme())
	assert.Nil(t, users[0][model.FieldReadmeError])
	assert.Equal(t, NotFoundDetail, users[1][model.FieldReadmeError])
	assert.Equal(t, MissingUsernameDetail, users[2][model.FieldReadmeError])
	assert.Equal(t, "HTTP 502", users[3][model.FieldReadmeError])
	assert.Nil(t, users[3][model.FieldReadme])
}

func TestEnrichUsers_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &stubDoer{}
	s, err := EnrichUsers(ctx, d, []model.User{{model.FieldGitHubUsername: "alice"}}, nil)
	require.Error(t, err)
	assert.Equal(t, 0, s.Processed)
	assert.Empty(t, d.calls)
}
