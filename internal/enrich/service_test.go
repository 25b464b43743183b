package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roster-enrich/internal/credential"
	"github.com/sells-group/roster-enrich/internal/model"
	"github.com/sells-group/roster-enrich/pkg/apify"
)

// fakeActor implements apify.Client and records what was submitted.
type fakeActor struct {
	token     string
	submitted [][]string
	runErr    error
	statuses  []string
	items     []json.RawMessage
	runCalls  int
}

func (f *fakeActor) RunActor(_ context.Context, _ string, input any) (*apify.Run, error) {
	f.runCalls++
	if f.runErr != nil {
		return nil, f.runErr
	}
	in, ok := input.(Input)
	if !ok {
		return nil, fmt.Errorf("unexpected input %T", input)
	}
	f.submitted = append(f.submitted, in.ProfileURLs)
	return &apify.Run{ID: "run-1", Status: apify.StatusReady, DefaultDatasetID: "ds-1"}, nil
}

func (f *fakeActor) GetRun(_ context.Context, runID string) (*apify.Run, error) {
	status := apify.StatusSucceeded
	if len(f.statuses) > 0 {
		status, f.statuses = f.statuses[0], f.statuses[1:]
	}
	return &apify.Run{ID: runID, Status: status, DefaultDatasetID: "ds-1"}, nil
}

func (f *fakeActor) ListItems(_ context.Context, _ string, offset, limit int) (*apify.ItemPage, error) {
	end := offset + limit
	if end > len(f.items) {
		end = len(f.items)
	}
	if offset > end {
		offset = end
	}
	return &apify.ItemPage{Items: f.items[offset:end], Offset: offset, Limit: limit, Total: len(f.items)}, nil
}

func newTestService(pool *credential.Pool, actor *fakeActor) *Service {
	return NewService(pool, "dev/profile-scraper", func(token string) apify.Client {
		actor.token = token
		return actor
	}, WithPollOptions(apify.WithPollInterval(time.Millisecond)), WithPageSize(2))
}

func makeURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://www.linkedin.com/in/user%d", i)
	}
	return urls
}

func TestEnrich_TruncatesToPrefix(t *testing.T) {
	pool := credential.NewPool(map[string]int{"tok": 2})
	actor := &fakeActor{items: []json.RawMessage{json.RawMessage(`{"a":1}`)}}

	urls := makeURLs(150)
	_, err := newTestService(pool, actor).Enrich(context.Background(), urls, 100)
	require.NoError(t, err)

	require.Len(t, actor.submitted, 1)
	assert.Equal(t, urls[:100], actor.submitted[0])
}

func TestEnrich_ReturnsItemsInOrderAndConsumesOnce(t *testing.T) {
	pool := credential.NewPool(map[string]int{"tok": 2})
	actor := &fakeActor{
		statuses: []string{apify.StatusRunning, apify.StatusSucceeded},
		items: []json.RawMessage{
			json.RawMessage(`{"n":0}`),
			json.RawMessage(`{"n":1}`),
			json.RawMessage(`{"n":2}`),
		},
	}

	items, err := newTestService(pool, actor).Enrich(context.Background(), makeURLs(3), 100)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(item))
	}
	assert.Equal(t, "tok", actor.token)
	assert.Equal(t, 1, pool.Remaining("tok"))
}

func TestEnrich_ZeroItemsStillConsumes(t *testing.T) {
	pool := credential.NewPool(map[string]int{"tok": 1})
	actor := &fakeActor{}

	items, err := newTestService(pool, actor).Enrich(context.Background(), makeURLs(2), 100)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, pool.Len(), "credential at zero is removed")
}

func TestEnrich_NoCredentialFailsFast(t *testing.T) {
	pool := credential.NewPool(map[string]int{"spent": 0})
	actor := &fakeActor{}

	_, err := newTestService(pool, actor).Enrich(context.Background(), makeURLs(3), 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, credential.ErrNoCredentialAvailable)
	assert.Equal(t, 0, actor.runCalls)
}

func TestEnrich_SubmissionErrorDoesNotConsume(t *testing.T) {
	pool := credential.NewPool(map[string]int{"tok": 1})
	actor := &fakeActor{runErr: errors.New("actor unavailable")}

	_, err := newTestService(pool, actor).Enrich(context.Background(), makeURLs(1), 100)
	require.Error(t, err)
	assert.Equal(t, 1, pool.Remaining("tok"))
}

func TestEnrich_FailedRunStillConsumed(t *testing.T) {
	pool := credential.NewPool(map[string]int{"tok": 2})
	actor := &fakeActor{statuses: []string{apify.StatusFailed}}

	items, err := newTestService(pool, actor).Enrich(context.Background(), makeURLs(1), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), apify.StatusFailed)
	assert.Empty(t, items)
	assert.Equal(t, 1, pool.Remaining("tok"))
}

func TestEnrich_UnsuccessfulRunReturnsPartialItems(t *testing.T) {
	for _, status := range []string{apify.StatusFailed, apify.StatusTimedOut, apify.StatusAborted} {
		t.Run(status, func(t *testing.T) {
			pool := credential.NewPool(map[string]int{"tok": 2})
			actor := &fakeActor{
				statuses: []string{apify.StatusRunning, status},
				items: []json.RawMessage{
					json.RawMessage(`{"n":0}`),
					json.RawMessage(`{"n":1}`),
					json.RawMessage(`{"n":2}`),
				},
			}

			items, err := newTestService(pool, actor).Enrich(context.Background(), makeURLs(5), 100)
			require.Error(t, err)

			var statusErr *apify.RunStatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, status, statusErr.Status)
			assert.Equal(t, "run-1", statusErr.RunID)

			require.Len(t, items, 3)
			assert.JSONEq(t, `{"n":2}`, string(items[2]))
			assert.Equal(t, 1, pool.Remaining("tok"))
		})
	}
}

func TestEnrich_PollErrorReturnsNoItems(t *testing.T) {
	pool := credential.NewPool(map[string]int{"tok": 2})
	actor := &fakeActor{
		statuses: []string{apify.StatusRunning, apify.StatusRunning, apify.StatusRunning},
		items:    []json.RawMessage{json.RawMessage(`{"n":0}`)},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	svc := NewService(pool, "dev/profile-scraper", func(string) apify.Client { return actor },
		WithPollOptions(apify.WithPollInterval(time.Hour)))

	items, err := svc.Enrich(ctx, makeURLs(1), 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, items)
	assert.Equal(t, 1, pool.Remaining("tok"))
}

func TestEnrich_EmptyInputSkipsCall(t *testing.T) {
	pool := credential.NewPool(map[string]int{"tok": 1})
	actor := &fakeActor{}

	items, err := newTestService(pool, actor).Enrich(context.Background(), nil, 100)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, 0, actor.runCalls)
	assert.Equal(t, 1, pool.Remaining("tok"))
}

func TestTruncate(t *testing.T) {
	urls := makeURLs(150)
	assert.Len(t, Truncate(urls, 100), 100)
	assert.Len(t, Truncate(urls, 0), DefaultMaxBatch)
	assert.Len(t, Truncate(urls[:5], 100), 5)
	assert.Equal(t, urls[:3], Truncate(urls, 3))
}

func TestLoadProfileURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.json")
	content := `[
		{"title":"A","link":"https://ma.linkedin.com/in/alice"},
		{"title":"Company","link":"https://www.linkedin.com/company/acme"},
		{"title":"no link"},
		{"link": 42},
		"stray",
		{"link":"https://www.linkedin.com/in/bob-b"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	urls, err := LoadProfileURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://ma.linkedin.com/in/alice",
		"https://www.linkedin.com/in/bob-b",
	}, urls)
}

func TestLoadProfileURLs_NotAList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"link":"https://linkedin.com/in/x"}`), 0o644))

	_, err := LoadProfileURLs(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrMalformedInput)
}
