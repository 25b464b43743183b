package apify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient implements Client for poll and iterator tests.
type mockClient struct {
	runActorFunc  func(ctx context.Context, actorID string, input any) (*Run, error)
	getRunFunc    func(ctx context.Context, runID string) (*Run, error)
	listItemsFunc func(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error)
}

func (m *mockClient) RunActor(ctx context.Context, actorID string, input any) (*Run, error) {
	return m.runActorFunc(ctx, actorID, input)
}

func (m *mockClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	return m.getRunFunc(ctx, runID)
}

func (m *mockClient) ListItems(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error) {
	return m.listItemsFunc(ctx, datasetID, offset, limit)
}

func TestWaitForRun_CompletesAfterPolls(t *testing.T) {
	calls := 0
	mock := &mockClient{
		getRunFunc: func(ctx context.Context, runID string) (*Run, error) {
			calls++
			if calls < 3 {
				return &Run{ID: runID, Status: StatusRunning}, nil
			}
			return &Run{ID: runID, Status: StatusSucceeded, DefaultDatasetID: "ds"}, nil
		},
	}

	run, err := WaitForRun(context.Background(), mock, "run-1", WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "ds", run.DefaultDatasetID)
	assert.Equal(t, 3, calls)
}

func TestWaitForRun_FailedStatus(t *testing.T) {
	for _, status := range []string{StatusFailed, StatusAborted, StatusTimedOut} {
		t.Run(status, func(t *testing.T) {
			mock := &mockClient{
				getRunFunc: func(ctx context.Context, runID string) (*Run, error) {
					return &Run{ID: runID, Status: status}, nil
				},
			}
			run, err := WaitForRun(context.Background(), mock, "run-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), status)
			require.NotNil(t, run)

			var statusErr *RunStatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, "run-1", statusErr.RunID)
			assert.Equal(t, status, statusErr.Status)
		})
	}
}

func TestCheckRun(t *testing.T) {
	assert.NoError(t, CheckRun(&Run{ID: "r", Status: StatusSucceeded}))
	assert.NoError(t, CheckRun(&Run{ID: "r", Status: StatusRunning}))

	err := CheckRun(&Run{ID: "r", Status: StatusAborted, StatusMessage: "aborted by user"})
	var statusErr *RunStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "apify: run r ended with status ABORTED: aborted by user", err.Error())
}

func TestWaitForRun_GetError(t *testing.T) {
	mock := &mockClient{
		getRunFunc: func(ctx context.Context, runID string) (*Run, error) {
			return nil, errors.New("boom")
		},
	}
	_, err := WaitForRun(context.Background(), mock, "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestWaitForRun_Timeout(t *testing.T) {
	mock := &mockClient{
		getRunFunc: func(ctx context.Context, runID string) (*Run, error) {
			return &Run{ID: runID, Status: StatusRunning}, nil
		},
	}
	_, err := WaitForRun(context.Background(), mock, "run-1",
		WithPollInterval(5*time.Millisecond),
		WithPollCap(5*time.Millisecond),
		WithPollTimeout(30*time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func pagedClient(total int, calls *int) *mockClient {
	return &mockClient{
		listItemsFunc: func(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error) {
			*calls++
			var items []json.RawMessage
			for i := offset; i < total && i < offset+limit; i++ {
				items = append(items, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
			}
			return &ItemPage{Items: items, Offset: offset, Limit: limit, Total: -1}, nil
		},
	}
}

func TestDatasetIterator_Pages(t *testing.T) {
	calls := 0
	it := NewDatasetIterator(pagedClient(5, &calls), "ds", 2)

	items, err := Collect(context.Background(), it)
	require.NoError(t, err)
	require.Len(t, items, 5)
	for i, item := range items {
		assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(item))
	}
	assert.Equal(t, 3, calls)

	// Exhausted iterators stay exhausted.
	assert.False(t, it.Next(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestDatasetIterator_ExactMultipleFetchesEmptyPage(t *testing.T) {
	calls := 0
	items, err := Collect(context.Background(), NewDatasetIterator(pagedClient(4, &calls), "ds", 2))
	require.NoError(t, err)
	assert.Len(t, items, 4)
	assert.Equal(t, 3, calls)
}

func TestDatasetIterator_TotalStopsEarly(t *testing.T) {
	calls := 0
	mock := &mockClient{
		listItemsFunc: func(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error) {
			calls++
			return &ItemPage{Items: []json.RawMessage{json.RawMessage(`{}`), json.RawMessage(`{}`)}, Total: 2}, nil
		},
	}
	items, err := Collect(context.Background(), NewDatasetIterator(mock, "ds", 2))
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, calls)
}

func TestDatasetIterator_Empty(t *testing.T) {
	calls := 0
	items, err := Collect(context.Background(), NewDatasetIterator(pagedClient(0, &calls), "ds", 0))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestDatasetIterator_Error(t *testing.T) {
	mock := &mockClient{
		listItemsFunc: func(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error) {
			if offset > 0 {
				return nil, errors.New("page failed")
			}
			return &ItemPage{Items: []json.RawMessage{json.RawMessage(`1`)}, Total: -1}, nil
		},
	}
	it := NewDatasetIterator(mock, "ds", 1)
	items, err := Collect(context.Background(), it)
	require.Error(t, err)
	assert.Len(t, items, 1)
	assert.False(t, it.Next(context.Background()))
}
