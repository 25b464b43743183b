package readme

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepRecorder counts delay calls without sleeping.
type sleepRecorder struct {
	calls  atomic.Int32
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls.Add(1)
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestFetcher(t *testing.T, handler http.HandlerFunc, maxAttempts int) (*Fetcher, *sleepRecorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rec := &sleepRecorder{}
	f := NewFetcher(Options{
		URLTemplate: srv.URL + "/{id}/{id}/main/README.md",
		Delay:       2 * time.Second,
		MaxAttempts: maxAttempts,
	}, WithSleep(rec.sleep))
	return f, rec
}

func TestFetch_Success(t *testing.T) {
	var calls atomic.Int32
	f, rec := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/alice/alice/main/README.md", r.URL.Path)
		w.Write([]byte("# Hi, I'm Alice")) //nolint:errcheck
	}, 3)

	o := f.Fetch(context.Background(), "alice")

	require.True(t, o.OK())
	assert.Nil(t, o.Failure)
	assert.Equal(t, "# Hi, I'm Alice", o.Content)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), rec.calls.Load(), "delay applies before the first attempt")
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.delays)
}

func TestFetch_NotFoundShortCircuits(t *testing.T) {
	var calls atomic.Int32
	f, rec := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, 5)

	o := f.Fetch(context.Background(), "ghost")

	require.False(t, o.OK())
	assert.True(t, o.NotFound())
	assert.Equal(t, FailureNotFound, o.Failure.Kind)
	assert.Equal(t, NotFoundDetail, o.Failure.Detail)
	assert.Empty(t, o.Content)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestFetch_PersistentServerErrorKeepsDetail(t *testing.T) {
	var calls atomic.Int32
	f, rec := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 3)

	o := f.Fetch(context.Background(), "alice")

	require.False(t, o.OK())
	assert.Equal(t, FailureTransient, o.Failure.Kind)
	assert.Equal(t, "HTTP 500", o.Failure.Detail)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int32(3), rec.calls.Load(), "delay applies before every attempt")
}

func TestFetch_RecoversAfterTransientStatus(t *testing.T) {
	var calls atomic.Int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}, 3)

	o := f.Fetch(context.Background(), "alice")

	require.True(t, o.OK())
	assert.Equal(t, "ok", o.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_LastDetailTracksMostRecentFailure(t *testing.T) {
	var calls atomic.Int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2)

	o := f.Fetch(context.Background(), "alice")

	require.False(t, o.OK())
	assert.Equal(t, "HTTP 503", o.Failure.Detail)
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close() // every request now fails to connect

	rec := &sleepRecorder{}
	f := NewFetcher(Options{
		URLTemplate: base + "/{id}",
		MaxAttempts: 2,
		Timeout:     time.Second,
	}, WithSleep(rec.sleep))

	o := f.Fetch(context.Background(), "alice")

	require.False(t, o.OK())
	assert.Equal(t, FailureTransient, o.Failure.Kind)
	assert.NotEmpty(t, o.Failure.Detail)
	assert.Equal(t, int32(2), rec.calls.Load())
}

func TestFetch_RetryBound(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		var calls atomic.Int32
		f, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}, n)

		o := f.Fetch(context.Background(), "alice")
		assert.False(t, o.OK())
		assert.NotEmpty(t, o.Detail())
		assert.Equal(t, int32(n), calls.Load(), "max attempts %d", n)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := f.Fetch(ctx, "alice")

	require.False(t, o.OK())
	assert.Equal(t, FailureTransient, o.Failure.Kind)
	assert.Contains(t, o.Failure.Detail, "context canceled")
	assert.Equal(t, int32(0), calls.Load())
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(Options{Delay: -time.Second})

	assert.Equal(t, DefaultURLTemplate, f.opts.URLTemplate)
	assert.Equal(t, 3, f.opts.MaxAttempts)
	assert.Equal(t, 15*time.Second, f.opts.Timeout)
	assert.Equal(t, time.Duration(0), f.opts.Delay)
	assert.Equal(t, "https://raw.githubusercontent.com/alice/alice/main/README.md", f.URL("alice"))
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), 0))
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestOutcome(t *testing.T) {
	ok := Success("")
	assert.True(t, ok.OK())
	assert.Equal(t, "ok", ok.Status())
	assert.Empty(t, ok.Detail())

	failed := Fail(FailureTransient, "")
	assert.False(t, failed.OK())
	assert.False(t, failed.NotFound())
	assert.Equal(t, "unknown error", failed.Detail())
	assert.Equal(t, "transient", failed.Status())
	assert.Equal(t, "transient: unknown error", failed.Failure.String())
}
