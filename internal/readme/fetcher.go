package readme

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultURLTemplate points at a user's profile repository README.
// "{id}" is replaced by the path-escaped identifier.
const DefaultURLTemplate = "https://raw.githubusercontent.com/{id}/{id}/main/README.md"

// NotFoundDetail is recorded when the host confirms the README is absent.
const NotFoundDetail = "No README found (404)"

// Options configures a Fetcher.
type Options struct {
	// URLTemplate is the document URL with "{id}" placeholders.
	URLTemplate string

	// Delay is slept before every attempt, including the first. It is an
	// external throttle, not a backoff.
	Delay time.Duration

	// MaxAttempts bounds the number of requests per identifier. Default: 3.
	MaxAttempts int

	// Timeout is the per-request transport timeout. Default: 15s.
	Timeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		f.http = hc
	}
}

// WithSleep replaces the delay function (for tests).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		f.sleep = fn
	}
}

// Fetcher retrieves one document per identifier with a fixed pre-request
// delay and a bounded number of attempts.
type Fetcher struct {
	opts  Options
	http  *http.Client
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher, applying defaults for unset options.
func NewFetcher(opts Options, fns ...Option) *Fetcher {
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultURLTemplate
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "roster-enrich/1.0"
	}
	f := &Fetcher{
		opts:  opts,
		http:  &http.Client{Timeout: opts.Timeout},
		sleep: sleepContext,
	}
	for _, fn := range fns {
		fn(f)
	}
	return f
}

// URL returns the document URL for identifier.
func (f *Fetcher) URL(identifier string) string {
	return strings.ReplaceAll(f.opts.URLTemplate, "{id}", url.PathEscape(identifier))
}

// attemptState is the fetch loop's state. Terminal states are success,
// not-found, and attempts exhausted.
type attemptState struct {
	attempt    int
	lastDetail string
}

type attemptResult int

const (
	attemptFound attemptResult = iota
	attemptAbsent
	attemptRetry
)

// Fetch retrieves the document for identifier. It never returns an error:
// failures are carried in the Outcome.
func (f *Fetcher) Fetch(ctx context.Context, identifier string) Outcome {
	target := f.URL(identifier)
	log := zap.L().With(zap.String("identifier", identifier))

	var st attemptState
	for st.attempt < f.opts.MaxAttempts {
		st.attempt++

		if err := f.sleep(ctx, f.opts.Delay); err != nil {
			st.lastDetail = err.Error()
			break
		}

		result, body, detail := f.try(ctx, target)
		switch result {
		case attemptFound:
			log.Info("readme fetched", zap.Int("attempt", st.attempt), zap.Int("bytes", len(body)))
			return Success(body)
		case attemptAbsent:
			log.Info("readme not found", zap.Int("attempt", st.attempt))
			return Fail(FailureNotFound, NotFoundDetail)
		default:
			st.lastDetail = detail
			log.Warn("readme fetch failed",
				zap.Int("attempt", st.attempt),
				zap.Int("max_attempts", f.opts.MaxAttempts),
				zap.String("detail", detail),
			)
		}

		if ctx.Err() != nil {
			break
		}
	}

	log.Warn("readme fetch gave up", zap.Int("attempts", st.attempt), zap.String("detail", st.lastDetail))
	return Fail(FailureTransient, st.lastDetail)
}

func (f *Fetcher) try(ctx context.Context, target string) (attemptResult, string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return attemptRetry, "", err.Error()
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return attemptRetry, "", err.Error()
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return attemptRetry, "", fmt.Sprintf("read body: %v", err)
		}
		return attemptFound, string(data), ""
	case http.StatusNotFound:
		return attemptAbsent, "", ""
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return attemptRetry, "", fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
