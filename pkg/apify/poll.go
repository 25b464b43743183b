package apify

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 10 * time.Minute
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithPollTimeout overrides the default timeout (applied only if the parent
// context has no deadline). Non-positive values keep the default.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// RunStatusError reports a run that finished with a status other than
// SUCCEEDED. Its dataset may still hold the items produced before the run
// stopped.
type RunStatusError struct {
	RunID         string
	Status        string
	StatusMessage string
}

func (e *RunStatusError) Error() string {
	if e.StatusMessage != "" {
		return fmt.Sprintf("apify: run %s ended with status %s: %s", e.RunID, e.Status, e.StatusMessage)
	}
	return fmt.Sprintf("apify: run %s ended with status %s", e.RunID, e.Status)
}

// CheckRun returns a *RunStatusError when a terminal run did not succeed.
func CheckRun(run *Run) error {
	if run.Terminal() && run.Status != StatusSucceeded {
		return &RunStatusError{RunID: run.ID, Status: run.Status, StatusMessage: run.StatusMessage}
	}
	return nil
}

// WaitForRun polls GetRun until the run reaches a terminal status or the
// context expires. A terminal status other than SUCCEEDED returns the run
// together with a *RunStatusError. Interval doubles from the initial value up
// to the cap.
func WaitForRun(ctx context.Context, client Client, runID string, opts ...PollOption) (*Run, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		run, err := client.GetRun(ctx, runID)
		if err != nil {
			return nil, eris.Wrapf(err, "apify: poll run %s", runID)
		}

		if run.Terminal() {
			return run, CheckRun(run)
		}

		zap.L().Debug("apify: run in progress",
			zap.String("run_id", runID),
			zap.String("status", run.Status),
			zap.Duration("next_poll", interval),
		)

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "apify: poll run %s timed out", runID)
		case <-time.After(interval):
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}
