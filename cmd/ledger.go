package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/roster-enrich/internal/model"
	"github.com/sells-group/roster-enrich/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DatabaseURL,
		Pool: store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		},
	})
}

// ledger records one command invocation in the run store. A nil store
// turns every method into a no-op, and write failures are logged rather
// than returned: the ledger never decides whether a command succeeds.
type ledger struct {
	st  store.Store
	run *model.Run
}

// openLedger starts a run of kind unless the store is disabled.
func openLedger(ctx context.Context, kind model.RunKind) *ledger {
	if cfg == nil || cfg.Store.Disabled {
		return &ledger{}
	}
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("run ledger unavailable", zap.Error(err))
		return &ledger{}
	}
	return startLedger(ctx, st, kind)
}

func startLedger(ctx context.Context, st store.Store, kind model.RunKind) *ledger {
	run, err := st.CreateRun(ctx, kind)
	if err != nil {
		zap.L().Warn("create run", zap.Error(err))
		_ = st.Close()
		return &ledger{}
	}
	zap.L().Info("run started", zap.String("run_id", run.ID), zap.String("kind", string(kind)))
	return &ledger{st: st, run: run}
}

func (l *ledger) record(ctx context.Context, identifier, status, detail string, size int) {
	if l.st == nil {
		return
	}
	err := l.st.RecordFetch(ctx, &model.FetchRecord{
		RunID:      l.run.ID,
		Identifier: identifier,
		Status:     status,
		Detail:     detail,
		Bytes:      size,
	})
	if err != nil {
		zap.L().Warn("record fetch", zap.String("identifier", identifier), zap.Error(err))
	}
}

// finish completes the run and closes the store. The context may already
// be cancelled, so completion uses a fresh one.
func (l *ledger) finish(stats *model.RunStats, runErr error) {
	if l.st == nil {
		return
	}
	defer l.st.Close() //nolint:errcheck
	if err := l.st.CompleteRun(context.Background(), l.run.ID, stats, runErr); err != nil {
		zap.L().Warn("complete run", zap.String("run_id", l.run.ID), zap.Error(err))
	}
}
