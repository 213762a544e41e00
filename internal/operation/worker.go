package operation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tomasbasham/storage-smoke/internal/smoke"
)

// WorkerOptions configures a smoke worker invocation.
type WorkerOptions struct {
	OperationID string
	Store       Store
	Tester      *smoke.Tester
	Checks      []smoke.Check

	// OnFinish, if set, is called with every completed report.
	OnFinish func(*smoke.Report)

	Logger *zap.Logger
}

// Run executes the smoke checks and transitions the operation through
// running → passed | failed.
//
// Run is intended to be called in a separate goroutine; it owns the full
// lifecycle of the operation from the moment it is called.
func Run(ctx context.Context, opts WorkerOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("operation", opts.OperationID))

	if err := opts.Store.MarkRunning(opts.OperationID); err != nil {
		// If we cannot even mark it running the store is broken; nothing to do.
		logger.Error("failed to mark operation running", zap.Error(err))
		return
	}

	if opts.Tester == nil {
		_ = opts.Store.MarkFailed(opts.OperationID, errors.New("no tester configured"))
		return
	}

	report := opts.Tester.Run(ctx, opts.Checks...)
	if opts.OnFinish != nil {
		opts.OnFinish(report)
	}

	if err := opts.Store.MarkFinished(opts.OperationID, report); err != nil {
		logger.Error("failed to record report", zap.Error(err))
		return
	}
	logger.Info("smoke run finished", zap.Bool("failed", report.Failed()))
}
