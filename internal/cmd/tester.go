package cmd

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/tomasbasham/storage-smoke/internal/config"
	"github.com/tomasbasham/storage-smoke/internal/logging"
	"github.com/tomasbasham/storage-smoke/internal/smoke"
	"github.com/tomasbasham/storage-smoke/internal/storage"
)

// testerDeps are the pieces a command needs to drive smoke checks. close
// releases the backend client.
type testerDeps struct {
	tester *smoke.Tester
	logger *zap.Logger
	close  func()
}

func newTester(ctx context.Context, cfg config.Config, content []byte, logOut io.Writer) (*testerDeps, error) {
	logger, err := logging.New(cfg.LogLevel, logOut)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved configuration", zap.Any("config", cfg.Redacted()))

	client := smoke.NewHTTPClient(cfg.Timeout)
	store, err := storage.Open(ctx, cfg, client, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise %s backend: %w", cfg.Backend, err)
	}

	tester, err := smoke.New(smoke.Options{
		Store:      store,
		HTTPClient: client,
		Logger:     logger,
		ListLimit:  cfg.ListLimit,
		Cleanup:    cfg.Cleanup,
		Content:    content,
	})
	if err != nil {
		return nil, err
	}

	closeFn := func() { _ = logger.Sync() }
	if c, ok := store.(io.Closer); ok {
		closeFn = func() {
			_ = c.Close()
			_ = logger.Sync()
		}
	}
	return &testerDeps{tester: tester, logger: logger, close: closeFn}, nil
}
