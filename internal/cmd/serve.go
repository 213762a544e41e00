package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/storage-smoke/internal/config"
	"github.com/tomasbasham/storage-smoke/internal/operation"
	"github.com/tomasbasham/storage-smoke/internal/server"
)

type ServeOptions struct {
	*SmokeOptions

	cfg config.Config

	Port int
}

var (
	serveLong = templates.LongDesc(`Start the smoke test HTTP server.`)

	serveExample = templates.Examples(`
		# Start on the default port
		smoke serve

		# Start on a custom port against a MinIO bucket
		SMOKE_MINIO_ENDPOINT=localhost:9000 smoke serve --port 9090 --backend minio --bucket smoke`)
)

func NewServeOptions(parent *SmokeOptions) *ServeOptions {
	return &ServeOptions{
		SmokeOptions: parent,
	}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the smoke test HTTP server",
		Long:    serveLong,
		Example: serveExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&o.Port, "port", "p", 8080, "Port to listen on")

	return cmd
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func (o *ServeOptions) Validate() error {
	if o.Port <= 0 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d", o.Port)
	}
	if err := o.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (o *ServeOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := newTester(ctx, o.cfg, nil, o.ErrOut)
	if err != nil {
		return err
	}
	defer deps.close()

	srv := server.New(operation.NewMemoryStore(), deps.tester, deps.logger)

	addr := fmt.Sprintf(":%d", o.Port)
	deps.logger.Info("starting smoke test server",
		zap.String("addr", addr),
		zap.String("backend", string(o.cfg.Backend)),
		zap.String("bucket", o.cfg.Bucket),
	)
	fmt.Fprintf(o.Out, "Starting smoke test server on %s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}
