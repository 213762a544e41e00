package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/storage-smoke/internal/config"
	"github.com/tomasbasham/storage-smoke/internal/smoke"
)

// errChecksFailed makes the process exit non-zero once the report has been
// printed.
var errChecksFailed = errors.New("one or more smoke checks failed")

type RunOptions struct {
	*SmokeOptions

	cfg     config.Config
	checks  []smoke.Check
	content []byte

	Only    string
	Cleanup bool
	Content string
}

var (
	runLong = templates.LongDesc(`
		Run the smoke checks against the configured bucket.

		The upload check writes a uniquely named text object and reads it back
		through its public URL. The list check prints the first entries of the
		bucket. Checks run in that order and are never retried. The command
		exits non-zero if any check fails.`)

	runExample = templates.Examples(`
		# Run every check
		smoke run

		# Only list the bucket
		smoke run --only list

		# Upload an empty object and delete it afterwards
		smoke run --only upload --content "" --cleanup`)
)

func NewRunOptions(parent *SmokeOptions) *RunOptions {
	return &RunOptions{
		SmokeOptions: parent,
	}
}

func NewRunCommand(o *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "run",
		DisableFlagsInUseLine: true,
		Short:                 "Run the smoke checks once",
		Long:                  runLong,
		Example:               runExample,
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

	cmd.Flags().StringVar(&o.Only, "only", "", "Run a single check: upload or list")
	cmd.Flags().BoolVar(&o.Cleanup, "cleanup", false, "Delete the uploaded object after reading it back")
	cmd.Flags().StringVar(&o.Content, "content", "", "Upload this body instead of the generated one")

	return cmd
}

func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("cleanup") {
		cfg.Cleanup = o.Cleanup
	}
	o.cfg = cfg

	if o.Only != "" {
		check, err := smoke.ParseCheck(o.Only)
		if err != nil {
			return err
		}
		o.checks = []smoke.Check{check}
	}
	if cmd.Flags().Changed("content") {
		o.content = []byte(o.Content)
	}
	return nil
}

func (o *RunOptions) Validate() error {
	if err := o.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (o *RunOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := newTester(ctx, o.cfg, o.content, o.ErrOut)
	if err != nil {
		return err
	}
	defer deps.close()

	report := deps.tester.Run(ctx, o.checks...)
	report.Print(o.Out)

	if report.Failed() {
		return errChecksFailed
	}
	return nil
}
