package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/storage-smoke/internal/config"
)

var (
	rootLong = templates.LongDesc(`
		Smoke-test an object-storage bucket.

		The endpoint, bucket and credentials are read from an optional YAML
		file and SMOKE_* environment variables. Credentials are never accepted
		as flags.`)

	rootExamples = templates.Examples(`
		# Run every check against a Supabase project
		SMOKE_BASE_URL=https://project.supabase.co SMOKE_TOKEN=... smoke run

		# Serve smoke runs over HTTP
		smoke serve --config smoke.yaml`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// SmokeOptions defines the options shared by every `smoke` command.
type SmokeOptions struct {
	ConfigPath string
	Backend    string
	BaseURL    string
	Bucket     string
	Timeout    time.Duration
	LogLevel   string

	iooption.IOStreams
}

// NewSmokeOptions provides an initialised SmokeOptions instance.
func NewSmokeOptions(streams iooption.IOStreams) *SmokeOptions {
	return &SmokeOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `smoke` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewSmokeOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `smoke` command and its nested
// children.
func NewRootCommandWithArgs(o *SmokeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "smoke [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Object-storage smoke tester",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	pflags := cmd.PersistentFlags()

	pflags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to a YAML configuration file")
	pflags.StringVar(&o.Backend, "backend", string(config.BackendSupabase), "Storage backend: supabase, gcs, minio or local")
	pflags.StringVar(&o.BaseURL, "base-url", "", "Storage API base URL (supabase backend)")
	pflags.StringVarP(&o.Bucket, "bucket", "b", config.DefaultBucket, "Bucket to test")
	pflags.DurationVarP(&o.Timeout, "timeout", "t", config.DefaultTimeout, "Timeout for each network call")
	pflags.StringVar(&o.LogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")

	cmd.AddCommand(NewRunCommand(NewRunOptions(o)))
	cmd.AddCommand(NewServeCommand(NewServeOptions(o)))

	// The global normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary and warning
	// about it.
	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	return cmd
}

// loadConfig layers the flags the user set explicitly over the file and
// environment configuration.
func (o *SmokeOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = config.Backend(o.Backend)
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = o.BaseURL
	}
	if flags.Changed("bucket") {
		cfg.Bucket = o.Bucket
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.Timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}
	return cfg, nil
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
