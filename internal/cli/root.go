// Package cli implements the fallbackctl commands.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jzx17/gofallback/internal/adapter/openai"
	"github.com/jzx17/gofallback/internal/config"
	"github.com/jzx17/gofallback/internal/logging"
	"github.com/jzx17/gofallback/pkg/pipeline"
	"github.com/jzx17/gofallback/pkg/types"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config    string
	Verbose   bool
	LogFormat string // "json" | "console"
}

// ValidLogFormats defines the allowed log formats.
var ValidLogFormats = []string{logging.FormatJSON, logging.FormatConsole}

// NewRootCommand creates the root command for fallbackctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fallbackctl",
		Short: "Run chat completions through a retry and fallback pipeline",
		Long: `fallbackctl sends chat completions for a target model through an ordered
pipeline of provider/credential nodes. Each node retries transient failures
on its wait sequence before the next node is tried.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidLogFormats, opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, ValidLogFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "fallback.yaml", "path to the routing configuration")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", logging.FormatConsole, "log format (json|console)")

	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))

	return cmd
}

func (o *RootOptions) logger() (*zap.Logger, error) {
	level := "info"
	if o.Verbose {
		level = "debug"
	}
	return logging.New(level, o.LogFormat)
}

type chatExecutor = pipeline.Executor[*openai.ChatRequest, *openai.ChatResponse]

// newExecutor wires the configuration into an adapter and executor
func newExecutor(cfg *config.Config, logger *zap.Logger) (*chatExecutor, error) {
	clock := types.NewRealClock()

	client, err := openai.New(openai.Config{
		PrimaryProvider:   cfg.Primary.Provider,
		PrimaryBaseURL:    cfg.Primary.BaseURL,
		SecondaryBaseURL:  cfg.Secondary.BaseURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		Logger:            logger.Named("adapter"),
		Clock:             clock,
	})
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithClock(clock),
		pipeline.WithBatchWorkers(cfg.BatchWorkers),
	}
	if cfg.Retry.RetryAfterCap > 0 {
		opts = append(opts, pipeline.WithRetryAfterCap(cfg.Retry.RetryAfterCap))
	}

	return pipeline.NewExecutor[*openai.ChatRequest, *openai.ChatResponse](cfg.Routing(), client, opts...), nil
}
