package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jzx17/gofallback/internal/adapter/openai"
	"github.com/jzx17/gofallback/internal/config"
	"github.com/jzx17/gofallback/pkg/pipeline"
)

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <target> <prompt> [prompt...]",
		Short: "Send several prompts concurrently",
		Long: `Send each prompt as an independent execution against the target, using
batch_workers concurrent executions. Results are printed in prompt order.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runBatch(opts *RootOptions, target string, prompts []string, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	logger, err := opts.logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	exec, err := newExecutor(cfg, logger)
	if err != nil {
		return err
	}

	reqs := make([]pipeline.Request[*openai.ChatRequest], len(prompts))
	for i, p := range prompts {
		reqs[i] = pipeline.Request[*openai.ChatRequest]{Target: target, Payload: openai.NewChatRequest(p)}
	}

	failed := 0
	out := cmd.OutOrStdout()
	for _, res := range exec.ExecuteBatch(cmd.Context(), reqs) {
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "[%d] error: %v\n", res.Index, res.Err)
			continue
		}
		fmt.Fprintf(out, "[%d] %s (%s)\n", res.Index, res.Outcome.Value.Content(), res.Outcome.Node)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d prompt(s) failed", failed, len(prompts))
	}
	return nil
}
