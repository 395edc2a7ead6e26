package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jzx17/gofallback/internal/adapter/openai"
	"github.com/jzx17/gofallback/internal/config"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <target> <prompt>",
		Short: "Send one prompt through the target's pipeline",
		Long: `Send a single-turn chat completion for the target. The reply is written to
stdout; the serving node and attempt counts go to stderr.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, args[0], strings.Join(args[1:], " "), cmd)
		},
	}

	return cmd
}

func runRun(opts *RootOptions, target, prompt string, cmd *cobra.Command) error {
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

	out, err := exec.Execute(cmd.Context(), target, openai.NewChatRequest(prompt))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), out.Value.Content())
	fmt.Fprintf(cmd.ErrOrStderr(), "served by %s after %d node(s), %d attempt(s)\n",
		out.Node, out.NodesAttempted, out.Attempts)
	return nil
}
