package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jzx17/gofallback/internal/config"
	"github.com/jzx17/gofallback/pkg/pipeline"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <target>",
		Short: "Print the node order for a target",
		Long: `Print the attempt nodes a target resolves to, in the order they are tried,
together with the retry wait sequence each node uses. Nothing is sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runPlan(opts *RootOptions, target string, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}

	nodes, err := pipeline.Plan(target, cfg.Routing())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "target %s: %d node(s), waits %v\n", target, len(nodes), cfg.Waits())
	for _, n := range nodes {
		fmt.Fprintf(out, "  %d  %-20s %-16s %s\n", n.ID.Index, n.ID.Provider, n.ID.Credential, n.Credential.Class)
	}
	return nil
}
