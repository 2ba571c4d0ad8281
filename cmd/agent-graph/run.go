package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ingenimax/agent-graph-go/pkg/workflow"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] <input>",
		Short: "Run agents one after another and print the report",
		Long: `Run chains the agents given by --chain (default: every agent of the
definitions file in name order). Each agent receives the original input and
the final report previews every step.`,
		Example: `  agent-graph run -a agents.yaml --chain seo,copy,review "Launch plan for our new running shoe"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runChain(ctx, cmd, strings.Join(args, " "))
		},
	}
	workflowFlags(cmd)
	cmd.Flags().StringSlice("chain", nil, "Agents to run, in order")
	return cmd
}

func runChain(ctx context.Context, cmd *cobra.Command, input string) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	path, _ := cmd.Flags().GetString("agents")
	variables, _ := cmd.Flags().GetStringToString("var")
	chain, _ := cmd.Flags().GetStringSlice("chain")
	name, _ := cmd.Flags().GetString("name")
	asJSON, _ := cmd.Flags().GetBool("json")

	configs, registry, err := a.loadAgents(path, variables)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		chain = configs.Names()
	}

	options, err := a.workflowOptions(name)
	if err != nil {
		return err
	}
	wf := workflow.NewMarketingWorkflowGraph(options...)
	for i, id := range chain {
		ag, err := registry.MustGet(id)
		if err != nil {
			return err
		}
		wf.AddAgent(id, ag)
		if i > 0 {
			wf.AddEdge(chain[i-1], id)
		}
	}
	wf.SetOutputNode(chain[len(chain)-1])

	compiled, err := wf.Compile()
	if err != nil {
		return fmt.Errorf("failed to build workflow: %w", err)
	}
	return a.execute(ctx, compiled, input, asJSON)
}
