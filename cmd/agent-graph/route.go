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

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route [flags] <input>",
		Short: "Let an LLM router pick which agent runs next",
		Long: `Route puts every agent of the definitions file behind a router. After
each step the router asks the default LLM which agent should run next, or
whether the request is complete.`,
		Example: `  agent-graph route -a agents.yaml --start seo "Launch plan for our new running shoe"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRouted(ctx, cmd, strings.Join(args, " "))
		},
	}
	workflowFlags(cmd)
	cmd.Flags().String("start", "", "Agent that handles the request first (default: first agent by name)")
	return cmd
}

func runRouted(ctx context.Context, cmd *cobra.Command, input string) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	path, _ := cmd.Flags().GetString("agents")
	variables, _ := cmd.Flags().GetStringToString("var")
	start, _ := cmd.Flags().GetString("start")
	name, _ := cmd.Flags().GetString("name")
	asJSON, _ := cmd.Flags().GetBool("json")

	configs, registry, err := a.loadAgents(path, variables)
	if err != nil {
		return err
	}

	routerLLM, err := a.llm(nil)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	options, err := a.workflowOptions(name)
	if err != nil {
		return err
	}
	wf := workflow.NewDynamicWorkflowGraph(routerLLM, options...)
	for _, id := range configs.Names() {
		ag, err := registry.MustGet(id)
		if err != nil {
			return err
		}
		wf.AddAgent(id, ag, configs[id].Description())
	}
	if start != "" {
		wf.SetStartAgent(start)
	}

	compiled, err := wf.Compile()
	if err != nil {
		return fmt.Errorf("failed to build workflow: %w", err)
	}
	return a.execute(ctx, compiled, input, asJSON)
}
