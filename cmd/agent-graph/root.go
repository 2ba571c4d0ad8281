package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent-graph",
		Short: "Run LLM agents as a workflow graph",
		Long: `agent-graph wires the agents of an agents.yaml file into a workflow.
The run command chains them in a fixed order; the route command lets an LLM
router pick the next agent after every step.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file (yaml, json or toml)")
	flags.StringSlice("env-file", nil, "Env files to load (default .env)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("store", "memory", "Run store (memory, redis, postgres)")
	flags.String("metrics-addr", "", "Serve prometheus metrics on this address while running")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newRouteCmd())
	cmd.AddCommand(newRunsCmd())
	return cmd
}

// workflowFlags registers the flags shared by the run and route commands
func workflowFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("agents", "a", "agents.yaml", "Agent definitions file")
	flags.StringToString("var", nil, "Template variables for agent prompts (key=value)")
	flags.String("name", "", "Workflow name recorded with the run")
	flags.String("title", "", "Report title")
	flags.String("provider", "", "Default LLM provider (openai, gemini, bedrock)")
	flags.String("model", "", "Default LLM model")
	flags.Int("max-steps", 0, "Maximum node executions per run")
	flags.String("error-policy", "", "What to do after a failed node (continue, halt, route)")
	flags.String("error-target", "", "Node to jump to under the route error policy")
	flags.Bool("json", false, "Print the run record as JSON instead of the report")
}
