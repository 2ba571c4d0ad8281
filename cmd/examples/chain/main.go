package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Ingenimax/agent-graph-go/pkg/agent"
	"github.com/Ingenimax/agent-graph-go/pkg/config"
	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/llm/openai"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
	"github.com/Ingenimax/agent-graph-go/pkg/workflow"
)

func main() {
	log.Printf("Starting marketing campaign workflow")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.LLM.APIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	logger := logging.New(logging.WithLevel(cfg.LogLevel))
	llm := openai.NewClient(cfg.LLM.APIKey,
		openai.WithModel("gpt-4o-mini"),
		openai.WithLogger(logger),
	)
	log.Printf("OpenAI client initialized with model: %s", llm.GetModel())

	researcher := newAgent(llm, logger, "researcher",
		"You are a market researcher. Describe the target audience and three selling points.")
	copywriter := newAgent(llm, logger, "copywriter",
		"You are a copywriter. Write a short launch announcement for the request.")
	reviewer := newAgent(llm, logger, "reviewer",
		"You are a brand reviewer. Point out anything off-brand and suggest fixes.")
	translator := newAgent(llm, logger, "translator",
		"You translate launch copy into Spanish, keeping the tone.")

	// Requests that mention a Spanish-speaking market get a translation pass
	// before review.
	needsTranslation := func(ctx context.Context, state workflow.State) string {
		input := strings.ToLower(state.Input)
		if strings.Contains(input, "spanish") || strings.Contains(input, "mexico") {
			return "translator"
		}
		return "reviewer"
	}

	campaign := workflow.NewMarketingWorkflowGraph(
		workflow.WithName("launch_campaign"),
		workflow.WithReportTitle("Launch Campaign"),
		workflow.WithLogger(logger),
	).
		AddAgent("researcher", researcher).
		AddAgent("copywriter", copywriter).
		AddAgent("translator", translator).
		AddAgent("reviewer", reviewer).
		AddEdge("researcher", "copywriter").
		AddConditionalEdge("copywriter", needsTranslation, "reviewer").
		AddEdge("translator", "reviewer").
		SetOutputNode("reviewer")

	userInput := "Launch our lightweight trail running shoe in Mexico this spring."
	log.Printf("User input received: %s", userInput)

	state, err := campaign.Run(context.Background(), userInput)
	if err != nil {
		log.Fatalf("Workflow failed: %v", err)
	}
	if state.Error != "" {
		log.Printf("Workflow finished with a failed step: %s", state.Error)
	}

	fmt.Println(state.FinalOutput)
}

func newAgent(llm interfaces.LLM, logger logging.Logger, name, prompt string) interfaces.Agent {
	a, err := agent.NewAgent(
		agent.WithLLM(llm),
		agent.WithName(name),
		agent.WithSystemPrompt(prompt),
		agent.WithTemperature(0.7),
		agent.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create agent %s: %v", name, err)
	}
	return a
}
