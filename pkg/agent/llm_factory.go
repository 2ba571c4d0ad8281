package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ingenimax/agent-graph-go/pkg/config"
	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/llm/bedrock"
	"github.com/Ingenimax/agent-graph-go/pkg/llm/gemini"
	"github.com/Ingenimax/agent-graph-go/pkg/llm/openai"
)

// NewLLMFromConfig creates an LLM client from a YAML llm block
func NewLLMFromConfig(cfg *LLMProviderYAML) (interfaces.LLM, error) {
	if cfg == nil || cfg.Provider == "" {
		return nil, fmt.Errorf("LLM provider configuration is required")
	}

	switch provider := strings.ToLower(cfg.Provider); provider {
	case "openai":
		return createOpenAIClient(cfg)
	case "gemini":
		return createGeminiClient(cfg)
	case "bedrock":
		return createBedrockClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, gemini, bedrock)", provider)
	}
}

// LLMProviderFromSettings converts application settings into an llm block
func LLMProviderFromSettings(settings config.LLMConfig) *LLMProviderYAML {
	temperature := settings.Temperature
	cfg := &LLMProviderYAML{
		Provider:    settings.Provider,
		Model:       settings.Model,
		Temperature: &temperature,
		Config:      map[string]interface{}{},
	}
	if settings.APIKey != "" {
		cfg.Config["api_key"] = settings.APIKey
	}
	if settings.BaseURL != "" {
		cfg.Config["base_url"] = settings.BaseURL
	}
	if settings.Region != "" {
		cfg.Config["region"] = settings.Region
	}
	return cfg
}

func createOpenAIClient(cfg *LLMProviderYAML) (interfaces.LLM, error) {
	var options []openai.Option

	apiKey := getConfigString(cfg.Config, "api_key")
	if apiKey == "" {
		apiKey = config.GetEnvValue("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for OpenAI provider (set OPENAI_API_KEY or provide in config)")
	}

	if model := modelFromConfig(cfg, "OPENAI_MODEL"); model != "" {
		options = append(options, openai.WithModel(model))
	}
	if baseURL := getConfigString(cfg.Config, "base_url"); baseURL != "" {
		options = append(options, openai.WithBaseURL(baseURL))
	}

	return openai.NewClient(apiKey, options...), nil
}

func createGeminiClient(cfg *LLMProviderYAML) (interfaces.LLM, error) {
	var options []gemini.Option

	project := getConfigString(cfg.Config, "project")
	apiKey := getConfigString(cfg.Config, "api_key")
	if apiKey == "" {
		apiKey = config.GetEnvValue("GEMINI_API_KEY")
	}
	if apiKey == "" && project == "" {
		return nil, fmt.Errorf("api_key is required for Gemini provider (set GEMINI_API_KEY or provide in config)")
	}

	if project != "" {
		options = append(options, gemini.WithProjectID(project))
		if location := getConfigString(cfg.Config, "location"); location != "" {
			options = append(options, gemini.WithLocation(location))
		}
	} else {
		options = append(options, gemini.WithAPIKey(apiKey))
	}
	if model := modelFromConfig(cfg, "GEMINI_MODEL"); model != "" {
		options = append(options, gemini.WithModel(model))
	}
	if baseURL := getConfigString(cfg.Config, "base_url"); baseURL != "" {
		options = append(options, gemini.WithBaseURL(baseURL))
	}

	client, err := gemini.NewClient(context.Background(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

func createBedrockClient(cfg *LLMProviderYAML) (interfaces.LLM, error) {
	var options []bedrock.Option

	region := getConfigString(cfg.Config, "region")
	if region == "" {
		region = config.GetEnvValue("AWS_REGION")
	}
	if region != "" {
		options = append(options, bedrock.WithRegion(region))
	}
	if model := modelFromConfig(cfg, "BEDROCK_MODEL"); model != "" {
		options = append(options, bedrock.WithModel(model))
	}

	client, err := bedrock.NewClient(context.Background(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bedrock client: %w", err)
	}
	return client, nil
}

// modelFromConfig resolves the model from the block, its config map, then envKey
func modelFromConfig(cfg *LLMProviderYAML, envKey string) string {
	model := config.ExpandEnv(cfg.Model)
	if model == "" {
		model = getConfigString(cfg.Config, "model")
	}
	if model == "" {
		model = config.GetEnvValue(envKey)
	}
	return model
}

func getConfigString(values map[string]interface{}, key string) string {
	if values == nil {
		return ""
	}
	if value, exists := values[key]; exists {
		if str, ok := value.(string); ok {
			return config.ExpandEnv(str)
		}
	}
	return ""
}
