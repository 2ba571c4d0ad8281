package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ingenimax/agent-graph-go/pkg/config"
	"github.com/Ingenimax/agent-graph-go/pkg/llm/bedrock"
	"github.com/Ingenimax/agent-graph-go/pkg/llm/gemini"
	"github.com/Ingenimax/agent-graph-go/pkg/llm/openai"
)

func TestNewLLMFromConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_MODEL", "gpt-env")
	t.Setenv("GEMINI_API_KEY", "gemini-env")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	t.Run("openai from environment", func(t *testing.T) {
		llm, err := NewLLMFromConfig(&LLMProviderYAML{Provider: "OpenAI"})
		require.NoError(t, err)
		client, ok := llm.(*openai.Client)
		require.True(t, ok)
		assert.Equal(t, "gpt-env", client.GetModel())
	})

	t.Run("openai model expanded from block", func(t *testing.T) {
		llm, err := NewLLMFromConfig(&LLMProviderYAML{
			Provider: "openai",
			Model:    "${OPENAI_MODEL}-mini",
			Config:   map[string]interface{}{"api_key": "sk-block", "base_url": "http://localhost:8080/v1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "gpt-env-mini", llm.(*openai.Client).GetModel())
	})

	t.Run("gemini", func(t *testing.T) {
		llm, err := NewLLMFromConfig(&LLMProviderYAML{Provider: "gemini", Model: "gemini-2.5-flash"})
		require.NoError(t, err)
		client, ok := llm.(*gemini.Client)
		require.True(t, ok)
		assert.Equal(t, "gemini-2.5-flash", client.GetModel())
	})

	t.Run("bedrock", func(t *testing.T) {
		llm, err := NewLLMFromConfig(&LLMProviderYAML{Provider: "bedrock"})
		require.NoError(t, err)
		client, ok := llm.(*bedrock.Client)
		require.True(t, ok)
		assert.Equal(t, bedrock.DefaultModel, client.GetModel())
	})
}

func TestNewLLMFromConfigErrors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	tests := []struct {
		name string
		cfg  *LLMProviderYAML
		want string
	}{
		{name: "nil", cfg: nil, want: "LLM provider configuration is required"},
		{name: "unknown provider", cfg: &LLMProviderYAML{Provider: "llama"}, want: "unsupported LLM provider: llama"},
		{name: "openai without key", cfg: &LLMProviderYAML{Provider: "openai"}, want: "api_key is required for OpenAI provider"},
		{name: "gemini without key", cfg: &LLMProviderYAML{Provider: "gemini"}, want: "api_key is required for Gemini provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMFromConfig(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLLMProviderFromSettings(t *testing.T) {
	cfg := LLMProviderFromSettings(config.LLMConfig{
		Provider:    "openai",
		Model:       "gpt-4o",
		APIKey:      "sk-test",
		BaseURL:     "http://proxy",
		Temperature: 0.4,
	})

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, 0.4, *cfg.Temperature)
	assert.Equal(t, "sk-test", cfg.Config["api_key"])
	assert.Equal(t, "http://proxy", cfg.Config["base_url"])
	assert.NotContains(t, cfg.Config, "region")

	llm, err := NewLLMFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", llm.Name())
}
