package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ingenimax/agent-graph-go/pkg/graph"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnvFile(t *testing.T) Option {
	return WithEnvFiles(filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, graph.DefaultMaxSteps, cfg.Workflow.MaxSteps)
	assert.Equal(t, "continue", cfg.Workflow.ErrorPolicy)
	assert.Equal(t, "Workflow Results", cfg.Workflow.ReportTitle)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "agent_graph:", cfg.Store.Redis.Prefix)
	assert.Equal(t, 7*24*time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "workflow_runs", cfg.Store.Postgres.Table)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("AGENT_GRAPH_LOG_LEVEL", "debug")
	t.Setenv("AGENT_GRAPH_LLM_PROVIDER", "Gemini")
	t.Setenv("AGENT_GRAPH_WORKFLOW_MAX_STEPS", "7")
	t.Setenv("AGENT_GRAPH_WORKFLOW_ERROR_POLICY", "halt")
	t.Setenv("AGENT_GRAPH_STORE_TYPE", "redis")
	t.Setenv("AGENT_GRAPH_STORE_REDIS_TTL", "90m")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, 7, cfg.Workflow.MaxSteps)
	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Equal(t, 90*time.Minute, cfg.Store.Redis.TTL)

	policy, err := cfg.Workflow.GraphErrorPolicy()
	require.NoError(t, err)
	assert.Equal(t, graph.HaltOnError(), policy)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "agent-graph.yaml", `
llm:
  provider: bedrock
  model: anthropic.claude-3-haiku
  region: eu-west-1
workflow:
  max_steps: 12
  error_policy: route
  error_target: output_formatter
store:
  type: postgres
  postgres:
    dsn: postgres://localhost/agents
`)

	cfg, err := Load(WithConfigFile(path), noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "bedrock", cfg.LLM.Provider)
	assert.Equal(t, "eu-west-1", cfg.LLM.Region)
	assert.Equal(t, 12, cfg.Workflow.MaxSteps)
	assert.Equal(t, "postgres://localhost/agents", cfg.Store.Postgres.DSN)

	policy, err := cfg.Workflow.GraphErrorPolicy()
	require.NoError(t, err)
	assert.Equal(t, graph.RouteOnError("output_formatter"), policy)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")), noEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "negative max steps",
			env:  map[string]string{"AGENT_GRAPH_WORKFLOW_MAX_STEPS": "-1"},
			want: "workflow.max_steps",
		},
		{
			name: "unknown error policy",
			env:  map[string]string{"AGENT_GRAPH_WORKFLOW_ERROR_POLICY": "retry"},
			want: "unsupported error policy",
		},
		{
			name: "route without target",
			env:  map[string]string{"AGENT_GRAPH_WORKFLOW_ERROR_POLICY": "route"},
			want: "workflow.error_target",
		},
		{
			name: "unknown store",
			env:  map[string]string{"AGENT_GRAPH_STORE_TYPE": "etcd"},
			want: "unsupported store type",
		},
		{
			name: "postgres without dsn",
			env:  map[string]string{"AGENT_GRAPH_STORE_TYPE": "postgres"},
			want: "store.postgres.dsn",
		},
		{
			name: "sample ratio out of range",
			env:  map[string]string{"AGENT_GRAPH_TRACING_SAMPLE_RATIO": "1.5"},
			want: "tracing.sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			_, err := Load(noEnvFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvFile(t *testing.T) {
	t.Cleanup(resetEnvCache)
	t.Setenv("AGENT_GRAPH_TEST_REAL", "from-process")

	path := writeFile(t, ".env", `
# comment
AGENT_GRAPH_TEST_QUOTED="quoted value"
export AGENT_GRAPH_TEST_EXPORTED=exported
AGENT_GRAPH_TEST_REAL=from-file
not a pair
`)
	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, "quoted value", GetEnvValue("AGENT_GRAPH_TEST_QUOTED"))
	assert.Equal(t, "exported", GetEnvValue("AGENT_GRAPH_TEST_EXPORTED"))
	assert.Equal(t, "from-process", GetEnvValue("AGENT_GRAPH_TEST_REAL"))
	assert.Empty(t, GetEnvValue("AGENT_GRAPH_TEST_MISSING"))
	assert.Equal(t, "model=exported", ExpandEnv("model=${AGENT_GRAPH_TEST_EXPORTED}"))
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadReadsProviderKeyFromEnvFile(t *testing.T) {
	t.Cleanup(resetEnvCache)
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")

	path := writeFile(t, ".env", "OPENAI_API_KEY=sk-from-file\n")
	cfg, err := Load(WithEnvFiles(path))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.LLM.APIKey)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("AGENT_GRAPH_WORKFLOW_MAX_STEPS", "12")
	t.Setenv("AGENT_GRAPH_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-steps", 0, "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--max-steps", "3"}))

	cfg, err := Load(noEnvFile(t),
		WithFlag("workflow.max_steps", flags.Lookup("max-steps")),
		WithFlag("log_level", flags.Lookup("log-level")),
		WithFlag("metrics.addr", flags.Lookup("not-defined")),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workflow.MaxSteps)
	assert.Equal(t, "warn", cfg.LogLevel)
}
