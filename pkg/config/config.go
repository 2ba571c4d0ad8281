// Package config loads agent-graph settings from defaults, an optional
// config file, .env files and AGENT_GRAPH_ environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Ingenimax/agent-graph-go/pkg/graph"
)

// EnvPrefix is the prefix of every environment variable read by Load
const EnvPrefix = "AGENT_GRAPH"

// Config is the full application configuration
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Store    StoreConfig    `mapstructure:"store"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LLMConfig selects the model used by agents without their own llm block
// and by the router
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Region      string  `mapstructure:"region"`
	Temperature float64 `mapstructure:"temperature"`
}

// WorkflowConfig holds graph execution settings
type WorkflowConfig struct {
	MaxSteps    int    `mapstructure:"max_steps"`
	ErrorPolicy string `mapstructure:"error_policy"`
	ErrorTarget string `mapstructure:"error_target"`
	ReportTitle string `mapstructure:"report_title"`
}

// StoreConfig selects where run records are kept
type StoreConfig struct {
	Type     string         `mapstructure:"type"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig configures the redis run store
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PostgresConfig configures the postgres run store
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// TracingConfig configures OTLP trace export
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// MetricsConfig configures the prometheus listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// providerKeys maps providers to the conventional variables holding their keys
var providerKeys = map[string]string{
	"openai": "OPENAI_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// Option configures Load
type Option func(*loader)

type loader struct {
	configFile string
	envFiles   []string
	flags      map[string]*pflag.Flag
}

// WithConfigFile reads settings from a YAML, JSON or TOML file
func WithConfigFile(path string) Option {
	return func(l *loader) {
		l.configFile = path
	}
}

// WithEnvFiles loads .env files before reading the environment.
// Load reads ".env" from the working directory when none are given.
func WithEnvFiles(paths ...string) Option {
	return func(l *loader) {
		l.envFiles = append(l.envFiles, paths...)
	}
}

// WithFlag binds a command line flag to key. A flag that was set on the
// command line wins over every other source.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(l *loader) {
		if flag == nil {
			return
		}
		if l.flags == nil {
			l.flags = make(map[string]*pflag.Flag)
		}
		l.flags[key] = flag
	}
}

// New returns a viper instance with defaults and environment binding set up
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.region", "")
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("workflow.max_steps", graph.DefaultMaxSteps)
	v.SetDefault("workflow.error_policy", string(graph.ErrorModeContinue))
	v.SetDefault("workflow.error_target", "")
	v.SetDefault("workflow.report_title", "Workflow Results")

	v.SetDefault("store.type", "memory")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "agent_graph:")
	v.SetDefault("store.redis.ttl", 7*24*time.Hour)
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.table", "workflow_runs")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "agent-graph")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("metrics.addr", "")
}

// Load builds a Config from defaults, the optional config file, .env files
// and the environment
func Load(options ...Option) (*Config, error) {
	l := &loader{}
	for _, option := range options {
		option(l)
	}
	if len(l.envFiles) == 0 {
		l.envFiles = []string{".env"}
	}

	for _, path := range l.envFiles {
		if err := LoadEnvFile(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	exportEnvCache()

	v := New()
	for key, flag := range l.flags {
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates a Config from v. Commands use it after
// binding their flags into v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.APIKey == "" {
		if key, ok := providerKeys[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = GetEnvValue(key)
		}
	}
	if cfg.LLM.Region == "" && cfg.LLM.Provider == "bedrock" {
		cfg.LLM.Region = GetEnvValue("AWS_REGION")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be caught by decoding
func (c *Config) Validate() error {
	var errs []error

	if c.Workflow.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("workflow.max_steps must not be negative, got %d", c.Workflow.MaxSteps))
	}
	if _, err := c.Workflow.GraphErrorPolicy(); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Type {
	case "memory", "redis":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			errs = append(errs, errors.New("store.postgres.dsn is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store type: %s (supported: memory, redis, postgres)", c.Store.Type))
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", c.Tracing.SampleRatio))
	}

	return errors.Join(errs...)
}

// GraphErrorPolicy converts the configured policy name into a graph.ErrorPolicy
func (w WorkflowConfig) GraphErrorPolicy() (graph.ErrorPolicy, error) {
	switch graph.ErrorMode(strings.ToLower(w.ErrorPolicy)) {
	case "", graph.ErrorModeContinue:
		return graph.ContinueOnError(), nil
	case graph.ErrorModeHalt:
		return graph.HaltOnError(), nil
	case graph.ErrorModeRoute:
		if w.ErrorTarget == "" {
			return graph.ErrorPolicy{}, errors.New("workflow.error_target is required for the route error policy")
		}
		return graph.RouteOnError(w.ErrorTarget), nil
	default:
		return graph.ErrorPolicy{}, fmt.Errorf("unsupported error policy: %s (supported: continue, halt, route)", w.ErrorPolicy)
	}
}
