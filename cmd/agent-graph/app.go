package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Ingenimax/agent-graph-go/pkg/agent"
	"github.com/Ingenimax/agent-graph-go/pkg/config"
	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
	"github.com/Ingenimax/agent-graph-go/pkg/metrics"
	"github.com/Ingenimax/agent-graph-go/pkg/runstore"
	_ "github.com/Ingenimax/agent-graph-go/pkg/runstore/postgres"
	_ "github.com/Ingenimax/agent-graph-go/pkg/runstore/redis"
	"github.com/Ingenimax/agent-graph-go/pkg/tracing"
	"github.com/Ingenimax/agent-graph-go/pkg/workflow"
)

// app holds what every command needs once the config is loaded
type app struct {
	cfg       *config.Config
	logger    logging.Logger
	collector *metrics.Collector
	registry  *prometheus.Registry
	store     runstore.Store
	out       io.Writer

	defaultLLM interfaces.LLM
	closers    []func(context.Context) error
}

// flagKeys maps config keys to the flags that override them
var flagKeys = map[string]string{
	"log_level":             "log-level",
	"store.type":            "store",
	"metrics.addr":          "metrics-addr",
	"llm.provider":          "provider",
	"llm.model":             "model",
	"workflow.max_steps":    "max-steps",
	"workflow.error_policy": "error-policy",
	"workflow.error_target": "error-target",
	"workflow.report_title": "title",
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	envFiles, _ := flags.GetStringSlice("env-file")

	options := []config.Option{
		config.WithConfigFile(configFile),
		config.WithEnvFiles(envFiles...),
	}
	for key, name := range flagKeys {
		options = append(options, config.WithFlag(key, flags.Lookup(name)))
	}

	cfg, err := config.Load(options...)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logging.NewWithWriter(cmd.ErrOrStderr(), logging.WithLevel(cfg.LogLevel)),
		registry: prometheus.NewRegistry(),
		out:      cmd.OutOrStdout(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.collector = metrics.NewCollector("", a.registry)

	shutdown, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	if err := a.serveMetrics(); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	store, err := runstore.NewStoreFromConfig(ctx, cfg.Store)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("failed to open %s run store: %w", cfg.Store.Type, err)
	}
	a.store = store
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	return a, nil
}

func (a *app) serveMetrics() error {
	if a.cfg.Metrics.Addr == "" {
		return nil
	}

	listener, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Metrics.Addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(context.Background(), "Metrics server stopped", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
	a.logger.Info(context.Background(), "Metrics server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})

	a.closers = append(a.closers, server.Shutdown)
	return nil
}

// Close releases everything opened by newApp, newest first
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// instrument wraps llm with tracing and metrics
func (a *app) instrument(llm interfaces.LLM) interfaces.LLM {
	return tracing.NewOTELLLMMiddleware(a.collector.InstrumentLLM(llm), nil)
}

// llm returns the instrumented LLM for an agent's llm block, falling back to
// the application-wide provider settings when the block is absent
func (a *app) llm(block *agent.LLMProviderYAML) (interfaces.LLM, error) {
	if block != nil {
		llm, err := agent.NewLLMFromConfig(block)
		if err != nil {
			return nil, err
		}
		return a.instrument(llm), nil
	}

	if a.defaultLLM == nil {
		llm, err := agent.NewLLMFromConfig(agent.LLMProviderFromSettings(a.cfg.LLM))
		if err != nil {
			return nil, err
		}
		a.defaultLLM = a.instrument(llm)
	}
	return a.defaultLLM, nil
}

// loadAgents builds every agent of the definitions file into a registry
func (a *app) loadAgents(path string, variables map[string]string) (agent.AgentConfigs, *agent.Registry, error) {
	configs, err := agent.LoadAgentConfigsFromFile(path)
	if err != nil {
		return nil, nil, err
	}

	registry := agent.NewRegistry()
	for _, name := range configs.Names() {
		definition := configs[name]
		llm, err := a.llm(definition.LLM)
		if err != nil {
			return nil, nil, fmt.Errorf("agent %s: %w", name, err)
		}

		options := []agent.Option{agent.WithLLM(llm), agent.WithLogger(a.logger)}
		if definition.LLM == nil {
			options = append(options, agent.WithTemperature(a.cfg.LLM.Temperature))
		}
		built, err := agent.NewAgentFromConfig(name, configs, variables, options...)
		if err != nil {
			return nil, nil, err
		}
		registry.Register(name, built)
	}
	return configs, registry, nil
}

// workflowOptions translates the workflow settings into workflow options
func (a *app) workflowOptions(name string) ([]workflow.Option, error) {
	policy, err := a.cfg.Workflow.GraphErrorPolicy()
	if err != nil {
		return nil, err
	}
	return []workflow.Option{
		workflow.WithName(name),
		workflow.WithReportTitle(a.cfg.Workflow.ReportTitle),
		workflow.WithLogger(a.logger),
		workflow.WithMaxSteps(a.cfg.Workflow.MaxSteps),
		workflow.WithErrorPolicy(policy),
		workflow.WithObserver(a.collector),
	}, nil
}

// execute runs compiled with input, persists the run and prints the result
func (a *app) execute(ctx context.Context, compiled *workflow.CompiledWorkflow, input string, asJSON bool) error {
	initial := workflow.NewState(input)
	run := runstore.NewRun(compiled.Name(), initial)
	ctx = logging.ContextWithRunID(ctx, run.ID)

	if err := a.store.Save(ctx, run); err != nil {
		return err
	}

	a.logger.Info(ctx, "Starting workflow run", map[string]interface{}{
		"workflow": compiled.Name(),
	})
	final, runErr := compiled.Invoke(ctx, initial)
	run.Finish(final, runErr)

	if err := a.store.Save(ctx, run); err != nil {
		a.logger.Error(ctx, "Failed to persist run", map[string]interface{}{
			"error": err.Error(),
		})
		if runErr == nil {
			runErr = err
		}
	}

	a.logger.Info(ctx, "Workflow run finished", map[string]interface{}{
		"workflow": compiled.Name(),
		"status":   string(run.Status),
		"steps":    len(run.Steps),
	})

	if asJSON {
		if err := printJSON(a.out, run); err != nil {
			return err
		}
	} else if final.FinalOutput != "" {
		fmt.Fprintln(a.out, final.FinalOutput)
	}
	return runErr
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
