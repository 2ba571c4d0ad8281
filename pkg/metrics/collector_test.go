package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ingenimax/agent-graph-go/pkg/graph"
	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

type testState struct {
	Visited []string
}

func (s testState) Clone() testState {
	return testState{Visited: append([]string(nil), s.Visited...)}
}

func (s testState) Merge(p string) testState {
	out := s.Clone()
	out.Visited = append(out.Visited, p)
	return out
}

func node(name string, err error) graph.Handler[testState, string] {
	return graph.HandlerFunc[testState, string](func(ctx context.Context, s testState) (string, error) {
		return name, err
	})
}

func TestCollectorObservesGraph(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector("test", reg)

	g := graph.NewStateGraph[testState, string]("campaign")
	require.NoError(t, g.AddNode("a", node("a", nil)))
	require.NoError(t, g.AddNode("b", node("b", errors.New("down"))))
	require.NoError(t, g.AddNode("c", node("c", nil)))
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.SetEntryPoint("a")

	runnable, err := g.Compile(graph.WithObserver(collector), graph.WithLogger(logging.NewNop()))
	require.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), testState{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.nodeVisitsTotal.WithLabelValues("campaign", "a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.nodeVisitsTotal.WithLabelValues("campaign", "c")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.nodeFailuresTotal.WithLabelValues("campaign", "b")))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.nodeFailuresTotal.WithLabelValues("campaign", "a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.graphRunsTotal.WithLabelValues("campaign", "success")))
	assert.Equal(t, 3, testutil.CollectAndCount(collector.nodeDuration))
}

func TestCollectorGraphRunOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector("", reg)

	collector.OnGraphEnd(context.Background(), "g", 2, nil)
	collector.OnGraphEnd(context.Background(), "g", 25, graph.ErrMaxStepsExceeded)

	expected := `
# HELP agent_graph_graph_runs_total Total number of graph runs by outcome
# TYPE agent_graph_graph_runs_total counter
agent_graph_graph_runs_total{graph="g",status="error"} 1
agent_graph_graph_runs_total{graph="g",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "agent_graph_graph_runs_total"))
}

type fakeLLM struct {
	err error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	return "ok", f.err
}

func (f *fakeLLM) Name() string { return "fake" }

func TestInstrumentLLM(t *testing.T) {
	collector := NewCollector("test", prometheus.NewRegistry())

	ok := collector.InstrumentLLM(&fakeLLM{})
	failing := collector.InstrumentLLM(&fakeLLM{err: errors.New("down")})

	out, err := ok.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	_, err = failing.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "fake", ok.Name())

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("fake", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("fake", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.llmRequestDuration))
}

type modelLLM struct {
	fakeLLM
}

func (m *modelLLM) GetModel() string { return "gpt-4o-mini" }

func TestInstrumentLLMForwardsModel(t *testing.T) {
	collector := NewCollector("test", prometheus.NewRegistry())

	withModel := collector.InstrumentLLM(&modelLLM{}).(interface{ GetModel() string })
	assert.Equal(t, "gpt-4o-mini", withModel.GetModel())

	withoutModel := collector.InstrumentLLM(&fakeLLM{}).(interface{ GetModel() string })
	assert.Empty(t, withoutModel.GetModel())
}

func TestCollectorNodeDuration(t *testing.T) {
	collector := NewCollector("test", prometheus.NewRegistry())
	collector.OnNodeEnd(context.Background(), "g", "n", 0, nil, 250*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(collector.nodeDuration))
}
