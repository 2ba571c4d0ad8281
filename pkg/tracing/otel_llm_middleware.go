package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
)

const tracerName = "github.com/Ingenimax/agent-graph-go/pkg/tracing"

// OTELLLMMiddleware wraps an LLM so every Generate call gets its own span
type OTELLLMMiddleware struct {
	llm    interfaces.LLM
	tracer trace.Tracer
}

// NewOTELLLMMiddleware wraps llm. A nil tracer uses the global provider.
func NewOTELLLMMiddleware(llm interfaces.LLM, tracer trace.Tracer) *OTELLLMMiddleware {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &OTELLLMMiddleware{
		llm:    llm,
		tracer: tracer,
	}
}

// Generate implements interfaces.LLM
func (m *OTELLLMMiddleware) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	model := m.llm.Name()
	if modelProvider, ok := m.llm.(interface{ GetModel() string }); ok && modelProvider.GetModel() != "" {
		model = modelProvider.GetModel()
	}

	opts := interfaces.ApplyGenerateOptions(options...)
	attrs := []attribute.KeyValue{
		attribute.String("llm.provider", m.llm.Name()),
		attribute.String("llm.model", model),
		attribute.Int("llm.prompt_length", len(prompt)),
		attribute.Bool("llm.system_message", opts.SystemMessage != ""),
	}
	if opts.LLMConfig != nil {
		attrs = append(attrs, attribute.Float64("llm.temperature", opts.LLMConfig.Temperature))
	}
	if opts.MaxTokens > 0 {
		attrs = append(attrs, attribute.Int("llm.max_tokens", opts.MaxTokens))
	}

	ctx, span := m.tracer.Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
	defer span.End()

	response, err := m.llm.Generate(ctx, prompt, options...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return response, err
	}

	span.SetAttributes(attribute.Int("llm.response_length", len(response)))
	return response, nil
}

// Name implements interfaces.LLM
func (m *OTELLLMMiddleware) Name() string {
	return m.llm.Name()
}

// Unwrap returns the wrapped LLM
func (m *OTELLLMMiddleware) Unwrap() interfaces.LLM {
	return m.llm
}

var _ interfaces.LLM = (*OTELLLMMiddleware)(nil)
