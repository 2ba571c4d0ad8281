package interfaces

import "context"

// LLM represents a large language model provider
type LLM interface {
	// Generate generates text based on the provided prompt
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (string, error)

	// Name returns the name of the LLM provider
	Name() string
}

// GenerateOption represents options for text generation
type GenerateOption func(options *GenerateOptions)

// GenerateOptions contains configuration for text generation
type GenerateOptions struct {
	LLMConfig     *LLMConfig // LLM config for the generation
	SystemMessage string     // System message for chat models
	MaxTokens     int        // Maximum tokens in the response (0 = provider default)
}

type LLMConfig struct {
	Temperature   float64  // Temperature for the generation
	TopP          float64  // Top P for the generation
	StopSequences []string // Stop sequences for the generation
}

// ApplyGenerateOptions folds options into a GenerateOptions value
func ApplyGenerateOptions(options ...GenerateOption) *GenerateOptions {
	opts := &GenerateOptions{}
	for _, option := range options {
		option(opts)
	}
	return opts
}

// WithSystemMessage creates a GenerateOption to set the system message
func WithSystemMessage(systemMessage string) GenerateOption {
	return func(options *GenerateOptions) {
		options.SystemMessage = systemMessage
	}
}

// WithMaxTokens creates a GenerateOption to cap the response length
func WithMaxTokens(maxTokens int) GenerateOption {
	return func(options *GenerateOptions) {
		options.MaxTokens = maxTokens
	}
}

// WithTemperature creates a GenerateOption to set the temperature
func WithTemperature(temperature float64) GenerateOption {
	return func(options *GenerateOptions) {
		if options.LLMConfig == nil {
			options.LLMConfig = &LLMConfig{}
		}
		options.LLMConfig.Temperature = temperature
	}
}

// WithTopP creates a GenerateOption to set the top_p
func WithTopP(topP float64) GenerateOption {
	return func(options *GenerateOptions) {
		if options.LLMConfig == nil {
			options.LLMConfig = &LLMConfig{}
		}
		options.LLMConfig.TopP = topP
	}
}

// WithStopSequences creates a GenerateOption to set the stop sequences
func WithStopSequences(stopSequences []string) GenerateOption {
	return func(options *GenerateOptions) {
		if options.LLMConfig == nil {
			options.LLMConfig = &LLMConfig{}
		}
		options.LLMConfig.StopSequences = stopSequences
	}
}
