package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

// DefaultModel is used when no model is configured
const DefaultModel = string(openai.ChatModelGPT4oMini)

// Client implements interfaces.LLM with the OpenAI chat completions API
type Client struct {
	client     openai.Client
	model      string
	baseURL    string
	maxRetries int
	logger     logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithModel sets the chat model
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL points the client at an OpenAI compatible endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithMaxRetries sets how often failed requests are retried
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithLogger sets the client logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an OpenAI client
func NewClient(apiKey string, options ...Option) *Client {
	c := &Client{
		model:      DefaultModel,
		maxRetries: 2,
		logger:     logging.New(logging.WithComponent("openai")),
	}
	for _, option := range options {
		option(c)
	}

	requestOptions := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(c.maxRetries),
	}
	if c.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(c.baseURL))
	}
	c.client = openai.NewClient(requestOptions...)
	return c
}

// Name implements interfaces.LLM
func (c *Client) Name() string {
	return "openai"
}

// GetModel returns the configured model
func (c *Client) GetModel() string {
	return c.model
}

// Generate implements interfaces.LLM
func (c *Client) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	opts := interfaces.ApplyGenerateOptions(options...)

	var messages []openai.ChatCompletionMessageParamUnion
	if opts.SystemMessage != "" {
		messages = append(messages, openai.SystemMessage(opts.SystemMessage))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if opts.LLMConfig != nil {
		params.Temperature = openai.Float(opts.LLMConfig.Temperature)
		if opts.LLMConfig.TopP > 0 {
			params.TopP = openai.Float(opts.LLMConfig.TopP)
		}
		if len(opts.LLMConfig.StopSequences) > 0 {
			params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.LLMConfig.StopSequences}
		}
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}

	c.logger.Debug(ctx, "Creating chat completion", map[string]interface{}{
		"model":         c.model,
		"prompt_length": len(prompt),
	})

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Error(ctx, "Chat completion failed", map[string]interface{}{
			"model": c.model,
			"error": err.Error(),
		})
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ interfaces.LLM = (*Client)(nil)
