package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = "anthropic.claude-3-5-haiku-20241022-v1:0"

	// DefaultMaxTokens is sent when the caller does not cap the response
	DefaultMaxTokens = 1024

	anthropicVersion = "bedrock-2023-05-31"
)

// InvokeModelAPI is the part of the Bedrock runtime client used by Client
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client implements interfaces.LLM with Anthropic models on AWS Bedrock
type Client struct {
	api    InvokeModelAPI
	model  string
	region string
	logger logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithModel sets the Bedrock model ID
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithRegion sets the AWS region used when loading the default AWS config
func WithRegion(region string) Option {
	return func(c *Client) {
		c.region = region
	}
}

// WithAPI injects the runtime client, mostly for tests
func WithAPI(api InvokeModelAPI) Option {
	return func(c *Client) {
		c.api = api
	}
}

// WithLogger sets the client logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Bedrock client. Credentials come from the default AWS
// chain unless a runtime client is injected with WithAPI.
func NewClient(ctx context.Context, options ...Option) (*Client, error) {
	c := &Client{
		model:  DefaultModel,
		logger: logging.New(logging.WithComponent("bedrock")),
	}
	for _, option := range options {
		option(c)
	}
	if c.api != nil {
		return c, nil
	}

	var loadOptions []func(*awsconfig.LoadOptions) error
	if c.region != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(c.region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, errors.New("region is required for Bedrock")
	}
	return NewClientWithAWSConfig(awsCfg, options...), nil
}

// NewClientWithAWSConfig creates a Bedrock client from an existing AWS config
func NewClientWithAWSConfig(awsCfg aws.Config, options ...Option) *Client {
	c := &Client{
		model:  DefaultModel,
		logger: logging.New(logging.WithComponent("bedrock")),
	}
	for _, option := range options {
		option(c)
	}
	c.region = awsCfg.Region
	if c.api == nil {
		c.api = bedrockruntime.NewFromConfig(awsCfg)
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	TopP             float64   `json:"top_p,omitempty"`
	StopSequences    []string  `json:"stop_sequences,omitempty"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Name implements interfaces.LLM
func (c *Client) Name() string {
	return "bedrock"
}

// GetModel returns the configured model ID
func (c *Client) GetModel() string {
	return c.model
}

// Generate implements interfaces.LLM
func (c *Client) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	body, err := json.Marshal(c.buildRequest(prompt, interfaces.ApplyGenerateOptions(options...)))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Debug(ctx, "Invoking Bedrock model", map[string]interface{}{
		"modelID":     c.model,
		"region":      c.region,
		"requestSize": len(body),
	})

	output, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		c.logger.Error(ctx, "Failed to invoke Bedrock model", map[string]interface{}{
			"error":   err.Error(),
			"modelID": c.model,
			"region":  c.region,
		})
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	var resp response
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse Bedrock response: %w", err)
	}

	c.logger.Debug(ctx, "Received Bedrock response", map[string]interface{}{
		"modelID":      c.model,
		"stopReason":   resp.StopReason,
		"inputTokens":  resp.Usage.InputTokens,
		"outputTokens": resp.Usage.OutputTokens,
	})

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("no text content in Bedrock response")
	}
	return text.String(), nil
}

func (c *Client) buildRequest(prompt string, opts *interfaces.GenerateOptions) request {
	req := request{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        DefaultMaxTokens,
		System:           opts.SystemMessage,
		Messages:         []message{{Role: "user", Content: prompt}},
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.LLMConfig != nil {
		temperature := opts.LLMConfig.Temperature
		req.Temperature = &temperature
		req.TopP = opts.LLMConfig.TopP
		req.StopSequences = opts.LLMConfig.StopSequences
	}
	return req
}

var _ interfaces.LLM = (*Client)(nil)
