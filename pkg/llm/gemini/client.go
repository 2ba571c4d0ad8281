package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash"

// Client implements interfaces.LLM with the Gemini API or Vertex AI
type Client struct {
	genaiClient *genai.Client
	model       string
	apiKey      string
	backend     genai.Backend
	projectID   string
	location    string
	baseURL     string
	logger      logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithModel sets the model name
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithAPIKey sets the Gemini API key
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithBackend selects the Gemini API or Vertex AI backend
func WithBackend(backend genai.Backend) Option {
	return func(c *Client) {
		c.backend = backend
	}
}

// WithProjectID sets the GCP project and switches to the Vertex AI backend
func WithProjectID(projectID string) Option {
	return func(c *Client) {
		c.projectID = projectID
		c.backend = genai.BackendVertexAI
	}
}

// WithLocation sets the Vertex AI location
func WithLocation(location string) Option {
	return func(c *Client) {
		c.location = location
	}
}

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithClient injects an already initialized genai.Client
func WithClient(existing *genai.Client) Option {
	return func(c *Client) {
		c.genaiClient = existing
	}
}

// WithLogger sets the client logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Gemini client
func NewClient(ctx context.Context, options ...Option) (*Client, error) {
	c := &Client{
		model:    DefaultModel,
		backend:  genai.BackendGeminiAPI,
		location: "us-central1",
		logger:   logging.New(logging.WithComponent("gemini")),
	}
	for _, option := range options {
		option(c)
	}

	if c.genaiClient != nil {
		return c, nil
	}

	clientConfig := &genai.ClientConfig{
		Backend: c.backend,
	}
	switch c.backend {
	case genai.BackendVertexAI:
		if c.projectID == "" {
			return nil, errors.New("project ID is required for Vertex AI backend")
		}
		clientConfig.Project = c.projectID
		clientConfig.Location = c.location
	default:
		if c.apiKey == "" {
			return nil, errors.New("API key is required for Gemini API backend")
		}
		clientConfig.APIKey = c.apiKey
	}
	if c.baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genaiClient = client
	return c, nil
}

// Name implements interfaces.LLM
func (c *Client) Name() string {
	return "gemini"
}

// GetModel returns the configured model
func (c *Client) GetModel() string {
	return c.model
}

// Generate implements interfaces.LLM
func (c *Client) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	opts := interfaces.ApplyGenerateOptions(options...)

	config := &genai.GenerateContentConfig{}
	if opts.SystemMessage != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.SystemMessage, genai.RoleUser)
	}
	if opts.LLMConfig != nil {
		config.Temperature = genai.Ptr(float32(opts.LLMConfig.Temperature))
		if opts.LLMConfig.TopP > 0 {
			config.TopP = genai.Ptr(float32(opts.LLMConfig.TopP))
		}
		config.StopSequences = opts.LLMConfig.StopSequences
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}

	c.logger.Debug(ctx, "Generating content", map[string]interface{}{
		"model":         c.model,
		"prompt_length": len(prompt),
	})

	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		c.logger.Error(ctx, "Content generation failed", map[string]interface{}{
			"model": c.model,
			"error": err.Error(),
		})
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned")
	}
	return resp.Text(), nil
}

var _ interfaces.LLM = (*Client)(nil)
