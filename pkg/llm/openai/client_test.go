package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature         *float64 `json:"temperature"`
	MaxCompletionTokens *int     `json:"max_completion_tokens"`
	Stop                []string `json:"stop"`
}

func newTestServer(t *testing.T, status int, body string, captured *chatRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [
    {"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "seo"}}
  ]
}`

func TestGenerate(t *testing.T) {
	var req chatRequest
	server := newTestServer(t, http.StatusOK, completionBody, &req)

	client := NewClient("test-key",
		WithBaseURL(server.URL),
		WithModel("gpt-4o-mini"),
		WithLogger(logging.NewNop()),
	)

	out, err := client.Generate(context.Background(), "who is next?",
		interfaces.WithSystemMessage("you route"),
		interfaces.WithTemperature(0),
		interfaces.WithMaxTokens(16),
		interfaces.WithStopSequences([]string{"\n"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "seo", out)

	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "you route", req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "who is next?", req.Messages[1].Content)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, *req.Temperature)
	require.NotNil(t, req.MaxCompletionTokens)
	assert.Equal(t, 16, *req.MaxCompletionTokens)
	assert.Equal(t, []string{"\n"}, req.Stop)
}

func TestGenerateOmitsUnsetOptions(t *testing.T) {
	var req chatRequest
	server := newTestServer(t, http.StatusOK, completionBody, &req)

	client := NewClient("test-key", WithBaseURL(server.URL), WithLogger(logging.NewNop()))
	_, err := client.Generate(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, req.Model)
	require.Len(t, req.Messages, 1)
	assert.Nil(t, req.Temperature)
	assert.Nil(t, req.MaxCompletionTokens)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		server := newTestServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, nil)
		client := NewClient("test-key", WithBaseURL(server.URL), WithMaxRetries(0), WithLogger(logging.NewNop()))

		_, err := client.Generate(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create chat completion")
	})

	t.Run("no choices", func(t *testing.T) {
		server := newTestServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil)
		client := NewClient("test-key", WithBaseURL(server.URL), WithLogger(logging.NewNop()))

		_, err := client.Generate(context.Background(), "hello")
		require.EqualError(t, err, "no completion choices returned")
	})
}

func TestNameAndModel(t *testing.T) {
	client := NewClient("test-key", WithModel("gpt-4.1"))
	assert.Equal(t, "openai", client.Name())
	assert.Equal(t, "gpt-4.1", client.GetModel())
}
