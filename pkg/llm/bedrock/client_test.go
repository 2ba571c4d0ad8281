package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

type mockRuntime struct {
	mock.Mock
}

func (m *mockRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*bedrockruntime.InvokeModelOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestClient(t *testing.T, api InvokeModelAPI) *Client {
	t.Helper()
	client, err := NewClient(context.Background(),
		WithAPI(api),
		WithModel("anthropic.claude-test"),
		WithLogger(logging.NewNop()),
	)
	require.NoError(t, err)
	return client
}

func TestGenerate(t *testing.T) {
	api := &mockRuntime{}
	var sent request
	api.On("InvokeModel", mock.Anything, mock.MatchedBy(func(in *bedrockruntime.InvokeModelInput) bool {
		return aws.ToString(in.ModelId) == "anthropic.claude-test" && json.Unmarshal(in.Body, &sent) == nil
	})).Return(&bedrockruntime.InvokeModelOutput{
		Body: []byte(`{"content":[{"type":"text","text":"copy"},{"type":"text","text":"writer"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":2}}`),
	}, nil)

	client := newTestClient(t, api)
	out, err := client.Generate(context.Background(), "next?",
		interfaces.WithSystemMessage("you route"),
		interfaces.WithTemperature(0),
	)
	require.NoError(t, err)
	assert.Equal(t, "copywriter", out)
	api.AssertExpectations(t)

	assert.Equal(t, anthropicVersion, sent.AnthropicVersion)
	assert.Equal(t, DefaultMaxTokens, sent.MaxTokens)
	assert.Equal(t, "you route", sent.System)
	assert.Equal(t, []message{{Role: "user", Content: "next?"}}, sent.Messages)
	require.NotNil(t, sent.Temperature)
	assert.Equal(t, 0.0, *sent.Temperature)
}

func TestBuildRequestWithoutOptions(t *testing.T) {
	client := newTestClient(t, &mockRuntime{})
	req := client.buildRequest("hi", interfaces.ApplyGenerateOptions(interfaces.WithMaxTokens(64)))

	assert.Equal(t, 64, req.MaxTokens)
	assert.Nil(t, req.Temperature)
	assert.Empty(t, req.System)

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "temperature")
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		output  *bedrockruntime.InvokeModelOutput
		err     error
		wantErr string
	}{
		{
			name:    "invoke fails",
			err:     errors.New("throttled"),
			wantErr: "failed to invoke Bedrock model: throttled",
		},
		{
			name:    "malformed body",
			output:  &bedrockruntime.InvokeModelOutput{Body: []byte("{")},
			wantErr: "failed to parse Bedrock response",
		},
		{
			name:    "no text blocks",
			output:  &bedrockruntime.InvokeModelOutput{Body: []byte(`{"content":[]}`)},
			wantErr: "no text content in Bedrock response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockRuntime{}
			if tt.output != nil {
				api.On("InvokeModel", mock.Anything, mock.Anything).Return(tt.output, tt.err)
			} else {
				api.On("InvokeModel", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			_, err := newTestClient(t, api).Generate(context.Background(), "hi")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewClientWithAWSConfig(t *testing.T) {
	client := NewClientWithAWSConfig(aws.Config{Region: "eu-west-1"}, WithLogger(logging.NewNop()))
	assert.Equal(t, "bedrock", client.Name())
	assert.Equal(t, DefaultModel, client.GetModel())
	assert.Equal(t, "eu-west-1", client.region)
	assert.NotNil(t, client.api)
}
