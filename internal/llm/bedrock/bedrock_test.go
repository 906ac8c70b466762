package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companion/internal/domain"
	"companion/internal/llm"
)

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestCompleter_Complete(t *testing.T) {
	fake := &fakeInvoker{body: `{"content": [{"type": "text", "text": " Stars are far away suns. "}]}`}
	c := newWithClient(fake, "")

	out, err := c.Complete(context.Background(), domain.CompletionRequest{
		System:      "be simple",
		User:        "Explain stars.",
		Temperature: 0.7,
		MaxTokens:   400,
	})
	require.NoError(t, err)
	assert.Equal(t, "Stars are far away suns.", out)
	assert.Equal(t, "bedrock", c.Name())

	require.NotNil(t, fake.input)
	assert.Equal(t, DefaultModelID, aws.ToString(fake.input.ModelId))

	var sent request
	require.NoError(t, json.Unmarshal(fake.input.Body, &sent))
	assert.Equal(t, "bedrock-2023-05-31", sent.AnthropicVersion)
	assert.Equal(t, 400, sent.MaxTokens)
	assert.Equal(t, "be simple", sent.System)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, message{Role: "user", Content: "Explain stars."}, sent.Messages[0])
}

func TestCompleter_Errors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeInvoker
		is   error
	}{
		{name: "invoke fails", fake: &fakeInvoker{err: errors.New("throttled")}},
		{name: "bad json", fake: &fakeInvoker{body: "not json"}},
		{name: "no text", fake: &fakeInvoker{body: `{"content": []}`}, is: llm.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newWithClient(tt.fake, "anthropic.claude-v2")
			_, err := c.Complete(context.Background(), domain.CompletionRequest{User: "x"})
			require.Error(t, err)
			assert.True(t, llm.IsServiceError(err))
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}
