package ai

import (
	"context"
	"net/http"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponsesSessionSendsPrimedHistory(t *testing.T) {
	rec := &openAIRecorder{replies: []string{"a1", "a2"}}
	client := NewResponsesDialogueClient(rec.client(t), openai.ChatModelGPT4o, 0, nil)

	session, err := client.StartSession(context.Background(), primedConfig())
	require.NoError(t, err)

	out, err := session.Send(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, "a1", out)
	out, err = session.Send(context.Background(), "q2")
	require.NoError(t, err)
	assert.Equal(t, "a2", out)

	first := rec.inputs(t, 0)
	require.Len(t, first, 3)
	assert.Equal(t, "user", first[0]["role"])
	assert.Equal(t, "assistant", first[1]["role"])
	assert.Equal(t, "user", first[2]["role"])

	second := rec.inputs(t, 1)
	assert.Len(t, second, 5)

	body := rec.bodies[0]
	assert.Equal(t, "gpt-4o", body["model"])
	assert.InDelta(t, 1.0, body["temperature"], 1e-9)
	assert.InDelta(t, 0.95, body["top_p"], 1e-9)
	assert.InDelta(t, 8192, body["max_output_tokens"], 1e-9)
	assert.NotContains(t, body, "top_k")
}

func TestResponsesSessionFailureKeepsHistory(t *testing.T) {
	rec := &openAIRecorder{failWith: http.StatusInternalServerError}
	client := NewResponsesDialogueClient(rec.client(t), openai.ChatModelGPT4o, 0, nil)
	session, err := client.StartSession(context.Background(), primedConfig())
	require.NoError(t, err)

	_, err = session.Send(context.Background(), "q1")
	require.Error(t, err)

	rec.failWith = 0
	_, err = session.Send(context.Background(), "q2")
	require.Error(t, err, "empty reply is an error")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	assert.Len(t, rec.inputs(t, 1), 3)
}

func TestResponsesClientWithoutSDKClient(t *testing.T) {
	_, err := NewResponsesDialogueClient(nil, openai.ChatModelGPT4o, 0, nil).StartSession(context.Background(), primedConfig())
	assert.Error(t, err)
}
