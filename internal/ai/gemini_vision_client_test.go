package ai

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

func TestGeminiVisionClassifySendsImageInJSONMode(t *testing.T) {
	llm := &fakeLLM{replies: []string{`[{"label":"laptop","confidence":0.91}]`}}
	backend := &GeminiVisionBackend{
		newModel:       func(context.Context) (llms.Model, error) { return llm, nil },
		maxPredictions: 3,
	}
	backend.logger = zap.NewNop().Sugar()

	model, err := backend.Load(context.Background())
	require.NoError(t, err)

	res, err := model.Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "laptop", res[0].Label)
	assert.Equal(t, 0.91, res[0].Confidence)

	require.Len(t, llm.calls, 1)
	parts := llm.calls[0][0].Parts
	require.Len(t, parts, 2)
	bin, ok := parts[1].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", bin.MIMEType)
	assert.NotEmpty(t, bin.Data)
	assert.True(t, llm.lastOpts.JSONMode)
	assert.Empty(t, llm.lastOpts.ResponseMIMEType)
}

func TestGeminiVisionLoadFailure(t *testing.T) {
	backend := &GeminiVisionBackend{
		newModel: func(context.Context) (llms.Model, error) { return nil, errors.New("bad key") },
		logger:   zap.NewNop().Sugar(),
	}
	_, err := backend.Load(context.Background())
	assert.EqualError(t, err, "bad key")
}

func TestGeminiVisionClassifyFailure(t *testing.T) {
	llm := &fakeLLM{errs: []error{errors.New("quota")}}
	backend := &GeminiVisionBackend{
		newModel: func(context.Context) (llms.Model, error) { return llm, nil },
		logger:   zap.NewNop().Sugar(),
	}
	model, err := backend.Load(context.Background())
	require.NoError(t, err)

	_, err = model.Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.EqualError(t, err, "quota")
}
