package ai

import (
	"context"
	"image"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIVisionLoadChecksModel(t *testing.T) {
	rec := &openAIRecorder{replies: []string{`[{"label":"laptop","confidence":0.91}]`}}
	backend := NewOpenAIVisionBackend(rec.client(t), "gpt-4o", 3, nil)

	model, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.modelsHit)

	res, err := model.Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "laptop", res[0].Label)

	items := rec.inputs(t, 0)
	require.Len(t, items, 1)
	content, ok := items[0]["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 2)
	img, ok := content[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "input_image", img["type"])
	assert.True(t, strings.HasPrefix(img["image_url"].(string), "data:image/jpeg;base64,"))
}

func TestOpenAIVisionLoadFailure(t *testing.T) {
	rec := &openAIRecorder{failWith: http.StatusNotFound}
	backend := NewOpenAIVisionBackend(rec.client(t), "no-such-model", 3, nil)

	_, err := backend.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-model")
}
