package ai

import (
	imgsvc "EWasteAssistant/internal/service/image"
	"EWasteAssistant/internal/service/vision"
	"context"
	"errors"
	"image"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const visionMaxTokens = 1024

// GeminiVisionBackend классификатор изображений поверх мультимодальной модели Gemini.
type GeminiVisionBackend struct {
	newModel       func(ctx context.Context) (llms.Model, error)
	maxPredictions int
	logger         *zap.SugaredLogger
}

func NewGeminiVisionBackend(apiKey, model string, maxPredictions int, logger *zap.SugaredLogger) *GeminiVisionBackend {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &GeminiVisionBackend{
		newModel: func(ctx context.Context) (llms.Model, error) {
			return NewGeminiModel(ctx, apiKey, model, visionMaxTokens)
		},
		maxPredictions: maxPredictions,
		logger:         logger,
	}
}

func (b *GeminiVisionBackend) Load(ctx context.Context) (vision.Model, error) {
	llm, err := b.newModel(ctx)
	if err != nil {
		return nil, err
	}
	if llm == nil {
		return nil, errors.New("nil gemini model")
	}
	return &geminiVisionModel{llm: llm, maxPredictions: b.maxPredictions, logger: b.logger}, nil
}

type geminiVisionModel struct {
	llm            llms.Model
	maxPredictions int
	logger         *zap.SugaredLogger
}

func (m *geminiVisionModel) Classify(ctx context.Context, img image.Image) (vision.Result, error) {
	data, err := imgsvc.EncodeJPEG(img, imgsvc.DefaultQuality)
	if err != nil {
		return nil, err
	}
	msgs := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextContent{Text: classifyPrompt(m.maxPredictions)},
				llms.BinaryPart("image/jpeg", data),
			},
		},
	}

	start := time.Now()
	resp, err := m.llm.GenerateContent(ctx, msgs, llms.WithJSONMode(), llms.WithTemperature(0))
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	m.logger.Infow("Изображение распознано Gemini", "duration", time.Since(start).String())

	return parsePredictions(resp.Choices[0].Content)
}
