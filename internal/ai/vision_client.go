package ai

import (
	imgsvc "EWasteAssistant/internal/service/image"
	"EWasteAssistant/internal/service/vision"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"go.uber.org/zap"
)

// OpenAIVisionBackend классификатор изображений поверх vision-модели OpenAI.
// Загрузка проверяет, что модель доступна по ключу; распознавание отправляет картинку как data URL.
type OpenAIVisionBackend struct {
	client         *openai.Client
	model          string
	maxPredictions int
	logger         *zap.SugaredLogger
}

func NewOpenAIVisionBackend(client *openai.Client, model string, maxPredictions int, logger *zap.SugaredLogger) *OpenAIVisionBackend {
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &OpenAIVisionBackend{client: client, model: model, maxPredictions: maxPredictions, logger: logger}
}

func (b *OpenAIVisionBackend) Load(ctx context.Context) (vision.Model, error) {
	if b.client == nil {
		return nil, errors.New("nil openai client")
	}
	m, err := b.client.Models.Get(ctx, b.model)
	if err != nil {
		return nil, fmt.Errorf("openai vision model %s: %w", b.model, err)
	}
	b.logger.Infow("OpenAI vision модель доступна", "model", m.ID)
	return &openAIVisionModel{client: b.client, model: b.model, maxPredictions: b.maxPredictions, logger: b.logger}, nil
}

type openAIVisionModel struct {
	client         *openai.Client
	model          string
	maxPredictions int
	logger         *zap.SugaredLogger
}

func (m *openAIVisionModel) Classify(ctx context.Context, img image.Image) (vision.Result, error) {
	data, err := imgsvc.EncodeJPEG(img, imgsvc.DefaultQuality)
	if err != nil {
		return nil, err
	}
	imageURL, err := imgsvc.DataURL("image/jpeg", data)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := m.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: m.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						{
							OfInputText: &responses.ResponseInputTextParam{
								Text: classifyPrompt(m.maxPredictions),
							},
						},
						{
							OfInputImage: &responses.ResponseInputImageParam{
								Detail:   responses.ResponseInputImageDetailAuto,
								ImageURL: openai.String(imageURL),
							},
						},
					},
					responses.EasyInputMessageRoleUser,
				),
			},
		},
	})
	if err != nil {
		return nil, err
	}
	m.logger.Infow("Изображение распознано OpenAI", "duration", time.Since(start).String())

	return parsePredictions(resp.OutputText())
}
