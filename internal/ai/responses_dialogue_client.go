package ai

import (
	"EWasteAssistant/internal/adapter/localconversation"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"go.uber.org/zap"
)

// ResponsesDialogueClient реализует ChatClient поверх Responses API,
// поддерживая разговоры локально: праймер и последующие реплики отправляются с каждым запросом.
// top-k в Responses API нет, он игнорируется; формат ответа по умолчанию и так обычный текст.
type ResponsesDialogueClient struct {
	client     *openai.Client
	model      openai.ChatModel
	maxHistory int
	logger     *zap.SugaredLogger
}

func NewResponsesDialogueClient(client *openai.Client, model openai.ChatModel, maxHistory int, logger *zap.SugaredLogger) *ResponsesDialogueClient {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ResponsesDialogueClient{
		client:     client,
		model:      model,
		maxHistory: maxHistory,
		logger:     logger,
	}
}

func (c *ResponsesDialogueClient) StartSession(_ context.Context, cfg SessionConfig) (ChatSession, error) {
	if c.client == nil {
		return nil, errors.New("nil openai client")
	}
	return &responsesSession{
		client: c.client,
		model:  c.model,
		gen:    cfg.Generation,
		conv:   localconversation.New(uuid.NewString(), c.maxHistory, toRecords(cfg.History)...),
		logger: c.logger,
	}, nil
}

type responsesSession struct {
	client *openai.Client
	model  openai.ChatModel
	gen    GenerationConfig
	conv   *localconversation.LocalConversation
	logger *zap.SugaredLogger
}

func (s *responsesSession) Send(ctx context.Context, text string) (string, error) {
	history := s.conv.History()
	inputItems := make(responses.ResponseInputParam, 0, len(history)+1)
	for _, r := range history {
		inputItems = append(inputItems, inputItem(Role(r.Role), r.Text))
	}
	inputItems = append(inputItems, inputItem(RoleUser, text))

	params := responses.ResponseNewParams{
		Model:       s.model,
		Input:       responses.ResponseNewParamsInputUnion{OfInputItemList: inputItems},
		Temperature: openai.Float(s.gen.Temperature),
	}
	if s.gen.TopP > 0 {
		params.TopP = openai.Float(s.gen.TopP)
	}
	if s.gen.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(s.gen.MaxOutputTokens))
	}

	start := time.Now()
	resp, err := s.client.Responses.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		s.logger.Errorw("Ошибка ответа OpenAI", "conversation", s.conv.ID, "duration", dur.String(), "error", err)
		return "", err
	}
	out := resp.OutputText()
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	s.logger.Infow("Ответ OpenAI получен", "conversation", s.conv.ID, "duration", dur.String())

	s.conv.AppendExchange(text, out)
	return out, nil
}

// inputItem реплика пользователя уходит как input_text, реплика модели как output_message с output_text.
func inputItem(role Role, text string) responses.ResponseInputItemUnionParam {
	if role == RoleModel {
		var out responses.ResponseOutputTextParam
		out.Text = text
		return responses.ResponseInputItemParamOfOutputMessage(
			[]responses.ResponseOutputMessageContentUnionParam{{OfOutputText: &out}},
			"", // id не обязателен для входного output_message
			responses.ResponseOutputMessageStatusCompleted,
		)
	}
	return responses.ResponseInputItemParamOfMessage(
		responses.ResponseInputMessageContentListParam{
			{OfInputText: &responses.ResponseInputTextParam{Text: text}},
		},
		responses.EasyInputMessageRoleUser,
	)
}
