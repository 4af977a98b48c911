package ai

import (
	"EWasteAssistant/internal/adapter/localconversation"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
)

// NewGeminiModel создаёт клиента Gemini (Google AI Studio) через langchaingo.
func NewGeminiModel(ctx context.Context, apiKey, model string, maxTokens int) (llms.Model, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: empty api key")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
		googleai.WithDefaultMaxTokens(maxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return llm, nil
}

// GeminiClient реализует ChatClient поверх langchaingo llms.Model.
// История сессии хранится локально и целиком отправляется с каждым сообщением.
type GeminiClient struct {
	llm        llms.Model
	maxHistory int
	logger     *zap.SugaredLogger
}

func NewGeminiClient(llm llms.Model, maxHistory int, logger *zap.SugaredLogger) *GeminiClient {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &GeminiClient{llm: llm, maxHistory: maxHistory, logger: logger}
}

func (c *GeminiClient) StartSession(_ context.Context, cfg SessionConfig) (ChatSession, error) {
	if c.llm == nil {
		return nil, errors.New("nil gemini model")
	}
	conv := localconversation.New(uuid.NewString(), c.maxHistory, toRecords(cfg.History)...)
	g := cfg.Generation
	opts := []llms.CallOption{
		llms.WithTemperature(g.Temperature),
		llms.WithTopP(g.TopP),
		llms.WithTopK(g.TopK),
		llms.WithMaxTokens(g.MaxOutputTokens),
	}
	if g.ResponseMIMEType != "" {
		opts = append(opts, llms.WithResponseMIMEType(g.ResponseMIMEType))
	}
	return &geminiSession{llm: c.llm, conv: conv, opts: opts, logger: c.logger}, nil
}

type geminiSession struct {
	llm    llms.Model
	conv   *localconversation.LocalConversation
	opts   []llms.CallOption
	logger *zap.SugaredLogger
}

func (s *geminiSession) Send(ctx context.Context, text string) (string, error) {
	history := s.conv.History()
	msgs := make([]llms.MessageContent, 0, len(history)+1)
	for _, r := range history {
		msgs = append(msgs, llms.TextParts(messageType(Role(r.Role)), r.Text))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, text))

	start := time.Now()
	resp, err := s.llm.GenerateContent(ctx, msgs, s.opts...)
	dur := time.Since(start)
	if err != nil {
		s.logger.Errorw("Ошибка ответа Gemini", "conversation", s.conv.ID, "duration", dur.String(), "error", err)
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", ErrEmptyResponse
	}
	out := resp.Choices[0].Content
	s.logger.Infow("Ответ Gemini получен", "conversation", s.conv.ID, "duration", dur.String())

	s.conv.AppendExchange(text, out)
	return out, nil
}

func messageType(r Role) llms.ChatMessageType {
	if r == RoleModel {
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}

func toRecords(turns []Turn) []localconversation.Record {
	out := make([]localconversation.Record, 0, len(turns))
	for _, t := range turns {
		out = append(out, localconversation.Record{Role: string(t.Role), Text: t.Text})
	}
	return out
}
