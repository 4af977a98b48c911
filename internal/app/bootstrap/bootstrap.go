package bootstrap

import (
	"EWasteAssistant/internal/ai"
	"EWasteAssistant/internal/app/assistant"
	"EWasteAssistant/internal/config"
	imgsvc "EWasteAssistant/internal/service/image"
	"EWasteAssistant/internal/service/notify"
	"EWasteAssistant/internal/service/session"
	"EWasteAssistant/internal/service/tts"
	"EWasteAssistant/internal/service/tts/google"
	"EWasteAssistant/internal/service/vision"
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// App собранный граф зависимостей ассистента.
type App struct {
	Config     *config.Config
	Sessions   *session.Manager
	Classifier *vision.Classifier
	Decoder    *imgsvc.Decoder
	Assistant  *assistant.Orchestrator
	Narrator   *tts.Narrator // nil, если озвучка выключена
}

// Options то, что у каждого бинарника своё: куда уведомлять и кто ещё слушает ленту.
type Options struct {
	Notifier  notify.Notifier
	Observers []assistant.Observer
}

// Build собирает ассистента по конфигурации. С VISION_PRELOAD модель грузится в фоне сразу.
func Build(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	chat, err := NewChatClient(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("wire chat client: %w", err)
	}
	backend, err := NewVisionBackend(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("wire vision backend: %w", err)
	}

	sessions := session.NewManager(chat, generation(cfg.Generation), session.Priming{
		Instructions:    cfg.SystemPrompt,
		Acknowledgement: cfg.Acknowledgement,
	}, logger)
	classifier := vision.NewClassifier(backend, cfg.Vision.MaxPredictions, logger)
	decoder := imgsvc.NewDecoder(cfg.Upload.MaxBytes, cfg.Upload.MaxWidth)

	app := &App{Config: cfg, Sessions: sessions, Classifier: classifier, Decoder: decoder}

	observers := append([]assistant.Observer(nil), opts.Observers...)
	if cfg.Narrator.Enabled {
		n, err := tts.NewNarrator(google.New(cfg.Narrator, logger), cfg.Narrator, cfg.DebugMode, logger)
		if err != nil {
			return nil, fmt.Errorf("wire narrator: %w", err)
		}
		app.Narrator = n
		observers = append(observers, n)
	}

	aopts := make([]assistant.Option, 0, len(observers))
	for _, o := range observers {
		aopts = append(aopts, assistant.WithObserver(o))
	}
	app.Assistant = assistant.New(sessions, decoder, classifier, opts.Notifier, logger, aopts...)

	if cfg.Vision.Preload {
		go func() {
			if err := classifier.Warmup(context.WithoutCancel(ctx)); err != nil {
				logger.Warnw("Предзагрузка классификатора не удалась, повторим при первом изображении", "error", err)
			}
		}()
	}

	logger.Infow("Assistant wired",
		"chatProvider", cfg.ChatProvider,
		"chatModel", cfg.ChatModel,
		"visionProvider", cfg.Vision.Provider,
		"visionModel", cfg.Vision.Model,
		"narrator", cfg.Narrator.Enabled,
	)
	return app, nil
}

// NewChatClient выбирает провайдера диалога.
func NewChatClient(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (ai.ChatClient, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ChatProvider)) {
	case "gemini":
		llm, err := ai.NewGeminiModel(ctx, cfg.GoogleAPIKey, cfg.ChatModel, cfg.Generation.MaxOutputTokens)
		if err != nil {
			return nil, err
		}
		return ai.NewGeminiClient(llm, cfg.MaxHistoryRecords, logger), nil
	case "openai":
		// OPENAI_API_KEY SDK читает из окружения сам
		oc := openai.NewClient()
		return ai.NewResponsesDialogueClient(&oc, openAIModel(cfg.ChatModel), cfg.MaxHistoryRecords, logger), nil
	case "stub":
		return ai.NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.ChatProvider)
	}
}

// NewVisionBackend выбирает провайдера классификатора. Модель не загружается до Warmup/Classify.
func NewVisionBackend(cfg *config.Config, logger *zap.SugaredLogger) (vision.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Vision.Provider)) {
	case "gemini":
		return ai.NewGeminiVisionBackend(cfg.GoogleAPIKey, cfg.Vision.Model, cfg.Vision.MaxPredictions, logger), nil
	case "openai":
		oc := openai.NewClient()
		return ai.NewOpenAIVisionBackend(&oc, string(openAIModel(cfg.Vision.Model)), cfg.Vision.MaxPredictions, logger), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Vision.Provider)
	}
}

// openAIModel дефолтная модель Gemini для OpenAI не подходит, подставляем gpt-4o.
func openAIModel(model string) openai.ChatModel {
	if m := strings.TrimSpace(model); m != "" && !strings.HasPrefix(m, "gemini") {
		return openai.ChatModel(m)
	}
	return openai.ChatModelGPT4o
}

func generation(g config.GenerationConfig) ai.GenerationConfig {
	return ai.GenerationConfig{
		Temperature:      g.Temperature,
		TopP:             g.TopP,
		TopK:             g.TopK,
		MaxOutputTokens:  g.MaxOutputTokens,
		ResponseMIMEType: g.ResponseMIMEType,
	}
}
