package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode    bool   `env:"DEBUG_MODE"`     //Режим дебага
	ChatProvider string `env:"CHAT_PROVIDER"`  // gemini|openai|stub
	ChatModel    string `env:"CHAT_MODEL"`     // Идентификатор модели диалога
	GoogleAPIKey string `env:"GOOGLE_API_KEY"` // Ключ Gemini API; OpenAI ключ читает сам SDK из OPENAI_API_KEY

	Generation GenerationConfig // Параметры генерации для сессии диалога

	SystemPrompt      string `env:"SYSTEM_PROMPT"`       // Первая реплика праймера: рамки тематики ассистента
	Acknowledgement   string `env:"ACKNOWLEDGEMENT"`     // Вторая реплика праймера: подтверждение от модели
	MaxHistoryRecords int    `env:"MAX_HISTORY_RECORDS"` // Максимум хранимых реплик сессии; 0 = без ограничения

	Vision   VisionConfig
	Upload   UploadConfig
	Server   ServerConfig
	Narrator NarratorConfig
}

// GenerationConfig фиксированная конфигурация генерации ответа.
type GenerationConfig struct {
	Temperature      float64 `env:"CHAT_TEMPERATURE"`
	TopP             float64 `env:"CHAT_TOP_P"`
	TopK             int     `env:"CHAT_TOP_K"`
	MaxOutputTokens  int     `env:"CHAT_MAX_OUTPUT_TOKENS"`
	ResponseMIMEType string  `env:"CHAT_RESPONSE_MIME_TYPE"` // text/plain
}

// VisionConfig конфигурация классификатора изображений.
type VisionConfig struct {
	Provider       string `env:"VISION_PROVIDER"`        // gemini|openai
	Model          string `env:"VISION_MODEL"`           // Модель, которая распознаёт предмет на картинке
	MaxPredictions int    `env:"VISION_MAX_PREDICTIONS"` // Сколько вариантов (label, confidence) оставлять
	Preload        bool   `env:"VISION_PRELOAD"`         // Загрузить модель при старте, а не при первом изображении
}

// UploadConfig ограничения на загружаемые изображения.
type UploadConfig struct {
	MaxBytes int `env:"UPLOAD_MAX_BYTES"`
	MaxWidth int `env:"UPLOAD_MAX_WIDTH"` // Картинки шире уменьшаются с сохранением пропорций
}

// ServerConfig конфигурация HTTP сервера.
type ServerConfig struct {
	BindAddr string `env:"SERVER_BIND_ADDR"` // напр. 127.0.0.1:8080
}

// NarratorConfig конфигурация озвучки ответов через Google Cloud Text-to-Speech.
type NarratorConfig struct {
	Enabled         bool    `env:"NARRATOR_ENABLED"`
	AudioDir        string  `env:"NARRATOR_AUDIO_DIR"` // Куда складываются <id>.mp3
	Language        string  `env:"GOOGLE_TTS_LANGUAGE"`
	Voice           string  `env:"GOOGLE_TTS_VOICE"`
	SpeakingRate    float64 `env:"GOOGLE_TTS_SPEAKING_RATE"`
	AudioTTLSeconds int     `env:"NARRATOR_AUDIO_TTL_SECONDS"` // Файлы озвучки старше TTL удаляются; 0 = не удалять
}

const DefaultSystemPrompt = `You are an expert in e-waste management and recycling.
Your role is to provide accurate, helpful information about:
- Proper e-waste disposal methods
- Recycling electronics
- Environmental impact of e-waste
- Local e-waste regulations
- Best practices for electronics disposal

Only respond to queries related to e-waste management and recycling.
For unrelated queries, politely explain that you can only help with e-waste management topics.
Keep responses concise, practical, and environmentally conscious.`

const DefaultAcknowledgement = "I understand. I will focus only on e-waste management topics and provide accurate, helpful information."

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:    false,
		ChatProvider: "gemini",
		ChatModel:    "gemini-1.5-flash",
		Generation: GenerationConfig{
			Temperature:      1,
			TopP:             0.95,
			TopK:             40,
			MaxOutputTokens:  8192,
			ResponseMIMEType: "text/plain",
		},
		SystemPrompt:      DefaultSystemPrompt,
		Acknowledgement:   DefaultAcknowledgement,
		MaxHistoryRecords: 0,
		Vision: VisionConfig{
			Provider:       "gemini",
			Model:          "gemini-1.5-flash",
			MaxPredictions: 5,
		},
		Upload: UploadConfig{
			MaxBytes: 10 * 1024 * 1024,
			MaxWidth: 1024,
		},
		Server: ServerConfig{
			BindAddr: "127.0.0.1:8080",
		},
		Narrator: NarratorConfig{
			Enabled:         false,
			AudioDir:        "audio",
			Language:        "en-US",
			Voice:           "en-US-Standard-C",
			SpeakingRate:    1.0,
			AudioTTLSeconds: 3600,
		},
	}
}

// NewConfig загружает конфигурацию приложения из os.Args.
// Некорректная конфигурация дальше не пускает: паникуем, как и раньше.
func NewConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load собирает конфигурацию: дефолты → .env → окружение → флаги, затем проверяет её.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("ewaste-assistant", flag.ContinueOnError)
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага для отображения доп. инфы")
	fs.StringVar(&cfg.ChatProvider, "chat-provider", cfg.ChatProvider, "провайдер диалога: gemini|openai|stub")
	fs.StringVar(&cfg.ChatModel, "chat-model", cfg.ChatModel, "модель диалога")
	fs.StringVar(&cfg.GoogleAPIKey, "google-api-key", cfg.GoogleAPIKey, "ключ Gemini API (перекрывает ENV)")
	// Генерация
	fs.Float64Var(&cfg.Generation.Temperature, "chat-temperature", cfg.Generation.Temperature, "температура семплирования")
	fs.Float64Var(&cfg.Generation.TopP, "chat-top-p", cfg.Generation.TopP, "top-p семплирования")
	fs.IntVar(&cfg.Generation.TopK, "chat-top-k", cfg.Generation.TopK, "top-k семплирования (игнорируется openai)")
	fs.IntVar(&cfg.Generation.MaxOutputTokens, "chat-max-output-tokens", cfg.Generation.MaxOutputTokens, "максимальная длина ответа в токенах")
	fs.StringVar(&cfg.Generation.ResponseMIMEType, "chat-response-mime-type", cfg.Generation.ResponseMIMEType, "формат ответа, по умолчанию text/plain")
	// Праймер
	fs.StringVar(&cfg.SystemPrompt, "system-prompt", cfg.SystemPrompt, "инструкции, ограничивающие тематику ассистента")
	fs.StringVar(&cfg.Acknowledgement, "acknowledgement", cfg.Acknowledgement, "ответ модели на инструкции в праймере")
	fs.IntVar(&cfg.MaxHistoryRecords, "max-history-records", cfg.MaxHistoryRecords, "максимум хранимых реплик сессии (0 = без ограничения)")
	// Vision
	fs.StringVar(&cfg.Vision.Provider, "vision-provider", cfg.Vision.Provider, "провайдер классификатора изображений: gemini|openai")
	fs.StringVar(&cfg.Vision.Model, "vision-model", cfg.Vision.Model, "модель классификатора изображений")
	fs.IntVar(&cfg.Vision.MaxPredictions, "vision-max-predictions", cfg.Vision.MaxPredictions, "сколько вариантов распознавания оставлять")
	fs.BoolVar(&cfg.Vision.Preload, "vision-preload", cfg.Vision.Preload, "загрузить классификатор при старте")
	// Загрузка изображений
	fs.IntVar(&cfg.Upload.MaxBytes, "upload-max-bytes", cfg.Upload.MaxBytes, "максимальный размер загружаемого изображения в байтах")
	fs.IntVar(&cfg.Upload.MaxWidth, "upload-max-width", cfg.Upload.MaxWidth, "ширина, до которой уменьшается изображение")
	// Сервер
	fs.StringVar(&cfg.Server.BindAddr, "server-bind-addr", cfg.Server.BindAddr, "адрес HTTP сервера (напр. 127.0.0.1:8080)")
	// Озвучка
	fs.BoolVar(&cfg.Narrator.Enabled, "narrator-enabled", cfg.Narrator.Enabled, "озвучивать ответы ассистента через Google TTS")
	fs.StringVar(&cfg.Narrator.AudioDir, "narrator-audio-dir", cfg.Narrator.AudioDir, "папка для mp3 файлов озвучки")
	fs.StringVar(&cfg.Narrator.Language, "google-tts-language", cfg.Narrator.Language, "язык синтеза, напр. en-US")
	fs.StringVar(&cfg.Narrator.Voice, "google-tts-voice", cfg.Narrator.Voice, "имя голоса, напр. en-US-Standard-C")
	fs.Float64Var(&cfg.Narrator.SpeakingRate, "google-tts-speaking-rate", cfg.Narrator.SpeakingRate, "скорость речи (1.0 по умолчанию)")
	fs.IntVar(&cfg.Narrator.AudioTTLSeconds, "narrator-audio-ttl-seconds", cfg.Narrator.AudioTTLSeconds, "TTL файлов озвучки в секундах (0 = не удалять)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.ChatProvider = strings.ToLower(strings.TrimSpace(cfg.ChatProvider))
	cfg.Vision.Provider = strings.ToLower(strings.TrimSpace(cfg.Vision.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	var errs []error
	switch c.ChatProvider {
	case "gemini":
		if strings.TrimSpace(c.GoogleAPIKey) == "" {
			errs = append(errs, errors.New("gemini: GOOGLE_API_KEY не задан; укажите ENV или флаг -google-api-key"))
		}
	case "openai", "stub":
	default:
		errs = append(errs, fmt.Errorf("неизвестный CHAT_PROVIDER %q (ожидается gemini|openai|stub)", c.ChatProvider))
	}
	switch c.Vision.Provider {
	case "gemini":
		if strings.TrimSpace(c.GoogleAPIKey) == "" && c.ChatProvider != "gemini" {
			errs = append(errs, errors.New("vision gemini: GOOGLE_API_KEY не задан"))
		}
	case "openai":
	default:
		errs = append(errs, fmt.Errorf("неизвестный VISION_PROVIDER %q (ожидается gemini|openai)", c.Vision.Provider))
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature вне диапазона [0,2]: %v", c.Generation.Temperature))
	}
	if c.Generation.TopP <= 0 || c.Generation.TopP > 1 {
		errs = append(errs, fmt.Errorf("top-p вне диапазона (0,1]: %v", c.Generation.TopP))
	}
	if c.Generation.MaxOutputTokens <= 0 {
		errs = append(errs, errors.New("max output tokens должен быть > 0"))
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		errs = append(errs, errors.New("system prompt пустой"))
	}
	if c.MaxHistoryRecords < 0 {
		errs = append(errs, errors.New("max history records не может быть отрицательным"))
	}
	if c.Vision.MaxPredictions <= 0 {
		errs = append(errs, errors.New("vision max predictions должен быть > 0"))
	}
	if c.Upload.MaxBytes <= 0 || c.Upload.MaxWidth <= 0 {
		errs = append(errs, errors.New("лимиты загрузки должны быть > 0"))
	}
	return errors.Join(errs...)
}
