package google

import (
	"EWasteAssistant/internal/config"
	"context"
	"errors"
	"time"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
)

// Client реализует синтез речи через Google Cloud Text-to-Speech.
// Учётные данные SDK берёт сам (GOOGLE_APPLICATION_CREDENTIALS).
type Client struct {
	cfg    config.NarratorConfig
	logger *zap.SugaredLogger
}

func New(cfg config.NarratorConfig, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{cfg: cfg, logger: logger}
}

// Synthesize выполняет запрос к Google TTS и возвращает MP3.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ttsClient, err := gctts.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	defer ttsClient.Close()

	req := Request(c.cfg, text)
	started := time.Now()
	resp, err := ttsClient.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, err
	}
	audio := resp.GetAudioContent()
	if len(audio) == 0 {
		return nil, errors.New("google tts: empty audio")
	}
	c.logger.Infow("Google TTS synthesize completed", "took", time.Since(started).String(), "bytes", len(audio))
	return audio, nil
}

// Request собирает запрос синтеза: только MP3, голос и скорость из конфигурации.
func Request(cfg config.NarratorConfig, text string) *ttspb.SynthesizeSpeechRequest {
	return &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Text{Text: text}},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: cfg.Language,
			Name:         cfg.Voice, // поддержка Standard/Wavenet голосов
		},
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding: ttspb.AudioEncoding_MP3,
			SpeakingRate:  cfg.SpeakingRate,
		},
	}
}
