package tts

import "context"

// Synthesizer абстракция TTS. Возвращает готовое MP3 аудио.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
