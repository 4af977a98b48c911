package session

import (
	"EWasteAssistant/internal/ai"
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// FallbackReply возвращается, когда обе попытки отправки не удались.
const FallbackReply = "Sorry, I encountered an error. Please try again."

// maxAttempts первая попытка и один повтор на свежей сессии. Без задержек между ними.
const maxAttempts = 2

// Priming праймер сессии: инструкции о тематике (реплика пользователя) и подтверждение модели.
type Priming struct {
	Instructions    string
	Acknowledgement string
}

func (p Priming) history() []ai.Turn {
	return []ai.Turn{
		{Role: ai.RoleUser, Text: p.Instructions},
		{Role: ai.RoleModel, Text: p.Acknowledgement},
	}
}

// Manager единолично владеет сессией диалога: создаёт её лениво, праймит
// и при ошибке один раз пересоздаёт. Ошибки наружу не выходят.
type Manager struct {
	client  ai.ChatClient
	gen     ai.GenerationConfig
	priming Priming
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	session ai.ChatSession
}

func NewManager(client ai.ChatClient, gen ai.GenerationConfig, priming Priming, logger *zap.SugaredLogger) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{client: client, gen: gen, priming: priming, logger: logger}
}

// Send отправляет сообщение и возвращает ответ модели либо FallbackReply.
func (m *Manager) Send(ctx context.Context, message string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Повтор всегда идёт через новую сессию: старая считается испорченной
		reply, err := m.attempt(ctx, message, attempt > 1)
		if err == nil {
			return reply
		}
		lastErr = err
		m.logger.Warnw("Ошибка отправки сообщения", "attempt", attempt, "error", err)
	}

	// Неудачная сессия отбрасывается, следующий вызов запраймит новую
	m.session = nil
	m.logger.Errorw("Сообщение не отправлено после повтора, возвращаем fallback", "error", lastErr)
	return FallbackReply
}

// Reset отбрасывает текущую сессию; следующий Send начнёт новый диалог.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}

func (m *Manager) attempt(ctx context.Context, message string, fresh bool) (string, error) {
	if fresh || m.session == nil {
		m.session = nil
		s, err := m.start(ctx)
		if err != nil {
			return "", err
		}
		m.session = s
	}
	return m.session.Send(ctx, message)
}

func (m *Manager) start(ctx context.Context) (ai.ChatSession, error) {
	if m.client == nil {
		return nil, errors.New("nil chat client")
	}
	s, err := m.client.StartSession(ctx, ai.SessionConfig{Generation: m.gen, History: m.priming.history()})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("chat client returned nil session")
	}
	m.logger.Infow("Начата новая сессия диалога")
	return s, nil
}
