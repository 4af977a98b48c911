package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse модель ответила, но текста в ответе нет.
var ErrEmptyResponse = errors.New("ai: empty response")

// Role автор реплики в истории сессии.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn одна реплика истории.
type Turn struct {
	Role Role
	Text string
}

// GenerationConfig параметры генерации, фиксируются при создании сессии.
type GenerationConfig struct {
	Temperature      float64
	TopP             float64
	TopK             int
	MaxOutputTokens  int
	ResponseMIMEType string
}

// SessionConfig всё, что нужно для старта сессии: параметры генерации и стартовая история (праймер).
type SessionConfig struct {
	Generation GenerationConfig
	History    []Turn
}

// ChatSession сессия диалога. Единственная возможность: отправить сообщение и получить ответ.
type ChatSession interface {
	Send(ctx context.Context, text string) (string, error)
}

// ChatClient создаёт сессии диалога. Все реализации должны быть взаимозаменяемыми.
type ChatClient interface {
	StartSession(ctx context.Context, cfg SessionConfig) (ChatSession, error)
}
