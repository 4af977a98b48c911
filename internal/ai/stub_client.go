package ai

import (
	"context"
	"fmt"
	"sync/atomic"
)

// StubClient заглушка, которая не делает реальных запросов
type StubClient struct {
	sessions atomic.Int32
}

func NewStubClient() *StubClient { return &StubClient{} }

func (c *StubClient) StartSession(_ context.Context, _ SessionConfig) (ChatSession, error) {
	c.sessions.Add(1)
	return &stubSession{}, nil
}

// Sessions сколько сессий было создано.
func (c *StubClient) Sessions() int { return int(c.sessions.Load()) }

type stubSession struct {
	turns int
}

func (s *stubSession) Send(_ context.Context, text string) (string, error) {
	s.turns++
	return fmt.Sprintf("запрос получен (%d): %s", s.turns, text), nil
}
