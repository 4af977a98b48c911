package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Kind важность уведомления.
type Kind string

const (
	KindError Kind = "error"
	KindInfo  Kind = "info"
)

// Notice уведомление пользователю мимо ленты сообщений.
type Notice struct {
	Kind Kind
	Text string
	Err  error // причина; пользователю не показывается
}

// Notifier канал уведомлений, отдельный от ленты сообщений.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Func адаптер обычной функции к Notifier.
type Func func(ctx context.Context, n Notice)

func (f Func) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Multi рассылает уведомление всем получателям по очереди.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

// Console печатает уведомления в терминал и пишет причину в лог.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	logger *zap.SugaredLogger
}

func NewConsole(w io.Writer, logger *zap.SugaredLogger) *Console {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Console{w: w, logger: logger}
}

func (c *Console) Notify(_ context.Context, n Notice) {
	if n.Err != nil {
		c.logger.Warnw("Уведомление пользователю", "kind", n.Kind, "text", n.Text, "error", n.Err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := "!"
	if n.Kind == KindInfo {
		prefix = "i"
	}
	if _, err := fmt.Fprintf(c.w, "[%s] %s\n", prefix, n.Text); err != nil {
		c.logger.Warnw("Не удалось вывести уведомление", "error", err)
	}
}
