package tts

import (
	"EWasteAssistant/internal/app/assistant"
	"EWasteAssistant/internal/config"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	audioExt          = ".mp3"
	synthesizeTimeout = 30 * time.Second
)

var _ assistant.Observer = (*Narrator)(nil)

// Narrator озвучивает ответы ассистента в фоне и складывает <id>.mp3 в папку.
// Ошибки синтеза только логируются: лента сообщений от озвучки не зависит.
type Narrator struct {
	synth  Synthesizer
	dir    string
	ttl    time.Duration
	debug  bool
	logger *zap.SugaredLogger

	wg    sync.WaitGroup
	mu    sync.Mutex
	ready map[string]string
}

func NewNarrator(synth Synthesizer, cfg config.NarratorConfig, debug bool, logger *zap.SugaredLogger) (*Narrator, error) {
	if synth == nil {
		return nil, errors.New("narrator: nil synthesizer")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	dir := strings.TrimSpace(cfg.AudioDir)
	if dir == "" {
		dir = "audio"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("narrator: create audio dir: %w", err)
	}
	return &Narrator{
		synth:  synth,
		dir:    dir,
		ttl:    time.Duration(cfg.AudioTTLSeconds) * time.Second,
		debug:  debug,
		logger: logger,
		ready:  make(map[string]string),
	}, nil
}

// MessageAppended запускает синтез для сообщений ассистента.
func (n *Narrator) MessageAppended(m assistant.Message) {
	if m.Role != assistant.RoleAssistant || strings.TrimSpace(m.Content) == "" {
		return
	}
	if m.ID == "" || m.ID != filepath.Base(m.ID) {
		n.logger.Warnw("Некорректный id сообщения, озвучка пропущена", "id", m.ID)
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeoutCause(context.Background(), synthesizeTimeout, errors.New("narration timeout"))
		defer cancel()
		if err := n.narrate(ctx, m); err != nil {
			n.logger.Errorw("Не удалось озвучить ответ", "id", m.ID, "error", err)
		}
	}()
}

func (n *Narrator) StateChanged(bool) {}

func (n *Narrator) narrate(ctx context.Context, m assistant.Message) error {
	audio, err := n.synth.Synthesize(ctx, m.Content)
	if err != nil {
		return err
	}
	path := filepath.Join(n.dir, m.ID+audioExt)
	// Пишем во временный файл и переименовываем, чтобы сервер не отдал недописанный mp3
	tmp := path + ".part"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	n.mu.Lock()
	n.ready[m.ID] = path
	n.mu.Unlock()
	n.logger.Infow("Ответ озвучен", "id", m.ID, "path", path)
	return nil
}

// AudioPath путь к готовой озвучке сообщения.
func (n *Narrator) AudioPath(messageID string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.ready[messageID]
	return p, ok
}

// Wait дожидается завершения начатых синтезов.
func (n *Narrator) Wait() { n.wg.Wait() }

// Run периодически удаляет старые файлы озвучки до отмены контекста.
func (n *Narrator) Run(ctx context.Context) error {
	if n.ttl <= 0 {
		<-ctx.Done()
		return context.Cause(ctx)
	}
	t := time.NewTicker(max(n.ttl/4, time.Second))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case now := <-t.C:
			n.Clean(now)
		}
	}
}

// Clean удаляет mp3 старше ttl. В режиме debug ничего не делает.
func (n *Narrator) Clean(now time.Time) int {
	if n.debug {
		n.logger.Infow("DEBUG: очистка озвучки отключена", "dir", n.dir, "ttl", n.ttl.String())
		return 0
	}
	if n.ttl <= 0 {
		return 0
	}
	deadline := now.Add(-n.ttl)

	entries, err := os.ReadDir(n.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			n.logger.Warnw("Не удалось прочитать директорию для очистки", "dir", n.dir, "error", err)
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), audioExt) {
			continue
		}
		fi, statErr := e.Info()
		if statErr != nil {
			n.logger.Warnw("Не удалось получить информацию о файле при очистке", "name", name, "error", statErr)
			continue
		}
		if !fi.ModTime().Before(deadline) {
			continue
		}
		full := filepath.Join(n.dir, name)
		if err := os.Remove(full); err != nil {
			n.logger.Warnw("Не удалось удалить старый файл", "path", full, "error", err)
			continue
		}
		n.mu.Lock()
		delete(n.ready, strings.TrimSuffix(name, audioExt))
		n.mu.Unlock()
		removed++
	}
	if removed > 0 {
		n.logger.Debugw("Очистка озвучки выполнена", "dir", n.dir, "removed", removed)
	}
	return removed
}
