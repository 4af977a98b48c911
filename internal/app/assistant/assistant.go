package assistant

import (
	imgsvc "EWasteAssistant/internal/service/image"
	"EWasteAssistant/internal/service/notify"
	"EWasteAssistant/internal/service/prompt"
	"EWasteAssistant/internal/service/vision"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusy предыдущий запрос ещё не завершён; новый отброшен без побочных эффектов.
	ErrBusy = errors.New("assistant: busy")
	// ErrEmptyInput пустой ввод или одни пробелы.
	ErrEmptyInput = errors.New("assistant: empty input")
)

// ImageFailureNotice текст уведомления при сбое анализа изображения.
const ImageFailureNotice = "Error analyzing image. Please try again."

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message запись ленты. После создания не меняется.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// Stage этап конвейера обработки изображения.
type Stage string

const (
	StageDecode     Stage = "decode"
	StageClassify   Stage = "classify"
	StageSynthesize Stage = "synthesize"
)

// StageError сбой на одном из этапов конвейера изображения.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("image %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Sender отправляет сообщение в диалог. Ошибок не возвращает: сбои уже превращены в текст.
type Sender interface {
	Send(ctx context.Context, message string) string
}

// Decoder превращает загруженные байты в изображение.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*imgsvc.Decoded, error)
}

// Classifier распознаёт изображение.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (vision.Result, error)
}

// Observer получает события ленты. Вызывается вне внутренних блокировок.
type Observer interface {
	MessageAppended(m Message)
	StateChanged(busy bool)
}

type Option func(*Orchestrator)

func WithObserver(o Observer) Option {
	return func(or *Orchestrator) { or.observers = append(or.observers, o) }
}

func WithClock(now func() time.Time) Option {
	return func(or *Orchestrator) { or.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(or *Orchestrator) { or.newID = newID }
}

// Orchestrator владеет лентой сообщений и флагом занятости.
// Пока идёт запрос, любые новые запросы отбрасываются, а не ставятся в очередь.
type Orchestrator struct {
	sessions   Sender
	decoder    Decoder
	classifier Classifier
	notifier   notify.Notifier
	logger     *zap.SugaredLogger
	observers  []Observer
	now        func() time.Time
	newID      func() string

	mu   sync.Mutex
	busy bool
	log  []Message
}

func New(sessions Sender, decoder Decoder, classifier Classifier, notifier notify.Notifier, logger *zap.SugaredLogger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if notifier == nil {
		notifier = notify.Multi{}
	}
	o := &Orchestrator{
		sessions:   sessions,
		decoder:    decoder,
		classifier: classifier,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
		newID:      newMessageID,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit отправляет текст пользователя. Сообщение пользователя попадает в ленту сразу,
// ответ ассистента после завершения запроса.
func (o *Orchestrator) Submit(ctx context.Context, input string) (Message, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return Message{}, ErrEmptyInput
	}
	release, ok := o.tryAcquire()
	if !ok {
		o.logger.Infow("Skipping submission: busy")
		return Message{}, ErrBusy
	}
	defer release()

	o.appendMessage(RoleUser, text)
	reply := o.sessions.Send(ctx, text)
	return o.appendMessage(RoleAssistant, reply), nil
}

// SubmitImage прогоняет изображение через decode → classify → synthesize и отправляет
// полученный запрос. Сам запрос в ленту не попадает, только ответ ассистента.
// При сбое этапа лента не меняется, пользователь получает уведомление.
func (o *Orchestrator) SubmitImage(ctx context.Context, data []byte) (Message, error) {
	release, ok := o.tryAcquire()
	if !ok {
		o.logger.Infow("Skipping image: busy")
		return Message{}, ErrBusy
	}
	defer release()

	started := time.Now()
	text, err := o.analyze(ctx, data)
	if err != nil {
		o.logger.Errorw("Не удалось проанализировать изображение", "error", err, "duration", time.Since(started).String())
		o.notifier.Notify(ctx, notify.Notice{Kind: notify.KindError, Text: ImageFailureNotice, Err: err})
		return Message{}, err
	}
	o.logger.Infow("Изображение проанализировано", "duration", time.Since(started).String())

	reply := o.sessions.Send(ctx, text)
	return o.appendMessage(RoleAssistant, reply), nil
}

func (o *Orchestrator) analyze(ctx context.Context, data []byte) (string, error) {
	decoded, err := o.decoder.Decode(ctx, data)
	if err == nil && decoded == nil {
		err = errors.New("decoder returned no image")
	}
	if err != nil {
		return "", &StageError{Stage: StageDecode, Err: err}
	}
	result, err := o.classifier.Classify(ctx, decoded.Image)
	if err != nil {
		return "", &StageError{Stage: StageClassify, Err: err}
	}
	if top, ok := result.Top(); ok {
		o.logger.Infow("Изображение распознано", "label", top.Label, "confidence", top.Confidence)
	}
	text, err := prompt.Synthesize(result)
	if err != nil {
		return "", &StageError{Stage: StageSynthesize, Err: err}
	}
	return text, nil
}

// Messages возвращает копию ленты в порядке добавления.
func (o *Orchestrator) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.log))
	copy(out, o.log)
	return out
}

func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// tryAcquire переводит Idle → Busy. release возвращает Busy → Idle и должен вызываться ровно один раз.
func (o *Orchestrator) tryAcquire() (release func(), ok bool) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, false
	}
	o.busy = true
	o.mu.Unlock()
	o.stateChanged(true)

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			o.busy = false
			o.mu.Unlock()
			o.stateChanged(false)
		})
	}, true
}

func (o *Orchestrator) appendMessage(role Role, content string) Message {
	m := Message{
		ID:        o.newID(),
		Content:   content,
		Role:      role,
		Timestamp: o.now(),
	}
	o.mu.Lock()
	o.log = append(o.log, m)
	o.mu.Unlock()
	for _, obs := range o.observers {
		obs.MessageAppended(m)
	}
	return m
}

func (o *Orchestrator) stateChanged(busy bool) {
	for _, obs := range o.observers {
		obs.StateChanged(busy)
	}
}

// newMessageID UUIDv7: идентификаторы упорядочены по времени создания.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
