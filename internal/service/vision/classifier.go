package vision

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInitialization модель/бэкенд не удалось загрузить.
	ErrInitialization = errors.New("vision: initialization failed")
	// ErrClassification модель загружена, но распознать изображение не удалось.
	ErrClassification = errors.New("vision: classification failed")
)

// Prediction один вариант распознавания.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // [0,1]
}

// Result варианты распознавания по убыванию уверенности. Дальше используется только первый.
type Result []Prediction

// Top возвращает самый уверенный вариант.
func (r Result) Top() (Prediction, bool) {
	if len(r) == 0 {
		return Prediction{}, false
	}
	return r[0], true
}

// Model загруженная модель.
type Model interface {
	Classify(ctx context.Context, img image.Image) (Result, error)
}

// Backend загружает модель. Вызывается не больше одного раза на успешную загрузку.
type Backend interface {
	Load(ctx context.Context) (Model, error)
}

const loadKey = "model"

// Classifier лениво загружает модель и переиспользует её для всех последующих вызовов.
// Одновременные вызовы до окончания загрузки ждут одну общую загрузку.
type Classifier struct {
	backend        Backend
	maxPredictions int
	logger         *zap.SugaredLogger

	group singleflight.Group
	mu    sync.RWMutex
	model Model
}

func NewClassifier(backend Backend, maxPredictions int, logger *zap.SugaredLogger) *Classifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Classifier{backend: backend, maxPredictions: maxPredictions, logger: logger}
}

// Warmup загружает модель заранее, не дожидаясь первого изображения.
func (c *Classifier) Warmup(ctx context.Context) error {
	_, err := c.load(ctx)
	return err
}

// Loaded сообщает, загружена ли модель.
func (c *Classifier) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// Classify распознаёт изображение. Ошибки загрузки оборачиваются в ErrInitialization,
// ошибки распознавания в ErrClassification.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (Result, error) {
	model, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrClassification)
	}

	res, err := model.Classify(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	return c.normalize(res), nil
}

func (c *Classifier) load(ctx context.Context) (Model, error) {
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	// Загрузка общая для всех ожидающих, поэтому не отменяется вместе с контекстом одного из них
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(loadKey, func() (any, error) {
		c.mu.RLock()
		m := c.model
		c.mu.RUnlock()
		if m != nil {
			return m, nil
		}

		started := time.Now()
		c.logger.Infow("Загрузка модели классификатора...")
		m, err := c.backend.Load(loadCtx)
		if err == nil && m == nil {
			err = errors.New("backend returned nil model")
		}
		if err != nil {
			// Неудачная загрузка не запоминается: следующий вызов попробует снова
			c.logger.Errorw("Не удалось загрузить модель классификатора", "duration", time.Since(started).String(), "error", err)
			return nil, err
		}
		c.mu.Lock()
		c.model = m
		c.mu.Unlock()
		c.logger.Infow("Модель классификатора загружена", "duration", time.Since(started).String())
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	if shared {
		c.logger.Debugw("Загрузка модели разделена между вызовами")
	}
	return v.(Model), nil
}

// normalize сортирует по убыванию, зажимает уверенность в [0,1] (NaN считается нулём), выкидывает пустые метки.
func (c *Classifier) normalize(res Result) Result {
	out := make(Result, 0, len(res))
	for _, p := range res {
		p.Label = strings.TrimSpace(p.Label)
		if p.Label == "" {
			continue
		}
		if math.IsNaN(p.Confidence) {
			p.Confidence = 0
		}
		p.Confidence = min(max(p.Confidence, 0), 1)
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b Prediction) int {
		return -cmp.Compare(a.Confidence, b.Confidence)
	})
	if c.maxPredictions > 0 && len(out) > c.maxPredictions {
		out = out[:c.maxPredictions]
	}
	return out
}
