package web

import (
	"EWasteAssistant/internal/app/assistant"
	"EWasteAssistant/internal/config"
	"EWasteAssistant/internal/service/events"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// multipartOverhead запас на boundary и заголовки частей multipart.
const multipartOverhead = 64 << 10

// Ensure interface compliance
var _ events.EventServer = (*Server)(nil)

// Assistant то, что сервер использует у оркестратора.
type Assistant interface {
	Submit(ctx context.Context, input string) (assistant.Message, error)
	SubmitImage(ctx context.Context, data []byte) (assistant.Message, error)
	Messages() []assistant.Message
	Busy() bool
}

// AudioStore отдаёт путь к озвучке сообщения, если она готова.
type AudioStore interface {
	AudioPath(messageID string) (string, bool)
}

type submitRequest struct {
	Text string `json:"text"`
}

type replyResponse struct {
	Reply assistant.Message `json:"reply"`
}

type historyResponse struct {
	Messages []assistant.Message `json:"messages"`
	Busy     bool                `json:"busy"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// Server HTTP/WebSocket интерфейс ассистента.
type Server struct {
	cfg       config.ServerConfig
	e         *echo.Echo
	assistant Assistant
	hub       *Hub
	audio     AudioStore
	maxUpload int64
	logger    *zap.SugaredLogger
	running   atomic.Bool
}

func NewServer(cfg config.ServerConfig, maxUpload int, a Assistant, hub *Hub, audio AudioStore, logger *zap.SugaredLogger) *Server {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:8080"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	s := &Server{
		cfg:       cfg,
		e:         echo.New(),
		assistant: a,
		hub:       hub,
		audio:     audio,
		maxUpload: int64(maxUpload),
		logger:    logger,
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Server.ReadHeaderTimeout = 5 * time.Second
	s.e.Server.IdleTimeout = 60 * time.Second

	s.e.Use(middleware.Recover())
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Infow("HTTP request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String())
			return nil
		},
	}))

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := s.e.Group("/api")
	api.GET("/messages", s.getMessages)
	api.POST("/messages", s.postMessage)
	api.POST("/images", s.postImage, s.uploadLimit()...)
	api.GET("/messages/:id/audio", s.getAudio)
	api.GET("/ws", s.getWS)
}

// Handler нужен для тестов и встраивания.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		s.logger.Infow("Assistant server listening", "addr", s.cfg.BindAddr)
		if err := s.e.Start(s.cfg.BindAddr); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Assistant server stopped with error", "error", err)
		} else {
			s.logger.Infow("Assistant server stopped")
		}
	}()

	// Watch for context cancellation to stop the server
	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("assistant-server shutdown timeout"))
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.e.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.cfg.BindAddr }

func (s *Server) getMessages(c echo.Context) error {
	return c.JSON(http.StatusOK, historyResponse{Messages: s.assistant.Messages(), Busy: s.assistant.Busy()})
}

func (s *Server) postMessage(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	// Разрыв соединения клиентом не должен обрывать отправку: иначе сессия диалога
	// будет сброшена, а в ленту попадёт текст ошибки
	reply, err := s.assistant.Submit(context.WithoutCancel(c.Request().Context()), req.Text)
	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "message is empty"})
	case errors.Is(err, assistant.ErrBusy):
		return c.JSON(http.StatusConflict, errorResponse{Error: "assistant is busy"})
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, replyResponse{Reply: reply})
}

func (s *Server) postImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "multipart field \"image\" is required"})
	}
	if s.maxUpload > 0 && fh.Size > s.maxUpload {
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "image is too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	reply, err := s.assistant.SubmitImage(context.WithoutCancel(c.Request().Context()), data)
	if errors.Is(err, assistant.ErrBusy) {
		return c.JSON(http.StatusConflict, errorResponse{Error: "assistant is busy"})
	}
	var stageErr *assistant.StageError
	if errors.As(err, &stageErr) {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: assistant.ImageFailureNotice, Stage: string(stageErr.Stage)})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, replyResponse{Reply: reply})
}

// uploadLimit отсекает тело запроса больше лимита до разбора multipart.
// Запас покрывает заголовки частей; точный размер файла проверяет postImage.
func (s *Server) uploadLimit() []echo.MiddlewareFunc {
	if s.maxUpload <= 0 {
		return nil
	}
	return []echo.MiddlewareFunc{middleware.BodyLimit(strconv.FormatInt(s.maxUpload+multipartOverhead, 10) + "B")}
}

func (s *Server) getAudio(c echo.Context) error {
	if s.audio == nil {
		return echo.NewHTTPError(http.StatusNotFound, "narration is disabled")
	}
	path, ok := s.audio.AudioPath(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "audio not ready")
	}
	return c.File(path)
}

func (s *Server) getWS(c echo.Context) error {
	return s.hub.ServeWS(c.Response(), c.Request())
}
