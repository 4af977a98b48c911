package main

import (
	"EWasteAssistant/internal/app/assistant"
	"EWasteAssistant/internal/app/bootstrap"
	"EWasteAssistant/internal/config"
	"EWasteAssistant/internal/service/events/web"
	"EWasteAssistant/internal/service/notify"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// HTTP + WebSocket интерфейс ассистента. Останавливается по Ctrl+C / SIGTERM.
func main() {
	cfg := config.NewConfig()
	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow(
		"Starting server",
		"DebugMode", cfg.DebugMode,
		"BindAddr", cfg.Server.BindAddr,
	)

	hub := web.NewHub(sugar)
	app, err := bootstrap.Build(ctx, cfg, sugar, bootstrap.Options{
		Notifier:  notify.Multi{hub, notify.NewConsole(os.Stderr, sugar)},
		Observers: []assistant.Observer{hub},
	})
	if err != nil {
		sugar.Fatalw("Failed to wire assistant", "error", err)
	}

	var audio web.AudioStore
	if app.Narrator != nil {
		audio = app.Narrator
		go func() { _ = app.Narrator.Run(ctx) }()
	}

	srv := web.NewServer(cfg.Server, cfg.Upload.MaxBytes, app.Assistant, hub, audio, sugar)
	// Останавливаем сервер сами ниже, чтобы дождаться graceful shutdown
	if err := srv.Start(context.WithoutCancel(ctx)); err != nil {
		sugar.Fatalw("Failed to start server", "error", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeoutCause(context.Background(), 5*time.Second, errors.New("shutdown timeout"))
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		sugar.Warnw("Server stop error", "error", err)
	}
	if app.Narrator != nil {
		app.Narrator.Wait()
	}
	sugar.Infow("Server stopped")
}
