package main

import (
	"EWasteAssistant/internal/app/bootstrap"
	"EWasteAssistant/internal/config"
	"EWasteAssistant/internal/service/notify"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

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
		"Starting assistant",
		"DebugMode", cfg.DebugMode,
		"ChatProvider", cfg.ChatProvider,
	)

	app, err := bootstrap.Build(ctx, cfg, sugar, bootstrap.Options{Notifier: notify.NewConsole(os.Stdout, sugar)})
	if err != nil {
		sugar.Fatalw("Failed to wire assistant", "error", err)
	}
	if app.Narrator != nil {
		go func() { _ = app.Narrator.Run(ctx) }()
		defer app.Narrator.Wait()
	}

	if err := newREPL(app.Assistant, app.Sessions, os.Stdin, os.Stdout).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("REPL stopped with error", "error", err)
	}
}
