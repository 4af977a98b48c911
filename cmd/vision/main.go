package main

import (
	"EWasteAssistant/internal/app/bootstrap"
	"EWasteAssistant/internal/config"
	imgsvc "EWasteAssistant/internal/service/image"
	"EWasteAssistant/internal/service/prompt"
	"EWasteAssistant/internal/service/vision"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Разовая классификация картинки: vision [флаги] <path>.
// Печатает варианты распознавания и запрос, который ушёл бы ассистенту.
func main() {
	args := os.Args[1:]
	if len(args) == 0 || strings.HasPrefix(args[len(args)-1], "-") {
		log.Fatal("usage: vision [flags] <image path>")
	}
	path := args[len(args)-1]

	cfg, err := config.Load(args[:len(args)-1])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
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

	ctx := context.Background()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read image file: %v", err)
	}

	backend, err := bootstrap.NewVisionBackend(cfg, sugar)
	if err != nil {
		log.Fatal(err)
	}
	classifier := vision.NewClassifier(backend, cfg.Vision.MaxPredictions, sugar)
	decoder := imgsvc.NewDecoder(cfg.Upload.MaxBytes, cfg.Upload.MaxWidth)

	if err := run(ctx, os.Stdout, decoder, classifier, data); err != nil {
		sugar.Errorw("Classification failed", "path", path, "error", err)
		os.Exit(1)
	}
}

type classifier interface {
	Classify(ctx context.Context, img image.Image) (vision.Result, error)
}

func run(ctx context.Context, w io.Writer, decoder *imgsvc.Decoder, c classifier, data []byte) error {
	decoded, err := decoder.Decode(ctx, data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	result, err := c.Classify(ctx, decoded.Image)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	fmt.Fprintf(w, "%s %dx%d (original %dx%d)\n", decoded.MimeType, decoded.Width, decoded.Height, decoded.OrigWidth, decoded.OrigHeight)
	for i, p := range result {
		fmt.Fprintf(w, "%d. %-30s %3d%%\n", i+1, p.Label, prompt.ConfidencePercent(p.Confidence))
	}

	text, err := prompt.Synthesize(result)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	fmt.Fprintf(w, "\n%s\n", text)
	return nil
}
