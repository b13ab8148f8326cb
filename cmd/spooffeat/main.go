// Извлечение Whisper-эмбеддингов из датасета ASVspoof для
// исследования spoof-детекции
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"spooffeat/ai"
	"spooffeat/dataset"
	"spooffeat/extract"
	"spooffeat/internal/config"
	"spooffeat/models"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Определяем путь к модели: явный путь или скачивание по ID
	modelPath := cfg.ModelPath
	if modelPath == "" {
		log.Printf("Loading encoder model %s...", cfg.ModelID)
		path, err := models.EnsureModel(ctx, cfg.ModelID, cfg.ModelsDir, func(progress float64) {
			log.Printf("Download progress: %.1f%%", progress)
		})
		if err != nil {
			log.Fatalf("Failed to ensure model: %v", err)
		}
		modelPath = path
	}

	encoderConfig := ai.DefaultWhisperEncoderConfig(modelPath)
	encoderConfig.TargetFrames = cfg.TargetFrames

	encoder, err := ai.NewWhisperEncoder(encoderConfig)
	if err != nil {
		log.Fatalf("Failed to create encoder: %v", err)
	}
	defer encoder.Close()
	log.Println("Encoder loaded successfully")

	featureConfig := dataset.FeatureConfig{
		SampleRate:   cfg.SampleRate,
		TargetFrames: cfg.TargetFrames,
		Extension:    cfg.Extension,
	}

	ds, err := dataset.NewDataset(cfg.AudioDir, cfg.ProtocolPath, featureConfig)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	loader := dataset.NewLoader(ds, cfg.BatchSize)
	if cfg.Prefetch > 0 {
		loader.StartPrefetch(cfg.Prefetch)
	}

	runner := extract.NewRunner(loader, encoder)
	summary, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("Feature extraction failed: %v", err)
	}

	log.Printf("Done: %d items in %d batches, hidden size %d, run %s",
		summary.Items, summary.Batches, summary.HiddenSize, summary.RunID)
}
