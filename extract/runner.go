// Package extract оркеструет проход по датасету и извлечение эмбеддингов
package extract

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"spooffeat/ai"
	"spooffeat/dataset"
)

// BatchFunc вызывается для каждого обработанного батча
// Возвращённая ошибка прерывает проход
type BatchFunc func(batch *dataset.Batch, embeddings *ai.EmbeddingBatch) error

// Summary итог прохода по датасету
type Summary struct {
	RunID      string
	Items      int
	Batches    int
	SeqLen     int
	HiddenSize int
	Bonafide   int
	Spoof      int
	Elapsed    time.Duration
}

// Runner прогоняет батчи признаков через энкодер
// Один линейный однопоточный проход, fail-fast без восстановления
type Runner struct {
	loader  *dataset.Loader
	encoder ai.FeatureEncoder

	// OnBatch опциональный обработчик эмбеддингов (nil - только логирование)
	OnBatch BatchFunc
}

// NewRunner создаёт runner с внедрённым энкодером
func NewRunner(loader *dataset.Loader, encoder ai.FeatureEncoder) *Runner {
	return &Runner{
		loader:  loader,
		encoder: encoder,
	}
}

// Run выполняет полный проход: собирает батчи, прогоняет через энкодер,
// логирует формы и метки. Возвращает итоговую сводку.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	// Останавливаем prefetch горутину при любом исходе прохода,
	// включая отмену контекста и ошибки обработчика
	defer r.loader.Close()

	summary := &Summary{
		RunID: uuid.New().String(),
	}
	numBatches := r.loader.NumBatches()
	started := time.Now()

	log.Printf("Starting feature extraction: run=%s, encoder=%s, batches=%d",
		summary.RunID, r.encoder.Name(), numBatches)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		batch, err := r.loader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load batch: %w", err)
		}

		embeddings, err := r.encoder.EncodeBatch(batch.Features)
		if err != nil {
			return nil, fmt.Errorf("failed to encode batch %d: %w", summary.Batches+1, err)
		}

		log.Printf("Batch %d/%d: embeddings [%d, %d, %d], labels %v",
			summary.Batches+1, numBatches,
			embeddings.BatchSize, embeddings.SeqLen, embeddings.HiddenSize,
			batch.Labels)

		if r.OnBatch != nil {
			if err := r.OnBatch(batch, embeddings); err != nil {
				return nil, fmt.Errorf("batch handler failed: %w", err)
			}
		}

		summary.Batches++
		summary.Items += batch.Size()
		summary.SeqLen = embeddings.SeqLen
		summary.HiddenSize = embeddings.HiddenSize
		for _, label := range batch.Labels {
			if label == dataset.LabelBonafide {
				summary.Bonafide++
			} else {
				summary.Spoof++
			}
		}
	}

	summary.Elapsed = time.Since(started)
	log.Printf("Feature extraction completed: run=%s, items=%d (bonafide=%d, spoof=%d), elapsed=%s",
		summary.RunID, summary.Items, summary.Bonafide, summary.Spoof, summary.Elapsed)

	return summary, nil
}
