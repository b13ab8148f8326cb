// Package models предоставляет реестр и загрузку чекпоинтов энкодера
package models

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ModelInfo информация о чекпоинте энкодера
type ModelInfo struct {
	ID          string
	Name        string
	Size        string
	SizeBytes   int64
	Description string
	HiddenSize  int // Размерность hidden state энкодера
	NMels       int // Количество mel-фильтров на входе
	DownloadURL string
}

// Registry реестр доступных ONNX экспортов энкодера Whisper
var Registry = []ModelInfo{
	{
		ID:          "whisper-tiny-encoder",
		Name:        "Whisper Tiny Encoder",
		Size:        "31 MB",
		SizeBytes:   32_909_290,
		Description: "Самый быстрый энкодер, hidden size 384",
		HiddenSize:  384,
		NMels:       80,
		DownloadURL: "https://huggingface.co/onnx-community/whisper-tiny/resolve/main/onnx/encoder_model.onnx",
	},
	{
		ID:          "whisper-base-encoder",
		Name:        "Whisper Base Encoder",
		Size:        "79 MB",
		SizeBytes:   83_193_148,
		Description: "Энкодер из референсного экстрактора, hidden size 512",
		HiddenSize:  512,
		NMels:       80,
		DownloadURL: "https://huggingface.co/onnx-community/whisper-base/resolve/main/onnx/encoder_model.onnx",
	},
	{
		ID:          "whisper-small-encoder",
		Name:        "Whisper Small Encoder",
		Size:        "349 MB",
		SizeBytes:   365_654_251,
		Description: "Более выразительные признаки, hidden size 768",
		HiddenSize:  768,
		NMels:       80,
		DownloadURL: "https://huggingface.co/onnx-community/whisper-small/resolve/main/onnx/encoder_model.onnx",
	},
}

// List возвращает все известные модели
func List() []ModelInfo {
	result := make([]ModelInfo, len(Registry))
	copy(result, Registry)
	return result
}

// Lookup ищет модель по ID
func Lookup(id string) (ModelInfo, bool) {
	for _, info := range Registry {
		if info.ID == id {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// EnsureModel возвращает путь к ONNX файлу модели, скачивая его при
// необходимости. Повторный вызов для уже скачанной модели не ходит в сеть.
func EnsureModel(ctx context.Context, id, modelsDir string, onProgress ProgressFunc) (string, error) {
	info, ok := Lookup(id)
	if !ok {
		return "", fmt.Errorf("unknown model id: %s", id)
	}

	destPath := filepath.Join(modelsDir, info.ID+".onnx")
	if _, err := os.Stat(destPath); err == nil {
		return destPath, nil
	}

	if err := DownloadFile(ctx, info.DownloadURL, destPath, info.SizeBytes, onProgress); err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", id, err)
	}

	return destPath, nil
}
