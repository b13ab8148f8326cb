package ai

import (
	"errors"
	"os"
	"testing"
)

func TestEmbeddingBatchItem(t *testing.T) {
	// 2 элемента, 3 фрейма, hidden size 2
	batch := &EmbeddingBatch{
		Data:       []float32{0, 1, 2, 3, 4, 5, 10, 11, 12, 13, 14, 15},
		BatchSize:  2,
		SeqLen:     3,
		HiddenSize: 2,
	}

	first := batch.Item(0)
	if len(first) != 3 || len(first[0]) != 2 {
		t.Fatalf("Item(0): expected [3][2], got [%d][%d]", len(first), len(first[0]))
	}
	if first[1][0] != 2 || first[1][1] != 3 {
		t.Errorf("Item(0) row 1: expected [2 3], got %v", first[1])
	}

	second := batch.Item(1)
	if second[0][0] != 10 {
		t.Errorf("Item(1) row 0: expected 10, got %f", second[0][0])
	}
	if second[2][1] != 15 {
		t.Errorf("Item(1) row 2: expected 15, got %f", second[2][1])
	}
}

func TestEncodeBatchShapeMismatch(t *testing.T) {
	// Проверка формы выполняется до обращения к ONNX сессии,
	// поэтому модель здесь не нужна
	e := &WhisperEncoder{
		config:      DefaultWhisperEncoderConfig("unused.onnx"),
		initialized: true,
	}

	makeFeatures := func(nMels, frames int) [][][]float32 {
		item := make([][]float32, nMels)
		for m := range item {
			item[m] = make([]float32, frames)
		}
		return [][][]float32{item}
	}

	// Неверное количество mel-фильтров
	_, err := e.EncodeBatch(makeFeatures(64, 3000))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("64 mels: expected ErrShapeMismatch, got %v", err)
	}

	// Неверная длина по времени
	_, err = e.EncodeBatch(makeFeatures(80, 1500))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("1500 frames: expected ErrShapeMismatch, got %v", err)
	}

	// Пустой батч
	_, err = e.EncodeBatch(nil)
	if err == nil {
		t.Error("Empty batch: expected error")
	}
}

func TestWhisperEncoder_Integration(t *testing.T) {
	// Пропускаем если нет модели
	modelPath := os.Getenv("WHISPER_ENCODER_MODEL_PATH")
	if modelPath == "" {
		t.Skip("WHISPER_ENCODER_MODEL_PATH not set")
	}
	if os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH") == "" {
		t.Skip("ONNXRUNTIME_SHARED_LIBRARY_PATH not set")
	}

	encoder, err := NewWhisperEncoder(DefaultWhisperEncoderConfig(modelPath))
	if err != nil {
		t.Fatalf("Failed to create encoder: %v", err)
	}
	defer encoder.Close()

	if encoder.Name() != "whisper-encoder" {
		t.Errorf("Expected name 'whisper-encoder', got %q", encoder.Name())
	}

	// 1 секунда синусоиды, дополненная до 3000 фреймов
	p := NewMelProcessor(DefaultMelConfig())
	mel, _ := p.Compute(makeSine(16000, 440, 16000))
	mel = FitLength(mel, 3000)

	embeddings, err := encoder.EncodeBatch([][][]float32{mel})
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}

	if embeddings.BatchSize != 1 {
		t.Errorf("Expected batch size 1, got %d", embeddings.BatchSize)
	}
	// Энкодер Whisper даунсемплит время в 2 раза: 3000 -> 1500
	if embeddings.SeqLen != 1500 {
		t.Errorf("Expected seq length 1500, got %d", embeddings.SeqLen)
	}
	if embeddings.HiddenSize == 0 {
		t.Error("Hidden size is zero")
	}
	t.Logf("Encoder output: [%d, %d, %d]", embeddings.BatchSize, embeddings.SeqLen, embeddings.HiddenSize)
}
