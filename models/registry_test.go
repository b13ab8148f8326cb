package models

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLookup(t *testing.T) {
	info, ok := Lookup("whisper-base-encoder")
	if !ok {
		t.Fatal("whisper-base-encoder not found in registry")
	}
	if info.HiddenSize != 512 {
		t.Errorf("Expected hidden size 512, got %d", info.HiddenSize)
	}
	if info.NMels != 80 {
		t.Errorf("Expected 80 mels, got %d", info.NMels)
	}

	if _, ok := Lookup("no-such-model"); ok {
		t.Error("Lookup of unknown id should fail")
	}
}

func TestEnsureModelUnknown(t *testing.T) {
	_, err := EnsureModel(context.Background(), "no-such-model", t.TempDir(), nil)
	if err == nil {
		t.Fatal("Expected error for unknown model id")
	}
}

func TestEnsureModelExisting(t *testing.T) {
	// Уже скачанная модель возвращается без похода в сеть
	dir := t.TempDir()
	path := filepath.Join(dir, "whisper-base-encoder.onnx")
	if err := os.WriteFile(path, []byte("onnx"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := EnsureModel(context.Background(), "whisper-base-encoder", dir, nil)
	if err != nil {
		t.Fatalf("EnsureModel failed: %v", err)
	}
	if got != path {
		t.Errorf("Expected %s, got %s", path, got)
	}
}
