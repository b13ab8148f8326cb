package dataset

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testFeatureConfig маленькая конфигурация чтобы тесты оставались быстрыми
func testFeatureConfig() FeatureConfig {
	return FeatureConfig{
		SampleRate:   16000,
		TargetFrames: 100, // 1 секунда
		Extension:    ".wav",
	}
}

// makeTestDataset создаёт временный датасет: WAV файлы + протокол
// durations задаёт длительность каждой записи в сэмплах (на 16kHz)
func makeTestDataset(t *testing.T, durations []int, labels []string) *Dataset {
	t.Helper()
	dir := t.TempDir()

	protocol := ""
	for i, n := range durations {
		name := filepath.Join(dir, nameFor(i)+".wav")
		samples := make([]float32, n)
		for j := range samples {
			samples[j] = float32(0.3 * math.Sin(2*math.Pi*440*float64(j)/16000))
		}
		writeWAV(t, name, samples, 16000, 1)
		protocol += "LA_0001 " + nameFor(i) + " - - " + labels[i] + "\n"
	}

	protocolPath := filepath.Join(dir, "protocol.txt")
	if err := os.WriteFile(protocolPath, []byte(protocol), 0644); err != nil {
		t.Fatal(err)
	}

	ds, err := NewDataset(dir, protocolPath, testFeatureConfig())
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}
	return ds
}

func nameFor(i int) string {
	return "LA_T_000" + string(rune('1'+i))
}

func TestDatasetAt(t *testing.T) {
	// Короче, ровно и длиннее целевой длины (100 фреймов = 16000 сэмплов)
	ds := makeTestDataset(t,
		[]int{8000, 16000, 24000},
		[]string{"bonafide", "spoof", "spoof"})

	if ds.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", ds.Len())
	}

	for i := 0; i < ds.Len(); i++ {
		item, err := ds.At(i)
		if err != nil {
			t.Fatalf("At(%d) failed: %v", i, err)
		}
		if len(item.Features) != 80 {
			t.Errorf("Item %d: expected 80 mel rows, got %d", i, len(item.Features))
		}
		for m, row := range item.Features {
			if len(row) != 100 {
				t.Fatalf("Item %d mel %d: expected 100 frames, got %d", i, m, len(row))
			}
		}
	}

	first, _ := ds.At(0)
	if first.Label != LabelBonafide {
		t.Errorf("Expected bonafide label, got %v", first.Label)
	}
	if first.Name != "LA_T_0001" {
		t.Errorf("Expected name LA_T_0001, got %q", first.Name)
	}
}

func TestDatasetAtResamples(t *testing.T) {
	// Файл на 8kHz: 1 секунда должна дать те же 100 фреймов после ресемплинга
	dir := t.TempDir()
	samples := make([]float32, 8000)
	writeWAV(t, filepath.Join(dir, "low.wav"), samples, 8000, 1)

	protocolPath := filepath.Join(dir, "protocol.txt")
	os.WriteFile(protocolPath, []byte("s low - - bonafide\n"), 0644)

	ds, err := NewDataset(dir, protocolPath, testFeatureConfig())
	if err != nil {
		t.Fatal(err)
	}

	item, err := ds.At(0)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	for _, row := range item.Features {
		if len(row) != 100 {
			t.Fatalf("Expected 100 frames after resampling, got %d", len(row))
		}
	}
}

func TestDatasetMissingAudio(t *testing.T) {
	dir := t.TempDir()
	protocolPath := filepath.Join(dir, "protocol.txt")
	os.WriteFile(protocolPath, []byte("s ghost - - bonafide\n"), 0644)

	ds, err := NewDataset(dir, protocolPath, testFeatureConfig())
	if err != nil {
		t.Fatal(err)
	}

	// Отсутствующий файл - явная ошибка, не молчаливый пропуск
	_, err = ds.At(0)
	if err == nil {
		t.Fatal("Expected error for missing audio file")
	}
	if !errors.Is(err, ErrAudioDecode) {
		t.Errorf("Expected ErrAudioDecode, got %v", err)
	}
}

func TestDatasetAtOutOfRange(t *testing.T) {
	ds := makeTestDataset(t, []int{8000}, []string{"bonafide"})
	if _, err := ds.At(5); err == nil {
		t.Error("Expected error for out of range index")
	}
	if _, err := ds.At(-1); err == nil {
		t.Error("Expected error for negative index")
	}
}

func TestLoaderBatches(t *testing.T) {
	ds := makeTestDataset(t,
		[]int{8000, 8000, 8000},
		[]string{"bonafide", "spoof", "bonafide"})

	loader := NewLoader(ds, 2)
	if loader.NumBatches() != 2 {
		t.Fatalf("Expected 2 batches, got %d", loader.NumBatches())
	}

	first, err := loader.Next()
	if err != nil {
		t.Fatalf("First batch failed: %v", err)
	}
	if first.Size() != 2 {
		t.Errorf("First batch: expected size 2, got %d", first.Size())
	}
	if first.Labels[0] != LabelBonafide || first.Labels[1] != LabelSpoof {
		t.Errorf("First batch labels wrong: %v", first.Labels)
	}

	// Последний батч неполный
	second, err := loader.Next()
	if err != nil {
		t.Fatalf("Second batch failed: %v", err)
	}
	if second.Size() != 1 {
		t.Errorf("Second batch: expected size 1, got %d", second.Size())
	}

	if _, err := loader.Next(); err != io.EOF {
		t.Errorf("Expected io.EOF after last batch, got %v", err)
	}
}

func TestLoaderPrefetchOrder(t *testing.T) {
	ds := makeTestDataset(t,
		[]int{8000, 8000, 8000},
		[]string{"bonafide", "spoof", "bonafide"})

	loader := NewLoader(ds, 1)
	loader.StartPrefetch(2)

	var names []string
	for {
		batch, err := loader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		names = append(names, batch.Names...)
	}

	// Prefetch не меняет порядок
	want := []string{"LA_T_0001", "LA_T_0002", "LA_T_0003"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), len(names))
	}
	for i, w := range want {
		if names[i] != w {
			t.Errorf("Position %d: expected %s, got %s", i, w, names[i])
		}
	}
}

func TestLoaderCloseStopsPrefetch(t *testing.T) {
	ds := makeTestDataset(t,
		[]int{8000, 8000, 8000, 8000},
		[]string{"bonafide", "spoof", "spoof", "bonafide"})

	loader := NewLoader(ds, 1)
	loader.StartPrefetch(1)

	// Читаем один батч и бросаем обход
	if _, err := loader.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	loader.Close()

	// После Close горутина prefetch обязана завершиться и закрыть канал,
	// даже если она была заблокирована на отправке в заполненный буфер
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-loader.ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Prefetch goroutine did not stop after Close")
		}
	}
}

func TestLoaderCloseIdempotent(t *testing.T) {
	ds := makeTestDataset(t, []int{8000}, []string{"bonafide"})

	// Close без prefetch и повторный Close не должны паниковать
	loader := NewLoader(ds, 1)
	loader.Close()
	loader.Close()

	// StartPrefetch после Close не запускает горутину
	loader.StartPrefetch(1)
	if loader.ch != nil {
		t.Error("StartPrefetch after Close should be a no-op")
	}
}

func TestLoaderPrefetchResumesFromCurrent(t *testing.T) {
	ds := makeTestDataset(t,
		[]int{8000, 8000, 8000},
		[]string{"bonafide", "spoof", "bonafide"})

	loader := NewLoader(ds, 1)
	defer loader.Close()

	// Первый батч последовательно, остальные через prefetch
	first, err := loader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if first.Names[0] != "LA_T_0001" {
		t.Fatalf("First batch: expected LA_T_0001, got %s", first.Names[0])
	}

	loader.StartPrefetch(1)

	var names []string
	for {
		batch, err := loader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		names = append(names, batch.Names...)
	}

	// Prefetch продолжает с текущей позиции, без повтора первого батча
	want := []string{"LA_T_0002", "LA_T_0003"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d items after resume, got %d: %v", len(want), len(names), names)
	}
	for i, w := range want {
		if names[i] != w {
			t.Errorf("Position %d: expected %s, got %s", i, w, names[i])
		}
	}
}

func TestLoaderFailFast(t *testing.T) {
	dir := t.TempDir()
	samples := make([]float32, 8000)
	writeWAV(t, filepath.Join(dir, "ok.wav"), samples, 16000, 1)

	// Вторая запись ссылается на несуществующий файл
	protocolPath := filepath.Join(dir, "protocol.txt")
	os.WriteFile(protocolPath, []byte("s ok - - bonafide\ns ghost - - spoof\n"), 0644)

	ds, err := NewDataset(dir, protocolPath, testFeatureConfig())
	if err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(ds, 2)
	_, err = loader.Next()
	if err == nil {
		t.Fatal("Expected batch error for missing audio")
	}
	if !errors.Is(err, ErrAudioDecode) {
		t.Errorf("Expected ErrAudioDecode, got %v", err)
	}
}
