package dataset

import (
	"fmt"
	"log"
	"path/filepath"

	"spooffeat/ai"
)

// FeatureConfig параметры извлечения признаков для одной записи
type FeatureConfig struct {
	SampleRate   int    // Целевая частота дискретизации
	TargetFrames int    // Фиксированная длина по времени (3000 = 30 секунд)
	Extension    string // Расширение аудио файлов (".flac" для ASVspoof)
}

// DefaultFeatureConfig возвращает конфигурацию ASVspoof2019 LA + whisper-base
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		SampleRate:   16000,
		TargetFrames: 3000,
		Extension:    ".flac",
	}
}

// Item один элемент датасета: имя, метка и mel-спектрограмма
// фиксированной формы [nMels][TargetFrames]
type Item struct {
	Name     string
	Label    Label
	Features [][]float32
}

// Dataset отображает протокол ASVspoof на mel-спектрограммы
// Аудио читается с диска при каждом обращении, без кеширования
type Dataset struct {
	audioDir string
	entries  []Entry
	config   FeatureConfig
	mel      *ai.MelProcessor
}

// NewDataset загружает протокол и создаёт датасет
func NewDataset(audioDir, protocolPath string, config FeatureConfig) (*Dataset, error) {
	entries, err := LoadProtocol(protocolPath)
	if err != nil {
		return nil, err
	}

	melConfig := ai.DefaultMelConfig()
	melConfig.SampleRate = config.SampleRate

	d := &Dataset{
		audioDir: audioDir,
		entries:  entries,
		config:   config,
		mel:      ai.NewMelProcessor(melConfig),
	}

	log.Printf("Dataset initialized with %d samples", len(entries))
	return d, nil
}

// Len возвращает количество записей
func (d *Dataset) Len() int {
	return len(d.entries)
}

// Entries возвращает записи протокола в исходном порядке
func (d *Dataset) Entries() []Entry {
	return d.entries
}

// At загружает аудио записи i и возвращает признаки фиксированной формы
// Последовательность: декодирование, ресемплинг к целевой частоте,
// первый канал, log-mel спектрограмма, pad/truncate до TargetFrames
func (d *Dataset) At(i int) (*Item, error) {
	if i < 0 || i >= len(d.entries) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", i, len(d.entries))
	}
	entry := d.entries[i]

	audioPath := filepath.Join(d.audioDir, entry.Name+d.config.Extension)
	samples, sampleRate, err := LoadAudio(audioPath)
	if err != nil {
		return nil, err
	}

	if sampleRate != d.config.SampleRate {
		samples = ResampleLinear(samples, sampleRate, d.config.SampleRate)
	}

	mel, _ := d.mel.Compute(samples)
	mel = ai.FitLength(mel, d.config.TargetFrames)

	return &Item{
		Name:     entry.Name,
		Label:    entry.Label,
		Features: mel,
	}, nil
}
