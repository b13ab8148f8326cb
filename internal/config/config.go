package config

import (
	"flag"
	"path/filepath"
)

type Config struct {
	AudioDir     string
	ProtocolPath string
	ModelPath    string
	ModelID      string
	ModelsDir    string
	Extension    string
	BatchSize    int
	SampleRate   int
	TargetFrames int
	Prefetch     int
}

func Load() *Config {
	audioDir := flag.String("audio", "dataset/ASVspoof2019/LA/ASVspoof2019_LA_train/flac", "Directory with audio files")
	protocolPath := flag.String("protocol", "dataset/ASVspoof2019/LA/ASVspoof2019_LA_cm_protocols/ASVspoof2019.LA.cm.train.trn.txt", "Path to protocol file")
	modelPath := flag.String("model", "", "Path to encoder ONNX file (overrides -model-id)")
	modelID := flag.String("model-id", "whisper-base-encoder", "Encoder model id to download from registry")
	modelsDir := flag.String("models", "", "Directory for downloaded models (default: audioDir/../models)")
	extension := flag.String("ext", ".flac", "Audio file extension")
	batchSize := flag.Int("batch", 32, "Batch size")
	sampleRate := flag.Int("rate", 16000, "Target sample rate")
	targetFrames := flag.Int("frames", 3000, "Fixed mel-spectrogram length (frames)")
	prefetch := flag.Int("prefetch", 0, "Batch prefetch depth (0 = disabled)")
	flag.Parse()

	// Determine models directory
	finalModelsDir := *modelsDir
	if finalModelsDir == "" {
		finalModelsDir = filepath.Join(filepath.Dir(*audioDir), "models")
	}

	return &Config{
		AudioDir:     *audioDir,
		ProtocolPath: *protocolPath,
		ModelPath:    *modelPath,
		ModelID:      *modelID,
		ModelsDir:    finalModelsDir,
		Extension:    *extension,
		BatchSize:    *batchSize,
		SampleRate:   *sampleRate,
		TargetFrames: *targetFrames,
		Prefetch:     *prefetch,
	}
}
