package ai

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrShapeMismatch возвращается когда признаки не соответствуют
// входному контракту модели (n_mels x target_frames)
var ErrShapeMismatch = errors.New("feature shape mismatch")

// EmbeddingBatch выход энкодера: last hidden state для каждого элемента батча
// Данные хранятся плоско в порядке [batch][seq][hidden]
type EmbeddingBatch struct {
	Data       []float32
	BatchSize  int
	SeqLen     int
	HiddenSize int
}

// Item возвращает hidden states одного элемента батча как [seq][hidden]
// Строки ссылаются на общий буфер, без копирования
func (b *EmbeddingBatch) Item(i int) [][]float32 {
	itemSize := b.SeqLen * b.HiddenSize
	base := i * itemSize
	rows := make([][]float32, b.SeqLen)
	for t := 0; t < b.SeqLen; t++ {
		start := base + t*b.HiddenSize
		rows[t] = b.Data[start : start+b.HiddenSize]
	}
	return rows
}

// FeatureEncoder интерфейс энкодера признаков
// Позволяет подменять ONNX модель фейком в тестах
type FeatureEncoder interface {
	// EncodeBatch прогоняет батч mel-спектрограмм [batch][nMels][frames]
	// через энкодер и возвращает hidden states
	EncodeBatch(features [][][]float32) (*EmbeddingBatch, error)

	// Close освобождает ресурсы энкодера
	Close()

	// Name возвращает имя энкодера (для логирования)
	Name() string
}

// WhisperEncoderConfig конфигурация для Whisper энкодера
type WhisperEncoderConfig struct {
	ModelPath    string
	NMels        int // Количество mel-фильтров на входе модели
	TargetFrames int // Фиксированная длина по времени (3000 = 30 секунд)
}

// DefaultWhisperEncoderConfig возвращает стандартную конфигурацию
// для экспортированного в ONNX энкодера whisper-base
func DefaultWhisperEncoderConfig(modelPath string) WhisperEncoderConfig {
	return WhisperEncoderConfig{
		ModelPath:    modelPath,
		NMels:        80,
		TargetFrames: 3000,
	}
}

// WhisperEncoder прогоняет mel-спектрограммы через ONNX экспорт
// энкодера Whisper и возвращает last hidden state
type WhisperEncoder struct {
	config      WhisperEncoderConfig
	session     *ort.DynamicAdvancedSession
	mu          sync.Mutex
	initialized bool
}

// Проверяем что WhisperEncoder реализует FeatureEncoder
var _ FeatureEncoder = (*WhisperEncoder)(nil)

// NewWhisperEncoder создаёт новый энкодер
func NewWhisperEncoder(config WhisperEncoderConfig) (*WhisperEncoder, error) {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	encoder := &WhisperEncoder{
		config: config,
	}

	// Инициализируем ONNX Runtime (если ещё не инициализирован)
	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	if err := encoder.loadModel(); err != nil {
		return nil, err
	}

	return encoder, nil
}

func (e *WhisperEncoder) loadModel() error {
	inputInfo, outputInfo, err := ort.GetInputOutputInfo(e.config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to get model info: %w", err)
	}

	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}

	log.Printf("WhisperEncoder inputs: %v, outputs: %v", inputNames, outputNames)

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		e.config.ModelPath,
		inputNames,
		outputNames,
		options,
	)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}

	e.session = session
	e.initialized = true
	return nil
}

// Name возвращает имя энкодера
func (e *WhisperEncoder) Name() string {
	return "whisper-encoder"
}

// EncodeBatch прогоняет батч mel-спектрограмм через энкодер
// features - [batch][nMels][frames], все элементы фиксированной формы
func (e *WhisperEncoder) EncodeBatch(features [][][]float32) (*EmbeddingBatch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil, fmt.Errorf("encoder not initialized")
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("empty batch")
	}

	// Проверяем форму каждого элемента до создания тензора
	nMels := e.config.NMels
	frames := e.config.TargetFrames
	for i, item := range features {
		if len(item) != nMels {
			return nil, fmt.Errorf("%w: item %d has %d mel bins, model expects %d",
				ErrShapeMismatch, i, len(item), nMels)
		}
		for m, row := range item {
			if len(row) != frames {
				return nil, fmt.Errorf("%w: item %d mel %d has %d frames, model expects %d",
					ErrShapeMismatch, i, m, len(row), frames)
			}
		}
	}

	batchSize := len(features)

	// Flatten в тензор [batch, n_mels, frames]
	flat := make([]float32, batchSize*nMels*frames)
	for i, item := range features {
		base := i * nMels * frames
		for m, row := range item {
			copy(flat[base+m*frames:], row)
		}
	}

	inputShape := ort.NewShape(int64(batchSize), int64(nMels), int64(frames))
	inputTensor, err := ort.NewTensor(inputShape, flat)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// Запускаем инференс
	outputs := []ort.Value{nil}
	err = e.session.Run([]ort.Value{inputTensor}, outputs)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outputTensor := outputs[0].(*ort.Tensor[float32])
	outputShape := outputTensor.GetShape()
	if len(outputShape) != 3 {
		return nil, fmt.Errorf("%w: unexpected output rank %d", ErrShapeMismatch, len(outputShape))
	}

	// Копируем, так как outputTensor будет уничтожен
	data := make([]float32, len(outputTensor.GetData()))
	copy(data, outputTensor.GetData())

	return &EmbeddingBatch{
		Data:       data,
		BatchSize:  int(outputShape[0]),
		SeqLen:     int(outputShape[1]),
		HiddenSize: int(outputShape[2]),
	}, nil
}

// Close освобождает ресурсы
func (e *WhisperEncoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	e.initialized = false
}

// ONNX Runtime глобальная инициализация
var (
	onnxInitialized bool
	onnxInitMu      sync.Mutex
)

func initONNXRuntime() error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitialized {
		return nil
	}

	// Проверяем переменную окружения для пути к библиотеке
	libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")

	// Если не задана переменная окружения, ищем в стандартных местах
	if libPath == "" {
		searchPaths := []string{
			// Рядом с исполняемым файлом
			"./libonnxruntime.so",
			"./libonnxruntime.dylib",
			"./onnxruntime.dll",
			// Системные пути
			"/usr/local/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.dylib",
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				libPath = path
				break
			}
		}
	}

	if libPath != "" {
		log.Printf("Using ONNX Runtime library: %s", libPath)
		ort.SetSharedLibraryPath(libPath)
	} else {
		log.Println("ONNX Runtime library not found, encoder will not be available")
		return fmt.Errorf("ONNX Runtime library not found")
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return err
	}

	onnxInitialized = true
	log.Println("ONNX Runtime initialized successfully")
	return nil
}
