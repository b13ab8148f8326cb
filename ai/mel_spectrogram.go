// Package ai реализует front-end и энкодер для извлечения Whisper-признаков
package ai

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// MelConfig конфигурация для вычисления log-mel спектрограммы
// Значения по умолчанию соответствуют препроцессингу Whisper (WhisperFeatureExtractor)
type MelConfig struct {
	SampleRate int
	NMels      int
	HopLength  int // SampleRate / 100 (10ms)
	WinLength  int // SampleRate / 40 (25ms), у Whisper равен NFFT
	NFFT       int
}

// DefaultMelConfig возвращает конфигурацию whisper-base (80 mels, 16kHz)
func DefaultMelConfig() MelConfig {
	return MelConfig{
		SampleRate: 16000,
		NMels:      80,
		HopLength:  160,
		WinLength:  400,
		NFFT:       400,
	}
}

// MelProcessor вычисляет log-mel спектрограмму в формате Whisper
type MelProcessor struct {
	config     MelConfig
	melFilters [][]float64
	window     []float64
	fft        *fourier.FFT
}

// NewMelProcessor создаёт новый процессор
func NewMelProcessor(config MelConfig) *MelProcessor {
	p := &MelProcessor{
		config: config,
	}

	p.melFilters = createMelFilterbank(config.NFFT, config.NMels, config.SampleRate)
	p.window = createHannWindow(config.WinLength)
	p.fft = fourier.NewFFT(config.NFFT)

	return p
}

// Compute вычисляет log-mel спектрограмму
// Возвращает матрицу [nMels][numFrames] (frequency-major, как вход энкодера)
// и количество фреймов.
//
// Соответствует WhisperFeatureExtractor: STFT с center=True (reflect padding),
// последний фрейм отбрасывается, поэтому numFrames = len(samples) / hop.
// Затем log10 с клампингом, компрессия динамического диапазона до max-8
// и нормализация (x + 4) / 4.
func (p *MelProcessor) Compute(samples []float32) ([][]float32, int) {
	numFrames := len(samples) / p.config.HopLength

	logSpec := make([][]float64, p.config.NMels)
	for m := range logSpec {
		logSpec[m] = make([]float64, numFrames)
	}

	halfFFT := p.config.NFFT / 2
	powerSpec := make([]float64, halfFFT+1)
	frameData := make([]float64, p.config.NFFT)

	globalMax := math.Inf(-1)

	for frame := 0; frame < numFrames; frame++ {
		// center=True: центр фрейма на позиции frame * hop, края через reflect
		frameStart := frame*p.config.HopLength - halfFFT

		for i := 0; i < p.config.WinLength; i++ {
			sampleIdx := reflectIndex(frameStart+i, len(samples))
			frameData[i] = float64(samples[sampleIdx]) * p.window[i]
		}

		coeffs := p.fft.Coefficients(nil, frameData)

		// Power spectrum (только положительные частоты)
		for i := 0; i <= halfFFT; i++ {
			re := real(coeffs[i])
			im := imag(coeffs[i])
			powerSpec[i] = re*re + im*im
		}

		// Mel-фильтры + log10 с клампингом
		for m := 0; m < p.config.NMels; m++ {
			sum := float64(0)
			for k := 0; k < len(powerSpec); k++ {
				sum += powerSpec[k] * p.melFilters[m][k]
			}
			if sum < 1e-10 {
				sum = 1e-10
			}
			v := math.Log10(sum)
			logSpec[m][frame] = v
			if v > globalMax {
				globalMax = v
			}
		}
	}

	// Компрессия динамического диапазона и нормализация как у Whisper
	mel := make([][]float32, p.config.NMels)
	floor := globalMax - 8.0
	for m := 0; m < p.config.NMels; m++ {
		mel[m] = make([]float32, numFrames)
		for t := 0; t < numFrames; t++ {
			v := logSpec[m][t]
			if v < floor {
				v = floor
			}
			mel[m][t] = float32((v + 4.0) / 4.0)
		}
	}

	return mel, numFrames
}

// reflectIndex отражает индекс от краёв сигнала (reflect padding без
// дублирования крайнего сэмпла, как numpy pad mode="reflect")
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// createMelFilterbank создаёт mel-фильтры
// Slaney-шкала и slaney-нормализация, как в librosa.filters.mel —
// именно эти фильтры зашиты в препроцессинг Whisper
func createMelFilterbank(nFFT, nMels, sampleRate int) [][]float64 {
	// Slaney: линейно до 1000 Hz, логарифмически выше
	const (
		fSp       = 200.0 / 3.0
		minLogHz  = 1000.0
		minLogMel = minLogHz / fSp
	)
	logStep := math.Log(6.4) / 27.0

	hzToMel := func(hz float64) float64 {
		if hz < minLogHz {
			return hz / fSp
		}
		return minLogMel + math.Log(hz/minLogHz)/logStep
	}
	melToHz := func(mel float64) float64 {
		if mel < minLogMel {
			return mel * fSp
		}
		return minLogHz * math.Exp(logStep*(mel-minLogMel))
	}

	numBins := nFFT/2 + 1
	fMax := float64(sampleRate) / 2.0

	// Частоты для каждого FFT bin
	allFreqs := make([]float64, numBins)
	for i := 0; i < numBins; i++ {
		allFreqs[i] = float64(i) * fMax / float64(numBins-1)
	}

	// Mel points (nMels + 2 точек: left edge, centers, right edge)
	mMin := hzToMel(0)
	mMax := hzToMel(fMax)
	fPts := make([]float64, nMels+2)
	for i := 0; i < nMels+2; i++ {
		mel := mMin + float64(i)*(mMax-mMin)/float64(nMels+1)
		fPts[i] = melToHz(mel)
	}

	fDiff := make([]float64, nMels+1)
	for i := 0; i < nMels+1; i++ {
		fDiff[i] = fPts[i+1] - fPts[i]
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		filters[m] = make([]float64, numBins)

		// Slaney-нормализация: площадь каждого фильтра приводится к единице
		enorm := 2.0 / (fPts[m+2] - fPts[m])

		for k := 0; k < numBins; k++ {
			freq := allFreqs[k]

			lower := (freq - fPts[m]) / fDiff[m]
			upper := (fPts[m+2] - freq) / fDiff[m+1]

			val := math.Min(lower, upper)
			if val < 0 {
				val = 0
			}
			filters[m][k] = val * enorm
		}
	}

	return filters
}

// createHannWindow создаёт периодическое окно Ханна (как torch.hann_window)
func createHannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := 0; i < size; i++ {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size)))
	}
	return window
}
