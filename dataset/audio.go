package dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// ErrAudioDecode возвращается при любой ошибке чтения или декодирования
// аудио файла (отсутствующий файл, неподдерживаемый формат, битые данные)
var ErrAudioDecode = errors.New("audio decode error")

// LoadAudio декодирует аудио файл в float32 сэмплы [-1.0, 1.0]
// Возвращает первый канал и исходную частоту дискретизации.
// Формат определяется по расширению: .flac, .wav, .mp3
func LoadAudio(path string) ([]float32, int, error) {
	var samples []float32
	var sampleRate int
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		samples, sampleRate, err = readFLAC(path)
	case ".wav":
		samples, sampleRate, err = readWAV(path)
	case ".mp3":
		samples, sampleRate, err = readMP3(path)
	default:
		return nil, 0, fmt.Errorf("%w: unsupported extension %q", ErrAudioDecode, filepath.Ext(path))
	}

	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrAudioDecode, path, err)
	}
	return samples, sampleRate, nil
}

// readFLAC декодирует FLAC файл (основной формат ASVspoof)
func readFLAC(path string) ([]float32, int, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	sampleRate := int(stream.Info.SampleRate)
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	var samples []float32
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		// Берём первый канал
		for _, s := range frame.Subframes[0].Samples {
			samples = append(samples, float32(s)/scale)
		}
	}

	return samples, sampleRate, nil
}

// readWAV декодирует WAV файл
func readWAV(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file")
	}

	var buf *audio.IntBuffer
	buf, err = decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, 0, fmt.Errorf("no channels")
	}
	scale := float32(int64(1) << (decoder.BitDepth - 1))

	// Берём первый канал из interleaved данных
	numSamples := len(buf.Data) / channels
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = float32(buf.Data[i*channels]) / scale
	}

	return samples, buf.Format.SampleRate, nil
}

// readMP3 декодирует MP3 файл
// go-mp3 всегда отдаёт signed 16-bit stereo, берём левый канал
func readMP3(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, 0, err
	}

	pcmData, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, err
	}

	// 2 bytes per sample * 2 channels
	numSamples := len(pcmData) / 4
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		left := int16(binary.LittleEndian.Uint16(pcmData[i*4:]))
		samples[i] = float32(left) / 32768.0
	}

	return samples, decoder.SampleRate(), nil
}

// ResampleLinear выполняет линейную интерполяцию для ресемплинга
// Длительность сигнала в секундах сохраняется с точностью до одного сэмпла
func ResampleLinear(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	newLen := int(float64(len(samples)) / ratio)
	resampled := make([]float32, newLen)

	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		if srcIdx+1 < len(samples) {
			resampled[i] = samples[srcIdx]*(1-frac) + samples[srcIdx+1]*frac
		} else if srcIdx < len(samples) {
			resampled[i] = samples[srcIdx]
		}
	}

	return resampled
}
