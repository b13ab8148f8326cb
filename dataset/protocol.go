// Package dataset реализует загрузку метаданных ASVspoof и аудио файлов
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMalformedProtocol возвращается для строки протокола с недостаточным
// количеством полей. Битые строки фатальны, молчаливый пропуск запрещён.
var ErrMalformedProtocol = errors.New("malformed protocol line")

// Label метка записи: bonafide (настоящая речь) или spoof (синтез/replay)
type Label int

const (
	LabelBonafide Label = 0
	LabelSpoof    Label = 1
)

// String возвращает текстовое представление метки
func (l Label) String() string {
	if l == LabelBonafide {
		return "bonafide"
	}
	return "spoof"
}

// Entry запись протокола: имя аудио файла (без расширения) и метка
type Entry struct {
	Name  string
	Label Label
}

// LoadProtocol загружает протокол ASVspoof
// Каждая строка содержит >=5 полей через пробелы: поле[1] - имя файла,
// поле[4] == "bonafide" даёт метку 0, любое другое значение - 1.
// Порядок записей соответствует порядку строк файла.
func LoadProtocol(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open protocol file: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		parts := strings.Fields(scanner.Text())
		if len(parts) < 5 {
			return nil, fmt.Errorf("%w: line %d has %d fields, want at least 5",
				ErrMalformedProtocol, lineNum, len(parts))
		}

		label := LabelSpoof
		if parts[4] == "bonafide" {
			label = LabelBonafide
		}
		entries = append(entries, Entry{Name: parts[1], Label: label})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read protocol file: %w", err)
	}

	return entries, nil
}
