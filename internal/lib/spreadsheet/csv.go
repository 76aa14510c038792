// Package spreadsheet — адаптер внешнего читателя таблиц: превращает
// байты загруженного CSV-файла в сырой лист строк. Ядро сверки
// потребляет только результат; кодирование файлов остаётся заботой
// коллаборатора, и этот адаптер — его минимальная реализация для
// HTTP-загрузки.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// MaxFileSize — максимальный допустимый размер загружаемого файла (10MB).
const MaxFileSize int64 = 10 * 1024 * 1024

// ReadGrid разбирает CSV в лист строк. Количество колонок в строках
// может плавать (экспорт из разных редакторов), поэтому проверка
// на число полей отключена; невалидный UTF-8 замещается.
func ReadGrid(data []byte) ([][]string, error) {
	const op = "spreadsheet.ReadGrid"

	reader := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var grid [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		grid = append(grid, record)
	}
	return grid, nil
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return []byte(strings.ToValidUTF8(string(data), "�"))
}
