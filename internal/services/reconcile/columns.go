package reconcile

import (
	"fmt"
	"strings"
)

// Grid — сырой лист таблицы, как его отдаёт внешний читатель:
// первая строка — заголовок, далее данные.
type Grid [][]string

// Columns — индексы обязательных колонок, найденные в строке заголовка.
type Columns struct {
	Name  int
	Email int
	Phone int
}

// ColumnDetectionError перечисляет все отсутствующие колонки одним
// сообщением — единственная ошибка, прерывающая партию целиком:
// без индексов колонок ни одну строку не разобрать.
type ColumnDetectionError struct {
	Missing []string
}

func (e *ColumnDetectionError) Error() string {
	return fmt.Sprintf("column detection failed: missing column(s): %s", strings.Join(e.Missing, ", "))
}

// Ключевые слова подбираются подстрочным поиском без учёта регистра.
// Текст заголовков шаблона может локализоваться коллаборатором,
// важно лишь держать эти ключевые слова в синхроне с шаблоном.
var columnKeywords = map[string][]string{
	"name":  {"name"},
	"email": {"email", "e-mail", "mail"},
	"phone": {"phone", "mobile", "tel"},
}

// DetectColumns находит индексы колонок имени, email и телефона
// в строке заголовка. Первый подходящий заголовок выигрывает.
func DetectColumns(header []string) (Columns, error) {
	found := map[string]int{}
	var missing []string
	for _, key := range []string{"name", "email", "phone"} {
		idx := -1
	scan:
		for i, cell := range header {
			cell := strings.ToLower(strings.TrimSpace(cell))
			for _, kw := range columnKeywords[key] {
				if strings.Contains(cell, kw) {
					idx = i
					break scan
				}
			}
		}
		if idx < 0 {
			missing = append(missing, key)
			continue
		}
		found[key] = idx
	}
	if len(missing) > 0 {
		return Columns{}, &ColumnDetectionError{Missing: missing}
	}
	return Columns{Name: found["name"], Email: found["email"], Phone: found["phone"]}, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
