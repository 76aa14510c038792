// Package normalize приводит «сырые» email и телефоны к каноничной
// форме для сравнения. Обе функции тотальны: никогда не возвращают
// ошибку, непарсимый ввод сводится к наилучшей цифровой строке,
// пустой ввод — к пустой строке. Обе идемпотентны.
package normalize

import "strings"

// countryCodes — коды стран, для которых после кода вырезается
// местный магистральный ноль ("9710501234567" → "971501234567").
// Номера вне этого набора нормализуются без вырезания нуля —
// известное ограничение эвристики, не полный парсер E.164.
var countryCodes = []string{"971", "966", "965", "974", "973", "968", "962", "20"}

// Email приводит адрес к сравнимой форме: обрезает пробелы и
// переводит в нижний регистр. Равенство — побайтовое по результату.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Phone приводит телефон к чистой цифровой строке с кодом страны:
// убирает пробелы, дефисы и скобки, срезает ведущий "+" или "00",
// затем для известных кодов стран вырезает магистральный ноль
// сразу после кода.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '-', '(', ')', '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	} else if strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}

	for _, cc := range countryCodes {
		if strings.HasPrefix(digits, cc) && strings.HasPrefix(digits[len(cc):], "0") {
			// Срезаются все нули после кода, а не один: иначе повторная
			// нормализация строки вида "97100501..." давала бы новый результат.
			digits = cc + strings.TrimLeft(digits[len(cc):], "0")
			break
		}
	}
	return digits
}
