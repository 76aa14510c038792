// Package models содержит доменные структуры реестра участников:
// участников (Person), их записи на воркшопы (Subscription) и
// эфемерные строки сверки при массовом импорте (ImportRow).
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// Person представляет участника, однозначно идентифицируемого
// парой email+телефон. Email сравнивается без учёта регистра,
// телефон — по нормализованной форме.
type Person struct {
	ID        string    // Уникальный идентификатор (UUID), присваивается при создании
	FullName  string    // Полное имя для отображения
	Email     string    // Электронная почта в исходном виде
	Phone     string    // Телефон в исходном виде
	IsDeleted bool      // Мягкое удаление: исключает участника из проверок уникальности
	CreatedAt time.Time // Дата создания записи
}

// RegisterPersonRequest используется для приёма данных регистрации
// одного участника из JSON-запроса, прежде чем конвертировать их в Person.
type RegisterPersonRequest struct {
	FullName string `json:"full_name" validate:"required"` // Полное имя, минимум два слова
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
}
