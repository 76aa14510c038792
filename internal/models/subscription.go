package models

import (
	"fmt"
	"time"
)

// SubscriptionStatus описывает состояние записи на воркшоп.
// Закрытое множество значений вместо свободных строк, чтобы
// переходы состояний проверялись на этапе компиляции.
type SubscriptionStatus string

const (
	// StatusActive — действующая запись.
	StatusActive SubscriptionStatus = "active"
	// StatusTransferred — запись перенесена на другой воркшоп или участника.
	StatusTransferred SubscriptionStatus = "transferred"
	// StatusRefunded — возврат средств, терминальное состояние.
	// Возвращённая запись не блокирует повторную запись на тот же воркшоп.
	StatusRefunded SubscriptionStatus = "refunded"
)

// ParseSubscriptionStatus конвертирует строку из хранилища в SubscriptionStatus.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(s) {
	case StatusActive, StatusTransferred, StatusRefunded:
		return SubscriptionStatus(s), nil
	default:
		return "", fmt.Errorf("unknown subscription status: %q", s)
	}
}

// PaymentMethod описывает способ оплаты записи.
type PaymentMethod string

const (
	// PaymentBank — банковский перевод.
	PaymentBank PaymentMethod = "bank"
	// PaymentLink — оплата по платёжной ссылке.
	PaymentLink PaymentMethod = "link"
	// PaymentGift — подарочная запись, без оплаты.
	PaymentGift PaymentMethod = "gift"
	// PaymentCredit — зачёт ранее внесённых средств.
	PaymentCredit PaymentMethod = "credit"
	// PaymentCash — наличные.
	PaymentCash PaymentMethod = "cash"
)

// ParsePaymentMethod конвертирует строку из запроса или хранилища в PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentBank, PaymentLink, PaymentGift, PaymentCredit, PaymentCash:
		return PaymentMethod(s), nil
	default:
		return "", fmt.Errorf("unknown payment method: %q", s)
	}
}

// Subscription представляет запись участника на один воркшоп.
// Запись никогда не удаляется физически: возврат переводит её
// в терминальный статус StatusRefunded.
type Subscription struct {
	ID             string             // Уникальный идентификатор (UUID)
	PersonID       string             // Владелец записи
	WorkshopID     int                // Внешний ключ воркшопа (непрозрачное целое для ядра)
	PackageID      *int               // Необязательный пакет, nil — без пакета
	Status         SubscriptionStatus // Состояние записи
	IsApproved     bool               // false — ожидающая подтверждения заявка
	PricePaid      float64            // Уплаченная сумма, неотрицательная
	PaymentMethod  PaymentMethod      // Способ оплаты
	ActivationDate time.Time          // Начало окна доступа (контролируется коллаборатором)
	ExpiryDate     time.Time          // Конец окна доступа
}

// IsEnrollment сообщает, считается ли запись действующей для проверки
// конфликтов: любой статус, кроме возврата, блокирует повторную запись,
// включая неподтверждённые заявки.
func (s Subscription) IsEnrollment() bool {
	return s.Status != StatusRefunded
}

// EnrollmentSpec описывает параметры новой записи на воркшоп,
// передаваемые сервисному слою из обработчиков и движка сверки.
type EnrollmentSpec struct {
	WorkshopID     int
	PackageID      *int
	IsApproved     bool
	PricePaid      float64
	PaymentMethod  PaymentMethod
	ActivationDate time.Time
	ExpiryDate     time.Time
}

// CreateEnrollmentRequest используется для приёма данных записи из JSON-запроса.
// Даты приходят строками в формате 02-01-2006 и парсятся вручную.
type CreateEnrollmentRequest struct {
	PersonID       string  `json:"person_id" validate:"required,uuid"`
	WorkshopID     int     `json:"workshop_id" validate:"required,gt=0"`
	PackageID      *int    `json:"package_id,omitempty"`
	IsApproved     bool    `json:"is_approved"`
	PricePaid      float64 `json:"price_paid" validate:"gte=0"`
	PaymentMethod  string  `json:"payment_method" validate:"required"`
	ActivationDate string  `json:"activation_date" validate:"required"`
	ExpiryDate     string  `json:"expiry_date" validate:"required"`
}

// TransferEnrollmentRequest описывает перенос записи: исходная запись
// помечается перенесённой, взамен создаётся новая действующая запись.
type TransferEnrollmentRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required,uuid"`
	PersonID       string `json:"person_id" validate:"required,uuid"`
	WorkshopID     int    `json:"workshop_id" validate:"required,gt=0"`
	PackageID      *int   `json:"package_id,omitempty"`
}
