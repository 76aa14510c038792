package models

import (
	"strings"
	"time"
)

// RowLabel — метка классификации строки импорта. Закрытое множество,
// порядок проверок при постановке метки фиксирован (см. пакет reconcile).
type RowLabel string

const (
	// LabelValidNew — пара email+телефон свободна, будет создан новый участник.
	LabelValidNew RowLabel = "valid_new"
	// LabelValidExisting — оба ключа принадлежат одному существующему участнику.
	LabelValidExisting RowLabel = "valid_existing"
	// LabelErrMissingData — имя, email или телефон пусты после обрезки пробелов.
	LabelErrMissingData RowLabel = "error_missing_data"
	// LabelErrInvalidEmail — email не проходит базовую проверку формы local@domain.
	LabelErrInvalidEmail RowLabel = "error_invalid_email"
	// LabelErrInvalidPhone — нормализованный телефон короче 8 цифр.
	LabelErrInvalidPhone RowLabel = "error_invalid_phone"
	// LabelErrDuplicateInFile — email или телефон уже встречались выше в этом же файле.
	LabelErrDuplicateInFile RowLabel = "error_duplicate_in_file"
	// LabelErrConflict — email и телефон принадлежат двум разным участникам.
	LabelErrConflict RowLabel = "error_conflict"
	// LabelErrEmailExists — email занят другим участником, телефон свободен.
	LabelErrEmailExists RowLabel = "error_email_exists"
	// LabelErrPhoneExists — телефон занят другим участником, email свободен.
	LabelErrPhoneExists RowLabel = "error_phone_exists"
	// LabelErrAlreadySubscribed — участник найден, но уже записан на целевой воркшоп.
	LabelErrAlreadySubscribed RowLabel = "error_already_subscribed"
	// LabelErrCommitRowFailed — повторная проверка при фиксации обнаружила,
	// что классификация строки больше не действительна.
	LabelErrCommitRowFailed RowLabel = "commit_row_failed"
)

// IsValid сообщает, относится ли метка к разряду valid_*.
func (l RowLabel) IsValid() bool {
	return strings.HasPrefix(string(l), "valid")
}

// Selectable сообщает, может ли оператор включить строку в фиксацию.
// Ошибочные строки принудительно выбрать нельзя.
func (l RowLabel) Selectable() bool {
	return l.IsValid()
}

// ImportRow — эфемерная строка сессии сверки. Живёт от постановки
// партии до фиксации или закрытия сессии, никогда не сохраняется.
type ImportRow struct {
	RowNumber       int      `json:"row_number"` // Номер строки файла для сообщений оператору
	RawName         string   `json:"raw_name"`
	RawEmail        string   `json:"raw_email"`
	RawPhone        string   `json:"raw_phone"`
	NormalizedEmail string   `json:"normalized_email"`
	NormalizedPhone string   `json:"normalized_phone"`
	Label           RowLabel `json:"label"`
	MatchedPersonID string   `json:"matched_person_id,omitempty"` // Заполняется только для valid_existing
	IsSelected      bool     `json:"is_selected"`
}

// BatchContext — целевой контекст партии импорта: воркшоп, пакет
// и платёжные атрибуты, общие для всех строк файла.
type BatchContext struct {
	WorkshopID     int           `json:"workshop_id"`
	PackageID      *int          `json:"package_id,omitempty"`
	PricePaid      float64       `json:"price_paid"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	ActivationDate time.Time     `json:"activation_date"`
	ExpiryDate     time.Time     `json:"expiry_date"`
}

// CommitRowResult — результат фиксации одной строки: успех с
// идентификаторами созданных сущностей либо причина отказа.
type CommitRowResult struct {
	RowNumber      int      `json:"row_number"`
	Committed      bool     `json:"committed"`
	Label          RowLabel `json:"label"`
	PersonID       string   `json:"person_id,omitempty"`
	SubscriptionID string   `json:"subscription_id,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

// CommitReport — построчный отчёт фиксации партии. Частичный успех
// допустим: неудача одной строки не откатывает предыдущие.
type CommitReport struct {
	BatchID   string            `json:"batch_id"`
	Committed int               `json:"committed"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Rows      []CommitRowResult `json:"rows"`
}
