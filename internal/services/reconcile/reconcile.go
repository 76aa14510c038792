// Package reconcile реализует движок массовой сверки: классификацию
// строк импортированной таблицы против живого множества участников,
// редактируемый оператором набор выбранных строк и построчную фиксацию
// с повторной проверкой.
//
// Классификация при постановке партии — снимок, а не блокировка:
// между постановкой и фиксацией оператор может менять данные через
// другие вкладки, поэтому фиксация перепроверяет каждую строку и
// отклоняет только её, не прерывая остальные.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/maka255-beep/workshop-registry/internal/lib/sl"
	"github.com/maka255-beep/workshop-registry/internal/metrics"
	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/normalize"
	"github.com/maka255-beep/workshop-registry/internal/services/identity"
)

var (
	// ErrBatchNotFound — сессия с данным ID не найдена или истекла.
	ErrBatchNotFound = errors.New("reconciliation batch not found")
	// ErrRowNotFound — в сессии нет строки с данным номером.
	ErrRowNotFound = errors.New("row not found in batch")
	// ErrRowNotSelectable — ошибочную строку нельзя включить в фиксацию.
	ErrRowNotSelectable = errors.New("row with error label cannot be selected")
)

// minPhoneDigits — минимальная длина нормализованного телефона в цифрах.
const minPhoneDigits = 8

// sessionTTL — время жизни поставленной партии в хранилище сессий.
// Истечение ключа и есть «оператор закрыл окно, не фиксируя».
const sessionTTL = 2 * time.Hour

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Session — поставленная, ещё не зафиксированная партия импорта.
// Живёт в хранилище сессий между HTTP-запросами оператора.
type Session struct {
	ID        string              `json:"id"`
	Context   models.BatchContext `json:"context"`
	Rows      []models.ImportRow  `json:"rows"`
	CreatedAt time.Time           `json:"created_at"`
}

// Resolver — общий разрешитель личности; та же реализация обслуживает
// одиночную регистрацию, поэтому оба потока согласны в том, что
// считается конфликтом.
type Resolver interface {
	Resolve(ctx context.Context, email, phone string) (identity.Match, error)
}

// Enroller — операции жизненного цикла записи, нужные движку.
type Enroller interface {
	IsEnrolled(ctx context.Context, personID string, workshopID int) (bool, error)
	Enroll(ctx context.Context, personID string, spec models.EnrollmentSpec) (*models.Subscription, error)
}

// PersonCreator создает участника при фиксации строки valid_new.
// SoftDeletePerson служит компенсацией: если запись на воркшоп после
// создания участника не прошла, участник убирается, чтобы строка
// осталась атомарной — либо участник с записью, либо ничего.
type PersonCreator interface {
	CreatePerson(ctx context.Context, p models.Person) error
	SoftDeletePerson(ctx context.Context, id string) (int, error)
}

// SessionStore хранит поставленные партии между запросами.
// Get возвращает (nil, nil), если сессии нет или она истекла.
type SessionStore interface {
	Save(ctx context.Context, session *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// EventPublisher отдаёт события ядра внешнему отправителю уведомлений.
// Доставка — забота коллаборатора, ядро только публикует.
type EventPublisher interface {
	PersonCreated(p models.Person) error
	SubscriptionCreated(sub models.Subscription) error
}

// Engine — движок сверки.
type Engine struct {
	resolver Resolver
	enroller Enroller
	persons  PersonCreator
	sessions SessionStore
	events   EventPublisher
	log      *slog.Logger
}

// New создает новый Engine.
func New(resolver Resolver, enroller Enroller, persons PersonCreator,
	sessions SessionStore, events EventPublisher, log *slog.Logger) *Engine {
	return &Engine{
		resolver: resolver,
		enroller: enroller,
		persons:  persons,
		sessions: sessions,
		events:   events,
		log:      log,
	}
}

// StageBatch разбирает сырой лист, классифицирует каждую строку в
// фиксированном порядке приоритета и сохраняет партию в хранилище
// сессий. Строки valid_* выбраны по умолчанию. Единственная ошибка,
// прерывающая постановку, — ненайденные колонки.
func (e *Engine) StageBatch(ctx context.Context, grid Grid, bctx models.BatchContext) (*Session, error) {
	const op = "reconcile.StageBatch"

	if len(grid) == 0 {
		return nil, &ColumnDetectionError{Missing: []string{"name", "email", "phone"}}
	}
	cols, err := DetectColumns(grid[0])
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        uuid.NewString(),
		Context:   bctx,
		CreatedAt: time.Now().UTC(),
	}
	seenEmails := map[string]int{}
	seenPhones := map[string]int{}

	for i, raw := range grid[1:] {
		row := models.ImportRow{
			RowNumber: i + 2, // строка 1 — заголовок
			RawName:   cellAt(raw, cols.Name),
			RawEmail:  cellAt(raw, cols.Email),
			RawPhone:  cellAt(raw, cols.Phone),
		}
		row.NormalizedEmail = normalize.Email(row.RawEmail)
		row.NormalizedPhone = normalize.Phone(row.RawPhone)

		label, matchedID, err := e.classify(ctx, &row, bctx.WorkshopID, seenEmails, seenPhones)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		row.Label = label
		row.MatchedPersonID = matchedID
		row.IsSelected = label.IsValid()
		metrics.RowsClassified.WithLabelValues(string(label)).Inc()

		session.Rows = append(session.Rows, row)
	}

	if err := e.sessions.Save(ctx, session, sessionTTL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.BatchesStaged.Inc()
	e.log.Info("batch staged",
		slog.String("batch_id", session.ID),
		slog.Int("rows", len(session.Rows)),
		slog.Int("workshop_id", bctx.WorkshopID))
	return session, nil
}

// classify присваивает строке метку. Порядок проверок фиксирован,
// побеждает первое совпадение: пустые поля, форма email, длина
// телефона, дубликат в файле, затем пятизначное разрешение личности
// с понижением valid_existing до error_already_subscribed.
func (e *Engine) classify(ctx context.Context, row *models.ImportRow, workshopID int,
	seenEmails, seenPhones map[string]int) (models.RowLabel, string, error) {

	if row.RawName == "" || row.RawEmail == "" || row.RawPhone == "" {
		return models.LabelErrMissingData, "", nil
	}
	if !emailShape.MatchString(row.NormalizedEmail) {
		return models.LabelErrInvalidEmail, "", nil
	}
	if digitCount(row.NormalizedPhone) < minPhoneDigits {
		return models.LabelErrInvalidPhone, "", nil
	}

	// Первое вхождение ключа не помечается, все последующие — дубликаты.
	_, emailSeen := seenEmails[row.NormalizedEmail]
	_, phoneSeen := seenPhones[row.NormalizedPhone]
	if !emailSeen {
		seenEmails[row.NormalizedEmail] = row.RowNumber
	}
	if !phoneSeen {
		seenPhones[row.NormalizedPhone] = row.RowNumber
	}
	if emailSeen || phoneSeen {
		return models.LabelErrDuplicateInFile, "", nil
	}

	match, err := e.resolver.Resolve(ctx, row.RawEmail, row.RawPhone)
	if err != nil {
		return "", "", err
	}
	switch match.Relation() {
	case identity.RelationConflict:
		return models.LabelErrConflict, "", nil
	case identity.RelationEmailTaken:
		return models.LabelErrEmailExists, "", nil
	case identity.RelationPhoneTaken:
		return models.LabelErrPhoneExists, "", nil
	case identity.RelationExisting:
		enrolled, err := e.enroller.IsEnrolled(ctx, match.EmailMatch.ID, workshopID)
		if err != nil {
			return "", "", err
		}
		if enrolled {
			return models.LabelErrAlreadySubscribed, "", nil
		}
		return models.LabelValidExisting, match.EmailMatch.ID, nil
	default:
		return models.LabelValidNew, "", nil
	}
}

// Get возвращает поставленную партию.
func (e *Engine) Get(ctx context.Context, batchID string) (*Session, error) {
	const op = "reconcile.Get"
	session, err := e.sessions.Get(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if session == nil {
		return nil, ErrBatchNotFound
	}
	return session, nil
}

// Toggle меняет выбор одной строки. Ошибочные строки выбрать нельзя.
func (e *Engine) Toggle(ctx context.Context, batchID string, rowNumber int, selected bool) (*Session, error) {
	const op = "reconcile.Toggle"

	session, err := e.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range session.Rows {
		if session.Rows[i].RowNumber == rowNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrRowNotFound
	}
	if selected && !session.Rows[idx].Label.Selectable() {
		return nil, ErrRowNotSelectable
	}
	session.Rows[idx].IsSelected = selected

	if err := e.sessions.Save(ctx, session, sessionTTL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// SelectAll включает или выключает все строки сразу; затрагиваются
// только строки с метками valid_*.
func (e *Engine) SelectAll(ctx context.Context, batchID string, selected bool) (*Session, error) {
	const op = "reconcile.SelectAll"

	session, err := e.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	for i := range session.Rows {
		if session.Rows[i].Label.Selectable() {
			session.Rows[i].IsSelected = selected
		}
	}
	if err := e.sessions.Save(ctx, session, sessionTTL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// Discard удаляет поставленную партию, не фиксируя её.
func (e *Engine) Discard(ctx context.Context, batchID string) error {
	const op = "reconcile.Discard"
	if _, err := e.Get(ctx, batchID); err != nil {
		return err
	}
	if err := e.sessions.Delete(ctx, batchID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e.log.Info("batch discarded", slog.String("batch_id", batchID))
	return nil
}

// Commit фиксирует выбранные строки в порядке файла. Классификации
// снимка не доверяет: каждая строка заново разрешается против живого
// множества участников, и строка, чья классификация больше не
// действительна, помечается commit_row_failed без прерывания
// остальных. Эффект каждой строки виден всем последующим строкам
// этого же прохода. Частичный успех допустим по построению.
func (e *Engine) Commit(ctx context.Context, batchID string) (*models.CommitReport, error) {
	const op = "reconcile.Commit"

	session, err := e.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	report := &models.CommitReport{BatchID: session.ID}
	for _, row := range session.Rows {
		if !row.IsSelected {
			report.Skipped++
			continue
		}
		result := e.commitRow(ctx, session.Context, row)
		if result.Committed {
			report.Committed++
			metrics.RowsCommitted.Inc()
		} else {
			report.Failed++
			metrics.RowsCommitFailed.Inc()
		}
		report.Rows = append(report.Rows, result)
	}

	if err := e.sessions.Delete(ctx, session.ID); err != nil {
		e.log.Warn("failed to delete committed batch session",
			slog.String("batch_id", session.ID), sl.Err(err))
	}
	e.log.Info("batch committed",
		slog.String("batch_id", session.ID),
		slog.Int("committed", report.Committed),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped))
	return report, nil
}

func (e *Engine) commitRow(ctx context.Context, bctx models.BatchContext, row models.ImportRow) models.CommitRowResult {
	failed := func(reason string) models.CommitRowResult {
		return models.CommitRowResult{
			RowNumber: row.RowNumber,
			Committed: false,
			Label:     models.LabelErrCommitRowFailed,
			Reason:    reason,
		}
	}

	match, err := e.resolver.Resolve(ctx, row.RawEmail, row.RawPhone)
	if err != nil {
		return failed(err.Error())
	}

	var personID string
	var created *models.Person
	switch row.Label {
	case models.LabelValidNew:
		if match.Relation() != identity.RelationFree {
			return failed("identity keys are no longer free")
		}
		person := models.Person{
			ID:        uuid.NewString(),
			FullName:  row.RawName,
			Email:     row.RawEmail,
			Phone:     row.RawPhone,
			CreatedAt: time.Now().UTC(),
		}
		if err := e.persons.CreatePerson(ctx, person); err != nil {
			return failed(err.Error())
		}
		personID = person.ID
		created = &person

	case models.LabelValidExisting:
		if match.Relation() != identity.RelationExisting || match.EmailMatch.ID != row.MatchedPersonID {
			return failed("matched person no longer resolves")
		}
		personID = row.MatchedPersonID

	default:
		return failed(fmt.Sprintf("row label %s is not committable", row.Label))
	}

	sub, err := e.enroller.Enroll(ctx, personID, models.EnrollmentSpec{
		WorkshopID:     bctx.WorkshopID,
		PackageID:      bctx.PackageID,
		IsApproved:     true,
		PricePaid:      bctx.PricePaid,
		PaymentMethod:  bctx.PaymentMethod,
		ActivationDate: bctx.ActivationDate,
		ExpiryDate:     bctx.ExpiryDate,
	})
	if err != nil {
		if created != nil {
			if _, derr := e.persons.SoftDeletePerson(ctx, personID); derr != nil {
				e.log.Warn("failed to compensate person after enroll failure",
					slog.String("person_id", personID), sl.Err(derr))
			}
		}
		return failed(err.Error())
	}

	// События публикуются после того, как строка полностью прошла:
	// о скомпенсированном участнике внешний отправитель знать не должен.
	if created != nil {
		if err := e.events.PersonCreated(*created); err != nil {
			e.log.Warn("failed to publish person created event",
				slog.String("person_id", personID), sl.Err(err))
		}
	}
	if err := e.events.SubscriptionCreated(*sub); err != nil {
		e.log.Warn("failed to publish subscription created event",
			slog.String("subscription_id", sub.ID), sl.Err(err))
	}

	return models.CommitRowResult{
		RowNumber:      row.RowNumber,
		Committed:      true,
		Label:          row.Label,
		PersonID:       personID,
		SubscriptionID: sub.ID,
	}
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
