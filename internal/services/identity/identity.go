// Package identity содержит разрешение личности: по паре email+телефон
// определяет, относится ли запрос к существующему участнику, к двум
// разным участникам или к свободной паре ключей. Одна и та же
// классификация используется и одиночной регистрацией, и массовой
// сверкой, поэтому оба потока не могут разойтись в понимании конфликта.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/normalize"
)

// Ошибки регистрации: неоднозначность никогда не разрешается автоматически,
// ядро отказывается угадывать, какой из двух участников «правильный».
var (
	// ErrEmailTaken — email занят другим участником, телефон свободен.
	ErrEmailTaken = errors.New("email belongs to another person")
	// ErrPhoneTaken — телефон занят другим участником, email свободен.
	ErrPhoneTaken = errors.New("phone belongs to another person")
	// ErrIdentityConflict — email и телефон принадлежат двум разным участникам.
	ErrIdentityConflict = errors.New("email and phone belong to different persons")
	// ErrPersonNotFound — участник с данным ID не найден.
	ErrPersonNotFound = errors.New("person not found")
)

// PersonRepository определяет методы поиска и создания участников.
// Методы Find* возвращают (nil, nil), если совпадения среди
// неудалённых участников нет.
type PersonRepository interface {
	CreatePerson(ctx context.Context, p models.Person) error
	GetPerson(ctx context.Context, id string) (*models.Person, error)
	FindPersonByNormalizedEmail(ctx context.Context, emailNorm string) (*models.Person, error)
	FindPersonByNormalizedPhone(ctx context.Context, phoneNorm string) (*models.Person, error)
	ListPersons(ctx context.Context, limit, offset int) ([]*models.Person, error)
	SoftDeletePerson(ctx context.Context, id string) (int, error)
}

// Relation — пятизначная классификация пары email+телефон
// относительно живого множества участников.
type Relation int

const (
	// RelationFree — оба ключа свободны, можно создавать нового участника.
	RelationFree Relation = iota
	// RelationExisting — оба ключа принадлежат одному известному участнику.
	RelationExisting
	// RelationConflict — ключи принадлежат двум разным участникам.
	RelationConflict
	// RelationEmailTaken — email занят чужим участником.
	RelationEmailTaken
	// RelationPhoneTaken — телефон занят чужим участником.
	RelationPhoneTaken
)

// String возвращает текстовую метку отношения для ответов API и логов.
func (r Relation) String() string {
	switch r {
	case RelationFree:
		return "free"
	case RelationExisting:
		return "existing"
	case RelationConflict:
		return "conflict"
	case RelationEmailTaken:
		return "email_taken"
	case RelationPhoneTaken:
		return "phone_taken"
	default:
		return "unknown"
	}
}

// Match — результат разрешения: не более одного совпадения по каждому ключу.
type Match struct {
	EmailMatch *models.Person
	PhoneMatch *models.Person
}

// Relation сводит пару совпадений к одному из пяти отношений.
func (m Match) Relation() Relation {
	switch {
	case m.EmailMatch == nil && m.PhoneMatch == nil:
		return RelationFree
	case m.EmailMatch != nil && m.PhoneMatch != nil && m.EmailMatch.ID == m.PhoneMatch.ID:
		return RelationExisting
	case m.EmailMatch != nil && m.PhoneMatch != nil:
		return RelationConflict
	case m.EmailMatch != nil:
		return RelationEmailTaken
	default:
		return RelationPhoneTaken
	}
}

// Service реализует разрешение личности и одиночную регистрацию участника.
type Service struct {
	repo PersonRepository
	log  *slog.Logger
}

// New создает новый Service.
func New(repo PersonRepository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Resolve нормализует пару email+телефон и ищет совпадения среди
// неудалённых участников. Без побочных эффектов.
func (s *Service) Resolve(ctx context.Context, email, phone string) (Match, error) {
	const op = "identity.Resolve"

	emailMatch, err := s.repo.FindPersonByNormalizedEmail(ctx, normalize.Email(email))
	if err != nil {
		return Match{}, fmt.Errorf("%s: %w", op, err)
	}
	phoneMatch, err := s.repo.FindPersonByNormalizedPhone(ctx, normalize.Phone(phone))
	if err != nil {
		return Match{}, fmt.Errorf("%s: %w", op, err)
	}
	return Match{EmailMatch: emailMatch, PhoneMatch: phoneMatch}, nil
}

// Register проводит одиночную регистрацию: свободная пара ключей —
// новый участник, пара известного участника — он же без создания,
// занятый ключ или конфликт — ошибка. Возвращает участника и признак
// того, что запись была создана этим вызовом.
func (s *Service) Register(ctx context.Context, req models.RegisterPersonRequest) (*models.Person, bool, error) {
	const op = "identity.Register"

	match, err := s.Resolve(ctx, req.Email, req.Phone)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	switch match.Relation() {
	case RelationExisting:
		return match.EmailMatch, false, nil
	case RelationConflict:
		return nil, false, ErrIdentityConflict
	case RelationEmailTaken:
		return nil, false, ErrEmailTaken
	case RelationPhoneTaken:
		return nil, false, ErrPhoneTaken
	}

	person := models.Person{
		ID:        uuid.NewString(),
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreatePerson(ctx, person); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("registered new person", slog.String("id", person.ID))
	return &person, true, nil
}

// Get возвращает участника по ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Person, error) {
	const op = "identity.Get"
	p, err := s.repo.GetPerson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p == nil {
		return nil, ErrPersonNotFound
	}
	return p, nil
}

// List возвращает неудалённых участников с пагинацией.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.Person, error) {
	const op = "identity.List"
	result, err := s.repo.ListPersons(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Remove мягко удаляет участника: записи остаются, но сам он
// выпадает из проверок уникальности и поиска.
func (s *Service) Remove(ctx context.Context, id string) error {
	const op = "identity.Remove"
	n, err := s.repo.SoftDeletePerson(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrPersonNotFound
	}
	s.log.Info("person soft-deleted", slog.String("id", id))
	return nil
}
