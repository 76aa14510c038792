// Package enrollment владеет жизненным циклом записи на воркшоп:
// создание, подтверждение, возврат и перенос, а также предикат
// «участник уже записан на воркшоп X», которым пользуется движок сверки.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/maka255-beep/workshop-registry/internal/models"
)

var (
	// ErrAlreadyEnrolled — у участника уже есть невозвращённая запись
	// на этот воркшоп (включая неподтверждённую заявку).
	ErrAlreadyEnrolled = errors.New("person already enrolled in workshop")
	// ErrSubscriptionNotFound — запись с данным ID не найдена.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrPersonNotFound — участник с данным ID не найден.
	ErrPersonNotFound = errors.New("person not found")
)

// Repository определяет методы хранилища для записей на воркшопы.
type Repository interface {
	GetPerson(ctx context.Context, id string) (*models.Person, error)
	CreateSubscription(ctx context.Context, sub models.Subscription) error
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	ApproveSubscription(ctx context.Context, id string) (int, error)
	RefundSubscription(ctx context.Context, id string) (int, error)
	TransferSubscription(ctx context.Context, sourceID string, target models.Subscription) error
	ListSubscriptionsByPerson(ctx context.Context, personID string) ([]*models.Subscription, error)
	HasEnrollment(ctx context.Context, personID string, workshopID int) (bool, error)
}

// EventPublisher отдаёт события жизненного цикла внешнему отправителю
// уведомлений. Публикация не роняет операцию: ошибки только логируются.
type EventPublisher interface {
	SubscriptionRefunded(sub models.Subscription) error
	SubscriptionTransferred(sub models.Subscription) error
}

// Service реализует машину состояний записи на воркшоп.
type Service struct {
	repo   Repository
	events EventPublisher // nil — события не публикуются
	log    *slog.Logger
}

// New создает новый Service. events может быть nil.
func New(repo Repository, events EventPublisher, log *slog.Logger) *Service {
	return &Service{repo: repo, events: events, log: log}
}

// Enroll создает запись участника на воркшоп. Флаг IsApproved задаёт
// вызывающий: true для прямого создания оператором, false для
// ожидающих заявок — политика живёт у коллаборатора, сервис лишь
// хранит флаг. Повторная запись на тот же воркшоп отклоняется,
// пока существующая не возвращена.
func (s *Service) Enroll(ctx context.Context, personID string, spec models.EnrollmentSpec) (*models.Subscription, error) {
	const op = "enrollment.Enroll"

	person, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if person == nil {
		return nil, ErrPersonNotFound
	}

	enrolled, err := s.IsEnrolled(ctx, personID, spec.WorkshopID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	sub := models.Subscription{
		ID:             uuid.NewString(),
		PersonID:       personID,
		WorkshopID:     spec.WorkshopID,
		PackageID:      spec.PackageID,
		Status:         models.StatusActive,
		IsApproved:     spec.IsApproved,
		PricePaid:      spec.PricePaid,
		PaymentMethod:  spec.PaymentMethod,
		ActivationDate: spec.ActivationDate,
		ExpiryDate:     spec.ExpiryDate,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("created subscription",
		slog.String("id", sub.ID),
		slog.String("person_id", personID),
		slog.Int("workshop_id", spec.WorkshopID))
	return &sub, nil
}

// Approve подтверждает ожидающую заявку. Повторное подтверждение — no-op.
func (s *Service) Approve(ctx context.Context, id string) error {
	const op = "enrollment.Approve"

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return ErrSubscriptionNotFound
	}

	n, err := s.repo.ApproveSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		s.log.Info("subscription approved", slog.String("id", id))
	}
	return nil
}

// Refund переводит запись в терминальный статус возврата из любого
// состояния. Повторный возврат — no-op, не ошибка.
func (s *Service) Refund(ctx context.Context, id string) error {
	const op = "enrollment.Refund"

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return ErrSubscriptionNotFound
	}

	n, err := s.repo.RefundSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		s.log.Info("subscription refunded", slog.String("id", id))
		if s.events != nil {
			sub.Status = models.StatusRefunded
			if err := s.events.SubscriptionRefunded(*sub); err != nil {
				s.log.Warn("failed to publish refund event",
					slog.String("id", id), slog.Any("err", err))
			}
		}
	}
	return nil
}

// Transfer переносит запись парной операцией: исходная помечается
// перенесённой, для целевого участника и воркшопа создаётся новая
// действующая запись с теми же платёжными атрибутами. Обе половины
// выполняются в одной транзакции хранилища.
func (s *Service) Transfer(ctx context.Context, req models.TransferEnrollmentRequest) (*models.Subscription, error) {
	const op = "enrollment.Transfer"

	source, err := s.repo.GetSubscription(ctx, req.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if source == nil {
		return nil, ErrSubscriptionNotFound
	}

	person, err := s.repo.GetPerson(ctx, req.PersonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if person == nil {
		return nil, ErrPersonNotFound
	}

	enrolled, err := s.IsEnrolled(ctx, req.PersonID, req.WorkshopID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	target := models.Subscription{
		ID:             uuid.NewString(),
		PersonID:       req.PersonID,
		WorkshopID:     req.WorkshopID,
		PackageID:      req.PackageID,
		Status:         models.StatusActive,
		IsApproved:     source.IsApproved,
		PricePaid:      source.PricePaid,
		PaymentMethod:  source.PaymentMethod,
		ActivationDate: source.ActivationDate,
		ExpiryDate:     source.ExpiryDate,
	}
	if err := s.repo.TransferSubscription(ctx, req.SubscriptionID, target); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("subscription transferred",
		slog.String("source_id", req.SubscriptionID),
		slog.String("target_id", target.ID),
		slog.Int("workshop_id", req.WorkshopID))
	if s.events != nil {
		if err := s.events.SubscriptionTransferred(target); err != nil {
			s.log.Warn("failed to publish transfer event",
				slog.String("id", target.ID), slog.Any("err", err))
		}
	}
	return &target, nil
}

// ListByPerson возвращает все записи участника.
func (s *Service) ListByPerson(ctx context.Context, personID string) ([]*models.Subscription, error) {
	const op = "enrollment.ListByPerson"
	result, err := s.repo.ListSubscriptionsByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// IsEnrolled — предикат «участник записан на воркшоп»: существует
// запись со статусом, отличным от возврата, независимо от подтверждения.
// Неподтверждённые заявки блокируют намеренно, чтобы не плодить
// дублирующиеся ожидающие заявки.
func (s *Service) IsEnrolled(ctx context.Context, personID string, workshopID int) (bool, error) {
	const op = "enrollment.IsEnrolled"
	enrolled, err := s.repo.HasEnrollment(ctx, personID, workshopID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return enrolled, nil
}
