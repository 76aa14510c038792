// Package memstore реализует хранилище участников и записей в памяти.
// Повторяет контракт PostgreSQL-репозитория, включая уникальность
// нормализованных ключей среди неудалённых участников. Используется
// в тестах сервисного слоя и движка сверки вместо реальной базы.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/normalize"
)

// Store — потокобезопасная коллекция участников и записей в памяти.
type Store struct {
	mu            sync.RWMutex
	persons       map[string]*models.Person
	subscriptions map[string]*models.Subscription
	order         []string // ID участников в порядке создания
}

// New создает пустое хранилище.
func New() *Store {
	return &Store{
		persons:       make(map[string]*models.Person),
		subscriptions: make(map[string]*models.Subscription),
	}
}

// CreatePerson сохраняет нового участника, отклоняя занятые
// нормализованные ключи — как это сделал бы частичный уникальный
// индекс в PostgreSQL.
func (s *Store) CreatePerson(_ context.Context, p models.Person) error {
	const op = "memstore.CreatePerson"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[p.ID]; ok {
		return fmt.Errorf("%s: person %s already exists", op, p.ID)
	}
	emailNorm := normalize.Email(p.Email)
	phoneNorm := normalize.Phone(p.Phone)
	for _, existing := range s.persons {
		if existing.IsDeleted {
			continue
		}
		if normalize.Email(existing.Email) == emailNorm {
			return fmt.Errorf("%s: email %s already taken", op, emailNorm)
		}
		if normalize.Phone(existing.Phone) == phoneNorm {
			return fmt.Errorf("%s: phone %s already taken", op, phoneNorm)
		}
	}

	stored := p
	s.persons[p.ID] = &stored
	s.order = append(s.order, p.ID)
	return nil
}

// GetPerson возвращает участника по ID, включая мягко удалённых,
// либо (nil, nil), если такого нет.
func (s *Store) GetPerson(_ context.Context, id string) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.persons[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// FindPersonByNormalizedEmail возвращает неудалённого участника
// с данным нормализованным email либо (nil, nil).
func (s *Store) FindPersonByNormalizedEmail(_ context.Context, emailNorm string) (*models.Person, error) {
	return s.findByKey(func(p *models.Person) bool {
		return normalize.Email(p.Email) == emailNorm
	})
}

// FindPersonByNormalizedPhone возвращает неудалённого участника
// с данным нормализованным телефоном либо (nil, nil).
func (s *Store) FindPersonByNormalizedPhone(_ context.Context, phoneNorm string) (*models.Person, error) {
	return s.findByKey(func(p *models.Person) bool {
		return normalize.Phone(p.Phone) == phoneNorm
	})
}

func (s *Store) findByKey(match func(*models.Person) bool) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.persons {
		if p.IsDeleted {
			continue
		}
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// ListPersons возвращает неудалённых участников в порядке создания.
func (s *Store) ListPersons(_ context.Context, limit, offset int) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Person
	for _, id := range s.order {
		p := s.persons[id]
		if p.IsDeleted {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// SoftDeletePerson помечает участника удалённым.
func (s *Store) SoftDeletePerson(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.persons[id]
	if !ok || p.IsDeleted {
		return 0, nil
	}
	p.IsDeleted = true
	return 1, nil
}

// CreateSubscription вставляет новую запись на воркшоп.
func (s *Store) CreateSubscription(_ context.Context, sub models.Subscription) error {
	const op = "memstore.CreateSubscription"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID]; ok {
		return fmt.Errorf("%s: subscription %s already exists", op, sub.ID)
	}
	if sub.IsEnrollment() {
		for _, existing := range s.subscriptions {
			if existing.PersonID == sub.PersonID &&
				existing.WorkshopID == sub.WorkshopID && existing.IsEnrollment() {
				return fmt.Errorf("%s: person %s already holds a live subscription for workshop %d",
					op, sub.PersonID, sub.WorkshopID)
			}
		}
	}
	stored := sub
	s.subscriptions[sub.ID] = &stored
	return nil
}

// GetSubscription возвращает запись по ID либо (nil, nil).
func (s *Store) GetSubscription(_ context.Context, id string) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

// ApproveSubscription подтверждает заявку; повторное подтверждение —
// ноль изменённых строк.
func (s *Store) ApproveSubscription(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[id]
	if !ok || sub.IsApproved {
		return 0, nil
	}
	sub.IsApproved = true
	return 1, nil
}

// RefundSubscription переводит запись в статус возврата; повторный
// возврат — ноль изменённых строк.
func (s *Store) RefundSubscription(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[id]
	if !ok || sub.Status == models.StatusRefunded {
		return 0, nil
	}
	sub.Status = models.StatusRefunded
	return 1, nil
}

// TransferSubscription переносит запись парной операцией: обе половины
// либо проходят, либо нет.
func (s *Store) TransferSubscription(_ context.Context, sourceID string, target models.Subscription) error {
	const op = "memstore.TransferSubscription"
	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.subscriptions[sourceID]
	if !ok || source.Status != models.StatusActive {
		return fmt.Errorf("%s: source subscription %s is not active", op, sourceID)
	}
	if _, ok := s.subscriptions[target.ID]; ok {
		return fmt.Errorf("%s: subscription %s already exists", op, target.ID)
	}
	source.Status = models.StatusTransferred
	stored := target
	s.subscriptions[target.ID] = &stored
	return nil
}

// ListSubscriptionsByPerson возвращает все записи участника,
// отсортированные по дате активации.
func (s *Store) ListSubscriptionsByPerson(_ context.Context, personID string) ([]*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Subscription
	for _, sub := range s.subscriptions {
		if sub.PersonID == personID {
			cp := *sub
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ActivationDate.Equal(result[j].ActivationDate) {
			return result[i].ID < result[j].ID
		}
		return result[i].ActivationDate.Before(result[j].ActivationDate)
	})
	return result, nil
}

// HasEnrollment сообщает, есть ли у участника невозвращённая запись
// на данный воркшоп, включая неподтверждённые заявки.
func (s *Store) HasEnrollment(_ context.Context, personID string, workshopID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscriptions {
		if sub.PersonID == personID && sub.WorkshopID == workshopID && sub.IsEnrollment() {
			return true, nil
		}
	}
	return false, nil
}
