package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/normalize"
)

// CreatePerson сохраняет нового участника. Нормализованные ключи
// вычисляются здесь же, чтобы колонки email_norm/phone_norm никогда
// не расходились с исходными значениями.
func (s *Storage) CreatePerson(ctx context.Context, p models.Person) error {
	const op = "storage.CreatePerson"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO persons (id, full_name, email, email_norm, phone, phone_norm, is_deleted, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.DB.ExecContext(ctx, query,
		p.ID, p.FullName, p.Email, normalize.Email(p.Email),
		p.Phone, normalize.Phone(p.Phone), p.IsDeleted, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPerson возвращает участника по его ID, включая мягко удалённых.
func (s *Storage) GetPerson(ctx context.Context, id string) (*models.Person, error) {
	const op = "storage.GetPerson"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, full_name, email, phone, is_deleted, created_at
			  FROM persons WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var p models.Person
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.IsDeleted, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// FindPersonByNormalizedEmail возвращает неудалённого участника с данным
// нормализованным email либо (nil, nil), если такого нет. Частичный
// уникальный индекс гарантирует не более одного совпадения.
func (s *Storage) FindPersonByNormalizedEmail(ctx context.Context, emailNorm string) (*models.Person, error) {
	const op = "storage.FindPersonByNormalizedEmail"
	return s.findPersonByKey(ctx, op, `email_norm`, emailNorm)
}

// FindPersonByNormalizedPhone возвращает неудалённого участника с данным
// нормализованным телефоном либо (nil, nil), если такого нет.
func (s *Storage) FindPersonByNormalizedPhone(ctx context.Context, phoneNorm string) (*models.Person, error) {
	const op = "storage.FindPersonByNormalizedPhone"
	return s.findPersonByKey(ctx, op, `phone_norm`, phoneNorm)
}

func (s *Storage) findPersonByKey(ctx context.Context, op, column, value string) (*models.Person, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := fmt.Sprintf(`SELECT id, full_name, email, phone, is_deleted, created_at
			  FROM persons WHERE %s = $1 AND is_deleted = FALSE`, column)
	row := s.DB.QueryRowContext(ctx, query, value)

	var p models.Person
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.IsDeleted, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// ListPersons возвращает список неудалённых участников с пагинацией.
func (s *Storage) ListPersons(ctx context.Context, limit, offset int) ([]*models.Person, error) {
	const op = "storage.ListPersons"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, full_name, email, phone, is_deleted, created_at
			  FROM persons
			  WHERE is_deleted = FALSE
			  ORDER BY created_at, id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result []*models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.IsDeleted, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SoftDeletePerson помечает участника удалённым и возвращает количество
// изменённых строк. Записи участника остаются нетронутыми, но сам он
// выпадает из всех проверок уникальности и поиска.
func (s *Storage) SoftDeletePerson(ctx context.Context, id string) (int, error) {
	const op = "storage.SoftDeletePerson"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE persons SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
