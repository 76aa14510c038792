package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maka255-beep/workshop-registry/internal/models"
)

// CreateSubscription вставляет новую запись на воркшоп.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (id, person_id, workshop_id, package_id, status,
			      is_approved, price_paid, payment_method, activation_date, expiry_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.DB.ExecContext(ctx, query,
		sub.ID, sub.PersonID, sub.WorkshopID, sub.PackageID, string(sub.Status),
		sub.IsApproved, sub.PricePaid, string(sub.PaymentMethod), sub.ActivationDate, sub.ExpiryDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscription возвращает запись по её ID либо (nil, nil), если записи нет.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, person_id, workshop_id, package_id, status, is_approved,
			      price_paid, payment_method, activation_date, expiry_date
			  FROM subscriptions WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ApproveSubscription подтверждает заявку и возвращает количество изменённых
// строк. Повторное подтверждение — ноль строк, не ошибка.
func (s *Storage) ApproveSubscription(ctx context.Context, id string) (int, error) {
	const op = "storage.ApproveSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET is_approved = TRUE WHERE id = $1 AND is_approved = FALSE`
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

// RefundSubscription переводит запись в терминальный статус возврата
// и возвращает количество изменённых строк. Повторный возврат — ноль
// строк, не ошибка.
func (s *Storage) RefundSubscription(ctx context.Context, id string) (int, error) {
	const op = "storage.RefundSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = $1 WHERE id = $2 AND status <> $1`
	result, err := s.DB.ExecContext(ctx, query, string(models.StatusRefunded), id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// TransferSubscription выполняет перенос парной операцией в одной
// транзакции: исходная запись помечается перенесённой, целевая
// вставляется действующей. Обе половины либо проходят, либо нет.
func (s *Storage) TransferSubscription(ctx context.Context, sourceID string, target models.Subscription) error {
	const op = "storage.TransferSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2 AND status = $3`,
		string(models.StatusTransferred), sourceID, string(models.StatusActive))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: source subscription %s is not active", op, sourceID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (id, person_id, workshop_id, package_id, status,
		     is_approved, price_paid, payment_method, activation_date, expiry_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		target.ID, target.PersonID, target.WorkshopID, target.PackageID, string(target.Status),
		target.IsApproved, target.PricePaid, string(target.PaymentMethod),
		target.ActivationDate, target.ExpiryDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscriptionsByPerson возвращает все записи участника в порядке создания.
func (s *Storage) ListSubscriptionsByPerson(ctx context.Context, personID string) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptionsByPerson"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, person_id, workshop_id, package_id, status, is_approved,
			      price_paid, payment_method, activation_date, expiry_date
			  FROM subscriptions
			  WHERE person_id = $1
			  ORDER BY activation_date, id`
	rows, err := s.DB.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// HasEnrollment сообщает, есть ли у участника невозвращённая запись
// на данный воркшоп. Неподтверждённые заявки тоже считаются: это
// блокирует дублирующиеся ожидающие заявки.
func (s *Storage) HasEnrollment(ctx context.Context, personID string, workshopID int) (bool, error) {
	const op = "storage.HasEnrollment"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM subscriptions
			      WHERE person_id = $1 AND workshop_id = $2 AND status <> $3
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, personID, workshopID,
		string(models.StatusRefunded)).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var packageID sql.NullInt64
	var status, paymentMethod string
	if err := row.Scan(&sub.ID, &sub.PersonID, &sub.WorkshopID, &packageID, &status,
		&sub.IsApproved, &sub.PricePaid, &paymentMethod,
		&sub.ActivationDate, &sub.ExpiryDate); err != nil {
		return nil, err
	}
	if packageID.Valid {
		v := int(packageID.Int64)
		sub.PackageID = &v
	}
	parsedStatus, err := models.ParseSubscriptionStatus(status)
	if err != nil {
		return nil, err
	}
	sub.Status = parsedStatus
	parsedMethod, err := models.ParsePaymentMethod(paymentMethod)
	if err != nil {
		return nil, err
	}
	sub.PaymentMethod = parsedMethod
	return &sub, nil
}
