package enrollment

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/storage/memstore"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func seedPerson(t *testing.T, store *memstore.Store, email, phone string) models.Person {
	t.Helper()
	p := models.Person{
		ID:        uuid.NewString(),
		FullName:  "Test Person",
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreatePerson(context.Background(), p))
	return p
}

func testSpec(workshopID int, approved bool) models.EnrollmentSpec {
	return models.EnrollmentSpec{
		WorkshopID:     workshopID,
		IsApproved:     approved,
		PricePaid:      350,
		PaymentMethod:  models.PaymentBank,
		ActivationDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:     time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := New(store, nil, newNoopLogger())
	p := seedPerson(t, store, "sara@x.com", "971501112222")

	sub, err := svc.Enroll(ctx, p.ID, testSpec(7, true))
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, sub.Status)
	assert.True(t, sub.IsApproved)

	t.Run("second enrollment for same workshop rejected", func(t *testing.T) {
		_, err := svc.Enroll(ctx, p.ID, testSpec(7, true))
		assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	})

	t.Run("different workshop allowed", func(t *testing.T) {
		_, err := svc.Enroll(ctx, p.ID, testSpec(9, false))
		assert.NoError(t, err)
	})

	t.Run("unknown person rejected", func(t *testing.T) {
		_, err := svc.Enroll(ctx, uuid.NewString(), testSpec(7, true))
		assert.ErrorIs(t, err, ErrPersonNotFound)
	})
}

func TestIsEnrolled_PendingBlocks(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := New(store, nil, newNoopLogger())
	p := seedPerson(t, store, "sara@x.com", "971501112222")

	// Неподтверждённая заявка тоже считается записью.
	_, err := svc.Enroll(ctx, p.ID, testSpec(7, false))
	require.NoError(t, err)

	enrolled, err := svc.IsEnrolled(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.True(t, enrolled)

	_, err = svc.Enroll(ctx, p.ID, testSpec(7, false))
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := New(store, nil, newNoopLogger())
	p := seedPerson(t, store, "sara@x.com", "971501112222")

	sub, err := svc.Enroll(ctx, p.ID, testSpec(7, false))
	require.NoError(t, err)

	require.NoError(t, svc.Approve(ctx, sub.ID))
	got, err := store.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, got.IsApproved)

	// Повторное подтверждение — no-op.
	require.NoError(t, svc.Approve(ctx, sub.ID))

	assert.ErrorIs(t, svc.Approve(ctx, uuid.NewString()), ErrSubscriptionNotFound)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := New(store, nil, newNoopLogger())
	p := seedPerson(t, store, "sara@x.com", "971501112222")

	sub, err := svc.Enroll(ctx, p.ID, testSpec(7, true))
	require.NoError(t, err)

	require.NoError(t, svc.Refund(ctx, sub.ID))
	got, err := store.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, got.Status)

	// Повторный возврат идемпотентен.
	require.NoError(t, svc.Refund(ctx, sub.ID))

	t.Run("refund unblocks re-enrollment", func(t *testing.T) {
		enrolled, err := svc.IsEnrolled(ctx, p.ID, 7)
		require.NoError(t, err)
		assert.False(t, enrolled)

		_, err = svc.Enroll(ctx, p.ID, testSpec(7, true))
		assert.NoError(t, err)
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := New(store, nil, newNoopLogger())
	source := seedPerson(t, store, "sara@x.com", "971501112222")
	target := seedPerson(t, store, "omar@x.com", "971502223333")

	sub, err := svc.Enroll(ctx, source.ID, testSpec(7, true))
	require.NoError(t, err)

	moved, err := svc.Transfer(ctx, models.TransferEnrollmentRequest{
		SubscriptionID: sub.ID,
		PersonID:       target.ID,
		WorkshopID:     9,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, moved.Status)
	assert.Equal(t, target.ID, moved.PersonID)
	assert.Equal(t, sub.PricePaid, moved.PricePaid)

	got, err := store.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTransferred, got.Status)

	t.Run("source no longer active cannot transfer again", func(t *testing.T) {
		_, err := svc.Transfer(ctx, models.TransferEnrollmentRequest{
			SubscriptionID: sub.ID,
			PersonID:       source.ID,
			WorkshopID:     11,
		})
		assert.Error(t, err)
	})

	t.Run("target already enrolled rejected before any mutation", func(t *testing.T) {
		other, err := svc.Enroll(ctx, source.ID, testSpec(9, true))
		require.NoError(t, err)

		_, err = svc.Transfer(ctx, models.TransferEnrollmentRequest{
			SubscriptionID: other.ID,
			PersonID:       target.ID,
			WorkshopID:     9,
		})
		assert.ErrorIs(t, err, ErrAlreadyEnrolled)

		// Исходная запись осталась действующей.
		got, err := store.GetSubscription(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)
	})
}
