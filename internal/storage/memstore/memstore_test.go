package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maka255-beep/workshop-registry/internal/models"
)

func newPerson(fullName, email, phone string) models.Person {
	return models.Person{
		ID:        uuid.NewString(),
		FullName:  fullName,
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now(),
	}
}

func TestCreatePerson_UniqueKeys(t *testing.T) {
	ctx := context.Background()
	store := New()

	first := newPerson("Sara Ali", "sara@x.com", "+971 50-111-2222")
	require.NoError(t, store.CreatePerson(ctx, first))

	t.Run("duplicate email rejected despite different spelling", func(t *testing.T) {
		p := newPerson("Other Person", "SARA@X.COM", "971500000001")
		assert.Error(t, store.CreatePerson(ctx, p))
	})

	t.Run("duplicate phone rejected despite different spelling", func(t *testing.T) {
		p := newPerson("Other Person", "other@x.com", "00971501112222")
		assert.Error(t, store.CreatePerson(ctx, p))
	})

	t.Run("free keys accepted", func(t *testing.T) {
		p := newPerson("Other Person", "other@x.com", "971500000001")
		assert.NoError(t, store.CreatePerson(ctx, p))
	})
}

func TestSoftDelete_FreesKeys(t *testing.T) {
	ctx := context.Background()
	store := New()

	p := newPerson("Sara Ali", "sara@x.com", "971501112222")
	require.NoError(t, store.CreatePerson(ctx, p))

	n, err := store.SoftDeletePerson(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Удалённый участник выпадает из поиска по ключам, но доступен по ID.
	found, err := store.FindPersonByNormalizedEmail(ctx, "sara@x.com")
	require.NoError(t, err)
	assert.Nil(t, found)

	got, err := store.GetPerson(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsDeleted)

	// Ключи можно занять заново.
	again := newPerson("Sara Ali", "sara@x.com", "971501112222")
	assert.NoError(t, store.CreatePerson(ctx, again))

	// Повторное удаление — ноль строк.
	n, err = store.SoftDeletePerson(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := New()

	p := newPerson("Sara Ali", "sara@x.com", "971501112222")
	require.NoError(t, store.CreatePerson(ctx, p))

	sub := models.Subscription{
		ID:            uuid.NewString(),
		PersonID:      p.ID,
		WorkshopID:    7,
		Status:        models.StatusActive,
		IsApproved:    false,
		PaymentMethod: models.PaymentBank,
	}
	require.NoError(t, store.CreateSubscription(ctx, sub))

	t.Run("pending request still blocks enrollment", func(t *testing.T) {
		enrolled, err := store.HasEnrollment(ctx, p.ID, 7)
		require.NoError(t, err)
		assert.True(t, enrolled)

		dup := sub
		dup.ID = uuid.NewString()
		assert.Error(t, store.CreateSubscription(ctx, dup))
	})

	t.Run("approve is idempotent", func(t *testing.T) {
		n, err := store.ApproveSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = store.ApproveSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("refund unblocks workshop and is idempotent", func(t *testing.T) {
		n, err := store.RefundSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = store.RefundSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		enrolled, err := store.HasEnrollment(ctx, p.ID, 7)
		require.NoError(t, err)
		assert.False(t, enrolled)

		again := sub
		again.ID = uuid.NewString()
		assert.NoError(t, store.CreateSubscription(ctx, again))
	})
}

func TestTransferSubscription_Paired(t *testing.T) {
	ctx := context.Background()
	store := New()

	p := newPerson("Sara Ali", "sara@x.com", "971501112222")
	require.NoError(t, store.CreatePerson(ctx, p))

	source := models.Subscription{
		ID:            uuid.NewString(),
		PersonID:      p.ID,
		WorkshopID:    7,
		Status:        models.StatusActive,
		IsApproved:    true,
		PaymentMethod: models.PaymentLink,
	}
	require.NoError(t, store.CreateSubscription(ctx, source))

	target := source
	target.ID = uuid.NewString()
	target.WorkshopID = 9
	require.NoError(t, store.TransferSubscription(ctx, source.ID, target))

	got, err := store.GetSubscription(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTransferred, got.Status)

	got, err = store.GetSubscription(ctx, target.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusActive, got.Status)

	// Перенос уже перенесённой записи не проходит.
	again := target
	again.ID = uuid.NewString()
	assert.Error(t, store.TransferSubscription(ctx, source.ID, again))
}
