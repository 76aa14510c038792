package reconcile

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/services/enrollment"
	"github.com/maka255-beep/workshop-registry/internal/services/identity"
	"github.com/maka255-beep/workshop-registry/internal/storage/memstore"
)

// sessionStoreStub держит сессии в map, как это делал бы Redis.
type sessionStoreStub struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionStoreStub() *sessionStoreStub {
	return &sessionStoreStub{sessions: make(map[string]*Session)}
}

func (s *sessionStoreStub) Save(_ context.Context, session *Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *sessionStoreStub) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *session
	return &cp, nil
}

func (s *sessionStoreStub) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

type eventsStub struct {
	mu            sync.Mutex
	persons       int
	subscriptions int
}

func (e *eventsStub) PersonCreated(models.Person) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persons++
	return nil
}

func (e *eventsStub) SubscriptionCreated(models.Subscription) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriptions++
	return nil
}

type fixture struct {
	store    *memstore.Store
	identity *identity.Service
	enroll   *enrollment.Service
	sessions *sessionStoreStub
	events   *eventsStub
	engine   *Engine
}

func newFixture() *fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	store := memstore.New()
	identitySvc := identity.New(store, log)
	enrollSvc := enrollment.New(store, nil, log)
	sessions := newSessionStoreStub()
	events := &eventsStub{}
	engine := New(identitySvc, enrollSvc, store, sessions, events, log)
	return &fixture{
		store:    store,
		identity: identitySvc,
		enroll:   enrollSvc,
		sessions: sessions,
		events:   events,
		engine:   engine,
	}
}

func (f *fixture) seedPerson(t *testing.T, fullName, email, phone string) models.Person {
	t.Helper()
	p := models.Person{
		ID:        uuid.NewString(),
		FullName:  fullName,
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.store.CreatePerson(context.Background(), p))
	return p
}

var header = []string{"Full Name", "Email Address", "Phone Number"}

func testContext(workshopID int) models.BatchContext {
	return models.BatchContext{
		WorkshopID:     workshopID,
		PricePaid:      400,
		PaymentMethod:  models.PaymentBank,
		ActivationDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:     time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDetectColumns(t *testing.T) {
	t.Run("localized-ish headers by keyword", func(t *testing.T) {
		cols, err := DetectColumns([]string{"Participant Name", "E-mail", "Mobile"})
		require.NoError(t, err)
		assert.Equal(t, Columns{Name: 0, Email: 1, Phone: 2}, cols)
	})

	t.Run("reordered columns", func(t *testing.T) {
		cols, err := DetectColumns([]string{"Phone", "Name", "Email"})
		require.NoError(t, err)
		assert.Equal(t, Columns{Name: 1, Email: 2, Phone: 0}, cols)
	})

	t.Run("all missing columns listed in one error", func(t *testing.T) {
		_, err := DetectColumns([]string{"Amount", "Notes"})
		var colErr *ColumnDetectionError
		require.ErrorAs(t, err, &colErr)
		assert.ElementsMatch(t, []string{"name", "email", "phone"}, colErr.Missing)
	})

	t.Run("single missing column", func(t *testing.T) {
		_, err := DetectColumns([]string{"Name", "Email"})
		var colErr *ColumnDetectionError
		require.ErrorAs(t, err, &colErr)
		assert.Equal(t, []string{"phone"}, colErr.Missing)
	})
}

func TestStageBatch_ClassificationPrecedence(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// Строка с пустым телефоном И кривым email: побеждает missing_data.
	grid := Grid{
		header,
		{"Sara Ali", "not-an-email", ""},
		{"Omar Id", "also-not-an-email", "971501112222"},
		{"Lina Op", "lina@x.com", "12345"},
	}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)
	require.Len(t, session.Rows, 3)

	assert.Equal(t, models.LabelErrMissingData, session.Rows[0].Label)
	assert.Equal(t, models.LabelErrInvalidEmail, session.Rows[1].Label)
	assert.Equal(t, models.LabelErrInvalidPhone, session.Rows[2].Label)

	for _, row := range session.Rows {
		assert.False(t, row.IsSelected, "error rows must not be selected by default")
	}
}

func TestStageBatch_DuplicateInFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// Два разных написания одного номера: первое вхождение чистое,
	// второе — дубликат (нормализованный телефон совпадает).
	grid := Grid{
		header,
		{"Sara Ali", "sara@x.com", "+971 50-111-2222"},
		{"Sara Ali", "sara2@x.com", "00971501112222"},
		{"Sara Ali", "sara@x.com", "971509998888"},
	}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)

	assert.Equal(t, models.LabelValidNew, session.Rows[0].Label)
	assert.Equal(t, models.LabelErrDuplicateInFile, session.Rows[1].Label)
	assert.Equal(t, models.LabelErrDuplicateInFile, session.Rows[2].Label)
}

func TestStageBatch_ResolutionLabels(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.seedPerson(t, "Alice Haddad", "alice@x.com", "971501112222")
	f.seedPerson(t, "Bob Mansour", "bob@x.com", "971502223333")

	// Каждый случай — отдельная партия: внутри одной партии повторное
	// использование ключа поймала бы проверка дубликатов в файле.
	tests := []struct {
		name         string
		row          []string
		want         models.RowLabel
		wantMatched  string
		wantSelected bool
	}{
		{
			name: "valid new", row: []string{"Someone New", "new@x.com", "971509998888"},
			want: models.LabelValidNew, wantSelected: true,
		},
		{
			name: "valid existing", row: []string{"Alice Haddad", "ALICE@x.com", "+971 050 111 2222"},
			want: models.LabelValidExisting, wantMatched: alice.ID, wantSelected: true,
		},
		{
			name: "conflict", row: []string{"Mixed Person", "alice@x.com", "971502223333"},
			want: models.LabelErrConflict,
		},
		{
			name: "email exists", row: []string{"Email Thief", "alice@x.com", "971507776666"},
			want: models.LabelErrEmailExists,
		},
		{
			name: "phone exists", row: []string{"Phone Thief", "thief@x.com", "971502223333"},
			want: models.LabelErrPhoneExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := f.engine.StageBatch(ctx, Grid{header, tt.row}, testContext(7))
			require.NoError(t, err)
			require.Len(t, session.Rows, 1)
			assert.Equal(t, tt.want, session.Rows[0].Label)
			assert.Equal(t, tt.wantMatched, session.Rows[0].MatchedPersonID)
			assert.Equal(t, tt.wantSelected, session.Rows[0].IsSelected)
		})
	}
}

func TestStageBatch_AlreadySubscribedDowngrade(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.seedPerson(t, "Alice Haddad", "alice@x.com", "971501112222")
	// Неподтверждённая заявка тоже блокирует.
	_, err := f.enroll.Enroll(ctx, alice.ID, models.EnrollmentSpec{
		WorkshopID: 7, IsApproved: false, PaymentMethod: models.PaymentBank,
	})
	require.NoError(t, err)

	grid := Grid{header, {"Alice Haddad", "alice@x.com", "971501112222"}}

	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)
	assert.Equal(t, models.LabelErrAlreadySubscribed, session.Rows[0].Label)
	assert.False(t, session.Rows[0].IsSelected)

	t.Run("other workshop not blocked", func(t *testing.T) {
		session, err := f.engine.StageBatch(ctx, grid, testContext(9))
		require.NoError(t, err)
		assert.Equal(t, models.LabelValidExisting, session.Rows[0].Label)
	})
}

func TestToggleAndSelectAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	grid := Grid{
		header,
		{"Sara Ali", "sara@x.com", "971501112222"},
		{"Broken Row", "", "971509998888"},
	}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)

	session, err = f.engine.Toggle(ctx, session.ID, 2, false)
	require.NoError(t, err)
	assert.False(t, session.Rows[0].IsSelected)

	t.Run("error row cannot be force-selected", func(t *testing.T) {
		_, err := f.engine.Toggle(ctx, session.ID, 3, true)
		assert.ErrorIs(t, err, ErrRowNotSelectable)
	})

	t.Run("deselecting error row is allowed", func(t *testing.T) {
		_, err := f.engine.Toggle(ctx, session.ID, 3, false)
		assert.NoError(t, err)
	})

	t.Run("unknown row", func(t *testing.T) {
		_, err := f.engine.Toggle(ctx, session.ID, 99, true)
		assert.ErrorIs(t, err, ErrRowNotFound)
	})

	t.Run("select-all touches only valid rows", func(t *testing.T) {
		session, err := f.engine.SelectAll(ctx, session.ID, true)
		require.NoError(t, err)
		assert.True(t, session.Rows[0].IsSelected)
		assert.False(t, session.Rows[1].IsSelected)
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := f.engine.Toggle(ctx, uuid.NewString(), 2, true)
		assert.ErrorIs(t, err, ErrBatchNotFound)
	})
}

// Сценарий A: один новый участник, фиксация создаёт участника
// и действующую подтверждённую запись на воркшоп 7.
func TestCommit_ScenarioA_NewPerson(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	grid := Grid{header, {"Sara Ali", "sara@x.com", "+971 50-111-2222"}}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)
	require.Equal(t, models.LabelValidNew, session.Rows[0].Label)

	report, err := f.engine.Commit(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Committed)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Rows, 1)
	assert.True(t, report.Rows[0].Committed)

	person, err := f.store.FindPersonByNormalizedPhone(ctx, "971501112222")
	require.NoError(t, err)
	require.NotNil(t, person)
	assert.Equal(t, "Sara Ali", person.FullName)

	subs, err := f.store.ListSubscriptionsByPerson(ctx, person.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 7, subs[0].WorkshopID)
	assert.Equal(t, models.StatusActive, subs[0].Status)
	assert.True(t, subs[0].IsApproved)

	assert.Equal(t, 1, f.events.persons)
	assert.Equal(t, 1, f.events.subscriptions)

	t.Run("session deleted after commit", func(t *testing.T) {
		_, err := f.engine.Get(ctx, session.ID)
		assert.ErrorIs(t, err, ErrBatchNotFound)
	})
}

// Сценарий B: одна и та же строка дважды в одном файле —
// вторая падает в дубликаты по нормализованному телефону.
func TestCommit_ScenarioB_SameRowTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	grid := Grid{
		header,
		{"Sara Ali", "sara@x.com", "+971 50-111-2222"},
		{"Sara Ali", "sara@x.com", "971501112222"},
	}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)
	assert.Equal(t, models.LabelValidNew, session.Rows[0].Label)
	assert.Equal(t, models.LabelErrDuplicateInFile, session.Rows[1].Label)

	report, err := f.engine.Commit(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Committed)
	assert.Equal(t, 1, report.Skipped)
}

// Сценарий C: email занят чужим участником, телефон свободен.
func TestStage_ScenarioC_EmailClaimed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedPerson(t, "Existing A", "a@x.com", "971500000001")

	grid := Grid{header, {"A", "a@x.com", "971500000002"}}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)
	assert.Equal(t, models.LabelErrEmailExists, session.Rows[0].Label)
}

// Сценарий D: после возврата записи повторный импорт той же пары
// участник/воркшоп снова valid_existing.
func TestStage_ScenarioD_RefundUnblocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.seedPerson(t, "Alice Haddad", "alice@x.com", "971501112222")
	sub, err := f.enroll.Enroll(ctx, alice.ID, models.EnrollmentSpec{
		WorkshopID: 7, IsApproved: true, PaymentMethod: models.PaymentBank,
	})
	require.NoError(t, err)
	require.NoError(t, f.enroll.Refund(ctx, sub.ID))

	grid := Grid{header, {"Alice Haddad", "alice@x.com", "971501112222"}}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)
	assert.Equal(t, models.LabelValidExisting, session.Rows[0].Label)
}

// Снимок — не блокировка: участник, созданный между постановкой и
// фиксацией, рушит только свою строку.
func TestCommit_RevalidatesAgainstLiveStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	grid := Grid{
		header,
		{"Sara Ali", "sara@x.com", "971501112222"},
		{"Omar Said", "omar@x.com", "971502223333"},
	}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)
	require.Equal(t, models.LabelValidNew, session.Rows[0].Label)
	require.Equal(t, models.LabelValidNew, session.Rows[1].Label)

	// Оператор добавил Сару через вкладку поиска, пока партия стояла.
	f.seedPerson(t, "Sara Ali", "sara@x.com", "971501112222")

	report, err := f.engine.Commit(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Committed)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, report.Rows, 2)
	assert.False(t, report.Rows[0].Committed)
	assert.Equal(t, models.LabelErrCommitRowFailed, report.Rows[0].Label)
	assert.True(t, report.Rows[1].Committed)
}

func TestCommit_MatchedPersonDeletedBetweenStageAndCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.seedPerson(t, "Alice Haddad", "alice@x.com", "971501112222")
	grid := Grid{header, {"Alice Haddad", "alice@x.com", "971501112222"}}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)
	require.Equal(t, models.LabelValidExisting, session.Rows[0].Label)

	_, err = f.store.SoftDeletePerson(ctx, alice.ID)
	require.NoError(t, err)

	report, err := f.engine.Commit(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, models.LabelErrCommitRowFailed, report.Rows[0].Label)
}

func TestStageBatch_ColumnDetectionAbortsWholeBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	grid := Grid{{"Amount", "Notes"}, {"10", "hello"}}
	_, err := f.engine.StageBatch(ctx, grid, testContext(7))
	var colErr *ColumnDetectionError
	assert.ErrorAs(t, err, &colErr)

	_, err = f.engine.StageBatch(ctx, Grid{}, testContext(7))
	assert.ErrorAs(t, err, &colErr)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	grid := Grid{header, {"Sara Ali", "sara@x.com", "971501112222"}}
	session, err := f.engine.StageBatch(ctx, grid, testContext(7))
	require.NoError(t, err)

	require.NoError(t, f.engine.Discard(ctx, session.ID))
	_, err = f.engine.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrBatchNotFound)
	assert.ErrorIs(t, f.engine.Discard(ctx, session.ID), ErrBatchNotFound)
}
