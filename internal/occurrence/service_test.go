package occurrence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eva-meds/internal/apperr"
	"eva-meds/internal/clock"
	"eva-meds/internal/database"
	"eva-meds/pkg/models"
)

// 09:00 em São Paulo
var scheduled = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type notice struct {
	userID, kind, body string
}

type fakeNotifier struct {
	sent []notice
}

func (f *fakeNotifier) Create(_ context.Context, userID, kind, _, body string, _ map[string]string) (*models.Notification, error) {
	f.sent = append(f.sent, notice{userID, kind, body})
	return &models.Notification{UserID: userID, Type: kind}, nil
}

type fakePublisher struct {
	entries []*models.AdherenceLogEntry
	err     error
}

func (f *fakePublisher) PublishAdherence(_ context.Context, e *models.AdherenceLogEntry) error {
	f.entries = append(f.entries, e)
	return f.err
}

type fixture struct {
	store     *database.MemoryStore
	notifier  *fakeNotifier
	publisher *fakePublisher
	now       time.Time
	svc       *Service
	reminder  *models.Reminder
}

func newFixture(t *testing.T, createdBy string, quantity int) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:     database.NewMemoryStore(),
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		now:       scheduled,
	}
	f.store.PutUser(&models.User{ID: "U1", Name: "Maria"})
	f.store.PutUser(&models.User{ID: "U9", Name: "Ana"})
	f.store.PutFamilyLink("U9", "U1", "Sua mãe")

	require.NoError(t, f.store.CreateMedicine(ctx, &models.Medicine{ID: "med-1", OwnerID: "U1", Name: "Losartana", Quantity: quantity}))
	f.reminder = &models.Reminder{
		TargetUserID: "U1", CreatedBy: createdBy, MedicineID: "med-1", MedicineName: "Losartana",
		Times: []string{"09:00"}, StartDate: "2026-03-01", Active: true,
	}
	require.NoError(t, f.store.CreateReminder(ctx, f.reminder))

	f.svc = NewService(Options{
		Store:     f.store,
		Notifier:  f.notifier,
		Publisher: f.publisher,
		Resolver:  clock.NewResolver(-180),
		Logger:    zap.NewNop(),
		Timeout:   time.Second,
		Now:       func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) occurrence(t *testing.T, userID string) *models.PendingOccurrence {
	t.Helper()
	occ := &models.PendingOccurrence{
		UserID: userID, ReminderID: f.reminder.ID, MedicineID: "med-1",
		MedicineName: "Losartana", ScheduledTime: scheduled,
	}
	_, err := f.store.CreateOccurrence(context.Background(), occ)
	require.NoError(t, err)
	return occ
}

func (f *fixture) quantity(t *testing.T) int {
	t.Helper()
	m, err := f.store.GetMedicine(context.Background(), "med-1")
	require.NoError(t, err)
	return m.Quantity
}

func TestConfirm_OnTime(t *testing.T) {
	f := newFixture(t, "U1", 10)
	occ := f.occurrence(t, "U1")
	f.now = scheduled.Add(10 * time.Minute)

	res, err := f.svc.Confirm(context.Background(), "U1", occ.ID)

	require.NoError(t, err)
	assert.Equal(t, models.OccurrenceConfirmed, res.Occurrence.Status)
	assert.Equal(t, models.AdherenceTakenOnTime, res.Adherence.Status)
	assert.Nil(t, res.Adherence.DelayMinutes)
	assert.Equal(t, 9, f.quantity(t))
	assert.Len(t, f.publisher.entries, 1)
	assert.Empty(t, f.notifier.sent)
}

func TestConfirm_Late(t *testing.T) {
	f := newFixture(t, "U1", 10)
	occ := f.occurrence(t, "U1")
	f.now = scheduled.Add(90 * time.Minute)

	res, err := f.svc.Confirm(context.Background(), "U1", occ.ID)

	require.NoError(t, err)
	assert.Equal(t, models.AdherenceTakenLate, res.Adherence.Status)
	require.NotNil(t, res.Adherence.DelayMinutes)
	assert.Equal(t, 90, *res.Adherence.DelayMinutes)
}

func TestConfirm_SecondAttemptRejected(t *testing.T) {
	f := newFixture(t, "U1", 10)
	occ := f.occurrence(t, "U1")

	_, err := f.svc.Confirm(context.Background(), "U1", occ.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), "U1", occ.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = f.svc.Dismiss(context.Background(), "U1", occ.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	assert.Equal(t, 9, f.quantity(t))
}

func TestConfirm_StockNeverNegative(t *testing.T) {
	f := newFixture(t, "U1", 0)
	occ := f.occurrence(t, "U1")

	_, err := f.svc.Confirm(context.Background(), "U1", occ.ID)

	require.NoError(t, err)
	assert.Equal(t, 0, f.quantity(t))
}

func TestConfirm_Errors(t *testing.T) {
	f := newFixture(t, "U1", 10)
	occ := f.occurrence(t, "U1")

	_, err := f.svc.Confirm(context.Background(), "U1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Confirm(context.Background(), "U9", occ.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.store.DeleteMedicine(context.Background(), "med-1"))
	_, err = f.svc.Confirm(context.Background(), "U1", occ.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := f.store.GetOccurrence(context.Background(), occ.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OccurrencePending, stored.Status)
}

func TestConfirm_NotifiesCreatorWithFamilyLabel(t *testing.T) {
	f := newFixture(t, "U9", 10)
	occ := f.occurrence(t, "U1")
	f.now = scheduled.Add(10 * time.Minute)

	_, err := f.svc.Confirm(context.Background(), "U1", occ.ID)

	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "U9", f.notifier.sent[0].userID)
	assert.Equal(t, models.NotificationMedicationTaken, f.notifier.sent[0].kind)
	assert.Equal(t, "Sua mãe tomou Losartana às 09:10.", f.notifier.sent[0].body)
}

func TestConfirm_PublisherFailureIsIgnored(t *testing.T) {
	f := newFixture(t, "U1", 10)
	f.publisher.err = errors.New("broker unavailable")
	occ := f.occurrence(t, "U1")

	_, err := f.svc.Confirm(context.Background(), "U1", occ.ID)

	assert.NoError(t, err)
}

func TestDismiss(t *testing.T) {
	f := newFixture(t, "U9", 10)
	occ := f.occurrence(t, "U1")
	f.now = scheduled.Add(20 * time.Minute)

	res, err := f.svc.Dismiss(context.Background(), "U1", occ.ID)

	require.NoError(t, err)
	assert.Equal(t, models.OccurrenceDismissed, res.Occurrence.Status)
	require.NotNil(t, res.Occurrence.DismissedAt)
	assert.Equal(t, models.AdherenceSkipped, res.Adherence.Status)
	assert.Nil(t, res.Adherence.DelayMinutes)
	assert.Equal(t, 10, f.quantity(t))
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, models.NotificationMedicationDismissed, f.notifier.sent[0].kind)

	report, err := f.svc.Adherence(context.Background(), "U1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, 1, report.Summary.Skipped)
}

func TestListPending(t *testing.T) {
	f := newFixture(t, "U1", 10)
	first := f.occurrence(t, "U1")
	f.occurrence(t, "U9")

	list, err := f.svc.ListPending(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	_, err = f.svc.Confirm(context.Background(), "U1", first.ID)
	require.NoError(t, err)

	list, err = f.svc.ListPending(context.Background(), "U1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestRefill(t *testing.T) {
	f := newFixture(t, "U1", 2)

	m, err := f.svc.Refill(context.Background(), "U1", "med-1", 28)
	require.NoError(t, err)
	assert.Equal(t, 30, m.Quantity)

	_, err = f.svc.Refill(context.Background(), "U1", "med-1", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.svc.Refill(context.Background(), "U9", "med-1", 5)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Refill(context.Background(), "U1", "missing", 5)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, 30, f.quantity(t))
}

func TestAdherence_Summary(t *testing.T) {
	f := newFixture(t, "U1", 10)
	occ := f.occurrence(t, "U1")
	f.now = scheduled.Add(5 * time.Minute)
	_, err := f.svc.Confirm(context.Background(), "U1", occ.ID)
	require.NoError(t, err)

	report, err := f.svc.Adherence(context.Background(), "U1", scheduled.Add(-time.Hour), scheduled.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TakenOnTime)
	assert.Equal(t, 1.0, report.Summary.AdherenceRate)

	empty, err := f.svc.Adherence(context.Background(), "U1", scheduled.Add(time.Hour), scheduled.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)

	_, err = f.svc.Adherence(context.Background(), "U1", scheduled, scheduled.Add(-time.Minute))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
