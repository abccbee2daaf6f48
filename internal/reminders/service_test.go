package reminders

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

type fakeCalendar struct {
	created, updated, deleted []string
	createErr                 error
}

func (f *fakeCalendar) CreateEvents(_ context.Context, r *models.Reminder) ([]string, error) {
	f.created = append(f.created, r.ID)
	if f.createErr != nil {
		return nil, f.createErr
	}
	ids := make([]string, len(r.Times))
	for i, t := range r.Times {
		ids[i] = "evt-" + t
	}
	return ids, nil
}

func (f *fakeCalendar) UpdateEvents(_ context.Context, r *models.Reminder) ([]string, error) {
	f.updated = append(f.updated, r.ID)
	return r.CalendarEventIDs, nil
}

func (f *fakeCalendar) DeleteEvents(_ context.Context, r *models.Reminder) error {
	f.deleted = append(f.deleted, r.ID)
	return nil
}

func newTestService(t *testing.T) (*Service, *database.MemoryStore, *fakeCalendar, *models.Medicine) {
	t.Helper()
	store := database.NewMemoryStore()
	cal := &fakeCalendar{}
	med := &models.Medicine{OwnerID: "u1", Name: "Losartana", Quantity: 30}
	require.NoError(t, store.CreateMedicine(context.Background(), med))

	svc := NewService(Options{
		Store:           store,
		Calendar:        cal,
		Resolver:        clock.NewResolver(-180),
		DefaultTimezone: "America/Sao_Paulo",
		Logger:          zap.NewNop(),
		Now:             func() time.Time { return time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC) },
	})
	return svc, store, cal, med
}

func TestCreate_NormalizesAndDefaults(t *testing.T) {
	svc, store, cal, med := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "u1", ReminderInput{
		MedicineID: med.ID,
		Times:      []string{"20:00", "08:00", "20:00"},
		DaysOfWeek: []string{"monday", "mon", "Fri"},
		Watchers:   []string{"u2", " ", "u2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", r.TargetUserID)
	assert.Equal(t, "u1", r.CreatedBy)
	assert.Equal(t, "Losartana", r.MedicineName)
	assert.Equal(t, []string{"08:00", "20:00"}, r.Times)
	assert.Equal(t, []string{"Mon", "Fri"}, r.DaysOfWeek)
	assert.Equal(t, []string{"u2"}, r.Watchers)
	// 02:00 UTC ainda é dia 9 em São Paulo
	assert.Equal(t, "2026-03-09", r.StartDate)
	assert.Equal(t, "America/Sao_Paulo", r.Timezone)
	assert.True(t, r.Channels.InApp)
	assert.False(t, r.Channels.Email)
	assert.True(t, r.Active)

	assert.Equal(t, []string{r.ID}, cal.created)
	stored, err := store.GetReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-08:00", "evt-20:00"}, stored.CalendarEventIDs)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _, med := newTestService(t)
	ctx := context.Background()
	end := "2026-03-01"

	cases := []struct {
		name string
		in   ReminderInput
		code string
	}{
		{"missing medicine", ReminderInput{Times: []string{"08:00"}}, "invalid_input"},
		{"unknown medicine", ReminderInput{MedicineID: "nope", Times: []string{"08:00"}}, "not_found"},
		{"no times", ReminderInput{MedicineID: med.ID}, "invalid_input"},
		{"bad time", ReminderInput{MedicineID: med.ID, Times: []string{"25:00"}}, "invalid_input"},
		{"bad weekday", ReminderInput{MedicineID: med.ID, Times: []string{"08:00"}, DaysOfWeek: []string{"Funday"}}, "invalid_input"},
		{"end before start", ReminderInput{MedicineID: med.ID, Times: []string{"08:00"}, StartDate: "2026-03-10", EndDate: &end}, "invalid_input"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "u1", tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.code, apperr.Code(err))
		})
	}
}

func TestCreate_CalendarFailureIsNotFatal(t *testing.T) {
	svc, store, cal, med := newTestService(t)
	cal.createErr = errors.New("quota exceeded")

	r, err := svc.Create(context.Background(), "u1", ReminderInput{MedicineID: med.ID, Times: []string{"08:00"}})
	require.NoError(t, err)

	stored, err := store.GetReminder(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.CalendarEventIDs)
}

func TestUpdate(t *testing.T) {
	svc, _, cal, med := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "u1", ReminderInput{MedicineID: med.ID, TargetUserID: "u3", Times: []string{"08:00"}})
	require.NoError(t, err)

	t.Run("stranger is forbidden", func(t *testing.T) {
		_, err := svc.Update(ctx, "u9", r.ID, ReminderInput{Times: []string{"09:00"}})
		assert.Equal(t, "forbidden", apperr.Code(err))
	})

	t.Run("target can edit and omitted fields are kept", func(t *testing.T) {
		email := true
		updated, err := svc.Update(ctx, "u3", r.ID, ReminderInput{
			Times:    []string{"09:30"},
			Channels: &ChannelsInput{Email: &email},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"09:30"}, updated.Times)
		assert.True(t, updated.Channels.Email)
		assert.True(t, updated.Channels.InApp)
		assert.Equal(t, r.StartDate, updated.StartDate)
		assert.Contains(t, cal.updated, r.ID)
	})

	t.Run("clearing the end date", func(t *testing.T) {
		end := "2026-12-31"
		updated, err := svc.Update(ctx, "u1", r.ID, ReminderInput{EndDate: &end})
		require.NoError(t, err)
		require.NotNil(t, updated.EndDate)

		empty := ""
		updated, err = svc.Update(ctx, "u1", r.ID, ReminderInput{EndDate: &empty})
		require.NoError(t, err)
		assert.Nil(t, updated.EndDate)
	})
}

func TestDeactivate(t *testing.T) {
	svc, store, cal, med := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "u1", ReminderInput{MedicineID: med.ID, Times: []string{"08:00"}})
	require.NoError(t, err)

	_, err = svc.Deactivate(ctx, "u2", r.ID)
	assert.Equal(t, "forbidden", apperr.Code(err))

	got, err := svc.Deactivate(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, []string{r.ID}, cal.deleted)

	stored, err := store.GetReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.Empty(t, stored.CalendarEventIDs)

	due, err := store.DueReminders(ctx, "2026-03-10", "08:00", "Tue")
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestListAndGet(t *testing.T) {
	svc, _, _, med := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "u1", ReminderInput{MedicineID: med.ID, Times: []string{"08:00"}, Watchers: []string{"u2"}})
	require.NoError(t, err)

	list, err := svc.List(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = svc.List(ctx, "u9")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = svc.Get(ctx, "u2", r.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "u9", r.ID)
	assert.Equal(t, "forbidden", apperr.Code(err))
}

func TestMedicines(t *testing.T) {
	svc, store, cal, med := newTestService(t)
	ctx := context.Background()

	t.Run("create validates", func(t *testing.T) {
		_, err := svc.CreateMedicine(ctx, "u1", MedicineInput{Name: "  "})
		assert.Equal(t, "invalid_input", apperr.Code(err))

		_, err = svc.CreateMedicine(ctx, "u1", MedicineInput{Name: "Dipirona", Quantity: -1})
		assert.Equal(t, "invalid_input", apperr.Code(err))

		m, err := svc.CreateMedicine(ctx, "u1", MedicineInput{Name: " Dipirona ", Quantity: 10})
		require.NoError(t, err)
		assert.Equal(t, "Dipirona", m.Name)
		assert.Equal(t, "u1", m.OwnerID)
	})

	t.Run("delete deactivates reminders", func(t *testing.T) {
		r, err := svc.Create(ctx, "u1", ReminderInput{MedicineID: med.ID, Times: []string{"08:00"}})
		require.NoError(t, err)

		err = svc.DeleteMedicine(ctx, "u2", med.ID)
		assert.Equal(t, "forbidden", apperr.Code(err))

		require.NoError(t, svc.DeleteMedicine(ctx, "u1", med.ID))

		_, err = store.GetMedicine(ctx, med.ID)
		assert.Equal(t, "not_found", apperr.Code(err))

		stored, err := store.GetReminder(ctx, r.ID)
		require.NoError(t, err)
		assert.False(t, stored.Active)
		assert.Contains(t, cal.deleted, r.ID)
	})
}
