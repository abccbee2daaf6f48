package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"

	"eva-meds/pkg/models"
)

type fakeEvents struct {
	inserted []*gcal.Event
	updated  []string
	deleted  []string
	failOn   string
}

func (f *fakeEvents) Insert(_ context.Context, _ string, e *gcal.Event) (*gcal.Event, error) {
	f.inserted = append(f.inserted, e)
	return &gcal.Event{Id: fmt.Sprintf("evt-%d", len(f.inserted))}, nil
}

func (f *fakeEvents) Update(_ context.Context, _ string, id string, _ *gcal.Event) (*gcal.Event, error) {
	f.updated = append(f.updated, id)
	return &gcal.Event{Id: id}, nil
}

func (f *fakeEvents) Delete(_ context.Context, _ string, id string) error {
	if id == f.failOn {
		return errors.New("gone")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func reminder() *models.Reminder {
	end := "2026-03-31"
	return &models.Reminder{
		ID:           "rem-1",
		MedicineName: "Losartana",
		Times:        []string{"08:00", "23:50"},
		DaysOfWeek:   []string{"Mon", "Wed"},
		StartDate:    "2026-03-09",
		EndDate:      &end,
		Timezone:     "America/Sao_Paulo",
	}
}

func TestBuildEvents(t *testing.T) {
	events, err := BuildEvents(reminder())

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2026-03-09T08:00:00", events[0].Start.DateTime)
	assert.Equal(t, "2026-03-09T08:15:00", events[0].End.DateTime)
	assert.Equal(t, "America/Sao_Paulo", events[0].Start.TimeZone)
	assert.Equal(t, []string{"RRULE:FREQ=WEEKLY;BYDAY=MO,WE;UNTIL=20260331T235959Z"}, events[0].Recurrence)
	assert.Equal(t, "2026-03-10T00:05:00", events[1].End.DateTime)
	assert.Equal(t, "rem-1", events[1].ExtendedProperties.Private["reminderId"])
}

func TestBuildEvents_DailyUnbounded(t *testing.T) {
	r := reminder()
	r.DaysOfWeek = nil
	r.EndDate = nil

	events, err := BuildEvents(r)

	require.NoError(t, err)
	assert.Equal(t, []string{"RRULE:FREQ=DAILY"}, events[0].Recurrence)
}

func TestCreateAndUpdateEvents(t *testing.T) {
	f := &fakeEvents{}
	g := &GoogleCalendar{events: f, calendarID: "primary", logger: zap.NewNop()}
	r := reminder()

	ids, err := g.CreateEvents(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-1", "evt-2"}, ids)

	r.CalendarEventIDs = ids
	ids, err = g.UpdateEvents(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-1", "evt-2"}, ids)
	assert.Equal(t, []string{"evt-1", "evt-2"}, f.updated)

	r.Times = []string{"08:00"}
	ids, err = g.UpdateEvents(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-1", "evt-2"}, f.deleted)
	assert.Equal(t, []string{"evt-3"}, ids)
}

func TestDeleteEvents_ContinuesAfterFailure(t *testing.T) {
	f := &fakeEvents{failOn: "evt-1"}
	g := &GoogleCalendar{events: f, calendarID: "primary", logger: zap.NewNop()}
	r := reminder()
	r.CalendarEventIDs = []string{"evt-1", "evt-2"}

	err := g.DeleteEvents(context.Background(), r)

	assert.Error(t, err)
	assert.Equal(t, []string{"evt-2"}, f.deleted)
}
