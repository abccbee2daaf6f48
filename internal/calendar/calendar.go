// Package calendar sincroniza os lembretes com o Google Calendar.
// Toda chamada é best-effort: quem chama loga a falha e segue.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"eva-meds/internal/clock"
	"eva-meds/pkg/models"
)

const eventDuration = 15 * time.Minute

// Sync operações de calendário usadas pelo CRUD de lembretes
type Sync interface {
	CreateEvents(ctx context.Context, r *models.Reminder) ([]string, error)
	UpdateEvents(ctx context.Context, r *models.Reminder) ([]string, error)
	DeleteEvents(ctx context.Context, r *models.Reminder) error
}

// eventsAPI o subconjunto do EventsService usado aqui
type eventsAPI interface {
	Insert(ctx context.Context, calendarID string, e *gcal.Event) (*gcal.Event, error)
	Update(ctx context.Context, calendarID, eventID string, e *gcal.Event) (*gcal.Event, error)
	Delete(ctx context.Context, calendarID, eventID string) error
}

type googleEvents struct {
	svc *gcal.EventsService
}

func (g googleEvents) Insert(ctx context.Context, calendarID string, e *gcal.Event) (*gcal.Event, error) {
	return g.svc.Insert(calendarID, e).Context(ctx).Do()
}

func (g googleEvents) Update(ctx context.Context, calendarID, eventID string, e *gcal.Event) (*gcal.Event, error) {
	return g.svc.Update(calendarID, eventID, e).Context(ctx).Do()
}

func (g googleEvents) Delete(ctx context.Context, calendarID, eventID string) error {
	return g.svc.Delete(calendarID, eventID).Context(ctx).Do()
}

type GoogleCalendar struct {
	events     eventsAPI
	calendarID string
	logger     *zap.Logger
}

// NewGoogleCalendar cria o cliente com uma conta de serviço
func NewGoogleCalendar(ctx context.Context, credentialsPath, calendarID string, logger *zap.Logger) (*GoogleCalendar, error) {
	svc, err := gcal.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing Calendar client: %w", err)
	}

	return &GoogleCalendar{
		events:     googleEvents{svc: svc.Events},
		calendarID: calendarID,
		logger:     logger,
	}, nil
}

// CreateEvents cria um evento recorrente por horário do lembrete
func (g *GoogleCalendar) CreateEvents(ctx context.Context, r *models.Reminder) ([]string, error) {
	events, err := BuildEvents(r)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(events))
	for _, e := range events {
		created, err := g.events.Insert(ctx, g.calendarID, e)
		if err != nil {
			return ids, fmt.Errorf("failed to create calendar event: %w", err)
		}
		ids = append(ids, created.Id)
	}
	return ids, nil
}

// UpdateEvents atualiza no lugar quando a quantidade de horários não mudou;
// caso contrário recria todos os eventos
func (g *GoogleCalendar) UpdateEvents(ctx context.Context, r *models.Reminder) ([]string, error) {
	if len(r.CalendarEventIDs) != len(r.Times) {
		if err := g.DeleteEvents(ctx, r); err != nil {
			return r.CalendarEventIDs, err
		}
		return g.CreateEvents(ctx, r)
	}

	events, err := BuildEvents(r)
	if err != nil {
		return r.CalendarEventIDs, err
	}

	for i, e := range events {
		if _, err := g.events.Update(ctx, g.calendarID, r.CalendarEventIDs[i], e); err != nil {
			return r.CalendarEventIDs, fmt.Errorf("failed to update calendar event: %w", err)
		}
	}
	return r.CalendarEventIDs, nil
}

// DeleteEvents remove todos os eventos do lembrete; continua após falhas individuais
func (g *GoogleCalendar) DeleteEvents(ctx context.Context, r *models.Reminder) error {
	var failed int
	for _, id := range r.CalendarEventIDs {
		if err := g.events.Delete(ctx, g.calendarID, id); err != nil {
			failed++
			g.logger.Warn("Falha ao remover evento do calendário",
				zap.String("reminder_id", r.ID),
				zap.String("event_id", id),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to delete %d of %d calendar events", failed, len(r.CalendarEventIDs))
	}
	return nil
}

var rruleDays = map[string]string{
	"Sun": "SU", "Mon": "MO", "Tue": "TU", "Wed": "WE", "Thu": "TH", "Fri": "FR", "Sat": "SA",
}

// BuildEvents monta um evento recorrente por horário, no fuso do lembrete
func BuildEvents(r *models.Reminder) ([]*gcal.Event, error) {
	startDate, err := time.Parse(clock.DateLayout, r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", r.StartDate, err)
	}

	rule := "RRULE:FREQ=DAILY"
	if len(r.DaysOfWeek) > 0 {
		days := make([]string, 0, len(r.DaysOfWeek))
		for _, d := range r.DaysOfWeek {
			if code, ok := rruleDays[d]; ok {
				days = append(days, code)
			}
		}
		rule = "RRULE:FREQ=WEEKLY;BYDAY=" + strings.Join(days, ",")
	}
	if r.EndDate != nil {
		end, err := time.Parse(clock.DateLayout, *r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", *r.EndDate, err)
		}
		rule += ";UNTIL=" + end.Format("20060102") + "T235959Z"
	}

	events := make([]*gcal.Event, 0, len(r.Times))
	for _, hhmm := range r.Times {
		at, err := time.Parse(clock.TimeLayout, hhmm)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", hhmm, err)
		}
		start := startDate.Add(time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute)
		end := start.Add(eventDuration)

		events = append(events, &gcal.Event{
			Summary:     "💊 " + r.MedicineName,
			Description: "Lembrete de medicamento EVA",
			Start:       &gcal.EventDateTime{DateTime: start.Format("2006-01-02T15:04:05"), TimeZone: r.Timezone},
			End:         &gcal.EventDateTime{DateTime: end.Format("2006-01-02T15:04:05"), TimeZone: r.Timezone},
			Recurrence:  []string{rule},
			Reminders: &gcal.EventReminders{
				UseDefault:      false,
				Overrides:       []*gcal.EventReminder{{Method: "popup", Minutes: 0, ForceSendFields: []string{"Minutes"}}},
				ForceSendFields: []string{"UseDefault"},
			},
			ExtendedProperties: &gcal.EventExtendedProperties{
				Private: map[string]string{"reminderId": r.ID, "time": hhmm},
			},
		})
	}
	return events, nil
}

// NoopSync usado quando o calendário não está configurado
type NoopSync struct{}

func (NoopSync) CreateEvents(context.Context, *models.Reminder) ([]string, error) { return nil, nil }
func (NoopSync) UpdateEvents(_ context.Context, r *models.Reminder) ([]string, error) {
	return r.CalendarEventIDs, nil
}
func (NoopSync) DeleteEvents(context.Context, *models.Reminder) error { return nil }
