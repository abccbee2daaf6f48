// Package scheduler contém os dois jobs de minuto: o tick que dispara os
// lembretes devidos e o escalonador que avisa o criador quando uma dose
// não foi confirmada dentro da janela de tolerância. Os dois só se
// coordenam pelos dados (flag notTakenNotified), nunca por chamadas diretas.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eva-meds/internal/clock"
	"eva-meds/pkg/models"
)

type Store interface {
	DueReminders(ctx context.Context, dateKey, hhmm, weekday string) ([]*models.Reminder, error)
	MarkReminderTriggered(ctx context.Context, id string, at time.Time) error
	GetReminder(ctx context.Context, id string) (*models.Reminder, error)
	CreateOccurrence(ctx context.Context, o *models.PendingOccurrence) (bool, error)
	OverdueOccurrences(ctx context.Context, cutoff time.Time, limit int) ([]*models.PendingOccurrence, error)
	MarkNotTakenNotified(ctx context.Context, id string) (bool, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	FamilyLabel(ctx context.Context, observerID, memberID string) (string, bool, error)
}

type Notifier interface {
	Create(ctx context.Context, userID, kind, title, body string, meta map[string]string) (*models.Notification, error)
}

type Mailer interface {
	SendMedicationReminder(ctx context.Context, to, recipientName, subjectName, medicineName, scheduledAt string) error
	SendMedicationNotTaken(ctx context.Context, to, recipientName, subjectName, medicineName, scheduledAt string) error
}

// Locker trava opcional por (job, minuto) entre réplicas
type Locker interface {
	Acquire(ctx context.Context, name string, minute time.Time) (bool, error)
}

// Deps dependências comuns do tick e do escalonador.
// Mailer e Lock podem ser nil.
type Deps struct {
	Store            Store
	Notifier         Notifier
	Mailer           Mailer
	Lock             Locker
	Resolver         clock.Resolver
	Logger           *zap.Logger
	OperationTimeout time.Duration
	Concurrency      int
	Now              func() time.Time
}

func (d *Deps) defaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Concurrency <= 0 {
		d.Concurrency = 1
	}
	if d.OperationTimeout <= 0 {
		d.OperationTimeout = 5 * time.Second
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}

// acquire consulta a trava quando configurada
func (d *Deps) acquire(ctx context.Context, name string, minute time.Time) (bool, error) {
	if d.Lock == nil {
		return true, nil
	}
	return d.Lock.Acquire(ctx, name, minute)
}

func occurrenceMeta(occ *models.PendingOccurrence) map[string]string {
	return map[string]string{
		"occurrenceId":  occ.ID,
		"reminderId":    occ.ReminderID,
		"medicineId":    occ.MedicineID,
		"userId":        occ.UserID,
		"scheduledTime": occ.ScheduledTime.UTC().Format(time.RFC3339),
	}
}
