package database

import (
	"context"
	"time"

	"eva-meds/pkg/models"
)

// Store contrato comum entre o DB (Postgres) e o MemoryStore
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	FamilyLabel(ctx context.Context, observerID, memberID string) (string, bool, error)
	ClearDeviceToken(ctx context.Context, userID string) error

	CreateMedicine(ctx context.Context, m *models.Medicine) error
	GetMedicine(ctx context.Context, id string) (*models.Medicine, error)
	DeleteMedicine(ctx context.Context, id string) error
	RefillMedicine(ctx context.Context, id string, amount int) (*models.Medicine, error)

	DueReminders(ctx context.Context, dateKey, hhmm, weekday string) ([]*models.Reminder, error)
	GetReminder(ctx context.Context, id string) (*models.Reminder, error)
	ListRemindersForUser(ctx context.Context, userID string) ([]*models.Reminder, error)
	CreateReminder(ctx context.Context, r *models.Reminder) error
	UpdateReminder(ctx context.Context, r *models.Reminder) error
	MarkReminderTriggered(ctx context.Context, id string, at time.Time) error
	SetCalendarEventIDs(ctx context.Context, id string, eventIDs []string) error
	DeactivateRemindersForMedicine(ctx context.Context, medicineID string) ([]*models.Reminder, error)

	CreateOccurrence(ctx context.Context, o *models.PendingOccurrence) (bool, error)
	GetOccurrence(ctx context.Context, id string) (*models.PendingOccurrence, error)
	ListOccurrences(ctx context.Context, userID string, status models.OccurrenceStatus) ([]*models.PendingOccurrence, error)
	OverdueOccurrences(ctx context.Context, cutoff time.Time, limit int) ([]*models.PendingOccurrence, error)
	MarkNotTakenNotified(ctx context.Context, id string) (bool, error)
	CompleteOccurrence(ctx context.Context, c Completion) (*models.AdherenceLogEntry, error)

	ListAdherence(ctx context.Context, userID string, from, to time.Time) ([]*models.AdherenceLogEntry, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*MemoryStore)(nil)
)
