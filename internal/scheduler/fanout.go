package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"eva-meds/internal/apperr"
	"eva-meds/internal/clock"
	"eva-meds/internal/notification"
	"eva-meds/pkg/models"
)

var errNoAddress = errors.New("recipient has no email address")

// fanOut entrega um lembrete devido a cada destinatário (alvo + observadores, sem repetição).
// Cada destinatário é independente: a falha de um não impede os outros.
func (t *ReminderTick) fanOut(ctx context.Context, ref clock.Reference, r *models.Reminder, c *tickCounters) {
	for _, userID := range r.Recipients() {
		if ctx.Err() != nil {
			t.deps.Logger.Warn("Tick cancelado durante o fan-out",
				zap.String("reminder_id", r.ID),
				zap.Error(ctx.Err()),
			)
			return
		}
		t.deliver(ctx, ref, r, userID, c)
	}

	t.markTriggered(ctx, r, ref)
}

func (t *ReminderTick) deliver(ctx context.Context, ref clock.Reference, r *models.Reminder, userID string, c *tickCounters) {
	logger := t.deps.Logger.With(zap.String("reminder_id", r.ID), zap.String("user_id", userID))

	occ := &models.PendingOccurrence{
		UserID:        userID,
		ReminderID:    r.ID,
		MedicineID:    r.MedicineID,
		MedicineName:  r.MedicineName,
		ScheduledTime: ref.Instant,
	}

	opCtx, cancel := context.WithTimeout(ctx, t.deps.OperationTimeout)
	created, err := t.deps.Store.CreateOccurrence(opCtx, occ)
	cancel()
	if err != nil {
		c.failures.Add(1)
		logger.Error("❌ Falha ao criar ocorrência", zap.Error(err))
		return
	}
	if !created {
		c.duplicates.Add(1)
		logger.Debug("Ocorrência já existe para este minuto")
		return
	}
	c.occurrences.Add(1)

	subject := "você"
	if userID != r.TargetUserID {
		subject = notification.DisplayName(ctx, t.deps.Store, userID, r.TargetUserID)
	}

	if r.Channels.InApp {
		title := fmt.Sprintf("💊 Hora do remédio: %s", r.MedicineName)
		body := fmt.Sprintf("Está na hora de %s tomar %s (%s).", subject, r.MedicineName, ref.HHMM)
		if subject == "você" {
			body = fmt.Sprintf("Está na hora de tomar %s (%s).", r.MedicineName, ref.HHMM)
		}

		if _, err := t.deps.Notifier.Create(ctx, userID, models.NotificationMedicationReminder, title, body, occurrenceMeta(occ)); err != nil {
			c.failures.Add(1)
			logger.Warn("⚠️ Falha ao criar notificação", zap.String("occurrence_id", occ.ID), zap.Error(err))
		} else {
			c.notifications.Add(1)
		}
	}

	if r.Channels.Email {
		if err := t.sendReminderEmail(ctx, ref, r, userID, subject); err != nil {
			if errors.Is(err, apperr.ErrConfigurationMissing) || errors.Is(err, errNoAddress) {
				logger.Debug("Email não enviado", zap.Error(err))
				return
			}
			c.failures.Add(1)
			logger.Warn("📧 Falha no email do lembrete", zap.Error(err))
			return
		}
		c.emails.Add(1)
	}
}

func (t *ReminderTick) sendReminderEmail(ctx context.Context, ref clock.Reference, r *models.Reminder, userID, subject string) error {
	if t.deps.Mailer == nil {
		return fmt.Errorf("email transport: %w", apperr.ErrConfigurationMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, t.deps.OperationTimeout)
	defer cancel()

	user, err := t.deps.Store.GetUser(ctx, userID)
	if err != nil {
		return apperr.Delivery(err, "lookup recipient %s", userID)
	}
	if user.Email == "" {
		return fmt.Errorf("%s: %w", userID, errNoAddress)
	}

	scheduledAt := ref.DateKey + " " + ref.HHMM
	if err := t.deps.Mailer.SendMedicationReminder(ctx, user.Email, user.Name, subject, r.MedicineName, scheduledAt); err != nil {
		return apperr.Delivery(err, "reminder email to %s", userID)
	}
	return nil
}
