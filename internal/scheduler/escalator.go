package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eva-meds/internal/apperr"
	"eva-meds/internal/notification"
	"eva-meds/pkg/models"
)

const (
	EscalatorWorkerName = "grace-escalator"

	// GraceWindow tempo sem confirmação até avisar o criador do lembrete
	GraceWindow = 30 * time.Minute

	escalationBatch = 500
)

// EscalationResult contadores de uma execução do escalonador
type EscalationResult struct {
	Cutoff   time.Time `json:"cutoff"`
	Scanned  int       `json:"scanned"`
	Flagged  int64     `json:"flagged"`
	Notified int64     `json:"notified"`
	Self     int64     `json:"selfReminders"`
	Failures int64     `json:"failures"`
	Skipped  bool      `json:"skipped,omitempty"`
}

type escalationCounters struct {
	flagged, notified, self, failures atomic.Int64
}

// GraceEscalator avisa o criador, uma única vez, quando uma ocorrência fica
// pendente além da GraceWindow
type GraceEscalator struct {
	deps     Deps
	schedule string
}

func NewGraceEscalator(deps Deps, schedule string) *GraceEscalator {
	deps.defaults()
	return &GraceEscalator{deps: deps, schedule: schedule}
}

func (e *GraceEscalator) Name() string     { return EscalatorWorkerName }
func (e *GraceEscalator) Schedule() string { return e.schedule }

func (e *GraceEscalator) Run(ctx context.Context) error {
	_, err := e.Escalate(ctx)
	return err
}

// Escalate marca e notifica as ocorrências vencidas. A flag é gravada antes da
// notificação: uma varredura repetida nunca notifica de novo.
func (e *GraceEscalator) Escalate(ctx context.Context) (EscalationResult, error) {
	now := e.deps.Now().UTC()
	cutoff := now.Add(-GraceWindow)
	result := EscalationResult{Cutoff: cutoff}

	ok, err := e.deps.acquire(ctx, EscalatorWorkerName, now.Truncate(time.Minute))
	if err != nil {
		return result, fmt.Errorf("escalation lock: %w", err)
	}
	if !ok {
		result.Skipped = true
		return result, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.deps.OperationTimeout)
	overdue, err := e.deps.Store.OverdueOccurrences(queryCtx, cutoff, escalationBatch)
	cancel()
	if err != nil {
		return result, fmt.Errorf("failed to load overdue occurrences: %w", err)
	}

	result.Scanned = len(overdue)
	if len(overdue) == 0 {
		return result, nil
	}

	var counters escalationCounters
	var g errgroup.Group
	g.SetLimit(e.deps.Concurrency)

	for _, occ := range overdue {
		occ := occ
		g.Go(func() error {
			e.escalate(ctx, occ, &counters)
			return nil
		})
	}
	_ = g.Wait()

	result.Flagged = counters.flagged.Load()
	result.Notified = counters.notified.Load()
	result.Self = counters.self.Load()
	result.Failures = counters.failures.Load()

	e.deps.Logger.Info("🔔 Escalonamento concluído",
		zap.Time("cutoff", cutoff),
		zap.Int("scanned", result.Scanned),
		zap.Int64("flagged", result.Flagged),
		zap.Int64("notified", result.Notified),
		zap.Int64("self_reminders", result.Self),
		zap.Int64("failures", result.Failures),
	)

	return result, nil
}

func (e *GraceEscalator) escalate(ctx context.Context, occ *models.PendingOccurrence, c *escalationCounters) {
	logger := e.deps.Logger.With(zap.String("occurrence_id", occ.ID), zap.String("user_id", occ.UserID))

	opCtx, cancel := context.WithTimeout(ctx, e.deps.OperationTimeout)
	flagged, err := e.deps.Store.MarkNotTakenNotified(opCtx, occ.ID)
	cancel()
	if err != nil {
		c.failures.Add(1)
		logger.Error("❌ Falha ao marcar ocorrência", zap.Error(err))
		return
	}
	if !flagged {
		return
	}
	c.flagged.Add(1)

	opCtx, cancel = context.WithTimeout(ctx, e.deps.OperationTimeout)
	reminder, err := e.deps.Store.GetReminder(opCtx, occ.ReminderID)
	cancel()
	if err != nil {
		c.failures.Add(1)
		logger.Warn("Lembrete da ocorrência não encontrado", zap.String("reminder_id", occ.ReminderID), zap.Error(err))
		return
	}

	creator := reminder.CreatedBy
	if creator == "" || creator == occ.UserID {
		c.self.Add(1)
		return
	}

	name := notification.DisplayName(ctx, e.deps.Store, creator, occ.UserID)
	scheduledAt := e.deps.Resolver.Wall(occ.ScheduledTime, "02/01 15:04")
	title := fmt.Sprintf("⚠️ %s não confirmado", occ.MedicineName)
	body := fmt.Sprintf("%s não confirmou %s agendado para %s (mais de %d minutos).",
		name, occ.MedicineName, scheduledAt, int(GraceWindow/time.Minute))

	if _, err := e.deps.Notifier.Create(ctx, creator, models.NotificationMedicationNotTaken, title, body, occurrenceMeta(occ)); err != nil {
		c.failures.Add(1)
		logger.Warn("⚠️ Falha ao notificar criador", zap.String("created_by", creator), zap.Error(err))
		return
	}
	c.notified.Add(1)

	if reminder.Channels.Email && e.deps.Mailer != nil {
		if err := e.sendNotTakenEmail(ctx, creator, name, occ.MedicineName, scheduledAt); err != nil {
			logger.Warn("📧 Falha no email de dose não confirmada", zap.String("created_by", creator), zap.Error(err))
		}
	}
}

func (e *GraceEscalator) sendNotTakenEmail(ctx context.Context, creatorID, subjectName, medicineName, scheduledAt string) error {
	ctx, cancel := context.WithTimeout(ctx, e.deps.OperationTimeout)
	defer cancel()

	creator, err := e.deps.Store.GetUser(ctx, creatorID)
	if err != nil {
		return apperr.Delivery(err, "lookup creator %s", creatorID)
	}
	if creator.Email == "" {
		return nil
	}

	if err := e.deps.Mailer.SendMedicationNotTaken(ctx, creator.Email, creator.Name, subjectName, medicineName, scheduledAt); err != nil {
		return apperr.Delivery(err, "not-taken email to %s", creatorID)
	}
	return nil
}
