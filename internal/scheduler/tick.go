package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eva-meds/internal/clock"
	"eva-meds/pkg/models"
)

const TickWorkerName = "reminder-tick"

// TickResult contadores de uma execução do tick
type TickResult struct {
	Reference     clock.Reference `json:"reference"`
	Reminders     int             `json:"reminders"`
	Occurrences   int64           `json:"occurrences"`
	Duplicates    int64           `json:"duplicates"`
	Notifications int64           `json:"notifications"`
	Emails        int64           `json:"emails"`
	Failures      int64           `json:"failures"`
	Skipped       bool            `json:"skipped,omitempty"`
}

type tickCounters struct {
	occurrences, duplicates, notifications, emails, failures atomic.Int64
}

// ReminderTick dispara, uma vez por minuto, os lembretes devidos no horário de referência
type ReminderTick struct {
	deps     Deps
	schedule string
}

func NewReminderTick(deps Deps, schedule string) *ReminderTick {
	deps.defaults()
	return &ReminderTick{deps: deps, schedule: schedule}
}

func (t *ReminderTick) Name() string     { return TickWorkerName }
func (t *ReminderTick) Schedule() string { return t.schedule }

func (t *ReminderTick) Run(ctx context.Context) error {
	_, err := t.Tick(ctx)
	return err
}

// Tick resolve o minuto de referência, busca os lembretes devidos e faz o fan-out de cada um.
// Falhas por lembrete ou destinatário são logadas e contadas; só falhas do lote inteiro
// (ex: store fora do ar) são devolvidas.
func (t *ReminderTick) Tick(ctx context.Context) (TickResult, error) {
	ref := t.deps.Resolver.Resolve(t.deps.Now())
	result := TickResult{Reference: ref}
	logger := t.deps.Logger.With(zap.String("date", ref.DateKey), zap.String("time", ref.HHMM))

	ok, err := t.deps.acquire(ctx, TickWorkerName, ref.Instant)
	if err != nil {
		return result, fmt.Errorf("tick lock: %w", err)
	}
	if !ok {
		logger.Debug("Tick deste minuto já executado por outra instância")
		result.Skipped = true
		return result, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, t.deps.OperationTimeout)
	reminders, err := t.deps.Store.DueReminders(queryCtx, ref.DateKey, ref.HHMM, ref.Weekday)
	cancel()
	if err != nil {
		return result, fmt.Errorf("failed to load due reminders: %w", err)
	}

	result.Reminders = len(reminders)
	if len(reminders) == 0 {
		return result, nil
	}

	var counters tickCounters
	var g errgroup.Group
	g.SetLimit(t.deps.Concurrency)

	for _, r := range reminders {
		r := r
		g.Go(func() error {
			t.fanOut(ctx, ref, r, &counters)
			return nil
		})
	}
	_ = g.Wait()

	result.Occurrences = counters.occurrences.Load()
	result.Duplicates = counters.duplicates.Load()
	result.Notifications = counters.notifications.Load()
	result.Emails = counters.emails.Load()
	result.Failures = counters.failures.Load()

	logger.Info("⏰ Tick concluído",
		zap.Int("reminders", result.Reminders),
		zap.Int64("occurrences", result.Occurrences),
		zap.Int64("duplicates", result.Duplicates),
		zap.Int64("notifications", result.Notifications),
		zap.Int64("emails", result.Emails),
		zap.Int64("failures", result.Failures),
	)

	return result, nil
}

// markTriggered registro informativo; não é usado como filtro de duplicidade
func (t *ReminderTick) markTriggered(ctx context.Context, r *models.Reminder, ref clock.Reference) {
	ctx, cancel := context.WithTimeout(ctx, t.deps.OperationTimeout)
	defer cancel()

	if err := t.deps.Store.MarkReminderTriggered(ctx, r.ID, ref.Instant); err != nil {
		t.deps.Logger.Warn("Falha ao registrar lastTriggeredAt",
			zap.String("reminder_id", r.ID),
			zap.Error(err),
		)
	}
}
