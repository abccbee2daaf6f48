// Package occurrence implementa as ações do usuário sobre uma ocorrência
// (confirmar, dispensar), a reposição de estoque e a leitura do log de adesão.
package occurrence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"eva-meds/internal/adherence"
	"eva-meds/internal/apperr"
	"eva-meds/internal/clock"
	"eva-meds/internal/database"
	"eva-meds/internal/notification"
	"eva-meds/pkg/models"
)

type Store interface {
	GetOccurrence(ctx context.Context, id string) (*models.PendingOccurrence, error)
	ListOccurrences(ctx context.Context, userID string, status models.OccurrenceStatus) ([]*models.PendingOccurrence, error)
	CompleteOccurrence(ctx context.Context, c database.Completion) (*models.AdherenceLogEntry, error)
	GetReminder(ctx context.Context, id string) (*models.Reminder, error)
	GetMedicine(ctx context.Context, id string) (*models.Medicine, error)
	RefillMedicine(ctx context.Context, id string, amount int) (*models.Medicine, error)
	ListAdherence(ctx context.Context, userID string, from, to time.Time) ([]*models.AdherenceLogEntry, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	FamilyLabel(ctx context.Context, observerID, memberID string) (string, bool, error)
}

type Notifier interface {
	Create(ctx context.Context, userID, kind, title, body string, meta map[string]string) (*models.Notification, error)
}

type Publisher interface {
	PublishAdherence(ctx context.Context, entry *models.AdherenceLogEntry) error
}

type Options struct {
	Store     Store
	Notifier  Notifier
	Publisher Publisher
	Resolver  clock.Resolver
	Logger    *zap.Logger
	Timeout   time.Duration
	Now       func() time.Time
}

type Service struct {
	store     Store
	notifier  Notifier
	publisher Publisher
	resolver  clock.Resolver
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewService(o Options) *Service {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	return &Service{
		store:     o.Store,
		notifier:  o.Notifier,
		publisher: o.Publisher,
		resolver:  o.Resolver,
		logger:    o.Logger,
		timeout:   o.Timeout,
		now:       o.Now,
	}
}

// Result estado final da ocorrência e a entrada gravada no log
type Result struct {
	Occurrence *models.PendingOccurrence `json:"occurrence"`
	Adherence  *models.AdherenceLogEntry `json:"adherence"`
}

// ListPending ocorrências pendentes do usuário, mais recentes primeiro
func (s *Service) ListPending(ctx context.Context, userID string) ([]*models.PendingOccurrence, error) {
	list, err := s.store.ListOccurrences(ctx, userID, models.OccurrencePending)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.PendingOccurrence{}
	}
	return list, nil
}

// owned carrega a ocorrência e valida dono e estado
func (s *Service) owned(ctx context.Context, userID, occurrenceID string) (*models.PendingOccurrence, error) {
	occ, err := s.store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if occ.UserID != userID {
		return nil, apperr.Forbidden("occurrence %s belongs to another user", occurrenceID)
	}
	if occ.Status != models.OccurrencePending {
		return nil, apperr.InvalidState("occurrence %s is %s", occurrenceID, occ.Status)
	}
	return occ, nil
}

// Confirm pending -> confirmed: classifica no log de adesão e baixa uma unidade do estoque
func (s *Service) Confirm(ctx context.Context, userID, occurrenceID string) (*Result, error) {
	occ, err := s.owned(ctx, userID, occurrenceID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetMedicine(ctx, occ.MedicineID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.store.CompleteOccurrence(opCtx, database.Completion{
		OccurrenceID:        occ.ID,
		Status:              models.OccurrenceConfirmed,
		At:                  now,
		Entry:               adherence.ConfirmedEntry(occ, now),
		DecrementMedicineID: occ.MedicineID,
	})
	if err != nil {
		return nil, err
	}

	occ.Status = models.OccurrenceConfirmed
	occ.ConfirmedAt = &now

	s.logger.Info("✅ Dose confirmada",
		zap.String("occurrence_id", occ.ID),
		zap.String("user_id", userID),
		zap.String("status", string(entry.Status)),
	)

	s.afterCompletion(ctx, occ, entry)
	return &Result{Occurrence: occ, Adherence: entry}, nil
}

// Dismiss pending -> dismissed: registra "skipped", sem mexer no estoque
func (s *Service) Dismiss(ctx context.Context, userID, occurrenceID string) (*Result, error) {
	occ, err := s.owned(ctx, userID, occurrenceID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.store.CompleteOccurrence(opCtx, database.Completion{
		OccurrenceID: occ.ID,
		Status:       models.OccurrenceDismissed,
		At:           now,
		Entry:        adherence.SkippedEntry(occ, now),
	})
	if err != nil {
		return nil, err
	}

	occ.Status = models.OccurrenceDismissed
	occ.DismissedAt = &now

	s.logger.Info("Dose dispensada",
		zap.String("occurrence_id", occ.ID),
		zap.String("user_id", userID),
	)

	s.afterCompletion(ctx, occ, entry)
	return &Result{Occurrence: occ, Adherence: entry}, nil
}

// afterCompletion efeitos secundários, todos best-effort
func (s *Service) afterCompletion(ctx context.Context, occ *models.PendingOccurrence, entry *models.AdherenceLogEntry) {
	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, s.timeout)
		if err := s.publisher.PublishAdherence(pubCtx, entry); err != nil {
			s.logger.Warn("Falha ao publicar evento de adesão", zap.String("occurrence_id", occ.ID), zap.Error(err))
		}
		cancel()
	}

	s.notifyCreator(ctx, occ, entry)
}

// notifyCreator avisa quem criou o lembrete quando não foi o próprio usuário
func (s *Service) notifyCreator(ctx context.Context, occ *models.PendingOccurrence, entry *models.AdherenceLogEntry) {
	if s.notifier == nil {
		return
	}

	reminder, err := s.store.GetReminder(ctx, occ.ReminderID)
	if err != nil {
		s.logger.Warn("Lembrete da ocorrência não encontrado", zap.String("reminder_id", occ.ReminderID), zap.Error(err))
		return
	}
	creator := reminder.CreatedBy
	if creator == "" || creator == occ.UserID {
		return
	}

	name := notification.DisplayName(ctx, s.store, creator, occ.UserID)
	at := s.resolver.Wall(*entry.ActionTime, clock.TimeLayout)

	var kind, title, body string
	switch entry.Status {
	case models.AdherenceSkipped:
		kind = models.NotificationMedicationDismissed
		title = fmt.Sprintf("%s dispensado", occ.MedicineName)
		body = fmt.Sprintf("%s dispensou %s às %s.", name, occ.MedicineName, at)
	case models.AdherenceTakenLate:
		kind = models.NotificationMedicationTaken
		title = fmt.Sprintf("✅ %s tomado", occ.MedicineName)
		body = fmt.Sprintf("%s tomou %s às %s, com %d minutos de atraso.", name, occ.MedicineName, at, *entry.DelayMinutes)
	default:
		kind = models.NotificationMedicationTaken
		title = fmt.Sprintf("✅ %s tomado", occ.MedicineName)
		body = fmt.Sprintf("%s tomou %s às %s.", name, occ.MedicineName, at)
	}

	meta := map[string]string{
		"occurrenceId": occ.ID,
		"reminderId":   occ.ReminderID,
		"medicineId":   occ.MedicineID,
		"userId":       occ.UserID,
		"status":       string(entry.Status),
	}
	if _, err := s.notifier.Create(ctx, creator, kind, title, body, meta); err != nil {
		s.logger.Warn("⚠️ Falha ao notificar criador", zap.String("created_by", creator), zap.Error(err))
	}
}

// Refill soma amount (> 0) ao estoque de um medicamento do usuário
func (s *Service) Refill(ctx context.Context, userID, medicineID string, amount int) (*models.Medicine, error) {
	if amount <= 0 {
		return nil, apperr.InvalidInput("refill amount must be positive, got %d", amount)
	}

	medicine, err := s.store.GetMedicine(ctx, medicineID)
	if err != nil {
		return nil, err
	}
	if medicine.OwnerID != userID {
		return nil, apperr.Forbidden("medicine %s belongs to another user", medicineID)
	}

	updated, err := s.store.RefillMedicine(ctx, medicineID, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("💊 Estoque reposto",
		zap.String("medicine_id", medicineID),
		zap.Int("amount", amount),
		zap.Int("quantity", updated.Quantity),
	)
	return updated, nil
}

// AdherenceReport entradas do log e o resumo do período
type AdherenceReport struct {
	Entries []*models.AdherenceLogEntry `json:"entries"`
	Summary adherence.Summary           `json:"summary"`
}

// Adherence log do usuário em [from, to] (zero = sem limite)
func (s *Service) Adherence(ctx context.Context, userID string, from, to time.Time) (*AdherenceReport, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, apperr.InvalidInput("to must not be before from")
	}

	entries, err := s.store.ListAdherence(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.AdherenceLogEntry{}
	}
	return &AdherenceReport{Entries: entries, Summary: adherence.Summarize(entries)}, nil
}
