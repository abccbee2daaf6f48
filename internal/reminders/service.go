// Package reminders é o CRUD que produz as regras lidas pelo tick:
// lembretes e medicamentos, com sincronização best-effort do calendário.
package reminders

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"eva-meds/internal/apperr"
	"eva-meds/internal/calendar"
	"eva-meds/internal/clock"
	"eva-meds/pkg/models"
)

type Store interface {
	CreateReminder(ctx context.Context, r *models.Reminder) error
	UpdateReminder(ctx context.Context, r *models.Reminder) error
	GetReminder(ctx context.Context, id string) (*models.Reminder, error)
	ListRemindersForUser(ctx context.Context, userID string) ([]*models.Reminder, error)
	SetCalendarEventIDs(ctx context.Context, id string, eventIDs []string) error
	DeactivateRemindersForMedicine(ctx context.Context, medicineID string) ([]*models.Reminder, error)

	CreateMedicine(ctx context.Context, m *models.Medicine) error
	GetMedicine(ctx context.Context, id string) (*models.Medicine, error)
	DeleteMedicine(ctx context.Context, id string) error
}

type Options struct {
	Store           Store
	Calendar        calendar.Sync
	Resolver        clock.Resolver
	DefaultTimezone string
	Logger          *zap.Logger
	Timeout         time.Duration
	Now             func() time.Time
}

type Service struct {
	store           Store
	calendar        calendar.Sync
	resolver        clock.Resolver
	defaultTimezone string
	logger          *zap.Logger
	timeout         time.Duration
	now             func() time.Time
}

func NewService(o Options) *Service {
	if o.Calendar == nil {
		o.Calendar = calendar.NoopSync{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	return &Service{
		store:           o.Store,
		calendar:        o.Calendar,
		resolver:        o.Resolver,
		defaultTimezone: o.DefaultTimezone,
		logger:          o.Logger,
		timeout:         o.Timeout,
		now:             o.Now,
	}
}

// ChannelsInput campos ausentes mantêm o valor atual (ou o padrão na criação)
type ChannelsInput struct {
	InApp    *bool `json:"inApp"`
	Email    *bool `json:"email"`
	SMS      *bool `json:"sms"`
	WhatsApp *bool `json:"whatsapp"`
}

func (c *ChannelsInput) apply(dst *models.Channels) {
	if c == nil {
		return
	}
	if c.InApp != nil {
		dst.InApp = *c.InApp
	}
	if c.Email != nil {
		dst.Email = *c.Email
	}
	if c.SMS != nil {
		dst.SMS = *c.SMS
	}
	if c.WhatsApp != nil {
		dst.WhatsApp = *c.WhatsApp
	}
}

// ReminderInput corpo de criação/edição
type ReminderInput struct {
	TargetUserID string         `json:"targetUser"`
	MedicineID   string         `json:"medicineRef"`
	Times        []string       `json:"times"`
	DaysOfWeek   []string       `json:"daysOfWeek"`
	StartDate    string         `json:"startDate"`
	EndDate      *string        `json:"endDate"`
	Timezone     string         `json:"timezone"`
	Channels     *ChannelsInput `json:"channels"`
	Watchers     []string       `json:"watchers"`
	Active       *bool          `json:"active"`
}

// Create valida e grava um lembrete novo; createdBy é sempre quem chama
func (s *Service) Create(ctx context.Context, callerID string, in ReminderInput) (*models.Reminder, error) {
	if in.MedicineID == "" {
		return nil, apperr.InvalidInput("medicineRef is required")
	}
	medicine, err := s.store.GetMedicine(ctx, in.MedicineID)
	if err != nil {
		return nil, err
	}

	r := &models.Reminder{
		TargetUserID: in.TargetUserID,
		CreatedBy:    callerID,
		MedicineID:   medicine.ID,
		MedicineName: medicine.Name,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Timezone:     in.Timezone,
		Channels:     models.Channels{InApp: true},
		Active:       true,
	}
	if r.TargetUserID == "" {
		r.TargetUserID = callerID
	}
	if r.StartDate == "" {
		r.StartDate = s.resolver.Resolve(s.now()).DateKey
	}
	if r.Timezone == "" {
		r.Timezone = s.defaultTimezone
	}
	in.Channels.apply(&r.Channels)
	if in.Active != nil {
		r.Active = *in.Active
	}

	if err := normalize(r, in.Times, in.DaysOfWeek, in.Watchers); err != nil {
		return nil, err
	}

	if err := s.store.CreateReminder(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("📅 Lembrete criado",
		zap.String("reminder_id", r.ID),
		zap.String("target_user", r.TargetUserID),
		zap.Strings("times", r.Times),
	)

	if r.Active {
		ids, err := s.withTimeout(ctx, func(ctx context.Context) ([]string, error) {
			return s.calendar.CreateEvents(ctx, r)
		})
		s.storeEventIDs(ctx, r, ids, err)
	}
	return r, nil
}

// Update só o criador ou o alvo podem editar. Campos vazios mantêm o valor atual.
func (s *Service) Update(ctx context.Context, callerID, id string, in ReminderInput) (*models.Reminder, error) {
	r, err := s.editable(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	times, days, watchers := r.Times, r.DaysOfWeek, r.Watchers
	if in.Times != nil {
		times = in.Times
	}
	if in.DaysOfWeek != nil {
		days = in.DaysOfWeek
	}
	if in.Watchers != nil {
		watchers = in.Watchers
	}
	if in.StartDate != "" {
		r.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		if *in.EndDate == "" {
			r.EndDate = nil
		} else {
			r.EndDate = in.EndDate
		}
	}
	if in.Timezone != "" {
		r.Timezone = in.Timezone
	}
	if in.Active != nil {
		r.Active = *in.Active
	}
	in.Channels.apply(&r.Channels)

	if err := normalize(r, times, days, watchers); err != nil {
		return nil, err
	}

	if err := s.store.UpdateReminder(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("📅 Lembrete atualizado", zap.String("reminder_id", r.ID))

	if r.Active {
		ids, err := s.withTimeout(ctx, func(ctx context.Context) ([]string, error) {
			if len(r.CalendarEventIDs) == 0 {
				return s.calendar.CreateEvents(ctx, r)
			}
			return s.calendar.UpdateEvents(ctx, r)
		})
		s.storeEventIDs(ctx, r, ids, err)
	} else {
		s.removeEvents(ctx, r)
	}
	return r, nil
}

// Deactivate desliga o lembrete; ele nunca mais é avaliado pelo tick
func (s *Service) Deactivate(ctx context.Context, callerID, id string) (*models.Reminder, error) {
	r, err := s.editable(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	if r.Active {
		r.Active = false
		if err := s.store.UpdateReminder(ctx, r); err != nil {
			return nil, err
		}
		s.logger.Info("Lembrete desativado", zap.String("reminder_id", r.ID))
	}

	s.removeEvents(ctx, r)
	return r, nil
}

// List lembretes em que o usuário é alvo, criador ou observador
func (s *Service) List(ctx context.Context, callerID string) ([]*models.Reminder, error) {
	list, err := s.store.ListRemindersForUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Reminder{}
	}
	return list, nil
}

// Get visível para alvo, criador e observadores
func (s *Service) Get(ctx context.Context, callerID, id string) (*models.Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.TargetUserID != callerID && r.CreatedBy != callerID && !containsString(r.Watchers, callerID) {
		return nil, apperr.Forbidden("reminder %s", id)
	}
	return r, nil
}

func (s *Service) editable(ctx context.Context, callerID, id string) (*models.Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.CreatedBy != callerID && r.TargetUserID != callerID {
		return nil, apperr.Forbidden("reminder %s can only be edited by its creator or target", id)
	}
	return r, nil
}

// MedicineInput corpo de criação de medicamento
type MedicineInput struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Quantity int    `json:"quantity"`
}

func (s *Service) CreateMedicine(ctx context.Context, callerID string, in MedicineInput) (*models.Medicine, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.InvalidInput("medicine name is required")
	}
	if in.Quantity < 0 {
		return nil, apperr.InvalidInput("quantity must not be negative")
	}

	m := &models.Medicine{
		OwnerID:  callerID,
		Name:     name,
		Dosage:   strings.TrimSpace(in.Dosage),
		Quantity: in.Quantity,
	}
	if err := s.store.CreateMedicine(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("💊 Medicamento cadastrado", zap.String("medicine_id", m.ID), zap.String("owner", callerID))
	return m, nil
}

// DeleteMedicine desativa todos os lembretes do medicamento e o remove
func (s *Service) DeleteMedicine(ctx context.Context, callerID, id string) error {
	m, err := s.store.GetMedicine(ctx, id)
	if err != nil {
		return err
	}
	if m.OwnerID != callerID {
		return apperr.Forbidden("medicine %s belongs to another user", id)
	}

	affected, err := s.store.DeactivateRemindersForMedicine(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMedicine(ctx, id); err != nil {
		return err
	}

	for _, r := range affected {
		s.removeEvents(ctx, r)
	}

	s.logger.Info("Medicamento removido",
		zap.String("medicine_id", id),
		zap.Int("reminders_deactivated", len(affected)),
	)
	return nil
}

func (s *Service) withTimeout(ctx context.Context, fn func(ctx context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func (s *Service) storeEventIDs(ctx context.Context, r *models.Reminder, ids []string, syncErr error) {
	if syncErr != nil {
		s.logger.Warn("📅 Falha na sincronização do calendário", zap.String("reminder_id", r.ID), zap.Error(syncErr))
	}
	if ids == nil || equalStrings(ids, r.CalendarEventIDs) {
		return
	}

	r.CalendarEventIDs = ids
	if err := s.store.SetCalendarEventIDs(ctx, r.ID, ids); err != nil {
		s.logger.Warn("Falha ao gravar ids do calendário", zap.String("reminder_id", r.ID), zap.Error(err))
	}
}

func (s *Service) removeEvents(ctx context.Context, r *models.Reminder) {
	if len(r.CalendarEventIDs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.calendar.DeleteEvents(ctx, r); err != nil {
		s.logger.Warn("📅 Falha ao remover eventos do calendário", zap.String("reminder_id", r.ID), zap.Error(err))
		return
	}

	r.CalendarEventIDs = nil
	if err := s.store.SetCalendarEventIDs(ctx, r.ID, []string{}); err != nil {
		s.logger.Warn("Falha ao limpar ids do calendário", zap.String("reminder_id", r.ID), zap.Error(err))
	}
}

// normalize valida e canoniza horários, dias, datas e observadores
func normalize(r *models.Reminder, times, days, watchers []string) error {
	if len(times) == 0 {
		return apperr.InvalidInput("at least one time is required")
	}

	seen := make(map[string]bool, len(times))
	r.Times = r.Times[:0:0]
	for _, t := range times {
		hhmm, err := clock.ParseHHMM(t)
		if err != nil {
			return apperr.InvalidInput("%v", err)
		}
		if !seen[hhmm] {
			seen[hhmm] = true
			r.Times = append(r.Times, hhmm)
		}
	}
	sort.Strings(r.Times)

	seen = make(map[string]bool, len(days))
	r.DaysOfWeek = []string{}
	for _, d := range days {
		label, err := clock.NormalizeWeekday(d)
		if err != nil {
			return apperr.InvalidInput("%v", err)
		}
		if !seen[label] {
			seen[label] = true
			r.DaysOfWeek = append(r.DaysOfWeek, label)
		}
	}

	start, err := clock.ParseDate(r.StartDate)
	if err != nil {
		return apperr.InvalidInput("%v", err)
	}
	r.StartDate = start

	if r.EndDate != nil {
		end, err := clock.ParseDate(*r.EndDate)
		if err != nil {
			return apperr.InvalidInput("%v", err)
		}
		if end < start {
			return apperr.InvalidInput("endDate %s is before startDate %s", end, start)
		}
		r.EndDate = &end
	}

	seen = map[string]bool{}
	r.Watchers = []string{}
	for _, w := range watchers {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		r.Watchers = append(r.Watchers, w)
	}

	return nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
