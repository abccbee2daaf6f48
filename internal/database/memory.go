package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eva-meds/internal/apperr"
	"eva-meds/pkg/models"
)

type occurrenceKey struct {
	reminderID string
	userID     string
	scheduled  int64
}

type adherenceKey struct {
	userID     string
	medicineID string
	reminderID string
	scheduled  int64
}

// MemoryStore implementação em memória com a mesma semântica do DB.
// Usada em desenvolvimento sem DATABASE_URL e nos testes dos serviços.
type MemoryStore struct {
	mu sync.Mutex

	users         map[string]*models.User
	familyLabels  map[[2]string]string
	medicines     map[string]*models.Medicine
	reminders     map[string]*models.Reminder
	occurrences   map[string]*models.PendingOccurrence
	occurrenceIdx map[occurrenceKey]string
	adherence     map[adherenceKey]*models.AdherenceLogEntry
	notifications []*models.Notification

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*models.User),
		familyLabels:  make(map[[2]string]string),
		medicines:     make(map[string]*models.Medicine),
		reminders:     make(map[string]*models.Reminder),
		occurrences:   make(map[string]*models.PendingOccurrence),
		occurrenceIdx: make(map[occurrenceKey]string),
		adherence:     make(map[adherenceKey]*models.AdherenceLogEntry),
		now:           time.Now,
	}
}

// PutUser cadastra ou substitui um usuário
func (s *MemoryStore) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// PutFamilyLink registra como observerID chama memberID
func (s *MemoryStore) PutFamilyLink(observerID, memberID, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.familyLabels[[2]string{observerID, memberID}] = label
}

// Users

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s", id)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) FamilyLabel(_ context.Context, observerID, memberID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label, ok := s.familyLabels[[2]string{observerID, memberID}]
	return label, ok, nil
}

func (s *MemoryStore) ClearDeviceToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.DeviceToken = ""
	}
	return nil
}

// Medicines

func (s *MemoryStore) CreateMedicine(_ context.Context, m *models.Medicine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := s.now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	cp := *m
	s.medicines[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMedicine(_ context.Context, id string) (*models.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.medicines[id]
	if !ok {
		return nil, apperr.NotFound("medicine %s", id)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) DeleteMedicine(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.medicines[id]; !ok {
		return apperr.NotFound("medicine %s", id)
	}
	delete(s.medicines, id)
	return nil
}

func (s *MemoryStore) RefillMedicine(_ context.Context, id string, amount int) (*models.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.medicines[id]
	if !ok {
		return nil, apperr.NotFound("medicine %s", id)
	}
	m.Quantity += amount
	m.UpdatedAt = s.now().UTC()
	cp := *m
	return &cp, nil
}

// Reminders

func copyReminder(r *models.Reminder) *models.Reminder {
	cp := *r
	cp.Times = append([]string(nil), r.Times...)
	cp.DaysOfWeek = append([]string(nil), r.DaysOfWeek...)
	cp.Watchers = append([]string(nil), r.Watchers...)
	cp.CalendarEventIDs = append([]string(nil), r.CalendarEventIDs...)
	if r.EndDate != nil {
		end := *r.EndDate
		cp.EndDate = &end
	}
	if r.LastTriggeredAt != nil {
		t := *r.LastTriggeredAt
		cp.LastTriggeredAt = &t
	}
	return &cp
}

func sortReminders(list []*models.Reminder) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (s *MemoryStore) DueReminders(_ context.Context, dateKey, hhmm, weekday string) ([]*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*models.Reminder
	for _, r := range s.reminders {
		if !r.Active || !contains(r.Times, hhmm) {
			continue
		}
		// datas "2006-01-02" comparam corretamente como texto
		if r.StartDate > dateKey || (r.EndDate != nil && *r.EndDate < dateKey) {
			continue
		}
		if len(r.DaysOfWeek) > 0 && !contains(r.DaysOfWeek, weekday) {
			continue
		}
		due = append(due, copyReminder(r))
	}
	sortReminders(due)
	return due, nil
}

func (s *MemoryStore) GetReminder(_ context.Context, id string) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return nil, apperr.NotFound("reminder %s", id)
	}
	return copyReminder(r), nil
}

func (s *MemoryStore) ListRemindersForUser(_ context.Context, userID string) ([]*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*models.Reminder
	for _, r := range s.reminders {
		if r.TargetUserID == userID || r.CreatedBy == userID || contains(r.Watchers, userID) {
			list = append(list, copyReminder(r))
		}
	}
	sortReminders(list)
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

func (s *MemoryStore) CreateReminder(_ context.Context, r *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := s.now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	s.reminders[r.ID] = copyReminder(r)
	return nil
}

func (s *MemoryStore) UpdateReminder(_ context.Context, r *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.reminders[r.ID]
	if !ok {
		return apperr.NotFound("reminder %s", r.ID)
	}
	r.UpdatedAt = s.now().UTC()
	updated := copyReminder(r)
	updated.LastTriggeredAt = existing.LastTriggeredAt
	updated.CreatedAt = existing.CreatedAt
	updated.TargetUserID = existing.TargetUserID
	updated.CreatedBy = existing.CreatedBy
	updated.MedicineID = existing.MedicineID
	s.reminders[r.ID] = updated
	return nil
}

func (s *MemoryStore) MarkReminderTriggered(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reminders[id]; ok {
		t := at
		r.LastTriggeredAt = &t
	}
	return nil
}

func (s *MemoryStore) SetCalendarEventIDs(_ context.Context, id string, eventIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reminders[id]; ok {
		r.CalendarEventIDs = append([]string(nil), eventIDs...)
	}
	return nil
}

func (s *MemoryStore) DeactivateRemindersForMedicine(_ context.Context, medicineID string) ([]*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected []*models.Reminder
	for _, r := range s.reminders {
		if r.MedicineID == medicineID && r.Active {
			r.Active = false
			r.UpdatedAt = s.now().UTC()
			affected = append(affected, copyReminder(r))
		}
	}
	sortReminders(affected)
	return affected, nil
}

// Occurrences

func copyOccurrence(o *models.PendingOccurrence) *models.PendingOccurrence {
	cp := *o
	if o.ConfirmedAt != nil {
		t := *o.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	if o.DismissedAt != nil {
		t := *o.DismissedAt
		cp.DismissedAt = &t
	}
	return &cp
}

func (s *MemoryStore) CreateOccurrence(_ context.Context, o *models.PendingOccurrence) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := occurrenceKey{o.ReminderID, o.UserID, o.ScheduledTime.UnixNano()}
	if _, exists := s.occurrenceIdx[key]; exists {
		return false, nil
	}

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Status = models.OccurrencePending
	o.CreatedAt = s.now().UTC()
	s.occurrences[o.ID] = copyOccurrence(o)
	s.occurrenceIdx[key] = o.ID
	return true, nil
}

func (s *MemoryStore) GetOccurrence(_ context.Context, id string) (*models.PendingOccurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.occurrences[id]
	if !ok {
		return nil, apperr.NotFound("occurrence %s", id)
	}
	return copyOccurrence(o), nil
}

func (s *MemoryStore) ListOccurrences(_ context.Context, userID string, status models.OccurrenceStatus) ([]*models.PendingOccurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*models.PendingOccurrence
	for _, o := range s.occurrences {
		if o.UserID == userID && (status == "" || o.Status == status) {
			list = append(list, copyOccurrence(o))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ScheduledTime.After(list[j].ScheduledTime)
	})
	return list, nil
}

func (s *MemoryStore) OverdueOccurrences(_ context.Context, cutoff time.Time, limit int) ([]*models.PendingOccurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*models.PendingOccurrence
	for _, o := range s.occurrences {
		if o.Status == models.OccurrencePending && !o.NotTakenNotified && !o.ScheduledTime.After(cutoff) {
			list = append(list, copyOccurrence(o))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ScheduledTime.Before(list[j].ScheduledTime)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *MemoryStore) MarkNotTakenNotified(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.occurrences[id]
	if !ok || o.Status != models.OccurrencePending || o.NotTakenNotified {
		return false, nil
	}
	o.NotTakenNotified = true
	return true, nil
}

func (s *MemoryStore) CompleteOccurrence(_ context.Context, c Completion) (*models.AdherenceLogEntry, error) {
	if c.Status != models.OccurrenceConfirmed && c.Status != models.OccurrenceDismissed {
		return nil, apperr.InvalidInput("terminal status %q", c.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.occurrences[c.OccurrenceID]
	if !ok || o.Status != models.OccurrencePending {
		return nil, apperr.InvalidState("occurrence %s", c.OccurrenceID)
	}

	var medicine *models.Medicine
	if c.DecrementMedicineID != "" {
		if medicine, ok = s.medicines[c.DecrementMedicineID]; !ok {
			return nil, apperr.NotFound("medicine %s", c.DecrementMedicineID)
		}
	}

	at := c.At
	o.Status = c.Status
	if c.Status == models.OccurrenceConfirmed {
		o.ConfirmedAt = &at
	} else {
		o.DismissedAt = &at
	}

	entry := *c.Entry
	key := adherenceKey{entry.UserID, entry.MedicineID, entry.ReminderID, entry.ScheduledTime.UnixNano()}
	if existing, found := s.adherence[key]; found {
		entry.ID = existing.ID
	} else if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	stored := entry
	s.adherence[key] = &stored

	if medicine != nil && medicine.Quantity > 0 {
		medicine.Quantity--
		medicine.UpdatedAt = at
	}

	return &entry, nil
}

// Adherence

func (s *MemoryStore) ListAdherence(_ context.Context, userID string, from, to time.Time) ([]*models.AdherenceLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*models.AdherenceLogEntry
	for _, e := range s.adherence {
		if e.UserID != userID {
			continue
		}
		if !from.IsZero() && e.ScheduledTime.Before(from) {
			continue
		}
		if !to.IsZero() && e.ScheduledTime.After(to) {
			continue
		}
		cp := *e
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ScheduledTime.After(list[j].ScheduledTime)
	})
	return list, nil
}

// Notifications

func (s *MemoryStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	cp := *n
	s.notifications = append(s.notifications, &cp)
	return nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		cp := *n
		list = append(list, &cp)
		if limit > 0 && len(list) == limit {
			break
		}
	}
	return list, nil
}

func (s *MemoryStore) MarkNotificationRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return apperr.NotFound("notification %s", id)
}
