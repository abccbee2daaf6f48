package models

import "time"

// OccurrenceStatus estados de uma PendingOccurrence
type OccurrenceStatus string

const (
	OccurrencePending   OccurrenceStatus = "pending"
	OccurrenceConfirmed OccurrenceStatus = "confirmed"
	OccurrenceDismissed OccurrenceStatus = "dismissed"
)

// AdherenceStatus classificação gravada no log de adesão
type AdherenceStatus string

const (
	AdherencePending     AdherenceStatus = "pending"
	AdherenceTakenOnTime AdherenceStatus = "taken_on_time"
	AdherenceTakenLate   AdherenceStatus = "taken_late"
	AdherenceSkipped     AdherenceStatus = "skipped"
)

// Tipos de notificação produzidos por este serviço
const (
	NotificationMedicationReminder  = "medication_reminder"
	NotificationMedicationTaken     = "medication_taken"
	NotificationMedicationNotTaken  = "medication_not_taken"
	NotificationMedicationDismissed = "medication_dismissed"
)

// Channels canais de entrega de um lembrete. SMS e WhatsApp são reservados.
type Channels struct {
	InApp    bool `json:"inApp"`
	Email    bool `json:"email"`
	SMS      bool `json:"sms"`
	WhatsApp bool `json:"whatsapp"`
}

// Reminder regra de recorrência de um medicamento.
// StartDate/EndDate usam o formato "2006-01-02" no fuso de referência.
type Reminder struct {
	ID               string     `json:"id"`
	TargetUserID     string     `json:"targetUser"`
	CreatedBy        string     `json:"createdBy"`
	MedicineID       string     `json:"medicineRef"`
	MedicineName     string     `json:"medicineName"`
	Times            []string   `json:"times"`
	DaysOfWeek       []string   `json:"daysOfWeek"`
	StartDate        string     `json:"startDate"`
	EndDate          *string    `json:"endDate"`
	Timezone         string     `json:"timezone"`
	Channels         Channels   `json:"channels"`
	Watchers         []string   `json:"watchers"`
	Active           bool       `json:"active"`
	LastTriggeredAt  *time.Time `json:"lastTriggeredAt,omitempty"`
	CalendarEventIDs []string   `json:"calendarEventIds,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Recipients devolve o alvo seguido dos observadores, sem repetições.
func (r *Reminder) Recipients() []string {
	seen := make(map[string]bool, len(r.Watchers)+1)
	recipients := make([]string, 0, len(r.Watchers)+1)

	for _, id := range append([]string{r.TargetUserID}, r.Watchers...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}

	return recipients
}

// PendingOccurrence um disparo de um lembrete para um destinatário
type PendingOccurrence struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user"`
	ReminderID       string           `json:"reminder"`
	MedicineID       string           `json:"medicine"`
	MedicineName     string           `json:"medicineName"`
	ScheduledTime    time.Time        `json:"scheduledTime"`
	Status           OccurrenceStatus `json:"status"`
	ConfirmedAt      *time.Time       `json:"confirmedAt,omitempty"`
	DismissedAt      *time.Time       `json:"dismissedAt,omitempty"`
	NotTakenNotified bool             `json:"notTakenNotified"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// AdherenceLogEntry resultado durável de um (user, medicine, reminder, scheduledTime)
type AdherenceLogEntry struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user"`
	MedicineID    string          `json:"medicine"`
	ReminderID    string          `json:"reminder"`
	ScheduledTime time.Time       `json:"scheduledTime"`
	Status        AdherenceStatus `json:"status"`
	ActionTime    *time.Time      `json:"actionTime,omitempty"`
	DelayMinutes  *int            `json:"delayMinutes,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Notification notificação in-app endereçada a um único usuário
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Meta      map[string]string `json:"meta,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Medicine item do estoque de medicamentos
type Medicine struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage,omitempty"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User dados de contato usados na entrega
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	DeviceToken string `json:"-"`
}
