package adherence

import (
	"time"

	"eva-meds/pkg/models"
)

// OnTimeWindow atraso máximo para uma confirmação contar como "no horário"
const OnTimeWindow = 60 * time.Minute

// Classify classifica uma confirmação pelo atraso em relação ao horário agendado.
// Atrasos até OnTimeWindow (inclusive) e confirmações antecipadas contam como no horário.
// delayMinutes só é devolvido quando atrasado, truncado em minutos inteiros.
func Classify(scheduled, confirmedAt time.Time) (models.AdherenceStatus, *int) {
	delay := confirmedAt.Sub(scheduled)
	if delay <= OnTimeWindow {
		return models.AdherenceTakenOnTime, nil
	}

	minutes := int(delay / time.Minute)
	return models.AdherenceTakenLate, &minutes
}

// ConfirmedEntry monta a entrada do log para uma confirmação
func ConfirmedEntry(occ *models.PendingOccurrence, confirmedAt time.Time) *models.AdherenceLogEntry {
	status, delay := Classify(occ.ScheduledTime, confirmedAt)
	at := confirmedAt
	return &models.AdherenceLogEntry{
		UserID:        occ.UserID,
		MedicineID:    occ.MedicineID,
		ReminderID:    occ.ReminderID,
		ScheduledTime: occ.ScheduledTime,
		Status:        status,
		ActionTime:    &at,
		DelayMinutes:  delay,
		UpdatedAt:     confirmedAt,
	}
}

// SkippedEntry monta a entrada do log para uma dispensa
func SkippedEntry(occ *models.PendingOccurrence, dismissedAt time.Time) *models.AdherenceLogEntry {
	at := dismissedAt
	return &models.AdherenceLogEntry{
		UserID:        occ.UserID,
		MedicineID:    occ.MedicineID,
		ReminderID:    occ.ReminderID,
		ScheduledTime: occ.ScheduledTime,
		Status:        models.AdherenceSkipped,
		ActionTime:    &at,
		UpdatedAt:     dismissedAt,
	}
}

// Summary agregado simples do log de um usuário
type Summary struct {
	Total         int     `json:"total"`
	TakenOnTime   int     `json:"takenOnTime"`
	TakenLate     int     `json:"takenLate"`
	Skipped       int     `json:"skipped"`
	Pending       int     `json:"pending"`
	AdherenceRate float64 `json:"adherenceRate"`
}

// Summarize conta as entradas por status. A taxa de adesão é tomadas / (tomadas + puladas);
// entradas pendentes não entram no denominador.
func Summarize(entries []*models.AdherenceLogEntry) Summary {
	var s Summary
	for _, e := range entries {
		s.Total++
		switch e.Status {
		case models.AdherenceTakenOnTime:
			s.TakenOnTime++
		case models.AdherenceTakenLate:
			s.TakenLate++
		case models.AdherenceSkipped:
			s.Skipped++
		default:
			s.Pending++
		}
	}

	taken := s.TakenOnTime + s.TakenLate
	if decided := taken + s.Skipped; decided > 0 {
		s.AdherenceRate = float64(taken) / float64(decided)
	}
	return s
}
