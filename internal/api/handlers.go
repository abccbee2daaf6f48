package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"eva-meds/internal/apperr"
	"eva-meds/internal/clock"
	"eva-meds/internal/middleware"
	"eva-meds/internal/reminders"
)

// Pending occurrences

func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	list, err := s.Occurrences.ListPending(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	result, err := s.Occurrences.Confirm(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	result, err := s.Occurrences.Dismiss(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Medicines

type refillRequest struct {
	Amount int `json:"amount"`
}

func (s *Server) refill(w http.ResponseWriter, r *http.Request) {
	var req refillRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	medicine, err := s.Occurrences.Refill(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, medicine)
}

func (s *Server) createMedicine(w http.ResponseWriter, r *http.Request) {
	var in reminders.MedicineInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	medicine, err := s.Reminders.CreateMedicine(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, medicine)
}

func (s *Server) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	if err := s.Reminders.DeleteMedicine(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reminders

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	list, err := s.Reminders.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getReminder(w http.ResponseWriter, r *http.Request) {
	reminder, err := s.Reminders.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (s *Server) createReminder(w http.ResponseWriter, r *http.Request) {
	var in reminders.ReminderInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	reminder, err := s.Reminders.Create(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reminder)
}

func (s *Server) updateReminder(w http.ResponseWriter, r *http.Request) {
	var in reminders.ReminderInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	reminder, err := s.Reminders.Update(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (s *Server) deactivateReminder(w http.ResponseWriter, r *http.Request) {
	reminder, err := s.Reminders.Deactivate(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

// Notifications

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unread := q.Get("unread") == "true" || q.Get("unread") == "1"

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, apperr.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}

	list, err := s.Notifications.List(r.Context(), middleware.UserID(r.Context()), unread, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.Notifications.MarkRead(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Adherence

func (s *Server) adherenceLogs(w http.ResponseWriter, r *http.Request) {
	from, err := parseBound(r.URL.Query().Get("from"), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := parseBound(r.URL.Query().Get("to"), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.Occurrences.Adherence(r.Context(), middleware.UserID(r.Context()), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// parseBound aceita RFC3339 ou data "2006-01-02" (UTC).
// Como limite superior, uma data cobre o dia inteiro.
func parseBound(v string, upper bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(clock.DateLayout, v)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("invalid date %q", v)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
