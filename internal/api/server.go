// Package api expõe as operações do serviço por HTTP (gorilla/mux).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"eva-meds/internal/middleware"
	"eva-meds/internal/occurrence"
	"eva-meds/internal/reminders"
	"eva-meds/internal/workers"
	"eva-meds/pkg/models"
)

type Occurrences interface {
	ListPending(ctx context.Context, userID string) ([]*models.PendingOccurrence, error)
	Confirm(ctx context.Context, userID, occurrenceID string) (*occurrence.Result, error)
	Dismiss(ctx context.Context, userID, occurrenceID string) (*occurrence.Result, error)
	Refill(ctx context.Context, userID, medicineID string, amount int) (*models.Medicine, error)
	Adherence(ctx context.Context, userID string, from, to time.Time) (*occurrence.AdherenceReport, error)
}

type Reminders interface {
	Create(ctx context.Context, callerID string, in reminders.ReminderInput) (*models.Reminder, error)
	Update(ctx context.Context, callerID, id string, in reminders.ReminderInput) (*models.Reminder, error)
	Deactivate(ctx context.Context, callerID, id string) (*models.Reminder, error)
	List(ctx context.Context, callerID string) ([]*models.Reminder, error)
	Get(ctx context.Context, callerID, id string) (*models.Reminder, error)
	CreateMedicine(ctx context.Context, callerID string, in reminders.MedicineInput) (*models.Medicine, error)
	DeleteMedicine(ctx context.Context, callerID, id string) error
}

type Notifications interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// Jobs gatilhos manuais dos workers agendados
type Jobs interface {
	RunNow(ctx context.Context, name string) error
	GetStats() workers.WorkerStats
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Realtime conexões websocket de notificações
type Realtime interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	Clients() int
}

type LogSource interface {
	Entries() []string
}

type Server struct {
	Occurrences   Occurrences
	Reminders     Reminders
	Notifications Notifications
	Jobs          Jobs
	// DB nil quando o store em memória está em uso
	DB       Pinger
	Realtime Realtime
	Logs     LogSource
	Logger   *zap.Logger

	// nomes dos workers disparados pelas rotas internas
	TickWorker     string
	EscalateWorker string

	// Firebase/SMTP/calendário/AMQP configurados, exibidos em /api/stats
	Integrations map[string]bool

	StartedAt time.Time
}

// Router monta todas as rotas
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	if s.Realtime != nil {
		router.HandleFunc("/ws/notifications", s.Realtime.HandleWebSocket)
	}

	ops := router.PathPrefix("/api").Subrouter()
	ops.HandleFunc("/health", s.health).Methods(http.MethodGet)
	ops.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	ops.HandleFunc("/logs", s.logs).Methods(http.MethodGet)

	internal := router.PathPrefix("/internal/scheduler").Subrouter()
	internal.HandleFunc("/tick", s.runWorker(s.TickWorker)).Methods(http.MethodPost)
	internal.HandleFunc("/escalate", s.runWorker(s.EscalateWorker)).Methods(http.MethodPost)

	authed := router.NewRoute().Subrouter()
	authed.Use(middleware.Identity(s.Logger))

	authed.HandleFunc("/pending-reminders", s.listPending).Methods(http.MethodGet)
	authed.HandleFunc("/pending-reminders/{id}/confirm", s.confirm).Methods(http.MethodPost)
	authed.HandleFunc("/pending-reminders/{id}/dismiss", s.dismiss).Methods(http.MethodPost)

	authed.HandleFunc("/medicines", s.createMedicine).Methods(http.MethodPost)
	authed.HandleFunc("/medicines/{id}", s.deleteMedicine).Methods(http.MethodDelete)
	authed.HandleFunc("/medicines/{id}/refill", s.refill).Methods(http.MethodPost)

	authed.HandleFunc("/reminders", s.listReminders).Methods(http.MethodGet)
	authed.HandleFunc("/reminders", s.createReminder).Methods(http.MethodPost)
	authed.HandleFunc("/reminders/{id}", s.getReminder).Methods(http.MethodGet)
	authed.HandleFunc("/reminders/{id}", s.updateReminder).Methods(http.MethodPut)
	authed.HandleFunc("/reminders/{id}", s.deactivateReminder).Methods(http.MethodDelete)

	authed.HandleFunc("/notifications", s.listNotifications).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/{id}/read", s.markRead).Methods(http.MethodPost)

	authed.HandleFunc("/adherence-logs", s.adherenceLogs).Methods(http.MethodGet)

	return router
}

// Handler router com CORS e log de requisições
func (s *Server) Handler() http.Handler {
	return middleware.CORS(middleware.RequestLog(s.Logger)(s.Router()))
}
