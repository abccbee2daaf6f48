package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"eva-meds/internal/workers"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	storage := "memory"

	if s.DB != nil {
		storage = "postgres"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.Ping(ctx); err != nil {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, httpStatus, map[string]string{
		"status":  status,
		"storage": storage,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if s.Realtime != nil {
		clients = s.Realtime.Clients()
	}

	var jobs workers.WorkerStats
	if s.Jobs != nil {
		jobs = s.Jobs.GetStats()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":          formatDuration(time.Since(s.StartedAt)),
		"realtimeClients": clients,
		"workers":         jobs,
		"integrations":    s.Integrations,
		"timestamp":       time.Now().Unix(),
	})
}

func (s *Server) logs(w http.ResponseWriter, r *http.Request) {
	entries := []string{}
	if s.Logs != nil {
		entries = s.Logs.Entries()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": entries})
}

// runWorker dispara o worker pelo gerenciador, serializado com as execuções do cron
func (s *Server) runWorker(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.Jobs.RunNow(r.Context(), name)
		if errors.Is(err, workers.ErrUnknownWorker) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
			return
		}

		if err != nil {
			s.writeError(w, r, err)
			return
		}

		var status *workers.WorkerStatus
		for _, ws := range s.Jobs.GetStats().Workers {
			if ws.Name == name {
				ws := ws
				status = &ws
				break
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"worker": name,
			"status": "completed",
			"stats":  status,
		})
	}
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
