package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"eva-meds/internal/analytics"
	"eva-meds/internal/api"
	"eva-meds/internal/calendar"
	"eva-meds/internal/clock"
	"eva-meds/internal/config"
	"eva-meds/internal/database"
	"eva-meds/internal/email"
	"eva-meds/internal/lock"
	"eva-meds/internal/logger"
	"eva-meds/internal/notification"
	"eva-meds/internal/occurrence"
	"eva-meds/internal/push"
	"eva-meds/internal/realtime"
	"eva-meds/internal/reminders"
	"eva-meds/internal/scheduler"
	"eva-meds/internal/workers"
)

func main() {
	startTime := time.Now()

	cfg, dotenv := config.Load()

	base, err := logger.New(cfg.LogLevel, cfg.LogFormat, "eva-meds")
	if err != nil {
		panic(err)
	}
	recent := logger.NewRecent(logger.DefaultRecentSize)
	log := recent.Attach(base)
	defer log.Sync()

	log.Info("🚀 Iniciando EVA Lembretes de Medicamentos...",
		zap.String("environment", cfg.Environment),
		zap.Bool("dotenv", dotenv),
	)

	warnings, err := cfg.Validate()
	if err != nil {
		log.Fatal("❌ Erro config", zap.Error(err))
	}
	for _, w := range warnings {
		log.Warn("⚠️ " + w)
	}

	ctx := context.Background()
	timeout := cfg.OperationTimeout()
	resolver := clock.NewResolver(cfg.ReferenceUTCOffsetMinutes)

	// Storage
	var (
		store database.Store
		db    *database.DB
	)
	if cfg.DatabaseURL != "" {
		db, err = database.NewDB(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("❌ Erro DB", zap.Error(err))
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			log.Fatal("❌ Erro nas migrations", zap.Error(err))
		}
		store = db
		log.Info("✅ PostgreSQL conectado")
	} else {
		store = database.NewMemoryStore()
		log.Warn("⚠️ DATABASE_URL vazio, usando store em memória")
	}

	integrations := map[string]bool{}

	// Push
	var pusher notification.Pusher
	if cfg.FirebaseCredentialsPath != "" {
		fcm, err := push.NewFirebaseService(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Warn("⚠️ Aviso: Falha ao carregar Firebase", zap.Error(err))
		} else {
			pusher = fcm
			integrations["firebase"] = true
			log.Info("✅ Firebase inicializado com sucesso")
		}
	}

	// Email
	var mailer scheduler.Mailer
	if emailService, err := email.NewEmailService(cfg); err != nil {
		log.Info("Email desabilitado", zap.Error(err))
	} else {
		mailer = emailService
		integrations["email"] = true
		log.Info("✅ Email configurado", zap.String("host", cfg.SMTPHost))
	}

	// Trava por minuto (várias réplicas)
	var locker scheduler.Locker
	if cfg.EnableTickLock {
		rdb := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err := lock.Ping(pingCtx, rdb)
		cancel()
		if err != nil {
			log.Fatal("❌ Erro Redis", zap.Error(err))
		}
		locker = lock.NewMinuteLock(rdb, "eva-meds", 2*time.Minute)
		integrations["redis_lock"] = true
		log.Info("✅ Redis conectado, trava do tick habilitada")
	}

	// Analytics
	var publisher interface {
		occurrence.Publisher
		Close() error
	} = analytics.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := analytics.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, log)
		if err != nil {
			log.Warn("⚠️ RabbitMQ indisponível, eventos de adesão desabilitados", zap.Error(err))
		} else {
			publisher = amqpPublisher
			integrations["amqp"] = true
			log.Info("✅ RabbitMQ conectado", zap.String("exchange", cfg.AMQPExchange))
		}
	}
	defer publisher.Close()

	// Calendário
	var calendarSync calendar.Sync = calendar.NoopSync{}
	if cfg.CalendarCredentialsPath != "" {
		gc, err := calendar.NewGoogleCalendar(ctx, cfg.CalendarCredentialsPath, cfg.CalendarID, log)
		if err != nil {
			log.Warn("⚠️ Google Calendar indisponível", zap.Error(err))
		} else {
			calendarSync = gc
			integrations["calendar"] = true
			log.Info("✅ Google Calendar configurado")
		}
	}

	// Notificações
	hub := realtime.NewHub(log)
	notifications := notification.NewService(store, pusher, hub, log, timeout)

	// Serviços
	occurrences := occurrence.NewService(occurrence.Options{
		Store:     store,
		Notifier:  notifications,
		Publisher: publisher,
		Resolver:  resolver,
		Logger:    log,
		Timeout:   timeout,
	})
	reminderService := reminders.NewService(reminders.Options{
		Store:           store,
		Calendar:        calendarSync,
		Resolver:        resolver,
		DefaultTimezone: cfg.ReferenceTimezone,
		Logger:          log,
		Timeout:         timeout,
	})

	// Workers
	deps := scheduler.Deps{
		Store:            store,
		Notifier:         notifications,
		Mailer:           mailer,
		Lock:             locker,
		Resolver:         resolver,
		Logger:           log,
		OperationTimeout: timeout,
		Concurrency:      cfg.FanoutConcurrency,
	}

	wm := workers.NewWorkerManager(log, cfg.WorkerRunTimeout())
	for _, w := range []workers.Worker{
		scheduler.NewReminderTick(deps, cfg.TickSchedule),
		scheduler.NewGraceEscalator(deps, cfg.EscalationSchedule),
	} {
		if err := wm.RegisterWorker(w); err != nil {
			log.Fatal("❌ Erro ao registrar worker", zap.Error(err))
		}
	}
	wm.Start()

	// HTTP
	server := &api.Server{
		Occurrences:    occurrences,
		Reminders:      reminderService,
		Notifications:  notifications,
		Jobs:           wm,
		Realtime:       hub,
		Logs:           recent,
		Logger:         log,
		TickWorker:     scheduler.TickWorkerName,
		EscalateWorker: scheduler.EscalatorWorkerName,
		Integrations:   integrations,
		StartedAt:      startTime,
	}
	if db != nil {
		server.DB = db
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("✅ Servidor pronto", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Erro no servidor HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("🛑 Encerrando...", zap.String("signal", sig.String()))

	// cron primeiro: espera o tick/escalonador em andamento
	wm.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Erro ao encerrar servidor HTTP", zap.Error(err))
	}
	hub.Close()

	log.Info("👋 Servidor encerrado")
}
