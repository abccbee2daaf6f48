package workers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrUnknownWorker worker não registrado
var ErrUnknownWorker = errors.New("unknown worker")

// Worker interface que todos os workers devem implementar.
// Schedule é uma expressão cron de 5 campos avaliada em UTC.
type Worker interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

type registered struct {
	worker Worker
	id     cron.EntryID

	// serializa execuções agendadas e manuais do mesmo worker
	running sync.Mutex

	statsMu  sync.Mutex
	runs     int64
	failures int64
	lastRun  time.Time
	lastErr  string
	lastTook time.Duration
}

// WorkerManager gerencia múltiplos workers sobre um cron
type WorkerManager struct {
	cron       *cron.Cron
	logger     *zap.Logger
	runTimeout time.Duration

	mu      sync.Mutex
	workers map[string]*registered
	started bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorkerManager cria um novo gerenciador. runTimeout limita cada execução.
func NewWorkerManager(logger *zap.Logger, runTimeout time.Duration) *WorkerManager {
	cl := cronLogger{sugar: logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerManager{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:     logger,
		runTimeout: runTimeout,
		workers:    make(map[string]*registered),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RegisterWorker registra um novo worker
func (wm *WorkerManager) RegisterWorker(w Worker) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if _, exists := wm.workers[w.Name()]; exists {
		return fmt.Errorf("worker %q already registered", w.Name())
	}

	reg := &registered{worker: w}
	id, err := wm.cron.AddFunc(w.Schedule(), func() {
		_ = wm.execute(wm.ctx, reg)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for worker %q: %w", w.Schedule(), w.Name(), err)
	}
	reg.id = id
	wm.workers[w.Name()] = reg

	wm.logger.Info("✅ Worker registrado",
		zap.String("worker", w.Name()),
		zap.String("schedule", w.Schedule()),
	)
	return nil
}

// Start inicia o cron
func (wm *WorkerManager) Start() {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if wm.started {
		return
	}
	wm.started = true
	wm.cron.Start()

	wm.logger.Info("🚀 Workers iniciados", zap.Int("count", len(wm.workers)))
}

// RunNow executa um worker fora do agendamento (gatilho manual/interno)
func (wm *WorkerManager) RunNow(ctx context.Context, name string) error {
	wm.mu.Lock()
	reg, ok := wm.workers[name]
	wm.mu.Unlock()

	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownWorker)
	}
	return wm.execute(ctx, reg)
}

// execute executa um worker com timeout e tratamento de erros
func (wm *WorkerManager) execute(parent context.Context, reg *registered) error {
	reg.running.Lock()
	defer reg.running.Unlock()

	ctx, cancel := context.WithTimeout(parent, wm.runTimeout)
	defer cancel()

	name := reg.worker.Name()
	startTime := time.Now()
	err := reg.worker.Run(ctx)
	duration := time.Since(startTime)

	reg.statsMu.Lock()
	reg.runs++
	reg.lastRun = startTime
	reg.lastTook = duration
	reg.lastErr = ""
	if err != nil {
		reg.failures++
		reg.lastErr = err.Error()
	}
	reg.statsMu.Unlock()

	if err != nil {
		wm.logger.Error("❌ Erro no worker",
			zap.String("worker", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return err
	}

	wm.logger.Debug("✅ Worker executado",
		zap.String("worker", name),
		zap.Duration("duration", duration),
	)
	return nil
}

// Stop para o cron e espera as execuções em andamento
func (wm *WorkerManager) Stop() {
	wm.logger.Info("🛑 Parando todos os workers...")

	done := wm.cron.Stop()
	wm.cancel()
	<-done.Done()

	wm.logger.Info("✅ Todos os workers parados")
}

// WorkerStatus estado de um worker
type WorkerStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	Runs      int64     `json:"runs"`
	Failures  int64     `json:"failures"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	LastTook  string    `json:"lastDuration,omitempty"`
	NextRun   time.Time `json:"nextRun,omitempty"`
}

// WorkerStats estatísticas dos workers
type WorkerStats struct {
	TotalWorkers int            `json:"totalWorkers"`
	Workers      []WorkerStatus `json:"workers"`
}

// GetStats retorna estatísticas dos workers
func (wm *WorkerManager) GetStats() WorkerStats {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	stats := WorkerStats{TotalWorkers: len(wm.workers)}
	for name, reg := range wm.workers {
		reg.statsMu.Lock()
		status := WorkerStatus{
			Name:      name,
			Schedule:  reg.worker.Schedule(),
			Runs:      reg.runs,
			Failures:  reg.failures,
			LastRun:   reg.lastRun,
			LastError: reg.lastErr,
			NextRun:   wm.cron.Entry(reg.id).Next,
		}
		if reg.lastTook > 0 {
			status.LastTook = reg.lastTook.String()
		}
		reg.statsMu.Unlock()
		stats.Workers = append(stats.Workers, status)
	}

	sort.Slice(stats.Workers, func(i, j int) bool {
		return stats.Workers[i].Name < stats.Workers[j].Name
	})
	return stats
}

// cronLogger adapta o zap para o cron.Logger
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
