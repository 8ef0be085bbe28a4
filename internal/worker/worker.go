// Package worker drains scheduled imports and copies repository content.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gitporter/gitporter/internal/models"
	"github.com/gitporter/gitporter/internal/storage"
)

// Copier transfers the repository content of one scheduled project.
type Copier interface {
	Copy(ctx context.Context, project *models.Project) error
}

// Worker polls for scheduled projects and executes their copies.
type Worker struct {
	copier       Copier
	db           *storage.Database
	logger       *slog.Logger
	pollInterval time.Duration
	workers      int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	active map[int64]bool
}

// Config configures the import worker.
type Config struct {
	Copier       Copier
	Storage      *storage.Database
	Logger       *slog.Logger
	PollInterval time.Duration
	Workers      int
}

func New(cfg Config) (*Worker, error) {
	if cfg.Copier == nil {
		return nil, fmt.Errorf("copier is required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}

	return &Worker{
		copier:       cfg.Copier,
		db:           cfg.Storage,
		logger:       cfg.Logger,
		pollInterval: cfg.PollInterval,
		workers:      cfg.Workers,
		active:       make(map[int64]bool),
	}, nil
}

// Start begins the polling loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.ctx != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.logger.Info("starting import worker",
		"poll_interval", w.pollInterval,
		"workers", w.workers)

	w.wg.Add(1)
	go w.pollLoop()
	return nil
}

// Stop halts polling and waits for in-flight copies to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}
	w.cancel()
	w.mu.Unlock()

	w.logger.Info("stopping import worker, waiting for active imports")
	w.wg.Wait()
	w.logger.Info("import worker stopped")
	return nil
}

func (w *Worker) pollLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Drain anything scheduled before the process started.
	w.dispatchScheduled()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.dispatchScheduled()
		}
	}
}

func (w *Worker) dispatchScheduled() {
	ctx := context.Background()

	w.mu.RLock()
	activeCount := len(w.active)
	w.mu.RUnlock()

	availableSlots := w.workers - activeCount
	if availableSlots <= 0 {
		w.logger.Debug("all worker slots busy", "active", activeCount, "max_workers", w.workers)
		return
	}

	projects, err := w.db.ListProjectsByImportStatus(ctx, models.ImportStatusScheduled, availableSlots)
	if err != nil {
		w.logger.Error("failed to fetch scheduled projects", "error", err)
		return
	}
	if len(projects) == 0 {
		return
	}

	w.logger.Info("found scheduled projects", "count", len(projects), "available_slots", availableSlots)

	for _, project := range projects {
		w.mu.Lock()
		if w.active[project.ID] {
			w.mu.Unlock()
			continue
		}
		w.active[project.ID] = true
		w.mu.Unlock()

		w.wg.Add(1)
		go w.runImport(project)
	}
}

func (w *Worker) runImport(project *models.Project) {
	defer w.wg.Done()
	defer func() {
		w.mu.Lock()
		delete(w.active, project.ID)
		w.mu.Unlock()
	}()

	ctx := context.Background()
	log := w.logger.With(
		"project_id", project.ID,
		"import_type", project.ImportType,
		"import_source", project.ImportSource)

	if err := w.db.UpdateImportStatus(ctx, project.ID, models.ImportStatusStarted, ""); err != nil {
		log.Error("failed to mark import started", "error", err)
		return
	}

	log.Info("import started", "import_url", project.MaskedImportURL())

	// The copy runs under the worker context so Stop can abort a hung clone;
	// status writes use a fresh context so the terminal state is still
	// recorded during shutdown.
	if err := w.copier.Copy(w.ctx, project); err != nil {
		log.Error("import failed", "error", err)
		if updateErr := w.db.UpdateImportStatus(ctx, project.ID, models.ImportStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark import failed", "error", updateErr)
		}
		return
	}

	if err := w.db.UpdateImportStatus(ctx, project.ID, models.ImportStatusFinished, ""); err != nil {
		log.Error("failed to mark import finished", "error", err)
		return
	}
	log.Info("import finished")
}

// ActiveCount returns the number of imports currently being copied.
func (w *Worker) ActiveCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.active)
}

// IsActive reports whether the worker is running.
func (w *Worker) IsActive() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ctx != nil && w.ctx.Err() == nil
}
