package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/codeready-toolchain/rca-service/pkg/state"
)

// WorkerPool manages a fixed pool of queue workers polling for open
// incidents to analyze.
type WorkerPool struct {
	store    IncidentStore
	analyzer IncidentAnalyzer
	config   *Config
	workers  []*Worker
	stopOnce sync.Once
	started  bool

	claimMu sync.Mutex

	activeAnalyses int
	activeMu       sync.RWMutex
}

// NewWorkerPool creates a new worker pool. cfg may be nil, in which case
// DefaultConfig() is used.
func NewWorkerPool(store IncidentStore, analyzer IncidentAnalyzer, cfg *Config) *WorkerPool {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &WorkerPool{
		store:    store,
		analyzer: analyzer,
		config:   cfg,
		workers:  make([]*Worker, 0, cfg.WorkerCount),
	}
}

// Start spawns worker goroutines. Safe to call multiple times; subsequent
// calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	slog.Info("starting worker pool", "worker_count", p.config.WorkerCount)
	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("rca-worker-%d", i)
		worker := NewWorker(workerID, p.store, p.analyzer, p.config, p)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}
	slog.Info("worker pool started")
}

// Stop signals all workers to stop and waits for in-flight analyses to
// finish.
func (p *WorkerPool) Stop() {
	slog.Info("stopping worker pool gracefully")
	p.stopOnce.Do(func() {
		for _, w := range p.workers {
			w.Stop()
		}
	})
	slog.Info("worker pool stopped")
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, w := range p.workers {
		stats := w.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	p.activeMu.RLock()
	active := p.activeAnalyses
	p.activeMu.RUnlock()

	return &PoolHealth{
		IsHealthy:      len(p.workers) > 0,
		WorkerCount:    len(p.workers),
		ActiveWorkers:  activeWorkers,
		ActiveAnalyses: active,
		MaxConcurrent:  p.config.MaxConcurrentAnalyses,
		WorkerStats:    workerStats,
	}
}

// claim implements claimCoordinator: it serializes the list-then-transition
// step across this pool's workers so two workers never claim the same
// incident, mirroring the teacher's "claim = status transition under a
// transaction" pattern without requiring FOR UPDATE SKIP LOCKED (spec's
// Non-goals exclude multi-process coordination; within one process a mutex
// suffices).
func (p *WorkerPool) claim(ctx context.Context) (*models.Incident, error) {
	p.activeMu.RLock()
	atCapacity := p.activeAnalyses >= p.config.MaxConcurrentAnalyses
	p.activeMu.RUnlock()
	if atCapacity {
		return nil, ErrAtCapacity
	}

	p.claimMu.Lock()
	defer p.claimMu.Unlock()

	candidates, err := p.store.ListIncidentsNeedingRCA(ctx, p.config.WorkerCount)
	if err != nil {
		return nil, fmt.Errorf("list incidents needing rca: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoIncidentsAvailable
	}

	incident := candidates[0]
	now := time.Now()
	if !state.Transition(incident, models.IncidentAnalyzing, now) {
		return nil, ErrNoIncidentsAvailable
	}
	incident.UpdatedAt = now
	if err := p.store.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("claim incident: %w", err)
	}

	p.activeMu.Lock()
	p.activeAnalyses++
	p.activeMu.Unlock()

	return incident, nil
}

// release decrements the active-analysis counter once a worker finishes.
func (p *WorkerPool) release() {
	p.activeMu.Lock()
	p.activeAnalyses--
	p.activeMu.Unlock()
}
