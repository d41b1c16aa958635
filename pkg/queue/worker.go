package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/codeready-toolchain/rca-service/pkg/state"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// claimCoordinator serializes the list-then-claim step across a pool's
// workers so two workers never claim the same incident in the same
// process. Running the actual analysis happens outside the lock.
type claimCoordinator interface {
	claim(ctx context.Context) (*models.Incident, error)
	release()
}

// Worker is a single queue worker that polls for and analyzes incidents.
type Worker struct {
	id        string
	store     IncidentStore
	analyzer  IncidentAnalyzer
	config    *Config
	coord     claimCoordinator
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu                 sync.RWMutex
	status             WorkerStatus
	currentIncidentID  string
	incidentsProcessed int
	lastActivity       time.Time
}

// NewWorker creates a new queue worker.
func NewWorker(id string, store IncidentStore, analyzer IncidentAnalyzer, cfg *Config, coord claimCoordinator) *Worker {
	return &Worker{
		id:           id,
		store:        store,
		analyzer:     analyzer,
		config:       cfg,
		coord:        coord,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish the incident
// it is currently analyzing, if any.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:                 w.id,
		Status:             string(w.status),
		CurrentIncidentID:  w.currentIncidentID,
		IncidentsProcessed: w.incidentsProcessed,
		LastActivity:       w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoIncidentsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing incident", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims the next open incident (if any) and runs the RCA
// orchestrator against it.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	incident, err := w.coord.claim(ctx)
	if err != nil {
		return err
	}
	defer w.coord.release()

	log := slog.With("incident_id", incident.ID, "worker_id", w.id)
	log.Info("incident claimed")

	w.setStatus(WorkerStatusWorking, incident.ID.String())
	defer w.setStatus(WorkerStatusIdle, "")

	analysisCtx, cancel := context.WithTimeout(ctx, w.config.AnalysisTimeout)
	defer cancel()

	result := w.analyzer.Analyze(analysisCtx, incident)
	if result == nil {
		result = &AnalysisResult{Status: models.ReportFailed, Error: fmt.Errorf("analyzer returned nil result")}
	}

	if err := w.finalizeIncident(context.Background(), incident, result); err != nil {
		log.Error("failed to finalize incident status", "error", err)
		return err
	}

	w.mu.Lock()
	w.incidentsProcessed++
	w.mu.Unlock()

	log.Info("incident analysis complete", "status", result.Status)
	return nil
}

// finalizeIncident transitions the incident out of "analyzing" once the RCA
// run settles, whether it succeeded or failed: the orchestrator's job is
// diagnostic, so either way the incident returns to "open" (spec §9: "open
// → analyzing → open|resolved"). Auto-resolution based on member alert
// status is handled separately by pkg/ingest, not here.
func (w *Worker) finalizeIncident(ctx context.Context, incident *models.Incident, result *AnalysisResult) error {
	fresh, err := w.store.GetIncident(ctx, incident.ID)
	if err != nil {
		return fmt.Errorf("reload incident: %w", err)
	}
	if fresh.Status != models.IncidentAnalyzing {
		// Already moved on (e.g. resolved by a concurrent ingestion event).
		return nil
	}

	now := time.Now()
	// A persisted report — complete or failed — is a terminal RCA attempt
	// (spec §3: "report transitions to complete or failed exactly once").
	// Stamping RCACompletedAt keeps ListIncidentsNeedingRCA from re-claiming
	// an incident that already has a report, which would otherwise hit
	// rca_reports' unique incident_id constraint on the retry. An
	// analysis that never reached a persisted report (e.g. couldn't load
	// its member alerts) leaves RCACompletedAt unset so it stays eligible.
	if result.Persisted {
		fresh.RCACompletedAt = &now
	}
	state.Transition(fresh, models.IncidentOpen, now)
	fresh.UpdatedAt = now
	return w.store.UpdateIncident(ctx, fresh)
}

func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, incidentID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentIncidentID = incidentID
	w.lastActivity = time.Now()
}
