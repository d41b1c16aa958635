// Package services wires the persistence, correlation, and RCA packages
// together into the dependency set pkg/api and cmd/rcaservice depend on,
// the way the teacher's pkg/services package assembles *ent.Client into
// one service per aggregate (pkg/services/alert_service.go,
// session_service.go).
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/cache"
	"github.com/codeready-toolchain/rca-service/pkg/correlate"
	"github.com/codeready-toolchain/rca-service/pkg/database"
	"github.com/codeready-toolchain/rca-service/pkg/ingest"
	"github.com/codeready-toolchain/rca-service/pkg/llm"
	"github.com/codeready-toolchain/rca-service/pkg/logsclient"
	"github.com/codeready-toolchain/rca-service/pkg/metricsclient"
	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/codeready-toolchain/rca-service/pkg/queue"
	"github.com/codeready-toolchain/rca-service/pkg/rca"
	"github.com/codeready-toolchain/rca-service/pkg/semantic"
	"github.com/codeready-toolchain/rca-service/pkg/state"
	"github.com/codeready-toolchain/rca-service/pkg/store"
)

// Services bundles every wired component the API layer and the queue depend
// on. Built once at startup by New and handed to api.NewServer.
type Services struct {
	Store      *store.Store
	Correlator *correlate.Engine
	Pipeline   *ingest.Pipeline
	Orchestrator *rca.Orchestrator
	Pool       *queue.WorkerPool
	Cache      cache.Store

	logs    *logsclient.Client
	metrics *metricsclient.Client
	llm     llm.Provider
}

// Deps are the externally-constructed dependencies New assembles. Kept as a
// plain struct (not a Config) since config.Config already did the env
// parsing; this is purely the "turn config values into live clients" step.
type Deps struct {
	Store                      *store.Store
	LLM                        llm.Provider
	LogsBaseURL                string
	MetricsBaseURL             string
	LogsTimeout                time.Duration
	MetricsTimeout             time.Duration
	Cache                      cache.Store
	CorrelationWindowSeconds   int
	CorrelationScoreThreshold  int
	SemanticCorrelationEnabled bool
	RCAMaxIterations           int
	RCAExpertContext           string
	QueueConfig                *queue.Config
}

// New assembles the full dependency graph from Deps.
func New(d Deps) *Services {
	logsRaw := logsclient.NewClient(d.LogsBaseURL, d.LogsTimeout)
	metricsRaw := metricsclient.NewClient(d.MetricsBaseURL, d.MetricsTimeout)

	logsQ := &cachingLogsQuerier{inner: logsRaw, cache: d.Cache}
	metricsQ := &cachingMetricsQuerier{inner: metricsRaw, cache: d.Cache}

	semanticCorrelator := semantic.NewCorrelator(d.LLM)
	correlator := correlate.NewEngine(d.Store, semanticCorrelator, d.CorrelationWindowSeconds, d.SemanticCorrelationEnabled, d.CorrelationScoreThreshold)
	pipeline := ingest.New(d.Store, correlator)

	orchestrator := rca.New(d.LLM, logsQ, metricsQ, d.RCAMaxIterations, d.RCAExpertContext)
	runner := &orchestratorRunner{orchestrator: orchestrator}
	analyzer := queue.NewRealAnalyzer(d.Store, runner)
	pool := queue.NewWorkerPool(d.Store, analyzer, d.QueueConfig)

	return &Services{
		Store:        d.Store,
		Correlator:   correlator,
		Pipeline:     pipeline,
		Orchestrator: orchestrator,
		Pool:         pool,
		Cache:        d.Cache,
		logs:         logsRaw,
		metrics:      metricsRaw,
		llm:          d.LLM,
	}
}

// orchestratorRunner adapts *rca.Orchestrator to queue.RCARunner, translating
// *rca.Result into the duplicate-shaped queue.RCAResult so pkg/queue never
// needs to import pkg/rca (and, transitively, pkg/llm's SDK dependency).
type orchestratorRunner struct {
	orchestrator *rca.Orchestrator
}

func (r *orchestratorRunner) AnalyzeIncident(ctx context.Context, incident *models.Incident, alerts []*models.Alert) *queue.RCAResult {
	result := r.orchestrator.AnalyzeIncident(ctx, incident, alerts)
	if result == nil {
		return nil
	}
	return &queue.RCAResult{
		Success:  result.Success,
		Report:   result.Report,
		Error:    result.Error,
		Warning:  result.Warning,
		Metadata: result.Metadata,
	}
}

// adminStore is the subset of pkg/store.Store ResetStuckIncidents depends
// on, kept narrow so it can be tested against a fake.
type adminStore interface {
	ListStuckAnalyzing(ctx context.Context) ([]*models.Incident, error)
	UpdateIncident(ctx context.Context, inc *models.Incident) error
}

// ResetStuckIncidents implements the admin recovery path (spec §4.8, §9):
// bulk-transitions every incident stuck in "analyzing" back to "open".
func (s *Services) ResetStuckIncidents(ctx context.Context) (int, error) {
	return resetStuckIncidents(ctx, s.Store)
}

func resetStuckIncidents(ctx context.Context, st adminStore) (int, error) {
	stuck, err := st.ListStuckAnalyzing(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stuck incidents: %w", err)
	}
	reset := state.ResetStuck(stuck)
	now := time.Now()
	for _, inc := range reset {
		inc.UpdatedAt = now
		if err := st.UpdateIncident(ctx, inc); err != nil {
			return 0, fmt.Errorf("reset incident %s: %w", inc.ID, err)
		}
	}
	return len(reset), nil
}

// correlateStore is the subset of pkg/store.Store CorrelateManually depends
// on, kept narrow so it can be tested against a fake.
type correlateStore interface {
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetAlertIncident(ctx context.Context, id uuid.UUID, incidentID uuid.UUID, now time.Time) error
	UpdateIncident(ctx context.Context, inc *models.Incident) error
}

// CorrelateManually implements POST /api/v1/incidents/{id}/correlate: moves
// the named alerts onto the given incident and appends the manual-override
// marker to its correlation reason (spec §6.2).
func (s *Services) CorrelateManually(ctx context.Context, incidentID uuid.UUID, alertIDs []uuid.UUID) error {
	return correlateManually(ctx, s.Store, incidentID, alertIDs)
}

func correlateManually(ctx context.Context, st correlateStore, incidentID uuid.UUID, alertIDs []uuid.UUID) error {
	incident, err := st.GetIncident(ctx, incidentID)
	if err != nil {
		return fmt.Errorf("get incident: %w", err)
	}

	now := time.Now()
	for _, alertID := range alertIDs {
		if err := st.SetAlertIncident(ctx, alertID, incidentID, now); err != nil {
			return fmt.Errorf("set incident for alert %s: %w", alertID, err)
		}
	}

	if incident.CorrelationReason == "" {
		incident.CorrelationReason = "Manual correlation"
	} else {
		incident.CorrelationReason += "; Manual correlation"
	}
	incident.UpdatedAt = now
	return st.UpdateIncident(ctx, incident)
}

// Readiness reports the per-dependency booleans spec §7 calls for, plus the
// database connection pool stats database.Health reports alongside its
// ping — useful on the same readiness page an operator already checks.
type Readiness struct {
	Database     bool                   `json:"database"`
	DatabasePool *database.HealthStatus `json:"database_pool,omitempty"`
	Logs         bool                   `json:"logs"`
	Metrics      bool                   `json:"metrics"`
	LLM          bool                   `json:"llm"`
}

// Ready reports whether each dependency is currently reachable. A false
// dependency is surfaced to the caller (api package) which returns 503.
func (s *Services) Ready(ctx context.Context) Readiness {
	r := Readiness{}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	dbHealth, err := database.Health(pingCtx, s.Store.DB())
	r.Database = err == nil
	r.DatabasePool = dbHealth

	r.Logs = s.logs.Ready(ctx)
	r.Metrics = s.metrics.Ready(ctx)
	r.LLM = s.llm.HealthCheck(ctx) == nil

	return r
}

func (r Readiness) AllHealthy() bool {
	return r.Database && r.Logs && r.Metrics && r.LLM
}
