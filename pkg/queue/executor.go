package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// RCARunner is the subset of pkg/rca.Orchestrator the executor depends on.
type RCARunner interface {
	AnalyzeIncident(ctx context.Context, incident *models.Incident, alerts []*models.Alert) *RCAResult
}

// RCAResult mirrors pkg/rca.Result without importing it directly, so pkg/queue
// doesn't need to depend on pkg/llm's transitive tree; the services layer
// adapts the real *rca.Result into this shape.
type RCAResult struct {
	Success  bool
	Report   *models.RCAReport
	Error    string
	Warning  string
	Metadata models.AnalysisMetadata
}

// ReportStore is the subset of pkg/store.Store the executor depends on for
// persisting the RCA report.
type ReportStore interface {
	CreateReport(ctx context.Context, r *models.RCAReport) error
	ListAlertsByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Alert, error)
}

// RealAnalyzer implements IncidentAnalyzer using the RCA orchestrator,
// grounded on _examples/codeready-toolchain-tarsy's RealSessionExecutor
// (pkg/queue/executor.go): resolve inputs, run the investigation, persist
// the terminal result.
type RealAnalyzer struct {
	Store  ReportStore
	Runner RCARunner
	Now    func() time.Time
}

// NewRealAnalyzer builds a RealAnalyzer with sane defaults.
func NewRealAnalyzer(store ReportStore, runner RCARunner) *RealAnalyzer {
	return &RealAnalyzer{Store: store, Runner: runner, Now: time.Now}
}

// Analyze loads the incident's member alerts, runs the orchestrator, and
// persists the resulting report (complete or failed).
func (a *RealAnalyzer) Analyze(ctx context.Context, incident *models.Incident) *AnalysisResult {
	logger := slog.With("incident_id", incident.ID)

	alerts, err := a.Store.ListAlertsByIncident(ctx, incident.ID)
	if err != nil {
		logger.Error("failed to load incident alerts", "error", err)
		return &AnalysisResult{Status: models.ReportFailed, Error: fmt.Errorf("load alerts: %w", err)}
	}
	if len(alerts) == 0 {
		logger.Warn("incident has no alerts, skipping analysis")
		return &AnalysisResult{Status: models.ReportFailed, Error: fmt.Errorf("incident has no member alerts")}
	}

	result := a.Runner.AnalyzeIncident(ctx, incident, alerts)
	if result == nil {
		return &AnalysisResult{Status: models.ReportFailed, Error: fmt.Errorf("orchestrator returned nil result")}
	}

	now := a.now()
	if !result.Success || result.Report == nil {
		errMsg := result.Error
		if errMsg == "" {
			errMsg = "analysis failed without a specific error"
		}
		failed := &models.RCAReport{
			ID:           uuid.New(),
			IncidentID:   incident.ID,
			Status:       models.ReportFailed,
			ErrorMessage: &errMsg,
			StartedAt:    now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := a.Store.CreateReport(ctx, failed); err != nil {
			logger.Error("failed to persist failed report", "error", err)
			return &AnalysisResult{Status: models.ReportFailed, Error: fmt.Errorf("%s", errMsg)}
		}
		return &AnalysisResult{Status: models.ReportFailed, Error: fmt.Errorf("%s", errMsg), Persisted: true}
	}

	if err := a.Store.CreateReport(ctx, result.Report); err != nil {
		logger.Error("failed to persist rca report", "error", err)
		return &AnalysisResult{Status: models.ReportFailed, Error: fmt.Errorf("persist report: %w", err)}
	}

	if result.Warning != "" {
		logger.Warn("rca report generated with a warning", "warning", result.Warning)
	}
	return &AnalysisResult{Status: models.ReportComplete, Persisted: true}
}

func (a *RealAnalyzer) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
