package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

type fakeReportStore struct {
	alerts  []*models.Alert
	reports []*models.RCAReport
}

func (s *fakeReportStore) CreateReport(ctx context.Context, r *models.RCAReport) error {
	s.reports = append(s.reports, r)
	return nil
}

func (s *fakeReportStore) ListAlertsByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Alert, error) {
	return s.alerts, nil
}

type fakeRunner struct {
	result *RCAResult
}

func (r *fakeRunner) AnalyzeIncident(ctx context.Context, incident *models.Incident, alerts []*models.Alert) *RCAResult {
	return r.result
}

func TestRealAnalyzer_PersistsCompleteReportOnSuccess(t *testing.T) {
	store := &fakeReportStore{alerts: []*models.Alert{{ID: uuid.New()}}}
	report := &models.RCAReport{ID: uuid.New(), RootCause: "disk full", Status: models.ReportComplete}
	runner := &fakeRunner{result: &RCAResult{Success: true, Report: report}}
	a := NewRealAnalyzer(store, runner)

	inc := &models.Incident{ID: uuid.New(), StartedAt: time.Now()}
	result := a.Analyze(context.Background(), inc)

	require.Equal(t, models.ReportComplete, result.Status)
	assert.True(t, result.Persisted)
	require.Len(t, store.reports, 1)
	assert.Equal(t, report.ID, store.reports[0].ID)
}

func TestRealAnalyzer_PersistsFailedReportWhenOrchestratorFails(t *testing.T) {
	store := &fakeReportStore{alerts: []*models.Alert{{ID: uuid.New()}}}
	runner := &fakeRunner{result: &RCAResult{Success: false, Error: "LLM error: boom"}}
	a := NewRealAnalyzer(store, runner)

	inc := &models.Incident{ID: uuid.New(), StartedAt: time.Now()}
	result := a.Analyze(context.Background(), inc)

	assert.Equal(t, models.ReportFailed, result.Status)
	assert.True(t, result.Persisted)
	require.Len(t, store.reports, 1)
	assert.Equal(t, models.ReportFailed, store.reports[0].Status)
	require.NotNil(t, store.reports[0].ErrorMessage)
	assert.Equal(t, "LLM error: boom", *store.reports[0].ErrorMessage)
}

func TestRealAnalyzer_FailsFastWhenIncidentHasNoAlerts(t *testing.T) {
	store := &fakeReportStore{}
	runner := &fakeRunner{}
	a := NewRealAnalyzer(store, runner)

	inc := &models.Incident{ID: uuid.New(), StartedAt: time.Now()}
	result := a.Analyze(context.Background(), inc)

	assert.Equal(t, models.ReportFailed, result.Status)
	assert.False(t, result.Persisted)
	assert.Empty(t, store.reports)
}
