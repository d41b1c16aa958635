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

type fakeCoordinator struct {
	incidents []*models.Incident
	idx       int
	released  int
}

func (c *fakeCoordinator) claim(ctx context.Context) (*models.Incident, error) {
	if c.idx >= len(c.incidents) {
		return nil, ErrNoIncidentsAvailable
	}
	inc := c.incidents[c.idx]
	c.idx++
	return inc, nil
}

func (c *fakeCoordinator) release() { c.released++ }

type fakeAnalyzer struct {
	result *AnalysisResult
	calls  int
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, incident *models.Incident) *AnalysisResult {
	a.calls++
	return a.result
}

func TestWorker_PollAndProcessRunsAnalyzerAndReleasesClaim(t *testing.T) {
	inc := &models.Incident{ID: uuid.New(), Status: models.IncidentAnalyzing, StartedAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store := newFakeIncidentStore(inc)
	coord := &fakeCoordinator{incidents: []*models.Incident{inc}}
	analyzer := &fakeAnalyzer{result: &AnalysisResult{Status: models.ReportComplete, Persisted: true}}

	w := NewWorker("w-1", store, analyzer, DefaultConfig(), coord)
	err := w.pollAndProcess(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, 1, coord.released)
	assert.Equal(t, models.IncidentOpen, store.incidents[inc.ID].Status)
	assert.NotNil(t, store.incidents[inc.ID].RCACompletedAt)
}

func TestWorker_FailedAnalysisRevertsToOpenWithoutCompletedAt(t *testing.T) {
	inc := &models.Incident{ID: uuid.New(), Status: models.IncidentAnalyzing, StartedAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store := newFakeIncidentStore(inc)
	coord := &fakeCoordinator{incidents: []*models.Incident{inc}}
	analyzer := &fakeAnalyzer{result: &AnalysisResult{Status: models.ReportFailed}}

	w := NewWorker("w-1", store, analyzer, DefaultConfig(), coord)
	err := w.pollAndProcess(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.IncidentOpen, store.incidents[inc.ID].Status)
	assert.Nil(t, store.incidents[inc.ID].RCACompletedAt)
}

func TestWorker_PersistedFailureStillStampsCompletedAt(t *testing.T) {
	inc := &models.Incident{ID: uuid.New(), Status: models.IncidentAnalyzing, StartedAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store := newFakeIncidentStore(inc)
	coord := &fakeCoordinator{incidents: []*models.Incident{inc}}
	analyzer := &fakeAnalyzer{result: &AnalysisResult{Status: models.ReportFailed, Persisted: true}}

	w := NewWorker("w-1", store, analyzer, DefaultConfig(), coord)
	err := w.pollAndProcess(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.IncidentOpen, store.incidents[inc.ID].Status)
	assert.NotNil(t, store.incidents[inc.ID].RCACompletedAt)
}

func TestWorker_PollAndProcessReturnsNoIncidentsAvailable(t *testing.T) {
	store := newFakeIncidentStore()
	coord := &fakeCoordinator{}
	analyzer := &fakeAnalyzer{}

	w := NewWorker("w-1", store, analyzer, DefaultConfig(), coord)
	err := w.pollAndProcess(context.Background())

	assert.ErrorIs(t, err, ErrNoIncidentsAvailable)
	assert.Equal(t, 0, analyzer.calls)
}

func TestWorker_SkipsFinalizeWhenIncidentAlreadyMovedOn(t *testing.T) {
	inc := &models.Incident{ID: uuid.New(), Status: models.IncidentResolved, StartedAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store := newFakeIncidentStore(inc)
	coord := &fakeCoordinator{incidents: []*models.Incident{inc}}
	analyzer := &fakeAnalyzer{result: &AnalysisResult{Status: models.ReportComplete}}

	w := NewWorker("w-1", store, analyzer, DefaultConfig(), coord)
	err := w.pollAndProcess(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.IncidentResolved, store.incidents[inc.ID].Status)
}

func TestWorker_StartAndStopGracefully(t *testing.T) {
	store := newFakeIncidentStore()
	coord := &fakeCoordinator{}
	analyzer := &fakeAnalyzer{}
	cfg := DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.PollIntervalJitter = 0

	w := NewWorker("w-1", store, analyzer, cfg, coord)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	w.Stop()

	assert.Equal(t, WorkerStatusIdle, WorkerStatus(w.Health().Status))
}
