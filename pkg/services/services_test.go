package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

type fakeAdminStore struct {
	stuck   []*models.Incident
	updated []*models.Incident
}

func (s *fakeAdminStore) ListStuckAnalyzing(ctx context.Context) ([]*models.Incident, error) {
	return s.stuck, nil
}

func (s *fakeAdminStore) UpdateIncident(ctx context.Context, inc *models.Incident) error {
	s.updated = append(s.updated, inc)
	return nil
}

func TestResetStuckIncidents_TransitionsEveryAnalyzingIncidentToOpen(t *testing.T) {
	stuck := []*models.Incident{
		{ID: uuid.New(), Status: models.IncidentAnalyzing},
		{ID: uuid.New(), Status: models.IncidentAnalyzing},
	}
	store := &fakeAdminStore{stuck: stuck}

	n, err := resetStuckIncidents(context.Background(), store)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.updated, 2)
	for _, inc := range store.updated {
		assert.Equal(t, models.IncidentOpen, inc.Status)
	}
}

func TestResetStuckIncidents_NoStuckIncidentsIsANoOp(t *testing.T) {
	store := &fakeAdminStore{}

	n, err := resetStuckIncidents(context.Background(), store)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, store.updated)
}

type fakeCorrelateStore struct {
	incidents map[uuid.UUID]*models.Incident
	linked    map[uuid.UUID]uuid.UUID
}

func newFakeCorrelateStore(incidents ...*models.Incident) *fakeCorrelateStore {
	s := &fakeCorrelateStore{incidents: map[uuid.UUID]*models.Incident{}, linked: map[uuid.UUID]uuid.UUID{}}
	for _, i := range incidents {
		s.incidents[i.ID] = i
	}
	return s
}

func (s *fakeCorrelateStore) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return s.incidents[id], nil
}

func (s *fakeCorrelateStore) SetAlertIncident(ctx context.Context, id, incidentID uuid.UUID, now time.Time) error {
	s.linked[id] = incidentID
	return nil
}

func (s *fakeCorrelateStore) UpdateIncident(ctx context.Context, inc *models.Incident) error {
	s.incidents[inc.ID] = inc
	return nil
}

func TestCorrelateManually_LinksAlertsAndAppendsReason(t *testing.T) {
	incident := &models.Incident{ID: uuid.New(), CorrelationReason: "Structural match (score=9)"}
	store := newFakeCorrelateStore(incident)
	alertA, alertB := uuid.New(), uuid.New()

	err := correlateManually(context.Background(), store, incident.ID, []uuid.UUID{alertA, alertB})

	require.NoError(t, err)
	assert.Equal(t, incident.ID, store.linked[alertA])
	assert.Equal(t, incident.ID, store.linked[alertB])
	assert.Contains(t, store.incidents[incident.ID].CorrelationReason, "Manual correlation")
	assert.Contains(t, store.incidents[incident.ID].CorrelationReason, "Structural match")
}

func TestCorrelateManually_SetsReasonWhenIncidentHadNone(t *testing.T) {
	incident := &models.Incident{ID: uuid.New()}
	store := newFakeCorrelateStore(incident)

	err := correlateManually(context.Background(), store, incident.ID, []uuid.UUID{uuid.New()})

	require.NoError(t, err)
	assert.Equal(t, "Manual correlation", store.incidents[incident.ID].CorrelationReason)
}

func TestReadiness_AllHealthyRequiresEveryDependency(t *testing.T) {
	assert.True(t, Readiness{Database: true, Logs: true, Metrics: true, LLM: true}.AllHealthy())
	assert.False(t, Readiness{Database: true, Logs: false, Metrics: true, LLM: true}.AllHealthy())
}
