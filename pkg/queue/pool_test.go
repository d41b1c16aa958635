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

type fakeIncidentStore struct {
	incidents map[uuid.UUID]*models.Incident
}

func newFakeIncidentStore(incidents ...*models.Incident) *fakeIncidentStore {
	s := &fakeIncidentStore{incidents: map[uuid.UUID]*models.Incident{}}
	for _, i := range incidents {
		s.incidents[i.ID] = i
	}
	return s
}

func (s *fakeIncidentStore) ListIncidentsNeedingRCA(ctx context.Context, limit int) ([]*models.Incident, error) {
	var out []*models.Incident
	for _, inc := range s.incidents {
		if inc.Status == models.IncidentOpen && inc.RCACompletedAt == nil {
			out = append(out, inc)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeIncidentStore) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return s.incidents[id], nil
}

func (s *fakeIncidentStore) UpdateIncident(ctx context.Context, inc *models.Incident) error {
	s.incidents[inc.ID] = inc
	return nil
}

func TestPool_ClaimTransitionsIncidentToAnalyzing(t *testing.T) {
	inc := &models.Incident{ID: uuid.New(), Status: models.IncidentOpen, StartedAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store := newFakeIncidentStore(inc)
	pool := NewWorkerPool(store, nil, DefaultConfig())

	claimed, err := pool.claim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, inc.ID, claimed.ID)
	assert.Equal(t, models.IncidentAnalyzing, store.incidents[inc.ID].Status)
}

func TestPool_ClaimSkipsOpenIncidentThatAlreadyHasACompletedRCA(t *testing.T) {
	completedAt := time.Now().Add(-time.Hour)
	inc := &models.Incident{
		ID: uuid.New(), Status: models.IncidentOpen, RCACompletedAt: &completedAt,
		StartedAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	store := newFakeIncidentStore(inc)
	pool := NewWorkerPool(store, nil, DefaultConfig())

	_, err := pool.claim(context.Background())
	assert.ErrorIs(t, err, ErrNoIncidentsAvailable)
}

func TestPool_ClaimReturnsNoIncidentsAvailableWhenEmpty(t *testing.T) {
	store := newFakeIncidentStore()
	pool := NewWorkerPool(store, nil, DefaultConfig())

	_, err := pool.claim(context.Background())
	assert.ErrorIs(t, err, ErrNoIncidentsAvailable)
}

func TestPool_ClaimReturnsAtCapacityWhenMaxConcurrentReached(t *testing.T) {
	inc := &models.Incident{ID: uuid.New(), Status: models.IncidentOpen, StartedAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store := newFakeIncidentStore(inc)
	cfg := DefaultConfig()
	cfg.MaxConcurrentAnalyses = 1
	pool := NewWorkerPool(store, nil, cfg)

	_, err := pool.claim(context.Background())
	require.NoError(t, err)

	_, err = pool.claim(context.Background())
	assert.ErrorIs(t, err, ErrAtCapacity)
}

func TestPool_ReleaseDecrementsActiveCount(t *testing.T) {
	inc := &models.Incident{ID: uuid.New(), Status: models.IncidentOpen, StartedAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store := newFakeIncidentStore(inc)
	pool := NewWorkerPool(store, nil, DefaultConfig())

	_, err := pool.claim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Health().ActiveAnalyses)

	pool.release()
	assert.Equal(t, 0, pool.Health().ActiveAnalyses)
}

func TestPool_HealthReflectsWorkerCount(t *testing.T) {
	store := newFakeIncidentStore()
	pool := NewWorkerPool(store, nil, DefaultConfig())
	pool.Start(context.Background())
	defer pool.Stop()

	health := pool.Health()
	assert.True(t, health.IsHealthy)
	assert.Equal(t, DefaultConfig().WorkerCount, health.WorkerCount)
}
