package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/codeready-toolchain/rca-service/pkg/store"
)

type fakeStore struct {
	byFingerprint map[string]*models.Alert
	incidents     map[uuid.UUID]*models.Incident
	membersOf     map[uuid.UUID][]*models.Alert
	createErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byFingerprint: map[string]*models.Alert{},
		incidents:     map[uuid.UUID]*models.Incident{},
		membersOf:     map[uuid.UUID][]*models.Alert{},
	}
}

func (f *fakeStore) GetAlertByFingerprint(ctx context.Context, fingerprint string) (*models.Alert, error) {
	a, ok := f.byFingerprint[fingerprint]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.byFingerprint[a.Fingerprint] = a
	return nil
}

func (f *fakeStore) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status models.AlertStatus, endsAt *time.Time, now time.Time) error {
	for _, a := range f.byFingerprint {
		if a.ID == id {
			a.Status = status
			a.EndsAt = endsAt
			a.UpdatedAt = now
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	inc, ok := f.incidents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return inc, nil
}

func (f *fakeStore) ListAlertsByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Alert, error) {
	return f.membersOf[incidentID], nil
}

func (f *fakeStore) UpdateIncident(ctx context.Context, inc *models.Incident) error {
	f.incidents[inc.ID] = inc
	return nil
}

func (f *fakeStore) attach(incidentID uuid.UUID, a *models.Alert) {
	id := incidentID
	a.IncidentID = &id
	f.membersOf[incidentID] = append(f.membersOf[incidentID], a)
}

type fakeCorrelator struct {
	incident *models.Incident
	err      error
}

func (c *fakeCorrelator) CorrelateAlert(ctx context.Context, alert *models.Alert, now time.Time) (*models.Incident, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	inc := c.incident
	if inc == nil {
		inc = &models.Incident{ID: uuid.New(), Status: models.IncidentOpen, StartedAt: alert.StartsAt, CreatedAt: now, UpdatedAt: now}
	}
	id := inc.ID
	alert.IncidentID = &id
	return inc, true, nil
}

func newAlertPayload(fingerprint, status string, startsAt time.Time) AlertPayload {
	return AlertPayload{
		Status:      status,
		Labels:      map[string]string{"alertname": "DiskFull", "severity": "warning"},
		StartsAt:    startsAt,
		Fingerprint: fingerprint,
	}
}

func TestProcessBatch_NewAlertInsertsAndCorrelates(t *testing.T) {
	fs := newFakeStore()
	fc := &fakeCorrelator{}
	p := New(fs, fc)
	p.Now = func() time.Time { return time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC) }

	payload := &AlertmanagerPayload{Alerts: []AlertPayload{
		newAlertPayload("fp1", "firing", time.Date(2026, 7, 29, 9, 55, 0, 0, time.UTC)),
	}}

	result := p.ProcessBatch(context.Background(), payload)
	if result.AlertsReceived != 1 {
		t.Fatalf("expected 1 alert received, got %d", result.AlertsReceived)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if _, ok := fs.byFingerprint["fp1"]; !ok {
		t.Fatalf("expected alert to be persisted")
	}
}

func TestProcessBatch_DuplicateFiringIsIgnored(t *testing.T) {
	fs := newFakeStore()
	existing := &models.Alert{ID: uuid.New(), Fingerprint: "fp1", Status: models.AlertStatusFiring, Severity: models.SeverityWarning, StartsAt: time.Now()}
	fs.byFingerprint["fp1"] = existing
	p := New(fs, &fakeCorrelator{})

	payload := &AlertmanagerPayload{Alerts: []AlertPayload{
		newAlertPayload("fp1", "firing", time.Now()),
	}}
	result := p.ProcessBatch(context.Background(), payload)

	if result.AlertsReceived != 1 {
		t.Fatalf("expected duplicate to still count as received, got %d", result.AlertsReceived)
	}
	if existing.Status != models.AlertStatusFiring {
		t.Fatalf("expected status unchanged")
	}
}

func TestProcessBatch_FiringToResolvedAutoResolvesIncidentWhenAllMembersDone(t *testing.T) {
	fs := newFakeStore()
	fc := &fakeCorrelator{}
	p := New(fs, fc)
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return now }

	incidentID := uuid.New()
	fs.incidents[incidentID] = &models.Incident{ID: incidentID, Status: models.IncidentOpen, StartedAt: now.Add(-time.Hour), CreatedAt: now, UpdatedAt: now}

	existing := &models.Alert{ID: uuid.New(), Fingerprint: "fp1", Status: models.AlertStatusFiring, Severity: models.SeverityWarning, StartsAt: now.Add(-time.Hour)}
	fs.attach(incidentID, existing)
	fs.byFingerprint["fp1"] = existing

	endsAt := now
	payload := &AlertmanagerPayload{Alerts: []AlertPayload{
		{Status: "resolved", Labels: map[string]string{"alertname": "DiskFull"}, StartsAt: now.Add(-time.Hour), EndsAt: &endsAt, Fingerprint: "fp1"},
	}}
	result := p.ProcessBatch(context.Background(), payload)

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if existing.Status != models.AlertStatusResolved {
		t.Fatalf("expected alert resolved")
	}
	if fs.incidents[incidentID].Status != models.IncidentResolved {
		t.Fatalf("expected incident auto-resolved, got %s", fs.incidents[incidentID].Status)
	}
	if fs.incidents[incidentID].ResolvedAt == nil {
		t.Fatalf("expected resolved_at stamped")
	}
}

func TestProcessBatch_ResolvedThenRefiresAfterIncidentResolvedGetsSuffixedFingerprint(t *testing.T) {
	fs := newFakeStore()
	fc := &fakeCorrelator{}
	p := New(fs, fc)
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return now }

	incidentID := uuid.New()
	fs.incidents[incidentID] = &models.Incident{ID: incidentID, Status: models.IncidentResolved, StartedAt: now.Add(-2 * time.Hour), CreatedAt: now, UpdatedAt: now}
	resolvedEndsAt := now.Add(-time.Hour)
	existing := &models.Alert{ID: uuid.New(), Fingerprint: "a1b2c3d4e5f67890", Status: models.AlertStatusResolved, Severity: models.SeverityWarning, StartsAt: now.Add(-2 * time.Hour), EndsAt: &resolvedEndsAt}
	existing.IncidentID = &incidentID
	fs.byFingerprint["a1b2c3d4e5f67890"] = existing

	payload := &AlertmanagerPayload{Alerts: []AlertPayload{
		newAlertPayload("a1b2c3d4e5f67890", "firing", now),
	}}
	result := p.ProcessBatch(context.Background(), payload)

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if result.AlertsReceived != 1 {
		t.Fatalf("expected 1 alert received, got %d", result.AlertsReceived)
	}
	if _, stillOld := fs.byFingerprint["a1b2c3d4e5f67890"]; !stillOld {
		t.Fatalf("expected original fingerprint row to remain untouched")
	}
	found := false
	for fp := range fs.byFingerprint {
		if fp != "a1b2c3d4e5f67890" {
			found = true
			if len(fp) != len("a1b2c3d4e5f67890")+1+8 {
				t.Fatalf("expected suffixed fingerprint of orig_hex8 shape, got %q", fp)
			}
		}
	}
	if !found {
		t.Fatalf("expected a freshly suffixed fingerprint row to be inserted")
	}
}

func TestProcessBatch_ResolvedThenRefiresWhileIncidentStillOpenReopensSameRow(t *testing.T) {
	fs := newFakeStore()
	p := New(fs, &fakeCorrelator{})
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return now }

	incidentID := uuid.New()
	fs.incidents[incidentID] = &models.Incident{ID: incidentID, Status: models.IncidentAnalyzing, StartedAt: now.Add(-time.Hour), CreatedAt: now, UpdatedAt: now}
	resolvedEndsAt := now.Add(-10 * time.Minute)
	existing := &models.Alert{ID: uuid.New(), Fingerprint: "fp1", Status: models.AlertStatusResolved, Severity: models.SeverityWarning, StartsAt: now.Add(-time.Hour), EndsAt: &resolvedEndsAt}
	existing.IncidentID = &incidentID
	fs.byFingerprint["fp1"] = existing

	payload := &AlertmanagerPayload{Alerts: []AlertPayload{newAlertPayload("fp1", "firing", now)}}
	result := p.ProcessBatch(context.Background(), payload)

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if existing.Status != models.AlertStatusFiring {
		t.Fatalf("expected existing row reopened to firing, got %s", existing.Status)
	}
	if len(fs.byFingerprint) != 1 {
		t.Fatalf("expected no new row inserted, got %d rows", len(fs.byFingerprint))
	}
}

func TestProcessBatch_MalformedAlertIsIsolatedNotFatal(t *testing.T) {
	fs := newFakeStore()
	p := New(fs, &fakeCorrelator{})

	payload := &AlertmanagerPayload{Alerts: []AlertPayload{
		newAlertPayload("fp-good", "firing", time.Now()),
		{Status: "firing", Labels: map[string]string{}, Fingerprint: "fp-bad"},
	}}
	result := p.ProcessBatch(context.Background(), payload)

	if result.AlertsReceived != 1 {
		t.Fatalf("expected 1 good alert received, got %d", result.AlertsReceived)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 isolated error, got %d", len(result.Errors))
	}
	if result.Errors[0].Fingerprint != "fp-bad" {
		t.Fatalf("expected error to reference bad fingerprint, got %q", result.Errors[0].Fingerprint)
	}
}

func TestAlertPayload_ValidateRejectsMissingRequiredFields(t *testing.T) {
	cases := []AlertPayload{
		{Status: "firing", Labels: map[string]string{"alertname": "X"}, StartsAt: time.Now()},
		{Status: "firing", Labels: map[string]string{}, StartsAt: time.Now(), Fingerprint: "fp"},
		{Status: "bogus", Labels: map[string]string{"alertname": "X"}, StartsAt: time.Now(), Fingerprint: "fp"},
		{Status: "firing", Labels: map[string]string{"alertname": "X"}, Fingerprint: "fp"},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error, got nil", i)
		}
	}
}

func TestSuffixedFingerprint_ProducesDistinctValuesEachCall(t *testing.T) {
	a := suffixedFingerprint("orig")
	b := suffixedFingerprint("orig")
	if a == b {
		t.Fatalf("expected distinct suffixes, got %q twice", a)
	}
	if len(a) != len("orig")+1+8 {
		t.Fatalf("expected orig_hex8 shape, got %q", a)
	}
}
