package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/google/uuid"
)

// CreateIncident inserts a new incident row.
func (s *Store) CreateIncident(ctx context.Context, inc *models.Incident) error {
	services, err := json.Marshal(inc.AffectedServices)
	if err != nil {
		return fmt.Errorf("marshal affected_services: %w", err)
	}
	labels, err := json.Marshal(inc.AffectedLabels)
	if err != nil {
		return fmt.Errorf("marshal affected_labels: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO incidents (
			id, title, status, severity, primary_alert_id, correlation_reason,
			affected_services, affected_labels, started_at, resolved_at,
			rca_completed_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		inc.ID, inc.Title, inc.Status, inc.Severity, inc.PrimaryAlertID, inc.CorrelationReason,
		services, labels, inc.StartedAt, inc.ResolvedAt, inc.RCACompletedAt,
		inc.CreatedAt, inc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// GetIncident returns the incident with the given ID, or ErrNotFound.
func (s *Store) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	row := s.db.QueryRowContext(ctx, incidentSelectColumns+` FROM incidents WHERE id = $1`, id)
	return scanIncident(row)
}

// UpdateIncident persists the full, mutable state of an incident (status,
// severity, correlation metadata, affected services/labels, and timestamps).
func (s *Store) UpdateIncident(ctx context.Context, inc *models.Incident) error {
	services, err := json.Marshal(inc.AffectedServices)
	if err != nil {
		return fmt.Errorf("marshal affected_services: %w", err)
	}
	labels, err := json.Marshal(inc.AffectedLabels)
	if err != nil {
		return fmt.Errorf("marshal affected_labels: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE incidents SET
			title = $1, status = $2, severity = $3, primary_alert_id = $4,
			correlation_reason = $5, affected_services = $6, affected_labels = $7,
			resolved_at = $8, rca_completed_at = $9, updated_at = $10
		WHERE id = $11`,
		inc.Title, inc.Status, inc.Severity, inc.PrimaryAlertID, inc.CorrelationReason,
		services, labels, inc.ResolvedAt, inc.RCACompletedAt, inc.UpdatedAt, inc.ID,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return checkRowsAffected(res)
}

// ListIncidents returns incidents matching an optional status filter, newest
// first, for the read API.
func (s *Store) ListIncidents(ctx context.Context, status *models.IncidentStatus, limit, offset int) ([]*models.Incident, error) {
	var rows *sql.Rows
	var err error
	if status != nil {
		rows, err = s.db.QueryContext(ctx,
			incidentSelectColumns+` FROM incidents WHERE status = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
			*status, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			incidentSelectColumns+` FROM incidents ORDER BY started_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// ListCandidateIncidents returns open/analyzing incidents whose started_at
// falls within [windowStart, windowEnd], the search space the correlation
// engine scores a new alert against.
func (s *Store) ListCandidateIncidents(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		incidentSelectColumns+` FROM incidents
		 WHERE status IN ($1, $2) AND started_at >= $3 AND started_at <= $4
		 ORDER BY started_at ASC`,
		models.IncidentOpen, models.IncidentAnalyzing, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list candidate incidents: %w", err)
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// ListIncidentsNeedingRCA returns open incidents that have never completed an
// RCA run, oldest first — the worker pool's claim source. Excluding
// incidents with rca_completed_at set keeps a still-firing incident (one
// ingestion hasn't auto-resolved) from being re-claimed and re-analyzed on
// every poll once it already has a report.
func (s *Store) ListIncidentsNeedingRCA(ctx context.Context, limit int) ([]*models.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		incidentSelectColumns+` FROM incidents
		 WHERE status = $1 AND rca_completed_at IS NULL
		 ORDER BY started_at ASC LIMIT $2`,
		models.IncidentOpen, limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents needing rca: %w", err)
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// ListStuckAnalyzing returns incidents stuck in the analyzing state, e.g.
// after a process crash mid-investigation, for the admin reset-stuck
// operation.
func (s *Store) ListStuckAnalyzing(ctx context.Context) ([]*models.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		incidentSelectColumns+` FROM incidents WHERE status = $1`, models.IncidentAnalyzing)
	if err != nil {
		return nil, fmt.Errorf("list stuck incidents: %w", err)
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// IncidentFilter narrows ListIncidentsFiltered's result set; zero-value
// fields are not applied.
type IncidentFilter struct {
	Status   *models.IncidentStatus
	Severity *models.IncidentSeverity
	Service  string
	Since    *time.Time
	Until    *time.Time
	Limit    int
	Offset   int
}

// IncidentWithCount pairs an incident with its member-alert count, the shape
// GET /api/v1/incidents rows require.
type IncidentWithCount struct {
	*models.Incident
	AlertCount int
}

// ListIncidentsFiltered implements GET /api/v1/incidents?status&severity&service&since&until&limit&offset,
// returning each row's alert_count alongside the total matching count.
func (s *Store) ListIncidentsFiltered(ctx context.Context, f IncidentFilter) ([]*IncidentWithCount, int, error) {
	where := "WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != nil {
		where += " AND status = " + arg(*f.Status)
	}
	if f.Severity != nil {
		where += " AND severity = " + arg(*f.Severity)
	}
	if f.Service != "" {
		where += " AND affected_services @> " + arg(`["`+f.Service+`"]`)
	}
	if f.Since != nil {
		where += " AND started_at >= " + arg(*f.Since)
	}
	if f.Until != nil {
		where += " AND started_at <= " + arg(*f.Until)
	}

	var total int
	countArgs := append([]any{}, args...)
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM incidents `+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}

	limit, offset := f.Limit, f.Offset
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT i.id, i.title, i.status, i.severity, i.primary_alert_id, i.correlation_reason,
		i.affected_services, i.affected_labels, i.started_at, i.resolved_at,
		i.rca_completed_at, i.created_at, i.updated_at,
		(SELECT count(*) FROM alerts a WHERE a.incident_id = i.id) AS alert_count
		FROM incidents i ` + where +
		fmt.Sprintf(" ORDER BY i.started_at DESC LIMIT %s OFFSET %s", arg(limit), arg(offset))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []*IncidentWithCount
	for rows.Next() {
		inc := &models.Incident{}
		var services, labels []byte
		var count int
		if err := rows.Scan(
			&inc.ID, &inc.Title, &inc.Status, &inc.Severity, &inc.PrimaryAlertID, &inc.CorrelationReason,
			&services, &labels, &inc.StartedAt, &inc.ResolvedAt,
			&inc.RCACompletedAt, &inc.CreatedAt, &inc.UpdatedAt, &count,
		); err != nil {
			return nil, 0, fmt.Errorf("scan incident: %w", err)
		}
		if err := json.Unmarshal(services, &inc.AffectedServices); err != nil {
			return nil, 0, fmt.Errorf("unmarshal affected_services: %w", err)
		}
		if len(labels) > 0 {
			if err := json.Unmarshal(labels, &inc.AffectedLabels); err != nil {
				return nil, 0, fmt.Errorf("unmarshal affected_labels: %w", err)
			}
		}
		out = append(out, &IncidentWithCount{Incident: inc, AlertCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

const incidentSelectColumns = `SELECT
	id, title, status, severity, primary_alert_id, correlation_reason,
	affected_services, affected_labels, started_at, resolved_at,
	rca_completed_at, created_at, updated_at`

func scanIncident(row rowScanner) (*models.Incident, error) {
	inc := &models.Incident{}
	var services, labels []byte
	err := row.Scan(
		&inc.ID, &inc.Title, &inc.Status, &inc.Severity, &inc.PrimaryAlertID, &inc.CorrelationReason,
		&services, &labels, &inc.StartedAt, &inc.ResolvedAt,
		&inc.RCACompletedAt, &inc.CreatedAt, &inc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan incident: %w", err)
	}
	if err := json.Unmarshal(services, &inc.AffectedServices); err != nil {
		return nil, fmt.Errorf("unmarshal affected_services: %w", err)
	}
	if len(labels) > 0 {
		if err := json.Unmarshal(labels, &inc.AffectedLabels); err != nil {
			return nil, fmt.Errorf("unmarshal affected_labels: %w", err)
		}
	}
	return inc, nil
}

func scanIncidents(rows *sql.Rows) ([]*models.Incident, error) {
	var out []*models.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}
