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

// CreateAlert inserts a new alert row.
func (s *Store) CreateAlert(ctx context.Context, a *models.Alert) error {
	labels, err := json.Marshal(a.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	annotations, err := json.Marshal(a.Annotations)
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (
			id, fingerprint, alertname, severity, status, labels, annotations,
			starts_at, ends_at, generator_url, incident_id, received_at,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.Fingerprint, a.AlertName, a.Severity, a.Status, labels, annotations,
		a.StartsAt, a.EndsAt, a.GeneratorURL, a.IncidentID, a.ReceivedAt,
		a.CreatedAt, a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetAlertByFingerprint returns the alert with the given fingerprint, or
// ErrNotFound if none exists.
func (s *Store) GetAlertByFingerprint(ctx context.Context, fingerprint string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, alertSelectColumns+` FROM alerts WHERE fingerprint = $1`, fingerprint)
	return scanAlert(row)
}

// GetAlertByID returns the alert with the given ID, or ErrNotFound.
func (s *Store) GetAlertByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, alertSelectColumns+` FROM alerts WHERE id = $1`, id)
	return scanAlert(row)
}

// UpdateAlertStatus transitions an alert's status, setting ends_at when
// transitioning to resolved.
func (s *Store) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status models.AlertStatus, endsAt *time.Time, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = $1, ends_at = $2, updated_at = $3 WHERE id = $4`,
		status, endsAt, now, id,
	)
	if err != nil {
		return fmt.Errorf("update alert status: %w", err)
	}
	return checkRowsAffected(res)
}

// SetAlertIncident assigns an alert to an incident.
func (s *Store) SetAlertIncident(ctx context.Context, id uuid.UUID, incidentID uuid.UUID, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET incident_id = $1, updated_at = $2 WHERE id = $3`,
		incidentID, now, id,
	)
	if err != nil {
		return fmt.Errorf("set alert incident: %w", err)
	}
	return checkRowsAffected(res)
}

// ListAlertsByIncident returns every alert belonging to an incident, ordered
// earliest-first (the ordering the correlation engine and RCA agent rely on
// for primary-alert election and timeline reconstruction).
func (s *Store) ListAlertsByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		alertSelectColumns+` FROM alerts WHERE incident_id = $1 ORDER BY starts_at ASC`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list alerts by incident: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// ListFiringAlertsByIncident returns just the firing alerts for an incident,
// earliest-first.
func (s *Store) ListFiringAlertsByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		alertSelectColumns+` FROM alerts WHERE incident_id = $1 AND status = $2 ORDER BY starts_at ASC`,
		incidentID, models.AlertStatusFiring)
	if err != nil {
		return nil, fmt.Errorf("list firing alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// ListCandidateAlerts returns recent alerts within the correlation time
// window, used as the search space for structural correlation.
func (s *Store) ListCandidateAlerts(ctx context.Context, since time.Time) ([]*models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		alertSelectColumns+` FROM alerts WHERE starts_at >= $1 ORDER BY starts_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("list candidate alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// AlertFilter narrows ListAlertsFiltered's result set; zero-value fields are
// not applied.
type AlertFilter struct {
	Status   *models.AlertStatus
	Severity *models.AlertSeverity
	Service  string
	Since    *time.Time
	Until    *time.Time
	Limit    int
	Offset   int
}

// ListAlertsFiltered implements GET /api/v1/alerts?status&severity&service&since&until&limit&offset,
// returning the page alongside the total count of matching rows (ignoring
// limit/offset) for pagination.
func (s *Store) ListAlertsFiltered(ctx context.Context, f AlertFilter) ([]*models.Alert, int, error) {
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
		where += " AND labels->>'service' = " + arg(f.Service)
	}
	if f.Since != nil {
		where += " AND starts_at >= " + arg(*f.Since)
	}
	if f.Until != nil {
		where += " AND starts_at <= " + arg(*f.Until)
	}

	var total int
	countArgs := append([]any{}, args...)
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM alerts `+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	limit, offset := f.Limit, f.Offset
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query := alertSelectColumns + ` FROM alerts ` + where +
		fmt.Sprintf(" ORDER BY starts_at DESC LIMIT %s OFFSET %s", arg(limit), arg(offset))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	items, err := scanAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const alertSelectColumns = `SELECT
	id, fingerprint, alertname, severity, status, labels, annotations,
	starts_at, ends_at, generator_url, incident_id, received_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	a := &models.Alert{}
	var labels, annotations []byte
	err := row.Scan(
		&a.ID, &a.Fingerprint, &a.AlertName, &a.Severity, &a.Status, &labels, &annotations,
		&a.StartsAt, &a.EndsAt, &a.GeneratorURL, &a.IncidentID, &a.ReceivedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	if err := json.Unmarshal(labels, &a.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	if len(annotations) > 0 {
		if err := json.Unmarshal(annotations, &a.Annotations); err != nil {
			return nil, fmt.Errorf("unmarshal annotations: %w", err)
		}
	}
	return a, nil
}

func scanAlerts(rows *sql.Rows) ([]*models.Alert, error) {
	var out []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), without importing pgconn directly so this
// package stays agnostic to the sql/driver in use.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	type sqlStater interface {
		SQLState() string
	}
	var s sqlStater
	if errors.As(err, &s) {
		return s.SQLState() == "23505"
	}
	return false
}
