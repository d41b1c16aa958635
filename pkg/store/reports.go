package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/google/uuid"
)

// CreateReport inserts a new RCA report row. There is at most one report per
// incident (enforced by the rca_reports.incident_id unique index).
func (s *Store) CreateReport(ctx context.Context, r *models.RCAReport) error {
	timeline, err := json.Marshal(r.Timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	evidence, err := json.Marshal(r.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	steps, err := json.Marshal(r.RemediationSteps)
	if err != nil {
		return fmt.Errorf("marshal remediation_steps: %w", err)
	}
	metadata, err := json.Marshal(r.AnalysisMetadata)
	if err != nil {
		return fmt.Errorf("marshal analysis_metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rca_reports (
			id, incident_id, root_cause, confidence_score, summary, timeline,
			evidence, remediation_steps, analysis_metadata, status, error_message,
			started_at, completed_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		r.ID, r.IncidentID, r.RootCause, r.ConfidenceScore, r.Summary, timeline,
		evidence, steps, metadata, r.Status, r.ErrorMessage,
		r.StartedAt, r.CompletedAt, r.CreatedAt, r.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert rca report: %w", err)
	}
	return nil
}

// UpdateReport overwrites an existing report's mutable fields, used when the
// agent loop finalizes (or fails) an investigation started as "pending".
func (s *Store) UpdateReport(ctx context.Context, r *models.RCAReport) error {
	timeline, err := json.Marshal(r.Timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	evidence, err := json.Marshal(r.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	steps, err := json.Marshal(r.RemediationSteps)
	if err != nil {
		return fmt.Errorf("marshal remediation_steps: %w", err)
	}
	metadata, err := json.Marshal(r.AnalysisMetadata)
	if err != nil {
		return fmt.Errorf("marshal analysis_metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE rca_reports SET
			root_cause = $1, confidence_score = $2, summary = $3, timeline = $4,
			evidence = $5, remediation_steps = $6, analysis_metadata = $7,
			status = $8, error_message = $9, completed_at = $10, updated_at = $11
		WHERE id = $12`,
		r.RootCause, r.ConfidenceScore, r.Summary, timeline, evidence, steps,
		metadata, r.Status, r.ErrorMessage, r.CompletedAt, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update rca report: %w", err)
	}
	return checkRowsAffected(res)
}

// GetReportByIncident returns the report for an incident, or ErrNotFound.
func (s *Store) GetReportByIncident(ctx context.Context, incidentID uuid.UUID) (*models.RCAReport, error) {
	row := s.db.QueryRowContext(ctx, reportSelectColumns+` FROM rca_reports WHERE incident_id = $1`, incidentID)
	return scanReport(row)
}

// GetReport returns the report with the given ID, or ErrNotFound.
func (s *Store) GetReport(ctx context.Context, id uuid.UUID) (*models.RCAReport, error) {
	row := s.db.QueryRowContext(ctx, reportSelectColumns+` FROM rca_reports WHERE id = $1`, id)
	return scanReport(row)
}

// ListReports returns reports matching an optional status filter, most
// recently started first.
func (s *Store) ListReports(ctx context.Context, status *models.RCAReportStatus, limit, offset int) ([]*models.RCAReport, error) {
	var rows *sql.Rows
	var err error
	if status != nil {
		rows, err = s.db.QueryContext(ctx,
			reportSelectColumns+` FROM rca_reports WHERE status = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
			*status, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			reportSelectColumns+` FROM rca_reports ORDER BY started_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list rca reports: %w", err)
	}
	defer rows.Close()

	var out []*models.RCAReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const reportSelectColumns = `SELECT
	id, incident_id, root_cause, confidence_score, summary, timeline, evidence,
	remediation_steps, analysis_metadata, status, error_message, started_at,
	completed_at, created_at, updated_at`

func scanReport(row rowScanner) (*models.RCAReport, error) {
	r := &models.RCAReport{}
	var timeline, evidence, steps, metadata []byte
	err := row.Scan(
		&r.ID, &r.IncidentID, &r.RootCause, &r.ConfidenceScore, &r.Summary, &timeline,
		&evidence, &steps, &metadata, &r.Status, &r.ErrorMessage, &r.StartedAt,
		&r.CompletedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan rca report: %w", err)
	}
	if err := json.Unmarshal(timeline, &r.Timeline); err != nil {
		return nil, fmt.Errorf("unmarshal timeline: %w", err)
	}
	if err := json.Unmarshal(evidence, &r.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	if err := json.Unmarshal(steps, &r.RemediationSteps); err != nil {
		return nil, fmt.Errorf("unmarshal remediation_steps: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &r.AnalysisMetadata); err != nil {
			return nil, fmt.Errorf("unmarshal analysis_metadata: %w", err)
		}
	}
	return r, nil
}
