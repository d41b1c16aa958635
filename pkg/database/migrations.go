package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
)

// CreateFunctionalIndexes creates the functional index spec §6.4 calls for
// that a plain migration column index can't express: an index on
// alerts.labels->>'service'. Grounded on the teacher's
// pkg/database/migrations.go (CreateGINIndexes), adapted from ent's sql
// driver to a plain *sql.DB now that ent is no longer in the dependency tree.
func CreateFunctionalIndexes(ctx context.Context, db *stdsql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_alerts_labels_service
		 ON alerts ((labels->>'service'))`)
	if err != nil {
		return fmt.Errorf("failed to create alerts.labels.service functional index: %w", err)
	}
	return nil
}
