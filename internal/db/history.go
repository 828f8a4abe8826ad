package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record is one committed operation.
type Record struct {
	ID          string    `json:"id" doc:"Record id"`
	SaveID      string    `json:"saveId" doc:"Id shared by all operations of one save"`
	Dataset     string    `json:"dataset" doc:"Dataset id"`
	FeatureID   string    `json:"featureId" doc:"Server feature id"`
	Action      string    `json:"action" enum:"insert,update,delete" doc:"Operation kind"`
	Feature     string    `json:"feature,omitempty" doc:"GeoJSON of the committed (or, for deletes, last known) state"`
	CommittedAt time.Time `json:"committedAt" doc:"Commit time"`
}

const schema = `CREATE TABLE IF NOT EXISTS edit_history (
	id           VARCHAR PRIMARY KEY,
	save_id      VARCHAR NOT NULL,
	dataset      VARCHAR NOT NULL,
	feature_id   VARCHAR NOT NULL,
	action       VARCHAR NOT NULL,
	feature      VARCHAR,
	committed_at TIMESTAMP NOT NULL
)`

// History stores committed edits.
type History struct {
	db *sql.DB
}

// NewHistory creates the history table if needed.
func NewHistory(ctx context.Context, db *sql.DB) (*History, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create edit_history: %w", err)
	}
	return &History{db: db}, nil
}

// Record appends records in one transaction.
func (h *History) Record(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO edit_history
		(id, save_id, dataset, feature_id, action, feature, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.SaveID, r.Dataset, r.FeatureID, r.Action, r.Feature, r.CommittedAt); err != nil {
			return fmt.Errorf("insert history %s: %w", r.FeatureID, err)
		}
	}
	return tx.Commit()
}

// List returns the newest records first. Empty dataset or featureID match all.
func (h *History) List(ctx context.Context, dataset, featureID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := h.db.QueryContext(ctx, `SELECT id, save_id, dataset, feature_id, action, coalesce(feature, ''), committed_at
		FROM edit_history
		WHERE (? = '' OR dataset = ?) AND (? = '' OR feature_id = ?)
		ORDER BY committed_at DESC, id DESC
		LIMIT ?`, dataset, dataset, featureID, featureID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.SaveID, &r.Dataset, &r.FeatureID, &r.Action, &r.Feature, &r.CommittedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
