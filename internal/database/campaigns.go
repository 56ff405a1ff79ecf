package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/powerdisco/internal/model"
)

// RecordCampaign stores the summary of a finished campaign. Recording the
// same campaign again replaces the previous record.
func (adb *AssetDB) RecordCampaign(ctx context.Context, rec model.CampaignRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize campaign: %w", err)
	}

	query := `
	INSERT INTO campaigns (id, kind, discovered, addresses, cancelled, stuck, started_at, finished_at, record_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		discovered = excluded.discovered,
		cancelled = excluded.cancelled,
		stuck = excluded.stuck,
		finished_at = excluded.finished_at,
		record_json = excluded.record_json
	`

	_, err = adb.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.Request.Kind),
		rec.Status.Discovered,
		rec.Addresses,
		rec.Cancelled,
		rec.Stuck,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(recordJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	return nil
}

// ListCampaigns returns the most recent campaigns first. A limit of 0
// returns every campaign.
func (adb *AssetDB) ListCampaigns(ctx context.Context, limit int) ([]model.CampaignRecord, error) {
	query := `
	SELECT record_json FROM campaigns
	ORDER BY started_at DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var records []model.CampaignRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		var rec model.CampaignRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			continue // Skip malformed records
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetCampaign returns the campaign with the given id, or nil if there is none.
func (adb *AssetDB) GetCampaign(ctx context.Context, id string) (*model.CampaignRecord, error) {
	var recordJSON string
	err := adb.db.QueryRowContext(ctx, "SELECT record_json FROM campaigns WHERE id = ?", id).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	var rec model.CampaignRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse campaign: %w", err)
	}
	return &rec, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries every known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
