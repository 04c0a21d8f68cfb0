package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpsertGridObservations writes a batch of observations in one
// transaction, keyed by (date, lat, lon, dataset). Re-delivered
// observations overwrite the previous value. Returns the number of
// rows written.
func (db *DB) UpsertGridObservations(ctx context.Context, observations []*GridObservation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sst_grid (id, date, lat, lon, sst_c, dataset, resolution, quality_flag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date, lat, lon, dataset) DO UPDATE
		SET sst_c = EXCLUDED.sst_c,
		    resolution = EXCLUDED.resolution,
		    quality_flag = EXCLUDED.quality_flag
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare observation upsert: %w", err)
	}
	defer stmt.Close()

	for _, obs := range observations {
		if obs.ID == "" {
			obs.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			obs.ID, obs.Date, obs.Lat, obs.Lon, obs.SSTC,
			obs.Dataset, obs.Resolution, obs.QualityFlag,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert observation for %s (%v, %v): %w",
				obs.Date.Format("2006-01-02"), obs.Lat, obs.Lon, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit observation batch: %w", err)
	}
	return len(observations), nil
}

// GridObservationsForDate returns all observations for one day and
// dataset that carry a temperature value.
func (db *DB) GridObservationsForDate(ctx context.Context, date time.Time, dataset string) ([]GridObservation, error) {
	query := `
		SELECT id, date, lat, lon, sst_c, dataset, resolution, quality_flag, created_at
		FROM sst_grid
		WHERE date = $1 AND dataset = $2 AND sst_c IS NOT NULL
		ORDER BY lat, lon
	`

	rows, err := db.QueryContext(ctx, query, date, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var observations []GridObservation
	for rows.Next() {
		var obs GridObservation
		if err := rows.Scan(
			&obs.ID,
			&obs.Date,
			&obs.Lat,
			&obs.Lon,
			&obs.SSTC,
			&obs.Dataset,
			&obs.Resolution,
			&obs.QualityFlag,
			&obs.CreatedAt,
		); err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}

	return observations, rows.Err()
}

// ObservationDatesInRange returns the distinct dates with observations
// for a dataset inside [start, end], in order. Backfills iterate these
// instead of every calendar day.
func (db *DB) ObservationDatesInRange(ctx context.Context, start, end time.Time, dataset string) ([]time.Time, error) {
	query := `
		SELECT DISTINCT date
		FROM sst_grid
		WHERE date >= $1 AND date <= $2 AND dataset = $3
		ORDER BY date
	`

	rows, err := db.QueryContext(ctx, query, start, end, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query observation dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}

	return dates, rows.Err()
}
