package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UpsertClimateBaselines writes climatology records keyed by
// (lat_bin, lon_bin, month, period_start, period_end, dataset).
func (db *DB) UpsertClimateBaselines(ctx context.Context, baselines []ClimateBaseline) (int, error) {
	if len(baselines) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO climate_baselines (
			id, lat_bin, lon_bin, month, period_start, period_end,
			climatology_sst_c, std_sst_c, dataset
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (lat_bin, lon_bin, month, period_start, period_end, dataset) DO UPDATE
		SET climatology_sst_c = EXCLUDED.climatology_sst_c,
		    std_sst_c = EXCLUDED.std_sst_c
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare baseline upsert: %w", err)
	}
	defer stmt.Close()

	for i := range baselines {
		b := &baselines[i]
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			b.ID, b.LatBin, b.LonBin, b.Month, b.PeriodStart, b.PeriodEnd,
			b.ClimatologySSTC, b.StdSSTC, b.Dataset,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert baseline for month %d (%v, %v): %w",
				b.Month, b.LatBin, b.LonBin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit baselines: %w", err)
	}
	return len(baselines), nil
}

// BaselinesForPeriod returns all climatology records for one reference
// period and dataset.
func (db *DB) BaselinesForPeriod(ctx context.Context, periodStart, periodEnd int, dataset string) ([]ClimateBaseline, error) {
	query := `
		SELECT id, lat_bin, lon_bin, month, period_start, period_end,
		       climatology_sst_c, std_sst_c, dataset, created_at
		FROM climate_baselines
		WHERE period_start = $1 AND period_end = $2 AND dataset = $3
		ORDER BY lat_bin, lon_bin, month
	`

	rows, err := db.QueryContext(ctx, query, periodStart, periodEnd, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query baselines: %w", err)
	}
	defer rows.Close()

	var baselines []ClimateBaseline
	for rows.Next() {
		var b ClimateBaseline
		if err := rows.Scan(
			&b.ID,
			&b.LatBin,
			&b.LonBin,
			&b.Month,
			&b.PeriodStart,
			&b.PeriodEnd,
			&b.ClimatologySSTC,
			&b.StdSSTC,
			&b.Dataset,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		baselines = append(baselines, b)
	}

	return baselines, rows.Err()
}
