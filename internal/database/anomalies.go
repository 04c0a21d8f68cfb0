package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oceanobs/sst-server/internal/grid"
)

// UpsertTemperatureAnomalies writes anomalies keyed by
// (date, lat_bin, lon_bin, baseline_period, dataset).
func (db *DB) UpsertTemperatureAnomalies(ctx context.Context, anomalies []TemperatureAnomaly) (int, error) {
	if len(anomalies) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO temperature_anomalies (
			id, date, lat_bin, lon_bin, anomaly_c, baseline_period, dataset
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date, lat_bin, lon_bin, baseline_period, dataset) DO UPDATE
		SET anomaly_c = EXCLUDED.anomaly_c
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare anomaly upsert: %w", err)
	}
	defer stmt.Close()

	for i := range anomalies {
		a := &anomalies[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Date, a.LatBin, a.LonBin, a.AnomalyC, a.BaselinePeriod, a.Dataset,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert anomaly for %s (%v, %v): %w",
				a.Date.Format("2006-01"), a.LatBin, a.LonBin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit anomalies: %w", err)
	}
	return len(anomalies), nil
}

// AnomalyFilter narrows an anomaly query. MinAbsAnomaly keeps only
// departures at least that large in either direction.
type AnomalyFilter struct {
	Start          time.Time
	End            time.Time
	BaselinePeriod string
	BBox           *grid.BBox
	Dataset        string
	MinAbsAnomaly  float64
	Limit          int
	Offset         int
}

func anomaliesQuery(f AnomalyFilter) (string, []interface{}) {
	conds := []string{"date >= $1", "date <= $2"}
	args := []interface{}{f.Start, f.End}
	if f.BaselinePeriod != "" {
		args = append(args, f.BaselinePeriod)
		conds = append(conds, fmt.Sprintf("baseline_period = $%d", len(args)))
	}
	conds, args = appendDatasetCond(conds, args, f.Dataset)
	conds, args = appendBBoxConds(conds, args, f.BBox, "lat_bin", "lon_bin")
	if f.MinAbsAnomaly > 0 {
		args = append(args, f.MinAbsAnomaly)
		conds = append(conds, fmt.Sprintf("ABS(anomaly_c) >= $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id, date, lat_bin, lon_bin, anomaly_c, baseline_period, dataset, created_at
		FROM temperature_anomalies
		WHERE %s
		ORDER BY date DESC, lat_bin, lon_bin
		LIMIT $%d OFFSET $%d
	`, strings.Join(conds, " AND "), len(args)+1, len(args)+2)
	return query, append(args, f.Limit, f.Offset)
}

// QueryAnomalies reads monthly anomalies inside the window, newest
// first.
func (db *DB) QueryAnomalies(ctx context.Context, f AnomalyFilter) ([]TemperatureAnomaly, error) {
	query, args := anomaliesQuery(f)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []TemperatureAnomaly
	for rows.Next() {
		var a TemperatureAnomaly
		if err := rows.Scan(
			&a.ID,
			&a.Date,
			&a.LatBin,
			&a.LonBin,
			&a.AnomalyC,
			&a.BaselinePeriod,
			&a.Dataset,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		anomalies = append(anomalies, a)
	}

	return anomalies, rows.Err()
}
