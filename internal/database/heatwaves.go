package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oceanobs/sst-server/internal/grid"
)

// UpsertHeatwaveEvents writes detected events keyed by
// (start_date, lat_bin, lon_bin, threshold_percentile, dataset), so
// re-running detection refreshes an event in place.
func (db *DB) UpsertHeatwaveEvents(ctx context.Context, events []HeatwaveEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO marine_heatwaves (
			id, start_date, end_date, duration_days, lat_bin, lon_bin,
			max_intensity_c, mean_intensity_c, cumulative_intensity_c,
			threshold_percentile, dataset
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (start_date, lat_bin, lon_bin, threshold_percentile, dataset) DO UPDATE
		SET end_date = EXCLUDED.end_date,
		    duration_days = EXCLUDED.duration_days,
		    max_intensity_c = EXCLUDED.max_intensity_c,
		    mean_intensity_c = EXCLUDED.mean_intensity_c,
		    cumulative_intensity_c = EXCLUDED.cumulative_intensity_c
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare heatwave upsert: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		e := &events[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.StartDate, e.EndDate, e.DurationDays, e.LatBin, e.LonBin,
			e.MaxIntensityC, e.MeanIntensityC, e.CumulativeIntensityC,
			e.ThresholdPercentile, e.Dataset,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert heatwave starting %s (%v, %v): %w",
				e.StartDate.Format("2006-01-02"), e.LatBin, e.LonBin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit heatwave events: %w", err)
	}
	return len(events), nil
}

// DeleteHeatwavesOverlapping removes events for one percentile and
// dataset that overlap [start, end]. Detection reruns use it to clear
// stale events whose start date moved.
func (db *DB) DeleteHeatwavesOverlapping(ctx context.Context, start, end time.Time, percentile float64, dataset string) (int, error) {
	query := `
		DELETE FROM marine_heatwaves
		WHERE start_date <= $1 AND end_date >= $2
		  AND threshold_percentile = $3 AND dataset = $4
	`
	result, err := db.ExecContext(ctx, query, end, start, percentile, dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to delete heatwaves: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// HeatwaveFilter narrows an event query. An event matches when its
// [start_date, end_date] span overlaps [Start, End].
type HeatwaveFilter struct {
	Start       time.Time
	End         time.Time
	BBox        *grid.BBox
	Percentile  float64
	MinDuration int
	Dataset     string
	Limit       int
	Offset      int
}

func heatwavesQuery(f HeatwaveFilter) (string, []interface{}) {
	conds := []string{"start_date <= $1", "end_date >= $2"}
	args := []interface{}{f.End, f.Start}
	if f.Percentile > 0 {
		args = append(args, f.Percentile)
		conds = append(conds, fmt.Sprintf("threshold_percentile = $%d", len(args)))
	}
	if f.MinDuration > 0 {
		args = append(args, f.MinDuration)
		conds = append(conds, fmt.Sprintf("duration_days >= $%d", len(args)))
	}
	conds, args = appendDatasetCond(conds, args, f.Dataset)
	conds, args = appendBBoxConds(conds, args, f.BBox, "lat_bin", "lon_bin")

	query := fmt.Sprintf(`
		SELECT id, start_date, end_date, duration_days, lat_bin, lon_bin,
		       max_intensity_c, mean_intensity_c, cumulative_intensity_c,
		       threshold_percentile, dataset, created_at
		FROM marine_heatwaves
		WHERE %s
		ORDER BY start_date DESC, lat_bin, lon_bin
		LIMIT $%d OFFSET $%d
	`, strings.Join(conds, " AND "), len(args)+1, len(args)+2)
	return query, append(args, f.Limit, f.Offset)
}

// QueryHeatwaves reads detected events whose span overlaps the window,
// most recent start first.
func (db *DB) QueryHeatwaves(ctx context.Context, f HeatwaveFilter) ([]HeatwaveEvent, error) {
	query, args := heatwavesQuery(f)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query heatwaves: %w", err)
	}
	defer rows.Close()

	var events []HeatwaveEvent
	for rows.Next() {
		var e HeatwaveEvent
		if err := rows.Scan(
			&e.ID,
			&e.StartDate,
			&e.EndDate,
			&e.DurationDays,
			&e.LatBin,
			&e.LonBin,
			&e.MaxIntensityC,
			&e.MeanIntensityC,
			&e.CumulativeIntensityC,
			&e.ThresholdPercentile,
			&e.Dataset,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
