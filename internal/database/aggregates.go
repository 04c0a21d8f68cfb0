package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oceanobs/sst-server/internal/grid"
)

// UpsertDailyAggregates writes daily aggregates keyed by
// (date, lat_bin, lon_bin, dataset).
func (db *DB) UpsertDailyAggregates(ctx context.Context, aggregates []DailyAggregate) (int, error) {
	if len(aggregates) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sst_daily (
			id, date, lat_bin, lon_bin,
			avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (date, lat_bin, lon_bin, dataset) DO UPDATE
		SET avg_sst_c = EXCLUDED.avg_sst_c,
		    min_sst_c = EXCLUDED.min_sst_c,
		    max_sst_c = EXCLUDED.max_sst_c,
		    std_sst_c = EXCLUDED.std_sst_c,
		    count = EXCLUDED.count
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare daily upsert: %w", err)
	}
	defer stmt.Close()

	for i := range aggregates {
		a := &aggregates[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Date, a.LatBin, a.LonBin,
			a.AvgSSTC, a.MinSSTC, a.MaxSSTC, a.StdSSTC, a.Count, a.Dataset,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert daily aggregate for %s (%v, %v): %w",
				a.Date.Format("2006-01-02"), a.LatBin, a.LonBin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit daily aggregates: %w", err)
	}
	return len(aggregates), nil
}

// DailyAggregatesForMonth returns one month's daily aggregates for a
// dataset, ordered for deterministic grouping.
func (db *DB) DailyAggregatesForMonth(ctx context.Context, year, month int, dataset string) ([]DailyAggregate, error) {
	query := `
		SELECT id, date, lat_bin, lon_bin,
		       avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset, created_at
		FROM sst_daily
		WHERE EXTRACT(YEAR FROM date) = $1 AND EXTRACT(MONTH FROM date) = $2 AND dataset = $3
		ORDER BY lat_bin, lon_bin, date
	`
	return db.scanDailyAggregates(ctx, query, year, month, dataset)
}

// DailyAggregatesRange returns daily aggregates inside [start, end]
// ordered by cell then date, the order the heatwave scan consumes.
func (db *DB) DailyAggregatesRange(ctx context.Context, start, end time.Time, dataset string) ([]DailyAggregate, error) {
	query := `
		SELECT id, date, lat_bin, lon_bin,
		       avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset, created_at
		FROM sst_daily
		WHERE date >= $1 AND date <= $2 AND dataset = $3
		ORDER BY lat_bin, lon_bin, date
	`
	return db.scanDailyAggregates(ctx, query, start, end, dataset)
}

func (db *DB) scanDailyAggregates(ctx context.Context, query string, args ...interface{}) ([]DailyAggregate, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []DailyAggregate
	for rows.Next() {
		var a DailyAggregate
		if err := rows.Scan(
			&a.ID,
			&a.Date,
			&a.LatBin,
			&a.LonBin,
			&a.AvgSSTC,
			&a.MinSSTC,
			&a.MaxSSTC,
			&a.StdSSTC,
			&a.Count,
			&a.Dataset,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, a)
	}

	return aggregates, rows.Err()
}

// UpsertMonthlyAggregates writes monthly aggregates keyed by
// (year, month, lat_bin, lon_bin, dataset).
func (db *DB) UpsertMonthlyAggregates(ctx context.Context, aggregates []MonthlyAggregate) (int, error) {
	if len(aggregates) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sst_monthly (
			id, year, month, lat_bin, lon_bin,
			avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (year, month, lat_bin, lon_bin, dataset) DO UPDATE
		SET avg_sst_c = EXCLUDED.avg_sst_c,
		    min_sst_c = EXCLUDED.min_sst_c,
		    max_sst_c = EXCLUDED.max_sst_c,
		    std_sst_c = EXCLUDED.std_sst_c,
		    count = EXCLUDED.count
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare monthly upsert: %w", err)
	}
	defer stmt.Close()

	for i := range aggregates {
		a := &aggregates[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Year, a.Month, a.LatBin, a.LonBin,
			a.AvgSSTC, a.MinSSTC, a.MaxSSTC, a.StdSSTC, a.Count, a.Dataset,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert monthly aggregate for %d-%02d (%v, %v): %w",
				a.Year, a.Month, a.LatBin, a.LonBin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit monthly aggregates: %w", err)
	}
	return len(aggregates), nil
}

// MonthlyAggregatesForYear returns one year's monthly aggregates,
// ordered for deterministic grouping.
func (db *DB) MonthlyAggregatesForYear(ctx context.Context, year int, dataset string) ([]MonthlyAggregate, error) {
	query := `
		SELECT id, year, month, lat_bin, lon_bin,
		       avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset, created_at
		FROM sst_monthly
		WHERE year = $1 AND dataset = $2
		ORDER BY lat_bin, lon_bin, month
	`
	return db.scanMonthlyAggregates(ctx, query, year, dataset)
}

// MonthlyAggregatesForYears returns monthly aggregates with
// year in [startYear, endYear], the baseline builder's input.
func (db *DB) MonthlyAggregatesForYears(ctx context.Context, startYear, endYear int, dataset string) ([]MonthlyAggregate, error) {
	query := `
		SELECT id, year, month, lat_bin, lon_bin,
		       avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset, created_at
		FROM sst_monthly
		WHERE year >= $1 AND year <= $2 AND dataset = $3
		ORDER BY lat_bin, lon_bin, month, year
	`
	return db.scanMonthlyAggregates(ctx, query, startYear, endYear, dataset)
}

func (db *DB) scanMonthlyAggregates(ctx context.Context, query string, args ...interface{}) ([]MonthlyAggregate, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []MonthlyAggregate
	for rows.Next() {
		var a MonthlyAggregate
		if err := rows.Scan(
			&a.ID,
			&a.Year,
			&a.Month,
			&a.LatBin,
			&a.LonBin,
			&a.AvgSSTC,
			&a.MinSSTC,
			&a.MaxSSTC,
			&a.StdSSTC,
			&a.Count,
			&a.Dataset,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, a)
	}

	return aggregates, rows.Err()
}

// UpsertYearlyAggregates writes yearly aggregates keyed by
// (year, lat_bin, lon_bin, dataset).
func (db *DB) UpsertYearlyAggregates(ctx context.Context, aggregates []YearlyAggregate) (int, error) {
	if len(aggregates) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sst_yearly (
			id, year, lat_bin, lon_bin,
			avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (year, lat_bin, lon_bin, dataset) DO UPDATE
		SET avg_sst_c = EXCLUDED.avg_sst_c,
		    min_sst_c = EXCLUDED.min_sst_c,
		    max_sst_c = EXCLUDED.max_sst_c,
		    std_sst_c = EXCLUDED.std_sst_c,
		    count = EXCLUDED.count
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare yearly upsert: %w", err)
	}
	defer stmt.Close()

	for i := range aggregates {
		a := &aggregates[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Year, a.LatBin, a.LonBin,
			a.AvgSSTC, a.MinSSTC, a.MaxSSTC, a.StdSSTC, a.Count, a.Dataset,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert yearly aggregate for %d (%v, %v): %w",
				a.Year, a.LatBin, a.LonBin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit yearly aggregates: %w", err)
	}
	return len(aggregates), nil
}

// TemperatureFilter narrows a temperature query. Start and End are
// inclusive; for monthly and yearly resolutions a record is included
// when its calendar period intersects the range.
type TemperatureFilter struct {
	Start      time.Time
	End        time.Time
	Resolution string
	BBox       *grid.BBox
	Dataset    string
	Limit      int
	Offset     int
}

// TemperatureReading is the normalized read model served by the query
// layer: Time is "2006-01-02", "2006-01" or "2006" depending on the
// resolution queried.
type TemperatureReading struct {
	Time    string  `json:"time"`
	LatBin  float64 `json:"lat_bin"`
	LonBin  float64 `json:"lon_bin"`
	AvgSSTC float64 `json:"avg_sst_c"`
	MinSSTC float64 `json:"min_sst_c"`
	MaxSSTC float64 `json:"max_sst_c"`
	StdSSTC float64 `json:"std_sst_c"`
	Count   int     `json:"count"`
	Dataset string  `json:"dataset"`
}

// QueryTemperatures reads temperature records at the requested
// resolution. Grid rows surface the raw value in all three stat
// columns with a count of one.
func (db *DB) QueryTemperatures(ctx context.Context, f TemperatureFilter) ([]TemperatureReading, error) {
	switch f.Resolution {
	case "grid":
		return db.queryGridTemperatures(ctx, f)
	case "daily":
		return db.queryDailyTemperatures(ctx, f)
	case "monthly":
		return db.queryMonthlyTemperatures(ctx, f)
	case "yearly":
		return db.queryYearlyTemperatures(ctx, f)
	default:
		return nil, fmt.Errorf("unknown resolution %q", f.Resolution)
	}
}

// The API reads page newest-first: a limited query answers "what is
// happening lately", so the time key descends and bins break ties.
func gridTemperaturesQuery(f TemperatureFilter) (string, []interface{}) {
	conds := []string{"date >= $1", "date <= $2", "sst_c IS NOT NULL"}
	args := []interface{}{f.Start, f.End}
	conds, args = appendDatasetCond(conds, args, f.Dataset)
	conds, args = appendBBoxConds(conds, args, f.BBox, "lat", "lon")

	query := fmt.Sprintf(`
		SELECT date, lat, lon, sst_c, dataset
		FROM sst_grid
		WHERE %s
		ORDER BY date DESC, lat, lon
		LIMIT $%d OFFSET $%d
	`, strings.Join(conds, " AND "), len(args)+1, len(args)+2)
	return query, append(args, f.Limit, f.Offset)
}

func (db *DB) queryGridTemperatures(ctx context.Context, f TemperatureFilter) ([]TemperatureReading, error) {
	query, args := gridTemperaturesQuery(f)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grid temperatures: %w", err)
	}
	defer rows.Close()

	var readings []TemperatureReading
	for rows.Next() {
		var (
			date time.Time
			r    TemperatureReading
		)
		if err := rows.Scan(&date, &r.LatBin, &r.LonBin, &r.AvgSSTC, &r.Dataset); err != nil {
			return nil, err
		}
		r.Time = date.Format("2006-01-02")
		r.MinSSTC = r.AvgSSTC
		r.MaxSSTC = r.AvgSSTC
		r.Count = 1
		readings = append(readings, r)
	}

	return readings, rows.Err()
}

func dailyTemperaturesQuery(f TemperatureFilter) (string, []interface{}) {
	conds := []string{"date >= $1", "date <= $2"}
	args := []interface{}{f.Start, f.End}
	conds, args = appendDatasetCond(conds, args, f.Dataset)
	conds, args = appendBBoxConds(conds, args, f.BBox, "lat_bin", "lon_bin")

	query := fmt.Sprintf(`
		SELECT date, lat_bin, lon_bin, avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset
		FROM sst_daily
		WHERE %s
		ORDER BY date DESC, lat_bin, lon_bin
		LIMIT $%d OFFSET $%d
	`, strings.Join(conds, " AND "), len(args)+1, len(args)+2)
	return query, append(args, f.Limit, f.Offset)
}

func (db *DB) queryDailyTemperatures(ctx context.Context, f TemperatureFilter) ([]TemperatureReading, error) {
	query, args := dailyTemperaturesQuery(f)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily temperatures: %w", err)
	}
	defer rows.Close()

	var readings []TemperatureReading
	for rows.Next() {
		var (
			date time.Time
			r    TemperatureReading
		)
		if err := rows.Scan(&date, &r.LatBin, &r.LonBin,
			&r.AvgSSTC, &r.MinSSTC, &r.MaxSSTC, &r.StdSSTC, &r.Count, &r.Dataset); err != nil {
			return nil, err
		}
		r.Time = date.Format("2006-01-02")
		readings = append(readings, r)
	}

	return readings, rows.Err()
}

func monthlyTemperaturesQuery(f TemperatureFilter) (string, []interface{}) {
	startKey := f.Start.Year()*100 + int(f.Start.Month())
	endKey := f.End.Year()*100 + int(f.End.Month())

	conds := []string{"(year * 100 + month) >= $1", "(year * 100 + month) <= $2"}
	args := []interface{}{startKey, endKey}
	conds, args = appendDatasetCond(conds, args, f.Dataset)
	conds, args = appendBBoxConds(conds, args, f.BBox, "lat_bin", "lon_bin")

	query := fmt.Sprintf(`
		SELECT year, month, lat_bin, lon_bin, avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset
		FROM sst_monthly
		WHERE %s
		ORDER BY year DESC, month DESC, lat_bin, lon_bin
		LIMIT $%d OFFSET $%d
	`, strings.Join(conds, " AND "), len(args)+1, len(args)+2)
	return query, append(args, f.Limit, f.Offset)
}

func (db *DB) queryMonthlyTemperatures(ctx context.Context, f TemperatureFilter) ([]TemperatureReading, error) {
	query, args := monthlyTemperaturesQuery(f)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly temperatures: %w", err)
	}
	defer rows.Close()

	var readings []TemperatureReading
	for rows.Next() {
		var (
			year, month int
			r           TemperatureReading
		)
		if err := rows.Scan(&year, &month, &r.LatBin, &r.LonBin,
			&r.AvgSSTC, &r.MinSSTC, &r.MaxSSTC, &r.StdSSTC, &r.Count, &r.Dataset); err != nil {
			return nil, err
		}
		r.Time = fmt.Sprintf("%04d-%02d", year, month)
		readings = append(readings, r)
	}

	return readings, rows.Err()
}

func yearlyTemperaturesQuery(f TemperatureFilter) (string, []interface{}) {
	conds := []string{"year >= $1", "year <= $2"}
	args := []interface{}{f.Start.Year(), f.End.Year()}
	conds, args = appendDatasetCond(conds, args, f.Dataset)
	conds, args = appendBBoxConds(conds, args, f.BBox, "lat_bin", "lon_bin")

	query := fmt.Sprintf(`
		SELECT year, lat_bin, lon_bin, avg_sst_c, min_sst_c, max_sst_c, std_sst_c, count, dataset
		FROM sst_yearly
		WHERE %s
		ORDER BY year DESC, lat_bin, lon_bin
		LIMIT $%d OFFSET $%d
	`, strings.Join(conds, " AND "), len(args)+1, len(args)+2)
	return query, append(args, f.Limit, f.Offset)
}

func (db *DB) queryYearlyTemperatures(ctx context.Context, f TemperatureFilter) ([]TemperatureReading, error) {
	query, args := yearlyTemperaturesQuery(f)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query yearly temperatures: %w", err)
	}
	defer rows.Close()

	var readings []TemperatureReading
	for rows.Next() {
		var (
			year int
			r    TemperatureReading
		)
		if err := rows.Scan(&year, &r.LatBin, &r.LonBin,
			&r.AvgSSTC, &r.MinSSTC, &r.MaxSSTC, &r.StdSSTC, &r.Count, &r.Dataset); err != nil {
			return nil, err
		}
		r.Time = fmt.Sprintf("%04d", year)
		readings = append(readings, r)
	}

	return readings, rows.Err()
}

func appendDatasetCond(conds []string, args []interface{}, dataset string) ([]string, []interface{}) {
	if dataset == "" {
		return conds, args
	}
	args = append(args, dataset)
	return append(conds, fmt.Sprintf("dataset = $%d", len(args))), args
}

func appendBBoxConds(conds []string, args []interface{}, b *grid.BBox, latCol, lonCol string) ([]string, []interface{}) {
	if b == nil {
		return conds, args
	}
	args = append(args, b.MinLat, b.MaxLat)
	conds = append(conds, fmt.Sprintf("%s BETWEEN $%d AND $%d", latCol, len(args)-1, len(args)))
	args = append(args, b.MinLon, b.MaxLon)
	conds = append(conds, fmt.Sprintf("%s BETWEEN $%d AND $%d", lonCol, len(args)-1, len(args)))
	return conds, args
}
