package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oceanobs/sst-server/internal/grid"
)

// DatasetAvailability describes what one dataset holds at one
// resolution. Date and bound fields are nil when no records exist.
type DatasetAvailability struct {
	Dataset      string     `json:"dataset"`
	Resolution   string     `json:"resolution"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	TotalRecords int64      `json:"total_records"`
	MinLat       *float64   `json:"min_lat"`
	MaxLat       *float64   `json:"max_lat"`
	MinLon       *float64   `json:"min_lon"`
	MaxLon       *float64   `json:"max_lon"`
}

// DatasetAvailability reports the date span, record count and spatial
// bounds for a dataset at the given resolution.
func (db *DB) DatasetAvailability(ctx context.Context, dataset, resolution string) (*DatasetAvailability, error) {
	var table, dateExpr, latCol, lonCol string
	switch resolution {
	case "grid":
		table, dateExpr, latCol, lonCol = "sst_grid", "date", "lat", "lon"
	case "daily":
		table, dateExpr, latCol, lonCol = "sst_daily", "date", "lat_bin", "lon_bin"
	case "monthly":
		table, dateExpr, latCol, lonCol = "sst_monthly", "make_date(year, month, 1)", "lat_bin", "lon_bin"
	case "yearly":
		table, dateExpr, latCol, lonCol = "sst_yearly", "make_date(year, 1, 1)", "lat_bin", "lon_bin"
	default:
		return nil, fmt.Errorf("unknown resolution %q", resolution)
	}

	query := fmt.Sprintf(`
		SELECT MIN(%s), MAX(%s), COUNT(*),
		       MIN(%s), MAX(%s), MIN(%s), MAX(%s)
		FROM %s
		WHERE dataset = $1
	`, dateExpr, dateExpr, latCol, latCol, lonCol, lonCol, table)

	var (
		start, end                     sql.NullTime
		minLat, maxLat, minLon, maxLon sql.NullFloat64
		total                          int64
	)
	err := db.QueryRowContext(ctx, query, dataset).Scan(
		&start, &end, &total, &minLat, &maxLat, &minLon, &maxLon)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability for %s: %w", dataset, err)
	}

	info := &DatasetAvailability{
		Dataset:      dataset,
		Resolution:   resolution,
		TotalRecords: total,
	}
	if start.Valid {
		info.StartDate = &start.Time
	}
	if end.Valid {
		info.EndDate = &end.Time
	}
	if minLat.Valid {
		info.MinLat = &minLat.Float64
		info.MaxLat = &maxLat.Float64
		info.MinLon = &minLon.Float64
		info.MaxLon = &maxLon.Float64
	}
	return info, nil
}

// KnownDatasets returns the distinct datasets present at any level of
// the pipeline, grid table first so newly ingested data shows up
// before its first rollup.
func (db *DB) KnownDatasets(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT dataset FROM sst_grid
		UNION
		SELECT DISTINCT dataset FROM sst_daily
		UNION
		SELECT DISTINCT dataset FROM sst_monthly
		ORDER BY 1
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// SummaryFilter narrows a regional summary query over the daily or
// monthly aggregates.
type SummaryFilter struct {
	Start      time.Time
	End        time.Time
	Resolution string
	BBox       *grid.BBox
	Dataset    string
}

// RegionalSummary holds region-wide statistics for a time window.
// Statistic fields are nil when no records match.
type RegionalSummary struct {
	Count           int64    `json:"count"`
	MeanSSTC        *float64 `json:"mean_sst_c"`
	MedianSSTC      *float64 `json:"median_sst_c"`
	MinSSTC         *float64 `json:"min_sst_c"`
	MaxSSTC         *float64 `json:"max_sst_c"`
	StdSSTC         *float64 `json:"std_sst_c"`
	UniqueLocations int64    `json:"unique_locations"`
	MinLat          *float64 `json:"min_lat"`
	MaxLat          *float64 `json:"max_lat"`
	MinLon          *float64 `json:"min_lon"`
	MaxLon          *float64 `json:"max_lon"`
}

// QuerySummary computes regional statistics over the matching
// aggregates in one pass.
func (db *DB) QuerySummary(ctx context.Context, f SummaryFilter) (*RegionalSummary, error) {
	var table string
	var conds []string
	var args []interface{}
	switch f.Resolution {
	case "daily":
		table = "sst_daily"
		conds = []string{"date >= $1", "date <= $2"}
		args = []interface{}{f.Start, f.End}
	case "monthly":
		table = "sst_monthly"
		conds = []string{"(year * 100 + month) >= $1", "(year * 100 + month) <= $2"}
		args = []interface{}{
			f.Start.Year()*100 + int(f.Start.Month()),
			f.End.Year()*100 + int(f.End.Month()),
		}
	default:
		return nil, fmt.Errorf("summary supports daily or monthly resolution, got %q", f.Resolution)
	}
	conds, args = appendDatasetCond(conds, args, f.Dataset)
	conds, args = appendBBoxConds(conds, args, f.BBox, "lat_bin", "lon_bin")

	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       AVG(avg_sst_c),
		       PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY avg_sst_c),
		       MIN(min_sst_c),
		       MAX(max_sst_c),
		       STDDEV_POP(avg_sst_c),
		       COUNT(DISTINCT (lat_bin, lon_bin)),
		       MIN(lat_bin), MAX(lat_bin), MIN(lon_bin), MAX(lon_bin)
		FROM %s
		WHERE %s
	`, table, strings.Join(conds, " AND "))

	var (
		s                              RegionalSummary
		mean, median, minT, maxT, std  sql.NullFloat64
		minLat, maxLat, minLon, maxLon sql.NullFloat64
	)
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&s.Count, &mean, &median, &minT, &maxT, &std,
		&s.UniqueLocations, &minLat, &maxLat, &minLon, &maxLon)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	if mean.Valid {
		s.MeanSSTC = &mean.Float64
	}
	if median.Valid {
		s.MedianSSTC = &median.Float64
	}
	if minT.Valid {
		s.MinSSTC = &minT.Float64
	}
	if maxT.Valid {
		s.MaxSSTC = &maxT.Float64
	}
	if std.Valid {
		s.StdSSTC = &std.Float64
	}
	if minLat.Valid {
		s.MinLat = &minLat.Float64
		s.MaxLat = &maxLat.Float64
		s.MinLon = &minLon.Float64
		s.MaxLon = &maxLon.Float64
	}
	return &s, nil
}
