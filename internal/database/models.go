package database

import (
	"fmt"
	"time"
)

// PeriodLabel formats a baseline reference period as "YYYY-YYYY".
func PeriodLabel(start, end int) string {
	return fmt.Sprintf("%d-%d", start, end)
}

// ParsePeriodLabel parses a "YYYY-YYYY" baseline period label.
func ParsePeriodLabel(label string) (start, end int, err error) {
	if _, err := fmt.Sscanf(label, "%d-%d", &start, &end); err != nil {
		return 0, 0, fmt.Errorf("baseline period must be YYYY-YYYY, got %q", label)
	}
	if start > end {
		return 0, 0, fmt.Errorf("baseline period start %d is after end %d", start, end)
	}
	return start, end, nil
}

// GridObservation is a single gridded sea-surface temperature reading
// as delivered by an ingestion source.
type GridObservation struct {
	ID          string
	Date        time.Time
	Lat         float64
	Lon         float64
	SSTC        *float64
	Dataset     string
	Resolution  string
	QualityFlag int
	CreatedAt   time.Time
}

// DailyAggregate holds per-cell statistics over one day's observations.
type DailyAggregate struct {
	ID        string
	Date      time.Time
	LatBin    float64
	LonBin    float64
	AvgSSTC   float64
	MinSSTC   float64
	MaxSSTC   float64
	StdSSTC   float64
	Count     int
	Dataset   string
	CreatedAt time.Time
}

// MonthlyAggregate holds per-cell statistics rolled up from daily
// aggregates of one calendar month.
type MonthlyAggregate struct {
	ID        string
	Year      int
	Month     int
	LatBin    float64
	LonBin    float64
	AvgSSTC   float64
	MinSSTC   float64
	MaxSSTC   float64
	StdSSTC   float64
	Count     int
	Dataset   string
	CreatedAt time.Time
}

// YearlyAggregate holds per-cell statistics rolled up from monthly
// aggregates of one calendar year.
type YearlyAggregate struct {
	ID        string
	Year      int
	LatBin    float64
	LonBin    float64
	AvgSSTC   float64
	MinSSTC   float64
	MaxSSTC   float64
	StdSSTC   float64
	Count     int
	Dataset   string
	CreatedAt time.Time
}

// ClimateBaseline is the climatology for one cell and calendar month
// over a reference period.
type ClimateBaseline struct {
	ID              string
	LatBin          float64
	LonBin          float64
	Month           int
	PeriodStart     int
	PeriodEnd       int
	ClimatologySSTC float64
	StdSSTC         float64
	Dataset         string
	CreatedAt       time.Time
}

// Period returns the baseline period label, e.g. "1991-2020".
func (b ClimateBaseline) Period() string {
	return PeriodLabel(b.PeriodStart, b.PeriodEnd)
}

// TemperatureAnomaly is a monthly departure from the baseline
// climatology. Date is the first day of the month.
type TemperatureAnomaly struct {
	ID             string
	Date           time.Time
	LatBin         float64
	LonBin         float64
	AnomalyC       float64
	BaselinePeriod string
	Dataset        string
	CreatedAt      time.Time
}

// HeatwaveEvent is a detected marine heatwave: a maximal run of
// consecutive days above the percentile threshold for a cell.
type HeatwaveEvent struct {
	ID                   string
	StartDate            time.Time
	EndDate              time.Time
	DurationDays         int
	LatBin               float64
	LonBin               float64
	MaxIntensityC        float64
	MeanIntensityC       float64
	CumulativeIntensityC float64
	ThresholdPercentile  float64
	Dataset              string
	CreatedAt            time.Time
}

// JobRun records one execution of a pipeline job.
type JobRun struct {
	ID         string
	JobName    string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Note       string
}

const (
	JobStatusSuccess = "success"
	JobStatusPartial = "partial"
	JobStatusError   = "error"
)
