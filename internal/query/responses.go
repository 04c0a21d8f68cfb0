package query

import (
	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/grid"
)

// TemperaturesResponse echoes the query and carries the matching readings.
type TemperaturesResponse struct {
	Count      int                           `json:"count"`
	Resolution string                        `json:"resolution"`
	StartDate  string                        `json:"start_date"`
	EndDate    string                        `json:"end_date"`
	BBox       []float64                     `json:"bbox,omitempty"`
	Dataset    string                        `json:"dataset,omitempty"`
	Data       []database.TemperatureReading `json:"data"`
}

// AnomalyPoint is one anomaly record in API form.
type AnomalyPoint struct {
	Date           string  `json:"date"`
	LatBin         float64 `json:"lat_bin"`
	LonBin         float64 `json:"lon_bin"`
	AnomalyC       float64 `json:"anomaly_c"`
	BaselinePeriod string  `json:"baseline_period"`
	Dataset        string  `json:"dataset"`
}

// AnomaliesResponse echoes the query and carries the matching anomalies.
type AnomaliesResponse struct {
	Count          int            `json:"count"`
	BaselinePeriod string         `json:"baseline_period"`
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
	BBox           []float64      `json:"bbox,omitempty"`
	Dataset        string         `json:"dataset,omitempty"`
	Data           []AnomalyPoint `json:"data"`
}

// HeatwavePoint is one heatwave event in API form.
type HeatwavePoint struct {
	StartDate            string  `json:"start_date"`
	EndDate              string  `json:"end_date"`
	DurationDays         int     `json:"duration_days"`
	LatBin               float64 `json:"lat_bin"`
	LonBin               float64 `json:"lon_bin"`
	MaxIntensityC        float64 `json:"max_intensity_c"`
	MeanIntensityC       float64 `json:"mean_intensity_c"`
	CumulativeIntensityC float64 `json:"cumulative_intensity_c"`
	ThresholdPercentile  float64 `json:"threshold_percentile"`
	Dataset              string  `json:"dataset"`
}

// HeatwavesResponse echoes the query and carries the matching events.
type HeatwavesResponse struct {
	Count               int             `json:"count"`
	StartDate           string          `json:"start_date"`
	EndDate             string          `json:"end_date"`
	MinDuration         int             `json:"min_duration"`
	ThresholdPercentile float64         `json:"threshold_percentile"`
	BBox                []float64       `json:"bbox,omitempty"`
	Dataset             string          `json:"dataset,omitempty"`
	Events              []HeatwavePoint `json:"events"`
}

// AvailabilityResponse lists per-dataset availability.
type AvailabilityResponse struct {
	Count    int                            `json:"count"`
	Datasets []database.DatasetAvailability `json:"datasets"`
}

// Period is the queried date window.
type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// TemperatureStats are the aggregate temperature statistics of a summary.
type TemperatureStats struct {
	MeanSSTC   float64 `json:"mean_sst_c"`
	MedianSSTC float64 `json:"median_sst_c"`
	MinSSTC    float64 `json:"min_sst_c"`
	MaxSSTC    float64 `json:"max_sst_c"`
	StdSSTC    float64 `json:"std_sst_c"`
}

// SpatialCoverage describes where the summarized records sit.
type SpatialCoverage struct {
	UniqueLocations int64     `json:"unique_locations"`
	LatRange        []float64 `json:"lat_range"`
	LonRange        []float64 `json:"lon_range"`
}

// SummaryStats groups record counts with the derived statistics.
type SummaryStats struct {
	Count                 int64             `json:"count"`
	TemperatureStatistics *TemperatureStats `json:"temperature_statistics"`
	SpatialCoverage       *SpatialCoverage  `json:"spatial_coverage"`
}

// SummaryResponse is the regional statistics report. Statistics is nil
// when nothing matched.
type SummaryResponse struct {
	Period        Period        `json:"period"`
	SpatialBounds []float64     `json:"spatial_bounds,omitempty"`
	Dataset       string        `json:"dataset,omitempty"`
	Resolution    string        `json:"resolution"`
	Statistics    *SummaryStats `json:"statistics"`
	Message       string        `json:"message,omitempty"`
}

// CacheClearResponse reports the outcome of a cache purge.
type CacheClearResponse struct {
	Message string `json:"message"`
}

func anomalyPoints(anomalies []database.TemperatureAnomaly) []AnomalyPoint {
	points := make([]AnomalyPoint, len(anomalies))
	for i, a := range anomalies {
		points[i] = AnomalyPoint{
			Date:           a.Date.Format("2006-01-02"),
			LatBin:         a.LatBin,
			LonBin:         a.LonBin,
			AnomalyC:       a.AnomalyC,
			BaselinePeriod: a.BaselinePeriod,
			Dataset:        a.Dataset,
		}
	}
	return points
}

func heatwavePoints(events []database.HeatwaveEvent) []HeatwavePoint {
	points := make([]HeatwavePoint, len(events))
	for i, e := range events {
		points[i] = HeatwavePoint{
			StartDate:            e.StartDate.Format("2006-01-02"),
			EndDate:              e.EndDate.Format("2006-01-02"),
			DurationDays:         e.DurationDays,
			LatBin:               e.LatBin,
			LonBin:               e.LonBin,
			MaxIntensityC:        e.MaxIntensityC,
			MeanIntensityC:       e.MeanIntensityC,
			CumulativeIntensityC: e.CumulativeIntensityC,
			ThresholdPercentile:  e.ThresholdPercentile,
			Dataset:              e.Dataset,
		}
	}
	return points
}

func bboxList(b *grid.BBox) []float64 {
	if b == nil {
		return nil
	}
	return []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}
