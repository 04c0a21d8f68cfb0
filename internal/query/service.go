package query

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/oceanobs/sst-server/internal/cache"
	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/grid"
	"github.com/oceanobs/sst-server/internal/observability"
	"github.com/oceanobs/sst-server/pkg/config"
)

// Query limits and defaults, from the public API contract.
const (
	DefaultTemperatureLimit = 5000
	MaxTemperatureLimit     = 10000
	DefaultHeatwaveLimit    = 1000
	MaxHeatwaveLimit        = 5000

	DefaultBaselinePeriod = "1991-2020"

	DefaultPercentile = 90.0
	MinPercentile     = 85.0
	MaxPercentile     = 99.0

	DefaultMinDuration = 5
	MinQueryDuration   = 3
	MaxQueryDuration   = 365
)

var validResolutions = map[string]bool{"grid": true, "daily": true, "monthly": true, "yearly": true}

// Datasets advertised while storage is still empty.
var defaultDatasets = []string{"ERSST", "OISST", "AVHRR", "MODIS"}

// Store is the read surface of the query service.
type Store interface {
	QueryTemperatures(ctx context.Context, f database.TemperatureFilter) ([]database.TemperatureReading, error)
	QueryAnomalies(ctx context.Context, f database.AnomalyFilter) ([]database.TemperatureAnomaly, error)
	QueryHeatwaves(ctx context.Context, f database.HeatwaveFilter) ([]database.HeatwaveEvent, error)
	DatasetAvailability(ctx context.Context, dataset, resolution string) (*database.DatasetAvailability, error)
	KnownDatasets(ctx context.Context) ([]string, error)
	QuerySummary(ctx context.Context, f database.SummaryFilter) (*database.RegionalSummary, error)
}

// Cache is the optional read-through cache in front of the store.
// Correctness never depends on it: failures degrade to direct reads.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Clear(ctx context.Context) (int, error)
}

// ValidationError marks a request rejected before any storage access.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err was a rejected request rather
// than a storage failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Service validates query requests, serves them from the cache when
// possible, and falls back to the store.
type Service struct {
	store    Store
	cache    Cache
	metrics  *observability.Metrics
	cacheCfg config.CacheConfig
}

// NewService creates a new query service. A nil cache disables caching.
func NewService(store Store, queryCache Cache, metrics *observability.Metrics, cacheCfg config.CacheConfig) *Service {
	return &Service{store: store, cache: queryCache, metrics: metrics, cacheCfg: cacheCfg}
}

// TemperaturesParams select aggregate temperature readings.
type TemperaturesParams struct {
	Start      time.Time
	End        time.Time
	Resolution string
	BBox       *grid.BBox
	Dataset    string
	Limit      int
	Offset     int
}

func (s *Service) GetTemperatures(ctx context.Context, p TemperaturesParams) (*TemperaturesResponse, error) {
	defer s.observe("temperatures", time.Now())

	if err := validateWindow(p.Start, p.End); err != nil {
		return nil, err
	}
	if p.Resolution == "" {
		p.Resolution = "monthly"
	}
	if !validResolutions[p.Resolution] {
		return nil, validationErrorf("resolution must be one of grid, daily, monthly, yearly, got %q", p.Resolution)
	}
	if err := validateBBox(p.BBox); err != nil {
		return nil, err
	}
	limit, err := settleLimit(p.Limit, DefaultTemperatureLimit, MaxTemperatureLimit)
	if err != nil {
		return nil, err
	}
	if err := validateOffset(p.Offset); err != nil {
		return nil, err
	}

	key := cache.Key("temperatures", map[string]string{
		"start":      p.Start.Format("2006-01-02"),
		"end":        p.End.Format("2006-01-02"),
		"resolution": p.Resolution,
		"bbox":       bboxParam(p.BBox),
		"dataset":    p.Dataset,
		"limit":      strconv.Itoa(limit),
		"offset":     strconv.Itoa(p.Offset),
	})
	var cached TemperaturesResponse
	if s.cacheGet(ctx, "temperatures", key, &cached) {
		return &cached, nil
	}

	data, err := s.store.QueryTemperatures(ctx, database.TemperatureFilter{
		Start:      p.Start,
		End:        p.End,
		Resolution: p.Resolution,
		BBox:       p.BBox,
		Dataset:    p.Dataset,
		Limit:      limit,
		Offset:     p.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query temperatures: %w", err)
	}
	if data == nil {
		data = []database.TemperatureReading{}
	}

	resp := &TemperaturesResponse{
		Count:      len(data),
		Resolution: p.Resolution,
		StartDate:  p.Start.Format("2006-01-02"),
		EndDate:    p.End.Format("2006-01-02"),
		BBox:       bboxList(p.BBox),
		Dataset:    p.Dataset,
		Data:       data,
	}
	s.cacheSet(ctx, key, resp, s.cacheCfg.TemperatureTTL)
	return resp, nil
}

// AnomaliesParams select temperature anomaly records.
type AnomaliesParams struct {
	Start          time.Time
	End            time.Time
	BaselinePeriod string
	BBox           *grid.BBox
	Dataset        string
	MinAbsAnomaly  float64
	Limit          int
	Offset         int
}

func (s *Service) GetAnomalies(ctx context.Context, p AnomaliesParams) (*AnomaliesResponse, error) {
	defer s.observe("anomalies", time.Now())

	if err := validateWindow(p.Start, p.End); err != nil {
		return nil, err
	}
	if p.BaselinePeriod == "" {
		p.BaselinePeriod = DefaultBaselinePeriod
	}
	if _, _, err := database.ParsePeriodLabel(p.BaselinePeriod); err != nil {
		return nil, &ValidationError{msg: err.Error()}
	}
	if err := validateBBox(p.BBox); err != nil {
		return nil, err
	}
	if p.MinAbsAnomaly < 0 {
		return nil, validationErrorf("threshold must not be negative, got %v", p.MinAbsAnomaly)
	}
	limit, err := settleLimit(p.Limit, DefaultTemperatureLimit, MaxTemperatureLimit)
	if err != nil {
		return nil, err
	}
	if err := validateOffset(p.Offset); err != nil {
		return nil, err
	}

	key := cache.Key("anomalies", map[string]string{
		"start":    p.Start.Format("2006-01-02"),
		"end":      p.End.Format("2006-01-02"),
		"baseline": p.BaselinePeriod,
		"bbox":     bboxParam(p.BBox),
		"dataset":  p.Dataset,
		"min_abs":  strconv.FormatFloat(p.MinAbsAnomaly, 'g', -1, 64),
		"limit":    strconv.Itoa(limit),
		"offset":   strconv.Itoa(p.Offset),
	})
	var cached AnomaliesResponse
	if s.cacheGet(ctx, "anomalies", key, &cached) {
		return &cached, nil
	}

	anomalies, err := s.store.QueryAnomalies(ctx, database.AnomalyFilter{
		Start:          p.Start,
		End:            p.End,
		BaselinePeriod: p.BaselinePeriod,
		BBox:           p.BBox,
		Dataset:        p.Dataset,
		MinAbsAnomaly:  p.MinAbsAnomaly,
		Limit:          limit,
		Offset:         p.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}

	resp := &AnomaliesResponse{
		Count:          len(anomalies),
		BaselinePeriod: p.BaselinePeriod,
		StartDate:      p.Start.Format("2006-01-02"),
		EndDate:        p.End.Format("2006-01-02"),
		BBox:           bboxList(p.BBox),
		Dataset:        p.Dataset,
		Data:           anomalyPoints(anomalies),
	}
	s.cacheSet(ctx, key, resp, s.cacheCfg.AnomalyTTL)
	return resp, nil
}

// HeatwavesParams select heatwave events whose span overlaps the window.
type HeatwavesParams struct {
	Start       time.Time
	End         time.Time
	BBox        *grid.BBox
	Percentile  float64
	MinDuration int
	Dataset     string
	Limit       int
	Offset      int
}

func (s *Service) GetHeatwaves(ctx context.Context, p HeatwavesParams) (*HeatwavesResponse, error) {
	defer s.observe("heatwaves", time.Now())

	if err := validateWindow(p.Start, p.End); err != nil {
		return nil, err
	}
	if p.Percentile == 0 {
		p.Percentile = DefaultPercentile
	}
	if p.Percentile < MinPercentile || p.Percentile > MaxPercentile {
		return nil, validationErrorf("threshold percentile must be between %g and %g, got %g",
			MinPercentile, MaxPercentile, p.Percentile)
	}
	if p.MinDuration == 0 {
		p.MinDuration = DefaultMinDuration
	}
	if p.MinDuration < MinQueryDuration || p.MinDuration > MaxQueryDuration {
		return nil, validationErrorf("duration must be between %d and %d days, got %d",
			MinQueryDuration, MaxQueryDuration, p.MinDuration)
	}
	if err := validateBBox(p.BBox); err != nil {
		return nil, err
	}
	limit, err := settleLimit(p.Limit, DefaultHeatwaveLimit, MaxHeatwaveLimit)
	if err != nil {
		return nil, err
	}
	if err := validateOffset(p.Offset); err != nil {
		return nil, err
	}

	key := cache.Key("heatwaves", map[string]string{
		"start":      p.Start.Format("2006-01-02"),
		"end":        p.End.Format("2006-01-02"),
		"bbox":       bboxParam(p.BBox),
		"percentile": strconv.FormatFloat(p.Percentile, 'g', -1, 64),
		"duration":   strconv.Itoa(p.MinDuration),
		"dataset":    p.Dataset,
		"limit":      strconv.Itoa(limit),
		"offset":     strconv.Itoa(p.Offset),
	})
	var cached HeatwavesResponse
	if s.cacheGet(ctx, "heatwaves", key, &cached) {
		return &cached, nil
	}

	events, err := s.store.QueryHeatwaves(ctx, database.HeatwaveFilter{
		Start:       p.Start,
		End:         p.End,
		BBox:        p.BBox,
		Percentile:  p.Percentile,
		MinDuration: p.MinDuration,
		Dataset:     p.Dataset,
		Limit:       limit,
		Offset:      p.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query heatwaves: %w", err)
	}

	resp := &HeatwavesResponse{
		Count:               len(events),
		StartDate:           p.Start.Format("2006-01-02"),
		EndDate:             p.End.Format("2006-01-02"),
		MinDuration:         p.MinDuration,
		ThresholdPercentile: p.Percentile,
		BBox:                bboxList(p.BBox),
		Dataset:             p.Dataset,
		Events:              heatwavePoints(events),
	}
	s.cacheSet(ctx, key, resp, s.cacheCfg.HeatwaveTTL)
	return resp, nil
}

// GetAvailability reports per-dataset record counts, date span, and
// spatial bounds at the given resolution. With no dataset filter it
// covers every dataset seen in storage, or a conventional list while
// storage is empty.
func (s *Service) GetAvailability(ctx context.Context, dataset, resolution string) (*AvailabilityResponse, error) {
	defer s.observe("availability", time.Now())

	if resolution == "" {
		resolution = "monthly"
	}
	if !validResolutions[resolution] {
		return nil, validationErrorf("resolution must be one of grid, daily, monthly, yearly, got %q", resolution)
	}

	key := cache.Key("availability", map[string]string{
		"dataset":    dataset,
		"resolution": resolution,
	})
	var cached AvailabilityResponse
	if s.cacheGet(ctx, "availability", key, &cached) {
		return &cached, nil
	}

	datasets := []string{dataset}
	if dataset == "" {
		known, err := s.store.KnownDatasets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list datasets: %w", err)
		}
		if len(known) == 0 {
			known = defaultDatasets
		}
		datasets = known
	}

	out := make([]database.DatasetAvailability, 0, len(datasets))
	for _, ds := range datasets {
		avail, err := s.store.DatasetAvailability(ctx, ds, resolution)
		if err != nil {
			return nil, fmt.Errorf("failed to check availability for %s: %w", ds, err)
		}
		out = append(out, *avail)
	}

	resp := &AvailabilityResponse{Count: len(out), Datasets: out}
	s.cacheSet(ctx, key, resp, s.cacheCfg.AvailabilityTTL)
	return resp, nil
}

// SummaryParams select the window and region to summarize.
type SummaryParams struct {
	Start      time.Time
	End        time.Time
	BBox       *grid.BBox
	Dataset    string
	Resolution string
}

func (s *Service) GetSummary(ctx context.Context, p SummaryParams) (*SummaryResponse, error) {
	defer s.observe("summary", time.Now())

	if err := validateWindow(p.Start, p.End); err != nil {
		return nil, err
	}
	if p.Resolution == "" {
		p.Resolution = "monthly"
	}
	if p.Resolution != "daily" && p.Resolution != "monthly" {
		return nil, validationErrorf("summary resolution must be daily or monthly, got %q", p.Resolution)
	}
	if err := validateBBox(p.BBox); err != nil {
		return nil, err
	}

	key := cache.Key("summary", map[string]string{
		"start":      p.Start.Format("2006-01-02"),
		"end":        p.End.Format("2006-01-02"),
		"bbox":       bboxParam(p.BBox),
		"dataset":    p.Dataset,
		"resolution": p.Resolution,
	})
	var cached SummaryResponse
	if s.cacheGet(ctx, "summary", key, &cached) {
		return &cached, nil
	}

	reg, err := s.store.QuerySummary(ctx, database.SummaryFilter{
		Start:      p.Start,
		End:        p.End,
		Resolution: p.Resolution,
		BBox:       p.BBox,
		Dataset:    p.Dataset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	resp := &SummaryResponse{
		Period: Period{
			StartDate: p.Start.Format("2006-01-02"),
			EndDate:   p.End.Format("2006-01-02"),
		},
		SpatialBounds: bboxList(p.BBox),
		Dataset:       p.Dataset,
		Resolution:    p.Resolution,
	}
	if reg.Count == 0 {
		resp.Message = "No data available for specified parameters"
	} else {
		stats := &SummaryStats{Count: reg.Count}
		if reg.MeanSSTC != nil {
			stats.TemperatureStatistics = &TemperatureStats{
				MeanSSTC:   *reg.MeanSSTC,
				MedianSSTC: deref(reg.MedianSSTC),
				MinSSTC:    deref(reg.MinSSTC),
				MaxSSTC:    deref(reg.MaxSSTC),
				StdSSTC:    deref(reg.StdSSTC),
			}
		}
		if reg.MinLat != nil && reg.MaxLat != nil && reg.MinLon != nil && reg.MaxLon != nil {
			stats.SpatialCoverage = &SpatialCoverage{
				UniqueLocations: reg.UniqueLocations,
				LatRange:        []float64{*reg.MinLat, *reg.MaxLat},
				LonRange:        []float64{*reg.MinLon, *reg.MaxLon},
			}
		}
		resp.Statistics = stats
	}
	s.cacheSet(ctx, key, resp, s.cacheCfg.SummaryTTL)
	return resp, nil
}

// ClearCache purges every cached query response.
func (s *Service) ClearCache(ctx context.Context) (*CacheClearResponse, error) {
	if s.cache == nil {
		return &CacheClearResponse{Message: "Cache not enabled"}, nil
	}
	removed, err := s.cache.Clear(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear cache: %w", err)
	}
	if removed == 0 {
		return &CacheClearResponse{Message: "No cached results to clear"}, nil
	}
	return &CacheClearResponse{Message: fmt.Sprintf("Cleared %d cached results", removed)}, nil
}

func (s *Service) observe(endpoint string, start time.Time) {
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (s *Service) cacheGet(ctx context.Context, endpoint, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		log.Printf("Cache read failed for %s: %v", key, err)
		s.metrics.CacheLookups.WithLabelValues(endpoint, "miss").Inc()
		return false
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	s.metrics.CacheLookups.WithLabelValues(endpoint, result).Inc()
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		log.Printf("Cache write failed for %s: %v", key, err)
	}
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() {
		return validationErrorf("start_date is required")
	}
	if end.IsZero() {
		return validationErrorf("end_date is required")
	}
	if end.Before(start) {
		return validationErrorf("start_date %s is after end_date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return nil
}

func validateBBox(b *grid.BBox) error {
	if b == nil {
		return nil
	}
	if err := b.Validate(); err != nil {
		return &ValidationError{msg: err.Error()}
	}
	return nil
}

func validateOffset(offset int) error {
	if offset < 0 {
		return validationErrorf("offset must not be negative, got %d", offset)
	}
	return nil
}

func settleLimit(limit, def, max int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 1 || limit > max {
		return 0, validationErrorf("limit must be between 1 and %d, got %d", max, limit)
	}
	return limit, nil
}

func bboxParam(b *grid.BBox) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
