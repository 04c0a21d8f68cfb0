package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/observability"
	"github.com/oceanobs/sst-server/internal/query"
	"github.com/oceanobs/sst-server/internal/server"
	"github.com/oceanobs/sst-server/pkg/config"
)

type stubStore struct {
	temps     []database.TemperatureReading
	anomalies []database.TemperatureAnomaly
	heatwaves []database.HeatwaveEvent
	known     []string
	summary   *database.RegionalSummary
	err       error
}

func (s *stubStore) QueryTemperatures(ctx context.Context, f database.TemperatureFilter) ([]database.TemperatureReading, error) {
	return s.temps, s.err
}

func (s *stubStore) QueryAnomalies(ctx context.Context, f database.AnomalyFilter) ([]database.TemperatureAnomaly, error) {
	return s.anomalies, s.err
}

func (s *stubStore) QueryHeatwaves(ctx context.Context, f database.HeatwaveFilter) ([]database.HeatwaveEvent, error) {
	return s.heatwaves, s.err
}

func (s *stubStore) DatasetAvailability(ctx context.Context, dataset, resolution string) (*database.DatasetAvailability, error) {
	return &database.DatasetAvailability{Dataset: dataset, Resolution: resolution}, s.err
}

func (s *stubStore) KnownDatasets(ctx context.Context) ([]string, error) {
	return s.known, s.err
}

func (s *stubStore) QuerySummary(ctx context.Context, f database.SummaryFilter) (*database.RegionalSummary, error) {
	if s.summary == nil {
		return &database.RegionalSummary{}, s.err
	}
	return s.summary, s.err
}

func newTestRouter(store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := query.NewService(store, nil, observability.NewMetricsForTesting(), config.CacheConfig{})
	return server.SetupRouter(svc, config.HTTPServerConfig{AllowedOrigins: []string{"*"}})
}

func doRequest(t *testing.T, router *gin.Engine, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return rec, body
}

func TestTemperaturesEndpoint(t *testing.T) {
	store := &stubStore{temps: []database.TemperatureReading{
		{Time: "2023-06", LatBin: 35.0, LonBin: -70.0, AvgSSTC: 24.1, MinSSTC: 22.0, MaxSSTC: 26.5, Count: 28, Dataset: "OISST"},
	}}
	router := newTestRouter(store)

	rec, body := doRequest(t, router, http.MethodGet,
		"/temporal/temperatures?start_date=2023-01-01&end_date=2023-12-31")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, "monthly", body["resolution"])
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	row := data[0].(map[string]interface{})
	assert.Equal(t, 24.1, row["avg_sst_c"])
	assert.Equal(t, "OISST", row["dataset"])
}

func TestTemperaturesRejectsMissingWindow(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec, body := doRequest(t, router, http.MethodGet, "/temporal/temperatures")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "start_date")
}

func TestTemperaturesRejectsMalformedParams(t *testing.T) {
	router := newTestRouter(&stubStore{})
	tests := []struct {
		name    string
		path    string
		errPart string
	}{
		{"bad date", "/temporal/temperatures?start_date=junk&end_date=2023-12-31", "start_date"},
		{"bad limit", "/temporal/temperatures?start_date=2023-01-01&end_date=2023-12-31&limit=abc", "limit"},
		{"limit zero", "/temporal/temperatures?start_date=2023-01-01&end_date=2023-12-31&limit=0", "limit"},
		{"limit too large", "/temporal/temperatures?start_date=2023-01-01&end_date=2023-12-31&limit=20000", "limit"},
		{"negative offset", "/temporal/temperatures?start_date=2023-01-01&end_date=2023-12-31&offset=-1", "offset"},
		{"bad bbox", "/temporal/temperatures?start_date=2023-01-01&end_date=2023-12-31&bbox=1,2,3", "bbox"},
		{"bbox longitude out of range", "/temporal/temperatures?start_date=2023-01-01&end_date=2023-12-31&bbox=200,0,210,10", "bbox"},
		{"bad resolution", "/temporal/temperatures?start_date=2023-01-01&end_date=2023-12-31&resolution=weekly", "resolution"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doRequest(t, router, http.MethodGet, tt.path)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, body["error"], tt.errPart)
		})
	}
}

func TestTemperaturesStorageErrorReturns500(t *testing.T) {
	router := newTestRouter(&stubStore{err: assert.AnError})

	rec, body := doRequest(t, router, http.MethodGet,
		"/temporal/temperatures?start_date=2023-01-01&end_date=2023-12-31")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestAnomaliesEndpointDefaultsBaseline(t *testing.T) {
	store := &stubStore{anomalies: []database.TemperatureAnomaly{
		{Date: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), LatBin: 35.0, LonBin: -70.0, AnomalyC: 1.8, BaselinePeriod: "1991-2020", Dataset: "ERSST"},
	}}
	router := newTestRouter(store)

	rec, body := doRequest(t, router, http.MethodGet,
		"/temporal/anomalies?start_date=2023-01-01&end_date=2023-12-31")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1991-2020", body["baseline_period"])
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	row := data[0].(map[string]interface{})
	assert.Equal(t, "2023-06-01", row["date"])
	assert.Equal(t, 1.8, row["anomaly_c"])
}

func TestHeatwavesEndpointRejectsOutOfRangeParams(t *testing.T) {
	router := newTestRouter(&stubStore{})
	tests := []struct {
		name    string
		path    string
		errPart string
	}{
		{"threshold below range", "/temporal/heatwaves?start_date=2023-01-01&end_date=2023-12-31&threshold=50", "threshold"},
		{"threshold zero is not the default", "/temporal/heatwaves?start_date=2023-01-01&end_date=2023-12-31&threshold=0", "threshold"},
		{"threshold above range", "/temporal/heatwaves?start_date=2023-01-01&end_date=2023-12-31&threshold=100", "percentile"},
		{"duration zero is not the default", "/temporal/heatwaves?start_date=2023-01-01&end_date=2023-12-31&duration=0", "duration"},
		{"duration too long", "/temporal/heatwaves?start_date=2023-01-01&end_date=2023-12-31&duration=400", "duration"},
		{"limit zero is not the default", "/temporal/heatwaves?start_date=2023-01-01&end_date=2023-12-31&limit=0", "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doRequest(t, router, http.MethodGet, tt.path)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, body["error"], tt.errPart)
		})
	}
}

func TestHeatwavesEndpoint(t *testing.T) {
	store := &stubStore{heatwaves: []database.HeatwaveEvent{
		{
			StartDate: time.Date(2023, time.July, 10, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2023, time.July, 17, 0, 0, 0, 0, time.UTC),
			DurationDays: 8, LatBin: 35.0, LonBin: -70.0,
			MaxIntensityC: 3.2, MeanIntensityC: 2.1, CumulativeIntensityC: 16.8,
			ThresholdPercentile: 90, Dataset: "OISST",
		},
	}}
	router := newTestRouter(store)

	rec, body := doRequest(t, router, http.MethodGet,
		"/temporal/heatwaves?start_date=2023-01-01&end_date=2023-12-31&duration=7")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, float64(7), body["min_duration"])
	events := body["events"].([]interface{})
	require.Len(t, events, 1)
	row := events[0].(map[string]interface{})
	assert.Equal(t, "2023-07-10", row["start_date"])
	assert.Equal(t, float64(8), row["duration_days"])
}

func TestAvailabilityEndpoint(t *testing.T) {
	router := newTestRouter(&stubStore{known: []string{"ERSST", "OISST"}})

	rec, body := doRequest(t, router, http.MethodGet, "/temporal/availability")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])
	datasets := body["datasets"].([]interface{})
	require.Len(t, datasets, 2)
	first := datasets[0].(map[string]interface{})
	assert.Equal(t, "ERSST", first["dataset"])
	assert.Equal(t, "monthly", first["resolution"])
}

func TestSummaryEndpointNoData(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec, body := doRequest(t, router, http.MethodGet,
		"/temporal/stats/summary?start_date=2023-01-01&end_date=2023-12-31")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No data available for specified parameters", body["message"])
}

func TestCacheClearEndpoint(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec, body := doRequest(t, router, http.MethodPost, "/temporal/cache/clear")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cache not enabled", body["message"])
}

func TestHealthzEndpoint(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec, body := doRequest(t, router, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&stubStore{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
