package database

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/sst-server/internal/grid"
)

func temperatureFilter() TemperatureFilter {
	return TemperatureFilter{
		Start:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		Dataset: "OISST",
		BBox:    &grid.BBox{MinLon: -130, MinLat: 30, MaxLon: -110, MaxLat: 50},
		Limit:   100,
		Offset:  50,
	}
}

func TestTemperatureQueriesPageNewestFirst(t *testing.T) {
	tests := []struct {
		name  string
		build func(TemperatureFilter) (string, []interface{})
		order string
	}{
		{"grid", gridTemperaturesQuery, "ORDER BY date DESC"},
		{"daily", dailyTemperaturesQuery, "ORDER BY date DESC"},
		{"monthly", monthlyTemperaturesQuery, "ORDER BY year DESC, month DESC"},
		{"yearly", yearlyTemperaturesQuery, "ORDER BY year DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := tt.build(temperatureFilter())
			assert.Contains(t, query, tt.order,
				"a limited page must serve the most recent records")
			assert.Equal(t, strings.Count(query, "$"), len(args),
				"every placeholder needs exactly one argument")
		})
	}
}

func TestAnomalyQueryPagesNewestFirst(t *testing.T) {
	query, args := anomaliesQuery(AnomalyFilter{
		Start:          time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		BaselinePeriod: "1991-2020",
		Dataset:        "ERSST",
		BBox:           &grid.BBox{MinLon: -130, MinLat: 30, MaxLon: -110, MaxLat: 50},
		MinAbsAnomaly:  0.5,
		Limit:          100,
	})
	assert.Contains(t, query, "ORDER BY date DESC")
	assert.Equal(t, strings.Count(query, "$"), len(args))
}

func TestHeatwaveQueryPagesNewestFirst(t *testing.T) {
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC)
	query, args := heatwavesQuery(HeatwaveFilter{
		Start:       start,
		End:         end,
		Percentile:  90,
		MinDuration: 5,
		Dataset:     "OISST",
		BBox:        &grid.BBox{MinLon: -130, MinLat: 30, MaxLon: -110, MaxLat: 50},
		Limit:       100,
	})
	assert.Contains(t, query, "ORDER BY start_date DESC")
	assert.Equal(t, strings.Count(query, "$"), len(args))

	require.GreaterOrEqual(t, len(args), 2)
	assert.Equal(t, end, args[0], "span overlap checks start_date against the window end")
	assert.Equal(t, start, args[1], "span overlap checks end_date against the window start")
}
