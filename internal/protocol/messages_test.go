package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestDecodeObservationBatch(t *testing.T) {
	data := []byte(`{
		"dataset": "OISST",
		"resolution": "1.0",
		"observations": [
			{"date": "2023-06-15", "lat": 42.5, "lon": -70.25, "sst_c": 18.3},
			{"date": "2023-06-15", "lat": 43.5, "lon": -70.25}
		],
		"sent_at": "2023-06-16T02:00:00Z"
	}`)

	batch, err := DecodeObservationBatch(data)
	require.NoError(t, err)
	assert.Equal(t, "OISST", batch.Dataset)
	assert.Equal(t, "1.0", batch.Resolution)
	require.Len(t, batch.Observations, 2)
	require.NotNil(t, batch.Observations[0].SSTC)
	assert.Equal(t, 18.3, *batch.Observations[0].SSTC)
	assert.Nil(t, batch.Observations[1].SSTC, "a missing reading stays nil")
}

func TestDecodeObservationBatchRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"malformed JSON", `{"dataset": "OISST"`},
		{"missing dataset", `{"observations": [{"date": "2023-06-15", "lat": 0, "lon": 0}]}`},
		{"empty observations", `{"dataset": "OISST", "observations": []}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeObservationBatch([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestParseObservationRecord(t *testing.T) {
	rec := ObservationRecord{Date: "2023-06-15", Lat: 42.5, Lon: -70.25, SSTC: floatPtr(18.3)}

	parsed, err := rec.Parse()
	require.NoError(t, err)
	assert.Equal(t, "2023-06-15", parsed.Date.Format("2006-01-02"))
	assert.Equal(t, 42.5, parsed.Lat)
	require.NotNil(t, parsed.SSTC)
	assert.Equal(t, 18.3, *parsed.SSTC)
	assert.Equal(t, QualityGood, parsed.QualityFlag, "an unset flag defaults to good")
}

func TestParseObservationRecordRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		rec  ObservationRecord
	}{
		{"bad date", ObservationRecord{Date: "June 15", Lat: 0, Lon: 0}},
		{"latitude out of range", ObservationRecord{Date: "2023-06-15", Lat: 91, Lon: 0}},
		{"longitude out of range", ObservationRecord{Date: "2023-06-15", Lat: 0, Lon: 200}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.rec.Parse()
			assert.Error(t, err)
		})
	}
}

func TestParseFlagsImplausibleTemperature(t *testing.T) {
	rec := ObservationRecord{Date: "2023-06-15", Lat: 42.5, Lon: -70.25, SSTC: floatPtr(99.9)}

	parsed, err := rec.Parse()
	require.NoError(t, err, "an implausible reading keeps its row")
	assert.Nil(t, parsed.SSTC, "the value is dropped")
	assert.Equal(t, QualityBad, parsed.QualityFlag)

	rec.SSTC = floatPtr(-12.0)
	parsed, err = rec.Parse()
	require.NoError(t, err)
	assert.Nil(t, parsed.SSTC)
	assert.Equal(t, QualityBad, parsed.QualityFlag)
}

func TestParseDropsValueFlaggedBadUpstream(t *testing.T) {
	rec := ObservationRecord{Date: "2023-06-15", Lat: 42.5, Lon: -70.25, SSTC: floatPtr(18.3), QualityFlag: QualityBad}

	parsed, err := rec.Parse()
	require.NoError(t, err)
	assert.Nil(t, parsed.SSTC, "a reading flagged bad upstream is never aggregated")
	assert.Equal(t, QualityBad, parsed.QualityFlag)
}
