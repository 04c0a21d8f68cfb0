package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Plausible sea-surface temperature range in degrees Celsius. Readings
// outside it keep their row but lose the value and are flagged bad.
const (
	MinPlausibleSSTC = -5.0
	MaxPlausibleSSTC = 45.0
)

// Quality flags follow the IODE convention
const (
	QualityGood = 1
	QualityBad  = 4
)

// ObservationRecord is one SST reading inside a batch
type ObservationRecord struct {
	Date        string   `json:"date"` // YYYY-MM-DD
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	SSTC        *float64 `json:"sst_c,omitempty"`
	QualityFlag int      `json:"quality_flag,omitempty"`
}

// ObservationBatch is the message format on the observation topic
type ObservationBatch struct {
	Dataset      string              `json:"dataset"`
	Resolution   string              `json:"resolution"`
	Observations []ObservationRecord `json:"observations"`
	SentAt       time.Time           `json:"sent_at"`
}

// ParsedObservation is an ObservationRecord with a parsed date and a
// settled quality flag
type ParsedObservation struct {
	Date        time.Time
	Lat         float64
	Lon         float64
	SSTC        *float64
	QualityFlag int
}

// EncodeObservationBatch encodes a batch to JSON
func EncodeObservationBatch(batch *ObservationBatch) ([]byte, error) {
	return json.Marshal(batch)
}

// DecodeObservationBatch decodes JSON to an ObservationBatch
func DecodeObservationBatch(data []byte) (*ObservationBatch, error) {
	var batch ObservationBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validateBatch(&batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// validateBatch validates batch-level fields
func validateBatch(batch *ObservationBatch) error {
	if batch.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	if len(batch.Observations) == 0 {
		return fmt.Errorf("batch has no observations")
	}
	return nil
}

// Parse validates the record and settles its quality flag. An
// implausible temperature does not fail the record: the value is
// dropped and the flag set to bad, so the row is kept but never
// aggregated.
func (r *ObservationRecord) Parse() (*ParsedObservation, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (must be YYYY-MM-DD): %w", r.Date, err)
	}
	if r.Lat < -90 || r.Lat > 90 {
		return nil, fmt.Errorf("latitude %v out of range [-90, 90]", r.Lat)
	}
	if r.Lon < -180 || r.Lon > 180 {
		return nil, fmt.Errorf("longitude %v out of range [-180, 180]", r.Lon)
	}

	parsed := &ParsedObservation{
		Date:        date,
		Lat:         r.Lat,
		Lon:         r.Lon,
		SSTC:        r.SSTC,
		QualityFlag: r.QualityFlag,
	}
	if parsed.QualityFlag == 0 {
		parsed.QualityFlag = QualityGood
	}
	if r.SSTC != nil && (*r.SSTC < MinPlausibleSSTC || *r.SSTC > MaxPlausibleSSTC) {
		parsed.QualityFlag = QualityBad
	}
	if parsed.QualityFlag == QualityBad {
		parsed.SSTC = nil
	}
	return parsed, nil
}
