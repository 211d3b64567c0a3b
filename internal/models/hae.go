package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// HAETime handles the Health Auto Export date format: "2006-01-02 15:04:05 -0700"
// Also handles date-only format "2006-01-02" used in nightly sleep entries.
type HAETime struct {
	time.Time
}

const (
	HAETimeLayout     = "2006-01-02 15:04:05 -0700"
	HAEDateOnlyLayout = "2006-01-02"
)

func (t *HAETime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return t.Parse(s)
}

func (t HAETime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(HAETimeLayout))
}

// Parse parses a HAE time string, trying full datetime first, then date-only.
func (t *HAETime) Parse(s string) error {
	parsed, err := time.Parse(HAETimeLayout, s)
	if err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err2 := time.Parse(HAEDateOnlyLayout, s)
	if err2 == nil {
		t.Time = parsed
		return nil
	}
	return fmt.Errorf("cannot parse HAE time %q: %w", s, err)
}

// HAEPayload is the top-level ingest JSON structure.
type HAEPayload struct {
	Data HAEData `json:"data"`
}

// HAEData contains the arrays of health data.
type HAEData struct {
	Metrics []HAEMetric `json:"metrics"`
}

// HAEMetric is a single metric entry with name, units, and data points.
// sleep_analysis entries carry HAESleepEntry points; everything else carries
// HAEMetricDataPoint.
type HAEMetric struct {
	Name  string            `json:"name"`
	Units string            `json:"units"`
	Data  []json.RawMessage `json:"data"`
}

// HAEMetricDataPoint is a standard metric data point: one day's total for one
// metric from one source.
type HAEMetricDataPoint struct {
	Date   HAETime `json:"date"`
	Qty    float64 `json:"qty"`
	Source string  `json:"source"`
}

// HAESleepEntry is a nightly sleep summary. Durations are hours, as exported.
type HAESleepEntry struct {
	Date       HAETime `json:"date"`
	TotalSleep float64 `json:"totalSleep"`
	Deep       float64 `json:"deep"`
	REM        float64 `json:"rem"`
	Source     string  `json:"source"`
}
