// Package hae processes Health Auto Export REST payloads into raw sample
// rows. Only the metric types the rollup engine tracks are accepted; sleep
// arrives as nightly entries and is stored per source so the data source
// layer can resolve conflicts later.
package hae

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/meltforce/vitalsync/internal/ingest"
	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/period"
	"github.com/meltforce/vitalsync/internal/storage"
)

// SleepMetricName is the HAE payload name carrying nightly sleep entries.
const SleepMetricName = "sleep_analysis"

// Provider processes Health Auto Export payloads.
type Provider struct {
	db  *storage.DB
	log *slog.Logger
}

// NewProvider creates a new HAE ingest provider.
func NewProvider(db *storage.DB, log *slog.Logger) *Provider {
	return &Provider{db: db, log: log}
}

// Ingest converts a payload to sample rows and stores them.
func (p *Provider) Ingest(ctx context.Context, payload *models.HAEPayload, userID int) (*ingest.Result, error) {
	result := &ingest.Result{}

	metricRows, sleepRows := Convert(payload, userID, result, p.log)

	if len(metricRows) > 0 {
		inserted, err := p.db.InsertMetricSamples(ctx, metricRows)
		if err != nil {
			return result, fmt.Errorf("inserting metric samples: %w", err)
		}
		result.MetricsInserted = inserted
	}
	if len(sleepRows) > 0 {
		inserted, err := p.db.InsertSleepSamples(ctx, sleepRows)
		if err != nil {
			return result, fmt.Errorf("inserting sleep samples: %w", err)
		}
		result.SleepEntriesInserted = inserted
	}

	if len(result.RejectedNames) > 0 {
		result.Message = fmt.Sprintf(
			"Some metrics were rejected because the rollup engine does not track them: %v.",
			result.RejectedNames)
	}

	return result, nil
}

// Convert turns a payload into sample rows without touching storage. The
// backfill CLI uses it to read export files offline. log may be nil.
func Convert(payload *models.HAEPayload, userID int, result *ingest.Result, log *slog.Logger) ([]models.MetricSampleRow, []models.SleepSampleRow) {
	var metricRows []models.MetricSampleRow
	var sleepRows []models.SleepSampleRow
	rejectedSet := map[string]bool{}

	for _, m := range payload.Data.Metrics {
		if m.Name == SleepMetricName {
			for _, raw := range m.Data {
				result.SleepEntriesReceived++
				var entry models.HAESleepEntry
				if err := json.Unmarshal(raw, &entry); err != nil {
					if log != nil {
						log.Warn("skipping sleep entry", "error", err)
					}
					continue
				}
				sleepRows = append(sleepRows, models.SleepSampleRow{
					Day:          period.DayOf(entry.Date.Time),
					UserID:       userID,
					Source:       entry.Source,
					TotalMinutes: hoursToMinutes(entry.TotalSleep),
					DeepMinutes:  hoursToMinutes(entry.Deep),
					REMMinutes:   hoursToMinutes(entry.REM),
				})
			}
			continue
		}

		if !models.MetricTracked(m.Name) {
			if !rejectedSet[m.Name] {
				result.RejectedNames = append(result.RejectedNames, m.Name)
				rejectedSet[m.Name] = true
			}
			result.MetricsRejected += len(m.Data)
			continue
		}

		for _, raw := range m.Data {
			result.MetricsReceived++
			var dp models.HAEMetricDataPoint
			if err := json.Unmarshal(raw, &dp); err != nil {
				if log != nil {
					log.Warn("skipping data point", "metric", m.Name, "error", err)
				}
				continue
			}
			metricRows = append(metricRows, models.MetricSampleRow{
				Day:        period.DayOf(dp.Date.Time),
				UserID:     userID,
				MetricName: m.Name,
				Source:     dp.Source,
				Qty:        dp.Qty,
			})
		}
	}

	return metricRows, sleepRows
}

func hoursToMinutes(hours float64) int64 {
	return int64(math.Round(hours * 60))
}
