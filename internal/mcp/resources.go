package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/period"
)

func (h *handlers) dailySummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	today := period.DayOf(time.Now().UTC())
	days, err := h.ds.DaysInRange(ctx, uid, today.AddDate(0, 0, -6), today)
	if err != nil {
		return nil, err
	}

	var todayBundle models.MetricBundle
	var weekTotal models.MetricBundle
	for _, d := range days {
		weekTotal = weekTotal.Add(d.Bundle)
		if d.Day.Equal(today) {
			todayBundle = d.Bundle
		}
	}

	summary := map[string]any{
		"date":             today.Format("2006-01-02"),
		"today":            todayBundle,
		"last_seven_days":  weekTotal,
		"days_with_data":   len(days),
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) highscoreBoard(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	rec, err := h.ds.GetHighscores(ctx, uid)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
