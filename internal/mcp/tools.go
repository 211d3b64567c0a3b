package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/period"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now().UTC()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetHighscores = mcp.NewTool("get_highscores",
	mcp.WithDescription("Retrieve the personal record ledger: best single-day value and date for steps, distances per activity, calories, heartbeats, flights climbed, exercise and stand minutes, and sleep durations."),
)

var toolGetStreaks = mcp.NewTool("get_streaks",
	mcp.WithDescription("Retrieve the longest recorded sleep streak and workout streak (consecutive days with sleep data / with exercise minutes), with start and end dates."),
)

var toolGetPeriodSummary = mcp.NewTool("get_period_summary",
	mcp.WithDescription("Retrieve aggregated metric totals per calendar period. Each record carries the full metric bundle: steps, per-activity distances, calories, heartbeats, flights, exercise/stand minutes, and sleep minutes."),
	mcp.WithString("granularity", mcp.Required(), mcp.Description("Rollup granularity"), mcp.Enum("day", "week", "month", "year")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolComparePeriods = mcp.NewTool("compare_periods",
	mcp.WithDescription("Compare total metric bundles between two date ranges (e.g. this month vs last month). Sums daily rollups over each range."),
	mcp.WithString("period_a_start", mcp.Required(), mcp.Description("Period A start date")),
	mcp.WithString("period_a_end", mcp.Required(), mcp.Description("Period A end date")),
	mcp.WithString("period_b_start", mcp.Required(), mcp.Description("Period B start date")),
	mcp.WithString("period_b_end", mcp.Required(), mcp.Description("Period B end date")),
)

var toolTriggerSync = mcp.NewTool("trigger_sync",
	mcp.WithDescription("Run a synchronization pass over the raw health data. Incremental processes new data since the last run; refresh re-fetches the cursor window; initialize rebuilds everything from the earliest sample."),
	mcp.WithString("mode", mcp.Description("Sync mode. Defaults to incremental."), mcp.Enum("incremental", "refresh", "initialize")),
)

// --- Tool handlers ---

func (h *handlers) getHighscores(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	rec, err := h.ds.GetHighscores(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_highscores", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rec)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getStreaks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	rec, err := h.ds.GetHighscores(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_streaks", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]models.Streak{
		"sleep_streak":   rec.SleepStreak,
		"workout_streak": rec.WorkoutStreak,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPeriodSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	granularity, err := req.RequireString("granularity")
	if err != nil {
		return mcp.NewToolResultError("granularity parameter is required"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)

	var payload any
	switch granularity {
	case "day":
		payload, err = h.ds.DaysInRange(ctx, uid, start, end)
	case "week":
		var weeks []models.WeekRecord
		weeks, err = h.ds.Weeks(ctx, uid)
		if err == nil {
			kept := weeks[:0]
			for _, wk := range weeks {
				if !wk.WeekStart.Before(period.WeekStartOf(start)) && !wk.WeekStart.After(end) {
					kept = append(kept, wk)
				}
			}
			payload = kept
		}
	case "month":
		var months []models.MonthRecord
		months, err = h.ds.Months(ctx, uid)
		if err == nil {
			kept := months[:0]
			fy, fm := period.MonthOf(start)
			ly, lm := period.MonthOf(end)
			first := models.MonthKey{Year: fy, Month: fm}
			last := models.MonthKey{Year: ly, Month: lm}
			for _, m := range months {
				if !monthBefore(m.Month, first) && !monthBefore(last, m.Month) {
					kept = append(kept, m)
				}
			}
			payload = kept
		}
	case "year":
		var years []models.YearRecord
		years, err = h.ds.Years(ctx, uid)
		if err == nil {
			kept := years[:0]
			for _, y := range years {
				if y.Year >= start.Year() && y.Year <= end.Year() {
					kept = append(kept, y)
				}
			}
			payload = kept
		}
	default:
		return mcp.NewToolResultError("granularity must be day, week, month, or year"), nil
	}
	if err != nil {
		h.log.Error("mcp get_period_summary", "granularity", granularity, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func monthBefore(a, b models.MonthKey) bool {
	return a.Year < b.Year || (a.Year == b.Year && a.Month < b.Month)
}

func (h *handlers) comparePeriods(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	aStart, err := req.RequireString("period_a_start")
	if err != nil {
		return mcp.NewToolResultError("period_a_start parameter is required"), nil
	}
	aEnd, err := req.RequireString("period_a_end")
	if err != nil {
		return mcp.NewToolResultError("period_a_end parameter is required"), nil
	}
	bStart, err := req.RequireString("period_b_start")
	if err != nil {
		return mcp.NewToolResultError("period_b_start parameter is required"), nil
	}
	bEnd, err := req.RequireString("period_b_end")
	if err != nil {
		return mcp.NewToolResultError("period_b_end parameter is required"), nil
	}

	uid := UserIDFromContext(ctx)

	sumRange := func(startStr, endStr string) (models.MetricBundle, int, error) {
		start, end, err := defaultTimeRange(startStr, endStr)
		if err != nil {
			return models.MetricBundle{}, 0, err
		}
		days, err := h.ds.DaysInRange(ctx, uid, start, end)
		if err != nil {
			return models.MetricBundle{}, 0, err
		}
		var total models.MetricBundle
		for _, d := range days {
			total = total.Add(d.Bundle)
		}
		return total, len(days), nil
	}

	totalA, daysA, err := sumRange(aStart, aEnd)
	if err != nil {
		h.log.Error("mcp compare_periods", "error", err)
		return mcp.NewToolResultError("period A: " + err.Error()), nil
	}
	totalB, daysB, err := sumRange(bStart, bEnd)
	if err != nil {
		h.log.Error("mcp compare_periods", "error", err)
		return mcp.NewToolResultError("period B: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"period_a": map[string]any{"total": totalA, "days_with_data": daysA},
		"period_b": map[string]any{"total": totalB, "days_with_data": daysB},
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) triggerSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode := req.GetString("mode", "incremental")
	switch mode {
	case "incremental", "refresh", "initialize":
	default:
		return mcp.NewToolResultError("mode must be incremental, refresh, or initialize"), nil
	}

	uid := UserIDFromContext(ctx)
	if err := h.ds.TriggerSync(ctx, uid, mode); err != nil {
		h.log.Error("mcp trigger_sync", "mode", mode, "error", err)
		return mcp.NewToolResultError("sync failed: " + err.Error()), nil
	}

	return mcp.NewToolResultText("sync completed: " + mode), nil
}
