package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/meltforce/vitalsync/internal/ingest"
	"github.com/meltforce/vitalsync/internal/ingest/hae"
	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/source"
	"github.com/meltforce/vitalsync/internal/storage"
	vsync "github.com/meltforce/vitalsync/internal/sync"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// vitalsync-backfill processes Health Auto Export JSON files into a local
// SQLite analytics database, without needing the server or Postgres. Useful
// for inspecting an export before uploading, and for offline analysis.
func main() {
	exportPath := flag.String("path", "", "path to an export JSON file or a directory of them (required)")
	dataDir := flag.String("data-dir", ".", "directory for the rollup database")
	priority := flag.String("sleep-priority", "Apple Watch,iPhone", "comma-separated sleep source priority")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("vitalsync-backfill", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: vitalsync-backfill -path <export.json|dir> [-data-dir DIR] [-sleep-priority LIST]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	files, err := exportFiles(*exportPath)
	if err != nil {
		log.Error("resolve export path", "path", *exportPath, "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		log.Error("no JSON files found", "path", *exportPath)
		os.Exit(1)
	}

	// Convert every file into sample rows. userID is fixed at 1: the local
	// database holds a single person's data.
	var metricRows []models.MetricSampleRow
	var sleepRows []models.SleepSampleRow
	var result ingest.Result

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Error("read export file", "file", f, "error", err)
			os.Exit(1)
		}

		var payload models.HAEPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Error("parse export file", "file", f, "error", err)
			os.Exit(1)
		}

		m, s := hae.Convert(&payload, 1, &result, log)
		metricRows = append(metricRows, m...)
		sleepRows = append(sleepRows, s...)
		log.Info("converted", "file", filepath.Base(f), "metric_rows", len(m), "sleep_rows", len(s))
	}

	log.Info("export parsed",
		"files", len(files),
		"metrics_received", result.MetricsReceived,
		"metrics_rejected", result.MetricsRejected,
		"sleep_entries", result.SleepEntriesReceived,
	)
	if len(result.RejectedNames) > 0 {
		log.Info("ignored metric types", "names", result.RejectedNames)
	}

	// Roll everything up into the local database.
	store, err := storage.OpenLite(*dataDir)
	if err != nil {
		log.Error("open rollup database", "dir", *dataDir, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	src := source.NewStatic(metricRows, sleepRows, strings.Split(*priority, ","))
	syncer := vsync.New(src, store, log)

	ctx := context.Background()
	if err := syncer.Initialize(ctx, 1, nil); err != nil {
		log.Error("backfill failed", "error", err)
		os.Exit(1)
	}

	printSummary(ctx, log, store)
}

func exportFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	return files, nil
}

func printSummary(ctx context.Context, log *slog.Logger, store storage.Store) {
	days, err := store.AllDays(ctx, 1)
	if err != nil {
		log.Warn("summary: days query failed", "error", err)
		return
	}
	weeks, _ := store.Weeks(ctx, 1)
	months, _ := store.Months(ctx, 1)
	years, _ := store.Years(ctx, 1)

	log.Info("backfill complete",
		"days", len(days),
		"weeks", len(weeks),
		"months", len(months),
		"years", len(years),
	)

	hs, err := store.GetHighscores(ctx, 1)
	if err != nil {
		log.Warn("summary: highscore query failed", "error", err)
		return
	}
	log.Info("personal records",
		"most_steps", hs.MostSteps.Value,
		"most_steps_date", hs.MostSteps.Date.Format("2006-01-02"),
		"most_sleep_minutes", hs.MostSleepMinutes.Value,
		"sleep_streak_days", hs.SleepStreak.Length,
		"workout_streak_days", hs.WorkoutStreak.Length,
	)
}
