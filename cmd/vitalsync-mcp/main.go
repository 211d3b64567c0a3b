package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/vitalsync/internal/config"
	"github.com/meltforce/vitalsync/internal/mcp"
	"github.com/meltforce/vitalsync/internal/source"
	"github.com/meltforce/vitalsync/internal/storage"
	vsync "github.com/meltforce/vitalsync/internal/sync"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// vitalsync-mcp serves the MCP tools over stdio. In remote mode (-server) it
// proxies to a running VitalSync instance over its REST API, typically across
// the tailnet. In local mode (-config) it opens the database directly.
func main() {
	serverURL := flag.String("server", "", "remote VitalSync base URL (e.g. https://vitalsync.tail1234.ts.net)")
	configPath := flag.String("config", "", "config file for local database mode")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("vitalsync-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds mcp.DataSource
	switch {
	case *serverURL != "":
		ds = mcp.NewHTTPClient(*serverURL)
		log.Info("remote mode", "server", *serverURL)
	case *configPath != "":
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		src := source.NewPG(db, cfg.Sync.SleepPriority, log)
		syncer := vsync.New(src, db, log)
		syncer.SetRunLog(db)
		ds = &mcp.Local{Store: db, Syncer: syncer}
		log.Info("local mode", "database", cfg.Database.Host)
	default:
		fmt.Fprintf(os.Stderr, "Usage: vitalsync-mcp -server <URL> | -config config.yaml\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	s := mcp.New(ds, Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
