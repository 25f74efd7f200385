package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-co-op/gocron"

	"github.com/pulseboard/activitytrack/internal/collect"
	"github.com/pulseboard/activitytrack/internal/config"
	"github.com/pulseboard/activitytrack/internal/db"
	"github.com/pulseboard/activitytrack/internal/pipeline"
	"github.com/pulseboard/activitytrack/internal/server"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const watcherDebounce = 2 * time.Second

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			runOnce(os.Args[2:])
			return
		case "serve":
			runServe(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("activitytrack %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`activitytrack %s - daily online-activity dataset builder

Collects irregular visitor/guest/download samples, archives them,
and recomputes a canonical gap-tolerant daily dataset plus derived
stats, served over a local JSON API.

Usage:
  activitytrack [flags]          Start the server (default command)
  activitytrack serve [flags]    Start the server (explicit)
  activitytrack run [flags]      Run one batch and exit
  activitytrack version          Show version information
  activitytrack help             Show this help

Flags:
  -host string        Host to bind to (default "127.0.0.1")
  -port int           Port to listen on (default 8080)
  -artifact string    Compact dataset artifact path
  -cutoff string      First day of reliable downloads history
  -interval duration  Scheduled recompute interval (default 1h)

Environment variables:
  ACTIVITYTRACK_DATA_DIR      Data directory (database, config)
  ACTIVITYTRACK_SAMPLES_DIR   Drop-in sample files directory
  ACTIVITYTRACK_ARTIFACT      Artifact path override

Data is stored in ~/.activitytrack/ by default.
`, version)
}

func runOnce(args []string) {
	cfg := mustLoadConfig("run", args)
	pipe, database := mustBuildPipeline(cfg)
	defer database.Close()

	res, err := pipe.Run(context.Background())
	if err != nil {
		log.Fatalf("batch run: %v", err)
	}
	fmt.Printf(
		"Run complete: %d point(s), %d dropped row(s), published=%v hash=%s\n",
		res.Points, res.DroppedRows, res.Published, res.ContentHash,
	)
}

func runServe(args []string) {
	cfg := mustLoadConfig("serve", args)
	pipe, database := mustBuildPipeline(cfg)
	defer database.Close()

	runInitial(pipe)

	stopWatcher := startSampleWatcher(cfg, pipe)
	defer stopWatcher()

	scheduler := startScheduler(cfg, pipe)
	defer scheduler.Stop()

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Printf("Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, pipe,
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
	)

	fmt.Printf("activitytrack %s listening at http://%s\n",
		version, srv.Addr())
	if err := http.ListenAndServe(srv.Addr(), srv.Handler()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func mustLoadConfig(name string, args []string) config.Config {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: activitytrack %s [flags]\n\nFlags:\n", name)
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	return cfg
}

func mustBuildPipeline(cfg config.Config) (*pipeline.Pipeline, *db.DB) {
	cutoff, err := cfg.Cutoff()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening sample archive: %v", err)
	}

	pipe := &pipeline.Pipeline{
		DB:           database,
		Collector:    &collect.Collector{CommandTimeout: cfg.CommandTimeout},
		Sources:      cfg.Sources,
		Cutoff:       cutoff,
		ArtifactPath: cfg.ArtifactPath,
	}
	return pipe, database
}

func runInitial(pipe *pipeline.Pipeline) {
	fmt.Println("Running initial batch...")
	res, err := pipe.Run(context.Background())
	if err != nil {
		log.Printf("initial batch: %v", err)
		return
	}
	fmt.Printf("Batch complete: %d point(s), published=%v\n",
		res.Points, res.Published)
}

// startSampleWatcher recomputes when drop-in sample files change.
func startSampleWatcher(
	cfg config.Config, pipe *pipeline.Pipeline,
) func() {
	onChange := func() {
		if _, err := pipe.Run(context.Background()); err != nil {
			log.Printf("recompute after file change: %v", err)
		}
	}
	watcher, err := collect.NewWatcher(watcherDebounce, onChange)
	if err != nil {
		log.Printf("warning: file watcher unavailable: %v", err)
		return func() {}
	}

	if _, err := os.Stat(cfg.SamplesDir); err == nil {
		if err := watcher.Watch(cfg.SamplesDir); err != nil {
			log.Printf("warning: watching %s: %v", cfg.SamplesDir, err)
		}
	}
	watcher.Start()
	return watcher.Stop
}

// startScheduler runs the batch on the configured interval.
func startScheduler(
	cfg config.Config, pipe *pipeline.Pipeline,
) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(cfg.Interval).Do(func() {
		log.Println("Running scheduled batch...")
		if _, err := pipe.Run(context.Background()); err != nil {
			log.Printf("scheduled batch: %v", err)
		}
	})
	if err != nil {
		log.Printf("warning: scheduling batch: %v", err)
	}
	scheduler.StartAsync()
	return scheduler
}
