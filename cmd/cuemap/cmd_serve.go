package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemap/cuemap/internal/api"
	"github.com/cuemap/cuemap/internal/cuemap"
	"github.com/cuemap/cuemap/internal/jobqueue"
	"github.com/cuemap/cuemap/internal/logging"
	"github.com/cuemap/cuemap/pkg/config"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API server",
	Long: `Start the REST API server: loads any existing per-tenant snapshots from
the configured data directory, serves the recall/remember/reinforce
endpoints, and runs periodic snapshot and consolidation sweeps in the
background until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("preparing data directory: %w", err)
	}

	log := logging.GetLogger("serve")

	router := cuemap.NewRouter(nil)
	loadExistingTenants(router, cfg.Snapshot.DataDir, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs := jobqueue.New(ctx, jobqueue.Config{
		Capacity: cfg.Engine.JobQueueCapacity,
		Workers:  cfg.Engine.JobQueueWorkers,
	}, log)
	defer jobs.Stop()

	server := api.NewServer(router, cfg, jobs)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	stopTickers := startBackgroundTickers(ctx, router, jobs, cfg, log)
	defer stopTickers()

	if err := server.StartWithContext(ctx, shutdownTimeout); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("saving tenant snapshots before exit")
	if err := router.SaveAll(cfg.Snapshot.DataDir); err != nil {
		log.Error("final snapshot save failed", "error", err)
	}

	return nil
}

// loadExistingTenants scans the snapshots directory for per-tenant files
// and loads each into a provisioned engine, so a restart resumes with the
// same memories instead of starting empty (§4.6).
func loadExistingTenants(router *cuemap.Router, dataDir string, log *logging.Logger) {
	snapDir := filepath.Join(dataDir, "snapshots")
	entries, err := os.ReadDir(snapDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".bin" {
			continue
		}
		projectID := name[:len(name)-len(ext)]
		engine := router.CreateTenant(projectID)
		path := cuemap.SnapshotPath(dataDir, projectID)
		if err := engine.Load(path); err != nil {
			log.Error("failed to load tenant snapshot", "tenant", projectID, "path", path, "error", err)
			continue
		}
		log.Info("loaded tenant snapshot", "tenant", projectID, "path", path)
	}
}

// startBackgroundTickers runs the periodic snapshot-save and
// consolidation sweeps named in §4.5/§4.6 on a background goroutine, off
// the synchronous write path. Consolidation sweeps are submitted through
// the job queue; snapshot saves run directly on the ticker goroutine.
func startBackgroundTickers(ctx context.Context, router *cuemap.Router, jobs *jobqueue.Queue, cfg *config.Config, log *logging.Logger) func() {
	snapTicker := time.NewTicker(cfg.Snapshot.Interval)
	var consolidateTicker *time.Ticker
	if cfg.Consolidation.Enabled {
		consolidateTicker = time.NewTicker(cfg.Consolidation.Interval)
	}

	done := make(chan struct{})
	go func() {
		for {
			var consolidateC <-chan time.Time
			if consolidateTicker != nil {
				consolidateC = consolidateTicker.C
			}
			select {
			case <-ctx.Done():
				close(done)
				return
			case <-snapTicker.C:
				if err := router.SaveAll(cfg.Snapshot.DataDir); err != nil {
					log.Error("periodic snapshot save failed", "error", err)
				} else {
					log.Debug("periodic snapshot save completed")
				}
			case <-consolidateC:
				for _, tenantID := range router.ListTenants() {
					tenantID := tenantID
					engine, ok := router.Engine(tenantID)
					if !ok {
						continue
					}
					jobs.EnqueueConsolidation(tenantID, func(_ context.Context) error {
						gists := engine.Consolidate()
						if len(gists) > 0 {
							log.Info("consolidation sweep created gists", "tenant", tenantID, "count", len(gists))
						}
						return nil
					})
				}
			}
		}
	}()

	return func() {
		snapTicker.Stop()
		if consolidateTicker != nil {
			consolidateTicker.Stop()
		}
		<-done
	}
}
